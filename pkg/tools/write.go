package tools

import (
	"fmt"
	"os"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type writeArgs struct {
	Path    string `json:"path" jsonschema:"required,description=File path to create or overwrite"`
	Content string `json:"content" jsonschema:"required,description=Full file content to write"`
}

// WriteTool atomically creates or overwrites a file, bracketing the
// mutation with a pre-edit snapshot so `undo` can revert it.
type WriteTool struct{}

func (WriteTool) Name() string        { return "write" }
func (WriteTool) Description() string { return "Create or overwrite a file with the given content." }
func (WriteTool) Schema() map[string]any {
	return generateSchema[writeArgs]()
}

func (WriteTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[writeArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" {
		return errResult("Error: path is required"), nil
	}

	full := resolvePath(ctx.Cwd, args.Path)

	if res := confirmMutation(ctx, "write", "Write "+args.Path,
		fmt.Sprintf("Create/overwrite %s (%d bytes)", args.Path, len(args.Content))); res != nil {
		return *res, nil
	}

	before, existed := "", false
	if b, err := os.ReadFile(full); err == nil {
		before, existed = string(b), true
	}

	beginEdit(ctx, args.Path)

	if err := atomicWrite(full, []byte(args.Content)); err != nil {
		return errResult("Error: failed to write %s: %v", args.Path, err), nil
	}

	summary := diffSummary(args.Path, before, args.Content, existed)
	return okResult(summary + postWriteDiagnostics(ctx, full)), nil
}
