package tools

import (
	"os"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type editArgs struct {
	Path       string `json:"path" jsonschema:"required,description=File path to edit"`
	OldContent string `json:"old_content" jsonschema:"required,description=Exact substring to replace; the first occurrence is replaced"`
	NewContent string `json:"new_content" jsonschema:"description=Replacement text"`
}

// EditTool replaces the first occurrence of old_content with new_content
// in a file.
type EditTool struct{}

func (EditTool) Name() string        { return "edit" }
func (EditTool) Description() string { return "Replace the first occurrence of an exact substring in a file." }
func (EditTool) Schema() map[string]any {
	return generateSchema[editArgs]()
}

func (EditTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[editArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" || args.OldContent == "" {
		return errResult("Error: path and old_content are required"), nil
	}

	full := resolvePath(ctx.Cwd, args.Path)
	content, err := os.ReadFile(full)
	if err != nil {
		return errResult("Error: %s does not exist", args.Path), nil
	}
	before := string(content)

	if !strings.Contains(before, args.OldContent) {
		return errResult("Error: old_content not found in %s", args.Path), nil
	}
	if args.OldContent == args.NewContent {
		return errResult("Error: old_content and new_content are identical"), nil
	}

	if res := confirmMutation(ctx, "write", "Edit "+args.Path, "Replace one occurrence of the given text"); res != nil {
		return *res, nil
	}

	after := strings.Replace(before, args.OldContent, args.NewContent, 1)

	beginEdit(ctx, args.Path)

	if err := atomicWrite(full, []byte(after)); err != nil {
		return errResult("Error: failed to write %s: %v", args.Path, err), nil
	}

	summary := diffSummary(args.Path, before, after, true)
	return okResult(summary + postWriteDiagnostics(ctx, full)), nil
}
