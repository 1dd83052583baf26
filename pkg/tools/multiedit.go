package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type editOp struct {
	OldContent string `json:"old_content" jsonschema:"required"`
	NewContent string `json:"new_content"`
}

type multiEditArgs struct {
	Path  string   `json:"path" jsonschema:"required,description=File path to edit"`
	Edits []editOp `json:"edits" jsonschema:"required,description=Ordered list of old/new content replacements, each applied to the result of the previous one"`
}

// MultiEditTool applies a sequence of exact-substring replacements to one
// file, validating every edit against an in-memory buffer before any of
// them are written — a single failing edit aborts the whole batch and
// the file on disk is untouched.
type MultiEditTool struct{}

func (MultiEditTool) Name() string { return "multiedit" }
func (MultiEditTool) Description() string {
	return "Apply a sequence of exact-substring replacements to one file atomically; any invalid edit aborts the whole batch."
}
func (MultiEditTool) Schema() map[string]any {
	return generateSchema[multiEditArgs]()
}

func (MultiEditTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[multiEditArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" || len(args.Edits) == 0 {
		return errResult("Error: path and at least one edit are required"), nil
	}

	full := resolvePath(ctx.Cwd, args.Path)
	content, err := os.ReadFile(full)
	if err != nil {
		return errResult("Error: %s does not exist", args.Path), nil
	}
	before := string(content)

	buffer := before
	for i, op := range args.Edits {
		if op.OldContent == "" {
			return errResult("Validation failed: edit %d has empty old_content", i+1), nil
		}
		if !strings.Contains(buffer, op.OldContent) {
			return errResult("Validation failed: edit %d's old_content not found: %q", i+1, truncate(op.OldContent, 60)), nil
		}
		if op.OldContent == op.NewContent {
			return errResult("Validation failed: edit %d's old_content and new_content are identical", i+1), nil
		}
		if strings.Count(buffer, op.OldContent) > 1 {
			return errResult("Validation failed: edit %d's old_content appears more than once", i+1), nil
		}
		buffer = strings.Replace(buffer, op.OldContent, op.NewContent, 1)
	}

	if res := confirmMutation(ctx, "write", "Multi-edit "+args.Path, fmt.Sprintf("Apply %d replacements", len(args.Edits))); res != nil {
		return *res, nil
	}

	beginEdit(ctx, args.Path)

	if err := atomicWrite(full, []byte(buffer)); err != nil {
		return errResult("Error: failed to write %s: %v", args.Path, err), nil
	}

	summary := fmt.Sprintf("Applied %d edits to %s\n%s", len(args.Edits), args.Path, diffSummary(args.Path, before, buffer, true))
	return okResult(summary + postWriteDiagnostics(ctx, full)), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
