package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type readArgs struct {
	Path  string `json:"path" jsonschema:"required,description=File path to read, relative to the working directory"`
	Start int    `json:"start,omitempty" jsonschema:"description=First line to include, 1-based"`
	End   int    `json:"end,omitempty" jsonschema:"description=Last line to include, inclusive"`
}

// ReadTool returns the 1-based, line-numbered text of a file, optionally
// restricted to [start,end].
type ReadTool struct{}

func (ReadTool) Name() string        { return "read" }
func (ReadTool) Description() string { return "Read a file's contents, optionally limited to a line range, with 1-based line numbers." }
func (ReadTool) Schema() map[string]any {
	return generateSchema[readArgs]()
}

func (ReadTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[readArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" {
		return errResult("Error: path is required"), nil
	}

	full := resolvePath(ctx.Cwd, args.Path)
	info, err := os.Stat(full)
	if err != nil {
		return errResult("Error: %s does not exist", args.Path), nil
	}
	if info.IsDir() {
		return errResult("Error: %s is a directory, not a file", args.Path), nil
	}

	content, err := os.ReadFile(full)
	if err != nil {
		return errResult("Error: failed to read %s: %v", args.Path, err), nil
	}

	lines := strings.Split(string(content), "\n")
	total := len(lines)

	start := 1
	if args.Start > 0 {
		start = args.Start
	}
	end := total
	if args.End > 0 && args.End < total {
		end = args.End
	}
	if start > end || start > total {
		return errResult("Error: requested range %d-%d is outside the file's %d lines", start, end, total), nil
	}

	var out strings.Builder
	for i := start - 1; i < end && i < total; i++ {
		fmt.Fprintf(&out, "%6d\t%s\n", i+1, lines[i])
	}
	return okResult(strings.TrimSuffix(out.String(), "\n")), nil
}
