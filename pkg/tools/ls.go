package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type lsArgs struct {
	Path  string `json:"path,omitempty" jsonschema:"description=Directory to list, default the working directory"`
	Depth int    `json:"depth,omitempty" jsonschema:"description=Maximum tree depth, default 3, capped at 3"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Maximum entries rendered, default 100, capped at 100"`
}

const (
	maxLsDepth = 3
	maxLsLimit = 100
)

// LsTool renders a directory as an indented tree, skipping the same
// excluded directories as grep and glob.
type LsTool struct{}

func (LsTool) Name() string        { return "ls" }
func (LsTool) Description() string { return "List a directory as a tree, up to 3 levels deep." }
func (LsTool) Schema() map[string]any {
	return generateSchema[lsArgs]()
}

func (LsTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[lsArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}

	path := "."
	if args.Path != "" {
		path = args.Path
	}
	full := resolvePath(ctx.Cwd, path)

	info, err := os.Stat(full)
	if err != nil || !info.IsDir() {
		return errResult("Error: %s is not a directory", path), nil
	}

	depth := maxLsDepth
	if args.Depth > 0 && args.Depth < maxLsDepth {
		depth = args.Depth
	}
	limit := maxLsLimit
	if args.Limit > 0 && args.Limit < maxLsLimit {
		limit = args.Limit
	}

	var b strings.Builder
	fmt.Fprintln(&b, path)
	count := 0
	var walk func(dir string, prefix string, level int) bool
	walk = func(dir, prefix string, level int) bool {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return true
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		visible := entries[:0]
		for _, e := range entries {
			if e.IsDir() && excludedDirs[e.Name()] {
				continue
			}
			visible = append(visible, e)
		}

		for i, e := range visible {
			if count >= limit {
				fmt.Fprintf(&b, "%s... (truncated to %d entries)\n", prefix, limit)
				return false
			}
			last := i == len(visible)-1
			branch := "├── "
			nextPrefix := prefix + "│   "
			if last {
				branch = "└── "
				nextPrefix = prefix + "    "
			}
			name := e.Name()
			if e.IsDir() {
				name += "/"
			}
			fmt.Fprintf(&b, "%s%s%s\n", prefix, branch, name)
			count++
			if e.IsDir() && level < depth {
				if !walk(filepath.Join(dir, e.Name()), nextPrefix, level+1) {
					return false
				}
			}
		}
		return true
	}
	walk(full, "", 1)

	return okResult(strings.TrimRight(b.String(), "\n")), nil
}
