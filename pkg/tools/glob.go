package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type globArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern, e.g. **/*.go"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search under, default the working directory"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of matches, default 100"`
}

const defaultGlobLimit = 100

// GlobTool walks path matching pattern (doublestar syntax, so "**" spans
// directory separators) against each file's path relative to it,
// skipping the same excluded directories as grep and ls.
type GlobTool struct{}

func (GlobTool) Name() string        { return "glob" }
func (GlobTool) Description() string { return "Find files matching a glob pattern (supports ** for recursive matches)." }
func (GlobTool) Schema() map[string]any {
	return generateSchema[globArgs]()
}

func (GlobTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[globArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Pattern == "" {
		return errResult("Error: pattern is required"), nil
	}
	if !doublestar.ValidatePattern(args.Pattern) {
		return errResult("Error: invalid glob pattern %q", args.Pattern), nil
	}

	root := resolvePath(ctx.Cwd, args.Path)
	limit := defaultGlobLimit
	if args.Limit > 0 {
		limit = args.Limit
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ok, _ := doublestar.Match(args.Pattern, rel); ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return errResult("Error: walk failed: %v", err), nil
	}

	if len(matches) == 0 {
		return okResult("No matches found"), nil
	}

	sort.Strings(matches)
	truncated := len(matches) > limit
	if truncated {
		matches = matches[:limit]
	}

	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintln(&b, filepath.Join(args.Path, m))
	}
	if truncated {
		fmt.Fprintf(&b, "\n(truncated to %d matches)\n", limit)
	}
	return okResult(strings.TrimRight(b.String(), "\n")), nil
}
