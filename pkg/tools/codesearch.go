package tools

import (
	"fmt"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// CodeSearchResult is one match the semantic index returns.
type CodeSearchResult struct {
	Path    string
	Line    int
	Snippet string
	Score   float64
}

// CodeSearcher is the embedding-backed semantic index this agent
// delegates to rather than implementing itself. The agent facade wires
// a concrete implementation in via tool.Context.Extra[ExtraCodeSearch];
// when none is wired, the codesearch tool reports it as missing.
type CodeSearcher interface {
	Search(path, query, filePattern string, topK int) ([]CodeSearchResult, error)
}

type codeSearchArgs struct {
	Query       string `json:"query" jsonschema:"required,description=Natural-language or symbolic search query"`
	Path        string `json:"path,omitempty" jsonschema:"description=Directory to scope the search to"`
	FilePattern string `json:"file_pattern,omitempty" jsonschema:"description=Glob filter over candidate files"`
	TopK        int    `json:"top_k,omitempty" jsonschema:"description=Maximum results, default 10"`
}

const defaultCodeSearchTopK = 10

// CodeSearchTool delegates to a semantic code index collaborator.
type CodeSearchTool struct{}

func (CodeSearchTool) Name() string        { return "codesearch" }
func (CodeSearchTool) Description() string { return "Semantic search over the indexed codebase." }
func (CodeSearchTool) Schema() map[string]any {
	return generateSchema[codeSearchArgs]()
}

func (CodeSearchTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[codeSearchArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Query == "" {
		return errResult("Error: query is required"), nil
	}

	searcher := codeSearchFrom(ctx)
	if searcher == nil {
		return errResult("Error: no semantic code index is configured"), nil
	}

	topK := defaultCodeSearchTopK
	if args.TopK > 0 {
		topK = args.TopK
	}

	path := ctx.Cwd
	if args.Path != "" {
		path = resolvePath(ctx.Cwd, args.Path)
	}

	results, err := searcher.Search(path, args.Query, args.FilePattern, topK)
	if err != nil {
		return errResult("Error: semantic search failed: %v", err), nil
	}
	if len(results) == 0 {
		return okResult("No matches found"), nil
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s:%d (score %.3f)\n%s\n\n", r.Path, r.Line, r.Score, r.Snippet)
	}
	return okResult(strings.TrimRight(b.String(), "\n")), nil
}
