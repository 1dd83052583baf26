package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/lsp"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type lspArgs struct {
	Action string          `json:"action" jsonschema:"required,description=definition, references, hover, document_symbols, workspace_symbols, call_hierarchy_incoming, call_hierarchy_outgoing"`
	Path   string          `json:"path,omitempty" jsonschema:"description=File the query targets"`
	Line   int             `json:"line,omitempty" jsonschema:"description=1-based line number"`
	Column int             `json:"column,omitempty" jsonschema:"description=1-based column number"`
	Query  string          `json:"query,omitempty" jsonschema:"description=Query string for workspace_symbols"`
	Item   json.RawMessage `json:"item,omitempty" jsonschema:"description=Call-hierarchy item returned by a prior prepare call, for call_hierarchy_incoming/outgoing"`
}

// LSPTool routes a capability query to the language server responsible
// for path's extension. Locations render as path:line:column text;
// symbol and call-hierarchy results are returned as the server's JSON.
type LSPTool struct{}

func (LSPTool) Name() string        { return "lsp" }
func (LSPTool) Description() string { return "Query a language server: definition, references, hover, symbols, or call hierarchy." }
func (LSPTool) Schema() map[string]any {
	return generateSchema[lspArgs]()
}

func (LSPTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[lspArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}

	mux := lspFrom(ctx)
	if mux == nil {
		return errResult("Error: no language server is configured"), nil
	}

	pos := lsp.Position{Line: args.Line, Column: args.Column}
	full := ""
	if args.Path != "" {
		full = resolvePath(ctx.Cwd, args.Path)
	}

	switch args.Action {
	case "definition":
		if full == "" || args.Line == 0 {
			return errResult("Error: path and line are required for definition"), nil
		}
		locs, err := mux.Definition(ctx.Ctx, full, pos)
		if err != nil {
			return errResult("Error: %v", err), nil
		}
		return okResult(renderLocations(locs)), nil

	case "references":
		if full == "" || args.Line == 0 {
			return errResult("Error: path and line are required for references"), nil
		}
		locs, err := mux.References(ctx.Ctx, full, pos, true)
		if err != nil {
			return errResult("Error: %v", err), nil
		}
		return okResult(renderLocations(locs)), nil

	case "hover":
		if full == "" || args.Line == 0 {
			return errResult("Error: path and line are required for hover"), nil
		}
		text, err := mux.Hover(ctx.Ctx, full, pos)
		if err != nil {
			return errResult("Error: %v", err), nil
		}
		if text == "" {
			return okResult("No hover information"), nil
		}
		return okResult(text), nil

	case "document_symbols":
		if full == "" {
			return errResult("Error: path is required for document_symbols"), nil
		}
		result, err := mux.DocumentSymbols(ctx.Ctx, full)
		if err != nil {
			return errResult("Error: %v", err), nil
		}
		return okResult(renderJSON(result)), nil

	case "workspace_symbols":
		if args.Query == "" {
			return errResult("Error: query is required for workspace_symbols"), nil
		}
		results, err := mux.WorkspaceSymbols(ctx.Ctx, args.Query)
		if err != nil {
			return errResult("Error: %v", err), nil
		}
		if len(results) == 0 {
			return okResult("No matching symbols"), nil
		}
		var b strings.Builder
		for _, r := range results {
			fmt.Fprintln(&b, renderJSON(r))
		}
		return okResult(strings.TrimRight(b.String(), "\n")), nil

	case "call_hierarchy_incoming", "call_hierarchy_outgoing":
		if full == "" {
			return errResult("Error: path is required for %s", args.Action), nil
		}
		var item json.RawMessage
		var err error
		if len(args.Item) > 0 {
			item = args.Item
		} else {
			if args.Line == 0 {
				return errResult("Error: either item or line/column is required for %s", args.Action), nil
			}
			prepared, perr := mux.PrepareCallHierarchy(ctx.Ctx, full, pos)
			if perr != nil {
				return errResult("Error: %v", perr), nil
			}
			item, _ = prepared.(json.RawMessage)
		}
		var calls json.RawMessage
		if args.Action == "call_hierarchy_incoming" {
			calls, err = mux.IncomingCalls(ctx.Ctx, full, item)
		} else {
			calls, err = mux.OutgoingCalls(ctx.Ctx, full, item)
		}
		if err != nil {
			return errResult("Error: %v", err), nil
		}
		return okResult(string(calls)), nil

	default:
		return errResult("Error: invalid action %q", args.Action), nil
	}
}

func renderLocations(locs []lsp.Location) string {
	if len(locs) == 0 {
		return "No results"
	}
	var b strings.Builder
	for _, l := range locs {
		fmt.Fprintf(&b, "%s:%d:%d\n", l.Path, l.Range.Start.Line, l.Range.Start.Column)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderJSON(v any) string {
	b, ok := v.(json.RawMessage)
	if ok {
		return string(b)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(out)
}
