package tools

import (
	"fmt"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type diagnosticsArgs struct {
	Path     string `json:"path" jsonschema:"required,description=File path to check diagnostics for"`
	Severity string `json:"severity,omitempty" jsonschema:"description=error, warning, or all (default all)"`
}

// DiagnosticsTool touches path on its owning language server and filters
// the resulting diagnostics cache by severity.
type DiagnosticsTool struct{}

func (DiagnosticsTool) Name() string        { return "diagnostics" }
func (DiagnosticsTool) Description() string { return "Fetch LSP diagnostics for a file, optionally filtered by severity." }
func (DiagnosticsTool) Schema() map[string]any {
	return generateSchema[diagnosticsArgs]()
}

func (DiagnosticsTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	args, err := decodeArgs[diagnosticsArgs](raw)
	if err != nil {
		return errResult("Error: %v", err), nil
	}
	if args.Path == "" {
		return errResult("Error: path is required"), nil
	}

	mux := lspFrom(ctx)
	if mux == nil {
		return errResult("Error: no language server is configured for %s", args.Path), nil
	}

	full := resolvePath(ctx.Cwd, args.Path)
	if err := mux.TouchFile(ctx.Ctx, full, true, 0); err != nil {
		return errResult("Error: no language server for %s: %v", args.Path, err), nil
	}

	diags, err := mux.Diagnostics(full)
	if err != nil {
		return errResult("Error: %v", err), nil
	}

	severity := strings.ToLower(args.Severity)
	if severity == "" {
		severity = "all"
	}
	filtered := diags[:0]
	for _, d := range diags {
		if severity == "all" || severityLabel(d.Severity) == severity {
			filtered = append(filtered, d)
		}
	}

	if len(filtered) == 0 {
		return okResult("No diagnostics"), nil
	}

	var b strings.Builder
	for _, d := range filtered {
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s\n", args.Path, d.Range.Start.Line, d.Range.Start.Column, severityLabel(d.Severity), d.Message)
	}
	return okResult(strings.TrimRight(b.String(), "\n")), nil
}
