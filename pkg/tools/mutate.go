package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/lsp"
	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// confirmMutation consults the permission gate attached to ctx before a
// mutating tool proceeds, returning a non-nil Result only when the
// caller should stop and return it as the tool's outcome.
func confirmMutation(ctx tool.Context, kind, title, description string) *tool.Result {
	gate := permissionFrom(ctx)
	decision, err := gate.Confirm(permission.Request{
		SessionID:   sessionID(ctx),
		Kind:        kind,
		Title:       title,
		Description: description,
	})
	if err != nil {
		r := errResult("Error: permission check failed: %v", err)
		return &r
	}
	if decision == permission.Deny {
		r := errResult("Error: %s declined by the user", title)
		return &r
	}
	return nil
}

// beginEdit stages a pre-edit snapshot for path (best-effort — the
// snapshot store must never fail the calling tool) and remembers it as
// path's last pre-edit state for a later `undo`.
func beginEdit(ctx tool.Context, path string) {
	store := snapshotFrom(ctx)
	if store == nil {
		return
	}
	hash := store.Track(sessionID(ctx))
	store.RecordPreEditSnapshot(path, hash)
}

// atomicWrite writes content to full via a temp-file-then-rename so a
// crash mid-write never leaves a partially written file behind.
func atomicWrite(full string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create parent directories: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".codeagent-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// diffSummary renders a compact add/remove line-count summary the way
// the LLM uses to confirm the shape of a change without re-reading the
// whole file.
func diffSummary(path string, before, after string, existed bool) string {
	if !existed {
		return fmt.Sprintf("Created %s (%d lines)", path, strings.Count(after, "\n")+1)
	}
	beforeLines := strings.Split(before, "\n")
	afterLines := strings.Split(after, "\n")

	beforeSet := make(map[string]int, len(beforeLines))
	for _, l := range beforeLines {
		beforeSet[l]++
	}
	afterSet := make(map[string]int, len(afterLines))
	for _, l := range afterLines {
		afterSet[l]++
	}

	var additions, deletions int
	for l, n := range afterSet {
		if d := n - beforeSet[l]; d > 0 {
			additions += d
		}
	}
	for l, n := range beforeSet {
		if d := n - afterSet[l]; d > 0 {
			deletions += d
		}
	}
	return fmt.Sprintf("Updated %s (+%d -%d lines)", path, additions, deletions)
}

// postWriteDiagnostics touches full on the LSP client claiming its
// extension and renders any diagnostics the server has already
// published for it, per the write/edit/multiedit contract.
func postWriteDiagnostics(ctx tool.Context, full string) string {
	mux := lspFrom(ctx)
	if mux == nil {
		return ""
	}
	if err := mux.TouchFile(ctx.Ctx, full, true, 0); err != nil {
		return ""
	}
	diags, err := mux.Diagnostics(full)
	if err != nil || len(diags) == 0 {
		return ""
	}
	return "\n\n" + renderDiagnostics(diags)
}

func renderDiagnostics(diags []lsp.Diagnostic) string {
	var b strings.Builder
	b.WriteString("Diagnostics:\n")
	for _, d := range diags {
		b.WriteString(fmt.Sprintf("  %s:%d: %s\n", severityLabel(d.Severity), d.Range.Start.Line, d.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func severityLabel(sev int) string {
	switch sev {
	case 1:
		return "error"
	case 2:
		return "warning"
	case 3:
		return "info"
	case 4:
		return "hint"
	default:
		return "diagnostic"
	}
}
