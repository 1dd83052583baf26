// Package lsp multiplexes one JSON-RPC-over-stdio client per configured
// language server, dispatching capability queries (definition,
// references, hover, symbols, call hierarchy) and diagnostics lookups by
// file extension. Each client keeps its own diagnostics cache; no cache
// is shared across clients.
package lsp

import (
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// Position is 1-based (line, column) — every conversion to/from LSP's
// 0-based wire form happens explicitly at the boundary in this file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a pair of 1-based positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location pairs a file path with a range, in our 1-based convention.
type Location struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// Diagnostic mirrors the subset of textDocument/publishDiagnostics the
// multiplexer surfaces to tools.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Message  string `json:"message"`
	Source   string `json:"source,omitempty"`
}

// wirePosition is LSP's 0-based position.
type wirePosition struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type wireRange struct {
	Start wirePosition `json:"start"`
	End   wirePosition `json:"end"`
}

func toWirePosition(p Position) wirePosition {
	return wirePosition{Line: p.Line - 1, Character: p.Column - 1}
}

func fromWirePosition(p wirePosition) Position {
	return Position{Line: p.Line + 1, Column: p.Character + 1}
}

func fromWireRange(r wireRange) Range {
	return Range{Start: fromWirePosition(r.Start), End: fromWirePosition(r.End)}
}

// pathToURI converts a filesystem path to a file:// URI. On Windows the
// drive letter needs an extra leading slash; this repo never assumes
// that path shape outside this one conversion point.
func pathToURI(path string) string {
	abs := filepath.ToSlash(path)
	if runtime.GOOS == "windows" && !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	u := url.URL{Scheme: "file", Path: abs}
	return u.String()
}

// uriToPath converts a file:// URI back to a filesystem path.
func uriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	p := u.Path
	if runtime.GOOS == "windows" {
		p = strings.TrimPrefix(p, "/")
	}
	return filepath.FromSlash(p), nil
}
