package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/sourcegraph/jsonrpc2"
)

// requestTimeout bounds every client->server request; expiry removes the
// pending entry (jsonrpc2's Conn handles this internally via ctx).
const requestTimeout = 30 * time.Second

// Client owns one language server child process and its single reader
// task (jsonrpc2.Conn's own dispatch loop).
type Client struct {
	lang    string
	cmd     *exec.Cmd
	conn    *jsonrpc2.Conn
	root    string

	mu            sync.Mutex
	versions      map[string]int // uri -> document version
	diagnostics   map[string][]Diagnostic
	capabilities  map[string]any
}

// stdioStream adapts a child process's stdin/stdout into the
// io.ReadWriteCloser jsonrpc2.NewBufferedStream expects.
type stdioStream struct {
	io.Reader
	io.Writer
	closer func() error
}

func (s stdioStream) Close() error { return s.closer() }

// Start launches the language server with root as its working directory
// and begins the jsonrpc2 dispatch loop. handleServerRequest answers
// server-to-client requests (workspace/configuration, client/registerCapability,
// window/workDoneProgress/create) immediately so the server never blocks
// waiting on us.
func Start(ctx context.Context, lang, command string, args []string, root string) (*Client, error) {
	cmd := exec.Command(command, args...)
	cmd.Dir = root

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin for %s: %w", lang, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout for %s: %w", lang, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start language server %s: %w", lang, err)
	}

	c := &Client{
		lang:        lang,
		cmd:         cmd,
		root:        root,
		versions:    make(map[string]int),
		diagnostics: make(map[string][]Diagnostic),
	}

	stream := jsonrpc2.NewBufferedStream(stdioStream{Reader: stdout, Writer: stdin, closer: stdin.Close}, jsonrpc2.VSCodeObjectCodec{})
	c.conn = jsonrpc2.NewConn(ctx, stream, jsonrpc2.HandlerWithError(c.handleServerRequest))

	return c, nil
}

// handleServerRequest answers server-originated requests/notifications.
// Unhandled requests get an empty-object/null response rather than
// blocking the server indefinitely.
func (c *Client) handleServerRequest(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	switch req.Method {
	case "workspace/configuration":
		var params struct {
			Items []struct{} `json:"items"`
		}
		if req.Params != nil {
			_ = json.Unmarshal(*req.Params, &params)
		}
		return make([]any, len(params.Items)), nil
	case "client/registerCapability", "client/unregisterCapability":
		return nil, nil
	case "window/workDoneProgress/create":
		return nil, nil
	case "textDocument/publishDiagnostics":
		c.handleDiagnostics(req.Params)
		return nil, nil
	default:
		if req.Notif {
			return nil, nil
		}
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "unhandled: " + req.Method}
	}
}

type publishDiagnosticsParams struct {
	URI         string `json:"uri"`
	Diagnostics []struct {
		Range    wireRange `json:"range"`
		Severity int       `json:"severity"`
		Message  string    `json:"message"`
		Source   string    `json:"source"`
	} `json:"diagnostics"`
}

func (c *Client) handleDiagnostics(raw *json.RawMessage) {
	if raw == nil {
		return
	}
	var params publishDiagnosticsParams
	if err := json.Unmarshal(*raw, &params); err != nil {
		slog.Warn("lsp: malformed publishDiagnostics", "lang", c.lang, "error", err)
		return
	}
	path, err := uriToPath(params.URI)
	if err != nil {
		return
	}

	diags := make([]Diagnostic, 0, len(params.Diagnostics))
	for _, d := range params.Diagnostics {
		diags = append(diags, Diagnostic{Range: fromWireRange(d.Range), Severity: d.Severity, Message: d.Message, Source: d.Source})
	}

	c.mu.Lock()
	c.diagnostics[path] = diags
	c.mu.Unlock()
}

// Initialize performs the LSP initialize handshake and records server
// capabilities, then sends the initialized notification.
func (c *Client) Initialize(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	params := map[string]any{
		"processId":    nil,
		"rootUri":      pathToURI(c.root),
		"capabilities": clientCapabilities(),
	}

	var result struct {
		Capabilities map[string]any `json:"capabilities"`
	}
	if err := c.conn.Call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("initialize %s: %w", c.lang, err)
	}

	c.mu.Lock()
	c.capabilities = result.Capabilities
	c.mu.Unlock()

	return c.conn.Notify(ctx, "initialized", map[string]any{})
}

func clientCapabilities() map[string]any {
	return map[string]any{
		"textDocument": map[string]any{
			"synchronization":    map[string]any{"didSave": true},
			"publishDiagnostics": map[string]any{"relatedInformation": true},
			"definition":         map[string]any{},
			"references":         map[string]any{},
			"hover":              map[string]any{"contentFormat": []string{"markdown", "plaintext"}},
			"documentSymbol":     map[string]any{"hierarchicalDocumentSymbolSupport": true},
			"callHierarchy":      map[string]any{},
		},
		"workspace": map[string]any{
			"symbol":        map[string]any{},
			"configuration": true,
			"workspaceFolders": true,
		},
	}
}

// DidOpen opens a file, tracking its version starting at 1.
func (c *Client) DidOpen(ctx context.Context, path, languageID, text string) error {
	c.mu.Lock()
	c.versions[path] = 1
	version := c.versions[path]
	c.mu.Unlock()

	return c.conn.Notify(ctx, "textDocument/didOpen", map[string]any{
		"textDocument": map[string]any{
			"uri":        pathToURI(path),
			"languageId": languageID,
			"version":    version,
			"text":       text,
		},
	})
}

// DidChange increments the file's version and replaces its buffer
// content wholesale (no incremental ranges).
func (c *Client) DidChange(ctx context.Context, path, text string) error {
	c.mu.Lock()
	c.versions[path]++
	version := c.versions[path]
	c.mu.Unlock()

	return c.conn.Notify(ctx, "textDocument/didChange", map[string]any{
		"textDocument":   map[string]any{"uri": pathToURI(path), "version": version},
		"contentChanges": []map[string]any{{"text": text}},
	})
}

// EnsureOpen opens path lazily if this client has never seen it before.
func (c *Client) EnsureOpen(ctx context.Context, path, languageID, text string) error {
	c.mu.Lock()
	_, opened := c.versions[path]
	c.mu.Unlock()
	if opened {
		return nil
	}
	return c.DidOpen(ctx, path, languageID, text)
}

// Definition, References, Hover, DocumentSymbols, WorkspaceSymbols,
// PrepareCallHierarchy, IncomingCalls, OutgoingCalls are one-shot
// request/response pairs.

func (c *Client) Definition(ctx context.Context, path string, pos Position) ([]Location, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result []struct {
		URI   string    `json:"uri"`
		Range wireRange `json:"range"`
	}
	err := c.conn.Call(ctx, "textDocument/definition", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     toWirePosition(pos),
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("definition: %w", err)
	}
	return toLocations(result)
}

func (c *Client) References(ctx context.Context, path string, pos Position, includeDeclaration bool) ([]Location, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result []struct {
		URI   string    `json:"uri"`
		Range wireRange `json:"range"`
	}
	err := c.conn.Call(ctx, "textDocument/references", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     toWirePosition(pos),
		"context":      map[string]any{"includeDeclaration": includeDeclaration},
	}, &result)
	if err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	return toLocations(result)
}

func (c *Client) Hover(ctx context.Context, path string, pos Position) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result struct {
		Contents json.RawMessage `json:"contents"`
	}
	err := c.conn.Call(ctx, "textDocument/hover", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     toWirePosition(pos),
	}, &result)
	if err != nil {
		return "", fmt.Errorf("hover: %w", err)
	}
	return hoverText(result.Contents), nil
}

func hoverText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}
	var asMarked struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &asMarked); err == nil {
		return asMarked.Value
	}
	return string(raw)
}

func (c *Client) DocumentSymbols(ctx context.Context, path string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result json.RawMessage
	err := c.conn.Call(ctx, "textDocument/documentSymbol", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
	}, &result)
	return result, err
}

func (c *Client) WorkspaceSymbols(ctx context.Context, query string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result json.RawMessage
	err := c.conn.Call(ctx, "workspace/symbol", map[string]any{"query": query}, &result)
	return result, err
}

func (c *Client) PrepareCallHierarchy(ctx context.Context, path string, pos Position) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result json.RawMessage
	err := c.conn.Call(ctx, "textDocument/prepareCallHierarchy", map[string]any{
		"textDocument": map[string]any{"uri": pathToURI(path)},
		"position":     toWirePosition(pos),
	}, &result)
	return result, err
}

func (c *Client) IncomingCalls(ctx context.Context, item json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result json.RawMessage
	err := c.conn.Call(ctx, "callHierarchy/incomingCalls", map[string]any{"item": item}, &result)
	return result, err
}

func (c *Client) OutgoingCalls(ctx context.Context, item json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var result json.RawMessage
	err := c.conn.Call(ctx, "callHierarchy/outgoingCalls", map[string]any{"item": item}, &result)
	return result, err
}

// Diagnostics reads the cached table for path without blocking on the
// server.
func (c *Client) Diagnostics(path string) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.diagnostics[path]
}

// Shutdown issues LSP shutdown + exit, then terminates the child with a
// bounded wait and a kill on timeout.
func (c *Client) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	_ = c.conn.Call(shutdownCtx, "shutdown", nil, nil)
	_ = c.conn.Notify(shutdownCtx, "exit", nil)
	_ = c.conn.Close()

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		_ = c.cmd.Process.Kill()
		<-done
	}
	return nil
}

func toLocations(wire []struct {
	URI   string    `json:"uri"`
	Range wireRange `json:"range"`
}) ([]Location, error) {
	out := make([]Location, 0, len(wire))
	for _, w := range wire {
		path, err := uriToPath(w.URI)
		if err != nil {
			return nil, err
		}
		out = append(out, Location{Path: path, Range: fromWireRange(w.Range)})
	}
	return out, nil
}
