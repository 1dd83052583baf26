package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ServerConfig names one language server's launch command and the file
// extensions it's responsible for.
type ServerConfig struct {
	Command    string
	Args       []string
	Extensions []string
}

// touchTimeout bounds how long TouchFile waits for a server to publish
// diagnostics after didOpen/didChange when wait is requested.
const touchTimeout = 5 * time.Second

// Multiplexer owns one Client per configured language server and routes
// file-scoped operations to whichever client's extensions claim it.
type Multiplexer struct {
	root    string
	mu      sync.RWMutex
	clients map[string]*Client
	extToKey map[string]string
}

// New creates an empty multiplexer rooted at root; Init starts clients.
func New(root string) *Multiplexer {
	return &Multiplexer{
		root:     root,
		clients:  make(map[string]*Client),
		extToKey: make(map[string]string),
	}
}

// Init starts and initializes a client for each server in configs,
// restricted to keys if non-empty. Returns, per key, whether startup
// succeeded — a key with no entry in configs is reported as false, and a
// failure for one server never prevents the others from starting.
func (m *Multiplexer) Init(ctx context.Context, configs map[string]ServerConfig, keys []string) map[string]bool {
	selected := configs
	if len(keys) > 0 {
		selected = make(map[string]ServerConfig, len(keys))
		for _, k := range keys {
			if cfg, ok := configs[k]; ok {
				selected[k] = cfg
			}
		}
	}

	results := make(map[string]bool, len(selected))
	for _, k := range keys {
		if _, ok := configs[k]; !ok {
			results[k] = false
		}
	}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for key, cfg := range selected {
		wg.Add(1)
		go func(key string, cfg ServerConfig) {
			defer wg.Done()
			ok := m.startOne(ctx, key, cfg)
			mu.Lock()
			results[key] = ok
			mu.Unlock()
		}(key, cfg)
	}
	wg.Wait()

	return results
}

func (m *Multiplexer) startOne(ctx context.Context, key string, cfg ServerConfig) bool {
	client, err := Start(ctx, key, cfg.Command, cfg.Args, m.root)
	if err != nil {
		return false
	}
	if err := client.Initialize(ctx); err != nil {
		_ = client.Shutdown(ctx)
		return false
	}

	m.mu.Lock()
	m.clients[key] = client
	for _, ext := range cfg.Extensions {
		m.extToKey[ext] = key
	}
	m.mu.Unlock()

	return true
}

// clientFor resolves the client responsible for path by file extension.
func (m *Multiplexer) clientFor(path string) (*Client, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")

	m.mu.RLock()
	defer m.mu.RUnlock()

	key, ok := m.extToKey[ext]
	if !ok {
		return nil, fmt.Errorf("no language server registered for extension %q", ext)
	}
	client, ok := m.clients[key]
	if !ok {
		return nil, fmt.Errorf("language server %q is not running", key)
	}
	return client, nil
}

// TouchFile ensures path is open (or its buffer updated) with its
// current on-disk content, so subsequent capability queries and
// diagnostics reflect the latest text. When wait is true it blocks up
// to timeout (touchTimeout if zero) giving the server a chance to
// publish diagnostics before returning.
func (m *Multiplexer) TouchFile(ctx context.Context, path string, wait bool, timeout time.Duration) error {
	client, err := m.clientFor(path)
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := client.EnsureOpen(ctx, path, languageID(path), string(content)); err != nil {
		return err
	}
	if err := client.DidChange(ctx, path, string(content)); err != nil {
		return err
	}

	if wait {
		if timeout <= 0 {
			timeout = touchTimeout
		}
		time.Sleep(timeout)
	}
	return nil
}

// Diagnostics returns the cached diagnostics for path from the server
// responsible for it.
func (m *Multiplexer) Diagnostics(path string) ([]Diagnostic, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.Diagnostics(path), nil
}

// Definition, References, Hover, DocumentSymbols, PrepareCallHierarchy,
// IncomingCalls, OutgoingCalls dispatch a one-shot query to the client
// owning path. WorkspaceSymbols has no single owning file, so it fans
// out to every running client and concatenates results.

func (m *Multiplexer) Definition(ctx context.Context, path string, pos Position) ([]Location, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.Definition(ctx, path, pos)
}

func (m *Multiplexer) References(ctx context.Context, path string, pos Position, includeDeclaration bool) ([]Location, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.References(ctx, path, pos, includeDeclaration)
}

func (m *Multiplexer) Hover(ctx context.Context, path string, pos Position) (string, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return "", err
	}
	return client.Hover(ctx, path, pos)
}

func (m *Multiplexer) DocumentSymbols(ctx context.Context, path string) (any, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.DocumentSymbols(ctx, path)
}

func (m *Multiplexer) WorkspaceSymbols(ctx context.Context, query string) ([]any, error) {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	var all []any
	for _, c := range clients {
		result, err := c.WorkspaceSymbols(ctx, query)
		if err != nil {
			continue
		}
		all = append(all, result)
	}
	return all, nil
}

func (m *Multiplexer) PrepareCallHierarchy(ctx context.Context, path string, pos Position) (any, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.PrepareCallHierarchy(ctx, path, pos)
}

// IncomingCalls and OutgoingCalls route a call-hierarchy item to the
// client owning path — the item itself carries no path the multiplexer
// can parse without depending on the wire shape, so callers pass the
// path the item was prepared from.
func (m *Multiplexer) IncomingCalls(ctx context.Context, path string, item json.RawMessage) (json.RawMessage, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.IncomingCalls(ctx, item)
}

func (m *Multiplexer) OutgoingCalls(ctx context.Context, path string, item json.RawMessage) (json.RawMessage, error) {
	client, err := m.clientFor(path)
	if err != nil {
		return nil, err
	}
	return client.OutgoingCalls(ctx, item)
}

// Shutdown tears down every running client concurrently.
func (m *Multiplexer) Shutdown(ctx context.Context) {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range clients {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			_ = c.Shutdown(ctx)
		}(c)
	}
	wg.Wait()
}

var extToLanguageID = map[string]string{
	"go":   "go",
	"py":   "python",
	"js":   "javascript",
	"jsx":  "javascriptreact",
	"ts":   "typescript",
	"tsx":  "typescriptreact",
	"rs":   "rust",
	"rb":   "ruby",
	"java": "java",
	"c":    "c",
	"h":    "c",
	"cpp":  "cpp",
	"hpp":  "cpp",
	"md":   "markdown",
	"json": "json",
	"yaml": "yaml",
	"yml":  "yaml",
}

func languageID(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if id, ok := extToLanguageID[ext]; ok {
		return id
	}
	return "plaintext"
}
