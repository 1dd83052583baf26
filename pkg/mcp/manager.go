package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// Manager holds every configured MCP server connection and exposes their
// tools to the outer tool registry, namespaced as mcp_<server>_<tool>.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]*Client)}
}

// ConnectAll connects every descriptor concurrently. A failing server is
// reported in the returned map and omitted from the manager rather than
// aborting the whole call.
func (m *Manager) ConnectAll(ctx context.Context, descriptors []ServerDescriptor) map[string]bool {
	results := make(map[string]bool, len(descriptors))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, d := range descriptors {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			client, err := Connect(ctx, d)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("mcp: connect failed, server omitted", "server", d.Name, "error", err)
				results[d.Name] = false
				return
			}
			m.mu.Lock()
			m.clients[d.Name] = client
			m.mu.Unlock()
			results[d.Name] = true
		}()
	}
	wg.Wait()
	return results
}

// Client returns a connected server's client by name.
func (m *Manager) Client(name string) (*Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[name]
	return c, ok
}

// Clients returns every connected client, for enumeration by the
// mcp_tools introspection tool and the sandbox.
func (m *Manager) Clients() []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

// CallTool routes a (server, tool, args) triple to the right client —
// the primitive the code-execution sandbox bridges scripted calls to.
func (m *Manager) CallTool(ctx context.Context, server, toolName string, args map[string]any) (CallResult, error) {
	client, ok := m.Client(server)
	if !ok {
		return CallResult{}, fmt.Errorf("mcp server %q not connected", server)
	}
	return client.CallTool(ctx, toolName, args)
}

// CloseAll disconnects every client.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, c := range m.clients {
		if err := c.Close(); err != nil {
			slog.Warn("mcp: close failed", "server", name, "error", err)
		}
	}
	m.clients = make(map[string]*Client)
}

// Source adapts Manager to tool.Source so RegisterSource can fold every
// connected server's tools into the outer registry under the
// mcp_<server>_<tool> namespace, with input_schema relayed verbatim.
type Source struct {
	manager *Manager
	tools   map[string]tool.Tool
}

// NewSource wraps manager as a tool.Source.
func NewSource(manager *Manager) *Source {
	return &Source{manager: manager, tools: make(map[string]tool.Tool)}
}

func (s *Source) Name() string { return "mcp" }

func (s *Source) Type() string { return "mcp" }

// Discover is a no-op: Manager.ConnectAll already performed discovery
// when each client connected. Source just re-indexes the current tool
// set under its namespaced names.
func (s *Source) Discover(ctx context.Context) error {
	s.tools = make(map[string]tool.Tool)
	for _, c := range s.manager.Clients() {
		for _, td := range c.Tools() {
			namespaced := fmt.Sprintf("mcp_%s_%s", c.Name(), td.Name)
			s.tools[namespaced] = &remoteTool{
				manager:     s.manager,
				server:      c.Name(),
				remoteName:  td.Name,
				namespaced:  namespaced,
				description: td.Description,
				schema:      td.InputSchema,
			}
		}
		readResourceName := fmt.Sprintf("mcp_%s_read_resource", c.Name())
		s.tools[readResourceName] = &readResourceTool{manager: s.manager, server: c.Name(), namespaced: readResourceName}
	}
	return nil
}

func (s *Source) List() []tool.Schema {
	out := make([]tool.Schema, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, tool.Schema{Name: t.Name(), Description: t.Description(), Parameters: t.Schema()})
	}
	return out
}

func (s *Source) Get(name string) (tool.Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

// remoteTool calls through to one MCP server's tool, keeping its
// upstream input_schema untouched (per the spec's exact-passthrough
// Testable Property).
type remoteTool struct {
	manager     *Manager
	server      string
	remoteName  string
	namespaced  string
	description string
	schema      map[string]any
}

func (t *remoteTool) Name() string          { return t.namespaced }
func (t *remoteTool) Description() string   { return t.description }
func (t *remoteTool) Schema() map[string]any { return t.schema }

func (t *remoteTool) Execute(ctx tool.Context, args map[string]any) (tool.Result, error) {
	res, err := t.manager.CallTool(ctx.Ctx, t.server, t.remoteName, args)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}
	if res.IsError {
		return tool.Result{Success: false, Error: res.Text}, nil
	}
	return tool.Result{Success: true, Content: res.Text}, nil
}

// readResourceTool exposes resources/read as a synthetic per-server tool,
// taking a single "uri" argument.
type readResourceTool struct {
	manager    *Manager
	server     string
	namespaced string
}

func (t *readResourceTool) Name() string        { return t.namespaced }
func (t *readResourceTool) Description() string { return "Read an MCP resource by URI from server " + t.server }
func (t *readResourceTool) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{"uri": map[string]any{"type": "string"}},
		"required":   []string{"uri"},
	}
}

func (t *readResourceTool) Execute(ctx tool.Context, args map[string]any) (tool.Result, error) {
	uri, _ := args["uri"].(string)
	if uri == "" {
		return tool.Result{Success: false, Error: "Error: uri is required"}, nil
	}
	client, ok := t.manager.Client(t.server)
	if !ok {
		return tool.Result{Success: false, Error: fmt.Sprintf("Error: mcp server %q not connected", t.server)}, nil
	}
	content, err := client.ReadResource(ctx.Ctx, uri)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, nil
	}
	return tool.Result{Success: true, Content: content}, nil
}

var (
	_ tool.Source = (*Source)(nil)
	_ tool.Tool   = (*remoteTool)(nil)
	_ tool.Tool   = (*readResourceTool)(nil)
)
