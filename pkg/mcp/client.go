package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpclient "github.com/mark3labs/mcp-go/client"
)

const protocolVersion = "2024-11-05"

// requestTimeout bounds every per-call round trip to the server; a
// timed-out call surfaces as an error and never blocks the caller
// indefinitely.
const requestTimeout = 30 * time.Second

// ToolDescriptor is a discovered MCP tool, namespaced by the manager
// before it reaches the outer tool registry.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// ResourceDescriptor is a discovered MCP resource.
type ResourceDescriptor struct {
	URI         string
	Name        string
	Description string
	MimeType    string
}

// CallResult is the outcome of tools/call: either a text result or an
// error message, matching the taxonomy the sandbox and mcp_execute tool
// both need.
type CallResult struct {
	IsError bool
	Text    string
}

// Client owns one MCP server's stdio connection: a single child process
// and its reader task, torn down together on Close.
type Client struct {
	descriptor ServerDescriptor
	raw        *mcpclient.Client

	tools     []ToolDescriptor
	resources []ResourceDescriptor
}

// Connect launches the server's child process, performs the initialize
// handshake, sends notifications/initialized, then discovers tools and
// resources. A discovery failure for one capability is logged and leaves
// that capability empty rather than failing the connection.
func Connect(ctx context.Context, desc ServerDescriptor) (*Client, error) {
	if desc.Transport != "" && desc.Transport != "stdio" {
		slog.Warn("mcp: non-stdio transport requested, degrading to stdio", "server", desc.Name, "transport", desc.Transport)
	}

	raw, err := mcpclient.NewStdioMCPClient(desc.Command, envSlice(desc.Env), desc.Args...)
	if err != nil {
		return nil, fmt.Errorf("create mcp client for %s: %w", desc.Name, err)
	}

	if err := raw.Start(ctx); err != nil {
		return nil, fmt.Errorf("start mcp server %s: %w", desc.Name, err)
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "codeagent", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = protocolVersion
	initReq.Params.Capabilities = clientCapabilities()

	initCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	if _, err := raw.Initialize(initCtx, initReq); err != nil {
		raw.Close()
		return nil, fmt.Errorf("initialize mcp server %s: %w", desc.Name, err)
	}

	c := &Client{descriptor: desc, raw: raw}
	c.discoverTools(ctx)
	c.discoverResources(ctx)
	return c, nil
}

func (c *Client) discoverTools(ctx context.Context) {
	listCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.raw.ListTools(listCtx, mcpgo.ListToolsRequest{})
	if err != nil {
		slog.Warn("mcp: list tools failed, leaving tool capability empty", "server", c.descriptor.Name, "error", err)
		return
	}
	for _, t := range resp.Tools {
		c.tools = append(c.tools, ToolDescriptor{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
		})
	}
}

func (c *Client) discoverResources(ctx context.Context) {
	listCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := c.raw.ListResources(listCtx, mcpgo.ListResourcesRequest{})
	if err != nil {
		slog.Warn("mcp: list resources failed, leaving resource capability empty", "server", c.descriptor.Name, "error", err)
		return
	}
	for _, r := range resp.Resources {
		c.resources = append(c.resources, ResourceDescriptor{
			URI: r.URI, Name: r.Name, Description: r.Description, MimeType: r.MIMEType,
		})
	}
}

// Name returns the server name this client was configured under.
func (c *Client) Name() string { return c.descriptor.Name }

// Tools returns the tools discovered at connect time.
func (c *Client) Tools() []ToolDescriptor { return c.tools }

// Resources returns the resources discovered at connect time.
func (c *Client) Resources() []ResourceDescriptor { return c.resources }

// CallTool invokes a named tool with args, bounded by requestTimeout.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (CallResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.raw.CallTool(callCtx, req)
	if err != nil {
		return CallResult{}, fmt.Errorf("call tool %s on %s: %w", name, c.descriptor.Name, err)
	}
	return toCallResult(resp), nil
}

// ReadResource reads a resource by URI, surfaced as a synthetic tool per
// server by the manager.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	readCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req := mcpgo.ReadResourceRequest{}
	req.Params.URI = uri

	resp, err := c.raw.ReadResource(readCtx, req)
	if err != nil {
		return "", fmt.Errorf("read resource %s on %s: %w", uri, c.descriptor.Name, err)
	}

	var text string
	for _, content := range resp.Contents {
		if tc, ok := content.(mcpgo.TextResourceContents); ok {
			text += tc.Text
		}
	}
	return text, nil
}

// Close cancels the reader, terminates the child with a bounded wait,
// then kills it — handled internally by mcp-go's stdio transport Close.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func toCallResult(resp *mcpgo.CallToolResult) CallResult {
	var text string
	for _, content := range resp.Content {
		if tc, ok := content.(mcpgo.TextContent); ok {
			text += tc.Text
		}
	}
	return CallResult{IsError: resp.IsError, Text: text}
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// clientCapabilities declares roots.listChanged and sampling, per the
// handshake requirement in this system's external-interface contract.
func clientCapabilities() mcpgo.ClientCapabilities {
	caps := mcpgo.ClientCapabilities{}
	caps.Roots = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{ListChanged: true}
	caps.Sampling = &struct{}{}
	return caps
}

// schemaToMap round-trips the discovered schema through JSON so every
// keyword the server reported reaches the registry unchanged.
func schemaToMap(schema mcpgo.ToolInputSchema) map[string]any {
	m := map[string]any{}
	if raw, err := json.Marshal(schema); err == nil {
		_ = json.Unmarshal(raw, &m)
	}
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}
	return m
}
