package tools

import (
	"fmt"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// MCPToolsTool renders the discovered server/tool/resource tree so the
// model can explore capabilities cheaply before writing an mcp_execute
// script.
type MCPToolsTool struct{}

func (MCPToolsTool) Name() string        { return "mcp_tools" }
func (MCPToolsTool) Description() string { return "List the tools and resources discovered on every connected MCP server." }
func (MCPToolsTool) Schema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (MCPToolsTool) Execute(ctx tool.Context, raw map[string]any) (tool.Result, error) {
	manager := mcpManagerFrom(ctx)
	if manager == nil {
		return errResult("Error: no MCP servers are configured"), nil
	}

	clients := manager.Clients()
	if len(clients) == 0 {
		return okResult("No MCP servers connected"), nil
	}

	var b strings.Builder
	for _, c := range clients {
		fmt.Fprintf(&b, "%s:\n", c.Name())
		for _, t := range c.Tools() {
			fmt.Fprintf(&b, "  mcp_%s_%s — %s\n", c.Name(), t.Name, t.Description)
		}
		for _, r := range c.Resources() {
			fmt.Fprintf(&b, "  resource %s (%s) — %s\n", r.URI, r.MimeType, r.Description)
		}
	}
	return okResult(strings.TrimRight(b.String(), "\n")), nil
}
