// Package mcp federates the agent to external Model Context Protocol
// servers: a stdio JSON-RPC client per server, a manager aggregating
// their tools into the outer registry, and a code-execution sandbox that
// lets the LLM batch many MCP calls in one scripted turn.
package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ServerDescriptor configures one MCP server connection.
type ServerDescriptor struct {
	Name      string            `json:"-"`
	Command   string            `json:"command"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	Transport string            `json:"transport,omitempty"` // stdio | sse | streamable-http
	URL       string            `json:"url,omitempty"`
}

// descriptorPaths returns the MCP server descriptor search order, first
// match wins.
func descriptorPaths(workspaceRoot string) []string {
	paths := []string{
		filepath.Join(workspaceRoot, "mcp-servers.json"),
		filepath.Join(workspaceRoot, ".mcp", "servers.json"),
		filepath.Join(workspaceRoot, "codesm.json"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "codeagent", "mcp.json"))
	}
	return paths
}

// DiscoverDescriptors finds the first matching descriptor file for
// workspaceRoot and parses it. Returns an empty slice (not an error) if
// no descriptor file exists.
func DiscoverDescriptors(workspaceRoot string) ([]ServerDescriptor, error) {
	for _, path := range descriptorPaths(workspaceRoot) {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return parseDescriptors(raw)
	}
	return nil, nil
}

// parseDescriptors accepts an object keyed at "mcpServers", "mcp.servers",
// "servers", or the root level, mapping server name to its config.
func parseDescriptors(raw []byte) ([]ServerDescriptor, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("parse mcp descriptor: %w", err)
	}

	var serversRaw json.RawMessage
	switch {
	case root["mcpServers"] != nil:
		serversRaw = root["mcpServers"]
	case root["mcp.servers"] != nil:
		serversRaw = root["mcp.servers"]
	case root["servers"] != nil:
		serversRaw = root["servers"]
	default:
		// No recognized wrapper key — treat the whole document as the
		// server map, per the "or root-level" branch of the schema.
		serversRaw = raw
	}

	var byName map[string]ServerDescriptor
	if err := json.Unmarshal(serversRaw, &byName); err != nil {
		return nil, fmt.Errorf("parse mcp server entries: %w", err)
	}

	out := make([]ServerDescriptor, 0, len(byName))
	for name, d := range byName {
		d.Name = name
		if d.Transport == "" {
			d.Transport = "stdio"
		}
		out = append(out, d)
	}
	return out, nil
}
