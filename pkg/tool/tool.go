// Package tool defines the uniform surface the orchestrator dispatches
// against: a schema-exposed, side-effecting Tool, grouped into Toolsets,
// held by a Registry. Concrete tools (filesystem, shell, search, LSP,
// MCP-proxied, subagent spawn) live in pkg/tools; the orchestrator only
// ever sees this interface.
package tool

import "context"

// Schema describes a tool's name, human description, and JSON-Schema
// argument shape, as exposed to the LLM.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Result is what a tool execution produces. Success=false with a non-nil
// error from Execute indicates a programmer-visible failure; Success=false
// with a nil error and a populated Error string indicates the canonical
// "Error: ..." prose the orchestrator feeds back to the LLM.
type Result struct {
	Success  bool
	Content  string
	Error    string
	Metadata map[string]any
}

// Context carries everything a tool execution needs beyond its arguments:
// working directory, the session handle, the live message list, and a
// back-reference to the registry (for meta-tools: task, parallel_tasks,
// mcp_execute). It intentionally holds `any` for session/registry so this
// package has no import-cycle-inducing dependency on pkg/session or on
// itself-via-meta-tools.
type Context struct {
	Ctx      context.Context
	Cwd      string
	Session  any
	Messages any
	Registry any
	AgentID  string
	Extra    map[string]any
}

// Tool is a callable capability exposed to the LLM.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx Context, args map[string]any) (Result, error)
}

// StreamingTool is an optional extension for tools that can emit
// incremental output chunks before their final Result (e.g. bash).
type StreamingTool interface {
	Tool
	ExecuteStreaming(ctx Context, args map[string]any, chunks chan<- string) (Result, error)
}

// Toolset groups related tools behind dynamic, context-dependent
// resolution (used by the MCP source, which only connects lazily).
type Toolset interface {
	Name() string
	Tools(ctx context.Context) ([]Tool, error)
}

// Source mirrors Toolset but additionally exposes discovery/listing
// without instantiating tools, matching how the registry tracks where
// each tool came from (local vs a specific MCP server).
type Source interface {
	Name() string
	Type() string
	Discover(ctx context.Context) error
	List() []Schema
	Get(name string) (Tool, bool)
}
