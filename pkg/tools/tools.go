// Package tools implements every built-in tool the orchestrator's
// registry dispatches against: filesystem mutation and undo, shell,
// search, LSP, the todo list, subagent spawn, and MCP-proxied tools.
// Each tool decodes its raw map[string]any arguments into a typed
// struct via mapstructure rather than asserting per field.
package tools

import (
	"fmt"
	"path/filepath"

	"github.com/mitchellh/mapstructure"

	"github.com/driftwood-dev/codeagent/pkg/httpclient"
	"github.com/driftwood-dev/codeagent/pkg/lsp"
	"github.com/driftwood-dev/codeagent/pkg/mcp"
	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/session"
	"github.com/driftwood-dev/codeagent/pkg/snapshot"
	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// Extra keys the agent facade stashes in tool.Context.Extra so tools can
// reach the components pkg/tool deliberately keeps untyped.
const (
	ExtraSnapshot   = "snapshot"
	ExtraLSP        = "lsp"
	ExtraMCPManager = "mcp_manager"
	ExtraMCPSandbox = "mcp_sandbox"
	ExtraSubagents  = "subagents"
	ExtraHTTP       = "httpclient"
	ExtraPermission = "permission"
	ExtraCodeSearch = "codesearch"
)

// decodeArgs maps the orchestrator's raw argument bag into a typed
// struct, tolerating the loose numeric/string typing JSON-over-the-wire
// tool calls produce.
func decodeArgs[T any](raw map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return out, fmt.Errorf("build argument decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("decode arguments: %w", err)
	}
	return out, nil
}

// errResult builds the canonical "Error: ..." prose Result a tool
// returns for a user-input or execution failure — never a Go error,
// which the registry reserves for unexpected programmer failures.
func errResult(format string, args ...any) tool.Result {
	return tool.Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

func okResult(content string) tool.Result {
	return tool.Result{Success: true, Content: content}
}

func resolvePath(cwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}

func sessionFrom(ctx tool.Context) *session.Session {
	s, _ := ctx.Session.(*session.Session)
	return s
}

func registryFrom(ctx tool.Context) *tool.Registry {
	r, _ := ctx.Registry.(*tool.Registry)
	return r
}

func snapshotFrom(ctx tool.Context) *snapshot.Store {
	s, _ := ctx.Extra[ExtraSnapshot].(*snapshot.Store)
	return s
}

func subagentsFrom(ctx tool.Context) *subagent.Runner {
	r, _ := ctx.Extra[ExtraSubagents].(*subagent.Runner)
	return r
}

func mcpManagerFrom(ctx tool.Context) *mcp.Manager {
	m, _ := ctx.Extra[ExtraMCPManager].(*mcp.Manager)
	return m
}

func mcpSandboxFrom(ctx tool.Context) *mcp.Sandbox {
	s, _ := ctx.Extra[ExtraMCPSandbox].(*mcp.Sandbox)
	return s
}

func lspFrom(ctx tool.Context) *lsp.Multiplexer {
	m, _ := ctx.Extra[ExtraLSP].(*lsp.Multiplexer)
	return m
}

func permissionFrom(ctx tool.Context) permission.Gate {
	g, _ := ctx.Extra[ExtraPermission].(permission.Gate)
	if g == nil {
		return permission.AutoApprove{}
	}
	return g
}

func httpFrom(ctx tool.Context) *httpclient.Client {
	h, _ := ctx.Extra[ExtraHTTP].(*httpclient.Client)
	if h == nil {
		return httpclient.New()
	}
	return h
}

func codeSearchFrom(ctx tool.Context) CodeSearcher {
	c, _ := ctx.Extra[ExtraCodeSearch].(CodeSearcher)
	return c
}

// sessionID returns the session identifier permission requests and
// snapshot tracking are keyed by, falling back to the agent id when no
// session is attached to the context (subagent runs, tests).
func sessionID(ctx tool.Context) string {
	if s := sessionFrom(ctx); s != nil {
		return s.ID
	}
	return ctx.AgentID
}
