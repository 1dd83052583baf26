// Package agent assembles every collaborator package (providers,
// sessions, snapshots, tools, MCP, LSP, subagents, context management,
// skills, permissions) into one Facade, and owns the two
// responsibilities the orchestrator deliberately does not: persisting
// messages to a session, and deciding what goes into the system prompt.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/driftwood-dev/codeagent/pkg/contextwindow"
	"github.com/driftwood-dev/codeagent/pkg/httpclient"
	"github.com/driftwood-dev/codeagent/pkg/logger"
	"github.com/driftwood-dev/codeagent/pkg/lsp"
	"github.com/driftwood-dev/codeagent/pkg/mcp"
	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/orchestrator"
	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/session"
	"github.com/driftwood-dev/codeagent/pkg/skill"
	"github.com/driftwood-dev/codeagent/pkg/snapshot"
	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
	"github.com/driftwood-dev/codeagent/pkg/tools"
)

// defaultWindowTokens is the fallback context window size when nothing
// more specific is configured — large enough for a frontier model, small
// enough that compaction still has a chance to trigger before a real
// vendor limit does.
const defaultWindowTokens = 200_000

// Facade is the single entry point a CLI or HTTP server talks to: one
// conversation turn in, a stream of chunks out, every tool execution and
// message persisted along the way.
type Facade struct {
	cwd     string
	log     *slog.Logger
	session *session.Session

	providers  *provider.Registry
	tools      *tool.Registry
	sessions   *session.Store
	snapshots  *snapshot.Store
	mcpManager *mcp.Manager
	mcpSandbox *mcp.Sandbox
	lspMux     *lsp.Multiplexer
	subagents  *subagent.Runner
	contextMgr *contextwindow.Manager
	skills     *skill.Manager
	permission permission.Gate
	http       *httpclient.Client
	codeSearch tools.CodeSearcher

	maxIterations int
	modelAlias    provider.Alias
}

// NewSession starts a fresh conversation and makes it the facade's
// active session, returning it so a caller can report its id.
func (f *Facade) NewSession() (*session.Session, error) {
	sess, err := f.sessions.Create(f.cwd)
	if err != nil {
		return nil, WrapKind(KindFatalInternal, fmt.Errorf("create session: %w", err))
	}
	f.session = sess
	return sess, nil
}

// ResumeSession loads an existing session by id and makes it active.
func (f *Facade) ResumeSession(id string) (*session.Session, error) {
	sess, err := f.sessions.Get(id)
	if err != nil {
		return nil, WrapKind(KindUserInput, fmt.Errorf("load session %s: %w", id, err))
	}
	f.session = sess
	return sess, nil
}

// Session returns the facade's currently active session, if any.
func (f *Facade) Session() *session.Session { return f.session }

// Chat sends one user message through the ReAct loop and returns a
// stream of chunks. It persists the user message up front, every
// intermediate assistant/tool turn via the orchestrator's OnAppend
// hook, and — since the orchestrator never appends a tool-call-free
// final turn itself — the accumulated final assistant text once the
// stream closes, provided it's non-empty.
func (f *Facade) Chat(ctx context.Context, text string) <-chan message.StreamChunk {
	out := make(chan message.StreamChunk)

	go func() {
		defer close(out)

		sess := f.session
		if sess == nil {
			var err error
			sess, err = f.NewSession()
			if err != nil {
				out <- message.ErrorChunk(err)
				return
			}
		}

		if err := f.sessions.AddUserMessage(ctx, sess, text); err != nil {
			out <- message.ErrorChunk(WrapKind(KindFatalInternal, fmt.Errorf("save user message: %w", err)))
			return
		}

		f.skills.AutoLoadForMessage(text)

		messages := sess.GetMessages()
		if f.contextMgr != nil && f.contextMgr.NeedsCompaction(messages) {
			messages = f.contextMgr.Compact(ctx, messages)
		}

		prov, model, err := f.providers.Resolve(string(f.modelAlias))
		if err != nil {
			out <- message.ErrorChunk(WrapKind(KindExternalService, err))
			return
		}

		toolCtx := f.toolContext(ctx, sess)
		sysPrompt := systemPrompt(f.cwd, f.skills.RenderActiveForPrompt(), mcpServerNames(f.mcpManager))

		stream := orchestrator.Execute(ctx, prov, f.tools, toolCtx, messages, orchestrator.Options{
			SystemPrompt:  sysPrompt,
			Tools:         toolDefinitions(f.tools.Schemas()),
			Model:         model,
			MaxIterations: f.maxIterations,
			OnAppend: func(m message.Message) {
				if err := f.sessions.AddMessage(sess, m); err != nil {
					f.log.Error("persist turn failed", "session", sess.ID, "error", err)
				}
			},
		})

		var pending strings.Builder
		for chunk := range stream {
			switch chunk.Kind {
			case message.ChunkText:
				pending.WriteString(chunk.Text)
			case message.ChunkToolResult:
				// a tool result means the turn that produced it already
				// went through OnAppend; anything accumulated for it is
				// stale once the next turn starts.
				pending.Reset()
			}
			out <- chunk
		}

		if pending.Len() > 0 {
			final := message.Message{Role: message.RoleAssistant, Content: pending.String(), Timestamp: time.Now()}
			if err := f.sessions.AddMessage(sess, final); err != nil {
				f.log.Error("persist final turn failed", "session", sess.ID, "error", err)
			}
		}
	}()

	return out
}

// Cleanup tears down every long-lived external connection the facade
// holds — MCP clients and LSP servers — releasing subprocess and socket
// resources. Safe to call even if those collaborators were never used.
func (f *Facade) Cleanup(ctx context.Context) {
	if f.mcpManager != nil {
		f.mcpManager.CloseAll()
	}
	if f.lspMux != nil {
		f.lspMux.Shutdown(ctx)
	}
}

func (f *Facade) toolContext(ctx context.Context, sess *session.Session) tool.Context {
	return tool.Context{
		Ctx:      ctx,
		Cwd:      f.cwd,
		Session:  sess,
		Messages: sess.GetMessages(),
		Registry: f.tools,
		AgentID:  "main",
		Extra: map[string]any{
			tools.ExtraSnapshot:   f.snapshots,
			tools.ExtraLSP:        f.lspMux,
			tools.ExtraMCPManager: f.mcpManager,
			tools.ExtraMCPSandbox: f.mcpSandbox,
			tools.ExtraSubagents:  f.subagents,
			tools.ExtraHTTP:       f.http,
			tools.ExtraPermission: f.permission,
			tools.ExtraCodeSearch: f.codeSearch,
		},
	}
}

func toolDefinitions(schemas []tool.Schema) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(schemas))
	for i, s := range schemas {
		defs[i] = provider.ToolDefinition{Name: s.Name, Description: s.Description, Parameters: s.Parameters}
	}
	return defs
}

func mcpServerNames(m *mcp.Manager) []string {
	if m == nil {
		return nil
	}
	clients := m.Clients()
	names := make([]string, len(clients))
	for i, c := range clients {
		names[i] = c.Name()
	}
	return names
}

// stateDir is where session JSON files live for a given workspace,
// mirroring the teacher's convention of a dotfile directory scoped to the
// project root. The snapshot store keeps its shadow git repo elsewhere,
// under the user's state directory.
func stateDir(cwd string) string {
	return filepath.Join(cwd, ".codeagent")
}
