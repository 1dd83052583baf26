package agent

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/driftwood-dev/codeagent/pkg/contextwindow"
	"github.com/driftwood-dev/codeagent/pkg/httpclient"
	"github.com/driftwood-dev/codeagent/pkg/logger"
	"github.com/driftwood-dev/codeagent/pkg/lsp"
	"github.com/driftwood-dev/codeagent/pkg/mcp"
	"github.com/driftwood-dev/codeagent/pkg/permission"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/session"
	"github.com/driftwood-dev/codeagent/pkg/skill"
	"github.com/driftwood-dev/codeagent/pkg/snapshot"
	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
	"github.com/driftwood-dev/codeagent/pkg/tools"
)

// FacadeBuilder assembles a Facade one collaborator at a time, the same
// fluent-With*-then-Build idiom the tool registry builder uses: every
// With method is optional, and Build fills in a sensible zero-config
// default for anything left unset.
type FacadeBuilder struct {
	cwd string

	log        *slog.Logger
	providers  *provider.Registry
	toolReg    *tool.Registry
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

	windowTokens  int
	maxIterations int
	modelAlias    provider.Alias

	lspServers map[string]lsp.ServerConfig
	skillDirs  []string

	err error
}

// NewFacadeBuilder starts a builder for a workspace rooted at cwd. A
// non-empty cwd and a provider registry are the only hard requirements
// Build enforces — every other collaborator has a workable zero-config
// default.
func NewFacadeBuilder(cwd string) *FacadeBuilder {
	return &FacadeBuilder{cwd: cwd, windowTokens: defaultWindowTokens, modelAlias: provider.AliasSmart}
}

func (b *FacadeBuilder) WithLogger(log *slog.Logger) *FacadeBuilder { b.log = log; return b }

func (b *FacadeBuilder) WithProviders(p *provider.Registry) *FacadeBuilder { b.providers = p; return b }

func (b *FacadeBuilder) WithTools(r *tool.Registry) *FacadeBuilder { b.toolReg = r; return b }

func (b *FacadeBuilder) WithSessions(s *session.Store) *FacadeBuilder { b.sessions = s; return b }

func (b *FacadeBuilder) WithSnapshot(s *snapshot.Store) *FacadeBuilder { b.snapshots = s; return b }

func (b *FacadeBuilder) WithMCP(m *mcp.Manager, sandbox *mcp.Sandbox) *FacadeBuilder {
	b.mcpManager, b.mcpSandbox = m, sandbox
	return b
}

func (b *FacadeBuilder) WithLSP(mux *lsp.Multiplexer) *FacadeBuilder { b.lspMux = mux; return b }

// WithLSPServers configures the language servers Build should start if
// no Multiplexer was supplied directly via WithLSP.
func (b *FacadeBuilder) WithLSPServers(servers map[string]lsp.ServerConfig) *FacadeBuilder {
	b.lspServers = servers
	return b
}

func (b *FacadeBuilder) WithSubagents(r *subagent.Runner) *FacadeBuilder { b.subagents = r; return b }

func (b *FacadeBuilder) WithContextManager(m *contextwindow.Manager) *FacadeBuilder {
	b.contextMgr = m
	return b
}

func (b *FacadeBuilder) WithWindowTokens(n int) *FacadeBuilder { b.windowTokens = n; return b }

func (b *FacadeBuilder) WithSkills(m *skill.Manager) *FacadeBuilder { b.skills = m; return b }

// WithSkillDirs configures the workspace-relative directories Build
// should scan for SKILL.md files if no Manager was supplied directly.
func (b *FacadeBuilder) WithSkillDirs(dirs []string) *FacadeBuilder { b.skillDirs = dirs; return b }

func (b *FacadeBuilder) WithPermission(g permission.Gate) *FacadeBuilder { b.permission = g; return b }

func (b *FacadeBuilder) WithHTTPClient(c *httpclient.Client) *FacadeBuilder { b.http = c; return b }

func (b *FacadeBuilder) WithCodeSearch(cs tools.CodeSearcher) *FacadeBuilder { b.codeSearch = cs; return b }

// WithMaxIterations bounds the ReAct loop's reason/act rounds per Chat
// call. 0 (the default) means unlimited, matching the outward-facing
// zero-config behavior of the system this project generalizes — the
// loop's own internal default is a lower, example-scoped bound, not the
// product's actual default.
func (b *FacadeBuilder) WithMaxIterations(n int) *FacadeBuilder { b.maxIterations = n; return b }

func (b *FacadeBuilder) WithModelAlias(a provider.Alias) *FacadeBuilder { b.modelAlias = a; return b }

// Build wires every collaborator into a Facade. ctx bounds MCP server
// connection attempts made during construction; it is not retained.
func (b *FacadeBuilder) Build(ctx context.Context) (*Facade, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.cwd == "" {
		return nil, WrapKind(KindUserInput, fmt.Errorf("facade: cwd is required"))
	}
	if b.providers == nil {
		return nil, WrapKind(KindUserInput, fmt.Errorf("facade: a provider registry is required"))
	}

	log := b.log
	if log == nil {
		log = logger.New(logger.Options{Level: "info"})
	}

	snap := b.snapshots
	if snap == nil {
		var err error
		snap, err = snapshot.Open(b.cwd, log)
		if err != nil {
			log.Warn("snapshot store unavailable, falling back to in-memory", "error", err)
			snap, err = snapshot.OpenInMemory(b.cwd)
			if err != nil {
				return nil, WrapKind(KindFatalInternal, fmt.Errorf("open snapshot store: %w", err))
			}
		}
	}

	sessions := b.sessions
	if sessions == nil {
		var err error
		sessions, err = session.NewStore(filepath.Join(stateDir(b.cwd), "sessions"), session.HeuristicTitleProvider{})
		if err != nil {
			return nil, WrapKind(KindFatalInternal, fmt.Errorf("open session store: %w", err))
		}
	}

	mcpManager := b.mcpManager
	mcpSandbox := b.mcpSandbox
	if mcpManager == nil {
		mcpManager = mcp.NewManager()
		descriptors, err := mcp.DiscoverDescriptors(b.cwd)
		if err != nil {
			log.Warn("mcp descriptor discovery failed", "error", err)
		} else if len(descriptors) > 0 {
			results := mcpManager.ConnectAll(ctx, descriptors)
			connected := 0
			for _, ok := range results {
				if ok {
					connected++
				}
			}
			log.Info("connected to MCP servers", "connected", connected, "configured", len(descriptors))
		}
	}
	if mcpSandbox == nil {
		mcpSandbox = mcp.NewSandbox(mcpManager, b.cwd)
	}

	lspMux := b.lspMux
	if lspMux == nil {
		lspMux = lsp.New(b.cwd)
		if len(b.lspServers) > 0 {
			keys := make([]string, 0, len(b.lspServers))
			for k := range b.lspServers {
				keys = append(keys, k)
			}
			lspMux.Init(ctx, b.lspServers, keys)
		}
	}

	toolReg := b.toolReg
	if toolReg == nil {
		toolReg = tool.NewRegistry()
		if err := tools.Register(toolReg); err != nil {
			return nil, WrapKind(KindFatalInternal, fmt.Errorf("register builtin tools: %w", err))
		}
		if len(mcpManager.Clients()) > 0 {
			if err := toolReg.RegisterSource(ctx, mcp.NewSource(mcpManager)); err != nil {
				log.Warn("mcp tool source registration failed", "error", err)
			}
		}
	}

	subagents := b.subagents
	if subagents == nil {
		subagents = subagent.NewRunner(b.providers, toolReg)
	}

	contextMgr := b.contextMgr
	if contextMgr == nil {
		contextMgr = contextwindow.NewManager(b.providers, b.windowTokens)
	}

	skills := b.skills
	if skills == nil {
		dirs := b.skillDirs
		discovered, err := skillDiscover(b.cwd, dirs)
		if err != nil {
			log.Warn("skill discovery failed", "error", err)
		}
		skills = skill.NewManager(discovered)
	}

	perm := b.permission
	if perm == nil {
		perm = permission.AutoApprove{}
	}

	httpClient := b.http
	if httpClient == nil {
		httpClient = httpclient.New()
	}

	return &Facade{
		cwd:           b.cwd,
		log:           log,
		providers:     b.providers,
		tools:         toolReg,
		sessions:      sessions,
		snapshots:     snap,
		mcpManager:    mcpManager,
		mcpSandbox:    mcpSandbox,
		lspMux:        lspMux,
		subagents:     subagents,
		contextMgr:    contextMgr,
		skills:        skills,
		permission:    perm,
		http:          httpClient,
		codeSearch:    b.codeSearch,
		maxIterations: b.maxIterations,
		modelAlias:    b.modelAlias,
	}, nil
}

func skillDiscover(cwd string, dirs []string) ([]skill.Skill, error) {
	if len(dirs) > 0 {
		return skill.DiscoverIn(cwd, dirs)
	}
	return skill.Discover(cwd)
}
