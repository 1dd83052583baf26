// Package subagent implements the `task`/`parallel_tasks` facility: a
// subagent is a capability-restricted child agent — an allowed-tool
// subset, a dedicated system prompt, and a task-tuned model alias —
// that runs the same ReAct loop as the main agent to completion and
// returns its final text.
package subagent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/orchestrator"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// MaxParallelTasks caps how many specs one RunParallel call accepts and
// runs at once; each call has its own semaphore.
const MaxParallelTasks = 10

// Type names a subagent configuration.
type Type string

const (
	TypeCoder      Type = "coder"
	TypeResearcher Type = "researcher"
	TypeReviewer   Type = "reviewer"
	TypePlanner    Type = "planner"
	TypeOracle     Type = "oracle"
	TypeFinder     Type = "finder"
	TypeLibrarian  Type = "librarian"
	TypeAuto       Type = "auto"
)

// Config is one subagent's narrowing of the main agent.
type Config struct {
	SystemPrompt string
	AllowedTools []string // empty means every tool in the master registry
	ModelAlias   provider.Alias
}

// DefaultConfigs returns the seven built-in subagent configurations.
func DefaultConfigs() map[Type]Config {
	return map[Type]Config{
		TypeCoder: {
			SystemPrompt: "You are a focused coding subagent. Make the requested change directly, run the minimum verification needed, and report concisely what changed.",
			AllowedTools: []string{"read", "write", "edit", "multiedit", "bash", "grep", "glob", "ls", "diagnostics", "lsp", "undo"},
			ModelAlias:   provider.AliasSmart,
		},
		TypeResearcher: {
			SystemPrompt: "You are a research subagent. Gather and summarize information from the codebase and the web; do not modify files.",
			AllowedTools: []string{"read", "grep", "glob", "ls", "codesearch", "webfetch", "websearch"},
			ModelAlias:   provider.AliasFinder,
		},
		TypeReviewer: {
			SystemPrompt: "You are a code review subagent. Inspect the given path, report concrete defects with file:line references, and do not modify files.",
			AllowedTools: []string{"read", "grep", "glob", "ls", "diagnostics", "lsp"},
			ModelAlias:   provider.AliasReview,
		},
		TypePlanner: {
			SystemPrompt: "You are a planning subagent. Break the request into an ordered todo list; do not execute the plan.",
			AllowedTools: []string{"read", "grep", "glob", "ls", "todo"},
			ModelAlias:   provider.AliasOracle,
		},
		TypeOracle: {
			SystemPrompt: "You are an architecture oracle. Answer design questions with reference to the actual code, citing file:line.",
			AllowedTools: []string{"read", "grep", "glob", "ls", "codesearch"},
			ModelAlias:   provider.AliasOracle,
		},
		TypeFinder: {
			SystemPrompt: "You are a finder subagent. Locate the files and symbols relevant to the query and report their paths, nothing else.",
			AllowedTools: []string{"grep", "glob", "ls", "codesearch"},
			ModelAlias:   provider.AliasFinder,
		},
		TypeLibrarian: {
			SystemPrompt: "You are a librarian subagent. Answer questions about library/framework usage by reading the code and, when needed, fetching documentation.",
			AllowedTools: []string{"read", "grep", "glob", "ls", "webfetch", "websearch"},
			ModelAlias:   provider.AliasHandoff,
		},
	}
}

// Spec is one task/parallel_tasks request.
type Spec struct {
	ID           string
	SubagentType Type
	Prompt       string
	Description  string
}

// Result is one subagent's outcome.
type Result struct {
	ID        string
	Type      Type
	Text      string
	Err       error
	Cancelled bool
	Duration  time.Duration
}

// Runner executes subagent runs against a shared provider registry and
// the main agent's tool registry, from which it derives each config's
// filtered subset.
type Runner struct {
	Providers *provider.Registry
	Master    *tool.Registry
	Configs   map[Type]Config
}

// NewRunner builds a Runner with the default seven configs.
func NewRunner(providers *provider.Registry, master *tool.Registry) *Runner {
	return &Runner{Providers: providers, Master: master, Configs: DefaultConfigs()}
}

// Run executes one subagent to completion and returns its final text.
func (r *Runner) Run(ctx context.Context, toolCtx tool.Context, spec Spec) Result {
	start := time.Now()

	subagentType := spec.SubagentType
	if subagentType == TypeAuto {
		subagentType = r.classify(ctx, spec.Prompt)
	}

	cfg, ok := r.Configs[subagentType]
	if !ok {
		return Result{ID: spec.ID, Type: subagentType, Err: fmt.Errorf("unknown subagent type %q", spec.SubagentType), Duration: time.Since(start)}
	}

	prov, model, err := r.Providers.Resolve(string(cfg.ModelAlias))
	if err != nil {
		return Result{ID: spec.ID, Type: subagentType, Err: err, Duration: time.Since(start)}
	}

	reg := r.filteredRegistry(cfg.AllowedTools)
	messages := []message.Message{{Role: message.RoleUser, Content: spec.Prompt, Timestamp: time.Now()}}

	var text strings.Builder
	for chunk := range orchestrator.Execute(ctx, prov, reg, toolCtx, messages, orchestrator.Options{
		SystemPrompt: cfg.SystemPrompt,
		Tools:        schemasToDefinitions(reg.Schemas()),
		Model:        model,
	}) {
		switch chunk.Kind {
		case message.ChunkText:
			text.WriteString(chunk.Text)
		case message.ChunkError:
			return Result{ID: spec.ID, Type: subagentType, Err: chunk.Err, Duration: time.Since(start)}
		}
	}

	return Result{ID: spec.ID, Type: subagentType, Text: text.String(), Duration: time.Since(start)}
}

// RunParallel runs up to MaxParallelTasks specs concurrently under a
// weighted semaphore. Specs beyond the cap are dropped; the caller is
// told via truncated so it can record that in its tool-result. When
// failFast is true, the first failing task sets a shared flag and every
// task that has not yet started short-circuits to a Cancelled result;
// tasks already running are left to complete or time out on their own.
func (r *Runner) RunParallel(ctx context.Context, toolCtx tool.Context, specs []Spec, failFast bool) (results []Result, truncated bool) {
	if len(specs) > MaxParallelTasks {
		specs = specs[:MaxParallelTasks]
		truncated = true
	}

	sem := semaphore.NewWeighted(MaxParallelTasks)
	var cancelled atomic.Bool

	results = make([]Result, len(specs))
	var wg sync.WaitGroup
	for i, spec := range specs {
		i, spec := i, spec
		wg.Add(1)
		go func() {
			defer wg.Done()

			if cancelled.Load() {
				results[i] = Result{ID: spec.ID, Type: spec.SubagentType, Cancelled: true}
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = Result{ID: spec.ID, Type: spec.SubagentType, Cancelled: true}
				return
			}
			defer sem.Release(1)

			if cancelled.Load() {
				results[i] = Result{ID: spec.ID, Type: spec.SubagentType, Cancelled: true}
				return
			}

			res := r.Run(ctx, toolCtx, spec)
			if res.Err != nil && failFast {
				cancelled.Store(true)
			}
			results[i] = res
		}()
	}
	wg.Wait()

	return results, truncated
}

func (r *Runner) filteredRegistry(allowed []string) *tool.Registry {
	if len(allowed) == 0 {
		return r.Master
	}
	sub := tool.NewRegistry()
	for _, name := range allowed {
		if t, ok := r.Master.Get(name); ok {
			_ = sub.RegisterTool(t, "subagent", false)
		}
	}
	return sub
}

func schemasToDefinitions(schemas []tool.Schema) []provider.ToolDefinition {
	defs := make([]provider.ToolDefinition, len(schemas))
	for i, s := range schemas {
		defs[i] = provider.ToolDefinition{Name: s.Name, Description: s.Description, Parameters: s.Parameters}
	}
	return defs
}

// classify asks the router alias to pick a concrete subagent type for an
// "auto" task. Any failure (unconfigured router, transport error,
// unrecognized answer) defaults to coder, the most common shape of an
// ambiguously-typed task.
func (r *Runner) classify(ctx context.Context, prompt string) Type {
	prov, model, err := r.Providers.Resolve(string(provider.AliasRouter))
	if err != nil {
		return TypeCoder
	}

	messages := []message.Message{{
		Role:      message.RoleUser,
		Content:   "Classify the following task into exactly one word from: coder, researcher, reviewer, planner, oracle, finder, librarian.\n\nTask: " + prompt,
		Timestamp: time.Now(),
	}}
	stream, err := prov.Stream(ctx, "You are a task router. Respond with exactly one word and nothing else.", messages, nil, model)
	if err != nil {
		return TypeCoder
	}

	var text strings.Builder
	for chunk := range stream {
		if chunk.Kind == message.ChunkText {
			text.WriteString(chunk.Text)
		}
	}

	candidate := Type(strings.ToLower(strings.TrimSpace(text.String())))
	if _, ok := r.Configs[candidate]; ok {
		return candidate
	}
	return TypeCoder
}
