package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/driftwood-dev/codeagent/pkg/registry"
)

// Entry is a registered tool plus where it came from.
type Entry struct {
	Tool     Tool
	Source   string
	Internal bool // internal tools are callable but hidden from LLM schema listings
}

// Registry holds tools keyed by name, uniquely across every source.
type Registry struct {
	base *registry.BaseRegistry[Entry]

	mu      sync.Mutex
	sources map[string]Source
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		base:    registry.NewBaseRegistry[Entry](),
		sources: make(map[string]Source),
	}
}

// RegisterTool registers a single tool directly (used for local/builtin
// tools that don't come from a discoverable Source).
func (r *Registry) RegisterTool(t Tool, sourceName string, internal bool) error {
	return r.base.Register(t.Name(), Entry{Tool: t, Source: sourceName, Internal: internal})
}

// RegisterSource discovers and registers every tool a Source exposes,
// namespacing collisions are the caller's responsibility (MCP sources
// pre-namespace as mcp_<server>_<tool> before calling this).
func (r *Registry) RegisterSource(ctx context.Context, src Source) error {
	r.mu.Lock()
	r.sources[src.Name()] = src
	r.mu.Unlock()

	if err := src.Discover(ctx); err != nil {
		return fmt.Errorf("discover tools from source %q: %w", src.Name(), err)
	}

	for _, schema := range src.List() {
		t, ok := src.Get(schema.Name)
		if !ok {
			continue
		}
		if err := r.RegisterTool(t, src.Name(), false); err != nil {
			slog.Warn("tool name conflict, skipping", "tool", schema.Name, "source", src.Name())
		}
	}
	return nil
}

// RemoveSource unregisters every tool that came from the named source
// (used when an MCP client dies: pkg/mcp tears it down and calls this so
// the dead tools vanish instead of returning stale errors forever).
func (r *Registry) RemoveSource(name string) {
	for _, n := range r.base.Names() {
		entry, ok := r.base.Get(n)
		if ok && entry.Source == name {
			_ = r.base.Remove(n)
		}
	}
	r.mu.Lock()
	delete(r.sources, name)
	r.mu.Unlock()
}

// Get returns a single tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	entry, ok := r.base.Get(name)
	if !ok {
		return nil, false
	}
	return entry.Tool, true
}

// Schemas lists every non-internal tool's Schema, sorted by name, for
// exposure to the LLM.
func (r *Registry) Schemas() []Schema {
	var out []Schema
	for _, name := range r.base.Names() {
		entry, _ := r.base.Get(name)
		if entry.Internal {
			continue
		}
		out = append(out, Schema{
			Name:        entry.Tool.Name(),
			Description: entry.Tool.Description(),
			Parameters:  entry.Tool.Schema(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute runs a single tool call, converting "tool not found" and
// execution errors into the canonical "Error: ..." prose rather than
// propagating a Go error past this boundary — per the taxonomy in §7 of
// the specification, user-input and most execution errors are reported
// as tool-result text, not raised.
func (r *Registry) Execute(ctx Context, name string, args map[string]any) Result {
	t, ok := r.Get(name)
	if !ok {
		return Result{Success: false, Error: fmt.Sprintf("Error: unknown tool %q", name)}
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("Error: %v", err)}
	}
	return result
}

// Call is one (id, name, args) tool invocation request, as emitted by the
// orchestrator from a turn's accumulated tool calls.
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// CallOutcome pairs a Call with its Result, preserving the id for
// re-threading into the conversation.
type CallOutcome struct {
	ID     string
	Name   string
	Result Result
}

// ExecuteParallel runs a batch of tool calls concurrently, preserving
// input order in the returned slice regardless of completion order (the
// orchestrator replays tool messages in call order, not completion
// order). Calls that share a path-shaped argument are serialized against
// each other — the resolution adopted for the Open Question on concurrent
// writes to the same file within one batch.
func (r *Registry) ExecuteParallel(ctx Context, calls []Call) []CallOutcome {
	outcomes := make([]CallOutcome, len(calls))

	groups := groupByPath(calls)

	g, gctx := errgroup.WithContext(ctx.Ctx)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			for _, idx := range group {
				c := calls[idx]
				callCtx := ctx
				callCtx.Ctx = gctx
				outcomes[idx] = CallOutcome{
					ID:     c.ID,
					Name:   c.Name,
					Result: r.Execute(callCtx, c.Name, c.Args),
				}
			}
			return nil
		})
	}
	_ = g.Wait() // tool failures are captured per-call in Result, never aborts the batch

	return outcomes
}

// groupByPath buckets call indices so calls touching the same file path
// run sequentially (in original order) while calls touching distinct (or
// no) paths run in independent goroutines.
func groupByPath(calls []Call) [][]int {
	byPath := make(map[string][]int)
	var noPath []int

	for i, c := range calls {
		if p, ok := extractPathArg(c.Args); ok {
			byPath[p] = append(byPath[p], i)
		} else {
			noPath = append(noPath, i)
		}
	}

	groups := make([][]int, 0, len(byPath)+len(noPath))
	for _, idxs := range byPath {
		groups = append(groups, idxs)
	}
	for _, i := range noPath {
		groups = append(groups, []int{i})
	}
	return groups
}

func extractPathArg(args map[string]any) (string, bool) {
	for _, key := range []string{"path", "file_path", "file"} {
		if v, ok := args[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}
