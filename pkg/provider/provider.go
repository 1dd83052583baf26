// Package provider adapts vendor-specific streaming chat APIs to the
// neutral message/tool protocol the orchestrator speaks. Each adapter
// translates §3's Message list into its vendor's wire format and
// reassembles vendor stream events into the message.StreamChunk union.
package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/driftwood-dev/codeagent/pkg/message"
)

// ToolDefinition is the JSON-Schema tool description passed to Stream.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Provider is the contract every vendor adapter implements. Implementations
// must never mutate the messages slice passed in.
type Provider interface {
	// Name identifies the provider for alias resolution and logging.
	Name() string

	// Stream sends system+messages+tools to the vendor and returns a
	// channel of StreamChunk. model is the bare model name Resolve split
	// out of the "<provider>/<model>" identifier (or alias) the caller
	// resolved; an empty model falls back to the adapter's configured
	// default. The channel is closed when the vendor's response completes
	// or ctx is cancelled. Transport, auth, and partial tool-call JSON
	// parse errors are reported as ChunkError, never as a returned error
	// from Stream itself once the channel exists — an error returned here
	// means the request could not even be sent.
	Stream(ctx context.Context, system string, messages []message.Message, tools []ToolDefinition, model string) (<-chan message.StreamChunk, error)
}

// Alias maps short task-typed names to full "<provider>/<model>" identifiers.
// Subagents and the context manager's summarizer route through these
// instead of hardcoding a vendor.
type Alias string

const (
	AliasSmart   Alias = "smart"
	AliasRush    Alias = "rush"
	AliasOracle  Alias = "oracle"
	AliasFinder  Alias = "finder"
	AliasReview  Alias = "review"
	AliasDiagram Alias = "diagram"
	AliasHandoff Alias = "handoff"
	AliasTopics  Alias = "topics"
	AliasRouter  Alias = "router"
)

// AliasTable resolves aliases to "<provider>/<model>" identifiers. Callers
// load it from configuration; DefaultAliasTable gives a reasonable
// zero-config starting point.
type AliasTable map[Alias]string

// DefaultAliasTable returns hector-style sensible zero-config defaults.
func DefaultAliasTable() AliasTable {
	return AliasTable{
		AliasSmart:   "anthropic/claude-opus-4-6",
		AliasRush:    "anthropic/claude-haiku-4-5",
		AliasOracle:  "anthropic/claude-opus-4-6",
		AliasFinder:  "anthropic/claude-haiku-4-5",
		AliasReview:  "anthropic/claude-sonnet-4-6",
		AliasDiagram: "anthropic/claude-sonnet-4-6",
		AliasHandoff: "anthropic/claude-haiku-4-5",
		AliasTopics:  "openai-router/gpt-5-mini",
		AliasRouter:  "openai-router/gpt-5-mini",
	}
}

// Resolve returns the "<provider>/<model>" identifier for a model string
// that may itself already be a fully-qualified identifier, or an alias.
func (t AliasTable) Resolve(model string) string {
	if resolved, ok := t[Alias(model)]; ok {
		return resolved
	}
	return model
}

// Split parses "<provider>/<model>" into its two parts.
func Split(identifier string) (providerName, model string, err error) {
	parts := strings.SplitN(identifier, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid model identifier %q: want <provider>/<model>", identifier)
	}
	return parts[0], parts[1], nil
}

// Registry holds configured Provider instances keyed by provider name
// (the part before the "/" in a model identifier).
type Registry struct {
	providers map[string]Provider
	aliases   AliasTable
}

// NewRegistry creates a Registry with the given alias table.
func NewRegistry(aliases AliasTable) *Registry {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	return &Registry{providers: make(map[string]Provider), aliases: aliases}
}

// Register adds a configured provider under its Name().
func (r *Registry) Register(p Provider) { r.providers[p.Name()] = p }

// Resolve looks up the Provider and bare model name for a model
// identifier or alias.
func (r *Registry) Resolve(modelOrAlias string) (Provider, string, error) {
	identifier := r.aliases.Resolve(modelOrAlias)
	providerName, model, err := Split(identifier)
	if err != nil {
		return nil, "", err
	}
	p, ok := r.providers[providerName]
	if !ok {
		return nil, "", fmt.Errorf("provider %q not configured (resolving %q)", providerName, modelOrAlias)
	}
	return p, model, nil
}
