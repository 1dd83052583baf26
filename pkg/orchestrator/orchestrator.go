// Package orchestrator implements the ReAct (reason + act) loop: stream
// text and tool-call requests from a provider, dispatch the tool calls
// through a registry, feed results back as the next turn's context, and
// repeat until the provider stops emitting tool calls or the iteration
// cap is hit. The orchestrator never persists anything — it works on a
// local copy of the message list and reports every appended message to
// the caller via Options.OnAppend so the agent facade can decide how
// (and whether) to save it.
package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// Options configures one Execute call.
type Options struct {
	SystemPrompt string
	Tools        []provider.ToolDefinition

	// Model is the bare model name the caller resolved prov against (the
	// second return of Registry.Resolve). Passed through to every
	// prov.Stream call so task-typed aliases actually route to distinct
	// models instead of whatever prov happens to be configured with.
	Model string

	// MaxIterations bounds the number of reason/act rounds. 0 means
	// unlimited — the loop only stops on natural termination.
	MaxIterations int

	// OnAppend is called, in order, for every message the loop adds to
	// its local transcript (assistant turns and tool results). The
	// orchestrator itself never writes to a session.
	OnAppend func(message.Message)
}

// Execute runs the loop starting from messages (which the caller has
// already appended the new user turn to) and returns a channel of
// StreamChunks. The channel is closed when the loop terminates for any
// reason; per §7's propagation rule, Execute itself never returns a Go
// error — failures are rendered into ChunkError chunks.
func Execute(ctx context.Context, prov provider.Provider, reg *tool.Registry, toolCtx tool.Context, messages []message.Message, opts Options) <-chan message.StreamChunk {
	out := make(chan message.StreamChunk)

	go func() {
		defer close(out)
		local := append([]message.Message(nil), messages...)

		for iteration := 1; ; iteration++ {
			if opts.MaxIterations > 0 && iteration > opts.MaxIterations {
				out <- message.Text("\n[stopped: iteration cap reached]")
				return
			}

			text, calls, err := runTurn(ctx, prov, opts, local, out)
			if err != nil {
				out <- message.ErrorChunk(err)
				return
			}
			if len(calls) == 0 {
				return
			}

			assistantMsg := message.Message{
				Role:      message.RoleAssistant,
				Content:   text,
				ToolCalls: calls,
				Timestamp: time.Now(),
			}
			local = append(local, assistantMsg)
			if opts.OnAppend != nil {
				opts.OnAppend(assistantMsg)
			}

			toolCalls := make([]tool.Call, len(calls))
			for i, c := range calls {
				toolCalls[i] = tool.Call{ID: c.ID, Name: c.Name, Args: c.Arguments}
			}

			callCtx := toolCtx
			callCtx.Ctx = ctx
			outcomes := reg.ExecuteParallel(callCtx, toolCalls)

			for _, o := range outcomes {
				content := o.Result.Content
				if !o.Result.Success {
					content = o.Result.Error
				}
				toolMsg := message.Message{
					Role:       message.RoleTool,
					Content:    content,
					ToolCallID: o.ID,
					Timestamp:  time.Now(),
				}
				local = append(local, toolMsg)
				if opts.OnAppend != nil {
					opts.OnAppend(toolMsg)
				}
				out <- message.ToolResult(o.ID, o.Name, content)
			}
		}
	}()

	return out
}

// runTurn streams one provider turn, forwarding text chunks (and
// tool-call deltas, for UI rendering) as they arrive, and accumulates
// the concatenated text plus the finalized tool calls for this turn.
func runTurn(ctx context.Context, prov provider.Provider, opts Options, local []message.Message, out chan<- message.StreamChunk) (string, []message.ToolCall, error) {
	stream, err := prov.Stream(ctx, opts.SystemPrompt, local, opts.Tools, opts.Model)
	if err != nil {
		return "", nil, err
	}

	var text strings.Builder
	var calls []message.ToolCall

	for chunk := range stream {
		switch chunk.Kind {
		case message.ChunkText:
			text.WriteString(chunk.Text)
			out <- chunk
		case message.ChunkToolCallDelta:
			out <- chunk
		case message.ChunkToolCall:
			if chunk.ToolCall != nil {
				calls = append(calls, *chunk.ToolCall)
			}
		case message.ChunkError:
			return text.String(), nil, chunk.Err
		}
	}

	return text.String(), calls, nil
}
