package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// scriptedProvider replays a fixed sequence of turns, one per Stream call.
type scriptedProvider struct {
	turns [][]message.StreamChunk
	calls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Stream(ctx context.Context, system string, messages []message.Message, tools []provider.ToolDefinition, model string) (<-chan message.StreamChunk, error) {
	turn := p.turns[p.calls]
	p.calls++
	ch := make(chan message.StreamChunk, len(turn))
	for _, c := range turn {
		ch <- c
	}
	close(ch)
	return ch, nil
}

type echoTool struct{}

func (echoTool) Name() string               { return "echo" }
func (echoTool) Description() string        { return "echoes args" }
func (echoTool) Schema() map[string]any     { return map[string]any{"type": "object"} }
func (echoTool) Execute(ctx tool.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Success: true, Content: "echoed"}, nil
}

func newRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterTool(echoTool{}, "test", false))
	return reg
}

func TestExecuteStopsWhenNoToolCallsEmitted(t *testing.T) {
	prov := &scriptedProvider{turns: [][]message.StreamChunk{
		{message.Text("hello")},
	}}
	reg := newRegistry(t)

	var appended []message.Message
	opts := Options{OnAppend: func(m message.Message) { appended = append(appended, m) }}

	var texts []string
	for chunk := range Execute(context.Background(), prov, reg, tool.Context{Ctx: context.Background()}, nil, opts) {
		if chunk.Kind == message.ChunkText {
			texts = append(texts, chunk.Text)
		}
	}

	assert.Equal(t, []string{"hello"}, texts)
	assert.Empty(t, appended, "no tool calls means no assistant/tool messages are appended")
}

func TestExecuteRunsToolCallsAndFeedsBackResults(t *testing.T) {
	prov := &scriptedProvider{turns: [][]message.StreamChunk{
		{
			message.Text("calling echo"),
			message.ToolCallChunk(message.ToolCall{ID: "1", Name: "echo", Arguments: map[string]any{}}),
		},
		{message.Text("done")},
	}}
	reg := newRegistry(t)

	var appended []message.Message
	opts := Options{OnAppend: func(m message.Message) { appended = append(appended, m) }}

	var results []string
	for chunk := range Execute(context.Background(), prov, reg, tool.Context{Ctx: context.Background()}, nil, opts) {
		if chunk.Kind == message.ChunkToolResult {
			results = append(results, chunk.ToolResultContent)
		}
	}

	require.Equal(t, []string{"echoed"}, results)
	require.Len(t, appended, 2)
	assert.Equal(t, message.RoleAssistant, appended[0].Role)
	assert.Equal(t, message.RoleTool, appended[1].Role)
	assert.Equal(t, "1", appended[1].ToolCallID)
}

func TestExecuteStopsAtIterationCap(t *testing.T) {
	call := message.ToolCallChunk(message.ToolCall{ID: "1", Name: "echo", Arguments: map[string]any{}})
	prov := &scriptedProvider{turns: [][]message.StreamChunk{
		{call}, {call}, {call},
	}}
	reg := newRegistry(t)

	var texts []string
	for chunk := range Execute(context.Background(), prov, reg, tool.Context{Ctx: context.Background()}, nil, Options{MaxIterations: 1}) {
		if chunk.Kind == message.ChunkText {
			texts = append(texts, chunk.Text)
		}
	}

	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "iteration cap")
}

func TestExecuteUnlimitedIterationsRunsUntilNaturalStop(t *testing.T) {
	call := message.ToolCallChunk(message.ToolCall{ID: "1", Name: "echo", Arguments: map[string]any{}})
	prov := &scriptedProvider{turns: [][]message.StreamChunk{
		{call}, {call}, {message.Text("final")},
	}}
	reg := newRegistry(t)

	var texts []string
	for chunk := range Execute(context.Background(), prov, reg, tool.Context{Ctx: context.Background()}, nil, Options{MaxIterations: 0}) {
		if chunk.Kind == message.ChunkText {
			texts = append(texts, chunk.Text)
		}
	}

	assert.Equal(t, []string{"final"}, texts)
	assert.Equal(t, 3, prov.calls)
}
