package subagent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

type stubProvider struct {
	name string
	text string
	err  error
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Stream(ctx context.Context, system string, messages []message.Message, tools []provider.ToolDefinition, model string) (<-chan message.StreamChunk, error) {
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan message.StreamChunk, 1)
	ch <- message.Text(p.text)
	close(ch)
	return ch, nil
}

func newProviders(t *testing.T, text string) *provider.Registry {
	t.Helper()
	reg := provider.NewRegistry(provider.DefaultAliasTable())
	reg.Register(&stubProvider{name: "anthropic", text: text})
	reg.Register(&stubProvider{name: "openai-router", text: text})
	return reg
}

func newMasterRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.RegisterTool(fakeTool{"read"}, "test", false))
	require.NoError(t, reg.RegisterTool(fakeTool{"grep"}, "test", false))
	return reg
}

type fakeTool struct{ name string }

func (f fakeTool) Name() string           { return f.name }
func (f fakeTool) Description() string    { return "fake" }
func (f fakeTool) Schema() map[string]any { return map[string]any{"type": "object"} }
func (f fakeTool) Execute(ctx tool.Context, args map[string]any) (tool.Result, error) {
	return tool.Result{Success: true, Content: "ok"}, nil
}

func TestRunReturnsFinalText(t *testing.T) {
	runner := NewRunner(newProviders(t, "finished"), newMasterRegistry(t))
	result := runner.Run(context.Background(), tool.Context{Ctx: context.Background()}, Spec{ID: "1", SubagentType: TypeCoder, Prompt: "do it"})
	require.NoError(t, result.Err)
	assert.Equal(t, "finished", result.Text)
}

func TestRunUnknownTypeErrors(t *testing.T) {
	runner := NewRunner(newProviders(t, "x"), newMasterRegistry(t))
	result := runner.Run(context.Background(), tool.Context{Ctx: context.Background()}, Spec{ID: "1", SubagentType: Type("nonsense"), Prompt: "do it"})
	assert.Error(t, result.Err)
}

func TestClassifyDefaultsToCoderOnUnrecognizedAnswer(t *testing.T) {
	runner := NewRunner(newProviders(t, "banana"), newMasterRegistry(t))
	assert.Equal(t, TypeCoder, runner.classify(context.Background(), "anything"))
}

func TestRunParallelTruncatesAtCap(t *testing.T) {
	runner := NewRunner(newProviders(t, "done"), newMasterRegistry(t))
	specs := make([]Spec, 11)
	for i := range specs {
		specs[i] = Spec{ID: fmt.Sprintf("%d", i), SubagentType: TypeCoder, Prompt: "p"}
	}
	results, truncated := runner.RunParallel(context.Background(), tool.Context{Ctx: context.Background()}, specs, false)
	assert.True(t, truncated)
	assert.Len(t, results, MaxParallelTasks)
}

func TestRunParallelFailFastCancelsUnstartedTasks(t *testing.T) {
	providers := provider.NewRegistry(provider.DefaultAliasTable())
	providers.Register(&stubProvider{name: "anthropic", err: fmt.Errorf("boom")})
	providers.Register(&stubProvider{name: "openai-router", text: "x"})
	runner := NewRunner(providers, newMasterRegistry(t))

	specs := []Spec{
		{ID: "1", SubagentType: TypeCoder, Prompt: "p"},
		{ID: "2", SubagentType: TypeCoder, Prompt: "p"},
	}
	results, truncated := runner.RunParallel(context.Background(), tool.Context{Ctx: context.Background()}, specs, true)
	assert.False(t, truncated)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Err != nil || r.Cancelled)
	}
}
