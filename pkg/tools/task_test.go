package tools

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
	"github.com/driftwood-dev/codeagent/pkg/subagent"
	"github.com/driftwood-dev/codeagent/pkg/tool"
)

// stubProvider answers every Stream call with a fixed chunk of text,
// enough to drive the orchestrator loop to completion without a real
// model behind it.
type stubProvider struct {
	name string
	text string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Stream(ctx context.Context, system string, messages []message.Message, tools []provider.ToolDefinition, model string) (<-chan message.StreamChunk, error) {
	ch := make(chan message.StreamChunk, 1)
	ch <- message.Text(p.text)
	close(ch)
	return ch, nil
}

func newTestRunner(t *testing.T, text string) *subagent.Runner {
	t.Helper()
	providers := provider.NewRegistry(provider.DefaultAliasTable())
	providers.Register(&stubProvider{name: "anthropic", text: text})
	providers.Register(&stubProvider{name: "openai-router", text: text})

	master := tool.NewRegistry()
	require.NoError(t, master.RegisterTool(ReadTool{}, "builtin", false))
	require.NoError(t, master.RegisterTool(GrepTool{}, "builtin", false))

	return subagent.NewRunner(providers, master)
}

func TestTaskToolReturnsSubagentText(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Extra[ExtraSubagents] = newTestRunner(t, "done reviewing")

	res, err := (TaskTool{}).Execute(ctx, map[string]any{
		"prompt":        "review the diff",
		"subagent_type": "reviewer",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "done reviewing", res.Content)
}

func TestTaskToolRequiresSubagentRunner(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (TaskTool{}).Execute(ctx, map[string]any{"prompt": "do something"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "subagent runner is not configured")
}

func TestParallelTasksPreservesInputOrder(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Extra[ExtraSubagents] = newTestRunner(t, "ack")

	types := []string{"coder", "researcher", "reviewer", "planner", "oracle"}
	tasks := make([]any, len(types))
	for i, typ := range types {
		tasks[i] = map[string]any{
			"prompt":        fmt.Sprintf("task %d", i),
			"subagent_type": typ,
			"description":   fmt.Sprintf("task-%d", i),
		}
	}

	res, err := (ParallelTasksTool{}).Execute(ctx, map[string]any{"tasks": tasks})
	require.NoError(t, err)
	require.True(t, res.Success)

	// every task used the same stub text, so the subagent type in each
	// rendered header is what tells the results apart: five "ack"
	// entries, with the headers in the order the tasks were given.
	assert.Equal(t, 5, countOccurrences(res.Content, "ack"))
	last := -1
	for _, typ := range types {
		idx := strings.Index(res.Content, "("+typ+",")
		require.Greater(t, idx, last, "result for %s is out of order", typ)
		last = idx
	}
}

func countOccurrences(s, sub string) int {
	count := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			count++
		}
	}
	return count
}
