package contextwindow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
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

func bigMessages(n int, role message.Role, size int) []message.Message {
	out := make([]message.Message, n)
	for i := range out {
		out[i] = message.Message{Role: role, Content: strings.Repeat("x", size), Timestamp: time.Now()}
	}
	return out
}

func TestEstimateTokensIsMonotonicAndZeroForEmpty(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Less(t, EstimateTokens("short"), EstimateTokens(strings.Repeat("much longer text ", 20)))
}

func TestNeedsCompactionRespectsThreshold(t *testing.T) {
	mgr := NewManager(nil, 1000)
	small := []message.Message{{Role: message.RoleUser, Content: "hi"}}
	assert.False(t, mgr.NeedsCompaction(small))

	large := bigMessages(50, message.RoleUser, 200)
	assert.True(t, mgr.NeedsCompaction(large))
}

func TestCompactPreservesSystemMessagesAndTail(t *testing.T) {
	providers := provider.NewRegistry(provider.DefaultAliasTable())
	providers.Register(&stubProvider{name: "openai-router", text: "summary of earlier turns"})
	providers.Register(&stubProvider{name: "anthropic", text: "unused"})

	mgr := NewManager(providers, 2000)

	messages := []message.Message{{Role: message.RoleSystem, Content: "You are a helpful assistant.", Timestamp: time.Now()}}
	messages = append(messages, bigMessages(199, message.RoleUser, 100)...)

	result := mgr.Compact(context.Background(), messages)

	require.GreaterOrEqual(t, len(result), KeepTail+2)

	// all original system messages survive, first in the result.
	assert.Equal(t, message.RoleSystem, result[0].Role)
	assert.Equal(t, "You are a helpful assistant.", result[0].Content)

	// exactly one summary message immediately after the system block.
	summaryMsg := result[1]
	assert.Equal(t, message.RoleSystem, summaryMsg.Role)
	assert.Equal(t, true, summaryMsg.Attrs["_context_summary"])
	assert.Equal(t, "summary of earlier turns", summaryMsg.Content)

	// the last KeepTail entries are byte-identical to the input's last KeepTail.
	wantTail := messages[len(messages)-KeepTail:]
	gotTail := result[len(result)-KeepTail:]
	require.Equal(t, len(wantTail), len(gotTail))
	for i := range wantTail {
		assert.Equal(t, wantTail[i].Content, gotTail[i].Content)
		assert.Equal(t, wantTail[i].Role, gotTail[i].Role)
	}
}

func TestCompactFallsBackToHeuristicSummaryOnProviderFailure(t *testing.T) {
	providers := provider.NewRegistry(provider.DefaultAliasTable())
	providers.Register(&stubProvider{name: "openai-router", err: assertErr{"boom"}})
	providers.Register(&stubProvider{name: "anthropic", text: "unused"})

	mgr := NewManager(providers, 2000)
	messages := bigMessages(200, message.RoleUser, 100)

	result := mgr.Compact(context.Background(), messages)
	require.NotEmpty(t, result)
	assert.Contains(t, result[0].Content, "summarizer failed")
	assert.Equal(t, true, result[0].Attrs["_context_summary"])
}

func TestCompactLeavesShortConversationsUntouched(t *testing.T) {
	mgr := NewManager(nil, 1_000_000)
	messages := []message.Message{
		{Role: message.RoleSystem, Content: "sys"},
		{Role: message.RoleUser, Content: "hi"},
	}
	result := mgr.Compact(context.Background(), messages)
	assert.Equal(t, messages, result)
}

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }
