package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
)

func TestSplit(t *testing.T) {
	p, m, err := Split("anthropic/claude-opus-4-6")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p)
	assert.Equal(t, "claude-opus-4-6", m)

	_, _, err = Split("bad-identifier")
	assert.Error(t, err)
}

func TestAliasTableResolve(t *testing.T) {
	table := DefaultAliasTable()
	assert.Equal(t, "anthropic/claude-opus-4-6", table.Resolve(string(AliasSmart)))
	// A fully-qualified identifier passes through unchanged.
	assert.Equal(t, "anthropic/claude-haiku-4-5", table.Resolve("anthropic/claude-haiku-4-5"))
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry(AliasTable{AliasSmart: "anthropic/claude-opus-4-6"})
	reg.Register(NewAnthropic(AnthropicConfig{APIKey: "test"}))

	p, model, err := reg.Resolve(string(AliasSmart))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
	assert.Equal(t, "claude-opus-4-6", model)

	_, _, err = reg.Resolve("unknown-provider/some-model")
	assert.Error(t, err)
}

func TestToAnthropicMessagesSkipsSystemAndConvertsToolResult(t *testing.T) {
	msgs := []message.Message{
		{Role: message.RoleSystem, Content: "ignored"},
		{Role: message.RoleUser, Content: "hi"},
		{Role: message.RoleAssistant, Content: "", ToolCalls: []message.ToolCall{
			{ID: "tc1", Name: "read", Arguments: map[string]any{"path": "a.go"}},
		}},
		{Role: message.RoleTool, ToolCallID: "tc1", Content: "file contents"},
	}
	out := toAnthropicMessages(msgs)
	require.Len(t, out, 3)
	assert.Equal(t, "user", out[0].Role)
	assert.Equal(t, "assistant", out[1].Role)
	assert.Equal(t, "user", out[2].Role) // tool_result rides in a user message
}

func TestToOpenAIMessagesPrependsSystem(t *testing.T) {
	out := toOpenAIMessages("be helpful", []message.Message{{Role: message.RoleUser, Content: "hi"}})
	require.Len(t, out, 2)
	assert.Equal(t, "system", out[0].Role)
	assert.Equal(t, "be helpful", out[0].Content)
}
