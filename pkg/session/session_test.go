package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/message"
)

func TestGetMessagesFiltersToolAndToolCallsOnly(t *testing.T) {
	sess := New("/tmp/work")
	sess.AddMessage(message.Message{Role: message.RoleUser, Content: "read foo.txt"})
	sess.AddMessage(message.Message{
		Role: message.RoleAssistant,
		ToolCalls: []message.ToolCall{
			{ID: "tc1", Name: "read", Arguments: map[string]any{"path": "foo.txt"}},
		},
	})
	sess.AddMessage(message.Message{Role: message.RoleTool, ToolCallID: "tc1", Content: "contents of foo.txt"})
	sess.AddMessage(message.Message{Role: message.RoleAssistant, Content: "foo.txt contains: contents of foo.txt"})

	visible := sess.GetMessages()
	require.Len(t, visible, 2)
	assert.Equal(t, message.RoleUser, visible[0].Role)
	assert.Equal(t, message.RoleAssistant, visible[1].Role)
	assert.Equal(t, "foo.txt contains: contents of foo.txt", visible[1].Content)
}

func TestGetMessagesEquivalentToDeletionRule(t *testing.T) {
	sess := New("/tmp/work")
	sess.Messages = []message.Message{
		{Role: message.RoleUser, Content: "hi"},
		{Role: message.RoleAssistant, ToolCalls: []message.ToolCall{{ID: "1", Name: "x"}}},
		{Role: message.RoleTool, ToolCallID: "1", Content: "result"},
		{Role: message.RoleAssistant, Content: "done"},
	}

	var expected []message.Message
	for _, m := range sess.Messages {
		if m.Role == message.RoleTool {
			continue
		}
		if m.Role == message.RoleAssistant && m.IsToolCallsOnly() {
			continue
		}
		expected = append(expected, m)
	}

	assert.Equal(t, expected, sess.GetMessages())
}

func TestSetTitleIfDefaultIsIdempotent(t *testing.T) {
	sess := New("/tmp/work")
	assert.True(t, sess.SetTitleIfDefault("Fix the bug"))
	assert.Equal(t, "Fix the bug", sess.Title)
	assert.False(t, sess.SetTitleIfDefault("Something else"))
	assert.Equal(t, "Fix the bug", sess.Title)
}

func TestHeuristicTitleProviderTruncates(t *testing.T) {
	p := HeuristicTitleProvider{}
	long := "this is a very long first message that certainly exceeds sixty characters in length"
	title, err := p.Title(context.Background(), long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(title), 63)
}

type erroringTitleProvider struct{}

func (erroringTitleProvider) Title(context.Context, string) (string, error) {
	return "", assertErr
}

var assertErr = assertErrType{}

type assertErrType struct{}

func (assertErrType) Error() string { return "boom" }

func TestWithFallbackDegradesOnError(t *testing.T) {
	p := WithFallback(erroringTitleProvider{}, HeuristicTitleProvider{})
	title, err := p.Title(context.Background(), "short msg")
	require.NoError(t, err)
	assert.Equal(t, "short msg", title)
}
