package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoAddListDoneLifecycle(t *testing.T) {
	ctx, _ := newTestContext(t)

	addRes, err := (TodoTool{}).Execute(ctx, map[string]any{"action": "add", "text": "write tests"})
	require.NoError(t, err)
	require.True(t, addRes.Success)
	assert.Contains(t, addRes.Content, "write tests")

	sess := sessionFrom(ctx)
	require.Len(t, sess.Todos(), 1)
	id := sess.Todos()[0].ID

	doneRes, err := (TodoTool{}).Execute(ctx, map[string]any{"action": "done", "id": id})
	require.NoError(t, err)
	require.True(t, doneRes.Success)
	assert.Equal(t, "done", sess.Todos()[0].Status)

	clearRes, err := (TodoTool{}).Execute(ctx, map[string]any{"action": "clear_done"})
	require.NoError(t, err)
	require.True(t, clearRes.Success)
	assert.Empty(t, sess.Todos())
}

func TestTodoUnknownIDFails(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (TodoTool{}).Execute(ctx, map[string]any{"action": "done", "id": "nope"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestTodoInvalidActionFails(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (TodoTool{}).Execute(ctx, map[string]any{"action": "frobnicate"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}
