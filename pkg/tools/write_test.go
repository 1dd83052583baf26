package tools

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesFileAndReportsCreated(t *testing.T) {
	ctx, root := newTestContext(t)

	res, err := (WriteTool{}).Execute(ctx, map[string]any{
		"path":    "new.txt",
		"content": "line one\nline two\n",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "Created new.txt")

	content, err := os.ReadFile(root + "/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(content))
}

func TestWriteOverwritesAndReportsUpdated(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "existing.txt", "old\n")

	res, err := (WriteTool{}).Execute(ctx, map[string]any{
		"path":    "existing.txt",
		"content": "new\n",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "Updated existing.txt")
}

func TestWriteThenUndoRestoresPriorContent(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "f.txt", "before\n")

	_, err := (WriteTool{}).Execute(ctx, map[string]any{"path": "f.txt", "content": "after\n"})
	require.NoError(t, err)

	_, err = (UndoTool{}).Execute(ctx, map[string]any{"path": "f.txt"})
	require.NoError(t, err)

	content, err := os.ReadFile(root + "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "before\n", string(content))
}
