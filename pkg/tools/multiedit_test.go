package tools

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiEditAppliesAllInOrder(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "f.txt", "one two three")

	res, err := (MultiEditTool{}).Execute(ctx, map[string]any{
		"path": "f.txt",
		"edits": []any{
			map[string]any{"old_content": "one", "new_content": "1"},
			map[string]any{"old_content": "three", "new_content": "3"},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	content, err := os.ReadFile(root + "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "1 two 3", string(content))
}

func TestMultiEditAbortsWholeBatchOnInvalidEdit(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "f.txt", "one two three")

	res, err := (MultiEditTool{}).Execute(ctx, map[string]any{
		"path": "f.txt",
		"edits": []any{
			map[string]any{"old_content": "one", "new_content": "1"},
			map[string]any{"old_content": "missing", "new_content": "x"},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Validation failed")

	// the file on disk must be untouched — not even the valid first edit applied.
	content, err := os.ReadFile(root + "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, "one two three", string(content))
}

func TestMultiEditRejectsDuplicateOldContent(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "f.txt", "dup dup")

	res, err := (MultiEditTool{}).Execute(ctx, map[string]any{
		"path": "f.txt",
		"edits": []any{
			map[string]any{"old_content": "dup", "new_content": "x"},
		},
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "more than once")
}
