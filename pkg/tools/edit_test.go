package tools

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditReplacesUniqueSubstring(t *testing.T) {
	ctx, root := newTestContext(t)
	full := writeTestFile(t, root, "greet.go", "package main\n\nfunc main() {\n\tprintln(\"hi\")\n}\n")

	res, err := (EditTool{}).Execute(ctx, map[string]any{
		"path":        "greet.go",
		"old_content": "println(\"hi\")",
		"new_content": "println(\"bye\")",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	content, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Contains(t, string(content), "println(\"bye\")")
}

func TestEditReplacesFirstOccurrenceOnlyWhenContentRepeats(t *testing.T) {
	ctx, root := newTestContext(t)
	full := writeTestFile(t, root, "dup.txt", "x\nx\n")

	res, err := (EditTool{}).Execute(ctx, map[string]any{
		"path":        "dup.txt",
		"old_content": "x",
		"new_content": "y",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	content, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "y\nx\n", string(content))
}

func TestEditThenUndoRoundTrip(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "file.txt", "original content\n")

	res, err := (EditTool{}).Execute(ctx, map[string]any{
		"path":        "file.txt",
		"old_content": "original content",
		"new_content": "changed content",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	changed, err := os.ReadFile(root + "/file.txt")
	require.NoError(t, err)
	assert.Contains(t, string(changed), "changed content")

	undoRes, err := (UndoTool{}).Execute(ctx, map[string]any{"path": "file.txt"})
	require.NoError(t, err)
	require.True(t, undoRes.Success)

	restored, err := os.ReadFile(root + "/file.txt")
	require.NoError(t, err)
	assert.Equal(t, "original content\n", string(restored))
}

func TestUndoWithoutPriorEditFails(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "untouched.txt", "stays put")

	res, err := (UndoTool{}).Execute(ctx, map[string]any{"path": "untouched.txt"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no recorded edit")
}
