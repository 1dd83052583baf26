package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLsRendersTreeAndSkipsExcludedDirs(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "src/main.go", "package main\n")
	writeTestFile(t, root, "node_modules/dep/index.js", "module.exports = {}\n")

	res, err := (LsTool{}).Execute(ctx, map[string]any{})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "src/")
	assert.Contains(t, res.Content, "main.go")
	assert.NotContains(t, res.Content, "node_modules")
}

func TestLsRejectsNonDirectory(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "file.txt", "hi")

	res, err := (LsTool{}).Execute(ctx, map[string]any{"path": "file.txt"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestLsCapsDepthAtThree(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "a/b/c/d/deep.txt", "deep")

	res, err := (LsTool{}).Execute(ctx, map[string]any{"depth": 10})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.NotContains(t, res.Content, "deep.txt")
}
