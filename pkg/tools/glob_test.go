package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobMatchesRecursivePattern(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "pkg/a/foo.go", "package a\n")
	writeTestFile(t, root, "pkg/b/bar.go", "package b\n")
	writeTestFile(t, root, "pkg/b/bar_test.go", "package b\n")
	writeTestFile(t, root, "README.md", "# readme\n")

	res, err := (GlobTool{}).Execute(ctx, map[string]any{"pattern": "**/*.go"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "foo.go")
	assert.Contains(t, res.Content, "bar.go")
	assert.Contains(t, res.Content, "bar_test.go")
	assert.NotContains(t, res.Content, "README.md")
}

func TestGlobNoMatchesReturnsLiteral(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "a.txt", "hi")

	res, err := (GlobTool{}).Execute(ctx, map[string]any{"pattern": "**/*.nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, "No matches found", res.Content)
}

func TestGlobRejectsInvalidPattern(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (GlobTool{}).Execute(ctx, map[string]any{"pattern": "[invalid"})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestGlobTruncatesAtLimit(t *testing.T) {
	ctx, root := newTestContext(t)
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		writeTestFile(t, root, name, "package main\n")
	}

	res, err := (GlobTool{}).Execute(ctx, map[string]any{"pattern": "*.go", "limit": 2})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "(truncated to 2 matches)")
}
