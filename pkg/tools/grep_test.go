package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrepFallbackFindsMatch(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "a.go", "package a\n\nfunc Hello() {}\n")
	writeTestFile(t, root, "b.go", "package a\n\nfunc Goodbye() {}\n")

	res, err := grepFallback(grepArgs{Pattern: "func Hello"}, root)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Content, "a.go")
	assert.NotContains(t, res.Content, "b.go")
}

func TestGrepFallbackNoMatchesReturnsExactLiteral(t *testing.T) {
	ctx, root := newTestContext(t)
	_ = ctx
	writeTestFile(t, root, "a.go", "package a\n")

	res, err := grepFallback(grepArgs{Pattern: "nonexistent_symbol_xyz"}, root)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "No matches found", res.Content)
}

func TestGrepFallbackSkipsExcludedDirs(t *testing.T) {
	_, root := newTestContext(t)
	writeTestFile(t, root, "vendor/lib.go", "package vendor\n\nfunc Vendored() {}\n")
	writeTestFile(t, root, "main.go", "package main\n")

	res, err := grepFallback(grepArgs{Pattern: "Vendored"}, root)
	require.NoError(t, err)
	assert.Equal(t, "No matches found", res.Content)
}

func TestGrepFallbackIsCaseInsensitiveByDefault(t *testing.T) {
	_, root := newTestContext(t)
	writeTestFile(t, root, "a.txt", "Hello World")

	res, err := grepFallback(grepArgs{Pattern: "hello"}, root)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "a.txt")
}

func TestGrepFallbackRejectsInvalidPattern(t *testing.T) {
	_, root := newTestContext(t)

	res, err := grepFallback(grepArgs{Pattern: "("}, root)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "invalid regex")
}
