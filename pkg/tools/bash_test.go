package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBashCapturesStdout(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (BashTool{}).Execute(ctx, map[string]any{"command": "echo hello"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "hello")
}

func TestBashAppendsExitCodeOnFailureWithoutFailingTheTool(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (BashTool{}).Execute(ctx, map[string]any{"command": "exit 3"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "[exit code 3]")
}

func TestBashRejectsEmptyCommand(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (BashTool{}).Execute(ctx, map[string]any{"command": "  "})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestBashRunsInRequestedCwd(t *testing.T) {
	ctx, root := newTestContext(t)
	writeTestFile(t, root, "sub/marker.txt", "present")

	res, err := (BashTool{}).Execute(ctx, map[string]any{"command": "ls", "cwd": "sub"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "marker.txt")
}
