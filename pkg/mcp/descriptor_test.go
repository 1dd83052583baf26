package mcp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDescriptorsMcpServersKey(t *testing.T) {
	raw := []byte(`{"mcpServers": {"fs": {"command": "mcp-fs", "args": ["--root", "."]}}}`)
	descs, err := parseDescriptors(raw)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "fs", descs[0].Name)
	assert.Equal(t, "mcp-fs", descs[0].Command)
	assert.Equal(t, "stdio", descs[0].Transport) // defaulted
}

func TestParseDescriptorsRootLevel(t *testing.T) {
	raw := []byte(`{"fs": {"command": "mcp-fs"}}`)
	descs, err := parseDescriptors(raw)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "fs", descs[0].Name)
}

func TestDiscoverDescriptorsFirstMatchWins(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mcp-servers.json"), []byte(`{"servers": {"a": {"command": "x"}}}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".mcp"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcp", "servers.json"), []byte(`{"servers": {"b": {"command": "y"}}}`), 0o644))

	descs, err := DiscoverDescriptors(dir)
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, "a", descs[0].Name)
}

func TestDiscoverDescriptorsNoneFound(t *testing.T) {
	descs, err := DiscoverDescriptors(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, descs)
}
