package lsp

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionWireRoundTrip(t *testing.T) {
	p := Position{Line: 10, Column: 5}
	wire := toWirePosition(p)
	assert.Equal(t, 9, wire.Line)
	assert.Equal(t, 4, wire.Character)
	assert.Equal(t, p, fromWirePosition(wire))
}

func TestFromWireRange(t *testing.T) {
	wr := wireRange{Start: wirePosition{Line: 0, Character: 0}, End: wirePosition{Line: 2, Character: 3}}
	r := fromWireRange(wr)
	assert.Equal(t, Position{Line: 1, Column: 1}, r.Start)
	assert.Equal(t, Position{Line: 3, Column: 4}, r.End)
}

func TestPathToURIAndBack(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix path assumptions")
	}
	path := "/home/user/project/main.go"
	uri := pathToURI(path)
	assert.Equal(t, "file:///home/user/project/main.go", uri)

	back, err := uriToPath(uri)
	require.NoError(t, err)
	assert.Equal(t, path, back)
}

func TestUriToPathRejectsNonFileScheme(t *testing.T) {
	_, err := uriToPath("https://example.com/file.go")
	assert.Error(t, err)
}
