package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCodeSearcher struct {
	results []CodeSearchResult
}

func (f fakeCodeSearcher) Search(path, query, filePattern string, topK int) ([]CodeSearchResult, error) {
	return f.results, nil
}

func TestCodeSearchReportsMissingCollaborator(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (CodeSearchTool{}).Execute(ctx, map[string]any{"query": "parse config"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no semantic code index is configured")
}

func TestCodeSearchRendersResultsFromCollaborator(t *testing.T) {
	ctx, _ := newTestContext(t)
	ctx.Extra[ExtraCodeSearch] = fakeCodeSearcher{results: []CodeSearchResult{
		{Path: "pkg/config/config.go", Line: 42, Snippet: "func Load(path string) (*Config, error) {", Score: 0.91},
	}}

	res, err := (CodeSearchTool{}).Execute(ctx, map[string]any{"query": "load config"})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Contains(t, res.Content, "pkg/config/config.go:42")
}

func TestDiagnosticsReportsMissingLanguageServer(t *testing.T) {
	ctx, _ := newTestContext(t)

	res, err := (DiagnosticsTool{}).Execute(ctx, map[string]any{"path": "main.go"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "no language server is configured")
}
