package lsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientForUnknownExtensionErrors(t *testing.T) {
	m := New(t.TempDir())
	_, err := m.clientFor("main.rs")
	assert.Error(t, err)
}

func TestLanguageIDDefaultsToPlaintext(t *testing.T) {
	assert.Equal(t, "go", languageID("main.go"))
	assert.Equal(t, "python", languageID("script.py"))
	assert.Equal(t, "plaintext", languageID("README"))
}

func TestInitSkipsUnselectedServers(t *testing.T) {
	m := New(t.TempDir())
	configs := map[string]ServerConfig{
		"go":     {Command: "gopls", Extensions: []string{"go"}},
		"python": {Command: "pylsp", Extensions: []string{"py"}},
	}
	results := m.Init(t.Context(), configs, []string{"go"})
	assert.Len(t, results, 1)
	_, ok := results["python"]
	assert.False(t, ok)
}
