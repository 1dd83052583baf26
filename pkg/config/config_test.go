package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftwood-dev/codeagent/pkg/provider"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFillsDefaultsForUnsetFields(t *testing.T) {
	path := writeConfig(t, "providers:\n  anthropic:\n    api_key: test-key\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "auto", cfg.PermissionMode)
	assert.Equal(t, "test-key", cfg.Providers["anthropic"].APIKey)
}

func TestLoadExpandsEnvVarReferences(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-from-env")
	path := writeConfig(t, "providers:\n  anthropic:\n    api_key: ${TEST_ANTHROPIC_KEY}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Providers["anthropic"].APIKey)
}

func TestLoadExpandsEnvVarWithDefaultFallback(t *testing.T) {
	path := writeConfig(t, "log_level: ${UNSET_LOG_LEVEL:-debug}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestAliasTableMergesOverridesOnDefaults(t *testing.T) {
	cfg := Default()
	cfg.Aliases = map[string]string{"smart": "anthropic/claude-custom"}

	table := cfg.AliasTable()
	assert.Equal(t, "anthropic/claude-custom", table.Resolve(string(provider.AliasSmart)))
	// unrelated aliases keep their zero-config default.
	assert.Equal(t, "anthropic/claude-haiku-4-5", table.Resolve(string(provider.AliasRush)))
}

func TestLoadReturnsErrorForMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
