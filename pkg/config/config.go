// Package config loads the process-wide configuration file — provider
// credentials, alias overrides, LSP server commands, and ambient
// settings — through koanf's file provider and yaml parser, the same
// pairing the teacher's loader uses, trimmed to the single backend this
// project needs (no consul/etcd/zookeeper remote-config backends).
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/driftwood-dev/codeagent/pkg/lsp"
	"github.com/driftwood-dev/codeagent/pkg/provider"
)

// ProviderConfig holds one vendor adapter's credentials and overrides.
type ProviderConfig struct {
	APIKey      string  `koanf:"api_key"`
	Host        string  `koanf:"host"`
	Model       string  `koanf:"model"`
	MaxTokens   int     `koanf:"max_tokens"`
	Temperature float64 `koanf:"temperature"`
}

// Config is the root of the loaded configuration file.
type Config struct {
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	StateDir string `koanf:"state_dir"`

	WindowTokens int `koanf:"window_tokens"`

	Providers map[string]ProviderConfig `koanf:"providers"`
	Aliases   map[string]string         `koanf:"aliases"`

	LSPServers map[string]lsp.ServerConfig `koanf:"lsp_servers"`

	SkillDirs []string `koanf:"skill_dirs"`

	// PermissionMode selects the chat command's confirmation gate: "auto"
	// (AutoApprove, the default) or "prompt" (stdin confirmation). The
	// HTTP server always auto-approves.
	PermissionMode string `koanf:"permission_mode"`
}

// Default returns zero-config defaults: info logging, text format, the
// default alias table left as-is (callers merge Aliases on top of
// provider.DefaultAliasTable), and the "auto" permission mode.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		WindowTokens:   200_000,
		PermissionMode: "auto",
	}
}

// Load reads and parses the YAML file at path, expanding ${VAR} /
// ${VAR:-default} references against the process environment before
// unmarshaling, and filling in Default()'s zero-config values for
// anything the file leaves unset.
func Load(path string) (*Config, error) {
	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}

	k := koanf.New(".")
	if err := k.Load(expandedBytesProvider{raw: []byte(expandEnvVarsInValue(string(raw)))}, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// expandedBytesProvider feeds already-expanded YAML bytes to koanf's yaml
// parser, so env-var substitution happens once up front rather than per
// field after unmarshaling.
type expandedBytesProvider struct{ raw []byte }

func (p expandedBytesProvider) ReadBytes() ([]byte, error) { return p.raw, nil }

func (p expandedBytesProvider) Read() (map[string]any, error) {
	return nil, fmt.Errorf("expandedBytesProvider: Read unsupported, use ReadBytes with a parser")
}

// AliasTable merges the file's alias overrides on top of the built-in
// zero-config defaults, so a config only needs to name the aliases it's
// actually changing.
func (c *Config) AliasTable() provider.AliasTable {
	table := provider.DefaultAliasTable()
	for alias, target := range c.Aliases {
		table[provider.Alias(alias)] = target
	}
	return table
}

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
)

// expandEnvVarsInValue resolves ${VAR} and ${VAR:-default} references
// against the environment; a bare $VAR is left untouched so API keys or
// prompt text that happen to contain a literal '$' aren't mangled.
func expandEnvVarsInValue(s string) string {
	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		if val, ok := os.LookupEnv(parts[1]); ok && val != "" {
			return val
		}
		return parts[2]
	})
	return envBraced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envBraced.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})
}
