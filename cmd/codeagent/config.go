package main

import (
	"os"
	"path/filepath"

	"github.com/driftwood-dev/codeagent/pkg/config"
)

// resolveConfig loads path if given, otherwise searches the conventional
// locations and falls back to config.Default() if none exist.
// config.Default() configures no provider, so without a config file that
// lists one no model alias resolves.
func resolveConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	home, _ := os.UserHomeDir()
	candidates := []string{
		"codeagent.yaml",
		".codeagent/config.yaml",
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", "codeagent", "config.yaml"))
	}

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return config.Load(c)
		}
	}
	return config.Default(), nil
}
