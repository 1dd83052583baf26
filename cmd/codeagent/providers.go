package main

import (
	"fmt"
	"os"

	"github.com/driftwood-dev/codeagent/pkg/config"
	"github.com/driftwood-dev/codeagent/pkg/provider"
)

// buildProviderRegistry registers one vendor adapter per entry in
// cfg.Providers, keyed by the same name a model identifier's
// "<provider>/<model>" prefix must resolve against. Unset API keys fall
// back to the conventional environment variable for that vendor, the
// same fallback codesm's CLI performs before constructing its Agent.
func buildProviderRegistry(cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry(cfg.AliasTable())

	for name, pc := range cfg.Providers {
		switch name {
		case "anthropic":
			apiKey := firstNonEmpty(pc.APIKey, os.Getenv("ANTHROPIC_API_KEY"))
			if apiKey == "" {
				return nil, fmt.Errorf("provider %q: no api_key configured and ANTHROPIC_API_KEY is unset", name)
			}
			reg.Register(provider.NewAnthropic(provider.AnthropicConfig{
				APIKey:      apiKey,
				Host:        pc.Host,
				Model:       pc.Model,
				MaxTokens:   pc.MaxTokens,
				Temperature: pc.Temperature,
			}))
		case "openai":
			apiKey := firstNonEmpty(pc.APIKey, os.Getenv("OPENAI_API_KEY"))
			if apiKey == "" {
				return nil, fmt.Errorf("provider %q: no api_key configured and OPENAI_API_KEY is unset", name)
			}
			reg.Register(provider.NewOpenAI(provider.OpenAIConfig{
				APIKey:      apiKey,
				BaseURL:     pc.Host,
				Model:       pc.Model,
				Temperature: pc.Temperature,
			}))
		case "openai-router":
			apiKey := firstNonEmpty(pc.APIKey, os.Getenv("OPENAI_ROUTER_API_KEY"))
			reg.Register(provider.NewRouter(provider.RouterConfig{
				APIKey:      apiKey,
				BaseURL:     pc.Host,
				Model:       pc.Model,
				Temperature: pc.Temperature,
			}))
		default:
			return nil, fmt.Errorf("unknown provider %q in config (want anthropic, openai, or openai-router)", name)
		}
	}

	return reg, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
