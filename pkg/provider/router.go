package provider

// RouterConfig configures an OpenAI-compatible router endpoint: a single
// HTTP target that multiplexes many backing models behind one API key,
// reached with the same chat-completions wire format OpenAI uses.
type RouterConfig struct {
	APIKey      string
	BaseURL     string // e.g. https://openrouter.ai/api/v1
	Model       string
	Temperature float64
}

// NewRouter builds the OpenAI-compatible router adapter. It is registered
// under a distinct provider name ("openai-router") so alias identifiers
// like "openai-router/gpt-5-mini" route here instead of to api.openai.com,
// while reusing OpenAI's request/response shape verbatim.
func NewRouter(cfg RouterConfig) *OpenAI {
	return NewOpenAI(OpenAIConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Name:        "openai-router",
	})
}
