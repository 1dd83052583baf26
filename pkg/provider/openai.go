package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/driftwood-dev/codeagent/pkg/httpclient"
	"github.com/driftwood-dev/codeagent/pkg/message"
)

// OpenAIConfig configures the OpenAI (or OpenAI-compatible) adapter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string // defaults to https://api.openai.com/v1
	Model       string
	Temperature float64
	Timeout     time.Duration

	// Name overrides Provider.Name(); used to register the OpenAI-compatible
	// router under a distinct provider name (e.g. "openai-router") while
	// reusing this same wire format, per §4.C's "router endpoint" target.
	Name string
}

// OpenAI implements Provider against the Chat Completions streaming API,
// and doubles as the OpenAI-compatible router adapter when BaseURL points
// at a multiplexing endpoint.
type OpenAI struct {
	cfg    OpenAIConfig
	client *httpclient.Client
}

func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OpenAI{
		cfg:    cfg,
		client: httpclient.New(httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})),
	}
}

func (o *OpenAI) Name() string {
	if o.cfg.Name != "" {
		return o.cfg.Name
	}
	return "openai"
}

type openAIMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	ToolCalls  []openAIToolRef `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

type openAIToolRef struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAITool struct {
	Type     string             `json:"type"`
	Function openAIFunctionSpec `json:"function"`
}

type openAIFunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	Stream      bool            `json:"stream"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func toOpenAIMessages(system string, messages []message.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openAIMessage{Role: "system", Content: system})
	}
	for _, m := range messages {
		switch m.Role {
		case message.RoleSystem:
			out = append(out, openAIMessage{Role: "system", Content: m.Content})
		case message.RoleTool:
			out = append(out, openAIMessage{Role: "tool", Content: m.Content, ToolCallID: m.ToolCallID})
		case message.RoleAssistant:
			om := openAIMessage{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				argsJSON, _ := json.Marshal(tc.Arguments)
				om.ToolCalls = append(om.ToolCalls, openAIToolRef{
					ID:       tc.ID,
					Type:     "function",
					Function: openAIFunctionCall{Name: tc.Name, Arguments: string(argsJSON)},
				})
			}
			out = append(out, om)
		default:
			out = append(out, openAIMessage{Role: "user", Content: m.Content})
		}
	}
	return out
}

func (o *OpenAI) Stream(ctx context.Context, system string, messages []message.Message, tools []ToolDefinition, model string) (<-chan message.StreamChunk, error) {
	if model == "" {
		model = o.cfg.Model
	}
	req := openAIRequest{
		Model:       model,
		Messages:    toOpenAIMessages(system, messages),
		Temperature: o.cfg.Temperature,
		Stream:      true,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, openAITool{
			Type:     "function",
			Function: openAIFunctionSpec{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build openai request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	out := make(chan message.StreamChunk, 16)
	go o.consumeSSE(ctx, resp, out)
	return out, nil
}

func (o *OpenAI) consumeSSE(ctx context.Context, resp *http.Response, out chan<- message.StreamChunk) {
	defer close(out)
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := readAll(resp.Body)
		out <- message.ErrorChunk(fmt.Errorf("%s: http %d: %s", o.Name(), resp.StatusCode, raw))
		return
	}

	type pendingCall struct {
		id   string
		name string
		args strings.Builder
	}
	pending := map[int]*pendingCall{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	flush := func() {
		indices := make([]int, 0, len(pending))
		for idx := range pending {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			pc := pending[idx]
			args := map[string]any{}
			raw := pc.args.String()
			if raw == "" {
				raw = "{}"
			}
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				args = map[string]any{}
			}
			out <- message.ToolCallChunk(message.ToolCall{ID: pc.id, Name: pc.name, Arguments: args})
			delete(pending, idx)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			flush()
			return
		}
		if payload == "" {
			continue
		}

		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			out <- message.ErrorChunk(fmt.Errorf("%s: malformed stream chunk: %w", o.Name(), err))
			continue
		}
		if chunk.Error != nil {
			out <- message.ErrorChunk(fmt.Errorf("%s: %s: %s", o.Name(), chunk.Error.Type, chunk.Error.Message))
			return
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.Content != "" {
				out <- message.Text(choice.Delta.Content)
			}
			for _, tc := range choice.Delta.ToolCalls {
				pc, ok := pending[tc.Index]
				if !ok {
					pc = &pendingCall{id: tc.ID, name: tc.Function.Name}
					pending[tc.Index] = pc
				}
				if tc.Function.Arguments != "" {
					pc.args.WriteString(tc.Function.Arguments)
					out <- message.ToolCallDelta(pc.id, pc.name, tc.Function.Arguments)
				}
			}
			// OpenAI has no explicit content_block_stop: a tool_calls finish
			// reason (or end of stream) finalizes whatever is pending — the
			// auto-finalize behavior the spec leaves provider-specific.
			if choice.FinishReason != nil {
				flush()
			}
		}

		if ctx.Err() != nil {
			return
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		out <- message.ErrorChunk(fmt.Errorf("%s: stream read error: %w", o.Name(), err))
	}
}
