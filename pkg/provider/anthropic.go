package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/driftwood-dev/codeagent/pkg/httpclient"
	"github.com/driftwood-dev/codeagent/pkg/message"
)

// AnthropicConfig configures the Anthropic adapter.
type AnthropicConfig struct {
	APIKey      string
	Host        string // defaults to https://api.anthropic.com
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Anthropic implements Provider against the Claude Messages API.
type Anthropic struct {
	cfg    AnthropicConfig
	client *httpclient.Client
}

// NewAnthropic builds an Anthropic adapter.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	if cfg.Host == "" {
		cfg.Host = "https://api.anthropic.com"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Anthropic{
		cfg:    cfg,
		client: httpclient.New(httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})),
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

// Wire format for the Anthropic Messages API.
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     *map[string]any `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicStreamEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index,omitempty"`
	Delta        *anthropicDelta   `json:"delta,omitempty"`
	ContentBlock *anthropicContent `json:"content_block,omitempty"`
	Error        *anthropicError   `json:"error,omitempty"`
}

type anthropicDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// toAnthropicMessages converts the neutral message list into Anthropic's
// wire format. Tool results become a user message carrying a tool_result
// block (Anthropic has no dedicated tool role); assistant tool calls
// become tool_use blocks.
func toAnthropicMessages(messages []message.Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case message.RoleSystem:
			continue // system is a top-level request field, not a message
		case message.RoleTool:
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		case message.RoleAssistant:
			var blocks []anthropicContent
			if m.Content != "" {
				blocks = append(blocks, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				blocks = append(blocks, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: &args,
				})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		default:
			out = append(out, anthropicMessage{Role: "user", Content: m.Content})
		}
	}
	return out
}

func (a *Anthropic) buildRequest(system string, messages []message.Message, tools []ToolDefinition, model string, stream bool) anthropicRequest {
	req := anthropicRequest{
		Model:       model,
		Messages:    toAnthropicMessages(messages),
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Stream:      stream,
		System:      system,
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	return req
}

func (a *Anthropic) Stream(ctx context.Context, system string, messages []message.Message, tools []ToolDefinition, model string) (<-chan message.StreamChunk, error) {
	if model == "" {
		model = a.cfg.Model
	}
	req := a.buildRequest(system, messages, tools, model, true)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Host+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	out := make(chan message.StreamChunk, 16)
	go a.consumeSSE(ctx, resp, out)
	return out, nil
}

func (a *Anthropic) consumeSSE(ctx context.Context, resp *http.Response, out chan<- message.StreamChunk) {
	defer close(out)
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := readAll(resp.Body)
		out <- message.ErrorChunk(fmt.Errorf("anthropic: http %d: %s", resp.StatusCode, raw))
		return
	}

	type pendingToolCall struct {
		id   string
		name string
		args strings.Builder
	}
	pending := map[int]*pendingToolCall{}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "" {
			continue
		}

		var evt anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			out <- message.ErrorChunk(fmt.Errorf("anthropic: malformed stream event: %w", err))
			continue
		}

		switch evt.Type {
		case "error":
			if evt.Error != nil {
				out <- message.ErrorChunk(fmt.Errorf("anthropic: %s: %s", evt.Error.Type, evt.Error.Message))
			}
			return
		case "content_block_start":
			if evt.ContentBlock != nil && evt.ContentBlock.Type == "tool_use" {
				pending[evt.Index] = &pendingToolCall{id: evt.ContentBlock.ID, name: evt.ContentBlock.Name}
			}
		case "content_block_delta":
			if evt.Delta == nil {
				continue
			}
			switch evt.Delta.Type {
			case "text_delta":
				out <- message.Text(evt.Delta.Text)
			case "input_json_delta":
				if pc, ok := pending[evt.Index]; ok {
					pc.args.WriteString(evt.Delta.PartialJSON)
					out <- message.ToolCallDelta(pc.id, pc.name, evt.Delta.PartialJSON)
				}
			}
		case "content_block_stop":
			if pc, ok := pending[evt.Index]; ok {
				args := map[string]any{}
				raw := pc.args.String()
				if raw == "" {
					raw = "{}"
				}
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					// Malformed tool-call JSON degrades to empty arguments so
					// the orchestrator can still surface a structured error
					// to the LLM next turn, per §7.
					args = map[string]any{}
				}
				out <- message.ToolCallChunk(message.ToolCall{ID: pc.id, Name: pc.name, Arguments: args})
				delete(pending, evt.Index)
			}
		case "message_stop":
			return
		}

		if ctx.Err() != nil {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		out <- message.ErrorChunk(fmt.Errorf("anthropic: stream read error: %w", err))
	}
}
