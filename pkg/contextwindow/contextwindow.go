// Package contextwindow estimates a conversation's token footprint and
// compacts it once that footprint crosses 80% of the configured model
// window, replacing everything but the system messages and the last
// ~20 turns with an LLM-produced summary.
package contextwindow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/driftwood-dev/codeagent/pkg/message"
	"github.com/driftwood-dev/codeagent/pkg/provider"
)

// KeepTail is how many of the most recent messages compaction leaves
// verbatim, regardless of their estimated size.
const KeepTail = 20

// CompactThreshold is the fraction of the window that triggers compaction.
const CompactThreshold = 0.8

// excerptLimit caps how much of each message's content the summarization
// prompt quotes, so the summarization call itself never re-triggers the
// same token pressure it's meant to relieve.
const excerptLimit = 500

var (
	encoding     *tiktoken.Tiktoken
	encodingOnce sync.Once
)

// getEncoding lazily loads the cl100k_base BPE ranks, caching the result
// (or the failure) for the process lifetime. A nil return means the
// caller must fall back to the chars/4 heuristic — this happens offline,
// where tiktoken-go can't fetch its encoder file.
func getEncoding() *tiktoken.Tiktoken {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoding = enc
		}
	})
	return encoding
}

// EstimateTokens returns text's token count via the cached tiktoken
// encoder, falling back to a chars/4 heuristic when the encoder isn't
// available.
func EstimateTokens(text string) int {
	if enc := getEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return len(text) / 4
}

// EstimateMessages sums EstimateTokens over every message's content plus
// a small per-message overhead for role/tool-call framing.
func EstimateMessages(messages []message.Message) int {
	total := 0
	for _, m := range messages {
		total += 4 // role + framing overhead, independent of encoder availability
		total += EstimateTokens(m.Content)
		for _, tc := range m.ToolCalls {
			total += EstimateTokens(tc.Name)
			total += EstimateTokens(fmt.Sprint(tc.Arguments))
		}
	}
	return total
}

// Manager compacts a conversation once it crosses CompactThreshold of
// WindowTokens, routing summarization through the topics/router alias.
type Manager struct {
	Providers    *provider.Registry
	WindowTokens int
}

// NewManager builds a Manager for a given model window size.
func NewManager(providers *provider.Registry, windowTokens int) *Manager {
	return &Manager{Providers: providers, WindowTokens: windowTokens}
}

// NeedsCompaction reports whether messages' estimated size exceeds
// CompactThreshold of the configured window.
func (m *Manager) NeedsCompaction(messages []message.Message) bool {
	if m.WindowTokens <= 0 {
		return false
	}
	return EstimateMessages(messages) > int(float64(m.WindowTokens)*CompactThreshold)
}

// Compact returns messages unchanged if they fit comfortably, or a
// reduced list otherwise: every original `system` message, then a single
// summary message (Attrs["_context_summary"] = true), then the last
// KeepTail messages verbatim.
func (m *Manager) Compact(ctx context.Context, messages []message.Message) []message.Message {
	if !m.NeedsCompaction(messages) || len(messages) <= KeepTail {
		return messages
	}

	tail := messages[len(messages)-KeepTail:]
	head := messages[:len(messages)-KeepTail]

	var systemMsgs, middle []message.Message
	for _, msg := range messages {
		if msg.Role == message.RoleSystem {
			systemMsgs = append(systemMsgs, msg)
		}
	}
	for _, msg := range head {
		if msg.Role != message.RoleSystem {
			middle = append(middle, msg)
		}
	}

	summary := m.summarize(ctx, middle)

	out := make([]message.Message, 0, len(systemMsgs)+1+len(tail))
	out = append(out, systemMsgs...)
	out = append(out, summary)
	out = append(out, tail...)
	return out
}

// summarize asks the topics/router alias to condense middle into a
// single system message. A provider failure (unconfigured alias,
// transport error, empty response) degrades to a heuristic summary built
// from role counts, never blocking the loop's progress.
func (m *Manager) summarize(ctx context.Context, middle []message.Message) message.Message {
	text, err := m.callSummarizer(ctx, middle)
	if err != nil || strings.TrimSpace(text) == "" {
		text = heuristicSummary(middle)
	}
	return message.Message{
		Role:      message.RoleSystem,
		Content:   text,
		Timestamp: time.Now(),
		Attrs:     map[string]any{"_context_summary": true},
	}
}

func (m *Manager) callSummarizer(ctx context.Context, middle []message.Message) (string, error) {
	if m.Providers == nil {
		return "", fmt.Errorf("no provider registry configured")
	}
	prov, model, err := m.Providers.Resolve(string(provider.AliasTopics))
	if err != nil {
		prov, model, err = m.Providers.Resolve(string(provider.AliasRouter))
		if err != nil {
			return "", err
		}
	}

	prompt := buildSummarizationInput(middle)
	stream, err := prov.Stream(ctx, summarizationSystemPrompt, []message.Message{{
		Role:      message.RoleUser,
		Content:   prompt,
		Timestamp: time.Now(),
	}}, nil, model)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for chunk := range stream {
		switch chunk.Kind {
		case message.ChunkText:
			b.WriteString(chunk.Text)
		case message.ChunkError:
			return "", chunk.Err
		}
	}
	return b.String(), nil
}

const summarizationSystemPrompt = "Summarize the following conversation excerpt, preserving decisions, file paths, and unresolved questions. Be concise."

// buildSummarizationInput formats messages as role-tagged lines with a
// per-message content excerpt, so the summarization call itself stays
// well under the window it's relieving pressure on.
func buildSummarizationInput(messages []message.Message) string {
	var b strings.Builder
	for _, m := range messages {
		content := m.Content
		if len(content) > excerptLimit {
			content = content[:excerptLimit] + "…"
		}
		fmt.Fprintf(&b, "[%s] %s\n", m.Role, content)
	}
	return b.String()
}

// heuristicSummary is the provider-failure fallback: a role-count digest
// instead of prose, so the loop still has *something* standing in for
// the dropped messages rather than losing them outright.
func heuristicSummary(messages []message.Message) string {
	counts := map[message.Role]int{}
	for _, m := range messages {
		counts[m.Role]++
	}
	return fmt.Sprintf(
		"Earlier conversation summary unavailable (summarizer failed); %d messages omitted (user=%d, assistant=%d, tool=%d).",
		len(messages), counts[message.RoleUser], counts[message.RoleAssistant], counts[message.RoleTool],
	)
}
