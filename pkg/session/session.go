// Package session persists conversations as one JSON file per session id,
// appending messages atomically and exposing the LLM-visible subsequence
// the orchestrator replays on resume.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftwood-dev/codeagent/pkg/message"
)

// Session is a durable, ordered conversation rooted at a working directory.
type Session struct {
	ID              string             `json:"id"`
	Cwd             string             `json:"cwd"`
	Title           string             `json:"title"`
	TitleAutoset    bool               `json:"title_autoset"`
	Messages        []message.Message  `json:"messages"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Todo            []TodoItem         `json:"todo,omitempty"`
	mu              sync.RWMutex
}

// TodoItem is one entry in the session-scoped todo list maintained by the
// `todo` tool.
type TodoItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Status    string    `json:"status"` // pending, in_progress, done, cancelled
	CreatedAt time.Time `json:"created_at"`
}

const defaultTitle = "New session"

// New creates a session with a time-ordered id, rooted at cwd.
func New(cwd string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Cwd:       cwd,
		Title:     defaultTitle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a message under lock. Callers persist via Store.Save
// immediately after, so the in-memory and on-disk states never diverge for
// more than one call.
func (s *Session) AddMessage(m message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, m)
	s.UpdatedAt = time.Now()
}

// GetMessages returns the LLM-visible subsequence: role tool is omitted,
// and assistant messages whose only content is a now-satisfied tool-call
// set are omitted. The orchestrator reconstructs tool turns anew from the
// current request rather than replaying raw history.
func (s *Session) GetMessages() []message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]message.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Role == message.RoleTool {
			continue
		}
		if m.Role == message.RoleAssistant && m.IsToolCallsOnly() {
			continue
		}
		out = append(out, m)
	}
	return out
}

// AddTodo appends a new pending todo item, returning it.
func (s *Session) AddTodo(id, text string) TodoItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := TodoItem{ID: id, Text: text, Status: "pending", CreatedAt: time.Now()}
	s.Todo = append(s.Todo, item)
	s.UpdatedAt = time.Now()
	return item
}

// SetTodoStatus transitions the todo identified by id to status, returning
// false if no todo with that id exists.
func (s *Session) SetTodoStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Todo {
		if s.Todo[i].ID == id {
			s.Todo[i].Status = status
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// UpdateTodoText rewrites the text of the todo identified by id.
func (s *Session) UpdateTodoText(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Todo {
		if s.Todo[i].ID == id {
			s.Todo[i].Text = text
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// DeleteTodo removes the todo identified by id.
func (s *Session) DeleteTodo(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Todo {
		if s.Todo[i].ID == id {
			s.Todo = append(s.Todo[:i], s.Todo[i+1:]...)
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

// ClearDoneTodos removes every todo with status "done", returning how many
// were removed.
func (s *Session) ClearDoneTodos() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.Todo[:0]
	removed := 0
	for _, t := range s.Todo {
		if t.Status == "done" {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.Todo = kept
	if removed > 0 {
		s.UpdatedAt = time.Now()
	}
	return removed
}

// Todos returns a copy of the current todo list.
func (s *Session) Todos() []TodoItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TodoItem, len(s.Todo))
	copy(out, s.Todo)
	return out
}

// SetTitleIfDefault idempotently sets the title the first time it's
// called while the title is still the default — later calls are no-ops.
func (s *Session) SetTitleIfDefault(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Title != defaultTitle || s.TitleAutoset {
		return false
	}
	s.Title = title
	s.TitleAutoset = true
	s.UpdatedAt = time.Now()
	return true
}

// TitleProvider generates a short human title from the first user message.
// Implementations may call an LLM (bounded, low-cost alias like "topics")
// or fall back to a heuristic; Store.AddUserMessage never blocks on this
// longer than the provider allows.
type TitleProvider interface {
	Title(ctx context.Context, firstUserMessage string) (string, error)
}

// HeuristicTitleProvider truncates the first ~60 characters of the user's
// opening message — the fallback when an LLM-backed TitleProvider errors
// or isn't configured.
type HeuristicTitleProvider struct{}

func (HeuristicTitleProvider) Title(_ context.Context, firstUserMessage string) (string, error) {
	const maxLen = 60
	title := firstUserMessage
	if len(title) > maxLen {
		title = title[:maxLen] + "..."
	}
	if title == "" {
		title = defaultTitle
	}
	return title, nil
}

// fallbackTitleProvider wraps a primary provider, degrading to a
// HeuristicTitleProvider on error so title generation never fails a turn.
type fallbackTitleProvider struct {
	primary  TitleProvider
	fallback TitleProvider
}

// WithFallback wraps primary so any error degrades to fallback instead of
// surfacing to the caller.
func WithFallback(primary, fallback TitleProvider) TitleProvider {
	return fallbackTitleProvider{primary: primary, fallback: fallback}
}

func (f fallbackTitleProvider) Title(ctx context.Context, firstUserMessage string) (string, error) {
	title, err := f.primary.Title(ctx, firstUserMessage)
	if err != nil || title == "" {
		return f.fallback.Title(ctx, firstUserMessage)
	}
	return title, nil
}

// ErrNotFound is returned by Store.Get for an unknown id.
var ErrNotFound = fmt.Errorf("session not found")
