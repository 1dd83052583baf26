package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/driftwood-dev/codeagent/pkg/message"
)

// Store persists sessions as one JSON file per id under dir, serializing
// writes per-id so a concurrent HTTP request and the main loop never
// interleave partial writes to the same file.
type Store struct {
	dir    string
	title  TitleProvider
	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	locksM sync.Mutex
}

// NewStore creates a Store rooted at dir (created if missing); the CLI and
// the agent facade use `<workspace>/.codeagent/sessions`.
func NewStore(dir string, title TitleProvider) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	if title == nil {
		title = HeuristicTitleProvider{}
	}
	return &Store{dir: dir, title: title, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.locksM.Lock()
	defer s.locksM.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create makes a new session rooted at cwd and persists it immediately.
func (s *Store) Create(cwd string) (*Session, error) {
	sess := New(cwd)
	if err := s.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get loads a session by id, or ErrNotFound.
func (s *Store) Get(id string) (*Session, error) {
	raw, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Save writes sess atomically (temp file + rename) so a crash mid-write
// never leaves a half-written session file behind.
func (s *Store) Save(sess *Session) error {
	lock := s.lockFor(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	sess.mu.RLock()
	raw, err := json.MarshalIndent(sess, "", "  ")
	sess.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, sess.ID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path(sess.ID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp session file: %w", err)
	}
	return nil
}

// AddUserMessage appends a user message, saves, and — on the first user
// message while the title is still default — generates a title via the
// configured TitleProvider (bounded by ctx) before saving again.
func (s *Store) AddUserMessage(ctx context.Context, sess *Session, content string) error {
	sess.AddMessage(message.Message{Role: message.RoleUser, Content: content})
	if err := s.Save(sess); err != nil {
		return err
	}

	if sess.Title == defaultTitle && !sess.TitleAutoset {
		title, err := s.title.Title(ctx, content)
		if err == nil && sess.SetTitleIfDefault(title) {
			if err := s.Save(sess); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddMessage appends any message (assistant, tool) and saves.
func (s *Store) AddMessage(sess *Session, m message.Message) error {
	sess.AddMessage(m)
	return s.Save(sess)
}

// Delete removes a session's file.
func (s *Store) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// List returns every persisted session, most recently updated first.
func (s *Store) List() ([]*Session, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list session dir: %w", err)
	}
	var out []*Session
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		sess, err := s.Get(id)
		if err != nil {
			continue // skip corrupted/partial files rather than failing the whole list
		}
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// SessionMatch is one hit from Store.Search: a session and the message
// indices within it whose content contains the query.
type SessionMatch struct {
	Session       *Session
	MatchedIdxs   []int
}

// Search does a case-insensitive substring scan over every persisted
// session's message content and title. No external index is built — the
// store is already file-backed, so this trades scan cost for a simpler
// implementation than a dedicated search engine would need.
func (s *Store) Search(query string) ([]SessionMatch, error) {
	if query == "" {
		return nil, nil
	}
	q := strings.ToLower(query)

	sessions, err := s.List()
	if err != nil {
		return nil, err
	}

	var matches []SessionMatch
	for _, sess := range sessions {
		var idxs []int
		for i, m := range sess.Messages {
			if strings.Contains(strings.ToLower(m.Content), q) {
				idxs = append(idxs, i)
			}
		}
		if len(idxs) > 0 || strings.Contains(strings.ToLower(sess.Title), q) {
			matches = append(matches, SessionMatch{Session: sess, MatchedIdxs: idxs})
		}
	}
	return matches, nil
}
