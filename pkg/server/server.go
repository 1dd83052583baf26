// Package server exposes one Facade over HTTP: a single SSE endpoint
// that accepts a chat message and streams back the orchestrator's
// StreamChunks as they're produced. It deliberately carries no auth and
// no multi-tenant agent routing — those are out of scope per spec.md;
// this is the thin external-interface shell SPEC_FULL.md calls for, not
// a production API gateway.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/driftwood-dev/codeagent/pkg/agent"
	"github.com/driftwood-dev/codeagent/pkg/message"
)

// Server wraps a Facade with an HTTP router.
type Server struct {
	facade *agent.Facade
	log    *slog.Logger
	router chi.Router
}

// New builds a Server for facade, with logging and panic-recovery
// middleware installed on every route.
func New(facade *agent.Facade, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{facade: facade, log: log}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequest)

	r.Get("/health", s.handleHealth)
	r.Post("/sessions", s.handleNewSession)
	r.Post("/chat", s.handleChat)

	s.router = r
	return s
}

// ServeHTTP satisfies http.Handler so a caller can plug Server directly
// into http.ListenAndServe or its own middleware stack.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Info("http request", "method", r.Method, "path", routePattern(r), "duration_ms", time.Since(start).Milliseconds())
	})
}

// routePattern prefers chi's matched route template over the raw path,
// so logs group "/sessions/{id}" together instead of one line per id.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.facade.NewSession()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"session_id": sess.ID})
}

type chatRequest struct {
	Message string `json:"message"`
}

// chatEvent is the JSON shape written as one SSE `data:` line per
// message.StreamChunk.
type chatEvent struct {
	Kind    string `json:"kind"`
	Text    string `json:"text,omitempty"`
	ToolID  string `json:"tool_id,omitempty"`
	Tool    string `json:"tool,omitempty"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// handleChat streams one Facade.Chat call as server-sent events. Each
// StreamChunk becomes one `data:` line; the connection closes when the
// facade's channel closes.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for chunk := range s.facade.Chat(r.Context(), req.Message) {
		event := toChatEvent(chunk)
		payload, err := json.Marshal(event)
		if err != nil {
			s.log.Error("marshal chat event failed", "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

func toChatEvent(chunk message.StreamChunk) chatEvent {
	switch chunk.Kind {
	case message.ChunkText:
		return chatEvent{Kind: "text", Text: chunk.Text}
	case message.ChunkToolCall:
		name := ""
		if chunk.ToolCall != nil {
			name = chunk.ToolCall.Name
		}
		return chatEvent{Kind: "tool_call", Tool: name}
	case message.ChunkToolCallDelta:
		return chatEvent{Kind: "tool_call_delta", ToolID: chunk.DeltaID, Tool: chunk.DeltaName, Content: chunk.ArgumentJSON}
	case message.ChunkToolResult:
		return chatEvent{Kind: "tool_result", ToolID: chunk.ToolResultID, Tool: chunk.ToolResultName, Content: chunk.ToolResultContent}
	case message.ChunkError:
		msg := ""
		if chunk.Err != nil {
			msg = chunk.Err.Error()
		}
		return chatEvent{Kind: "error", Error: msg}
	default:
		return chatEvent{Kind: string(chunk.Kind)}
	}
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
