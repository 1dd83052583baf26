// Package logger configures the process-wide structured logger.
//
// codeagent logs exclusively through log/slog. Third-party library logs
// (MCP servers, LSP clients writing to stderr, HTTP client retries) are
// filtered to warn+ unless the configured level is debug, so a normal
// session isn't drowned in transport chatter.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const modulePrefix = "github.com/driftwood-dev/codeagent"

// ParseLevel converts a string log level to slog.Level, defaulting to info
// on anything unrecognized so a typo in config never silences the logger
// or floods it.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options configures the logger built by New.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

// New builds a slog.Logger per Options and installs it as the default.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := ParseLevel(opts.Level)

	handlerOpts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		base = slog.NewJSONHandler(out, handlerOpts)
	} else {
		base = slog.NewTextHandler(out, handlerOpts)
	}

	h := &filteringHandler{handler: base, minLevel: level}
	l := slog.New(h)
	slog.SetDefault(l)
	return l
}

// filteringHandler suppresses non-module logs below warn unless the
// configured minimum level is debug.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug {
		return h.handler.Handle(ctx, record)
	}
	if record.Level >= slog.LevelWarn || h.isOwnModule(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func (h *filteringHandler) isOwnModule(pc uintptr) bool {
	if pc == 0 {
		return true
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()
	return strings.HasPrefix(frame.Function, modulePrefix)
}
