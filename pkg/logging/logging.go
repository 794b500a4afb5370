// Package logging configures slog for the CLI and carries request scoped
// attributes on the context.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

// Logger returns a text or JSON logger whose records pick up attributes added with AppendCtx
func Logger(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(&ContextHandler{Handler: h})
}

// ContextHandler adds the attributes stored on the record's context
type ContextHandler struct {
	slog.Handler
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// AppendCtx returns a child context carrying attrs after any already present
func AppendCtx(parent context.Context, attrs ...slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	var all []slog.Attr
	if existing, ok := parent.Value(ctxKey{}).([]slog.Attr); ok {
		all = append(all, existing...)
	}
	all = append(all, attrs...)
	return context.WithValue(parent, ctxKey{}, all)
}

// FromCtx binds the attributes carried by ctx to log, for code that logs without a context
func FromCtx(ctx context.Context, log *slog.Logger) *slog.Logger {
	if log == nil {
		log = slog.Default()
	}
	if ctx == nil {
		return log
	}
	attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr)
	if !ok || len(attrs) == 0 {
		return log
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return log.With(args...)
}

// FileWriter returns a size rotated log file
func FileWriter(path string) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
}

// ParseLevel accepts DEBUG, INFO, WARN and ERROR in any case
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return level, nil
}
