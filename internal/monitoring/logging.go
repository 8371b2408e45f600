// Package monitoring provides the structured logging layer for the
// credential subsystem. Every attribute value passes through credential
// redaction before it reaches the underlying handler, so a credential-shaped
// token can never appear in log output even from free-text error messages.
package monitoring

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/hengadev/byok/internal/redact"
)

// RedactingHandler wraps a slog.Handler and redacts every string attribute
// and message before delegating.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *redact.Redactor
}

// NewRedactingHandler wraps inner.
func NewRedactingHandler(inner slog.Handler) *RedactingHandler {
	return &RedactingHandler{inner: inner, redactor: redact.New()}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RedactingHandler) Handle(ctx context.Context, rec slog.Record) error {
	clean := slog.NewRecord(rec.Time, rec.Level, h.redactor.Redact(rec.Message), rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.redactAttr(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.redactAttr(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(clean), redactor: h.redactor}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.redactor.Redact(a.Value.String()))
	case slog.KindGroup:
		group := a.Value.Group()
		clean := make([]any, 0, len(group))
		for _, g := range group {
			clean = append(clean, h.redactAttr(g))
		}
		return slog.Group(a.Key, clean...)
	default:
		return a
	}
}

// Redacting wraps an existing logger's handler in a RedactingHandler.
func Redacting(logger *slog.Logger) *slog.Logger {
	return slog.New(NewRedactingHandler(logger.Handler()))
}

// NewLogger builds a JSON logger writing to w at the given level, with
// RFC3339Nano timestamps and redaction applied.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	})
	return slog.New(NewRedactingHandler(handler))
}
