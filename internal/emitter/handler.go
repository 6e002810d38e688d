package emitter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Handler is a slog.Handler that ships each record through an Emitter.
// The record becomes "message key=value ..." with group names joined by dots.
type Handler struct {
	emitter *Emitter
	prefix  string // open groups, dot terminated
	attrs   string // preformatted WithAttrs output
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a handler writing to e.
func NewHandler(e *Emitter) *Handler {
	return &Handler{emitter: e}
}

// Enabled reports whether the emitter ships records at level.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.emitter.IsEnabled(level)
}

// Handle formats r and hands it to the emitter. Delivery is asynchronous;
// failures reach the emitter's error handler.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	at := r.Time
	if at.IsZero() {
		at = time.Now()
	}

	_, err := h.emitter.Log(ctx, r.Level, at, func() string {
		var sb strings.Builder
		sb.WriteString(r.Message)
		sb.WriteString(h.attrs)
		r.Attrs(func(a slog.Attr) bool {
			appendAttr(&sb, h.prefix, a)
			return true
		})
		return strings.TrimLeft(sb.String(), " ")
	})
	return err
}

// WithAttrs returns a handler that appends attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var sb strings.Builder
	sb.WriteString(h.attrs)
	for _, a := range attrs {
		appendAttr(&sb, h.prefix, a)
	}
	h2 := *h
	h2.attrs = sb.String()
	return &h2
}

// WithGroup returns a handler that qualifies later attributes with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

func appendAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		if len(attrs) == 0 {
			return
		}
		if a.Key != "" {
			prefix = prefix + a.Key + "."
		}
		for _, ga := range attrs {
			appendAttr(sb, prefix, ga)
		}
		return
	}

	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	sb.WriteString(quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r == '=' || r == '"' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return strconv.Quote(s)
		}
	}
	return s
}
