package security

import (
	"context"
	"log/slog"
	"slices"
)

// RedactingHandler wraps a slog.Handler and strips secrets from the message
// and every attribute before the inner handler sees them.
//
// Attributes bound with WithAttrs are kept here rather than folded into the
// inner handler and are redacted on each Handle. Module loggers are derived
// before the module registers its credentials in Provision, so redacting at
// bind time would miss them.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
	scopes   []scope
}

// scope is one WithGroup (group set) or WithAttrs (attrs set) call.
type scope struct {
	group string
	attrs []slog.Attr
}

// Compile-time check.
var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler creates a handler that wraps inner.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{inner: inner, redactor: redactor}
}

// Enabled delegates to the inner handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rebuilds the record with bound and inline attributes redacted and
// nested under their groups, then passes it on.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	var tail []slog.Attr
	record.Attrs(func(a slog.Attr) bool {
		tail = append(tail, h.redactAttr(a))
		return true
	})

	for i := len(h.scopes) - 1; i >= 0; i-- {
		s := h.scopes[i]
		if s.group != "" {
			if len(tail) > 0 {
				tail = []slog.Attr{{Key: s.group, Value: slog.GroupValue(tail...)}}
			}
			continue
		}
		bound := make([]slog.Attr, 0, len(s.attrs)+len(tail))
		for _, a := range s.attrs {
			bound = append(bound, h.redactAttr(a))
		}
		tail = append(bound, tail...)
	}

	out := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	out.AddAttrs(tail...)
	return h.inner.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	return h.with(scope{attrs: slices.Clone(attrs)})
}

// WithGroup implements slog.Handler.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.with(scope{group: name})
}

func (h *RedactingHandler) with(s scope) *RedactingHandler {
	return &RedactingHandler{
		inner:    h.inner,
		redactor: h.redactor,
		scopes:   append(slices.Clip(h.scopes), s),
	}
}

// redactAttr resolves a and redacts its string form, recursing into groups.
func (h *RedactingHandler) redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(h.redactor.Redact(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = h.redactAttr(ga)
		}
		a.Value = slog.GroupValue(redacted...)
	case slog.KindAny:
		// Errors and other values are only replaced when their text changes.
		s := a.Value.String()
		if r := h.redactor.Redact(s); r != s {
			a.Value = slog.StringValue(r)
		}
	}
	return a
}
