package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ContextProvider returns attributes stamped onto every record, such as the
// current tick.
type ContextProvider func() []slog.Attr

// ContextHandler appends provider attributes to each record. The provider is
// shared with every handler derived through WithAttrs or WithGroup, so
// SetProvider also reaches component loggers handed out earlier.
//
// Keys the record already carries win over provider keys.
type ContextHandler struct {
	inner    slog.Handler
	provider *atomic.Pointer[ContextProvider]
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	h := &ContextHandler{inner: inner, provider: new(atomic.Pointer[ContextProvider])}
	h.SetProvider(provider)
	return h
}

// SetProvider swaps the provider; nil stops stamping.
func (h *ContextHandler) SetProvider(p ContextProvider) {
	if p == nil {
		h.provider.Store(nil)
		return
	}
	h.provider.Store(&p)
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	p := h.provider.Load()
	if p == nil {
		return h.inner.Handle(ctx, r)
	}
	attrs := (*p)()
	if len(attrs) == 0 {
		return h.inner.Handle(ctx, r)
	}

	seen := make(map[string]struct{}, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		seen[a.Key] = struct{}{}
		return true
	})
	r = r.Clone()
	for _, a := range attrs {
		if _, dup := seen[a.Key]; !dup {
			r.AddAttrs(a)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
