package debuglog

import (
	"context"
	"log/slog"
	"strings"
)

// Handler passes records to an inner handler and copies them into a Ring.
type Handler struct {
	inner  slog.Handler
	ring   *Ring
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewHandler tees records at or above level into ring.
func NewHandler(inner slog.Handler, ring *Ring, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelDebug
	}
	return &Handler{inner: inner, ring: ring, level: level}
}

func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return lvl >= h.level.Level() || h.inner.Enabled(ctx, lvl)
}

func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= h.level.Level() {
		attrs := make(map[string]string, len(h.attrs)+rec.NumAttrs())
		prefix := strings.Join(h.groups, ".")
		for _, a := range h.attrs {
			addAttr(attrs, "", a)
		}
		rec.Attrs(func(a slog.Attr) bool {
			addAttr(attrs, prefix, a)
			return true
		})
		if len(attrs) == 0 {
			attrs = nil
		}
		h.ring.Add(Entry{
			Time:    rec.Time.UTC(),
			Level:   rec.Level.String(),
			Message: rec.Message,
			Attrs:   attrs,
		})
	}
	if h.inner.Enabled(ctx, rec.Level) {
		return h.inner.Handle(ctx, rec)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.inner = h.inner.WithAttrs(attrs)
	prefix := strings.Join(h.groups, ".")
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if prefix != "" {
			a.Key = prefix + "." + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.inner = h.inner.WithGroup(name)
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := a.Key
	if prefix != "" && key != "" {
		key = prefix + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, key, ga)
		}
		return
	}
	if key == "" {
		return
	}
	dst[key] = a.Value.String()
}
