// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelslog correlates log records with the active trace.
package otelslog

import (
	"context"
	"log/slog"

	"github.com/z5labs/fileserver/pkg/slogfield"

	"go.opentelemetry.io/otel/trace"
)

// Handler wraps another slog.Handler and adds an "otel" group holding the
// trace and span IDs to every record logged with a span in its context.
type Handler struct {
	next slog.Handler
}

// NewHandler returns a Handler passing records on to next.
func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

// New is shorthand for slog.New(NewHandler(h)).
func New(h slog.Handler) *slog.Logger {
	return slog.New(NewHandler(h))
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.next.Enabled(ctx, lvl)
}

// Handle implements the slog.Handler interface.
func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return h.next.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(
		slog.Group(
			"otel",
			slogfield.String("trace_id", sc.TraceID().String()),
			slogfield.String("span_id", sc.SpanID().String()),
			slogfield.Bool("sampled", sc.IsSampled()),
		),
	)
	return h.next.Handle(ctx, r)
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewHandler(h.next.WithAttrs(attrs))
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	return NewHandler(h.next.WithGroup(name))
}
