// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fileserver

import (
	"io"
	"log/slog"

	"github.com/z5labs/fileserver/pkg/otelslog"
)

func newLogHandler(w io.Writer, cfg LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
	}

	var h slog.Handler
	switch cfg.Format {
	case LogFormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return otelslog.NewHandler(h)
}
