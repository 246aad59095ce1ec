// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"log/slog"
	"time"

	"github.com/z5labs/fileserver/listing"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Defaults used when an option is not given or is given a zero value.
const (
	DefaultIdleTimeout     = 30 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMaxDiscardBytes = 64 << 10
	DefaultServerName      = "fileserver"

	// a connection accepted less than this long ago is not closed as
	// idle by Shutdown
	defaultNewConnGrace = 5 * time.Second
)

type options struct {
	logHandler      slog.Handler
	idleTimeout     time.Duration
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	maxRequests     int
	maxRequestLine  int
	maxHeaderBytes  int
	maxDiscard      int64
	bufferSize      int
	serverName      string
	renderer        listing.Renderer
	tracerProvider  trace.TracerProvider
	meterProvider   metric.MeterProvider
	propagator      propagation.TextMapPropagator
	now             func() time.Time
	newConnGrace    time.Duration
}

// Option configures a Server.
type Option func(*options)

// LogHandler sets the handler for all server logs. By default nothing is
// logged.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// IdleTimeout is how long a connection may wait for the first byte of
// its next request.
func IdleTimeout(d time.Duration) Option {
	return func(o *options) {
		o.idleTimeout = d
	}
}

// RequestTimeout bounds the time from the first byte of a request until
// its response has been written.
func RequestTimeout(d time.Duration) Option {
	return func(o *options) {
		o.requestTimeout = d
	}
}

// ShutdownTimeout is the grace period Run gives in-flight responses once
// its context is cancelled.
func ShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		o.shutdownTimeout = d
	}
}

// MaxRequestsPerConn closes a connection after its nth response. Zero
// means unlimited.
func MaxRequestsPerConn(n int) Option {
	return func(o *options) {
		o.maxRequests = n
	}
}

// MaxRequestLine bounds the length of the request line.
func MaxRequestLine(n int) Option {
	return func(o *options) {
		o.maxRequestLine = n
	}
}

// MaxHeaderBytes bounds the size of the header section.
func MaxHeaderBytes(n int) Option {
	return func(o *options) {
		o.maxHeaderBytes = n
	}
}

// MaxDiscardBytes is the largest request body that is read and dropped to
// keep a connection alive. Larger bodies close the connection after the
// response.
func MaxDiscardBytes(n int64) Option {
	return func(o *options) {
		o.maxDiscard = n
	}
}

// BufferSize sets the size of the buffer response bodies are streamed
// through.
func BufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// ServerName sets the Server header value. An empty name omits the header.
func ServerName(name string) Option {
	return func(o *options) {
		o.serverName = name
	}
}

// ListingRenderer sets how directory listings are rendered.
//
// Default is [listing.HTML].
func ListingRenderer(r listing.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// TracerProvider sets the provider of the per request spans.
//
// Default is the global provider.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// MeterProvider sets the provider of the server metrics.
//
// Default is the global provider.
func MeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// Propagator sets how trace context is extracted from request headers.
//
// Default is the global propagator.
func Propagator(p propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.propagator = p
	}
}

func clock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func newConnGrace(d time.Duration) Option {
	return func(o *options) {
		o.newConnGrace = d
	}
}
