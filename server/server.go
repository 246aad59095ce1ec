// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package server serves files over HTTP/1.1 connections.
package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/z5labs/fileserver/http1"
	"github.com/z5labs/fileserver/listing"
	"github.com/z5labs/fileserver/pkg/noop"
	"github.com/z5labs/fileserver/pkg/slogfield"
	"github.com/z5labs/fileserver/resolve"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const instrumentationName = "github.com/z5labs/fileserver/server"

// ErrServerClosed is returned by Serve once Shutdown has been called.
var ErrServerClosed = errors.New("server: server closed")

// Resolver maps request targets onto resources.
type Resolver interface {
	Resolve(target string) (*resolve.Resource, error)
	Open(res *resolve.Resource) (*os.File, fs.FileInfo, error)
}

// Server accepts connections and answers GET and HEAD requests for the
// resources of its Resolver.
type Server struct {
	resolver Resolver
	renderer listing.Renderer
	log      *slog.Logger

	idleTimeout     time.Duration
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
	maxRequests     int
	maxDiscard      int64
	limits          http1.Limits
	bufferSize      int
	serverName      string
	now             func() time.Time
	newConnGrace    time.Duration

	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	requests   metric.Int64Counter
	bodyBytes  metric.Int64Counter
	active     metric.Int64UpDownCounter

	inShutdown atomic.Bool
	mu         sync.Mutex
	listeners  map[net.Listener]struct{}
	conns      map[*conn]struct{}
	wg         sync.WaitGroup
}

// New returns a Server answering requests with resources from r.
func New(r Resolver, opts ...Option) (*Server, error) {
	o := &options{
		logHandler:      noop.LogHandler{},
		idleTimeout:     DefaultIdleTimeout,
		requestTimeout:  DefaultRequestTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		maxDiscard:      DefaultMaxDiscardBytes,
		bufferSize:      http1.DefaultBufferSize,
		serverName:      DefaultServerName,
		renderer:        listing.HTML(),
		tracerProvider:  otel.GetTracerProvider(),
		meterProvider:   otel.GetMeterProvider(),
		propagator:      otel.GetTextMapPropagator(),
		now:             time.Now,
		newConnGrace:    defaultNewConnGrace,
	}
	for _, opt := range opts {
		opt(o)
	}

	meter := o.meterProvider.Meter(instrumentationName)
	requests, err := meter.Int64Counter(
		"fileserver.requests",
		metric.WithDescription("Number of responses written."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	bodyBytes, err := meter.Int64Counter(
		"fileserver.response.body.bytes",
		metric.WithDescription("Number of response body bytes written."),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter(
		"fileserver.connections.active",
		metric.WithDescription("Number of open client connections."),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, err
	}

	s := &Server{
		resolver:        r,
		renderer:        o.renderer,
		log:             slog.New(o.logHandler),
		idleTimeout:     orDefault(o.idleTimeout, DefaultIdleTimeout),
		requestTimeout:  orDefault(o.requestTimeout, DefaultRequestTimeout),
		shutdownTimeout: orDefault(o.shutdownTimeout, DefaultShutdownTimeout),
		maxRequests:     o.maxRequests,
		maxDiscard:      o.maxDiscard,
		limits: http1.Limits{
			MaxRequestLine: o.maxRequestLine,
			MaxHeaderBytes: o.maxHeaderBytes,
		},
		bufferSize:   orDefault(o.bufferSize, http1.DefaultBufferSize),
		serverName:   o.serverName,
		now:          o.now,
		newConnGrace: o.newConnGrace,
		tracer:       o.tracerProvider.Tracer(instrumentationName),
		propagator:   o.propagator,
		requests:     requests,
		bodyBytes:    bodyBytes,
		active:       active,
		listeners:    make(map[net.Listener]struct{}),
		conns:        make(map[*conn]struct{}),
	}
	return s, nil
}

func orDefault[T int | int64 | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Serve accepts connections on ln and serves each on its own goroutine.
// It returns ErrServerClosed once Shutdown is called. Cancelling ctx does
// not stop Serve, use Run for that.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.trackListener(ln) {
		return ErrServerClosed
	}
	defer s.untrackListener(ln)

	s.log.InfoContext(ctx, "accepting connections", slogfield.Addr(ln.Addr()))

	// connections outlive ctx so that cancellation results in a graceful
	// shutdown rather than dropped responses
	connCtx := context.WithoutCancel(ctx)

	var backoff time.Duration
	for {
		rwc, err := ln.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.log.WarnContext(ctx, "failed to accept connection", slogfield.Error(err), slogfield.Duration("retry_in", backoff))
				time.Sleep(backoff)
				continue
			}
			s.log.ErrorContext(ctx, "listener failed", slogfield.Error(err))
			return err
		}
		backoff = 0

		c := newConn(s, rwc)
		if !s.trackConn(c) {
			rwc.Close()
			return ErrServerClosed
		}
		go c.serve(connCtx)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		return time.Second
	}
	return d
}

// Shutdown stops accepting connections, closes idle ones and waits for
// active responses to complete. A connection which has not sent its first
// request is left open for a few seconds after it was accepted. Every response written after Shutdown is
// called carries "Connection: close". If ctx ends first the remaining
// connections are closed forcibly and the context error is returned
// without waiting for their goroutines to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.inShutdown.Store(true)
	var err error
	for ln := range s.listeners {
		cerr := ln.Close()
		if cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = errors.Join(err, cerr)
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		s.closeIdle()
		select {
		case <-done:
			return err
		case <-ctx.Done():
			s.closeAll()
			return errors.Join(err, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Run serves ln until ctx is cancelled and then shuts down gracefully,
// forcing remaining connections closed after the shutdown timeout.
func (s *Server) Run(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()

		s.log.InfoContext(gctx, "shutting down")
		defer s.log.InfoContext(gctx, "shut down")

		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), s.shutdownTimeout)
		defer cancel()
		err := s.Shutdown(sctx)
		if errors.Is(err, context.DeadlineExceeded) {
			s.log.WarnContext(gctx, "closed active connections after shutdown timeout", slogfield.Duration("timeout", s.shutdownTimeout))
			return nil
		}
		return err
	})
	g.Go(func() error {
		return s.Serve(ctx, ln)
	})

	err := g.Wait()
	if err == nil || errors.Is(err, ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) shuttingDown() bool {
	return s.inShutdown.Load()
}

func (s *Server) trackListener(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inShutdown.Load() {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrackListener(ln net.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners, ln)
}

// trackConn must succeed before the connection goroutine starts so that
// Shutdown never waits on a group which is still growing.
func (s *Server) trackConn(c *conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inShutdown.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrackConn(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) closeIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		if c.isIdle() {
			c.rwc.Close()
		}
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.rwc.Close()
	}
}
