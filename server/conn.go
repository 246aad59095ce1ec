// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/z5labs/fileserver/http1"
	"github.com/z5labs/fileserver/internal/try"
	"github.com/z5labs/fileserver/listing"
	"github.com/z5labs/fileserver/pkg/slogfield"
	"github.com/z5labs/fileserver/resolve"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	initialReadBuffer = 4 << 10

	// errorWriteGrace is how long an error response may take once the
	// request deadline has already passed.
	errorWriteGrace = time.Second

	lingerTimeout = 500 * time.Millisecond
	lingerBytes   = 256 << 10
)

// ConnState is the state of a client connection.
type ConnState int32

const (
	// StateAwaitingRequest is a new connection waiting for its first byte.
	StateAwaitingRequest ConnState = iota

	// StateParsing is reading a request head.
	StateParsing

	// StateResolving is mapping the request target onto a resource.
	StateResolving

	// StateResponding is writing a response.
	StateResponding

	// StateIdle is a persistent connection waiting for its next request.
	StateIdle

	// StateClosing is a connection being torn down.
	StateClosing
)

var connStateNames = [...]string{
	StateAwaitingRequest: "awaiting_request",
	StateParsing:         "parsing",
	StateResolving:       "resolving",
	StateResponding:      "responding",
	StateIdle:            "idle",
	StateClosing:         "closing",
}

// String implements the [fmt.Stringer] interface.
func (s ConnState) String() string {
	if s < 0 || int(s) >= len(connStateNames) {
		return "ConnState(" + strconv.Itoa(int(s)) + ")"
	}
	return connStateNames[s]
}

type stateFn func(context.Context, *conn) stateFn

// response is everything needed to answer one request.
type response struct {
	head    *http1.ResponseHead
	body    http1.Body
	release func()
	cause   error
}

type conn struct {
	srv *Server
	rwc net.Conn
	log *slog.Logger

	r *http1.Reader
	p *http1.Parser
	f *http1.Framer

	state    atomic.Int32
	accepted time.Time
	served   int

	// per request, reset by startRequest
	req        *http1.Request
	reqCtx     context.Context
	span       trace.Span
	start      time.Time
	parseErr   error
	closeAfter bool
	resp       response
}

func newConn(s *Server, rwc net.Conn) *conn {
	bufSize := s.limits.BufferSize()
	initial := initialReadBuffer
	if initial > bufSize {
		initial = bufSize
	}
	return &conn{
		srv:      s,
		rwc:      rwc,
		log:      s.log.With(slogfield.RemoteAddr(rwc.RemoteAddr())),
		accepted: time.Now(),
		r:        http1.NewReader(rwc, initial, bufSize),
		p:        http1.NewParser(s.limits),
		f: http1.NewFramer(
			rwc,
			s.bufferSize,
			http1.ServerName(s.serverName),
			http1.Clock(s.now),
		),
	}
}

func (c *conn) setState(ctx context.Context, state ConnState) {
	prev := ConnState(c.state.Swap(int32(state)))
	c.log.DebugContext(
		ctx,
		"connection state changed",
		slogfield.String("from", prev.String()),
		slogfield.String("to", state.String()),
	)
}

func (c *conn) getState() ConnState {
	return ConnState(c.state.Load())
}

// isIdle reports whether the connection is between requests and may be
// closed by a shutdown. A new connection only counts as idle once its
// grace period has passed since its first request may still be in flight.
func (c *conn) isIdle() bool {
	switch c.getState() {
	case StateIdle:
		return true
	case StateAwaitingRequest:
		return c.newConnGraceExpired()
	default:
		return false
	}
}

func (c *conn) newConnGraceExpired() bool {
	return time.Since(c.accepted) >= c.srv.newConnGrace
}

func (c *conn) serve(ctx context.Context) {
	c.srv.active.Add(ctx, 1)

	var err error
	defer func() {
		if err != nil {
			var perr try.PanicError
			if errors.As(err, &perr) {
				c.log.ErrorContext(ctx, "recovered from panic", slogfield.Error(err), slogfield.String("stack", string(perr.Stack)))
			}
		}
		c.finishRequest(ctx)
		c.rwc.Close()
		c.srv.active.Add(ctx, -1)
		c.srv.untrackConn(c)
	}()
	defer try.Recover(&err)

	c.log.DebugContext(ctx, "accepted connection")
	for state := awaitRequest; state != nil; {
		state = state(ctx, c)
	}
}

func awaitRequest(ctx context.Context, c *conn) stateFn {
	c.setState(ctx, StateAwaitingRequest)
	if c.srv.shuttingDown() && c.newConnGraceExpired() {
		return closing
	}
	return c.waitForRequest(ctx)
}

func idle(ctx context.Context, c *conn) stateFn {
	c.setState(ctx, StateIdle)
	if c.srv.shuttingDown() {
		return closing
	}
	return c.waitForRequest(ctx)
}

// waitForRequest blocks until the first byte of the next request is
// buffered or the idle timeout elapses. Pipelined bytes already buffered
// start the next request immediately.
func (c *conn) waitForRequest(ctx context.Context) stateFn {
	if c.r.Len() > 0 {
		return parsing
	}

	c.rwc.SetDeadline(time.Now().Add(c.srv.idleTimeout))
	_, err := c.r.Fill()
	if c.r.Len() > 0 {
		return parsing
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			c.log.DebugContext(ctx, "idle timeout elapsed", slogfield.Duration("timeout", c.srv.idleTimeout))
		} else {
			c.log.DebugContext(ctx, "failed to read from connection", slogfield.Error(err))
		}
	}
	return closing
}

func parsing(ctx context.Context, c *conn) stateFn {
	c.setState(ctx, StateParsing)
	c.start = c.srv.now()
	c.rwc.SetDeadline(time.Now().Add(c.srv.requestTimeout))

	for {
		res, err := c.p.Parse(c.r.Buffered())
		if err != nil {
			c.parseErr = err
			return rejectRequest
		}
		if res.State == http1.Complete {
			c.r.Discard(res.N)
			c.startRequest(ctx, res.Request)
			return readRequestBody
		}

		n, err := c.r.Fill()
		if n > 0 {
			continue
		}
		var ne net.Error
		switch {
		case errors.Is(err, http1.ErrBufferFull):
			c.parseErr = http1.ParseError{Kind: http1.HeaderTooLarge}
			return rejectRequest
		case errors.As(err, &ne) && ne.Timeout():
			c.parseErr = http1.ParseError{Kind: http1.RequestTimeout}
			return rejectRequest
		case err != nil:
			c.log.DebugContext(ctx, "connection ended mid request", slogfield.Int("buffered_bytes", c.r.Len()), slogfield.Error(err))
			return closing
		}
	}
}

func (c *conn) startRequest(ctx context.Context, req *http1.Request) {
	c.req = req
	c.closeAfter = false
	c.resp = response{}

	reqCtx := c.srv.propagator.Extract(ctx, headerCarrier{h: &req.Header})
	c.reqCtx, c.span = c.srv.tracer.Start(
		reqCtx,
		"fileserver.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Target),
			attribute.String("network.protocol.version", fmt.Sprintf("%d.%d", req.Version.Major, req.Version.Minor)),
			attribute.String("client.address", c.rwc.RemoteAddr().String()),
		),
	)
}

// readRequestBody drops the body of a request so the next request on the
// connection can be parsed. Bodies that cannot be delimited or are too
// large to drop close the connection after the response instead.
func readRequestBody(ctx context.Context, c *conn) stateFn {
	if c.req.Header.Has("Transfer-Encoding") {
		c.closeAfter = true
		return resolving
	}

	values := c.req.Header.Values("Content-Length")
	if len(values) == 0 {
		return resolving
	}
	n, err := contentLength(values)
	if err != nil {
		c.closeAfter = true
		c.resp = c.errorResponse(http1.StatusBadRequest, err)
		return responding
	}
	if n == 0 {
		return resolving
	}
	if n > c.srv.maxDiscard {
		c.closeAfter = true
		return resolving
	}

	_, err = io.CopyN(io.Discard, c.r, n)
	if err != nil {
		c.log.DebugContext(c.reqCtx, "failed to discard request body", slogfield.Int64("content_length", n), slogfield.Error(err))
		return closing
	}
	return resolving
}

var errInvalidContentLength = errors.New("server: invalid Content-Length")

func contentLength(values []string) (int64, error) {
	var n int64 = -1
	for _, v := range values {
		m, err := strconv.ParseInt(v, 10, 64)
		if err != nil || m < 0 {
			return 0, errInvalidContentLength
		}
		if n >= 0 && m != n {
			return 0, errInvalidContentLength
		}
		n = m
	}
	return n, nil
}

func resolving(ctx context.Context, c *conn) stateFn {
	c.setState(ctx, StateResolving)

	switch c.req.Method {
	case http1.MethodGet, http1.MethodHead:
	default:
		c.resp = c.errorResponse(http1.StatusNotImplemented, nil)
		c.resp.head.Header.Add("Allow", "GET, HEAD")
		return responding
	}

	res, err := c.srv.resolver.Resolve(c.req.Target)
	if err != nil {
		c.resp = c.resolveErrorResponse(err)
		return responding
	}

	switch res.Kind {
	case resolve.Redirect:
		c.resp = c.errorResponse(http1.StatusMovedPermanently, nil)
		c.resp.head.Header.Add("Location", res.Location)
	case resolve.Directory:
		c.resp = c.listingResponse(res)
	default:
		c.resp = c.fileResponse(res)
	}
	return responding
}

func (c *conn) fileResponse(res *resolve.Resource) response {
	f, info, err := c.srv.resolver.Open(res)
	if err != nil {
		return c.resolveErrorResponse(err)
	}

	head := http1.NewResponseHead(http1.StatusOK)
	head.Header.Add("Content-Type", res.ContentType)
	head.Header.Add("Last-Modified", info.ModTime().UTC().Format(http1.TimeFormat))
	return response{
		head:    head,
		body:    http1.FixedLength(f, info.Size()),
		release: func() { f.Close() },
	}
}

func (c *conn) listingResponse(res *resolve.Resource) response {
	entries, err := listing.ReadDir(res.Path)
	if err != nil {
		status := http1.StatusInternalServerError
		if errors.Is(err, fs.ErrPermission) {
			status = http1.StatusForbidden
		}
		return c.errorResponse(status, err)
	}

	head := http1.NewResponseHead(http1.StatusOK)
	head.Header.Add("Content-Type", res.ContentType)
	head.Header.Add("Last-Modified", res.ModTime.UTC().Format(http1.TimeFormat))

	// the listing is never rendered for HEAD but is framed as if it were
	if c.req.IsHead() {
		return response{head: head, body: http1.UnknownLength(eofReader{})}
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(c.srv.renderer.Render(pw, res.URLPath, entries))
	}()
	return response{
		head:    head,
		body:    http1.UnknownLength(pr),
		release: func() { pr.Close() },
	}
}

func (c *conn) resolveErrorResponse(err error) response {
	var rerr resolve.Error
	if errors.As(err, &rerr) {
		return c.errorResponse(rerr.Status, err)
	}
	return c.errorResponse(http1.StatusInternalServerError, err)
}

// errorResponse builds a plain text response for status. The cause is
// logged but never sent to the client.
func (c *conn) errorResponse(status int, cause error) response {
	head := http1.NewResponseHead(status)
	head.Header.Add("Content-Type", "text/plain; charset=utf-8")
	return response{
		head:  head,
		body:  http1.Bytes([]byte(strconv.Itoa(status) + " " + http1.StatusText(status) + "\n")),
		cause: cause,
	}
}

func responding(ctx context.Context, c *conn) stateFn {
	c.setState(ctx, StateResponding)

	keepAlive := c.req.KeepAlive() && !c.closeAfter && !c.srv.shuttingDown()
	if c.srv.maxRequests > 0 && c.served+1 >= c.srv.maxRequests {
		keepAlive = false
	}

	out, err := c.f.WriteResponse(c.resp.head, c.resp.body, http1.Options{
		Version:   c.req.Version,
		OmitBody:  c.req.IsHead(),
		KeepAlive: keepAlive,
	})
	c.served++
	c.record(out, err)
	c.finishRequest(ctx)

	if err != nil || !out.KeepAlive {
		return closing
	}
	return idle
}

// rejectRequest answers a request whose head could not be parsed. The
// connection is always closed afterwards since the stream cannot be
// resynchronised.
func rejectRequest(ctx context.Context, c *conn) stateFn {
	var perr http1.ParseError
	status := http1.StatusBadRequest
	if errors.As(c.parseErr, &perr) {
		status = perr.Status()
	}
	c.log.WarnContext(ctx, "rejected request", slogfield.Status(status), slogfield.Error(c.parseErr))

	if perr.Kind == http1.RequestTimeout {
		c.rwc.SetWriteDeadline(time.Now().Add(errorWriteGrace))
	}

	resp := c.errorResponse(status, c.parseErr)
	out, err := c.f.WriteResponse(resp.head, resp.body, http1.Options{Version: http1.HTTP11})
	c.served++
	c.srv.requests.Add(ctx, 1, metric.WithAttributes(attribute.Int("http.response.status_code", status)))
	c.srv.bodyBytes.Add(ctx, out.BodyBytes)
	if err != nil {
		c.log.DebugContext(ctx, "failed to write error response", slogfield.Error(err))
	}
	return closing
}

// closing half closes the connection and drains what the client is still
// sending so the final response is not lost to a reset.
func closing(ctx context.Context, c *conn) stateFn {
	c.setState(ctx, StateClosing)

	cw, ok := c.rwc.(interface{ CloseWrite() error })
	if !ok {
		return nil
	}
	if err := cw.CloseWrite(); err != nil {
		return nil
	}
	c.rwc.SetReadDeadline(time.Now().Add(lingerTimeout))
	io.CopyN(io.Discard, c.rwc, lingerBytes)
	return nil
}

func (c *conn) record(out http1.Outcome, err error) {
	status := c.resp.head.Status
	elapsed := c.srv.now().Sub(c.start)
	ctx := c.reqCtx

	attrs := metric.WithAttributes(
		attribute.String("http.request.method", c.req.Method),
		attribute.Int("http.response.status_code", status),
	)
	c.srv.requests.Add(ctx, 1, attrs)
	c.srv.bodyBytes.Add(ctx, out.BodyBytes, attrs)

	c.span.SetAttributes(
		attribute.Int("http.response.status_code", status),
		attribute.Int64("http.response.body.size", out.BodyBytes),
		attribute.String("fileserver.framing", out.Framing.String()),
	)

	fields := []slog.Attr{
		slogfield.Method(c.req.Method),
		slogfield.Target(c.req.Target),
		slogfield.Status(status),
		slogfield.Int64("bytes", out.BodyBytes),
		slogfield.Duration("duration", elapsed),
	}

	switch {
	case err != nil:
		c.span.RecordError(err)
		c.span.SetStatus(codes.Error, err.Error())
		c.log.LogAttrs(ctx, slog.LevelError, "failed to write response", append(fields, slogfield.Error(err))...)
	case status >= http1.StatusInternalServerError:
		c.span.RecordError(c.resp.cause)
		c.span.SetStatus(codes.Error, http1.StatusText(status))
		c.log.LogAttrs(ctx, slog.LevelError, "handled request", append(fields, slogfield.Error(c.resp.cause))...)
	default:
		c.log.LogAttrs(ctx, slog.LevelInfo, "handled request", fields...)
	}
}

// finishRequest ends the span of the current request, if any. A request
// cut short by a panic or a lost connection still releases its resources.
func (c *conn) finishRequest(ctx context.Context) {
	if c.resp.release != nil {
		c.resp.release()
		c.resp.release = nil
	}
	if c.span != nil {
		c.span.End()
		c.span = nil
	}
	c.req = nil
	c.reqCtx = ctx
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}

// headerCarrier adapts a request header to a propagation.TextMapCarrier.
type headerCarrier struct {
	h *http1.Header
}

func (hc headerCarrier) Get(key string) string {
	return hc.h.Get(key)
}

func (hc headerCarrier) Set(key, value string) {
	hc.h.Set(key, value)
}

func (hc headerCarrier) Keys() []string {
	fields := hc.h.Fields()
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Name)
	}
	return keys
}
