// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"
)

// TimeFormat is the IMF-fixdate layout used for Date and Last-Modified.
const TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// DefaultBufferSize is the body streaming buffer size used when none is given.
const DefaultBufferSize = 32 << 10

// Framing is the mechanism used to delimit a response body.
type Framing int

const (
	// FramingLength delimits the body with a Content-Length header.
	FramingLength Framing = iota

	// FramingChunked uses the chunked transfer coding.
	FramingChunked

	// FramingClose delimits the body by closing the connection. It is only
	// used for unknown length bodies sent to HTTP/1.0 clients.
	FramingClose
)

// String implements the [fmt.Stringer] interface.
func (f Framing) String() string {
	switch f {
	case FramingLength:
		return "content-length"
	case FramingChunked:
		return "chunked"
	default:
		return "close"
	}
}

// ResponseHead is the status line and header fields of a response.
type ResponseHead struct {
	Status int

	// Reason defaults to StatusText(Status) when empty.
	Reason string

	// Header holds the fields set by the caller. Date, Content-Length,
	// Transfer-Encoding and Connection are owned by the Framer and are
	// dropped from Header when the head is written.
	Header Header
}

// NewResponseHead returns a head for the given status.
func NewResponseHead(status int) *ResponseHead {
	return &ResponseHead{Status: status}
}

// Options describe the request being answered.
type Options struct {
	// Version of the request. Unknown length bodies are sent chunked only
	// to HTTP/1.1 clients.
	Version Version

	// OmitBody is set for HEAD requests. Headers are computed exactly as
	// they would be without it but no body bytes are written.
	OmitBody bool

	// KeepAlive reports whether the connection should persist after this
	// response.
	KeepAlive bool
}

// Outcome describes a written response.
type Outcome struct {
	Framing Framing

	// KeepAlive is false if the connection must be closed after this
	// response, either because it was requested or because the framing
	// requires it.
	KeepAlive bool

	// BodyBytes is the number of payload bytes written.
	BodyBytes int64
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// ServerName sets the value of the Server header. An empty name omits it.
func ServerName(name string) FramerOption {
	return func(f *Framer) {
		f.server = name
	}
}

// Clock sets the time source for the Date header.
func Clock(now func() time.Time) FramerOption {
	return func(f *Framer) {
		f.now = now
	}
}

// Framer writes responses onto a connection.
type Framer struct {
	w      *bufio.Writer
	buf    []byte
	head   []byte
	now    func() time.Time
	server string
}

// NewFramer returns a Framer writing to w, streaming bodies through a
// buffer of bufSize bytes.
func NewFramer(w io.Writer, bufSize int, opts ...FramerOption) *Framer {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	f := &Framer{
		w:   bufio.NewWriterSize(w, bufSize),
		buf: make([]byte, bufSize),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Frame returns the framing and connection persistence that a response
// carrying a body of the given size would use.
func Frame(size int64, opts Options) (Framing, bool) {
	switch {
	case size >= 0:
		return FramingLength, opts.KeepAlive
	case opts.Version.AtLeast(1, 1):
		return FramingChunked, opts.KeepAlive
	default:
		return FramingClose, false
	}
}

// AppendHead appends the serialized head of a response to b. The same
// head is produced for a GET and a HEAD of the same resource since the
// framing only depends on body size and request version.
func (f *Framer) AppendHead(b []byte, head *ResponseHead, size int64, opts Options) []byte {
	framing, keepAlive := Frame(size, opts)

	reason := head.Reason
	if reason == "" {
		reason = StatusText(head.Status)
	}
	b = append(b, "HTTP/1.1 "...)
	b = strconv.AppendInt(b, int64(head.Status), 10)
	b = append(b, ' ')
	b = append(b, reason...)
	b = append(b, '\r', '\n')

	b = appendField(b, "Date", f.now().UTC().Format(TimeFormat))
	if f.server != "" {
		b = appendField(b, "Server", f.server)
	}

	hasType := false
	for _, fd := range head.Header.fields {
		switch {
		case isFramerOwned(fd.Name):
			continue
		case strings.EqualFold(fd.Name, "Content-Type"):
			hasType = true
		}
		b = appendField(b, fd.Name, fd.Value)
	}
	if !hasType {
		b = appendField(b, "Content-Type", "application/octet-stream")
	}

	switch framing {
	case FramingLength:
		b = append(b, "Content-Length: "...)
		b = strconv.AppendInt(b, size, 10)
		b = append(b, '\r', '\n')
	case FramingChunked:
		b = appendField(b, "Transfer-Encoding", "chunked")
	}

	if keepAlive {
		b = appendField(b, "Connection", "keep-alive")
	} else {
		b = appendField(b, "Connection", "close")
	}
	return append(b, '\r', '\n')
}

// WriteResponse writes head followed by body and flushes the connection.
// The head is written in full before any body byte. A body error, write
// error or ContentLengthMismatchError leaves the connection in an unknown
// state and the caller must close it.
func (f *Framer) WriteResponse(head *ResponseHead, body Body, opts Options) (Outcome, error) {
	size := body.Size()
	framing, keepAlive := Frame(size, opts)
	out := Outcome{Framing: framing, KeepAlive: keepAlive}

	f.head = f.AppendHead(f.head[:0], head, size, opts)
	_, err := f.w.Write(f.head)
	if err != nil {
		return out, WriteError{Cause: err}
	}

	if !opts.OmitBody {
		out.BodyBytes, err = f.writeBody(body, framing)
		if err != nil {
			out.KeepAlive = false
			// Whatever was produced is still pushed out. The client can only
			// tell the body is incomplete once the connection closes.
			f.w.Flush()
			return out, err
		}
	}

	err = f.w.Flush()
	if err != nil {
		out.KeepAlive = false
		return out, WriteError{Cause: err}
	}
	return out, nil
}

func (f *Framer) writeBody(body Body, framing Framing) (int64, error) {
	switch framing {
	case FramingChunked:
		return EncodeChunked(f.w, body, f.buf, Header{})
	case FramingClose:
		return pump(f.w, body, f.buf, -1)
	}

	size := body.Size()
	n, err := pump(f.w, body, f.buf, size)
	if err != nil {
		return n, err
	}
	if n < size {
		return n, ContentLengthMismatchError{Declared: size, Produced: n}
	}

	// a source which keeps producing past the declared length is an error
	var extra [1]byte
	m, _ := body.Read(extra[:])
	if m > 0 {
		return n, ContentLengthMismatchError{Declared: size, Produced: n + int64(m)}
	}
	return n, nil
}

func isFramerOwned(name string) bool {
	for _, owned := range [...]string{"Date", "Content-Length", "Transfer-Encoding", "Connection"} {
		if strings.EqualFold(name, owned) {
			return true
		}
	}
	return false
}

func appendField(b []byte, name, value string) []byte {
	b = append(b, name...)
	b = append(b, ": "...)
	b = append(b, value...)
	return append(b, '\r', '\n')
}
