// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"errors"
	"io"
)

// ErrBufferFull is returned by Reader.Fill when the buffer has grown to
// its maximum size and none of it has been consumed.
var ErrBufferFull = errors.New("http1: read buffer full")

// Reader buffers bytes received from a connection. Unlike bufio.Reader it
// exposes the unread part of its buffer so a parser can scan a request in
// place and consume it only once it is complete.
type Reader struct {
	src  io.Reader
	buf  []byte
	r, w int
	max  int
}

// NewReader returns a Reader with an initial buffer of size bytes which may
// grow up to max bytes.
func NewReader(src io.Reader, size, max int) *Reader {
	if size <= 0 {
		size = 4096
	}
	if max < size {
		max = size
	}
	return &Reader{
		src: src,
		buf: make([]byte, size),
		max: max,
	}
}

// Buffered returns the unread bytes. The slice is only valid until the
// next call to Fill, Discard or Read.
func (r *Reader) Buffered() []byte {
	return r.buf[r.r:r.w]
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return r.w - r.r
}

// Discard skips the next n buffered bytes and returns how many were skipped.
func (r *Reader) Discard(n int) int {
	if n > r.Len() {
		n = r.Len()
	}
	r.r += n
	if r.r == r.w {
		r.r, r.w = 0, 0
	}
	return n
}

// Fill performs exactly one read from the underlying source, appending to
// the unread bytes. The buffer is compacted first and grown when full.
func (r *Reader) Fill() (int, error) {
	if r.r > 0 {
		copy(r.buf, r.buf[r.r:r.w])
		r.w -= r.r
		r.r = 0
	}
	if r.w == len(r.buf) {
		if len(r.buf) >= r.max {
			return 0, ErrBufferFull
		}
		size := 2 * len(r.buf)
		if size > r.max {
			size = r.max
		}
		buf := make([]byte, size)
		copy(buf, r.buf[:r.w])
		r.buf = buf
	}

	n, err := r.src.Read(r.buf[r.w:])
	if n < 0 {
		return 0, errors.New("http1: source returned negative count")
	}
	r.w += n
	return n, err
}

// Read implements the io.Reader interface, serving buffered bytes before
// reading from the underlying source.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.Len() == 0 {
		if len(p) >= len(r.buf) {
			return r.src.Read(p)
		}
		n, err := r.Fill()
		if n == 0 {
			return 0, err
		}
	}
	n := copy(p, r.Buffered())
	r.Discard(n)
	return n, nil
}
