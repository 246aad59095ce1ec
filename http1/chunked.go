// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"errors"
	"io"
	"strconv"
)

var errChunkedClosed = errors.New("http1: write to closed chunked writer")

// ChunkedWriter encodes everything written to it using the chunked transfer
// coding. Each non-empty Write becomes exactly one chunk; an empty Write
// produces nothing, so the only zero size chunk ever written is the one
// written by Close.
type ChunkedWriter struct {
	w io.Writer

	// Trailer fields are written after the terminating chunk by Close.
	Trailer Header

	hdr    []byte
	closed bool
}

// NewChunkedWriter returns a ChunkedWriter writing to w.
func NewChunkedWriter(w io.Writer) *ChunkedWriter {
	return &ChunkedWriter{
		w:   w,
		hdr: make([]byte, 0, 20),
	}
}

// Write implements the io.Writer interface.
func (cw *ChunkedWriter) Write(p []byte) (int, error) {
	if cw.closed {
		return 0, errChunkedClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	cw.hdr = strconv.AppendInt(cw.hdr[:0], int64(len(p)), 16)
	cw.hdr = append(cw.hdr, '\r', '\n')
	_, err := cw.w.Write(cw.hdr)
	if err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	if err != nil {
		return n, err
	}
	_, err = io.WriteString(cw.w, "\r\n")
	if err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the terminating zero size chunk, any trailer fields and the
// final CRLF. It must only be called once the body was produced in full;
// a body that failed part way must be abandoned by closing the connection
// instead.
func (cw *ChunkedWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true

	b := append(cw.hdr[:0], "0\r\n"...)
	for _, f := range cw.Trailer.fields {
		b = append(b, f.Name...)
		b = append(b, ": "...)
		b = append(b, f.Value...)
		b = append(b, '\r', '\n')
	}
	b = append(b, '\r', '\n')
	_, err := cw.w.Write(b)
	return err
}

// EncodeChunked streams src to dst in the chunked transfer coding, reading
// into buf and writing each read as one chunk before reading again. On
// success the terminator is written and the number of payload bytes is
// returned. If src fails, the error is returned as a BodyError and no
// terminator is written.
func EncodeChunked(dst io.Writer, src io.Reader, buf []byte, trailer Header) (int64, error) {
	cw := NewChunkedWriter(dst)
	cw.Trailer = trailer

	n, err := pump(cw, src, buf, -1)
	if err != nil {
		return n, err
	}
	err = cw.Close()
	if err != nil {
		return n, WriteError{Cause: err}
	}
	return n, nil
}

// pump copies from src to dst one buffer at a time. With limit >= 0 at
// most limit bytes are read. Read failures are reported as BodyError and
// write failures as WriteError.
func pump(dst io.Writer, src io.Reader, buf []byte, limit int64) (int64, error) {
	var written int64
	for limit < 0 || written < limit {
		p := buf
		if limit >= 0 && int64(len(p)) > limit-written {
			p = p[:limit-written]
		}

		n, rerr := src.Read(p)
		if n > 0 {
			_, werr := dst.Write(p[:n])
			if werr != nil {
				return written, WriteError{Cause: werr}
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, BodyError{Cause: rerr}
		}
	}
	return written, nil
}
