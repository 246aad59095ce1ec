// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"bytes"
	"io"
)

// Body is the source of a response payload.
type Body interface {
	io.Reader

	// Size returns the exact number of bytes the body produces, or -1 if
	// it is not known before the body has been read.
	Size() int64
}

type body struct {
	io.Reader
	size int64
}

func (b body) Size() int64 {
	return b.size
}

// FixedLength returns a Body which promises to produce exactly n bytes
// from r.
func FixedLength(r io.Reader, n int64) Body {
	return body{Reader: r, size: n}
}

// UnknownLength returns a Body whose size is only known once r is drained.
func UnknownLength(r io.Reader) Body {
	return body{Reader: r, size: -1}
}

// Bytes returns a fixed length Body over b.
func Bytes(b []byte) Body {
	return FixedLength(bytes.NewReader(b), int64(len(b)))
}

// NoBody is an empty fixed length Body.
var NoBody Body = body{Reader: eofReader{}, size: 0}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) {
	return 0, io.EOF
}
