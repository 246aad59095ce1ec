// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import "fmt"

// ErrorKind classifies a ParseError.
type ErrorKind int

const (
	MalformedRequestLine ErrorKind = iota + 1
	MalformedHeader
	RequestLineTooLong
	HeaderTooLarge
	UnsupportedVersion
	RequestTimeout
)

// String implements the [fmt.Stringer] interface.
func (k ErrorKind) String() string {
	switch k {
	case MalformedRequestLine:
		return "malformed request line"
	case MalformedHeader:
		return "malformed header"
	case RequestLineTooLong:
		return "request line too long"
	case HeaderTooLarge:
		return "header section too large"
	case UnsupportedVersion:
		return "unsupported version"
	case RequestTimeout:
		return "request timeout"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ParseError is returned when a request head cannot be parsed. It always
// ends the connection it occurred on.
type ParseError struct {
	Kind   ErrorKind
	Detail string
}

// Error implements the [builtin.error] interface.
func (e ParseError) Error() string {
	if e.Detail == "" {
		return "http1: " + e.Kind.String()
	}
	return fmt.Sprintf("http1: %s: %q", e.Kind, e.Detail)
}

// Status returns the response status used to report e to the client.
func (e ParseError) Status() int {
	switch e.Kind {
	case HeaderTooLarge:
		return StatusRequestHeaderFieldsTooLarge
	case UnsupportedVersion:
		return StatusHTTPVersionNotSupported
	default:
		return StatusBadRequest
	}
}

// ContentLengthMismatchError occurs when a fixed length body produces a
// different number of bytes than it declared.
type ContentLengthMismatchError struct {
	Declared int64
	Produced int64
}

// Error implements the [builtin.error] interface.
func (e ContentLengthMismatchError) Error() string {
	if e.Produced > e.Declared {
		return fmt.Sprintf("http1: body produced more than the declared %d bytes", e.Declared)
	}
	return fmt.Sprintf("http1: body produced %d bytes, declared %d", e.Produced, e.Declared)
}

// BodyError wraps a failure of the body source while a response is being
// streamed.
type BodyError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e BodyError) Error() string {
	return fmt.Sprintf("http1: failed to read response body: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e BodyError) Unwrap() error {
	return e.Cause
}

// WriteError wraps a failure to write to the connection.
type WriteError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e WriteError) Error() string {
	return fmt.Sprintf("http1: failed to write response: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e WriteError) Unwrap() error {
	return e.Cause
}
