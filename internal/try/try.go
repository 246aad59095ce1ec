// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package try converts panics and close failures into errors.
package try

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
)

// PanicError is a recovered panic.
type PanicError struct {
	Value any

	// Stack of the panicking goroutine at the point of recovery.
	Stack []byte
}

// Error implements the [builtin.error] interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("recovered from panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover must be deferred directly. It joins a recovered panic onto *err.
func Recover(err *error) {
	r := recover()
	if r == nil {
		return
	}

	perr := PanicError{
		Value: r,
		Stack: debug.Stack(),
	}
	*err = errors.Join(*err, perr)
}

// CloseError wraps the failure of an io.Closer.
type CloseError struct {
	Cause error
}

// Error implements the [builtin.error] interface.
func (e CloseError) Error() string {
	return fmt.Sprintf("failed to close: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e CloseError) Unwrap() error {
	return e.Cause
}

// Close closes c and joins any failure onto *err as a CloseError. A nil
// c is ignored.
func Close(err *error, c io.Closer) {
	if c == nil {
		return
	}
	cerr := c.Close()
	if cerr == nil {
		return
	}
	*err = errors.Join(*err, CloseError{Cause: cerr})
}
