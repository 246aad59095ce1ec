// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package try

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	t.Run("will update the error ref value", func(t *testing.T) {
		t.Run("if a panic is recovered and the ref is nil", func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err)
				panic("hello world")
			}

			err := f()

			var perr PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "hello world", perr.Value) {
				return
			}
			if !assert.NotEmpty(t, perr.Stack) {
				return
			}
			if !assert.Nil(t, perr.Unwrap()) {
				return
			}
		})

		t.Run("if a panic is recovered and the ref is not nil", func(t *testing.T) {
			funcErr := errors.New("error value")
			panicErr := errors.New("panic error")
			f := func() (err error) {
				defer Recover(&err)
				err = funcErr
				panic(panicErr)
			}

			err := f()

			if !assert.ErrorIs(t, err, funcErr) {
				return
			}
			if !assert.ErrorIs(t, err, panicErr) {
				return
			}
		})
	})

	t.Run("will not update the error ref value", func(t *testing.T) {
		t.Run("if no panic occurred", func(t *testing.T) {
			f := func() (err error) {
				defer Recover(&err)
				return nil
			}

			err := f()
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}

type closeFunc func() error

func (f closeFunc) Close() error {
	return f()
}

func TestClose(t *testing.T) {
	t.Run("will not update the error ref value", func(t *testing.T) {
		t.Run("if the closer succeeds", func(t *testing.T) {
			f := func() (err error) {
				defer Close(&err, closeFunc(func() error { return nil }))
				return nil
			}

			if !assert.Nil(t, f()) {
				return
			}
		})

		t.Run("if the closer is nil", func(t *testing.T) {
			f := func() (err error) {
				defer Close(&err, nil)
				return nil
			}

			if !assert.Nil(t, f()) {
				return
			}
		})
	})

	t.Run("will join a CloseError", func(t *testing.T) {
		t.Run("if the closer fails", func(t *testing.T) {
			funcErr := errors.New("func failed")
			closeErr := errors.New("close failed")
			f := func() (err error) {
				defer Close(&err, closeFunc(func() error { return closeErr }))
				return funcErr
			}

			err := f()

			var cerr CloseError
			if !assert.ErrorAs(t, err, &cerr) {
				return
			}
			if !assert.ErrorIs(t, err, closeErr) {
				return
			}
			if !assert.ErrorIs(t, err, funcErr) {
				return
			}
		})
	})
}
