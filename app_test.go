// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fileserver

import (
	"context"
	"errors"
	"syscall"
	"testing"

	"github.com/z5labs/fileserver/internal/try"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	t.Run("will return a try.PanicError", func(t *testing.T) {
		t.Run("if the app panics", func(t *testing.T) {
			app := Recover(AppFunc(func(ctx context.Context) error {
				panic("hello world")
			}))

			err := app.Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "hello world", perr.Value) {
				return
			}
		})
	})

	t.Run("will return the app error", func(t *testing.T) {
		t.Run("if the app fails without panicking", func(t *testing.T) {
			appErr := errors.New("failed to run")
			app := Recover(AppFunc(func(ctx context.Context) error {
				return appErr
			}))

			err := app.Run(context.Background())
			if !assert.Equal(t, appErr, err) {
				return
			}
		})
	})
}

func TestWithSignalNotifications(t *testing.T) {
	t.Run("will propogate context cancellation", func(t *testing.T) {
		t.Run("if the parent context is cancelled", func(t *testing.T) {
			app := WithSignalNotifications(AppFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}), syscall.SIGUSR1)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := app.Run(ctx)
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
		})

		t.Run("if a signal is received", func(t *testing.T) {
			app := WithSignalNotifications(AppFunc(func(ctx context.Context) error {
				err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
				if err != nil {
					return err
				}
				<-ctx.Done()
				return ctx.Err()
			}), syscall.SIGUSR1)

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
		})
	})
}

func TestWithLifecycleHooks(t *testing.T) {
	t.Run("will return error", func(t *testing.T) {
		t.Run("if Lifecycle.PreRun fails", func(t *testing.T) {
			ran := false
			base := AppFunc(func(ctx context.Context) error {
				ran = true
				return nil
			})

			preRunErr := errors.New("failed to pre run")
			app := WithLifecycleHooks(base, Lifecycle{
				PreRun: LifecycleHookFunc(func(ctx context.Context) error {
					return preRunErr
				}),
			})

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, preRunErr) {
				return
			}
			if !assert.False(t, ran) {
				return
			}
		})

		t.Run("if the underlying app fails", func(t *testing.T) {
			baseErr := errors.New("failed to run app")
			base := AppFunc(func(ctx context.Context) error {
				return baseErr
			})

			app := WithLifecycleHooks(base, Lifecycle{})

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, baseErr) {
				return
			}
		})

		t.Run("if the Lifecycle.PostRun fails", func(t *testing.T) {
			base := AppFunc(func(ctx context.Context) error {
				return nil
			})

			postRunErr := errors.New("failed to post run")
			app := WithLifecycleHooks(base, Lifecycle{
				PostRun: LifecycleHookFunc(func(ctx context.Context) error {
					return postRunErr
				}),
			})

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, postRunErr) {
				return
			}
		})
	})

	t.Run("will run Lifecycle.PostRun", func(t *testing.T) {
		t.Run("if the underlying app panics", func(t *testing.T) {
			base := AppFunc(func(ctx context.Context) error {
				panic("ahhh")
			})

			postRan := false
			app := WithLifecycleHooks(base, Lifecycle{
				PostRun: LifecycleHookFunc(func(ctx context.Context) error {
					postRan = true
					return nil
				}),
			})

			err := app.Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.True(t, postRan) {
				return
			}
		})

		t.Run("if Lifecycle.PreRun fails", func(t *testing.T) {
			base := AppFunc(func(ctx context.Context) error {
				return nil
			})

			postRan := false
			app := WithLifecycleHooks(base, Lifecycle{
				PreRun: LifecycleHookFunc(func(ctx context.Context) error {
					return errors.New("failed to pre run")
				}),
				PostRun: LifecycleHookFunc(func(ctx context.Context) error {
					postRan = true
					return nil
				}),
			})

			err := app.Run(context.Background())
			if !assert.Error(t, err) {
				return
			}
			if !assert.True(t, postRan) {
				return
			}
		})
	})
}

func TestComposeLifecycleHooks(t *testing.T) {
	t.Run("will run every hook", func(t *testing.T) {
		t.Run("if an earlier hook fails", func(t *testing.T) {
			firstErr := errors.New("first")
			secondRan := false

			hook := ComposeLifecycleHooks(
				LifecycleHookFunc(func(ctx context.Context) error {
					return firstErr
				}),
				nil,
				LifecycleHookFunc(func(ctx context.Context) error {
					secondRan = true
					return nil
				}),
			)

			err := hook.Run(context.Background())
			if !assert.ErrorIs(t, err, firstErr) {
				return
			}
			if !assert.True(t, secondRan) {
				return
			}
		})
	})

	t.Run("will not return an error", func(t *testing.T) {
		t.Run("if there are no hooks", func(t *testing.T) {
			err := ComposeLifecycleHooks().Run(context.Background())
			if !assert.Nil(t, err) {
				return
			}
		})
	})
}
