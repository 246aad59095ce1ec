// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fileserver

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/fileserver/internal/try"
)

// App represents the entry point for user specific code.
type App interface {
	Run(context.Context) error
}

// AppFunc is a func which implements the App interface.
type AppFunc func(context.Context) error

// Run implements the App interface.
func (f AppFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Recover wraps the given App with panic recovery. A recovered panic is
// returned as a [try.PanicError].
func Recover(app App) App {
	return AppFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given App in an implementation
// that cancels the context.Context that's passed to app.Run if an os.Signal
// is received by the running process.
func WithSignalNotifications(app App, signals ...os.Signal) App {
	return AppFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// LifecycleHook represents functionality that needs to be performed
// at a specific "time" relative to the execution of App.Run.
type LifecycleHook interface {
	Run(context.Context) error
}

// LifecycleHookFunc is a convenient helper type for implementing a LifecycleHook
// from just a regular func.
type LifecycleHookFunc func(context.Context) error

// Run implements the LifecycleHook interface.
func (f LifecycleHookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// ComposeLifecycleHooks returns a LifecycleHook which runs every hook in
// order, even if an earlier one fails. Nil hooks are skipped and the
// failures are joined.
func ComposeLifecycleHooks(hooks ...LifecycleHook) LifecycleHook {
	return LifecycleHookFunc(func(ctx context.Context) error {
		var errs []error
		for _, hook := range hooks {
			if hook == nil {
				continue
			}
			errs = append(errs, hook.Run(ctx))
		}
		return errors.Join(errs...)
	})
}

// Lifecycle holds the hooks run around App.Run.
type Lifecycle struct {
	// PreRun is executed before the App. If it fails the App is not run
	// but PostRun still is.
	PreRun LifecycleHook

	// PostRun is always executed regardless if the underlying App
	// returns an error or panics.
	PostRun LifecycleHook
}

// WithLifecycleHooks wraps a given App in an implementation
// that runs LifecycleHooks around the execution of app.Run.
func WithLifecycleHooks(app App, lifecycle Lifecycle) App {
	return AppFunc(func(ctx context.Context) (err error) {
		defer runPostRunHook(ctx, lifecycle.PostRun, &err)
		defer try.Recover(&err)

		if lifecycle.PreRun != nil {
			err = lifecycle.PreRun.Run(ctx)
			if err != nil {
				return err
			}
		}
		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook LifecycleHook, err *error) {
	if hook == nil {
		return
	}

	hookErr := hook.Run(ctx)

	// errors.Join will not return an error if both
	// *err and hookErr are nil.
	*err = errors.Join(*err, hookErr)
}
