// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"

	"github.com/z5labs/fileserver/http1"
)

var (
	ErrInvalidTarget   = errors.New("resolve: invalid request target")
	ErrNulByte         = errors.New("resolve: target contains a NUL byte")
	ErrEscapesRoot     = errors.New("resolve: target escapes the root directory")
	ErrNotRegular      = errors.New("resolve: not a regular file")
	ErrListingDisabled = errors.New("resolve: directory listing is disabled")
	ErrNotDirectory    = errors.New("resolve: target is not a directory")
)

// Error is returned when a request target cannot be mapped to a resource.
// It only ends the request it occurred on.
type Error struct {
	Status int
	Target string
	Cause  error
}

// Error implements the [builtin.error] interface.
func (e Error) Error() string {
	return fmt.Sprintf("resolve: %d %s for %q: %s", e.Status, http1.StatusText(e.Status), e.Target, e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e Error) Unwrap() error {
	return e.Cause
}

func newError(status int, target string, cause error) Error {
	return Error{Status: status, Target: target, Cause: cause}
}

// fsError classifies a filesystem failure.
func fsError(target string, err error) Error {
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.ENAMETOOLONG):
		return newError(http1.StatusNotFound, target, err)
	case errors.Is(err, fs.ErrPermission):
		return newError(http1.StatusForbidden, target, err)
	default:
		return newError(http1.StatusInternalServerError, target, err)
	}
}
