// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package slogfield provides the typed log attributes used across the server.
package slogfield

import (
	"log/slog"
	"net"
	"time"
)

// Any returns an slog.Attr for the supplied value.
func Any(key string, value any) slog.Attr {
	return slog.Any(key, value)
}

// Bool returns an slog.Attr for a bool.
func Bool(key string, value bool) slog.Attr {
	return slog.Bool(key, value)
}

// Duration returns an slog.Attr for a time.Duration.
func Duration(key string, d time.Duration) slog.Attr {
	return slog.Duration(key, d)
}

// Error returns an slog.Attr for a error.
func Error(err error) slog.Attr {
	return slog.Any("error", err)
}

// String returns an slog.Attr for a string.
func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Int returns an slog.Attr for a int.
func Int(key string, n int) slog.Attr {
	return slog.Int(key, n)
}

// Int64 returns an slog.Attr for a int64.
func Int64(key string, n int64) slog.Attr {
	return slog.Int64(key, n)
}

// Addr returns an slog.Attr for a local address.
func Addr(addr net.Addr) slog.Attr {
	return slog.String("addr", addrString(addr))
}

// RemoteAddr returns an slog.Attr for the address of a client.
func RemoteAddr(addr net.Addr) slog.Attr {
	return slog.String("remote_addr", addrString(addr))
}

// Method returns an slog.Attr for a request method.
func Method(method string) slog.Attr {
	return slog.String("method", method)
}

// Target returns an slog.Attr for a raw request target.
func Target(target string) slog.Attr {
	return slog.String("target", target)
}

// Status returns an slog.Attr for a response status code.
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
