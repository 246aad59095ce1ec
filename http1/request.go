// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import "strconv"

// Request methods recognised by the server.
const (
	MethodGet  = "GET"
	MethodHead = "HEAD"
)

// Version is an HTTP protocol version.
type Version struct {
	Major int
	Minor int
}

// Supported protocol versions.
var (
	HTTP10 = Version{Major: 1, Minor: 0}
	HTTP11 = Version{Major: 1, Minor: 1}
)

// String returns the version as it appears on the wire, e.g. "HTTP/1.1".
func (v Version) String() string {
	return "HTTP/" + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// AtLeast reports whether v is major.minor or newer.
func (v Version) AtLeast(major, minor int) bool {
	return v.Major > major || (v.Major == major && v.Minor >= minor)
}

// Request is a parsed request head. It is never modified after Parser
// returns it.
type Request struct {
	Method  string
	Target  string
	Version Version
	Header  Header
}

// KeepAlive reports whether the client asked for a persistent connection.
// HTTP/1.1 connections persist unless "Connection: close" is sent and
// HTTP/1.0 connections close unless "Connection: keep-alive" is sent.
func (r *Request) KeepAlive() bool {
	if r.Header.HasToken("Connection", "close") {
		return false
	}
	if r.Version.AtLeast(1, 1) {
		return true
	}
	return r.Header.HasToken("Connection", "keep-alive")
}

// IsHead reports whether the response to r must omit its body.
func (r *Request) IsHead() bool {
	return r.Method == MethodHead
}
