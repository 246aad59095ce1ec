// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package http1 implements the wire level of an HTTP/1.1 origin server.
//
// Request heads are read off a connection with a [Reader] and decoded by a
// resumable [Parser], which reports [Incomplete] until the blank line ending
// the head has arrived:
//
//	r := http1.NewReader(conn, 4096, limits.BufferSize())
//	p := http1.NewParser(limits)
//	for {
//	    res, err := p.Parse(r.Buffered())
//	    if err != nil {
//	        // err is a ParseError, report err.Status() and close
//	    }
//	    if res.State == http1.Complete {
//	        r.Discard(res.N)
//	        break
//	    }
//	    if _, err := r.Fill(); err != nil {
//	        // connection failed
//	    }
//	}
//
// Responses are written by a [Framer]. The framing of the body follows from
// its [Body.Size] and the request version:
//
//   - a known size is sent with Content-Length
//   - an unknown size is sent chunked to HTTP/1.1 clients
//   - an unknown size is delimited by closing the connection for HTTP/1.0 clients
//
// A HEAD response carries the exact head of the equivalent GET response.
package http1
