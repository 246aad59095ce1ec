// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import "strconv"

// Status codes produced by the server.
const (
	StatusOK                          = 200
	StatusMovedPermanently            = 301
	StatusBadRequest                  = 400
	StatusForbidden                   = 403
	StatusNotFound                    = 404
	StatusRequestHeaderFieldsTooLarge = 431
	StatusInternalServerError         = 500
	StatusNotImplemented              = 501
	StatusHTTPVersionNotSupported     = 505
)

var statusText = map[int]string{
	StatusOK:                          "OK",
	StatusMovedPermanently:            "Moved Permanently",
	StatusBadRequest:                  "Bad Request",
	StatusForbidden:                   "Forbidden",
	StatusNotFound:                    "Not Found",
	StatusRequestHeaderFieldsTooLarge: "Request Header Fields Too Large",
	StatusInternalServerError:         "Internal Server Error",
	StatusNotImplemented:              "Not Implemented",
	StatusHTTPVersionNotSupported:     "HTTP Version Not Supported",
}

// StatusText returns the reason phrase for code, or "Status <code>" if
// the code is unknown.
func StatusText(code int) string {
	if txt, ok := statusText[code]; ok {
		return txt
	}
	return "Status " + strconv.Itoa(code)
}
