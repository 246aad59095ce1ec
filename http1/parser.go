// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import (
	"bytes"
	"strings"
)

// Default parser limits.
const (
	DefaultMaxRequestLine = 8 << 10
	DefaultMaxHeaderBytes = 64 << 10
)

// Limits bounds how much of a request head the Parser accepts.
type Limits struct {
	// MaxRequestLine is the longest request line accepted, excluding its
	// terminator.
	MaxRequestLine int

	// MaxHeaderBytes is the largest header section accepted, counting every
	// header line including terminators and the final empty line.
	MaxHeaderBytes int
}

func (l Limits) withDefaults() Limits {
	if l.MaxRequestLine <= 0 {
		l.MaxRequestLine = DefaultMaxRequestLine
	}
	if l.MaxHeaderBytes <= 0 {
		l.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	return l
}

// BufferSize returns the largest buffer needed to hold a request head
// within these limits.
func (l Limits) BufferSize() int {
	l = l.withDefaults()
	return 2*l.MaxRequestLine + l.MaxHeaderBytes + 2
}

// State is the outcome of a call to Parser.Parse.
type State int

const (
	// Incomplete means more bytes are needed before a request is available.
	Incomplete State = iota

	// Complete means a request head has been parsed.
	Complete
)

// String implements the [fmt.Stringer] interface.
func (s State) String() string {
	if s == Complete {
		return "complete"
	}
	return "incomplete"
}

// Result is returned by Parser.Parse.
type Result struct {
	State State

	// Request is set when State is Complete.
	Request *Request

	// N is the number of bytes making up the request head when State is
	// Complete.
	N int
}

type phase int

const (
	phaseRequestLine phase = iota
	phaseHeaders
)

// Parser is a resumable request head parser. It is fed the bytes buffered
// for the current request and keeps its scan position between calls, so
// every line is examined once no matter how the bytes arrive.
type Parser struct {
	limits Limits

	phase       phase
	pos         int
	leading     int
	headerBytes int
	req         Request
}

// NewParser returns a Parser enforcing the given limits. Zero limits are
// replaced by DefaultMaxRequestLine and DefaultMaxHeaderBytes.
func NewParser(limits Limits) *Parser {
	return &Parser{limits: limits.withDefaults()}
}

// Reset discards any partially parsed request.
func (p *Parser) Reset() {
	p.phase = phaseRequestLine
	p.pos = 0
	p.leading = 0
	p.headerBytes = 0
	p.req = Request{}
}

// Parse continues parsing the request head held in b. Between calls b must
// start at the first byte of the request and may only grow by appending.
// Once a request is complete the parser resets itself for the next one and
// the caller is expected to consume Result.N bytes.
func (p *Parser) Parse(b []byte) (Result, error) {
	for {
		rest := b[p.pos:]
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			err := p.checkPending(len(rest))
			if err != nil {
				p.Reset()
				return Result{}, err
			}
			return Result{State: Incomplete}, nil
		}
		lineLen := i + 1
		line := bytes.TrimSuffix(rest[:i], []byte("\r"))

		switch p.phase {
		case phaseRequestLine:
			err := p.requestLine(line, lineLen)
			if err != nil {
				p.Reset()
				return Result{}, err
			}
		case phaseHeaders:
			p.headerBytes += lineLen
			if p.headerBytes > p.limits.MaxHeaderBytes {
				p.Reset()
				return Result{}, ParseError{Kind: HeaderTooLarge}
			}
			if len(line) == 0 {
				req := p.req
				n := p.pos + lineLen
				p.Reset()
				return Result{State: Complete, Request: &req, N: n}, nil
			}
			err := p.headerLine(line)
			if err != nil {
				p.Reset()
				return Result{}, err
			}
		}
		p.pos += lineLen
	}
}

func (p *Parser) checkPending(pending int) error {
	switch p.phase {
	case phaseRequestLine:
		// one extra byte for a CR whose LF has not arrived yet
		if pending > p.limits.MaxRequestLine+1 {
			return ParseError{Kind: RequestLineTooLong}
		}
	case phaseHeaders:
		if p.headerBytes+pending > p.limits.MaxHeaderBytes {
			return ParseError{Kind: HeaderTooLarge}
		}
	}
	return nil
}

func (p *Parser) requestLine(line []byte, lineLen int) error {
	if len(line) == 0 {
		// Empty lines before a request line are ignored, mostly clients
		// sending a stray CRLF after a previous request.
		p.leading += lineLen
		if p.leading > p.limits.MaxRequestLine {
			return ParseError{Kind: MalformedRequestLine}
		}
		return nil
	}
	if len(line) > p.limits.MaxRequestLine {
		return ParseError{Kind: RequestLineTooLong}
	}

	parts := strings.Split(string(line), " ")
	if len(parts) != 3 {
		return ParseError{Kind: MalformedRequestLine, Detail: string(line)}
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if !isToken(method) || target == "" || strings.ContainsAny(target, "\t\r") {
		return ParseError{Kind: MalformedRequestLine, Detail: string(line)}
	}
	v, err := parseVersion(proto)
	if err != nil {
		return err
	}

	p.req.Method = method
	p.req.Target = target
	p.req.Version = v
	p.phase = phaseHeaders
	return nil
}

func (p *Parser) headerLine(line []byte) error {
	if line[0] == ' ' || line[0] == '\t' {
		return ParseError{Kind: MalformedHeader, Detail: string(line)}
	}
	name, value, ok := bytes.Cut(line, []byte(":"))
	if !ok || !isToken(string(name)) {
		return ParseError{Kind: MalformedHeader, Detail: string(line)}
	}
	p.req.Header.Add(string(name), string(bytes.Trim(value, " \t")))
	return nil
}

func parseVersion(s string) (Version, error) {
	rest, ok := strings.CutPrefix(s, "HTTP/")
	if !ok || len(rest) != 3 || rest[1] != '.' || !isDigit(rest[0]) || !isDigit(rest[2]) {
		return Version{}, ParseError{Kind: MalformedRequestLine, Detail: s}
	}
	v := Version{Major: int(rest[0] - '0'), Minor: int(rest[2] - '0')}
	if v != HTTP10 && v != HTTP11 {
		return Version{}, ParseError{Kind: UnsupportedVersion, Detail: s}
	}
	return v, nil
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// isToken reports whether s is a non-empty RFC 9110 token.
func isToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}
	return true
}

func isTokenChar(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', isDigit(c):
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}
