// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package http1

import "strings"

// Field is a single header field.
type Field struct {
	Name  string
	Value string
}

// Header is an ordered list of header fields. Name lookups are
// case-insensitive and duplicate names keep the order they were added in.
//
// Unlike map based headers, the wire order of a Header is preserved so
// a response is always written exactly as it was built.
type Header struct {
	fields []Field
}

// Len returns the number of fields in h.
func (h Header) Len() int {
	return len(h.fields)
}

// Fields returns a copy of the fields in order.
func (h Header) Fields() []Field {
	fs := make([]Field, len(h.fields))
	copy(fs, h.fields)
	return fs
}

// Get returns the value of the first field with the given name.
func (h Header) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether a field with the given name is present.
func (h Header) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Values returns the values of every field with the given name.
func (h Header) Values(name string) []string {
	var vs []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			vs = append(vs, f.Value)
		}
	}
	return vs
}

// Add appends a field.
func (h *Header) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Set replaces the value of the first field with the given name, keeping
// its position, and removes any later duplicates. The field is appended if
// it is not present.
func (h *Header) Set(name, value string) {
	for i, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			continue
		}
		h.fields[i].Value = value
		h.delFrom(i+1, name)
		return
	}
	h.Add(name, value)
}

// Del removes every field with the given name.
func (h *Header) Del(name string) {
	h.delFrom(0, name)
}

func (h *Header) delFrom(start int, name string) {
	kept := h.fields[:start]
	for _, f := range h.fields[start:] {
		if strings.EqualFold(f.Name, name) {
			continue
		}
		kept = append(kept, f)
	}
	h.fields = kept
}

// Clone returns a deep copy of h.
func (h Header) Clone() Header {
	return Header{fields: h.Fields()}
}

// HasToken reports whether any field with the given name carries token
// in its comma separated value list, e.g. "Connection: keep-alive, Upgrade".
func (h Header) HasToken(name, token string) bool {
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}
