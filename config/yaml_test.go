// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/z5labs/fileserver/config/key"

	"github.com/stretchr/testify/assert"
)

type readFunc func([]byte) (int, error)

func (f readFunc) Read(b []byte) (int, error) {
	return f(b)
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestYaml_Apply(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the underlying io.Reader fails", func(t *testing.T) {
			readErr := errors.New("failed to read")
			r := readFunc(func(b []byte) (int, error) {
				return 0, readErr
			})

			store := storeFunc(func(k key.Keyer, a any) error {
				return nil
			})

			err := FromYaml(r).Apply(store)
			if !assert.ErrorIs(t, err, readErr) {
				return
			}
		})

		t.Run("if the io.Reader contains invalid YAML", func(t *testing.T) {
			r := strings.NewReader(`hello`)

			store := storeFunc(func(k key.Keyer, a any) error {
				return nil
			})

			err := FromYaml(r).Apply(store)

			var ierr InvalidYamlError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotEmpty(t, ierr.Error()) {
				return
			}
			if !assert.NotNil(t, ierr.Unwrap()) {
				return
			}
		})
	})

	t.Run("will apply nested values", func(t *testing.T) {
		r := &closeTracker{Reader: strings.NewReader("addr: 0.0.0.0:8080\nhttp:\n  idle_timeout: 10s\n  max_requests_per_conn: 2\n")}

		m := make(Map)
		err := FromYaml(r).Apply(m)
		if !assert.Nil(t, err) {
			return
		}

		expected := Map{
			"addr": "0.0.0.0:8080",
			"http": map[string]any{
				"idle_timeout":          "10s",
				"max_requests_per_conn": 2,
			},
		}
		if !assert.Equal(t, expected, m) {
			return
		}
		if !assert.True(t, r.closed) {
			return
		}
	})
}

func TestJson_Apply(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the io.Reader contains invalid JSON", func(t *testing.T) {
			store := storeFunc(func(k key.Keyer, a any) error {
				return nil
			})

			err := FromJson(strings.NewReader(`{`)).Apply(store)

			var ierr InvalidJsonError
			if !assert.ErrorAs(t, err, &ierr) {
				return
			}
			if !assert.NotNil(t, ierr.Unwrap()) {
				return
			}
		})
	})

	t.Run("will apply nested values", func(t *testing.T) {
		m := make(Map)
		err := FromJson(strings.NewReader(`{"listing": {"enabled": false}}`)).Apply(m)
		if !assert.Nil(t, err) {
			return
		}
		if !assert.Equal(t, Map{"listing": map[string]any{"enabled": false}}, m) {
			return
		}
	})
}
