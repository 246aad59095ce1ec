// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"os"
	"strings"

	"github.com/z5labs/fileserver/config/key"
)

// Env represents a Source where its underlying values
// are extracted from environment variables.
type Env struct {
	prefix  string
	environ func() []string
}

// FromEnv returns a Source which will apply its config from the
// environment variables of the current process whose names begin with
// prefix. The prefix is removed, the remainder is lowercased and "__"
// separates nested keys, e.g. with the prefix "APP_" the variable
// APP_HTTP__IDLE_TIMEOUT sets http.idle_timeout.
func FromEnv(prefix string) Env {
	return Env{
		prefix:  prefix,
		environ: os.Environ,
	}
}

// Apply implements the Source interface.
func (src Env) Apply(store Store) error {
	for _, pair := range src.environ() {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		name, ok := strings.CutPrefix(k, src.prefix)
		if !ok || name == "" {
			continue
		}

		chain, ok := envKey(name)
		if !ok {
			continue
		}
		err := store.Set(chain, v)
		if err != nil {
			return err
		}
	}
	return nil
}

func envKey(name string) (key.Chain, bool) {
	parts := strings.Split(strings.ToLower(name), "__")
	chain := make(key.Chain, len(parts))
	for i, part := range parts {
		if part == "" {
			return nil, false
		}
		chain[i] = key.Name(part)
	}
	return chain, true
}
