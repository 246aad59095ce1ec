// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/z5labs/fileserver/config/key"

	"github.com/stretchr/testify/assert"
)

type testConfig struct {
	Addr    string `config:"addr"`
	Listing struct {
		Enabled bool `config:"enabled"`
	} `config:"listing"`
	HTTP struct {
		IdleTimeout time.Duration `config:"idle_timeout"`
		MaxRequests int           `config:"max_requests_per_conn"`
	} `config:"http"`
	Log struct {
		Level slog.Level `config:"level"`
	} `config:"log"`
	Types map[string]string `config:"types"`
}

func TestRead(t *testing.T) {
	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a source fails to apply", func(t *testing.T) {
			applyErr := errors.New("failed to apply")
			src := SourceFunc(func(Store) error {
				return applyErr
			})

			_, err := Read(Map{"addr": "a"}, src)
			if !assert.ErrorIs(t, err, applyErr) {
				return
			}
		})
	})

	t.Run("will override earlier sources", func(t *testing.T) {
		t.Run("if a later source sets the same key", func(t *testing.T) {
			m, err := Read(
				Map{
					"addr": "127.0.0.1:8000",
					"http": map[string]any{
						"idle_timeout":          "30s",
						"max_requests_per_conn": 0,
					},
				},
				Map{
					"http": map[string]any{
						"idle_timeout": "5s",
					},
				},
			)
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, "127.0.0.1:8000", cfg.Addr) {
				return
			}
			if !assert.Equal(t, 5*time.Second, cfg.HTTP.IdleTimeout) {
				return
			}
		})
	})

	t.Run("will produce an empty config", func(t *testing.T) {
		t.Run("if no sources are given", func(t *testing.T) {
			m, err := Read()
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Empty(t, cfg.Addr) {
				return
			}
		})
	})
}

func TestManager_Unmarshal(t *testing.T) {
	t.Run("will decode", func(t *testing.T) {
		t.Run("if a duration is given as a string", func(t *testing.T) {
			m, err := Read(Map{"http": map[string]any{"idle_timeout": "1m30s"}})
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 90*time.Second, cfg.HTTP.IdleTimeout) {
				return
			}
		})

		t.Run("if a duration is given as an int", func(t *testing.T) {
			m, err := Read(Map{"http": map[string]any{"idle_timeout": 1000}})
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, time.Microsecond, cfg.HTTP.IdleTimeout) {
				return
			}
		})

		t.Run("if a text unmarshaler is given a string", func(t *testing.T) {
			m, err := Read(Map{"log": map[string]any{"level": "debug"}})
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, slog.LevelDebug, cfg.Log.Level) {
				return
			}
		})

		t.Run("if scalars are given as strings", func(t *testing.T) {
			store := make(Map)
			err := store.Set(key.Chain{key.Name("listing"), key.Name("enabled")}, "true")
			if !assert.Nil(t, err) {
				return
			}
			err = store.Set(key.Chain{key.Name("http"), key.Name("max_requests_per_conn")}, "3")
			if !assert.Nil(t, err) {
				return
			}

			m, err := Read(store)
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.True(t, cfg.Listing.Enabled) {
				return
			}
			if !assert.Equal(t, 3, cfg.HTTP.MaxRequests) {
				return
			}
		})

		t.Run("if a map of strings is given", func(t *testing.T) {
			m, err := Read(Map{"types": map[string]any{"md": "text/markdown"}})
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, map[string]string{"md": "text/markdown"}, cfg.Types) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if a duration is invalid", func(t *testing.T) {
			m, err := Read(Map{"http": map[string]any{"idle_timeout": "soon"}})
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Error(t, err) {
				return
			}
		})

		t.Run("if a log level is invalid", func(t *testing.T) {
			m, err := Read(Map{"log": map[string]any{"level": "loud"}})
			if !assert.Nil(t, err) {
				return
			}

			var cfg testConfig
			err = m.Unmarshal(&cfg)
			if !assert.Error(t, err) {
				return
			}
		})

		t.Run("if the result is not a pointer", func(t *testing.T) {
			m, err := Read()
			if !assert.Nil(t, err) {
				return
			}

			err = m.Unmarshal(testConfig{})
			if !assert.Error(t, err) {
				return
			}
		})
	})
}

func TestTypeCoercionError(t *testing.T) {
	t.Run("will unwrap to its cause", func(t *testing.T) {
		cause := errors.New("bad value")
		err := TypeCoercionError{Cause: cause}
		if !assert.ErrorIs(t, err, cause) {
			return
		}
	})
}
