// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/z5labs/fileserver/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	Addr string `config:"addr"`
	Root string `config:"root"`
	Log  struct {
		Level string `config:"level"`
	} `config:"log"`
}

func execute(t *testing.T, args ...string) (captured, error) {
	t.Helper()

	var got captured
	cmd := newCommand(func(ctx context.Context, srcs ...config.Source) error {
		m, err := config.Read(append([]config.Source{config.Map{"addr": "default", "root": "default"}}, srcs...)...)
		if err != nil {
			return err
		}
		return m.Unmarshal(&got)
	})
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.ExecuteContext(context.Background())
	return got, err
}

func TestCommand(t *testing.T) {
	t.Run("will not override the config", func(t *testing.T) {
		t.Run("if no flags are set", func(t *testing.T) {
			got, err := execute(t)
			require.NoError(t, err)

			if !assert.Equal(t, "default", got.Addr) {
				return
			}
			if !assert.Equal(t, "default", got.Root) {
				return
			}
		})
	})

	t.Run("will set the address", func(t *testing.T) {
		testCases := []struct {
			Name string
			Args []string
			Addr string
		}{
			{Name: "if only the port is set", Args: []string{"-p", "9000"}, Addr: "127.0.0.1:9000"},
			{Name: "if only the bind address is set", Args: []string{"--bind", "0.0.0.0"}, Addr: "0.0.0.0:8000"},
			{Name: "if an IPv6 bind address is set", Args: []string{"-b", "::1", "-p", "8080"}, Addr: "[::1]:8080"},
		}

		for _, testCase := range testCases {
			t.Run(testCase.Name, func(t *testing.T) {
				got, err := execute(t, testCase.Args...)
				require.NoError(t, err)

				if !assert.Equal(t, testCase.Addr, got.Addr) {
					return
				}
			})
		}
	})

	t.Run("will set the root", func(t *testing.T) {
		t.Run("if the directory flag is set", func(t *testing.T) {
			got, err := execute(t, "-d", "/srv/www")
			require.NoError(t, err)

			if !assert.Equal(t, "/srv/www", got.Root) {
				return
			}
		})
	})

	t.Run("will read the config file", func(t *testing.T) {
		t.Run("if it is rendered with environment variables", func(t *testing.T) {
			t.Setenv("FSCMD_TEST_ROOT", "/from/template")

			path := filepath.Join(t.TempDir(), "config.yaml")
			err := os.WriteFile(path, []byte("addr: 10.0.0.1:80\nroot: {{ env \"FSCMD_TEST_ROOT\" }}\n"), 0o644)
			require.NoError(t, err)

			got, err := execute(t, "-c", path)
			require.NoError(t, err)

			if !assert.Equal(t, "10.0.0.1:80", got.Addr) {
				return
			}
			if !assert.Equal(t, "/from/template", got.Root) {
				return
			}
		})

		t.Run("if it is JSON", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			err := os.WriteFile(path, []byte(`{"root": "/json"}`), 0o644)
			require.NoError(t, err)

			got, err := execute(t, "-c", path)
			require.NoError(t, err)

			if !assert.Equal(t, "/json", got.Root) {
				return
			}
		})

		t.Run("and let the environment and flags override it", func(t *testing.T) {
			t.Setenv(EnvPrefix+"LOG__LEVEL", "debug")

			path := filepath.Join(t.TempDir(), "config.yaml")
			err := os.WriteFile(path, []byte("root: /file\nlog:\n  level: warn\n"), 0o644)
			require.NoError(t, err)

			got, err := execute(t, "-c", path, "-d", "/flag")
			require.NoError(t, err)

			if !assert.Equal(t, "/flag", got.Root) {
				return
			}
			if !assert.Equal(t, "debug", got.Log.Level) {
				return
			}
		})
	})

	t.Run("will return an error", func(t *testing.T) {
		t.Run("if the config file does not exist", func(t *testing.T) {
			_, err := execute(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"))
			if !assert.ErrorIs(t, err, os.ErrNotExist) {
				return
			}
		})

		t.Run("if positional arguments are given", func(t *testing.T) {
			_, err := execute(t, "extra")
			if !assert.Error(t, err) {
				return
			}
		})

		t.Run("if the run func fails", func(t *testing.T) {
			runErr := errors.New("failed to run")
			cmd := newCommand(func(ctx context.Context, srcs ...config.Source) error {
				return runErr
			})
			cmd.SetArgs([]string{})

			err := cmd.ExecuteContext(context.Background())
			if !assert.ErrorIs(t, err, runErr) {
				return
			}
		})
	})
}
