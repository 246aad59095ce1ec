// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command fileserver serves a directory over HTTP/1.1.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/z5labs/fileserver"
	"github.com/z5labs/fileserver/config"

	"github.com/spf13/cobra"
)

// EnvPrefix is the prefix of every environment variable read as config.
const EnvPrefix = "FILESERVER_"

type flags struct {
	bind       string
	port       uint16
	directory  string
	configFile string
}

func newCommand(run func(context.Context, ...config.Source) error) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           "fileserver",
		Short:         "Serve a directory over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := sources(cmd, f)
			if err != nil {
				return err
			}
			return run(cmd.Context(), srcs...)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.bind, "bind", "b", "127.0.0.1", "bind address")
	fs.Uint16VarP(&f.port, "port", "p", 8000, "port")
	fs.StringVarP(&f.directory, "directory", "d", ".", "root directory")
	fs.StringVarP(&f.configFile, "config", "c", "", "optional YAML config file (text/template rendered)")
	return cmd
}

// sources orders the config so that the file is overridden by the
// environment which is overridden by explicitly set flags.
func sources(cmd *cobra.Command, f flags) ([]config.Source, error) {
	var srcs []config.Source
	if f.configFile != "" {
		src, err := fileSource(f.configFile)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	srcs = append(srcs, config.FromEnv(EnvPrefix))

	overrides := config.Map{}
	fs := cmd.Flags()
	if fs.Changed("bind") || fs.Changed("port") {
		overrides["addr"] = net.JoinHostPort(f.bind, strconv.Itoa(int(f.port)))
	}
	if fs.Changed("directory") {
		overrides["root"] = f.directory
	}
	return append(srcs, overrides), nil
}

func fileSource(path string) (config.Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	r := config.RenderTextTemplate(
		config.NewFileReader(os.DirFS(filepath.Dir(abs)), filepath.Base(abs)),
		config.TemplateFunc("env", os.Getenv),
	)
	if strings.EqualFold(filepath.Ext(abs), ".json") {
		return config.FromJson(r), nil
	}
	return config.FromYaml(r), nil
}

func main() {
	cmd := newCommand(fileserver.Run)
	err := cmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
