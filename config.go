// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fileserver

import (
	"bytes"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/z5labs/fileserver/config"
)

//go:embed default_config.yaml
var defaultConfig []byte

// DefaultConfig returns the source holding the default value of every
// Config field.
func DefaultConfig() config.Source {
	return config.FromYaml(bytes.NewReader(defaultConfig))
}

// Config is the complete file server configuration.
type Config struct {
	// Addr is the host:port to listen on.
	Addr string `config:"addr"`

	// Root is the directory files are served from.
	Root string `config:"root"`

	// IndexFile is served in place of a directory listing when present.
	IndexFile string `config:"index_file"`

	Listing ListingConfig `config:"listing"`
	HTTP    HTTPConfig    `config:"http"`
	MIME    MIMEConfig    `config:"mime"`
	Log     LogConfig     `config:"log"`
	OTel    OTelConfig    `config:"otel"`
}

// ListingConfig controls directory listings.
type ListingConfig struct {
	Enabled bool `config:"enabled"`
}

// HTTPConfig holds the connection limits and timeouts.
type HTTPConfig struct {
	IdleTimeout        time.Duration `config:"idle_timeout"`
	RequestTimeout     time.Duration `config:"request_timeout"`
	ShutdownTimeout    time.Duration `config:"shutdown_timeout"`
	MaxRequestsPerConn int           `config:"max_requests_per_conn"`
	MaxRequestLine     int           `config:"max_request_line"`
	MaxHeaderBytes     int           `config:"max_header_bytes"`
	MaxDiscardBytes    int64         `config:"max_discard_bytes"`
	BufferSize         int           `config:"buffer_size"`
}

// MIMEConfig overrides the built in content types. Keys are file
// extensions with or without the leading dot.
type MIMEConfig struct {
	Types map[string]string `config:"types"`
}

// LogFormat selects the slog handler.
type LogFormat string

// Supported log formats.
const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (f *LogFormat) UnmarshalText(b []byte) error {
	switch v := LogFormat(strings.ToLower(string(b))); v {
	case LogFormatText, LogFormatJSON:
		*f = v
		return nil
	default:
		return fmt.Errorf("unknown log format: %q", b)
	}
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  slog.Level `config:"level"`
	Format LogFormat  `config:"format"`
}

// Exporter selects where spans are sent.
type Exporter string

// Supported span exporters.
const (
	ExporterNone   Exporter = "none"
	ExporterStdout Exporter = "stdout"
	ExporterOTLP   Exporter = "otlp"
)

// UnmarshalText implements the [encoding.TextUnmarshaler] interface.
func (e *Exporter) UnmarshalText(b []byte) error {
	switch v := Exporter(strings.ToLower(string(b))); v {
	case ExporterNone, ExporterStdout, ExporterOTLP:
		*e = v
		return nil
	default:
		return fmt.Errorf("unknown otel exporter: %q", b)
	}
}

// OTelConfig configures tracing.
type OTelConfig struct {
	ServiceName string   `config:"service_name"`
	Exporter    Exporter `config:"exporter"`

	// Endpoint is the OTLP gRPC collector address.
	Endpoint string `config:"endpoint"`
	Insecure bool   `config:"insecure"`
}
