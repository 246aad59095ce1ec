// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig initializes OpenTelemetry tracer and meter providers
// for the supported exporters.
package otelconfig

import (
	"context"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Common holds the settings shared by every Initializer.
type Common struct {
	ServiceName string
}

// CommonOption configures any Initializer.
type CommonOption interface {
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// Initializer creates the tracer and meter providers of one exporter.
type Initializer interface {
	InitTracerProvider(context.Context) (trace.TracerProvider, error)
	InitMeterProvider(context.Context) (metric.MeterProvider, error)
}

// Noop leaves telemetry to whatever global providers are already registered.
var Noop = noopConfiger{}

type noopConfiger struct{}

func (noopConfiger) InitTracerProvider(_ context.Context) (trace.TracerProvider, error) {
	return otel.GetTracerProvider(), nil
}

func (noopConfiger) InitMeterProvider(_ context.Context) (metric.MeterProvider, error) {
	return otel.GetMeterProvider(), nil
}

// LocalConfig writes spans and metrics as JSON to Out.
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption configures the Local Initializer.
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

type localOptionFunc func(*LocalConfig)

func (f localOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(cfg)
}

// Output sets where spans and metrics are written. Default is os.Stdout.
func Output(w io.Writer) LocalOption {
	return localOptionFunc(func(cfg *LocalConfig) {
		cfg.Out = w
	})
}

// Local returns an Initializer which exports spans and metrics to stdout.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// InitTracerProvider implements the Initializer interface.
func (cfg LocalConfig) InitTracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

// InitMeterProvider implements the Initializer interface. Metrics are
// written every minute and once more on shutdown.
func (cfg LocalConfig) InitMeterProvider(ctx context.Context) (metric.MeterProvider, error) {
	exporter, err := stdoutmetric.New(
		stdoutmetric.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	return mp, nil
}

func newResource(ctx context.Context, cfg Common) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
}
