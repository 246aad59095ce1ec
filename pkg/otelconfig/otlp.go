// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelconfig

import (
	"context"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// OTLPConfig exports spans and metrics to an OTLP collector over gRPC.
type OTLPConfig struct {
	Common

	// Endpoint is the host:port of the collector.
	Endpoint string

	// Insecure disables transport security.
	Insecure bool
}

// OTLPOption configures the OTLP Initializer.
type OTLPOption interface {
	ApplyOTLP(*OTLPConfig)
}

type otlpOptionFunc func(*OTLPConfig)

func (f otlpOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(cfg)
}

// Endpoint sets the collector address.
func Endpoint(endpoint string) OTLPOption {
	return otlpOptionFunc(func(cfg *OTLPConfig) {
		cfg.Endpoint = endpoint
	})
}

// Insecure sets whether the collector connection skips TLS.
func Insecure(insecure bool) OTLPOption {
	return otlpOptionFunc(func(cfg *OTLPConfig) {
		cfg.Insecure = insecure
	})
}

// OTLP returns an Initializer which exports to an OTLP collector.
func OTLP(opts ...OTLPOption) Initializer {
	cfg := OTLPConfig{}
	for _, opt := range opts {
		opt.ApplyOTLP(&cfg)
	}
	return cfg
}

// InitTracerProvider implements the Initializer interface. The collector
// connection is established lazily so it does not fail if the collector
// is unreachable.
func (cfg OTLPConfig) InitTracerProvider(ctx context.Context) (trace.TracerProvider, error) {
	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	traceExporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp),
	)
	return tp, nil
}

// InitMeterProvider implements the Initializer interface. Like the tracer
// provider it connects to the collector lazily.
func (cfg OTLPConfig) InitMeterProvider(ctx context.Context) (metric.MeterProvider, error) {
	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	metricExporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)
	return mp, nil
}
