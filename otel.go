// Copyright (c) 2026 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package fileserver

import (
	"context"
	"errors"
	"time"

	"github.com/z5labs/fileserver/pkg/otelconfig"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const providerShutdownTimeout = 5 * time.Second

func newInitializer(cfg OTelConfig) otelconfig.Initializer {
	switch cfg.Exporter {
	case ExporterStdout:
		return otelconfig.Local(
			otelconfig.ServiceName(cfg.ServiceName),
		)
	case ExporterOTLP:
		return otelconfig.OTLP(
			otelconfig.ServiceName(cfg.ServiceName),
			otelconfig.Endpoint(cfg.Endpoint),
			otelconfig.Insecure(cfg.Insecure),
		)
	default:
		return otelconfig.Noop
	}
}

type telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	propagator     propagation.TextMapPropagator

	// shutdown flushes and stops the providers and is nil if there is
	// nothing to stop.
	shutdown LifecycleHook
}

// initOTel registers the tracer provider, meter provider and propagator
// globally unless the exporter is none.
func initOTel(ctx context.Context, cfg OTelConfig) (*telemetry, error) {
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

	initer := newInitializer(cfg)
	tp, err := initer.InitTracerProvider(ctx)
	if err != nil {
		return nil, err
	}
	mp, err := initer.InitMeterProvider(ctx)
	if err != nil {
		return nil, errors.Join(err, shutdownProvider(tp).Run(ctx))
	}
	if cfg.Exporter == ExporterNone || cfg.Exporter == "" {
		return &telemetry{tracerProvider: tp, meterProvider: mp, propagator: propagator}, nil
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagator)

	t := &telemetry{
		tracerProvider: tp,
		meterProvider:  mp,
		propagator:     propagator,
		shutdown:       ComposeLifecycleHooks(shutdownProvider(tp), shutdownProvider(mp)),
	}
	return t, nil
}

// shutdownProvider flushes and stops a tracer or meter provider from the
// sdk. Providers without a Shutdown method are left alone.
func shutdownProvider(p any) LifecycleHook {
	return LifecycleHookFunc(func(ctx context.Context) error {
		sp, ok := p.(interface {
			Shutdown(context.Context) error
		})
		if !ok {
			return nil
		}

		// ctx is usually already cancelled by the time the app returns
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), providerShutdownTimeout)
		defer cancel()
		return sp.Shutdown(sctx)
	})
}
