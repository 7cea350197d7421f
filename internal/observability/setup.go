package observability

import (
	"context"
	"errors"

	"satprep/internal/config"

	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Providers holds everything SetupObservability started so it can be shut down together
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *Logger
}

// SetupObservability initializes tracing, metrics, and logging for a service
func SetupObservability(cfg *config.OpenTelemetryConfig, logLevel string) (*Providers, error) {
	p := &Providers{Logger: NewLoggerWithLevel(cfg, ParseLevel(logLevel))}

	if cfg.EnableTracing {
		tp, err := InitTracing(cfg)
		if err != nil {
			return nil, err
		}
		p.TracerProvider = tp
		InitGlobalTracer()
		p.Logger.Info(context.Background(), "Tracing enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}

	if cfg.EnableMetrics {
		mp, err := InitMetrics(cfg)
		if err != nil {
			return nil, err
		}
		p.MeterProvider = mp
		p.Logger.Info(context.Background(), "OTLP metrics enabled", map[string]interface{}{"service_name": cfg.ServiceName})
	}

	return p, nil
}

// Shutdown flushes and stops every provider, returning the joined errors
func (p *Providers) Shutdown(ctx context.Context) error {
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	if p.Logger != nil {
		errs = append(errs, p.Logger.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
