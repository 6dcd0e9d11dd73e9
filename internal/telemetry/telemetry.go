package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracers created by this module
const InstrumentationName = "github.com/stacklok/photofeed"

// Telemetry owns the OpenTelemetry providers and their lifecycle
type Telemetry struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	metricsHandler http.Handler
}

// New creates the providers described by cfg. A nil or disabled config
// yields no-op providers. The caller must call Shutdown on exit.
func New(ctx context.Context, cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telemetry configuration: %w", err)
	}

	opts := []ProviderOption{
		WithServiceName(cfg.GetServiceName()),
		WithServiceVersion(cfg.GetServiceVersion()),
		WithEndpoint(cfg.GetEndpoint()),
	}
	if cfg != nil {
		opts = append(opts, WithInsecure(cfg.Insecure))
	}

	var tracing *TracingConfig
	if cfg.TracingEnabled() {
		tracing = cfg.Tracing
	}
	tracerProvider, err := NewTracerProvider(ctx, tracing, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer provider: %w", err)
	}

	var (
		metrics        *MetricsConfig
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled() {
		metrics = cfg.Metrics
		if metrics.Prometheus {
			registry := prometheus.NewRegistry()
			opts = append(opts, WithPrometheusRegisterer(registry))
			metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
		}
	}
	meterProvider, err := NewMeterProvider(ctx, metrics, opts...)
	if err != nil {
		if tp, ok := tracerProvider.(*sdktrace.TracerProvider); ok {
			_ = tp.Shutdown(ctx)
		}
		return nil, fmt.Errorf("failed to create meter provider: %w", err)
	}

	if cfg.TracingEnabled() || cfg.MetricsEnabled() {
		slog.Info("Telemetry initialized",
			"service_name", cfg.GetServiceName(),
			"service_version", cfg.GetServiceVersion(),
			"tracing", cfg.TracingEnabled(),
			"metrics", cfg.MetricsEnabled())
	}

	return &Telemetry{
		tracerProvider: tracerProvider,
		meterProvider:  meterProvider,
		metricsHandler: metricsHandler,
	}, nil
}

// TracerProvider returns the configured tracer provider
func (t *Telemetry) TracerProvider() trace.TracerProvider {
	return t.tracerProvider
}

// MeterProvider returns the configured meter provider
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// MetricsHandler serves the Prometheus scrape endpoint, or nil when Prometheus export is off
func (t *Telemetry) MetricsHandler() http.Handler {
	return t.metricsHandler
}

// Tracer returns the module's tracer
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracerProvider.Tracer(InstrumentationName)
}

// Instruments bundles the metric instruments of the feed, submission and gateway code
type Instruments struct {
	Feed       *FeedMetrics
	Submission *SubmissionMetrics
	HTTP       *HTTPMetrics
}

// Instruments creates every metric instrument on the meter provider
func (t *Telemetry) Instruments() (*Instruments, error) {
	feed, err := NewFeedMetrics(t.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed metrics: %w", err)
	}
	submission, err := NewSubmissionMetrics(t.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create submission metrics: %w", err)
	}
	httpMetrics, err := NewHTTPMetrics(t.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}
	return &Instruments{Feed: feed, Submission: submission, HTTP: httpMetrics}, nil
}

// Shutdown flushes and stops the SDK providers. Safe to call more than once.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error

	if tp, ok := t.tracerProvider.(*sdktrace.TracerProvider); ok {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown tracer provider: %w", err))
		}
	}
	if mp, ok := t.meterProvider.(*sdkmetric.MeterProvider); ok {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown meter provider: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	slog.Debug("Telemetry shutdown complete")
	return nil
}
