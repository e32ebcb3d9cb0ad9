package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records cache metrics. Use NewMetricsRecorder() for
// OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRetrieval records a retrieval attempt with its outcome and
	// latency.
	RecordRetrieval(ctx context.Context, nodeName string, hit bool, duration time.Duration)

	// RecordStoreError records a failed store operation.
	RecordStoreError(ctx context.Context, nodeName, op string)

	// RecordFingerprintFallback records degradation to the constant
	// fallback fingerprint.
	RecordFingerprintFallback(ctx context.Context, nodeName string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	hits             metric.Int64Counter
	misses           metric.Int64Counter
	retrievalLatency metric.Float64Histogram
	storeErrors      metric.Int64Counter
	fallbacks        metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("memograph")

	hits, err := meter.Int64Counter("memograph.cache.hits",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter("memograph.cache.misses",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	retrievalLatency, err := meter.Float64Histogram("memograph.cache.retrieval_latency_ms",
		metric.WithDescription("Cache retrieval latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	storeErrors, err := meter.Int64Counter("memograph.cache.store_errors",
		metric.WithDescription("Number of failed store operations"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter("memograph.cache.fingerprint_fallbacks",
		metric.WithDescription("Number of fingerprint degradations to the constant fallback"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		hits:             hits,
		misses:           misses,
		retrievalLatency: retrievalLatency,
		storeErrors:      storeErrors,
		fallbacks:        fallbacks,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses
// OpenTelemetry. If metrics initialization fails, returns a no-op
// recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordRetrieval records a retrieval attempt.
func (m *otelMetrics) RecordRetrieval(ctx context.Context, nodeName string, hit bool, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("node_name", nodeName),
	}

	if hit {
		m.hits.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		m.misses.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.retrievalLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordStoreError records a failed store operation.
func (m *otelMetrics) RecordStoreError(ctx context.Context, nodeName, op string) {
	m.storeErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_name", nodeName),
		attribute.String("operation", op),
	))
}

// RecordFingerprintFallback records a fingerprint degradation.
func (m *otelMetrics) RecordFingerprintFallback(ctx context.Context, nodeName string) {
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node_name", nodeName),
	))
}
