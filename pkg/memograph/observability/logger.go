// Package observability provides structured logging, metrics, and
// tracing helpers for the memoization engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds cache context to a logger. Returns a new logger
// with run_id and node_name fields.
func EnrichLogger(logger *slog.Logger, runID, nodeName string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node_name", nodeName),
	)
}

// LogRunStart logs the start of a cached run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("run starting",
		slog.String("run_id", runID),
	)
}

// LogCacheHit logs a successful retrieval.
func LogCacheHit(logger *slog.Logger, nodeName, contextKey string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("cache hit",
		slog.String("node_name", nodeName),
		slog.String("context_key", contextKey),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCacheMiss logs a retrieval miss. Misses are normal control flow.
func LogCacheMiss(logger *slog.Logger, nodeName, contextKey string) {
	if logger == nil {
		return
	}
	logger.Debug("cache miss",
		slog.String("node_name", nodeName),
		slog.String("context_key", contextKey),
	)
}

// LogStoreError logs a store failure (non-fatal).
func LogStoreError(logger *slog.Logger, nodeName, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("store operation failed",
		slog.String("node_name", nodeName),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// LogFingerprintFallback logs degradation to the constant fingerprint.
func LogFingerprintFallback(logger *slog.Logger, nodeName, inputName string) {
	if logger == nil {
		return
	}
	logger.Warn("fingerprint degraded to constant fallback",
		slog.String("node_name", nodeName),
		slog.String("input", inputName),
	)
}

// LogResume logs resume plan construction.
func LogResume(logger *slog.Logger, runID string, pinned int) {
	if logger == nil {
		return
	}
	logger.Info("resume plan built",
		slog.String("run_id", runID),
		slog.Int("pinned_nodes", pinned),
	)
}

// TimedOperation measures the duration of an operation. Returns a
// function that, when called, returns the elapsed time in
// milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
