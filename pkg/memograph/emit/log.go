package emit

import (
	"log/slog"
	"sync"
)

// LogEmitter writes events to a structured slog logger. Hits and
// misses log at debug, store errors and fingerprint fallbacks at warn.
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates an emitter on top of a logger. A nil logger
// falls back to slog.Default().
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit implements Emitter.
func (l *LogEmitter) Emit(e Event) {
	attrs := []any{
		slog.String("run_id", e.RunID),
		slog.String("node_name", e.NodeName),
		slog.String("context_key", e.ContextKey),
	}
	if e.Err != "" {
		attrs = append(attrs, slog.String("error", e.Err))
	}

	switch e.Type {
	case CacheStoreError, FingerprintFallback:
		l.logger.Warn(string(e.Type), attrs...)
	default:
		l.logger.Debug(string(e.Type), attrs...)
	}
}

// BufferEmitter collects events in memory. Useful for tests and for
// batching hand-offs to external sinks. Safe for concurrent use.
type BufferEmitter struct {
	mu     sync.Mutex
	events []Event
}

// NewBufferEmitter creates an empty buffer emitter.
func NewBufferEmitter() *BufferEmitter {
	return &BufferEmitter{}
}

// Emit implements Emitter.
func (b *BufferEmitter) Emit(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

// Events returns a copy of the collected events in emission order.
func (b *BufferEmitter) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// ByType returns the collected events matching a type.
func (b *BufferEmitter) ByType(t Type) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Event
	for _, e := range b.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
