// Package emit defines the structured cache events the engine produces
// and the pluggable sinks that consume them.
//
// Emitters are injected through the orchestrator's constructor, never
// reached through ambient global state. Implementations should be
// non-blocking, thread-safe, and resilient: a failing sink must never
// fail a dataflow.
package emit

import "time"

// Type classifies a cache event.
type Type string

// Event types emitted by the engine.
const (
	// CacheHit: a node's result was served from the result store.
	CacheHit Type = "cache_hit"

	// CacheMiss: retrieval was attempted and found nothing usable.
	// This is normal control flow, not a failure.
	CacheMiss Type = "cache_miss"

	// CacheStoreError: persisting a result or record failed; the
	// computed value was still returned uncached.
	CacheStoreError Type = "cache_store_error"

	// FingerprintFallback: a value could not be content-hashed and
	// degraded to the constant fallback fingerprint.
	FingerprintFallback Type = "fingerprint_fallback"
)

// Event is one structured cache event. Events are immutable once
// created.
type Event struct {
	Type       Type      `json:"type"`
	RunID      string    `json:"run_id"`
	NodeName   string    `json:"node_name"`
	ContextKey string    `json:"context_key,omitempty"`
	Err        string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// Emitter receives cache events. Emit must not panic and must not
// block the caller; errors are the emitter's own concern.
type Emitter interface {
	Emit(e Event)
}

// NullEmitter discards all events. It is the default sink.
type NullEmitter struct{}

// Emit implements Emitter.
func (NullEmitter) Emit(Event) {}

// MultiEmitter fans events out to several sinks in order.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(e Event) {
	for _, em := range m {
		em.Emit(e)
	}
}
