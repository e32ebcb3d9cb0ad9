package memograph

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/creative-resort/memograph/pkg/memograph/codec"
	"github.com/creative-resort/memograph/pkg/memograph/emit"
	"github.com/creative-resort/memograph/pkg/memograph/fingerprint"
	"github.com/creative-resort/memograph/pkg/memograph/observability"
	"github.com/creative-resort/memograph/pkg/memograph/store"
)

// Orchestrator is the per-node cache decision engine. The external
// executor calls StartRun once per dataflow execution, then Visit for
// each node about to run; Visit either serves a cached value or hands
// back a decision the executor completes with Record after computing.
//
// The orchestrator owns the decision logic but not the stores. It is
// safe for concurrent Visits, including concurrent Visits that resolve
// to the same context key (fan-out graphs sharing identical
// code+input content): retrievals are deduplicated per key and result
// writes are idempotent by the store contract.
type Orchestrator struct {
	meta    store.MetadataStore
	results store.ResultStore

	fingerprints *fingerprint.Registry
	codecs       *codec.Registry
	overrides    Overrides

	emitter emit.Emitter
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	// group deduplicates concurrent retrievals for one context key.
	group singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFingerprints sets the fingerprint registry.
// Default: fingerprint.Default.
func WithFingerprints(r *fingerprint.Registry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.fingerprints = r
		}
	}
}

// WithCodecs sets the codec registry. Default: codec.Default.
func WithCodecs(r *codec.Registry) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.codecs = r
		}
	}
}

// WithOverrides sets the run-level policy overrides. They take
// precedence over node-declared behaviors; contradictory lists are
// rejected by NewOrchestrator.
func WithOverrides(ov Overrides) Option {
	return func(o *Orchestrator) {
		o.overrides = ov
	}
}

// WithEmitter sets the cache event sink. Default: emit.NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(o *Orchestrator) {
		if e != nil {
			o.emitter = e
		}
	}
}

// WithLogger sets the structured logger for diagnostics. Default: no
// logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics enables OpenTelemetry metrics. Default: disabled.
func WithMetrics(enabled bool) Option {
	return func(o *Orchestrator) {
		if enabled {
			o.metrics = observability.NewMetricsRecorder()
		} else {
			o.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables OpenTelemetry tracing. Default: disabled.
func WithTracing(enabled bool) Option {
	return func(o *Orchestrator) {
		if enabled {
			o.spans = observability.NewSpanManager()
		} else {
			o.spans = observability.NoopSpanManager{}
		}
	}
}

// NewOrchestrator creates an orchestrator over a metadata store and a
// result store. Contradictory policy overrides are rejected here,
// before any execution starts.
func NewOrchestrator(meta store.MetadataStore, results store.ResultStore, opts ...Option) (*Orchestrator, error) {
	if meta == nil || results == nil {
		return nil, ErrNilStore
	}

	o := &Orchestrator{
		meta:         meta,
		results:      results,
		fingerprints: fingerprint.Default,
		codecs:       codec.Default,
		emitter:      emit.NullEmitter{},
		metrics:      observability.NoopMetrics{},
		spans:        observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.overrides.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// emitEvent sends one structured cache event to the configured sink.
func (o *Orchestrator) emitEvent(t emit.Type, runID, nodeName, contextKey string, err error) {
	e := emit.Event{
		Type:       t,
		RunID:      runID,
		NodeName:   nodeName,
		ContextKey: contextKey,
		At:         time.Now().UTC(),
	}
	if err != nil {
		e.Err = err.Error()
	}
	o.emitter.Emit(e)
}
