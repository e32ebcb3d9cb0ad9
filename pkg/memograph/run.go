package memograph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/creative-resort/memograph/pkg/memograph/codec"
	"github.com/creative-resort/memograph/pkg/memograph/emit"
	"github.com/creative-resort/memograph/pkg/memograph/fingerprint"
	"github.com/creative-resort/memograph/pkg/memograph/observability"
	"github.com/creative-resort/memograph/pkg/memograph/store"
)

// errCacheMiss is the internal signal that a retrieval attempt found
// nothing usable. Misses are normal control flow.
var errCacheMiss = errors.New("cache miss")

// RunOption configures a run at start time.
type RunOption func(*Run)

// WithResume attaches a resume plan: nodes recorded by the referenced
// prior run are served from it by name, bypassing both content lookup
// and the node's own caching policy.
func WithResume(plan *ResumePlan) RunOption {
	return func(r *Run) {
		r.resume = plan
	}
}

// Run is one dataflow execution under the orchestrator. It carries the
// run's identity and the in-run fingerprint table: the output
// fingerprint of every node and input seen so far, which downstream
// Visits consult to derive context keys without rehashing upstream
// values.
//
// A Run is safe for concurrent Visits.
type Run struct {
	o  *Orchestrator
	id string

	mu           sync.RWMutex
	fingerprints map[string]fingerprint.Fingerprint

	resume *ResumePlan
	span   trace.Span
}

// StartRun begins a cached run. Top-level input values are fingerprinted
// once here and pinned, so every downstream key derivation sees the
// same identities; caller-provided override values are pinned the same
// way but never retrieved or stored.
//
// The run is registered with the metadata store immediately so it is
// visible as the latest run even before its first record.
func (o *Orchestrator) StartRun(ctx context.Context, inputs, overrides map[string]any, opts ...RunOption) (*Run, error) {
	id := uuid.NewString()
	if err := o.meta.BeginRun(ctx, id); err != nil {
		return nil, &StoreError{Op: "begin_run", Err: err}
	}

	r := &Run{
		o:            o,
		id:           id,
		fingerprints: make(map[string]fingerprint.Fingerprint, len(inputs)+len(overrides)),
	}
	for _, opt := range opts {
		opt(r)
	}

	ctx, r.span = o.spans.StartRunSpan(ctx, id)
	observability.LogRunStart(o.logger, id)

	for name, value := range inputs {
		fp := r.pinValue(ctx, name, value)
		// Inputs have no code of their own; record them under a
		// synthetic per-name identity so run history is self-contained.
		if err := o.meta.Append(ctx, store.Record{
			RunID:             id,
			NodeName:          name,
			CodeFingerprint:   fingerprint.InputCode(name).String(),
			OutputFingerprint: fp.String(),
			Outcome:           store.OutcomeComputed,
			CreatedAt:         time.Now().UTC(),
		}); err != nil {
			observability.LogStoreError(o.logger, name, "append", err)
		}
	}
	for name, value := range overrides {
		r.pinValue(ctx, name, value)
	}
	return r, nil
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// End closes the run's trace span. err, if non-nil, marks the run as
// failed.
func (r *Run) End(err error) {
	r.o.spans.EndSpanWithError(r.span, err)
}

// pinValue fingerprints a value and pins it under a name.
func (r *Run) pinValue(ctx context.Context, name string, value any) fingerprint.Fingerprint {
	fp, degraded := r.o.fingerprints.HashDetailed(value)
	if degraded {
		r.o.emitEvent(emit.FingerprintFallback, r.id, name, "", nil)
		observability.LogFingerprintFallback(r.o.logger, name, name)
		r.o.metrics.RecordFingerprintFallback(ctx, name)
	}
	r.pin(name, fp)
	return fp
}

// pin records a name's output fingerprint in the in-run table.
func (r *Run) pin(name string, fp fingerprint.Fingerprint) {
	r.mu.Lock()
	r.fingerprints[name] = fp
	r.mu.Unlock()
}

// pinned looks up a name in the in-run table.
func (r *Run) pinned(name string) (fingerprint.Fingerprint, bool) {
	r.mu.RLock()
	fp, ok := r.fingerprints[name]
	r.mu.RUnlock()
	return fp, ok
}

// Decision is the orchestrator's answer for one node visit. Either the
// value was served from the cache (MustCompute false, Value set), or
// the executor must compute the node and complete the decision with
// Record.
type Decision struct {
	run  *Run
	node NodeInfo

	behavior Behavior
	flags    Flags
	key      fingerprint.ContextKey
	inputFPs map[string]fingerprint.Fingerprint

	// MustCompute is true when the executor must run the node.
	MustCompute bool

	// Value is the cached value when MustCompute is false.
	Value any

	// Outcome classifies how the visit resolved. For decisions that
	// must compute it is set by Record.
	Outcome store.Outcome

	recorded atomic.Bool
}

// ContextKey returns the context key derived for this node execution.
func (d *Decision) ContextKey() string { return d.key.String() }

// Behavior returns the effective behavior after override resolution.
func (d *Decision) Behavior() Behavior { return d.behavior }

// Flags returns the effective capability flags.
func (d *Decision) Flags() Flags { return d.flags }

// Visit resolves the cache decision for a node about to execute. The
// inputs map carries the node's dependency values by name; values whose
// fingerprints are already pinned in the run table are not rehashed.
//
// A nil error with MustCompute false means the value was served from
// the cache. A nil error with MustCompute true means the executor must
// compute the node and then call Record exactly once.
func (r *Run) Visit(ctx context.Context, node NodeInfo, inputs map[string]any) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o := r.o

	ctx, span := o.spans.StartVisitSpan(ctx, node.Name)
	defer o.spans.EndSpanWithError(span, nil)

	behavior, flags := ResolvePolicy(node.Name, node.Behavior, o.overrides)
	inputFPs := r.resolveInputs(ctx, node, inputs)
	key := fingerprint.ResolveContextKey(node.Code, inputFPs)

	d := &Decision{
		run:      r,
		node:     node,
		behavior: behavior,
		flags:    flags,
		key:      key,
		inputFPs: inputFPs,
	}

	// A resume-plan hit outranks policy: a pinned prior result is
	// served like an externally supplied input, whatever the node's
	// retrieve flag says this run.
	elapsed := observability.TimedOperation()
	value, rec, served := r.fromResume(ctx, node)
	if !served && flags.TryRetrieve {
		value, rec, served = r.tryRetrieve(ctx, node, key)
	}
	if served {
		// Descendants derive their keys from the stored output
		// identity, exactly as if the node had just computed.
		r.pin(node.Name, fingerprint.Fingerprint(rec.OutputFingerprint))
		r.appendRecord(ctx, store.Record{
			RunID:             r.id,
			NodeName:          node.Name,
			CodeFingerprint:   node.Code.String(),
			InputFingerprints: fingerprintStrings(inputFPs),
			OutputFingerprint: rec.OutputFingerprint,
			ContextKey:        key.String(),
			Outcome:           store.OutcomeRetrieved,
			Format:            rec.Format,
			Indexed:           flags.StoreFingerprint && !key.Unstable(),
			CreatedAt:         time.Now().UTC(),
		})
		o.emitEvent(emit.CacheHit, r.id, node.Name, key.String(), nil)
		observability.LogCacheHit(o.logger, node.Name, key.String(), elapsed())
		o.metrics.RecordRetrieval(ctx, node.Name, true, time.Duration(elapsed())*time.Millisecond)

		d.Value = value
		d.Outcome = store.OutcomeRetrieved
		return d, nil
	}
	if flags.TryRetrieve {
		o.emitEvent(emit.CacheMiss, r.id, node.Name, key.String(), nil)
		observability.LogCacheMiss(o.logger, node.Name, key.String())
		o.metrics.RecordRetrieval(ctx, node.Name, false, time.Duration(elapsed())*time.Millisecond)
	}

	d.MustCompute = true
	return d, nil
}

// fromResume serves a node from the attached resume plan, if any. A
// record whose blob cannot be fetched falls through to normal
// execution.
func (r *Run) fromResume(ctx context.Context, node NodeInfo) (any, store.Record, bool) {
	if r.resume == nil {
		return nil, store.Record{}, false
	}
	rec, ok := r.resume.record(node.Name)
	if !ok {
		return nil, store.Record{}, false
	}
	value, err := r.fetchValue(ctx, node, rec)
	if err != nil {
		if !errors.Is(err, errCacheMiss) {
			observability.LogStoreError(r.o.logger, node.Name, "resume_get", err)
		}
		return nil, store.Record{}, false
	}
	return value, rec, true
}

// resolveInputs produces the named input fingerprints for a node,
// preferring pinned identities over rehashing.
func (r *Run) resolveInputs(ctx context.Context, node NodeInfo, inputs map[string]any) map[string]fingerprint.Fingerprint {
	out := make(map[string]fingerprint.Fingerprint, len(inputs))
	for name, value := range inputs {
		if fp, ok := r.pinned(name); ok {
			out[name] = fp
			continue
		}
		fp, degraded := r.o.fingerprints.HashDetailed(value)
		if degraded {
			r.o.emitEvent(emit.FingerprintFallback, r.id, node.Name, "", nil)
			observability.LogFingerprintFallback(r.o.logger, node.Name, name)
			r.o.metrics.RecordFingerprintFallback(ctx, node.Name)
		}
		r.pin(name, fp)
		out[name] = fp
	}
	return out
}

// retrieved bundles a successful retrieval.
type retrieved struct {
	value any
	rec   store.Record
}

// tryRetrieve attempts to serve a node from the cache: the metadata
// store is queried by context key and the blob re-checked, fetched,
// and decoded. Any failure along the way degrades to a miss.
//
// Concurrent retrievals for one context key are collapsed into a
// single store round trip.
func (r *Run) tryRetrieve(ctx context.Context, node NodeInfo, key fingerprint.ContextKey) (any, store.Record, bool) {
	o := r.o

	if key.Unstable() {
		return nil, store.Record{}, false
	}

	v, err, _ := o.group.Do(key.String(), func() (any, error) {
		recs, err := o.meta.QueryByContextKey(ctx, key.String())
		if err != nil {
			return nil, err
		}
		if len(recs) == 0 {
			return nil, errCacheMiss
		}
		rec := recs[0]
		value, err := r.fetchValue(ctx, node, rec)
		if err != nil {
			return nil, err
		}
		return retrieved{value: value, rec: rec}, nil
	})
	if err != nil {
		if !errors.Is(err, errCacheMiss) {
			observability.LogStoreError(o.logger, node.Name, "retrieve", err)
		}
		return nil, store.Record{}, false
	}
	hit := v.(retrieved)
	return hit.value, hit.rec, true
}

// fetchValue loads and decodes the blob a record points at. A missing
// blob or a corrupt entry is a miss, not a failure.
func (r *Run) fetchValue(ctx context.Context, node NodeInfo, rec store.Record) (any, error) {
	o := r.o

	ok, err := o.results.Contains(ctx, rec.ContextKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errCacheMiss
	}
	blob, err := o.results.Get(ctx, rec.ContextKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errCacheMiss
		}
		return nil, err
	}
	c, err := o.codecs.Lookup(rec.Format)
	if err != nil {
		return nil, errCacheMiss
	}
	value, err := c.Decode(blob)
	if err != nil {
		// Corrupt entry. Recompute rather than fail the node.
		observability.LogStoreError(o.logger, node.Name, "decode", err)
		return nil, errCacheMiss
	}
	return value, nil
}

// Record completes a must-compute decision with the node's computed
// value (or its computation error). It fingerprints and persists the
// value per the decision's flags, pins the node's output identity for
// downstream key derivation, and appends the execution record.
//
// Store failures never fail the node: the value stays usable uncached.
// The one error surfaced besides misuse is a serialization failure,
// which the executor may choose to treat as fatal. If ctx was cancelled
// before completion, nothing is recorded.
func (d *Decision) Record(ctx context.Context, value any, computeErr error) error {
	if !d.MustCompute {
		return ErrNotComputable
	}
	if d.recorded.Swap(true) {
		return ErrAlreadyRecorded
	}
	if err := ctx.Err(); err != nil {
		// Cancelled mid-computation: as if the attempt never started.
		return err
	}

	r := d.run
	o := r.o
	key := d.key.String()

	if computeErr != nil {
		// Error records are appended regardless of policy so failures
		// are observable in run history.
		d.Outcome = store.OutcomeError
		r.appendRecord(ctx, d.record(store.OutcomeError, "", false))
		return nil
	}

	outFP := fingerprint.Sentinel
	if d.flags.FingerprintResult {
		fp, degraded := o.fingerprints.HashDetailed(value)
		if degraded {
			o.emitEvent(emit.FingerprintFallback, r.id, d.node.Name, key, nil)
			observability.LogFingerprintFallback(o.logger, d.node.Name, "result")
			o.metrics.RecordFingerprintFallback(ctx, d.node.Name)
		}
		outFP = fp
	}

	// What descendants see. An opted-out node exposes no identity at
	// all, poisoning downstream keys.
	exposed := outFP
	if d.behavior == BehaviorIgnore {
		exposed = fingerprint.Unstable
	}
	r.pin(d.node.Name, exposed)
	d.Outcome = store.OutcomeComputed

	if d.flags.StoreResult && !d.key.Unstable() {
		var serr error
		if err := d.storeValue(ctx, value, &serr); err != nil {
			// Computed but uncached. The failure is recorded as an
			// error-outcome record when the metadata store allows it.
			o.emitEvent(emit.CacheStoreError, r.id, d.node.Name, key, err)
			observability.LogStoreError(o.logger, d.node.Name, "put", err)
			o.metrics.RecordStoreError(ctx, d.node.Name, "put")
			r.appendRecord(ctx, d.record(store.OutcomeError, outFP.String(), false))
			return serr
		}
	}

	indexed := d.flags.StoreFingerprint && !d.key.Unstable()
	r.appendRecord(ctx, d.record(store.OutcomeComputed, outFP.String(), indexed))
	return nil
}

// storeValue encodes and writes the computed value. Serialization
// failures are additionally surfaced through serr so the executor can
// distinguish them from store unavailability.
func (d *Decision) storeValue(ctx context.Context, value any, serr *error) error {
	o := d.run.o
	c, err := o.codecs.Lookup(d.node.Format)
	if err != nil {
		*serr = &SerializationError{NodeName: d.node.Name, Format: d.node.Format, Op: "encode", Err: err}
		return *serr
	}
	blob, err := c.Encode(value)
	if err != nil {
		*serr = &SerializationError{NodeName: d.node.Name, Format: c.Name(), Op: "encode", Err: err}
		return *serr
	}
	if err := o.results.Put(ctx, d.key.String(), blob); err != nil {
		return &StoreError{NodeName: d.node.Name, Op: "put", Key: d.key.String(), Err: err}
	}
	return nil
}

// record builds this decision's execution record.
func (d *Decision) record(outcome store.Outcome, outputFP string, indexed bool) store.Record {
	format := d.node.Format
	if format == "" {
		format = codec.DefaultFormat
	}
	return store.Record{
		RunID:             d.run.id,
		NodeName:          d.node.Name,
		CodeFingerprint:   d.node.Code.String(),
		InputFingerprints: fingerprintStrings(d.inputFPs),
		OutputFingerprint: outputFP,
		ContextKey:        d.key.String(),
		Outcome:           outcome,
		Format:            format,
		Indexed:           indexed,
		CreatedAt:         time.Now().UTC(),
	}
}

// appendRecord appends a record, degrading to a logged diagnostic on
// failure.
func (r *Run) appendRecord(ctx context.Context, rec store.Record) {
	if err := r.o.meta.Append(ctx, rec); err != nil {
		r.o.emitEvent(emit.CacheStoreError, r.id, rec.NodeName, rec.ContextKey, err)
		observability.LogStoreError(r.o.logger, rec.NodeName, "append", err)
		r.o.metrics.RecordStoreError(ctx, rec.NodeName, "append")
	}
}

// fingerprintStrings converts a fingerprint map to its stored form.
func fingerprintStrings(fps map[string]fingerprint.Fingerprint) map[string]string {
	if len(fps) == 0 {
		return nil
	}
	out := make(map[string]string, len(fps))
	for name, fp := range fps {
		out[name] = fp.String()
	}
	return out
}
