// Package store defines the durable store contracts behind the cache:
// a content-addressed result store and an append-only metadata store,
// with in-memory, SQLite, and Redis backends.
package store

import (
	"context"
	"errors"
	"time"
)

// Outcome classifies how a node execution attempt ended.
type Outcome string

const (
	// OutcomeComputed means the node ran and produced a fresh value.
	OutcomeComputed Outcome = "computed"

	// OutcomeRetrieved means the value was served from the cache.
	OutcomeRetrieved Outcome = "retrieved"

	// OutcomeError means the attempt failed (either the computation
	// itself or persisting its result).
	OutcomeError Outcome = "error"
)

// Record is the durable trace of one node execution attempt. Records
// are append-only: one per node per run, written once when the attempt
// completes.
type Record struct {
	RunID             string            `json:"run_id"`
	NodeName          string            `json:"node_name"`
	CodeFingerprint   string            `json:"code_fingerprint"`
	InputFingerprints map[string]string `json:"input_fingerprints,omitempty"`
	OutputFingerprint string            `json:"output_fingerprint"`
	ContextKey        string            `json:"context_key"`
	Outcome           Outcome           `json:"outcome"`
	// Format names the codec that serialized the stored result.
	Format string `json:"format,omitempty"`
	// Indexed marks the record as eligible for content-based lookup.
	// Non-indexed records still belong to their run's history (they
	// feed resume and observability) but are invisible to
	// QueryByContextKey.
	Indexed   bool      `json:"indexed"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultStore is a durable key to blob store addressed by context key.
// Entries are content-addressed: a repeat write for an existing key is
// a no-op success, never an error, because the identity invariants
// guarantee equal content for equal keys.
//
// Implementations must be safe for concurrent use, including
// concurrent identical writes for the same key.
type ResultStore interface {
	// Put stores a blob under a context key. Writing to an existing
	// key succeeds without modifying the entry.
	Put(ctx context.Context, key string, blob []byte) error

	// Get retrieves the blob for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Contains reports whether a key is present. Used as a defensive
	// re-check before trusting metadata that may reference a purged
	// blob.
	Contains(ctx context.Context, key string) (bool, error)

	// Close releases any resources (connections, files).
	Close() error
}

// MetadataStore is the durable, queryable record of node executions
// per run. Appends are independent; implementations must not lose
// records under concurrent appends.
type MetadataStore interface {
	// BeginRun registers a run at the moment execution starts, so the
	// run is visible to LatestRun even before its first record.
	BeginRun(ctx context.Context, runID string) error

	// Append adds one record. Records are never mutated in place.
	Append(ctx context.Context, rec Record) error

	// QueryByContextKey returns the indexed records for a context key
	// across all runs, oldest first. Non-indexed records are excluded.
	QueryByContextKey(ctx context.Context, key string) ([]Record, error)

	// LatestRun returns the most recently begun run ID. Returns
	// ErrNoRuns when no run exists.
	LatestRun(ctx context.Context) (string, error)

	// QueryRun returns all records of a run, oldest first, including
	// non-indexed ones. Returns an empty slice for an unknown run.
	QueryRun(ctx context.Context, runID string) ([]Record, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors shared by store implementations.
var (
	// ErrNotFound indicates a requested entry doesn't exist.
	ErrNotFound = errors.New("store: entry not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("store: closed")

	// ErrNoRuns indicates no run has been recorded yet.
	ErrNoRuns = errors.New("store: no runs recorded")

	// ErrFingerprintMismatch indicates two records for the same
	// context key carry different output fingerprints, which means a
	// node is non-deterministic without being marked as such. Only
	// reported by stores with integrity checking enabled.
	ErrFingerprintMismatch = errors.New("store: output fingerprint mismatch for context key")
)
