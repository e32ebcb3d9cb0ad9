package memograph

import (
	"errors"
	"fmt"
)

// Sentinel errors for configuration.
var (
	// ErrPolicyConflict indicates contradictory run-level overrides.
	ErrPolicyConflict = errors.New("conflicting policy overrides")

	// ErrNilStore indicates an orchestrator was built without a store.
	ErrNilStore = errors.New("store cannot be nil")

	// ErrUnknownBehavior indicates an unrecognized behavior name.
	ErrUnknownBehavior = errors.New("unknown caching behavior")
)

// Sentinel errors for execution.
var (
	// ErrAlreadyRecorded indicates Record was called twice on one
	// decision.
	ErrAlreadyRecorded = errors.New("decision already recorded")

	// ErrNotComputable indicates Record was called on a decision that
	// was served from the cache.
	ErrNotComputable = errors.New("decision was a cache hit; nothing to record")

	// ErrRunNotFound indicates a resume reference names a run with no
	// metadata.
	ErrRunNotFound = errors.New("run not found")
)

// StoreError wraps a failed store operation with its context.
type StoreError struct {
	// NodeName is the node whose store operation failed.
	NodeName string
	// Op is the operation that failed ("put", "get", "append").
	Op string
	// Key is the context key involved, if any.
	Key string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s for node %s: %v", e.Op, e.NodeName, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// SerializationError wraps an encode or decode failure for a cacheable
// value. It is fatal to that node's caching, never to the run: the
// computed value is still returned to the executor uncached.
type SerializationError struct {
	// NodeName is the node whose value failed to serialize.
	NodeName string
	// Format is the codec format tag.
	Format string
	// Op is "encode" or "decode".
	Op string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s %s value for node %s: %v", e.Op, e.Format, e.NodeName, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SerializationError) Unwrap() error {
	return e.Err
}
