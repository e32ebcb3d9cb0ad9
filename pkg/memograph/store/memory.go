package store

import (
	"context"
	"sync"
)

// MemoryResultStore is an in-memory result store for testing. Data is
// lost when the process exits.
type MemoryResultStore struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	closed bool

	// Hit and miss counters, useful for cache behavior assertions.
	hits   int
	misses int
}

// NewMemoryResultStore creates a new in-memory result store.
func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{
		blobs: make(map[string][]byte),
	}
}

// Put implements ResultStore. Existing keys are left untouched.
func (m *MemoryResultStore) Put(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if _, ok := m.blobs[key]; ok {
		return nil
	}

	// Copy to avoid retaining the caller's slice.
	stored := make([]byte, len(blob))
	copy(stored, blob)
	m.blobs[key] = stored
	return nil
}

// Get implements ResultStore.
func (m *MemoryResultStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	blob, ok := m.blobs[key]
	if !ok {
		m.misses++
		return nil, ErrNotFound
	}
	m.hits++

	result := make([]byte, len(blob))
	copy(result, blob)
	return result, nil
}

// Contains implements ResultStore.
func (m *MemoryResultStore) Contains(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrStoreClosed
	}

	_, ok := m.blobs[key]
	return ok, nil
}

// Close implements ResultStore.
func (m *MemoryResultStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.blobs = nil
	return nil
}

// Len returns the number of stored blobs. Useful for testing.
func (m *MemoryResultStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Stats returns the hit and miss counters.
func (m *MemoryResultStore) Stats() (hits, misses int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses
}

// MemoryMetadataStore is an in-memory metadata store for testing.
type MemoryMetadataStore struct {
	mu      sync.RWMutex
	records []Record
	runs    []string
	runSet  map[string]bool
	closed  bool

	// CheckIntegrity enables the optional idempotence verification:
	// appending an indexed record whose output fingerprint differs
	// from an existing indexed record for the same context key returns
	// ErrFingerprintMismatch. Off by default, matching the
	// first-writer-wins, no-verification contract.
	CheckIntegrity bool
}

// NewMemoryMetadataStore creates a new in-memory metadata store.
func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		runSet: make(map[string]bool),
	}
}

// BeginRun implements MetadataStore.
func (m *MemoryMetadataStore) BeginRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if !m.runSet[runID] {
		m.runSet[runID] = true
		m.runs = append(m.runs, runID)
	}
	return nil
}

// Append implements MetadataStore.
func (m *MemoryMetadataStore) Append(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.CheckIntegrity && rec.Indexed {
		for _, existing := range m.records {
			if existing.Indexed && existing.ContextKey == rec.ContextKey &&
				existing.OutputFingerprint != rec.OutputFingerprint {
				return ErrFingerprintMismatch
			}
		}
	}

	m.records = append(m.records, rec)
	return nil
}

// QueryByContextKey implements MetadataStore.
func (m *MemoryMetadataStore) QueryByContextKey(_ context.Context, key string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var out []Record
	for _, rec := range m.records {
		if rec.Indexed && rec.ContextKey == key {
			out = append(out, rec)
		}
	}
	return out, nil
}

// LatestRun implements MetadataStore.
func (m *MemoryMetadataStore) LatestRun(_ context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return "", ErrStoreClosed
	}

	if len(m.runs) == 0 {
		return "", ErrNoRuns
	}
	return m.runs[len(m.runs)-1], nil
}

// QueryRun implements MetadataStore.
func (m *MemoryMetadataStore) QueryRun(_ context.Context, runID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var out []Record
	for _, rec := range m.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Close implements MetadataStore.
func (m *MemoryMetadataStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	m.runs = nil
	m.runSet = nil
	return nil
}

// Len returns the total number of records. Useful for testing.
func (m *MemoryMetadataStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
