package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creative-resort/memograph/pkg/memograph/store"
)

func TestMemoryResultStoreContract(t *testing.T) {
	runResultStoreContract(t, func(t *testing.T) store.ResultStore {
		return store.NewMemoryResultStore()
	})
}

func TestMemoryMetadataStoreContract(t *testing.T) {
	runMetadataStoreContract(t, func(t *testing.T) store.MetadataStore {
		return store.NewMemoryMetadataStore()
	})
}

// TestMemoryResultStoreStats verifies the hit/miss counters.
func TestMemoryResultStoreStats(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryResultStore()
	defer s.Close()

	require.NoError(t, s.Put(ctx, "k", []byte("v")))

	_, err := s.Get(ctx, "k")
	require.NoError(t, err)
	_, err = s.Get(ctx, "absent")
	require.ErrorIs(t, err, store.ErrNotFound)

	hits, misses := s.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
	assert.Equal(t, 1, s.Len())
}

// TestMemoryResultStoreCopies verifies stored and returned blobs are
// insulated from caller mutation.
func TestMemoryResultStoreCopies(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryResultStore()
	defer s.Close()

	blob := []byte("original")
	require.NoError(t, s.Put(ctx, "k", blob))
	blob[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}

// TestMemoryMetadataStoreIntegrity verifies the optional mismatch
// check: indexed records for one context key must agree on the output
// fingerprint.
func TestMemoryMetadataStoreIntegrity(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryMetadataStore()
	s.CheckIntegrity = true
	defer s.Close()

	first := testRecord("run-1", "n", "ck")
	require.NoError(t, s.Append(ctx, first))

	// Same fingerprint: fine.
	second := testRecord("run-2", "n", "ck")
	require.NoError(t, s.Append(ctx, second))

	// Diverging fingerprint for the same key: hidden non-determinism.
	bad := testRecord("run-3", "n", "ck")
	bad.OutputFingerprint = "different"
	err := s.Append(ctx, bad)
	assert.ErrorIs(t, err, store.ErrFingerprintMismatch)

	// Non-indexed records are exempt.
	bad.Indexed = false
	assert.NoError(t, s.Append(ctx, bad))
}
