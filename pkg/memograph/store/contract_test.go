package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creative-resort/memograph/pkg/memograph/store"
)

// testRecord builds a record with sensible defaults.
func testRecord(runID, node, key string) store.Record {
	return store.Record{
		RunID:           runID,
		NodeName:        node,
		CodeFingerprint: "code-" + node,
		InputFingerprints: map[string]string{
			"x": "fp-x",
		},
		OutputFingerprint: "fp-" + node,
		ContextKey:        key,
		Outcome:           store.OutcomeComputed,
		Format:            "json",
		Indexed:           true,
		CreatedAt:         time.Now().UTC(),
	}
}

// runResultStoreContract exercises the ResultStore contract against any
// backend.
func runResultStoreContract(t *testing.T, newStore func(t *testing.T) store.ResultStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("put and get", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Put(ctx, "key-1", []byte("blob-1")))

		blob, err := s.Get(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("blob-1"), blob)
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("contains", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		ok, err := s.Contains(ctx, "key-1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.Put(ctx, "key-1", []byte("blob")))
		ok, err = s.Contains(ctx, "key-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("repeat put is a no-op success", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Put(ctx, "key-1", []byte("first")))
		require.NoError(t, s.Put(ctx, "key-1", []byte("second")))

		blob, err := s.Get(ctx, "key-1")
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), blob, "first writer wins")
	})

	t.Run("concurrent identical puts", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Put(ctx, "shared", []byte("same")))
			}()
		}
		wg.Wait()

		blob, err := s.Get(ctx, "shared")
		require.NoError(t, err)
		assert.Equal(t, []byte("same"), blob)
	})
}

// runMetadataStoreContract exercises the MetadataStore contract against
// any backend.
func runMetadataStoreContract(t *testing.T, newStore func(t *testing.T) store.MetadataStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("append and query by context key", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		rec := testRecord("run-1", "double", "ck-1")
		require.NoError(t, s.Append(ctx, rec))

		got, err := s.QueryByContextKey(ctx, "ck-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, rec.NodeName, got[0].NodeName)
		assert.Equal(t, rec.OutputFingerprint, got[0].OutputFingerprint)
		assert.Equal(t, rec.InputFingerprints, got[0].InputFingerprints)
		assert.Equal(t, store.OutcomeComputed, got[0].Outcome)
		assert.True(t, got[0].Indexed)
	})

	t.Run("query excludes non-indexed records", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		hidden := testRecord("run-1", "opaque", "ck-2")
		hidden.Indexed = false
		require.NoError(t, s.Append(ctx, hidden))

		got, err := s.QueryByContextKey(ctx, "ck-2")
		require.NoError(t, err)
		assert.Empty(t, got)

		// The record still belongs to its run's history.
		history, err := s.QueryRun(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, "opaque", history[0].NodeName)
	})

	t.Run("query ordering oldest first", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		for i := 0; i < 3; i++ {
			rec := testRecord(fmt.Sprintf("run-%d", i), "n", "ck-ord")
			require.NoError(t, s.Append(ctx, rec))
		}

		got, err := s.QueryByContextKey(ctx, "ck-ord")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "run-0", got[0].RunID)
		assert.Equal(t, "run-2", got[2].RunID)
	})

	t.Run("latest run follows begin order", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		_, err := s.LatestRun(ctx)
		assert.ErrorIs(t, err, store.ErrNoRuns)

		require.NoError(t, s.BeginRun(ctx, "run-a"))
		require.NoError(t, s.BeginRun(ctx, "run-b"))

		latest, err := s.LatestRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, "run-b", latest)

		// Re-beginning an existing run does not reorder.
		require.NoError(t, s.BeginRun(ctx, "run-a"))
		latest, err = s.LatestRun(ctx)
		require.NoError(t, err)
		assert.Equal(t, "run-b", latest)
	})

	t.Run("query run scopes by run id", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		require.NoError(t, s.Append(ctx, testRecord("run-1", "a", "ck-a")))
		require.NoError(t, s.Append(ctx, testRecord("run-1", "b", "ck-b")))
		require.NoError(t, s.Append(ctx, testRecord("run-2", "a", "ck-a")))

		got, err := s.QueryRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Len(t, got, 2)

		got, err = s.QueryRun(ctx, "unknown")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("concurrent appends lose nothing", func(t *testing.T) {
		s := newStore(t)
		defer s.Close()

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				rec := testRecord("run-c", fmt.Sprintf("n%d", i), fmt.Sprintf("ck-%d", i))
				assert.NoError(t, s.Append(ctx, rec))
			}(i)
		}
		wg.Wait()

		got, err := s.QueryRun(ctx, "run-c")
		require.NoError(t, err)
		assert.Len(t, got, 20)
	})

	t.Run("closed store rejects operations", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Close())

		err := s.Append(ctx, testRecord("run-1", "n", "ck"))
		assert.ErrorIs(t, err, store.ErrStoreClosed)
	})
}
