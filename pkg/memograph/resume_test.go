package memograph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creative-resort/memograph/pkg/memograph"
	"github.com/creative-resort/memograph/pkg/memograph/fingerprint"
)

// TestResumeServesUnindexedResults verifies resume reaches results that
// content lookup cannot: a dont_fingerprint node's output is served
// when the producing run is named.
func TestResumeServesUnindexedResults(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	opaque := memograph.NodeInfo{
		Name:     "train",
		Code:     fingerprint.HashCode("func() Model"),
		Behavior: memograph.BehaviorDontFingerprint,
	}

	run1, err := e.engine.StartRun(ctx, nil, nil)
	require.NoError(t, err)
	compute(t, run1, opaque, nil, "model-bytes")

	// A fresh run recomputes.
	fresh, err := e.engine.StartRun(ctx, nil, nil)
	require.NoError(t, err)
	d, err := fresh.Visit(ctx, opaque, nil)
	require.NoError(t, err)
	require.True(t, d.MustCompute)
	require.NoError(t, d.Record(ctx, "model-bytes", nil))

	// A resumed run is served by name.
	plan, err := e.engine.NewResumePlan(ctx, run1.ID())
	require.NoError(t, err)
	assert.Equal(t, run1.ID(), plan.RunID())
	assert.Equal(t, 1, plan.Len())

	resumed, err := e.engine.StartRun(ctx, nil, nil, memograph.WithResume(plan))
	require.NoError(t, err)
	dr, err := resumed.Visit(ctx, opaque, nil)
	require.NoError(t, err)
	assert.False(t, dr.MustCompute)
	assert.Equal(t, "model-bytes", dr.Value)
}

// TestResumeOutranksPolicy verifies a resumed value is pinned like an
// externally supplied input: a node whose policy forbids retrieval is
// still served from the plan.
func TestResumeOutranksPolicy(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	volatile := memograph.NodeInfo{
		Name:     "fetch",
		Code:     fingerprint.HashCode("func fetch() []byte"),
		Behavior: memograph.BehaviorAlwaysRecompute,
	}

	run1, err := e.engine.StartRun(ctx, nil, nil)
	require.NoError(t, err)
	compute(t, run1, volatile, nil, "payload")

	plan, err := e.engine.NewResumePlan(ctx, run1.ID())
	require.NoError(t, err)
	require.Equal(t, 1, plan.Len())

	resumed, err := e.engine.StartRun(ctx, nil, nil, memograph.WithResume(plan))
	require.NoError(t, err)
	dr, err := resumed.Visit(ctx, volatile, nil)
	require.NoError(t, err)
	assert.False(t, dr.MustCompute, "a resumed value is served regardless of policy")
	assert.Equal(t, "payload", dr.Value)
}

// TestResumeLatestSnapshot verifies "latest" is resolved once at plan
// construction and does not drift as new runs begin.
func TestResumeLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	node := doubleNode("double")
	inputs := map[string]any{"n": 10}

	run1, err := e.engine.StartRun(ctx, inputs, nil)
	require.NoError(t, err)
	compute(t, run1, node, inputs, 20)

	plan, err := e.engine.NewResumePlan(ctx, memograph.ResumeLatest)
	require.NoError(t, err)
	assert.Equal(t, run1.ID(), plan.RunID())

	// A new run begins; the plan stays pointed at run1.
	run2, err := e.engine.StartRun(ctx, inputs, nil)
	require.NoError(t, err)
	require.NotEqual(t, run1.ID(), run2.ID())
	assert.Equal(t, run1.ID(), plan.RunID())
}

// TestResumeUnknownRun verifies bad references fail fast.
func TestResumeUnknownRun(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.engine.NewResumePlan(ctx, "no-such-run")
	assert.ErrorIs(t, err, memograph.ErrRunNotFound)

	// "latest" with no runs at all.
	_, err = e.engine.NewResumePlan(ctx, memograph.ResumeLatest)
	assert.ErrorIs(t, err, memograph.ErrRunNotFound)
}

// TestResumeSkipsErrorRecords verifies failed attempts are not
// resumable.
func TestResumeSkipsErrorRecords(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	node := doubleNode("double")
	inputs := map[string]any{"n": 10}

	run1, err := e.engine.StartRun(ctx, inputs, nil)
	require.NoError(t, err)
	d, err := run1.Visit(ctx, node, inputs)
	require.NoError(t, err)
	require.NoError(t, d.Record(ctx, nil, errors.New("boom")))

	plan, err := e.engine.NewResumePlan(ctx, run1.ID())
	require.NoError(t, err)

	resumed, err := e.engine.StartRun(ctx, inputs, nil, memograph.WithResume(plan))
	require.NoError(t, err)
	dr, err := resumed.Visit(ctx, node, inputs)
	require.NoError(t, err)
	assert.True(t, dr.MustCompute, "error records must not serve resumed runs")
}

// TestResumeMissingBlobFallsThrough verifies a record whose blob was
// never stored degrades to recomputation.
func TestResumeMissingBlobFallsThrough(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, memograph.WithOverrides(memograph.Overrides{
		DontStoreResult: []string{"double"},
	}))
	node := doubleNode("double")
	inputs := map[string]any{"n": 10}

	run1, err := e.engine.StartRun(ctx, inputs, nil)
	require.NoError(t, err)
	compute(t, run1, node, inputs, 20)

	plan, err := e.engine.NewResumePlan(ctx, run1.ID())
	require.NoError(t, err)

	resumed, err := e.engine.StartRun(ctx, inputs, nil, memograph.WithResume(plan))
	require.NoError(t, err)
	dr, err := resumed.Visit(ctx, node, inputs)
	require.NoError(t, err)
	assert.True(t, dr.MustCompute)
}
