/*
Package memograph provides content-addressed memoization for dataflow
graph executions.

# Overview

memograph sits between a dataflow executor and durable storage. Before
a node runs, the executor asks the orchestrator for a decision; the
orchestrator derives the node's context key from its code fingerprint
and the fingerprints of its named inputs, and either serves the result
from the cache or tells the executor to compute. After computing, the
executor hands the value back and the engine fingerprints, stores, and
records it.

Cache identity is purely content-based:
  - Data fingerprinting via structural decomposition and xxhash
  - Code fingerprinting as a separate SHA-256 domain
  - Context keys independent of node names and graph shape
  - Per-node caching behaviors with run-level overrides
  - Append-only execution records enabling resume from any prior run

# Basic Usage

Wire stores, start a run, and visit nodes in dependency order:

	meta := store.NewMemoryMetadataStore()
	results := store.NewMemoryResultStore()
	engine, err := memograph.NewOrchestrator(meta, results)
	if err != nil {
	    log.Fatal(err)
	}

	run, err := engine.StartRun(ctx, map[string]any{"n": 10}, nil)
	if err != nil {
	    log.Fatal(err)
	}

	node := memograph.NodeInfo{
	    Name: "double",
	    Code: fingerprint.HashCode("func double(n int) int { return n * 2 }"),
	}
	d, err := run.Visit(ctx, node, map[string]any{"n": 10})
	if err != nil {
	    log.Fatal(err)
	}
	if d.MustCompute {
	    value := 20 // the executor computes the node
	    _ = d.Record(ctx, value, nil)
	} else {
	    _ = d.Value // served from the cache
	}

On the next run with the same code and inputs, Visit serves the value
without computing.

# Caching Behaviors

Nodes opt out of parts of caching with declared behaviors (default,
ignore, always_recompute, dont_fingerprint, dont_store_result), and
runs override them:

	engine, err := memograph.NewOrchestrator(meta, results,
	    memograph.WithOverrides(memograph.Overrides{
	        AlwaysRecompute: []string{"fetch_rates"},
	    }),
	)

# Resuming

A new run can serve node results recorded by a prior run, by name:

	plan, err := engine.NewResumePlan(ctx, memograph.ResumeLatest)
	if err != nil {
	    log.Fatal(err)
	}
	run, err := engine.StartRun(ctx, inputs, nil, memograph.WithResume(plan))

# Failure Posture

The cache is an accelerator, never a correctness dependency. Store
failures degrade: retrieval errors become misses, write errors leave
the computed value usable uncached, and every degradation is logged and
emitted as a structured event.
*/
package memograph
