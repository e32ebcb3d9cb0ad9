package memograph

import (
	"context"
	"errors"
	"fmt"

	"github.com/creative-resort/memograph/pkg/memograph/observability"
	"github.com/creative-resort/memograph/pkg/memograph/store"
)

// ResumeLatest is the symbolic run reference that resolves to the most
// recently begun run at plan construction time.
const ResumeLatest = "latest"

// ResumePlan maps node names to the execution records of one prior
// run, so a new run can serve those nodes' results by name instead of
// recomputing them. Only records pointing at a retrievable, successful
// result participate.
//
// The symbolic "latest" reference is resolved exactly once, when the
// plan is built. Runs started afterwards do not shift the plan.
type ResumePlan struct {
	runID   string
	records map[string]store.Record
}

// NewResumePlan builds a resume plan from a prior run reference: a
// concrete run ID or ResumeLatest. Referencing a run with no metadata
// is an error.
func (o *Orchestrator) NewResumePlan(ctx context.Context, ref string) (*ResumePlan, error) {
	runID := ref
	if ref == ResumeLatest {
		latest, err := o.meta.LatestRun(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNoRuns) {
				return nil, fmt.Errorf("resolve %q: %w", ref, ErrRunNotFound)
			}
			return nil, &StoreError{Op: "latest_run", Err: err}
		}
		runID = latest
	}

	recs, err := o.meta.QueryRun(ctx, runID)
	if err != nil {
		return nil, &StoreError{Op: "query_run", Err: err}
	}
	if ref != ResumeLatest && len(recs) == 0 {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}

	plan := &ResumePlan{
		runID:   runID,
		records: make(map[string]store.Record, len(recs)),
	}
	for _, rec := range recs {
		// Failed attempts and entries without a stored blob cannot be
		// served. Later records for a name replace earlier ones.
		if rec.Outcome == store.OutcomeError || rec.ContextKey == "" {
			continue
		}
		plan.records[rec.NodeName] = rec
	}

	observability.LogResume(o.logger, runID, len(plan.records))
	return plan, nil
}

// RunID returns the prior run the plan resolved to.
func (p *ResumePlan) RunID() string { return p.runID }

// Len returns the number of nodes the plan can serve.
func (p *ResumePlan) Len() int { return len(p.records) }

// record looks up the prior record for a node name.
func (p *ResumePlan) record(name string) (store.Record, bool) {
	rec, ok := p.records[name]
	return rec, ok
}
