package assess

import (
	"context"

	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/proximity"
)

// task is the unit of work for one discovered factor.
type task struct {
	index  int
	source string
	def    factor.Definition
	// columns are the layer's spelling of def.Required, resolved during
	// validation.
	columns []string
}

type taskResult struct {
	task    task
	records []proximity.Record
	err     error
}

// fetch builds the near table for a task in the worker's scratch store, joins
// attributes for Attribute factors, and assembles the records. It is
// idempotent and touches no shared state.
func fetch(ctx context.Context, svc proximity.Service, scratch *proximity.Scratch, assets string, t task) ([]proximity.Record, error) {
	rows, err := svc.GenerateNearTable(ctx, assets, t.source)
	if err != nil {
		return nil, serviceError(ctx, t, "near table", err)
	}
	scratch.Put(t.source, rows)
	defer scratch.Drop(t.source)

	var attrs map[int64]map[string]any
	if t.def.Kind == factor.Attribute {
		attrs, err = svc.JoinAttributes(ctx, t.source, scratch.TargetIDs(t.source), t.columns)
		if err != nil {
			return nil, serviceError(ctx, t, "join attributes", err)
		}
	}
	return scratch.Records(t.source, attrs), nil
}

// serviceError classifies a proximity failure. Cancellation is reported as
// is so the orchestrator can stop instead of skipping the factor.
func serviceError(ctx context.Context, t task, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &ExternalServiceError{Factor: t.def.Name, Layer: t.source, Op: op, Err: err}
}
