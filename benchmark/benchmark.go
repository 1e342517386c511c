package benchmark

import (
	"context"

	"crudbench/errs"
	"crudbench/gateway"
)

type Benchmark interface {
	// Binds the benchmark to the gateway and returns the ordered steps of one run
	Prepare(gw *gateway.Gateway) []Step
	// Returns the benchmark-specific configurations
	GetConfigs() map[string]string
	// Returns the benchmark-specific metrics
	GetMetrics(ctx context.Context, gw *gateway.Gateway) map[string]string
}

// Step is one timed operation of a run.
type Step struct {
	Name string
	// Truncate asks the runner to empty the target table before the step is timed
	Truncate bool
	Run      func(ctx context.Context) Outcome
}

// Outcome is the result of one operation: the affected row count (or the
// number of rows read), the rows of a read, or a categorized failure.
type Outcome struct {
	Label string
	Rows  int64
	Table *gateway.Table
	Err   error
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Kind is the failure category, or "" on success.
func (o Outcome) Kind() errs.Kind {
	return errs.KindOf(o.Err)
}
