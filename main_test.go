package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crudbench/errs"
	"crudbench/worker"
)

func TestAggregateResults(t *testing.T) {
	runs := []*worker.RunResults{
		{Steps: []worker.StepResult{
			{Operation: "bulk_insertion", Rows: 100, Seconds: 2},
			{Operation: "narrow_query", Rows: 5, Seconds: 0.1},
		}},
		{Steps: []worker.StepResult{
			{Operation: "bulk_insertion", Rows: 0, Seconds: 4, Kind: errs.ConstraintViolation},
			{Operation: "narrow_query", Rows: 5, Seconds: 0.3},
		}},
	}

	aggregated, order := aggregateResults(runs)

	assert.Equal(t, []string{"bulk_insertion", "narrow_query"}, order)

	bulk := aggregated["bulk_insertion"]
	assert.InDelta(t, 3.0, bulk.rt, 1e-9)
	assert.InDelta(t, 50.0, bulk.rows, 1e-9)
	assert.Equal(t, 1, bulk.failures)

	query := aggregated["narrow_query"]
	assert.InDelta(t, 0.2, query.rt, 1e-9)
	assert.Equal(t, 0, query.failures)

	total := aggregated["total"]
	assert.InDelta(t, 1.6, total.rt, 1e-9)
	assert.Equal(t, 1, total.failures)
}
