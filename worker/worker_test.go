package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crudbench/benchmark"
	"crudbench/benchmark/engines/sqlite"
	"crudbench/config"
	dbutils "crudbench/dbUtils"
	"crudbench/errs"
	"crudbench/gateway"
	"crudbench/results"
)

type fakeBenchmark struct {
	steps []benchmark.Step
}

func (b *fakeBenchmark) Prepare(*gateway.Gateway) []benchmark.Step { return b.steps }
func (b *fakeBenchmark) GetConfigs() map[string]string             { return map[string]string{"k": "v"} }
func (b *fakeBenchmark) GetMetrics(context.Context, *gateway.Gateway) map[string]string {
	return map[string]string{}
}

type memoryRecorder struct {
	records []results.Record
	err     error
}

func (r *memoryRecorder) Log(label string, rows int64, seconds float64) error {
	if r.err != nil {
		return r.err
	}
	r.records = append(r.records, results.Record{Operation: label, Rows: rows, Seconds: seconds})
	return nil
}

func returning(label string, rows int64, err error) benchmark.Step {
	return benchmark.Step{Name: label, Run: func(context.Context) benchmark.Outcome {
		return benchmark.Outcome{Label: label, Rows: rows, Err: err}
	}}
}

func openStore(t *testing.T) *gateway.Gateway {
	t.Helper()
	ctx := context.Background()
	gw, err := gateway.Open(ctx, config.Connection{Path: filepath.Join(t.TempDir(), "w.db")}, sqlite.New())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })
	_, err = gw.Execute(ctx, "CREATE TABLE games (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	_, err = gw.Execute(ctx, "INSERT INTO games (id) VALUES (1), (2), (3)")
	require.NoError(t, err)
	return gw
}

func labels(records []results.Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Operation)
	}
	return out
}

func TestRun_FailedStepDoesNotStopTheChain(t *testing.T) {
	rec := &memoryRecorder{}
	bench := &fakeBenchmark{steps: []benchmark.Step{
		returning("a", 3, nil),
		returning("b", 7, errs.New(errs.ConstraintViolation, "b", "duplicate")),
		returning("c", 1, nil),
	}}

	w := NewWorker(0, openStore(t), "games", false, bench, rec)
	res, err := w.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, res.Aborted)
	assert.Equal(t, w.RunID(), res.RunID)
	assert.Equal(t, []string{"a", "b", "c"}, labels(rec.records))
	assert.Equal(t, int64(0), rec.records[1].Rows, "a failed step records zero rows")
	assert.Equal(t, errs.ConstraintViolation, res.Steps[1].Kind)
	assert.True(t, res.Steps[1].Failed())
	assert.False(t, res.Steps[2].Failed())
	assert.Equal(t, Idle, w.State())
}

func TestRun_ConnectivityAbortsTheChain(t *testing.T) {
	rec := &memoryRecorder{}
	lost := errs.New(errs.Connectivity, "b", "connection reset")
	ran := false
	bench := &fakeBenchmark{steps: []benchmark.Step{
		returning("a", 3, nil),
		returning("b", 0, lost),
		{Name: "c", Run: func(context.Context) benchmark.Outcome {
			ran = true
			return benchmark.Outcome{Label: "c"}
		}},
	}}

	res, err := NewWorker(0, openStore(t), "games", false, bench, rec).Run(context.Background())
	assert.ErrorIs(t, err, lost)
	assert.True(t, res.Aborted)
	assert.False(t, ran)
	assert.Equal(t, []string{"a", "b"}, labels(rec.records))
}

func TestRun_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &memoryRecorder{err: errs.New(errs.IO, "log", "disk full")}
	bench := &fakeBenchmark{steps: []benchmark.Step{returning("a", 1, nil), returning("b", 2, nil)}}

	res, err := NewWorker(0, openStore(t), "games", false, bench, rec).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Steps, 2)
}

func TestRun_TruncatesBeforeMarkedSteps(t *testing.T) {
	ctx := context.Background()
	gw := openStore(t)

	var seen []int64
	observe := func(ctx context.Context) benchmark.Outcome {
		n, err := dbutils.RowCount(ctx, gw, "games")
		require.NoError(t, err)
		seen = append(seen, n)
		return benchmark.Outcome{Rows: n}
	}
	bench := &fakeBenchmark{steps: []benchmark.Step{
		{Name: "kept", Run: observe},
		{Name: "fresh", Truncate: true, Run: observe},
	}}

	_, err := NewWorker(0, gw, "games", true, bench, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 0}, seen)
}

func TestRun_TruncateDisabled(t *testing.T) {
	ctx := context.Background()
	gw := openStore(t)

	bench := &fakeBenchmark{steps: []benchmark.Step{{Name: "fresh", Truncate: true, Run: func(ctx context.Context) benchmark.Outcome {
		return benchmark.Outcome{}
	}}}}
	_, err := NewWorker(0, gw, "games", false, bench, nil).Run(ctx)
	require.NoError(t, err)

	n, err := dbutils.RowCount(ctx, gw, "games")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRun_TruncateFailureIsRecovered(t *testing.T) {
	rec := &memoryRecorder{}
	bench := &fakeBenchmark{steps: []benchmark.Step{{Name: "a", Truncate: true, Run: func(context.Context) benchmark.Outcome {
		return benchmark.Outcome{Label: "a", Rows: 1}
	}}}}

	res, err := NewWorker(0, openStore(t), "no_such_table", true, bench, rec).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Steps[0].Rows)
}

func TestRun_TimesTheWholeCall(t *testing.T) {
	rec := &memoryRecorder{}
	bench := &fakeBenchmark{steps: []benchmark.Step{{Name: "slow", Run: func(context.Context) benchmark.Outcome {
		time.Sleep(20 * time.Millisecond)
		return benchmark.Outcome{Label: "slow", Rows: 1}
	}}}}

	res, err := NewWorker(0, openStore(t), "games", false, bench, rec).Run(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Steps[0].Seconds, 0.02)
	assert.GreaterOrEqual(t, res.RealDuration, res.Steps[0].Seconds)
}

func TestRun_UnclassifiedErrorIsRecovered(t *testing.T) {
	bench := &fakeBenchmark{steps: []benchmark.Step{returning("a", 5, errors.New("boom")), returning("b", 1, nil)}}
	res, err := NewWorker(0, openStore(t), "games", false, bench, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, errs.Unknown, res.Steps[0].Kind)
	assert.Equal(t, int64(0), res.Steps[0].Rows)
	assert.Len(t, res.Steps, 2)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "preparing", Preparing.String())
	assert.Equal(t, "executing", Executing.String())
	assert.Equal(t, "logging", Logging.String())
}
