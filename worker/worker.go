package worker

import (
	"context"
	"time"

	"crudbench/benchmark"
	dbutils "crudbench/dbUtils"
	"crudbench/errs"
	"crudbench/gateway"
	"crudbench/util"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"
)

type State int

const (
	Idle State = iota
	Preparing
	Executing
	Logging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Preparing:
		return "preparing"
	case Executing:
		return "executing"
	case Logging:
		return "logging"
	}
	return "unknown"
}

// Recorder persists one measurement. *results.Logger is the production one.
type Recorder interface {
	Log(label string, rows int64, seconds float64) error
}

type StepResult struct {
	Operation string
	Rows      int64
	Seconds   float64 // response time of the operation call, dataset loading included
	Kind      errs.Kind
}

func (s StepResult) Failed() bool {
	return s.Kind != ""
}

type RunResults struct {
	RunID        string
	RealDuration float64
	Steps        []StepResult
	// Aborted is set when a fatal failure stopped the chain early
	Aborted bool
}

type Worker struct {
	id        int
	runID     string
	gateway   *gateway.Gateway
	table     string
	truncate  bool
	benchmark benchmark.Benchmark
	recorder  Recorder
	state     State
}

func NewWorker(id int, gw *gateway.Gateway, table string, truncate bool, benchmark benchmark.Benchmark, recorder Recorder) *Worker {
	worker := new(Worker)
	worker.id = id
	worker.runID = uuid.NewString()
	worker.gateway = gw
	worker.table = table
	worker.truncate = truncate
	worker.benchmark = benchmark
	worker.recorder = recorder
	return worker
}

func (w *Worker) log(msg string) {
	zlog.Info().Int("worker", w.id).Str("run", w.runID).Msg(msg)
}

func (w *Worker) RunID() string {
	return w.runID
}

func (w *Worker) State() State {
	return w.state
}

func (w *Worker) setState(s State, step string) {
	zlog.Debug().Str("run", w.runID).Str("step", step).Stringer("from", w.state).Stringer("to", s).Msg("state")
	w.state = s
}

// Run executes every step once, in order. A failed step is recorded with zero
// rows and the chain goes on; only a fatal failure stops it and is returned.
func (w *Worker) Run(ctx context.Context) (*RunResults, error) {
	w.log("Preparing")
	steps := w.benchmark.Prepare(w.gateway)
	results := &RunResults{RunID: w.runID}

	w.log("Running")
	start := time.Now()
	defer func() {
		results.RealDuration = util.SecondsSince(start)
		w.setState(Idle, "")
		w.log("Done")
	}()

	for _, step := range steps {
		if step.Truncate && w.truncate {
			w.setState(Preparing, step.Name)
			if err := dbutils.Truncate(ctx, w.gateway, w.table); err != nil {
				zlog.Warn().Str("run", w.runID).Str("step", step.Name).Str("kind", string(errs.KindOf(err))).
					Err(err).Msg("truncate failed")
				if errs.IsFatal(err) {
					results.Aborted = true
					return results, err
				}
			}
		}

		w.setState(Executing, step.Name)
		opStart := time.Now()
		out := step.Run(ctx)
		rt := util.SecondsSince(opStart)

		result := StepResult{Operation: step.Name, Rows: out.Rows, Seconds: rt, Kind: out.Kind()}
		if result.Failed() {
			result.Rows = 0
		}
		results.Steps = append(results.Steps, result)

		w.setState(Logging, step.Name)
		w.record(result)

		if errs.IsFatal(out.Err) {
			results.Aborted = true
			return results, out.Err
		}
	}

	return results, nil
}

// a lost measurement does not stop the run
func (w *Worker) record(result StepResult) {
	var msg string
	if result.Failed() {
		msg = "aborted"
	} else {
		msg = "completed"
	}
	zlog.Debug().Int("worker", w.id).Str("run", w.runID).Str("operation", result.Operation).
		Int64("rows", result.Rows).Float64("rt", result.Seconds).Str("kind", string(result.Kind)).Msg(msg)

	if w.recorder == nil {
		return
	}
	if err := w.recorder.Log(result.Operation, result.Rows, result.Seconds); err != nil {
		zlog.Warn().Str("run", w.runID).Str("operation", result.Operation).Str("kind", string(errs.KindOf(err))).
			Err(err).Msg("result not logged")
	}
}

// Returns the benchmark-specific configurations
func (w *Worker) GetConfigs() map[string]string {
	return w.benchmark.GetConfigs()
}

// Returns the benchmark-specific metrics
func (w *Worker) GetMetrics(ctx context.Context) map[string]string {
	return w.benchmark.GetMetrics(ctx, w.gateway)
}
