package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"crudbench/benchmark/crud"
	engine "crudbench/benchmark/engines/abstract"
	"crudbench/benchmark/engines/mysql"
	"crudbench/benchmark/engines/postgres"
	"crudbench/benchmark/engines/sqlite"
	"crudbench/config"
	dbutils "crudbench/dbUtils"
	"crudbench/gateway"
	"crudbench/results"
	"crudbench/util"
	"crudbench/worker"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

type ProcessedResult struct {
	name     string
	rt       float64
	rtP95    float64
	rows     float64
	failures int
}

// Prepare zerolog
func setupLogging(disableLog bool, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var zlevel zerolog.Level
	if disableLog {
		zlevel = zerolog.Disabled
	} else if level == "info" {
		zlevel = zerolog.InfoLevel
	} else {
		zlevel = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(zlevel)
}

// Returns the dialect of the configured engine
func getEngine(name string) engine.Engine {
	switch name {
	case "mysql":
		return mysql.New()
	case "postgres":
		return postgres.New()
	case "sqlite":
		return sqlite.New()
	}
	log.Fatalf("Engine '%s' not found.\n", name)
	return nil
}

// Combines the step results of all runs, per operation and in total
func aggregateResults(allResults []*worker.RunResults) (map[string]ProcessedResult, []string) {
	rts := map[string][]float64{}
	rows := map[string][]float64{}
	failures := map[string]int{}
	order := []string{}
	allRts := []float64{}

	for _, run := range allResults {
		for _, step := range run.Steps {
			if _, ok := rts[step.Operation]; !ok {
				order = append(order, step.Operation)
			}
			rts[step.Operation] = append(rts[step.Operation], step.Seconds)
			rows[step.Operation] = append(rows[step.Operation], float64(step.Rows))
			if step.Failed() {
				failures[step.Operation]++
			}
			allRts = append(allRts, step.Seconds)
		}
	}

	aggregated := map[string]ProcessedResult{}
	totalFailures := 0
	for op, values := range rts {
		aggregated[op] = ProcessedResult{
			name:     op,
			rt:       util.Mean(values),
			rtP95:    util.Percentile(values, 95),
			rows:     util.Mean(rows[op]),
			failures: failures[op],
		}
		totalFailures += failures[op]
	}

	aggregated["total"] = ProcessedResult{
		name:     "total",
		rt:       util.Mean(allRts),
		rtP95:    util.Percentile(allRts, 95),
		failures: totalFailures,
	}

	return aggregated, order
}

func printSummary(aggregated map[string]ProcessedResult,
	order []string,
	cfg *config.Config,
	runID string,
	benchmarkConfigs map[string]string,
	benchmarkMetrics map[string]string,
) {
	sortedConfigs := []string{}
	for k := range benchmarkConfigs {
		sortedConfigs = append(sortedConfigs, k)
	}
	sort.Strings(sortedConfigs)

	sortedMetrics := []string{}
	for k := range benchmarkMetrics {
		sortedMetrics = append(sortedMetrics, k)
	}
	sort.Strings(sortedMetrics)

	// CSV header
	header := "engine,runs,truncateBeforeRun,run"
	if len(sortedConfigs) > 0 {
		header += "," + strings.Join(sortedConfigs, ",")
	}
	if len(sortedMetrics) > 0 {
		fmt.Println("Csv:" + header + "," + strings.Join(sortedMetrics, ",") + ",rt,rtP95,failures")
	} else {
		fmt.Println("Csv:" + header + ",rt,rtP95,failures")
	}
	fmt.Println("CsvOps:" + header + ",operation,rt,rtP95,rows,failures")

	// string for the benchmark specific metrics ("Csv:" prefix)
	csv := fmt.Sprintf("Csv:%s,%d,%t,%s", cfg.Engine, cfg.Runs, cfg.TruncateBeforeRun, runID)
	// string for the operations ("CsvOps:" prefix)
	csvOps := fmt.Sprintf("CsvOps:%s,%d,%t,%s", cfg.Engine, cfg.Runs, cfg.TruncateBeforeRun, runID)
	// string with metrics in a key-value format to ease reading
	kv := fmt.Sprintf("engine: %s\nruns: %d\ntruncateBeforeRun: %t\nrun: %s",
		cfg.Engine, cfg.Runs, cfg.TruncateBeforeRun, runID)

	// write benchmark-specific configs
	for _, key := range sortedConfigs {
		csv += fmt.Sprintf(",%s", benchmarkConfigs[key])
		csvOps += fmt.Sprintf(",%s", benchmarkConfigs[key])
		kv += fmt.Sprintf("\n%s: %s", key, benchmarkConfigs[key])
	}

	// write benchmark-specific metrics
	for _, metric := range sortedMetrics {
		csv += fmt.Sprintf(",%s", benchmarkMetrics[metric])
		kv += fmt.Sprintf("\n%s: %s", metric, benchmarkMetrics[metric])
	}

	// write the results of each operation, in chain order
	for _, op := range order {
		result := aggregated[op]
		fmt.Println(csvOps + fmt.Sprintf(",%s,%.6f,%.6f,%.1f,%d", op, result.rt, result.rtP95, result.rows, result.failures))
		kv += fmt.Sprintf("\n%s: rt=%.6f rtP95=%.6f rows=%.1f failures=%d",
			op, result.rt, result.rtP95, result.rows, result.failures)
	}

	total := aggregated["total"]
	csv += fmt.Sprintf(",%.6f,%.6f,%d", total.rt, total.rtP95, total.failures)
	kv += fmt.Sprintf("\nrt: %.6f\nrtP95: %.6f\nfailures: %d", total.rt, total.rtP95, total.failures)

	fmt.Println(csv)
	fmt.Println(kv)
}

// Prints the result log as plain lines
func showResults(path string) {
	records := util.Try(results.ReadAll(path))
	fmt.Printf("%-20s %14s %16s\n", results.Header[0], results.Header[1], results.Header[2])
	for _, r := range records {
		fmt.Printf("%-20s %14d %16.2f\n", r.Operation, r.Rows, r.Seconds)
	}
}

func main() {
	disableLog := flag.Bool("no-log", false, "Disables the log")
	configFile := flag.String("conf", "", "Benchmark config file")
	logLevel := flag.String("level", "debug", "Log level (info|debug)")
	show := flag.Bool("show", false, "Prints the result log and exits")
	flag.Parse()

	setupLogging(*disableLog, *logLevel)
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal(err)
	}

	if *show {
		showResults(cfg.ResultLog)
		return
	}

	bench, err := crud.New(cfg.FileData)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	eng := getEngine(cfg.Engine)
	gw := util.Try(gateway.Open(ctx, cfg.Connection, eng))
	defer gw.Close()

	recorder := results.New(cfg.ResultLog)
	allResults := []*worker.RunResults{}
	var configs, metrics map[string]string
	var runID string

	zlog.Info().Str("engine", eng.Name()).Int("runs", cfg.Runs).Msg("Benchmark started")

	for j := 0; j < cfg.Runs; j++ {
		w := worker.NewWorker(j, gw, bench.Table(), cfg.TruncateBeforeRun, bench, recorder)
		if j == 0 {
			runID = w.RunID()
		}

		fmt.Println("Running")
		runResults, err := w.Run(ctx)
		allResults = append(allResults, runResults)
		if err != nil {
			zlog.Error().Err(err).Str("run", w.RunID()).Msg("Run aborted")
			break
		}

		if cfg.VacuumAfterRun {
			if err := dbutils.Vacuum(ctx, gw, bench.Table()); err != nil {
				zlog.Warn().Err(err).Msg("Vacuum failed")
			}
		}

		if configs == nil {
			configs = w.GetConfigs()
			metrics = w.GetMetrics(ctx)
		}
	}

	if configs == nil {
		configs = bench.GetConfigs()
		metrics = map[string]string{}
	}

	aggregated, order := aggregateResults(allResults)
	printSummary(aggregated, order, cfg, runID, configs, metrics)

	zlog.Info().Str("engine", eng.Name()).Msg("Benchmark ended")
}
