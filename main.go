package main

import (
	"flag"
	"fmt"
	"os"

	"FanoutBench/internal/backend"
	"FanoutBench/internal/coordinator"
	"FanoutBench/internal/logger"
	"FanoutBench/internal/merge"
	"FanoutBench/internal/report"
	"FanoutBench/internal/types"
)

func main() {
	// Isolated workers re-execute this binary.
	if backend.IsWorker() {
		os.Exit(backend.ServeWorker())
	}

	workload := flag.String("workload", "max", "Workload: 'max' for global maximum, 'sort' for parallel sort")
	mode := flag.String("mode", "thread", "Mode: 'thread' for goroutine workers, 'proc' for worker processes")
	workers := flag.Int("workers", coordinator.DefaultWorkers, "Number of map workers (minimum 1)")
	size := flag.Int("size", -1, "Number of items (default 1000000 for max, 131072 for sort)")
	seed := flag.Int64("seed", -1, "Dataset seed (default 999 for max, 12345 for sort)")
	syncStrategy := flag.String("sync", "atomic", "Thread mode max register: 'atomic' or 'mutex'")
	mergeStrategy := flag.String("merge", "fold", "Merge order: 'fold' (sequential) or 'tree' (balanced)")
	lockDir := flag.String("lock-dir", os.TempDir(), "Directory holding the process mode lock file")
	lockName := flag.String("lock-name", "", "Process mode lock file name (default: fresh per run)")
	logLevel := flag.String("log-level", "WARN", "Log level: DEBUG, INFO, WARN or ERROR")
	flag.Parse()

	lg := logger.New(*logLevel)

	cfg, err := buildConfig(*workload, *mode, *syncStrategy, *mergeStrategy)
	if err != nil {
		lg.Error("%v", err)
		os.Exit(1)
	}
	cfg.Workers = *workers
	cfg.Size = *size
	cfg.Seed = *seed
	cfg.LockDir = *lockDir
	cfg.LockName = *lockName
	cfg.LogLevel = *logLevel

	bench, err := coordinator.NewBench(cfg)
	if err != nil {
		lg.Error("Failed to set up benchmark: %v", err)
		os.Exit(1)
	}

	r, err := bench.Run()
	if err != nil {
		lg.Error("Benchmark %s failed: %v", bench.RunID(), err)
		os.Exit(1)
	}

	if err := report.Print(os.Stdout, r); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(workload, mode, syncStrategy, mergeStrategy string) (coordinator.Config, error) {
	w, err := types.ParseWorkload(workload)
	if err != nil {
		return coordinator.Config{}, err
	}
	m, err := types.ParseMode(mode)
	if err != nil {
		return coordinator.Config{}, err
	}
	s, err := backend.ParseSyncStrategy(syncStrategy)
	if err != nil {
		return coordinator.Config{}, err
	}
	ms, err := merge.ParseStrategy(mergeStrategy)
	if err != nil {
		return coordinator.Config{}, err
	}

	return coordinator.Config{
		Workload: w,
		Mode:     m,
		Sync:     s,
		Merge:    ms,
	}, nil
}
