package coordinator

import (
	"fmt"

	"github.com/google/uuid"

	"FanoutBench/internal/backend"
	"FanoutBench/internal/dataset"
	"FanoutBench/internal/logger"
	"FanoutBench/internal/mapreduce"
	"FanoutBench/internal/report"
	"FanoutBench/internal/types"
)

// Bench coordinates one benchmark run
type Bench struct {
	cfg     Config
	runID   string
	backend backend.Backend
	engine  *mapreduce.Engine
	logger  *logger.Logger
}

// NewBench validates cfg and prepares the backend and engine
func NewBench(cfg Config) (*Bench, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	runID := "run-" + uuid.New().String()[:8]
	lg := logger.New(cfg.LogLevel).Named(runID)

	b, err := backend.New(cfg.Mode, backend.Options{
		Sync:       cfg.Sync,
		Executable: cfg.Executable,
		LockDir:    cfg.LockDir,
		LockName:   cfg.LockName,
		Logger:     lg,
	})
	if err != nil {
		lg.Error("Failed to create backend: %v", err)
		return nil, fmt.Errorf("failed to create %s backend: %w", cfg.Mode, err)
	}

	lg.Info("Bench initialized: %s", logger.Fields(map[string]interface{}{
		"workload": cfg.Workload,
		"mode":     cfg.Mode,
		"workers":  cfg.Workers,
		"size":     cfg.Size,
	}))

	return &Bench{
		cfg:     cfg,
		runID:   runID,
		backend: b,
		engine:  mapreduce.NewEngine(b, cfg.Workers, cfg.Merge, lg),
		logger:  lg,
	}, nil
}

// Config returns the normalized configuration
func (b *Bench) Config() Config {
	return b.cfg
}

// RunID returns the identifier of this run
func (b *Bench) RunID() string {
	return b.runID
}

// Run generates the dataset and executes the configured workload
func (b *Bench) Run() (*types.Report, error) {
	return b.RunOn(dataset.Generate(b.cfg.Size, uint64(b.cfg.Seed)))
}

// RunOn executes the configured workload over data. Sort runs reorder data in place.
func (b *Bench) RunOn(data []int64) (*types.Report, error) {
	r := &types.Report{
		RunID:    b.runID,
		Workload: b.cfg.Workload,
		Mode:     b.cfg.Mode,
		Workers:  b.cfg.Workers,
		Size:     len(data),
	}

	switch b.cfg.Workload {
	case types.WorkloadMax:
		res, err := b.engine.Max(data)
		if err != nil {
			b.logger.Error("Max workload failed: %v", err)
			return nil, err
		}
		r.Max = res.Max
		r.MapTime = res.MapTime
		r.TotalTime = res.MapTime
	case types.WorkloadSort:
		res, err := b.engine.Sort(data)
		if err != nil {
			b.logger.Error("Sort workload failed: %v", err)
			return nil, err
		}
		r.Sorted = res.Sorted
		r.Permutation = res.Permutation
		r.MapTime = res.MapTime
		r.ReduceTime = res.ReduceTime
		r.TotalTime = res.TotalTime
	}

	r.PeakRSSKB = report.PeakRSSKB()
	r.PeakChildRSSKB = -1
	if cm, ok := b.backend.(backend.ChildMemory); ok {
		r.PeakChildRSSKB = cm.PeakChildRSSKB()
	}
	return r, nil
}
