package coordinator

import (
	"fmt"

	"FanoutBench/internal/backend"
	"FanoutBench/internal/merge"
	"FanoutBench/internal/types"
)

// Default sizes and seeds per workload.
const (
	DefaultWorkers  = 4
	DefaultMaxSize  = 1000000
	DefaultSortSize = 131072
	DefaultMaxSeed  = 999
	DefaultSortSeed = 12345
)

// Config for a benchmark run
type Config struct {
	Workload types.Workload
	Mode     types.Mode
	Workers  int
	Size     int   // < 0 selects the workload default
	Seed     int64 // < 0 selects the workload default

	Sync  backend.SyncStrategy // thread mode max strategy
	Merge merge.Strategy

	Executable string // isolated worker binary, defaults to the running executable
	LockDir    string
	LockName   string // empty: fresh name per run

	LogLevel string
}

// Normalize fills defaults and clamps the worker count to at least one.
func (c Config) Normalize() Config {
	if c.Workload == "" {
		c.Workload = types.WorkloadMax
	}
	if c.Mode == "" {
		c.Mode = types.ModeThread
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.Size < 0 {
		c.Size = DefaultMaxSize
		if c.Workload == types.WorkloadSort {
			c.Size = DefaultSortSize
		}
	}
	if c.Seed < 0 {
		c.Seed = DefaultMaxSeed
		if c.Workload == types.WorkloadSort {
			c.Seed = DefaultSortSeed
		}
	}
	if c.Sync == "" {
		c.Sync = backend.SyncAtomic
	}
	if c.Merge == "" {
		c.Merge = merge.StrategyFold
	}
	if c.LogLevel == "" {
		c.LogLevel = "WARN"
	}
	return c
}

// Validate rejects unknown enumerated values.
func (c Config) Validate() error {
	if _, err := types.ParseWorkload(string(c.Workload)); err != nil {
		return err
	}
	if _, err := types.ParseMode(string(c.Mode)); err != nil {
		return err
	}
	if _, err := backend.ParseSyncStrategy(string(c.Sync)); err != nil {
		return err
	}
	if _, err := merge.ParseStrategy(string(c.Merge)); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	return nil
}
