package mapreduce

import (
	"fmt"
	"time"

	"FanoutBench/internal/backend"
	"FanoutBench/internal/logger"
	"FanoutBench/internal/merge"
	"FanoutBench/internal/partition"
	"FanoutBench/internal/types"
	"FanoutBench/internal/verify"
)

// Engine is the map-reduce execution engine. It partitions the dataset, lets the
// backend run one map worker per partition, waits for all of them, and then reduces
// on the calling goroutine.
type Engine struct {
	backend backend.Backend
	workers int
	merge   merge.Strategy
	logger  *logger.Logger
}

// NewEngine creates a new engine. workers below 1 are treated as 1.
func NewEngine(b backend.Backend, workers int, strategy merge.Strategy, lg *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	if strategy == "" {
		strategy = merge.StrategyFold
	}
	if lg == nil {
		lg = logger.New("WARN")
	}
	return &Engine{
		backend: b,
		workers: workers,
		merge:   strategy,
		logger:  lg.Named("engine"),
	}
}

// MaxResult is the outcome of the max workload.
type MaxResult struct {
	Max     int64
	MapTime time.Duration
}

// SortResult is the outcome of the sort workload.
type SortResult struct {
	Sorted      bool
	Permutation bool
	MapTime     time.Duration
	ReduceTime  time.Duration
	TotalTime   time.Duration
}

// Max computes the global maximum of data. Local maxima are folded into the backend's
// register as workers finish, so the reduce phase is complete once the barrier returns.
func (e *Engine) Max(data []int64) (*MaxResult, error) {
	parts := partition.Split(len(data), e.workers)

	start := time.Now()
	result, err := e.backend.RunMax(data, parts)
	if err != nil {
		return nil, fmt.Errorf("map phase (%s): %w", e.backend.Mode(), err)
	}
	mapTime := time.Since(start)

	e.logger.Info("Max computed: %s", logger.Fields(map[string]interface{}{
		"mode":    e.backend.Mode(),
		"workers": len(parts),
		"size":    len(data),
		"max":     result,
		"map_ms":  mapTime.Milliseconds(),
	}))

	return &MaxResult{Max: result, MapTime: mapTime}, nil
}

// Sort sorts data in place and verifies the result.
func (e *Engine) Sort(data []int64) (*SortResult, error) {
	before := verify.Fingerprint(data)
	parts := partition.Split(len(data), e.workers)

	mapStart := time.Now()
	if err := e.mapPhase(data, parts); err != nil {
		return nil, err
	}
	mapEnd := time.Now()

	e.reducePhase(data, parts)
	reduceEnd := time.Now()

	res := &SortResult{
		Sorted:      verify.Sorted(data),
		Permutation: verify.Fingerprint(data) == before,
		MapTime:     mapEnd.Sub(mapStart),
		ReduceTime:  reduceEnd.Sub(mapEnd),
		TotalTime:   reduceEnd.Sub(mapStart),
	}

	if !res.Sorted || !res.Permutation {
		e.logger.Error("Sort verification failed: sorted=%v permutation=%v", res.Sorted, res.Permutation)
	}
	e.logger.Info("Sort finished: %s", logger.Fields(map[string]interface{}{
		"mode":      e.backend.Mode(),
		"workers":   len(parts),
		"size":      len(data),
		"merge":     e.merge,
		"map_ms":    res.MapTime.Milliseconds(),
		"reduce_ms": res.ReduceTime.Milliseconds(),
	}))

	return res, nil
}

// mapPhase sorts every partition through the backend and returns after the barrier.
func (e *Engine) mapPhase(data []int64, parts []types.Partition) error {
	if err := e.backend.RunSort(data, parts); err != nil {
		return fmt.Errorf("map phase (%s): %w", e.backend.Mode(), err)
	}
	return nil
}

// reducePhase merges the sorted runs single-threaded.
func (e *Engine) reducePhase(data []int64, parts []types.Partition) {
	merge.Runs(e.merge, data, parts)
}
