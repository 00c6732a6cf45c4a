// Package backend creates map workers and makes their results visible to the coordinator.
//
// Two implementations share one interface: InProcess runs one goroutine per partition over
// the caller's memory, and Isolated runs one child process per partition that sees only an
// explicitly mapped shared region plus an inherited lock handle.
package backend

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"FanoutBench/internal/logger"
	"FanoutBench/internal/types"
)

var (
	// ErrResourceAllocation reports that the shared region could not be created or mapped,
	// or that a worker process could not be started.
	ErrResourceAllocation = errors.New("resource allocation failed")
	// ErrSyncSetup reports that the synchronization handle could not be created, even after
	// removing a stale handle of the same name.
	ErrSyncSetup = errors.New("synchronization setup failed")
	// ErrUnsupported reports that isolated workers are not available on this platform.
	ErrUnsupported = errors.New("isolated workers are not supported on this platform")
)

// Backend fans out one map worker per partition and blocks until every worker finished.
type Backend interface {
	Mode() types.Mode
	// RunMax scans every partition of data and returns the global maximum,
	// math.MinInt64 when data is empty.
	RunMax(data []int64, parts []types.Partition) (int64, error)
	// RunSort sorts every partition of data in place. On return each partition is a
	// sorted run; merging the runs is left to the caller.
	RunSort(data []int64, parts []types.Partition) error
}

// ChildMemory is implemented by backends whose workers run as separate processes.
type ChildMemory interface {
	// PeakChildRSSKB returns the largest peak resident set size reported by a worker of
	// the last run in KiB, or -1 when no worker reported one.
	PeakChildRSSKB() int64
}

// SyncStrategy selects the register used by in-process max workers.
type SyncStrategy string

const (
	SyncAtomic SyncStrategy = "atomic"
	SyncMutex  SyncStrategy = "mutex"
)

// ParseSyncStrategy converts a flag value into a SyncStrategy.
func ParseSyncStrategy(s string) (SyncStrategy, error) {
	switch SyncStrategy(s) {
	case SyncAtomic, SyncMutex:
		return SyncStrategy(s), nil
	}
	return "", fmt.Errorf("unknown sync strategy %q (use atomic or mutex)", s)
}

// Options configures a backend.
type Options struct {
	// Sync is the in-process register strategy. Defaults to SyncAtomic.
	Sync SyncStrategy
	// Executable is the binary re-executed for isolated workers. Defaults to os.Executable().
	Executable string
	// LockDir holds the synchronization handle. Defaults to os.TempDir().
	LockDir string
	// LockName names the synchronization handle. Empty means a fresh name per run.
	LockName string
	Logger   *logger.Logger
}

// New returns the backend for mode.
func New(mode types.Mode, opts Options) (Backend, error) {
	if opts.Logger == nil {
		opts.Logger = logger.New("WARN")
	}

	switch mode {
	case types.ModeThread:
		return NewInProcess(opts), nil
	case types.ModeProc:
		b, err := NewIsolated(opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}

const (
	// WorkerEnv carries the task of a re-executed worker process.
	WorkerEnv = "FANOUTBENCH_WORKER"
	// WorkerLogEnv carries the parent's log level to a worker process.
	WorkerLogEnv = "FANOUTBENCH_LOG_LEVEL"
)

// IsWorker reports whether the current process was started as an isolated worker.
// Programs embedding the isolated backend call it first thing in main (and in TestMain)
// and hand control to ServeWorker when it returns true.
func IsWorker() bool {
	return os.Getenv(WorkerEnv) != ""
}

// Task is the assignment handed to one worker process.
type Task struct {
	Workload  types.Workload
	Partition types.Partition
	// Size and Workers give the shared region layout.
	Size    int
	Workers int
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%d/%d/%d/%d/%d", t.Workload, t.Partition.Index, t.Partition.L, t.Partition.R, t.Size, t.Workers)
}

// ParseTask decodes the value produced by Task.String.
func ParseTask(s string) (Task, error) {
	fields := strings.Split(s, "/")
	if len(fields) != 6 {
		return Task{}, fmt.Errorf("malformed worker task %q", s)
	}

	workload, err := types.ParseWorkload(fields[0])
	if err != nil {
		return Task{}, err
	}

	nums := make([]int, 5)
	for i, f := range fields[1:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Task{}, fmt.Errorf("malformed worker task %q: %w", s, err)
		}
		nums[i] = n
	}

	t := Task{
		Workload:  workload,
		Partition: types.Partition{Index: nums[0], L: nums[1], R: nums[2]},
		Size:      nums[3],
		Workers:   nums[4],
	}
	if t.Partition.L < 0 || t.Partition.R < t.Partition.L || t.Partition.R > t.Size ||
		t.Partition.Index < 0 || t.Partition.Index >= t.Workers {
		return Task{}, fmt.Errorf("worker task %q is out of range", s)
	}
	return t, nil
}
