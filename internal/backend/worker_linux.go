package backend

import (
	"fmt"
	"os"
	"sync/atomic"

	"FanoutBench/internal/logger"
	"FanoutBench/internal/mapper"
	"FanoutBench/internal/reduce"
	"FanoutBench/internal/types"
)

// Descriptor numbers of the files passed through exec.Cmd.ExtraFiles.
const (
	regionFD = 3
	handleFD = 4
)

// ServeWorker runs the task described by the environment and returns the process exit code.
func ServeWorker() int {
	lg := logger.New(os.Getenv(WorkerLogEnv)).Named(fmt.Sprintf("worker[%d]", os.Getpid()))

	task, err := ParseTask(os.Getenv(WorkerEnv))
	if err != nil {
		lg.Error("Invalid task: %v", err)
		return 2
	}

	if err := runTask(task, lg); err != nil {
		lg.Error("Task %s failed: %v", task, err)
		return 1
	}
	return 0
}

func runTask(task Task, lg *logger.Logger) (err error) {
	region, err := OpenRegion(os.NewFile(regionFD, "region"), task.Workers, task.Size)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := region.Close(); err == nil {
			err = cerr
		}
	}()

	run := region.Ints()[task.Partition.L:task.Partition.R]

	switch task.Workload {
	case types.WorkloadMax:
		handle := OpenSyncHandle(os.NewFile(handleFD, "handle"))
		defer handle.Close()

		local := mapper.ScanMax(run)
		lg.Debug("Local max computed: partition=%s max=%d", task.Partition, local)
		if err := reduce.NewLockedMax(region.Cell(), handle).Offer(local); err != nil {
			return err
		}
	case types.WorkloadSort:
		mapper.SortRun(run)
		lg.Debug("Run sorted: partition=%s", task.Partition)
	default:
		return fmt.Errorf("unknown workload %q", task.Workload)
	}

	peak, err := highWaterKB()
	if err != nil {
		lg.Warn("Failed to read peak RSS: %v", err)
		peak = -1
	}
	atomic.StoreInt64(&region.Slots()[task.Partition.Index], peak)
	return nil
}
