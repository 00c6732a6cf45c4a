package backend

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/google/uuid"

	"FanoutBench/internal/logger"
	"FanoutBench/internal/reduce"
	"FanoutBench/internal/types"
)

// Isolated runs each map worker as a separate process. Workers re-execute the current
// binary; their only view of the run is the shared region (fd 3) and, for the max
// workload, the synchronization handle (fd 4).
type Isolated struct {
	exe      string
	lockDir  string
	lockName string
	level    logger.Level
	logger   *logger.Logger

	childPeakKB atomic.Int64
}

// NewIsolated creates an isolated backend.
func NewIsolated(opts Options) (*Isolated, error) {
	if opts.Logger == nil {
		opts.Logger = logger.New("WARN")
	}

	exe := opts.Executable
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to locate worker executable: %w", err)
		}
	}

	dir := opts.LockDir
	if dir == "" {
		dir = os.TempDir()
	}

	b := &Isolated{
		exe:      exe,
		lockDir:  dir,
		lockName: opts.LockName,
		level:    opts.Logger.Level(),
		logger:   opts.Logger.Named("proc"),
	}
	b.childPeakKB.Store(-1)
	return b, nil
}

func (b *Isolated) Mode() types.Mode {
	return types.ModeProc
}

// PeakChildRSSKB returns the largest high-water mark written by a worker of the last run.
// Workers measure their own address space after exec, so the value does not include the
// coordinator's memory.
func (b *Isolated) PeakChildRSSKB() int64 {
	return b.childPeakKB.Load()
}

// handleName returns the configured handle name, or a fresh one for this run.
func (b *Isolated) handleName() string {
	if b.lockName != "" {
		return b.lockName
	}
	return "fanoutbench-" + uuid.NewString()
}

func (b *Isolated) RunMax(data []int64, parts []types.Partition) (result int64, err error) {
	b.childPeakKB.Store(-1)
	region, err := NewRegion("fanoutbench-max", len(parts), len(data))
	if err != nil {
		b.logger.Error("Failed to allocate shared region: %v", err)
		return 0, err
	}
	defer func() {
		err = errors.Join(err, region.Close())
	}()

	handle, err := CreateSyncHandle(b.lockDir, b.handleName(), b.logger)
	if err != nil {
		b.logger.Error("Failed to create synchronization handle: %v", err)
		return 0, err
	}
	defer func() {
		err = errors.Join(err, handle.Close())
	}()

	acc := reduce.NewLockedMax(region.Cell(), handle)
	acc.Reset()
	copy(region.Ints(), data)

	if err := b.fanOut(types.WorkloadMax, region, parts, handle.File()); err != nil {
		return 0, err
	}
	return acc.Load(), nil
}

func (b *Isolated) RunSort(data []int64, parts []types.Partition) (err error) {
	b.childPeakKB.Store(-1)
	region, err := NewRegion("fanoutbench-sort", len(parts), len(data))
	if err != nil {
		b.logger.Error("Failed to allocate shared region: %v", err)
		return err
	}
	defer func() {
		err = errors.Join(err, region.Close())
	}()

	copy(region.Ints(), data)

	if err := b.fanOut(types.WorkloadSort, region, parts); err != nil {
		return err
	}

	copy(data, region.Ints())
	return nil
}

// fanOut starts one worker process per partition and reaps every started process exactly
// once, even when a later start fails. Workers inherit the region as fd 3 and extra as
// fd 4 onwards.
func (b *Isolated) fanOut(workload types.Workload, region *Region, parts []types.Partition, extra ...*os.File) error {
	cmds := make([]*exec.Cmd, 0, len(parts))
	files := append([]*os.File{region.File()}, extra...)

	var spawnErr error
	for _, p := range parts {
		task := Task{Workload: workload, Partition: p, Size: region.size, Workers: region.slots}

		cmd := exec.Command(b.exe)
		cmd.Env = append(os.Environ(),
			WorkerEnv+"="+task.String(),
			WorkerLogEnv+"="+b.level.String(),
		)
		cmd.ExtraFiles = files
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		if err := cmd.Start(); err != nil {
			spawnErr = fmt.Errorf("%w: start worker %d: %v", ErrResourceAllocation, p.Index, err)
			b.logger.Error("Failed to start worker: %v", spawnErr)
			break
		}
		b.logger.Debug("Worker started: %s", logger.Fields(map[string]interface{}{
			"pid":  cmd.Process.Pid,
			"task": task.String(),
		}))
		cmds = append(cmds, cmd)
	}

	var errs []error
	for i, cmd := range cmds {
		if err := cmd.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("worker %d: %w", parts[i].Index, err))
		}
	}
	if len(errs) > 0 {
		b.logger.Error("Workers failed: count=%d", len(errs))
	}
	b.recordChildPeak(region)

	return errors.Join(spawnErr, errors.Join(errs...))
}

func (b *Isolated) recordChildPeak(region *Region) {
	peak := int64(-1)
	for i := range region.Slots() {
		peak = max(peak, atomic.LoadInt64(&region.Slots()[i]))
	}
	b.childPeakKB.Store(peak)
}
