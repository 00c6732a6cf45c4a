package backend

import (
	"sync"

	"FanoutBench/internal/logger"
	"FanoutBench/internal/mapper"
	"FanoutBench/internal/reduce"
	"FanoutBench/internal/types"
)

// InProcess runs map workers as goroutines over the caller's slice.
type InProcess struct {
	sync   SyncStrategy
	logger *logger.Logger
}

// NewInProcess creates an in-process backend.
func NewInProcess(opts Options) *InProcess {
	if opts.Sync == "" {
		opts.Sync = SyncAtomic
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("WARN")
	}
	return &InProcess{
		sync:   opts.Sync,
		logger: opts.Logger.Named("thread"),
	}
}

func (b *InProcess) Mode() types.Mode {
	return types.ModeThread
}

func (b *InProcess) register() reduce.Register {
	if b.sync == SyncMutex {
		var cell int64
		r := reduce.NewLockedMax(&cell, &reduce.Mutex{})
		r.Reset()
		return r
	}
	return reduce.NewAtomicMax()
}

func (b *InProcess) RunMax(data []int64, parts []types.Partition) (int64, error) {
	acc := b.register()
	b.logger.Debug("Fanning out max workers: workers=%d sync=%s", len(parts), b.sync)

	b.fanOut(parts, func(p types.Partition) {
		// Neither register fails in-process.
		_ = acc.Offer(mapper.ScanMax(data[p.L:p.R]))
	})

	return acc.Load(), nil
}

func (b *InProcess) RunSort(data []int64, parts []types.Partition) error {
	b.logger.Debug("Fanning out sort workers: workers=%d", len(parts))

	b.fanOut(parts, func(p types.Partition) {
		mapper.SortRun(data[p.L:p.R])
	})
	return nil
}

// fanOut starts one goroutine per partition and waits for all of them.
func (b *InProcess) fanOut(parts []types.Partition, work func(types.Partition)) {
	var wg sync.WaitGroup
	wg.Add(len(parts))

	for _, p := range parts {
		go func(p types.Partition) {
			defer wg.Done()
			work(p)
		}(p)
	}

	wg.Wait()
}
