//go:build !linux

package backend

import (
	"fmt"
	"os"

	"FanoutBench/internal/types"
)

// Isolated is unavailable outside Linux.
type Isolated struct{}

func NewIsolated(opts Options) (*Isolated, error) {
	return nil, ErrUnsupported
}

func (b *Isolated) Mode() types.Mode {
	return types.ModeProc
}

func (b *Isolated) RunMax(data []int64, parts []types.Partition) (int64, error) {
	return 0, ErrUnsupported
}

func (b *Isolated) RunSort(data []int64, parts []types.Partition) error {
	return ErrUnsupported
}

// ServeWorker always fails outside Linux.
func ServeWorker() int {
	fmt.Fprintln(os.Stderr, ErrUnsupported)
	return 1
}

func (b *Isolated) PeakChildRSSKB() int64 {
	return -1
}
