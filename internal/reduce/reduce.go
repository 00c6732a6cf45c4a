// Package reduce combines per-worker local maxima into one global maximum.
//
// Both registers implement the same linearizable operation: install a value iff it is
// strictly greater than the currently visible value. The value therefore never decreases,
// and once every worker has offered its local maximum the register holds the true maximum
// regardless of the order in which workers finished.
package reduce

import (
	"math"
	"sync"
	"sync/atomic"
)

// Register is a monotonic maximum shared by the map workers of one run.
type Register interface {
	// Offer raises the register to v if v exceeds the current value.
	Offer(v int64) error
	// Load returns the current value.
	Load() int64
}

// Locker is a mutual exclusion primitive whose acquire and release can fail,
// such as a lock held through a system call.
type Locker interface {
	Lock() error
	Unlock() error
}

// AtomicMax is a lock-free Register built on compare-and-swap.
type AtomicMax struct {
	v atomic.Int64
}

// NewAtomicMax returns a register holding math.MinInt64.
func NewAtomicMax() *AtomicMax {
	r := &AtomicMax{}
	r.v.Store(math.MinInt64)
	return r
}

// Offer never fails.
func (r *AtomicMax) Offer(v int64) error {
	cur := r.v.Load()
	for v > cur {
		if r.v.CompareAndSwap(cur, v) {
			return nil
		}
		cur = r.v.Load()
	}
	return nil
}

func (r *AtomicMax) Load() int64 {
	return r.v.Load()
}

// LockedMax is a Register whose cell is guarded by a Locker. The cell may live in
// memory shared with other processes, in which case every participant must use the
// same underlying lock.
type LockedMax struct {
	cell *int64
	mu   Locker
}

// NewLockedMax wraps an existing cell. The cell is not reset; callers that own it
// initialize it with Reset before any worker starts.
func NewLockedMax(cell *int64, mu Locker) *LockedMax {
	return &LockedMax{cell: cell, mu: mu}
}

// Reset stores math.MinInt64 in the cell.
func (r *LockedMax) Reset() {
	atomic.StoreInt64(r.cell, math.MinInt64)
}

func (r *LockedMax) Offer(v int64) error {
	if err := r.mu.Lock(); err != nil {
		return err
	}
	if atomic.LoadInt64(r.cell) < v {
		atomic.StoreInt64(r.cell, v)
	}
	return r.mu.Unlock()
}

func (r *LockedMax) Load() int64 {
	return atomic.LoadInt64(r.cell)
}

// Mutex adapts sync.Mutex to Locker for in-process use.
type Mutex struct {
	mu sync.Mutex
}

func (m *Mutex) Lock() error {
	m.mu.Lock()
	return nil
}

func (m *Mutex) Unlock() error {
	m.mu.Unlock()
	return nil
}
