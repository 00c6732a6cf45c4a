package backend

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const cellBytes = 8

// Region is a shared memory mapping visible to the coordinator and every worker process.
// Layout: one int64 accumulator cell, one int64 slot per worker, then the dataset.
type Region struct {
	file  *os.File
	mem   []byte
	slots int
	size  int
}

func regionBytes(slots, n int) int {
	return cellBytes + slots*8 + n*8
}

// NewRegion creates an anonymous memory file with room for slots worker slots and n
// values, and maps it shared. The accumulator cell starts at math.MinInt64 and every
// slot at -1.
func NewRegion(name string, slots, n int) (*Region, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("%w: memfd_create: %v", ErrResourceAllocation, err)
	}
	file := os.NewFile(uintptr(fd), name)

	if err := unix.Ftruncate(fd, int64(regionBytes(slots, n))); err != nil {
		primaryErr := fmt.Errorf("%w: ftruncate: %v", ErrResourceAllocation, err)
		return nil, errors.Join(primaryErr, file.Close())
	}

	r, err := mapRegion(file, slots, n)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	atomic.StoreInt64(r.Cell(), math.MinInt64)
	for i := range r.Slots() {
		atomic.StoreInt64(&r.Slots()[i], -1)
	}
	return r, nil
}

// OpenRegion maps a region inherited from the coordinator.
func OpenRegion(file *os.File, slots, n int) (*Region, error) {
	return mapRegion(file, slots, n)
}

func mapRegion(file *os.File, slots, n int) (*Region, error) {
	mem, err := unix.Mmap(int(file.Fd()), 0, regionBytes(slots, n), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %v", ErrResourceAllocation, err)
	}
	return &Region{file: file, mem: mem, slots: slots, size: n}, nil
}

// File returns the descriptor backing the region, for handing to child processes.
func (r *Region) File() *os.File {
	return r.file
}

// Cell returns the shared accumulator.
func (r *Region) Cell() *int64 {
	return (*int64)(unsafe.Pointer(&r.mem[0]))
}

// Slots returns the per-worker slots. Worker i writes only slot i.
func (r *Region) Slots() []int64 {
	if r.slots == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.mem[cellBytes])), r.slots)
}

// Ints returns the dataset stored in the region.
func (r *Region) Ints() []int64 {
	if r.size == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.mem[cellBytes+r.slots*8])), r.size)
}

// Close unmaps the region and closes its descriptor. It is safe to call more than once.
func (r *Region) Close() error {
	var errs []error

	if r.mem != nil {
		if err := unix.Munmap(r.mem); err != nil {
			errs = append(errs, fmt.Errorf("munmap: %w", err))
		}
		r.mem = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close region: %w", err))
		}
		r.file = nil
	}

	return errors.Join(errs...)
}
