package backend

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"FanoutBench/internal/logger"
)

// SyncHandle is a cross-process mutex backed by a lock file. Locks are POSIX record locks,
// which belong to the locking process rather than the descriptor, so every worker can lock
// through the same inherited descriptor and still exclude the others.
type SyncHandle struct {
	file *os.File
	// path is set only on the handle that created the file and must remove it.
	path string
}

// CreateSyncHandle exclusively creates the lock file dir/name.lock. If a stale file of
// that name is left over from an earlier run, it is removed and creation is retried once.
func CreateSyncHandle(dir, name string, lg *logger.Logger) (*SyncHandle, error) {
	path := filepath.Join(dir, name+".lock")

	file, err := createExclusive(path)
	if errors.Is(err, fs.ErrExist) {
		lg.Warn("Removing stale synchronization handle: path=%s", path)
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			lg.Error("Failed to remove stale handle: %v", rmErr)
		}
		file, err = createExclusive(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyncSetup, err)
	}

	lg.Debug("Synchronization handle created: path=%s", path)
	return &SyncHandle{file: file, path: path}, nil
}

func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
}

// OpenSyncHandle wraps a lock descriptor inherited from the coordinator.
func OpenSyncHandle(file *os.File) *SyncHandle {
	return &SyncHandle{file: file}
}

// File returns the lock descriptor, for handing to child processes.
func (h *SyncHandle) File() *os.File {
	return h.file
}

// Path returns the lock file path, or "" for an inherited handle.
func (h *SyncHandle) Path() string {
	return h.path
}

// Lock blocks until the calling process holds the lock.
func (h *SyncHandle) Lock() error {
	lk := unix.Flock_t{Type: unix.F_WRLCK, Whence: io.SeekStart}
	for {
		err := unix.FcntlFlock(h.file.Fd(), unix.F_SETLKW, &lk)
		if err == nil {
			return nil
		}
		if !errors.Is(err, unix.EINTR) {
			return fmt.Errorf("lock %s: %w", h.file.Name(), err)
		}
	}
}

// Unlock releases the lock held by the calling process.
func (h *SyncHandle) Unlock() error {
	lk := unix.Flock_t{Type: unix.F_UNLCK, Whence: io.SeekStart}
	if err := unix.FcntlFlock(h.file.Fd(), unix.F_SETLK, &lk); err != nil {
		return fmt.Errorf("unlock %s: %w", h.file.Name(), err)
	}
	return nil
}

// Close closes the descriptor and, for the creating handle, removes the lock file.
// It is safe to call more than once.
func (h *SyncHandle) Close() error {
	var errs []error

	if h.file != nil {
		if err := h.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close handle: %w", err))
		}
		h.file = nil
	}
	if h.path != "" {
		if err := os.Remove(h.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove handle: %w", err))
		}
		h.path = ""
	}

	return errors.Join(errs...)
}
