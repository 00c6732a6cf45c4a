package report

import "golang.org/x/sys/unix"

// PeakRSSKB returns the peak resident set size of the calling process in KiB, or -1 when
// it cannot be read.
func PeakRSSKB() int64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return -1
	}
	// ru_maxrss is in KiB on Linux.
	return int64(ru.Maxrss)
}
