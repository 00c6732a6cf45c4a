//go:build !linux

package report

// PeakRSSKB is not measured on this platform and always returns -1.
func PeakRSSKB() int64 {
	return -1
}
