package types

import "time"

// Report is the outcome of one benchmark run
type Report struct {
	RunID    string
	Workload Workload
	Mode     Mode
	Workers  int
	Size     int

	MapTime    time.Duration
	ReduceTime time.Duration
	TotalTime  time.Duration

	// Max workload
	Max int64

	// Sort workload
	Sorted      bool
	Permutation bool

	PeakRSSKB      int64
	PeakChildRSSKB int64
}
