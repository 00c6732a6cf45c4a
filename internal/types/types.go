package types

import "fmt"

// Mode selects how map workers are created.
type Mode string

const (
	ModeThread Mode = "thread"
	ModeProc   Mode = "proc"
)

// Workload selects the map-reduce job being measured.
type Workload string

const (
	WorkloadMax  Workload = "max"
	WorkloadSort Workload = "sort"
)

// ParseMode converts a flag value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeThread, ModeProc:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (use thread or proc)", s)
}

// ParseWorkload converts a flag value into a Workload.
func ParseWorkload(s string) (Workload, error) {
	switch Workload(s) {
	case WorkloadMax, WorkloadSort:
		return Workload(s), nil
	}
	return "", fmt.Errorf("unknown workload %q (use max or sort)", s)
}

// Partition is the half-open index range [L, R) assigned to one worker.
type Partition struct {
	Index int
	L     int
	R     int
}

// Len returns the number of elements in the partition.
func (p Partition) Len() int {
	return p.R - p.L
}

// Empty reports whether the partition covers no elements.
func (p Partition) Empty() bool {
	return p.R <= p.L
}

func (p Partition) String() string {
	return fmt.Sprintf("#%d[%d,%d)", p.Index, p.L, p.R)
}
