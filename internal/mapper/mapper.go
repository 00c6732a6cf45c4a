// Package mapper holds the per-partition computations run by map workers.
package mapper

import (
	"math"
	"slices"
)

// MinValue is the accumulator sentinel; an empty run reports it as its maximum.
const MinValue int64 = math.MinInt64

// ScanMax returns the largest element of run, or MinValue when run is empty.
func ScanMax(run []int64) int64 {
	local := MinValue
	for _, v := range run {
		if v > local {
			local = v
		}
	}
	return local
}

// SortRun sorts run in place. Equal elements may be reordered.
func SortRun(run []int64) {
	slices.Sort(run)
}
