// Package merge combines sorted runs produced by the map phase into one sorted sequence.
package merge

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"FanoutBench/internal/partition"
	"FanoutBench/internal/types"
)

// Strategy selects the order in which runs are merged.
type Strategy string

const (
	// StrategyFold merges run0+run1, then that result with run2, and so on.
	// Data movement is O(N*W) in the worst case.
	StrategyFold Strategy = "fold"
	// StrategyTree merges adjacent pairs level by level, O(N*log W).
	StrategyTree Strategy = "tree"
)

// ParseStrategy converts a flag value into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyFold, StrategyTree:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown merge strategy %q (use fold or tree)", s)
}

// Runs merges the sorted runs of data in place using strategy. runs must be ordered
// left to right and contiguous; empty runs are ignored.
func Runs[T constraints.Ordered](strategy Strategy, data []T, runs []types.Partition) {
	switch strategy {
	case StrategyTree:
		Tree(data, runs)
	default:
		Fold(data, runs)
	}
}

// Fold keeps the runs as a queue, repeatedly merges the two front runs and pushes the
// result back to the front until one run remains.
func Fold[T constraints.Ordered](data []T, runs []types.Partition) {
	segs := partition.NonEmpty(runs)
	if len(segs) < 2 {
		return
	}

	tmp := make([]T, len(data))
	for len(segs) > 1 {
		a, b := segs[0], segs[1]
		mergeRanges(data, a.L, a.R, b.R, tmp)
		segs[1] = types.Partition{Index: a.Index, L: a.L, R: b.R}
		segs = segs[1:]
	}
}

// Tree merges adjacent runs pairwise, halving the number of runs on every pass.
func Tree[T constraints.Ordered](data []T, runs []types.Partition) {
	segs := partition.NonEmpty(runs)
	if len(segs) < 2 {
		return
	}

	tmp := make([]T, len(data))
	for len(segs) > 1 {
		next := segs[:0]
		for i := 0; i < len(segs); i += 2 {
			if i+1 == len(segs) {
				next = append(next, segs[i])
				break
			}
			a, b := segs[i], segs[i+1]
			mergeRanges(data, a.L, a.R, b.R, tmp)
			next = append(next, types.Partition{Index: a.Index, L: a.L, R: b.R})
		}
		segs = next
	}
}

// mergeRanges merges the sorted ranges a[l:m] and a[m:r] through tmp[l:r] and copies
// the result back into a.
func mergeRanges[T constraints.Ordered](a []T, l, m, r int, tmp []T) {
	i, j, k := l, m, l
	for i < m && j < r {
		if a[i] <= a[j] {
			tmp[k] = a[i]
			i++
		} else {
			tmp[k] = a[j]
			j++
		}
		k++
	}
	k += copy(tmp[k:], a[i:m])
	copy(tmp[k:], a[j:r])
	copy(a[l:r], tmp[l:r])
}
