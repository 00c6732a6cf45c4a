// Package partition splits an index domain into contiguous worker ranges.
package partition

import "FanoutBench/internal/types"

// Split divides [0, n) into w ordered, disjoint, half-open ranges whose union is [0, n).
// Range i is [i*n/w, (i+1)*n/w), so ranges may be empty when n < w and sizes differ by
// at most one. A w below 1 is treated as 1.
func Split(n, w int) []types.Partition {
	if w < 1 {
		w = 1
	}
	if n < 0 {
		n = 0
	}

	parts := make([]types.Partition, w)
	for i := range parts {
		parts[i] = types.Partition{
			Index: i,
			L:     i * n / w,
			R:     (i + 1) * n / w,
		}
	}
	return parts
}

// NonEmpty returns the partitions that cover at least one element, in order.
func NonEmpty(parts []types.Partition) []types.Partition {
	out := make([]types.Partition, 0, len(parts))
	for _, p := range parts {
		if !p.Empty() {
			out = append(out, p)
		}
	}
	return out
}
