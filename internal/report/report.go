// Package report renders benchmark results and samples process memory usage.
package report

import (
	"fmt"
	"io"
	"strconv"

	"FanoutBench/internal/types"
)

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "NO"
}

// kb renders a memory figure, where a negative value means it was not measured.
func kb(v int64) string {
	if v < 0 {
		return "n/a"
	}
	return strconv.FormatInt(v, 10)
}

// Print writes r in the human-readable format of the benchmark.
func Print(w io.Writer, r *types.Report) error {
	var err error
	printf := func(format string, args ...interface{}) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	printf("Mode: %s, workers=%d, size=%d\n", r.Mode, r.Workers, r.Size)
	printf("Map time (ms): %d\n", r.MapTime.Milliseconds())

	switch r.Workload {
	case types.WorkloadMax:
		printf("Final max: %d\n", r.Max)
	case types.WorkloadSort:
		printf("Reduce time (ms): %d\n", r.ReduceTime.Milliseconds())
		printf("Total time (ms): %d\n", r.TotalTime.Milliseconds())
		printf("Sorted OK: %s\n", yesNo(r.Sorted))
		printf("Permutation OK: %s\n", yesNo(r.Permutation))
	}

	printf("Peak RSS (KB): %s\n", kb(r.PeakRSSKB))
	if r.Mode == types.ModeProc {
		printf("Peak child RSS (KB): %s\n", kb(r.PeakChildRSSKB))
	}
	return err
}
