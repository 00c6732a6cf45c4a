package backend

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// highWaterKB returns the peak resident set size of the calling process's current address
// space. getrusage cannot be used in a worker: exec keeps the high-water mark of the
// address space it replaced, which for a vfork'd child is the coordinator's.
func highWaterKB() (int64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return -1, err
	}
	defer f.Close()

	return parseHighWater(f)
}

// parseHighWater extracts VmHWM (in kB) from a /proc/<pid>/status listing.
func parseHighWater(r io.Reader) (int64, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		rest, ok := strings.CutPrefix(sc.Text(), "VmHWM:")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			break
		}
		kb, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return -1, fmt.Errorf("parse VmHWM: %w", err)
		}
		return kb, nil
	}
	if err := sc.Err(); err != nil {
		return -1, err
	}
	return -1, fmt.Errorf("VmHWM not found")
}
