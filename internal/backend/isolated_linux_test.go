package backend

import (
	"errors"
	"io/fs"
	"math"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"FanoutBench/internal/partition"
)

func newIsolated(t *testing.T, lockName string) (*Isolated, string) {
	t.Helper()

	dir := t.TempDir()
	b, err := NewIsolated(Options{LockDir: dir, LockName: lockName, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewIsolated: %v", err)
	}
	return b, dir
}

func TestIsolatedMaxScenario(t *testing.T) {
	b, _ := newIsolated(t, "")
	data := []int64{5, 3, 9, 1, 8, 2, 7, 4, 6, 0}

	got, err := b.RunMax(data, partition.Split(len(data), 2))
	if err != nil {
		t.Fatalf("RunMax: %v", err)
	}
	if got != 9 {
		t.Fatalf("got %d, want 9", got)
	}
}

func TestIsolatedMaxEmpty(t *testing.T) {
	b, _ := newIsolated(t, "")

	got, err := b.RunMax([]int64{}, partition.Split(0, 3))
	if err != nil {
		t.Fatalf("RunMax: %v", err)
	}
	if got != math.MinInt64 {
		t.Fatalf("got %d, want math.MinInt64", got)
	}
}

func TestIsolatedMatchesInProcess(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	data := make([]int64, 5000)
	for i := range data {
		data[i] = rng.Int64N(1<<40) - (1 << 39)
	}

	iso, _ := newIsolated(t, "")
	inproc := NewInProcess(Options{Logger: quietLogger()})

	for _, w := range []int{1, 3, 8} {
		parts := partition.Split(len(data), w)

		want, err := inproc.RunMax(data, parts)
		if err != nil {
			t.Fatalf("in-process RunMax: %v", err)
		}
		got, err := iso.RunMax(data, parts)
		if err != nil {
			t.Fatalf("isolated RunMax: %v", err)
		}
		if got != want {
			t.Fatalf("w=%d: isolated max %d, in-process max %d", w, got, want)
		}

		sortedIso := slices.Clone(data)
		sortedIn := slices.Clone(data)
		if err := iso.RunSort(sortedIso, parts); err != nil {
			t.Fatalf("isolated RunSort: %v", err)
		}
		if err := inproc.RunSort(sortedIn, parts); err != nil {
			t.Fatalf("in-process RunSort: %v", err)
		}
		if !slices.Equal(sortedIso, sortedIn) {
			t.Fatalf("w=%d: isolated runs differ from in-process runs", w)
		}
	}
}

func TestIsolatedSortScenario(t *testing.T) {
	b, _ := newIsolated(t, "")
	data := []int64{4, 1, 3, 2, 8, 5, 7, 6}

	if err := b.RunSort(data, partition.Split(len(data), 4)); err != nil {
		t.Fatalf("RunSort: %v", err)
	}
	want := []int64{1, 4, 2, 3, 5, 8, 6, 7}
	if !slices.Equal(data, want) {
		t.Fatalf("got %v, want %v", data, want)
	}
}

func TestIsolatedRemovesHandleAfterRun(t *testing.T) {
	b, dir := newIsolated(t, "bench-fixed")

	if _, err := b.RunMax([]int64{1, 2, 3}, partition.Split(3, 2)); err != nil {
		t.Fatalf("RunMax: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bench-fixed.lock")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("handle still present after run: %v", err)
	}
}

func TestIsolatedRecoversStaleHandle(t *testing.T) {
	b, dir := newIsolated(t, "bench-stale")
	stale := filepath.Join(dir, "bench-stale.lock")
	if err := os.WriteFile(stale, []byte("left over"), 0600); err != nil {
		t.Fatal(err)
	}

	data := []int64{5, 3, 9, 1, 8, 2, 7, 4, 6, 0}
	got, err := b.RunMax(data, partition.Split(len(data), 2))
	if err != nil {
		t.Fatalf("RunMax with stale handle: %v", err)
	}
	if got != 9 {
		t.Fatalf("got %d, want 9", got)
	}
	if _, err := os.Stat(stale); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("handle still present after run: %v", err)
	}
}

func TestCreateSyncHandleReplacesStaleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "h.lock")
	if err := os.WriteFile(path, []byte("stale"), 0600); err != nil {
		t.Fatal(err)
	}

	h, err := CreateSyncHandle(dir, "h", quietLogger())
	if err != nil {
		t.Fatalf("CreateSyncHandle: %v", err)
	}
	defer h.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat handle: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("handle was not recreated, size %d", info.Size())
	}
	if h.Path() != path {
		t.Fatalf("Path() = %q, want %q", h.Path(), path)
	}

	if err := h.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := h.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestCreateSyncHandleGivesUpAfterOneRetry(t *testing.T) {
	dir := t.TempDir()
	// A non-empty directory can neither be opened exclusively nor removed.
	blocker := filepath.Join(dir, "h.lock")
	if err := os.MkdirAll(filepath.Join(blocker, "keep"), 0700); err != nil {
		t.Fatal(err)
	}

	_, err := CreateSyncHandle(dir, "h", quietLogger())
	if !errors.Is(err, ErrSyncSetup) {
		t.Fatalf("expected ErrSyncSetup, got %v", err)
	}
}

func TestIsolatedSyncSetupFailure(t *testing.T) {
	b, err := NewIsolated(Options{
		LockDir: filepath.Join(t.TempDir(), "missing"),
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewIsolated: %v", err)
	}

	if _, err := b.RunMax([]int64{1}, partition.Split(1, 1)); !errors.Is(err, ErrSyncSetup) {
		t.Fatalf("expected ErrSyncSetup, got %v", err)
	}
}

func TestIsolatedSpawnFailure(t *testing.T) {
	dir := t.TempDir()
	b, err := NewIsolated(Options{
		Executable: filepath.Join(dir, "no-such-binary"),
		LockDir:    dir,
		LockName:   "spawn",
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("NewIsolated: %v", err)
	}

	_, err = b.RunMax([]int64{1, 2}, partition.Split(2, 2))
	if !errors.Is(err, ErrResourceAllocation) {
		t.Fatalf("expected ErrResourceAllocation, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "spawn.lock")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("handle leaked after spawn failure: %v", err)
	}
}

func TestIsolatedWorkerFailure(t *testing.T) {
	falseBin, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false binary not available")
	}

	dir := t.TempDir()
	b, err := NewIsolated(Options{Executable: falseBin, LockDir: dir, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("NewIsolated: %v", err)
	}

	if err := b.RunSort([]int64{3, 2, 1}, partition.Split(3, 3)); err == nil {
		t.Fatal("expected an error from failing workers")
	}
	if got := b.PeakChildRSSKB(); got != -1 {
		t.Fatalf("failed workers reported peak RSS %d, want -1", got)
	}
}

func TestRegionLayout(t *testing.T) {
	r, err := NewRegion("test-region", 2, 4)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	defer r.Close()

	if got := *r.Cell(); got != math.MinInt64 {
		t.Fatalf("cell = %d, want math.MinInt64", got)
	}
	if !slices.Equal(r.Slots(), []int64{-1, -1}) {
		t.Fatalf("slots = %v, want [-1 -1]", r.Slots())
	}
	ints := r.Ints()
	if len(ints) != 4 {
		t.Fatalf("len(Ints()) = %d, want 4", len(ints))
	}
	copy(ints, []int64{1, 2, 3, 4})
	*r.Cell() = 7
	r.Slots()[1] = 99

	if !slices.Equal(r.Ints(), []int64{1, 2, 3, 4}) || *r.Cell() != 7 {
		t.Fatalf("cell and data overlap: cell=%d data=%v", *r.Cell(), r.Ints())
	}
	if !slices.Equal(r.Slots(), []int64{-1, 99}) {
		t.Fatalf("slots and data overlap: slots=%v", r.Slots())
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestRegionEmpty(t *testing.T) {
	r, err := NewRegion("test-empty", 0, 0)
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	defer r.Close()

	if r.Ints() != nil || r.Slots() != nil {
		t.Fatalf("expected no data, got slots=%v data=%v", r.Slots(), r.Ints())
	}
}

func TestIsolatedReportsWorkerPeakRSS(t *testing.T) {
	b, _ := newIsolated(t, "")
	if got := b.PeakChildRSSKB(); got != -1 {
		t.Fatalf("peak before any run = %d, want -1", got)
	}

	// Grow the coordinator well past what a worker needs; the workers must not
	// report the coordinator's high-water mark as their own.
	const ballastKB = 256 * 1024
	ballast := make([]byte, ballastKB*1024)
	for i := 0; i < len(ballast); i += 4096 {
		ballast[i] = 1
	}

	data := make([]int64, 4096)
	for i := range data {
		data[i] = int64(len(data) - i)
	}
	if err := b.RunSort(data, partition.Split(len(data), 3)); err != nil {
		t.Fatalf("RunSort: %v", err)
	}
	runtime.KeepAlive(ballast)

	peak := b.PeakChildRSSKB()
	if peak <= 0 {
		t.Fatalf("workers reported no peak RSS: %d", peak)
	}
	if peak >= ballastKB {
		t.Fatalf("worker peak %d KB includes the coordinator's %d KB ballast", peak, ballastKB)
	}
}

func TestParseHighWater(t *testing.T) {
	status := "Name:\tfanoutbench\nVmPeak:\t  812345 kB\nVmHWM:\t    6292 kB\nVmRSS:\t    6100 kB\n"
	kb, err := parseHighWater(strings.NewReader(status))
	if err != nil {
		t.Fatalf("parseHighWater: %v", err)
	}
	if kb != 6292 {
		t.Fatalf("got %d, want 6292", kb)
	}

	if _, err := parseHighWater(strings.NewReader("Name:\tx\n")); err == nil {
		t.Fatal("expected error when VmHWM is missing")
	}
	if _, err := parseHighWater(strings.NewReader("VmHWM:\tlots kB\n")); err == nil {
		t.Fatal("expected error for a malformed VmHWM")
	}
}

func TestHighWaterOfSelf(t *testing.T) {
	kb, err := highWaterKB()
	if err != nil {
		t.Fatalf("highWaterKB: %v", err)
	}
	if kb <= 0 {
		t.Fatalf("highWaterKB() = %d", kb)
	}
}

func TestHandleName(t *testing.T) {
	b, _ := newIsolated(t, "")
	first, second := b.handleName(), b.handleName()
	if !strings.HasPrefix(first, "fanoutbench-") || first == second {
		t.Fatalf("generated names %q and %q", first, second)
	}

	named, _ := newIsolated(t, "mapred_sem_example")
	if got := named.handleName(); got != "mapred_sem_example" {
		t.Fatalf("configured name: got %q", got)
	}
}
