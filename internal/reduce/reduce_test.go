package reduce

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
)

func newLocked() *LockedMax {
	var cell int64
	r := NewLockedMax(&cell, &Mutex{})
	r.Reset()
	return r
}

func registers() map[string]func() Register {
	return map[string]func() Register{
		"atomic": func() Register { return NewAtomicMax() },
		"locked": func() Register { return newLocked() },
	}
}

func TestRegisterStartsAtSentinel(t *testing.T) {
	for name, mk := range registers() {
		if got := mk().Load(); got != math.MinInt64 {
			t.Errorf("%s: initial value %d, want math.MinInt64", name, got)
		}
	}
}

func TestRegisterNeverDecreases(t *testing.T) {
	for name, mk := range registers() {
		r := mk()
		for _, v := range []int64{3, 10, 7, -1, 10, 11, 0} {
			before := r.Load()
			if err := r.Offer(v); err != nil {
				t.Fatalf("%s: Offer(%d): %v", name, v, err)
			}
			after := r.Load()
			if after < before {
				t.Fatalf("%s: value dropped from %d to %d", name, before, after)
			}
		}
		if got := r.Load(); got != 11 {
			t.Errorf("%s: final value %d, want 11", name, got)
		}
	}
}

func TestRegisterOrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	locals := make([]int64, 64)
	want := int64(math.MinInt64)
	for i := range locals {
		locals[i] = rng.Int64N(1 << 31)
		want = max(want, locals[i])
	}

	for name, mk := range registers() {
		for trial := 0; trial < 20; trial++ {
			rng.Shuffle(len(locals), func(i, j int) { locals[i], locals[j] = locals[j], locals[i] })
			r := mk()
			for _, v := range locals {
				_ = r.Offer(v)
			}
			if got := r.Load(); got != want {
				t.Fatalf("%s trial %d: got %d, want %d", name, trial, got, want)
			}
		}
	}
}

func TestRegisterConcurrentOffers(t *testing.T) {
	const workers = 32
	const perWorker = 2000

	for name, mk := range registers() {
		r := mk()
		var wg sync.WaitGroup
		wg.Add(workers)
		for w := 0; w < workers; w++ {
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					_ = r.Offer(int64(i*workers + w))
				}
			}(w)
		}
		wg.Wait()

		want := int64((perWorker-1)*workers + workers - 1)
		if got := r.Load(); got != want {
			t.Errorf("%s: got %d, want %d", name, got, want)
		}
	}
}

type failingLocker struct{ err error }

func (l failingLocker) Lock() error   { return l.err }
func (l failingLocker) Unlock() error { return nil }

func TestLockedMaxPropagatesLockFailure(t *testing.T) {
	boom := errors.New("lock failed")
	var cell int64 = 5
	r := NewLockedMax(&cell, failingLocker{err: boom})

	if err := r.Offer(100); !errors.Is(err, boom) {
		t.Fatalf("expected lock error, got %v", err)
	}
	if cell != 5 {
		t.Fatalf("cell changed without the lock: %d", cell)
	}
}
