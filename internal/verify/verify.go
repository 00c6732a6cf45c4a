// Package verify checks the output of the sort workload.
package verify

import (
	"encoding/binary"

	"github.com/zeebo/xxh3"
	"golang.org/x/exp/constraints"
)

// Sorted reports whether s is non-decreasing. Empty and single element slices are sorted.
func Sorted[T constraints.Ordered](s []T) bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] > s[i] {
			return false
		}
	}
	return true
}

// Digest is an order-independent fingerprint of a multiset of integers. Two slices that
// are permutations of each other always have equal digests.
type Digest struct {
	Count int
	Sum   uint64
	Xor   uint64
}

// Fingerprint hashes every element with xxh3 and folds the hashes with addition and xor,
// both of which are commutative.
func Fingerprint(s []int64) Digest {
	var buf [8]byte
	d := Digest{Count: len(s)}
	for _, v := range s {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h := xxh3.Hash(buf[:])
		d.Sum += h
		d.Xor ^= h
	}
	return d
}
