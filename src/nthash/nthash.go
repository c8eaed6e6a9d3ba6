// Package nthash is a rolling ntHash engine over 2-bit packed sequences.
//
// The forward hash of the k-mer starting at p is XOR_i rol(seed[s[p+i]], k-1-i) and the
// reverse complement hash is XOR_i rol(seed[comp(s[p+i])], i). Both are updated in O(1)
// per base. Rotation counts are taken modulo the 64 bit hash word, which is how
// contributions fold once a k-mer spans the whole word (k == MaxK rotates the
// outgoing base by zero).
//
// Every variant here (scalar iterator, buffered, lane-parallel and the external
// reference) produces the same hash values for the same input.
package nthash

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/will-rowe/minimizers/src/packed"
)

// MaxK is the largest supported k-mer size, bounded by the hash word width
const MaxK = 64

// the ntHash seeds, indexed by packed 2-bit code (A, C, T, G)
const (
	seedA uint64 = 0x3c8bfbb395c60474
	seedC uint64 = 0x3193c18562a02b4c
	seedT uint64 = 0x295549f54be24456
	seedG uint64 = 0x20323ed082572324
)

var seeds = [4]uint64{seedA, seedC, seedT, seedG}

var (
	// ErrInvalidParameter is returned when k (or w) can not be used with the input
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrStale is returned when a reusable hasher is used again without a Reset
	ErrStale = errors.New("hasher state must be reset before reuse")
)

// Validate checks a k-mer size against a sequence length
func Validate(k, n int) error {
	switch {
	case k < 1:
		return fmt.Errorf("%w: k-mer size must be at least 1 (got %d)", ErrInvalidParameter, k)
	case k > MaxK:
		return fmt.Errorf("%w: k-mer size (%d) is greater than the maximum supported (%d)", ErrInvalidParameter, k, MaxK)
	case k > n:
		return fmt.Errorf("%w: k-mer size (%d) is greater than sequence length (%d)", ErrInvalidParameter, k, n)
	}
	return nil
}

// NumKmers returns max(0, n-k+1)
func NumKmers(n, k int) int {
	if n < k {
		return 0
	}
	return n - k + 1
}

// tables holds the per-base contributions for one k
type tables struct {
	out   [4]uint64 // rol(seed, k), removed from the forward hash
	rcIn  [4]uint64 // rol(seed[comp], k-1), added to the reverse hash
	rcOut [4]uint64 // ror(seed[comp], 1), removed from the reverse hash
}

func newTables(k int) tables {
	var t tables
	for c := range seeds {
		comp := seeds[packed.Complement(uint8(c))]
		t.out[c] = bits.RotateLeft64(seeds[c], k)
		t.rcIn[c] = bits.RotateLeft64(comp, k-1)
		t.rcOut[c] = bits.RotateLeft64(comp, -1)
	}
	return t
}

// HashKmer hashes the k-mer at p from scratch
func HashKmer[S packed.Sequence](seq S, p, k int) uint64 {
	var h uint64
	for i := 0; i < k; i++ {
		h ^= bits.RotateLeft64(seeds[seq.Base(p+i)], k-1-i)
	}
	return h
}

// HashKmerRC hashes the reverse complement of the k-mer at p from scratch
func HashKmerRC[S packed.Sequence](seq S, p, k int) uint64 {
	var h uint64
	for i := 0; i < k; i++ {
		h ^= bits.RotateLeft64(seeds[packed.Complement(seq.Base(p+i))], i)
	}
	return h
}

// Iterator is the scalar forward hash stream, one value per k-mer in sequence order
type Iterator[S packed.Sequence] struct {
	seq  S
	k    int
	next int // index of the next base to roll in
	fw   uint64
	tab  tables
}

// Forward validates k and returns a lazy forward hash stream over seq
func Forward[S packed.Sequence](seq S, k int) (*Iterator[S], error) {
	if err := Validate(k, seq.Len()); err != nil {
		return nil, err
	}
	it := &Iterator[S]{seq: seq, k: k, tab: newTables(k)}
	for ; it.next < k-1; it.next++ {
		it.fw = bits.RotateLeft64(it.fw, 1) ^ seeds[seq.Base(it.next)]
	}
	return it, nil
}

// Next returns the hash of the next k-mer
func (it *Iterator[S]) Next() (uint64, bool) {
	if it.next >= it.seq.Len() {
		return 0, false
	}
	it.fw = bits.RotateLeft64(it.fw, 1) ^ seeds[it.seq.Base(it.next)]
	if it.next >= it.k {
		it.fw ^= it.tab.out[it.seq.Base(it.next-it.k)]
	}
	it.next++
	return it.fw, true
}

// Len returns the number of hashes left in the stream
func (it *Iterator[S]) Len() int {
	return it.seq.Len() - it.next
}

// Hashes collects the forward hash stream of seq
func Hashes[S packed.Sequence](seq S, k int) ([]uint64, error) {
	it, err := Forward(seq, k)
	if err != nil {
		return nil, err
	}
	hashes := make([]uint64, 0, it.Len())
	for h, ok := it.Next(); ok; h, ok = it.Next() {
		hashes = append(hashes, h)
	}
	return hashes, nil
}

// CanonicalIterator rolls the forward and reverse complement hashes together
type CanonicalIterator[S packed.Sequence] struct {
	seq    S
	k      int
	next   int
	fw, rc uint64
	tab    tables
}

// Canonical validates k and returns a lazy stream of (forward, reverse complement) hash pairs
func Canonical[S packed.Sequence](seq S, k int) (*CanonicalIterator[S], error) {
	if err := Validate(k, seq.Len()); err != nil {
		return nil, err
	}
	it := &CanonicalIterator[S]{seq: seq, k: k, tab: newTables(k)}
	for ; it.next < k-1; it.next++ {
		c := seq.Base(it.next)
		it.fw = bits.RotateLeft64(it.fw, 1) ^ seeds[c]
		it.rc = bits.RotateLeft64(it.rc, -1) ^ it.tab.rcIn[c]
	}
	return it, nil
}

// Next returns the forward and reverse complement hashes of the next k-mer
func (it *CanonicalIterator[S]) Next() (uint64, uint64, bool) {
	if it.next >= it.seq.Len() {
		return 0, 0, false
	}
	c := it.seq.Base(it.next)
	it.fw = bits.RotateLeft64(it.fw, 1) ^ seeds[c]
	it.rc = bits.RotateLeft64(it.rc, -1) ^ it.tab.rcIn[c]
	if it.next >= it.k {
		out := it.seq.Base(it.next - it.k)
		it.fw ^= it.tab.out[out]
		it.rc ^= it.tab.rcOut[out]
	}
	it.next++
	return it.fw, it.rc, true
}

// Len returns the number of hash pairs left in the stream
func (it *CanonicalIterator[S]) Len() int {
	return it.seq.Len() - it.next
}
