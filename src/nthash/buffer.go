package nthash

import (
	"fmt"
	"math/bits"

	"github.com/will-rowe/minimizers/src/packed"
)

// Buffer is a reusable buffered hasher.
//
// It keeps a 16 entry step table, one entry per (outgoing, incoming) base pair, so each
// step after the first k-mer is a rotate and a single XOR. The hashes are written into a
// slice owned by the Buffer, so the result of Fill is only valid until the next Reset.
// A Buffer must be Reset between inputs and must not be shared between goroutines.
type Buffer struct {
	k      int
	step   [16]uint64
	hashes []uint64
	stale  bool
}

// NewBuffer is the constructor
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Reset releases the previous result so the Buffer can take a new input
func (b *Buffer) Reset() {
	b.hashes = b.hashes[:0]
	b.stale = false
}

// setK rebuilds the step table when k changes
func (b *Buffer) setK(k int) {
	if b.k == k {
		return
	}
	b.k = k
	for out := range seeds {
		removed := bits.RotateLeft64(seeds[out], k)
		for in := range seeds {
			b.step[out<<2|in] = removed ^ seeds[in]
		}
	}
}

// Fill hashes every k-mer of seq into the Buffer and returns the hashes
func Fill[S packed.Sequence](b *Buffer, seq S, k int) ([]uint64, error) {
	if b.stale {
		return nil, fmt.Errorf("buffered hasher: %w", ErrStale)
	}
	n := seq.Len()
	if err := Validate(k, n); err != nil {
		return nil, err
	}
	b.stale = true
	b.setK(k)
	if cap(b.hashes) < n-k+1 {
		b.hashes = make([]uint64, 0, n-k+1)
	}
	hashes := b.hashes[:0]

	var fw uint64
	for i := 0; i < k; i++ {
		fw = bits.RotateLeft64(fw, 1) ^ seeds[seq.Base(i)]
	}
	hashes = append(hashes, fw)
	for i := k; i < n; i++ {
		fw = bits.RotateLeft64(fw, 1) ^ b.step[seq.Base(i-k)<<2|seq.Base(i)]
		hashes = append(hashes, fw)
	}
	b.hashes = hashes
	return hashes, nil
}
