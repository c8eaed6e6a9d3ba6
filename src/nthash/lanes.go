package nthash

import (
	"fmt"
	"math/bits"

	"github.com/will-rowe/minimizers/src/packed"
)

// MaxLanes is the compile-time width of a lane vector
const MaxLanes = 8

// Vec holds one uint64 per lane, the operations below are applied lane-wise
type Vec [MaxLanes]uint64

// Mask holds one flag per lane
type Mask [MaxLanes]bool

// Splat returns a Vec with x in every lane
func Splat(x uint64) Vec {
	var v Vec
	for i := range v {
		v[i] = x
	}
	return v
}

// Xor returns v ^ o
func (v Vec) Xor(o Vec) Vec {
	for i := range v {
		v[i] ^= o[i]
	}
	return v
}

// RotateLeft rotates every lane by n bits, a negative n rotates right
func (v Vec) RotateLeft(n int) Vec {
	for i := range v {
		v[i] = bits.RotateLeft64(v[i], n)
	}
	return v
}

// Less returns the lanes where v < o
func (v Vec) Less(o Vec) Mask {
	var m Mask
	for i := range v {
		m[i] = v[i] < o[i]
	}
	return m
}

// LessEqual returns the lanes where v <= o
func (v Vec) LessEqual(o Vec) Mask {
	var m Mask
	for i := range v {
		m[i] = v[i] <= o[i]
	}
	return m
}

// Select returns a where m is set and b elsewhere
func Select(m Mask, a, b Vec) Vec {
	for i := range m {
		if !m[i] {
			a[i] = b[i]
		}
	}
	return a
}

// Lane is the slice of the k-mer stream handled by one vector lane
type Lane struct {
	Start int // index of the first k-mer of the lane
	Len   int // number of k-mers the lane hashes
}

// End returns the index one past the lane's last k-mer
func (l Lane) End() int {
	return l.Start + l.Len
}

// SplitLanes divides a stream of kmers k-mers into near-equal lanes.
//
// Adjacent lanes share overlap k-mers, i.e. overlap+k-1 bases. With an overlap of zero
// every k-mer is owned by exactly one lane; the minimizer path uses w-1 so that every
// window of w k-mers is owned by exactly one lane. Lanes left without work have Len 0.
func SplitLanes(kmers, overlap, lanes int) []Lane {
	split := make([]Lane, lanes)
	units := kmers - overlap
	if units <= 0 {
		return split
	}
	per := (units + lanes - 1) / lanes
	for l := range split {
		start := l * per
		end := start + per
		if end > units {
			end = units
		}
		if end <= start {
			split[l] = Lane{Start: units}
			continue
		}
		split[l] = Lane{Start: start, Len: end - start + overlap}
	}
	return split
}

// checkLanes validates a lane count
func checkLanes(lanes int) error {
	if lanes < 1 || lanes > MaxLanes {
		return fmt.Errorf("%w: lane count must be between 1 and %d (got %d)", ErrInvalidParameter, MaxLanes, lanes)
	}
	return nil
}

// baseStream hands out the bases of one lane in order, refilling a word of up to
// packed.MaxRun bases at a time
type baseStream struct {
	next int // index of the first base not yet loaded
	word uint64
	left int // bases still held in word
}

// LaneHasher rolls up to MaxLanes independent ntHash recurrences in one Vec operation per step.
//
// It is a session object: the lane accumulators and the output buffer are reused between
// inputs, and Reset must be called before Start or Hashes is used on a new input.
type LaneHasher[S packed.Sequence] struct {
	seq       S
	runs      packed.Runner // nil when S cannot read runs
	in, out   [MaxLanes]baseStream
	k         int
	lanes     []Lane
	tab       tables
	fw, rc    Vec
	t         int // k-mers emitted per lane so far
	steps     int
	canonical bool
	started   bool
	hashes    []uint64
}

// NewLaneHasher is the constructor
func NewLaneHasher[S packed.Sequence]() *LaneHasher[S] {
	return &LaneHasher[S]{}
}

// Reset clears the lane state
func (h *LaneHasher[S]) Reset() {
	var seq S
	h.seq, h.runs = seq, nil
	h.fw, h.rc = Vec{}, Vec{}
	h.t, h.steps = 0, 0
	h.lanes = h.lanes[:0]
	h.started = false
}

// Start primes the lanes with the first k-1 bases of each lane.
// When canonical is set the reverse complement hashes are rolled as well.
func (h *LaneHasher[S]) Start(seq S, k int, lanes []Lane, canonical bool) error {
	if h.started {
		return fmt.Errorf("lane hasher: %w", ErrStale)
	}
	if err := Validate(k, seq.Len()); err != nil {
		return err
	}
	if err := checkLanes(len(lanes)); err != nil {
		return err
	}
	for _, lane := range lanes {
		if lane.Len > 0 && (lane.Start < 0 || lane.End()+k-1 > seq.Len()) {
			return fmt.Errorf("%w: lane [%d:%d] runs past the sequence", ErrInvalidParameter, lane.Start, lane.End())
		}
	}
	h.started = true
	h.seq, h.k, h.canonical = seq, k, canonical
	h.runs, _ = any(seq).(packed.Runner)
	for l, lane := range lanes {
		h.in[l] = baseStream{next: lane.Start}
		h.out[l] = baseStream{next: lane.Start}
	}
	h.lanes = append(h.lanes[:0], lanes...)
	h.tab = newTables(k)
	h.steps = 0
	for _, lane := range lanes {
		if lane.Len > h.steps {
			h.steps = lane.Len
		}
	}
	for j := 0; j < k-1; j++ {
		h.roll(j)
	}
	return nil
}

// Lanes returns the lane geometry in use
func (h *LaneHasher[S]) Lanes() []Lane {
	return h.lanes
}

// Next advances every lane by one k-mer and returns the forward and reverse complement
// hashes. Lanes that have run out of k-mers carry values that must be ignored.
func (h *LaneHasher[S]) Next() (Vec, Vec, bool) {
	if !h.started || h.t >= h.steps {
		return Vec{}, Vec{}, false
	}
	h.roll(h.t + h.k - 1)
	h.t++
	return h.fw, h.rc, true
}

// roll adds base j (relative to the lane start) of every lane and drops base j-k.
// It is called for j = 0, 1, 2, ... so both streams of a lane are read strictly in order.
func (h *LaneHasher[S]) roll(j int) {
	var in, out, rcIn, rcOut Vec
	n := h.seq.Len()
	for l, lane := range h.lanes {
		if lane.Start+j < n {
			c := h.read(&h.in[l])
			in[l] = seeds[c]
			rcIn[l] = h.tab.rcIn[c]
		}
		if j >= h.k && lane.Start+j-h.k < n {
			c := h.read(&h.out[l])
			out[l] = h.tab.out[c]
			rcOut[l] = h.tab.rcOut[c]
		}
	}
	h.fw = h.fw.RotateLeft(1).Xor(in).Xor(out)
	if h.canonical {
		h.rc = h.rc.RotateLeft(-1).Xor(rcIn).Xor(rcOut)
	}
}

// read shifts the next base out of a stream, loading another run when it is empty
func (h *LaneHasher[S]) read(s *baseStream) uint8 {
	if s.left == 0 {
		n := h.seq.Len() - s.next
		if n > packed.MaxRun {
			n = packed.MaxRun
		}
		if h.runs != nil {
			s.word = h.runs.Run(s.next, n)
		} else {
			s.word = 0
			for b := 0; b < n; b++ {
				s.word |= uint64(h.seq.Base(s.next+b)) << (packed.BitsPerBase * uint(b))
			}
		}
		s.next += n
		s.left = n
	}
	c := uint8(s.word & 3)
	s.word >>= packed.BitsPerBase
	s.left--
	return c
}

// Hashes computes the forward hash stream of seq across the given number of lanes and
// writes every lane back to its global position. The result is owned by the hasher.
func (h *LaneHasher[S]) Hashes(seq S, k, lanes int) ([]uint64, error) {
	if err := checkLanes(lanes); err != nil {
		return nil, err
	}
	kmers := NumKmers(seq.Len(), k)
	if err := h.Start(seq, k, SplitLanes(kmers, 0, lanes), false); err != nil {
		return nil, err
	}
	if cap(h.hashes) < kmers {
		h.hashes = make([]uint64, kmers)
	}
	h.hashes = h.hashes[:kmers]
	for fw, _, ok := h.Next(); ok; fw, _, ok = h.Next() {
		t := h.t - 1
		for l, lane := range h.lanes {
			if t < lane.Len {
				h.hashes[lane.Start+t] = fw[l]
			}
		}
	}
	return h.hashes, nil
}
