package minimizer

import (
	"fmt"

	"github.com/will-rowe/minimizers/src/nthash"
	"github.com/will-rowe/minimizers/src/packed"
)

// LaneResult is the output of one lane, positions are relative to Offset
type LaneResult struct {
	Offset     int
	Minimizers []Minimizer
}

// Merge translates lane-local positions to global ones and concatenates the lanes in order.
// Lanes own disjoint, ascending ranges of windows, so the only duplicates are at the seams,
// where the last minimizer of a lane can be the first of the next; with dedup set those
// are dropped. The merged stream is appended to dst.
func Merge(dst []Minimizer, lanes []LaneResult, dedup bool) []Minimizer {
	for _, lane := range lanes {
		for _, m := range lane.Minimizers {
			m.Pos += lane.Offset
			if dedup && len(dst) != 0 {
				if last := dst[len(dst)-1]; last == m {
					continue
				}
			}
			dst = append(dst, m)
		}
	}
	return dst
}

// laneSplit is the split algorithm run on all lanes at once. The lanes advance in
// lockstep, so the block bookkeeping is shared and only hashes and positions are per lane.
type laneSplit struct {
	w          int
	block      []nthash.Vec
	suffixHash []nthash.Vec
	suffixPos  []nthash.Vec
	prefixHash nthash.Vec
	prefixPos  nthash.Vec
	pos        int
}

func (s *laneSplit) reset(w int) {
	if cap(s.block) < w {
		s.block = make([]nthash.Vec, w)
		s.suffixHash = make([]nthash.Vec, w)
		s.suffixPos = make([]nthash.Vec, w)
	}
	s.w = w
	s.block = s.block[:w]
	s.suffixHash = s.suffixHash[:w]
	s.suffixPos = s.suffixPos[:w]
	s.pos = 0
}

// push returns the lane-local position and hash of the window ending at this step
func (s *laneSplit) push(v nthash.Vec) (nthash.Vec, nthash.Vec, bool) {
	w := s.w
	j := s.pos
	s.pos++
	i := j % w
	s.block[i] = v

	here := nthash.Splat(uint64(j))
	if i == 0 {
		s.prefixHash, s.prefixPos = v, here
	} else {
		less := v.Less(s.prefixHash)
		s.prefixHash = nthash.Select(less, v, s.prefixHash)
		s.prefixPos = nthash.Select(less, here, s.prefixPos)
	}

	if i == w-1 {
		start := j - i
		s.suffixHash[i], s.suffixPos[i] = v, here
		for x := i - 1; x >= 0; x-- {
			keep := s.block[x].LessEqual(s.suffixHash[x+1])
			s.suffixHash[x] = nthash.Select(keep, s.block[x], s.suffixHash[x+1])
			s.suffixPos[x] = nthash.Select(keep, nthash.Splat(uint64(start+x)), s.suffixPos[x+1])
		}
	}

	if j < w-1 {
		return nthash.Vec{}, nthash.Vec{}, false
	}
	left := (j + 1) % w
	right := s.prefixHash.Less(s.suffixHash[left])
	return nthash.Select(right, s.prefixPos, s.suffixPos[left]), nthash.Select(right, s.prefixHash, s.suffixHash[left]), true
}

// Session computes minimizers with up to nthash.MaxLanes lanes processed in lockstep.
//
// The sequence is split so that every window belongs to exactly one lane (adjacent lanes
// share w-1 k-mers), each lane runs the split algorithm on its own k-mers and the lane
// results are merged back into the order the scalar path produces. Lane buffers are kept
// between calls; Reset must be called before the Session is used on a new input.
type Session[S packed.Sequence] struct {
	hasher *nthash.LaneHasher[S]
	sel    laneSplit
	lanes  [nthash.MaxLanes][]Minimizer
	merged []Minimizer
}

// NewSession is the constructor
func NewSession[S packed.Sequence]() *Session[S] {
	return &Session[S]{hasher: nthash.NewLaneHasher[S]()}
}

// Reset clears the lane state and releases the previous result
func (s *Session[S]) Reset() {
	s.hasher.Reset()
	for l := range s.lanes {
		s.lanes[l] = s.lanes[l][:0]
	}
	s.merged = s.merged[:0]
}

// Minimizers returns the same stream as the package level Minimizers (deduplicated when
// dedup is set). The result is owned by the Session and valid until the next Reset.
func (s *Session[S]) Minimizers(seq S, k, w, lanes int, dedup bool) ([]Minimizer, error) {
	return s.run(seq, k, w, lanes, dedup, false)
}

// CanonicalMinimizers is Minimizers over min(forward, reverse complement) hashes, preferring
// the forward hash when they are equal
func (s *Session[S]) CanonicalMinimizers(seq S, k, w, lanes int, dedup bool) ([]Minimizer, error) {
	return s.run(seq, k, w, lanes, dedup, true)
}

func (s *Session[S]) run(seq S, k, w, lanes int, dedup, canonical bool) ([]Minimizer, error) {
	if err := Validate(k, w, seq.Len()); err != nil {
		return nil, err
	}
	if lanes < 1 || lanes > nthash.MaxLanes {
		return nil, fmt.Errorf("%w: lane count must be between 1 and %d (got %d)", ErrInvalidParameter, nthash.MaxLanes, lanes)
	}
	split := nthash.SplitLanes(nthash.NumKmers(seq.Len(), k), w-1, lanes)
	if err := s.hasher.Start(seq, k, split, canonical); err != nil {
		return nil, err
	}
	s.sel.reset(w)
	for l := range s.lanes {
		s.lanes[l] = s.lanes[l][:0]
	}

	window := 0
	for fw, rc, ok := s.hasher.Next(); ok; fw, rc, ok = s.hasher.Next() {
		hashes := fw
		if canonical {
			hashes = nthash.Select(rc.Less(fw), rc, fw)
		}
		pos, hash, ok := s.sel.push(hashes)
		if !ok {
			continue
		}
		for l, lane := range split {
			if window >= lane.Len-(w-1) {
				continue
			}
			m := Minimizer{Pos: int(pos[l]), Hash: hash[l]}
			if dedup {
				if n := len(s.lanes[l]); n != 0 && s.lanes[l][n-1].Pos == m.Pos {
					continue
				}
			}
			s.lanes[l] = append(s.lanes[l], m)
		}
		window++
	}

	results := make([]LaneResult, lanes)
	for l, lane := range split {
		results[l] = LaneResult{Offset: lane.Start, Minimizers: s.lanes[l]}
	}
	s.merged = Merge(s.merged[:0], results, dedup)
	return s.merged, nil
}
