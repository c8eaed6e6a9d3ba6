package minimizer

import (
	"fmt"
)

// Selector consumes a hash stream one value at a time and reports the minimizer of each
// window once w values have been seen. The algorithm is picked once, at construction, and
// Push dispatches on it with a switch so the per-variant code stays concrete.
//
// A Selector is not safe for concurrent use and must be Reset before a new stream.
type Selector struct {
	alg    Algorithm
	w      int
	naive  naive
	queue  queue
	split  split
	rescan rescan
}

// NewSelector returns a Selector for windows of w hashes
func NewSelector(alg Algorithm, w int) (*Selector, error) {
	if w < 1 {
		return nil, fmt.Errorf("%w: window size must be at least 1 (got %d)", ErrInvalidParameter, w)
	}
	sel := &Selector{alg: alg, w: w}
	switch alg {
	case Naive:
		sel.naive.ring = make([]uint64, w)
	case Queue:
		sel.queue.ring = make([]Minimizer, w)
	case Split:
		sel.split.block = make([]uint64, w)
		sel.split.suffix = make([]Minimizer, w)
	case Rescan:
		sel.rescan.ring = make([]uint64, w)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownAlgorithm, alg)
	}
	return sel, nil
}

// Algorithm returns the algorithm in use
func (sel *Selector) Algorithm() Algorithm {
	return sel.alg
}

// Reset clears the window so a new stream can be pushed
func (sel *Selector) Reset() {
	sel.naive.pos = 0
	sel.queue.pos, sel.queue.head, sel.queue.size = 0, 0, 0
	sel.split.pos = 0
	sel.rescan.pos = 0
}

// Push adds the next hash and returns the minimizer of the window it completes
func (sel *Selector) Push(h uint64) (Minimizer, bool) {
	switch sel.alg {
	case Naive:
		return sel.naive.push(h)
	case Queue:
		return sel.queue.push(h)
	case Split:
		return sel.split.push(h)
	default:
		return sel.rescan.push(h)
	}
}

// minOf scans ring positions [from, to] for the leftmost minimum
func minOf(ring []uint64, from, to int) Minimizer {
	w := len(ring)
	best := Minimizer{Pos: from, Hash: ring[from%w]}
	for p := from + 1; p <= to; p++ {
		if h := ring[p%w]; h < best.Hash {
			best = Minimizer{Pos: p, Hash: h}
		}
	}
	return best
}

// naive rescans the whole window every step
type naive struct {
	ring []uint64
	pos  int
}

func (n *naive) push(h uint64) (Minimizer, bool) {
	w := len(n.ring)
	n.ring[n.pos%w] = h
	n.pos++
	if n.pos < w {
		return Minimizer{}, false
	}
	return minOf(n.ring, n.pos-w, n.pos-1), true
}

// queue is a monotonic queue held in a ring: hashes strictly increase from front to back,
// the front is the window minimum. Equal hashes are kept, so the front stays leftmost.
type queue struct {
	ring []Minimizer
	head int
	size int
	pos  int
}

func (q *queue) push(h uint64) (Minimizer, bool) {
	w := len(q.ring)
	j := q.pos
	q.pos++

	// the front leaves the window
	if q.size > 0 && q.ring[q.head].Pos <= j-w {
		q.head = (q.head + 1) % w
		q.size--
	}

	// candidates that can never be a minimum again
	for q.size > 0 && q.ring[(q.head+q.size-1)%w].Hash > h {
		q.size--
	}
	q.ring[(q.head+q.size)%w] = Minimizer{Pos: j, Hash: h}
	q.size++

	if j < w-1 {
		return Minimizer{}, false
	}
	return q.ring[q.head], true
}

// split cuts the stream into blocks of w hashes. A window either is a block, or covers a
// suffix of one block and a prefix of the next, so it is the smaller of one suffix minimum
// (computed when its block completes) and the running prefix minimum.
type split struct {
	block  []uint64
	suffix []Minimizer
	prefix Minimizer
	pos    int
}

func (s *split) push(h uint64) (Minimizer, bool) {
	w := len(s.block)
	j := s.pos
	s.pos++
	i := j % w
	s.block[i] = h

	if i == 0 || h < s.prefix.Hash {
		s.prefix = Minimizer{Pos: j, Hash: h}
	}

	if i == w-1 {
		start := j - i
		s.suffix[i] = Minimizer{Pos: j, Hash: h}
		for x := i - 1; x >= 0; x-- {
			if s.block[x] <= s.suffix[x+1].Hash {
				s.suffix[x] = Minimizer{Pos: start + x, Hash: s.block[x]}
			} else {
				s.suffix[x] = s.suffix[x+1]
			}
		}
	}

	if j < w-1 {
		return Minimizer{}, false
	}
	left := s.suffix[(j+1)%w]
	if s.prefix.Hash < left.Hash {
		return s.prefix, true
	}
	return left, true
}

// rescan keeps the current minimum and only rescans once it drops out of the window
type rescan struct {
	ring []uint64
	min  Minimizer
	pos  int
}

func (r *rescan) push(h uint64) (Minimizer, bool) {
	w := len(r.ring)
	j := r.pos
	r.pos++
	r.ring[j%w] = h

	switch {
	case j == 0 || h < r.min.Hash:
		r.min = Minimizer{Pos: j, Hash: h}
	case r.min.Pos <= j-w:
		r.min = minOf(r.ring, j-w+1, j)
	}

	if j < w-1 {
		return Minimizer{}, false
	}
	return r.min, true
}

// Jumping reports the leftmost minimum of each complete, non-overlapping block of w hashes.
// Its output is not a sliding window stream and must not be mixed with one.
func Jumping(w int, hashes []uint64) ([]Minimizer, error) {
	if w < 1 {
		return nil, fmt.Errorf("%w: window size must be at least 1 (got %d)", ErrInvalidParameter, w)
	}
	minimizers := make([]Minimizer, 0, len(hashes)/w)
	for start := 0; start+w <= len(hashes); start += w {
		best := Minimizer{Pos: start, Hash: hashes[start]}
		for p := start + 1; p < start+w; p++ {
			if hashes[p] < best.Hash {
				best = Minimizer{Pos: p, Hash: hashes[p]}
			}
		}
		minimizers = append(minimizers, best)
	}
	return minimizers, nil
}
