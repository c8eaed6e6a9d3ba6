// Package minimizer selects one representative hash per window of w consecutive k-mer hashes.
//
// Every window algorithm reports the position of the minimal hash in the window, taking the
// leftmost position when hashes tie, so the algorithms can be swapped for one another.
package minimizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/will-rowe/minimizers/src/nthash"
	"github.com/will-rowe/minimizers/src/packed"
)

var (
	// ErrInvalidParameter is returned for unusable k, w or lane counts
	ErrInvalidParameter = nthash.ErrInvalidParameter

	// ErrUnknownAlgorithm is returned by ParseAlgorithm
	ErrUnknownAlgorithm = errors.New("unknown window algorithm")
)

// Minimizer is the minimal hash of a window and the index of its k-mer in the sequence
type Minimizer struct {
	Pos  int    `msgpack:"pos"`
	Hash uint64 `msgpack:"hash"`
}

// Position returns the index of the minimal k-mer
func (m Minimizer) Position() int {
	return m.Pos
}

// Algorithm names a sliding window minimum algorithm
type Algorithm uint8

const (
	// Naive rescans the whole window for every window
	Naive Algorithm = iota
	// Queue keeps a monotonic queue of candidates
	Queue
	// Split answers each window from the suffix minima of one block and the prefix minimum of the next
	Split
	// Rescan keeps the current minimum and only rescans once it leaves the window
	Rescan
)

// Algorithms lists every sliding window algorithm, the reference first
var Algorithms = []Algorithm{Naive, Queue, Split, Rescan}

var algorithmNames = [...]string{"naive", "queue", "split", "rescan"}

// String satisfies the stringer interface
func (a Algorithm) String() string {
	if int(a) < len(algorithmNames) {
		return algorithmNames[a]
	}
	return fmt.Sprintf("algorithm(%d)", a)
}

// ParseAlgorithm returns the algorithm for a name
func ParseAlgorithm(name string) (Algorithm, error) {
	for i, n := range algorithmNames {
		if strings.EqualFold(name, n) {
			return Algorithm(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (choose from %s)", ErrUnknownAlgorithm, name, strings.Join(algorithmNames[:], ", "))
}

// Validate checks k and w against a sequence length before any hashing starts
func Validate(k, w, n int) error {
	if w < 1 {
		return fmt.Errorf("%w: window size must be at least 1 (got %d)", ErrInvalidParameter, w)
	}
	return nthash.Validate(k, n)
}

// NumWindows returns max(0, n-k-w+2), the number of windows (and raw minimizers) in a sequence
func NumWindows(n, k, w int) int {
	if windows := n - k - w + 2; windows > 0 {
		return windows
	}
	return 0
}

// Minimizers returns the minimizer of every window of seq, one per window in window order
func Minimizers[S packed.Sequence](seq S, k, w int, alg Algorithm) ([]Minimizer, error) {
	if err := Validate(k, w, seq.Len()); err != nil {
		return nil, err
	}
	sel, err := NewSelector(alg, w)
	if err != nil {
		return nil, err
	}
	hashes, err := nthash.Forward(seq, k)
	if err != nil {
		return nil, err
	}
	minimizers := make([]Minimizer, 0, NumWindows(seq.Len(), k, w))
	for h, ok := hashes.Next(); ok; h, ok = hashes.Next() {
		if m, ok := sel.Push(h); ok {
			minimizers = append(minimizers, m)
		}
	}
	return minimizers, nil
}

// Select runs a window algorithm over an existing hash stream
func Select(alg Algorithm, w int, hashes []uint64) ([]Minimizer, error) {
	sel, err := NewSelector(alg, w)
	if err != nil {
		return nil, err
	}
	windows := len(hashes) - w + 1
	if windows < 0 {
		windows = 0
	}
	minimizers := make([]Minimizer, 0, windows)
	for _, h := range hashes {
		if m, ok := sel.Push(h); ok {
			minimizers = append(minimizers, m)
		}
	}
	return minimizers, nil
}

// Iterator is a lazy minimizer stream, it can be abandoned at any point
type Iterator[S packed.Sequence] struct {
	hashes  *nthash.Iterator[S]
	sel     *Selector
	dedup   bool
	deduper Deduper
}

// NewIterator validates the parameters and returns a lazy minimizer stream over seq.
// With dedup set, consecutive windows sharing a minimizer are reported once.
func NewIterator[S packed.Sequence](seq S, k, w int, alg Algorithm, dedup bool) (*Iterator[S], error) {
	if err := Validate(k, w, seq.Len()); err != nil {
		return nil, err
	}
	sel, err := NewSelector(alg, w)
	if err != nil {
		return nil, err
	}
	hashes, err := nthash.Forward(seq, k)
	if err != nil {
		return nil, err
	}
	return &Iterator[S]{hashes: hashes, sel: sel, dedup: dedup}, nil
}

// Next returns the next minimizer
func (it *Iterator[S]) Next() (Minimizer, bool) {
	for h, ok := it.hashes.Next(); ok; h, ok = it.hashes.Next() {
		m, ok := it.sel.Push(h)
		if !ok {
			continue
		}
		if it.dedup && !it.deduper.Keep(m) {
			continue
		}
		return m, true
	}
	return Minimizer{}, false
}
