// Package canonical picks strand independent minimizers: every k-mer is represented by the
// smaller of its forward and reverse complement ntHash, with the forward strand preferred
// when the two are equal (k-mers that are their own reverse complement).
package canonical

import (
	"github.com/will-rowe/minimizers/src/minimizer"
	"github.com/will-rowe/minimizers/src/nthash"
	"github.com/will-rowe/minimizers/src/packed"
)

// Strand records which strand gave the canonical hash
type Strand uint8

const (
	// Forward means the forward hash was used
	Forward Strand = iota
	// Reverse means the reverse complement hash was used
	Reverse
)

// String satisfies the stringer interface
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Record is the canonical hash of one k-mer
type Record struct {
	Hash   uint64
	Strand Strand
}

// Of returns the canonical record for a pair of forward and reverse complement hashes
func Of(fw, rc uint64) Record {
	if rc < fw {
		return Record{Hash: rc, Strand: Reverse}
	}
	return Record{Hash: fw, Strand: Forward}
}

// Minimizer is a canonical minimizer with the strand its hash came from
type Minimizer struct {
	minimizer.Minimizer
	Strand Strand
}

// Iterator is a lazy stream of canonical records, one per k-mer
type Iterator[S packed.Sequence] struct {
	hashes *nthash.CanonicalIterator[S]
}

// NewIterator validates k and returns a canonical record stream over seq
func NewIterator[S packed.Sequence](seq S, k int) (*Iterator[S], error) {
	hashes, err := nthash.Canonical(seq, k)
	if err != nil {
		return nil, err
	}
	return &Iterator[S]{hashes: hashes}, nil
}

// Next returns the record of the next k-mer
func (it *Iterator[S]) Next() (Record, bool) {
	fw, rc, ok := it.hashes.Next()
	if !ok {
		return Record{}, false
	}
	return Of(fw, rc), true
}

// Records collects the canonical record stream of seq
func Records[S packed.Sequence](seq S, k int) ([]Record, error) {
	it, err := NewIterator(seq, k)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, nthash.NumKmers(seq.Len(), k))
	for r, ok := it.Next(); ok; r, ok = it.Next() {
		records = append(records, r)
	}
	return records, nil
}

// MinimizerIterator feeds the canonical hash stream into a minimizer.Selector.
// The selector only sees hashes; the strands of the last w k-mers are kept alongside
// so the strand of whichever k-mer wins can be reported.
type MinimizerIterator[S packed.Sequence] struct {
	records *Iterator[S]
	sel     *minimizer.Selector
	strands []Strand
	pos     int
	dedup   bool
	deduper minimizer.Deduper
}

// NewMinimizerIterator validates the parameters and returns a lazy canonical minimizer stream
func NewMinimizerIterator[S packed.Sequence](seq S, k, w int, alg minimizer.Algorithm, dedup bool) (*MinimizerIterator[S], error) {
	if err := minimizer.Validate(k, w, seq.Len()); err != nil {
		return nil, err
	}
	sel, err := minimizer.NewSelector(alg, w)
	if err != nil {
		return nil, err
	}
	records, err := NewIterator(seq, k)
	if err != nil {
		return nil, err
	}
	return &MinimizerIterator[S]{records: records, sel: sel, strands: make([]Strand, w), dedup: dedup}, nil
}

// Next returns the next canonical minimizer
func (it *MinimizerIterator[S]) Next() (Minimizer, bool) {
	w := len(it.strands)
	for r, ok := it.records.Next(); ok; r, ok = it.records.Next() {
		it.strands[it.pos%w] = r.Strand
		it.pos++
		m, ok := it.sel.Push(r.Hash)
		if !ok {
			continue
		}
		if it.dedup && !it.deduper.Keep(m) {
			continue
		}
		return Minimizer{Minimizer: m, Strand: it.strands[m.Pos%w]}, true
	}
	return Minimizer{}, false
}

// Minimizers returns the canonical minimizer of every window of seq
func Minimizers[S packed.Sequence](seq S, k, w int, alg minimizer.Algorithm) ([]Minimizer, error) {
	it, err := NewMinimizerIterator(seq, k, w, alg, false)
	if err != nil {
		return nil, err
	}
	minimizers := make([]Minimizer, 0, minimizer.NumWindows(seq.Len(), k, w))
	for m, ok := it.Next(); ok; m, ok = it.Next() {
		minimizers = append(minimizers, m)
	}
	return minimizers, nil
}

// ParallelMinimizers runs the canonical stream through the lane session.
// The lanes only carry hashes, so the strand is recovered per minimizer: the canonical
// hash came from the forward strand exactly when it equals the forward hash.
func ParallelMinimizers[S packed.Sequence](session *minimizer.Session[S], seq S, k, w, lanes int, dedup bool) ([]Minimizer, error) {
	ms, err := session.CanonicalMinimizers(seq, k, w, lanes, dedup)
	if err != nil {
		return nil, err
	}
	minimizers := make([]Minimizer, len(ms))
	for i, m := range ms {
		strand := Forward
		if m.Hash != nthash.HashKmer(seq, m.Pos, k) {
			strand = Reverse
		}
		minimizers[i] = Minimizer{Minimizer: m, Strand: strand}
	}
	return minimizers, nil
}
