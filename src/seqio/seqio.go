/*
	the seqio package contains custom types and methods for loading and preparing sequence data
*/
package seqio

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/seq/linear"

	bioseqio "github.com/biogo/biogo/io/seqio"

	"github.com/will-rowe/minimizers/src/packed"
)

// complementBases is the lookup table used during reverse complementation
var complementBases = []byte{
	'A': 'T',
	'T': 'A',
	'C': 'G',
	'G': 'C',
	'N': 'N',
}

// Sequence is the base type for a FASTA entry
type Sequence struct {
	ID  []byte
	Seq []byte
}

// Fragment is a run of unambiguous bases and where it starts in its parent sequence
type Fragment struct {
	Offset int
	Seq    packed.Seq
}

// BaseCheck is a method to convert bases to upper case and mask anything that isn't ACTG with N.
// It returns the number of masked bases.
func (Sequence *Sequence) BaseCheck() int {
	masked := 0
	for i, j := 0, len(Sequence.Seq); i < j; i++ {
		switch base := unicode.ToUpper(rune(Sequence.Seq[i])); base {
		case 'A', 'C', 'T', 'G':
			Sequence.Seq[i] = byte(base)
		default:
			Sequence.Seq[i] = byte('N')
			masked++
		}
	}
	return masked
}

// RevComplement is a method to reverse complement a base checked sequence
func (Sequence *Sequence) RevComplement() {
	for i, j := 0, len(Sequence.Seq); i < j; i++ {
		Sequence.Seq[i] = complementBases[Sequence.Seq[i]]
	}
	for i, j := 0, len(Sequence.Seq)-1; i <= j; i, j = i+1, j-1 {
		Sequence.Seq[i], Sequence.Seq[j] = Sequence.Seq[j], Sequence.Seq[i]
	}
}

// Pack is a method to 2-bit pack a base checked sequence which contains no Ns
func (Sequence *Sequence) Pack() packed.Seq {
	return packed.Pack(Sequence.Seq)
}

// Fragments is a method to split a base checked sequence at Ns, returning the packed
// runs of at least minLength bases
func (Sequence *Sequence) Fragments(minLength int) []Fragment {
	fragments := []Fragment{}
	start := 0
	for i := 0; i <= len(Sequence.Seq); i++ {
		if i < len(Sequence.Seq) && Sequence.Seq[i] != 'N' {
			continue
		}
		if i-start >= minLength && i > start {
			fragments = append(fragments, Fragment{Offset: start, Seq: packed.Pack(Sequence.Seq[start:i])})
		}
		start = i + 1
	}
	return fragments
}

// Reader streams FASTA entries from a plain or gzipped file
type Reader struct {
	scanner *bioseqio.Scanner
	current *Sequence
	closers []io.Closer
}

// NewReader returns a FASTA Reader over r
func NewReader(r io.Reader) *Reader {
	template := linear.NewSeq("", nil, alphabet.DNA)
	return &Reader{scanner: bioseqio.NewScanner(fasta.NewReader(r, template))}
}

// Open is a function to open a FASTA file for reading, decompressing it if it ends in .gz
func Open(fileName string) (*Reader, error) {
	fh, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(fileName, ".gz") {
		reader := NewReader(fh)
		reader.closers = []io.Closer{fh}
		return reader, nil
	}
	gz, err := gzip.NewReader(fh)
	if err != nil {
		fh.Close()
		return nil, fmt.Errorf("could not decompress %v: %w", fileName, err)
	}
	reader := NewReader(gz)
	reader.closers = []io.Closer{gz, fh}
	return reader, nil
}

// Next advances to the next entry, it returns false once the input is exhausted or has failed
func (reader *Reader) Next() bool {
	if !reader.scanner.Next() {
		reader.current = nil
		return false
	}
	entry, ok := reader.scanner.Seq().(*linear.Seq)
	if !ok {
		reader.current = nil
		return false
	}
	seq := make([]byte, len(entry.Seq))
	for i, letter := range entry.Seq {
		seq[i] = byte(letter)
	}
	reader.current = &Sequence{ID: []byte(entry.Name()), Seq: seq}
	return true
}

// Sequence returns the current entry
func (reader *Reader) Sequence() *Sequence {
	return reader.current
}

// Err returns the first error met while reading
func (reader *Reader) Err() error {
	return reader.scanner.Error()
}

// Close releases the underlying file
func (reader *Reader) Close() error {
	var firstErr error
	for _, closer := range reader.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReadFASTA is a function to load every entry of a FASTA file
func ReadFASTA(fileName string) ([]*Sequence, error) {
	reader, err := Open(fileName)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	sequences := []*Sequence{}
	for reader.Next() {
		sequences = append(sequences, reader.Sequence())
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("could not read %v: %w", fileName, err)
	}
	return sequences, nil
}
