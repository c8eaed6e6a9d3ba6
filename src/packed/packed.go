// Package packed contains the 2-bit encoded nucleotide sequences that the hashing and minimizer packages read from.
package packed

import (
	"errors"
	"fmt"
	"math/rand"
)

const (
	// BitsPerBase is the fixed width of a base in a packed buffer
	BitsPerBase = 2

	// BasesPerByte is the number of bases held by one byte of a packed buffer
	BasesPerByte = 8 / BitsPerBase

	// MaxRun is the largest number of bases Run can return in one word
	MaxRun = 64 / BitsPerBase

	baseMask = 1<<BitsPerBase - 1
)

// ErrOutOfRange is returned when a packed view does not fit its buffer
var ErrOutOfRange = errors.New("packed sequence out of range")

// letters decodes the 2-bit codes, the order follows Encode
var letters = [4]byte{'A', 'C', 'T', 'G'}

// Sequence is satisfied by anything that can hand out 2-bit base codes by index
type Sequence interface {
	Len() int
	Base(i int) uint8
}

// Runner is a Sequence that can also hand out up to MaxRun bases in one word, base i in the lowest bits
type Runner interface {
	Sequence
	Run(i, n int) uint64
}

// Encode returns the 2-bit code for a nucleotide letter (A=0, C=1, T=2, G=3, either case).
// Letters outside ACGT are not rejected, they pack to whatever the low bits give (N packs as G).
func Encode(letter byte) uint8 {
	return (letter >> 1) & baseMask
}

// Decode returns the upper case letter for a 2-bit code
func Decode(code uint8) byte {
	return letters[code&baseMask]
}

// Complement returns the code of the complementary base
func Complement(code uint8) uint8 {
	return code ^ 2
}

// Seq is an immutable view of a bit-packed base buffer.
//
// Base i of the view lives at base index offset+i of data, where base index j
// occupies bits 2*(j%4) and 2*(j%4)+1 of byte j/4 (least significant pair first).
// The offset is always smaller than BasesPerByte, so the bit offset of the first
// base is always smaller than a byte.
type Seq struct {
	data   []byte
	offset int
	length int
}

// New wraps an existing buffer, bits outside [offset, offset+length) are never read
func New(data []byte, offset, length int) (Seq, error) {
	if offset < 0 || offset >= BasesPerByte {
		return Seq{}, fmt.Errorf("%w: base offset %d is not within a byte", ErrOutOfRange, offset)
	}
	if length < 0 {
		return Seq{}, fmt.Errorf("%w: negative length %d", ErrOutOfRange, length)
	}
	if need := (offset + length + BasesPerByte - 1) / BasesPerByte; need > len(data) {
		return Seq{}, fmt.Errorf("%w: %d bases at offset %d need %d bytes, buffer has %d", ErrOutOfRange, length, offset, need, len(data))
	}
	return Seq{data: data, offset: offset, length: length}, nil
}

// Pack encodes a slice of nucleotide letters into a new packed sequence
func Pack(seq []byte) Seq {
	data := make([]byte, (len(seq)+BasesPerByte-1)/BasesPerByte)
	for i, letter := range seq {
		data[i/BasesPerByte] |= Encode(letter) << (BitsPerBase * uint(i%BasesPerByte))
	}
	return Seq{data: data, length: len(seq)}
}

// Random returns a uniformly random packed sequence of n bases.
// The unused bits of the final byte are left random.
func Random(n int, rng *rand.Rand) Seq {
	data := make([]byte, (n+BasesPerByte-1)/BasesPerByte)
	rng.Read(data)
	return Seq{data: data, length: n}
}

// Len returns the number of bases in the view
func (s Seq) Len() int {
	return s.length
}

// Offset returns the base offset of the view within the first byte of its buffer
func (s Seq) Offset() int {
	return s.offset
}

// Base returns the 2-bit code of base i
func (s Seq) Base(i int) uint8 {
	if uint(i) >= uint(s.length) {
		panic(fmt.Sprintf("packed: base index %d out of range [0:%d]", i, s.length))
	}
	j := s.offset + i
	return (s.data[j/BasesPerByte] >> (BitsPerBase * uint(j%BasesPerByte))) & baseMask
}

// Run returns n (<= MaxRun) consecutive bases starting at i, base i in the lowest bits
func (s Seq) Run(i, n int) uint64 {
	if n < 0 || n > MaxRun || i < 0 || i+n > s.length {
		panic(fmt.Sprintf("packed: run [%d:%d] out of range [0:%d]", i, i+n, s.length))
	}
	if n == 0 {
		return 0
	}
	bit := BitsPerBase * (s.offset + i)
	first := bit / 8
	last := (bit + BitsPerBase*n - 1) / 8
	shift := uint(bit % 8)

	var word uint64
	for b := 0; b < 8 && first+b <= last; b++ {
		word |= uint64(s.data[first+b]) << (8 * uint(b))
	}
	word >>= shift

	// a run of 32 bases that does not start on a byte boundary spills into a ninth byte
	if last-first == 8 {
		word |= uint64(s.data[last]) << (64 - shift)
	}
	if n < MaxRun {
		word &= 1<<(BitsPerBase*uint(n)) - 1
	}
	return word
}

// Slice returns the view of bases [start, end), sharing the buffer
func (s Seq) Slice(start, end int) Seq {
	if start < 0 || end < start || end > s.length {
		panic(fmt.Sprintf("packed: slice [%d:%d] out of range [0:%d]", start, end, s.length))
	}
	j := s.offset + start
	return Seq{data: s.data[j/BasesPerByte:], offset: j % BasesPerByte, length: end - start}
}

// ReverseComplement returns a new packed sequence holding the reverse complement
func (s Seq) ReverseComplement() Seq {
	data := make([]byte, (s.length+BasesPerByte-1)/BasesPerByte)
	for i := 0; i < s.length; i++ {
		code := Complement(s.Base(s.length - 1 - i))
		data[i/BasesPerByte] |= code << (BitsPerBase * uint(i%BasesPerByte))
	}
	return Seq{data: data, length: s.length}
}

// Unpack decodes the view to upper case letters
func (s Seq) Unpack() []byte {
	seq := make([]byte, s.length)
	for i := range seq {
		seq[i] = Decode(s.Base(i))
	}
	return seq
}

// String satisfies the stringer interface
func (s Seq) String() string {
	return string(s.Unpack())
}

// ASCII is a sequence held one letter per byte, it is read with the same encoding as Seq
type ASCII []byte

// Len returns the number of bases
func (a ASCII) Len() int {
	return len(a)
}

// Base returns the 2-bit code of base i
func (a ASCII) Base(i int) uint8 {
	return Encode(a[i])
}
