package nthash

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/will-rowe/minimizers/src/misc"
	"github.com/will-rowe/minimizers/src/packed"
)

var (
	shortSeq   = []byte("ACGTACGTAC")
	exampleSeq = []byte("ACGTACGGTT")
	kmerSizes  = []int{1, 2, 3, 5, 11, 21, 31, 32, 33, 63, 64}
	laneCounts = []int{1, 2, 3, 4, 5, 8}
)

// randomSeq is a helper function for getting a reproducible packed sequence
func randomSeq(n int, seed int64) packed.Seq {
	return packed.Random(n, rand.New(rand.NewSource(seed)))
}

func TestIncrementalMatchesDirect(t *testing.T) {
	seq := packed.ASCII(shortSeq)
	hashes, err := Hashes(seq, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != len(shortSeq)-4+1 {
		t.Fatalf("expected %d hashes, got %d", len(shortSeq)-4+1, len(hashes))
	}
	for i, h := range hashes {
		if want := HashKmer(seq, i, 4); h != want {
			t.Fatalf("rolling hash at %d (%x) does not match direct hash (%x)", i, h, want)
		}
	}
	// ACGT repeats, so k-mers 0 and 4 are the same
	if hashes[0] != hashes[4] {
		t.Fatal("identical k-mers hashed differently")
	}
}

func TestForwardAllK(t *testing.T) {
	seq := randomSeq(300, 1)
	for _, k := range kmerSizes {
		hashes, err := Hashes(seq, k)
		if err != nil {
			t.Fatal(err)
		}
		for i, h := range hashes {
			if want := HashKmer(seq, i, k); h != want {
				t.Fatalf("k=%d: rolling hash at %d does not match direct hash", k, i)
			}
		}
		// the ascii view of the same bases hashes the same
		ascii, err := Hashes(packed.ASCII(seq.Unpack()), k)
		if err != nil {
			t.Fatal(err)
		}
		if !misc.SliceEqual(hashes, ascii) {
			t.Fatalf("k=%d: packed and ascii sequences hashed differently", k)
		}
	}
}

func TestCanonical(t *testing.T) {
	seq := randomSeq(257, 2)
	rc := seq.ReverseComplement()
	n := seq.Len()
	for _, k := range kmerSizes {
		it, err := Canonical(seq, k)
		if err != nil {
			t.Fatal(err)
		}
		if it.Len() != n-k+1 {
			t.Fatalf("k=%d: expected %d hash pairs, got %d", k, n-k+1, it.Len())
		}
		p := 0
		for fw, rv, ok := it.Next(); ok; fw, rv, ok = it.Next() {
			if fw != HashKmer(seq, p, k) {
				t.Fatalf("k=%d: forward hash at %d does not match direct hash", k, p)
			}
			if rv != HashKmerRC(seq, p, k) {
				t.Fatalf("k=%d: reverse hash at %d does not match direct hash", k, p)
			}
			// the reverse hash is the forward hash of the mirrored k-mer on the other strand
			if rv != HashKmer(rc, n-k-p, k) {
				t.Fatalf("k=%d: reverse hash at %d is not the forward hash of the reverse complement", k, p)
			}
			p++
		}
		if p != n-k+1 {
			t.Fatalf("k=%d: stream stopped after %d pairs", k, p)
		}
	}
}

func TestValidate(t *testing.T) {
	seq := packed.ASCII(shortSeq)
	for _, k := range []int{0, -1, MaxK + 1, len(shortSeq) + 1} {
		if _, err := Forward(seq, k); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("k=%d should be rejected, got %v", k, err)
		}
		if _, err := Canonical(seq, k); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("k=%d should be rejected by the canonical hasher, got %v", k, err)
		}
	}
	if _, err := Forward(seq, len(shortSeq)); err != nil {
		t.Fatalf("k equal to the sequence length should be allowed: %v", err)
	}
	if NumKmers(3, 5) != 0 || NumKmers(5, 5) != 1 {
		t.Fatal("NumKmers is wrong")
	}
}

func TestBuffer(t *testing.T) {
	seq := randomSeq(1000, 3)
	buf := NewBuffer()
	for _, k := range kmerSizes {
		want, err := Hashes(seq, k)
		if err != nil {
			t.Fatal(err)
		}
		buf.Reset()
		got, err := Fill(buf, seq, k)
		if err != nil {
			t.Fatal(err)
		}
		if !misc.SliceEqual(got, want) {
			t.Fatalf("k=%d: buffered hashes differ from the scalar stream", k)
		}
	}
	if _, err := Fill(buf, seq, 5); !errors.Is(err, ErrStale) {
		t.Fatalf("reuse without reset should fail, got %v", err)
	}
	buf.Reset()
	if _, err := Fill(buf, seq.Slice(0, 3), 5); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("short sequence should be rejected, got %v", err)
	}
	// a rejected input does not leave the buffer stale
	if _, err := Fill(buf, seq, 5); err != nil {
		t.Fatal(err)
	}
}

func TestSplitLanes(t *testing.T) {
	for kmers := 0; kmers < 40; kmers++ {
		for overlap := 0; overlap < 6; overlap++ {
			for _, lanes := range laneCounts {
				split := SplitLanes(kmers, overlap, lanes)
				if len(split) != lanes {
					t.Fatalf("expected %d lanes, got %d", lanes, len(split))
				}
				units := kmers - overlap
				if units < 0 {
					units = 0
				}
				// every unit (a run of overlap+1 k-mers) is owned by exactly one lane
				owned := make([]int, units)
				prev := -1
				for _, lane := range split {
					if lane.Len == 0 {
						continue
					}
					if lane.End() > kmers {
						t.Fatalf("lane %+v runs past %d k-mers", lane, kmers)
					}
					if prev >= 0 && prev-lane.Start != overlap {
						t.Fatalf("kmers=%d overlap=%d lanes=%d: adjacent lanes share %d k-mers", kmers, overlap, lanes, prev-lane.Start)
					}
					prev = lane.End()
					for u := lane.Start; u < lane.End()-overlap; u++ {
						owned[u]++
					}
				}
				for u, count := range owned {
					if count != 1 {
						t.Fatalf("kmers=%d overlap=%d lanes=%d: unit %d owned by %d lanes", kmers, overlap, lanes, u, count)
					}
				}
			}
		}
	}
}

func TestLaneHasher(t *testing.T) {
	seq := randomSeq(523, 4)
	h := NewLaneHasher[packed.Seq]()
	for _, k := range kmerSizes {
		want, err := Hashes(seq, k)
		if err != nil {
			t.Fatal(err)
		}
		for _, lanes := range laneCounts {
			h.Reset()
			got, err := h.Hashes(seq, k, lanes)
			if err != nil {
				t.Fatal(err)
			}
			if !misc.SliceEqual(got, want) {
				t.Fatalf("k=%d lanes=%d: lane hashes differ from the scalar stream", k, lanes)
			}
		}
	}
	if _, err := h.Hashes(seq, 5, 2); !errors.Is(err, ErrStale) {
		t.Fatalf("reuse without reset should fail, got %v", err)
	}
	h.Reset()
	if _, err := h.Hashes(seq, 5, MaxLanes+1); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("too many lanes should be rejected, got %v", err)
	}
}

// test that buffered run reads work from every sub-byte offset and for sequences without runs
func TestLaneHasherOffsets(t *testing.T) {
	full := randomSeq(301, 8)
	packedHasher := NewLaneHasher[packed.Seq]()
	asciiHasher := NewLaneHasher[packed.ASCII]()
	for start := 0; start < 4; start++ {
		seq := full.Slice(start, full.Len()-start)
		ascii := packed.ASCII(seq.Unpack())
		for _, k := range []int{1, 7, 31, 32, 33, 64} {
			want, err := Hashes(seq, k)
			if err != nil {
				t.Fatal(err)
			}
			for _, lanes := range laneCounts {
				packedHasher.Reset()
				got, err := packedHasher.Hashes(seq, k, lanes)
				if err != nil {
					t.Fatal(err)
				}
				if !misc.SliceEqual(got, want) {
					t.Fatalf("offset=%d k=%d lanes=%d: packed lane hashes differ", start, k, lanes)
				}
				asciiHasher.Reset()
				got, err = asciiHasher.Hashes(ascii, k, lanes)
				if err != nil {
					t.Fatal(err)
				}
				if !misc.SliceEqual(got, want) {
					t.Fatalf("offset=%d k=%d lanes=%d: ASCII lane hashes differ", start, k, lanes)
				}
			}
		}
	}
}

func TestLaneHasherCanonical(t *testing.T) {
	seq := randomSeq(200, 5)
	k := 15
	h := NewLaneHasher[packed.Seq]()
	lanes := SplitLanes(NumKmers(seq.Len(), k), 3, 4)
	if err := h.Start(seq, k, lanes, true); err != nil {
		t.Fatal(err)
	}
	for fw, rv, ok := h.Next(); ok; fw, rv, ok = h.Next() {
		step := h.t - 1
		for l, lane := range h.Lanes() {
			if step >= lane.Len {
				continue
			}
			p := lane.Start + step
			if fw[l] != HashKmer(seq, p, k) || rv[l] != HashKmerRC(seq, p, k) {
				t.Fatalf("lane %d disagrees with the direct hashes at k-mer %d", l, p)
			}
		}
	}
}

func TestVec(t *testing.T) {
	a := Splat(3)
	b := Vec{1, 3, 5, 7, 0, 3, 9, 2}
	m := a.Less(b)
	if m != (Mask{false, false, true, true, false, false, true, false}) {
		t.Fatalf("unexpected mask %v", m)
	}
	if got := Select(b.LessEqual(a), b, a); got != (Vec{1, 3, 3, 3, 0, 3, 3, 2}) {
		t.Fatalf("lane-wise minimum is wrong: %v", got)
	}
	if got := a.RotateLeft(63).RotateLeft(1); got != a {
		t.Fatal("rotating by a full word should be a no-op")
	}
	if got := a.Xor(a); got != (Vec{}) {
		t.Fatal("x ^ x should be zero")
	}
}

func TestExternal(t *testing.T) {
	seq := randomSeq(500, 6).Unpack()
	for _, k := range []int{3, 7, 21} {
		ext, err := External(seq, k, false)
		if err != nil {
			t.Fatal(err)
		}
		own, err := Hashes(packed.ASCII(seq), k)
		if err != nil {
			t.Fatal(err)
		}
		if !misc.SliceEqual(ext, own) {
			t.Fatalf("k=%d: hashes differ from github.com/will-rowe/ntHash", k)
		}
	}
	if _, err := External(exampleSeq, 0, false); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("k=0 should be rejected, got %v", err)
	}
}

// test the canonical mode of github.com/will-rowe/ntHash against min(forward, reverse complement)
func TestExternalCanonical(t *testing.T) {
	seq := randomSeq(500, 7)
	ascii := seq.Unpack()
	for _, k := range []int{3, 7, 21, 31} {
		ext, err := External(ascii, k, true)
		if err != nil {
			t.Fatal(err)
		}
		if len(ext) != NumKmers(seq.Len(), k) {
			t.Fatalf("k=%d: got %d canonical hashes", k, len(ext))
		}
		for p, h := range ext {
			fw, rc := HashKmer(seq, p, k), HashKmerRC(seq, p, k)
			want := fw
			if rc < fw {
				want = rc
			}
			if h != want {
				t.Fatalf("k=%d pos %d: canonical hash differs from github.com/will-rowe/ntHash", k, p)
			}
		}
	}
}

func BenchmarkForward(b *testing.B) {
	seq := randomSeq(1<<16, 1)
	for n := 0; n < b.N; n++ {
		if _, err := Hashes(seq, 21); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBuffer(b *testing.B) {
	seq := randomSeq(1<<16, 1)
	buf := NewBuffer()
	for n := 0; n < b.N; n++ {
		buf.Reset()
		if _, err := Fill(buf, seq, 21); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLanes(b *testing.B) {
	seq := randomSeq(1<<16, 1)
	h := NewLaneHasher[packed.Seq]()
	for n := 0; n < b.N; n++ {
		h.Reset()
		if _, err := h.Hashes(seq, 21, MaxLanes); err != nil {
			b.Fatal(err)
		}
	}
}
