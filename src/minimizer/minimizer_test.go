package minimizer

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/will-rowe/minimizers/src/misc"
	"github.com/will-rowe/minimizers/src/nthash"
	"github.com/will-rowe/minimizers/src/packed"
)

var (
	exampleSeq  = []byte("ACGTACGGTT")
	kmerSizes   = []int{1, 3, 5, 11, 21, 31}
	windowSizes = []int{1, 2, 3, 4, 7, 11, 19}
	laneCounts  = []int{1, 2, 3, 4, 5, 8}
)

// randomSeq is a helper function for getting a reproducible packed sequence
func randomSeq(n int, seed int64) packed.Seq {
	return packed.Random(n, rand.New(rand.NewSource(seed)))
}

// checkAgreement runs every sliding window path over seq and compares it to the naive reference
func checkAgreement(t *testing.T, seq packed.Seq, k, w int) {
	t.Helper()
	ref, err := Minimizers(seq, k, w, Naive)
	if err != nil {
		t.Fatal(err)
	}
	if len(ref) != NumWindows(seq.Len(), k, w) {
		t.Fatalf("k=%d w=%d: expected %d windows, got %d", k, w, NumWindows(seq.Len(), k, w), len(ref))
	}
	for i, m := range ref {
		if m.Pos < i || m.Pos >= i+w {
			t.Fatalf("k=%d w=%d: minimizer %d at %d is outside its window", k, w, i, m.Pos)
		}
	}
	for _, alg := range Algorithms[1:] {
		got, err := Minimizers(seq, k, w, alg)
		if err != nil {
			t.Fatal(err)
		}
		if !misc.SliceEqual(got, ref) {
			t.Fatalf("k=%d w=%d: %v disagrees with the naive reference", k, w, alg)
		}
	}
	deduped := Dedup(append([]Minimizer(nil), ref...))
	session := NewSession[packed.Seq]()
	for _, lanes := range laneCounts {
		session.Reset()
		got, err := session.Minimizers(seq, k, w, lanes, false)
		if err != nil {
			t.Fatal(err)
		}
		if !misc.SliceEqual(got, ref) {
			t.Fatalf("k=%d w=%d lanes=%d: merged lanes disagree with the scalar path", k, w, lanes)
		}
		session.Reset()
		got, err = session.Minimizers(seq, k, w, lanes, true)
		if err != nil {
			t.Fatal(err)
		}
		if !misc.SliceEqual(got, deduped) {
			t.Fatalf("k=%d w=%d lanes=%d: deduplicated lanes disagree with the scalar path", k, w, lanes)
		}
	}
}

func TestWorkedExample(t *testing.T) {
	seq := packed.Pack(exampleSeq)
	checkAgreement(t, seq, 3, 2)
	ms, err := Minimizers(packed.ASCII(exampleSeq), 3, 2, Naive)
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 7 {
		t.Fatalf("expected 7 windows, got %d", len(ms))
	}
	hashes, err := nthash.Hashes(packed.ASCII(exampleSeq), 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range ms {
		want := Minimizer{Pos: i, Hash: hashes[i]}
		if hashes[i+1] < hashes[i] {
			want = Minimizer{Pos: i + 1, Hash: hashes[i+1]}
		}
		if m != want {
			t.Fatalf("window %d: got %+v, expected %+v", i, m, want)
		}
	}
}

func TestAlgorithmsAgree(t *testing.T) {
	seq := randomSeq(700, 1)
	for _, k := range kmerSizes {
		for _, w := range windowSizes {
			checkAgreement(t, seq, k, w)
		}
	}
	// short sequences, down to a single window and no windows at all
	for n := 1; n < 40; n++ {
		seq := randomSeq(n, int64(n))
		for _, k := range []int{1, 2, 5} {
			for _, w := range []int{1, 3, 8} {
				if k <= n {
					checkAgreement(t, seq, k, w)
				}
			}
		}
	}
}

func TestAllSameBase(t *testing.T) {
	seq := packed.Pack(bytes.Repeat([]byte("A"), 97))
	for _, w := range windowSizes {
		checkAgreement(t, seq, 7, w)
		ms, err := Minimizers(seq, 7, w, Queue)
		if err != nil {
			t.Fatal(err)
		}
		// every window ties, so the leftmost k-mer of the window wins
		for i, m := range ms {
			if m.Pos != i {
				t.Fatalf("w=%d: window %d picked %d, expected the leftmost k-mer", w, i, m.Pos)
			}
		}
	}
}

func TestMonotonicStreams(t *testing.T) {
	increasing := make([]uint64, 100)
	decreasing := make([]uint64, 100)
	ties := make([]uint64, 100)
	for i := range increasing {
		increasing[i] = uint64(i)
		decreasing[i] = uint64(1000 - i)
		ties[i] = uint64(i / 3 % 4)
	}
	for _, w := range windowSizes {
		ref := map[string][]Minimizer{}
		for _, alg := range Algorithms {
			for name, hashes := range map[string][]uint64{"increasing": increasing, "decreasing": decreasing, "ties": ties} {
				got, err := Select(alg, w, hashes)
				if err != nil {
					t.Fatal(err)
				}
				if len(got) != len(hashes)-w+1 {
					t.Fatalf("%s w=%d %v: expected %d windows, got %d", name, w, alg, len(hashes)-w+1, len(got))
				}
				if alg == Naive {
					ref[name] = got
				} else if !misc.SliceEqual(got, ref[name]) {
					t.Fatalf("%s w=%d: %v disagrees with the naive reference", name, w, alg)
				}
				for i, m := range got {
					switch name {
					case "increasing":
						if m.Pos != i {
							t.Fatalf("increasing w=%d %v: window %d picked %d", w, alg, i, m.Pos)
						}
					case "decreasing":
						if m.Pos != i+w-1 {
							t.Fatalf("decreasing w=%d %v: window %d picked %d", w, alg, i, m.Pos)
						}
					}
				}
			}
		}
	}
}

// test the lockstep lane selector and the merge on monotonic and tied streams, each lane
// holding a consecutive slice of one global stream like the session lays them out
func TestLaneSplitMonotonic(t *testing.T) {
	per := 20
	for _, w := range windowSizes {
		length := nthash.MaxLanes*per + w - 1
		increasing := make([]uint64, length)
		ties := make([]uint64, length)
		for i := range increasing {
			increasing[i] = uint64(i)
			ties[i] = uint64(i / 3 % 4)
		}
		for name, global := range map[string][]uint64{"increasing": increasing, "ties": ties} {
			want, err := Select(Naive, w, global)
			if err != nil {
				t.Fatal(err)
			}

			var sel laneSplit
			sel.reset(w)
			results := make([]LaneResult, nthash.MaxLanes)
			for l := range results {
				results[l].Offset = l * per
			}
			for step := 0; step < per+w-1; step++ {
				var v nthash.Vec
				for l := range v {
					v[l] = global[l*per+step]
				}
				pos, hash, ok := sel.push(v)
				if !ok {
					continue
				}
				for l := range results {
					results[l].Minimizers = append(results[l].Minimizers, Minimizer{Pos: int(pos[l]), Hash: hash[l]})
				}
			}
			for l, result := range results {
				laneWant, err := Select(Naive, w, global[l*per:l*per+per+w-1])
				if err != nil {
					t.Fatal(err)
				}
				if !misc.SliceEqual(result.Minimizers, laneWant) {
					t.Fatalf("%s w=%d lane %d: lane selector disagrees with naive", name, w, l)
				}
			}

			if got := Merge(nil, results, false); !misc.SliceEqual(got, want) {
				t.Fatalf("%s w=%d: merged lanes disagree with the global stream", name, w)
			}
			deduped := Dedup(append([]Minimizer(nil), want...))
			if got := Merge(nil, results, true); !misc.SliceEqual(got, deduped) {
				t.Fatalf("%s w=%d: deduplicated merge disagrees with Dedup", name, w)
			}
			if name == "increasing" && len(deduped) != len(want) {
				t.Fatalf("w=%d: a strictly increasing stream has no repeated minimizers", w)
			}
		}
	}
}

func TestDedup(t *testing.T) {
	seq := randomSeq(2000, 2)
	raw, err := Minimizers(seq, 21, 11, Rescan)
	if err != nil {
		t.Fatal(err)
	}
	once := Dedup(append([]Minimizer(nil), raw...))
	if len(once) > len(raw) || len(once) == 0 {
		t.Fatalf("deduplicated length %d for raw length %d", len(once), len(raw))
	}
	for i := 1; i < len(once); i++ {
		if once[i].Pos <= once[i-1].Pos {
			t.Fatalf("deduplicated positions are not strictly increasing at %d", i)
		}
	}
	twice := Dedup(append([]Minimizer(nil), once...))
	if !misc.SliceEqual(once, twice) {
		t.Fatal("dedup is not idempotent")
	}
	if got := Dedup[Minimizer](nil); len(got) != 0 {
		t.Fatal("dedup of nothing should be nothing")
	}
}

func TestIterator(t *testing.T) {
	seq := randomSeq(500, 3)
	for _, alg := range Algorithms {
		for _, dedup := range []bool{false, true} {
			want, err := Minimizers(seq, 15, 9, Naive)
			if err != nil {
				t.Fatal(err)
			}
			if dedup {
				want = Dedup(want)
			}
			it, err := NewIterator(seq, 15, 9, alg, dedup)
			if err != nil {
				t.Fatal(err)
			}
			var got []Minimizer
			for m, ok := it.Next(); ok; m, ok = it.Next() {
				got = append(got, m)
			}
			if !misc.SliceEqual(got, want) {
				t.Fatalf("%v dedup=%v: iterator disagrees with the eager path", alg, dedup)
			}
			if _, ok := it.Next(); ok {
				t.Fatal("exhausted iterator should stay exhausted")
			}
		}
	}
}

func TestJumping(t *testing.T) {
	hashes := []uint64{5, 3, 3, 9, 1, 4, 2, 2, 8, 7}
	got, err := Jumping(3, hashes)
	if err != nil {
		t.Fatal(err)
	}
	want := []Minimizer{{Pos: 1, Hash: 3}, {Pos: 4, Hash: 1}, {Pos: 6, Hash: 2}}
	if !misc.SliceEqual(got, want) {
		t.Fatalf("got %v, expected %v", got, want)
	}
	if _, err := Jumping(0, hashes); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("w=0 should be rejected, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	lanes := []LaneResult{
		{Offset: 0, Minimizers: []Minimizer{{Pos: 1, Hash: 4}, {Pos: 3, Hash: 2}}},
		{Offset: 2, Minimizers: []Minimizer{{Pos: 1, Hash: 2}, {Pos: 2, Hash: 7}}},
		{Offset: 9},
	}
	raw := Merge(nil, lanes, false)
	if want := []Minimizer{{1, 4}, {3, 2}, {3, 2}, {4, 7}}; !misc.SliceEqual(raw, want) {
		t.Fatalf("raw merge %v, expected %v", raw, want)
	}
	deduped := Merge(nil, lanes, true)
	if want := []Minimizer{{1, 4}, {3, 2}, {4, 7}}; !misc.SliceEqual(deduped, want) {
		t.Fatalf("deduplicated merge %v, expected %v", deduped, want)
	}
}

func TestValidate(t *testing.T) {
	seq := packed.ASCII(exampleSeq)
	cases := []struct{ k, w int }{{0, 2}, {3, 0}, {11, 2}, {nthash.MaxK + 1, 2}}
	for _, c := range cases {
		if _, err := Minimizers(seq, c.k, c.w, Queue); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("k=%d w=%d should be rejected, got %v", c.k, c.w, err)
		}
		if _, err := NewIterator(seq, c.k, c.w, Split, false); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("k=%d w=%d should be rejected by the iterator, got %v", c.k, c.w, err)
		}
	}
	// a sequence shorter than one window is valid and has no minimizers
	ms, err := Minimizers(seq, 5, 7, Split)
	if err != nil || len(ms) != 0 {
		t.Fatalf("expected no minimizers and no error, got %d and %v", len(ms), err)
	}
	session := NewSession[packed.ASCII]()
	for _, lanes := range []int{0, nthash.MaxLanes + 1} {
		if _, err := session.Minimizers(seq, 3, 2, lanes, false); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("lanes=%d should be rejected, got %v", lanes, err)
		}
	}
	if _, err := session.Minimizers(seq, 3, 2, 2, false); err != nil {
		t.Fatal(err)
	}
	if _, err := session.Minimizers(seq, 3, 2, 2, false); !errors.Is(err, nthash.ErrStale) {
		t.Fatalf("reusing a session without a reset should fail, got %v", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	for _, alg := range Algorithms {
		got, err := ParseAlgorithm(alg.String())
		if err != nil || got != alg {
			t.Fatalf("could not parse %v", alg)
		}
	}
	if _, err := ParseAlgorithm("bogus"); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected an unknown algorithm error, got %v", err)
	}
	if _, err := NewSelector(Algorithm(42), 3); !errors.Is(err, ErrUnknownAlgorithm) {
		t.Fatalf("expected an unknown algorithm error, got %v", err)
	}
}

func BenchmarkAlgorithms(b *testing.B) {
	seq := randomSeq(1<<16, 1)
	hashes, err := nthash.Hashes(seq, 21)
	if err != nil {
		b.Fatal(err)
	}
	for _, alg := range Algorithms {
		b.Run(alg.String(), func(b *testing.B) {
			for n := 0; n < b.N; n++ {
				if _, err := Select(alg, 11, hashes); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSession(b *testing.B) {
	seq := randomSeq(1<<16, 1)
	session := NewSession[packed.Seq]()
	for n := 0; n < b.N; n++ {
		session.Reset()
		if _, err := session.Minimizers(seq, 21, 11, nthash.MaxLanes, true); err != nil {
			b.Fatal(err)
		}
	}
}
