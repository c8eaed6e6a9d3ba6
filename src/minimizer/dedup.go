package minimizer

// Positioned is anything carrying a minimizer position, including types embedding Minimizer
type Positioned interface {
	Position() int
}

// Dedup collapses runs of consecutive minimizers sharing a position, in place.
// Running it on its own output returns that output unchanged.
func Dedup[M Positioned](minimizers []M) []M {
	if len(minimizers) == 0 {
		return minimizers
	}
	deduped := minimizers[:1]
	for _, m := range minimizers[1:] {
		if m.Position() != deduped[len(deduped)-1].Position() {
			deduped = append(deduped, m)
		}
	}
	return deduped
}

// Deduper is the streaming form of Dedup
type Deduper struct {
	last int
	seen bool
}

// Keep reports whether m starts a new run and records it
func (d *Deduper) Keep(m Minimizer) bool {
	if d.seen && m.Pos == d.last {
		return false
	}
	d.last, d.seen = m.Pos, true
	return true
}

// Reset forgets the last position
func (d *Deduper) Reset() {
	d.seen = false
}
