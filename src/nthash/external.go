package nthash

import (
	"github.com/will-rowe/ntHash"
)

// External hashes an upper case ACGT sequence with the github.com/will-rowe/ntHash iterator.
// It is the reference the in-package variants are checked against.
func External(seq []byte, k int, canonical bool) ([]uint64, error) {
	if err := Validate(k, len(seq)); err != nil {
		return nil, err
	}
	hasher, err := ntHash.New(&seq, uint(k))
	if err != nil {
		return nil, err
	}
	hashes := make([]uint64, 0, NumKmers(len(seq), k))
	for hv := range hasher.Hash(canonical) {
		hashes = append(hashes, hv)
	}
	return hashes, nil
}
