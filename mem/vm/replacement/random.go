package replacement

import (
	"math/rand/v2"
	"slices"
)

// RandomReplacer evicts a uniformly chosen resident page. The choice sequence
// is fixed by the seed.
type RandomReplacer struct {
	rng *rand.Rand
}

// NewRandomReplacer creates a random replacer with the given seed.
func NewRandomReplacer(seed uint64) *RandomReplacer {
	return &RandomReplacer{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// PageEvent is ignored.
func (r *RandomReplacer) PageEvent(PageEvent) {}

// PickReplacementPage picks a page at random. The resident set is sorted first
// so that the pick does not depend on the order of the input.
func (r *RandomReplacer) PickReplacementPage(resident []uint64) (uint64, error) {
	if len(resident) == 0 {
		return 0, ErrNoCandidate
	}

	sorted := slices.Clone(resident)
	slices.Sort(sorted)

	return sorted[r.rng.IntN(len(sorted))], nil
}
