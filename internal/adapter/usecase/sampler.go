package usecase

import (
	"math/rand/v2"
	"sort"
)

// weightedSampler draws indices with probability proportional to their
// weight. Weights are accumulated once and each draw is a binary search
// over the cumulative sums, so building is O(n) and drawing O(log n).
//
// Determinism is not required anywhere in selection; the guarantee is that
// over many draws the empirical distribution is proportional to the
// weights.
type weightedSampler struct {
	cumulative []float64
	total      float64
}

// newWeightedSampler builds a sampler over the given weights. Zero and
// negative weights are legal and simply never drawn (callers apply an
// epsilon floor when they want everything drawable). Returns nil when no
// weight is positive.
func newWeightedSampler(weights []float64) *weightedSampler {
	s := &weightedSampler{cumulative: make([]float64, len(weights))}
	for i, w := range weights {
		if w > 0 {
			s.total += w
		}
		s.cumulative[i] = s.total
	}
	if s.total <= 0 {
		return nil
	}
	return s
}

// draw returns one index. rnd must return a float in [0, 1); pass
// rand.Float64 outside of tests.
func (s *weightedSampler) draw(rnd func() float64) int {
	if rnd == nil {
		rnd = rand.Float64
	}
	target := rnd() * s.total
	// Strictly-greater search so a zero-weight entry (flat cumulative
	// step) can never be drawn when target lands exactly on its boundary.
	return sort.Search(len(s.cumulative), func(i int) bool {
		return s.cumulative[i] > target
	})
}
