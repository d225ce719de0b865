package usecase

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSamplerNilOnNoPositiveWeight(t *testing.T) {
	assert.Nil(t, newWeightedSampler(nil))
	assert.Nil(t, newWeightedSampler([]float64{0, 0}))
	assert.Nil(t, newWeightedSampler([]float64{-1}))
}

func TestSamplerZeroWeightNeverDrawn(t *testing.T) {
	s := newWeightedSampler([]float64{0, 1, 0, 1, 0})
	require.NotNil(t, s)

	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		idx := s.draw(rng.Float64)
		assert.Contains(t, []int{1, 3}, idx)
	}

	// Boundary: a target of exactly 0 must skip the leading zero weight.
	assert.Equal(t, 1, s.draw(func() float64 { return 0 }))
}

func TestSamplerProportionalDistribution(t *testing.T) {
	s := newWeightedSampler([]float64{1, 1})
	require.NotNil(t, s)

	rng := rand.New(rand.NewPCG(7, 11))
	const n = 10000
	counts := make([]int, 2)
	for i := 0; i < n; i++ {
		counts[s.draw(rng.Float64)]++
	}

	// 50/50 within 5 points.
	assert.InDelta(t, n/2, counts[0], 0.05*n)

	s = newWeightedSampler([]float64{3, 1})
	counts = make([]int, 2)
	for i := 0; i < n; i++ {
		counts[s.draw(rng.Float64)]++
	}
	assert.InDelta(t, 3*n/4, counts[0], 0.05*n)
}
