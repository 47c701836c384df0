package factors

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankFindsDominantFeature(t *testing.T) {
	rng := rand.New(rand.NewSource(21))

	// y depends strongly on x1 and not at all on x2
	s := &Sample{Terms: []string{"x1", "x2"}}
	for i := 0; i < 500; i++ {
		x1 := rng.NormFloat64()
		x2 := rng.NormFloat64()
		s.Y = append(s.Y, 3*x1+0.05*rng.NormFloat64())
		s.X = append(s.X, []float64{x1, x2})
		s.Firm = append(s.Firm, i%5)
		s.Time = append(s.Time, i/5)
	}

	fi := NewFeatureImportance(50, nil)
	scores := fi.Rank(s, rand.New(rand.NewSource(1)))

	require.Contains(t, scores, "x1")
	require.Contains(t, scores, "x2")
	assert.Greater(t, scores["x1"], scores["x2"])
	assert.InDelta(t, 1.0, scores["x1"]+scores["x2"], 1e-9, "scores are normalized")
}

func TestRankDeterministicForSeed(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	s := &Sample{Terms: []string{"x1"}}
	for i := 0; i < 100; i++ {
		x := rng.NormFloat64()
		s.Y = append(s.Y, x+0.1*rng.NormFloat64())
		s.X = append(s.X, []float64{x})
		s.Firm = append(s.Firm, 0)
		s.Time = append(s.Time, i)
	}

	fi := NewFeatureImportance(20, nil)
	first := fi.Rank(s, rand.New(rand.NewSource(5)))
	second := fi.Rank(s, rand.New(rand.NewSource(5)))
	assert.Equal(t, first, second)
}

func TestRankTinySampleReturnsEmpty(t *testing.T) {
	s := &Sample{Terms: []string{"x1"}, Y: []float64{1, 2}, X: [][]float64{{1}, {2}}}
	fi := NewFeatureImportance(10, nil)
	scores := fi.Rank(s, rand.New(rand.NewSource(1)))
	assert.Empty(t, scores)
}

func TestStumpReductionNonNegative(t *testing.T) {
	s := &Sample{Terms: []string{"x1"}}
	for i := 0; i < 50; i++ {
		s.Y = append(s.Y, float64(i%3))
		s.X = append(s.X, []float64{float64(i)})
	}
	bag := make([]int, 50)
	for i := range bag {
		bag[i] = i
	}
	r := stumpReduction(s, bag, 0)
	assert.GreaterOrEqual(t, r, 0.0)
	assert.False(t, math.IsNaN(r))
}
