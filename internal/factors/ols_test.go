package factors

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/dataset"
)

// syntheticSample generates y = 0.01 + 2x1 - 1.5x2 + noise over firms and days
func syntheticSample(n, firms int, noise float64, rng *rand.Rand) *Sample {
	s := &Sample{Terms: []string{"x1", "x2"}}
	for i := 0; i < n; i++ {
		x1 := rng.NormFloat64()
		x2 := rng.NormFloat64()
		y := 0.01 + 2*x1 - 1.5*x2 + noise*rng.NormFloat64()
		s.Y = append(s.Y, y)
		s.X = append(s.X, []float64{x1, x2})
		s.Firm = append(s.Firm, i%firms)
		s.Time = append(s.Time, i/firms)
	}
	return s
}

func TestFitOLSRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	s := syntheticSample(2000, 10, 0.01, rng)

	fit, err := fitOLS(s)
	require.NoError(t, err)

	assert.InDelta(t, 0.01, fit.coef[0], 0.005)
	assert.InDelta(t, 2.0, fit.coef[1], 0.01)
	assert.InDelta(t, -1.5, fit.coef[2], 0.01)
	assert.Greater(t, fit.r2, 0.99)
	assert.LessOrEqual(t, fit.adjR2, fit.r2)
}

func TestFitOLSRejectsDegenerateSample(t *testing.T) {
	s := &Sample{
		Terms: []string{"x1"},
		Y:     []float64{1, 2},
		X:     [][]float64{{1}, {2}},
		Firm:  []int{0, 1},
		Time:  []int{0, 1},
	}
	_, err := fitOLS(s)
	assert.Error(t, err)
}

func TestFitOLSRejectsCollinearRegressors(t *testing.T) {
	s := &Sample{Terms: []string{"x1", "x2"}}
	for i := 0; i < 100; i++ {
		x := float64(i % 7)
		s.Y = append(s.Y, x)
		s.X = append(s.X, []float64{x, 2 * x}) // perfectly collinear
		s.Firm = append(s.Firm, 0)
		s.Time = append(s.Time, i)
	}
	_, err := fitOLS(s)
	assert.Error(t, err)
}

func TestStandardErrorsAcrossSchemes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := syntheticSample(1500, 15, 0.05, rng)

	fit, err := fitOLS(s)
	require.NoError(t, err)

	for _, scheme := range dataset.ClusterSchemes() {
		se, err := standardErrors(fit, s, scheme)
		require.NoError(t, err, "scheme %s", scheme)
		for _, term := range []string{dataset.TermAlpha, "x1", "x2"} {
			assert.GreaterOrEqual(t, se[term], 0.0, "scheme %s term %s", scheme, term)
			assert.False(t, math.IsNaN(se[term]), "scheme %s term %s", scheme, term)
		}
		// With iid noise all schemes should land in the same ballpark and
		// none should be wildly off the classic estimate.
		assert.Less(t, se["x1"], 0.1)
	}
}

func TestStandardErrorsUnknownScheme(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := syntheticSample(200, 5, 0.05, rng)

	fit, err := fitOLS(s)
	require.NoError(t, err)

	_, err = standardErrors(fit, s, dataset.ClusterScheme("bogus"))
	assert.Error(t, err)
}

func TestInvertRoundTrip(t *testing.T) {
	m := [][]float64{
		{4, 1, 0},
		{1, 3, -1},
		{0, -1, 2},
	}
	inv, err := invert(m)
	require.NoError(t, err)

	prod := multiply(m, inv)
	for i := range prod {
		for j := range prod[i] {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, prod[i][j], 1e-9)
		}
	}
}

func TestInvertSingular(t *testing.T) {
	m := [][]float64{
		{1, 2},
		{2, 4},
	}
	_, err := invert(m)
	assert.Error(t, err)
}
