package panel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/dataset"
)

func optionals(vals []float64) []dataset.Optional {
	out := make([]dataset.Optional, len(vals))
	for i, v := range vals {
		out[i] = dataset.NewOptional(v)
	}
	return out
}

func TestTrailingMean(t *testing.T) {
	closes := optionals([]float64{1, 2, 3, 4, 5, 6})

	// Window not yet full
	assert.False(t, trailingMean(closes, 3, 5).Valid)

	m, ok := trailingMean(closes, 4, 5).Float64()
	require.True(t, ok)
	assert.InDelta(t, 3.0, m, 1e-12)

	m, ok = trailingMean(closes, 5, 5).Float64()
	require.True(t, ok)
	assert.InDelta(t, 4.0, m, 1e-12)
}

func TestTrailingMeanGapYieldsMissing(t *testing.T) {
	closes := optionals([]float64{1, 2, 3, 4, 5})
	closes[2] = dataset.Optional{}

	assert.False(t, trailingMean(closes, 4, 5).Valid)
}

func TestAnnualizedVol(t *testing.T) {
	returns := optionals([]float64{0.01, -0.01, 0.01, -0.01, 0.01})

	v, ok := annualizedVol(returns, 4, 5).Float64()
	require.True(t, ok)

	// Sample sd of the window times sqrt(252)
	mean := 0.002
	var ss float64
	for _, r := range []float64{0.01, -0.01, 0.01, -0.01, 0.01} {
		d := r - mean
		ss += d * d
	}
	want := math.Sqrt(ss/4) * math.Sqrt(252)
	assert.InDelta(t, want, v, 1e-12)
}

func TestRSIBounds(t *testing.T) {
	allGains := optionals(make([]float64, 14))
	for i := range allGains {
		allGains[i] = dataset.NewOptional(0.01)
	}
	v, ok := rsi(allGains, 13, 14).Float64()
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-12)

	mixed := optionals([]float64{0.02, -0.01, 0.02, -0.01, 0.02, -0.01, 0.02, -0.01, 0.02, -0.01, 0.02, -0.01, 0.02, -0.01})
	v, ok = rsi(mixed, 13, 14).Float64()
	require.True(t, ok)
	assert.Greater(t, v, 50.0)
	assert.Less(t, v, 100.0)
}

func TestComputeTechnicalsUsesOnlyTrailingData(t *testing.T) {
	n := 250
	closes := make([]dataset.Optional, n)
	returns := make([]dataset.Optional, n)
	price := 100.0
	for i := 0; i < n; i++ {
		r := 0.001
		if i%2 == 0 {
			r = -0.0005
		}
		price *= 1 + r
		closes[i] = dataset.NewOptional(price)
		returns[i] = dataset.NewOptional(r)
	}

	tech := computeTechnicals(closes, returns)
	require.Len(t, tech, n)

	// Warmup: indicators stay missing until their windows fill
	assert.False(t, tech[3][TechMA5].Valid)
	assert.True(t, tech[4][TechMA5].Valid)
	assert.False(t, tech[198][TechMA200].Valid)
	assert.True(t, tech[199][TechMA200].Valid)
	assert.False(t, tech[12][TechRSI14].Valid)
	assert.True(t, tech[13][TechRSI14].Valid)
	assert.False(t, tech[18][TechBollingerUpper].Valid)
	assert.True(t, tech[19][TechBollingerUpper].Valid)

	// MACD signal needs both EMAs plus its own warmup
	assert.False(t, tech[24][TechMACD].Valid)
	assert.True(t, tech[25][TechMACD].Valid)
	assert.True(t, tech[40][TechMACDSignal].Valid)

	// Bollinger bands bracket the moving average
	upper, _ := tech[30][TechBollingerUpper].Float64()
	lower, _ := tech[30][TechBollingerLower].Float64()
	mid, _ := tech[30][TechMA20].Float64()
	assert.Greater(t, upper, mid)
	assert.Less(t, lower, mid)

	for _, name := range TechnicalNames() {
		_, present := tech[n-1][name]
		assert.True(t, present, "indicator %s missing from output", name)
	}
}
