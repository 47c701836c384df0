package factors

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
)

func estimatorConfig() config.EstimationConfig {
	return config.EstimationConfig{
		ClusteringSchemes:     []string{"none", "firm", "time", "twoway"},
		SignificanceThreshold: 3.5,
		MinRegressionObs:      30,
		MomentumLookback:      21,
	}
}

// plantedPanel builds a small panel whose returns load on the market
// factor and on lagged sentiment with a known positive coefficient.
func plantedPanel(symbols []string, days int, sentLoading float64, rng *rand.Rand) ([]dataset.PanelRow, []Observation) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	obs := make([]Observation, days)
	mkt := make([]float64, days)
	for t := 0; t < days; t++ {
		mkt[t] = 0.01 * rng.NormFloat64()
		obs[t] = Observation{
			Day:    start.AddDate(0, 0, t),
			Values: map[string]float64{dataset.TermMKT: mkt[t]},
			Valid:  true,
		}
	}

	var rows []dataset.PanelRow
	for _, sym := range symbols {
		for t := 0; t < days; t++ {
			sent := rng.Float64()*2 - 1
			ret := 0.8*mkt[t] + sentLoading*sent + 0.002*rng.NormFloat64()
			rows = append(rows, dataset.PanelRow{
				Symbol:        sym,
				Day:           obs[t].Day,
				Return:        dataset.NewOptional(ret),
				SentimentLag1: dataset.NewOptional(sent),
			})
		}
	}
	return rows, obs
}

func TestBenchmarkSpecsAreNested(t *testing.T) {
	specs := BenchmarkSpecs()
	require.Len(t, specs, 4)

	for i := 1; i < len(specs); i++ {
		assert.GreaterOrEqual(t, len(specs[i].Factors), len(specs[i-1].Factors))
	}
	for _, spec := range specs {
		assert.Equal(t, dataset.TermMKT, spec.Factors[0])
		assert.False(t, spec.Sentiment)
	}
}

func TestAugmentAddsSentimentTerms(t *testing.T) {
	capm := BenchmarkSpecs()[0]

	additive := Augment(capm, false)
	assert.Equal(t, []string{dataset.TermMKT, dataset.TermSentiment}, additive.Terms())

	interactive := Augment(capm, true)
	assert.Equal(t, []string{dataset.TermMKT, dataset.TermSentiment, dataset.TermSentimentMkt}, interactive.Terms())
}

func TestBuildSampleSkipsIncompleteRows(t *testing.T) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(1))
	rows, obs := plantedPanel([]string{"AAA"}, 50, 0.01, rng)

	// Knock out one return and one sentiment value
	rows[3].Return = dataset.Optional{}
	rows[7].SentimentLag1 = dataset.Optional{}

	withSent := e.BuildSample(rows, obs, []string{dataset.TermMKT, dataset.TermSentiment})
	assert.Equal(t, 48, withSent.N())

	// Without the sentiment term the missing sentiment row is usable
	withoutSent := e.BuildSample(rows, obs, []string{dataset.TermMKT})
	assert.Equal(t, 49, withoutSent.N())
}

func TestEstimateInsufficientData(t *testing.T) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(2))
	rows, obs := plantedPanel([]string{"AAA"}, 10, 0.01, rng)

	spec := BenchmarkSpecs()[0]
	sample := e.BuildSample(rows, obs, spec.Terms())

	_, err := e.Estimate("run", spec, sample)
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientData(err))
}

func TestEstimatePointEstimatesInvariantToScheme(t *testing.T) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(3))
	rows, obs := plantedPanel([]string{"AAA", "BBB", "CCC"}, 100, 0.01, rng)

	spec := Augment(BenchmarkSpecs()[0], false)
	sample := e.BuildSample(rows, obs, spec.Terms())

	fit, err := e.Estimate("run", spec, sample)
	require.NoError(t, err)

	// One coefficient vector, four standard-error sets
	require.Len(t, fit.StdErr, 4)
	for _, scheme := range dataset.ClusterSchemes() {
		se, ok := fit.StdErr[scheme]
		require.True(t, ok, "missing scheme %s", scheme)
		assert.Greater(t, se[dataset.TermSentiment], 0.0)
	}
	assert.InDelta(t, 0.8, fit.Coef[dataset.TermMKT], 0.05)
	assert.InDelta(t, 0.01, fit.Coef[dataset.TermSentiment], 0.005)
}

func TestMarginalPlantedEffect(t *testing.T) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(4))
	rows, obs := plantedPanel([]string{"AAA", "BBB", "CCC"}, 200, 0.02, rng)

	marginal, err := e.Marginal("run", BenchmarkSpecs()[0], false, rows, obs)
	require.NoError(t, err)

	assert.Greater(t, marginal.DeltaR2, 0.0)
	assert.Greater(t, marginal.Augmented.Coef[dataset.TermSentiment], 0.0)
	assert.True(t, marginal.Significant, "a strongly planted effect must be detected")
	assert.Equal(t, marginal.Benchmark.Observations, marginal.Augmented.Observations,
		"benchmark and augmented fits must share the intersection sample")
}

func TestMarginalNoEffect(t *testing.T) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(5))
	rows, obs := plantedPanel([]string{"AAA", "BBB", "CCC"}, 200, 0, rng)

	marginal, err := e.Marginal("run", BenchmarkSpecs()[0], false, rows, obs)
	require.NoError(t, err)

	assert.False(t, marginal.Significant, "no planted effect must not clear a 3.5 sigma bar")
	assert.Less(t, marginal.DeltaR2, 0.01)
}

func TestQuickMatchesEstimateCoefficients(t *testing.T) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(6))
	rows, obs := plantedPanel([]string{"AAA", "BBB"}, 100, 0.01, rng)

	spec := Augment(BenchmarkSpecs()[0], false)
	sample := e.BuildSample(rows, obs, spec.Terms())

	fit, err := e.Estimate("run", spec, sample)
	require.NoError(t, err)
	quick, err := e.Quick(sample)
	require.NoError(t, err)

	for _, term := range []string{dataset.TermAlpha, dataset.TermMKT, dataset.TermSentiment} {
		assert.InDelta(t, fit.Coef[term], quick.Coef[term], 1e-12, "term %s", term)
	}
	assert.Equal(t, sample.N(), quick.N)
}

func TestSampleWindowOrdering(t *testing.T) {
	days := []time.Time{
		time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}
	start, end := sampleWindow(days)
	assert.Equal(t, days[1], start)
	assert.Equal(t, days[0], end)
}

func BenchmarkEstimate(b *testing.B) {
	e := NewEstimator(estimatorConfig(), nil)
	rng := rand.New(rand.NewSource(9))
	rows, obs := plantedPanel([]string{"AAA", "BBB", "CCC"}, 250, 0.01, rng)
	spec := Augment(BenchmarkSpecs()[0], false)
	sample := e.BuildSample(rows, obs, spec.Terms())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Estimate(fmt.Sprintf("run-%d", i), spec, sample); err != nil {
			b.Fatal(err)
		}
	}
}
