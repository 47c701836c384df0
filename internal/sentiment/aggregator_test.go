package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
)

func testAggregator(policy string) *Aggregator {
	return NewAggregator(config.SentimentConfig{
		ExtremeThreshold:   0.6,
		MomentumWindow:     5,
		UnlinkedNewsPolicy: policy,
	}, []string{"AAA", "BBB"}, nil)
}

func tradingDays(n int) []time.Time {
	out := make([]time.Time, n)
	d := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC) // a Monday
	for i := range out {
		for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			d = d.AddDate(0, 0, 1)
		}
		out[i] = d
		d = d.AddDate(0, 0, 1)
	}
	return out
}

func score(id, symbol string, day time.Time, value float64) dataset.ArticleScore {
	return dataset.ArticleScore{
		ArticleID: id,
		Day:       day,
		Symbols:   []string{symbol},
		Score:     value,
	}
}

func TestAggregateDayFeatures(t *testing.T) {
	ag := testAggregator("drop")
	cal := tradingDays(1)

	scores := []dataset.ArticleScore{
		score("a1", "AAA", cal[0], 0.8),
		score("a2", "AAA", cal[0], 0.2),
		score("a3", "AAA", cal[0], -0.1),
	}

	got := ag.Aggregate(cal, scores)
	agg := got["AAA"][0]

	require.True(t, agg.HasData())
	assert.Equal(t, 3, agg.Articles)

	mean, ok := agg.Mean.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.3, mean, 1e-12)

	// One of three scores clears the 0.6 extreme threshold
	rate, ok := agg.ExtremeRate.Float64()
	require.True(t, ok)
	assert.InDelta(t, 1.0/3.0, rate, 1e-12)

	vol, ok := agg.Volatility.Float64()
	require.True(t, ok)
	assert.Greater(t, vol, 0.0)

	assert.Equal(t, dataset.RegimeBullish, agg.Regime)
}

func TestAggregateNoDataMarkerIsNotZero(t *testing.T) {
	ag := testAggregator("drop")
	cal := tradingDays(2)

	scores := []dataset.ArticleScore{score("a1", "AAA", cal[0], 0.0)}
	got := ag.Aggregate(cal, scores)

	withData := got["AAA"][0]
	require.True(t, withData.HasData())
	mean, ok := withData.Mean.Float64()
	require.True(t, ok)
	assert.Zero(t, mean)
	assert.Equal(t, dataset.RegimeNeutral, withData.Regime)

	// A day with zero articles is a different thing from a zero mean
	noData := got["AAA"][1]
	assert.False(t, noData.HasData())
	assert.False(t, noData.Mean.Valid)
	assert.Equal(t, dataset.RegimeNoData, noData.Regime)
}

func TestAggregateIdempotentAcrossInputOrder(t *testing.T) {
	ag := testAggregator("drop")
	cal := tradingDays(3)

	scores := []dataset.ArticleScore{
		score("a1", "AAA", cal[0], 0.31),
		score("a2", "AAA", cal[0], -0.17),
		score("a3", "AAA", cal[0], 0.55),
		score("a4", "BBB", cal[1], 0.42),
		score("a5", "AAA", cal[2], -0.63),
	}
	reversed := make([]dataset.ArticleScore, len(scores))
	for i := range scores {
		reversed[len(scores)-1-i] = scores[i]
	}

	first := ag.Aggregate(cal, scores)
	second := ag.Aggregate(cal, reversed)

	assert.Equal(t, first, second, "aggregation must not depend on input order")
}

func TestAggregateMomentumUsesPriorWindow(t *testing.T) {
	ag := testAggregator("drop")
	cal := tradingDays(3)

	scores := []dataset.ArticleScore{
		score("a1", "AAA", cal[0], 0.2),
		score("a2", "AAA", cal[1], 0.4),
		score("a3", "AAA", cal[2], 0.7),
	}
	got := ag.Aggregate(cal, scores)

	// First day has no prior data
	assert.False(t, got["AAA"][0].Momentum.Valid)

	m1, ok := got["AAA"][1].Momentum.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.4-0.2, m1, 1e-12)

	m2, ok := got["AAA"][2].Momentum.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.7-(0.2+0.4)/2, m2, 1e-12)
}

func TestAggregateUnlinkedPolicy(t *testing.T) {
	cal := tradingDays(1)
	unlinked := dataset.ArticleScore{ArticleID: "m1", Day: cal[0], Score: 0.5}

	dropped := testAggregator("drop").Aggregate(cal, []dataset.ArticleScore{unlinked})
	assert.False(t, dropped["AAA"][0].HasData())
	assert.False(t, dropped["BBB"][0].HasData())

	broadcast := testAggregator("broadcast").Aggregate(cal, []dataset.ArticleScore{unlinked})
	assert.True(t, broadcast["AAA"][0].HasData())
	assert.True(t, broadcast["BBB"][0].HasData())
}

func TestAggregateMedianVariant(t *testing.T) {
	ag := testAggregator("drop")
	cal := tradingDays(1)

	// An outlier pulls the mean but not the median
	scores := []dataset.ArticleScore{
		score("a1", "AAA", cal[0], 0.1),
		score("a2", "AAA", cal[0], 0.2),
		score("a3", "AAA", cal[0], 0.9),
	}

	mean, ok := ag.Aggregate(cal, scores)["AAA"][0].Mean.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.4, mean, 1e-12)

	median, ok := ag.AggregateMedian(cal, scores)["AAA"][0].Mean.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.2, median, 1e-12)
}
