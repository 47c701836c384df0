package panel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/align"
	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testBuilder(t *testing.T, start, end string, universe []string) (*Builder, *align.Aligner) {
	t.Helper()
	aligner := align.NewAligner(day(start), day(end), nil, nil)
	cfg := config.StudyConfig{
		Universe:              universe,
		FundamentalIndicators: []string{dataset.FundROE},
		MacroIndicators:       []string{dataset.MacroVIXIndex},
	}
	return NewBuilder(cfg, aligner, nil), aligner
}

func barsFor(symbol string, calendar []time.Time) []dataset.PriceBar {
	bars := make([]dataset.PriceBar, len(calendar))
	price := 100.0
	for i, d := range calendar {
		price *= 1.001
		bars[i] = dataset.PriceBar{Symbol: symbol, Day: d, Close: price, Return: 0.001, Volume: 1e6}
	}
	return bars
}

func TestBuildPanelIsComplete(t *testing.T) {
	b, aligner := testBuilder(t, "2024-01-01", "2024-01-31", []string{"BBB", "AAA"})
	cal := aligner.TradingDays()

	in := Inputs{
		Prices: map[string][]dataset.PriceBar{
			"AAA": barsFor("AAA", cal),
			"BBB": barsFor("BBB", cal),
		},
	}

	rows, err := b.Build(context.Background(), in, 2)
	require.NoError(t, err)

	// One row per (instrument, trading day), sorted symbol-major
	require.Len(t, rows, 2*len(cal))
	assert.Equal(t, "AAA", rows[0].Symbol)
	assert.Equal(t, "BBB", rows[len(cal)].Symbol)
	for i, row := range rows[:len(cal)] {
		assert.Equal(t, cal[i], row.Day)
	}
}

func TestBuildPanelMissingDataIsMarkedNotDropped(t *testing.T) {
	b, aligner := testBuilder(t, "2024-01-01", "2024-01-31", []string{"AAA"})
	cal := aligner.TradingDays()

	// No prices, fundamentals, macro or sentiment at all
	rows, err := b.Build(context.Background(), Inputs{}, 1)
	require.NoError(t, err)
	require.Len(t, rows, len(cal))

	for _, row := range rows {
		assert.False(t, row.Close.Valid)
		assert.False(t, row.Return.Valid)
		assert.False(t, row.Fundamentals[dataset.FundROE].Valid)
		assert.False(t, row.Macro[dataset.MacroVIXIndex].Valid)
		assert.False(t, row.SentimentLag1.Valid)
		assert.Equal(t, dataset.RegimeNoData, row.Sentiment.Regime)
	}
}

func TestBuildPanelRejectsDuplicateBars(t *testing.T) {
	b, aligner := testBuilder(t, "2024-01-01", "2024-01-31", []string{"AAA"})
	cal := aligner.TradingDays()

	bars := barsFor("AAA", cal)
	bars = append(bars, bars[0])

	_, err := b.Build(context.Background(), Inputs{Prices: map[string][]dataset.PriceBar{"AAA": bars}}, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsPanelIntegrity(err))
}

func TestBuildPanelRejectsBarsOutsideCalendar(t *testing.T) {
	b, _ := testBuilder(t, "2024-01-01", "2024-01-31", []string{"AAA"})

	bars := []dataset.PriceBar{
		{Symbol: "AAA", Day: day("2024-01-06"), Close: 100, Return: 0, Volume: 1}, // a Saturday
	}

	_, err := b.Build(context.Background(), Inputs{Prices: map[string][]dataset.PriceBar{"AAA": bars}}, 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsPanelIntegrity(err))
}

func TestBuildPanelSentimentLag(t *testing.T) {
	b, aligner := testBuilder(t, "2024-01-01", "2024-01-12", []string{"AAA"})
	cal := aligner.TradingDays()

	sentiment := make([]dataset.SentimentAggregate, len(cal))
	for i := range sentiment {
		sentiment[i] = dataset.NoSentimentData()
	}
	sentiment[0] = dataset.SentimentAggregate{
		Mean:     dataset.NewOptional(0.4),
		Articles: 2,
		Regime:   dataset.RegimeBullish,
	}

	rows, err := b.Build(context.Background(), Inputs{
		Prices:    map[string][]dataset.PriceBar{"AAA": barsFor("AAA", cal)},
		Sentiment: map[string][]dataset.SentimentAggregate{"AAA": sentiment},
	}, 1)
	require.NoError(t, err)

	// The lag points at the prior day's mean; a no-data prior day yields
	// a missing marker, never zero.
	assert.False(t, rows[0].SentimentLag1.Valid)
	lag, ok := rows[1].SentimentLag1.Float64()
	require.True(t, ok)
	assert.InDelta(t, 0.4, lag, 1e-12)
	assert.False(t, rows[2].SentimentLag1.Valid)
}

func TestBuildPanelPointInTimeFundamentals(t *testing.T) {
	b, aligner := testBuilder(t, "2024-01-01", "2024-01-31", []string{"AAA"})
	cal := aligner.TradingDays()

	records := []dataset.FundamentalRecord{{
		Symbol:      "AAA",
		PeriodEnd:   day("2023-12-31"),
		PublishedAt: day("2024-01-15"),
		Indicators:  map[string]float64{dataset.FundROE: 0.18},
	}}

	rows, err := b.Build(context.Background(), Inputs{
		Prices:       map[string][]dataset.PriceBar{"AAA": barsFor("AAA", cal)},
		Fundamentals: map[string][]dataset.FundamentalRecord{"AAA": records},
	}, 1)
	require.NoError(t, err)

	for _, row := range rows {
		if row.Day.Before(day("2024-01-15")) {
			assert.False(t, row.Fundamentals[dataset.FundROE].Valid,
				"day %s must not see data published later", row.Day)
		} else {
			v, ok := row.Fundamentals[dataset.FundROE].Float64()
			require.True(t, ok)
			assert.InDelta(t, 0.18, v, 1e-12)
		}
	}
}
