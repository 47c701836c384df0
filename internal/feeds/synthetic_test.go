package feeds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/align"
	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func testFeedConfigs() (config.FeedsConfig, config.StudyConfig) {
	return config.FeedsConfig{Variant: "synthetic", Seed: 42, NewsPerDay: 4},
		config.StudyConfig{
			StartDate: "2024-01-01",
			EndDate:   "2024-03-31",
			Universe:  []string{"CCC", "AAA", "BBB"},
		}
}

func TestNewSelectsVariant(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()

	source, err := New(feedCfg, studyCfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, source)

	feedCfg.Variant = "live"
	_, err = New(feedCfg, studyCfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live")

	feedCfg.Variant = "nonsense"
	_, err = New(feedCfg, studyCfg, nil)
	assert.Error(t, err)
}

func TestSyntheticDeterministicForSeed(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()
	cal := align.Calendar(day("2024-01-01"), day("2024-03-31"), nil)
	ctx := context.Background()

	a := NewSynthetic(feedCfg, studyCfg, nil)
	b := NewSynthetic(feedCfg, studyCfg, nil)

	pricesA, err := a.Prices(ctx, cal)
	require.NoError(t, err)
	pricesB, err := b.Prices(ctx, cal)
	require.NoError(t, err)
	assert.Equal(t, pricesA, pricesB)

	// Fundamentals draw one drift per indicator per quarter; the draws must
	// come off the seeded stream in a fixed order or runs diverge.
	fundsA, err := a.Fundamentals(ctx, cal)
	require.NoError(t, err)
	fundsB, err := b.Fundamentals(ctx, cal)
	require.NoError(t, err)
	assert.Equal(t, fundsA, fundsB)

	macroA, err := a.Macro(ctx, cal)
	require.NoError(t, err)
	macroB, err := b.Macro(ctx, cal)
	require.NoError(t, err)
	assert.Equal(t, macroA, macroB)

	newsA, err := a.News(ctx, cal)
	require.NoError(t, err)
	newsB, err := b.News(ctx, cal)
	require.NoError(t, err)
	assert.Equal(t, newsA, newsB)
}

func TestSyntheticInstrumentsMetadata(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()

	s := NewSynthetic(feedCfg, studyCfg, nil)
	instruments, err := s.Instruments(context.Background())
	require.NoError(t, err)

	require.Len(t, instruments, 3)
	// Sorted universe order, buckets assigned by position
	assert.Equal(t, "AAA", instruments[0].Symbol)
	assert.Equal(t, dataset.CapMega, instruments[0].Bucket)
	assert.Equal(t, dataset.CapMid, instruments[2].Bucket)
	for _, inst := range instruments {
		assert.True(t, inst.Listed.Before(day(studyCfg.StartDate)),
			"%s must be listed before the window opens", inst.Symbol)
		assert.NotEmpty(t, inst.Industry)
	}

	studyCfg.StartDate = "not-a-date"
	_, err = NewSynthetic(feedCfg, studyCfg, nil).Instruments(context.Background())
	assert.Error(t, err)
}

func TestSyntheticPricesCoverCalendar(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()
	cal := align.Calendar(day("2024-01-01"), day("2024-03-31"), nil)

	s := NewSynthetic(feedCfg, studyCfg, nil)
	prices, err := s.Prices(context.Background(), cal)
	require.NoError(t, err)

	require.Len(t, prices, 3)
	for sym, bars := range prices {
		require.Len(t, bars, len(cal), "symbol %s", sym)
		for i, bar := range bars {
			assert.Equal(t, cal[i], bar.Day)
			assert.True(t, bar.IsValid(), "bar %d of %s", i, sym)
		}
	}
}

func TestSyntheticFundamentalsPublicationLag(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()
	cal := align.Calendar(day("2024-01-01"), day("2024-03-31"), nil)

	s := NewSynthetic(feedCfg, studyCfg, nil)
	fundamentals, err := s.Fundamentals(context.Background(), cal)
	require.NoError(t, err)

	for sym, records := range fundamentals {
		require.NotEmpty(t, records, "symbol %s", sym)
		for i, rec := range records {
			assert.True(t, rec.IsValid(), "record %d of %s", i, sym)
			assert.Equal(t, rec.PeriodEnd.AddDate(0, 0, publicationLagDays), rec.PublishedAt)
			if i > 0 {
				assert.True(t, rec.PublishedAt.After(records[i-1].PublishedAt),
					"publications must be strictly increasing")
			}
		}
		// The first record is already published before the window opens
		assert.False(t, records[0].PublishedAt.After(cal[0]),
			"symbol %s has no published record on the first trading day", sym)
	}
}

func TestSyntheticMacroCoversAllSeries(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()
	cal := align.Calendar(day("2024-01-01"), day("2024-03-31"), nil)

	s := NewSynthetic(feedCfg, studyCfg, nil)
	macro, err := s.Macro(context.Background(), cal)
	require.NoError(t, err)

	require.Len(t, macro, 8)
	for series, obs := range macro {
		require.NotEmpty(t, obs, "series %s", series)
		for i := 1; i < len(obs); i++ {
			assert.True(t, obs[i].EffectiveAt.After(obs[i-1].EffectiveAt))
		}
	}
}

func TestSyntheticNewsLinksAndMarketWide(t *testing.T) {
	feedCfg, studyCfg := testFeedConfigs()
	cal := align.Calendar(day("2024-01-01"), day("2024-03-31"), nil)

	s := NewSynthetic(feedCfg, studyCfg, nil)
	news, err := s.News(context.Background(), cal)
	require.NoError(t, err)

	require.Len(t, news, feedCfg.NewsPerDay*len(cal))

	var linked, unlinked int
	seen := make(map[string]struct{})
	for _, art := range news {
		_, dup := seen[art.ID]
		assert.False(t, dup, "duplicate article id %s", art.ID)
		seen[art.ID] = struct{}{}
		assert.NotEmpty(t, art.Title)
		if len(art.Symbols) == 0 {
			unlinked++
		} else {
			linked++
		}
	}
	assert.Greater(t, linked, 0)
	assert.Greater(t, unlinked, 0, "market-wide items should appear in the corpus")
}
