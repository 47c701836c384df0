package factors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentfactor/internal/dataset"
)

// flatPanel builds a symbol-major panel where every instrument has a
// return and a full fundamental snapshot on every day.
func flatPanel(symbols []string, calendar []time.Time, returns map[string]float64, caps map[string]float64) []dataset.PanelRow {
	var rows []dataset.PanelRow
	for _, sym := range symbols {
		for _, day := range calendar {
			rows = append(rows, dataset.PanelRow{
				Symbol: sym,
				Day:    day,
				Return: dataset.NewOptional(returns[sym]),
				Fundamentals: map[string]dataset.Optional{
					dataset.FundMarketCap:       dataset.NewOptional(caps[sym]),
					dataset.FundPBRatio:         dataset.NewOptional(2),
					dataset.FundOperatingMargin: dataset.NewOptional(0.2),
					dataset.FundDebtToEquity:    dataset.NewOptional(1),
				},
				Macro: map[string]dataset.Optional{},
			})
		}
	}
	return rows
}

func testCalendar(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
	}
	return out
}

func TestBuildMarketFactorIsMeanExcessReturn(t *testing.T) {
	cal := testCalendar(3)
	symbols := []string{"AAA", "BBB", "CCC", "DDD"}
	returns := map[string]float64{"AAA": 0.01, "BBB": 0.02, "CCC": -0.01, "DDD": 0.02}
	caps := map[string]float64{"AAA": 1e9, "BBB": 2e9, "CCC": 3e9, "DDD": 4e9}

	fb := NewFactorBuilder(21, nil)
	obs := fb.Build(cal, flatPanel(symbols, cal, returns, caps))

	require.Len(t, obs, 3)
	// Risk-free is zero without a federal funds snapshot
	mkt := obs[0].Values[dataset.TermMKT]
	assert.InDelta(t, (0.01+0.02-0.01+0.02)/4, mkt, 1e-12)
}

func TestBuildSizeFactorLongsSmallCaps(t *testing.T) {
	cal := testCalendar(3)
	symbols := []string{"S1", "S2", "B1", "B2"}
	// Small caps earn more, so SMB (small minus big) must be positive
	returns := map[string]float64{"S1": 0.03, "S2": 0.025, "B1": 0.001, "B2": 0.002}
	caps := map[string]float64{"S1": 1e8, "S2": 2e8, "B1": 9e10, "B2": 8e10}

	fb := NewFactorBuilder(1, nil)
	obs := fb.Build(cal, flatPanel(symbols, cal, returns, caps))

	require.True(t, obs[1].Valid)
	assert.Greater(t, obs[1].Values[dataset.TermSMB], 0.0)
}

func TestBuildThinCrossSectionIsInvalid(t *testing.T) {
	cal := testCalendar(2)
	symbols := []string{"AAA", "BBB"}
	returns := map[string]float64{"AAA": 0.01, "BBB": 0.02}
	caps := map[string]float64{"AAA": 1e9, "BBB": 2e9}

	fb := NewFactorBuilder(21, nil)
	obs := fb.Build(cal, flatPanel(symbols, cal, returns, caps))

	// Two names cannot populate two sort legs of two names each
	assert.False(t, obs[0].Valid)
	assert.Nil(t, obs[0].Values)
}

func TestBuildMomentumNeedsLookbackHistory(t *testing.T) {
	lookback := 5
	cal := testCalendar(8)
	symbols := make([]string, 6)
	returns := map[string]float64{}
	caps := map[string]float64{}
	for i := range symbols {
		sym := fmt.Sprintf("S%d", i)
		symbols[i] = sym
		returns[sym] = 0.001 * float64(i+1)
		caps[sym] = 1e9 * float64(i+1)
	}

	fb := NewFactorBuilder(lookback, nil)
	obs := fb.Build(cal, flatPanel(symbols, cal, returns, caps))

	// Before the formation window fills, UMD cannot be formed
	assert.False(t, obs[lookback-1].Valid)
	require.True(t, obs[lookback].Valid)
	assert.Contains(t, obs[lookback].Values, dataset.TermUMD)
	// Persistent winners keep winning in this panel
	assert.Greater(t, obs[lookback].Values[dataset.TermUMD], 0.0)
}

func TestTrailingReturnCompounds(t *testing.T) {
	rows := make([]dataset.PanelRow, 5)
	for i := range rows {
		rows[i] = dataset.PanelRow{Return: dataset.NewOptional(0.01)}
	}

	got, ok := trailingReturn(rows, 4, 4)
	require.True(t, ok)
	want := 1.01*1.01*1.01*1.01 - 1
	assert.InDelta(t, want, got, 1e-12)

	_, ok = trailingReturn(rows, 2, 4)
	assert.False(t, ok)
}
