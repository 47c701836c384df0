// Package factors estimates the nested factor-model family over the study
// panel: daily factor construction, OLS with cluster-robust standard
// errors, marginal explanatory power of the sentiment feature and a bagged
// ensemble used for feature-importance diagnostics only.
package factors

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"sentfactor/internal/dataset"
)

// Observation is one trading day of constructed factor returns. Valid is
// false on days where the cross-section is too thin to form the sorts.
type Observation struct {
	Day      time.Time
	RiskFree float64
	Values   map[string]float64
	Valid    bool
}

// minimum names per sort leg for a spread factor to be formed
const minLegSize = 2

// FactorBuilder constructs the daily factor return series from the panel
type FactorBuilder struct {
	lookback int // momentum formation window in trading days
	logger   *slog.Logger
}

// NewFactorBuilder creates a factor builder with the given momentum
// formation window.
func NewFactorBuilder(momentumLookback int, logger *slog.Logger) *FactorBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &FactorBuilder{
		lookback: momentumLookback,
		logger:   logger.With(slog.String("component", "factor_builder")),
	}
}

// Build derives one factor observation per calendar day from the panel.
// Rows must be the complete panel (symbol-major, calendar-parallel blocks).
// All sorts use only information available at or before each day:
// fundamentals are already point-in-time snapshots and momentum is formed
// on trailing returns ending the prior day.
func (fb *FactorBuilder) Build(calendar []time.Time, rows []dataset.PanelRow) []Observation {
	bySymbol := splitBySymbol(rows, len(calendar))
	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	obs := make([]Observation, len(calendar))
	for i, day := range calendar {
		rf := riskFreeRate(bySymbol, symbols, i)

		type name struct {
			excess   float64
			size     float64
			value    float64
			profit   float64
			leverage float64
			momentum float64
			hasSize, hasValue, hasProfit, hasLeverage, hasMomentum bool
		}
		names := make(map[string]name)
		for _, sym := range symbols {
			row := bySymbol[sym][i]
			ret, ok := row.Return.Float64()
			if !ok {
				continue
			}
			n := name{excess: ret - rf}
			if v, vok := row.Fundamentals[dataset.FundMarketCap].Float64(); vok && v > 0 {
				n.size, n.hasSize = v, true
			}
			if v, vok := row.Fundamentals[dataset.FundPBRatio].Float64(); vok && v > 0 {
				n.value, n.hasValue = 1/v, true // book-to-market
			}
			if v, vok := row.Fundamentals[dataset.FundOperatingMargin].Float64(); vok {
				n.profit, n.hasProfit = v, true
			}
			if v, vok := row.Fundamentals[dataset.FundDebtToEquity].Float64(); vok {
				n.leverage, n.hasLeverage = v, true
			}
			if mom, mok := trailingReturn(bySymbol[sym], i, fb.lookback); mok {
				n.momentum, n.hasMomentum = mom, true
			}
			names[sym] = n
		}

		values := make(map[string]float64, 6)
		valid := true

		if len(names) < 2*minLegSize {
			obs[i] = Observation{Day: day, RiskFree: rf}
			continue
		}

		var mktSum float64
		for _, n := range names {
			mktSum += n.excess
		}
		values[dataset.TermMKT] = mktSum / float64(len(names))

		// Spread legs: long the characteristic's premium tercile, short
		// the discount tercile, equal weighted.
		spread := func(term string, char func(name) (float64, bool), longLow bool) {
			type scored struct {
				c, r float64
			}
			var xs []scored
			for _, n := range names {
				if c, ok := char(n); ok {
					xs = append(xs, scored{c: c, r: n.excess})
				}
			}
			if len(xs) < 2*minLegSize {
				valid = false
				return
			}
			sort.Slice(xs, func(a, b int) bool { return xs[a].c < xs[b].c })
			leg := len(xs) / 3
			if leg < minLegSize {
				leg = minLegSize
			}
			var low, high float64
			for j := 0; j < leg; j++ {
				low += xs[j].r
				high += xs[len(xs)-1-j].r
			}
			low /= float64(leg)
			high /= float64(leg)
			if longLow {
				values[term] = low - high
			} else {
				values[term] = high - low
			}
		}

		spread(dataset.TermSMB, func(n name) (float64, bool) { return n.size, n.hasSize }, true)
		spread(dataset.TermHML, func(n name) (float64, bool) { return n.value, n.hasValue }, false)
		spread(dataset.TermRMW, func(n name) (float64, bool) { return n.profit, n.hasProfit }, false)
		spread(dataset.TermCMA, func(n name) (float64, bool) { return n.leverage, n.hasLeverage }, true)
		spread(dataset.TermUMD, func(n name) (float64, bool) { return n.momentum, n.hasMomentum }, false)

		obs[i] = Observation{Day: day, RiskFree: rf, Values: values, Valid: valid}
	}

	formed := 0
	for _, o := range obs {
		if o.Valid {
			formed++
		}
	}
	fb.logger.Info("factor series constructed",
		slog.Int("days", len(calendar)),
		slog.Int("formed", formed))

	return obs
}

// riskFreeRate derives the daily risk-free rate from the federal funds
// macro snapshot (annualized percent). Zero before the first release.
func riskFreeRate(bySymbol map[string][]dataset.PanelRow, symbols []string, i int) float64 {
	// The macro snapshot is shared across instruments; read it from any.
	for _, sym := range symbols {
		if v, ok := bySymbol[sym][i].Macro[dataset.MacroFederalFundsRate].Float64(); ok {
			return v / 100 / annualTradingDays
		}
		break
	}
	return 0
}

const annualTradingDays = 252

// trailingReturn compounds the instrument's returns over the lookback
// window ending the prior day. A gap in the return series disqualifies the
// observation.
func trailingReturn(rows []dataset.PanelRow, i, lookback int) (float64, bool) {
	if i < lookback {
		return 0, false
	}
	cum := 1.0
	for j := i - lookback; j < i; j++ {
		r, ok := rows[j].Return.Float64()
		if !ok {
			return 0, false
		}
		cum *= 1 + r
	}
	if math.IsNaN(cum) || math.IsInf(cum, 0) {
		return 0, false
	}
	return cum - 1, true
}

// splitBySymbol slices the symbol-major panel back into per-instrument
// calendar-parallel blocks.
func splitBySymbol(rows []dataset.PanelRow, days int) map[string][]dataset.PanelRow {
	out := make(map[string][]dataset.PanelRow)
	for start := 0; start+days <= len(rows); start += days {
		block := rows[start : start+days]
		out[block[0].Symbol] = block
	}
	return out
}
