package panel

import (
	"math"

	"sentfactor/internal/dataset"
)

// Technical indicator names emitted into PanelRow.Technicals. Like the
// fundamental and macro sets, the list is closed.
const (
	TechMA5   = "ma_5"
	TechMA20  = "ma_20"
	TechMA50  = "ma_50"
	TechMA200 = "ma_200"

	TechVol5  = "volatility_5"
	TechVol20 = "volatility_20"
	TechVol60 = "volatility_60"

	TechRSI14 = "rsi_14"

	TechMACD          = "macd"
	TechMACDSignal    = "macd_signal"
	TechMACDHistogram = "macd_histogram"

	TechBollingerUpper = "bollinger_upper"
	TechBollingerLower = "bollinger_lower"
	TechBollingerWidth = "bollinger_width"
)

const annualizationFactor = 252

// TechnicalNames returns the closed technical indicator set in canonical
// order.
func TechnicalNames() []string {
	return []string{
		TechMA5, TechMA20, TechMA50, TechMA200,
		TechVol5, TechVol20, TechVol60,
		TechRSI14,
		TechMACD, TechMACDSignal, TechMACDHistogram,
		TechBollingerUpper, TechBollingerLower, TechBollingerWidth,
	}
}

// computeTechnicals derives the trailing-window technical indicators for
// one instrument. The input slices are calendar-parallel; every indicator
// uses only data at or before its own day, and a window touching any
// missing observation yields the missing marker instead of a partial
// estimate.
func computeTechnicals(closes, returns []dataset.Optional) []map[string]dataset.Optional {
	n := len(closes)
	out := make([]map[string]dataset.Optional, n)
	for i := range out {
		out[i] = make(map[string]dataset.Optional, 14)
	}

	for i := 0; i < n; i++ {
		out[i][TechMA5] = trailingMean(closes, i, 5)
		out[i][TechMA20] = trailingMean(closes, i, 20)
		out[i][TechMA50] = trailingMean(closes, i, 50)
		out[i][TechMA200] = trailingMean(closes, i, 200)

		out[i][TechVol5] = annualizedVol(returns, i, 5)
		out[i][TechVol20] = annualizedVol(returns, i, 20)
		out[i][TechVol60] = annualizedVol(returns, i, 60)

		out[i][TechRSI14] = rsi(returns, i, 14)
	}

	applyMACD(closes, out)
	applyBollinger(closes, out)

	return out
}

// trailingMean averages the last w closes ending at index i
func trailingMean(series []dataset.Optional, i, w int) dataset.Optional {
	if i+1 < w {
		return dataset.Optional{}
	}
	var sum float64
	for j := i - w + 1; j <= i; j++ {
		v, ok := series[j].Float64()
		if !ok {
			return dataset.Optional{}
		}
		sum += v
	}
	return dataset.NewOptional(sum / float64(w))
}

// annualizedVol is the sample standard deviation of the last w daily
// returns scaled by sqrt(252).
func annualizedVol(returns []dataset.Optional, i, w int) dataset.Optional {
	if i+1 < w || w < 2 {
		return dataset.Optional{}
	}
	window := make([]float64, 0, w)
	for j := i - w + 1; j <= i; j++ {
		v, ok := returns[j].Float64()
		if !ok {
			return dataset.Optional{}
		}
		window = append(window, v)
	}
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(w)
	var ss float64
	for _, v := range window {
		d := v - mean
		ss += d * d
	}
	return dataset.NewOptional(math.Sqrt(ss/float64(w-1)) * math.Sqrt(annualizationFactor))
}

// rsi is the simple-mean relative strength index over the last w returns
func rsi(returns []dataset.Optional, i, w int) dataset.Optional {
	if i+1 < w {
		return dataset.Optional{}
	}
	var gains, losses float64
	for j := i - w + 1; j <= i; j++ {
		v, ok := returns[j].Float64()
		if !ok {
			return dataset.Optional{}
		}
		if v > 0 {
			gains += v
		} else {
			losses -= v
		}
	}
	if losses == 0 {
		return dataset.NewOptional(100)
	}
	rs := (gains / float64(w)) / (losses / float64(w))
	return dataset.NewOptional(100 - 100/(1+rs))
}

// applyMACD fills the 12/26/9 MACD line, signal and histogram. EMAs are
// seeded with the simple mean over the first full window and run
// recursively afterwards; the series restarts after any gap in closes.
func applyMACD(closes []dataset.Optional, out []map[string]dataset.Optional) {
	const fast, slow, signal = 12, 26, 9

	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)

	macd := make([]dataset.Optional, len(closes))
	for i := range closes {
		f, fok := emaFast[i].Float64()
		s, sok := emaSlow[i].Float64()
		if fok && sok {
			macd[i] = dataset.NewOptional(f - s)
		}
	}

	macdSignal := ema(macd, signal)
	for i := range closes {
		out[i][TechMACD] = macd[i]
		out[i][TechMACDSignal] = macdSignal[i]
		m, mok := macd[i].Float64()
		sg, sok := macdSignal[i].Float64()
		if mok && sok {
			out[i][TechMACDHistogram] = dataset.NewOptional(m - sg)
		} else {
			out[i][TechMACDHistogram] = dataset.Optional{}
		}
	}
}

// ema computes an exponential moving average seeded with the simple mean
// of the first w contiguous valid values. A missing observation resets
// the recursion.
func ema(series []dataset.Optional, w int) []dataset.Optional {
	out := make([]dataset.Optional, len(series))
	alpha := 2.0 / (float64(w) + 1)

	var prev float64
	var have bool
	run := 0 // contiguous valid observations so far
	var seedSum float64

	for i, o := range series {
		v, ok := o.Float64()
		if !ok {
			have = false
			run = 0
			seedSum = 0
			continue
		}
		if have {
			prev = alpha*v + (1-alpha)*prev
			out[i] = dataset.NewOptional(prev)
			continue
		}
		run++
		seedSum += v
		if run == w {
			prev = seedSum / float64(w)
			have = true
			out[i] = dataset.NewOptional(prev)
		}
	}
	return out
}

// applyBollinger fills the 20-day, two-sigma Bollinger band levels and the
// normalized band width.
func applyBollinger(closes []dataset.Optional, out []map[string]dataset.Optional) {
	const w = 20
	for i := range closes {
		mid := trailingMean(closes, i, w)
		m, ok := mid.Float64()
		if !ok {
			out[i][TechBollingerUpper] = dataset.Optional{}
			out[i][TechBollingerLower] = dataset.Optional{}
			out[i][TechBollingerWidth] = dataset.Optional{}
			continue
		}
		var ss float64
		complete := true
		for j := i - w + 1; j <= i; j++ {
			v, vok := closes[j].Float64()
			if !vok {
				complete = false
				break
			}
			d := v - m
			ss += d * d
		}
		if !complete {
			out[i][TechBollingerUpper] = dataset.Optional{}
			out[i][TechBollingerLower] = dataset.Optional{}
			out[i][TechBollingerWidth] = dataset.Optional{}
			continue
		}
		sd := math.Sqrt(ss / float64(w-1))
		upper := m + 2*sd
		lower := m - 2*sd
		out[i][TechBollingerUpper] = dataset.NewOptional(upper)
		out[i][TechBollingerLower] = dataset.NewOptional(lower)
		if m != 0 {
			out[i][TechBollingerWidth] = dataset.NewOptional((upper - lower) / m)
		} else {
			out[i][TechBollingerWidth] = dataset.Optional{}
		}
	}
}
