package robustness

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
	"sentfactor/internal/factors"
)

// bootstrap re-estimates the fit on resampled panels and reports the
// stability rate: the fraction of iterations where the sentiment
// coefficient keeps the observed sign and clears the significance
// threshold. The iid variant resamples observations; the block variant
// resamples runs of consecutive trading days to preserve short-range
// serial dependence.
func (en *Engine) bootstrap(ctx context.Context, fit *dataset.ModelFit, sample *factors.Sample, observed *factors.QuickStats, block bool, rng *rand.Rand) (dataset.RobustnessResult, error) {
	observedSign := sign(observed.Coef[dataset.TermSentiment])

	coefs := make([]float64, 0, en.cfg.BootstrapIterations)
	tstats := make([]float64, 0, en.cfg.BootstrapIterations)

	days := uniqueDays(sample)
	byDay := indicesByDay(sample)

	for iter := 0; iter < en.cfg.BootstrapIterations; iter++ {
		var idx []int
		if block {
			idx = drawBlocks(days, byDay, en.cfg.BlockLength, rng)
		} else {
			idx = make([]int, sample.N())
			for i := range idx {
				idx[i] = rng.Intn(sample.N())
			}
		}

		stats, err := en.est.Quick(subSample(sample, idx))
		if err != nil {
			if apperrors.IsInsufficientData(err) {
				continue // degenerate draw, not an error in the battery
			}
			// Singular resamples happen when a draw collapses a regressor;
			// skip them the same way.
			continue
		}
		coefs = append(coefs, stats.Coef[dataset.TermSentiment])
		tstats = append(tstats, stats.TStat[dataset.TermSentiment])
	}
	en.countIterations(ctx, int64(en.cfg.BootstrapIterations))

	procedure := dataset.ProcBootstrap
	if block {
		procedure = dataset.ProcBlockBootstrap
	}

	mean, sd := moments(coefs)
	lo, hi := percentileInterval(coefs, 0.025)
	return dataset.RobustnessResult{
		ID:         uuid.New().String(),
		FitID:      fit.ID,
		Procedure:  procedure,
		Statistic:  "stability_rate",
		Value:      StabilityRate(coefs, tstats, observedSign, en.threshold),
		Iterations: en.cfg.BootstrapIterations,
		Details: map[string]float64{
			"coef_mean":      mean,
			"coef_sd":        sd,
			"ci_lower":       lo,
			"ci_upper":       hi,
			"sign_agreement": StabilityRate(coefs, tstats, observedSign, 0),
		},
	}, nil
}

// percentileInterval returns the (alpha, 1-alpha) empirical quantiles of
// the resampled coefficients.
func percentileInterval(coefs []float64, alpha float64) (lo, hi float64) {
	if len(coefs) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), coefs...)
	sort.Float64s(sorted)
	at := func(p float64) float64 {
		i := int(p * float64(len(sorted)-1))
		return sorted[i]
	}
	return at(alpha), at(1 - alpha)
}

// StabilityRate is the fraction of resampled estimates that keep the
// observed sign and whose |t| clears the threshold. Raising the threshold
// can only shrink the qualifying set, so the rate is non-increasing in the
// threshold.
func StabilityRate(coefs, tstats []float64, observedSign int, threshold float64) float64 {
	if len(coefs) == 0 || observedSign == 0 {
		return 0
	}
	stable := 0
	for i := range coefs {
		if sign(coefs[i]) == observedSign && math.Abs(tstats[i]) >= threshold {
			stable++
		}
	}
	return float64(stable) / float64(len(coefs))
}

// uniqueDays returns the sorted distinct time-cluster ids of the sample
func uniqueDays(s *factors.Sample) []int {
	seen := make(map[int]struct{})
	for _, t := range s.Time {
		seen[t] = struct{}{}
	}
	days := make([]int, 0, len(seen))
	for t := range seen {
		days = append(days, t)
	}
	sort.Ints(days)
	return days
}

// indicesByDay groups observation indices by time-cluster id
func indicesByDay(s *factors.Sample) map[int][]int {
	out := make(map[int][]int)
	for i, t := range s.Time {
		out[t] = append(out[t], i)
	}
	return out
}

// drawBlocks assembles a moving-block resample: random starting days, each
// contributing blockLength consecutive days' observations, until the draw
// covers as many days as the original sample.
func drawBlocks(days []int, byDay map[int][]int, blockLength int, rng *rand.Rand) []int {
	if blockLength > len(days) {
		blockLength = len(days)
	}
	var idx []int
	covered := 0
	for covered < len(days) {
		start := rng.Intn(len(days) - blockLength + 1)
		for b := 0; b < blockLength && covered < len(days); b++ {
			idx = append(idx, byDay[days[start+b]]...)
			covered++
		}
	}
	return idx
}

func moments(xs []float64) (mean, sd float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)-1))
}
