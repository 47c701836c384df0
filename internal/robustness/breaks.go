package robustness

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
	"sentfactor/internal/factors"
)

// rolling-coefficient window geometry, in trading days
const (
	rollingWindow = 126
	rollingStep   = 21
)

// structuralBreaks runs a Chow test at each configured candidate break
// date and adds a rolling-coefficient series as a drift diagnostic. A
// break date whose sub-sample is too thin is skipped with a warning, not
// failed.
func (en *Engine) structuralBreaks(fit *dataset.ModelFit, sample *factors.Sample, observed *factors.QuickStats) ([]dataset.RobustnessResult, error) {
	var out []dataset.RobustnessResult

	for _, breakDate := range en.cfg.BreakDates {
		bd, err := time.Parse("2006-01-02", breakDate)
		if err != nil {
			continue // validated at load time; defensive parse only
		}
		result, err := en.chowTest(fit, sample, observed, bd)
		if err != nil {
			if apperrors.IsInsufficientData(err) {
				en.logger.Warn("break date sub-sample too thin",
					slog.String("break_date", breakDate),
					slog.String("error", err.Error()))
				continue
			}
			return nil, err
		}
		out = append(out, result)
	}

	if rolling := en.rollingCoefficients(fit, sample); rolling != nil {
		out = append(out, *rolling)
	}

	return out, nil
}

// chowTest splits the sample at the break date and tests whether one
// pooled coefficient vector fits both regimes.
func (en *Engine) chowTest(fit *dataset.ModelFit, sample *factors.Sample, observed *factors.QuickStats, breakDate time.Time) (dataset.RobustnessResult, error) {
	var before, after []int
	for i, day := range sample.Days {
		if day.Before(breakDate) {
			before = append(before, i)
		} else {
			after = append(after, i)
		}
	}

	preStats, err := en.est.Quick(subSample(sample, before))
	if err != nil {
		return dataset.RobustnessResult{}, err
	}
	postStats, err := en.est.Quick(subSample(sample, after))
	if err != nil {
		return dataset.RobustnessResult{}, err
	}

	k := float64(len(sample.Terms) + 1)
	n := float64(sample.N())
	pooledSSR := observed.SSR
	splitSSR := preStats.SSR + postStats.SSR

	f := 0.0
	if splitSSR > 0 && n > 2*k {
		f = ((pooledSSR - splitSSR) / k) / (splitSSR / (n - 2*k))
	}

	return dataset.RobustnessResult{
		ID:        uuid.New().String(),
		FitID:     fit.ID,
		Procedure: dataset.ProcStructuralBreak,
		Statistic: "chow_f_" + breakDate.Format("2006-01-02"),
		Value:     f,
		Details: map[string]float64{
			"pre_obs":        float64(preStats.N),
			"post_obs":       float64(postStats.N),
			"pre_sent_coef":  preStats.Coef[dataset.TermSentiment],
			"post_sent_coef": postStats.Coef[dataset.TermSentiment],
		},
	}, nil
}

// rollingCoefficients re-estimates the fit over sliding trading-day
// windows and records the sentiment coefficient path. The headline value
// is the dispersion of the path; the per-window coefficients live in the
// details keyed by window start date.
func (en *Engine) rollingCoefficients(fit *dataset.ModelFit, sample *factors.Sample) *dataset.RobustnessResult {
	days := uniqueDays(sample)
	byDay := indicesByDay(sample)
	if len(days) < rollingWindow {
		return nil
	}

	details := make(map[string]float64)
	var coefs []float64

	dayOf := make(map[int]time.Time, len(days))
	for i, d := range sample.Time {
		dayOf[d] = sample.Days[i]
	}

	for start := 0; start+rollingWindow <= len(days); start += rollingStep {
		var idx []int
		for _, d := range days[start : start+rollingWindow] {
			idx = append(idx, byDay[d]...)
		}
		stats, err := en.est.Quick(subSample(sample, idx))
		if err != nil {
			continue
		}
		c := stats.Coef[dataset.TermSentiment]
		coefs = append(coefs, c)
		details[dayOf[days[start]].Format("2006-01-02")] = c
	}
	if len(coefs) == 0 {
		return nil
	}

	_, sd := moments(coefs)
	return &dataset.RobustnessResult{
		ID:         uuid.New().String(),
		FitID:      fit.ID,
		Procedure:  dataset.ProcStructuralBreak,
		Statistic:  "rolling_sentiment_coef_sd",
		Value:      sd,
		Iterations: len(coefs),
		Details:    details,
	}
}
