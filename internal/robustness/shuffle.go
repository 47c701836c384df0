package robustness

import (
	"context"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"sentfactor/internal/dataset"
	"sentfactor/internal/factors"
)

// labelShuffle is the placebo test: it permutes the sentiment regressor
// across observations, severing any true link to returns, and reports the
// empirical p-value of the observed coefficient against the shuffled
// distribution. A genuine effect should be destroyed by the permutation.
func (en *Engine) labelShuffle(ctx context.Context, fit *dataset.ModelFit, sample *factors.Sample, observed *factors.QuickStats, rng *rand.Rand) (dataset.RobustnessResult, error) {
	sentCol, mktCol, interCol := columnIndices(sample.Terms)
	if sentCol < 0 {
		return dataset.RobustnessResult{}, nil
	}

	observedAbs := math.Abs(observed.Coef[dataset.TermSentiment])
	n := sample.N()

	asExtreme := 0
	completed := 0
	for iter := 0; iter < en.cfg.ShuffleIterations; iter++ {
		perm := rng.Perm(n)
		shuffled := &factors.Sample{
			Terms: sample.Terms,
			Y:     sample.Y,
			Firm:  sample.Firm,
			Time:  sample.Time,
		}
		shuffled.X = make([][]float64, n)
		for i := 0; i < n; i++ {
			row := append([]float64(nil), sample.X[i]...)
			row[sentCol] = sample.X[perm[i]][sentCol]
			if interCol >= 0 && mktCol >= 0 {
				row[interCol] = row[sentCol] * row[mktCol]
			}
			shuffled.X[i] = row
		}

		stats, err := en.est.Quick(shuffled)
		if err != nil {
			continue
		}
		completed++
		if math.Abs(stats.Coef[dataset.TermSentiment]) >= observedAbs {
			asExtreme++
		}
	}
	en.countIterations(ctx, int64(en.cfg.ShuffleIterations))

	p := 1.0
	if completed > 0 {
		p = float64(asExtreme) / float64(completed)
	}

	return dataset.RobustnessResult{
		ID:         uuid.New().String(),
		FitID:      fit.ID,
		Procedure:  dataset.ProcLabelShuffle,
		Statistic:  "empirical_p",
		Value:      p,
		Iterations: en.cfg.ShuffleIterations,
		Details: map[string]float64{
			"observed_abs_coef": observedAbs,
			"completed":         float64(completed),
		},
	}, nil
}

// columnIndices locates the sentiment, market and interaction columns
func columnIndices(terms []string) (sent, mkt, inter int) {
	sent, mkt, inter = -1, -1, -1
	for c, t := range terms {
		switch t {
		case dataset.TermSentiment:
			sent = c
		case dataset.TermMKT:
			mkt = c
		case dataset.TermSentimentMkt:
			inter = c
		}
	}
	return sent, mkt, inter
}
