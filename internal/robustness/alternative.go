package robustness

import (
	"github.com/google/uuid"

	"sentfactor/internal/dataset"
	"sentfactor/internal/factors"
)

// alternativeMeasure re-estimates the fit on the panel built with the
// median-based sentiment construction. A conclusion that survives only
// under one aggregation choice is reported as fragile by comparing the
// two coefficients' signs and magnitudes.
func (en *Engine) alternativeMeasure(fit *dataset.ModelFit, altRows []dataset.PanelRow, obs []factors.Observation, observed *factors.QuickStats) (dataset.RobustnessResult, error) {
	altSample := en.est.BuildSample(altRows, obs, fit.Spec.Terms())
	altStats, err := en.est.Quick(altSample)
	if err != nil {
		return dataset.RobustnessResult{}, err
	}

	observedCoef := observed.Coef[dataset.TermSentiment]
	altCoef := altStats.Coef[dataset.TermSentiment]

	signMatch := 0.0
	if sign(observedCoef) == sign(altCoef) {
		signMatch = 1
	}

	return dataset.RobustnessResult{
		ID:        uuid.New().String(),
		FitID:     fit.ID,
		Procedure: dataset.ProcAlternative,
		Statistic: "sentiment_t",
		Value:     altStats.TStat[dataset.TermSentiment],
		Details: map[string]float64{
			"alt_coef":      altCoef,
			"observed_coef": observedCoef,
			"sign_match":    signMatch,
			"alt_obs":       float64(altStats.N),
		},
	}, nil
}
