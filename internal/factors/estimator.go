package factors

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
)

// Estimator fits the nested factor-model family and quantifies the
// marginal explanatory power of the sentiment feature.
type Estimator struct {
	cfg    config.EstimationConfig
	logger *slog.Logger
}

// NewEstimator creates an estimator from the estimation configuration
func NewEstimator(cfg config.EstimationConfig, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "estimator")),
	}
}

// BenchmarkSpecs returns the nested benchmark family in ascending order of
// factor count.
func BenchmarkSpecs() []dataset.ModelSpec {
	return []dataset.ModelSpec{
		{Name: "capm", Factors: []string{dataset.TermMKT}},
		{Name: "ff3", Factors: []string{dataset.TermMKT, dataset.TermSMB, dataset.TermHML}},
		{Name: "carhart", Factors: []string{dataset.TermMKT, dataset.TermSMB, dataset.TermHML, dataset.TermUMD}},
		{Name: "ff5", Factors: []string{dataset.TermMKT, dataset.TermSMB, dataset.TermHML, dataset.TermRMW, dataset.TermCMA}},
	}
}

// Augment extends a benchmark specification with the sentiment feature,
// optionally interacted with the market factor.
func Augment(spec dataset.ModelSpec, interactive bool) dataset.ModelSpec {
	name := spec.Name + "+sentiment"
	if interactive {
		name = spec.Name + "+sentiment_x_mkt"
	}
	return dataset.ModelSpec{
		Name:        name,
		Factors:     spec.Factors,
		Sentiment:   true,
		Interactive: interactive,
	}
}

// BuildSample selects the panel rows usable for the given regressor set: a
// row enters iff its return, every required factor and (when required) the
// lagged sentiment feature are all present. The dependent variable is the
// day's excess return.
func (e *Estimator) BuildSample(rows []dataset.PanelRow, obs []Observation, terms []string) *Sample {
	dayIndex := make(map[string]int, len(obs))
	for i, o := range obs {
		dayIndex[o.Day.Format("2006-01-02")] = i
	}

	needsSentiment := false
	needsInteraction := false
	for _, t := range terms {
		if t == dataset.TermSentiment {
			needsSentiment = true
		}
		if t == dataset.TermSentimentMkt {
			needsInteraction = true
		}
	}

	firmIDs := make(map[string]int)
	s := &Sample{Terms: append([]string(nil), terms...)}

	for _, row := range rows {
		ret, ok := row.Return.Float64()
		if !ok {
			continue
		}
		oi, dok := dayIndex[row.Day.Format("2006-01-02")]
		if !dok || !obs[oi].Valid {
			continue
		}
		var sentiment float64
		if needsSentiment || needsInteraction {
			v, sok := row.SentimentLag1.Float64()
			if !sok {
				continue
			}
			sentiment = v
		}

		x := make([]float64, len(terms))
		usable := true
		for c, term := range terms {
			switch term {
			case dataset.TermSentiment:
				x[c] = sentiment
			case dataset.TermSentimentMkt:
				x[c] = sentiment * obs[oi].Values[dataset.TermMKT]
			default:
				v, fok := obs[oi].Values[term]
				if !fok {
					usable = false
				}
				x[c] = v
			}
		}
		if !usable {
			continue
		}

		fid, fok := firmIDs[row.Symbol]
		if !fok {
			fid = len(firmIDs)
			firmIDs[row.Symbol] = fid
		}

		s.Y = append(s.Y, ret-obs[oi].RiskFree)
		s.X = append(s.X, x)
		s.Firm = append(s.Firm, fid)
		s.Time = append(s.Time, oi)
		s.Days = append(s.Days, row.Day)
	}
	return s
}

// Estimate fits one specification on a sample. Samples below the
// configured minimum fail with an InsufficientDataError, which callers
// treat as a recoverable not-estimable condition.
func (e *Estimator) Estimate(runID string, spec dataset.ModelSpec, s *Sample) (*dataset.ModelFit, error) {
	if s.N() < e.cfg.MinRegressionObs {
		return nil, apperrors.NewInsufficientData(spec.Name, s.N(), e.cfg.MinRegressionObs)
	}

	fit, err := fitOLS(s)
	if err != nil {
		return nil, err
	}

	coef := make(map[string]float64, len(fit.coef))
	coef[dataset.TermAlpha] = fit.coef[0]
	for c, term := range s.Terms {
		coef[term] = fit.coef[c+1]
	}

	stdErr := make(map[dataset.ClusterScheme]map[string]float64, len(e.cfg.ClusteringSchemes))
	for _, name := range e.cfg.ClusteringSchemes {
		scheme := dataset.ClusterScheme(name)
		se, err := standardErrors(fit, s, scheme)
		if err != nil {
			return nil, err
		}
		stdErr[scheme] = se
	}

	start, end := sampleWindow(s.Days)

	return &dataset.ModelFit{
		ID:           uuid.New().String(),
		RunID:        runID,
		Spec:         spec,
		WindowStart:  start,
		WindowEnd:    end,
		Coef:         coef,
		StdErr:       stdErr,
		R2:           fit.r2,
		AdjR2:        fit.adjR2,
		Observations: s.N(),
	}, nil
}

// Marginal estimates a benchmark and its sentiment-augmented counterpart
// on the intersection sample (rows usable for the augmented regressor
// set) so the R-squared difference is attributable to the added feature
// rather than to a sample change.
func (e *Estimator) Marginal(runID string, benchmark dataset.ModelSpec, interactive bool, rows []dataset.PanelRow, obs []Observation) (*dataset.MarginalResult, error) {
	augmented := Augment(benchmark, interactive)
	sample := e.BuildSample(rows, obs, augmented.Terms())

	benchSample := &Sample{
		Terms: benchmark.Terms(),
		Y:     sample.Y,
		Firm:  sample.Firm,
		Time:  sample.Time,
		Days:  sample.Days,
	}
	benchSample.X = make([][]float64, len(sample.X))
	for i, x := range sample.X {
		benchSample.X[i] = x[:len(benchmark.Terms()):len(benchmark.Terms())]
	}

	benchFit, err := e.Estimate(runID, benchmark, benchSample)
	if err != nil {
		return nil, err
	}
	augFit, err := e.Estimate(runID, augmented, sample)
	if err != nil {
		return nil, err
	}

	tstats := make(map[dataset.ClusterScheme]float64, len(e.cfg.ClusteringSchemes))
	for _, name := range e.cfg.ClusteringSchemes {
		scheme := dataset.ClusterScheme(name)
		tstats[scheme] = augFit.TStat(scheme, dataset.TermSentiment)
	}

	result := &dataset.MarginalResult{
		Benchmark:   benchFit,
		Augmented:   augFit,
		DeltaR2:     augFit.R2 - benchFit.R2,
		TStats:      tstats,
		Significant: e.isSignificant(tstats),
	}

	e.logger.Info("marginal contribution estimated",
		slog.String("benchmark", benchmark.Name),
		slog.String("augmented", augmented.Name),
		slog.Float64("delta_r2", result.DeltaR2),
		slog.Bool("significant", result.Significant))

	return result, nil
}

// QuickStats is the minimal refit product the resampling procedures need:
// coefficients, classic t-statistics and the residual sum of squares.
type QuickStats struct {
	Coef  map[string]float64
	TStat map[string]float64
	SSR   float64
	R2    float64
	N     int
}

// Quick refits a specification's sample with classic standard errors only.
// The resampling procedures call it thousands of times, so it skips the
// cluster-robust covariance work a full Estimate performs.
func (e *Estimator) Quick(s *Sample) (*QuickStats, error) {
	if s.N() < e.cfg.MinRegressionObs {
		return nil, apperrors.NewInsufficientData("resample", s.N(), e.cfg.MinRegressionObs)
	}

	fit, err := fitOLS(s)
	if err != nil {
		return nil, err
	}

	se, err := standardErrors(fit, s, dataset.ClusterNone)
	if err != nil {
		return nil, err
	}

	coef := make(map[string]float64, len(fit.coef))
	tstat := make(map[string]float64, len(fit.coef))
	names := append([]string{dataset.TermAlpha}, s.Terms...)
	for a, name := range names {
		coef[name] = fit.coef[a]
		if se[name] > 0 {
			tstat[name] = fit.coef[a] / se[name]
		}
	}

	var ssr float64
	for _, r := range fit.residuals {
		ssr += r * r
	}

	return &QuickStats{Coef: coef, TStat: tstat, SSR: ssr, R2: fit.r2, N: s.N()}, nil
}

// isSignificant applies the conservative rule: the sentiment t-statistic
// must clear the threshold under every configured clustering scheme, with
// a consistent sign.
func (e *Estimator) isSignificant(tstats map[dataset.ClusterScheme]float64) bool {
	if len(tstats) == 0 {
		return false
	}
	sign := 0
	for _, t := range tstats {
		if t > 0 {
			if sign < 0 {
				return false
			}
			sign = 1
		} else if t < 0 {
			if sign > 0 {
				return false
			}
			sign = -1
		}
		if math.Abs(t) < e.cfg.SignificanceThreshold {
			return false
		}
	}
	return sign != 0
}

// sampleWindow returns the earliest and latest observation days
func sampleWindow(days []time.Time) (time.Time, time.Time) {
	if len(days) == 0 {
		return time.Time{}, time.Time{}
	}
	sorted := append([]time.Time(nil), days...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })
	return sorted[0], sorted[len(sorted)-1]
}
