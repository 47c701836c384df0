// Package robustness stress-tests an estimated sentiment effect: iid and
// moving-block bootstraps, label-shuffle placebo, structural-break tests
// and an alternative sentiment construction. Every procedure is seeded
// from the configured random seed, so a run is reproducible bit for bit.
package robustness

import (
	"context"
	"log/slog"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
	"sentfactor/internal/factors"
	"sentfactor/internal/infrastructure"
)

// Engine runs the robustness battery against one estimated fit
type Engine struct {
	cfg       config.RobustnessConfig
	threshold float64
	est       *factors.Estimator
	metrics   *infrastructure.Metrics
	logger    *slog.Logger
}

// NewEngine creates a robustness engine. The significance threshold comes
// from the estimation configuration so stability is judged by the same
// bar the estimator applies.
func NewEngine(cfg config.RobustnessConfig, estCfg config.EstimationConfig, est *factors.Estimator, metrics *infrastructure.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:       cfg,
		threshold: estCfg.SignificanceThreshold,
		est:       est,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "robustness_engine")),
	}
}

// Run executes the full battery for an augmented fit. rows is the study
// panel, altRows the panel built with the alternative (median-based)
// sentiment construction, obs the factor series. Procedures run in
// parallel under the configured concurrency bound; each derives its own
// rand source from the configured seed so scheduling never changes
// results.
func (en *Engine) Run(ctx context.Context, fit *dataset.ModelFit, rows, altRows []dataset.PanelRow, obs []factors.Observation) ([]dataset.RobustnessResult, error) {
	sample := en.est.BuildSample(rows, obs, fit.Spec.Terms())
	observed, err := en.est.Quick(sample)
	if err != nil {
		return nil, err
	}

	breakResults := len(en.cfg.BreakDates)
	results := make([][]dataset.RobustnessResult, 5)

	g, gctx := errgroup.WithContext(ctx)
	if en.cfg.MaxConcurrency > 0 {
		g.SetLimit(en.cfg.MaxConcurrency)
	}

	g.Go(func() error {
		r, err := en.bootstrap(gctx, fit, sample, observed, false, rand.New(rand.NewSource(en.cfg.RandomSeed+1)))
		if err != nil {
			return err
		}
		results[0] = []dataset.RobustnessResult{r}
		return nil
	})
	g.Go(func() error {
		r, err := en.bootstrap(gctx, fit, sample, observed, true, rand.New(rand.NewSource(en.cfg.RandomSeed+2)))
		if err != nil {
			return err
		}
		results[1] = []dataset.RobustnessResult{r}
		return nil
	})
	g.Go(func() error {
		r, err := en.labelShuffle(gctx, fit, sample, observed, rand.New(rand.NewSource(en.cfg.RandomSeed+3)))
		if err != nil {
			return err
		}
		results[2] = []dataset.RobustnessResult{r}
		return nil
	})
	g.Go(func() error {
		rs, err := en.structuralBreaks(fit, sample, observed)
		if err != nil {
			return err
		}
		results[3] = rs
		return nil
	})
	g.Go(func() error {
		r, err := en.alternativeMeasure(fit, altRows, obs, observed)
		if err != nil {
			if apperrors.IsInsufficientData(err) {
				en.logger.Warn("alternative measure not estimable", slog.String("error", err.Error()))
				return nil
			}
			return err
		}
		results[4] = []dataset.RobustnessResult{r}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]dataset.RobustnessResult, 0, 4+breakResults)
	for _, rs := range results {
		out = append(out, rs...)
	}

	en.logger.Info("robustness battery completed",
		slog.String("fit_id", fit.ID),
		slog.Int("results", len(out)))

	return out, nil
}

// countIterations feeds the resample counter when metrics are wired
func (en *Engine) countIterations(ctx context.Context, n int64) {
	if en.metrics != nil && en.metrics.ResampleIterations != nil {
		en.metrics.ResampleIterations.Add(ctx, n)
	}
}

// subSample materializes a resampled Sample from base-row indices
func subSample(s *factors.Sample, idx []int) *factors.Sample {
	out := &factors.Sample{Terms: s.Terms}
	out.Y = make([]float64, len(idx))
	out.X = make([][]float64, len(idx))
	out.Firm = make([]int, len(idx))
	out.Time = make([]int, len(idx))
	for i, j := range idx {
		out.Y[i] = s.Y[j]
		out.X[i] = s.X[j]
		out.Firm[i] = s.Firm[j]
		out.Time[i] = s.Time[j]
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
