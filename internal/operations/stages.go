package operations

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"sentfactor/internal/align"
	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	"sentfactor/internal/factors"
	"sentfactor/internal/feeds"
	"sentfactor/internal/heterogeneity"
	"sentfactor/internal/infrastructure"
	"sentfactor/internal/panel"
	"sentfactor/internal/robustness"
	"sentfactor/internal/sentiment"
)

// Stage identifiers in execution order
const (
	StageAcquire       = "acquire"
	StageSentiment     = "sentiment"
	StagePanel         = "panel"
	StageEstimation    = "estimation"
	StageRobustness    = "robustness"
	StageHeterogeneity = "heterogeneity"
)

// AcquireStage pulls the raw inputs from the configured data source
type AcquireStage struct {
	source  feeds.DataSource
	aligner *align.Aligner
}

// NewAcquireStage creates the acquisition stage
func NewAcquireStage(source feeds.DataSource, aligner *align.Aligner) *AcquireStage {
	return &AcquireStage{source: source, aligner: aligner}
}

func (s *AcquireStage) ID() string   { return StageAcquire }
func (s *AcquireStage) Name() string { return "Data Acquisition" }

func (s *AcquireStage) Execute(ctx context.Context, state *RunState) error {
	calendar := s.aligner.TradingDays()

	instruments, err := s.source.Instruments(ctx)
	if err != nil {
		return fmt.Errorf("load instruments: %w", err)
	}
	prices, err := s.source.Prices(ctx, calendar)
	if err != nil {
		return fmt.Errorf("load prices: %w", err)
	}
	fundamentals, err := s.source.Fundamentals(ctx, calendar)
	if err != nil {
		return fmt.Errorf("load fundamentals: %w", err)
	}
	macro, err := s.source.Macro(ctx, calendar)
	if err != nil {
		return fmt.Errorf("load macro series: %w", err)
	}
	articles, err := s.source.News(ctx, calendar)
	if err != nil {
		return fmt.Errorf("load news corpus: %w", err)
	}

	state.Artifacts.Instruments = instruments
	state.Artifacts.Prices = prices
	state.Artifacts.Fundamentals = fundamentals
	state.Artifacts.Macro = macro
	state.Artifacts.Articles = articles
	return nil
}

// SentimentStage scores the corpus and aggregates stock-day features,
// including the median-based alternative series the robustness battery
// compares against.
type SentimentStage struct {
	scorer     *sentiment.Scorer
	aggregator *sentiment.Aggregator
	aligner    *align.Aligner
	metrics    *infrastructure.Metrics
	workers    int
}

// NewSentimentStage creates the scoring and aggregation stage
func NewSentimentStage(scorer *sentiment.Scorer, aggregator *sentiment.Aggregator, aligner *align.Aligner, metrics *infrastructure.Metrics, workers int) *SentimentStage {
	return &SentimentStage{scorer: scorer, aggregator: aggregator, aligner: aligner, metrics: metrics, workers: workers}
}

func (s *SentimentStage) ID() string   { return StageSentiment }
func (s *SentimentStage) Name() string { return "Sentiment Scoring" }

func (s *SentimentStage) Execute(ctx context.Context, state *RunState) error {
	scores, err := s.scorer.ScoreAll(ctx, state.Artifacts.Articles, s.workers)
	if err != nil {
		return fmt.Errorf("score articles: %w", err)
	}
	if s.metrics != nil && s.metrics.ArticlesScored != nil {
		s.metrics.ArticlesScored.Add(ctx, int64(len(scores)))
	}

	calendar := s.aligner.TradingDays()
	state.Artifacts.Scores = scores
	state.Artifacts.Sentiment = s.aggregator.Aggregate(calendar, scores)
	state.Artifacts.AltSentiment = s.aggregator.AggregateMedian(calendar, scores)
	return nil
}

// PanelStage joins the aligned sources into the study panel and its
// alternative-sentiment twin.
type PanelStage struct {
	builder *panel.Builder
	metrics *infrastructure.Metrics
	workers int
}

// NewPanelStage creates the panel assembly stage
func NewPanelStage(builder *panel.Builder, metrics *infrastructure.Metrics, workers int) *PanelStage {
	return &PanelStage{builder: builder, metrics: metrics, workers: workers}
}

func (s *PanelStage) ID() string   { return StagePanel }
func (s *PanelStage) Name() string { return "Panel Assembly" }

func (s *PanelStage) Execute(ctx context.Context, state *RunState) error {
	inputs := panel.Inputs{
		Prices:       state.Artifacts.Prices,
		Fundamentals: state.Artifacts.Fundamentals,
		Macro:        state.Artifacts.Macro,
		Sentiment:    state.Artifacts.Sentiment,
	}
	rows, err := s.builder.Build(ctx, inputs, s.workers)
	if err != nil {
		return fmt.Errorf("build panel: %w", err)
	}

	inputs.Sentiment = state.Artifacts.AltSentiment
	altRows, err := s.builder.Build(ctx, inputs, s.workers)
	if err != nil {
		return fmt.Errorf("build alternative panel: %w", err)
	}

	if s.metrics != nil && s.metrics.PanelRowsBuilt != nil {
		s.metrics.PanelRowsBuilt.Add(ctx, int64(len(rows)))
	}

	state.Artifacts.Panel = rows
	state.Artifacts.AltPanel = altRows
	return nil
}

// EstimationStage constructs the factor series and fits the nested model
// family with and without the sentiment feature.
type EstimationStage struct {
	factorBuilder *factors.FactorBuilder
	estimator     *factors.Estimator
	importance    *factors.FeatureImportance
	aligner       *align.Aligner
	seed          int64
}

// NewEstimationStage creates the estimation stage
func NewEstimationStage(factorBuilder *factors.FactorBuilder, estimator *factors.Estimator, importance *factors.FeatureImportance, aligner *align.Aligner, seed int64) *EstimationStage {
	return &EstimationStage{
		factorBuilder: factorBuilder,
		estimator:     estimator,
		importance:    importance,
		aligner:       aligner,
		seed:          seed,
	}
}

func (s *EstimationStage) ID() string   { return StageEstimation }
func (s *EstimationStage) Name() string { return "Factor Model Estimation" }

func (s *EstimationStage) Execute(ctx context.Context, state *RunState) error {
	calendar := s.aligner.TradingDays()
	obs := s.factorBuilder.Build(calendar, state.Artifacts.Panel)
	state.Artifacts.Factors = obs

	var marginals []dataset.MarginalResult
	for _, benchmark := range factors.BenchmarkSpecs() {
		for _, interactive := range []bool{false, true} {
			marginal, err := s.estimator.Marginal(state.ID, benchmark, interactive, state.Artifacts.Panel, obs)
			if err != nil {
				return fmt.Errorf("estimate %s (interactive=%v): %w", benchmark.Name, interactive, err)
			}
			marginals = append(marginals, *marginal)
		}
	}
	state.Artifacts.Marginals = marginals

	// Importance diagnostics run on the richest augmented specification
	richest := factors.Augment(factors.BenchmarkSpecs()[len(factors.BenchmarkSpecs())-1], false)
	sample := s.estimator.BuildSample(state.Artifacts.Panel, obs, richest.Terms())
	state.Artifacts.Importance = s.importance.Rank(sample, rand.New(rand.NewSource(s.seed)))

	return nil
}

// RobustnessStage runs the resampling battery against the headline fit:
// the richest benchmark's additive sentiment augmentation.
type RobustnessStage struct {
	engine *robustness.Engine
}

// NewRobustnessStage creates the robustness stage
func NewRobustnessStage(engine *robustness.Engine) *RobustnessStage {
	return &RobustnessStage{engine: engine}
}

func (s *RobustnessStage) ID() string   { return StageRobustness }
func (s *RobustnessStage) Name() string { return "Robustness Battery" }

func (s *RobustnessStage) Execute(ctx context.Context, state *RunState) error {
	fit := headlineFit(state.Artifacts.Marginals)
	if fit == nil {
		return fmt.Errorf("no estimated fit available for robustness testing")
	}

	results, err := s.engine.Run(ctx, fit, state.Artifacts.Panel, state.Artifacts.AltPanel, state.Artifacts.Factors)
	if err != nil {
		return fmt.Errorf("robustness battery: %w", err)
	}
	state.Artifacts.Robustness = results
	return nil
}

// HeterogeneityStage re-estimates the effect inside panel slices
type HeterogeneityStage struct {
	analyzer *heterogeneity.Analyzer
	cfg      config.RobustnessConfig
}

// NewHeterogeneityStage creates the heterogeneity stage
func NewHeterogeneityStage(analyzer *heterogeneity.Analyzer, cfg config.RobustnessConfig) *HeterogeneityStage {
	return &HeterogeneityStage{analyzer: analyzer, cfg: cfg}
}

func (s *HeterogeneityStage) ID() string   { return StageHeterogeneity }
func (s *HeterogeneityStage) Name() string { return "Heterogeneity Analysis" }

func (s *HeterogeneityStage) Execute(ctx context.Context, state *RunState) error {
	benchmark := factors.BenchmarkSpecs()[len(factors.BenchmarkSpecs())-1]
	state.Artifacts.Groups = s.analyzer.Analyze(
		state.ID, benchmark, false,
		state.Artifacts.Instruments,
		state.Artifacts.Panel,
		state.Artifacts.Factors,
		parseDates(s.cfg.BreakDates),
	)
	return nil
}

// parseDates converts validated YYYY-MM-DD strings to times
func parseDates(dates []string) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if t, err := time.Parse("2006-01-02", d); err == nil {
			out = append(out, t)
		}
	}
	return out
}

// headlineFit picks the additive augmentation of the richest benchmark
func headlineFit(marginals []dataset.MarginalResult) *dataset.ModelFit {
	specs := factors.BenchmarkSpecs()
	richest := specs[len(specs)-1].Name
	for _, m := range marginals {
		if m.Benchmark != nil && m.Benchmark.Spec.Name == richest &&
			m.Augmented != nil && !m.Augmented.Spec.Interactive {
			return m.Augmented
		}
	}
	return nil
}
