// Command study runs the full sentiment-pricing pipeline: acquisition,
// sentiment scoring, panel assembly, estimation, robustness and
// heterogeneity, then exports the result tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"sentfactor/internal/align"
	"sentfactor/internal/config"
	"sentfactor/internal/exporter"
	"sentfactor/internal/factors"
	"sentfactor/internal/feeds"
	"sentfactor/internal/heterogeneity"
	"sentfactor/internal/infrastructure"
	"sentfactor/internal/operations"
	"sentfactor/internal/panel"
	"sentfactor/internal/robustness"
	"sentfactor/internal/sentiment"
)

const importanceBags = 200

func main() {
	configFile := flag.String("config", "study.yaml", "path to the study configuration file")
	outputDir := flag.String("output", "", "override the configured output directory")
	flag.Parse()

	if err := run(*configFile, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "study failed: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile, outputDir string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if outputDir != "" {
		cfg.Export.OutputDir = outputDir
	}

	logger, closeLogger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer closeLogger()
	slog.SetDefault(logger)

	metrics, err := infrastructure.InitializeMetrics()
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer metrics.Shutdown(context.Background())

	start, end := cfg.Window()
	aligner := align.NewAligner(start, end, cfg.HolidayDates(), logger)

	source, err := feeds.New(cfg.Feeds, cfg.Study, logger)
	if err != nil {
		return fmt.Errorf("initialize data source: %w", err)
	}

	scorer := sentiment.NewScorer(cfg.Sentiment, logger)
	aggregator := sentiment.NewAggregator(cfg.Sentiment, cfg.Study.Universe, logger)
	builder := panel.NewBuilder(cfg.Study, aligner, logger)
	factorBuilder := factors.NewFactorBuilder(cfg.Estimation.MomentumLookback, logger)
	estimator := factors.NewEstimator(cfg.Estimation, logger)
	importance := factors.NewFeatureImportance(importanceBags, logger)
	engine := robustness.NewEngine(cfg.Robustness, cfg.Estimation, estimator, metrics, logger)
	analyzer := heterogeneity.NewAnalyzer(estimator, logger)

	workers := cfg.Robustness.MaxConcurrency
	manager := operations.NewManager([]operations.Step{
		operations.NewAcquireStage(source, aligner),
		operations.NewSentimentStage(scorer, aggregator, aligner, metrics, workers),
		operations.NewPanelStage(builder, metrics, workers),
		operations.NewEstimationStage(factorBuilder, estimator, importance, aligner, cfg.Robustness.RandomSeed),
		operations.NewRobustnessStage(engine),
		operations.NewHeterogeneityStage(analyzer, cfg.Robustness),
	}, metrics, logger)

	state, err := manager.Execute(ctx)
	if err != nil {
		return err
	}

	if err := exporter.New(cfg.Export, logger).Export(state); err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	logger.Info("study finished",
		slog.String("run_id", state.ID),
		slog.String("output_dir", cfg.Export.OutputDir))

	return nil
}
