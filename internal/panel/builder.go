// Package panel assembles the study panel: one immutable row per
// (instrument, trading day) joining prices, point-in-time fundamentals,
// macro snapshots, trailing technicals and stock-day sentiment. The panel
// is complete by construction: |instruments| x |trading days| rows, with
// explicit missing markers where a field is unavailable.
package panel

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sentfactor/internal/align"
	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
)

// Inputs bundles the per-source series the builder joins. Price bars and
// fundamentals are keyed by symbol; macro observations by series name;
// sentiment aggregates by symbol, calendar-parallel.
type Inputs struct {
	Prices       map[string][]dataset.PriceBar
	Fundamentals map[string][]dataset.FundamentalRecord
	Macro        map[string][]dataset.MacroObservation
	Sentiment    map[string][]dataset.SentimentAggregate
}

// Builder joins the aligned sources into panel rows
type Builder struct {
	cfg     config.StudyConfig
	aligner *align.Aligner
	logger  *slog.Logger
}

// NewBuilder creates a panel builder over the aligner's trading calendar
func NewBuilder(cfg config.StudyConfig, aligner *align.Aligner, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		cfg:     cfg,
		aligner: aligner,
		logger:  logger.With(slog.String("component", "panel_builder")),
	}
}

// Build assembles the panel for the configured universe. Instruments are
// processed in parallel with bounded concurrency; each worker writes only
// its own row block. Rows come back sorted by (symbol, day) and the row
// count always equals universe size times calendar length.
func (b *Builder) Build(ctx context.Context, in Inputs, maxConcurrency int) ([]dataset.PanelRow, error) {
	calendar := b.aligner.TradingDays()
	universe := append([]string(nil), b.cfg.Universe...)
	sort.Strings(universe)

	macroSnapshots, err := b.alignMacro(in.Macro)
	if err != nil {
		return nil, err
	}

	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	blocks := make([][]dataset.PanelRow, len(universe))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i, symbol := range universe {
		i, symbol := i, symbol
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			rows, err := b.buildInstrument(symbol, calendar, in, macroSnapshots)
			if err != nil {
				return err
			}
			blocks[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]dataset.PanelRow, 0, len(universe)*len(calendar))
	for _, block := range blocks {
		rows = append(rows, block...)
	}

	if err := verifyIntegrity(rows, len(universe), len(calendar)); err != nil {
		return nil, err
	}

	b.logger.Info("panel assembled",
		slog.Int("instruments", len(universe)),
		slog.Int("trading_days", len(calendar)),
		slog.Int("rows", len(rows)))

	return rows, nil
}

// buildInstrument assembles one instrument's calendar-length row block
func (b *Builder) buildInstrument(symbol string, calendar []time.Time, in Inputs, macro []map[string]dataset.Optional) ([]dataset.PanelRow, error) {
	closes, returns, volumes, err := b.alignPrices(symbol, calendar, in.Prices[symbol])
	if err != nil {
		return nil, err
	}

	fundSnapshots, err := b.aligner.AlignFundamentals(symbol, in.Fundamentals[symbol])
	if err != nil {
		return nil, err
	}

	technicals := computeTechnicals(closes, returns)
	sentiments := in.Sentiment[symbol]

	rows := make([]dataset.PanelRow, len(calendar))
	for i, day := range calendar {
		row := dataset.PanelRow{
			Symbol:     symbol,
			Day:        day,
			Close:      closes[i],
			Return:     returns[i],
			Volume:     volumes[i],
			Macro:      macro[i],
			Technicals: technicals[i],
			Sentiment:  dataset.NoSentimentData(),
		}

		row.Fundamentals = make(map[string]dataset.Optional, len(b.cfg.FundamentalIndicators))
		for _, name := range b.cfg.FundamentalIndicators {
			row.Fundamentals[name] = dataset.Optional{}
			if rec := fundSnapshots[i].Record; rec != nil {
				if v, ok := rec.Indicators[name]; ok {
					row.Fundamentals[name] = dataset.NewOptional(v)
				}
			}
		}

		if i < len(sentiments) {
			row.Sentiment = sentiments[i]
		}
		if i > 0 && i-1 < len(sentiments) && sentiments[i-1].HasData() {
			row.SentimentLag1 = sentiments[i-1].Mean
		}

		rows[i] = row
	}
	return rows, nil
}

// alignPrices maps price bars onto the calendar. Duplicate bars for a day
// or bars on non-trading days violate panel integrity.
func (b *Builder) alignPrices(symbol string, calendar []time.Time, bars []dataset.PriceBar) (closes, returns, volumes []dataset.Optional, err error) {
	dayIndex := make(map[string]int, len(calendar))
	for i, d := range calendar {
		dayIndex[d.Format("2006-01-02")] = i
	}

	closes = make([]dataset.Optional, len(calendar))
	returns = make([]dataset.Optional, len(calendar))
	volumes = make([]dataset.Optional, len(calendar))
	seen := make(map[int]struct{}, len(bars))

	for _, bar := range bars {
		day := align.Normalize(bar.Day)
		idx, ok := dayIndex[day.Format("2006-01-02")]
		if !ok {
			return nil, nil, nil, apperrors.NewPanelIntegrity(symbol, day,
				"price bar on non-trading day")
		}
		if _, dup := seen[idx]; dup {
			return nil, nil, nil, apperrors.NewPanelIntegrity(symbol, day,
				"duplicate price bar for trading day")
		}
		seen[idx] = struct{}{}
		closes[idx] = dataset.NewOptional(bar.Close)
		returns[idx] = dataset.NewOptional(bar.Return)
		volumes[idx] = dataset.NewOptional(bar.Volume)
	}
	return closes, returns, volumes, nil
}

// alignMacro resolves every configured macro series once; the snapshots
// are shared read-only across instrument workers.
func (b *Builder) alignMacro(macro map[string][]dataset.MacroObservation) ([]map[string]dataset.Optional, error) {
	calendar := b.aligner.TradingDays()
	out := make([]map[string]dataset.Optional, len(calendar))
	for i := range out {
		out[i] = make(map[string]dataset.Optional, len(b.cfg.MacroIndicators))
	}

	for _, series := range b.cfg.MacroIndicators {
		snapshots, err := b.aligner.AlignMacro(series, macro[series])
		if err != nil {
			return nil, err
		}
		for i, snap := range snapshots {
			out[i][series] = snap.Value
		}
	}
	return out, nil
}

// verifyIntegrity checks completeness and key uniqueness of the final panel
func verifyIntegrity(rows []dataset.PanelRow, instruments, days int) error {
	if len(rows) != instruments*days {
		return apperrors.NewPanelIntegrity("", time.Time{},
			"panel row count does not match universe size times calendar length")
	}
	keys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		k := row.Key()
		if _, dup := keys[k]; dup {
			return apperrors.NewPanelIntegrity(row.Symbol, row.Day, "duplicate panel key")
		}
		keys[k] = struct{}{}
	}
	return nil
}
