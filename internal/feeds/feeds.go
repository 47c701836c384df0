// Package feeds supplies the study's input series. A DataSource yields
// the instrument universe, price history, fundamentals, macro series and
// the news corpus; the pipeline never cares which variant produced them.
package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
)

// DataSource is the acquisition boundary of the pipeline
type DataSource interface {
	Instruments(ctx context.Context) ([]dataset.Instrument, error)
	Prices(ctx context.Context, calendar []time.Time) (map[string][]dataset.PriceBar, error)
	Fundamentals(ctx context.Context, calendar []time.Time) (map[string][]dataset.FundamentalRecord, error)
	Macro(ctx context.Context, calendar []time.Time) (map[string][]dataset.MacroObservation, error)
	News(ctx context.Context, calendar []time.Time) ([]dataset.NewsArticle, error)
}

// New selects the configured data source variant. Live market and news
// connectivity belongs to the excluded acquisition layer, so asking for it
// is a configuration error rather than a stub.
func New(cfg config.FeedsConfig, study config.StudyConfig, logger *slog.Logger) (DataSource, error) {
	switch cfg.Variant {
	case "synthetic":
		return NewSynthetic(cfg, study, logger), nil
	case "live":
		return nil, fmt.Errorf("live data feeds are not available in this build; use the synthetic variant")
	default:
		return nil, fmt.Errorf("unknown feeds variant %q", cfg.Variant)
	}
}
