// Package exporter renders a completed run's results as CSV tables and an
// Excel workbook: marginal contributions, the robustness battery,
// heterogeneity slices, feature importance and panel descriptives.
package exporter

import (
	"fmt"
	"log/slog"

	"sentfactor/internal/config"
	"sentfactor/internal/operations"
)

// Exporter writes result tables in the configured formats
type Exporter struct {
	cfg    config.ExportConfig
	logger *slog.Logger
}

// New creates an exporter from the export configuration
func New(cfg config.ExportConfig, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "exporter")),
	}
}

// Export writes every result table of a completed run
func (e *Exporter) Export(state *operations.RunState) error {
	tables := buildTables(state)

	if e.cfg.Format == "csv" || e.cfg.Format == "both" {
		csvWriter := NewCSVWriter(e.cfg.OutputDir)
		for _, t := range tables {
			if err := csvWriter.WriteTable(t.Name+".csv", t.Headers, t.Records); err != nil {
				return fmt.Errorf("export %s: %w", t.Name, err)
			}
		}
	}

	if e.cfg.Format == "xlsx" || e.cfg.Format == "both" {
		excelWriter := NewExcelWriter(e.cfg.OutputDir)
		if err := excelWriter.WriteWorkbook(tables); err != nil {
			return fmt.Errorf("export workbook: %w", err)
		}
	}

	e.logger.Info("results exported",
		slog.String("output_dir", e.cfg.OutputDir),
		slog.String("format", e.cfg.Format),
		slog.Int("tables", len(tables)))

	return nil
}
