// Package heterogeneity re-estimates the sentiment effect within slices
// of the panel: capitalization buckets, industries and time regimes. A
// slice too thin to estimate is reported as not estimable, never silently
// dropped and never allowed to fail the run.
package heterogeneity

import (
	"log/slog"
	"sort"
	"time"

	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
	"sentfactor/internal/factors"
)

// Analyzer runs the group-level estimations
type Analyzer struct {
	est    *factors.Estimator
	logger *slog.Logger
}

// NewAnalyzer creates a heterogeneity analyzer over the shared estimator
func NewAnalyzer(est *factors.Estimator, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		est:    est,
		logger: logger.With(slog.String("component", "heterogeneity_analyzer")),
	}
}

// Analyze estimates the benchmark-versus-augmented marginal result inside
// each group of each dimension. Break dates delimit the time regimes.
// Results come back in deterministic (dimension, group) order.
func (a *Analyzer) Analyze(runID string, benchmark dataset.ModelSpec, interactive bool, instruments []dataset.Instrument, rows []dataset.PanelRow, obs []factors.Observation, breakDates []time.Time) []dataset.GroupResult {
	var out []dataset.GroupResult

	out = append(out, a.analyzeDimension(runID, benchmark, interactive, dataset.GroupByCapBucket,
		groupRowsBy(rows, instruments, func(in dataset.Instrument) string { return string(in.Bucket) }), obs)...)

	out = append(out, a.analyzeDimension(runID, benchmark, interactive, dataset.GroupByIndustry,
		groupRowsBy(rows, instruments, func(in dataset.Instrument) string { return in.Industry }), obs)...)

	out = append(out, a.analyzeDimension(runID, benchmark, interactive, dataset.GroupByRegime,
		groupRowsByRegime(rows, breakDates), obs)...)

	return out
}

// analyzeDimension runs one slicing dimension's groups in name order
func (a *Analyzer) analyzeDimension(runID string, benchmark dataset.ModelSpec, interactive bool, dim dataset.GroupDimension, groups map[string][]dataset.PanelRow, obs []factors.Observation) []dataset.GroupResult {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]dataset.GroupResult, 0, len(names))
	for _, name := range names {
		result := dataset.GroupResult{Dimension: dim, Group: name}

		marginal, err := a.est.Marginal(runID, benchmark, interactive, groups[name], obs)
		if err != nil {
			if apperrors.IsInsufficientData(err) {
				result.Reason = err.Error()
				a.logger.Warn("group not estimable",
					slog.String("dimension", string(dim)),
					slog.String("group", name),
					slog.String("reason", err.Error()))
				out = append(out, result)
				continue
			}
			// Singular designs inside a thin slice get the same treatment
			result.Reason = err.Error()
			out = append(out, result)
			continue
		}

		result.Estimable = true
		result.Fit = marginal.Augmented
		result.Marginal = marginal
		out = append(out, result)
	}
	return out
}

// groupRowsBy partitions panel rows by an instrument attribute
func groupRowsBy(rows []dataset.PanelRow, instruments []dataset.Instrument, attr func(dataset.Instrument) string) map[string][]dataset.PanelRow {
	bySymbol := make(map[string]string, len(instruments))
	for _, in := range instruments {
		bySymbol[in.Symbol] = attr(in)
	}

	out := make(map[string][]dataset.PanelRow)
	for _, row := range rows {
		group, ok := bySymbol[row.Symbol]
		if !ok || group == "" {
			continue
		}
		out[group] = append(out[group], row)
	}
	return out
}

// groupRowsByRegime partitions rows into the time segments delimited by
// the candidate break dates.
func groupRowsByRegime(rows []dataset.PanelRow, breakDates []time.Time) map[string][]dataset.PanelRow {
	sorted := append([]time.Time(nil), breakDates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	label := func(day time.Time) string {
		for i := len(sorted) - 1; i >= 0; i-- {
			if !day.Before(sorted[i]) {
				return "from_" + sorted[i].Format("2006-01-02")
			}
		}
		if len(sorted) > 0 {
			return "before_" + sorted[0].Format("2006-01-02")
		}
		return "full_window"
	}

	out := make(map[string][]dataset.PanelRow)
	for _, row := range rows {
		g := label(row.Day)
		out[g] = append(out[g], row)
	}
	return out
}
