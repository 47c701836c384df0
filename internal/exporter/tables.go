package exporter

import (
	"fmt"
	"math"
	"sort"

	"sentfactor/internal/dataset"
	"sentfactor/internal/operations"
)

// table is one exportable result table
type table struct {
	Name    string
	Headers []string
	Records [][]string
}

// buildTables converts a completed run's artifacts into the export tables
func buildTables(state *operations.RunState) []table {
	return []table{
		marginalTable(state.Artifacts.Marginals),
		robustnessTable(state.Artifacts.Robustness),
		groupTable(state.Artifacts.Groups),
		importanceTable(state.Artifacts.Importance),
		descriptiveTable(state.Artifacts.Panel),
		panelTable(state.Artifacts.Panel),
	}
}

// panelTable renders the study panel row-per-observation. Missing fields
// carry the explicit NA marker rather than a synthetic value.
func panelTable(rows []dataset.PanelRow) table {
	t := table{
		Name: "panel",
		Headers: []string{
			"symbol", "day", "close", "return", "volume",
			"sentiment_mean", "sentiment_volatility", "sentiment_momentum",
			"sentiment_extreme_rate", "sentiment_articles", "sentiment_regime",
			"sentiment_lag1",
		},
	}

	var fundamentalKeys, macroKeys, technicalKeys []string
	if len(rows) > 0 {
		fundamentalKeys = sortedKeys(rows[0].Fundamentals)
		macroKeys = sortedKeys(rows[0].Macro)
		technicalKeys = sortedKeys(rows[0].Technicals)
		t.Headers = append(t.Headers, fundamentalKeys...)
		t.Headers = append(t.Headers, macroKeys...)
		t.Headers = append(t.Headers, technicalKeys...)
	}

	for _, row := range rows {
		rec := []string{
			row.Symbol,
			row.Day.Format("2006-01-02"),
			row.Close.String(),
			row.Return.String(),
			row.Volume.String(),
			row.Sentiment.Mean.String(),
			row.Sentiment.Volatility.String(),
			row.Sentiment.Momentum.String(),
			row.Sentiment.ExtremeRate.String(),
			formatInt(int64(row.Sentiment.Articles)),
			string(row.Sentiment.Regime),
			row.SentimentLag1.String(),
		}
		for _, k := range fundamentalKeys {
			rec = append(rec, row.Fundamentals[k].String())
		}
		for _, k := range macroKeys {
			rec = append(rec, row.Macro[k].String())
		}
		for _, k := range technicalKeys {
			rec = append(rec, row.Technicals[k].String())
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func sortedKeys(m map[string]dataset.Optional) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func marginalTable(marginals []dataset.MarginalResult) table {
	t := table{
		Name: "marginals",
		Headers: []string{
			"benchmark", "augmented", "observations",
			"benchmark_r2", "augmented_r2", "delta_r2",
			"sentiment_coef", "t_none", "t_firm", "t_time", "t_twoway",
			"significant",
		},
	}
	for _, m := range marginals {
		if m.Benchmark == nil || m.Augmented == nil {
			continue
		}
		t.Records = append(t.Records, []string{
			m.Benchmark.Spec.Name,
			m.Augmented.Spec.Name,
			formatInt(int64(m.Augmented.Observations)),
			formatFloat(m.Benchmark.R2),
			formatFloat(m.Augmented.R2),
			formatFloat(m.DeltaR2),
			formatFloat(m.Augmented.Coef[dataset.TermSentiment]),
			formatFloat(m.TStats[dataset.ClusterNone]),
			formatFloat(m.TStats[dataset.ClusterFirm]),
			formatFloat(m.TStats[dataset.ClusterTime]),
			formatFloat(m.TStats[dataset.ClusterTwoWay]),
			formatBool(m.Significant),
		})
	}
	return t
}

func robustnessTable(results []dataset.RobustnessResult) table {
	t := table{
		Name:    "robustness",
		Headers: []string{"procedure", "statistic", "value", "iterations", "detail", "detail_value"},
	}
	for _, r := range results {
		base := []string{
			string(r.Procedure), r.Statistic,
			formatFloat(r.Value), formatInt(int64(r.Iterations)),
		}
		if len(r.Details) == 0 {
			t.Records = append(t.Records, append(base, "", ""))
			continue
		}
		keys := make([]string, 0, len(r.Details))
		for k := range r.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.Records = append(t.Records, append(append([]string(nil), base...), k, formatFloat(r.Details[k])))
		}
	}
	return t
}

func groupTable(groups []dataset.GroupResult) table {
	t := table{
		Name: "heterogeneity",
		Headers: []string{
			"dimension", "group", "estimable", "reason",
			"observations", "delta_r2", "sentiment_coef", "significant",
		},
	}
	for _, g := range groups {
		record := []string{string(g.Dimension), g.Group, formatBool(g.Estimable), g.Reason}
		if g.Estimable && g.Marginal != nil && g.Fit != nil {
			record = append(record,
				formatInt(int64(g.Fit.Observations)),
				formatFloat(g.Marginal.DeltaR2),
				formatFloat(g.Fit.Coef[dataset.TermSentiment]),
				formatBool(g.Marginal.Significant))
		} else {
			record = append(record, "", "", "", "")
		}
		t.Records = append(t.Records, record)
	}
	return t
}

func importanceTable(importance map[string]float64) table {
	t := table{
		Name:    "importance",
		Headers: []string{"feature", "importance"},
	}
	features := make([]string, 0, len(importance))
	for f := range importance {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool {
		if importance[features[i]] != importance[features[j]] {
			return importance[features[i]] > importance[features[j]]
		}
		return features[i] < features[j]
	})
	for _, f := range features {
		t.Records = append(t.Records, []string{f, formatFloat(importance[f])})
	}
	return t
}

// descriptiveTable summarises the panel's key columns: observation count,
// coverage, mean, standard deviation, minimum and maximum.
func descriptiveTable(rows []dataset.PanelRow) table {
	t := table{
		Name:    "descriptives",
		Headers: []string{"column", "count", "coverage", "mean", "sd", "min", "max"},
	}

	columns := []struct {
		name  string
		value func(dataset.PanelRow) (float64, bool)
	}{
		{"return", func(r dataset.PanelRow) (float64, bool) { return r.Return.Float64() }},
		{"close", func(r dataset.PanelRow) (float64, bool) { return r.Close.Float64() }},
		{"volume", func(r dataset.PanelRow) (float64, bool) { return r.Volume.Float64() }},
		{"sentiment_mean", func(r dataset.PanelRow) (float64, bool) { return r.Sentiment.Mean.Float64() }},
		{"sentiment_volatility", func(r dataset.PanelRow) (float64, bool) { return r.Sentiment.Volatility.Float64() }},
		{"sentiment_momentum", func(r dataset.PanelRow) (float64, bool) { return r.Sentiment.Momentum.Float64() }},
		{"sentiment_extreme_rate", func(r dataset.PanelRow) (float64, bool) { return r.Sentiment.ExtremeRate.Float64() }},
		{"sentiment_lag1", func(r dataset.PanelRow) (float64, bool) { return r.SentimentLag1.Float64() }},
	}

	for _, col := range columns {
		var vals []float64
		for _, row := range rows {
			if v, ok := col.value(row); ok {
				vals = append(vals, v)
			}
		}
		coverage := 0.0
		if len(rows) > 0 {
			coverage = float64(len(vals)) / float64(len(rows))
		}
		mean, sd, lo, hi := stats(vals)
		t.Records = append(t.Records, []string{
			col.name,
			formatInt(int64(len(vals))),
			formatFloat(coverage),
			formatFloat(mean),
			formatFloat(sd),
			formatFloat(lo),
			formatFloat(hi),
		})
	}
	return t
}

func stats(vals []float64) (mean, sd, lo, hi float64) {
	if len(vals) == 0 {
		return 0, 0, 0, 0
	}
	lo, hi = vals[0], vals[0]
	for _, v := range vals {
		mean += v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	mean /= float64(len(vals))
	if len(vals) > 1 {
		var ss float64
		for _, v := range vals {
			d := v - mean
			ss += d * d
		}
		sd = math.Sqrt(ss / float64(len(vals)-1))
	}
	return mean, sd, lo, hi
}

// formatFloat renders a float with six decimals, enough for daily returns
// and coefficients.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.6f", f)
}

func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
