package sentiment

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
)

// Aggregator reduces per-article scores to stock-day sentiment features:
// mean, intraday volatility, momentum versus the prior aggregation window
// and extreme-event rate. Aggregation is deterministic: the same article
// set always produces bit-identical features.
type Aggregator struct {
	extremeThreshold float64
	momentumWindow   int
	broadcast        bool
	universe         []string
	logger           *slog.Logger
}

// NewAggregator creates an aggregator from the sentiment configuration and
// the instrument universe (used only under the broadcast policy).
func NewAggregator(cfg config.SentimentConfig, universe []string, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		extremeThreshold: cfg.ExtremeThreshold,
		momentumWindow:   cfg.MomentumWindow,
		broadcast:        cfg.UnlinkedNewsPolicy == "broadcast",
		universe:         universe,
		logger:           logger.With(slog.String("component", "sentiment_aggregator")),
	}
}

// Aggregate produces, for every symbol, a slice of stock-day aggregates
// parallel to the trading calendar. Days with zero linked articles carry
// the explicit no-data marker. Articles with no resolvable instrument are
// dropped unless the broadcast policy is configured, in which case they
// contribute to every instrument.
func (ag *Aggregator) Aggregate(calendar []time.Time, scores []dataset.ArticleScore) map[string][]dataset.SentimentAggregate {
	return ag.aggregate(calendar, scores, false)
}

// AggregateMedian is the alternative construction used by the robustness
// battery: the daily center is the median article score instead of the
// mean. Everything else matches Aggregate.
func (ag *Aggregator) AggregateMedian(calendar []time.Time, scores []dataset.ArticleScore) map[string][]dataset.SentimentAggregate {
	return ag.aggregate(calendar, scores, true)
}

func (ag *Aggregator) aggregate(calendar []time.Time, scores []dataset.ArticleScore, median bool) map[string][]dataset.SentimentAggregate {
	dayIndex := make(map[string]int, len(calendar))
	for i, d := range calendar {
		dayIndex[d.Format("2006-01-02")] = i
	}

	// Bucket scores by (symbol, day index); sort within buckets by
	// article ID so summation order never depends on input order.
	type bucketKey struct {
		symbol string
		day    int
	}
	buckets := make(map[bucketKey][]dataset.ArticleScore)
	dropped := 0

	for _, sc := range scores {
		idx, ok := dayIndex[sc.Day.Format("2006-01-02")]
		if !ok {
			continue // outside the study calendar
		}
		symbols := sc.Symbols
		if len(symbols) == 0 {
			if !ag.broadcast {
				dropped++
				continue
			}
			symbols = ag.universe
		}
		for _, sym := range symbols {
			k := bucketKey{symbol: sym, day: idx}
			buckets[k] = append(buckets[k], sc)
		}
	}

	for k := range buckets {
		b := buckets[k]
		sort.Slice(b, func(i, j int) bool { return b[i].ArticleID < b[j].ArticleID })
	}

	symbols := make(map[string]struct{})
	for k := range buckets {
		symbols[k.symbol] = struct{}{}
	}
	for _, sym := range ag.universe {
		symbols[sym] = struct{}{}
	}

	out := make(map[string][]dataset.SentimentAggregate, len(symbols))
	for sym := range symbols {
		series := make([]dataset.SentimentAggregate, len(calendar))
		for i := range calendar {
			series[i] = ag.aggregateDay(buckets[bucketKey{symbol: sym, day: i}], median)
		}
		ag.applyMomentum(series)
		out[sym] = series
	}

	if dropped > 0 {
		ag.logger.Info("dropped unlinked articles from per-stock aggregation",
			slog.Int("dropped", dropped))
	}

	return out
}

// aggregateDay reduces one day's article scores for one instrument
func (ag *Aggregator) aggregateDay(day []dataset.ArticleScore, median bool) dataset.SentimentAggregate {
	n := len(day)
	if n == 0 {
		return dataset.NoSentimentData()
	}

	var sum float64
	var extreme int
	for _, sc := range day {
		sum += sc.Score
		if math.Abs(sc.Score) >= ag.extremeThreshold {
			extreme++
		}
	}
	mean := sum / float64(n)

	center := mean
	if median {
		center = medianScore(day)
	}

	// Intraday volatility: sample standard deviation across the day's
	// articles; a single article has zero dispersion.
	vol := 0.0
	if n > 1 {
		var ss float64
		for _, sc := range day {
			d := sc.Score - mean
			ss += d * d
		}
		vol = math.Sqrt(ss / float64(n-1))
	}

	return dataset.SentimentAggregate{
		Mean:        dataset.NewOptional(center),
		Volatility:  dataset.NewOptional(vol),
		ExtremeRate: dataset.NewOptional(float64(extreme) / float64(n)),
		Articles:    n,
		Regime:      regimeFor(center),
	}
}

// medianScore returns the median article score of a day. The bucket is
// already sorted by article ID, so sorting a copy by score keeps the
// original order intact.
func medianScore(day []dataset.ArticleScore) float64 {
	vals := make([]float64, len(day))
	for i, sc := range day {
		vals[i] = sc.Score
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}

// applyMomentum fills the momentum feature: the day's mean minus the mean
// of daily means over the prior aggregation window. Days without data in
// the window keep the missing marker.
func (ag *Aggregator) applyMomentum(series []dataset.SentimentAggregate) {
	for i := range series {
		if !series[i].HasData() {
			continue
		}
		var prior []float64
		for j := i - ag.momentumWindow; j < i; j++ {
			if j < 0 || !series[j].HasData() {
				continue
			}
			if m, ok := series[j].Mean.Float64(); ok {
				prior = append(prior, m)
			}
		}
		if len(prior) == 0 {
			continue
		}
		var sum float64
		for _, p := range prior {
			sum += p
		}
		mean, _ := series[i].Mean.Float64()
		series[i].Momentum = dataset.NewOptional(mean - sum/float64(len(prior)))
	}
}

// regimeFor labels the tone of a daily mean at the +-0.2 cutoffs
func regimeFor(mean float64) dataset.SentimentRegime {
	switch {
	case mean <= -0.2:
		return dataset.RegimeBearish
	case mean >= 0.2:
		return dataset.RegimeBullish
	default:
		return dataset.RegimeNeutral
	}
}
