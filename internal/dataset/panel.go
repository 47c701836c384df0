package dataset

import (
	"time"
)

// SentimentRegime labels the tone of a stock-day aggregate
type SentimentRegime string

const (
	RegimeBearish SentimentRegime = "bearish"
	RegimeNeutral SentimentRegime = "neutral"
	RegimeBullish SentimentRegime = "bullish"
	RegimeNoData  SentimentRegime = "no_data"
)

// SentimentAggregate holds the stock-day sentiment features derived from
// the articles published on that calendar day and linked to the instrument.
// A day with zero linked articles carries the explicit no-data marker, not
// a synthetic zero.
type SentimentAggregate struct {
	Mean        Optional        `json:"mean"`
	Volatility  Optional        `json:"volatility"`
	Momentum    Optional        `json:"momentum"`
	ExtremeRate Optional        `json:"extreme_rate"`
	Articles    int             `json:"articles"`
	Regime      SentimentRegime `json:"regime"`
}

// NoSentimentData returns the explicit marker for a day with no linked
// articles.
func NoSentimentData() SentimentAggregate {
	return SentimentAggregate{Regime: RegimeNoData}
}

// HasData reports whether any articles contributed to the aggregate
func (sa SentimentAggregate) HasData() bool {
	return sa.Articles > 0
}

// PanelRow is one (instrument, trading day) observation of the study
// panel. Rows are built once per run and immutable downstream of the
// panel builder. Fields unavailable as of the row's day carry explicit
// missing markers rather than being dropped.
type PanelRow struct {
	Symbol string    `json:"symbol"`
	Day    time.Time `json:"day"`

	Close  Optional `json:"close"`
	Return Optional `json:"return"`
	Volume Optional `json:"volume"`

	// Point-in-time snapshots: last values available strictly as of Day
	Fundamentals map[string]Optional `json:"fundamentals"`
	Macro        map[string]Optional `json:"macro"`

	// Trailing-window technical indicators derived from the return series
	Technicals map[string]Optional `json:"technicals"`

	Sentiment SentimentAggregate `json:"sentiment"`

	// SentimentLag1 is the prior trading day's aggregate mean, the
	// predictive form the estimator regresses on.
	SentimentLag1 Optional `json:"sentiment_lag1"`
}

// Key returns the composite panel key
func (pr PanelRow) Key() string {
	return pr.Symbol + "|" + pr.Day.Format("2006-01-02")
}
