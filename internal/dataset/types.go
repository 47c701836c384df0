package dataset

import (
	"time"
)

// CapBucket classifies an instrument by market capitalization
type CapBucket string

const (
	CapMega  CapBucket = "mega"
	CapLarge CapBucket = "large"
	CapMid   CapBucket = "mid"
)

// Instrument represents a single equity in the study universe.
// Instruments are immutable for the duration of the study window.
type Instrument struct {
	Symbol   string    `json:"symbol"`
	Name     string    `json:"name"`
	Industry string    `json:"industry"`
	Bucket   CapBucket `json:"cap_bucket"`
	Listed   time.Time `json:"listed"`
}

// IsValid checks if the instrument carries the minimum identifying data
func (in Instrument) IsValid() bool {
	return in.Symbol != "" && in.Industry != "" && in.Bucket != ""
}

// PriceBar represents one trading day of adjusted price data for an
// instrument. Prices are split/dividend adjusted at ingestion and never
// mutated afterwards.
type PriceBar struct {
	Symbol   string    `json:"symbol"`
	Day      time.Time `json:"day"`
	Close    float64   `json:"close"` // adjusted close
	Return   float64   `json:"return"`
	Volume   float64   `json:"volume"`
}

// IsValid checks if the price bar data is usable
func (pb PriceBar) IsValid() bool {
	return pb.Symbol != "" && !pb.Day.IsZero() && pb.Close > 0 && pb.Volume >= 0
}

// FundamentalRecord holds one fiscal quarter of fundamental indicators for
// an instrument. PublishedAt is the date the record became publicly
// available; only records with PublishedAt <= the current trading day may
// be joined to that day (point-in-time rule).
type FundamentalRecord struct {
	Symbol      string             `json:"symbol"`
	PeriodEnd   time.Time          `json:"period_end"`
	PublishedAt time.Time          `json:"published_at"`
	Indicators  map[string]float64 `json:"indicators"`
}

// IsValid enforces the publication invariant: a record cannot be available
// before its fiscal period closed.
func (fr FundamentalRecord) IsValid() bool {
	return fr.Symbol != "" && !fr.PeriodEnd.IsZero() &&
		!fr.PublishedAt.Before(fr.PeriodEnd) && len(fr.Indicators) > 0
}

// MacroObservation is a single dated value of a named macro series, shared
// across all instruments. EffectiveAt is the release date used for
// point-in-time joins.
type MacroObservation struct {
	Series      string    `json:"series"`
	EffectiveAt time.Time `json:"effective_at"`
	Value       float64   `json:"value"`
}

// IsValid checks the observation carries a series name and date
func (mo MacroObservation) IsValid() bool {
	return mo.Series != "" && !mo.EffectiveAt.IsZero()
}

// NewsArticle is a raw news item. Symbols lists the instruments the article
// resolves to; it may be empty for market-wide news.
type NewsArticle struct {
	ID          string    `json:"id"`
	PublishedAt time.Time `json:"published_at"`
	Symbols     []string  `json:"symbols"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
}

// Text returns the scoreable text of the article
func (na NewsArticle) Text() string {
	if na.Body == "" {
		return na.Title
	}
	return na.Title + " " + na.Body
}

// ArticleScore is the derived per-article sentiment score in [-1, 1] with
// the subjectivity-style confidence of the general-purpose baseline.
type ArticleScore struct {
	ArticleID  string    `json:"article_id"`
	Day        time.Time `json:"day"`
	Symbols    []string  `json:"symbols"`
	Score      float64   `json:"score"`
	Confidence float64   `json:"confidence"`
	Positive   int       `json:"positive_terms"`
	Negative   int       `json:"negative_terms"`
}
