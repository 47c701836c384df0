// Package align merges series sampled at different frequencies onto a
// single trading-day calendar with point-in-time semantics: for each
// (instrument, day) the most recent value whose availability timestamp is
// on or before that day. Days before the first available observation get
// an explicit unavailable marker, never a fabricated value.
package align

import (
	"log/slog"
	"time"

	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
)

// Aligner resolves source series against a fixed trading-day calendar
type Aligner struct {
	calendar []time.Time
	logger   *slog.Logger
}

// NewAligner builds an aligner over the trading-day calendar for the study
// window: exchange-open weekdays minus the configured holidays.
func NewAligner(start, end time.Time, holidays []time.Time, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{
		calendar: Calendar(start, end, holidays),
		logger:   logger.With(slog.String("component", "aligner")),
	}
}

// Calendar returns the trading days between start and end inclusive:
// weekdays that are not listed holidays, normalized to UTC midnight.
func Calendar(start, end time.Time, holidays []time.Time) []time.Time {
	holidaySet := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		holidaySet[h.Format("2006-01-02")] = struct{}{}
	}

	var days []time.Time
	for d := normalize(start); !d.After(normalize(end)); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		if _, holiday := holidaySet[d.Format("2006-01-02")]; holiday {
			continue
		}
		days = append(days, d)
	}
	return days
}

// TradingDays returns the aligner's calendar
func (a *Aligner) TradingDays() []time.Time {
	return a.calendar
}

// FundamentalSnapshot is the point-in-time fundamental state of an
// instrument on one trading day. Record is nil while no quarter has been
// published yet.
type FundamentalSnapshot struct {
	Day    time.Time
	Record *dataset.FundamentalRecord
}

// AlignFundamentals resolves the last known fundamental record for each
// trading day. Records must arrive in strictly increasing publication
// order for the instrument; duplicates or out-of-order publication dates
// violate the caller contract and fail with an AlignmentError.
func (a *Aligner) AlignFundamentals(symbol string, records []dataset.FundamentalRecord) ([]FundamentalSnapshot, error) {
	for i := 1; i < len(records); i++ {
		if !records[i].PublishedAt.After(records[i-1].PublishedAt) {
			return nil, apperrors.NewAlignment("fundamentals", symbol, records[i].PublishedAt,
				"publication dates not strictly increasing")
		}
	}
	for _, r := range records {
		if r.PublishedAt.Before(r.PeriodEnd) {
			return nil, apperrors.NewAlignment("fundamentals", symbol, r.PublishedAt,
				"publication date precedes fiscal period end")
		}
	}

	snapshots := make([]FundamentalSnapshot, len(a.calendar))
	next := 0
	var current *dataset.FundamentalRecord
	for i, day := range a.calendar {
		for next < len(records) && !records[next].PublishedAt.After(day) {
			current = &records[next]
			next++
		}
		snapshots[i] = FundamentalSnapshot{Day: day, Record: current}
	}
	return snapshots, nil
}

// MacroSnapshot is the point-in-time value of one macro series on a
// trading day. Value is the unavailable marker before the first release.
type MacroSnapshot struct {
	Day   time.Time
	Value dataset.Optional
}

// AlignMacro resolves the last released value of a macro series for each
// trading day. Observations must arrive in strictly increasing effective
// order; otherwise the series fails with an AlignmentError.
func (a *Aligner) AlignMacro(series string, obs []dataset.MacroObservation) ([]MacroSnapshot, error) {
	for i := 1; i < len(obs); i++ {
		if !obs[i].EffectiveAt.After(obs[i-1].EffectiveAt) {
			return nil, apperrors.NewAlignment(series, "", obs[i].EffectiveAt,
				"effective dates not strictly increasing")
		}
	}

	snapshots := make([]MacroSnapshot, len(a.calendar))
	next := 0
	value := dataset.Optional{}
	for i, day := range a.calendar {
		for next < len(obs) && !obs[next].EffectiveAt.After(day) {
			value = dataset.NewOptional(obs[next].Value)
			next++
		}
		snapshots[i] = MacroSnapshot{Day: day, Value: value}
	}
	return snapshots, nil
}

// normalize truncates a timestamp to UTC midnight
func normalize(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Normalize exposes calendar-day normalization to the other pipeline
// stages so joins share one day grain.
func Normalize(t time.Time) time.Time {
	return normalize(t)
}
