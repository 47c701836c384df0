// Package errors defines the pipeline error taxonomy. Structural errors
// (alignment, panel integrity) are fatal to a run and identify the
// offending (instrument, date); insufficient-data and sentiment-resolution
// conditions are recoverable at the caller's discretion. No error is ever
// converted into a fabricated data value.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for structured inspection and logging
const (
	CodeAlignment           = "ALIGNMENT_ERROR"
	CodePanelIntegrity      = "PANEL_INTEGRITY_ERROR"
	CodeInsufficientData    = "INSUFFICIENT_DATA"
	CodeSentimentResolution = "SENTIMENT_RESOLUTION_ERROR"
)

// AlignmentError reports timestamp non-monotonicity in a source series:
// duplicate or out-of-order availability dates for the same instrument.
// It is a caller contract violation and fatal to the run.
type AlignmentError struct {
	Series     string
	Instrument string
	Date       time.Time
	Message    string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s: series %q instrument %q at %s: %s",
		CodeAlignment, e.Series, e.Instrument, e.Date.Format("2006-01-02"), e.Message)
}

// NewAlignment creates an alignment error for the offending observation
func NewAlignment(series, instrument string, date time.Time, message string) *AlignmentError {
	return &AlignmentError{Series: series, Instrument: instrument, Date: date, Message: message}
}

// IsAlignment reports whether err is (or wraps) an AlignmentError
func IsAlignment(err error) bool {
	var ae *AlignmentError
	return errors.As(err, &ae)
}

// PanelIntegrityError reports a duplicated (instrument, day) key or a
// trading day outside the configured study window. Fatal to the run.
type PanelIntegrityError struct {
	Instrument string
	Date       time.Time
	Message    string
}

func (e *PanelIntegrityError) Error() string {
	return fmt.Sprintf("%s: instrument %q at %s: %s",
		CodePanelIntegrity, e.Instrument, e.Date.Format("2006-01-02"), e.Message)
}

// NewPanelIntegrity creates a panel integrity error for the offending key
func NewPanelIntegrity(instrument string, date time.Time, message string) *PanelIntegrityError {
	return &PanelIntegrityError{Instrument: instrument, Date: date, Message: message}
}

// IsPanelIntegrity reports whether err is (or wraps) a PanelIntegrityError
func IsPanelIntegrity(err error) bool {
	var pe *PanelIntegrityError
	return errors.As(err, &pe)
}

// InsufficientDataError reports a regression sample below the configured
// minimum. Recoverable at the per-group level: the group is marked not
// estimable and the run continues.
type InsufficientDataError struct {
	Context  string
	Have     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %s: %d observations, %d required",
		CodeInsufficientData, e.Context, e.Have, e.Required)
}

// NewInsufficientData creates an insufficient-data error
func NewInsufficientData(context string, have, required int) *InsufficientDataError {
	return &InsufficientDataError{Context: context, Have: have, Required: required}
}

// IsInsufficientData reports whether err is (or wraps) an
// InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}

// SentimentResolutionError reports an unscoreable article (empty or
// undecodable text). Recoverable: the article is excluded from
// aggregation and logged.
type SentimentResolutionError struct {
	ArticleID string
	Message   string
}

func (e *SentimentResolutionError) Error() string {
	return fmt.Sprintf("%s: article %q: %s", CodeSentimentResolution, e.ArticleID, e.Message)
}

// NewSentimentResolution creates a sentiment resolution error
func NewSentimentResolution(articleID, message string) *SentimentResolutionError {
	return &SentimentResolutionError{ArticleID: articleID, Message: message}
}

// IsSentimentResolution reports whether err is (or wraps) a
// SentimentResolutionError.
func IsSentimentResolution(err error) bool {
	var se *SentimentResolutionError
	return errors.As(err, &se)
}
