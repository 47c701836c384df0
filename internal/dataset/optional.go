package dataset

import (
	"math"
	"strconv"
)

// Optional is an explicit missing-data marker for panel fields. The zero
// value is "unavailable". A field that is genuinely zero is distinct from a
// field with no data, which downstream models rely on.
type Optional struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

// NewOptional wraps a known value
func NewOptional(v float64) Optional {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Optional{}
	}
	return Optional{Value: v, Valid: true}
}

// Float64 returns the value and whether it is present
func (o Optional) Float64() (float64, bool) {
	return o.Value, o.Valid
}

// String renders the value, or the explicit marker for missing data
func (o Optional) String() string {
	if !o.Valid {
		return "NA"
	}
	return strconv.FormatFloat(o.Value, 'f', -1, 64)
}
