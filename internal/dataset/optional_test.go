package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptionalZeroValueIsMissing(t *testing.T) {
	var o Optional
	_, ok := o.Float64()
	assert.False(t, ok)
	assert.Equal(t, "NA", o.String())
}

func TestOptionalZeroIsNotMissing(t *testing.T) {
	o := NewOptional(0)
	v, ok := o.Float64()
	assert.True(t, ok)
	assert.Zero(t, v)
	assert.Equal(t, "0", o.String())
}

func TestOptionalRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, ok := NewOptional(v).Float64()
		assert.False(t, ok)
	}
}

func TestModelSpecTerms(t *testing.T) {
	base := ModelSpec{Name: "ff3", Factors: []string{TermMKT, TermSMB, TermHML}}
	assert.Equal(t, []string{TermMKT, TermSMB, TermHML}, base.Terms())

	base.Sentiment = true
	assert.Equal(t, []string{TermMKT, TermSMB, TermHML, TermSentiment}, base.Terms())

	base.Interactive = true
	assert.Equal(t, []string{TermMKT, TermSMB, TermHML, TermSentiment, TermSentimentMkt}, base.Terms())
}

func TestModelFitTStat(t *testing.T) {
	fit := &ModelFit{
		Coef: map[string]float64{TermSentiment: 0.02},
		StdErr: map[ClusterScheme]map[string]float64{
			ClusterFirm: {TermSentiment: 0.005},
		},
	}

	assert.InDelta(t, 4.0, fit.TStat(ClusterFirm, TermSentiment), 1e-12)
	assert.Zero(t, fit.TStat(ClusterTime, TermSentiment), "missing scheme")
	assert.Zero(t, fit.TStat(ClusterFirm, TermMKT), "missing term has no standard error")
}

func TestSentimentAggregateNoData(t *testing.T) {
	marker := NoSentimentData()
	assert.False(t, marker.HasData())
	assert.Equal(t, RegimeNoData, marker.Regime)
	_, ok := marker.Mean.Float64()
	assert.False(t, ok)
}
