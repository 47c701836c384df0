package dataset

import (
	"time"
)

// ClusterScheme selects the covariance estimator used for standard errors.
// The coefficient point estimates are identical across schemes; only the
// standard errors change.
type ClusterScheme string

const (
	ClusterNone   ClusterScheme = "none"
	ClusterFirm   ClusterScheme = "firm"
	ClusterTime   ClusterScheme = "time"
	ClusterTwoWay ClusterScheme = "twoway"
)

// ClusterSchemes returns every supported scheme in canonical order
func ClusterSchemes() []ClusterScheme {
	return []ClusterScheme{ClusterNone, ClusterFirm, ClusterTime, ClusterTwoWay}
}

// ModelSpec names a factor model specification from the nested family
type ModelSpec struct {
	Name        string   `json:"name"`
	Factors     []string `json:"factors"`
	Sentiment   bool     `json:"sentiment"`   // adds the sentiment feature
	Interactive bool     `json:"interactive"` // also adds sentiment x market
}

// Terms returns the regressor names in estimation order, excluding the
// intercept.
func (ms ModelSpec) Terms() []string {
	terms := make([]string, 0, len(ms.Factors)+2)
	terms = append(terms, ms.Factors...)
	if ms.Sentiment {
		terms = append(terms, TermSentiment)
		if ms.Interactive {
			terms = append(terms, TermSentimentMkt)
		}
	}
	return terms
}

// Regression term names
const (
	TermAlpha        = "alpha"
	TermMKT          = "mkt"
	TermSMB          = "smb"
	TermHML          = "hml"
	TermRMW          = "rmw"
	TermCMA          = "cma"
	TermUMD          = "umd"
	TermSentiment    = "sentiment"
	TermSentimentMkt = "sentiment_x_mkt"
)

// ModelFit is one estimated model: coefficients, per-scheme standard
// errors and goodness of fit over a sample window. Fits are immutable once
// computed; re-estimation produces a new instance.
type ModelFit struct {
	ID           string                               `json:"id"`
	RunID        string                               `json:"run_id"`
	Spec         ModelSpec                            `json:"spec"`
	WindowStart  time.Time                            `json:"window_start"`
	WindowEnd    time.Time                            `json:"window_end"`
	Coef         map[string]float64                   `json:"coefficients"`
	StdErr       map[ClusterScheme]map[string]float64 `json:"std_errors"`
	R2           float64                              `json:"r2"`
	AdjR2        float64                              `json:"adj_r2"`
	Observations int                                  `json:"observations"`
}

// TStat returns the t-statistic of a term under a clustering scheme
func (mf *ModelFit) TStat(scheme ClusterScheme, term string) float64 {
	se, ok := mf.StdErr[scheme]
	if !ok {
		return 0
	}
	s := se[term]
	if s <= 0 {
		return 0
	}
	return mf.Coef[term] / s
}

// MarginalResult quantifies the sentiment factor's marginal explanatory
// power over a matching benchmark fit on the same sample.
type MarginalResult struct {
	Benchmark   *ModelFit                 `json:"benchmark"`
	Augmented   *ModelFit                 `json:"augmented"`
	DeltaR2     float64                   `json:"delta_r2"`
	TStats      map[ClusterScheme]float64 `json:"sentiment_t_stats"`
	Significant bool                      `json:"significant"`
}

// Procedure identifies a robustness procedure kind
type Procedure string

const (
	ProcBootstrap       Procedure = "bootstrap"
	ProcBlockBootstrap  Procedure = "block_bootstrap"
	ProcLabelShuffle    Procedure = "label_shuffle"
	ProcStructuralBreak Procedure = "structural_break"
	ProcAlternative     Procedure = "alternative_measure"
)

// RobustnessResult summarises one robustness procedure run against a fit.
// Results are independent records; none mutate the fit they reference.
type RobustnessResult struct {
	ID         string             `json:"id"`
	FitID      string             `json:"fit_id"`
	Procedure  Procedure          `json:"procedure"`
	Statistic  string             `json:"statistic"`
	Value      float64            `json:"value"`
	Iterations int                `json:"iterations"`
	Details    map[string]float64 `json:"details,omitempty"`
}

// GroupDimension names a heterogeneity slicing dimension
type GroupDimension string

const (
	GroupByCapBucket GroupDimension = "cap_bucket"
	GroupByIndustry  GroupDimension = "industry"
	GroupByRegime    GroupDimension = "time_regime"
)

// GroupResult is a heterogeneity slice: the sentiment-augmented
// specification re-estimated within one group. Groups with too few
// observations are marked not estimable and carry no fit.
type GroupResult struct {
	Dimension GroupDimension  `json:"dimension"`
	Group     string          `json:"group"`
	Estimable bool            `json:"estimable"`
	Reason    string          `json:"reason,omitempty"`
	Fit       *ModelFit       `json:"fit,omitempty"`
	Marginal  *MarginalResult `json:"marginal,omitempty"`
}
