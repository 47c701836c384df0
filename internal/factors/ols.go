package factors

import (
	"fmt"
	"math"
	"time"

	"sentfactor/internal/dataset"
)

// Sample is a regression-ready slice of the panel: the dependent excess
// return, the regressor matrix (intercept excluded) and the firm and time
// cluster assignments of each observation.
type Sample struct {
	Terms []string // regressor names in column order
	Y     []float64
	X     [][]float64 // len(Y) rows, len(Terms) columns
	Firm  []int
	Time  []int
	Days  []time.Time
}

// N returns the number of observations
func (s *Sample) N() int { return len(s.Y) }

// olsFit holds the raw estimation products shared by the covariance
// estimators.
type olsFit struct {
	coef      []float64 // intercept first, then Terms order
	residuals []float64
	xtxInv    [][]float64
	r2        float64
	adjR2     float64
}

// fitOLS estimates the coefficients by solving the normal equations with
// partial-pivot Gaussian elimination. The same decomposition yields the
// inverse Gram matrix the sandwich estimators need.
func fitOLS(s *Sample) (*olsFit, error) {
	n := s.N()
	k := len(s.Terms) + 1 // intercept
	if n <= k {
		return nil, fmt.Errorf("degenerate sample: %d observations for %d parameters", n, k)
	}

	// X'X and X'y with the intercept as column zero
	xtx := newMatrix(k, k)
	xty := make([]float64, k)
	for i := 0; i < n; i++ {
		row := designRow(s, i)
		for a := 0; a < k; a++ {
			xty[a] += row[a] * s.Y[i]
			for b := a; b < k; b++ {
				xtx[a][b] += row[a] * row[b]
			}
		}
	}
	for a := 0; a < k; a++ {
		for b := 0; b < a; b++ {
			xtx[a][b] = xtx[b][a]
		}
	}

	xtxInv, err := invert(xtx)
	if err != nil {
		return nil, fmt.Errorf("singular design matrix: %w", err)
	}

	coef := make([]float64, k)
	for a := 0; a < k; a++ {
		for b := 0; b < k; b++ {
			coef[a] += xtxInv[a][b] * xty[b]
		}
	}

	var meanY float64
	for _, y := range s.Y {
		meanY += y
	}
	meanY /= float64(n)

	residuals := make([]float64, n)
	var ssr, sst float64
	for i := 0; i < n; i++ {
		row := designRow(s, i)
		var fitted float64
		for a := 0; a < k; a++ {
			fitted += coef[a] * row[a]
		}
		residuals[i] = s.Y[i] - fitted
		ssr += residuals[i] * residuals[i]
		d := s.Y[i] - meanY
		sst += d * d
	}

	r2 := 0.0
	if sst > 0 {
		r2 = 1 - ssr/sst
	}
	adjR2 := 1 - (1-r2)*float64(n-1)/float64(n-k)

	return &olsFit{
		coef:      coef,
		residuals: residuals,
		xtxInv:    xtxInv,
		r2:        r2,
		adjR2:     adjR2,
	}, nil
}

// standardErrors computes per-term standard errors under a clustering
// scheme. The coefficient vector is unchanged across schemes; only the
// covariance estimator differs.
func standardErrors(fit *olsFit, s *Sample, scheme dataset.ClusterScheme) (map[string]float64, error) {
	k := len(fit.coef)
	n := s.N()

	var cov [][]float64
	switch scheme {
	case dataset.ClusterNone:
		var ssr float64
		for _, r := range fit.residuals {
			ssr += r * r
		}
		sigma2 := ssr / float64(n-k)
		cov = scale(fit.xtxInv, sigma2)

	case dataset.ClusterFirm:
		cov = sandwich(fit, s, s.Firm)

	case dataset.ClusterTime:
		cov = sandwich(fit, s, s.Time)

	case dataset.ClusterTwoWay:
		// Cameron-Gelbach-Miller: firm + time - (firm x time). With one
		// observation per (firm, day) the intersection term is the
		// heteroskedasticity-robust estimator.
		obsIDs := make([]int, n)
		for i := range obsIDs {
			obsIDs[i] = i
		}
		firm := sandwich(fit, s, s.Firm)
		tm := sandwich(fit, s, s.Time)
		hc := sandwich(fit, s, obsIDs)
		cov = newMatrix(k, k)
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				cov[a][b] = firm[a][b] + tm[a][b] - hc[a][b]
			}
		}

	default:
		return nil, fmt.Errorf("unknown clustering scheme %q", scheme)
	}

	out := make(map[string]float64, k)
	names := append([]string{dataset.TermAlpha}, s.Terms...)
	for a, name := range names {
		v := cov[a][a]
		if v < 0 {
			// The two-way difference can go slightly negative in small
			// samples; clamp at zero rather than report an imaginary SE.
			v = 0
		}
		out[name] = math.Sqrt(v)
	}
	return out, nil
}

// sandwich computes the cluster-robust covariance for one clustering
// assignment with the standard finite-sample adjustment.
func sandwich(fit *olsFit, s *Sample, clusters []int) [][]float64 {
	k := len(fit.coef)
	n := s.N()

	scores := make(map[int][]float64)
	for i := 0; i < n; i++ {
		g := clusters[i]
		sc := scores[g]
		if sc == nil {
			sc = make([]float64, k)
			scores[g] = sc
		}
		row := designRow(s, i)
		for a := 0; a < k; a++ {
			sc[a] += row[a] * fit.residuals[i]
		}
	}

	meat := newMatrix(k, k)
	for _, sc := range scores {
		for a := 0; a < k; a++ {
			for b := 0; b < k; b++ {
				meat[a][b] += sc[a] * sc[b]
			}
		}
	}

	g := float64(len(scores))
	adj := 1.0
	if g > 1 {
		adj = g / (g - 1) * float64(n-1) / float64(n-k)
	}

	// (X'X)^-1 M (X'X)^-1
	tmp := multiply(fit.xtxInv, meat)
	cov := multiply(tmp, fit.xtxInv)
	return scale(cov, adj)
}

// designRow materializes observation i's design-matrix row, intercept first
func designRow(s *Sample, i int) []float64 {
	row := make([]float64, len(s.Terms)+1)
	row[0] = 1
	copy(row[1:], s.X[i])
	return row
}

// invert computes the inverse of a square matrix by Gauss-Jordan
// elimination with partial pivoting.
func invert(m [][]float64) ([][]float64, error) {
	k := len(m)
	aug := newMatrix(k, 2*k)
	for a := 0; a < k; a++ {
		copy(aug[a], m[a])
		aug[a][k+a] = 1
	}

	for col := 0; col < k; col++ {
		pivot := col
		for r := col + 1; r < k; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(aug[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("pivot %d below tolerance", col)
		}
		aug[col], aug[pivot] = aug[pivot], aug[col]

		p := aug[col][col]
		for c := 0; c < 2*k; c++ {
			aug[col][c] /= p
		}
		for r := 0; r < k; r++ {
			if r == col {
				continue
			}
			f := aug[r][col]
			if f == 0 {
				continue
			}
			for c := 0; c < 2*k; c++ {
				aug[r][c] -= f * aug[col][c]
			}
		}
	}

	inv := newMatrix(k, k)
	for a := 0; a < k; a++ {
		copy(inv[a], aug[a][k:])
	}
	return inv, nil
}

func newMatrix(rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
	}
	return m
}

func multiply(a, b [][]float64) [][]float64 {
	rows, inner, cols := len(a), len(b), len(b[0])
	out := newMatrix(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var sum float64
			for t := 0; t < inner; t++ {
				sum += a[i][t] * b[t][j]
			}
			out[i][j] = sum
		}
	}
	return out
}

func scale(m [][]float64, f float64) [][]float64 {
	out := newMatrix(len(m), len(m[0]))
	for i := range m {
		for j := range m[i] {
			out[i][j] = m[i][j] * f
		}
	}
	return out
}
