package factors

import (
	"log/slog"
	"math/rand"
	"sort"
)

// FeatureImportance ranks regressors by how much variance single-feature
// regression stumps explain across bootstrap bags. It is a diagnostic
// complement to the linear fits, never a substitute for them: no pricing
// conclusion is drawn from the ensemble.
type FeatureImportance struct {
	bags   int
	logger *slog.Logger
}

// NewFeatureImportance creates the ensemble diagnostic with the given
// number of bootstrap bags.
func NewFeatureImportance(bags int, logger *slog.Logger) *FeatureImportance {
	if bags < 1 {
		bags = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureImportance{
		bags:   bags,
		logger: logger.With(slog.String("component", "feature_importance")),
	}
}

// Rank fits one best-split regression stump per feature on each bag and
// accumulates the stump's sum-of-squares reduction as that feature's
// importance. Scores are normalized to sum to one. The rand source is
// caller-seeded for reproducibility.
func (fi *FeatureImportance) Rank(s *Sample, rng *rand.Rand) map[string]float64 {
	n := s.N()
	scores := make(map[string]float64, len(s.Terms))
	if n < 4 {
		return scores
	}

	for b := 0; b < fi.bags; b++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		for c, term := range s.Terms {
			scores[term] += stumpReduction(s, idx, c)
		}
	}

	var total float64
	for _, v := range scores {
		total += v
	}
	if total > 0 {
		for term := range scores {
			scores[term] /= total
		}
	}

	fi.logger.Debug("feature importance ranked",
		slog.Int("bags", fi.bags),
		slog.Int("features", len(s.Terms)))

	return scores
}

// stumpReduction finds the split of feature column c that minimizes the
// two-leaf sum of squared errors on the bag and returns the reduction
// relative to the single-mean baseline.
func stumpReduction(s *Sample, bag []int, c int) float64 {
	type point struct {
		x, y float64
	}
	pts := make([]point, len(bag))
	for i, row := range bag {
		pts[i] = point{x: s.X[row][c], y: s.Y[row]}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	n := len(pts)
	var sum, sumSq float64
	for _, p := range pts {
		sum += p.y
		sumSq += p.y * p.y
	}
	baseline := sumSq - sum*sum/float64(n)

	// Scan split points left to right with running leaf moments
	var leftSum, leftSq float64
	best := baseline
	for i := 0; i < n-1; i++ {
		leftSum += pts[i].y
		leftSq += pts[i].y * pts[i].y
		if pts[i].x == pts[i+1].x {
			continue // identical feature values cannot be split apart
		}
		nl := float64(i + 1)
		nr := float64(n - i - 1)
		rightSum := sum - leftSum
		rightSq := sumSq - leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if sse < best {
			best = sse
		}
	}
	reduction := baseline - best
	if reduction < 0 {
		return 0
	}
	return reduction
}
