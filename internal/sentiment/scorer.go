// Package sentiment converts raw article text into per-article scores and
// aggregates them to stock-day sentiment features.
package sentiment

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"sentfactor/internal/align"
	"sentfactor/internal/config"
	"sentfactor/internal/dataset"
	apperrors "sentfactor/internal/errors"
)

// Scorer maps article text to a scalar in [-1, 1]: a finance-domain
// lexicon score blended with a general-purpose polarity baseline at a
// fixed configured weight (never chosen per article).
type Scorer struct {
	blendWeight float64 // weight of the general baseline
	logger      *slog.Logger
}

// NewScorer creates a scorer from the sentiment configuration
func NewScorer(cfg config.SentimentConfig, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		blendWeight: cfg.LexiconBlendWeight,
		logger:      logger.With(slog.String("component", "sentiment_scorer")),
	}
}

// Score computes the blended sentiment score for one article. Empty or
// undecodable text fails with a SentimentResolutionError; the caller
// excludes the article from aggregation.
func (s *Scorer) Score(article dataset.NewsArticle) (dataset.ArticleScore, error) {
	text := strings.TrimSpace(article.Text())
	if text == "" {
		return dataset.ArticleScore{}, apperrors.NewSentimentResolution(article.ID, "empty article text")
	}
	if !utf8.ValidString(text) {
		return dataset.ArticleScore{}, apperrors.NewSentimentResolution(article.ID, "undecodable article text")
	}

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return dataset.ArticleScore{}, apperrors.NewSentimentResolution(article.ID, "no scoreable tokens")
	}

	var pos, neg int
	var generalSum float64
	var generalHits int
	for _, tok := range tokens {
		if _, ok := financePositive[tok]; ok {
			pos++
		}
		if _, ok := financeNegative[tok]; ok {
			neg++
		}
		if v, ok := generalValence[tok]; ok {
			generalSum += v
			generalHits++
		}
	}

	var keywordScore float64
	if pos+neg > 0 {
		keywordScore = float64(pos-neg) / float64(pos+neg)
	}

	var generalScore float64
	if generalHits > 0 {
		generalScore = generalSum / float64(generalHits)
	}

	combined := s.blendWeight*generalScore + (1-s.blendWeight)*keywordScore
	combined = clamp(combined, -1, 1)

	confidence := float64(pos+neg+generalHits) / 5
	if confidence > 1 {
		confidence = 1
	}

	return dataset.ArticleScore{
		ArticleID:  article.ID,
		Day:        align.Normalize(article.PublishedAt),
		Symbols:    article.Symbols,
		Score:      combined,
		Confidence: confidence,
		Positive:   pos,
		Negative:   neg,
	}, nil
}

// ScoreAll scores the corpus in parallel with bounded concurrency. Each
// article reads immutable input and writes a private slot; unresolvable
// articles are logged and excluded, not fatal.
func (s *Scorer) ScoreAll(ctx context.Context, articles []dataset.NewsArticle, maxConcurrency int) ([]dataset.ArticleScore, error) {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}

	results := make([]*dataset.ArticleScore, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	for i := range articles {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			score, err := s.Score(articles[i])
			if err != nil {
				s.logger.Warn("excluding unresolvable article",
					slog.String("article_id", articles[i].ID),
					slog.String("error", err.Error()))
				return nil
			}
			results[i] = &score
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := make([]dataset.ArticleScore, 0, len(articles))
	for _, r := range results {
		if r != nil {
			scored = append(scored, *r)
		}
	}

	s.logger.Info("article scoring completed",
		slog.Int("articles", len(articles)),
		slog.Int("scored", len(scored)),
		slog.Int("excluded", len(articles)-len(scored)))

	return scored, nil
}

// tokenize lowercases and splits text on non-letter runes
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
