package retrieval

import (
	"fmt"
	"strings"

	"github.com/poiesic/placerank/core"
)

// ScoringStrategy selects how sentiment affects ranking.
type ScoringStrategy int

const (
	// ScoringLexical ranks by lexical score alone.
	ScoringLexical ScoringStrategy = iota
	// ScoringSentimentInline weights each hit by sentiment during the
	// index search pass.
	ScoringSentimentInline
	// ScoringSentimentRerank retrieves every hit, then rescores, sorts and
	// paginates in a separate pass.
	ScoringSentimentRerank
)

func (s ScoringStrategy) String() string {
	switch s {
	case ScoringSentimentInline:
		return "sentiment_inline"
	case ScoringSentimentRerank:
		return "sentiment_rerank"
	}
	return "lexical"
}

// UsesSentiment reports whether the strategy needs a sentiment scorer.
func (s ScoringStrategy) UsesSentiment() bool {
	return s != ScoringLexical
}

// ParseScoringStrategy accepts "lexical", "inline" or "rerank".
func ParseScoringStrategy(s string) (ScoringStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lexical", "bm25":
		return ScoringLexical, nil
	case "inline", "sentiment_inline", "weighted":
		return ScoringSentimentInline, nil
	case "rerank", "sentiment_rerank", "sentiment":
		return ScoringSentimentRerank, nil
	}
	return 0, fmt.Errorf("%w: unknown scoring strategy %q", core.ErrInvalidConfig, s)
}
