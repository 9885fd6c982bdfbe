package expansion

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/core"
)

// ThesaurusExpansion adds thesaurus synonyms that keep the query's meaning,
// judged by embedding similarity between the original query and the query
// with the word substituted.
type ThesaurusExpansion struct {
	thesaurus Thesaurus
	embedder  ai.Embedder
	topN      int
	threshold float64
	logger    *slog.Logger
}

var (
	_ Expander  = (*ThesaurusExpansion)(nil)
	_ Explainer = (*ThesaurusExpansion)(nil)
)

// NewThesaurusExpansion creates a thesaurus expander. Defaults are
// DefaultTopN candidates per word and DefaultThreshold similarity.
func NewThesaurusExpansion(thesaurus Thesaurus, embedder ai.Embedder, opts ...Option) (*ThesaurusExpansion, error) {
	if thesaurus == nil {
		return nil, ErrThesaurusRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s, err := newSettings(DefaultThreshold, "thesaurus_expansion", opts)
	if err != nil {
		return nil, err
	}
	return &ThesaurusExpansion{
		thesaurus: thesaurus,
		embedder:  embedder,
		topN:      s.topN,
		threshold: s.threshold,
		logger:    s.logger,
	}, nil
}

// Expand implements Expander.
func (e *ThesaurusExpansion) Expand(ctx context.Context, text, connector string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	pieces := splitQuery(text)
	accepted, err := e.accept(ctx, pieces)
	if err != nil {
		return "", err
	}
	return render(text, pieces, accepted, connector), nil
}

// Explain implements Explainer.
func (e *ThesaurusExpansion) Explain(ctx context.Context, text string) ([]TokenExpansion, error) {
	pieces := splitQuery(text)
	accepted, err := e.accept(ctx, pieces)
	if err != nil {
		return nil, err
	}
	return explanation(pieces, accepted), nil
}

func (e *ThesaurusExpansion) accept(ctx context.Context, pieces []piece) (map[int][]core.ExpansionCandidate, error) {
	var proposals []proposal
	for i, p := range pieces {
		if !p.word {
			continue
		}
		proposals = append(proposals, collectProposals(i, p.text, e.thesaurus.Synonyms(p.text))...)
	}
	if len(proposals) == 0 {
		return nil, nil
	}

	accepted, err := rankProposals(ctx, e.embedder, pieces, proposals, e.threshold, e.topN)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("thesaurus expansion",
		"candidates", len(proposals),
		"expanded_words", len(accepted))
	return accepted, nil
}
