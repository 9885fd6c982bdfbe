package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/core"
)

// GenerativeExpansion masks each word in turn and asks a masked language
// model for replacements. Fillers whose sentence stays close to the
// original query are appended after the word, which is always kept.
type GenerativeExpansion struct {
	filler    ai.MaskFiller
	embedder  ai.Embedder
	topK      int
	threshold float64
	logger    *slog.Logger
}

var (
	_ Expander  = (*GenerativeExpansion)(nil)
	_ Explainer = (*GenerativeExpansion)(nil)
)

// NewGenerativeExpansion creates a masked-model expander. Defaults are
// DefaultTopK fillers per word and DefaultGenerativeThreshold similarity.
func NewGenerativeExpansion(filler ai.MaskFiller, embedder ai.Embedder, opts ...Option) (*GenerativeExpansion, error) {
	if filler == nil {
		return nil, ErrFillerRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	s, err := newSettings(DefaultGenerativeThreshold, "generative_expansion", opts)
	if err != nil {
		return nil, err
	}
	return &GenerativeExpansion{
		filler:    filler,
		embedder:  embedder,
		topK:      s.topK,
		threshold: s.threshold,
		logger:    s.logger,
	}, nil
}

// Expand implements Expander.
func (e *GenerativeExpansion) Expand(ctx context.Context, text, connector string) (string, error) {
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
func (e *GenerativeExpansion) Explain(ctx context.Context, text string) ([]TokenExpansion, error) {
	pieces := splitQuery(text)
	accepted, err := e.accept(ctx, pieces)
	if err != nil {
		return nil, err
	}
	return explanation(pieces, accepted), nil
}

func (e *GenerativeExpansion) accept(ctx context.Context, pieces []piece) (map[int][]core.ExpansionCandidate, error) {
	var proposals []proposal
	for i, p := range pieces {
		if !p.word {
			continue
		}
		masked := plainSentence(pieces, i, ai.MaskToken)
		fillers, err := e.filler.FillMask(ctx, masked, e.topK)
		if err != nil {
			return nil, fmt.Errorf("%w: filling %q: %w", core.ErrEmbeddingServiceUnavailable, p.text, err)
		}
		raw := make([]string, 0, len(fillers))
		for _, f := range fillers {
			raw = append(raw, f.Token)
		}
		proposals = append(proposals, collectProposals(i, p.text, raw)...)
	}
	if len(proposals) == 0 {
		return nil, nil
	}

	// Every filler above the threshold is kept; topK already bounds them.
	accepted, err := rankProposals(ctx, e.embedder, pieces, proposals, e.threshold, 0)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("generative expansion",
		"fillers", len(proposals),
		"expanded_words", len(accepted))
	return accepted, nil
}
