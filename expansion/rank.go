package expansion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/core"
)

// proposal is one raw candidate for the word at piece index pos.
type proposal struct {
	pos  int
	term string // sanitized query text, possibly a quoted phrase
}

// collectProposals sanitizes raw candidates for the word at pos, dropping
// duplicates and the word itself.
func collectProposals(pos int, word string, raw []string) []proposal {
	seen := map[string]struct{}{strings.ToLower(word): {}}
	out := make([]proposal, 0, len(raw))
	for _, r := range raw {
		term := sanitizeCandidate(r)
		if term == "" {
			continue
		}
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		out = append(out, proposal{pos: pos, term: term})
	}
	return out
}

// rankProposals embeds the original sentence together with every
// substituted variant in one batch, then keeps up to limit candidates per
// word whose similarity to the original reaches threshold. A limit <= 0
// keeps all of them.
func rankProposals(
	ctx context.Context,
	embedder ai.Embedder,
	pieces []piece,
	proposals []proposal,
	threshold float64,
	limit int,
) (map[int][]core.ExpansionCandidate, error) {
	if len(proposals) == 0 {
		return nil, nil
	}

	texts := make([]string, 0, len(proposals)+1)
	texts = append(texts, plainSentence(pieces, -1, ""))
	for _, p := range proposals {
		texts = append(texts, plainSentence(pieces, p.pos, strings.Trim(p.term, `"`)))
	}

	vectors, err := embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEmbeddingServiceUnavailable, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts",
			core.ErrEmbeddingServiceUnavailable, len(vectors), len(texts))
	}

	original := vectors[0]
	accepted := make(map[int][]core.ExpansionCandidate)
	for i, p := range proposals {
		sim := ai.CosineSimilarity(original, vectors[i+1])
		if sim < threshold {
			continue
		}
		accepted[p.pos] = append(accepted[p.pos], core.ExpansionCandidate{Term: p.term, Similarity: sim})
	}

	for pos, cands := range accepted {
		sort.SliceStable(cands, func(i, j int) bool {
			if cands[i].Similarity != cands[j].Similarity {
				return cands[i].Similarity > cands[j].Similarity
			}
			return cands[i].Term < cands[j].Term
		})
		if limit > 0 && len(cands) > limit {
			cands = cands[:limit]
		}
		accepted[pos] = cands
	}
	return accepted, nil
}

// render turns accepted candidates into expanded query text. Text with no
// accepted candidates comes back unchanged.
func render(text string, pieces []piece, accepted map[int][]core.ExpansionCandidate, connector string) string {
	if len(accepted) == 0 {
		return text
	}
	if connector == "" {
		connector = DefaultConnector
	}
	terms := make(map[int][]string, len(accepted))
	for pos, cands := range accepted {
		for _, c := range cands {
			terms[pos] = append(terms[pos], c.Term)
		}
	}
	return assemble(pieces, terms, connector)
}

// explanation lists accepted candidates in query order.
func explanation(pieces []piece, accepted map[int][]core.ExpansionCandidate) []TokenExpansion {
	out := make([]TokenExpansion, 0, len(accepted))
	for i, p := range pieces {
		if cands, ok := accepted[i]; ok {
			out = append(out, TokenExpansion{Token: p.text, Candidates: cands})
		}
	}
	return out
}
