package index

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// vocabulary is the set of spelling terms with their document frequencies.
type vocabulary struct {
	terms map[string]uint64
}

func (i *Index) invalidateVocabulary() {
	i.vocabMu.Lock()
	i.vocab = nil
	i.vocabMu.Unlock()
}

func (i *Index) loadVocabulary() (*vocabulary, error) {
	i.vocabMu.Lock()
	defer i.vocabMu.Unlock()
	if i.vocab != nil {
		return i.vocab, nil
	}

	dict, err := i.bleve.FieldDict(fieldSpelling)
	if err != nil {
		return nil, fmt.Errorf("reading spelling dictionary: %w", err)
	}
	defer dict.Close()

	v := &vocabulary{terms: make(map[string]uint64)}
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, fmt.Errorf("reading spelling dictionary: %w", err)
		}
		if entry == nil {
			break
		}
		v.terms[entry.Term] = entry.Count
	}
	i.vocab = v
	i.logger.Debug("loaded spelling vocabulary", "terms", len(v.terms))
	return v, nil
}

// maxEdits is the largest edit distance accepted for a word.
func maxEdits(word string) int {
	if utf8.RuneCountInString(word) <= 4 {
		return 1
	}
	return 2
}

// closest returns the best known replacement for word, or "" if none is
// close enough. Ties prefer the more frequent term, then the
// lexicographically smaller one.
func (v *vocabulary) closest(word string) string {
	limit := maxEdits(word)
	n := utf8.RuneCountInString(word)

	var (
		best      string
		bestDist  = limit + 1
		bestCount uint64
	)
	for term, count := range v.terms {
		diff := utf8.RuneCountInString(term) - n
		if diff > limit || -diff > limit {
			continue
		}
		d := levenshtein.ComputeDistance(word, term)
		if d > limit {
			continue
		}
		if d < bestDist ||
			(d == bestDist && count > bestCount) ||
			(d == bestDist && count == bestCount && term < best) {
			best, bestDist, bestCount = term, d, count
		}
	}
	return best
}

// Suggest implements Searcher.
func (s *searcher) Suggest(ctx context.Context, text string) (string, error) {
	if s.closed {
		return "", ErrSearcherClosed
	}
	tokens, err := lex(text)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return text, nil
	}
	vocab, err := s.idx.loadVocabulary()
	if err != nil {
		return "", err
	}

	changed := false
	for i, t := range tokens {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		switch t.kind {
		case tokWord:
			if fixed, ok := vocab.correct(t.text); ok {
				tokens[i].text = fixed
				changed = true
			}
		case tokPhrase:
			words := strings.Fields(t.text)
			for j, w := range words {
				if fixed, ok := vocab.correct(w); ok {
					words[j] = fixed
					changed = true
				}
			}
			tokens[i].text = strings.Join(words, " ")
		}
	}
	if !changed {
		return text, nil
	}
	return render(tokens), nil
}

// correct returns a replacement for an unknown word.
func (v *vocabulary) correct(word string) (string, bool) {
	lower := strings.ToLower(word)
	if _, known := v.terms[lower]; known || !isAlpha(lower) {
		return "", false
	}
	best := v.closest(lower)
	if best == "" {
		return "", false
	}
	return best, true
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !('a' <= r && r <= 'z') && r < utf8.RuneSelf {
			return false
		}
	}
	return true
}
