package mock

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// Dimension is the length of vectors produced by the default behavior.
const Dimension = 64

// MockEmbedder is a test double for ai.Embedder.
//
// By default it embeds a sentence as a normalized bag of words, so
// sentences sharing words are close and word order does not matter.
// Words registered with Concepts share an axis and embed identically.
type MockEmbedder struct {
	// EmbedTextFunc replaces the default behavior of EmbedText and, when
	// EmbedTextsFunc is nil, of each text passed to EmbedTexts.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc replaces the default behavior of EmbedTexts.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	concepts  map[string]string
	callCount int
}

// NewMockEmbedder creates a bag-of-words mock embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// NewConceptEmbedder creates a mock embedder treating every word of a
// group as the same concept. Query expansion tests use it to make
// synonyms indistinguishable while unrelated words still pull a sentence
// away from the original.
func NewConceptEmbedder(groups ...[]string) *MockEmbedder {
	m := &MockEmbedder{concepts: map[string]string{}}
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		for _, w := range group {
			m.concepts[strings.ToLower(w)] = strings.ToLower(group[0])
		}
	}
	return m
}

// EmbedText embeds a single sentence.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.count()
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return m.embed(text), nil
}

// EmbedTexts embeds a batch of sentences. It counts as one call.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.count()
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		if m.EmbedTextFunc == nil {
			out[i] = m.embed(text)
			continue
		}
		v, err := m.EmbedTextFunc(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *MockEmbedder) embed(text string) []float32 {
	words := strings.Fields(strings.ToLower(text))
	if m.concepts != nil {
		for i, w := range words {
			if c, ok := m.concepts[w]; ok {
				words[i] = c
			}
		}
	}
	return BagOfWords(words, Dimension)
}

func (m *MockEmbedder) count() {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()
}

// CallCount returns the number of EmbedText and EmbedTexts calls.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// BagOfWords hashes each word onto one of dim axes, counts occurrences and
// scales the result to unit length. An empty sentence yields the zero
// vector.
func BagOfWords(words []string, dim int) []float32 {
	vector := make([]float32, dim)
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		vector[h.Sum32()%uint32(dim)]++
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vector
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vector {
		vector[i] *= scale
	}
	return vector
}
