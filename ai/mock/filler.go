package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/placerank/ai"
)

// MockMaskFiller is a test double for ai.MaskFiller.
type MockMaskFiller struct {
	// FillMaskFunc is called by FillMask if set.
	FillMaskFunc func(ctx context.Context, sentence string, k int) ([]ai.Filler, error)

	// Vocabulary holds canned fillers returned, truncated to k, when
	// FillMaskFunc is nil.
	Vocabulary []string

	mu        sync.Mutex
	callCount int
	sentences []string
}

// NewMockMaskFiller creates a mock filler returning vocabulary in order.
func NewMockMaskFiller(vocabulary ...string) *MockMaskFiller {
	return &MockMaskFiller{Vocabulary: vocabulary}
}

// FillMask records the sentence and returns the configured fillers.
func (m *MockMaskFiller) FillMask(ctx context.Context, sentence string, k int) ([]ai.Filler, error) {
	m.mu.Lock()
	m.callCount++
	m.sentences = append(m.sentences, sentence)
	m.mu.Unlock()

	if m.FillMaskFunc != nil {
		return m.FillMaskFunc(ctx, sentence, k)
	}
	if !strings.Contains(sentence, ai.MaskToken) {
		return nil, ai.ErrNoMask
	}

	out := make([]ai.Filler, 0, k)
	for i, token := range m.Vocabulary {
		if i == k {
			break
		}
		out = append(out, ai.Filler{Token: token, Score: 1 / float64(i+1)})
	}
	return out, nil
}

// CallCount returns the number of FillMask calls.
func (m *MockMaskFiller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Sentences returns every masked sentence received, in call order.
func (m *MockMaskFiller) Sentences() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sentences...)
}
