package expansion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/ai/mock"
	"github.com/poiesic/placerank/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conceptEmbedder maps words onto shared concept axes so synonyms embed
// identically and unrelated words pull a sentence away from the original.
func conceptEmbedder() *mock.MockEmbedder {
	concepts := map[string]int{
		"apartment": 0, "flat": 0, "condo": 0,
		"manhattan": 1,
		"cheap":     2, "budget": 2, "affordable": 2,
		"quiet": 3, "peaceful": 3,
	}
	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		v := make([]float32, 8)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			if axis, ok := concepts[w]; ok {
				v[axis]++
			} else {
				v[7]++
			}
		}
		return v, nil
	}
	return m
}

func testThesaurus() *MapThesaurus {
	return NewMapThesaurus([][]string{
		{"apartment", "flat", "condo", "dwelling"},
		{"cheap", "budget", "affordable", "low_cost"},
	})
}

func TestNoExpansion(t *testing.T) {
	for _, q := range []string{"", "apartment", "a AND (b OR c)", `"quoted phrase" x`} {
		out, err := NoExpansion{}.Expand(context.Background(), q, DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, q, out)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("Thesaurus")
	require.NoError(t, err)
	assert.Equal(t, StrategyThesaurus, s)

	s, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyNone, s)

	_, err = ParseStrategy("magic")
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestSplitQuery(t *testing.T) {
	pieces := splitQuery(`cozy (loft OR "big studio") NOT noisy-street`)
	var texts []string
	var words []bool
	for _, p := range pieces {
		texts = append(texts, p.text)
		words = append(words, p.word)
	}
	assert.Equal(t, []string{"cozy", "(", "loft", "OR", `"big studio"`, ")", "NOT", "noisy-street"}, texts)
	assert.Equal(t, []bool{true, false, true, false, false, false, false, false}, words)
}

func TestJoinPieces(t *testing.T) {
	assert.Equal(t, "a (b OR c) d", joinPieces([]string{"a", "(", "b", "OR", "c", ")", "d"}))
}

func TestSanitizeCandidate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Flat", "flat"},
		{"low_cost", `"low cost"`},
		{"OR", ""},
		{"not", ""},
		{"a:b", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeCandidate(tt.in))
		})
	}
}

func TestMapThesaurus(t *testing.T) {
	th := testThesaurus()
	assert.Equal(t, []string{"apartment", "condo", "dwelling"}, th.Synonyms("FLAT"))
	assert.Nil(t, th.Synonyms("castle"))
	assert.Equal(t, 8, th.Len())
}

func TestLoadThesaurus(t *testing.T) {
	th, err := LoadThesaurus(strings.NewReader("groups:\n  - [quiet, peaceful]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"peaceful"}, th.Synonyms("quiet"))

	_, err = LoadThesaurus(strings.NewReader("groups: {"))
	assert.Error(t, err)

	th, err = LoadThesaurus(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, th.Len())
}

func TestDefaultThesaurus(t *testing.T) {
	th := DefaultThesaurus()
	assert.Contains(t, th.Synonyms("apartment"), "flat")
	assert.Contains(t, th.Synonyms("flat"), "apartment")
}

func TestThesaurusExpansion(t *testing.T) {
	ctx := context.Background()

	t.Run("requires collaborators", func(t *testing.T) {
		_, err := NewThesaurusExpansion(nil, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, ErrThesaurusRequired)
		_, err = NewThesaurusExpansion(testThesaurus(), nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
		_, err = NewThesaurusExpansion(testThesaurus(), mock.NewMockEmbedder(), WithTopN(0))
		assert.ErrorIs(t, err, ErrInvalidOption)
	})

	t.Run("keeps close synonyms only", func(t *testing.T) {
		exp, err := NewThesaurusExpansion(testThesaurus(), conceptEmbedder())
		require.NoError(t, err)

		out, err := exp.Expand(ctx, "apartment manhattan", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "apartment condo flat manhattan", out)

		out, err = exp.Expand(ctx, "apartment manhattan", OrConnector)
		require.NoError(t, err)
		assert.Equal(t, "apartment OR condo OR flat manhattan", out)
	})

	t.Run("top n", func(t *testing.T) {
		exp, err := NewThesaurusExpansion(testThesaurus(), conceptEmbedder(), WithTopN(1))
		require.NoError(t, err)
		out, err := exp.Expand(ctx, "cheap apartment", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "cheap affordable apartment condo", out)
	})

	t.Run("out of vocabulary is unchanged", func(t *testing.T) {
		embedder := conceptEmbedder()
		exp, err := NewThesaurusExpansion(testThesaurus(), embedder)
		require.NoError(t, err)
		out, err := exp.Expand(ctx, "zzz  qqq", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "zzz  qqq", out)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("empty", func(t *testing.T) {
		exp, err := NewThesaurusExpansion(testThesaurus(), conceptEmbedder())
		require.NoError(t, err)
		out, err := exp.Expand(ctx, "", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "", out)
	})

	t.Run("syntax passes through", func(t *testing.T) {
		exp, err := NewThesaurusExpansion(testThesaurus(), conceptEmbedder(), WithThreshold(0.9))
		require.NoError(t, err)
		out, err := exp.Expand(ctx, `(apartment OR "cheap room") NOT manhattan`, DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, `(apartment condo flat OR "cheap room") NOT manhattan`, out)
	})

	t.Run("single batch call", func(t *testing.T) {
		embedder := conceptEmbedder()
		exp, err := NewThesaurusExpansion(testThesaurus(), embedder)
		require.NoError(t, err)
		_, err = exp.Expand(ctx, "cheap apartment", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, 1, embedder.CallCount())
	})

	t.Run("embedding failure", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, errors.New("connection refused")
		}
		exp, err := NewThesaurusExpansion(testThesaurus(), embedder)
		require.NoError(t, err)
		_, err = exp.Expand(ctx, "apartment", DefaultConnector)
		assert.ErrorIs(t, err, core.ErrEmbeddingServiceUnavailable)
	})

	t.Run("explain", func(t *testing.T) {
		exp, err := NewThesaurusExpansion(testThesaurus(), conceptEmbedder())
		require.NoError(t, err)
		expl, err := exp.Explain(ctx, "apartment manhattan")
		require.NoError(t, err)
		require.Len(t, expl, 1)
		assert.Equal(t, "apartment", expl[0].Token)
		require.Len(t, expl[0].Candidates, 2)
		assert.Equal(t, "condo", expl[0].Candidates[0].Term)
		assert.InDelta(t, 1.0, expl[0].Candidates[0].Similarity, 1e-9)
	})
}

func TestGenerativeExpansion(t *testing.T) {
	ctx := context.Background()

	t.Run("requires collaborators", func(t *testing.T) {
		_, err := NewGenerativeExpansion(nil, mock.NewMockEmbedder())
		assert.ErrorIs(t, err, ErrFillerRequired)
		_, err = NewGenerativeExpansion(mock.NewMockMaskFiller(), nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("keeps original and close fillers", func(t *testing.T) {
		filler := mock.NewMockMaskFiller("flat", "house", "apartment", "budget")
		exp, err := NewGenerativeExpansion(filler, conceptEmbedder())
		require.NoError(t, err)

		out, err := exp.Expand(ctx, "cheap apartment", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "cheap budget apartment flat", out)
		assert.Equal(t, []string{"[MASK] apartment", "cheap [MASK]"}, filler.Sentences())
	})

	t.Run("top k is passed to the model", func(t *testing.T) {
		var gotK int
		filler := mock.NewMockMaskFiller()
		filler.FillMaskFunc = func(_ context.Context, _ string, k int) ([]ai.Filler, error) {
			gotK = k
			return nil, nil
		}
		exp, err := NewGenerativeExpansion(filler, conceptEmbedder(), WithTopK(4))
		require.NoError(t, err)
		out, err := exp.Expand(ctx, "apartment", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "apartment", out)
		assert.Equal(t, 4, gotK)
	})

	t.Run("model failure", func(t *testing.T) {
		filler := mock.NewMockMaskFiller()
		filler.FillMaskFunc = func(context.Context, string, int) ([]ai.Filler, error) {
			return nil, errors.New("timeout")
		}
		exp, err := NewGenerativeExpansion(filler, conceptEmbedder())
		require.NoError(t, err)
		_, err = exp.Expand(ctx, "apartment", DefaultConnector)
		assert.ErrorIs(t, err, core.ErrEmbeddingServiceUnavailable)
	})
}

type blockingExpander struct {
	release chan struct{}
}

func (b blockingExpander) Expand(ctx context.Context, text, _ string) (string, error) {
	<-b.release
	return text + " done", nil
}

func TestPooled(t *testing.T) {
	_, err := NewPooled(nil, 1)
	assert.ErrorIs(t, err, ErrExpanderRequired)

	t.Run("delivers whole result", func(t *testing.T) {
		exp, err := NewThesaurusExpansion(testThesaurus(), conceptEmbedder())
		require.NoError(t, err)
		pooled, err := NewPooled(exp, 2)
		require.NoError(t, err)
		defer pooled.Release()

		out, err := pooled.Expand(context.Background(), "apartment manhattan", DefaultConnector)
		require.NoError(t, err)
		assert.Equal(t, "apartment condo flat manhattan", out)
	})

	t.Run("cancelled caller gets no partial result", func(t *testing.T) {
		inner := blockingExpander{release: make(chan struct{})}
		pooled, err := NewPooled(inner, 1)
		require.NoError(t, err)
		defer pooled.Release()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		out, err := pooled.Expand(ctx, "apartment", DefaultConnector)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, out)
		close(inner.release)
	})
}
