package sentiment

import (
	"testing"

	"github.com/poiesic/placerank/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource returns canned vectors.
type fixedSource map[core.ListingID]core.SentimentVector

func (f fixedSource) HasHistory(id core.ListingID) bool { return len(f[id]) > 0 }
func (f fixedSource) DecayedSentiment(id core.ListingID, _ float64) core.SentimentVector {
	return f[id]
}
func (f fixedSource) MeanSentiment(id core.ListingID) core.SentimentVector { return f[id] }

// reloadingSource replaces its contents after every direct read, as a
// concurrent reload would. Snapshot pins the current contents.
type reloadingSource struct {
	versions []fixedSource
	current  int
}

func (r *reloadingSource) next() fixedSource {
	v := r.versions[r.current%len(r.versions)]
	r.current++
	return v
}

func (r *reloadingSource) Snapshot() HistorySource { return r.versions[r.current%len(r.versions)] }
func (r *reloadingSource) HasHistory(id core.ListingID) bool {
	return r.next().HasHistory(id)
}
func (r *reloadingSource) DecayedSentiment(id core.ListingID, rate float64) core.SentimentVector {
	return r.next().DecayedSentiment(id, rate)
}
func (r *reloadingSource) MeanSentiment(id core.ListingID) core.SentimentVector {
	return r.next().MeanSentiment(id)
}

func TestScore_ReadsOneSnapshot(t *testing.T) {
	source := &reloadingSource{versions: []fixedSource{
		{1: {"joy": 0.8}, 2: {"joy": 0.5}},
		{},
	}}
	s, err := NewScorer(source)
	require.NoError(t, err)
	joy := core.RequestedSentiment{"joy": 1}

	assert.InDelta(t, 2.0, s.Score(1, 2.0, joy), 1e-9)

	source.current = 0
	weight := s.Weighting(joy)
	source.current = 1
	assert.InDelta(t, 3.0, weight(1, 3.0), 1e-9, "weighting keeps the history pinned at creation")

	source.current = 0
	ranked := s.Rerank([]core.ScoredResult{
		{DocumentID: 1, LexicalScore: 1},
		{DocumentID: 2, LexicalScore: 1},
	}, joy, 0, 0)
	require.Len(t, ranked, 2)
	assert.InDelta(t, 1.0, ranked[0].FinalScore, 1e-9)
	assert.InDelta(t, 1.0, ranked[1].FinalScore, 1e-9)
}

func TestNewScorer(t *testing.T) {
	_, err := NewScorer(nil)
	assert.ErrorIs(t, err, ErrSourceRequired)

	_, err = NewScorer(fixedSource{}, WithDecayRate(-1))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	s, err := NewScorer(fixedSource{}, WithDecayRate(0.5), WithAggregation(AggregateMean))
	require.NoError(t, err)
	assert.Equal(t, "mean:0.5", s.Identity())
}

func TestScore(t *testing.T) {
	source := fixedSource{
		1: {"joy": 0.8, "anger": 0.1},
		2: {"anger": 0.9},
	}
	s, err := NewScorer(source)
	require.NoError(t, err)
	joy := core.RequestedSentiment{"joy": 1}

	t.Run("empty request passes through", func(t *testing.T) {
		assert.Equal(t, 3.5, s.Score(1, 3.5, nil))
		assert.Equal(t, 3.5, s.Score(1, 3.5, core.RequestedSentiment{}))
	})

	t.Run("missing history passes through", func(t *testing.T) {
		assert.Equal(t, 2.0, s.Score(99, 2.0, joy))
		assert.Equal(t, 2.0, s.Score(99, 2.0, core.RequestedSentiment{"anger": -1}))
	})

	t.Run("matching mood beats higher lexical score", func(t *testing.T) {
		x := s.Score(1, 1.0, joy)
		y := s.Score(2, 5.0, joy)
		assert.Greater(t, x, y)
		assert.Equal(t, 0.0, y)
	})

	t.Run("monotonic in similarity", func(t *testing.T) {
		better, err := NewScorer(fixedSource{1: {"joy": 0.9, "anger": 0.05}})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, better.Score(1, 2.0, joy), s.Score(1, 2.0, joy))
	})
}

func TestWeighting(t *testing.T) {
	s, err := NewScorer(fixedSource{1: {"joy": 1}})
	require.NoError(t, err)

	assert.Nil(t, s.Weighting(nil))

	w := s.Weighting(core.RequestedSentiment{"joy": 1})
	require.NotNil(t, w)
	assert.InDelta(t, 4.0, w(1, 4.0), 1e-12)
	assert.InDelta(t, 4.0, w(2, 4.0), 1e-12)
}

func TestRerank(t *testing.T) {
	source := fixedSource{
		1: {"joy": 0.8, "anger": 0.1},
		2: {"anger": 0.9},
		3: {"joy": 0.2, "anger": 0.2},
	}
	s, err := NewScorer(source)
	require.NoError(t, err)

	results := []core.ScoredResult{
		{DocumentID: 2, LexicalScore: 9},
		{DocumentID: 3, LexicalScore: 4},
		{DocumentID: 1, LexicalScore: 3},
		{DocumentID: 4, LexicalScore: 1},
	}

	ranked := s.Rerank(results, core.RequestedSentiment{"joy": 1}, 0, 0)
	require.Len(t, ranked, 4)
	ids := []core.ListingID{ranked[0].DocumentID, ranked[1].DocumentID, ranked[2].DocumentID, ranked[3].DocumentID}
	assert.Equal(t, []core.ListingID{1, 3, 4, 2}, ids)
	for i := 0; i+1 < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].FinalScore, ranked[i+1].FinalScore)
	}
	assert.Equal(t, 0.0, results[0].FinalScore, "input untouched")

	page := s.Rerank(results, core.RequestedSentiment{"joy": 1}, 1, 2)
	require.Len(t, page, 2)
	assert.Equal(t, core.ListingID(3), page[0].DocumentID)
	assert.Equal(t, core.ListingID(4), page[1].DocumentID)
}
