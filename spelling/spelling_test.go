package spelling

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	suggest  func(string) (string, error)
	searched bool
	closed   bool
}

func (f *fakeSearcher) Search(context.Context, index.Request) (*index.Page, error) {
	f.searched = true
	return &index.Page{}, nil
}

func (f *fakeSearcher) Suggest(_ context.Context, text string) (string, error) {
	return f.suggest(text)
}

func (f *fakeSearcher) Close() error {
	f.closed = true
	return nil
}

type fakeSource struct {
	searcher *fakeSearcher
	err      error
}

func (f fakeSource) Searcher() (index.Searcher, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.searcher, nil
}

func TestNone(t *testing.T) {
	assert.Equal(t, "helo", None{}.Correct(context.Background(), core.Query{Text: "helo"}))
}

func TestIndexCorrector(t *testing.T) {
	ctx := context.Background()

	t.Run("uses suggestion without searching", func(t *testing.T) {
		s := &fakeSearcher{suggest: func(string) (string, error) { return "hello", nil }}
		c := NewIndexCorrector(fakeSource{searcher: s})
		assert.Equal(t, "hello", c.Correct(ctx, core.Query{Text: "helo"}))
		assert.False(t, s.searched)
		assert.True(t, s.closed)
	})

	t.Run("suggest error keeps text", func(t *testing.T) {
		s := &fakeSearcher{suggest: func(string) (string, error) { return "", core.ErrInvalidQuery }}
		c := NewIndexCorrector(fakeSource{searcher: s})
		assert.Equal(t, `"helo`, c.Correct(ctx, core.Query{Text: `"helo`}))
		assert.True(t, s.closed)
	})

	t.Run("source error keeps text", func(t *testing.T) {
		c := NewIndexCorrector(fakeSource{err: errors.New("closed")})
		assert.Equal(t, "helo", c.Correct(ctx, core.Query{Text: "helo"}))
	})

	t.Run("real index", func(t *testing.T) {
		idx, err := index.NewMemory()
		require.NoError(t, err)
		defer idx.Close()
		require.NoError(t, idx.AddListings(ctx, []*core.Listing{
			{ID: 1, Name: "Spacious loft", Description: "Near the river"},
		}))

		c := NewIndexCorrector(idx)
		assert.Equal(t, "spacious river", c.Correct(ctx, core.Query{Text: "spacius rivr"}))
	})
}
