package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortResults(t *testing.T) {
	results := []ScoredResult{
		{DocumentID: 9, FinalScore: 1.0},
		{DocumentID: 3, FinalScore: 2.5},
		{DocumentID: 7, FinalScore: 1.0},
		{DocumentID: 1, FinalScore: 0},
		{DocumentID: 2, FinalScore: 1.0},
	}

	SortResults(results)

	ids := make([]ListingID, len(results))
	for i, r := range results {
		ids[i] = r.DocumentID
	}
	assert.Equal(t, []ListingID{3, 2, 7, 9, 1}, ids)

	for i := 0; i+1 < len(results); i++ {
		a, b := results[i], results[i+1]
		require.GreaterOrEqual(t, a.FinalScore, b.FinalScore)
		if a.FinalScore == b.FinalScore {
			require.Less(t, a.DocumentID, b.DocumentID)
		}
	}
}

func TestPaginate(t *testing.T) {
	results := make([]ScoredResult, 5)
	for i := range results {
		results[i].DocumentID = ListingID(i + 1)
	}

	t.Run("unlimited", func(t *testing.T) {
		assert.Len(t, Paginate(results, 0, 0), 5)
	})

	t.Run("window", func(t *testing.T) {
		page := Paginate(results, 1, 2)
		require.Len(t, page, 2)
		assert.Equal(t, ListingID(2), page[0].DocumentID)
		assert.Equal(t, ListingID(3), page[1].DocumentID)
	})

	t.Run("limit past end", func(t *testing.T) {
		assert.Len(t, Paginate(results, 3, 10), 2)
	})

	t.Run("offset past end", func(t *testing.T) {
		page := Paginate(results, 8, 2)
		assert.NotNil(t, page)
		assert.Empty(t, page)
	})

	t.Run("negative offset", func(t *testing.T) {
		assert.Len(t, Paginate(results, -4, 1), 1)
	})
}

func TestDay(t *testing.T) {
	ts := time.Date(2024, 2, 29, 23, 59, 0, 0, time.FixedZone("x", -3600))
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Day(ts))
}
