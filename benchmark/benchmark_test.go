package benchmark

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/placerank/core"
)

func ids(v ...int64) []core.ListingID {
	out := make([]core.ListingID, len(v))
	for i, n := range v {
		out[i] = core.ListingID(n)
	}
	return out
}

func TestPrecisionRecall(t *testing.T) {
	relevant := ids(1, 2, 3, 4)

	assert.InDelta(t, 0.5, Recall(relevant, ids(1, 2, 9)), 1e-9)
	assert.InDelta(t, 2.0/3.0, Precision(relevant, ids(1, 2, 9)), 1e-9)
	assert.Zero(t, Precision(relevant, nil))
	assert.Zero(t, Recall(nil, ids(1)))
	// duplicates in the answer count once
	assert.InDelta(t, 0.25, Recall(relevant, ids(1, 1, 1)), 1e-9)
}

func TestF1AndE(t *testing.T) {
	assert.InDelta(t, 0.5, F1(0.5, 0.5), 1e-9)
	assert.Zero(t, F1(0, 1))
	assert.InDelta(t, 1.0, E(0, 0.5, DefaultEBeta), 1e-9)

	// E with beta 1 is 1 - F1
	assert.InDelta(t, 1-F1(0.4, 0.8), E(0.4, 0.8, 1), 1e-9)
	// a larger beta favours recall
	assert.Less(t, E(0.4, 0.8, DefaultEBeta), E(0.4, 0.8, 1))
}

func TestPrecisionAtRecallLevels(t *testing.T) {
	relevant := ids(1, 3)
	answer := ids(1, 2, 3, 4)

	ranked := PrecisionAtRanks(relevant, answer)
	require.Len(t, ranked, 4)
	assert.InDelta(t, 1.0, ranked[0].Precision, 1e-9)
	assert.InDelta(t, 0.5, ranked[1].Precision, 1e-9)
	assert.InDelta(t, 1.0, ranked[3].Recall, 1e-9)

	levels := PrecisionAtRecallLevels(relevant, answer)
	require.Len(t, levels, 2)
	assert.Equal(t, 1, levels[0].Rank)
	assert.Equal(t, 3, levels[1].Rank)
	assert.InDelta(t, 2.0/3.0, levels[1].Precision, 1e-9)

	assert.InDelta(t, (1.0+2.0/3.0)/2, AveragePrecision(relevant, answer), 1e-9)
	assert.Zero(t, AveragePrecision(relevant, nil))
}

func TestLoadDataset(t *testing.T) {
	data := `[
		{"uin": 7, "text": "quiet studio", "relevant": [1, 2], "sentiments": ["joy", "not anger"]},
		{"uin": "q2", "text": "loft", "relevant": [], "sentiments": [], "room_type": "Entire home/apt"}
	]`
	queries, err := LoadDataset(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, queries, 2)

	assert.Equal(t, UIN("7"), queries[0].UIN)
	assert.Equal(t, UIN("q2"), queries[1].UIN)

	sq := queries[0].SearchQuery()
	assert.Equal(t, "joy not anger", sq.SentimentTags)
	assert.Equal(t, core.FieldName|core.FieldDescription|core.FieldNeighborhoodOverview, sq.Fields)
	assert.Equal(t, "Entire home/apt", queries[1].SearchQuery().RoomType)

	_, err = LoadDataset(strings.NewReader(`[{"uin": 1, "text": "  "}]`))
	assert.Error(t, err)
	_, err = LoadDataset(strings.NewReader(`{`))
	assert.Error(t, err)
}

type fakeSearcher struct {
	answers map[string][]core.ListingID
	limits  []int
}

func (f *fakeSearcher) Search(_ context.Context, q core.Query, limit, _ int) ([]core.ScoredResult, int, error) {
	f.limits = append(f.limits, limit)
	answer, ok := f.answers[q.Text]
	if !ok {
		return nil, 0, errors.New("boom")
	}
	out := make([]core.ScoredResult, len(answer))
	for i, id := range answer {
		out[i] = core.ScoredResult{DocumentID: id}
	}
	return out, len(out), nil
}

func TestRun(t *testing.T) {
	model := &fakeSearcher{answers: map[string][]core.ListingID{
		"quiet studio": ids(1, 2, 3, 4),
		"loft":         nil,
	}}
	queries := []Query{
		{UIN: "1", Text: "quiet studio", Relevant: ids(1, 3)},
		{UIN: "2", Text: "loft", Relevant: ids(5)},
		{UIN: "3", Text: "broken", Relevant: ids(5)},
	}

	report, err := Run(context.Background(), "lexical", model, queries)
	require.NoError(t, err)
	require.Len(t, report.Queries, 3)
	assert.Equal(t, []int{0, 0, 0}, model.limits)

	first := report.Queries[0]
	assert.InDelta(t, 0.5, first.Precision, 1e-9)
	assert.InDelta(t, 1.0, first.Recall, 1e-9)
	assert.InDelta(t, 2.0/3.0, first.F1, 1e-9)

	assert.Zero(t, report.Queries[1].F1)
	assert.Error(t, report.Queries[2].Err)
	assert.InDelta(t, 1.0, report.Queries[2].E, 1e-9)

	assert.InDelta(t, (2.0/3.0)/3, report.MeanF1, 1e-9)
	assert.InDelta(t, (1.0+2.0/3.0)/2/3, report.MAP, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	out := buf.String()
	assert.Contains(t, out, "lexical")
	assert.Contains(t, out, "quiet studio")
	assert.Contains(t, out, "error: boom")
	assert.Contains(t, out, "MAP:")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, "x", &fakeSearcher{}, []Query{{Text: "a"}})
	assert.ErrorIs(t, err, context.Canceled)
}
