package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/placerank"
	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/index"
	"github.com/poiesic/placerank/retrieval"
	"github.com/poiesic/placerank/spelling"
)

type stubExpander struct{ err error }

func (s stubExpander) Expand(_ context.Context, text, connector string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if text == "" {
		return "", nil
	}
	return text + connector + "flat", nil
}

type fakeCatalog struct {
	idx     *index.Index
	history map[core.ListingID][]core.Review
	err     error
}

func (c *fakeCatalog) Listing(ctx context.Context, id core.ListingID) (*core.Listing, error) {
	return c.idx.Listing(ctx, id)
}

func (c *fakeCatalog) ListingSentiment(id core.ListingID) placerank.ListingSentiment {
	return placerank.ListingSentiment{
		ListingID: id,
		Reviews:   c.history[id],
		Decayed:   core.SentimentVector{"joy": 0.7},
		Mean:      core.SentimentVector{"joy": 0.8},
	}
}

func (c *fakeCatalog) DocCount() (uint64, error) {
	if c.err != nil {
		return 0, c.err
	}
	return c.idx.DocCount()
}

func newTestServer(t *testing.T, opts ...retrieval.Option) (*httptest.Server, *retrieval.Model, *fakeCatalog) {
	t.Helper()
	ctx := context.Background()
	idx, err := index.NewMemory()
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.AddListings(ctx, []*core.Listing{
		{ID: 1, Name: "Apartment in Manhattan", RoomType: "Entire home/apt", Description: "Loft style apartment"},
		{ID: 2, Name: "Apartment in Queens", RoomType: "Private room", Description: "Near the subway"},
		{ID: 3, Name: "Farmhouse", RoomType: "Entire home/apt", Description: "Fields and barns"},
	}))

	base := []retrieval.Option{
		retrieval.WithTermPolicy(core.TermPolicyOr),
		retrieval.WithCorrector(spelling.NewIndexCorrector(idx)),
		retrieval.WithExpander(stubExpander{}),
	}
	model, err := retrieval.NewModel(idx, append(base, opts...)...)
	require.NoError(t, err)

	day := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	catalog := &fakeCatalog{idx: idx, history: map[core.ListingID][]core.Review{
		1: {{ID: 7, ListingID: 1, Date: day, Scores: []core.SentimentScore{{Label: "joy", Score: 0.8}}}},
	}}
	srv := httptest.NewServer(NewServer(model, catalog, WithPageSize(2)).Handler())
	t.Cleanup(srv.Close)
	return srv, model, catalog
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestSearch(t *testing.T) {
	srv, model, _ := newTestServer(t)

	t.Run("default page size", func(t *testing.T) {
		var body SearchResponse
		resp := getJSON(t, srv.URL+"/search?q=apartment+farmhouse", &body)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
		assert.Equal(t, 3, body.Total)
		assert.Equal(t, 2, body.Limit)
		assert.Len(t, body.Results, 2)
		assert.Empty(t, body.DidYouMean)
		assert.Empty(t, body.ExpandedQuery)
	})

	t.Run("room type filter and offset", func(t *testing.T) {
		var body SearchResponse
		getJSON(t, srv.URL+"/search?q=apartment+farmhouse&room_type=entire%20home/apt&offset=1&limit=5", &body)
		assert.Equal(t, 2, body.Total)
		require.Len(t, body.Results, 1)
	})

	t.Run("did you mean", func(t *testing.T) {
		var body SearchResponse
		getJSON(t, srv.URL+"/search?q=apartmnt", &body)
		assert.Equal(t, "apartment", body.DidYouMean)
		assert.Zero(t, body.Total)
	})

	t.Run("expanded query when autoexpansion is on", func(t *testing.T) {
		model.SetAutoexpansion(true)
		defer model.SetAutoexpansion(false)
		var body SearchResponse
		getJSON(t, srv.URL+"/search?q=apartment", &body)
		assert.Equal(t, "apartment flat", body.ExpandedQuery)
	})

	t.Run("bad requests", func(t *testing.T) {
		for _, q := range []string{
			"q=(apartment",
			"q=apartment&fields=price",
			"q=apartment&limit=0",
			"q=apartment&limit=abc",
			"q=apartment&offset=-1",
		} {
			resp := getJSON(t, srv.URL+"/search?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		}
	})
}

func TestExpandAndCorrect(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var expanded map[string]string
	getJSON(t, srv.URL+"/expand?q=loft", &expanded)
	assert.Equal(t, "loft flat", expanded["expanded"])

	var corrected map[string]string
	getJSON(t, srv.URL+"/correct?q=subwy", &corrected)
	assert.Equal(t, "subway", corrected["suggestion"])

	failing, _, _ := newTestServer(t, retrieval.WithExpander(stubExpander{err: core.ErrEmbeddingServiceUnavailable}))
	resp := getJSON(t, failing.URL+"/expand?q=loft", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestAutoexpansion(t *testing.T) {
	srv, model, _ := newTestServer(t)

	var body autoexpansionBody
	getJSON(t, srv.URL+"/autoexpansion", &body)
	assert.False(t, body.Enabled)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/autoexpansion", strings.NewReader(`{"enabled": true}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, model.Autoexpansion())

	req, err = http.NewRequest(http.MethodPut, srv.URL+"/autoexpansion", strings.NewReader(`{`))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListings(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var listing ListingResponse
	resp := getJSON(t, srv.URL+"/listings/3", &listing)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Farmhouse", listing.Name)

	resp = getJSON(t, srv.URL+"/listings/99", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/listings/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var sentimentBody SentimentResponse
	getJSON(t, srv.URL+"/listings/1/sentiment", &sentimentBody)
	require.Len(t, sentimentBody.Reviews, 1)
	assert.Equal(t, "2024-02-01", sentimentBody.Reviews[0].Date)
	assert.InDelta(t, 0.8, sentimentBody.Reviews[0].Scores["joy"], 1e-9)
	assert.InDelta(t, 0.8, sentimentBody.Mean["joy"], 1e-9)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _, catalog := newTestServer(t)

	var health map[string]any
	resp := getJSON(t, srv.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.EqualValues(t, 3, health["listings"])

	catalog.err = errors.New("closed")
	resp = getJSON(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = getJSON(t, srv.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRequestIDPassthrough(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	h := recoverer(nopLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
}
