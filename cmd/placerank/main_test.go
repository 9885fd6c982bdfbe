package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingsCSV = `id,name,room_type,description,neighborhood_overview
1,Apartment in Manhattan,Entire home/apt,Loft style apartment,Busy streets
2,Apartment in Queens,Private room,Near the subway,Quiet blocks
3,Farmhouse,Entire home/apt,Fields and barns,Open country
`

const snapshotJSON = `{
  "2": [{"review_id": 5, "date": "2023-06-01", "sentiment_scores": [{"label": "joy", "score": 0.75}]}]
}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	err := app.Run(append([]string{"placerank", "--log-level", "error"}, args...))
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestSetupLogger(t *testing.T) {
	_, err := run(t, "--log-level", "loud", "correct", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRequiredFlags(t *testing.T) {
	_, err := run(t, "index")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listings")

	_, err = run(t, "benchmark")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queries")
}

func TestIndexAndSearch(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "listings.bleve")
	csv := writeFile(t, dir, "listings.csv", listingsCSV)

	out, err := run(t, "index", "--index-path", indexPath, "--listings", csv)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 3 listings")

	out, err = run(t, "search", "--index-path", indexPath, "--policy", "or", "apartment", "farmhouse")
	require.NoError(t, err)
	assert.Contains(t, out, "3 results")
	assert.Contains(t, out, "Farmhouse")
	assert.NotContains(t, out, "Did you mean")

	out, err = run(t, "search", "--index-path", indexPath, "--room-type", "private room", "apartment")
	require.NoError(t, err)
	assert.Contains(t, out, "1 results")
	assert.Contains(t, out, "Queens")

	out, err = run(t, "search", "--index-path", indexPath, "apartmnt")
	require.NoError(t, err)
	assert.Contains(t, out, "Did you mean: apartment")

	out, err = run(t, "correct", "--index-path", indexPath, "farmhose")
	require.NoError(t, err)
	assert.Equal(t, "farmhouse\n", out)

	out, err = run(t, "expand", "--index-path", indexPath, "--explain", "quiet", "loft")
	require.NoError(t, err)
	assert.Equal(t, "quiet loft\n", out, "no expansion strategy configured")

	_, err = run(t, "search", "--index-path", indexPath)
	assert.Error(t, err)

	_, err = run(t, "search", "--index-path", indexPath, "--strategy", "rerank", "apartment")
	assert.Error(t, err, "rerank needs a sentiment source")
}

func TestImportReviewsAndSentiment(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "reviews")
	indexPath := filepath.Join(dir, "listings.bleve")
	snapshot := writeFile(t, dir, "reviews.json", snapshotJSON)

	out, err := run(t, "import-reviews", "--index-path", indexPath, "--store", store, "--snapshot-file", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 reviews for 1 listings")

	out, err = run(t, "import-reviews", "--index-path", indexPath, "--store", store, "--snapshot-file", snapshot)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	out, err = run(t, "sentiment", "--index-path", indexPath, "--store", store, "--listing", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "2023-06-01")
	assert.Contains(t, out, "joy=0.750")
	assert.Contains(t, out, "mean:    joy=0.750")

	out, err = run(t, "sentiment", "--index-path", indexPath, "--store", store, "--listing", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "no reviews")

	_, err = run(t, "import-reviews", "--index-path", indexPath, "--snapshot-file", snapshot)
	assert.Error(t, err)
}

func TestBenchmarkCommand(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "listings.bleve")
	csv := writeFile(t, dir, "listings.csv", listingsCSV)
	queries := writeFile(t, dir, "queries.json",
		`[{"uin": 1, "text": "apartment", "relevant": [1, 2], "sentiments": []}]`)

	_, err := run(t, "index", "--index-path", indexPath, "--listings", csv)
	require.NoError(t, err)

	out, err := run(t, "benchmark", "--index-path", indexPath, "--queries", queries,
		"--variant", "and", "--variant", "or")
	require.NoError(t, err)
	assert.Contains(t, out, "and\n")
	assert.Contains(t, out, "MAP: 1.0000")

	_, err = run(t, "benchmark", "--index-path", indexPath, "--queries", queries, "--variant", "bm25f")
	assert.Error(t, err)
}
