package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/poiesic/placerank/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingsCSV = `id,listing_url,name,room_type,description,neighborhood_overview
2539,https://example.com/2539,Clean & quiet apt home by the park,Private room,"Renovated apartment<br /><br />Close to the <b>park</b>",Quiet Kensington
2595,https://example.com/2595,Skylit Midtown Castle,Entire home/apt,"Beautiful, spacious skylit studio",
`

func TestReadListings(t *testing.T) {
	listings, err := ReadListings(strings.NewReader(listingsCSV))
	require.NoError(t, err)
	require.Len(t, listings, 2)

	assert.Equal(t, core.ListingID(2539), listings[0].ID)
	assert.Equal(t, "Clean & quiet apt home by the park", listings[0].Name)
	assert.Equal(t, "Private room", listings[0].RoomType)
	assert.Equal(t, "Renovated apartment Close to the park", listings[0].Description)
	assert.Equal(t, "Quiet Kensington", listings[0].NeighborhoodOverview)
	assert.Empty(t, listings[1].NeighborhoodOverview)
}

func TestReadListings_Errors(t *testing.T) {
	_, err := ReadListings(strings.NewReader("name,room_type\nx,y\n"))
	assert.ErrorIs(t, err, ErrMalformedListings)

	_, err = ReadListings(strings.NewReader("id,name\nabc,x\n"))
	assert.ErrorIs(t, err, ErrMalformedListings)

	listings, err := ReadListings(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestOpenListings(t *testing.T) {
	dir := t.TempDir()

	plain := filepath.Join(dir, "listings.csv")
	require.NoError(t, os.WriteFile(plain, []byte(listingsCSV), 0o644))

	zipped := filepath.Join(dir, "listings.csv.gz")
	f, err := os.Create(zipped)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(listingsCSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, zipped} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			r, err := OpenListings(path)
			require.NoError(t, err)
			defer r.Close()
			listings, err := ReadListings(r)
			require.NoError(t, err)
			assert.Len(t, listings, 2)
		})
	}
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "a b", stripMarkup("a<br/>b"))
	assert.Equal(t, "plain text", stripMarkup("plain text"))
}
