package ingestion

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/poiesic/placerank/core"
)

// Columns read from a listings CSV. Other columns are ignored.
const (
	columnID = "id"
)

var listingColumns = []string{
	columnID,
	core.FieldNameName,
	core.FieldNameRoomType,
	core.FieldNameDescription,
	core.FieldNameNeighborhoodOverview,
}

// OpenListings opens a listings CSV file, transparently decompressing it
// when it is gzipped.
func OpenListings(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedListings, path, err)
		}
		return &gzipFile{Reader: zr, file: f}, nil
	}
	return &bufferedFile{Reader: br, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	return errors.Join(g.Reader.Close(), g.file.Close())
}

type bufferedFile struct {
	*bufio.Reader
	file *os.File
}

func (b *bufferedFile) Close() error {
	return b.file.Close()
}

// ReadListings parses listings from CSV with a header row. The id column is
// required; missing text columns read as empty. Rows whose id is not a
// positive integer fail the whole read.
func ReadListings(r io.Reader) ([]*core.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []*core.Listing{}, nil
		}
		return nil, fmt.Errorf("%w: reading header: %w", ErrMalformedListings, err)
	}

	positions := make(map[string]int, len(listingColumns))
	for i, name := range header {
		positions[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := positions[columnID]; !ok {
		return nil, fmt.Errorf("%w: missing %q column", ErrMalformedListings, columnID)
	}

	field := func(row []string, column string) string {
		i, ok := positions[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var listings []*core.Listing
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedListings, err)
		}

		line, _ := cr.FieldPos(0)
		id, err := strconv.ParseInt(field(row, columnID), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: line %d: invalid id %q", ErrMalformedListings, line, field(row, columnID))
		}
		listings = append(listings, &core.Listing{
			ID:                   core.ListingID(id),
			Name:                 field(row, core.FieldNameName),
			RoomType:             field(row, core.FieldNameRoomType),
			Description:          stripMarkup(field(row, core.FieldNameDescription)),
			NeighborhoodOverview: stripMarkup(field(row, core.FieldNameNeighborhoodOverview)),
		})
	}
	if listings == nil {
		listings = []*core.Listing{}
	}
	return listings, nil
}

// stripMarkup removes the HTML line breaks and tags found in scraped
// listing descriptions.
func stripMarkup(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			b.WriteByte(' ')
		case r == '>' && inTag:
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
