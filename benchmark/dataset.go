// Package benchmark measures retrieval quality against a set of queries
// with known relevant listings.
package benchmark

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/poiesic/placerank/core"
)

// UIN identifies a benchmark query. Datasets write it as a number or a
// string.
type UIN string

// UnmarshalJSON accepts a JSON string or number.
func (u *UIN) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UIN(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("uin must be a string or number: %w", err)
	}
	*u = UIN(n.String())
	return nil
}

// Query is one benchmark query.
type Query struct {
	UIN        UIN              `json:"uin"`
	Text       string           `json:"text"`
	Relevant   []core.ListingID `json:"relevant"`
	Sentiments []string         `json:"sentiments"`
	RoomType   string           `json:"room_type,omitempty"`
}

// SearchQuery converts q into the query the model runs.
func (q Query) SearchQuery() core.Query {
	return core.Query{
		Text:          q.Text,
		Fields:        core.FieldName | core.FieldDescription | core.FieldNeighborhoodOverview,
		RoomType:      q.RoomType,
		SentimentTags: strings.Join(q.Sentiments, " "),
	}
}

// LoadDataset reads a JSON array of queries.
func LoadDataset(r io.Reader) ([]Query, error) {
	var queries []Query
	if err := json.NewDecoder(r).Decode(&queries); err != nil {
		return nil, fmt.Errorf("decoding benchmark dataset: %w", err)
	}
	for i, q := range queries {
		if strings.TrimSpace(q.Text) == "" {
			return nil, fmt.Errorf("benchmark query %d (%s) has no text", i, q.UIN)
		}
	}
	return queries, nil
}

// LoadDatasetFile reads a dataset from path.
func LoadDatasetFile(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDataset(f)
}
