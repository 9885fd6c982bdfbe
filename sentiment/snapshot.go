package sentiment

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/poiesic/placerank/core"
)

const snapshotDateLayout = "2006-01-02"

type snapshotScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type snapshotReview struct {
	ReviewID int64           `json:"review_id"`
	Date     string          `json:"date"`
	Scores   []snapshotScore `json:"sentiment_scores"`
}

// DecodeSnapshot parses a JSON snapshot of the form
//
//	{"<listing_id>": [{"review_id": 1, "date": "2023-05-01",
//	                   "sentiment_scores": [{"label": "joy", "score": 0.8}]}]}
//
// Any structural problem is reported as core.ErrCorruptSnapshot. Reviews are
// returned in file order.
func DecodeSnapshot(r io.Reader) (map[core.ListingID][]core.Review, error) {
	var raw map[string][]snapshotReview
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorruptSnapshot, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: top level value is not an object", core.ErrCorruptSnapshot)
	}

	out := make(map[core.ListingID][]core.Review, len(raw))
	for key, entries := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: listing id %q: %w", core.ErrCorruptSnapshot, key, err)
		}
		listingID := core.ListingID(id)

		reviews := make([]core.Review, 0, len(entries))
		for _, e := range entries {
			date, err := parseSnapshotDate(e.Date)
			if err != nil {
				return nil, fmt.Errorf("%w: listing %d review %d: %w", core.ErrCorruptSnapshot, id, e.ReviewID, err)
			}
			review := core.Review{
				ID:        e.ReviewID,
				ListingID: listingID,
				Date:      date,
				Scores:    make([]core.SentimentScore, len(e.Scores)),
			}
			for i, s := range e.Scores {
				review.Scores[i] = core.SentimentScore{Label: core.NormalizeLabel(s.Label), Score: s.Score}
			}
			if err := core.ValidateReview(&review); err != nil {
				return nil, fmt.Errorf("%w: listing %d: %w", core.ErrCorruptSnapshot, id, err)
			}
			reviews = append(reviews, review)
		}
		out[listingID] = reviews
	}
	return out, nil
}

// EncodeSnapshot writes histories in the format DecodeSnapshot reads.
func EncodeSnapshot(w io.Writer, histories map[core.ListingID][]core.Review) error {
	raw := make(map[string][]snapshotReview, len(histories))
	for id, reviews := range histories {
		entries := make([]snapshotReview, 0, len(reviews))
		for _, r := range reviews {
			e := snapshotReview{
				ReviewID: r.ID,
				Date:     r.Date.UTC().Format(snapshotDateLayout),
				Scores:   make([]snapshotScore, len(r.Scores)),
			}
			for i, s := range r.Scores {
				e.Scores[i] = snapshotScore{Label: s.Label, Score: s.Score}
			}
			entries = append(entries, e)
		}
		raw[strconv.FormatInt(int64(id), 10)] = entries
	}
	return json.NewEncoder(w).Encode(raw)
}

func parseSnapshotDate(s string) (time.Time, error) {
	if t, err := time.Parse(snapshotDateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return core.Day(t), nil
}
