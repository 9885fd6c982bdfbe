package core

import (
	"sort"
	"strings"
	"time"
)

// ListingID identifies a listing in the index and in the review history.
type ListingID int64

// Listing is a short property listing as stored in the lexical index.
type Listing struct {
	ID                   ListingID
	Name                 string
	RoomType             string
	Description          string
	NeighborhoodOverview string
}

// SentimentScore is a single classifier output for a review.
type SentimentScore struct {
	Label string
	Score float64 // in [0,1]
}

// NormalizeLabel is the canonical form of an emotion label. Stored labels
// and requested sentiment tags are compared in this form.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Review is a classified guest review. Reviews are immutable once classified.
type Review struct {
	ID        int64
	ListingID ListingID
	Date      time.Time // calendar date, UTC midnight
	Scores    []SentimentScore
}

// SentimentVector maps an emotion label to a non-negative weight.
// An empty vector means "no signal".
type SentimentVector map[string]float64

// RequestedSentiment maps an emotion label to +1 (wanted) or -1 (negated).
type RequestedSentiment map[string]float64

// Query is a single user submission.
type Query struct {
	Text          string
	Fields        SearchFields
	RoomType      string // optional hard filter
	SentimentTags string // whitespace separated, may contain "not <tag>"
}

// ScoredResult is one ranked hit.
type ScoredResult struct {
	DocumentID   ListingID
	Name         string
	RoomType     string
	LexicalScore float64
	FinalScore   float64
}

// ExpansionCandidate is a proposed alternate query term.
type ExpansionCandidate struct {
	Term       string
	Similarity float64
}

// SortResults orders results by FinalScore descending, breaking ties by
// ascending DocumentID.
func SortResults(results []ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore == results[j].FinalScore {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].FinalScore > results[j].FinalScore
	})
}

// Paginate returns the window [offset, offset+limit) of results.
// A limit <= 0 means no upper bound.
func Paginate(results []ScoredResult, offset, limit int) []ScoredResult {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(results) {
		return []ScoredResult{}
	}
	end := len(results)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return results[offset:end]
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WeightFunc rescales a document's lexical score during a search pass.
type WeightFunc func(id ListingID, lexical float64) float64
