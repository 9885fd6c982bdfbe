package sentiment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/storage"
)

// DefaultRetention is the number of most recent reviews kept per listing.
const DefaultRetention = 10

// Store holds the review histories of all listings. It is immutable after
// construction.
type Store struct {
	histories map[core.ListingID][]core.Review
	retention int
	reviews   int
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithRetention sets how many of the most recent reviews are kept per listing.
func WithRetention(k int) Option {
	return func(s *Store) error {
		if k < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidRetention, k)
		}
		s.retention = k
		return nil
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

func newStore(opts []Option) (*Store, error) {
	s := &Store{
		histories: map[core.ListingID][]core.Review{},
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "sentiment-store"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// NewStore builds a store directly from review histories.
func NewStore(histories map[core.ListingID][]core.Review, opts ...Option) (*Store, error) {
	s, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	for id, reviews := range histories {
		s.add(id, slices.Clone(reviews))
	}
	s.logger.Debug("sentiment store built", "listings", len(s.histories), "reviews", s.reviews)
	return s, nil
}

// Load reads a JSON snapshot. See DecodeSnapshot for the format.
func Load(r io.Reader, opts ...Option) (*Store, error) {
	histories, err := DecodeSnapshot(r)
	if err != nil {
		return nil, err
	}
	return NewStore(histories, opts...)
}

// LoadFile reads a JSON snapshot from disk.
func LoadFile(path string, opts ...Option) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()
	return Load(f, opts...)
}

// LoadRepository reads every review history from a repository.
func LoadRepository(ctx context.Context, repo storage.ReviewRepository, opts ...Option) (*Store, error) {
	s, err := newStore(opts)
	if err != nil {
		return nil, err
	}
	err = repo.ForEachListing(ctx, func(id core.ListingID, reviews []*core.Review) error {
		history := make([]core.Review, 0, len(reviews))
		for _, r := range reviews {
			history = append(history, *r)
		}
		s.add(id, history)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCorruptSnapshot, err)
	}
	s.logger.Debug("sentiment store loaded from repository", "listings", len(s.histories), "reviews", s.reviews)
	return s, nil
}

// add sorts a history by date descending (ties: review id descending) and
// keeps the most recent reviews.
func (s *Store) add(id core.ListingID, reviews []core.Review) {
	if len(reviews) == 0 {
		return
	}
	slices.SortStableFunc(reviews, func(a, b core.Review) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	if len(reviews) > s.retention {
		reviews = reviews[:s.retention]
	}
	for i := range reviews {
		reviews[i].Scores = normalizeScores(reviews[i].Scores)
	}
	s.histories[id] = reviews
	s.reviews += len(reviews)
}

// normalizeScores returns scores with canonical labels, copying only when a
// label changes so callers' slices are never modified.
func normalizeScores(scores []core.SentimentScore) []core.SentimentScore {
	for i, sc := range scores {
		if label := core.NormalizeLabel(sc.Label); label != sc.Label {
			out := slices.Clone(scores)
			for j := i; j < len(out); j++ {
				out[j].Label = core.NormalizeLabel(out[j].Label)
			}
			return out
		}
	}
	return scores
}

// Listings returns the number of listings with history.
func (s *Store) Listings() int {
	return len(s.histories)
}

// Reviews returns the number of retained reviews.
func (s *Store) Reviews() int {
	return s.reviews
}

// HasHistory reports whether a listing has at least one retained review.
func (s *Store) HasHistory(id core.ListingID) bool {
	return len(s.histories[id]) > 0
}

// History returns a copy of a listing's retained reviews, most recent first.
func (s *Store) History(id core.ListingID) []core.Review {
	return slices.Clone(s.histories[id])
}

// DecayedSentiment sums every label score of the listing's reviews, each
// weighted by exp(-rate * age in days) where age is measured from the most
// recent review. A listing without history yields an empty vector.
func (s *Store) DecayedSentiment(id core.ListingID, rate float64) core.SentimentVector {
	out := core.SentimentVector{}
	reviews := s.histories[id]
	if len(reviews) == 0 {
		return out
	}
	if rate < 0 || math.IsNaN(rate) {
		rate = 0
	}

	ref := reviews[0].Date
	for _, r := range reviews[1:] {
		if r.Date.After(ref) {
			ref = r.Date
		}
	}

	for _, r := range reviews {
		days := math.Round(ref.Sub(r.Date).Hours() / 24)
		exponent := math.Max(0, rate*days)
		weight := math.Exp(-exponent)
		for _, sc := range r.Scores {
			out[sc.Label] += sc.Score * weight
		}
	}
	return out
}

// MeanSentiment averages each label over the listing's reviews. Reviews that
// lack a label contribute zero to it.
func (s *Store) MeanSentiment(id core.ListingID) core.SentimentVector {
	out := core.SentimentVector{}
	reviews := s.histories[id]
	if len(reviews) == 0 {
		return out
	}
	for _, r := range reviews {
		for _, sc := range r.Scores {
			out[sc.Label] += sc.Score
		}
	}
	n := float64(len(reviews))
	for label := range out {
		out[label] /= n
	}
	return out
}
