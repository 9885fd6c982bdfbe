package sentiment

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/placerank/core"
)

// DefaultDecayRate is the per-day decay constant used when none is given.
const DefaultDecayRate = 1.0

// HistorySource answers aggregated sentiment lookups. *Store implements it.
type HistorySource interface {
	HasHistory(id core.ListingID) bool
	DecayedSentiment(id core.ListingID, rate float64) core.SentimentVector
	MeanSentiment(id core.ListingID) core.SentimentVector
}

var _ HistorySource = (*Store)(nil)

// Snapshotter is a HistorySource whose contents may be replaced while it is
// in use. Snapshot pins the current contents; the scorer reads one snapshot
// per score, weighting or rerank pass.
type Snapshotter interface {
	HistorySource
	Snapshot() HistorySource
}

// Aggregation selects how a listing's history becomes one vector.
type Aggregation int

const (
	// AggregateDecayed weights recent reviews more (DecayedSentiment).
	AggregateDecayed Aggregation = iota
	// AggregateMean weights every review equally (MeanSentiment).
	AggregateMean
)

func (a Aggregation) String() string {
	if a == AggregateMean {
		return "mean"
	}
	return "decayed"
}

// ParseAggregation accepts "decayed" or "mean".
func ParseAggregation(s string) (Aggregation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "decayed", "decay":
		return AggregateDecayed, nil
	case "mean":
		return AggregateMean, nil
	}
	return 0, fmt.Errorf("%w: unknown aggregation %q", core.ErrInvalidConfig, s)
}

// Scorer blends lexical relevance with sentiment similarity.
type Scorer struct {
	source      HistorySource
	decayRate   float64
	aggregation Aggregation
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer) error

// WithDecayRate sets the per-day decay constant. Negative rates are rejected.
func WithDecayRate(rate float64) ScorerOption {
	return func(s *Scorer) error {
		if rate < 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
			return fmt.Errorf("%w: decay rate %v", core.ErrInvalidConfig, rate)
		}
		s.decayRate = rate
		return nil
	}
}

// WithAggregation selects decayed or mean aggregation.
func WithAggregation(a Aggregation) ScorerOption {
	return func(s *Scorer) error {
		s.aggregation = a
		return nil
	}
}

// NewScorer creates a Scorer reading histories from source.
func NewScorer(source HistorySource, opts ...ScorerOption) (*Scorer, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	s := &Scorer{
		source:      source,
		decayRate:   DefaultDecayRate,
		aggregation: AggregateDecayed,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Identity describes the scorer configuration. Two scorers with the same
// identity over the same snapshot rank identically.
func (s *Scorer) Identity() string {
	return s.aggregation.String() + ":" + strconv.FormatFloat(s.decayRate, 'g', -1, 64)
}

func (s *Scorer) pin() HistorySource {
	if sn, ok := s.source.(Snapshotter); ok {
		return sn.Snapshot()
	}
	return s.source
}

// Vector returns the aggregated sentiment of a listing.
func (s *Scorer) Vector(id core.ListingID) core.SentimentVector {
	return s.vector(s.pin(), id)
}

func (s *Scorer) vector(src HistorySource, id core.ListingID) core.SentimentVector {
	if s.aggregation == AggregateMean {
		return src.MeanSentiment(id)
	}
	return src.DecayedSentiment(id, s.decayRate)
}

// Score returns lexical unchanged when nothing is requested or the listing has
// no history, and lexical * cosine(vector, requested) otherwise.
func (s *Scorer) Score(id core.ListingID, lexical float64, requested core.RequestedSentiment) float64 {
	if len(requested) == 0 {
		return lexical
	}
	return s.score(s.pin(), id, lexical, requested)
}

func (s *Scorer) score(src HistorySource, id core.ListingID, lexical float64, requested core.RequestedSentiment) float64 {
	if !src.HasHistory(id) {
		return lexical
	}
	return lexical * CosineSimilarity(s.vector(src, id), requested)
}

// Weighting adapts Score to a per-document weighting applied inside a
// search pass. It returns nil when nothing is requested. The history is
// pinned when Weighting is called, so one pass sees one snapshot.
func (s *Scorer) Weighting(requested core.RequestedSentiment) core.WeightFunc {
	if len(requested) == 0 {
		return nil
	}
	src := s.pin()
	return func(id core.ListingID, lexical float64) float64 {
		return s.score(src, id, lexical, requested)
	}
}

// Rerank rescores every result from its lexical score, sorts by final score
// (ties: ascending id), and returns the [offset, offset+limit) window.
// A limit <= 0 returns everything after offset. The input is not modified.
func (s *Scorer) Rerank(results []core.ScoredResult, requested core.RequestedSentiment, offset, limit int) []core.ScoredResult {
	out := slices.Clone(results)
	src := s.pin()
	for i := range out {
		if len(requested) == 0 {
			out[i].FinalScore = out[i].LexicalScore
			continue
		}
		out[i].FinalScore = s.score(src, out[i].DocumentID, out[i].LexicalScore, requested)
	}
	core.SortResults(out)
	return core.Paginate(out, offset, limit)
}
