package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/expansion"
	"github.com/poiesic/placerank/index"
	"github.com/poiesic/placerank/metrics"
	"github.com/poiesic/placerank/sentiment"
	"github.com/poiesic/placerank/spelling"
)

// SentimentScorer folds requested sentiment into ranking.
// *sentiment.Scorer implements it.
type SentimentScorer interface {
	Identity() string
	Weighting(requested core.RequestedSentiment) core.WeightFunc
	Rerank(results []core.ScoredResult, requested core.RequestedSentiment, offset, limit int) []core.ScoredResult
}

var _ SentimentScorer = (*sentiment.Scorer)(nil)

// Model runs queries through spell correction, expansion, lexical
// retrieval and optional sentiment ranking. It is safe for concurrent use.
type Model struct {
	index     index.Source
	expander  expansion.Expander
	corrector spelling.Corrector
	scorer    SentimentScorer
	strategy  ScoringStrategy
	policy    core.TermPolicy
	connector string
	cacheSize int
	cache     *resultCache
	monitor   SearchMonitor
	logger    *slog.Logger

	autoexpansion atomic.Bool
}

// Option configures a Model.
type Option func(*Model) error

// WithExpander sets the expansion strategy. Default is expansion.NoExpansion.
func WithExpander(e expansion.Expander) Option {
	return func(m *Model) error {
		if e == nil {
			return ErrExpanderRequired
		}
		m.expander = e
		return nil
	}
}

// WithCorrector sets the spelling corrector. Default is spelling.None.
func WithCorrector(c spelling.Corrector) Option {
	return func(m *Model) error {
		if c == nil {
			return ErrCorrectorRequired
		}
		m.corrector = c
		return nil
	}
}

// WithScorer sets the sentiment scorer used by sentiment strategies.
func WithScorer(s SentimentScorer) Option {
	return func(m *Model) error {
		m.scorer = s
		return nil
	}
}

// WithScoringStrategy selects how sentiment affects ranking.
// Default is ScoringLexical.
func WithScoringStrategy(s ScoringStrategy) Option {
	return func(m *Model) error {
		m.strategy = s
		return nil
	}
}

// WithTermPolicy sets how top-level query terms combine.
// Default is core.TermPolicyAnd.
func WithTermPolicy(p core.TermPolicy) Option {
	return func(m *Model) error {
		m.policy = p
		return nil
	}
}

// WithConnector sets the text placed between a word and its expansions.
// Default is expansion.DefaultConnector.
func WithConnector(c string) Option {
	return func(m *Model) error {
		if c == "" {
			c = expansion.DefaultConnector
		}
		m.connector = c
		return nil
	}
}

// WithCacheSize enables an LRU cache of ranked results holding size
// entries. Zero disables caching.
func WithCacheSize(size int) Option {
	return func(m *Model) error {
		if size < 0 {
			return fmt.Errorf("%w: cache size %d", core.ErrInvalidConfig, size)
		}
		m.cacheSize = size
		return nil
	}
}

// WithAutoexpansion sets the initial autoexpansion state. Default is off.
func WithAutoexpansion(on bool) Option {
	return func(m *Model) error {
		m.autoexpansion.Store(on)
		return nil
	}
}

// WithMonitor sets a search monitor.
func WithMonitor(monitor SearchMonitor) Option {
	return func(m *Model) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		m.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger
		return nil
	}
}

// NewModel creates a retrieval model over idx.
func NewModel(idx index.Source, opts ...Option) (*Model, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}

	m := &Model{
		index:     idx,
		expander:  expansion.NoExpansion{},
		corrector: spelling.None{},
		strategy:  ScoringLexical,
		policy:    core.TermPolicyAnd,
		connector: expansion.DefaultConnector,
		monitor:   &noopMonitor{},
		logger:    slog.Default().With("component", "retrieval"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if m.strategy.UsesSentiment() && m.scorer == nil {
		return nil, ErrScorerRequired
	}
	if m.cacheSize > 0 {
		c, err := newResultCache(m.cacheSize)
		if err != nil {
			return nil, err
		}
		m.cache = c
	}
	return m, nil
}

// SetAutoexpansion turns query expansion on or off for subsequent searches.
func (m *Model) SetAutoexpansion(on bool) {
	m.autoexpansion.Store(on)
}

// Autoexpansion reports whether searches run on expanded text.
func (m *Model) Autoexpansion() bool {
	return m.autoexpansion.Load()
}

// Strategy returns the configured scoring strategy.
func (m *Model) Strategy() ScoringStrategy {
	return m.strategy
}

// Identity describes everything about the model that affects ranking.
func (m *Model) Identity() string {
	id := m.strategy.String() + "/" + m.policy.String()
	if m.strategy.UsesSentiment() {
		id += "/" + m.scorer.Identity()
	}
	return id
}

// Invalidate drops cached results. Call it after the index or the
// sentiment snapshot is rebuilt.
func (m *Model) Invalidate() {
	if m.cache != nil {
		m.cache.purge()
	}
}

// Expand returns the expanded form of text.
func (m *Model) Expand(ctx context.Context, text string) (string, error) {
	return m.expander.Expand(ctx, text, m.connector)
}

// Correct returns a spelling suggestion for the query text. It never runs
// a search and never alters what Search executes.
func (m *Model) Correct(ctx context.Context, q core.Query) string {
	return m.corrector.Correct(ctx, q)
}

// Result is the outcome of one search.
type Result struct {
	// Hits is the requested window of ranked results.
	Hits []core.ScoredResult
	// Total counts every hit that passed the room type filter.
	Total int
	// Executed is the query text sent to the index, after expansion.
	Executed string
	// RequestID tags the request in logs.
	RequestID string
}

// Search runs q and returns the [offset, offset+limit) window of ranked
// results with the number of hits that passed the room type filter.
// A limit <= 0 returns every hit from offset on.
func (m *Model) Search(ctx context.Context, q core.Query, limit, offset int) ([]core.ScoredResult, int, error) {
	res, err := m.Run(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return res.Hits, res.Total, nil
}

// Run is Search that also reports the executed text and request id.
func (m *Model) Run(ctx context.Context, q core.Query, limit, offset int) (*Result, error) {
	start := time.Now()
	strategy := m.strategy.String()
	res := &Result{RequestID: uuid.NewString()}
	logger := m.logger.With("request_id", res.RequestID)

	err := m.search(ctx, logger, res, q, limit, offset)

	metrics.SearchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		metrics.SearchesTotal.WithLabelValues(strategy, "ok").Inc()
	case errors.Is(err, core.ErrInvalidQuery):
		metrics.SearchesTotal.WithLabelValues(strategy, "invalid_query").Inc()
	default:
		metrics.SearchesTotal.WithLabelValues(strategy, "error").Inc()
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Model) search(
	ctx context.Context,
	logger *slog.Logger,
	res *Result,
	q core.Query,
	limit, offset int,
) error {
	q = core.NormalizeQuery(q)
	if err := core.ValidateQuery(q); err != nil {
		return err
	}
	m.monitor.Start(res.RequestID, q)

	// 1. Pick the text to execute
	effective, err := m.effectiveText(ctx, logger, q.Text)
	if err != nil {
		return err
	}
	m.monitor.AfterExpansion(q.Text, effective)
	res.Executed = effective

	var requested core.RequestedSentiment
	if m.strategy.UsesSentiment() {
		requested = sentiment.ParseUserSentiment(q.SentimentTags)
	}

	// 2. Serve from cache
	var key string
	if m.cache != nil {
		key = cacheKey(effective, q.Fields, strings.ToLower(q.RoomType), m.Identity(), requested)
		if cached, ok := m.cache.get(key); ok {
			m.monitor.CacheHit(key)
			res.Hits, res.Total = core.Paginate(cached.hits, offset, limit), cached.total
			m.monitor.Finish(res.Hits, res.Total)
			return nil
		}
	}

	// 3. Retrieve. Cached and reranked searches need every hit.
	req := index.Request{
		Text:     effective,
		Fields:   q.Fields,
		Policy:   m.policy,
		RoomType: q.RoomType,
	}
	if m.strategy == ScoringSentimentInline {
		req.Weight = m.scorer.Weighting(requested)
	}
	paginated := m.cache == nil && m.strategy != ScoringSentimentRerank
	if paginated {
		req.Offset, req.Limit = offset, limit
	}

	page, err := m.retrieve(ctx, req)
	if err != nil {
		logger.Warn("search failed", "query", effective, "err", err)
		return err
	}
	m.monitor.AfterRetrieval(page.Hits, page.Total)

	// 4. Rank and paginate
	hits := page.Hits
	if m.strategy == ScoringSentimentRerank {
		hits = m.scorer.Rerank(hits, requested, 0, 0)
	}
	if m.cache != nil {
		m.cache.put(key, cachedResults{hits: hits, total: page.Total})
	}
	results := hits
	if !paginated {
		results = core.Paginate(hits, offset, limit)
	}

	logger.Debug("search complete",
		"query", effective,
		"strategy", m.strategy.String(),
		"total", page.Total,
		"returned", len(results))
	res.Hits, res.Total = results, page.Total
	m.monitor.Finish(results, page.Total)
	return nil
}

// effectiveText returns the expanded text when autoexpansion is on. An
// expansion failure falls back to the original text; only cancellation of
// ctx is returned as an error.
func (m *Model) effectiveText(ctx context.Context, logger *slog.Logger, text string) (string, error) {
	if !m.Autoexpansion() {
		return text, nil
	}
	expanded, err := m.expander.Expand(ctx, text, m.connector)
	if err == nil {
		return expanded, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	reason := "error"
	if errors.Is(err, core.ErrEmbeddingServiceUnavailable) {
		reason = "embedding_unavailable"
	}
	metrics.ExpansionFallbacksTotal.WithLabelValues(reason).Inc()
	logger.Warn("expansion failed, using original query", "query", text, "err", err)
	return text, nil
}

// retrieve runs one search on a scoped searcher handle.
func (m *Model) retrieve(ctx context.Context, req index.Request) (*index.Page, error) {
	s, err := m.index.Searcher()
	if err != nil {
		return nil, fmt.Errorf("opening searcher: %w", err)
	}
	defer s.Close()

	page, err := s.Search(ctx, req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidQuery) {
			return nil, err
		}
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return page, nil
}
