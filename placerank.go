// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package placerank

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/ai/openai"
	"github.com/poiesic/placerank/benchmark"
	"github.com/poiesic/placerank/config"
	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/expansion"
	"github.com/poiesic/placerank/index"
	"github.com/poiesic/placerank/ingestion"
	"github.com/poiesic/placerank/metrics"
	"github.com/poiesic/placerank/retrieval"
	"github.com/poiesic/placerank/sentiment"
	"github.com/poiesic/placerank/spelling"
	"github.com/poiesic/placerank/storage"
	"github.com/poiesic/placerank/storage/badger"
)

// Engine owns the listing index, the review history and the AI services,
// and builds retrieval models over them.
type Engine struct {
	cfg    config.Config
	index  *index.Index
	logger *slog.Logger

	backend   *badger.Backend
	reviews   storage.ReviewRepository
	manifests storage.ManifestRepository

	history *liveHistory
	scorer  *sentiment.Scorer

	mu        sync.Mutex
	closed    bool
	inner     ai.AIProvider
	provider  ai.AIProvider
	thesaurus expansion.Thesaurus
	expanders map[expansion.Strategy]expansion.Expander
	pools     []*expansion.Pooled
	models    map[*retrieval.Model]struct{}
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	index    *index.Index
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithIndex uses idx instead of opening the configured index path.
// The Engine takes ownership and closes it.
func WithIndex(idx *index.Index) EngineOption {
	return func(o *engineOptions) {
		o.index = idx
	}
}

// WithProvider uses p for embeddings and mask filling instead of the
// configured OpenAI-compatible endpoints. It is still wrapped by the
// rate limiter and circuit breakers.
func WithProvider(p ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open creates an Engine from cfg. The configuration is validated first.
func Open(cfg config.Config, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		logger:    options.logger.With("component", "engine"),
		inner:     options.provider,
		expanders: make(map[expansion.Strategy]expansion.Expander),
	}

	e.index = options.index
	if e.index == nil {
		idx, err := index.OpenOrCreate(cfg.Index.Path,
			index.WithBatchSize(cfg.Index.BatchSize),
			index.WithLogger(options.logger.With("component", "index")))
		if err != nil {
			return nil, err
		}
		e.index = idx
	}

	store, err := e.openHistory(context.Background())
	if err != nil {
		e.closeStorage()
		return nil, err
	}
	e.history = &liveHistory{}
	e.history.store.Store(store)

	aggregation, _ := sentiment.ParseAggregation(cfg.Sentiment.Aggregation)
	scorer, err := sentiment.NewScorer(e.history,
		sentiment.WithDecayRate(cfg.Sentiment.DecayRate),
		sentiment.WithAggregation(aggregation))
	if err != nil {
		e.closeStorage()
		return nil, err
	}
	e.scorer = scorer
	return e, nil
}

// openHistory opens the badger review store when one is configured and
// loads the sentiment store from it, or from the JSON snapshot.
func (e *Engine) openHistory(ctx context.Context) (*sentiment.Store, error) {
	opts := []sentiment.Option{
		sentiment.WithRetention(e.cfg.Sentiment.Retention),
		sentiment.WithLogger(e.logger.With("component", "sentiment")),
	}
	switch {
	case e.cfg.Sentiment.Store != "":
		backend, err := badger.OpenBackend(e.cfg.Sentiment.Store, badger.WithCompression(), badger.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.backend = backend
		reviews, err := badger.NewReviewRepository(backend)
		if err != nil {
			return nil, err
		}
		e.reviews = reviews
		e.manifests = badger.NewManifestRepository(backend)
		return sentiment.LoadRepository(ctx, reviews, opts...)
	case e.cfg.Sentiment.Snapshot != "":
		return sentiment.LoadFile(e.cfg.Sentiment.Snapshot, opts...)
	}
	return sentiment.NewStore(nil, opts...)
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Index returns the listing index.
func (e *Engine) Index() *index.Index {
	return e.index
}

// Sentiment returns the current sentiment store.
func (e *Engine) Sentiment() *sentiment.Store {
	return e.history.store.Load()
}

// Scorer returns the sentiment scorer shared by every model.
func (e *Engine) Scorer() *sentiment.Scorer {
	return e.scorer
}

// aiProvider returns the guarded AI provider, creating it on first use.
func (e *Engine) aiProvider() (ai.AIProvider, error) {
	if e.provider != nil {
		return e.provider, nil
	}
	aiCfg := e.cfg.AIConfig()
	if e.inner == nil {
		inner, err := openai.NewProvider(aiCfg)
		if err != nil {
			return nil, err
		}
		e.inner = inner
	}
	guarded, err := ai.NewGuardedProvider(e.inner, aiCfg,
		ai.WithOutcomeObserver(metrics.ObserveAI),
		ai.WithGuardLogger(e.logger.With("component", "ai-guard")))
	if err != nil {
		return nil, err
	}
	e.provider = guarded
	return guarded, nil
}

// Expander returns the pooled expander for strategy, building it on first use.
func (e *Engine) Expander(strategy expansion.Strategy) (expansion.Expander, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.expanderLocked(strategy)
}

func (e *Engine) expanderLocked(strategy expansion.Strategy) (expansion.Expander, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if strategy == expansion.StrategyNone {
		return expansion.NoExpansion{}, nil
	}
	if exp, ok := e.expanders[strategy]; ok {
		return exp, nil
	}

	provider, err := e.aiProvider()
	if err != nil {
		return nil, err
	}
	opts := []expansion.Option{expansion.WithLogger(e.logger.With("component", "expansion"))}
	if e.cfg.Expansion.TopN > 0 {
		opts = append(opts, expansion.WithTopN(e.cfg.Expansion.TopN))
	}
	if e.cfg.Expansion.TopK > 0 {
		opts = append(opts, expansion.WithTopK(e.cfg.Expansion.TopK))
	}
	if e.cfg.Expansion.Threshold > 0 {
		opts = append(opts, expansion.WithThreshold(e.cfg.Expansion.Threshold))
	}

	var inner expansion.Expander
	switch strategy {
	case expansion.StrategyThesaurus:
		thesaurus, err := e.thesaurusLocked()
		if err != nil {
			return nil, err
		}
		inner, err = expansion.NewThesaurusExpansion(thesaurus, provider.Embedder(), opts...)
		if err != nil {
			return nil, err
		}
	case expansion.StrategyGenerative:
		inner, err = expansion.NewGenerativeExpansion(provider.MaskFiller(), provider.Embedder(), opts...)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: expansion strategy %d", core.ErrInvalidConfig, strategy)
	}

	pooled, err := expansion.NewPooled(inner, e.cfg.Expansion.PoolSize,
		expansion.WithPoolLogger(e.logger.With("component", "expansion_pool")))
	if err != nil {
		return nil, err
	}
	e.pools = append(e.pools, pooled)
	e.expanders[strategy] = pooled
	return pooled, nil
}

func (e *Engine) thesaurusLocked() (expansion.Thesaurus, error) {
	if e.thesaurus != nil {
		return e.thesaurus, nil
	}
	if e.cfg.Expansion.Thesaurus == "" {
		e.thesaurus = expansion.DefaultThesaurus()
		return e.thesaurus, nil
	}
	t, err := expansion.LoadThesaurusFile(e.cfg.Expansion.Thesaurus)
	if err != nil {
		return nil, err
	}
	e.thesaurus = t
	return t, nil
}

// Variant names one retrieval model configuration.
type Variant struct {
	Name          string
	Strategy      retrieval.ScoringStrategy
	Policy        core.TermPolicy
	Expansion     expansion.Strategy
	Autoexpansion bool
}

// Variants are the model configurations compared by the benchmark.
var Variants = []Variant{
	{Name: "and", Strategy: retrieval.ScoringLexical, Policy: core.TermPolicyAnd},
	{Name: "and+thesaurus", Strategy: retrieval.ScoringLexical, Policy: core.TermPolicyAnd,
		Expansion: expansion.StrategyThesaurus, Autoexpansion: true},
	{Name: "or", Strategy: retrieval.ScoringLexical, Policy: core.TermPolicyOr},
	{Name: "or+thesaurus", Strategy: retrieval.ScoringLexical, Policy: core.TermPolicyOr,
		Expansion: expansion.StrategyThesaurus, Autoexpansion: true},
	{Name: "or+generative", Strategy: retrieval.ScoringLexical, Policy: core.TermPolicyOr,
		Expansion: expansion.StrategyGenerative, Autoexpansion: true},
	{Name: "sentiment", Strategy: retrieval.ScoringSentimentRerank, Policy: core.TermPolicyAnd},
	{Name: "sentiment-inline", Strategy: retrieval.ScoringSentimentInline, Policy: core.TermPolicyAnd},
	{Name: "sentiment+thesaurus", Strategy: retrieval.ScoringSentimentRerank, Policy: core.TermPolicyAnd,
		Expansion: expansion.StrategyThesaurus, Autoexpansion: true},
}

// LookupVariant finds a variant of Variants by name.
func LookupVariant(name string) (Variant, error) {
	for _, v := range Variants {
		if v.Name == name {
			return v, nil
		}
	}
	return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
}

// ConfiguredVariant is the variant described by the retrieval and
// expansion sections of the configuration.
func (e *Engine) ConfiguredVariant() Variant {
	strategy, _ := retrieval.ParseScoringStrategy(e.cfg.Retrieval.Strategy)
	policy, _ := core.ParseTermPolicy(e.cfg.Retrieval.TermPolicy)
	exp, _ := expansion.ParseStrategy(e.cfg.Expansion.Strategy)
	return Variant{
		Name:          "configured",
		Strategy:      strategy,
		Policy:        policy,
		Expansion:     exp,
		Autoexpansion: e.cfg.Retrieval.Autoexpansion,
	}
}

// Model builds the configured retrieval model.
func (e *Engine) Model(opts ...retrieval.Option) (*retrieval.Model, error) {
	return e.NewModel(e.ConfiguredVariant(), opts...)
}

// NewModel builds a retrieval model for v. Extra options are applied last.
// The Engine invalidates the model's cache whenever the index or the
// review history changes.
func (e *Engine) NewModel(v Variant, opts ...retrieval.Option) (*retrieval.Model, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	expander, err := e.expanderLocked(v.Expansion)
	if err != nil {
		return nil, err
	}

	var corrector spelling.Corrector = spelling.None{}
	if !e.cfg.Retrieval.NoSpellCheck {
		corrector = spelling.NewIndexCorrector(e.index,
			spelling.WithLogger(e.logger.With("component", "spelling")))
	}

	base := []retrieval.Option{
		retrieval.WithExpander(expander),
		retrieval.WithCorrector(corrector),
		retrieval.WithScorer(e.scorer),
		retrieval.WithScoringStrategy(v.Strategy),
		retrieval.WithTermPolicy(v.Policy),
		retrieval.WithConnector(e.cfg.Retrieval.Connector),
		retrieval.WithCacheSize(e.cfg.Retrieval.CacheSize),
		retrieval.WithAutoexpansion(v.Autoexpansion),
		retrieval.WithLogger(e.logger.With("component", "retrieval", "model", v.Name)),
	}
	model, err := retrieval.NewModel(e.index, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	if e.models == nil {
		e.models = map[*retrieval.Model]struct{}{}
	}
	e.models[model] = struct{}{}
	return model, nil
}

// ReleaseModel stops invalidating m on rebuilds. Call it once a model built
// by NewModel or Model is no longer used.
func (e *Engine) ReleaseModel(m *retrieval.Model) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.models, m)
}

// invalidate drops the result caches of every model built so far.
func (e *Engine) invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for m := range e.models {
		m.Invalidate()
	}
}

// IndexListings indexes the listings CSV at path and returns the number of
// listings written. Progress lines go to progress when it is not nil.
func (e *Engine) IndexListings(ctx context.Context, path string, progress io.Writer) (int, error) {
	opts := []ingestion.Option{
		ingestion.WithBatchSize(e.cfg.Index.BatchSize),
		ingestion.WithLogger(e.logger.With("component", "ingestion")),
	}
	if e.cfg.Index.Workers > 0 {
		opts = append(opts, ingestion.WithPoolSize(e.cfg.Index.Workers))
	}
	if progress != nil {
		opts = append(opts, ingestion.WithProgress(progress))
	}
	pipeline, err := ingestion.NewPipeline(e.index, opts...)
	if err != nil {
		return 0, err
	}
	defer pipeline.Release()

	n, err := pipeline.IndexFile(ctx, path)
	if n > 0 {
		e.invalidate()
	}
	return n, err
}

// ImportReviews loads a JSON sentiment snapshot into the review store and
// swaps the in-memory history when the snapshot changed.
func (e *Engine) ImportReviews(ctx context.Context, path string, progress io.Writer) (*storage.Manifest, bool, error) {
	if e.reviews == nil {
		return nil, false, ErrReviewStoreRequired
	}
	opts := []ingestion.ImporterOption{
		ingestion.WithImportLogger(e.logger.With("component", "import")),
	}
	if progress != nil {
		opts = append(opts, ingestion.WithImportProgress(progress))
	}
	importer, err := ingestion.NewImporter(e.reviews, e.manifests, opts...)
	if err != nil {
		return nil, false, err
	}
	manifest, changed, err := importer.ImportFile(ctx, path)
	if err != nil || !changed {
		return manifest, changed, err
	}
	if err := e.ReloadSentiment(ctx); err != nil {
		return manifest, changed, err
	}
	return manifest, changed, nil
}

// ReloadSentiment reloads the review history from its configured source
// and invalidates every model cache.
func (e *Engine) ReloadSentiment(ctx context.Context) error {
	opts := []sentiment.Option{
		sentiment.WithRetention(e.cfg.Sentiment.Retention),
		sentiment.WithLogger(e.logger.With("component", "sentiment")),
	}
	var (
		store *sentiment.Store
		err   error
	)
	switch {
	case e.reviews != nil:
		store, err = sentiment.LoadRepository(ctx, e.reviews, opts...)
	case e.cfg.Sentiment.Snapshot != "":
		store, err = sentiment.LoadFile(e.cfg.Sentiment.Snapshot, opts...)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	e.history.store.Store(store)
	e.invalidate()
	e.logger.Info("sentiment history reloaded", "listings", store.Listings(), "reviews", store.Reviews())
	return nil
}

// Listing returns the stored listing with id, or nil when it is not indexed.
func (e *Engine) Listing(ctx context.Context, id core.ListingID) (*core.Listing, error) {
	return e.index.Listing(ctx, id)
}

// DocCount returns the number of indexed listings.
func (e *Engine) DocCount() (uint64, error) {
	return e.index.DocCount()
}

// ListingSentiment describes the review history of one listing.
type ListingSentiment struct {
	ListingID core.ListingID
	Reviews   []core.Review
	Decayed   core.SentimentVector
	Mean      core.SentimentVector
}

// ListingSentiment returns the retained history of a listing with its
// decayed and mean sentiment. A listing without reviews has empty vectors.
func (e *Engine) ListingSentiment(id core.ListingID) ListingSentiment {
	store := e.Sentiment()
	return ListingSentiment{
		ListingID: id,
		Reviews:   store.History(id),
		Decayed:   store.DecayedSentiment(id, e.cfg.Sentiment.DecayRate),
		Mean:      store.MeanSentiment(id),
	}
}

// Close releases the expansion pools, the AI provider, the index and the
// review store.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	pools := e.pools
	provider := e.provider
	if provider == nil {
		provider = e.inner
	}
	e.mu.Unlock()

	for _, p := range pools {
		p.Release()
	}
	var errs []error
	if provider != nil {
		if err := provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := e.closeStorage(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) closeStorage() error {
	var errs []error
	if e.index != nil {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing index", "err", err)
			errs = append(errs, err)
		}
	}
	if e.reviews != nil {
		if err := e.reviews.Close(); err != nil {
			e.logger.Error("error closing review repository", "err", err)
			errs = append(errs, err)
		}
	}
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			e.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Benchmark runs queries against a fresh model per variant and writes a
// report for each to w when w is not nil. An empty variants list runs
// every entry of Variants.
func (e *Engine) Benchmark(ctx context.Context, queries []benchmark.Query, variants []Variant, w io.Writer) ([]*benchmark.Report, error) {
	if len(variants) == 0 {
		variants = Variants
	}
	reports := make([]*benchmark.Report, 0, len(variants))
	for _, v := range variants {
		model, err := e.NewModel(v)
		if err != nil {
			return reports, fmt.Errorf("building model %s: %w", v.Name, err)
		}
		report, err := benchmark.Run(ctx, v.Name, model, queries)
		e.ReleaseModel(model)
		if err != nil {
			return reports, err
		}
		if w != nil {
			if err := report.Write(w); err != nil {
				return reports, err
			}
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// liveHistory forwards to the current store so a reload reaches every
// scorer built earlier.
type liveHistory struct {
	store atomic.Pointer[sentiment.Store]
}

var _ sentiment.Snapshotter = (*liveHistory)(nil)

// Snapshot pins the store current at the time of the call.
func (h *liveHistory) Snapshot() sentiment.HistorySource {
	return h.store.Load()
}

func (h *liveHistory) HasHistory(id core.ListingID) bool {
	return h.store.Load().HasHistory(id)
}

func (h *liveHistory) DecayedSentiment(id core.ListingID, rate float64) core.SentimentVector {
	return h.store.Load().DecayedSentiment(id, rate)
}

func (h *liveHistory) MeanSentiment(id core.ListingID) core.SentimentVector {
	return h.store.Load().MeanSentiment(id)
}
