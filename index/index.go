package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/poiesic/placerank/core"
)

// DefaultBatchSize is the number of listings written per bleve batch.
const DefaultBatchSize = 500

// Index is a bleve-backed listing index. It is safe for concurrent use.
type Index struct {
	bleve     bleve.Index
	batchSize int
	logger    *slog.Logger

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup

	vocabMu sync.Mutex
	vocab   *vocabulary
}

// Option configures an Index.
type Option func(*Index) error

// WithBatchSize sets how many listings AddListings writes per batch.
func WithBatchSize(n int) Option {
	return func(i *Index) error {
		if n < 1 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		i.batchSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

// Create builds a new on-disk index at path.
func Create(path string, opts ...Option) (*Index, error) {
	m, err := newMapping()
	if err != nil {
		return nil, err
	}
	b, err := bleve.New(path, m)
	if err != nil {
		if errors.Is(err, bleve.ErrorIndexPathExists) {
			return nil, fmt.Errorf("%w: %s", ErrIndexExists, path)
		}
		return nil, fmt.Errorf("creating index at %s: %w", path, err)
	}
	return wrap(b, opts)
}

// Open opens an existing on-disk index.
func Open(path string, opts ...Option) (*Index, error) {
	b, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index at %s: %w", path, err)
	}
	return wrap(b, opts)
}

// OpenOrCreate opens the index at path, creating it if necessary.
func OpenOrCreate(path string, opts ...Option) (*Index, error) {
	idx, err := Open(path, opts...)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, err
	}
	return Create(path, opts...)
}

// NewMemory creates an in-memory index, useful for tests.
func NewMemory(opts ...Option) (*Index, error) {
	m, err := newMapping()
	if err != nil {
		return nil, err
	}
	b, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("creating memory index: %w", err)
	}
	return wrap(b, opts)
}

func wrap(b bleve.Index, opts []Option) (*Index, error) {
	idx := &Index{
		bleve:     b,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "index"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			b.Close()
			return nil, err
		}
	}
	return idx, nil
}

// acquire registers an in-flight operation. The returned release must be
// called exactly once.
func (i *Index) acquire() (func(), error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.closed {
		return nil, ErrIndexClosed
	}
	i.inflight.Add(1)
	return i.inflight.Done, nil
}

// AddListings indexes listings in batches, replacing any listing with the
// same ID.
func (i *Index) AddListings(ctx context.Context, listings []*core.Listing) error {
	release, err := i.acquire()
	if err != nil {
		return err
	}
	defer release()

	for start := 0; start < len(listings); start += i.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+i.batchSize, len(listings))
		batch := i.bleve.NewBatch()
		for _, l := range listings[start:end] {
			if err := core.ValidateListing(l); err != nil {
				return err
			}
			if err := batch.Index(docID(l.ID), document(l)); err != nil {
				return fmt.Errorf("indexing listing %d: %w", l.ID, err)
			}
		}
		if err := i.bleve.Batch(batch); err != nil {
			return fmt.Errorf("writing batch: %w", err)
		}
	}

	i.invalidateVocabulary()
	i.logger.Debug("indexed listings", "count", len(listings))
	return nil
}

// DeleteListing removes a listing. Deleting an unknown ID is not an error.
func (i *Index) DeleteListing(id core.ListingID) error {
	release, err := i.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := i.bleve.Delete(docID(id)); err != nil {
		return fmt.Errorf("deleting listing %d: %w", id, err)
	}
	i.invalidateVocabulary()
	return nil
}

// Listing returns the stored fields of a listing, or nil if it is not
// indexed.
func (i *Index) Listing(ctx context.Context, id core.ListingID) (*core.Listing, error) {
	release, err := i.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	req := bleve.NewSearchRequestOptions(query.NewDocIDQuery([]string{docID(id)}), 1, 0, false)
	req.Fields = []string{
		core.FieldNameName,
		core.FieldNameRoomType,
		core.FieldNameDescription,
		core.FieldNameNeighborhoodOverview,
	}
	res, err := i.bleve.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("loading listing %d: %w", id, err)
	}
	if len(res.Hits) == 0 {
		return nil, nil
	}
	f := res.Hits[0].Fields
	return &core.Listing{
		ID:                   id,
		Name:                 stringField(f, core.FieldNameName),
		RoomType:             stringField(f, core.FieldNameRoomType),
		Description:          stringField(f, core.FieldNameDescription),
		NeighborhoodOverview: stringField(f, core.FieldNameNeighborhoodOverview),
	}, nil
}

// DocCount returns the number of indexed listings.
func (i *Index) DocCount() (uint64, error) {
	release, err := i.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	return i.bleve.DocCount()
}

// RoomTypes returns the distinct normalized room types in the index.
func (i *Index) RoomTypes() ([]string, error) {
	release, err := i.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	dict, err := i.bleve.FieldDict(fieldRoomTypeKey)
	if err != nil {
		return nil, err
	}
	defer dict.Close()

	var out []string
	for {
		entry, err := dict.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		out = append(out, entry.Term)
	}
	sort.Strings(out)
	return out, nil
}

// Searcher opens a scoped search handle. Callers must Close it.
func (i *Index) Searcher() (Searcher, error) {
	release, err := i.acquire()
	if err != nil {
		return nil, err
	}
	return &searcher{idx: i, release: release}, nil
}

// Close waits for open searchers and closes the underlying index.
func (i *Index) Close() error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return nil
	}
	i.closed = true
	i.mu.Unlock()

	i.inflight.Wait()
	return i.bleve.Close()
}

func docID(id core.ListingID) string {
	return strconv.FormatInt(int64(id), 10)
}

func parseDocID(s string) (core.ListingID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed document id %q: %w", s, err)
	}
	return core.ListingID(n), nil
}

func stringField(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func normalizeRoomType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
