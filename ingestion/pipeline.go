package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/metrics"
)

// DefaultBatchSize is the number of listings handed to one worker.
const DefaultBatchSize = 200

// ListingIndex receives indexed listings. *index.Index implements it.
type ListingIndex interface {
	AddListings(ctx context.Context, listings []*core.Listing) error
}

// Pipeline indexes listings concurrently.
type Pipeline struct {
	index     ListingIndex
	pool      *ants.Pool
	batchSize int
	progress  io.Writer
	logger    *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets how many listings each worker indexes at once.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: batch size %d", core.ErrInvalidConfig, n)
		}
		p.batchSize = n
		return nil
	}
}

// WithProgress writes a progress line to w while indexing.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(idx ListingIndex, opts ...Option) (*Pipeline, error) {
	if idx == nil {
		return nil, ErrIndexRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	// Create pipeline with defaults
	p := &Pipeline{
		index:     idx,
		pool:      pool,
		batchSize: DefaultBatchSize,
		logger:    slog.Default().With("component", "ingestion"),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// IndexListings writes listings to the index in concurrent batches and
// returns the number indexed. Every batch is attempted; the errors of
// failed batches are joined.
func (p *Pipeline) IndexListings(ctx context.Context, listings []*core.Listing) (int, error) {
	tracker := NewProgressTracker(p.progress, "listings", len(listings), p.batchSize)
	tracker.Start()
	defer tracker.Finish()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for start := 0; start < len(listings); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		batch := listings[start:min(start+p.batchSize, len(listings))]
		first := start

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			if err := p.index.AddListings(ctx, batch); err != nil {
				p.logger.Error("error indexing batch", "offset", first, "size", len(batch), "err", err)
				fail(fmt.Errorf("batch at %d: %w", first, err))
				return
			}
			metrics.ListingsIndexedTotal.Add(float64(len(batch)))
			tracker.Add(len(batch))
		})
		if err != nil {
			wg.Done()
			fail(fmt.Errorf("submitting batch at %d: %w", first, err))
			break
		}
	}
	wg.Wait()

	indexed := tracker.Current()
	p.logger.Info("indexed listings", "count", indexed, "failed_batches", len(errs), "elapsed", tracker.Elapsed())
	return indexed, errors.Join(errs...)
}

// IndexFile reads a listings CSV (optionally gzipped) and indexes it.
func (p *Pipeline) IndexFile(ctx context.Context, path string) (int, error) {
	f, err := OpenListings(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	listings, err := ReadListings(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	p.logger.Info("read listings", "path", path, "count", len(listings))
	return p.IndexListings(ctx, listings)
}

// Release releases resources including worker pools.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
