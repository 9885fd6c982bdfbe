package expansion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// Pooled runs expansions on a bounded worker pool so model-bound work does
// not pile up on request goroutines. Each call waits for its whole result;
// a cancelled caller gets ctx.Err() and never a partial expansion.
type Pooled struct {
	inner  Expander
	pool   *ants.Pool
	logger *slog.Logger
}

var (
	_ Expander  = (*Pooled)(nil)
	_ Explainer = (*Pooled)(nil)
)

type expandResult struct {
	text string
	err  error
}

// PoolOption configures a Pooled expander.
type PoolOption func(*Pooled) error

// WithPoolLogger sets a custom logger.
func WithPoolLogger(logger *slog.Logger) PoolOption {
	return func(p *Pooled) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPooled wraps inner with a pool of size workers.
// A size below 1 uses runtime.NumCPU() / 2, with a minimum of 1.
func NewPooled(inner Expander, size int, opts ...PoolOption) (*Pooled, error) {
	if inner == nil {
		return nil, ErrExpanderRequired
	}
	if size < 1 {
		size = max(runtime.NumCPU()/2, 1)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("creating expansion pool: %w", err)
	}
	p := &Pooled{
		inner:  inner,
		pool:   pool,
		logger: slog.Default().With("component", "expansion_pool"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return p, nil
}

// Expand implements Expander.
func (p *Pooled) Expand(ctx context.Context, text, connector string) (string, error) {
	// Buffered so the worker never blocks after the caller has gone.
	done := make(chan expandResult, 1)
	err := p.pool.Submit(func() {
		out, err := p.inner.Expand(ctx, text, connector)
		done <- expandResult{text: out, err: err}
	})
	if err != nil {
		return "", fmt.Errorf("submitting expansion: %w", err)
	}

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		p.logger.Debug("expansion abandoned", "err", ctx.Err())
		return "", ctx.Err()
	}
}

// Explain delegates to the wrapped expander on the caller's goroutine.
// Expanders that cannot explain themselves report no candidates.
func (p *Pooled) Explain(ctx context.Context, text string) ([]TokenExpansion, error) {
	if e, ok := p.inner.(Explainer); ok {
		return e.Explain(ctx, text)
	}
	return nil, nil
}

// Release stops the pool. Expand must not be called afterwards.
func (p *Pooled) Release() {
	p.pool.Release()
}
