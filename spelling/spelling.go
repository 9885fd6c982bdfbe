// Package spelling produces "did you mean" hints for queries.
//
// A Corrector never changes the query that gets executed; callers show its
// output next to the results when it differs from the submitted text.
package spelling

import (
	"context"
	"log/slog"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/index"
)

// Corrector suggests a corrected query text.
type Corrector interface {
	Correct(ctx context.Context, q core.Query) string
}

// None returns the query text unchanged.
type None struct{}

var _ Corrector = None{}

// Correct implements Corrector.
func (None) Correct(_ context.Context, q core.Query) string {
	return q.Text
}

// IndexCorrector asks the index for the closest known term of each word.
type IndexCorrector struct {
	source index.Source
	logger *slog.Logger
}

var _ Corrector = (*IndexCorrector)(nil)

// Option configures an IndexCorrector.
type Option func(*IndexCorrector)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *IndexCorrector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewIndexCorrector creates a corrector backed by source.
func NewIndexCorrector(source index.Source, opts ...Option) *IndexCorrector {
	c := &IndexCorrector{
		source: source,
		logger: slog.Default().With("component", "spelling"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correct implements Corrector. Failures are logged and yield the original
// text.
func (c *IndexCorrector) Correct(ctx context.Context, q core.Query) string {
	s, err := c.source.Searcher()
	if err != nil {
		c.logger.Warn("spelling unavailable", "err", err)
		return q.Text
	}
	defer s.Close()

	fixed, err := s.Suggest(ctx, q.Text)
	if err != nil {
		c.logger.Debug("no suggestion", "query", q.Text, "err", err)
		return q.Text
	}
	return fixed
}
