package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/placerank/core"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Guard outcomes reported to an OutcomeObserver.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeLimited  = "limited"
)

// OutcomeObserver receives one call per guarded request.
type OutcomeObserver func(service, outcome string)

// GuardOption configures a guarded provider.
type GuardOption func(*guard)

// WithGuardLogger sets the logger used for breaker state changes.
func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(g *guard) {
		g.logger = logger
	}
}

// WithOutcomeObserver registers a callback for request outcomes.
func WithOutcomeObserver(observer OutcomeObserver) GuardOption {
	return func(g *guard) {
		g.observe = observer
	}
}

type guard struct {
	limiter     *rate.Limiter
	maxAttempts int
	retryDelay  time.Duration
	embedCB     *gobreaker.CircuitBreaker[any]
	fillCB      *gobreaker.CircuitBreaker[any]
	observe     OutcomeObserver
	logger      *slog.Logger
}

// guardedProvider wraps every service of an AIProvider with rate limiting,
// retries and a circuit breaker. All failures surface as
// core.ErrEmbeddingServiceUnavailable.
type guardedProvider struct {
	inner    AIProvider
	embedder *guardedEmbedder
	filler   *guardedFiller
}

var _ AIProvider = (*guardedProvider)(nil)

// NewGuardedProvider wraps inner with the resilience settings of config.
func NewGuardedProvider(inner AIProvider, config *Config, opts ...GuardOption) (AIProvider, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	g := &guard{
		maxAttempts: config.MaxAttempts,
		retryDelay:  config.RetryDelay,
		observe:     func(string, string) {},
		logger:      slog.Default().With("component", "ai-guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if config.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst)
	}
	g.embedCB = g.newBreaker("embedding", config)
	g.fillCB = g.newBreaker("masking", config)

	p := &guardedProvider{inner: inner}
	if e := inner.Embedder(); e != nil {
		p.embedder = &guardedEmbedder{inner: e, guard: g}
	}
	if f := inner.MaskFiller(); f != nil {
		p.filler = &guardedFiller{inner: f, guard: g}
	}
	return p, nil
}

func (g *guard) newBreaker(name string, config *Config) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     config.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < config.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= config.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			g.logger.Warn("circuit breaker state change", "service", name, "from", from.String(), "to", to.String())
		},
	})
}

func guardedCall[T any](ctx context.Context, g *guard, service string, cb *gobreaker.CircuitBreaker[any], op func() (T, error)) (T, error) {
	var zero T
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			g.observe(service, OutcomeLimited)
			return zero, fmt.Errorf("%w: %s: %w", core.ErrEmbeddingServiceUnavailable, service, err)
		}
	}

	out, err := cb.Execute(func() (any, error) {
		v, err := RetryWithBackoff(ctx, op, g.maxAttempts, g.retryDelay)
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.observe(service, OutcomeRejected)
		} else {
			g.observe(service, OutcomeError)
		}
		return zero, fmt.Errorf("%w: %s: %w", core.ErrEmbeddingServiceUnavailable, service, err)
	}
	g.observe(service, OutcomeOK)
	v, _ := out.(T)
	return v, nil
}

func (p *guardedProvider) Embedder() Embedder {
	if p.embedder == nil {
		return nil
	}
	return p.embedder
}

func (p *guardedProvider) MaskFiller() MaskFiller {
	if p.filler == nil {
		return nil
	}
	return p.filler
}

func (p *guardedProvider) Close() error {
	return p.inner.Close()
}

type guardedEmbedder struct {
	inner Embedder
	guard *guard
}

func (e *guardedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return guardedCall(ctx, e.guard, "embedding", e.guard.embedCB, func() ([]float32, error) {
		return e.inner.EmbedText(ctx, text)
	})
}

func (e *guardedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return guardedCall(ctx, e.guard, "embedding", e.guard.embedCB, func() ([][]float32, error) {
		return e.inner.EmbedTexts(ctx, texts)
	})
}

type guardedFiller struct {
	inner MaskFiller
	guard *guard
}

func (f *guardedFiller) FillMask(ctx context.Context, sentence string, k int) ([]Filler, error) {
	return guardedCall(ctx, f.guard, "masking", f.guard.fillCB, func() ([]Filler, error) {
		fillers, err := f.inner.FillMask(ctx, sentence, k)
		if errors.Is(err, ErrNoMask) {
			return nil, Permanent(err)
		}
		return fillers, err
	})
}
