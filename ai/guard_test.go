package ai_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/ai/mock"
	"github.com/poiesic/placerank/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcomes struct {
	mu   sync.Mutex
	seen []string
}

func (o *outcomes) observe(service, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, service+":"+outcome)
}

func fastConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithRateLimit(0, 0),
		ai.WithRetry(2, time.Millisecond),
		ai.WithBreaker(2, 0.5, time.Hour),
	)
}

func TestGuardedProvider_PassesThrough(t *testing.T) {
	provider := mock.NewMockProviderWithServices(mock.NewMockEmbedder(), mock.NewMockMaskFiller("loft", "studio"))
	seen := &outcomes{}

	guarded, err := ai.NewGuardedProvider(provider, fastConfig(), ai.WithOutcomeObserver(seen.observe))
	require.NoError(t, err)

	ctx := context.Background()
	v, err := guarded.Embedder().EmbedText(ctx, "quiet room")
	require.NoError(t, err)
	assert.Equal(t, mock.BagOfWords([]string{"quiet", "room"}, mock.Dimension), v)

	vs, err := guarded.Embedder().EmbedTexts(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)

	fillers, err := guarded.MaskFiller().FillMask(ctx, "quiet [MASK]", 1)
	require.NoError(t, err)
	assert.Equal(t, []ai.Filler{{Token: "loft", Score: 1}}, fillers)

	assert.Equal(t, []string{"embedding:ok", "embedding:ok", "masking:ok"}, seen.seen)

	require.NoError(t, guarded.Close())
	assert.True(t, provider.(*mock.MockProvider).Closed())
}

func TestGuardedProvider_RetriesThenFails(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("connection refused")
	}
	guarded, err := ai.NewGuardedProvider(mock.NewMockProviderWithServices(embedder, mock.NewMockMaskFiller()), fastConfig())
	require.NoError(t, err)

	_, err = guarded.Embedder().EmbedText(context.Background(), "x")
	assert.ErrorIs(t, err, core.ErrEmbeddingServiceUnavailable)
	assert.Equal(t, 2, embedder.CallCount(), "one call per attempt")
}

func TestGuardedProvider_BreakerOpens(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("down")
	}
	seen := &outcomes{}
	guarded, err := ai.NewGuardedProvider(mock.NewMockProviderWithServices(embedder, mock.NewMockMaskFiller()),
		fastConfig(), ai.WithOutcomeObserver(seen.observe))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err = guarded.Embedder().EmbedText(ctx, "x")
		require.Error(t, err)
	}
	calls := embedder.CallCount()

	_, err = guarded.Embedder().EmbedText(ctx, "x")
	assert.ErrorIs(t, err, core.ErrEmbeddingServiceUnavailable)
	assert.Equal(t, calls, embedder.CallCount(), "open breaker does not reach the service")
	assert.Equal(t, "embedding:rejected", seen.seen[len(seen.seen)-1])

	// the masking breaker is independent
	_, err = guarded.MaskFiller().FillMask(ctx, "a [MASK]", 3)
	assert.NoError(t, err)
}

func TestGuardedProvider_MissingMaskIsNotRetried(t *testing.T) {
	filler := mock.NewMockMaskFiller("x")
	guarded, err := ai.NewGuardedProvider(mock.NewMockProviderWithServices(mock.NewMockEmbedder(), filler), fastConfig())
	require.NoError(t, err)

	_, err = guarded.MaskFiller().FillMask(context.Background(), "no mask here", 3)
	assert.ErrorIs(t, err, ai.ErrNoMask)
	assert.ErrorIs(t, err, core.ErrEmbeddingServiceUnavailable)
	assert.Equal(t, 1, filler.CallCount())
}

func TestGuardedProvider_RateLimitHonoursContext(t *testing.T) {
	cfg := fastConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.Burst = 1
	guarded, err := ai.NewGuardedProvider(mock.NewMockProvider(), cfg)
	require.NoError(t, err)

	_, err = guarded.Embedder().EmbedText(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = guarded.Embedder().EmbedText(ctx, "second")
	assert.ErrorIs(t, err, core.ErrEmbeddingServiceUnavailable)
}

func TestNewGuardedProvider_Validation(t *testing.T) {
	_, err := ai.NewGuardedProvider(nil, fastConfig())
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)

	cfg := fastConfig()
	cfg.MaxAttempts = 0
	_, err = ai.NewGuardedProvider(mock.NewMockProvider(), cfg)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, ai.CosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, ai.CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, ai.CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, ai.CosineSimilarity(nil, nil))
}
