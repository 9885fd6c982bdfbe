package mock

import (
	"context"
	"testing"

	"github.com/poiesic/placerank/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedder_BagOfWords(t *testing.T) {
	ctx := context.Background()
	m := NewMockEmbedder()

	a, err := m.EmbedText(ctx, "quiet room near park")
	require.NoError(t, err)
	b, err := m.EmbedText(ctx, "park near quiet ROOM")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, ai.CosineSimilarity(a, b), 1e-6, "order and case do not matter")

	empty, err := m.EmbedText(ctx, "   ")
	require.NoError(t, err)
	assert.Len(t, empty, Dimension)
	assert.Zero(t, ai.CosineSimilarity(empty, a))

	vs, err := m.EmbedTexts(ctx, []string{"quiet room", "quiet room"})
	require.NoError(t, err)
	assert.Equal(t, vs[0], vs[1])
	assert.Equal(t, 4, m.CallCount(), "three single calls and one batch")

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestConceptEmbedder(t *testing.T) {
	ctx := context.Background()
	m := NewConceptEmbedder([]string{"apartment", "Flat", "condo"})

	vs, err := m.EmbedTexts(ctx, []string{"cheap apartment", "cheap flat", "cheap condo"})
	require.NoError(t, err)
	assert.Equal(t, vs[0], vs[1])
	assert.Equal(t, vs[0], vs[2])
}
