package ai

import "context"

// MaskToken marks the position a MaskFiller should fill.
const MaskToken = "[MASK]"

// Embedder generates vector embeddings from text for semantic similarity.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// MaskFiller proposes replacements for a masked word, the way a masked
// language model does.
// Implementations must be thread-safe for concurrent use.
type MaskFiller interface {
	// FillMask returns up to k candidate words for the single MaskToken in
	// sentence, most probable first. Candidates are single lower-case words.
	// Returns an error if sentence has no MaskToken or the model call fails.
	FillMask(ctx context.Context, sentence string, k int) ([]Filler, error)
}

// Filler is one candidate produced by a MaskFiller.
type Filler struct {
	// Token is the proposed word.
	Token string

	// Score is the model's confidence in [0,1]. Models that do not report
	// probabilities use a rank-derived score.
	Score float64
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// MaskFiller returns the masked-word completion service.
	// The returned MaskFiller is safe for concurrent use.
	MaskFiller() MaskFiller

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
