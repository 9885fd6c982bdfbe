package expansion

import "errors"

var (
	// ErrEmbedderRequired is returned when an expander has no embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrThesaurusRequired is returned when ThesaurusExpansion has no thesaurus.
	ErrThesaurusRequired = errors.New("thesaurus is required")

	// ErrFillerRequired is returned when GenerativeExpansion has no mask filler.
	ErrFillerRequired = errors.New("mask filler is required")

	// ErrExpanderRequired is returned when Pooled wraps nothing.
	ErrExpanderRequired = errors.New("expander is required")

	// ErrInvalidOption is returned for out-of-range settings.
	ErrInvalidOption = errors.New("invalid expansion option")
)
