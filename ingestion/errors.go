package ingestion

import "errors"

var (
	// ErrIndexRequired is returned when a pipeline has no index.
	ErrIndexRequired = errors.New("index required")

	// ErrReviewRepositoryRequired is returned when a review repository is not provided.
	ErrReviewRepositoryRequired = errors.New("review repository required")

	// ErrManifestRepositoryRequired is returned when a manifest repository is not provided.
	ErrManifestRepositoryRequired = errors.New("manifest repository required")

	// ErrMalformedListings is returned for unreadable listings CSV.
	ErrMalformedListings = errors.New("malformed listings file")
)
