package storage

import (
	"context"
	"time"

	"github.com/poiesic/placerank/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ReviewRepository persists classified review histories keyed by listing.
type ReviewRepository interface {
	Repository

	// PutReviews stores reviews, replacing any review with the same
	// (listing, review id) pair. Every review is validated first.
	PutReviews(ctx context.Context, reviews ...*core.Review) error

	// GetReviews returns the reviews of a listing, most recent first
	// (ties: higher review id first). Returns an empty slice for unknown listings.
	GetReviews(ctx context.Context, listingID core.ListingID) ([]*core.Review, error)

	// DeleteListing removes every review of a listing.
	DeleteListing(ctx context.Context, listingID core.ListingID) error

	// ForEachListing calls fn once per listing, in ascending listing id order,
	// with that listing's reviews ordered as GetReviews orders them.
	// Iteration stops at the first error returned by fn.
	ForEachListing(ctx context.Context, fn func(listingID core.ListingID, reviews []*core.Review) error) error

	// CountListings returns the number of listings with at least one review.
	CountListings(ctx context.Context) (int, error)
}

// Manifest describes the most recently imported sentiment snapshot.
type Manifest struct {
	Source     string
	Checksum   string // hex blake2b of the imported bytes
	Listings   int
	Reviews    int
	ImportedAt time.Time
}

// ManifestRepository stores the manifest of the current snapshot.
type ManifestRepository interface {
	// SaveManifest persists the manifest, replacing any previous one.
	SaveManifest(ctx context.Context, manifest *Manifest) error

	// LoadManifest returns the stored manifest, or nil, nil if none exists.
	LoadManifest(ctx context.Context) (*Manifest, error)
}
