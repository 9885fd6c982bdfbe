package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/storage"
)

// ReviewRepository implements storage.ReviewRepository for BadgerDB.
type ReviewRepository struct {
	*Backend
	logger *slog.Logger
}

var _ storage.ReviewRepository = (*ReviewRepository)(nil)

// NewReviewRepository creates a review repository on an open backend.
func NewReviewRepository(backend *Backend) (storage.ReviewRepository, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	return &ReviewRepository{
		Backend: backend,
		logger:  backend.logger.With("repository", "review"),
	}, nil
}

// Close is a no-op; the backend is owned by the caller.
func (r *ReviewRepository) Close() error {
	return nil
}

// PutReviews stores reviews in a single write transaction.
func (r *ReviewRepository) PutReviews(ctx context.Context, reviews ...*core.Review) error {
	for _, review := range reviews {
		if err := core.ValidateReview(review); err != nil {
			return err
		}
	}
	if len(reviews) == 0 {
		return nil
	}

	return r.update(ctx, func(tx *badger.Txn) error {
		for _, review := range reviews {
			if err := ctx.Err(); err != nil {
				return err
			}
			key := makeReviewKey(review.ListingID, review.ID)
			if err := tx.Set(key, storage.MarshalReview(review)); err != nil {
				return fmt.Errorf("storing review %d: %w", review.ID, err)
			}
		}
		return nil
	})
}

// GetReviews returns the reviews of a listing, most recent first.
func (r *ReviewRepository) GetReviews(ctx context.Context, listingID core.ListingID) ([]*core.Review, error) {
	reviews := []*core.Review{}
	err := r.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialReviewKey(listingID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			review, err := readReview(iter.Item())
			if err != nil {
				return err
			}
			reviews = append(reviews, review)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortReviews(reviews)
	return reviews, nil
}

// DeleteListing removes every review of a listing.
func (r *ReviewRepository) DeleteListing(ctx context.Context, listingID core.ListingID) error {
	return r.update(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialReviewKey(listingID)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		if len(keys) == 0 {
			return storage.ErrNotFound
		}
		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
}

// ForEachListing walks all reviews grouped by listing.
func (r *ReviewRepository) ForEachListing(ctx context.Context, fn func(core.ListingID, []*core.Review) error) error {
	return r.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reviewRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var (
			current core.ListingID
			group   []*core.Review
		)
		flush := func() error {
			if len(group) == 0 {
				return nil
			}
			sortReviews(group)
			err := fn(current, group)
			group = nil
			return err
		}

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			listingID, ok := listingFromReviewKey(item.Key())
			if !ok {
				r.logger.Warn("skipping malformed review key", "key", item.Key())
				continue
			}
			if listingID != current {
				if err := flush(); err != nil {
					return err
				}
				current = listingID
			}
			review, err := readReview(item)
			if err != nil {
				return err
			}
			group = append(group, review)
		}
		return flush()
	})
}

// CountListings returns the number of listings with at least one review.
func (r *ReviewRepository) CountListings(ctx context.Context) (int, error) {
	count := 0
	err := r.view(ctx, func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(reviewRecordPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		var last core.ListingID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			listingID, ok := listingFromReviewKey(iter.Item().Key())
			if ok && (count == 0 || listingID != last) {
				count++
				last = listingID
			}
		}
		return nil
	})
	return count, err
}

func readReview(item *badger.Item) (*core.Review, error) {
	var review *core.Review
	err := item.Value(func(val []byte) error {
		var err error
		review, err = storage.UnmarshalReview(val)
		return err
	})
	return review, err
}

// sortReviews orders by date descending, then review id descending.
func sortReviews(reviews []*core.Review) {
	slices.SortStableFunc(reviews, func(a, b *core.Review) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}
