package ingestion

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/go-crypt/x/blake2b"

	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/sentiment"
	"github.com/poiesic/placerank/storage"
)

// Importer copies sentiment snapshots into a review repository.
type Importer struct {
	reviews   storage.ReviewRepository
	manifests storage.ManifestRepository
	progress  io.Writer
	logger    *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithImportProgress writes a progress line to w while importing.
func WithImportProgress(w io.Writer) ImporterOption {
	return func(i *Importer) {
		i.progress = w
	}
}

// WithImportLogger sets a custom logger.
func WithImportLogger(logger *slog.Logger) ImporterOption {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// NewImporter creates an importer writing to reviews and manifests.
func NewImporter(reviews storage.ReviewRepository, manifests storage.ManifestRepository, opts ...ImporterOption) (*Importer, error) {
	if reviews == nil {
		return nil, ErrReviewRepositoryRequired
	}
	if manifests == nil {
		return nil, ErrManifestRepositoryRequired
	}
	i := &Importer{
		reviews:   reviews,
		manifests: manifests,
		logger:    slog.Default().With("component", "snapshot-import"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// ImportFile imports the JSON snapshot at path.
func (i *Importer) ImportFile(ctx context.Context, path string) (*storage.Manifest, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	return i.Import(ctx, f, path)
}

// Import replaces the stored review histories with the snapshot read from
// r. It reports false, with the current manifest, when the snapshot is
// byte-identical to the last import.
func (i *Importer) Import(ctx context.Context, r io.Reader, source string) (*storage.Manifest, bool, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("reading snapshot: %w", err)
	}
	checksum := Checksum(data)

	current, err := i.manifests.LoadManifest(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("loading manifest: %w", err)
	}
	if current != nil && current.Checksum == checksum {
		i.logger.Info("snapshot unchanged, skipping import", "source", source, "checksum", checksum)
		return current, false, nil
	}

	histories, err := sentiment.DecodeSnapshot(bytes.NewReader(data))
	if err != nil {
		return nil, false, err
	}

	ids := make([]core.ListingID, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if err := i.dropStale(ctx, histories); err != nil {
		return nil, false, err
	}

	tracker := NewProgressTracker(i.progress, "listings", len(ids), 100)
	tracker.Start()
	defer tracker.Finish()

	total := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		reviews := histories[id]
		ptrs := make([]*core.Review, len(reviews))
		for j := range reviews {
			ptrs[j] = &reviews[j]
		}
		if err := i.replace(ctx, id, ptrs); err != nil {
			return nil, false, fmt.Errorf("importing listing %d: %w", id, err)
		}
		total += len(reviews)
		tracker.Add(1)
	}

	manifest := &storage.Manifest{
		Source:   source,
		Checksum: checksum,
		Listings: len(ids),
		Reviews:  total,
	}
	if err := i.manifests.SaveManifest(ctx, manifest); err != nil {
		return nil, false, fmt.Errorf("saving manifest: %w", err)
	}
	i.logger.Info("imported snapshot", "source", source, "listings", len(ids), "reviews", total)
	return manifest, true, nil
}

func (i *Importer) replace(ctx context.Context, id core.ListingID, reviews []*core.Review) error {
	if err := i.reviews.DeleteListing(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return i.reviews.PutReviews(ctx, reviews...)
}

// dropStale removes listings absent from the new snapshot.
func (i *Importer) dropStale(ctx context.Context, keep map[core.ListingID][]core.Review) error {
	var stale []core.ListingID
	err := i.reviews.ForEachListing(ctx, func(id core.ListingID, _ []*core.Review) error {
		if _, ok := keep[id]; !ok {
			stale = append(stale, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning stored listings: %w", err)
	}
	for _, id := range stale {
		if err := i.reviews.DeleteListing(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("removing listing %d: %w", id, err)
		}
	}
	if len(stale) > 0 {
		i.logger.Debug("removed stale listings", "count", len(stale))
	}
	return nil
}

// Checksum returns the hex BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
