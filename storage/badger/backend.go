package badger

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/placerank/storage"
)

// Backend owns the BadgerDB instance holding review histories.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// Option configures OpenBackend.
type Option func(*backendOptions)

type backendOptions struct {
	inMemory   bool
	compressed bool
	logger     *slog.Logger
}

// InMemory keeps the database entirely in memory. The path is ignored.
func InMemory() Option {
	return func(o *backendOptions) { o.inMemory = true }
}

// WithCompression stores value blocks zstd-compressed. Review text
// compresses well; leave it off for small test stores.
func WithCompression() Option {
	return func(o *backendOptions) { o.compressed = true }
}

// WithLogger routes badger's internal logging through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *backendOptions) { o.logger = logger }
}

// slogAdapter satisfies badger.Logger. Badger reports routine compaction
// progress at info level, so it is demoted to debug.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) Errorf(format string, args ...any) {
	a.logger.Error(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Warningf(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Infof(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

func (a *slogAdapter) Debugf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

// OpenBackend opens the review store at dir, creating the directory when
// it does not exist yet.
func OpenBackend(dir string, opts ...Option) (*Backend, error) {
	o := backendOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "review-store")

	var bopts badger.Options
	if o.inMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
		bopts = badger.DefaultOptions(dir)
	}
	bopts.Logger = &slogAdapter{logger: logger}
	bopts.Compression = options.None
	if o.compressed {
		bopts.Compression = options.ZSTD
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("opening review store: %w", err)
	}
	logger.Debug("review store opened", "dir", dir, "in_memory", o.inMemory)
	return &Backend{db: db, logger: logger}, nil
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(dir, 0o755)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("review store path %s is not a directory", dir)
	}
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed reports whether Close has been called.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// view runs fn in a read-only transaction.
func (b *Backend) view(ctx context.Context, fn func(tx *badger.Txn) error) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.View(fn)
}

// update runs fn in a read-write transaction and commits it when fn
// succeeds.
func (b *Backend) update(ctx context.Context, fn func(tx *badger.Txn) error) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.db.Update(fn)
}

// WithTransaction runs fn inside an empty write transaction, failing fast
// once the store is closed.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.update(ctx, func(*badger.Txn) error {
		return fn(ctx)
	})
}
