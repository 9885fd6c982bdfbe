package index

import "errors"

var (
	// ErrIndexClosed is returned when the index has been closed.
	ErrIndexClosed = errors.New("index is closed")

	// ErrSearcherClosed is returned when a released Searcher is reused.
	ErrSearcherClosed = errors.New("searcher is closed")

	// ErrIndexExists is returned by Create when the path is already in use.
	ErrIndexExists = errors.New("index already exists")
)
