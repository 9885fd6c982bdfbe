package sentiment

import "errors"

var (
	// ErrSourceRequired is returned when a Scorer is built without history.
	ErrSourceRequired = errors.New("sentiment history source is required")

	// ErrInvalidRetention is returned for a retention below one review.
	ErrInvalidRetention = errors.New("retention must be at least 1")
)
