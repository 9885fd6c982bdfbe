package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrNoMask is returned when a sentence has no MaskToken.
	ErrNoMask = errors.New("sentence has no mask token")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("ai config")
)
