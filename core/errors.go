// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Domain errors
var (
	// ErrInvalidQuery indicates malformed query syntax. The request is aborted.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrCorruptSnapshot indicates the sentiment snapshot could not be parsed.
	ErrCorruptSnapshot = errors.New("corrupt sentiment snapshot")

	// ErrEmbeddingServiceUnavailable indicates an embedding or language model
	// call failed. Callers fall back to the unexpanded query.
	ErrEmbeddingServiceUnavailable = errors.New("embedding service unavailable")

	// ErrUnknownField indicates a search field tag that does not exist.
	ErrUnknownField = errors.New("unknown search field")

	// ErrInvalidConfig indicates an unusable configuration value.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidListing indicates a Listing failed validation.
	ErrInvalidListing = errors.New("invalid listing")

	// ErrInvalidReview indicates a Review failed validation.
	ErrInvalidReview = errors.New("invalid review")

	// ErrEmptyQueryText indicates a query with no text at all.
	ErrEmptyQueryText = errors.New("query text cannot be empty")

	// ErrQueryTooLong indicates a query exceeding MaxQueryLength.
	ErrQueryTooLong = errors.New("query text too long")

	// ErrScoreOutOfRange indicates a classifier score outside [0,1].
	ErrScoreOutOfRange = errors.New("sentiment score out of range")

	// ErrEmptyLabel indicates a sentiment score without a label.
	ErrEmptyLabel = errors.New("sentiment label cannot be empty")
)
