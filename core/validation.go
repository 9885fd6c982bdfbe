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

import (
	"fmt"
	"math"
	"strings"
)

// MaxQueryLength bounds the textual part of a query, in bytes.
const MaxQueryLength = 1024

// ValidateQuery validates a Query according to domain rules.
//
// Validation rules:
//   - Text must not exceed MaxQueryLength
//   - Fields must only contain known flags
//
// NOT validated:
//   - Text syntax (checked by the index parser, which reports ErrInvalidQuery)
//   - RoomType (an unknown room type simply matches nothing)
func ValidateQuery(q Query) error {
	if len(q.Text) > MaxQueryLength {
		return fmt.Errorf("%w: %w", ErrInvalidQuery, ErrQueryTooLong)
	}
	if q.Fields&^AllFields != 0 {
		return fmt.Errorf("%w: flags %#x", ErrUnknownField, uint8(q.Fields&^AllFields))
	}
	return nil
}

// NormalizeQuery fills defaults: a zero field set becomes DefaultSearchFields
// and the room type filter is trimmed. Unknown flags are kept so
// ValidateQuery can reject them.
func NormalizeQuery(q Query) Query {
	if q.Fields == 0 {
		q.Fields = DefaultSearchFields
	}
	q.RoomType = strings.TrimSpace(q.RoomType)
	return q
}

// ValidateListing validates a Listing before indexing.
func ValidateListing(l *Listing) error {
	if l == nil {
		return fmt.Errorf("%w: listing is nil", ErrInvalidListing)
	}
	if l.ID <= 0 {
		return fmt.Errorf("%w: id %d", ErrInvalidListing, l.ID)
	}
	return nil
}

// ValidateReview validates a classified Review.
//
// Validation rules:
//   - Date must be set
//   - every score must carry a label and lie in [0,1]
func ValidateReview(r *Review) error {
	if r == nil {
		return fmt.Errorf("%w: review is nil", ErrInvalidReview)
	}
	if r.Date.IsZero() {
		return fmt.Errorf("%w: review %d has no date", ErrInvalidReview, r.ID)
	}
	for _, s := range r.Scores {
		if s.Label == "" {
			return fmt.Errorf("%w: %w", ErrInvalidReview, ErrEmptyLabel)
		}
		if math.IsNaN(s.Score) || s.Score < 0 || s.Score > 1 {
			return fmt.Errorf("%w: %w: %s=%v", ErrInvalidReview, ErrScoreOutOfRange, s.Label, s.Score)
		}
	}
	return nil
}
