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


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/placerank/core"
)

const secondsPerDay = 24 * 60 * 60

// Reviews are encoded as
//
//	id varint | listing varint | day varint | n varint | n * (label string | score bits varint)
//
// where day counts whole days since the Unix epoch.

// MarshalReview serializes a Review to bytes.
func MarshalReview(review *core.Review) []byte {
	day := dayNumber(review.Date)
	size := varint.Int64.Size(review.ID) +
		varint.Int64.Size(int64(review.ListingID)) +
		varint.Int64.Size(day) +
		varint.Int.Size(len(review.Scores))
	for _, s := range review.Scores {
		size += ord.String.Size(s.Label) + varint.Uint64.Size(math.Float64bits(s.Score))
	}

	buf := make([]byte, size)
	n := varint.Int64.Marshal(review.ID, buf)
	n += varint.Int64.Marshal(int64(review.ListingID), buf[n:])
	n += varint.Int64.Marshal(day, buf[n:])
	n += varint.Int.Marshal(len(review.Scores), buf[n:])
	for _, s := range review.Scores {
		n += ord.String.Marshal(s.Label, buf[n:])
		n += varint.Uint64.Marshal(math.Float64bits(s.Score), buf[n:])
	}
	return buf[:n]
}

// UnmarshalReview deserializes a Review from bytes.
func UnmarshalReview(data []byte) (*core.Review, error) {
	var (
		review core.Review
		off    int
	)

	id, n, err := varint.Int64.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("review id", err)
	}
	off += n
	review.ID = id

	listing, n, err := varint.Int64.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("listing id", err)
	}
	off += n
	review.ListingID = core.ListingID(listing)

	day, n, err := varint.Int64.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("date", err)
	}
	off += n
	review.Date = time.Unix(day*secondsPerDay, 0).UTC()

	count, n, err := varint.Int.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("score count", err)
	}
	off += n
	if count < 0 || count > len(data)-off {
		return nil, fmt.Errorf("%w: %w: score count %d", ErrSerializationFailed, ErrTruncatedData, count)
	}

	review.Scores = make([]core.SentimentScore, 0, count)
	for i := 0; i < count; i++ {
		label, n, err := ord.String.Unmarshal(data[off:])
		if err != nil {
			return nil, wrapDecode("label", err)
		}
		off += n
		bits, n, err := varint.Uint64.Unmarshal(data[off:])
		if err != nil {
			return nil, wrapDecode("score", err)
		}
		off += n
		review.Scores = append(review.Scores, core.SentimentScore{Label: label, Score: math.Float64frombits(bits)})
	}
	return &review, nil
}

func dayNumber(t time.Time) int64 {
	return core.Day(t).Unix() / secondsPerDay
}

func wrapDecode(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, err)
}

// MarshalManifest serializes a Manifest to bytes.
func MarshalManifest(m *Manifest) []byte {
	imported := m.ImportedAt.UnixMicro()
	size := ord.String.Size(m.Source) +
		ord.String.Size(m.Checksum) +
		varint.Int.Size(m.Listings) +
		varint.Int.Size(m.Reviews) +
		varint.Int64.Size(imported)

	buf := make([]byte, size)
	n := ord.String.Marshal(m.Source, buf)
	n += ord.String.Marshal(m.Checksum, buf[n:])
	n += varint.Int.Marshal(m.Listings, buf[n:])
	n += varint.Int.Marshal(m.Reviews, buf[n:])
	n += varint.Int64.Marshal(imported, buf[n:])
	return buf[:n]
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var (
		m   Manifest
		off int
	)

	source, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, wrapDecode("source", err)
	}
	off += n
	m.Source = source

	checksum, n, err := ord.String.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("checksum", err)
	}
	off += n
	m.Checksum = checksum

	listings, n, err := varint.Int.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("listings", err)
	}
	off += n
	m.Listings = listings

	reviews, n, err := varint.Int.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("reviews", err)
	}
	off += n
	m.Reviews = reviews

	imported, _, err := varint.Int64.Unmarshal(data[off:])
	if err != nil {
		return nil, wrapDecode("imported at", err)
	}
	m.ImportedAt = time.UnixMicro(imported).UTC()
	return &m, nil
}
