package badger

import (
	"encoding/binary"

	"github.com/poiesic/placerank/core"
)

// Key prefixes for different data types
const (
	reviewRecordPrefix = "revrec"
	manifestKey        = "snapman"
)

// makeReviewKey generates a composite key for a review.
// Format: prefix:listingID:reviewID
func makeReviewKey(listingID core.ListingID, reviewID int64) []byte {
	prefix := reviewRecordPrefix + ":"
	buf := make([]byte, len(prefix)+16)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(listingID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(reviewID))
	return buf
}

// makePartialReviewKey generates a partial key selecting all reviews of a listing.
// Format: prefix:listingID
func makePartialReviewKey(listingID core.ListingID) []byte {
	prefix := reviewRecordPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(listingID))
	return buf
}

// listingFromReviewKey extracts the listing id from a full review key.
func listingFromReviewKey(key []byte) (core.ListingID, bool) {
	offset := len(reviewRecordPrefix) + 1
	if len(key) < offset+16 {
		return 0, false
	}
	return core.ListingID(binary.BigEndian.Uint64(key[offset:])), true
}
