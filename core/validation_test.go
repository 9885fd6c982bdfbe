package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{
			name:    "valid query",
			query:   Query{Text: "loft manhattan", Fields: FieldName | FieldDescription},
			wantErr: nil,
		},
		{
			name:    "empty text is allowed",
			query:   Query{Fields: FieldName},
			wantErr: nil,
		},
		{
			name:    "text too long",
			query:   Query{Text: strings.Repeat("a", MaxQueryLength+1), Fields: FieldName},
			wantErr: ErrQueryTooLong,
		},
		{
			name:    "unknown field flag",
			query:   Query{Text: "loft", Fields: SearchFields(0x80)},
			wantErr: ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.query)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateQuery() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateQuery() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeQuery(t *testing.T) {
	q := NormalizeQuery(Query{Text: "loft", RoomType: "  Private room "})
	if q.Fields != DefaultSearchFields {
		t.Errorf("Fields = %v, want %v", q.Fields, DefaultSearchFields)
	}
	if q.RoomType != "Private room" {
		t.Errorf("RoomType = %q, want %q", q.RoomType, "Private room")
	}

	q = NormalizeQuery(Query{Fields: FieldName})
	if q.Fields != FieldName {
		t.Errorf("explicit fields overwritten: %v", q.Fields)
	}

	q = NormalizeQuery(Query{Text: "loft", Fields: 1 << 6})
	if q.Fields != 1<<6 {
		t.Errorf("unknown-only fields replaced by defaults: %v", q.Fields)
	}
	if err := ValidateQuery(q); !errors.Is(err, ErrUnknownField) {
		t.Errorf("ValidateQuery(unknown-only fields) = %v, want ErrUnknownField", err)
	}
}

func TestValidateReview(t *testing.T) {
	day := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		review  *Review
		wantErr error
	}{
		{
			name:    "valid review",
			review:  &Review{ID: 1, ListingID: 7, Date: day, Scores: []SentimentScore{{Label: "joy", Score: 0.7}}},
			wantErr: nil,
		},
		{
			name:    "valid review without scores",
			review:  &Review{ID: 1, ListingID: 7, Date: day},
			wantErr: nil,
		},
		{
			name:    "nil review",
			review:  nil,
			wantErr: ErrInvalidReview,
		},
		{
			name:    "missing date",
			review:  &Review{ID: 1, ListingID: 7},
			wantErr: ErrInvalidReview,
		},
		{
			name:    "empty label",
			review:  &Review{ID: 1, Date: day, Scores: []SentimentScore{{Score: 0.2}}},
			wantErr: ErrEmptyLabel,
		},
		{
			name:    "score above one",
			review:  &Review{ID: 1, Date: day, Scores: []SentimentScore{{Label: "joy", Score: 1.2}}},
			wantErr: ErrScoreOutOfRange,
		},
		{
			name:    "negative score",
			review:  &Review{ID: 1, Date: day, Scores: []SentimentScore{{Label: "joy", Score: -0.1}}},
			wantErr: ErrScoreOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateReview(tt.review)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateReview() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateReview() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateListing(t *testing.T) {
	if err := ValidateListing(&Listing{ID: 3, Name: "Loft"}); err != nil {
		t.Errorf("ValidateListing() error = %v", err)
	}
	if err := ValidateListing(&Listing{ID: 0}); !errors.Is(err, ErrInvalidListing) {
		t.Errorf("ValidateListing() error = %v, want %v", err, ErrInvalidListing)
	}
	if err := ValidateListing(nil); !errors.Is(err, ErrInvalidListing) {
		t.Errorf("ValidateListing(nil) error = %v, want %v", err, ErrInvalidListing)
	}
}
