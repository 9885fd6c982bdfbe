package core

import (
	"fmt"
	"strings"
)

// SearchFields is a set of listing fields a query is scoped to.
type SearchFields uint8

const (
	FieldName SearchFields = 1 << iota
	FieldRoomType
	FieldDescription
	FieldNeighborhoodOverview
)

const (
	// AllFields selects every searchable field.
	AllFields = FieldName | FieldRoomType | FieldDescription | FieldNeighborhoodOverview
	// DefaultSearchFields is used when a query does not select any field.
	DefaultSearchFields = FieldName | FieldDescription | FieldNeighborhoodOverview
)

// Index field names, in the order Fields reports them.
const (
	FieldNameName                 = "name"
	FieldNameRoomType             = "room_type"
	FieldNameDescription          = "description"
	FieldNameNeighborhoodOverview = "neighborhood_overview"
)

var fieldNames = []struct {
	flag SearchFields
	name string
}{
	{FieldName, FieldNameName},
	{FieldRoomType, FieldNameRoomType},
	{FieldDescription, FieldNameDescription},
	{FieldNeighborhoodOverview, FieldNameNeighborhoodOverview},
}

// Union returns the fields present in either set.
func (f SearchFields) Union(other SearchFields) SearchFields {
	return f | other
}

// Has reports whether every field in other is also in f.
func (f SearchFields) Has(other SearchFields) bool {
	return other != 0 && f&other == other
}

// Empty reports whether no field is selected.
func (f SearchFields) Empty() bool {
	return f&AllFields == 0
}

// Fields returns the index field names in a stable order.
func (f SearchFields) Fields() []string {
	var out []string
	for _, fn := range fieldNames {
		if f&fn.flag != 0 {
			out = append(out, fn.name)
		}
	}
	return out
}

func (f SearchFields) String() string {
	return strings.Join(f.Fields(), ",")
}

// ParseSearchFields parses a comma or space separated list of field names.
func ParseSearchFields(s string) (SearchFields, error) {
	var out SearchFields
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '|' }) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "all" {
			out |= AllFields
			continue
		}
		found := false
		for _, fn := range fieldNames {
			if fn.name == tok {
				out |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %q", ErrUnknownField, tok)
		}
	}
	return out, nil
}

// TermPolicy controls how the clauses of a query combine.
type TermPolicy int

const (
	// TermPolicyAnd requires every clause to match in some selected field.
	TermPolicyAnd TermPolicy = iota
	// TermPolicyOr requires at least one clause to match.
	TermPolicyOr
)

func (p TermPolicy) String() string {
	if p == TermPolicyOr {
		return "or"
	}
	return "and"
}

// ParseTermPolicy accepts "and"/"intersection" or "or"/"union".
func ParseTermPolicy(s string) (TermPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and", "intersection":
		return TermPolicyAnd, nil
	case "or", "union":
		return TermPolicyOr, nil
	}
	return 0, fmt.Errorf("%w: unknown term policy %q", ErrInvalidConfig, s)
}
