// Package index is the full-text listing index placerank ranks over.
//
// It wraps a bleve index with a listing-specific analyzer (Unicode
// tokenization, lower-casing, English stop words and Snowball stemming),
// a small boolean query language, and a "did you mean" suggestion
// primitive built on the indexed vocabulary.
//
// Query syntax:
//
//	cozy loft                 terms combined by the caller's TermPolicy
//	"walking distance"        phrase
//	park AND quiet            explicit conjunction
//	loft OR studio            explicit disjunction (AND binds tighter)
//	NOT noisy                 exclusion
//	(loft OR studio) central  grouping
//
// Every search runs through a short-lived Searcher handle obtained from
// Index.Searcher and released with Close. Index.Close waits for open
// handles.
package index
