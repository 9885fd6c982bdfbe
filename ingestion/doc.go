// Package ingestion loads source data into placerank's stores.
//
// The Pipeline type indexes listings read from an InsideAirbnb-style CSV
// (optionally gzipped), writing batches concurrently on a worker pool and
// reporting progress as it goes. ImportSnapshot copies a classified JSON
// sentiment snapshot into the review repository and records a manifest so
// that re-importing an unchanged file is a no-op.
package ingestion
