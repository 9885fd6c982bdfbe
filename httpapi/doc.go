// Package httpapi exposes retrieval models over HTTP.
//
// Routes:
//
//	GET /search?q=&fields=&room_type=&sentiment=&limit=&offset=
//	GET /expand?q=
//	GET /correct?q=&fields=
//	GET|PUT /autoexpansion
//	GET /listings/{id}
//	GET /listings/{id}/sentiment
//	GET /healthz
//	GET /metrics
package httpapi
