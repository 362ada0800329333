// Package api exposes the search service over HTTP.
//
// # Endpoints
//
//	GET /search?text=lv+aachen&limit=10&explain=true
//	GET /api/v1/search  (same handler)
//
// Responses are {"query", "results", "count"}; each result carries "type",
// "id", "name" and any non-empty attributes of its kind. Empty text returns
// an empty result list, an invalid limit or explain flag returns 400, and a
// store failure returns 500 with the request id.
//
// # Health
//
// NewHealthHandler serves /health, /health/live, /health/ready and /metrics
// on the separate health port.
package api
