// Package search implements portal search: a structured primary engine with
// a free-text fallback, result normalization and caching.
package search

import (
	"context"

	"housescout/models"
)

// Engine is one search backend. Implementations must be safe for concurrent
// use and must not retain the returned slice.
type Engine interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchHit, error)
}

// Capabilities reports which engines were resolved at startup. Probed once
// during wiring; downstream code branches on these flags instead of
// re-checking configuration per call.
type Capabilities struct {
	Primary  bool `json:"primary"`
	Fallback bool `json:"fallback"`
}

// Available reports whether any engine can serve queries at all. When false,
// an empty result set means "no provider", not "no matches".
func (c Capabilities) Available() bool {
	return c.Primary || c.Fallback
}
