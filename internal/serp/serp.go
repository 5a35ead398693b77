// Package serp queries web search providers and orchestrates the fallback
// between them.
package serp

import (
	"context"

	"github.com/FranksOps/leadfinder/internal/lead"
)

// Request is a single search call.
type Request struct {
	Query string
	Count int
	// Offset is only sent when greater than zero.
	Offset int
}

// Response carries a provider's results in the provider's order. Error is
// non-empty when the call degraded; Results is then empty.
type Response struct {
	Provider string
	Query    string
	Results  []lead.SearchResult
	Error    string
}

// Degraded reports whether the call failed.
func (r Response) Degraded() bool {
	return r.Error != ""
}

// Provider abstracts a search engine. Implementations never return an error:
// failures are reported in Response.Error.
type Provider interface {
	Name() string
	Search(ctx context.Context, req Request) Response
}
