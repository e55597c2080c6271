// Package request holds the validated search request value object.
package request

import (
	"fmt"
	"strings"

	"github.com/constructiq/permitsearch/internal/domain"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 50
)

// Request is a validated search query: trimmed query text, a raw filter
// map awaiting compilation, and a bounded result count. Immutable once
// constructed.
type Request struct {
	query   string
	filters map[string]any
	topK    int
}

// New validates and normalizes search parameters. The query is trimmed and
// must be non-empty. A zero topK takes defaultTopK; out-of-range values are
// rejected rather than clamped, so a caller asking for more than the service
// allows hears about it. Non-positive defaultTopK and maxTopK fall back to
// the package constants.
func New(query string, filters map[string]any, topK, defaultTopK, maxTopK int) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, domain.ErrEmptyQuery
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	if maxTopK <= 0 {
		maxTopK = MaxTopK
	}
	if topK == 0 {
		topK = defaultTopK
	}
	if topK < 1 || topK > maxTopK {
		return Request{}, fmt.Errorf("%w: top_k must be between 1 and %d", domain.ErrInvalidRequest, maxTopK)
	}
	return Request{query: query, filters: filters, topK: topK}, nil
}

// Query returns the trimmed query text.
func (r *Request) Query() string { return r.query }

// Filters returns the raw filter map, nil when the request has none.
func (r *Request) Filters() map[string]any { return r.filters }

// TopK returns the maximum number of results to return.
func (r *Request) TopK() int { return r.topK }
