// Package search runs vector similarity lookups against the permit FT index.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
	"github.com/constructiq/permitsearch/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

const defaultTimeout = 5 * time.Second

// Repo implements the vector index consumed by usecase/search.
type Repo struct {
	store   store
	index   string
	prefix  string
	timeout time.Duration
}

// New creates a search repository over the named FT index. prefix is the
// record key prefix stripped from hit keys to recover record ids. A
// non-positive timeout takes the default.
func New(s store, index, prefix string, timeout time.Duration) *Repo {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Repo{store: s, index: index, prefix: prefix, timeout: timeout}
}

// Query runs one KNN lookup and returns raw hits, best first. Every call
// carries a deadline; an unbounded request to the index is not possible.
// Index errors surface as ErrIndexUnavailable so callers can map them to a
// dependency failure without knowing the backend.
func (r *Repo) Query(ctx context.Context, vector []float32, pred filter.Predicate, k int) ([]result.Hit, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	q := &db.KNNQuery{
		IndexName:    r.index,
		Predicate:    pred,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"__vector_score"},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: knn on %s: %w", domain.ErrIndexUnavailable, r.index, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		hits = append(hits, result.Hit{
			ID:    strings.TrimPrefix(entry.Key, r.prefix),
			Score: entry.Score,
		})
	}
	return hits, nil
}
