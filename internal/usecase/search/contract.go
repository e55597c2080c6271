package search

import (
	"context"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	"github.com/constructiq/permitsearch/internal/domain/querylog"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
	"github.com/constructiq/permitsearch/internal/domain/search/result"
)

// Index runs vector similarity lookups and returns raw hits, best first.
type Index interface {
	Query(ctx context.Context, vector []float32, pred filter.Predicate, k int) ([]result.Hit, error)
}

// Corpus hydrates record ids into canonical records. Missing ids come back
// in the second return value, not as an error.
type Corpus interface {
	GetMulti(ctx context.Context, ids []string) (map[string]*permit.Record, []string, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Recorder accepts audit entries without blocking the search path.
type Recorder interface {
	Record(e *querylog.Entry)
}
