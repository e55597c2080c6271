package health

import "context"

// StorePinger checks record store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// IndexChecker reports whether the search index is present.
type IndexChecker interface {
	IndexExists(ctx context.Context, name string) (bool, error)
}
