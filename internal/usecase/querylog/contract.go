package querylog

import (
	"context"

	"github.com/constructiq/permitsearch/internal/domain/querylog"
)

// Repo persists audit entries to the capped log.
type Repo interface {
	Append(ctx context.Context, e *querylog.Entry) error
	Recent(ctx context.Context, n int) ([]querylog.Entry, error)
	Size(ctx context.Context) (int64, error)
}
