// Package querylog buffers search audit entries and writes them to the
// capped log off the request path.
package querylog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/constructiq/permitsearch/internal/domain/querylog"
	"github.com/constructiq/permitsearch/internal/metrics"
)

// Defaults applied when the corresponding config value is unset.
const (
	DefaultBufferSize = 256
	DefaultMaxRecent  = 100

	// appendTimeout bounds a single write so a slow store cannot stall
	// the drain loop indefinitely.
	appendTimeout = 5 * time.Second
)

// Service is the asynchronous audit recorder. Record never blocks the
// caller: when the buffer is full the entry is dropped and counted.
type Service struct {
	repo      Repo
	logger    *zap.Logger
	buf       chan *querylog.Entry
	maxRecent int

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a recorder and starts its drain worker. Call Close to flush
// buffered entries on shutdown.
func New(repo Repo, logger *zap.Logger, bufferSize, maxRecent int) *Service {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if maxRecent <= 0 {
		maxRecent = DefaultMaxRecent
	}
	s := &Service{
		repo:      repo,
		logger:    logger,
		buf:       make(chan *querylog.Entry, bufferSize),
		maxRecent: maxRecent,
		done:      make(chan struct{}),
	}
	go s.drain()
	return s
}

// Record enqueues one entry. Full buffer drops the entry rather than
// stalling the search that produced it.
func (s *Service) Record(e *querylog.Entry) {
	select {
	case s.buf <- e:
	default:
		metrics.QueryLogDroppedTotal.Inc()
		s.logger.Warn("query log buffer full, dropping entry",
			zap.String("query", e.Query))
	}
}

// Recent returns up to limit entries, newest first. The limit is clamped to
// the configured maximum; a non-positive limit takes the maximum.
func (s *Service) Recent(ctx context.Context, limit int) ([]querylog.Entry, error) {
	if limit <= 0 || limit > s.maxRecent {
		limit = s.maxRecent
	}
	return s.repo.Recent(ctx, limit)
}

// Size returns the number of entries currently retained.
func (s *Service) Size(ctx context.Context) (int64, error) {
	return s.repo.Size(ctx)
}

// Close stops accepting entries and flushes what is buffered.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.buf)
	})
	<-s.done
}

func (s *Service) drain() {
	defer close(s.done)
	for e := range s.buf {
		ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
		if err := s.repo.Append(ctx, e); err != nil {
			metrics.QueryLogDroppedTotal.Inc()
			s.logger.Warn("query log append failed",
				zap.String("query", e.Query),
				zap.Error(err))
		}
		cancel()
	}
}
