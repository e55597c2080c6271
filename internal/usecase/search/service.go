// Package search implements the query-and-filter engine: it validates the
// request, compiles filters, embeds the query, runs the index lookup, and
// shapes hydrated results.
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	"github.com/constructiq/permitsearch/internal/domain/querylog"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
	"github.com/constructiq/permitsearch/internal/domain/search/request"
	"github.com/constructiq/permitsearch/internal/domain/search/result"
	"github.com/constructiq/permitsearch/internal/metrics"
)

// ClientMeta carries request-scoped client details into the audit log.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// Response is the shaped outcome of one search.
type Response struct {
	Entries []result.Entry
	// Dropped counts index hits discarded because the corpus record was
	// missing or on an unsupported schema version.
	Dropped   int
	ElapsedMS int64
}

// Service executes searches. It is stateless with respect to requests, so a
// single instance serves concurrent callers without coordination.
type Service struct {
	index    Index
	corpus   Corpus
	embed    Embedder
	recorder Recorder
	registry permit.FieldRegistry
	schemas  permit.SchemaRegistry
	// dimensions is the configured embedding width; vectors of any other
	// length are rejected before reaching the index.
	dimensions int
}

// New creates a search service.
func New(
	index Index, corpus Corpus, embed Embedder, recorder Recorder,
	registry permit.FieldRegistry, schemas permit.SchemaRegistry,
	dimensions int,
) *Service {
	return &Service{
		index:      index,
		corpus:     corpus,
		embed:      embed,
		recorder:   recorder,
		registry:   registry,
		schemas:    schemas,
		dimensions: dimensions,
	}
}

// Search runs one similarity query. Filter compilation failures and
// embedding failures abort the search before any index call; a corpus miss
// for an individual hit drops that hit only.
func (s *Service) Search(ctx context.Context, req *request.Request, client ClientMeta) (*Response, error) {
	start := time.Now()

	pred, err := filter.Compile(req.Filters(), s.registry)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	emb, err := s.embed.Embed(ctx, req.Query())
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("embedding_error").Inc()
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	if s.dimensions > 0 && len(emb.Embedding) != s.dimensions {
		metrics.SearchesTotal.WithLabelValues("embedding_error").Inc()
		return nil, fmt.Errorf("%w: got %d dimensions, want %d",
			domain.ErrEmbeddingDimMismatch, len(emb.Embedding), s.dimensions)
	}

	hits, err := s.index.Query(ctx, emb.Embedding, pred, req.TopK())
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("index_error").Inc()
		return nil, fmt.Errorf("query index: %w", err)
	}

	entries, dropped, err := s.hydrate(ctx, hits)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("index_error").Inc()
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score() != entries[j].Score() {
			return entries[i].Score() > entries[j].Score()
		}
		return entries[i].ID() < entries[j].ID()
	})
	if len(entries) > req.TopK() {
		entries = entries[:req.TopK()]
	}

	resp := &Response{
		Entries:   entries,
		Dropped:   dropped,
		ElapsedMS: time.Since(start).Milliseconds(),
	}

	metrics.SearchesTotal.WithLabelValues("success").Inc()
	s.record(ctx, req, client, resp)

	return resp, nil
}

// hydrate joins raw hits with their canonical records, migrating stored
// records to the current schema version on read. Hits whose record is
// missing or unsupported are dropped, never fatal.
func (s *Service) hydrate(ctx context.Context, hits []result.Hit) ([]result.Entry, int, error) {
	if len(hits) == 0 {
		return nil, 0, nil
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}

	found, missing, err := s.corpus.GetMulti(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("hydrate hits: %w", err)
	}
	dropped := len(missing)

	entries := make([]result.Entry, 0, len(hits))
	for _, h := range hits {
		rec, ok := found[h.ID]
		if !ok {
			continue
		}
		if err := s.schemas.Migrate(rec); err != nil {
			dropped++
			continue
		}
		entries = append(entries, result.New(h.ID, h.Score, rec))
	}

	if dropped > 0 {
		metrics.SearchStaleHitsTotal.Add(float64(dropped))
	}
	return entries, dropped, nil
}

// record enqueues the audit entry. An abandoned request writes no entry.
func (s *Service) record(ctx context.Context, req *request.Request, client ClientMeta, resp *Response) {
	if s.recorder == nil || ctx.Err() != nil {
		return
	}

	refs := make([]querylog.ResultRef, 0, len(resp.Entries))
	for i := range resp.Entries {
		refs = append(refs, querylog.ResultRef{
			RecordID: resp.Entries[i].ID(),
			Score:    resp.Entries[i].Score(),
		})
	}

	s.recorder.Record(&querylog.Entry{
		Timestamp: time.Now().UTC(),
		Query:     req.Query(),
		Filters:   req.Filters(),
		TopK:      req.TopK(),
		Results:   refs,
		Dropped:   resp.Dropped,
		LatencyMS: resp.ElapsedMS,
		ClientIP:  client.IP,
		UserAgent: client.UserAgent,
	})
}
