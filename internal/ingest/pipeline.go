package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	"github.com/constructiq/permitsearch/internal/repository/corpus"
)

// Fetcher pages through the raw dataset.
type Fetcher interface {
	FetchPage(ctx context.Context, offset int) ([]map[string]any, error)
	PageSize() int
}

// Writer persists embedded record batches.
type Writer interface {
	PutMulti(ctx context.Context, items []corpus.Item) error
}

// Embedder vectorizes record content.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Stats summarizes one pipeline run.
type Stats struct {
	Fetched  int64
	Stored   int64
	Skipped  int64
	Failed   int64
	Duration time.Duration
}

// Pipeline is the ingest flow: fetch pages, normalize rows, embed content,
// write batches. One producer feeds a bounded worker pool; the first
// unrecoverable error cancels the whole run.
type Pipeline struct {
	source     Fetcher
	writer     Writer
	embed      Embedder
	normalizer permit.Normalizer
	logger     *zap.Logger
	workers    int
	batchSize  int
	maxRows    int
}

// PipelineConfig configures a pipeline run.
type PipelineConfig struct {
	Workers   int
	BatchSize int
	// MaxRows caps the run; zero means the full dataset.
	MaxRows int
}

// NewPipeline creates an ingest pipeline.
func NewPipeline(
	source Fetcher, writer Writer, embed Embedder,
	normalizer permit.Normalizer, logger *zap.Logger, cfg PipelineConfig,
) *Pipeline {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		source:     source,
		writer:     writer,
		embed:      embed,
		normalizer: normalizer,
		logger:     logger,
		workers:    workers,
		batchSize:  batchSize,
		maxRows:    cfg.MaxRows,
	}
}

// Run executes the pipeline until the dataset is exhausted or ctx ends.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	start := time.Now()
	var fetched, stored, skipped, failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	batches := make(chan []*permit.Record, p.workers*2)

	g.Go(func() error {
		defer close(batches)
		return p.produce(ctx, batches, &fetched, &skipped)
	})

	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			for batch := range batches {
				n, err := p.store(ctx, batch)
				stored.Add(int64(n))
				failed.Add(int64(len(batch) - n))
				if err != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	stats := Stats{
		Fetched:  fetched.Load(),
		Stored:   stored.Load(),
		Skipped:  skipped.Load(),
		Failed:   failed.Load(),
		Duration: time.Since(start),
	}
	return stats, err
}

// produce pages through the source and emits normalized record batches.
// Rows that fail normalization are counted and skipped, never fatal.
func (p *Pipeline) produce(
	ctx context.Context,
	out chan<- []*permit.Record,
	fetched, skipped *atomic.Int64,
) error {
	batch := make([]*permit.Record, 0, p.batchSize)
	emit := func() error {
		if len(batch) == 0 {
			return nil
		}
		select {
		case out <- batch:
			batch = make([]*permit.Record, 0, p.batchSize)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for offset := 0; ; offset += p.source.PageSize() {
		rows, err := p.source.FetchPage(ctx, offset)
		if err != nil {
			return fmt.Errorf("fetch offset %d: %w", offset, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			if p.maxRows > 0 && fetched.Load() >= int64(p.maxRows) {
				return emit()
			}
			fetched.Add(1)

			rec, err := p.normalizer.Normalize(row)
			if err != nil {
				skipped.Add(1)
				p.logger.Debug("skipping row", zap.Error(err))
				continue
			}

			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				if err := emit(); err != nil {
					return err
				}
			}
		}

		if len(rows) < p.source.PageSize() {
			break
		}
	}
	return emit()
}

// store embeds and writes one batch, returning how many records persisted.
func (p *Pipeline) store(ctx context.Context, batch []*permit.Record) (int, error) {
	items := make([]corpus.Item, 0, len(batch))
	for _, rec := range batch {
		content := BuildContent(rec)
		emb, err := p.embed.Embed(ctx, content)
		if err != nil {
			// Nothing reached the writer yet.
			return 0, fmt.Errorf("embed record %s: %w", rec.RecordID, err)
		}
		items = append(items, corpus.Item{
			Record:  rec,
			Vector:  emb.Embedding,
			Content: content,
		})
	}

	if err := p.writer.PutMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("store batch of %d: %w", len(items), err)
	}

	p.logger.Info("batch stored", zap.Int("records", len(items)))
	return len(items), nil
}
