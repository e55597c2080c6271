// Command permitload backfills permit records from the city open-data API
// into the search index.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/constructiq/permitsearch/internal/config"
	dbRedis "github.com/constructiq/permitsearch/internal/db/redis"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	"github.com/constructiq/permitsearch/internal/ingest"
	logpkg "github.com/constructiq/permitsearch/internal/logger"
	"github.com/constructiq/permitsearch/internal/metrics"
	corpusrepo "github.com/constructiq/permitsearch/internal/repository/corpus"
	openaiEmb "github.com/constructiq/permitsearch/internal/transport/openai"
	"github.com/constructiq/permitsearch/internal/version"
)

func main() {
	maxRows := flag.Int("max-rows", 0, "stop after this many rows (0 = full dataset)")
	sourceURL := flag.String("source", "", "override the dataset endpoint from config")
	flag.Parse()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if *sourceURL != "" {
		cfg.Ingest.SourceURL = *sourceURL
	}
	if cfg.Ingest.SourceURL == "" {
		panic("ingest.source_url is required")
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting permit loader",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("source", cfg.Ingest.SourceURL),
		zap.Int("workers", cfg.Ingest.Workers),
		zap.Int("max_rows", *maxRows),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}

	metrics.RegisterEmbeddingMetrics()

	registry := permit.DefaultRegistry()
	recordPrefix := cfg.Storage.KeyPrefix + "rec:"

	if err := ingest.EnsureIndex(ctx, store, registry, ingest.IndexOptions{
		Name:        cfg.Storage.IndexName,
		Prefix:      recordPrefix,
		Dimensions:  cfg.Embedding.Dimensions,
		M:           cfg.Storage.HNSWM,
		EFConstruct: cfg.Storage.HNSWEF,
	}); err != nil {
		logger.Fatal("Failed to ensure index", zap.Error(err))
	}
	logger.Info("Index ready", zap.String("index", cfg.Storage.IndexName))

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	source := ingest.NewSource(ingest.SourceConfig{
		BaseURL:    cfg.Ingest.SourceURL,
		PageSize:   cfg.Ingest.PageSize,
		RatePerSec: cfg.Ingest.RatePerSec,
		AppToken:   os.Getenv("SODA_APP_TOKEN"),
	})
	writer := corpusrepo.New(store, recordPrefix, registry)
	normalizer := permit.NewNormalizer(permit.NewSchemaRegistry())

	pipeline := ingest.NewPipeline(source, writer, embedder, normalizer, logger, ingest.PipelineConfig{
		Workers:   cfg.Ingest.Workers,
		BatchSize: cfg.Ingest.BatchSize,
		MaxRows:   *maxRows,
	})

	stats, err := pipeline.Run(ctx)
	logger.Info("Load finished",
		zap.Int64("fetched", stats.Fetched),
		zap.Int64("stored", stats.Stored),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("failed", stats.Failed),
		zap.Duration("duration", stats.Duration),
	)
	if err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}
}
