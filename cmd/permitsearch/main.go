package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/constructiq/permitsearch/internal/config"
	dbRedis "github.com/constructiq/permitsearch/internal/db/redis"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	logpkg "github.com/constructiq/permitsearch/internal/logger"
	"github.com/constructiq/permitsearch/internal/metrics"
	corpusrepo "github.com/constructiq/permitsearch/internal/repository/corpus"
	querylogrepo "github.com/constructiq/permitsearch/internal/repository/querylog"
	searchrepo "github.com/constructiq/permitsearch/internal/repository/search"
	"github.com/constructiq/permitsearch/internal/transport/httpapi"
	openaiEmb "github.com/constructiq/permitsearch/internal/transport/openai"
	healthuc "github.com/constructiq/permitsearch/internal/usecase/health"
	queryloguc "github.com/constructiq/permitsearch/internal/usecase/querylog"
	searchuc "github.com/constructiq/permitsearch/internal/usecase/search"
	"github.com/constructiq/permitsearch/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting permitsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
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

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register non-http metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	registry := permit.DefaultRegistry()
	schemas := permit.NewSchemaRegistry()

	recordPrefix := cfg.Storage.KeyPrefix + "rec:"
	corpusRepo := corpusrepo.New(store, recordPrefix, registry)
	searchRepo := searchrepo.New(store, cfg.Storage.IndexName, recordPrefix,
		time.Duration(cfg.Search.IndexTimeoutSec)*time.Second)
	logRepo := querylogrepo.New(store, cfg.Storage.KeyPrefix+"log", int64(cfg.QueryLog.Retention))

	recorder := queryloguc.New(logRepo, logger, cfg.QueryLog.BufferSize, cfg.QueryLog.MaxRecent)
	defer recorder.Close()

	searchSvc := searchuc.New(searchRepo, corpusRepo, embedder, recorder,
		registry, schemas, cfg.Embedding.Dimensions)
	healthSvc := healthuc.New(store, embedder, store, cfg.Storage.IndexName)

	server := httpapi.NewServer(searchSvc, recorder, healthSvc,
		cfg.Search.DefaultTopK, cfg.Search.MaxTopK, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpapi.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.WithContext(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
