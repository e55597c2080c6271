// Package openai provides the query embedding gateway over the
// OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/metrics"
)

// Embedder converts text into fixed-dimensionality vectors via the
// embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	timeout    time.Duration
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		timeout:    timeout,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. Every call carries a deadline; an
// unbounded request to the provider is not possible.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), errorType(err)).Inc()
		return domain.EmbeddingResult{}, parseAPIError(err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingUnavailable)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(e.model)).Observe(duration.Seconds())

	totalTokens := resp.Usage.TotalTokens
	promptTokens := resp.Usage.PromptTokens
	if totalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "prompt").Add(float64(promptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(string(e.model), "total").Add(float64(totalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func errorType(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "api_error"
}

// parseAPIError extracts a human-readable error from the API response.
// All errors wrap domain.ErrEmbeddingUnavailable so the caller maps them to
// a dependency failure.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingUnavailable

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("embedding request timed out: %w", wrap)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
