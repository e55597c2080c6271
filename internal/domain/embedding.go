package domain

import "context"

// EmbeddingResult holds a computed embedding and its token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// HealthChecker is implemented by collaborators that can probe their backend.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
