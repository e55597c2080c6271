// Package db defines the storage contracts the repositories consume and the
// index schema model shared with the Redis implementation.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	ListStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ListStore provides capped-list operations for append-only logs.
type ListStore interface {
	LPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides vector similarity search over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
