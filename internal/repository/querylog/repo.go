// Package querylog persists the search audit log as a capped Redis list,
// one JSON entry per search, newest first.
package querylog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/constructiq/permitsearch/internal/domain/querylog"
)

// store is the consumer interface for the log list (ISP).
type store interface {
	LPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)
}

// Repo implements the log store consumed by usecase/querylog.
type Repo struct {
	store     store
	key       string
	retention int64
}

// New creates a query log repository. retention caps how many entries the
// list keeps; older entries are trimmed away on append.
func New(s store, key string, retention int64) *Repo {
	if retention <= 0 {
		retention = 10000
	}
	return &Repo{store: s, key: key, retention: retention}
}

// Append writes one entry and trims the list to the retention cap. LPUSH is
// atomic, so concurrent appends never interleave inside an entry.
func (r *Repo) Append(ctx context.Context, e *querylog.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	if err := r.store.LPush(ctx, r.key, string(data)); err != nil {
		return fmt.Errorf("append log entry: %w", err)
	}
	if err := r.store.LTrim(ctx, r.key, 0, r.retention-1); err != nil {
		return fmt.Errorf("trim log: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first. Entries that fail to decode
// are skipped: one corrupt line must not hide the rest of the log.
func (r *Repo) Recent(ctx context.Context, n int) ([]querylog.Entry, error) {
	if n <= 0 {
		return nil, nil
	}
	lines, err := r.store.LRange(ctx, r.key, 0, int64(n)-1)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	entries := make([]querylog.Entry, 0, len(lines))
	for _, line := range lines {
		var e querylog.Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Size returns the current number of stored entries.
func (r *Repo) Size(ctx context.Context) (int64, error) {
	n, err := r.store.LLen(ctx, r.key)
	if err != nil {
		return 0, fmt.Errorf("log size: %w", err)
	}
	return n, nil
}
