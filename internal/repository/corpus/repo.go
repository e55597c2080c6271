// Package corpus persists canonical permit records as Redis hashes,
// flattened so the FT index can filter on them.
package corpus

import (
	"context"
	"fmt"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
)

// store is the consumer interface for record hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Repo implements the corpus store consumed by the search and ingest
// services.
type Repo struct {
	store    store
	prefix   string
	registry permit.FieldRegistry
}

// New creates a corpus repository. Records live under prefix, one hash per
// record.
func New(s store, prefix string, registry permit.FieldRegistry) *Repo {
	return &Repo{store: s, prefix: prefix, registry: registry}
}

// Prefix returns the record key prefix, also used as the FT index PREFIX.
func (r *Repo) Prefix() string { return r.prefix }

// Put stores one record with its embedding vector and content block.
func (r *Repo) Put(ctx context.Context, rec *permit.Record, vector []float32, content string) error {
	fields, err := flattenRecord(rec, r.registry, vector, content)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, r.key(rec.RecordID), fields); err != nil {
		return fmt.Errorf("put record %s: %w", rec.RecordID, err)
	}
	return nil
}

// Item pairs a record with its embedding for batch writes.
type Item struct {
	Record  *permit.Record
	Vector  []float32
	Content string
}

// PutMulti stores a batch of records in one pipelined round-trip.
func (r *Repo) PutMulti(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	hashItems := make([]db.HashSetItem, 0, len(items))
	for _, it := range items {
		fields, err := flattenRecord(it.Record, r.registry, it.Vector, it.Content)
		if err != nil {
			return err
		}
		hashItems = append(hashItems, db.HashSetItem{Key: r.key(it.Record.RecordID), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, hashItems); err != nil {
		return fmt.Errorf("put records: %w", err)
	}
	return nil
}

// Get returns one record by id.
func (r *Repo) Get(ctx context.Context, id string) (*permit.Record, error) {
	fields, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, &RecordNotFoundError{ID: id}
	}
	rec, err := parseRecord(fields)
	if err != nil {
		return nil, fmt.Errorf("parse record %s: %w", id, err)
	}
	return rec, nil
}

// GetMulti hydrates a batch of ids in one pipelined round-trip. Missing or
// unparseable records are returned by id, not as an error: the caller
// decides whether a miss is fatal.
func (r *Repo) GetMulti(ctx context.Context, ids []string) (map[string]*permit.Record, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	all, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("get records: %w", err)
	}

	found := make(map[string]*permit.Record, len(ids))
	var missing []string
	for i, fields := range all {
		if len(fields) == 0 {
			missing = append(missing, ids[i])
			continue
		}
		rec, err := parseRecord(fields)
		if err != nil {
			missing = append(missing, ids[i])
			continue
		}
		found[ids[i]] = rec
	}
	return found, missing, nil
}

// Exists reports whether a record is already stored.
func (r *Repo) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, r.key(id))
	if err != nil {
		return false, fmt.Errorf("exists record %s: %w", id, err)
	}
	return ok, nil
}

func (r *Repo) key(id string) string { return r.prefix + id }

// RecordNotFoundError reports a corpus lookup miss.
type RecordNotFoundError struct {
	ID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record %q not found", e.ID)
}

func (e *RecordNotFoundError) Unwrap() error { return domain.ErrRecordNotFound }
