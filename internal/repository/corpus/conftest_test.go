package corpus

import (
	"context"

	"github.com/constructiq/permitsearch/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	existsFn       func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}
