package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
)

type mockStore struct {
	result      *db.SearchResult
	err         error
	lastQ       *db.KNNQuery
	calls       int
	hadDeadline bool
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	m.calls++
	m.lastQ = q
	_, m.hadDeadline = ctx.Deadline()
	return m.result, m.err
}

// stallingStore never answers, it only waits for the caller's context.
type stallingStore struct{}

func (s *stallingStore) SearchKNN(ctx context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestQuery_TrimsKeyPrefix(t *testing.T) {
	store := &mockStore{result: &db.SearchResult{
		Total: 2,
		Entries: []db.SearchEntry{
			{Key: "permits:rec:A_1", Score: 0.91},
			{Key: "permits:rec:B_2", Score: 0.87},
		},
	}}
	repo := New(store, "permits:idx", "permits:rec:", 0)

	hits, err := repo.Query(context.Background(), []float32{0.1}, filter.Predicate{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].ID != "A_1" || hits[0].Score != 0.91 {
		t.Errorf("hits[0] = %+v", hits[0])
	}
	if store.lastQ.IndexName != "permits:idx" || store.lastQ.K != 5 {
		t.Errorf("query = %+v", store.lastQ)
	}
	if !store.hadDeadline {
		t.Error("expected index call to carry a deadline")
	}
}

func TestQuery_StalledIndexTimesOut(t *testing.T) {
	repo := New(&stallingStore{}, "permits:idx", "permits:rec:", 50*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := repo.Query(context.Background(), []float32{0.1}, filter.Predicate{}, 5)
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, domain.ErrIndexUnavailable) {
			t.Fatalf("expected ErrIndexUnavailable, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("query did not return after the configured timeout")
	}
}

func TestQuery_IndexErrorMapsToDependencyFailure(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	repo := New(store, "permits:idx", "permits:rec:", 0)

	_, err := repo.Query(context.Background(), []float32{0.1}, filter.Predicate{}, 5)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestQuery_NoHits(t *testing.T) {
	store := &mockStore{result: &db.SearchResult{}}
	repo := New(store, "permits:idx", "permits:rec:", 0)

	hits, err := repo.Query(context.Background(), []float32{0.1}, filter.Predicate{}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != nil {
		t.Errorf("hits = %v, want nil", hits)
	}
}
