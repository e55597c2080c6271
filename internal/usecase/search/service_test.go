package search

import (
	"context"
	"errors"
	"testing"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
	"github.com/constructiq/permitsearch/internal/domain/querylog"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
	"github.com/constructiq/permitsearch/internal/domain/search/request"
	"github.com/constructiq/permitsearch/internal/domain/search/result"
)

// --- Mocks ---

type mockIndex struct {
	hits     []result.Hit
	err      error
	called   bool
	lastPred filter.Predicate
	lastK    int
}

func (m *mockIndex) Query(_ context.Context, _ []float32, pred filter.Predicate, k int) ([]result.Hit, error) {
	m.called = true
	m.lastPred = pred
	m.lastK = k
	return m.hits, m.err
}

type mockCorpus struct {
	records map[string]*permit.Record
}

func (m *mockCorpus) GetMulti(_ context.Context, ids []string) (map[string]*permit.Record, []string, error) {
	found := make(map[string]*permit.Record)
	var missing []string
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			found[id] = rec
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 3}, nil
}

type mockRecorder struct {
	entries []*querylog.Entry
}

func (m *mockRecorder) Record(e *querylog.Entry) {
	m.entries = append(m.entries, e)
}

func currentRecord(id string) *permit.Record {
	return &permit.Record{
		RecordID:      id,
		SchemaVersion: permit.NewSchemaRegistry().CurrentVersion(),
	}
}

func makeRequest(t *testing.T, query string, filters map[string]any, topK int) *request.Request {
	t.Helper()
	r, err := request.New(query, filters, topK, 0, 0)
	if err != nil {
		t.Fatalf("request.New: %v", err)
	}
	return &r
}

func newService(idx *mockIndex, corpus *mockCorpus, embed *mockEmbedder, rec *mockRecorder) *Service {
	return New(idx, corpus, embed, rec,
		permit.DefaultRegistry(), permit.NewSchemaRegistry(), 2)
}

// --- Tests ---

func TestSearch_ReturnsHydratedResults(t *testing.T) {
	idx := &mockIndex{hits: []result.Hit{{ID: "A_1", Score: 0.9}, {ID: "B_2", Score: 0.8}}}
	corpus := &mockCorpus{records: map[string]*permit.Record{
		"A_1": currentRecord("A_1"),
		"B_2": currentRecord("B_2"),
	}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	rec := &mockRecorder{}
	svc := newService(idx, corpus, embed, rec)

	resp, err := svc.Search(context.Background(), makeRequest(t, "commercial remodel", nil, 5), ClientMeta{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Entries))
	}
	if resp.Entries[0].ID() != "A_1" || resp.Entries[0].Record() == nil {
		t.Errorf("entries[0] = %+v", resp.Entries[0])
	}
	if resp.Dropped != 0 {
		t.Errorf("dropped = %d", resp.Dropped)
	}
	if idx.lastK != 5 {
		t.Errorf("k = %d, want 5", idx.lastK)
	}
	if len(rec.entries) != 1 {
		t.Fatalf("recorded = %d entries", len(rec.entries))
	}
	logged := rec.entries[0]
	if logged.Query != "commercial remodel" || logged.ClientIP != "10.0.0.1" {
		t.Errorf("logged = %+v", logged)
	}
	if len(logged.Results) != 2 || logged.Results[0].RecordID != "A_1" {
		t.Errorf("logged results = %+v", logged.Results)
	}
}

func TestSearch_UnknownFilterFieldFailsBeforeAnyCall(t *testing.T) {
	idx := &mockIndex{}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	rec := &mockRecorder{}
	svc := newService(idx, &mockCorpus{}, embed, rec)

	_, err := svc.Search(context.Background(), makeRequest(t, "q", map[string]any{"foo": "bar"}, 5), ClientMeta{})
	var uf *filter.UnknownFieldError
	if !errors.As(err, &uf) || uf.Field != "foo" {
		t.Fatalf("expected UnknownFieldError for foo, got %v", err)
	}
	if embed.called {
		t.Error("embedder should not be called")
	}
	if idx.called {
		t.Error("index should not be called")
	}
	if len(rec.entries) != 0 {
		t.Error("no log entry should be written")
	}
}

func TestSearch_EmbeddingFailureIsDependencyError(t *testing.T) {
	idx := &mockIndex{}
	embed := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	rec := &mockRecorder{}
	svc := newService(idx, &mockCorpus{}, embed, rec)

	_, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 5), ClientMeta{})
	if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if idx.called {
		t.Error("index should not be called after embedding failure")
	}
	if len(rec.entries) != 0 {
		t.Error("no log entry should be written for a failed search")
	}
}

func TestSearch_DimensionMismatchRejected(t *testing.T) {
	idx := &mockIndex{}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}} // service configured for 2
	svc := newService(idx, &mockCorpus{}, embed, &mockRecorder{})

	_, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 5), ClientMeta{})
	if !errors.Is(err, domain.ErrEmbeddingDimMismatch) {
		t.Fatalf("expected ErrEmbeddingDimMismatch, got %v", err)
	}
	if idx.called {
		t.Error("index should not see a malformed vector")
	}
}

func TestSearch_IndexFailureIsDependencyError(t *testing.T) {
	idx := &mockIndex{err: domain.ErrIndexUnavailable}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	rec := &mockRecorder{}
	svc := newService(idx, &mockCorpus{}, embed, rec)

	_, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 5), ClientMeta{})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if len(rec.entries) != 0 {
		t.Error("no log entry should be written for a failed search")
	}
}

func TestSearch_DropsStaleHits(t *testing.T) {
	idx := &mockIndex{hits: []result.Hit{
		{ID: "A_1", Score: 0.9},
		{ID: "B_2", Score: 0.85},
		{ID: "C_3", Score: 0.8},
	}}
	corpus := &mockCorpus{records: map[string]*permit.Record{
		"A_1": currentRecord("A_1"),
		"C_3": currentRecord("C_3"),
	}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newService(idx, corpus, embed, &mockRecorder{})

	resp, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 5), ClientMeta{})
	if err != nil {
		t.Fatalf("a stale hit must not fail the search: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(resp.Entries))
	}
	if resp.Entries[0].ID() != "A_1" || resp.Entries[1].ID() != "C_3" {
		t.Errorf("entries = [%s, %s]", resp.Entries[0].ID(), resp.Entries[1].ID())
	}
	if resp.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", resp.Dropped)
	}
}

func TestSearch_DropsUnsupportedSchemaVersions(t *testing.T) {
	future := currentRecord("B_2")
	future.SchemaVersion = permit.NewSchemaRegistry().CurrentVersion() + 1

	idx := &mockIndex{hits: []result.Hit{{ID: "A_1", Score: 0.9}, {ID: "B_2", Score: 0.8}}}
	corpus := &mockCorpus{records: map[string]*permit.Record{
		"A_1": currentRecord("A_1"),
		"B_2": future,
	}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newService(idx, corpus, embed, &mockRecorder{})

	resp, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 5), ClientMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].ID() != "A_1" {
		t.Errorf("entries = %+v", resp.Entries)
	}
	if resp.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", resp.Dropped)
	}
}

func TestSearch_SortsByScoreThenID(t *testing.T) {
	idx := &mockIndex{hits: []result.Hit{
		{ID: "C_3", Score: 0.8},
		{ID: "A_1", Score: 0.8},
		{ID: "B_2", Score: 0.9},
	}}
	corpus := &mockCorpus{records: map[string]*permit.Record{
		"A_1": currentRecord("A_1"),
		"B_2": currentRecord("B_2"),
		"C_3": currentRecord("C_3"),
	}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newService(idx, corpus, embed, &mockRecorder{})

	resp, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 5), ClientMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []string{resp.Entries[0].ID(), resp.Entries[1].ID(), resp.Entries[2].ID()}
	want := []string{"B_2", "A_1", "C_3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSearch_TruncatesToTopK(t *testing.T) {
	idx := &mockIndex{hits: []result.Hit{
		{ID: "A_1", Score: 0.9},
		{ID: "B_2", Score: 0.8},
		{ID: "C_3", Score: 0.7},
	}}
	corpus := &mockCorpus{records: map[string]*permit.Record{
		"A_1": currentRecord("A_1"),
		"B_2": currentRecord("B_2"),
		"C_3": currentRecord("C_3"),
	}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newService(idx, corpus, embed, &mockRecorder{})

	resp, err := svc.Search(context.Background(), makeRequest(t, "q", nil, 2), ClientMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(resp.Entries))
	}
}

func TestSearch_ConjunctiveFilterScenario(t *testing.T) {
	idx := &mockIndex{hits: []result.Hit{{ID: "A_1", Score: 0.9}}}
	corpus := &mockCorpus{records: map[string]*permit.Record{"A_1": currentRecord("A_1")}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newService(idx, corpus, embed, &mockRecorder{})

	req := makeRequest(t, "commercial remodel downtown", map[string]any{
		"permit_class_mapped":  "Commercial",
		"calendar_year_issued": float64(2011),
	}, 5)
	resp, err := svc.Search(context.Background(), req, ClientMeta{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(idx.lastPred.Must()) != 2 {
		t.Errorf("predicate must conditions = %d, want 2", len(idx.lastPred.Must()))
	}
	if idx.lastK != 5 {
		t.Errorf("k = %d, want 5", idx.lastK)
	}
	if len(resp.Entries) > 5 {
		t.Errorf("entries = %d, want <= 5", len(resp.Entries))
	}
}

func TestSearch_AbandonedRequestWritesNoLog(t *testing.T) {
	idx := &mockIndex{hits: []result.Hit{{ID: "A_1", Score: 0.9}}}
	corpus := &mockCorpus{records: map[string]*permit.Record{"A_1": currentRecord("A_1")}}
	embed := &mockEmbedder{vec: []float32{0.1, 0.2}}
	rec := &mockRecorder{}
	svc := newService(idx, corpus, embed, rec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = svc.Search(ctx, makeRequest(t, "q", nil, 5), ClientMeta{})
	if len(rec.entries) != 0 {
		t.Error("abandoned request should not write a log entry")
	}
}
