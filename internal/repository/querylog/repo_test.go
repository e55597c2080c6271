package querylog

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/constructiq/permitsearch/internal/domain/querylog"
)

type mockStore struct {
	pushed  []string
	trimmed [][2]int64
	lines   []string
}

func (m *mockStore) LPush(_ context.Context, _ string, values ...string) error {
	m.pushed = append(m.pushed, values...)
	return nil
}

func (m *mockStore) LTrim(_ context.Context, _ string, start, stop int64) error {
	m.trimmed = append(m.trimmed, [2]int64{start, stop})
	return nil
}

func (m *mockStore) LRange(_ context.Context, _ string, start, stop int64) ([]string, error) {
	if stop >= int64(len(m.lines)) {
		stop = int64(len(m.lines)) - 1
	}
	if start > stop {
		return nil, nil
	}
	return m.lines[start : stop+1], nil
}

func (m *mockStore) LLen(_ context.Context, _ string) (int64, error) {
	return int64(len(m.lines)), nil
}

func TestAppend_PushesAndTrims(t *testing.T) {
	store := &mockStore{}
	repo := New(store, "permits:log", 100)

	e := &querylog.Entry{
		Timestamp: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		Query:     "commercial remodel",
		TopK:      5,
		Results:   []querylog.ResultRef{{RecordID: "A_1", Score: 0.9}},
		LatencyMS: 42,
	}
	if err := repo.Append(context.Background(), e); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.pushed) != 1 {
		t.Fatalf("pushed = %d entries", len(store.pushed))
	}
	var got querylog.Entry
	if err := json.Unmarshal([]byte(store.pushed[0]), &got); err != nil {
		t.Fatalf("pushed entry is not valid JSON: %v", err)
	}
	if got.Query != e.Query || got.LatencyMS != 42 {
		t.Errorf("got = %+v", got)
	}
	if len(store.trimmed) != 1 || store.trimmed[0] != [2]int64{0, 99} {
		t.Errorf("trimmed = %v", store.trimmed)
	}
}

func TestRecent_SkipsCorruptLines(t *testing.T) {
	good, _ := json.Marshal(querylog.Entry{Query: "roof repair"})
	store := &mockStore{lines: []string{string(good), "{not json", string(good)}}
	repo := New(store, "permits:log", 100)

	entries, err := repo.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Query != "roof repair" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
}

func TestRecent_BoundsRequest(t *testing.T) {
	store := &mockStore{}
	for i := 0; i < 5; i++ {
		line, _ := json.Marshal(querylog.Entry{Query: "q"})
		store.lines = append(store.lines, string(line))
	}
	repo := New(store, "permits:log", 100)

	entries, err := repo.Recent(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}

	if entries, _ := repo.Recent(context.Background(), 0); entries != nil {
		t.Errorf("Recent(0) = %v, want nil", entries)
	}
}
