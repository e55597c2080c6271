package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain/permit"
)

func testIndexOptions() IndexOptions {
	return IndexOptions{
		Name:        "permits:idx",
		Prefix:      "permits:rec:",
		Dimensions:  1536,
		M:           32,
		EFConstruct: 400,
	}
}

func TestBuildIndexDefinition(t *testing.T) {
	reg := permit.DefaultRegistry()
	def, err := BuildIndexDefinition(reg, testIndexOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if def.Name != "permits:idx" || len(def.Prefixes) != 1 || def.Prefixes[0] != "permits:rec:" {
		t.Errorf("def = %+v", def)
	}

	types := make(map[string]db.IndexFieldType)
	for _, f := range def.Fields {
		types[f.Name] = f.Type
	}

	// One index field per registry field plus content and vector.
	if len(def.Fields) != len(reg.Fields())+2 {
		t.Errorf("fields = %d, want %d", len(def.Fields), len(reg.Fields())+2)
	}
	if types["permit_class_mapped"] != db.IndexFieldTag {
		t.Errorf("permit_class_mapped type = %v", types["permit_class_mapped"])
	}
	if types["condominium"] != db.IndexFieldTag {
		t.Errorf("condominium type = %v", types["condominium"])
	}
	if types["total_job_valuation"] != db.IndexFieldNumeric {
		t.Errorf("total_job_valuation type = %v", types["total_job_valuation"])
	}
	if types["issue_date"] != db.IndexFieldNumeric {
		t.Errorf("issue_date type = %v", types["issue_date"])
	}
	if types[contentField] != db.IndexFieldText {
		t.Errorf("content type = %v", types[contentField])
	}
	if types[vectorField] != db.IndexFieldVector {
		t.Errorf("vector type = %v", types[vectorField])
	}
}

type mockIndexManager struct {
	created *db.IndexDefinition
	err     error
}

func (m *mockIndexManager) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	m.created = def
	return m.err
}

func (m *mockIndexManager) DropIndex(_ context.Context, _ string) error { return nil }

func (m *mockIndexManager) IndexExists(_ context.Context, _ string) (bool, error) {
	return m.created != nil, nil
}

func TestEnsureIndex_CreatesWhenAbsent(t *testing.T) {
	mgr := &mockIndexManager{}
	if err := EnsureIndex(context.Background(), mgr, permit.DefaultRegistry(), testIndexOptions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mgr.created == nil {
		t.Fatal("index was not created")
	}
}

func TestEnsureIndex_ExistingIsNotAnError(t *testing.T) {
	mgr := &mockIndexManager{err: db.ErrIndexExists}
	if err := EnsureIndex(context.Background(), mgr, permit.DefaultRegistry(), testIndexOptions()); err != nil {
		t.Fatalf("existing index must be tolerated: %v", err)
	}
}

func TestEnsureIndex_PropagatesFailures(t *testing.T) {
	mgr := &mockIndexManager{err: errors.New("store down")}
	if err := EnsureIndex(context.Background(), mgr, permit.DefaultRegistry(), testIndexOptions()); err == nil {
		t.Fatal("expected error")
	}
}
