package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain/permit"
)

// Hash fields written alongside the flat registry projections.
const (
	contentField = "__content"
	vectorField  = "__vector"
)

// IndexOptions configures the vector index layout.
type IndexOptions struct {
	Name        string
	Prefix      string
	Dimensions  int
	M           int
	EFConstruct int
}

// BuildIndexDefinition derives the FT index schema from the field registry:
// string and boolean fields become tags, numeric and date fields become
// numerics, plus the content text field and the HNSW vector field.
func BuildIndexDefinition(reg permit.FieldRegistry, opts IndexOptions) (*db.IndexDefinition, error) {
	b := db.NewIndex(opts.Name).Prefix(opts.Prefix)

	for _, spec := range reg.Fields() {
		switch spec.Kind {
		case permit.String, permit.Bool:
			b.Tag(spec.Name)
		case permit.Number, permit.Date:
			b.Numeric(spec.Name)
		}
	}

	b.Text(contentField)
	b.VectorHNSW(vectorField, opts.Dimensions, db.DistanceCosine, opts.M, opts.EFConstruct)

	def, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build index definition: %w", err)
	}
	return def, nil
}

// EnsureIndex creates the vector index if it does not exist yet. An already
// existing index is not an error; its schema is assumed current.
func EnsureIndex(ctx context.Context, mgr db.IndexManager, reg permit.FieldRegistry, opts IndexOptions) error {
	def, err := BuildIndexDefinition(reg, opts)
	if err != nil {
		return err
	}

	if err := mgr.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", opts.Name, err)
	}
	return nil
}
