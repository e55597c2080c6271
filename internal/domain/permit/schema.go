package permit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/constructiq/permitsearch/internal/domain"
)

// UnsupportedSchemaVersionError reports a stored record whose schema version
// is outside the range the migration chain can handle.
type UnsupportedSchemaVersionError struct {
	RecordID string
	Version  int
	Current  int
}

func (e *UnsupportedSchemaVersionError) Error() string {
	return fmt.Sprintf("record %q has schema version %d, supported range is 1..%d",
		e.RecordID, e.Version, e.Current)
}

func (e *UnsupportedSchemaVersionError) Unwrap() error {
	return domain.ErrUnsupportedSchemaVersion
}

// MigrationStep upgrades a record in place from version From to From+1.
type MigrationStep struct {
	From  int
	Apply func(*Record)
}

// SchemaRegistry owns the ordered migration chain for stored records.
// Records persisted under an older schema version are upgraded on read, so
// the corpus never needs a stop-the-world rewrite after a schema change.
type SchemaRegistry struct {
	steps []MigrationStep
}

// NewSchemaRegistry builds a registry with the production migration chain.
func NewSchemaRegistry() SchemaRegistry {
	return SchemaRegistry{steps: []MigrationStep{
		{From: 1, Apply: migrateClassifyPermitClass},
		{From: 2, Apply: migrateDeriveCalendarYear},
	}}
}

// CurrentVersion is the version new records are written with.
func (s SchemaRegistry) CurrentVersion() int { return len(s.steps) + 1 }

// Migrate upgrades rec to the current version. Records already at the
// current version pass through untouched, so the call is idempotent.
func (s SchemaRegistry) Migrate(rec *Record) error {
	cur := s.CurrentVersion()
	if rec.SchemaVersion < 1 || rec.SchemaVersion > cur {
		return &UnsupportedSchemaVersionError{
			RecordID: rec.RecordID,
			Version:  rec.SchemaVersion,
			Current:  cur,
		}
	}
	for _, step := range s.steps {
		if rec.SchemaVersion != step.From {
			continue
		}
		step.Apply(rec)
		rec.SchemaVersion = step.From + 1
	}
	return nil
}

// MigrateAll upgrades every record it can and returns the survivors.
// Records on an unsupported version are skipped and reported by id rather
// than failing the whole batch.
func (s SchemaRegistry) MigrateAll(recs []*Record) (ok []*Record, skipped []string) {
	ok = recs[:0]
	for _, rec := range recs {
		if err := s.Migrate(rec); err != nil {
			var usv *UnsupportedSchemaVersionError
			if errors.As(err, &usv) {
				skipped = append(skipped, rec.RecordID)
				continue
			}
			skipped = append(skipped, rec.RecordID)
			continue
		}
		ok = append(ok, rec)
	}
	return ok, skipped
}

// v1 stored the raw upstream class descriptor in PermitClass. v2 splits it
// into a coarse class bucket, keeping the original text in
// PermitClassMapped when it carried a residential/commercial prefix.
func migrateClassifyPermitClass(rec *Record) {
	raw := rec.Permit.PermitClass
	switch {
	case strings.HasPrefix(raw, "Residential "):
		rec.Permit.PermitClassMapped = "Residential"
	case strings.HasPrefix(raw, "Commercial "):
		rec.Permit.PermitClassMapped = "Commercial"
	case raw != "":
		rec.Permit.PermitClassMapped = raw
	}
}

// v2 records predate the derived CalendarYearIssued column.
func migrateDeriveCalendarYear(rec *Record) {
	if rec.Dates.CalendarYearIssued != nil || rec.Dates.IssueDate == nil {
		return
	}
	year := rec.Dates.IssueDate.Year()
	rec.Dates.CalendarYearIssued = &year
}
