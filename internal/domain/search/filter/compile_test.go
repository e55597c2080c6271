package filter

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
)

var testRegistry = permit.DefaultRegistry()

func TestCompile_Empty(t *testing.T) {
	p, err := Compile(nil, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsEmpty() {
		t.Error("empty filter should compile to the match-all predicate")
	}
}

func TestCompile_LiteralEquality(t *testing.T) {
	p, err := Compile(map[string]any{
		"permit_class_mapped":  "Commercial",
		"calendar_year_issued": float64(2011),
		"condominium":          true,
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Must()) != 3 || len(p.MustNot()) != 0 {
		t.Fatalf("must = %d, mustNot = %d", len(p.Must()), len(p.MustNot()))
	}

	// Sorted by field name: calendar_year_issued, condominium, permit_class_mapped.
	year := p.Must()[0]
	if !year.IsRange() || *year.Range().GTE() != 2011 || *year.Range().LTE() != 2011 {
		t.Errorf("numeric equality should compile to a degenerate range, got %+v", year)
	}
	condo := p.Must()[1]
	if !condo.IsMatch() || condo.Match() != "true" {
		t.Errorf("boolean equality should compile to a tag match, got %+v", condo)
	}
	class := p.Must()[2]
	if !class.IsMatch() || class.Match() != "Commercial" {
		t.Errorf("string equality should compile to a tag match, got %+v", class)
	}
}

func TestCompile_IsDeterministic(t *testing.T) {
	raw := map[string]any{
		"status":              "Final",
		"total_job_valuation": map[string]any{"gte": float64(10000), "lt": float64(500000)},
		"work_class":          map[string]any{"in": []any{"Remodel", "Addition"}},
	}
	a, err := Compile(raw, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Compile(raw, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("compiling the same filter twice should yield identical predicates")
	}
}

func TestCompile_UnknownField(t *testing.T) {
	_, err := Compile(map[string]any{"foo": "bar"}, testRegistry)
	var uf *UnknownFieldError
	if !errors.As(err, &uf) {
		t.Fatalf("expected UnknownFieldError, got %v", err)
	}
	if uf.Field != "foo" {
		t.Errorf("field = %q, want %q", uf.Field, "foo")
	}
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Error("should unwrap to ErrInvalidFilter")
	}
}

func TestCompile_RangeOperators(t *testing.T) {
	p, err := Compile(map[string]any{
		"housing_units": map[string]any{"gt": float64(0), "lte": float64(12)},
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Must()) != 1 {
		t.Fatalf("must = %d, want 1", len(p.Must()))
	}
	r := p.Must()[0].Range()
	if r == nil || *r.GT() != 0 || *r.LTE() != 12 || r.GTE() != nil || r.LT() != nil {
		t.Errorf("range = %+v", r)
	}
}

func TestCompile_DateRange(t *testing.T) {
	p, err := Compile(map[string]any{
		"issue_date": map[string]any{"gte": "2011-01-01", "lt": "2012-01-01"},
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := p.Must()[0].Range()
	lo := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	hi := time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	if *r.GTE() != float64(lo) || *r.LT() != float64(hi) {
		t.Errorf("date range = [%f, %f)", *r.GTE(), *r.LT())
	}
}

func TestCompile_NotEquals(t *testing.T) {
	p, err := Compile(map[string]any{
		"status": map[string]any{"ne": "Expired"},
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Must()) != 0 || len(p.MustNot()) != 1 {
		t.Fatalf("must = %d, mustNot = %d", len(p.Must()), len(p.MustNot()))
	}
	if p.MustNot()[0].Match() != "Expired" {
		t.Errorf("mustNot = %+v", p.MustNot()[0])
	}
}

func TestCompile_NotEqualsOnBool(t *testing.T) {
	p, err := Compile(map[string]any{
		"condominium": map[string]any{"ne": true},
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Must()) != 0 || len(p.MustNot()) != 1 {
		t.Fatalf("must = %d, mustNot = %d", len(p.Must()), len(p.MustNot()))
	}
	if p.MustNot()[0].Match() != "true" {
		t.Errorf("mustNot = %+v", p.MustNot()[0])
	}
}

func TestCompile_Membership(t *testing.T) {
	p, err := Compile(map[string]any{
		"work_class":       map[string]any{"in": []any{"Remodel", "Addition"}},
		"council_district": map[string]any{"in": []any{float64(1), float64(9)}},
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	district := p.Must()[0]
	if !district.IsNumericSet() || !reflect.DeepEqual(district.NumericSet(), []float64{1, 9}) {
		t.Errorf("numeric set = %+v", district)
	}
	work := p.Must()[1]
	if !work.IsSet() || !reflect.DeepEqual(work.Set(), []string{"Remodel", "Addition"}) {
		t.Errorf("tag set = %+v", work)
	}
}

func TestCompile_EmptyMembershipRejected(t *testing.T) {
	_, err := Compile(map[string]any{
		"work_class": map[string]any{"in": []any{}},
	}, testRegistry)
	var io *InvalidOperatorError
	if !errors.As(err, &io) {
		t.Fatalf("expected InvalidOperatorError, got %v", err)
	}
	if io.Op != "in" {
		t.Errorf("op = %q", io.Op)
	}
	if !errors.Is(err, domain.ErrInvalidFilter) {
		t.Error("should unwrap to ErrInvalidFilter")
	}
}

func TestCompile_OperatorTypeMismatches(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"comparison on string", map[string]any{"status": map[string]any{"gt": "A"}}},
		{"comparison on bool", map[string]any{"condominium": map[string]any{"lt": true}}},
		{"membership on bool", map[string]any{"condominium": map[string]any{"in": []any{true}}}},
		{"membership on date", map[string]any{"issue_date": map[string]any{"in": []any{"2011-01-01"}}}},
		{"string literal on numeric field", map[string]any{"housing_units": "three"}},
		{"number literal on string field", map[string]any{"status": float64(4)}},
		{"unparseable date", map[string]any{"issue_date": map[string]any{"gte": "next spring"}}},
		{"unsupported operator", map[string]any{"status": map[string]any{"like": "Fin%"}}},
		{"null operand", map[string]any{"status": nil}},
		{"duplicate lower bound", map[string]any{"housing_units": map[string]any{"gt": float64(1), "gte": float64(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.raw, testRegistry)
			if !errors.Is(err, domain.ErrInvalidFilter) {
				t.Fatalf("expected ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestCompile_ConjunctiveAcrossFields(t *testing.T) {
	p, err := Compile(map[string]any{
		"permit_class_mapped":  "Commercial",
		"calendar_year_issued": float64(2011),
	}, testRegistry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Must()) != 2 {
		t.Fatalf("two fields should yield two conjunctive conditions, got %d", len(p.Must()))
	}
}
