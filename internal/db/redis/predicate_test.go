package redis

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/constructiq/permitsearch/internal/db"
	"github.com/constructiq/permitsearch/internal/domain/search/filter"
)

func floatPtr(f float64) *float64 { return &f }

func mustPredicate(t *testing.T, must, mustNot []filter.Condition) filter.Predicate {
	t.Helper()
	p, err := filter.NewPredicate(must, mustNot)
	if err != nil {
		t.Fatalf("NewPredicate: %v", err)
	}
	return p
}

func mustMatch(t *testing.T, field, value string) filter.Condition {
	t.Helper()
	c, err := filter.NewMatch(field, value)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return c
}

func TestRenderPredicate_Empty(t *testing.T) {
	if got := renderPredicate(filter.Predicate{}); got != "" {
		t.Errorf("renderPredicate(empty) = %q", got)
	}
}

func TestRenderPredicate_TagMatch(t *testing.T) {
	p := mustPredicate(t, []filter.Condition{mustMatch(t, "permit_class_mapped", "Commercial")}, nil)
	if got := renderPredicate(p); got != "@permit_class_mapped:{Commercial}" {
		t.Errorf("renderPredicate = %q", got)
	}
}

func TestRenderPredicate_EscapesTagValues(t *testing.T) {
	p := mustPredicate(t, []filter.Condition{mustMatch(t, "status", "On Hold - Review")}, nil)
	got := renderPredicate(p)
	if got != `@status:{On\ Hold\ \-\ Review}` {
		t.Errorf("renderPredicate = %q", got)
	}
}

func TestRenderPredicate_Range(t *testing.T) {
	r, err := filter.NewRangeBounds(floatPtr(0), nil, nil, floatPtr(12))
	if err != nil {
		t.Fatalf("NewRangeBounds: %v", err)
	}
	cond, err := filter.NewRange("housing_units", r)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	p := mustPredicate(t, []filter.Condition{cond}, nil)
	if got := renderPredicate(p); got != "@housing_units:[(0 12]" {
		t.Errorf("renderPredicate = %q", got)
	}
}

func TestRenderPredicate_TagSet(t *testing.T) {
	cond, err := filter.NewSet("work_class", []string{"Remodel", "New Addition"})
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	p := mustPredicate(t, []filter.Condition{cond}, nil)
	if got := renderPredicate(p); got != `@work_class:{Remodel|New\ Addition}` {
		t.Errorf("renderPredicate = %q", got)
	}
}

func TestRenderPredicate_NumericSet(t *testing.T) {
	cond, err := filter.NewNumericSet("council_district", []float64{1, 9})
	if err != nil {
		t.Fatalf("NewNumericSet: %v", err)
	}
	p := mustPredicate(t, []filter.Condition{cond}, nil)
	want := "(@council_district:[1 1] | @council_district:[9 9])"
	if got := renderPredicate(p); got != want {
		t.Errorf("renderPredicate = %q, want %q", got, want)
	}
}

func TestRenderPredicate_MustNot(t *testing.T) {
	p := mustPredicate(t,
		[]filter.Condition{mustMatch(t, "permit_class_mapped", "Commercial")},
		[]filter.Condition{mustMatch(t, "status", "Expired")},
	)
	got := renderPredicate(p)
	if got != "@permit_class_mapped:{Commercial} -@status:{Expired}" {
		t.Errorf("renderPredicate = %q", got)
	}
}

func TestVectorToBytes(t *testing.T) {
	v := []float32{1.5, -2.25}
	raw := []byte(vectorToBytes(v))
	if len(raw) != 8 {
		t.Fatalf("len = %d, want 8", len(raw))
	}
	for i, want := range v {
		got := math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		if got != want {
			t.Errorf("element %d = %f, want %f", i, got, want)
		}
	}
}

func TestBuildCreateArgs(t *testing.T) {
	def, err := db.NewIndex("permits_idx").
		Prefix("permits:rec:").
		Tag("status").
		Numeric("calendar_year_issued").
		VectorHNSW("__vector", 1536, db.DistanceCosine, 16, 200).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("buildCreateArgs: %v", err)
	}
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"permits_idx ON HASH PREFIX 1 permits:rec:",
		"status TAG",
		"calendar_year_issued NUMERIC",
		"__vector VECTOR HNSW 10 TYPE FLOAT32 DIM 1536 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args = %q, missing %q", joined, want)
		}
	}
}
