// Package filter compiles client-supplied metadata filters into backend
// predicates over the filterable field registry.
package filter

import "fmt"

// MaxConditions is the maximum number of conditions per predicate group.
const MaxConditions = 32

// Predicate is a compiled boolean filter: conjunctive must conditions plus
// negated must-not conditions. An empty predicate matches every record.
type Predicate struct {
	must    []Condition
	mustNot []Condition
}

// NewPredicate validates and creates a Predicate.
func NewPredicate(must, mustNot []Condition) (Predicate, error) {
	if len(must) > MaxConditions {
		return Predicate{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	if len(mustNot) > MaxConditions {
		return Predicate{}, fmt.Errorf("too many negated conditions (max %d)", MaxConditions)
	}
	return Predicate{must: must, mustNot: mustNot}, nil
}

// Must returns the conjunctive conditions.
func (p Predicate) Must() []Condition { return p.must }

// MustNot returns the negated conditions.
func (p Predicate) MustNot() []Condition { return p.mustNot }

// IsEmpty reports whether the predicate has no conditions.
func (p Predicate) IsEmpty() bool { return len(p.must) == 0 && len(p.mustNot) == 0 }

// Condition is a single clause over one field: an exact tag match, a tag-set
// membership, a numeric-set membership, or a numeric range.
type Condition struct {
	field  string
	match  string
	set    []string
	numSet []float64
	rng    *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(field, match string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for field %q", field)
	}
	return Condition{field: field, match: match}, nil
}

// NewSet creates a tag-set membership condition.
func NewSet(field string, values []string) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("set values are required for field %q", field)
	}
	return Condition{field: field, set: values}, nil
}

// NewNumericSet creates a numeric-set membership condition.
func NewNumericSet(field string, values []float64) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	if len(values) == 0 {
		return Condition{}, fmt.Errorf("set values are required for field %q", field)
	}
	return Condition{field: field, numSet: values}, nil
}

// NewRange creates a numeric range condition.
func NewRange(field string, r Range) (Condition, error) {
	if field == "" {
		return Condition{}, fmt.Errorf("filter field is required")
	}
	return Condition{field: field, rng: &r}, nil
}

// Field returns the field name.
func (c Condition) Field() string { return c.field }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Set returns the tag-set values.
func (c Condition) Set() []string { return c.set }

// NumericSet returns the numeric-set values.
func (c Condition) NumericSet() []float64 { return c.numSet }

// Range returns the numeric range.
func (c Condition) Range() *Range { return c.rng }

// IsMatch reports whether this is an exact match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsSet reports whether this is a tag-set condition.
func (c Condition) IsSet() bool { return len(c.set) > 0 }

// IsNumericSet reports whether this is a numeric-set condition.
func (c Condition) IsNumericSet() bool { return len(c.numSet) > 0 }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rng != nil }

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeBounds validates and creates a Range. At least one boundary is
// required; gt/gte and lt/lte are mutually exclusive.
func NewRangeBounds(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }
