package filter

import (
	"fmt"
	"sort"
	"time"

	"github.com/constructiq/permitsearch/internal/domain"
	"github.com/constructiq/permitsearch/internal/domain/permit"
)

// UnknownFieldError reports a filter field absent from the field registry.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown filter field %q", e.Field)
}

func (e *UnknownFieldError) Unwrap() error { return domain.ErrInvalidFilter }

// InvalidOperatorError reports an operator that is illegal for the field's
// declared type, or an operand of the wrong shape.
type InvalidOperatorError struct {
	Field  string
	Op     string
	Reason string
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("operator %q on field %q: %s", e.Op, e.Field, e.Reason)
}

func (e *InvalidOperatorError) Unwrap() error { return domain.ErrInvalidFilter }

// ValueKind tags the variant held by a Value.
type ValueKind int

// Value variants.
const (
	StringValue ValueKind = iota
	NumberValue
	BoolValue
	DateTimeValue
	SetValue
)

// Value is a typed filter operand. Raw JSON operands are coerced into a
// Value against the target field's declared kind before any predicate is
// built, so type mismatches surface at compile time, not at query time.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
	t    time.Time
	set  []Value
}

// Kind returns the variant tag.
func (v Value) Kind() ValueKind { return v.kind }

// Str returns the string variant.
func (v Value) Str() string { return v.str }

// Num returns the number variant.
func (v Value) Num() float64 { return v.num }

// Bool returns the boolean variant.
func (v Value) Bool() bool { return v.b }

// Time returns the datetime variant.
func (v Value) Time() time.Time { return v.t }

// Set returns the set variant's elements.
func (v Value) Set() []Value { return v.set }

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// coerceValue converts a raw JSON operand into a typed Value matching the
// field's declared kind.
func coerceValue(name, op string, kind permit.Kind, raw any) (Value, error) {
	mismatch := func(got string) error {
		return &InvalidOperatorError{Field: name, Op: op,
			Reason: fmt.Sprintf("%s field requires a %s operand, got %s", kind, kind, got)}
	}
	switch t := raw.(type) {
	case string:
		if kind == permit.Date {
			for _, layout := range dateLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return Value{kind: DateTimeValue, t: parsed.UTC()}, nil
				}
			}
			return Value{}, &InvalidOperatorError{Field: name, Op: op,
				Reason: fmt.Sprintf("cannot parse %q as a date", t)}
		}
		if kind != permit.String {
			return Value{}, mismatch("string")
		}
		if t == "" {
			return Value{}, &InvalidOperatorError{Field: name, Op: op, Reason: "operand must not be empty"}
		}
		return Value{kind: StringValue, str: t}, nil
	case float64:
		if kind != permit.Number {
			return Value{}, mismatch("number")
		}
		return Value{kind: NumberValue, num: t}, nil
	case int:
		return coerceValue(name, op, kind, float64(t))
	case bool:
		if kind != permit.Bool {
			return Value{}, mismatch("boolean")
		}
		return Value{kind: BoolValue, b: t}, nil
	case []any:
		elems := make([]Value, 0, len(t))
		for _, e := range t {
			ev, err := coerceValue(name, op, kind, e)
			if err != nil {
				return Value{}, err
			}
			elems = append(elems, ev)
		}
		return Value{kind: SetValue, set: elems}, nil
	case nil:
		return Value{}, &InvalidOperatorError{Field: name, Op: op, Reason: "operand must not be null"}
	default:
		return Value{}, &InvalidOperatorError{Field: name, Op: op,
			Reason: fmt.Sprintf("unsupported operand type %T", raw)}
	}
}

// Compile translates a raw filter map, field name to literal or operator
// expression, into a Predicate. It is pure: no shared state, safe for
// concurrent use. Fields combine conjunctively; an empty map compiles to the
// match-all predicate. Fields are processed in sorted order so equal inputs
// always produce identical predicates.
func Compile(raw map[string]any, reg permit.FieldRegistry) (Predicate, error) {
	if len(raw) == 0 {
		return Predicate{}, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var must, mustNot []Condition
	for _, name := range names {
		kind, ok := reg.Kind(name)
		if !ok {
			return Predicate{}, &UnknownFieldError{Field: name}
		}
		if expr, isExpr := raw[name].(map[string]any); isExpr {
			m, mn, err := compileExpr(name, kind, expr)
			if err != nil {
				return Predicate{}, err
			}
			must = append(must, m...)
			mustNot = append(mustNot, mn...)
			continue
		}
		cond, err := equalityCondition(name, "eq", kind, raw[name])
		if err != nil {
			return Predicate{}, err
		}
		must = append(must, cond)
	}
	return NewPredicate(must, mustNot)
}

// compileExpr translates one field's operator expression. Range operators on
// the same field merge into a single conjunctive Range; eq/ne/in become
// standalone conditions.
func compileExpr(name string, kind permit.Kind, expr map[string]any) (must, mustNot []Condition, err error) {
	if len(expr) == 0 {
		return nil, nil, &InvalidOperatorError{Field: name, Op: "", Reason: "empty operator expression"}
	}

	ops := make([]string, 0, len(expr))
	for op := range expr {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	var gt, gte, lt, lte *float64
	setBound := func(op string, dst **float64, v float64) error {
		if *dst != nil {
			return &InvalidOperatorError{Field: name, Op: op, Reason: "duplicate range boundary"}
		}
		*dst = &v
		return nil
	}

	for _, op := range ops {
		switch op {
		case "eq":
			cond, err := equalityCondition(name, op, kind, expr[op])
			if err != nil {
				return nil, nil, err
			}
			must = append(must, cond)
		case "ne":
			cond, err := equalityCondition(name, op, kind, expr[op])
			if err != nil {
				return nil, nil, err
			}
			mustNot = append(mustNot, cond)
		case "gt", "gte", "lt", "lte":
			if kind != permit.Number && kind != permit.Date {
				return nil, nil, &InvalidOperatorError{Field: name, Op: op,
					Reason: fmt.Sprintf("comparison is not allowed on %s fields", kind)}
			}
			v, err := coerceValue(name, op, kind, expr[op])
			if err != nil {
				return nil, nil, err
			}
			bound := numericOperand(v)
			var dst **float64
			switch op {
			case "gt":
				dst = &gt
			case "gte":
				dst = &gte
			case "lt":
				dst = &lt
			case "lte":
				dst = &lte
			}
			if err := setBound(op, dst, bound); err != nil {
				return nil, nil, err
			}
		case "in":
			cond, err := membershipCondition(name, kind, expr[op])
			if err != nil {
				return nil, nil, err
			}
			must = append(must, cond)
		default:
			return nil, nil, &InvalidOperatorError{Field: name, Op: op, Reason: "unsupported operator"}
		}
	}

	if gt != nil || gte != nil || lt != nil || lte != nil {
		r, err := NewRangeBounds(gt, gte, lt, lte)
		if err != nil {
			return nil, nil, &InvalidOperatorError{Field: name, Op: "range", Reason: err.Error()}
		}
		cond, err := NewRange(name, r)
		if err != nil {
			return nil, nil, err
		}
		must = append(must, cond)
	}
	return must, mustNot, nil
}

// equalityCondition builds the condition for eq/ne. String and boolean
// fields match as tags; numeric and date fields match as a degenerate range.
func equalityCondition(name, op string, kind permit.Kind, raw any) (Condition, error) {
	v, err := coerceValue(name, op, kind, raw)
	if err != nil {
		return Condition{}, err
	}
	switch v.Kind() {
	case StringValue:
		return NewMatch(name, v.Str())
	case BoolValue:
		if v.Bool() {
			return NewMatch(name, "true")
		}
		return NewMatch(name, "false")
	case NumberValue, DateTimeValue:
		n := numericOperand(v)
		r, err := NewRangeBounds(nil, &n, nil, &n)
		if err != nil {
			return Condition{}, err
		}
		return NewRange(name, r)
	default:
		return Condition{}, &InvalidOperatorError{Field: name, Op: op,
			Reason: "operand must be a single literal"}
	}
}

// membershipCondition builds the condition for in. Legal on string fields
// (tag-set) and numeric fields (numeric-set) only.
func membershipCondition(name string, kind permit.Kind, raw any) (Condition, error) {
	if kind == permit.Bool || kind == permit.Date {
		return Condition{}, &InvalidOperatorError{Field: name, Op: "in",
			Reason: fmt.Sprintf("membership is not allowed on %s fields", kind)}
	}
	v, err := coerceValue(name, "in", kind, raw)
	if err != nil {
		return Condition{}, err
	}
	if v.Kind() != SetValue {
		return Condition{}, &InvalidOperatorError{Field: name, Op: "in",
			Reason: "operand must be a non-empty array"}
	}
	if len(v.Set()) == 0 {
		return Condition{}, &InvalidOperatorError{Field: name, Op: "in",
			Reason: "operand must be a non-empty array"}
	}
	for _, e := range v.Set() {
		if e.Kind() == SetValue {
			return Condition{}, &InvalidOperatorError{Field: name, Op: "in",
				Reason: "nested arrays are not allowed"}
		}
	}
	if kind == permit.String {
		values := make([]string, 0, len(v.Set()))
		for _, e := range v.Set() {
			values = append(values, e.Str())
		}
		return NewSet(name, values)
	}
	values := make([]float64, 0, len(v.Set()))
	for _, e := range v.Set() {
		values = append(values, e.Num())
	}
	return NewNumericSet(name, values)
}

// numericOperand maps a number or datetime Value onto the numeric index
// axis. Dates index as unix seconds.
func numericOperand(v Value) float64 {
	if v.Kind() == DateTimeValue {
		return float64(v.Time().Unix())
	}
	return v.Num()
}
