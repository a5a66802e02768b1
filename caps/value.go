package caps

// Value lattice for capability fields. Each concrete type knows how to
// intersect with the others through a static table of per-kind-pair
// functions; fixation rules are likewise registered per kind. Keeping the
// dispatch in tables (instead of a growing type switch) mirrors how new
// field types are meant to be added: one kind constant, one row of
// functions.

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a capability field value: a fixed scalar, a range, a fraction
// or a list of alternatives.
type Value interface {
	kind() valueKind
	// Fixed reports whether the value is a single concrete value.
	Fixed() bool
	String() string
}

type valueKind int

const (
	kindInt valueKind = iota
	kindIntRange
	kindDouble
	kindDoubleRange
	kindFraction
	kindString
	kindList
)

// Int is a fixed integer field value.
type Int int

func (Int) kind() valueKind  { return kindInt }
func (Int) Fixed() bool      { return true }
func (v Int) String() string { return fmt.Sprintf("(int)%d", int(v)) }

// IntRange is an inclusive integer range.
type IntRange struct {
	Lo, Hi int
}

func (IntRange) kind() valueKind  { return kindIntRange }
func (IntRange) Fixed() bool      { return false }
func (v IntRange) String() string { return fmt.Sprintf("(int)[%d,%d]", v.Lo, v.Hi) }

// Double is a fixed floating point field value.
type Double float64

func (Double) kind() valueKind  { return kindDouble }
func (Double) Fixed() bool      { return true }
func (v Double) String() string { return fmt.Sprintf("(double)%g", float64(v)) }

// DoubleRange is an inclusive floating point range.
type DoubleRange struct {
	Lo, Hi float64
}

func (DoubleRange) kind() valueKind  { return kindDoubleRange }
func (DoubleRange) Fixed() bool      { return false }
func (v DoubleRange) String() string { return fmt.Sprintf("(double)[%g,%g]", v.Lo, v.Hi) }

// Fraction is an exact rational field value (frame rates, pixel aspect).
type Fraction struct {
	Num, Den int
}

func (Fraction) kind() valueKind  { return kindFraction }
func (Fraction) Fixed() bool      { return true }
func (v Fraction) String() string { return fmt.Sprintf("(fraction)%d/%d", v.Num, v.Den) }

// reduce returns the fraction in lowest terms with a positive denominator.
func (v Fraction) reduce() Fraction {
	n, d := v.Num, v.Den
	if d < 0 {
		n, d = -n, -d
	}
	g := gcd(abs(n), d)
	if g > 1 {
		n /= g
		d /= g
	}
	return Fraction{Num: n, Den: d}
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Str is a fixed string field value (media type names, layouts).
type Str string

func (Str) kind() valueKind  { return kindString }
func (Str) Fixed() bool      { return true }
func (v Str) String() string { return fmt.Sprintf("(string)%s", string(v)) }

// List is an ordered set of alternative values. A list is never fixed,
// even with one entry; fixation reduces it to its first entry.
type List []Value

func (List) kind() valueKind { return kindList }
func (List) Fixed() bool     { return false }
func (v List) String() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// valueEqual compares two fixed values for identity. Fractions compare
// reduced so 30/1 equals 60/2.
func valueEqual(a, b Value) bool {
	if a.kind() != b.kind() {
		return false
	}
	switch av := a.(type) {
	case Int:
		return av == b.(Int)
	case Double:
		return av == b.(Double)
	case Str:
		return av == b.(Str)
	case Fraction:
		return av.reduce() == b.(Fraction).reduce()
	default:
		return false
	}
}

// intersectFunc computes the meet of two values; ok=false means empty.
type intersectFunc func(a, b Value) (Value, bool)

type kindPair struct{ a, b valueKind }

// intersectTable holds one entry per ordered kind pair that can meet.
// Lookups retry with swapped operands, so only one direction is listed.
var intersectTable = map[kindPair]intersectFunc{
	{kindInt, kindInt}: func(a, b Value) (Value, bool) {
		if a.(Int) == b.(Int) {
			return a, true
		}
		return nil, false
	},
	{kindInt, kindIntRange}: func(a, b Value) (Value, bool) {
		v, r := a.(Int), b.(IntRange)
		if int(v) >= r.Lo && int(v) <= r.Hi {
			return v, true
		}
		return nil, false
	},
	{kindIntRange, kindIntRange}: func(a, b Value) (Value, bool) {
		x, y := a.(IntRange), b.(IntRange)
		lo := max(x.Lo, y.Lo)
		hi := min(x.Hi, y.Hi)
		if lo > hi {
			return nil, false
		}
		if lo == hi {
			return Int(lo), true
		}
		return IntRange{Lo: lo, Hi: hi}, true
	},
	{kindDouble, kindDouble}: func(a, b Value) (Value, bool) {
		if a.(Double) == b.(Double) {
			return a, true
		}
		return nil, false
	},
	{kindDouble, kindDoubleRange}: func(a, b Value) (Value, bool) {
		v, r := a.(Double), b.(DoubleRange)
		if float64(v) >= r.Lo && float64(v) <= r.Hi {
			return v, true
		}
		return nil, false
	},
	{kindDoubleRange, kindDoubleRange}: func(a, b Value) (Value, bool) {
		x, y := a.(DoubleRange), b.(DoubleRange)
		lo := x.Lo
		if y.Lo > lo {
			lo = y.Lo
		}
		hi := x.Hi
		if y.Hi < hi {
			hi = y.Hi
		}
		if lo > hi {
			return nil, false
		}
		if lo == hi {
			return Double(lo), true
		}
		return DoubleRange{Lo: lo, Hi: hi}, true
	},
	{kindFraction, kindFraction}: func(a, b Value) (Value, bool) {
		if valueEqual(a, b) {
			return a, true
		}
		return nil, false
	},
	{kindString, kindString}: func(a, b Value) (Value, bool) {
		if a.(Str) == b.(Str) {
			return a, true
		}
		return nil, false
	},
}

// IntersectValues computes the intersection of two field values. Lists are
// lifted to the union of their per-entry intersections. The operation is
// commutative.
func IntersectValues(a, b Value) (Value, bool) {
	// List handling is generic over the other operand.
	if a.kind() == kindList {
		return intersectList(a.(List), b)
	}
	if b.kind() == kindList {
		return intersectList(b.(List), a)
	}
	if fn, ok := intersectTable[kindPair{a.kind(), b.kind()}]; ok {
		return fn(a, b)
	}
	if fn, ok := intersectTable[kindPair{b.kind(), a.kind()}]; ok {
		return fn(b, a)
	}
	return nil, false
}

func intersectList(l List, other Value) (Value, bool) {
	var out List
	for _, e := range l {
		if v, ok := IntersectValues(e, other); ok {
			out = append(out, v)
		}
	}
	switch len(out) {
	case 0:
		return nil, false
	case 1:
		return out[0], true
	default:
		return out, true
	}
}

// fixateTable holds the per-kind fixation rule for non-fixed values.
var fixateTable map[valueKind]func(Value) Value

func init() {
	fixateTable = map[valueKind]func(Value) Value{
		kindIntRange:    func(v Value) Value { return Int(v.(IntRange).Lo) },
		kindDoubleRange: func(v Value) Value { return Double(v.(DoubleRange).Lo) },
		kindList:        func(v Value) Value { return FixateValue(v.(List)[0]) },
	}
}

// FixateValue reduces a value to a single concrete value. Ranges collapse
// to their lowest bound, lists to their first (fixated) entry. The result
// is deterministic.
func FixateValue(v Value) Value {
	if v.Fixed() {
		if f, ok := v.(Fraction); ok {
			return f.reduce()
		}
		return v
	}
	return fixateTable[v.kind()](v)
}

// SubsetValue reports whether every concrete value admitted by a is also
// admitted by b.
func SubsetValue(a, b Value) bool {
	switch bv := b.(type) {
	case List:
		if al, ok := a.(List); ok {
			for _, e := range al {
				if !SubsetValue(e, bv) {
					return false
				}
			}
			return true
		}
		for _, e := range bv {
			if SubsetValue(a, e) {
				return true
			}
		}
		return false
	case IntRange:
		switch av := a.(type) {
		case Int:
			return int(av) >= bv.Lo && int(av) <= bv.Hi
		case IntRange:
			return av.Lo >= bv.Lo && av.Hi <= bv.Hi
		case List:
			for _, e := range av {
				if !SubsetValue(e, b) {
					return false
				}
			}
			return len(av) > 0
		}
		return false
	case DoubleRange:
		switch av := a.(type) {
		case Double:
			return float64(av) >= bv.Lo && float64(av) <= bv.Hi
		case DoubleRange:
			return av.Lo >= bv.Lo && av.Hi <= bv.Hi
		case List:
			for _, e := range av {
				if !SubsetValue(e, b) {
					return false
				}
			}
			return len(av) > 0
		}
		return false
	default:
		if al, ok := a.(List); ok {
			for _, e := range al {
				if !SubsetValue(e, b) {
					return false
				}
			}
			return len(al) > 0
		}
		return a.Fixed() && b.Fixed() && valueEqual(a, b)
	}
}

// sortedKinds is only used by tests to assert table completeness.
func sortedKinds() []int {
	seen := map[int]struct{}{}
	for p := range intersectTable {
		seen[int(p.a)] = struct{}{}
		seen[int(p.b)] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
