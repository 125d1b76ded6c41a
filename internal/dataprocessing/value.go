package dataprocessing

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the scalar type held by a Value
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindFloat
	KindDate
	KindBool
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// DateLayout is the canonical textual form of a date cell
const DateLayout = "2006-01-02"

// Value is a typed table cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	t    time.Time
	b    bool
}

// NullValue returns the null cell
func NullValue() Value { return Value{} }

// StringValue wraps s
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue wraps i
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// FloatValue wraps f. NaN and ±Inf become null so they never reach an output file.
func FloatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindFloat, f: f}
}

// DateValue wraps the calendar day of t in UTC. A zero time becomes null.
func DateValue(t time.Time) Value {
	if t.IsZero() {
		return Value{}
	}
	y, m, d := t.Date()
	return Value{kind: KindDate, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// BoolValue wraps b
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the scalar type
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell is missing
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether the cell holds an int or a float
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Str returns the string payload
func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindString
}

// Int returns the integer payload. Floats with no fractional part convert.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Float returns the numeric payload of an int or float cell
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	}
	return 0, false
}

// Date returns the date payload
func (v Value) Date() (time.Time, bool) {
	return v.t, v.kind == KindDate
}

// String renders the cell the way it is written to CSV. Null renders empty,
// whole floats keep a trailing ".0" so they read back as floats.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.f, 'f', -1, 64)
		if !strings.Contains(s, ".") && math.Abs(v.f) < 1e16 {
			s += ".0"
		}
		return s
	case KindDate:
		return v.t.Format(DateLayout)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// Equal reports whether two cells hold the same value. Ints and floats
// compare numerically; two nulls are equal.
func (v Value) Equal(other Value) bool {
	if v.IsNumeric() && other.IsNumeric() {
		a, _ := v.Float()
		b, _ := other.Float()
		return a == b
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == other.s
	case KindDate:
		return v.t.Equal(other.t)
	case KindBool:
		return v.b == other.b
	}
	return false
}

// Compare orders two cells: -1, 0 or +1. Nulls sort last. Numbers compare
// numerically across int and float; otherwise cells of different kinds
// order by kind.
func Compare(a, b Value) int {
	if a.IsNull() || b.IsNull() {
		switch {
		case a.IsNull() && b.IsNull():
			return 0
		case a.IsNull():
			return 1
		default:
			return -1
		}
	}

	if a.IsNumeric() && b.IsNumeric() {
		x, _ := a.Float()
		y, _ := b.Float()
		return compareOrdered(x, y)
	}

	if a.kind != b.kind {
		return compareOrdered(a.kind, b.kind)
	}

	switch a.kind {
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindDate:
		return a.t.Compare(b.t)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	}
	return 0
}

func compareOrdered[T int64 | float64 | Kind](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// naTokens are the cell texts read as missing values
var naTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
	"None": {},
	"#N/A": {},
	"-nan": {},
}

// ParseValue infers a cell from its text: missing markers become null,
// then integer, float and boolean forms are tried before falling back to
// string. Dates are never inferred; pipelines parse them explicitly.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	if _, na := naTokens[s]; na {
		return NullValue()
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FloatValue(f)
	}
	switch s {
	case "True", "true", "TRUE":
		return BoolValue(true)
	case "False", "false", "FALSE":
		return BoolValue(false)
	}
	return StringValue(raw)
}

// ToNumeric converts a cell to a number cell. The second result is false when
// a non-null cell has no numeric reading; such cells become null.
func ToNumeric(v Value) (Value, bool) {
	switch v.kind {
	case KindNull, KindInt, KindFloat:
		return v, true
	case KindBool:
		if v.b {
			return IntValue(1), true
		}
		return IntValue(0), true
	case KindString:
		parsed := ParseValue(v.s)
		if parsed.IsNumeric() || parsed.IsNull() {
			return parsed, true
		}
	}
	return NullValue(), false
}
