package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind identifies what a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "null"
	}
}

// Value is an immutable typed scalar stored in a Table cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	n    float64
	t    time.Time
}

// Null returns the missing value.
func Null() Value { return Value{} }

// Str wraps a string.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// Num wraps a float64.
func Num(n float64) Value { return Value{kind: KindNumber, n: n} }

// Date wraps a point in time.
func Date(t time.Time) Value { return Value{kind: KindTime, t: t} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsString returns the string held by v. ok is false for any other kind.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsFloat returns the number held by v. ok is false for any other kind.
func (v Value) AsFloat() (float64, bool) {
	return v.n, v.kind == KindNumber
}

// AsTime returns the time held by v. ok is false for any other kind.
func (v Value) AsTime() (time.Time, bool) {
	return v.t, v.kind == KindTime
}

// Equal reports exact, kind-sensitive equality. No coercion happens between
// kinds, so Str("1") never equals Num(1). Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindNumber:
		if math.IsNaN(v.n) && math.IsNaN(o.n) {
			return true
		}
		return v.n == o.n
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return true
	}
}

// String renders v for display.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindTime:
		if v.t.Hour() == 0 && v.t.Minute() == 0 && v.t.Second() == 0 && v.t.Nanosecond() == 0 {
			return v.t.Format(time.DateOnly)
		}
		return v.t.Format(time.RFC3339)
	default:
		return ""
	}
}

// writeKey appends an unambiguous encoding of v to b. Values that are Equal
// produce the same encoding.
func (v Value) writeKey(b *strings.Builder) {
	switch v.kind {
	case KindString:
		b.WriteByte('s')
		b.WriteString(strconv.Itoa(len(v.s)))
		b.WriteByte(':')
		b.WriteString(v.s)
	case KindNumber:
		b.WriteByte('n')
		n := v.n
		if n == 0 {
			n = 0 // folds -0 into 0
		}
		b.WriteString(strconv.FormatFloat(n, 'g', -1, 64))
	case KindTime:
		b.WriteByte('t')
		b.WriteString(v.t.UTC().Format(time.RFC3339Nano))
	default:
		b.WriteByte('0')
	}
	b.WriteByte(';')
}

// TupleKey encodes an ordered tuple of values into a comparable string.
// Two tuples share a key exactly when they are element-wise Equal.
func TupleKey(values ...Value) string {
	var b strings.Builder
	for _, v := range values {
		v.writeKey(&b)
	}
	return b.String()
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.s)
	case KindNumber:
		if math.IsNaN(v.n) || math.IsInf(v.n, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.n)
	case KindTime:
		return json.Marshal(v.t.Format(time.RFC3339))
	default:
		return []byte("null"), nil
	}
}
