package value

import (
	"bytes"
	"fmt"
	"math"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindBytes
	KindMapping
	KindSequence
)

var kindNames = [...]string{
	KindNull:     "null",
	KindBool:     "bool",
	KindInt:      "int",
	KindFloat:    "float",
	KindText:     "text",
	KindBytes:    "bytes",
	KindMapping:  "mapping",
	KindSequence: "sequence",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is a normalized, wire-safe value. The zero Value is Null.
//
// Values are built by Normalize or by the constructors in this file and
// are not modified afterwards; a Mapping value shares its *Map, so callers
// that need to change a mapping build a new one.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	m    *Map
	seq  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Bytes returns a raw bytes value. A nil slice is stored as empty bytes.
func Bytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBytes, raw: b}
}

// Mapping returns a mapping value backed by m. A nil map yields an empty mapping.
func Mapping(m *Map) Value {
	if m == nil {
		m = NewMap()
	}
	return Value{kind: KindMapping, m: m}
}

// Sequence returns an ordered sequence value.
func Sequence(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindSequence, seq: items}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v, or false for other kinds.
func (v Value) Bool() bool { return v.b }

// Int returns the integer held by v, or 0 for other kinds.
func (v Value) Int() int64 { return v.i }

// Float returns the float held by v, or 0 for other kinds.
func (v Value) Float() float64 { return v.f }

// Text returns the string held by v, or "" for other kinds.
func (v Value) Text() string { return v.s }

// Bytes returns the raw bytes held by v, or nil for other kinds.
func (v Value) Bytes() []byte { return v.raw }

// Map returns the mapping held by v, or nil for other kinds.
func (v Value) Map() *Map { return v.m }

// Items returns the elements of a sequence, or nil for other kinds.
func (v Value) Items() []Value { return v.seq }

// Interface converts v into plain Go values: nil, bool, int64, float64,
// string, []byte, map[string]any and []any. Mapping order is lost.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindText:
		return v.s
	case KindBytes:
		return v.raw
	case KindMapping:
		out := make(map[string]any, v.m.Len())
		for key, item := range v.m.All() {
			out[key] = item.Interface()
		}
		return out
	case KindSequence:
		out := make([]any, len(v.seq))
		for i, item := range v.seq {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports whether v and o are structurally identical. Mapping key
// order is significant.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindText:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.raw, o.raw)
	case KindMapping:
		return v.m.Equal(o.m)
	case KindSequence:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for logs and debugging. It is not a wire format.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindText:
		return v.s
	case KindBytes:
		return fmt.Sprintf("b%q", v.raw)
	default:
		return fmt.Sprint(v.Interface())
	}
}
