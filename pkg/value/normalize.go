package value

import (
	"bytes"
	"cmp"
	"encoding"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strings"

	"github.com/segmentio/encoding/json"

	"github.com/rhuss/bote/pkg/api"
)

// Normalize converts an arbitrary application value into a Value.
//
// Rules, in precedence order:
//  1. nil, booleans, integers, floats, strings and []byte (including named
//     types over those kinds) become scalars. A Value is returned unchanged.
//  2. *Map and maps with string keys become mappings. Go maps carry no
//     order, so their keys are sorted.
//  3. Types implementing json.Marshaler are marshaled and the result is
//     normalized; types implementing encoding.TextMarshaler become text.
//     time.Time, uuid.UUID and netip.Addr take this path.
//  4. Structs become mappings of their fields, named after their json tags.
//  5. Slices, arrays, sets (map[K]struct{}) and Cursors become sequences.
//  6. Anything else, including cyclic values, fails with
//     *api.UnsupportedTypeError.
//
// Nil pointers, interfaces and slices normalize to Null.
func Normalize(v any) (Value, error) {
	var n normalizer
	return n.normalize(v)
}

// MustNormalize is like Normalize but panics on error. It is intended for
// tests and package-level fixtures.
func MustNormalize(v any) Value {
	out, err := Normalize(v)
	if err != nil {
		panic(err)
	}
	return out
}

// startDetectingCyclesAfter matches the nesting depth at which encoding/json
// begins tracking visited pointers.
const startDetectingCyclesAfter = 1000

var errCycle = errors.New("encountered a cycle")

// normalizer carries the cycle bookkeeping of one Normalize call.
type normalizer struct {
	ptrLevel uint
	ptrSeen  map[any]struct{}
}

type sliceKey struct {
	ptr any
	len int
}

func unsupported(t reflect.Type) error {
	return &api.UnsupportedTypeError{TypeName: t.String()}
}

func (n *normalizer) normalize(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Map:
		if x == nil {
			return Null(), nil
		}
		return Mapping(x.Clone()), nil
	case Cursor:
		return n.normalizeCursor(x)
	case bool:
		return Bool(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Bytes(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case json.Number:
		return normalizeNumber(x)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		return Null(), nil
	}
	switch x := v.(type) {
	case json.Marshaler:
		return n.normalizeMarshaler(x, rv.Type())
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return Value{}, fmt.Errorf("marshaling %s: %w", rv.Type(), err)
		}
		return Text(string(text)), nil
	}
	return n.normalizeReflect(rv)
}

// normalizeMarshaler decodes the JSON form of x and normalizes the result.
// Numbers stay integers when they fit.
func (n *normalizer) normalizeMarshaler(x json.Marshaler, t reflect.Type) (Value, error) {
	data, err := x.MarshalJSON()
	if err != nil {
		return Value{}, fmt.Errorf("marshaling %s: %w", t, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return Value{}, fmt.Errorf("decoding %s: %w", t, err)
	}
	return n.normalize(decoded)
}

func normalizeNumber(num json.Number) (Value, error) {
	if i, err := num.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := num.Float64()
	if err != nil {
		return Value{}, fmt.Errorf("number %q: %w", num, err)
	}
	return Float(f), nil
}

// enter records one level of reference nesting. Past the detection depth it
// also records key and reports a cycle when key is already on the path.
func (n *normalizer) enter(key any, t reflect.Type) (leave func(), err error) {
	n.ptrLevel++
	if n.ptrLevel <= startDetectingCyclesAfter {
		return func() { n.ptrLevel-- }, nil
	}
	if n.ptrSeen == nil {
		n.ptrSeen = make(map[any]struct{})
	}
	if _, ok := n.ptrSeen[key]; ok {
		n.ptrLevel--
		return nil, fmt.Errorf("%w via %s: %w", errCycle, t, unsupported(t))
	}
	n.ptrSeen[key] = struct{}{}
	return func() {
		delete(n.ptrSeen, key)
		n.ptrLevel--
	}, nil
}

func (n *normalizer) normalizeReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := n.enter(rv.UnsafePointer(), rv.Type())
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return n.normalize(rv.Elem().Interface())
	case reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return n.normalize(rv.Elem().Interface())
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64: %w", u, unsupported(rv.Type()))
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return Text(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(rv.Bytes()), nil
		}
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := n.enter(sliceKey{rv.UnsafePointer(), rv.Len()}, rv.Type())
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return n.normalizeList(rv)
	case reflect.Array:
		return n.normalizeList(rv)
	case reflect.Map:
		if isSet(rv.Type()) {
			return n.normalizeSet(rv)
		}
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, unsupported(rv.Type())
		}
		if rv.IsNil() {
			return Null(), nil
		}
		leave, err := n.enter(rv.UnsafePointer(), rv.Type())
		if err != nil {
			return Value{}, err
		}
		defer leave()
		return n.normalizeMap(rv)
	case reflect.Struct:
		m := NewMap()
		if err := n.appendFields(m, rv); err != nil {
			return Value{}, err
		}
		return Mapping(m), nil
	}
	return Value{}, unsupported(rv.Type())
}

func (n *normalizer) normalizeList(rv reflect.Value) (Value, error) {
	items := make([]Value, rv.Len())
	for i := range items {
		item, err := n.normalize(rv.Index(i).Interface())
		if err != nil {
			return Value{}, err
		}
		items[i] = item
	}
	return Sequence(items), nil
}

func (n *normalizer) normalizeMap(rv reflect.Value) (Value, error) {
	keys := rv.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	m := NewMap()
	for _, k := range keys {
		item, err := n.normalize(rv.MapIndex(k).Interface())
		if err != nil {
			return Value{}, err
		}
		m.Set(k.String(), item)
	}
	return Mapping(m), nil
}

// isSet reports whether t is a map used as a set, i.e. map[K]struct{}.
func isSet(t reflect.Type) bool {
	elem := t.Elem()
	return elem.Kind() == reflect.Struct && elem.NumField() == 0
}

func (n *normalizer) normalizeSet(rv reflect.Value) (Value, error) {
	keys := rv.MapKeys()
	slices.SortFunc(keys, compareKeys)
	items := make([]Value, len(keys))
	for i, k := range keys {
		item, err := n.normalize(k.Interface())
		if err != nil {
			return Value{}, err
		}
		items[i] = item
	}
	return Sequence(items), nil
}

func compareKeys(a, b reflect.Value) int {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return cmp.Compare(a.Int(), b.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return cmp.Compare(a.Uint(), b.Uint())
	case reflect.Float32, reflect.Float64:
		return cmp.Compare(a.Float(), b.Float())
	case reflect.String:
		return strings.Compare(a.String(), b.String())
	}
	return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

// appendFields adds the json-visible fields of the struct rv to m,
// flattening anonymous embedded structs the way encoding/json does.
func (n *normalizer) appendFields(m *Map, rv reflect.Value) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		fv := rv.Field(i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := n.appendFields(m, fv); err != nil {
					return err
				}
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		if hasOption(opts, "omitempty") && isEmptyValue(fv) {
			continue
		}

		item, err := n.normalize(fv.Interface())
		if errors.Is(err, errCycle) {
			return err
		}
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name(), sf.Name, err)
		}
		m.Set(name, item)
	}
	return nil
}

func hasOption(opts, want string) bool {
	for opts != "" {
		var opt string
		opt, opts, _ = strings.Cut(opts, ",")
		if opt == want {
			return true
		}
	}
	return false
}

// isEmptyValue matches the omitempty semantics of encoding/json.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}
