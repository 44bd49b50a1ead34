// Package schema enforces declared output schemas on normalized response
// data.
//
// A schema is a Go struct type. The json tag names a field, fields without
// omitempty are required, and an optional alias tag gives the wire name the
// field is read from:
//
//	type UserOutput struct {
//		ID   int    `json:"id"`
//		Name string `json:"name" alias:"username"`
//	}
//
// Enforcing UserOutput on {"id": 1, "username": "ali", "password": "x"}
// yields {"id": 1, "name": "ali"}: the alias populates the field and keys
// the schema does not declare are dropped.
package schema

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/segmentio/encoding/json"

	"github.com/rhuss/bote/pkg/api"
	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/value"
)

// Field describes one declared schema field.
type Field struct {
	Name     string // canonical (json tag) name
	Alias    string // wire alias, empty when unset
	Required bool
	Type     reflect.Type
}

// wireName is the key validation expects for the field.
func (f Field) wireName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Schema is an output schema derived from the struct type T.
type Schema[T any] struct {
	name     string
	fields   []Field
	resolved *jsonschema.Resolved
}

// For derives the schema of the struct type T.
func For[T any]() (*Schema[T], error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("schema: %s is not a struct type", t)
	}

	js, err := jsonschema.For[T](&jsonschema.ForOptions{TypeSchemas: textTypeSchemas(t)})
	if err != nil {
		return nil, fmt.Errorf("schema: inferring JSON schema for %s: %w", t, err)
	}
	// Undeclared keys are dropped after validation, not rejected.
	js.AdditionalProperties = nil

	fields := declaredFields(t)
	required := make(map[string]bool, len(js.Required))
	for _, name := range js.Required {
		required[name] = true
	}
	for i := range fields {
		fields[i].Required = required[fields[i].Name]
		if fields[i].Alias == "" {
			continue
		}
		if prop, ok := js.Properties[fields[i].Name]; ok {
			delete(js.Properties, fields[i].Name)
			js.Properties[fields[i].Alias] = prop
		}
	}
	js.Required = js.Required[:0]
	for _, f := range fields {
		if f.Required {
			js.Required = append(js.Required, f.wireName())
		}
	}

	resolved, err := js.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("schema: resolving JSON schema for %s: %w", t, err)
	}

	return &Schema[T]{name: t.Name(), fields: fields, resolved: resolved}, nil
}

// MustFor is like For but panics on error. Use it for package-level schema
// declarations.
func MustFor[T any]() *Schema[T] {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// textTypeSchemas maps every type reachable from t that travels as text
// (uuid.UUID, netip.Addr and the like) to a string schema. Types with their
// own JSON form keep the inferred or built-in schema.
func textTypeSchemas(t reflect.Type) map[reflect.Type]*jsonschema.Schema {
	out := make(map[reflect.Type]*jsonschema.Schema)
	seen := make(map[reflect.Type]bool)
	var walk func(reflect.Type)
	walk = func(t reflect.Type) {
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if seen[t] {
			return
		}
		seen[t] = true

		pt := reflect.PointerTo(t)
		if t.Implements(jsonMarshalerType) || pt.Implements(jsonMarshalerType) {
			return
		}
		if t.Implements(textMarshalerType) || pt.Implements(textMarshalerType) {
			out[t] = &jsonschema.Schema{Type: "string"}
			return
		}
		switch t.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map:
			walk(t.Elem())
		case reflect.Struct:
			for i := 0; i < t.NumField(); i++ {
				if sf := t.Field(i); sf.IsExported() {
					walk(sf.Type)
				}
			}
		}
	}
	walk(t)
	return out
}

func declaredFields(t reflect.Type) []Field {
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}
		fields = append(fields, Field{
			Name:  name,
			Alias: sf.Tag.Get("alias"),
			Type:  sf.Type,
		})
	}
	return fields
}

// Name returns the name of the struct type behind the schema.
func (s *Schema[T]) Name() string { return s.name }

// Fields returns the declared fields in declaration order.
func (s *Schema[T]) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Construct validates m and builds a T from it. Keys are expected under
// their wire names (the alias when one is declared).
func (s *Schema[T]) Construct(m *value.Map) (T, error) {
	var out T

	data, err := codec.JSON.Marshal(value.Mapping(m))
	if err != nil {
		return out, fmt.Errorf("encoding instance: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return out, fmt.Errorf("decoding instance: %w", err)
	}
	if err := s.resolved.Validate(instance); err != nil {
		return out, err
	}

	canonical := m.Clone()
	for _, f := range s.fields {
		if f.Alias == "" {
			continue
		}
		if v, ok := canonical.Get(f.Alias); ok {
			canonical.Delete(f.Alias)
			canonical.Set(f.Name, v)
		}
	}
	if data, err = codec.JSON.Marshal(value.Mapping(canonical)); err != nil {
		return out, fmt.Errorf("encoding instance: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Dump converts a schema instance back into a mapping keyed by canonical
// field names, in declaration order.
func (s *Schema[T]) Dump(instance T) (*value.Map, error) {
	v, err := value.Normalize(instance)
	if err != nil {
		return nil, err
	}
	return v.Map(), nil
}

// Enforce reshapes v to the schema. Mappings are remapped, validated and
// rebuilt; sequences are enforced element by element and fail as a whole
// on the first invalid element. Any other shape is a mismatch.
func (s *Schema[T]) Enforce(v value.Value) (value.Value, error) {
	return s.enforce(v, -1)
}

func (s *Schema[T]) enforce(v value.Value, index int) (value.Value, error) {
	switch v.Kind() {
	case value.KindMapping:
		return s.enforceMapping(v.Map(), index)
	case value.KindSequence:
		items := make([]value.Value, len(v.Items()))
		for i, item := range v.Items() {
			out, err := s.enforce(item, i)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = out
		}
		return value.Sequence(items), nil
	}
	return value.Value{}, &api.SchemaMismatchError{
		Reason: fmt.Sprintf("%s data cannot be shaped by %s", v.Kind(), s.name),
		Index:  index,
	}
}

func (s *Schema[T]) enforceMapping(m *value.Map, index int) (value.Value, error) {
	remapped := m.Clone()
	for _, f := range s.fields {
		if f.Alias == "" {
			continue
		}
		if v, ok := remapped.Get(f.Name); ok {
			remapped.Delete(f.Name)
			remapped.Set(f.Alias, v)
		}
	}

	instance, err := s.Construct(remapped)
	if err != nil {
		return value.Value{}, &api.SchemaMismatchError{Reason: err.Error(), Index: index, Err: err}
	}
	dumped, err := s.Dump(instance)
	if err != nil {
		return value.Value{}, &api.SchemaMismatchError{Reason: err.Error(), Index: index, Err: err}
	}
	return value.Mapping(dumped), nil
}
