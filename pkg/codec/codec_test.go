package codec

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/rhuss/bote/pkg/value"
)

func TestJSONMarshal(t *testing.T) {
	inner := value.NewMap()
	inner.Set("z", value.Int(1))
	inner.Set("a", value.Sequence([]value.Value{value.Bool(true), value.Null(), value.Float(2.5)}))

	outer := value.NewMap()
	outer.Set("name", value.Text("ali \"the\" user"))
	outer.Set("data", value.Mapping(inner))
	outer.Set("raw", value.Bytes([]byte("hi")))

	tests := []struct {
		name string
		in   value.Value
		want string
	}{
		{"null", value.Null(), `null`},
		{"bool", value.Bool(false), `false`},
		{"int", value.Int(-12), `-12`},
		{"float", value.Float(0.5), `0.5`},
		{"text", value.Text("hello"), `"hello"`},
		{"empty mapping", value.Mapping(nil), `{}`},
		{"empty sequence", value.Sequence(nil), `[]`},
		{
			"nested keeps order",
			value.Mapping(outer),
			`{"name":"ali \"the\" user","data":{"z":1,"a":[true,null,2.5]},"raw":"aGk="}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JSON.Marshal(tt.in)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestJSONRejectsNaN(t *testing.T) {
	m := value.NewMap()
	m.Set("x", value.Float(math.NaN()))
	if _, err := JSON.Marshal(value.Mapping(m)); err == nil {
		t.Error("expected error for NaN")
	}
}

func TestCBORMarshalDeterministic(t *testing.T) {
	m := value.NewMap()
	m.Set("b", value.Int(2))
	m.Set("a", value.Bytes([]byte{0x01}))

	first, err := CBOR.Marshal(value.Mapping(m))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	second, err := CBOR.Marshal(value.Mapping(m.Clone()))
	if err != nil {
		t.Fatalf("second Marshal error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}

	var decoded map[string]any
	if err := cbor.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if decoded["b"] != uint64(2) {
		t.Errorf("b = %#v, want uint64(2)", decoded["b"])
	}
	if !reflect.DeepEqual(decoded["a"], []byte{0x01}) {
		t.Errorf("a = %#v, want byte string", decoded["a"])
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"", JSON, false},
		{"json", JSON, false},
		{"cbor", CBOR, false},
		{"xml", nil, true},
	}
	for _, tt := range tests {
		got, err := ByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ByName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ByName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestContentTypes(t *testing.T) {
	if JSON.ContentType() != "application/json" {
		t.Errorf("JSON content type = %q", JSON.ContentType())
	}
	if CBOR.ContentType() != "application/cbor" {
		t.Errorf("CBOR content type = %q", CBOR.ContentType())
	}
}
