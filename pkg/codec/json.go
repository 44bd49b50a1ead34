package codec

import (
	"fmt"
	"strconv"

	"github.com/segmentio/encoding/json"

	"github.com/rhuss/bote/pkg/value"
)

// JSON is the default codec.
var JSON Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Name() string        { return "json" }
func (jsonCodec) ContentType() string { return "application/json" }

func (jsonCodec) Marshal(v value.Value) ([]byte, error) {
	return appendJSON(make([]byte, 0, 64), v)
}

func appendJSON(b []byte, v value.Value) ([]byte, error) {
	switch v.Kind() {
	case value.KindNull:
		return append(b, "null"...), nil
	case value.KindBool:
		return strconv.AppendBool(b, v.Bool()), nil
	case value.KindInt:
		return strconv.AppendInt(b, v.Int(), 10), nil
	case value.KindFloat:
		return appendScalar(b, v.Float())
	case value.KindText:
		return appendScalar(b, v.Text())
	case value.KindBytes:
		return appendScalar(b, v.Bytes())
	case value.KindMapping:
		b = append(b, '{')
		first := true
		for key, item := range v.Map().All() {
			if !first {
				b = append(b, ',')
			}
			first = false
			var err error
			if b, err = appendScalar(b, key); err != nil {
				return nil, err
			}
			b = append(b, ':')
			if b, err = appendJSON(b, item); err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
		}
		return append(b, '}'), nil
	case value.KindSequence:
		b = append(b, '[')
		for i, item := range v.Items() {
			if i > 0 {
				b = append(b, ',')
			}
			var err error
			if b, err = appendJSON(b, item); err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
		}
		return append(b, ']'), nil
	}
	return nil, fmt.Errorf("json: unknown value kind %s", v.Kind())
}

// appendScalar encodes strings, floats and bytes with the json package so
// escaping, float formatting and NaN rejection match encoding/json.
func appendScalar(b []byte, x any) ([]byte, error) {
	enc, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	return append(b, enc...), nil
}
