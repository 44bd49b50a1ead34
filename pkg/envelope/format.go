package envelope

import (
	"fmt"

	"github.com/rhuss/bote/pkg/api"
	"github.com/rhuss/bote/pkg/codec"
	"github.com/rhuss/bote/pkg/value"
)

// Content types of the built-in formats.
const (
	ContentTypeHTML   = "text/html; charset=utf-8"
	ContentTypePlain  = "text/plain; charset=utf-8"
	ContentTypeStream = "application/octet-stream"
)

// Format turns envelope data into body bytes. Each envelope variant is a
// Format paired with the shared envelope machinery.
type Format interface {
	ContentType() string
	Render(v value.Value) ([]byte, error)
}

// Serialized returns the format that writes raw bytes as is, null as an
// empty body and everything else through c.
func Serialized(c codec.Codec) Format {
	return serialized{codec: c}
}

type serialized struct {
	codec codec.Codec
}

func (f serialized) ContentType() string { return f.codec.ContentType() }

func (f serialized) Render(v value.Value) ([]byte, error) {
	switch v.Kind() {
	case value.KindBytes:
		return v.Bytes(), nil
	case value.KindNull:
		return []byte{}, nil
	}
	body, err := f.codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s body: %w", f.codec.Name(), err)
	}
	return body, nil
}

// Text returns a format for textual payloads labelled contentType. Only
// raw bytes and text can be rendered.
func Text(contentType string) Format {
	return text{contentType: contentType}
}

type text struct {
	contentType string
}

func (f text) ContentType() string { return f.contentType }

func (f text) Render(v value.Value) ([]byte, error) {
	switch v.Kind() {
	case value.KindBytes:
		return v.Bytes(), nil
	case value.KindText:
		return []byte(v.Text()), nil
	}
	return nil, &api.UnsupportedTypeError{TypeName: v.Kind().String()}
}
