// Package codec provides the serializers that turn normalized values into
// body bytes.
//
// A [Codec] is passed explicitly to envelopes rather than referenced as a
// process-wide encoder, so tests and deployments can substitute it:
//
//	env, err := envelope.New(data, envelope.WithCodec(codec.CBOR))
//
// Two codecs are built in. [JSON] writes mappings in insertion order and
// encodes nested raw bytes as base64 strings, following encoding/json.
// [CBOR] uses Core Deterministic Encoding (RFC 8949 §4.2), so mapping keys
// are sorted and nested raw bytes become CBOR byte strings.
package codec

import (
	"fmt"

	"github.com/rhuss/bote/pkg/value"
)

// Codec serializes normalized values.
type Codec interface {
	// Name returns the short name used in configuration, e.g. "json".
	Name() string

	// ContentType returns the MIME type of the encoded bytes.
	ContentType() string

	// Marshal encodes v.
	Marshal(v value.Value) ([]byte, error)
}

// ByName returns the built-in codec registered under name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", JSON.Name():
		return JSON, nil
	case CBOR.Name():
		return CBOR, nil
	default:
		return nil, fmt.Errorf("unknown codec %q (want \"json\" or \"cbor\")", name)
	}
}
