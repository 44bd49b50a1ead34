package codec

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/rhuss/bote/pkg/value"
)

// CBOR encodes values as deterministic CBOR.
var CBOR Codec = cborCodec{}

// encMode is the Core Deterministic encoder: sorted map keys, smallest
// integer encoding, no indefinite-length items.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

func (cborCodec) Name() string        { return "cbor" }
func (cborCodec) ContentType() string { return "application/cbor" }

func (cborCodec) Marshal(v value.Value) ([]byte, error) {
	return encMode.Marshal(v.Interface())
}
