// Package codec holds the CBOR configuration shared by the gRPC wire format
// and the embedded record store.
package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode uses Core Deterministic Encoding (sorted map keys, shortest
// integers, no indefinite lengths). Timestamps are RFC 3339 strings with
// nanoseconds so they survive a round trip unchanged.
var encMode cbor.EncMode

// decMode ignores unknown fields.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// GRPCName is the content subtype under which GRPC is registered.
const GRPCName = "cbor"

// GRPC adapts the shared modes to grpc's encoding.Codec.
type GRPC struct{}

func (GRPC) Marshal(v any) ([]byte, error)      { return Marshal(v) }
func (GRPC) Unmarshal(data []byte, v any) error { return Unmarshal(data, v) }
func (GRPC) Name() string                       { return GRPCName }
