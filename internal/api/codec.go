package api

import (
	"github.com/dmitrijs2005/cryptocloud/internal/codec"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype for messages of this package.
// Messages are CBOR-encoded; field names come from their json tags.
const CodecName = codec.GRPCName

func init() {
	encoding.RegisterCodec(codec.GRPC{})
}
