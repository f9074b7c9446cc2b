package rpcapi

import (
	"github.com/fxamacker/cbor/v2"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype this service communicates with:
// requests must be dialed with grpc.CallContentSubtype(CodecName) (or the
// server's sole registered codec is used by default for a server with no
// competing codec registered under "proto").
const CodecName = "cbor"

// cborCodec implements google.golang.org/grpc/encoding.Codec over
// github.com/fxamacker/cbor/v2's canonical mode, the same encoder
// pkg/wire and pkg/keychain use, so every layer of this service agrees
// on one encoding instead of mixing protobuf for transport with CBOR for
// payload framing.
type cborCodec struct {
	mode cbor.EncMode
}

func (c cborCodec) Marshal(v interface{}) ([]byte, error) {
	return c.mode.Marshal(v)
}

func (c cborCodec) Unmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

func (c cborCodec) Name() string { return CodecName }

func init() {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	encoding.RegisterCodec(cborCodec{mode: mode})
}
