// Package rpcapi defines the node's RPC surface as plain Go
// request/response types plus a hand-built
// grpc.ServiceDesc, so the wire format is CBOR over gRPC's transport
// instead of requiring a protoc-generated .pb.go (no protoc run is part
// of this build). grpcserver wires these onto a *grpc.Server; pkg/rpcapi
// itself only defines the contract and wire types.
package rpcapi

// DecryptRequest carries a wire-encoded ciphertext plus an optional
// explicit key-id. An empty KeyID means "use the (scheme, group) default"
// the keychain resolves.
type DecryptRequest struct {
	Ciphertext []byte `cbor:"1,keyasint"`
	KeyID      string `cbor:"2,keyasint"`
}

// DecryptResponse is Decrypt's synchronous reply: just the instance-id
// the client polls with GetDecryptResult.
type DecryptResponse struct {
	InstanceID string `cbor:"1,keyasint"`
}

// DecryptSyncResponse additionally carries the plaintext once the round
// completes within the call's deadline; Plaintext is absent (nil) if the
// protocol failed.
type DecryptSyncResponse struct {
	InstanceID string `cbor:"1,keyasint"`
	Plaintext  []byte `cbor:"2,keyasint"`
}

// GetDecryptResultRequest looks an instance up by id.
type GetDecryptResultRequest struct {
	InstanceID string `cbor:"1,keyasint"`
}

// GetDecryptResultResponse mirrors the (started, finished, optional
// result) registry lookup shape.
type GetDecryptResultResponse struct {
	IsStarted  bool   `cbor:"1,keyasint"`
	IsFinished bool   `cbor:"2,keyasint"`
	Plaintext  []byte `cbor:"3,keyasint"`
}

// PublicKeyEntry is one row of a public-key enumeration response.
type PublicKeyEntry struct {
	KeyID  string `cbor:"1,keyasint"`
	Scheme uint8  `cbor:"2,keyasint"`
	Group  uint8  `cbor:"3,keyasint"`
	Data   []byte `cbor:"4,keyasint"`
}

// GetPublicKeysResponse carries the rows for either
// GetPublicKeysForEncryption or GetPublicKeysForSignature.
type GetPublicKeysResponse struct {
	Keys []PublicKeyEntry `cbor:"1,keyasint"`
}

// PushDecryptionShareRequest is a test-only endpoint for injecting a
// peer share without a running gossip layer.
type PushDecryptionShareRequest struct {
	InstanceID string `cbor:"1,keyasint"`
	ShareID    string `cbor:"2,keyasint"`
	Share      []byte `cbor:"3,keyasint"`
}

// Empty is the response shape for requests with no payload.
type Empty struct{}
