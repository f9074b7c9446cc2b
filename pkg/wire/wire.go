// Package wire implements the canonical, self-describing byte encoding
// every top-level type (public key, private share, ciphertext, partial
// share, final result) shares: (scheme_tag: u8, inner_bytes:
// length-prefixed). CBOR's canonical encoding mode serves as the
// deterministic length-prefixed sequence format, the same encoder
// pkg/protocol/handler.go already uses to marshal its round-message
// envelopes, so this package reuses it for the outer envelope too.
package wire

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/protocol"
)

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Envelope is the outer (scheme_tag, inner_bytes) wrapper every top-level
// type marshals through.
type Envelope struct {
	Scheme protocol.Scheme `cbor:"1,keyasint"`
	Inner  []byte          `cbor:"2,keyasint"`
}

// Marshal wraps inner (the scheme-specific canonical encoding of a public
// key, share, ciphertext, etc.) with its scheme tag.
func Marshal(scheme protocol.Scheme, inner interface{}) ([]byte, error) {
	innerBytes, err := encMode.Marshal(inner)
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, err, "marshal inner value")
	}
	out, err := encMode.Marshal(Envelope{Scheme: scheme, Inner: innerBytes})
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, err, "marshal envelope")
	}
	return out, nil
}

// Unmarshal splits data into its scheme tag and inner bytes, then decodes
// the inner bytes into out. Returns DeserializationFailed on any tag or
// structural mismatch.
func Unmarshal(data []byte, wantScheme protocol.Scheme, out interface{}) error {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return errs.Wrap(errs.DeserializationFailed, err, "unmarshal envelope")
	}
	if env.Scheme != wantScheme {
		return errs.Newf(errs.DeserializationFailed, "expected scheme %s, got %s", wantScheme, env.Scheme)
	}
	if err := cbor.Unmarshal(env.Inner, out); err != nil {
		return errs.Wrap(errs.DeserializationFailed, err, "unmarshal inner value")
	}
	return nil
}

// PeekScheme reads only the scheme tag from data, without decoding the
// inner payload — used by the orchestration engine to dispatch an inbound
// request to the right scheme package before it knows the concrete type.
func PeekScheme(data []byte) (protocol.Scheme, error) {
	var env Envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return 0, errs.Wrap(errs.DeserializationFailed, err, "peek scheme tag")
	}
	return env.Scheme, nil
}

// KeyID is the stable identifier for a key distribution: SHA-256 of the
// bytes a scheme passes to DeriveKeyID, rendered url-safe base64 without
// padding for logs and RPC responses. Each scheme picks those bytes
// itself from its public key's elements (for example y alone, or y
// followed by further public elements); the hash is not taken over the
// public key's full Marshal encoding.
type KeyID string

// DeriveKeyID computes the KeyID of the given public-key bytes.
func DeriveKeyID(canonicalPublicKeyBytes []byte) KeyID {
	sum := sha256.Sum256(canonicalPublicKeyBytes)
	return KeyID(base64.RawURLEncoding.EncodeToString(sum[:]))
}

func (k KeyID) String() string { return string(k) }
