package wire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

type payload struct {
	A int    `cbor:"1,keyasint"`
	B string `cbor:"2,keyasint"`
}

func TestMarshalUnmarshalRoundTrips(t *testing.T) {
	in := payload{A: 7, B: "hello"}
	data, err := wire.Marshal(protocol.SG02, in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, wire.Unmarshal(data, protocol.SG02, &out))
	assert.Equal(t, in, out)
}

func TestUnmarshalRejectsWrongScheme(t *testing.T) {
	data, err := wire.Marshal(protocol.SG02, payload{A: 1})
	require.NoError(t, err)

	var out payload
	err = wire.Unmarshal(data, protocol.BZ03, &out)
	assert.Error(t, err)
}

func TestPeekSchemeReadsTagWithoutDecodingInner(t *testing.T) {
	data, err := wire.Marshal(protocol.FROST, payload{A: 42, B: "x"})
	require.NoError(t, err)

	scheme, err := wire.PeekScheme(data)
	require.NoError(t, err)
	assert.Equal(t, protocol.FROST, scheme)
}

func TestDeriveKeyIDIsDeterministicAndURLSafe(t *testing.T) {
	a := wire.DeriveKeyID([]byte("some canonical public key bytes"))
	b := wire.DeriveKeyID([]byte("some canonical public key bytes"))
	assert.Equal(t, a, b)

	other := wire.DeriveKeyID([]byte("different bytes"))
	assert.NotEqual(t, a, other)

	assert.NotContains(t, a.String(), "+")
	assert.NotContains(t, a.String(), "/")
	assert.NotContains(t, a.String(), "=")
}
