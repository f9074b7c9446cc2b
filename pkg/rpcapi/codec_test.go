package rpcapi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"

	"github.com/luxfi/thetacrypt/pkg/rpcapi"
)

func TestCBORCodecIsRegisteredUnderItsName(t *testing.T) {
	codec := encoding.GetCodec(rpcapi.CodecName)
	require.NotNil(t, codec, "rpcapi's init() must register its codec under CodecName")
	assert.Equal(t, rpcapi.CodecName, codec.Name())
}

func TestCBORCodecRoundTripsRequestTypes(t *testing.T) {
	codec := encoding.GetCodec(rpcapi.CodecName)
	require.NotNil(t, codec)

	in := rpcapi.DecryptRequest{Ciphertext: []byte{1, 2, 3}, KeyID: "key-1"}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out rpcapi.DecryptRequest
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestCBORCodecRoundTripsPublicKeysResponse(t *testing.T) {
	codec := encoding.GetCodec(rpcapi.CodecName)
	require.NotNil(t, codec)

	in := rpcapi.GetPublicKeysResponse{Keys: []rpcapi.PublicKeyEntry{
		{KeyID: "key-1", Scheme: 1, Group: 2, Data: []byte{9, 9}},
	}}
	data, err := codec.Marshal(in)
	require.NoError(t, err)

	var out rpcapi.GetPublicKeysResponse
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
