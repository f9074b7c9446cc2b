package bz03_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/schemes/bz03"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3", "4"}
	const threshold = 3

	pub, shares, err := bz03.Keygen(g, ids, threshold)
	require.NoError(t, err)

	label := []byte("label-1")
	plaintext := []byte("bz03 round-trip message")
	ct, err := bz03.Encrypt(pub, label, plaintext)
	require.NoError(t, err)

	ok, err := bz03.VerifyCiphertext(pub, ct)
	require.NoError(t, err)
	assert.True(t, ok)

	var partials []bz03.PartialDecryption
	for _, id := range ids[:threshold] {
		pd, err := bz03.PartialDecrypt(shares[id], ct)
		require.NoError(t, err)
		ok, err := bz03.VerifyShare(pub, ct, pd)
		require.NoError(t, err)
		assert.True(t, ok)
		partials = append(partials, pd)
	}

	out, err := bz03.Assemble(pub, ct, partials)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestKeygenRejectsGroupWithoutPairings(t *testing.T) {
	_, _, err := bz03.Keygen(group.Ed25519(), party.IDSlice{"1", "2", "3"}, 2)
	assert.Error(t, err)
}

func TestAssembleRejectsBelowThreshold(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2

	pub, shares, err := bz03.Keygen(g, ids, threshold)
	require.NoError(t, err)

	ct, err := bz03.Encrypt(pub, []byte("label"), []byte("msg"))
	require.NoError(t, err)

	pd, err := bz03.PartialDecrypt(shares[ids[0]], ct)
	require.NoError(t, err)

	_, err = bz03.Assemble(pub, ct, []bz03.PartialDecryption{pd})
	assert.Error(t, err)
}

func TestCiphertextMarshalRoundTrip(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	pub, _, err := bz03.Keygen(g, ids, 2)
	require.NoError(t, err)

	ct, err := bz03.Encrypt(pub, []byte("label"), []byte("hello"))
	require.NoError(t, err)

	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	got, err := bz03.UnmarshalCiphertext(data)
	require.NoError(t, err)
	assert.Equal(t, ct.Label, got.Label)
	assert.Equal(t, ct.CipherK, got.CipherK)
	assert.Equal(t, ct.KeyID, got.KeyID)
}
