package sg02_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/schemes/sg02"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3", "4"}
	const threshold = 3

	pub, shares, err := sg02.Keygen(g, ids, threshold)
	require.NoError(t, err)

	label := []byte("label-1")
	plaintext := []byte("sg02 round-trip message")
	ct, err := sg02.Encrypt(pub, label, plaintext)
	require.NoError(t, err)

	ok, err := sg02.VerifyCiphertext(pub, ct)
	require.NoError(t, err)
	assert.True(t, ok)

	var partials []sg02.PartialDecryption
	for _, id := range ids[:threshold] {
		pd, err := sg02.PartialDecrypt(shares[id], ct)
		require.NoError(t, err)
		ok, err := sg02.VerifyShare(pub, ct, pd)
		require.NoError(t, err)
		assert.True(t, ok)
		partials = append(partials, pd)
	}

	out, err := sg02.Assemble(pub, ct, partials)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
}

func TestAssembleRejectsBelowThreshold(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2

	pub, shares, err := sg02.Keygen(g, ids, threshold)
	require.NoError(t, err)

	ct, err := sg02.Encrypt(pub, []byte("label"), []byte("msg"))
	require.NoError(t, err)

	pd, err := sg02.PartialDecrypt(shares[ids[0]], ct)
	require.NoError(t, err)

	_, err = sg02.Assemble(pub, ct, []sg02.PartialDecryption{pd})
	assert.Error(t, err)
}

func TestVerifyShareRejectsTamperedShare(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2

	pub, shares, err := sg02.Keygen(g, ids, threshold)
	require.NoError(t, err)

	ct, err := sg02.Encrypt(pub, []byte("label"), []byte("msg"))
	require.NoError(t, err)

	pd, err := sg02.PartialDecrypt(shares[ids[0]], ct)
	require.NoError(t, err)
	pd.ShareID = ids[1]

	ok, err := sg02.VerifyShare(pub, ct, pd)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCiphertextMarshalRoundTrip(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	pub, _, err := sg02.Keygen(g, ids, 2)
	require.NoError(t, err)

	ct, err := sg02.Encrypt(pub, []byte("label"), []byte("hello"))
	require.NoError(t, err)

	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	got, err := sg02.UnmarshalCiphertext(data)
	require.NoError(t, err)
	assert.Equal(t, ct.Label, got.Label)
	assert.Equal(t, ct.CipherK, got.CipherK)
	assert.Equal(t, ct.KeyID, got.KeyID)
}
