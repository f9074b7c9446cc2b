package bls04_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/schemes/bls04"
)

func TestSignVerifyAssemble(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3", "4"}
	const threshold = 3

	pub, shares, err := bls04.Keygen(g, ids, threshold)
	require.NoError(t, err)

	message := []byte("bls04 test message")

	var partials []bls04.PartialSignature
	for _, id := range ids[:threshold] {
		ps, err := bls04.PartialSign(shares[id], message)
		require.NoError(t, err)
		ok, err := bls04.VerifyShare(pub, message, ps)
		require.NoError(t, err)
		assert.True(t, ok)
		partials = append(partials, ps)
	}

	sig, err := bls04.Assemble(pub, message, partials)
	require.NoError(t, err)

	ok, err := bls04.Verify(pub, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2

	pub, shares, err := bls04.Keygen(g, ids, threshold)
	require.NoError(t, err)

	message := []byte("original message")
	var partials []bls04.PartialSignature
	for _, id := range ids[:threshold] {
		ps, err := bls04.PartialSign(shares[id], message)
		require.NoError(t, err)
		partials = append(partials, ps)
	}
	sig, err := bls04.Assemble(pub, message, partials)
	require.NoError(t, err)

	ok, err := bls04.Verify(pub, []byte("tampered message"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeygenRejectsGroupWithoutPairings(t *testing.T) {
	_, _, err := bls04.Keygen(group.Ed25519(), party.IDSlice{"1", "2", "3"}, 2)
	assert.Error(t, err)
}

func TestVerifyShareRejectsUnknownShareID(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	pub, shares, err := bls04.Keygen(g, ids, 2)
	require.NoError(t, err)

	message := []byte("msg")
	ps, err := bls04.PartialSign(shares[ids[0]], message)
	require.NoError(t, err)
	ps.ShareID = "not-a-share"

	_, err = bls04.VerifyShare(pub, message, ps)
	assert.Error(t, err)
}
