package cks05_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/schemes/cks05"
)

func TestAssembleProducesSameCoinAcrossQuorums(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3", "4"}
	const threshold = 3

	pub, shares, err := cks05.Keygen(g, ids, threshold)
	require.NoError(t, err)

	name := []byte("round-7")

	sign := func(quorum party.IDSlice) cks05.Coin {
		var partials []cks05.PartialCoin
		for _, id := range quorum {
			pc, err := cks05.PartialSign(shares[id], name)
			require.NoError(t, err)
			ok, err := cks05.VerifyShare(pub, name, pc)
			require.NoError(t, err)
			assert.True(t, ok)
			partials = append(partials, pc)
		}
		coin, err := cks05.Assemble(pub, name, partials)
		require.NoError(t, err)
		return coin
	}

	first := sign(ids[:threshold])
	second := sign(ids[1:])

	assert.Equal(t, first.Bit, second.Bit)
	assert.Equal(t, pub.KeyID, first.KeyID)
}

func TestVerifyShareRejectsWrongName(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	pub, shares, err := cks05.Keygen(g, ids, 2)
	require.NoError(t, err)

	pc, err := cks05.PartialSign(shares[ids[0]], []byte("round-1"))
	require.NoError(t, err)

	ok, err := cks05.VerifyShare(pub, []byte("round-2"), pc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssembleRejectsBelowThreshold(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2
	pub, shares, err := cks05.Keygen(g, ids, threshold)
	require.NoError(t, err)

	pc, err := cks05.PartialSign(shares[ids[0]], []byte("name"))
	require.NoError(t, err)

	_, err = cks05.Assemble(pub, []byte("name"), []cks05.PartialCoin{pc})
	assert.Error(t, err)
}
