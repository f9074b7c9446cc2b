package polynomial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/polynomial"
)

func idsUpTo(n int) party.IDSlice {
	ids := make(party.IDSlice, n)
	for i := 0; i < n; i++ {
		ids[i] = party.ID(string(rune('1' + i)))
	}
	return ids
}

// TestLagrangeCoefficientsSumToOne checks the property every assembly
// routine across the six schemes relies on: for both a full and a
// truncated id set, the Lagrange coefficients at x=0 must sum to the
// group's multiplicative identity.
func TestLagrangeCoefficientsSumToOne(t *testing.T) {
	g := group.BLS12381()
	allIDs := idsUpTo(5)

	for _, ids := range []party.IDSlice{allIDs, allIDs[:len(allIDs)-1]} {
		coefs := polynomial.Lagrange(g, ids)
		sum := group.SetUint64(g, 0)
		for _, c := range coefs {
			var err error
			sum, err = sum.Add(c)
			require.NoError(t, err)
		}
		one := group.SetUint64(g, 1)
		assert.True(t, sum.Equal(one))
	}
}

func TestShamirShareReconstructsSecretViaLagrange(t *testing.T) {
	g := group.BLS12381()
	secret := group.RandomSizedBigInt(g)
	ids := idsUpTo(4)

	poly := polynomial.NewPolynomial(g, 2, &secret)
	shares := polynomial.ShamirShare(poly, ids[:3])
	coefs := polynomial.Lagrange(g, ids[:3])

	sum := group.SetUint64(g, 0)
	for id, share := range shares {
		term, err := share.Mul(coefs[id])
		require.NoError(t, err)
		sum, err = sum.Add(term)
		require.NoError(t, err)
	}
	assert.True(t, sum.Equal(secret))
}
