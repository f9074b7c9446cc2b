package sh00_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/schemes/sh00"
)

const testModulusBits = 256
const testExponent = 65537

func TestSignVerifyAssemble(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3", "4"}
	const threshold = 3

	pub, shares, err := sh00.Keygen(testModulusBits, testExponent, ids, threshold)
	require.NoError(t, err)

	message := []byte("sh00 test message")

	var partials []sh00.PartialSignature
	for _, id := range ids[:threshold] {
		ps, err := sh00.PartialSign(shares[id], message)
		require.NoError(t, err)
		ok, err := sh00.VerifyShare(pub, message, ps)
		require.NoError(t, err)
		assert.True(t, ok)
		partials = append(partials, ps)
	}

	sig, err := sh00.Assemble(pub, message, partials)
	require.NoError(t, err)
	assert.True(t, sh00.Verify(pub, message, sig))
}

// TestJacobiCorrectionBothBranches keeps generating keys until it has seen
// both values of PublicKey.NeedsCorrection — the branch is a coin flip on
// the Jacobi symbol of m modulo N, so a single Keygen call would only ever
// exercise whichever side it happened to land on. Both branches must
// produce a verifying signature.
func TestJacobiCorrectionBothBranches(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2
	message := []byte("jacobi-branch message")

	seenCorrection := map[bool]bool{}
	for attempt := 0; attempt < 30 && (!seenCorrection[true] || !seenCorrection[false]); attempt++ {
		pub, shares, err := sh00.Keygen(testModulusBits, testExponent, ids, threshold)
		require.NoError(t, err)
		seenCorrection[pub.NeedsCorrection] = true

		var partials []sh00.PartialSignature
		for _, id := range ids[:threshold] {
			ps, err := sh00.PartialSign(shares[id], message)
			require.NoError(t, err)
			partials = append(partials, ps)
		}
		sig, err := sh00.Assemble(pub, message, partials)
		require.NoError(t, err)
		assert.True(t, sh00.Verify(pub, message, sig), "attempt %d, needsCorrection=%v", attempt, pub.NeedsCorrection)
	}

	assert.True(t, seenCorrection[true], "never observed a key requiring Jacobi correction")
	assert.True(t, seenCorrection[false], "never observed a key not requiring Jacobi correction")
}

func TestVerifyShareRejectsTamperedMessage(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}
	pub, shares, err := sh00.Keygen(testModulusBits, testExponent, ids, 2)
	require.NoError(t, err)

	ps, err := sh00.PartialSign(shares[ids[0]], []byte("message-a"))
	require.NoError(t, err)

	ok, err := sh00.VerifyShare(pub, []byte("message-b"), ps)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssembleRejectsBelowThreshold(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 2
	pub, shares, err := sh00.Keygen(testModulusBits, testExponent, ids, threshold)
	require.NoError(t, err)

	ps, err := sh00.PartialSign(shares[ids[0]], []byte("message"))
	require.NoError(t, err)

	_, err = sh00.Assemble(pub, []byte("message"), []sh00.PartialSignature{ps})
	assert.Error(t, err)
}

func TestPublicKeyMarshalRoundTrip(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}
	pub, _, err := sh00.Keygen(testModulusBits, testExponent, ids, 2)
	require.NoError(t, err)

	data, err := pub.MarshalBinary()
	require.NoError(t, err)

	got, err := sh00.UnmarshalPublicKey(data)
	require.NoError(t, err)
	assert.Equal(t, pub.KeyID, got.KeyID)
	assert.Equal(t, pub.NeedsCorrection, got.NeedsCorrection)
}
