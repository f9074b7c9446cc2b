package keychain_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/keychain"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/schemes/sg02"
)

func buildTestKeychain(t *testing.T) (path string, pub sg02.PublicKey) {
	t.Helper()
	ids := party.IDSlice{"1", "2", "3", "4"}.Sorted()
	pub, shares, err := sg02.Keygen(group.BLS12381(), ids, 3)
	require.NoError(t, err)

	entries := make([]keychain.Entry, 0, len(shares))
	for id, share := range shares {
		entries = append(entries, keychain.Entry{
			Scheme:  protocol.SG02,
			Group:   group.BLS12381().Code(),
			KeyID:   share.PublicKey.KeyID,
			ShareID: id,
			Share:   share,
		})
	}

	path = filepath.Join(t.TempDir(), "node-1.keychain")
	require.NoError(t, keychain.Save(path, entries))
	return path, pub
}

func TestKeychainLoadRoundTripsSavedShares(t *testing.T) {
	path, _ := buildTestKeychain(t)

	kc, err := keychain.Load(path)
	require.NoError(t, err)

	entry, ok := kc.Default(protocol.SG02, group.BLS12381().Code())
	require.True(t, ok)
	assert.Equal(t, protocol.SG02, entry.Scheme)
	assert.Equal(t, group.BLS12381().Code(), entry.Group)
}

func TestKeychainByKeyIDFindsExactShare(t *testing.T) {
	path, pub := buildTestKeychain(t)

	kc, err := keychain.Load(path)
	require.NoError(t, err)

	entry, ok := kc.ByKeyID(pub.KeyID)
	require.True(t, ok)
	assert.Equal(t, pub.KeyID, entry.KeyID)
}

func TestKeychainByKeyIDMissingReturnsFalse(t *testing.T) {
	path, _ := buildTestKeychain(t)
	kc, err := keychain.Load(path)
	require.NoError(t, err)

	_, ok := kc.ByKeyID("does-not-exist")
	assert.False(t, ok)
}

func TestKeychainPublicKeysForEncryptionListsSG02NotSignatureSchemes(t *testing.T) {
	path, pub := buildTestKeychain(t)
	kc, err := keychain.Load(path)
	require.NoError(t, err)

	keys, err := kc.PublicKeysForEncryption()
	require.NoError(t, err)
	require.Len(t, keys, 1)
	assert.Equal(t, pub.KeyID, keys[0].KeyID)
	assert.Equal(t, protocol.SG02, keys[0].Scheme)

	sigKeys, err := kc.PublicKeysForSignature()
	require.NoError(t, err)
	assert.Empty(t, sigKeys)
}

func TestKeychainEntryProtocolBuildsSG02Adapter(t *testing.T) {
	path, _ := buildTestKeychain(t)
	kc, err := keychain.Load(path)
	require.NoError(t, err)

	entry, ok := kc.Default(protocol.SG02, group.BLS12381().Code())
	require.True(t, ok)

	proto, err := entry.Protocol()
	require.NoError(t, err)
	assert.Equal(t, protocol.SG02, proto.Scheme())
}

func TestKeychainLoadRejectsMissingFile(t *testing.T) {
	_, err := keychain.Load(filepath.Join(t.TempDir(), "nope.keychain"))
	assert.Error(t, err)
}

func TestKeychainLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.keychain")
	require.NoError(t, os.WriteFile(path, []byte("not cbor"), 0o600))

	_, err := keychain.Load(path)
	assert.Error(t, err)
}
