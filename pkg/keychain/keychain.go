// Package keychain loads the per-node file of private-share entries: a
// serialized list of self-describing shares, looked up by (scheme,
// group) for a default share or by key-id for a specific one. Follows
// pkg/wire's own canonical-CBOR convention for the outer file envelope,
// so a keychain file and a wire-transmitted private share share one
// decoder family.
package keychain

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/schemes/bls04"
	"github.com/luxfi/thetacrypt/pkg/schemes/bz03"
	"github.com/luxfi/thetacrypt/pkg/schemes/cks05"
	"github.com/luxfi/thetacrypt/pkg/schemes/frost"
	"github.com/luxfi/thetacrypt/pkg/schemes/sg02"
	"github.com/luxfi/thetacrypt/pkg/schemes/sh00"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// fileEntry is one keychain file record: the scheme/group/key-id/share-id
// quadruple for fast lookup without decoding the inner share, plus the
// scheme's own wire-encoded PrivateShare for reconstruction.
type fileEntry struct {
	Scheme  protocol.Scheme `cbor:"1,keyasint"`
	GroupID group.Code      `cbor:"2,keyasint"`
	KeyID   string          `cbor:"3,keyasint"`
	ShareID string          `cbor:"4,keyasint"`
	Share   []byte          `cbor:"5,keyasint"`
}

type file struct {
	Entries []fileEntry `cbor:"1,keyasint"`
}

// Entry is one decoded keychain record. Share holds the scheme package's
// own concrete PrivateShare type (sg02.PrivateShare, bz03.PrivateShare,
// ...); callers type-switch on Scheme to recover it.
type Entry struct {
	Scheme  protocol.Scheme
	Group   group.Code
	KeyID   wire.KeyID
	ShareID party.ID
	Share   interface{}
}

// PublicKeyInfo is one row of a GetPublicKeysForEncryption/
// GetPublicKeysForSignature response.
type PublicKeyInfo struct {
	KeyID  wire.KeyID
	Scheme protocol.Scheme
	Group  group.Code
	Data   []byte // canonically-encoded public key
}

// Keychain is the immutable, startup-loaded set of private shares this
// node holds: once Load returns, it is shared by reference with no
// further mutation. Load fills the maps before the Keychain is shared and
// takes no lock; the lookup methods take the mutex's read lock.
type Keychain struct {
	mu       sync.RWMutex
	byGroup  map[groupKey][]Entry
	byKeyID  map[wire.KeyID]Entry
	entries  []Entry
}

type groupKey struct {
	scheme protocol.Scheme
	group  group.Code
}

// decoders dispatches a fileEntry's scheme tag to the package that knows
// how to reconstruct its concrete PrivateShare type.
var decoders = map[protocol.Scheme]func([]byte) (interface{}, error){
	protocol.SG02: func(b []byte) (interface{}, error) { return sg02.UnmarshalPrivateShare(b) },
	protocol.BZ03: func(b []byte) (interface{}, error) { return bz03.UnmarshalPrivateShare(b) },
	protocol.BLS04: func(b []byte) (interface{}, error) { return bls04.UnmarshalPrivateShare(b) },
	protocol.CKS05: func(b []byte) (interface{}, error) { return cks05.UnmarshalPrivateShare(b) },
	protocol.SH00: func(b []byte) (interface{}, error) { return sh00.UnmarshalPrivateShare(b) },
	protocol.FROST: func(b []byte) (interface{}, error) { return frost.UnmarshalPrivateShare(b) },
}

// Load reads and decodes a keychain file from path.
func Load(path string) (*Keychain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.IOError, err, "read keychain file")
	}
	var f file
	if err := cbor.Unmarshal(raw, &f); err != nil {
		return nil, errs.Wrap(errs.DeserializationFailed, err, "decode keychain file")
	}

	kc := &Keychain{
		byGroup: make(map[groupKey][]Entry),
		byKeyID: make(map[wire.KeyID]Entry),
	}
	for _, fe := range f.Entries {
		decode, ok := decoders[fe.Scheme]
		if !ok {
			return nil, errs.Newf(errs.WrongScheme, "keychain: unknown scheme tag %d", fe.Scheme)
		}
		share, err := decode(fe.Share)
		if err != nil {
			return nil, err
		}
		entry := Entry{
			Scheme:  fe.Scheme,
			Group:   fe.GroupID,
			KeyID:   wire.KeyID(fe.KeyID),
			ShareID: party.ID(fe.ShareID),
			Share:   share,
		}
		kc.entries = append(kc.entries, entry)
		kc.byKeyID[entry.KeyID] = entry
		key := groupKey{scheme: entry.Scheme, group: entry.Group}
		kc.byGroup[key] = append(kc.byGroup[key], entry)
	}
	return kc, nil
}

// Save encodes entries (already-built PrivateShare values) to a keychain
// file at path, for use by offline keygen tooling and tests.
func Save(path string, entries []Entry) error {
	out := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		marshaler, ok := e.Share.(interface{ MarshalBinary() ([]byte, error) })
		if !ok {
			return errs.New(errs.InternalError, "keychain: share type has no MarshalBinary")
		}
		data, err := marshaler.MarshalBinary()
		if err != nil {
			return err
		}
		out = append(out, fileEntry{
			Scheme: e.Scheme, GroupID: e.Group, KeyID: string(e.KeyID),
			ShareID: string(e.ShareID), Share: data,
		})
	}
	data, err := encMode.Marshal(file{Entries: out})
	if err != nil {
		return errs.Wrap(errs.SerializationFailed, err, "encode keychain file")
	}
	return os.WriteFile(path, data, 0o600)
}

// Default returns the default share for a (scheme, group) pair: the
// first entry loaded for it.
func (kc *Keychain) Default(scheme protocol.Scheme, g group.Code) (Entry, bool) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	entries := kc.byGroup[groupKey{scheme: scheme, group: g}]
	if len(entries) == 0 {
		return Entry{}, false
	}
	return entries[0], true
}

// ByKeyID returns the specific share for a key-id.
func (kc *Keychain) ByKeyID(id wire.KeyID) (Entry, bool) {
	kc.mu.RLock()
	defer kc.mu.RUnlock()
	e, ok := kc.byKeyID[id]
	return e, ok
}

// isEncryptionScheme / isSignatureScheme classify each scheme's sole
// operation (SG02/BZ03 decrypt, BLS04/CKS05/SH00/FROST sign/coin) for
// the two public-key enumeration RPCs.
func isEncryptionScheme(s protocol.Scheme) bool {
	return s == protocol.SG02 || s == protocol.BZ03
}

func isSignatureScheme(s protocol.Scheme) bool {
	return s == protocol.BLS04 || s == protocol.CKS05 || s == protocol.SH00 || s == protocol.FROST
}

// publicKeyMarshaler is implemented by every scheme's PublicKey type.
type publicKeyMarshaler interface {
	MarshalBinary() ([]byte, error)
}

// publicKeyOf extracts the embedded PublicKey from a concrete PrivateShare
// value via a type switch, since the scheme packages share no common
// PrivateShare interface: dispatch is a single match on the scheme tag,
// no inheritance.
func publicKeyOf(scheme protocol.Scheme, share interface{}) (publicKeyMarshaler, error) {
	switch scheme {
	case protocol.SG02:
		return share.(sg02.PrivateShare).PublicKey, nil
	case protocol.BZ03:
		return share.(bz03.PrivateShare).PublicKey, nil
	case protocol.BLS04:
		return share.(bls04.PrivateShare).PublicKey, nil
	case protocol.CKS05:
		return share.(cks05.PrivateShare).PublicKey, nil
	case protocol.SH00:
		return share.(sh00.PrivateShare).PublicKey, nil
	case protocol.FROST:
		return share.(frost.PrivateShare).PublicKey, nil
	default:
		return nil, errs.Newf(errs.WrongScheme, "keychain: unknown scheme tag %d", scheme)
	}
}

// Protocol builds the uniform protocol.Protocol adapter for this entry's
// scheme, the same type switch publicKeyOf uses, so
// internal/orchestrator.Engine never needs to know the six concrete
// PrivateShare types itself.
func (e Entry) Protocol() (protocol.Protocol, error) {
	switch e.Scheme {
	case protocol.SG02:
		return sg02.Protocol{Share: e.Share.(sg02.PrivateShare)}, nil
	case protocol.BZ03:
		return bz03.Protocol{Share: e.Share.(bz03.PrivateShare)}, nil
	case protocol.BLS04:
		return bls04.Protocol{Share: e.Share.(bls04.PrivateShare)}, nil
	case protocol.CKS05:
		return cks05.Protocol{Share: e.Share.(cks05.PrivateShare)}, nil
	case protocol.SH00:
		return sh00.Protocol{Share: e.Share.(sh00.PrivateShare)}, nil
	case protocol.FROST:
		return frost.Protocol{Share: e.Share.(frost.PrivateShare)}, nil
	default:
		return nil, errs.Newf(errs.WrongScheme, "keychain: unknown scheme tag %d", e.Scheme)
	}
}

// PublicKeysForEncryption implements GetPublicKeysForEncryption: one row
// per distinct key-id among the keychain entries whose scheme is a
// decryption scheme.
func (kc *Keychain) PublicKeysForEncryption() ([]PublicKeyInfo, error) {
	return kc.publicKeys(isEncryptionScheme)
}

// PublicKeysForSignature implements GetPublicKeysForSignature.
func (kc *Keychain) PublicKeysForSignature() ([]PublicKeyInfo, error) {
	return kc.publicKeys(isSignatureScheme)
}

func (kc *Keychain) publicKeys(include func(protocol.Scheme) bool) ([]PublicKeyInfo, error) {
	kc.mu.RLock()
	entries := append([]Entry(nil), kc.entries...)
	kc.mu.RUnlock()

	out := make([]PublicKeyInfo, 0, len(entries))
	seen := make(map[wire.KeyID]bool, len(entries))
	for _, e := range entries {
		if !include(e.Scheme) || seen[e.KeyID] {
			continue
		}
		seen[e.KeyID] = true
		pub, err := publicKeyOf(e.Scheme, e.Share)
		if err != nil {
			return nil, err
		}
		data, err := pub.MarshalBinary()
		if err != nil {
			return nil, err
		}
		out = append(out, PublicKeyInfo{KeyID: e.KeyID, Scheme: e.Scheme, Group: e.Group, Data: data})
	}
	return out, nil
}
