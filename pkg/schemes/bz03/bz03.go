// Package bz03 implements the Boneh–Boyen pairing-based threshold
// ElGamal scheme: structurally similar to sg02, but randomness is
// carried in G2 and well-formedness is checked with a pairing equality
// instead of a Chaum–Pedersen NIZK.
package bz03

import (
	"crypto/sha256"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/polynomial"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

// wireCiphertext is Ciphertext's canonical byte-level shape, same
// rationale as sg02's wireCiphertext: kyber points don't implement
// cbor.Marshaler directly.
type wireCiphertext struct {
	Label   []byte     `cbor:"1,keyasint"`
	CipherK []byte     `cbor:"2,keyasint"`
	U       []byte     `cbor:"3,keyasint"`
	HR      []byte     `cbor:"4,keyasint"`
	GroupID group.Code `cbor:"5,keyasint"`
	KeyID   string     `cbor:"6,keyasint"`
}

func (ct Ciphertext) MarshalBinary() ([]byte, error) {
	ub, err := ct.U.MarshalBinary()
	if err != nil {
		return nil, err
	}
	hrb, err := ct.HR.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wireCiphertext{
		Label: ct.Label, CipherK: ct.CipherK, U: ub, HR: hrb,
		GroupID: ct.HR.Group().Code(), KeyID: string(ct.KeyID),
	})
}

func UnmarshalCiphertext(data []byte) (Ciphertext, error) {
	var w wireCiphertext
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return Ciphertext{}, err
	}
	g := group.ByCode(w.GroupID)
	u, err := group.UnmarshalGroupElement(g, group.SubExtension, w.U)
	if err != nil {
		return Ciphertext{}, err
	}
	hr, err := group.UnmarshalGroupElement(g, group.SubBase, w.HR)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{Label: w.Label, CipherK: w.CipherK, U: u, HR: hr, KeyID: wire.KeyID(w.KeyID)}, nil
}

// wirePartialDecryption is PartialDecryption's canonical byte-level shape,
// the message a node's round-1 broadcasts to the rest of the signer group.
type wirePartialDecryption struct {
	ShareID string     `cbor:"1,keyasint"`
	Ui      []byte     `cbor:"2,keyasint"`
	GroupID group.Code `cbor:"3,keyasint"`
}

func (pd PartialDecryption) MarshalBinary() ([]byte, error) {
	uib, err := pd.Ui.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wirePartialDecryption{
		ShareID: string(pd.ShareID), Ui: uib, GroupID: pd.Ui.Group().Code(),
	})
}

func UnmarshalPartialDecryption(data []byte) (PartialDecryption, error) {
	var w wirePartialDecryption
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PartialDecryption{}, err
	}
	g := group.ByCode(w.GroupID)
	ui, err := group.UnmarshalGroupElement(g, group.SubExtension, w.Ui)
	if err != nil {
		return PartialDecryption{}, err
	}
	return PartialDecryption{ShareID: party.ID(w.ShareID), Ui: ui}, nil
}

const Scheme = protocol.BZ03

// PublicKey publishes x's image in both G1 (Y, from which the encryptor
// derives h_r = Y^r for the ciphertext's well-formedness check) and G2
// (Y2, used by the encryptor to derive the same
// combinable quantity the decryptors reconstruct from shares), plus the
// per-share G1 verification elements h_i = g1^{x_i}.
type PublicKey struct {
	Group        group.Group
	N, K         int
	Y            group.GroupElement // SubBase,      g1^x
	Y2           group.GroupElement // SubExtension, g2^x
	G2Gen        group.GroupElement // SubExtension generator
	Verification map[party.ID]group.GroupElement // SubBase, g1^{x_i}
	KeyID        wire.KeyID
}

type PrivateShare struct {
	ShareID   party.ID
	Share     group.SizedBigInt
	PublicKey PublicKey
}

// wirePublicKey is PublicKey's canonical byte-level shape, shared by
// pkg/keychain and the GetPublicKeysForEncryption RPC response.
type wirePublicKey struct {
	N, K         int               `cbor:"1,keyasint"`
	Y            []byte            `cbor:"2,keyasint"`
	Y2           []byte            `cbor:"3,keyasint"`
	G2Gen        []byte            `cbor:"4,keyasint"`
	Verification map[string][]byte `cbor:"5,keyasint"`
	GroupID      group.Code        `cbor:"6,keyasint"`
}

func (pub PublicKey) MarshalBinary() ([]byte, error) {
	yb, err := pub.Y.MarshalBinary()
	if err != nil {
		return nil, err
	}
	y2b, err := pub.Y2.MarshalBinary()
	if err != nil {
		return nil, err
	}
	g2genb, err := pub.G2Gen.MarshalBinary()
	if err != nil {
		return nil, err
	}
	verification := make(map[string][]byte, len(pub.Verification))
	for id, v := range pub.Verification {
		vb, err := v.MarshalBinary()
		if err != nil {
			return nil, err
		}
		verification[string(id)] = vb
	}
	return wire.Marshal(Scheme, wirePublicKey{
		N: pub.N, K: pub.K, Y: yb, Y2: y2b, G2Gen: g2genb, Verification: verification, GroupID: pub.Group.Code(),
	})
}

// UnmarshalPublicKey decodes a wire-encoded PublicKey.
func UnmarshalPublicKey(data []byte) (PublicKey, error) {
	var w wirePublicKey
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PublicKey{}, err
	}
	g := group.ByCode(w.GroupID)
	y, err := group.UnmarshalGroupElement(g, group.SubBase, w.Y)
	if err != nil {
		return PublicKey{}, err
	}
	y2, err := group.UnmarshalGroupElement(g, group.SubExtension, w.Y2)
	if err != nil {
		return PublicKey{}, err
	}
	g2gen, err := group.UnmarshalGroupElement(g, group.SubExtension, w.G2Gen)
	if err != nil {
		return PublicKey{}, err
	}
	verification := make(map[party.ID]group.GroupElement, len(w.Verification))
	for id, vb := range w.Verification {
		v, err := group.UnmarshalGroupElement(g, group.SubBase, vb)
		if err != nil {
			return PublicKey{}, err
		}
		verification[party.ID(id)] = v
	}
	pub := PublicKey{Group: g, N: w.N, K: w.K, Y: y, Y2: y2, G2Gen: g2gen, Verification: verification}
	yb, _ := y.MarshalBinary()
	pub.KeyID = wire.DeriveKeyID(yb)
	return pub, nil
}

// wirePrivateShare is PrivateShare's canonical byte-level shape, the
// keychain file entry format.
type wirePrivateShare struct {
	ShareID   string `cbor:"1,keyasint"`
	Share     []byte `cbor:"2,keyasint"`
	PublicKey []byte `cbor:"3,keyasint"`
}

func (ps PrivateShare) MarshalBinary() ([]byte, error) {
	sb, err := ps.Share.MarshalBinary()
	if err != nil {
		return nil, err
	}
	pubb, err := ps.PublicKey.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wirePrivateShare{ShareID: string(ps.ShareID), Share: sb, PublicKey: pubb})
}

// UnmarshalPrivateShare decodes a wire-encoded PrivateShare.
func UnmarshalPrivateShare(data []byte) (PrivateShare, error) {
	var w wirePrivateShare
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PrivateShare{}, err
	}
	pub, err := UnmarshalPublicKey(w.PublicKey)
	if err != nil {
		return PrivateShare{}, err
	}
	share, err := group.UnmarshalSizedBigInt(pub.Group, w.Share)
	if err != nil {
		return PrivateShare{}, err
	}
	return PrivateShare{ShareID: party.ID(w.ShareID), Share: share, PublicKey: pub}, nil
}

// Ciphertext carries u = g2^r (the randomness element, in G2) and h_r =
// y^r (in G1), a redundant binding the pairing check verifies was derived
// from the same r as u.
type Ciphertext struct {
	Label   []byte
	CipherK []byte
	U       group.GroupElement // SubExtension
	HR      group.GroupElement // SubBase
	KeyID   wire.KeyID
}

// PartialDecryption is u_i = u^{x_i}, in G2.
type PartialDecryption struct {
	ShareID party.ID
	Ui      group.GroupElement
}

func Keygen(g group.Group, ids party.IDSlice, k int) (PublicKey, map[party.ID]PrivateShare, error) {
	if !g.SupportsPairings() {
		return PublicKey{}, nil, errs.New(errs.CurveDoesNotSupportPairings, g.String())
	}
	if k < 1 || k > len(ids) {
		return PublicKey{}, nil, errs.New(errs.InvalidParams, "threshold out of range")
	}
	poly := polynomial.NewPolynomial(g, k-1, nil)
	shares := polynomial.ShamirShare(poly, ids)

	secret := poly.Secret()
	y := secret.ActOnBase()
	g2gen := group.Base(g, group.SubExtension)
	y2, err := g2gen.Exp(secret)
	if err != nil {
		return PublicKey{}, nil, err
	}

	verification := make(map[party.ID]group.GroupElement, len(ids))
	for id, s := range shares {
		verification[id] = s.ActOnBase()
	}

	pub := PublicKey{Group: g, N: len(ids), K: k, Y: y, Y2: y2, G2Gen: g2gen, Verification: verification}
	yb, _ := y.MarshalBinary()
	pub.KeyID = wire.DeriveKeyID(yb)

	out := make(map[party.ID]PrivateShare, len(ids))
	for id, s := range shares {
		out[id] = PrivateShare{ShareID: id, Share: s, PublicKey: pub}
	}
	return pub, out, nil
}

func mask(v group.GroupElement) ([chacha20poly1305.KeySize]byte, error) {
	var symKey [chacha20poly1305.KeySize]byte
	vb, err := v.MarshalBinary()
	if err != nil {
		return symKey, err
	}
	h := sha256.Sum256(append([]byte("bz03/mask"), vb...))
	copy(symKey[:], h[:])
	return symKey, nil
}

// Encrypt implements BZ03 encryption: u = g2^r, h_r = y^r binds the
// well-formedness check, and the symmetric key is masked by H(y2^r) — the
// same G2 quantity decryptors reconstruct from k partial decryptions.
func Encrypt(pub PublicKey, label, plaintext []byte) (Ciphertext, error) {
	r := group.RandomSizedBigInt(pub.Group)
	u, err := pub.G2Gen.Exp(r)
	if err != nil {
		return Ciphertext{}, err
	}
	hr, err := pub.Y.Exp(r)
	if err != nil {
		return Ciphertext{}, err
	}
	v, err := pub.Y2.Exp(r)
	if err != nil {
		return Ciphertext{}, err
	}
	symKey, err := mask(v)
	if err != nil {
		return Ciphertext{}, err
	}
	aead, err := chacha20poly1305.New(symKey[:])
	if err != nil {
		return Ciphertext{}, errs.Wrap(errs.InternalError, err, "build aead")
	}
	cipherK := aead.Seal(nil, symKey[:chacha20poly1305.NonceSize], plaintext, label)
	return Ciphertext{Label: label, CipherK: cipherK, U: u, HR: hr, KeyID: pub.KeyID}, nil
}

// VerifyCiphertext checks e(y, u) = e(h_r, g2), i.e. that h_r was derived
// from the same r as u without revealing r.
func VerifyCiphertext(pub PublicKey, ct Ciphertext) (bool, error) {
	left, err := group.Pair(pub.Y, ct.U)
	if err != nil {
		return false, err
	}
	right, err := group.Pair(ct.HR, pub.G2Gen)
	if err != nil {
		return false, err
	}
	return left.Equal(right), nil
}

// PartialDecrypt computes u_i = u^{x_i}.
func PartialDecrypt(share PrivateShare, ct Ciphertext) (PartialDecryption, error) {
	ui, err := ct.U.Exp(share.Share)
	if err != nil {
		return PartialDecryption{}, err
	}
	return PartialDecryption{ShareID: share.ShareID, Ui: ui}, nil
}

// VerifyShare checks e(h_i, u) = e(g1, u_i).
func VerifyShare(pub PublicKey, ct Ciphertext, pd PartialDecryption) (bool, error) {
	hi, ok := pub.Verification[pd.ShareID]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}
	left, err := group.Pair(hi, ct.U)
	if err != nil {
		return false, err
	}
	right, err := group.Pair(group.Base(pub.Group, group.SubBase), pd.Ui)
	if err != nil {
		return false, err
	}
	return left.Equal(right), nil
}

// Assemble Lagrange-interpolates g2^{xr} from k valid partial decryptions,
// then derives the symmetric mask exactly as Encrypt did.
func Assemble(pub PublicKey, ct Ciphertext, shares []PartialDecryption) ([]byte, error) {
	if len(shares) < pub.K {
		return nil, errs.Newf(errs.InvalidParams, "need %d shares, got %d", pub.K, len(shares))
	}
	ids := make(party.IDSlice, 0, len(shares))
	byID := make(map[party.ID]PartialDecryption, len(shares))
	for _, s := range shares {
		ids = append(ids, s.ShareID)
		byID[s.ShareID] = s
	}
	lambdas := polynomial.Lagrange(pub.Group, ids)

	var v group.GroupElement
	first := true
	for _, id := range ids {
		term, err := byID[id].Ui.Exp(lambdas[id])
		if err != nil {
			return nil, err
		}
		if first {
			v = term
			first = false
			continue
		}
		v, err = v.Mul(term)
		if err != nil {
			return nil, err
		}
	}

	symKey, err := mask(v)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(symKey[:])
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "build aead")
	}
	plaintext, err := aead.Open(nil, symKey[:chacha20poly1305.NonceSize], ct.CipherK, ct.Label)
	if err != nil {
		return nil, errs.Wrap(errs.MACFailure, err, "aead open")
	}
	return plaintext, nil
}
