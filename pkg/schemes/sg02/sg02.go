// Package sg02 implements the Shoup–Gennaro CCA-secure threshold ElGamal
// encryption scheme. It is a pure, stateless module: every
// exported function takes its key material as an explicit argument and
// returns a value, so the protocol-state-machine layer (pkg/protocol) can
// drive it without any package-level state.
package sg02

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

// Scheme is this package's protocol.Scheme tag, used by pkg/wire to prefix
// every serialized public key / share / ciphertext.
const Scheme = protocol.SG02

// PublicKey is the scheme's public key: the aggregate element y = g^x,
// the second generator g_bar the NIZK binds against, and the per-share
// verification elements h_i = g^{x_i}.
type PublicKey struct {
	Group        group.Group
	N, K         int
	Y            group.GroupElement   // g^x
	GBar         group.GroupElement   // second generator
	Verification map[party.ID]group.GroupElement
	KeyID        wire.KeyID
}

// PrivateShare is one node's share of the master secret, self-describing.
type PrivateShare struct {
	ShareID   party.ID
	Share     group.SizedBigInt
	PublicKey PublicKey
}

// wirePublicKey is PublicKey's canonical byte-level shape, shared by
// pkg/keychain and the GetPublicKeysForEncryption RPC response.
type wirePublicKey struct {
	N, K         int                `cbor:"1,keyasint"`
	Y            []byte             `cbor:"2,keyasint"`
	GBar         []byte             `cbor:"3,keyasint"`
	Verification map[string][]byte  `cbor:"4,keyasint"`
	GroupID      group.Code         `cbor:"5,keyasint"`
}

func (pub PublicKey) MarshalBinary() ([]byte, error) {
	yb, err := pub.Y.MarshalBinary()
	if err != nil {
		return nil, err
	}
	gbarb, err := pub.GBar.MarshalBinary()
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
		N: pub.N, K: pub.K, Y: yb, GBar: gbarb, Verification: verification, GroupID: pub.Group.Code(),
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
	gbar, err := group.UnmarshalGroupElement(g, group.SubBase, w.GBar)
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
	pub := PublicKey{Group: g, N: w.N, K: w.K, Y: y, GBar: gbar, Verification: verification}
	pub.KeyID = deriveKeyID(pub)
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

// Ciphertext is SG02's wrapper type: AEAD ciphertext bytes plus the
// algebraic commitments (u, u_bar) and NIZK (e, f) needed for partial
// decryption and verification.
type Ciphertext struct {
	Label   []byte
	CipherK []byte // AEAD-encrypted plaintext under the masked symmetric key
	U       group.GroupElement
	UBar    group.GroupElement
	E, F    group.SizedBigInt
	KeyID   wire.KeyID
}

// PartialDecryption is one node's decryption share: u_i = u^{x_i} plus a
// NIZK (e_i, f_i) of equal exponent with its verification element h_i.
type PartialDecryption struct {
	ShareID party.ID
	Ui      group.GroupElement
	Ei, Fi  group.SizedBigInt
}

// Keygen produces a master keypair and n Shamir shares of x, Shamir-shared
// over the group order.
func Keygen(g group.Group, ids party.IDSlice, k int) (PublicKey, map[party.ID]PrivateShare, error) {
	if k < 1 || k > len(ids) {
		return PublicKey{}, nil, errs.New(errs.InvalidParams, "threshold out of range")
	}
	poly := polynomial.NewPolynomial(g, k-1, nil)
	shares := polynomial.ShamirShare(poly, ids)

	y := poly.Secret().ActOnBase()
	gBar := group.RandomSizedBigInt(g).ActOnBase()

	verification := make(map[party.ID]group.GroupElement, len(ids))
	for id, s := range shares {
		verification[id] = s.ActOnBase()
	}

	pub := PublicKey{Group: g, N: len(ids), K: k, Y: y, GBar: gBar, Verification: verification}
	pub.KeyID = deriveKeyID(pub)

	out := make(map[party.ID]PrivateShare, len(ids))
	for id, s := range shares {
		out[id] = PrivateShare{ShareID: id, Share: s, PublicKey: pub}
	}
	return pub, out, nil
}

func deriveKeyID(pub PublicKey) wire.KeyID {
	yb, _ := pub.Y.MarshalBinary()
	gb, _ := pub.GBar.MarshalBinary()
	buf := append(append([]byte{}, yb...), gb...)
	for _, id := range pub.ShareIDsSorted() {
		hb, _ := pub.Verification[id].MarshalBinary()
		buf = append(buf, hb...)
	}
	return wire.DeriveKeyID(buf)
}

// ShareIDsSorted returns the public key's share-ids in deterministic
// order, used both for key-id derivation and the default signer group.
func (pub PublicKey) ShareIDsSorted() party.IDSlice {
	ids := make(party.IDSlice, 0, len(pub.Verification))
	for id := range pub.Verification {
		ids = append(ids, id)
	}
	return ids.Sorted()
}

// Encrypt implements SG02 encryption: pick r; u = g^r; derive the mask
// H = sha256("sg02/mask" || y^r) and use it directly as the
// chacha20poly1305 key (its first 12 bytes as the nonce), sealing the
// plaintext with the label as AEAD associated data, so only someone who
// can recover y^r, i.e. via threshold decryption, can open it; bind with
// a Chaum–Pedersen NIZK of dlog-equality between (g, u) and
// (g_bar, u_bar).
func Encrypt(pub PublicKey, label, plaintext []byte) (Ciphertext, error) {
	g := pub.Group
	r := group.RandomSizedBigInt(g)
	u := r.ActOnBase()
	uBar, err := pub.GBar.Exp(r)
	if err != nil {
		return Ciphertext{}, err
	}

	yr, err := pub.Y.Exp(r)
	if err != nil {
		return Ciphertext{}, err
	}
	yrBytes, err := yr.MarshalBinary()
	if err != nil {
		return Ciphertext{}, err
	}
	mask := sha256.Sum256(append([]byte("sg02/mask"), yrBytes...))

	var symKey [chacha20poly1305.KeySize]byte
	copy(symKey[:], mask[:])
	aead, err := chacha20poly1305.New(symKey[:])
	if err != nil {
		return Ciphertext{}, errs.Wrap(errs.InternalError, err, "build aead")
	}
	nonce := mask[:chacha20poly1305.NonceSize]
	cipherK := aead.Seal(nil, nonce, plaintext, label)

	// NIZK of equal exponent r between (g, u) and (g_bar, u_bar).
	s := group.RandomSizedBigInt(g)
	w := s.ActOnBase()
	wBar, err := pub.GBar.Exp(s)
	if err != nil {
		return Ciphertext{}, err
	}
	e := challenge(label, u, uBar, w, wBar, cipherK)
	er, err := e.Mul(r)
	if err != nil {
		return Ciphertext{}, err
	}
	f, err := s.Add(er)
	if err != nil {
		return Ciphertext{}, err
	}

	return Ciphertext{Label: label, CipherK: cipherK, U: u, UBar: uBar, E: e, F: f, KeyID: pub.KeyID}, nil
}

func challenge(label []byte, u, uBar, w, wBar group.GroupElement, cipherK []byte) group.SizedBigInt {
	ub, _ := u.MarshalBinary()
	ubarb, _ := uBar.MarshalBinary()
	wb, _ := w.MarshalBinary()
	wbarb, _ := wBar.MarshalBinary()
	buf := make([]byte, 0, len(label)+len(ub)+len(ubarb)+len(wb)+len(wbarb)+len(cipherK))
	buf = append(buf, label...)
	buf = append(buf, ub...)
	buf = append(buf, ubarb...)
	buf = append(buf, wb...)
	buf = append(buf, wbarb...)
	buf = append(buf, cipherK...)
	return group.HashToScalarSHA256(u.Group(), "sg02/nizk-challenge", buf)
}

// VerifyCiphertext recomputes the NIZK challenge and checks it against the
// published (e, f).
func VerifyCiphertext(pub PublicKey, ct Ciphertext) (bool, error) {
	base := group.Base(pub.Group, group.SubBase)
	gF, err := base.Exp(ct.F)
	if err != nil {
		return false, err
	}
	uE, err := ct.U.Exp(ct.E)
	if err != nil {
		return false, err
	}
	w, err := gF.Div(uE)
	if err != nil {
		return false, err
	}

	gBarF, err := pub.GBar.Exp(ct.F)
	if err != nil {
		return false, err
	}
	uBarE, err := ct.UBar.Exp(ct.E)
	if err != nil {
		return false, err
	}
	wBar, err := gBarF.Div(uBarE)
	if err != nil {
		return false, err
	}

	e2 := challenge(ct.Label, ct.U, ct.UBar, w, wBar, ct.CipherK)
	return e2.Equal(ct.E), nil
}

// PartialDecrypt computes u_i = u^{x_i} and a NIZK (e_i, f_i) proving
// log_g(h_i) = log_u(u_i) without revealing x_i.
func PartialDecrypt(share PrivateShare, ct Ciphertext) (PartialDecryption, error) {
	g := share.PublicKey.Group
	ui, err := ct.U.Exp(share.Share)
	if err != nil {
		return PartialDecryption{}, err
	}
	hi := share.PublicKey.Verification[share.ShareID]

	si := group.RandomSizedBigInt(g)
	wi := si.ActOnBase()
	wiBar, err := ct.U.Exp(si)
	if err != nil {
		return PartialDecryption{}, err
	}
	ei := shareChallenge(ct.U, ui, hi, wi, wiBar)
	eix, err := ei.Mul(share.Share)
	if err != nil {
		return PartialDecryption{}, err
	}
	fi, err := si.Add(eix)
	if err != nil {
		return PartialDecryption{}, err
	}
	return PartialDecryption{ShareID: share.ShareID, Ui: ui, Ei: ei, Fi: fi}, nil
}

func shareChallenge(u, ui, hi, wi, wiBar group.GroupElement) group.SizedBigInt {
	ub, _ := u.MarshalBinary()
	uib, _ := ui.MarshalBinary()
	hib, _ := hi.MarshalBinary()
	wib, _ := wi.MarshalBinary()
	wibarb, _ := wiBar.MarshalBinary()
	buf := append(append(append(append(append([]byte{}, ub...), uib...), hib...), wib...), wibarb...)
	return group.HashToScalarSHA256(u.Group(), "sg02/share-challenge", buf)
}

// VerifyShare checks a PartialDecryption against the ciphertext and the
// issuing share's verification element.
func VerifyShare(pub PublicKey, ct Ciphertext, pd PartialDecryption) (bool, error) {
	hi, ok := pub.Verification[pd.ShareID]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}
	base := group.Base(pub.Group, group.SubBase)
	gFi, err := base.Exp(pd.Fi)
	if err != nil {
		return false, err
	}
	hiEi, err := hi.Exp(pd.Ei)
	if err != nil {
		return false, err
	}
	wi, err := gFi.Div(hiEi)
	if err != nil {
		return false, err
	}

	uFi, err := ct.U.Exp(pd.Fi)
	if err != nil {
		return false, err
	}
	uiEi, err := pd.Ui.Exp(pd.Ei)
	if err != nil {
		return false, err
	}
	wiBar, err := uFi.Div(uiEi)
	if err != nil {
		return false, err
	}

	e2 := shareChallenge(ct.U, pd.Ui, hi, wi, wiBar)
	return e2.Equal(pd.Ei), nil
}

// Assemble Lagrange-interpolates u^x from k valid partial decryptions,
// recovers the symmetric key mask, and AEAD-decrypts the plaintext.
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

	var ux group.GroupElement
	first := true
	for _, id := range ids {
		term, err := byID[id].Ui.Exp(lambdas[id])
		if err != nil {
			return nil, err
		}
		if first {
			ux = term
			first = false
			continue
		}
		ux, err = ux.Mul(term)
		if err != nil {
			return nil, err
		}
	}

	uxBytes, err := ux.MarshalBinary()
	if err != nil {
		return nil, err
	}
	mask := sha256.Sum256(append([]byte("sg02/mask"), uxBytes...))
	var symKey [chacha20poly1305.KeySize]byte
	copy(symKey[:], mask[:])
	aead, err := chacha20poly1305.New(symKey[:])
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "build aead")
	}
	nonce := mask[:chacha20poly1305.NonceSize]
	plaintext, err := aead.Open(nil, nonce, ct.CipherK, ct.Label)
	if err != nil {
		return nil, errs.Wrap(errs.MACFailure, err, "aead open")
	}
	return plaintext, nil
}

// wireCiphertext is the canonical byte-level shape of a Ciphertext: group
// elements and scalars reduced to their fixed-width native encodings
// before CBOR wraps the sequence, since kyber's Point/Scalar types do not
// implement cbor.Marshaler directly.
type wireCiphertext struct {
	Label   []byte `cbor:"1,keyasint"`
	CipherK []byte `cbor:"2,keyasint"`
	U       []byte `cbor:"3,keyasint"`
	UBar    []byte `cbor:"4,keyasint"`
	E       []byte `cbor:"5,keyasint"`
	F       []byte `cbor:"6,keyasint"`
	GroupID group.Code `cbor:"7,keyasint"`
	KeyID   string     `cbor:"8,keyasint"`
}

// MarshalBinary encodes ct in the canonical (scheme_tag, inner_bytes) form.
func (ct Ciphertext) MarshalBinary() ([]byte, error) {
	ub, err := ct.U.MarshalBinary()
	if err != nil {
		return nil, err
	}
	ubarb, err := ct.UBar.MarshalBinary()
	if err != nil {
		return nil, err
	}
	eb, err := ct.E.MarshalBinary()
	if err != nil {
		return nil, err
	}
	fb, err := ct.F.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wireCiphertext{
		Label: ct.Label, CipherK: ct.CipherK, U: ub, UBar: ubarb, E: eb, F: fb,
		GroupID: ct.U.Group().Code(), KeyID: string(ct.KeyID),
	})
}

// UnmarshalCiphertext decodes a wire-encoded Ciphertext, rejecting any
// scheme-tag mismatch with DeserializationFailed.
func UnmarshalCiphertext(data []byte) (Ciphertext, error) {
	var w wireCiphertext
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return Ciphertext{}, err
	}
	g := group.ByCode(w.GroupID)
	u, err := group.UnmarshalGroupElement(g, group.SubBase, w.U)
	if err != nil {
		return Ciphertext{}, err
	}
	uBar, err := group.UnmarshalGroupElement(g, group.SubBase, w.UBar)
	if err != nil {
		return Ciphertext{}, err
	}
	e, err := group.UnmarshalSizedBigInt(g, w.E)
	if err != nil {
		return Ciphertext{}, err
	}
	f, err := group.UnmarshalSizedBigInt(g, w.F)
	if err != nil {
		return Ciphertext{}, err
	}
	return Ciphertext{
		Label: w.Label, CipherK: w.CipherK, U: u, UBar: uBar, E: e, F: f, KeyID: wire.KeyID(w.KeyID),
	}, nil
}

// wirePartialDecryption is the canonical byte-level shape of a
// PartialDecryption, the message a node's round-1 broadcasts to the rest of
// the signer group (pkg/protocol.ThresholdRound1/2).
type wirePartialDecryption struct {
	ShareID string     `cbor:"1,keyasint"`
	Ui      []byte     `cbor:"2,keyasint"`
	Ei      []byte     `cbor:"3,keyasint"`
	Fi      []byte     `cbor:"4,keyasint"`
	GroupID group.Code `cbor:"5,keyasint"`
}

// MarshalBinary encodes pd in the canonical (scheme_tag, inner_bytes) form.
func (pd PartialDecryption) MarshalBinary() ([]byte, error) {
	uib, err := pd.Ui.MarshalBinary()
	if err != nil {
		return nil, err
	}
	eib, err := pd.Ei.MarshalBinary()
	if err != nil {
		return nil, err
	}
	fib, err := pd.Fi.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wirePartialDecryption{
		ShareID: string(pd.ShareID), Ui: uib, Ei: eib, Fi: fib, GroupID: pd.Ui.Group().Code(),
	})
}

// UnmarshalPartialDecryption decodes a wire-encoded PartialDecryption.
func UnmarshalPartialDecryption(data []byte) (PartialDecryption, error) {
	var w wirePartialDecryption
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PartialDecryption{}, err
	}
	g := group.ByCode(w.GroupID)
	ui, err := group.UnmarshalGroupElement(g, group.SubBase, w.Ui)
	if err != nil {
		return PartialDecryption{}, err
	}
	ei, err := group.UnmarshalSizedBigInt(g, w.Ei)
	if err != nil {
		return PartialDecryption{}, err
	}
	fi, err := group.UnmarshalSizedBigInt(g, w.Fi)
	if err != nil {
		return PartialDecryption{}, err
	}
	return PartialDecryption{ShareID: party.ID(w.ShareID), Ui: ui, Ei: ei, Fi: fi}, nil
}
