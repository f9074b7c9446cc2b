// Package cks05 implements the Cachin–Kursawe–Shoup threshold common-coin
// scheme: partial shares are H(name)^{x_i} accompanied by a
// Chaum–Pedersen discrete-log-equality proof against the share's public
// verification element, and the assembled coin is a single bit obtained by
// hashing the interpolated group element against a fixed public mask.
package cks05

import (
	"crypto/sha256"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/polynomial"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

const Scheme = protocol.CKS05

const (
	hashDomain      = "thetacrypt/cks05/h"
	challengeDomain = "thetacrypt/cks05/challenge"
	coinMaskDomain  = "thetacrypt/cks05/coin-mask"
)

// PublicKey publishes y = g^x and each share's verification element
// h_i = g^{x_i}, both in the base group — no pairing is required since the
// well-formedness check is a plain Chaum-Pedersen DLEQ, same construction
// as sg02.
type PublicKey struct {
	Group        group.Group
	N, K         int
	Y            group.GroupElement
	Verification map[party.ID]group.GroupElement
	KeyID        wire.KeyID
}

type PrivateShare struct {
	ShareID   party.ID
	Share     group.SizedBigInt
	PublicKey PublicKey
}

// wirePublicKey is PublicKey's canonical byte-level shape, shared by
// pkg/keychain and the GetPublicKeysForSignature RPC response.
type wirePublicKey struct {
	N, K         int               `cbor:"1,keyasint"`
	Y            []byte            `cbor:"2,keyasint"`
	Verification map[string][]byte `cbor:"3,keyasint"`
	GroupID      group.Code        `cbor:"4,keyasint"`
}

func (pub PublicKey) MarshalBinary() ([]byte, error) {
	yb, err := pub.Y.MarshalBinary()
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
		N: pub.N, K: pub.K, Y: yb, Verification: verification, GroupID: pub.Group.Code(),
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
	verification := make(map[party.ID]group.GroupElement, len(w.Verification))
	for id, vb := range w.Verification {
		v, err := group.UnmarshalGroupElement(g, group.SubBase, vb)
		if err != nil {
			return PublicKey{}, err
		}
		verification[party.ID(id)] = v
	}
	pub := PublicKey{Group: g, N: w.N, K: w.K, Y: y, Verification: verification}
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

// PartialCoin is H(name)^{x_i} together with the DLEQ proof (e_i, f_i)
// that it was computed with the same exponent as h_i = g^{x_i}.
type PartialCoin struct {
	ShareID party.ID
	Ci      group.GroupElement
	E, F    group.SizedBigInt
}

// Coin is the single assembled bit.
type Coin struct {
	Bit   bool
	KeyID wire.KeyID
}

// wirePartialCoin is PartialCoin's canonical byte-level shape, the message
// a node's round-1 broadcasts to the rest of the signer group.
type wirePartialCoin struct {
	ShareID string     `cbor:"1,keyasint"`
	Ci      []byte     `cbor:"2,keyasint"`
	E       []byte     `cbor:"3,keyasint"`
	F       []byte     `cbor:"4,keyasint"`
	GroupID group.Code `cbor:"5,keyasint"`
}

func (pc PartialCoin) MarshalBinary() ([]byte, error) {
	cib, err := pc.Ci.MarshalBinary()
	if err != nil {
		return nil, err
	}
	eb, err := pc.E.MarshalBinary()
	if err != nil {
		return nil, err
	}
	fb, err := pc.F.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wirePartialCoin{
		ShareID: string(pc.ShareID), Ci: cib, E: eb, F: fb, GroupID: pc.Ci.Group().Code(),
	})
}

func UnmarshalPartialCoin(data []byte) (PartialCoin, error) {
	var w wirePartialCoin
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PartialCoin{}, err
	}
	g := group.ByCode(w.GroupID)
	ci, err := group.UnmarshalGroupElement(g, group.SubBase, w.Ci)
	if err != nil {
		return PartialCoin{}, err
	}
	e, err := group.UnmarshalSizedBigInt(g, w.E)
	if err != nil {
		return PartialCoin{}, err
	}
	f, err := group.UnmarshalSizedBigInt(g, w.F)
	if err != nil {
		return PartialCoin{}, err
	}
	return PartialCoin{ShareID: party.ID(w.ShareID), Ci: ci, E: e, F: f}, nil
}

func Keygen(g group.Group, ids party.IDSlice, k int) (PublicKey, map[party.ID]PrivateShare, error) {
	if k < 1 || k > len(ids) {
		return PublicKey{}, nil, errs.New(errs.InvalidParams, "threshold out of range")
	}
	poly := polynomial.NewPolynomial(g, k-1, nil)
	shares := polynomial.ShamirShare(poly, ids)

	secret := poly.Secret()
	y := secret.ActOnBase()

	verification := make(map[party.ID]group.GroupElement, len(ids))
	for id, s := range shares {
		verification[id] = s.ActOnBase()
	}

	pub := PublicKey{Group: g, N: len(ids), K: k, Y: y, Verification: verification}
	yb, _ := y.MarshalBinary()
	pub.KeyID = wire.DeriveKeyID(yb)

	out := make(map[party.ID]PrivateShare, len(ids))
	for id, s := range shares {
		out[id] = PrivateShare{ShareID: id, Share: s, PublicKey: pub}
	}
	return pub, out, nil
}

func hashName(g group.Group, name []byte) group.GroupElement {
	return group.HashToPoint(g, group.SubBase, hashDomain, name)
}

// challenge hashes the public values bound into the proof: h_i,
// H(name), c_i, and the two commitments w, w_bar (the base generator is
// fixed by the group and is not hashed) — the
// same binding pattern sg02's Chaum-Pedersen proof uses.
func challenge(g group.Group, hi, hname, ci, w, wBar group.GroupElement) (group.SizedBigInt, error) {
	var buf []byte
	for _, e := range []group.GroupElement{hi, hname, ci, w, wBar} {
		b, err := e.MarshalBinary()
		if err != nil {
			return group.SizedBigInt{}, err
		}
		buf = append(buf, b...)
	}
	return group.HashToScalarSHA256(g, challengeDomain, buf), nil
}

// PartialSign computes c_i = H(name)^{x_i} and a DLEQ proof that c_i and
// h_i share the exponent x_i.
func PartialSign(share PrivateShare, name []byte) (PartialCoin, error) {
	g := share.PublicKey.Group
	hname := hashName(g, name)
	ci, err := hname.Exp(share.Share)
	if err != nil {
		return PartialCoin{}, err
	}

	v := group.RandomSizedBigInt(g)
	base := group.Base(g, group.SubBase)
	w, err := base.Exp(v)
	if err != nil {
		return PartialCoin{}, err
	}
	wBar, err := hname.Exp(v)
	if err != nil {
		return PartialCoin{}, err
	}

	hi := share.PublicKey.Verification[share.ShareID]
	e, err := challenge(g, hi, hname, ci, w, wBar)
	if err != nil {
		return PartialCoin{}, err
	}
	ex, err := e.Mul(share.Share)
	if err != nil {
		return PartialCoin{}, err
	}
	f, err := v.Add(ex)
	if err != nil {
		return PartialCoin{}, err
	}

	return PartialCoin{ShareID: share.ShareID, Ci: ci, E: e, F: f}, nil
}

// VerifyShare recomputes w = g^f / h_i^e and w_bar = H(name)^f / c_i^e and
// checks the challenge binds.
func VerifyShare(pub PublicKey, name []byte, pc PartialCoin) (bool, error) {
	hi, ok := pub.Verification[pc.ShareID]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}
	g := pub.Group
	hname := hashName(g, name)
	base := group.Base(g, group.SubBase)

	gf, err := base.Exp(pc.F)
	if err != nil {
		return false, err
	}
	hie, err := hi.Exp(pc.E)
	if err != nil {
		return false, err
	}
	w, err := gf.Div(hie)
	if err != nil {
		return false, err
	}

	hnf, err := hname.Exp(pc.F)
	if err != nil {
		return false, err
	}
	cie, err := pc.Ci.Exp(pc.E)
	if err != nil {
		return false, err
	}
	wBar, err := hnf.Div(cie)
	if err != nil {
		return false, err
	}

	e, err := challenge(g, hi, hname, pc.Ci, w, wBar)
	if err != nil {
		return false, err
	}
	return e.Equal(pc.E), nil
}

// Assemble Lagrange-interpolates H(name)^x from k valid partial coins,
// then reduces it to a single bit by hashing against a fixed public mask.
func Assemble(pub PublicKey, name []byte, shares []PartialCoin) (Coin, error) {
	if len(shares) < pub.K {
		return Coin{}, errs.Newf(errs.InvalidParams, "need %d shares, got %d", pub.K, len(shares))
	}
	ids := make(party.IDSlice, 0, len(shares))
	byID := make(map[party.ID]PartialCoin, len(shares))
	for _, s := range shares {
		ids = append(ids, s.ShareID)
		byID[s.ShareID] = s
	}
	lambdas := polynomial.Lagrange(pub.Group, ids)

	var c group.GroupElement
	first := true
	for _, id := range ids {
		term, err := byID[id].Ci.Exp(lambdas[id])
		if err != nil {
			return Coin{}, err
		}
		if first {
			c = term
			first = false
			continue
		}
		c, err = c.Mul(term)
		if err != nil {
			return Coin{}, err
		}
	}

	cb, err := c.MarshalBinary()
	if err != nil {
		return Coin{}, err
	}
	h := sha256.Sum256(append([]byte(coinMaskDomain), cb...))
	return Coin{Bit: h[0]&1 == 1, KeyID: pub.KeyID}, nil
}
