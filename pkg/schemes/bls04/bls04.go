// Package bls04 implements the Boneh–Lynn–Shacham threshold signature
// scheme: the message is hashed directly to a group
// element, each share raises it to its secret exponent, and the partial
// signatures combine by Lagrange interpolation with no further randomness
// or NIZK required — pairing equality alone verifies both a single share
// and the assembled signature.
package bls04

import (
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/polynomial"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

const Scheme = protocol.BLS04

const hashDomain = "thetacrypt/bls04/h"

// PublicKey publishes y = g2^x (SubExtension, so a single pairing check
// against the G1 signature suffices) and each share's G2 verification
// element h_i = g2^{x_i}.
type PublicKey struct {
	Group        group.Group
	N, K         int
	Y            group.GroupElement // SubExtension
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
	y, err := group.UnmarshalGroupElement(g, group.SubExtension, w.Y)
	if err != nil {
		return PublicKey{}, err
	}
	verification := make(map[party.ID]group.GroupElement, len(w.Verification))
	for id, vb := range w.Verification {
		v, err := group.UnmarshalGroupElement(g, group.SubExtension, vb)
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

// PartialSignature is sigma_i = H(m)^{x_i}, in G1.
type PartialSignature struct {
	ShareID party.ID
	Sigma   group.GroupElement
}

// Signature is the assembled sigma = H(m)^x, in G1.
type Signature struct {
	Sigma group.GroupElement
	KeyID wire.KeyID
}

// wirePartialSignature is PartialSignature's canonical byte-level shape,
// the message a node's round-1 broadcasts to the rest of the signer group.
type wirePartialSignature struct {
	ShareID string     `cbor:"1,keyasint"`
	Sigma   []byte     `cbor:"2,keyasint"`
	GroupID group.Code `cbor:"3,keyasint"`
}

func (ps PartialSignature) MarshalBinary() ([]byte, error) {
	sb, err := ps.Sigma.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wirePartialSignature{
		ShareID: string(ps.ShareID), Sigma: sb, GroupID: ps.Sigma.Group().Code(),
	})
}

func UnmarshalPartialSignature(data []byte) (PartialSignature, error) {
	var w wirePartialSignature
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PartialSignature{}, err
	}
	g := group.ByCode(w.GroupID)
	sigma, err := group.UnmarshalGroupElement(g, group.SubBase, w.Sigma)
	if err != nil {
		return PartialSignature{}, err
	}
	return PartialSignature{ShareID: party.ID(w.ShareID), Sigma: sigma}, nil
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
	g2gen := group.Base(g, group.SubExtension)
	y, err := g2gen.Exp(secret)
	if err != nil {
		return PublicKey{}, nil, err
	}

	verification := make(map[party.ID]group.GroupElement, len(ids))
	for id, s := range shares {
		vi, err := g2gen.Exp(s)
		if err != nil {
			return PublicKey{}, nil, err
		}
		verification[id] = vi
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

// hashMessage maps an arbitrary message to a G1 point, the h used
// throughout sign/verify/assemble.
func hashMessage(g group.Group, message []byte) group.GroupElement {
	return group.HashToPoint(g, group.SubBase, hashDomain, message)
}

// PartialSign computes sigma_i = H(m)^{x_i}.
func PartialSign(share PrivateShare, message []byte) (PartialSignature, error) {
	h := hashMessage(share.PublicKey.Group, message)
	sigma, err := h.Exp(share.Share)
	if err != nil {
		return PartialSignature{}, err
	}
	return PartialSignature{ShareID: share.ShareID, Sigma: sigma}, nil
}

// VerifyShare checks e(sigma_i, g2) = e(H(m), h_i).
func VerifyShare(pub PublicKey, message []byte, ps PartialSignature) (bool, error) {
	hi, ok := pub.Verification[ps.ShareID]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}
	g2gen := group.Base(pub.Group, group.SubExtension)
	left, err := group.Pair(ps.Sigma, g2gen)
	if err != nil {
		return false, err
	}
	h := hashMessage(pub.Group, message)
	right, err := group.Pair(h, hi)
	if err != nil {
		return false, err
	}
	return left.Equal(right), nil
}

// Assemble Lagrange-interpolates the k partial signatures into sigma =
// H(m)^x.
func Assemble(pub PublicKey, message []byte, shares []PartialSignature) (Signature, error) {
	if len(shares) < pub.K {
		return Signature{}, errs.Newf(errs.InvalidParams, "need %d shares, got %d", pub.K, len(shares))
	}
	ids := make(party.IDSlice, 0, len(shares))
	byID := make(map[party.ID]PartialSignature, len(shares))
	for _, s := range shares {
		ids = append(ids, s.ShareID)
		byID[s.ShareID] = s
	}
	lambdas := polynomial.Lagrange(pub.Group, ids)

	var sigma group.GroupElement
	first := true
	for _, id := range ids {
		term, err := byID[id].Sigma.Exp(lambdas[id])
		if err != nil {
			return Signature{}, err
		}
		if first {
			sigma = term
			first = false
			continue
		}
		sigma, err = sigma.Mul(term)
		if err != nil {
			return Signature{}, err
		}
	}
	return Signature{Sigma: sigma, KeyID: pub.KeyID}, nil
}

// Verify checks e(sigma, g2) = e(H(m), y) against the assembled signature.
func Verify(pub PublicKey, message []byte, sig Signature) (bool, error) {
	g2gen := group.Base(pub.Group, group.SubExtension)
	left, err := group.Pair(sig.Sigma, g2gen)
	if err != nil {
		return false, err
	}
	h := hashMessage(pub.Group, message)
	right, err := group.Pair(h, pub.Y)
	if err != nil {
		return false, err
	}
	return left.Equal(right), nil
}
