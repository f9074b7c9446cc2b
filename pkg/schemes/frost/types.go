// Package frost implements the interactive 2-round Schnorr threshold
// signature scheme FROST: a commit round broadcasting hiding/binding
// nonce commitments, followed by a partial-sign round that combines them
// into this node's share of a Schnorr signature. Unlike the sibling
// non-interactive schemes (sg02, bz03, bls04, cks05, sh00), FROST
// genuinely needs the round/protocol.MultiHandler machinery because a
// signer cannot compute anything useful until it has seen every other
// signer's commitment.
package frost

import (
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/polynomial"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

const Scheme = protocol.FROST

const (
	rhoDomain       = "thetacrypt/frost/rho"
	challengeDomain = "thetacrypt/frost/challenge"
)

// PublicKey publishes y = g^x and each share's verification element
// h_i = g^{x_i}, exactly as sg02/cks05 do — FROST needs no pairing.
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

// Commitment is one signer's published nonce pair (D_i = g^d, E_i = g^e).
type Commitment struct {
	D, E group.GroupElement
}

// PartialSignature is z_i together with the commitment it was derived
// from, so that any party holding the full set of k partial signatures
// can recompute rho_i, R and c independently during verify/assemble.
type PartialSignature struct {
	ShareID party.ID
	Zi      group.SizedBigInt
	Di, Ei  group.GroupElement
}

// Signature is the final (R, z) Schnorr signature.
type Signature struct {
	R     group.GroupElement
	Z     group.SizedBigInt
	KeyID wire.KeyID
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

// commitmentsOf extracts the (D, E) pair each partial signature carries,
// the view computeRhoAndR needs to rebuild rho_j/R independently of
// round2's own in-memory maps.
func commitmentsOf(parts map[party.ID]PartialSignature) map[party.ID]Commitment {
	out := make(map[party.ID]Commitment, len(parts))
	for id, p := range parts {
		out[id] = Commitment{D: p.Di, E: p.Ei}
	}
	return out
}

// computeRhoAndR implements FROST's binding-factor and group-commitment
// equations: rho_j = H1(ssid || msg || commitments-hash || j),
// R = product_j(D_j * E_j^{rho_j}).
func computeRhoAndR(g group.Group, ssid, message []byte, ids party.IDSlice, commitments map[party.ID]Commitment) (map[party.ID]group.SizedBigInt, group.GroupElement, error) {
	sorted := ids.Sorted()

	var commitBuf []byte
	for _, id := range sorted {
		c := commitments[id]
		db, err := c.D.MarshalBinary()
		if err != nil {
			return nil, group.GroupElement{}, err
		}
		eb, err := c.E.MarshalBinary()
		if err != nil {
			return nil, group.GroupElement{}, err
		}
		commitBuf = append(commitBuf, db...)
		commitBuf = append(commitBuf, eb...)
	}

	rhos := make(map[party.ID]group.SizedBigInt, len(sorted))
	var r group.GroupElement
	first := true
	for _, id := range sorted {
		buf := append(append(append([]byte{}, ssid...), message...), commitBuf...)
		buf = append(buf, []byte(id)...)
		rho := group.HashToScalarSHA256(g, rhoDomain, buf)
		rhos[id] = rho

		c := commitments[id]
		eRho, err := c.E.Exp(rho)
		if err != nil {
			return nil, group.GroupElement{}, err
		}
		term, err := c.D.Mul(eRho)
		if err != nil {
			return nil, group.GroupElement{}, err
		}
		if first {
			r = term
			first = false
			continue
		}
		r, err = r.Mul(term)
		if err != nil {
			return nil, group.GroupElement{}, err
		}
	}
	return rhos, r, nil
}

// computeChallenge implements c = H2(R || Y || msg).
func computeChallenge(g group.Group, r, y group.GroupElement, message []byte) (group.SizedBigInt, error) {
	rb, err := r.MarshalBinary()
	if err != nil {
		return group.SizedBigInt{}, err
	}
	yb, err := y.MarshalBinary()
	if err != nil {
		return group.SizedBigInt{}, err
	}
	buf := append(append(append([]byte{}, rb...), yb...), message...)
	return group.HashToScalarSHA256(g, challengeDomain, buf), nil
}

// VerifyShare checks g^{z_i} = D_i * E_i^{rho_i} * h_i^{lambda_i * c} over
// the full set of partial signatures parts was drawn from.
func VerifyShare(pub PublicKey, ssid, message []byte, parts map[party.ID]PartialSignature, id party.ID) (bool, error) {
	ps, ok := parts[id]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}
	hi, ok := pub.Verification[id]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}

	ids := make(party.IDSlice, 0, len(parts))
	for pid := range parts {
		ids = append(ids, pid)
	}
	rhos, R, err := computeRhoAndR(pub.Group, ssid, message, ids, commitmentsOf(parts))
	if err != nil {
		return false, err
	}
	lambdas := polynomial.Lagrange(pub.Group, ids)

	base := group.Base(pub.Group, group.SubBase)
	gz, err := base.Exp(ps.Zi)
	if err != nil {
		return false, err
	}

	eRho, err := ps.Ei.Exp(rhos[id])
	if err != nil {
		return false, err
	}
	lhsTerm, err := ps.Di.Mul(eRho)
	if err != nil {
		return false, err
	}

	c, err := computeChallenge(pub.Group, R, pub.Y, message)
	if err != nil {
		return false, err
	}
	lambdaC, err := lambdas[id].Mul(c)
	if err != nil {
		return false, err
	}
	hiTerm, err := hi.Exp(lambdaC)
	if err != nil {
		return false, err
	}
	rhs, err := lhsTerm.Mul(hiTerm)
	if err != nil {
		return false, err
	}

	return gz.Equal(rhs), nil
}

// Assemble sums the k partial z_i (no Lagrange scaling needed: each z_i
// already folds in its own lambda_i * x_i * c term) against the R fixed by
// the commitment set.
func Assemble(pub PublicKey, ssid, message []byte, parts map[party.ID]PartialSignature) (Signature, error) {
	if len(parts) < pub.K {
		return Signature{}, errs.Newf(errs.InvalidParams, "need %d shares, got %d", pub.K, len(parts))
	}
	ids := make(party.IDSlice, 0, len(parts))
	for id := range parts {
		ids = append(ids, id)
	}
	_, r, err := computeRhoAndR(pub.Group, ssid, message, ids, commitmentsOf(parts))
	if err != nil {
		return Signature{}, err
	}

	var z group.SizedBigInt
	first := true
	for _, id := range ids {
		if first {
			z = parts[id].Zi
			first = false
			continue
		}
		z, err = z.Add(parts[id].Zi)
		if err != nil {
			return Signature{}, err
		}
	}

	return Signature{R: r, Z: z, KeyID: pub.KeyID}, nil
}

// Verify checks g^z = R * y^c.
func Verify(pub PublicKey, message []byte, sig Signature) (bool, error) {
	c, err := computeChallenge(pub.Group, sig.R, pub.Y, message)
	if err != nil {
		return false, err
	}
	base := group.Base(pub.Group, group.SubBase)
	gz, err := base.Exp(sig.Z)
	if err != nil {
		return false, err
	}
	yc, err := pub.Y.Exp(c)
	if err != nil {
		return false, err
	}
	rhs, err := sig.R.Mul(yc)
	if err != nil {
		return false, err
	}
	return gz.Equal(rhs), nil
}
