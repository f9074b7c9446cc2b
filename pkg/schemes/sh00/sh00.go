// Package sh00 implements the Shoup RSA threshold signature scheme:
// all arithmetic is modulo N = pq with p = 2p'+1, q = 2q'+1
// strong primes, shares live over the (secret) ring of integers mod
// m = p'q', and combination uses Shamir shares scaled by Delta = n! so
// Lagrange interpolation stays exact over the integers.
//
// Unlike the discrete-log schemes in sibling packages, this package cannot
// reuse pkg/polynomial: that package's Shamir/Lagrange machinery is tied
// to a group.Group's kyber scalar field, and SH00's ring mod m is neither
// a kyber group nor the same width as N (pkg/group/rsaint's own doc
// comment is explicit about keeping RSA arithmetic un-unified). Its
// scaled-integer Shamir sharing and Lagrange interpolation are
// reimplemented here directly over math/big, including the extended-Euclid
// recombination and Jacobi-symbol correction steps.
package sh00

import (
	"crypto/rand"
	"crypto/sha256"
	"math/big"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group/rsaint"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

const Scheme = protocol.SH00

const (
	hashDomain      = "thetacrypt/sh00/h"
	challengeDomain = "thetacrypt/sh00/challenge"
	// extraShareBits pads Shamir share coefficients well beyond m's bit
	// length so a share's residue mod m leaks nothing about m itself.
	extraShareBits = 128
)

// PublicKey publishes the modulus (factorization unknown to verifiers),
// the public exponent e, a random base v and each share's verification
// element v_i = v^{s_i}, Delta = n!, and the fixed public non-residue U
// plus whether it must be applied to correct the recombined signature's
// sign (the Jacobi-symbol branch) — both computed once by the dealer,
// who alone knows m, at keygen time.
type PublicKey struct {
	Mod             *rsaint.Modulus
	E               *big.Int
	N, K            int
	V               rsaint.Int
	Verification    map[party.ID]rsaint.Int
	Delta           *big.Int
	NeedsCorrection bool
	U               rsaint.Int
	KeyID           wire.KeyID
}

type PrivateShare struct {
	ShareID   party.ID
	Share     *big.Int // s_i, the dealer's scaled-integer Shamir share
	PublicKey PublicKey
}

// wirePublicKey is PublicKey's canonical byte-level shape, shared by
// pkg/keychain and the GetPublicKeysForSignature RPC response. Only the
// modulus N is carried (not its factorization, which PublicKey never
// holds): rsaint.NewModulusFromN reconstructs an equivalent *rsaint.Modulus
// for every public operation.
type wirePublicKey struct {
	N               []byte            `cbor:"1,keyasint"`
	E               []byte            `cbor:"2,keyasint"`
	NParties, K     int               `cbor:"3,keyasint"`
	V               []byte            `cbor:"4,keyasint"`
	Verification    map[string][]byte `cbor:"5,keyasint"`
	Delta           []byte            `cbor:"6,keyasint"`
	NeedsCorrection bool              `cbor:"7,keyasint"`
	U               []byte            `cbor:"8,keyasint"`
}

func (pub PublicKey) MarshalBinary() ([]byte, error) {
	verification := make(map[string][]byte, len(pub.Verification))
	for id, v := range pub.Verification {
		verification[string(id)] = v.Bytes()
	}
	var ub []byte
	if pub.NeedsCorrection {
		ub = pub.U.Bytes()
	}
	return wire.Marshal(Scheme, wirePublicKey{
		N: pub.Mod.N().Bytes(), E: pub.E.Bytes(), NParties: pub.N, K: pub.K,
		V: pub.V.Bytes(), Verification: verification, Delta: pub.Delta.Bytes(),
		NeedsCorrection: pub.NeedsCorrection, U: ub,
	})
}

// UnmarshalPublicKey decodes a wire-encoded PublicKey.
func UnmarshalPublicKey(data []byte) (PublicKey, error) {
	var w wirePublicKey
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PublicKey{}, err
	}
	mod := rsaint.NewModulusFromN(new(big.Int).SetBytes(w.N))
	verification := make(map[party.ID]rsaint.Int, len(w.Verification))
	for id, vb := range w.Verification {
		verification[party.ID(id)] = rsaint.IntFromBytes(mod, vb)
	}
	var u rsaint.Int
	if w.NeedsCorrection {
		u = rsaint.IntFromBytes(mod, w.U)
	}
	pub := PublicKey{
		Mod: mod, E: new(big.Int).SetBytes(w.E), N: w.NParties, K: w.K,
		V: rsaint.IntFromBytes(mod, w.V), Verification: verification,
		Delta: new(big.Int).SetBytes(w.Delta), NeedsCorrection: w.NeedsCorrection, U: u,
	}
	pub.KeyID = wire.DeriveKeyID(append([]byte("sh00/"), mod.N().Bytes()...))
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
	pubb, err := ps.PublicKey.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return wire.Marshal(Scheme, wirePrivateShare{ShareID: string(ps.ShareID), Share: ps.Share.Bytes(), PublicKey: pubb})
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
	return PrivateShare{ShareID: party.ID(w.ShareID), Share: new(big.Int).SetBytes(w.Share), PublicKey: pub}, nil
}

// PartialSignature is x_i = x^{2*Delta*s_i} mod N together with the
// Shoup-style NIZK (c, z) proving x_i and v_i were computed with the same
// exponent s_i.
type PartialSignature struct {
	ShareID party.ID
	Xi      rsaint.Int
	C, Z    *big.Int
}

type Signature struct {
	Y     rsaint.Int
	KeyID wire.KeyID
}

// wirePartialSignature is PartialSignature's canonical byte-level shape,
// the message a node's round-1 broadcasts to the rest of the signer group.
// Unlike the discrete-log schemes, reconstructing Xi needs the modulus,
// which the caller already holds as part of PublicKey — so, unlike
// group.UnmarshalGroupElement's embedded group.Code, the modulus is passed
// in explicitly rather than carried on the wire.
type wirePartialSignature struct {
	ShareID string `cbor:"1,keyasint"`
	Xi      []byte `cbor:"2,keyasint"`
	C       []byte `cbor:"3,keyasint"`
	Z       []byte `cbor:"4,keyasint"`
}

func (ps PartialSignature) MarshalBinary() ([]byte, error) {
	return wire.Marshal(Scheme, wirePartialSignature{
		ShareID: string(ps.ShareID), Xi: ps.Xi.Bytes(), C: ps.C.Bytes(), Z: ps.Z.Bytes(),
	})
}

func UnmarshalPartialSignature(mod *rsaint.Modulus, data []byte) (PartialSignature, error) {
	var w wirePartialSignature
	if err := wire.Unmarshal(data, Scheme, &w); err != nil {
		return PartialSignature{}, err
	}
	return PartialSignature{
		ShareID: party.ID(w.ShareID),
		Xi:      rsaint.IntFromBytes(mod, w.Xi),
		C:       new(big.Int).SetBytes(w.C),
		Z:       new(big.Int).SetBytes(w.Z),
	}, nil
}

func factorial(n int) *big.Int {
	f := big.NewInt(1)
	for i := int64(2); i <= int64(n); i++ {
		f.Mul(f, big.NewInt(i))
	}
	return f
}

// nonResidue searches small odd integers for one with Jacobi symbol -1
// mod N, the fixed public correction factor u.
func nonResidue(mod *rsaint.Modulus) rsaint.Int {
	n := mod.N()
	for c := int64(2); ; c++ {
		cand := big.NewInt(c)
		if rsaint.JacobiSymbol(cand, n) == -1 {
			return rsaint.NewInt(mod, cand)
		}
	}
}

// Keygen runs the dealer's side: strong-prime RSA modulus generation,
// master-secret derivation d = e^{-1} mod m, scaled-integer Shamir sharing
// of d, and publication of the per-share verification elements.
func Keygen(bits int, e int64, ids party.IDSlice, k int) (PublicKey, map[party.ID]PrivateShare, error) {
	if k < 1 || k > len(ids) {
		return PublicKey{}, nil, errs.New(errs.InvalidParams, "threshold out of range")
	}
	p, err := rsaint.GenStrongPrime(bits / 2)
	if err != nil {
		return PublicKey{}, nil, err
	}
	q, err := rsaint.GenStrongPrime(bits / 2)
	if err != nil {
		return PublicKey{}, nil, err
	}
	mod := rsaint.NewModulusFromFactors(p, q)
	m, err := mod.Order()
	if err != nil {
		return PublicKey{}, nil, err
	}
	eBig := big.NewInt(e)
	d := new(big.Int).ModInverse(eBig, m)
	if d == nil {
		return PublicKey{}, nil, errs.New(errs.InvalidParams, "public exponent not invertible mod m")
	}

	shares, err := shamirShareInt(d, k-1, ids, m.BitLen()+extraShareBits)
	if err != nil {
		return PublicKey{}, nil, err
	}

	vInt, err := rand.Int(rand.Reader, mod.N())
	if err != nil {
		return PublicKey{}, nil, errs.Wrap(errs.InternalError, err, "sample v")
	}
	vInt.Mul(vInt, vInt) // force v into the quadratic-residue subgroup
	v := rsaint.NewInt(mod, vInt)

	verification := make(map[party.ID]rsaint.Int, len(ids))
	for id, s := range shares {
		verification[id] = v.Exp(s)
	}

	needsCorrection := rsaint.JacobiSymbol(m, mod.N()) == -1
	u := rsaint.Int{}
	if needsCorrection {
		u = nonResidue(mod)
	}

	pub := PublicKey{
		Mod: mod, E: eBig, N: len(ids), K: k, V: v, Verification: verification,
		Delta: factorial(len(ids)), NeedsCorrection: needsCorrection, U: u,
	}
	pub.KeyID = wire.DeriveKeyID(append([]byte("sh00/"), mod.N().Bytes()...))

	out := make(map[party.ID]PrivateShare, len(ids))
	for id, s := range shares {
		out[id] = PrivateShare{ShareID: id, Share: s, PublicKey: pub}
	}
	return pub, out, nil
}

// shamirShareInt builds a random integer polynomial of the given degree
// with constant term secret and evaluates it at each party's decimal
// index: shares are Shamir-shared over the ring of integers mod m
// (coefficients are sampled far wider than m so a single share's value
// statistically hides m).
func shamirShareInt(secret *big.Int, degree int, ids party.IDSlice, coefBits int) (map[party.ID]*big.Int, error) {
	coefs := make([]*big.Int, degree+1)
	coefs[0] = secret
	for i := 1; i <= degree; i++ {
		c, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), uint(coefBits)))
		if err != nil {
			return nil, errs.Wrap(errs.InternalError, err, "sample share coefficient")
		}
		coefs[i] = c
	}
	out := make(map[party.ID]*big.Int, len(ids))
	for _, id := range ids {
		x := parseIndex(id)
		acc := new(big.Int).Set(coefs[degree])
		for i := degree - 1; i >= 0; i-- {
			acc.Mul(acc, big.NewInt(x))
			acc.Add(acc, coefs[i])
		}
		out[id] = acc
	}
	return out, nil
}

func parseIndex(id party.ID) int64 {
	var n int64
	for _, c := range id {
		if c < '0' || c > '9' {
			panic("sh00: party.ID must be a decimal share index, got " + string(id))
		}
		n = n*10 + int64(c-'0')
	}
	return n
}

// scaledLagrange computes, for each id in ids, the exact integer
// 2*Delta*lambda_i(0) — the numerator/denominator always divides evenly
// because Delta = n! is a multiple of every pairwise difference's
// denominator, the classical reason Shoup's scheme scales by n!.
func scaledLagrange(ids party.IDSlice, delta *big.Int) map[party.ID]*big.Int {
	two := big.NewInt(2)
	out := make(map[party.ID]*big.Int, len(ids))
	for _, i := range ids {
		xi := parseIndex(i)
		num := new(big.Int).Set(delta)
		num.Mul(num, two)
		den := big.NewInt(1)
		for _, j := range ids {
			if j == i {
				continue
			}
			xj := parseIndex(j)
			num.Mul(num, big.NewInt(-xj))
			den.Mul(den, big.NewInt(xi-xj))
		}
		num.Div(num, den)
		out[i] = num
	}
	return out
}

func hashToRing(mod *rsaint.Modulus, message []byte) rsaint.Int {
	out := make([]byte, 0, mod.ByteLen()+32)
	var counter uint32
	for len(out) < mod.ByteLen()+16 {
		h := sha256.New()
		h.Write([]byte(hashDomain))
		h.Write(message)
		var ctr [4]byte
		ctr[0] = byte(counter >> 24)
		ctr[1] = byte(counter >> 16)
		ctr[2] = byte(counter >> 8)
		ctr[3] = byte(counter)
		h.Write(ctr[:])
		out = append(out, h.Sum(nil)...)
		counter++
	}
	return rsaint.NewInt(mod, new(big.Int).SetBytes(out))
}

func challenge(mod *rsaint.Modulus, elems ...rsaint.Int) *big.Int {
	h := sha256.New()
	h.Write([]byte(challengeDomain))
	for _, e := range elems {
		h.Write(e.Bytes())
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// PartialSign computes x_i = x^{2*Delta*s_i} mod N and a Chaum-Pedersen
// style proof that x_i and v_i = v^{s_i} share the exponent s_i.
func PartialSign(share PrivateShare, message []byte) (PartialSignature, error) {
	pub := share.PublicKey
	x := hashToRing(pub.Mod, message)

	exp := new(big.Int).Lsh(pub.Delta, 1)
	exp.Mul(exp, share.Share)
	xi := x.Exp(exp)

	r, err := rand.Int(rand.Reader, new(big.Int).Lsh(pub.Mod.N(), 128))
	if err != nil {
		return PartialSignature{}, errs.Wrap(errs.InternalError, err, "sample proof nonce")
	}
	a := x.Exp(r)
	b := pub.V.Exp(r)
	c := challenge(pub.Mod, x, xi, pub.V, pub.Verification[share.ShareID], a, b)

	z := new(big.Int).Mul(c, share.Share)
	z.Add(z, r)

	return PartialSignature{ShareID: share.ShareID, Xi: xi, C: c, Z: z}, nil
}

// expSigned computes x^e mod N for a possibly-negative e.
func expSigned(x rsaint.Int, e *big.Int) (rsaint.Int, error) {
	if e.Sign() >= 0 {
		return x.Exp(e), nil
	}
	inv, err := x.Inverse()
	if err != nil {
		return rsaint.Int{}, err
	}
	return inv.Exp(new(big.Int).Neg(e)), nil
}

// VerifyShare recomputes a = x^z / x_i^c and b = v^z / v_i^c and checks
// the challenge binds.
func VerifyShare(pub PublicKey, message []byte, ps PartialSignature) (bool, error) {
	vi, ok := pub.Verification[ps.ShareID]
	if !ok {
		return false, errs.New(errs.InvalidShare, "unknown share-id")
	}
	x := hashToRing(pub.Mod, message)

	xiInvC, err := expSigned(ps.Xi, new(big.Int).Neg(ps.C))
	if err != nil {
		return false, err
	}
	a := x.Exp(ps.Z).Mul(xiInvC)

	viInvC, err := expSigned(vi, new(big.Int).Neg(ps.C))
	if err != nil {
		return false, err
	}
	b := pub.V.Exp(ps.Z).Mul(viInvC)

	c := challenge(pub.Mod, x, ps.Xi, pub.V, vi, a, b)
	return c.Cmp(ps.C) == 0, nil
}

// Assemble combines k partial signatures with scaled Lagrange
// interpolation to get w = x^{4*Delta^2*d} mod N, then recovers y = x^{1/e}
// via the extended-Euclidean identity 4a + e*b = 1, applying the published
// non-residue correction when the Jacobi symbol (m|N) is -1.
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
	lambdas := scaledLagrange(ids, pub.Delta)

	var w rsaint.Int
	first := true
	for _, id := range ids {
		term, err := expSigned(byID[id].Xi, lambdas[id])
		if err != nil {
			return Signature{}, err
		}
		if first {
			w = term
			first = false
			continue
		}
		w = w.Mul(term)
	}

	four := big.NewInt(4)
	gcd := new(big.Int)
	a := new(big.Int)
	b := new(big.Int)
	gcd.GCD(a, b, four, pub.E)
	if gcd.Cmp(big.NewInt(1)) != 0 {
		return Signature{}, errs.New(errs.InternalError, "public exponent not coprime to 4")
	}

	x := hashToRing(pub.Mod, message)
	wa, err := expSigned(w, a)
	if err != nil {
		return Signature{}, err
	}
	xb, err := expSigned(x, b)
	if err != nil {
		return Signature{}, err
	}
	y := wa.Mul(xb)
	if pub.NeedsCorrection {
		y = y.Mul(pub.U)
	}

	return Signature{Y: y, KeyID: pub.KeyID}, nil
}

// Verify checks y^e == x mod N.
func Verify(pub PublicKey, message []byte, sig Signature) bool {
	x := hashToRing(pub.Mod, message)
	return sig.Y.Exp(pub.E).Equal(x)
}
