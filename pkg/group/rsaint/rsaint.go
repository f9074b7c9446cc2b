// Package rsaint implements the RSA-composite-modulus integer ring SH00
// needs. It is deliberately not unified with group.SizedBigInt: N is not
// a group order, the width is the modulus byte length rather than a
// fixed curve width, and the allowed operations (modular exponentiation
// with a known or unknown factorization) differ from discrete-log scalar
// arithmetic.
//
// Modular exponentiation reuses github.com/cronokirby/saferith.Modulus,
// a constant-time bigint well suited to this kind of composite-modulus
// arithmetic.
package rsaint

import (
	"crypto/rand"
	"math/big"

	"github.com/cronokirby/saferith"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/otiai10/primes"
)

// Modulus wraps an RSA modulus N, optionally with its (p, q) factorization
// known (the dealer/keygen path) or unknown (any verifier's path).
type Modulus struct {
	nat       *saferith.Modulus
	bitLen    int
	p, q      *big.Int // nil unless this party knows the factorization
	m         *big.Int // p' * q', nil unless factorization known
}

// NewModulusFromFactors builds a Modulus from known strong primes p=2p'+1,
// q=2q'+1.
func NewModulusFromFactors(p, q *big.Int) *Modulus {
	n := new(big.Int).Mul(p, q)
	pPrime := new(big.Int).Rsh(new(big.Int).Sub(p, big.NewInt(1)), 1)
	qPrime := new(big.Int).Rsh(new(big.Int).Sub(q, big.NewInt(1)), 1)
	m := new(big.Int).Mul(pPrime, qPrime)
	return &Modulus{
		nat:    saferith.ModulusFromNat(new(saferith.Nat).SetBig(n, n.BitLen())),
		bitLen: n.BitLen(),
		p:      p, q: q, m: m,
	}
}

// NewModulusFromN builds a Modulus with N known but not its factorization
// (the verifier's view).
func NewModulusFromN(n *big.Int) *Modulus {
	return &Modulus{
		nat:    saferith.ModulusFromNat(new(saferith.Nat).SetBig(n, n.BitLen())),
		bitLen: n.BitLen(),
	}
}

func (m *Modulus) N() *big.Int { return m.nat.Big() }

func (m *Modulus) ByteLen() int { return (m.bitLen + 7) / 8 }

// Order returns p'q', the order of the group of quadratic residues mod N.
// Only valid if the factorization is known.
func (m *Modulus) Order() (*big.Int, error) {
	if m.m == nil {
		return nil, errs.New(errs.InvalidParams, "RSA modulus order requires known factorization")
	}
	return new(big.Int).Set(m.m), nil
}

// GenStrongPrime searches for a strong prime p = 2p'+1 with p and p' both
// prime and p of the given bit length, sampling p' with crypto/rand.Prime
// and validating p' and p with github.com/otiai10/primes' IsPrime during
// RSA-flavoured keygen.
func GenStrongPrime(bits int) (*big.Int, error) {
	for {
		pPrime, err := rand.Prime(rand.Reader, bits-1)
		if err != nil {
			return nil, errs.Wrap(errs.InternalError, err, "sample prime candidate")
		}
		p := new(big.Int).Add(new(big.Int).Lsh(pPrime, 1), big.NewInt(1))
		if p.BitLen() != bits {
			continue
		}
		if !primes.IsPrime(pPrime) {
			continue
		}
		if !primes.IsPrime(p) {
			continue
		}
		return p, nil
	}
}

// Int is an element of the ring Z/NZ (or, where noted, Z/mZ for the scaled
// Shamir sharing over the RSA order).
type Int struct {
	mod *Modulus
	v   *saferith.Nat
}

// NewInt wraps v (reduced mod N) as a ring element.
func NewInt(mod *Modulus, v *big.Int) Int {
	n := new(saferith.Nat).SetBig(v, mod.bitLen+64)
	n.Mod(n, mod.nat)
	return Int{mod: mod, v: n}
}

func (x Int) Big() *big.Int { return x.v.Big() }

// Exp computes x^e mod N.
func (x Int) Exp(e *big.Int) Int {
	exp := new(saferith.Nat).SetBig(e, e.BitLen()+1)
	r := new(saferith.Nat).Exp(x.v, exp, x.mod.nat)
	return Int{mod: x.mod, v: r}
}

// Mul computes x*y mod N.
func (x Int) Mul(y Int) Int {
	r := new(saferith.Nat).ModMul(x.v, y.v, x.mod.nat)
	return Int{mod: x.mod, v: r}
}

// Inverse computes x^-1 mod N.
func (x Int) Inverse() (Int, error) {
	r := new(saferith.Nat).ModInverse(x.v, x.mod.nat)
	return Int{mod: x.mod, v: r}, nil
}

// Equal reports value equality under the same modulus.
func (x Int) Equal(y Int) bool {
	return x.mod.nat.Big().Cmp(y.mod.nat.Big()) == 0 && x.v.Eq(y.v) == 1
}

// Bytes encodes x as a big-endian fixed-width byte string, width =
// modulus byte length.
func (x Int) Bytes() []byte {
	raw := x.v.Big().Bytes()
	out := make([]byte, x.mod.ByteLen())
	copy(out[len(out)-len(raw):], raw)
	return out
}

// IntFromBytes decodes a fixed-width big-endian ring element.
func IntFromBytes(mod *Modulus, b []byte) Int {
	v := new(big.Int).SetBytes(b)
	return NewInt(mod, v)
}

// JacobiSymbol computes the Jacobi symbol (a|n), used by SH00's assemble
// step to decide whether to apply the published correction factor u.
func JacobiSymbol(a, n *big.Int) int {
	return big.Jacobi(a, n)
}
