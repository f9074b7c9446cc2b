// Package polynomial implements Shamir secret sharing and Lagrange
// interpolation over a group.Group, so the same sharing/reconstruction
// code serves every discrete-log group this service supports instead of
// being hard-coded to one curve.
package polynomial

import (
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
)

// Polynomial is f(x) = secret + c_1*x + ... + c_{deg}*x^deg over group.
type Polynomial struct {
	g     group.Group
	coefs []group.SizedBigInt // coefs[0] is the constant term (the secret)
}

// NewPolynomial builds a random polynomial of the given degree whose
// constant term is secret (or a random value, if secret is nil).
func NewPolynomial(g group.Group, degree int, secret *group.SizedBigInt) *Polynomial {
	coefs := make([]group.SizedBigInt, degree+1)
	if secret != nil {
		coefs[0] = *secret
	} else {
		coefs[0] = group.RandomSizedBigInt(g)
	}
	for i := 1; i <= degree; i++ {
		coefs[i] = group.RandomSizedBigInt(g)
	}
	return &Polynomial{g: g, coefs: coefs}
}

// Degree returns the polynomial's degree.
func (p *Polynomial) Degree() int { return len(p.coefs) - 1 }

// Secret returns the constant term.
func (p *Polynomial) Secret() group.SizedBigInt { return p.coefs[0] }

// Evaluate computes f(x) using Horner's method.
func (p *Polynomial) Evaluate(x group.SizedBigInt) group.SizedBigInt {
	acc := p.coefs[len(p.coefs)-1]
	for i := len(p.coefs) - 2; i >= 0; i-- {
		var err error
		acc, err = acc.Mul(x)
		if err != nil {
			panic(err) // same group by construction
		}
		acc, err = acc.Add(p.coefs[i])
		if err != nil {
			panic(err)
		}
	}
	return acc
}

// ShamirShare evaluates the polynomial at each party's scalar x-coordinate:
// id i maps to x-coordinate i (the IDSlice must be the decimal share-ids
// 1..n).
func ShamirShare(p *Polynomial, ids party.IDSlice) map[party.ID]group.SizedBigInt {
	shares := make(map[party.ID]group.SizedBigInt, len(ids))
	for _, id := range ids {
		shares[id] = p.Evaluate(idScalar(p.g, id))
	}
	return shares
}

// idScalar maps a party.ID (a decimal-rendered share index) to its
// SizedBigInt x-coordinate.
func idScalar(g group.Group, id party.ID) group.SizedBigInt {
	n := parseID(id)
	return group.SetUint64(g, n)
}

func parseID(id party.ID) uint64 {
	var n uint64
	for _, c := range id {
		if c < '0' || c > '9' {
			panic("polynomial: party.ID must be a decimal share index, got " + string(id))
		}
		n = n*10 + uint64(c-'0')
	}
	return n
}

// Lagrange computes the Lagrange coefficients {lambda_i} at x=0 for the
// given set of party IDs, i.e. the weights such that
// sum_i lambda_i * f(i) == f(0) for any polynomial of degree < len(ids).
func Lagrange(g group.Group, ids party.IDSlice) map[party.ID]group.SizedBigInt {
	out := make(map[party.ID]group.SizedBigInt, len(ids))
	zero := group.SetUint64(g, 0)
	for _, i := range ids {
		xi := idScalar(g, i)
		num := group.SetUint64(g, 1)
		den := group.SetUint64(g, 1)
		for _, j := range ids {
			if j == i {
				continue
			}
			xj := idScalar(g, j)

			// num *= (0 - xj)
			diff, _ := zero.Sub(xj)
			num, _ = num.Mul(diff)

			// den *= (xi - xj)
			d, _ := xi.Sub(xj)
			den, _ = den.Mul(d)
		}
		denInv, err := den.Inverse()
		if err != nil {
			panic(err) // distinct IDs guarantee a nonzero denominator
		}
		coef, _ := num.Mul(denInv)
		out[i] = coef
	}
	return out
}
