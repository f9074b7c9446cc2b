// Package group implements the finite-field / group abstraction used
// throughout the service: a small value type identifying one of the
// supported cyclic groups, plus the GroupElement and SizedBigInt
// containers that are always tagged with the group they belong to so
// that cross-group arithmetic fails deterministically instead of
// silently producing garbage.
//
// Discrete-log groups (BLS12-381, BN254, Ed25519) are backed by
// github.com/drand/kyber, the same group abstraction drand's own
// threshold-BLS beacon uses. RSA groups are not modeled through kyber —
// see pkg/group/rsaint — since their ring structure, width, and allowed
// operations differ enough that unifying them would hide bugs rather
// than prevent them.
package group

import (
	"fmt"

	"github.com/drand/kyber"
	"github.com/drand/kyber/group/edwards25519"
	"github.com/drand/kyber/pairing"
	bls12381 "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing/bn256"
)

// Code is the small unsigned integer used for wire encoding of which
// concrete group a value belongs to.
type Code uint8

const (
	// Unspecified is the zero value; never valid on the wire.
	Unspecified Code = iota
	BLS12381Code
	BN254Code
	Ed25519Code
	RSA512Code
	RSA1024Code
	RSA2048Code
	RSA4096Code
)

func (c Code) String() string {
	switch c {
	case BLS12381Code:
		return "BLS12-381"
	case BN254Code:
		return "BN254"
	case Ed25519Code:
		return "Ed25519"
	case RSA512Code:
		return "RSA-512"
	case RSA1024Code:
		return "RSA-1024"
	case RSA2048Code:
		return "RSA-2048"
	case RSA4096Code:
		return "RSA-4096"
	default:
		return "unspecified"
	}
}

// IsRSA reports whether this code names a multiplicative-mod-N RSA group
// rather than a discrete-log group.
func (c Code) IsRSA() bool {
	switch c {
	case RSA512Code, RSA1024Code, RSA2048Code, RSA4096Code:
		return true
	default:
		return false
	}
}

// RSAModulusBits returns the bit length of N for an RSA code, or 0.
func (c Code) RSAModulusBits() int {
	switch c {
	case RSA512Code:
		return 512
	case RSA1024Code:
		return 1024
	case RSA2048Code:
		return 2048
	case RSA4096Code:
		return 4096
	default:
		return 0
	}
}

// Group is a value identifying one of the cyclic groups this service
// supports. Groups are comparable by Code and are otherwise immutable;
// the concrete kyber.Group/pairing.Suite they wrap is resolved lazily
// from a small registry so that Group itself stays a cheap value type.
type Group struct {
	code Code
}

// ByCode resolves a Code to its Group value. RSA codes resolve to a Group
// with no kyber backing (see IsRSA). Panics on an unknown code, since a
// bad code can only originate from corrupted wire data, which is caught
// earlier by pkg/wire's tag validation.
func ByCode(c Code) Group {
	if _, ok := registry[c]; !ok && !c.IsRSA() {
		panic(fmt.Sprintf("group: unknown code %d", c))
	}
	return Group{code: c}
}

func BLS12381() Group { return Group{code: BLS12381Code} }
func BN254() Group    { return Group{code: BN254Code} }
func Ed25519() Group  { return Group{code: Ed25519Code} }
func RSA512() Group   { return Group{code: RSA512Code} }
func RSA1024() Group  { return Group{code: RSA1024Code} }
func RSA2048() Group  { return Group{code: RSA2048Code} }
func RSA4096() Group  { return Group{code: RSA4096Code} }

func (g Group) Code() Code { return g.code }

func (g Group) String() string { return g.code.String() }

// Equal reports whether two Group values name the same concrete group.
func (g Group) Equal(o Group) bool { return g.code == o.code }

// IsRSA reports whether this is a multiplicative-mod-N group (SH00) as
// opposed to a discrete-log group.
func (g Group) IsRSA() bool { return g.code.IsRSA() }

// SupportsPairings reports whether e(.,.) is defined for this group.
func (g Group) SupportsPairings() bool {
	e, ok := registry[g.code]
	return ok && e.suite != nil
}

type entry struct {
	dl    kyber.Group   // base/G1 group for discrete-log, pairing-friendly or not
	suite pairing.Suite // non-nil only for pairing-friendly curves
}

var registry = map[Code]entry{
	BLS12381Code: func() entry {
		s := bls12381.NewBLS12381Suite()
		return entry{dl: s.G1(), suite: s}
	}(),
	BN254Code: func() entry {
		s := bn256.NewSuite()
		return entry{dl: s.G1(), suite: s}
	}(),
	Ed25519Code: entry{dl: edwards25519.NewBlakeSHA256Ed25519().Group},
}

// dlGroup returns the kyber base-group implementation backing g. Panics for
// RSA groups and unregistered codes — callers must check IsRSA() first.
func (g Group) dlGroup() kyber.Group {
	e, ok := registry[g.code]
	if !ok || e.dl == nil {
		panic(fmt.Sprintf("group: %s has no discrete-log representation", g.code))
	}
	return e.dl
}

// suite returns the pairing suite backing g, or nil if g does not support
// pairings.
func (g Group) suite() pairing.Suite {
	return registry[g.code].suite
}

// ScalarLen returns the fixed-width byte length of a SizedBigInt over g.
func (g Group) ScalarLen() int {
	if g.IsRSA() {
		panic("group: ScalarLen undefined for RSA groups, use rsaint")
	}
	return g.dlGroup().ScalarLen()
}
