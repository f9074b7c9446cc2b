package group

import (
	"github.com/drand/kyber"
	"github.com/luxfi/thetacrypt/pkg/errs"
)

// SubGroup tags which of a pairing-friendly curve's three target sets a
// GroupElement lives in: the base group, the pairing extension, or the
// pairing target. Non-pairing groups (Ed25519) only ever use SubBase.
type SubGroup uint8

const (
	SubBase SubGroup = iota
	SubExtension
	SubTarget
)

// GroupElement is a value in one of a group's target sets, tagged with both
// its Group and its SubGroup so that e.g. a G1 point can never be added to
// a G2 point by accident.
type GroupElement struct {
	group Group
	sub   SubGroup
	p     kyber.Point
}

func (e GroupElement) Group() Group       { return e.group }
func (e GroupElement) SubGroup() SubGroup { return e.sub }
func (e GroupElement) Point() kyber.Point { return e.p }

func kyberGroupFor(g Group, sub SubGroup) kyber.Group {
	if sub == SubBase {
		return g.dlGroup()
	}
	s := g.suite()
	if s == nil {
		panic("group: subgroup requested on a group without pairing support")
	}
	switch sub {
	case SubExtension:
		return s.G2()
	case SubTarget:
		return s.GT()
	default:
		panic("group: unknown subgroup")
	}
}

// Identity returns the identity element of (group, sub).
func Identity(g Group, sub SubGroup) GroupElement {
	return GroupElement{group: g, sub: sub, p: kyberGroupFor(g, sub).Point().Null()}
}

// Base returns the canonical generator of (group, sub).
func Base(g Group, sub SubGroup) GroupElement {
	return GroupElement{group: g, sub: sub, p: kyberGroupFor(g, sub).Point().Base()}
}

// Random samples a uniformly random element of (group, sub).
func Random(g Group, sub SubGroup) GroupElement {
	return GroupElement{group: g, sub: sub, p: kyberGroupFor(g, sub).Point().Pick(randStream{})}
}

func (e GroupElement) checkCompatible(o GroupElement) error {
	if !e.group.Equal(o.group) {
		return errs.New(errs.IncompatibleGroup, "group elements belong to different groups")
	}
	if e.sub != o.sub {
		return errs.New(errs.IncompatibleGroup, "group elements belong to different sub-groups")
	}
	return nil
}

// Mul is the group operation, written multiplicatively, backed by
// kyber's additive Point.Add — the same elements, different notation.
func (e GroupElement) Mul(o GroupElement) (GroupElement, error) {
	if err := e.checkCompatible(o); err != nil {
		return GroupElement{}, err
	}
	return GroupElement{group: e.group, sub: e.sub, p: kyberGroupFor(e.group, e.sub).Point().Add(e.p, o.p)}, nil
}

// Div is Mul by the inverse of o.
func (e GroupElement) Div(o GroupElement) (GroupElement, error) {
	if err := e.checkCompatible(o); err != nil {
		return GroupElement{}, err
	}
	return GroupElement{group: e.group, sub: e.sub, p: kyberGroupFor(e.group, e.sub).Point().Sub(e.p, o.p)}, nil
}

// Exp returns e^x (scalar exponentiation, i.e. scalar multiplication of the
// underlying point).
func (e GroupElement) Exp(x SizedBigInt) (GroupElement, error) {
	if !e.group.Equal(x.Group()) {
		return GroupElement{}, errs.New(errs.IncompatibleGroup, "scalar belongs to a different group than the element")
	}
	return GroupElement{group: e.group, sub: e.sub, p: kyberGroupFor(e.group, e.sub).Point().Mul(x.Scalar(), e.p)}, nil
}

// Equal reports whether e and o are the same element of the same sub-group.
func (e GroupElement) Equal(o GroupElement) bool {
	return e.group.Equal(o.group) && e.sub == o.sub && e.p.Equal(o.p)
}

// MarshalBinary encodes e using the curve's native (compressed, where
// supported) point encoding.
func (e GroupElement) MarshalBinary() ([]byte, error) {
	b, err := e.p.MarshalBinary()
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, err, "marshal group element")
	}
	return b, nil
}

// UnmarshalGroupElement decodes an element of (group, sub) from data.
func UnmarshalGroupElement(g Group, sub SubGroup, data []byte) (GroupElement, error) {
	p := kyberGroupFor(g, sub).Point()
	if err := p.UnmarshalBinary(data); err != nil {
		return GroupElement{}, errs.Wrap(errs.DeserializationFailed, err, "unmarshal group element")
	}
	return GroupElement{group: g, sub: sub, p: p}, nil
}

// Pair computes e(a, b) for a in the base group and b in the extension,
// yielding a target-group element. Returns CurveDoesNotSupportPairings if
// group is not pairing-friendly, or IncompatibleGroup if a/b aren't tagged
// correctly.
func Pair(a, b GroupElement) (GroupElement, error) {
	if !a.group.Equal(b.group) {
		return GroupElement{}, errs.New(errs.IncompatibleGroup, "pairing operands belong to different groups")
	}
	s := a.group.suite()
	if s == nil {
		return GroupElement{}, errs.New(errs.CurveDoesNotSupportPairings, a.group.String())
	}
	if a.sub != SubBase || b.sub != SubExtension {
		return GroupElement{}, errs.New(errs.IncompatibleGroup, "pairing requires a base-group and an extension-group operand")
	}
	t := s.Pair(a.p, b.p)
	return GroupElement{group: a.group, sub: SubTarget, p: t}, nil
}

// DDH reports whether e(a,b) == e(c,d), the pairing-based equality test
// used to verify well-formedness proofs (e.g. BZ03).
func DDH(a, b, c, d GroupElement) (bool, error) {
	left, err := Pair(a, b)
	if err != nil {
		return false, err
	}
	right, err := Pair(c, d)
	if err != nil {
		return false, err
	}
	return left.Equal(right), nil
}
