package group

import (
	"crypto/cipher"
	"crypto/rand"

	"github.com/drand/kyber"
	"github.com/luxfi/thetacrypt/pkg/errs"
)

// SizedBigInt is a big integer parameterized by the discrete-log group it
// belongs to. All arithmetic is implicitly modulo the group's order —
// kyber.Scalar already enforces this, so SizedBigInt is a thin,
// group-tagged wrapper rather than a reimplementation.
type SizedBigInt struct {
	group Group
	s     kyber.Scalar
}

// NewSizedBigInt wraps an existing kyber.Scalar known to belong to group.
func NewSizedBigInt(group Group, s kyber.Scalar) SizedBigInt {
	return SizedBigInt{group: group, s: s}
}

// Zero returns the additive identity of group.
func Zero(group Group) SizedBigInt {
	return SizedBigInt{group: group, s: group.dlGroup().Scalar().Zero()}
}

// One returns the multiplicative identity of group.
func One(group Group) SizedBigInt {
	return SizedBigInt{group: group, s: group.dlGroup().Scalar().One()}
}

// RandomSizedBigInt samples a scalar uniformly in [0, order) for group.
func RandomSizedBigInt(group Group) SizedBigInt {
	return SizedBigInt{group: group, s: group.dlGroup().Scalar().Pick(randStream{})}
}

type randStream struct{}

func (randStream) XORKeyStream(dst, src []byte) { _, _ = rand.Read(dst) }

func (x SizedBigInt) Group() Group      { return x.group }
func (x SizedBigInt) Scalar() kyber.Scalar { return x.s }

func (x SizedBigInt) checkCompatible(y SizedBigInt) error {
	if !x.group.Equal(y.group) {
		return errs.New(errs.IncompatibleGroup, "SizedBigInt operands belong to different groups")
	}
	return nil
}

// Add returns x+y mod order.
func (x SizedBigInt) Add(y SizedBigInt) (SizedBigInt, error) {
	if err := x.checkCompatible(y); err != nil {
		return SizedBigInt{}, err
	}
	return SizedBigInt{group: x.group, s: x.group.dlGroup().Scalar().Add(x.s, y.s)}, nil
}

// Sub returns x-y mod order.
func (x SizedBigInt) Sub(y SizedBigInt) (SizedBigInt, error) {
	if err := x.checkCompatible(y); err != nil {
		return SizedBigInt{}, err
	}
	return SizedBigInt{group: x.group, s: x.group.dlGroup().Scalar().Sub(x.s, y.s)}, nil
}

// Mul returns x*y mod order (this doubles as "modular multiply", since all
// SizedBigInt arithmetic is implicitly modular).
func (x SizedBigInt) Mul(y SizedBigInt) (SizedBigInt, error) {
	if err := x.checkCompatible(y); err != nil {
		return SizedBigInt{}, err
	}
	return SizedBigInt{group: x.group, s: x.group.dlGroup().Scalar().Mul(x.s, y.s)}, nil
}

// Neg returns -x mod order.
func (x SizedBigInt) Neg() SizedBigInt {
	return SizedBigInt{group: x.group, s: x.group.dlGroup().Scalar().Neg(x.s)}
}

// Inverse returns x^-1 mod order, or an error if x is zero.
func (x SizedBigInt) Inverse() (SizedBigInt, error) {
	if x.s.Equal(x.group.dlGroup().Scalar().Zero()) {
		return SizedBigInt{}, errs.New(errs.InvalidParams, "cannot invert zero scalar")
	}
	return SizedBigInt{group: x.group, s: x.group.dlGroup().Scalar().Inv(x.s)}, nil
}

// Equal reports whether x and y are the same value in the same group.
func (x SizedBigInt) Equal(y SizedBigInt) bool {
	return x.group.Equal(y.group) && x.s.Equal(y.s)
}

// IsZero reports whether x is the additive identity.
func (x SizedBigInt) IsZero() bool {
	return x.s.Equal(x.group.dlGroup().Scalar().Zero())
}

// ActOnBase returns group-generator^x, i.e. the GroupElement obtained by
// exponentiating the group's base point by this scalar.
func (x SizedBigInt) ActOnBase() GroupElement {
	p := x.group.dlGroup().Point().Mul(x.s, nil)
	return GroupElement{group: x.group, sub: SubBase, p: p}
}

// MarshalBinary encodes x to the group's fixed scalar width.
func (x SizedBigInt) MarshalBinary() ([]byte, error) {
	b, err := x.s.MarshalBinary()
	if err != nil {
		return nil, errs.Wrap(errs.SerializationFailed, err, "marshal scalar")
	}
	return b, nil
}

// UnmarshalSizedBigInt decodes a fixed-width scalar for group.
func UnmarshalSizedBigInt(group Group, data []byte) (SizedBigInt, error) {
	s := group.dlGroup().Scalar()
	if err := s.UnmarshalBinary(data); err != nil {
		return SizedBigInt{}, errs.Wrap(errs.DeserializationFailed, err, "unmarshal scalar")
	}
	return SizedBigInt{group: group, s: s}, nil
}

// SetUint64 sets x to the given small integer, for constructing Lagrange
// x-coordinates and similar small constants.
func SetUint64(group Group, v uint64) SizedBigInt {
	s := group.dlGroup().Scalar().SetInt64(int64(v))
	return SizedBigInt{group: group, s: s}
}

var _ cipher.Stream = randStream{}
