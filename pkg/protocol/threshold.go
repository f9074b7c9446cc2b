package protocol

import (
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
)

// Scheme identifies one of the six threshold cryptosystems this service
// implements, covering both the encryption schemes and the coin scheme.
// The numeric value is also used as the CBOR scheme tag pkg/wire
// prefixes every serialized share/ciphertext with.
type Scheme uint8

const (
	SG02 Scheme = iota + 1
	BZ03
	BLS04
	CKS05
	SH00
	FROST
)

func (s Scheme) String() string {
	switch s {
	case SG02:
		return "SG02"
	case BZ03:
		return "BZ03"
	case BLS04:
		return "BLS04"
	case CKS05:
		return "CKS05"
	case SH00:
		return "SH00"
	case FROST:
		return "FROST"
	default:
		return "UNKNOWN"
	}
}

// Operation distinguishes the two protocol families a Scheme supports:
// threshold decryption (SG02, BZ03) and threshold signing (BLS04, CKS05,
// SH00, FROST). CKS05 produces a pseudorandom coin rather than a message
// signature but follows the same partial/assemble shape as signing.
type Operation int

const (
	OperationDecrypt Operation = iota
	OperationSign
)

// Config is the per-key material a scheme instance operates over: the
// node's own share plus enough public information to verify partials and
// assemble the final result. Concrete schemes wrap this with their own
// typed share (pkg/group.SizedBigInt for DL schemes, pkg/group/rsaint.Int
// for SH00).
type Config struct {
	Scheme    Scheme
	Group     group.Group
	SelfID    party.ID
	PartyIDs  party.IDSlice
	Threshold int
	KeyID     string
}

// Protocol is the uniform entry point internal/orchestrator uses to
// start a round.Session for a given scheme and operation. Key generation
// and resharing are out of scope, so only the operation that consumes an
// existing share is exposed.
type Protocol interface {
	Scheme() Scheme
	Operation() Operation

	// Start begins the protocol instance for the given input (a
	// plaintext-bearing ciphertext to partially decrypt, or a message to
	// partially sign); the concrete byte layout is scheme-specific.
	Start(config Config, input []byte) (StartFunc, error)
}
