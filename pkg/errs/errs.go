// Package errs implements the node's error taxonomy: every
// scheme/protocol/orchestration error is one of a small set of Kinds, so
// that RPC adapters can map it to a standard status code with a single
// switch instead of string-matching messages.
package errs

import "github.com/pkg/errors"

// Kind is one of the error categories this service produces.
type Kind int

const (
	_ Kind = iota

	// Parameter errors.
	WrongScheme
	WrongGroup
	WrongKeyProvided
	InvalidParams
	MessageNotSpecified
	MessageAlreadySpecified

	// Cryptographic errors.
	MACFailure
	InvalidShare
	CurveDoesNotSupportPairings
	IncompatibleGroup

	// Protocol-state errors.
	WrongState
	PreviousRoundNotExecuted
	InvalidRound
	NotReadyForNextRound
	ProtocolNotFinished
	NoMoreCommitments

	// Encoding errors.
	SerializationFailed
	DeserializationFailed

	// System errors.
	IOError
	KeyNotFound
	InternalError
	Aborted
	IDNotFound
	AlreadyExists
)

func (k Kind) String() string {
	switch k {
	case WrongScheme:
		return "wrong-scheme"
	case WrongGroup:
		return "wrong-group"
	case WrongKeyProvided:
		return "wrong-key-provided"
	case InvalidParams:
		return "invalid-params"
	case MessageNotSpecified:
		return "message-not-specified"
	case MessageAlreadySpecified:
		return "message-already-specified"
	case MACFailure:
		return "mac-failure"
	case InvalidShare:
		return "invalid-share"
	case CurveDoesNotSupportPairings:
		return "curve-does-not-support-pairings"
	case IncompatibleGroup:
		return "incompatible-group"
	case WrongState:
		return "wrong-state"
	case PreviousRoundNotExecuted:
		return "previous-round-not-executed"
	case InvalidRound:
		return "invalid-round"
	case NotReadyForNextRound:
		return "not-ready-for-next-round"
	case ProtocolNotFinished:
		return "protocol-not-finished"
	case NoMoreCommitments:
		return "no-more-commitments"
	case SerializationFailed:
		return "serialization-failed"
	case DeserializationFailed:
		return "deserialization-failed"
	case IOError:
		return "io-error"
	case KeyNotFound:
		return "key-not-found"
	case InternalError:
		return "internal-error"
	case Aborted:
		return "aborted"
	case IDNotFound:
		return "id-not-found"
	case AlreadyExists:
		return "already-exists"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-kinded error that preserves a stack trace via
// github.com/pkg/errors.
type Error struct {
	Kind   Kind
	Reason string
	cause  error
}

func (e *Error) Error() string {
	if e.Reason == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Reason
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a Kind-tagged error with a stack trace attached.
func New(kind Kind, reason string) error {
	return &Error{Kind: kind, Reason: reason, cause: errors.New(reason)}
}

// Newf builds a Kind-tagged error with a formatted reason.
func Newf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Reason: errors.Errorf(format, args...).Error(), cause: errors.Errorf(format, args...)}
}

// Wrap attaches a Kind to an existing error, preserving its stack/cause.
func Wrap(kind Kind, err error, reason string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Reason: reason, cause: errors.Wrap(err, reason)}
}

// As reports whether err (or something it wraps) is an *Error, and returns it.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else InternalError.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return InternalError
}
