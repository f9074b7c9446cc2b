package protocol

import (
	"github.com/luxfi/thetacrypt/internal/round"
	"github.com/luxfi/thetacrypt/pkg/party"
)

// Message is the network envelope for one round.Message, carrying the
// instance-routing metadata (SSID, protocol id, round number) that
// internal/orchestrator needs to route it without understanding the
// scheme-specific Content payload.
type Message struct {
	SSID                  []byte
	From                  party.ID
	To                    []party.ID
	Protocol              string
	RoundNumber           round.Number
	Data                  []byte
	Broadcast             bool
	BroadcastVerification []byte
}

// IsFor reports whether id is an intended recipient: an empty To list
// means "broadcast to everyone".
func (m *Message) IsFor(id party.ID) bool {
	if len(m.To) == 0 {
		return true
	}
	for _, t := range m.To {
		if t == id {
			return true
		}
	}
	return false
}

// Error wraps a protocol abort with the culprits identified, if any.
type Error struct {
	Culprits []party.ID
	Err      error
}

func (e Error) Error() string {
	if len(e.Culprits) == 0 {
		return e.Err.Error()
	}
	s := e.Err.Error() + " (culprits:"
	for _, c := range e.Culprits {
		s += " " + string(c)
	}
	return s + ")"
}

func (e Error) Unwrap() error { return e.Err }
