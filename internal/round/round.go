// Package round implements the per-operation protocol state machine
// abstraction: every scheme's signing/decryption protocol is a sequence
// of Session values, each knowing how to validate incoming messages for
// its round and how to Finalize into the next round (or into a terminal
// Output/Abort). The same Session/Message/BroadcastRound contract covers
// all six schemes this service implements, not just one curve family.
package round

import (
	"github.com/luxfi/thetacrypt/pkg/group"
	ownhash "github.com/luxfi/thetacrypt/pkg/hash"
	"github.com/luxfi/thetacrypt/pkg/party"
)

// Number identifies a round within a protocol run. Round 0 is reserved
// for abort messages.
type Number int

// Content is the payload of a single round's message. Implementations are
// plain structs with cbor tags; RoundNumber lets the handler route an
// inbound message to the right Session without a second dispatch table.
type Content interface {
	RoundNumber() Number
}

// Message is one network message exchanged during a protocol run. An empty
// To means "every other party in the instance" (used for broadcasts).
type Message struct {
	From      party.ID
	To        party.IDSlice
	Content   Content
	Broadcast bool
}

// Hash returns a short content hash of the message, used by the handler to
// build the broadcast-verification hash chain.
func (m Message) Hash() []byte {
	h := ownhash.New()
	_ = h.WriteAny(ownhash.BytesWithDomain{TheDomain: "round.Message/From", Bytes: []byte(m.From)})
	if enc, ok := m.Content.(interface{ MarshalBinary() ([]byte, error) }); ok {
		if b, err := enc.MarshalBinary(); err == nil {
			_ = h.WriteAny(ownhash.BytesWithDomain{TheDomain: "round.Message/Content", Bytes: b})
		}
	}
	return h.Sum()
}

// Session is one round of a running protocol instance.
type Session interface {
	Number() Number
	FinalRoundNumber() Number
	SelfID() party.ID
	PartyIDs() party.IDSlice
	OtherPartyIDs() party.IDSlice
	N() int
	Threshold() int
	Group() group.Group
	ProtocolID() string
	SSID() []byte
	Hash() *ownhash.State

	// MessageContent returns an empty Content to unmarshal a non-broadcast
	// message for this round into, or nil if this round expects none.
	MessageContent() Content

	VerifyMessage(Message) error
	StoreMessage(Message) error

	// Finalize produces the next round (or a terminal Output/Abort),
	// writing any outbound messages for this round to out.
	Finalize(out chan<- *Message) (Session, error)
}

// BroadcastRound is a Session whose round 1 message must be reliably
// broadcast (echoed) before being acted on.
type BroadcastRound interface {
	Session
	BroadcastContent() Content
	StoreBroadcastMessage(Message) error
}
