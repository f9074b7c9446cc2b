package round

import (
	"github.com/luxfi/thetacrypt/pkg/errs"
	ownhash "github.com/luxfi/thetacrypt/pkg/hash"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/group"
)

// Info carries the fixed, round-independent parameters of a protocol
// instance: the party set, threshold, group, and protocol identity that
// every round of the same run shares.
type Info struct {
	ProtocolID       string
	FinalRoundNumber Number
	SelfID           party.ID
	PartyIDs         party.IDSlice
	Threshold        int
	Group            group.Group
}

// Helper is the struct every concrete round type embeds, providing the
// Session methods that don't vary round to round.
type Helper struct {
	info   Info
	number Number
	ssid   []byte
}

// NewSession builds the first round's Helper, deriving the instance's SSID
// by hashing the fixed protocol parameters together with the caller-
// supplied sessionID and any extra domain-separated material (e.g. the
// message being signed), so every honest node derives the same SSID for
// the same logical operation.
func NewSession(info Info, sessionID []byte, extra ...ownhash.BytesWithDomain) (*Helper, error) {
	if info.Threshold < 1 || info.Threshold > len(info.PartyIDs) {
		return nil, errs.New(errs.InvalidParams, "threshold out of range for party set")
	}
	h := ownhash.New()
	_ = h.WriteAny(ownhash.BytesWithDomain{TheDomain: "ProtocolID", Bytes: []byte(info.ProtocolID)})
	for _, id := range info.PartyIDs.Sorted() {
		_ = h.WriteAny(ownhash.BytesWithDomain{TheDomain: "PartyID", Bytes: []byte(id)})
	}
	_ = h.WriteAny(ownhash.BytesWithDomain{TheDomain: "SessionID", Bytes: sessionID})
	for _, e := range extra {
		_ = h.WriteAny(e)
	}
	return &Helper{
		info:   info,
		number: 1,
		ssid:   h.Sum(),
	}, nil
}

func (h *Helper) Number() Number           { return h.number }
func (h *Helper) FinalRoundNumber() Number { return h.info.FinalRoundNumber }
func (h *Helper) SelfID() party.ID         { return h.info.SelfID }
func (h *Helper) PartyIDs() party.IDSlice  { return h.info.PartyIDs }
func (h *Helper) N() int                   { return len(h.info.PartyIDs) }
func (h *Helper) Threshold() int           { return h.info.Threshold }
func (h *Helper) Group() group.Group       { return h.info.Group }
func (h *Helper) ProtocolID() string       { return h.info.ProtocolID }
func (h *Helper) SSID() []byte             { return h.ssid }

func (h *Helper) OtherPartyIDs() party.IDSlice {
	return h.info.PartyIDs.Remove(h.info.SelfID)
}

// Hash returns a fresh hash state seeded with this instance's SSID, used
// both internally (challenge derivation) and by the handler (broadcast
// verification hashes).
func (h *Helper) Hash() *ownhash.State {
	s := ownhash.New()
	_ = s.WriteAny(ownhash.BytesWithDomain{TheDomain: "SSID", Bytes: h.ssid})
	return s
}

// AdvanceTo returns a copy of the Helper bound to the next round number,
// for concrete round types to embed when constructing their successor.
func (h *Helper) AdvanceTo(n Number) *Helper {
	return &Helper{info: h.info, number: n, ssid: h.ssid}
}

// BroadcastMessage appends a single outbound message addressed to every
// other party in the instance (To left empty).
func (h *Helper) BroadcastMessage(out chan<- *Message, content Content) error {
	select {
	case out <- &Message{From: h.SelfID(), Content: content, Broadcast: true}:
		return nil
	default:
		return errs.New(errs.InternalError, "outbound channel full")
	}
}

// SendMessage appends a single outbound point-to-point message to out.
func (h *Helper) SendMessage(out chan<- *Message, to party.ID, content Content) error {
	select {
	case out <- &Message{From: h.SelfID(), To: party.IDSlice{to}, Content: content, Broadcast: false}:
		return nil
	default:
		return errs.New(errs.InternalError, "outbound channel full")
	}
}
