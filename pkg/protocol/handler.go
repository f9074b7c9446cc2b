// Package protocol drives a single protocol instance's round.Session
// sequence to completion, exposing the inbound/outbound channel pair that
// internal/orchestrator wires to the gossip/RPC layers. It runs any of
// the six schemes this service implements, including the two-round
// non-interactive ones (SG02, BZ03, BLS04, CKS05, SH00) whose round 1
// emits its own contribution unconditionally and whose round 2 collects
// and assembles. A single finalize loop drives every round uniformly:
// no round needs to emit messages before it has everything it needs.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/luxfi/thetacrypt/internal/round"
	"github.com/luxfi/thetacrypt/pkg/hash"
	"github.com/luxfi/thetacrypt/pkg/party"
)

// StartFunc creates the first round of a protocol instance. The optional
// sessionID should be unique across all protocol runs; orchestrator uses
// the instance id for this.
type StartFunc func(sessionID []byte) (round.Session, error)

// Handler is the interface internal/orchestrator drives a running instance
// through.
type Handler interface {
	Result() (interface{}, error)
	Listen() <-chan *Message
	Stop()
	CanAccept(msg *Message) bool
	Accept(msg *Message)
}

// MultiHandler runs one protocol instance end to end.
type MultiHandler struct {
	currentRound round.Session
	rounds       map[round.Number]round.Session

	err    *Error
	result interface{}

	messages        map[round.Number]map[party.ID]*Message
	broadcast       map[round.Number]map[party.ID]*Message
	broadcastHashes map[round.Number][]byte

	out chan *Message
	mtx sync.Mutex
}

// NewMultiHandler creates the instance's first round and returns a handler
// for it.
func NewMultiHandler(create StartFunc, sessionID []byte) (*MultiHandler, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}
	h := &MultiHandler{
		currentRound:    r,
		rounds:          map[round.Number]round.Session{r.Number(): r},
		messages:        make(map[round.Number]map[party.ID]*Message),
		broadcast:       make(map[round.Number]map[party.ID]*Message),
		broadcastHashes: map[round.Number][]byte{},
		out:             make(chan *Message, 2*r.N()+2),
	}
	h.initRoundStorage(r)
	h.finalize()
	return h, nil
}

// Result returns the protocol result if the instance finished
// successfully, else the abort error.
func (h *MultiHandler) Result() (interface{}, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result != nil {
		return h.result, nil
	}
	if h.err != nil {
		return nil, *h.err
	}
	return nil, errors.New("protocol: not finished")
}

// Listen returns the channel of outgoing messages; a message with
// Broadcast set must be reliably broadcast to every party. The channel is
// closed once the instance reaches a terminal state.
func (h *MultiHandler) Listen() <-chan *Message {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.out
}

// CanAccept reports whether msg is addressed to this running instance at
// its current round.
func (h *MultiHandler) CanAccept(msg *Message) bool {
	r := h.currentRound
	if msg == nil {
		return false
	}
	if !msg.IsFor(r.SelfID()) {
		return false
	}
	if msg.Protocol != r.ProtocolID() {
		return false
	}
	if !bytes.Equal(msg.SSID, r.SSID()) {
		return false
	}
	if !r.PartyIDs().Contains(msg.From) {
		return false
	}
	if msg.Data == nil {
		return false
	}
	if msg.RoundNumber > r.FinalRoundNumber() {
		return false
	}
	// reject messages for a round we've already passed, except round 0
	// (abort).
	if msg.RoundNumber < r.Number() && msg.RoundNumber > 0 {
		return false
	}
	return true
}

// Accept processes an inbound message, advancing the instance as far as
// the currently-stored messages allow. Safe for concurrent use.
func (h *MultiHandler) Accept(msg *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if !h.CanAccept(msg) || h.err != nil || h.result != nil || h.duplicate(msg) {
		return
	}

	if msg.RoundNumber == 0 {
		h.abort(fmt.Errorf("aborted by other party with error: %q", msg.Data), msg.From)
		return
	}

	h.store(msg)
	if h.currentRound.Number() != msg.RoundNumber {
		return
	}

	var err error
	if msg.Broadcast {
		err = h.verifyBroadcastMessage(msg)
	} else {
		err = h.verifyMessage(msg)
	}
	if err != nil {
		h.abort(err, msg.From)
		return
	}
	h.finalize()
}

func (h *MultiHandler) verifyBroadcastMessage(msg *Message) error {
	r, ok := h.rounds[msg.RoundNumber]
	if !ok {
		return nil
	}
	roundMsg, err := getRoundMessage(msg, r)
	if err != nil {
		return err
	}
	b, ok := r.(round.BroadcastRound)
	if !ok {
		return errors.New("got broadcast message when none was expected")
	}
	if err := b.StoreBroadcastMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if !expectsNormalMessage(r) {
		return nil
	}
	queued := h.messages[msg.RoundNumber][msg.From]
	if queued == nil {
		return nil
	}
	return h.verifyMessage(queued)
}

func (h *MultiHandler) verifyMessage(msg *Message) error {
	r, ok := h.rounds[msg.RoundNumber]
	if !ok {
		return nil
	}
	if _, isBroadcast := r.(round.BroadcastRound); isBroadcast {
		q := h.broadcast[msg.RoundNumber]
		if q == nil || q[msg.From] == nil {
			return nil
		}
	}
	roundMsg, err := getRoundMessage(msg, r)
	if err != nil {
		return err
	}
	if err := r.VerifyMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if err := r.StoreMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	return nil
}

// finalize advances the current round as far as currently-stored messages
// allow, looping until a round isn't ready yet or the instance reaches a
// terminal state.
func (h *MultiHandler) finalize() {
	for {
		if h.err != nil || h.result != nil {
			return
		}
		if !h.receivedAll() {
			return
		}
		if !h.checkBroadcastHash() {
			h.abort(errors.New("broadcast verification failed"))
			return
		}

		if next, ok := h.rounds[h.currentRound.Number()+1]; ok {
			h.currentRound = next
			h.initRoundStorage(next)
			if err := h.drainQueued(next); err != nil {
				h.abort(err, h.currentRound.SelfID())
				return
			}
			continue
		}

		out := make(chan *round.Message, h.currentRound.N()+1)
		r, err := h.currentRound.Finalize(out)
		close(out)
		if err != nil || r == nil {
			h.abort(err, h.currentRound.SelfID())
			return
		}

		if _, already := h.rounds[r.Number()]; already {
			for range out {
				// drain: Finalize already ran for this round once, its
				// messages were emitted then.
			}
			return
		}
		h.rounds[r.Number()] = r
		h.currentRound = r
		// initRoundStorage must run before the out-channel loop below: a
		// broadcast round's self-message is stored into h.broadcast[number]
		// as it is emitted, which requires that map to already exist.
		// Storing it after would leave the local node's own contribution
		// permanently missing from receivedAll()'s bookkeeping and the
		// instance would never finalize.
		h.initRoundStorage(r)

		for roundMsg := range out {
			data, err := cbor.Marshal(roundMsg.Content)
			if err != nil {
				panic(fmt.Errorf("protocol: failed to marshal round message: %w", err))
			}
			msg := &Message{
				SSID:                  r.SSID(),
				From:                  r.SelfID(),
				To:                    []party.ID(roundMsg.To),
				Protocol:              r.ProtocolID(),
				RoundNumber:           roundMsg.Content.RoundNumber(),
				Data:                  data,
				Broadcast:             roundMsg.Broadcast,
				BroadcastVerification: h.broadcastHashes[r.Number()-1],
			}
			if msg.Broadcast {
				h.store(msg)
			}
			h.out <- msg
		}

		switch R := r.(type) {
		case *round.Abort:
			h.abort(R.Err, R.Culprits...)
			return
		case *round.Output:
			h.result = R.Result
			close(h.out)
			return
		default:
		}

		if err := h.drainQueued(r); err != nil {
			h.abort(err, h.currentRound.SelfID())
			return
		}
		// loop again: the new round may already have everything it needs
		// if messages for it arrived out of order earlier.
	}
}

func (h *MultiHandler) drainQueued(r round.Session) error {
	roundNumber := r.Number()
	if _, ok := r.(round.BroadcastRound); ok {
		for id, m := range h.broadcast[roundNumber] {
			if m == nil || id == r.SelfID() {
				continue
			}
			if err := h.verifyBroadcastMessage(m); err != nil {
				return err
			}
		}
		return nil
	}
	for _, m := range h.messages[roundNumber] {
		if m == nil {
			continue
		}
		if err := h.verifyMessage(m); err != nil {
			return err
		}
	}
	return nil
}

func (h *MultiHandler) abort(err error, culprits ...party.ID) {
	if err != nil {
		h.err = &Error{Culprits: culprits, Err: err}
		select {
		case h.out <- &Message{
			SSID:     h.currentRound.SSID(),
			From:     h.currentRound.SelfID(),
			Protocol: h.currentRound.ProtocolID(),
			Data:     []byte(h.err.Error()),
		}:
		default:
		}
	}
	close(h.out)
}

// Stop cancels the instance, reporting it as aborted by the local node.
func (h *MultiHandler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.err == nil && h.result == nil {
		h.abort(errors.New("aborted by user"), h.currentRound.SelfID())
	}
}

func expectsNormalMessage(r round.Session) bool {
	return r.MessageContent() != nil
}

func (h *MultiHandler) receivedAll() bool {
	r := h.currentRound
	number := r.Number()

	if _, ok := r.(round.BroadcastRound); ok {
		if h.broadcast[number] == nil {
			return false
		}
		for _, id := range r.PartyIDs() {
			if h.broadcast[number][id] == nil {
				return false
			}
		}
		if h.broadcastHashes[number] == nil {
			state := r.Hash()
			for _, id := range r.PartyIDs() {
				msg := h.broadcast[number][id]
				_ = state.WriteAny(hash.BytesWithDomain{TheDomain: "Message", Bytes: msg.Hash()})
			}
			h.broadcastHashes[number] = state.Sum()
		}
	}

	if expectsNormalMessage(r) {
		if h.messages[number] == nil {
			return true
		}
		for _, id := range r.OtherPartyIDs() {
			if h.messages[number][id] == nil {
				return false
			}
		}
	}
	return true
}

func (h *MultiHandler) duplicate(msg *Message) bool {
	if msg.RoundNumber == 0 {
		return false
	}
	var q map[party.ID]*Message
	if msg.Broadcast {
		q = h.broadcast[msg.RoundNumber]
	} else {
		q = h.messages[msg.RoundNumber]
	}
	if q == nil {
		return true
	}
	return q[msg.From] != nil
}

func (h *MultiHandler) store(msg *Message) {
	var q map[party.ID]*Message
	if msg.Broadcast {
		q = h.broadcast[msg.RoundNumber]
	} else {
		q = h.messages[msg.RoundNumber]
	}
	if q == nil || q[msg.From] != nil {
		return
	}
	q[msg.From] = msg
}

// getRoundMessage unmarshals a raw Message into the round.Content type r
// expects, failing which the caller should abort.
func getRoundMessage(msg *Message, r round.Session) (round.Message, error) {
	var content round.Content
	if msg.Broadcast {
		b, ok := r.(round.BroadcastRound)
		if !ok {
			return round.Message{}, errors.New("got broadcast message when none was expected")
		}
		content = b.BroadcastContent()
	} else {
		content = r.MessageContent()
	}
	if err := cbor.Unmarshal(msg.Data, content); err != nil {
		return round.Message{}, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return round.Message{From: msg.From, Content: content, Broadcast: msg.Broadcast}, nil
}

// checkBroadcastHash verifies every party reported the same hash of the
// previous round's broadcast set, after receivedAll() confirms they're all
// in hand.
func (h *MultiHandler) checkBroadcastHash() bool {
	number := h.currentRound.Number()
	previousHash := h.broadcastHashes[number-1]
	if previousHash == nil {
		return true
	}
	for _, msg := range h.messages[number] {
		if msg != nil && !bytes.Equal(previousHash, msg.BroadcastVerification) {
			return false
		}
	}
	for _, msg := range h.broadcast[number] {
		if msg != nil && !bytes.Equal(previousHash, msg.BroadcastVerification) {
			return false
		}
	}
	return true
}

func (h *MultiHandler) String() string {
	return fmt.Sprintf("party: %s, protocol: %s", h.currentRound.SelfID(), h.currentRound.ProtocolID())
}

func (h *MultiHandler) initRoundStorage(r round.Session) {
	number := r.Number()
	if _, ok := r.(round.BroadcastRound); ok {
		if h.broadcast[number] == nil {
			h.broadcast[number] = make(map[party.ID]*Message, r.N())
			for _, id := range r.PartyIDs() {
				h.broadcast[number][id] = nil
			}
		}
	}
	if expectsNormalMessage(r) {
		if h.messages[number] == nil {
			h.messages[number] = make(map[party.ID]*Message, r.N()-1)
			for _, id := range r.OtherPartyIDs() {
				h.messages[number][id] = nil
			}
		}
	}
}
