package frost_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/schemes/frost"
)

// runRound drives a set of MultiHandlers to completion by fanning each
// one's outbound messages out to every other handler, exactly the way
// internal/orchestrator's gossip router does in production. It returns
// the session's derived SSID, read off any outbound message, since that
// hash (not the literal session-id bytes passed to NewMultiHandler) is
// what VerifyShare and Assemble need.
func runRound(t *testing.T, handlers map[party.ID]*protocol.MultiHandler) []byte {
	t.Helper()
	var ssid []byte
	var mu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		chans := make(map[party.ID]<-chan *protocol.Message, len(handlers))
		for id, h := range handlers {
			chans[id] = h.Listen()
		}
		remaining := len(chans)
		for remaining > 0 {
			for from, ch := range chans {
				select {
				case msg, ok := <-ch:
					if !ok {
						delete(chans, from)
						remaining--
						continue
					}
					mu.Lock()
					if ssid == nil {
						ssid = msg.SSID
					}
					mu.Unlock()
					for to, h := range handlers {
						if to == from {
							continue
						}
						h.Accept(msg)
					}
				default:
				}
			}
		}
	}()
	<-done
	return ssid
}

func signWithFrost(t *testing.T, ids party.IDSlice, threshold int, shares map[party.ID]frost.PrivateShare, precompute map[party.ID]*frost.PrecomputeStack, message []byte) (map[party.ID]frost.PartialSignature, []byte) {
	t.Helper()
	handlers := make(map[party.ID]*protocol.MultiHandler, len(ids))
	for _, id := range ids {
		proto := frost.Protocol{Share: shares[id]}
		if precompute != nil {
			proto.Precompute = precompute[id]
		}
		cfg := protocol.Config{SelfID: id, PartyIDs: ids, Threshold: threshold}
		start, err := proto.Start(cfg, message)
		require.NoError(t, err)
		h, err := protocol.NewMultiHandler(start, []byte("frost-test-session"))
		require.NoError(t, err)
		handlers[id] = h
	}

	ssid := runRound(t, handlers)

	out := make(map[party.ID]frost.PartialSignature, len(ids))
	for id, h := range handlers {
		result, err := h.Result()
		require.NoError(t, err, "party %s", id)
		ps, ok := result.(frost.PartialSignature)
		require.True(t, ok)
		out[id] = ps
	}
	return out, ssid
}

func TestSignVerifyAssembleWithFreshNonces(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 3

	pub, shares, err := frost.Keygen(g, ids, threshold)
	require.NoError(t, err)

	message := []byte("frost fresh-nonce message")
	parts, ssid := signWithFrost(t, ids, threshold, shares, nil, message)
	assert.Len(t, parts, len(ids))

	for id := range parts {
		ok, err := frost.VerifyShare(pub, ssid, message, parts, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	sig, err := frost.Assemble(pub, ssid, message, parts)
	require.NoError(t, err)

	ok, err := frost.Verify(pub, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignWithPrecomputedNonces(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1", "2", "3"}
	const threshold = 3

	pub, shares, err := frost.Keygen(g, ids, threshold)
	require.NoError(t, err)

	stacks := make(map[party.ID]*frost.PrecomputeStack, len(ids))
	for _, id := range ids {
		s := frost.NewPrecomputeStack()
		s.Push(g, 2)
		stacks[id] = s
	}

	message := []byte("frost precomputed-nonce message")
	parts, ssid := signWithFrost(t, ids, threshold, shares, stacks, message)

	sig, err := frost.Assemble(pub, ssid, message, parts)
	require.NoError(t, err)
	ok, err := frost.Verify(pub, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	for id, s := range stacks {
		assert.Equal(t, 1, s.Len(), "party %s should have consumed exactly one precomputed commitment", id)
	}
}

// TestRound1FinalizeReturnsErrorOnExhaustedPrecompute exercises the fix for
// round1.Finalize: an empty precompute stack must surface
// errs.NoMoreCommitments instead of silently sampling fresh nonces, since a
// caller in precompute+sign mode needs to know it ran out.
func TestRound1FinalizeReturnsErrorOnExhaustedPrecompute(t *testing.T) {
	g := group.BLS12381()
	ids := party.IDSlice{"1"}

	_, shares, err := frost.Keygen(g, ids, 1)
	require.NoError(t, err)

	proto := frost.Protocol{Share: shares[ids[0]], Precompute: frost.NewPrecomputeStack()}
	cfg := protocol.Config{SelfID: ids[0], PartyIDs: ids, Threshold: 1}
	start, err := proto.Start(cfg, []byte("message"))
	require.NoError(t, err)

	h, err := protocol.NewMultiHandler(start, []byte("exhausted-session"))
	require.NoError(t, err)

	_, err = h.Result()
	require.Error(t, err)
	protoErr, ok := err.(protocol.Error)
	require.True(t, ok)
	assert.Equal(t, errs.NoMoreCommitments, errs.KindOf(protoErr.Err))
}
