package orchestrator_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luxfi/thetacrypt/internal/orchestrator"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/keychain"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/schemes/frost"
	"github.com/luxfi/thetacrypt/pkg/schemes/sg02"
)

// router simulates the gossip layer: it fans each engine's outbound
// protocol messages out to every other engine's Deliver, playing the role
// pkg/gossip.Gossip.Publish/Listen plays in a real deployment.
type router struct {
	mu      sync.RWMutex
	engines map[party.ID]*orchestrator.Engine
	ssids   map[orchestrator.InstanceID][]byte
}

func (r *router) register(id party.ID, eng *orchestrator.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[id] = eng
}

func (r *router) Publish(ctx context.Context, instanceID orchestrator.InstanceID, msg *protocol.Message) error {
	r.mu.Lock()
	if r.ssids == nil {
		r.ssids = make(map[orchestrator.InstanceID][]byte)
	}
	if _, ok := r.ssids[instanceID]; !ok {
		r.ssids[instanceID] = msg.SSID
	}
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, eng := range r.engines {
		if id == msg.From {
			continue
		}
		eng.Deliver(ctx, instanceID, msg)
	}
	return nil
}

// ssid returns the derived SSID this router observed for instanceID,
// captured off the first outbound message it routed for it.
func (r *router) ssid(instanceID orchestrator.InstanceID) []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ssids[instanceID]
}

// TestEngineDecryptEndToEnd exercises a full threshold decryption against
// real Engines wired to each other by an in-memory router instead of gossip:
// SG02 threshold 3 of 4, one node's plaintext comes back out of every
// signer's own Engine.Await call.
func TestEngineDecryptEndToEnd(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3", "4"}.Sorted()
	const threshold = 3
	signers := ids[:threshold]

	pub, shares, err := sg02.Keygen(group.BLS12381(), ids, threshold)
	require.NoError(t, err)

	label := []byte("Label 1")
	plaintext := []byte("Test message 1")
	ct, err := sg02.Encrypt(pub, label, plaintext)
	require.NoError(t, err)
	payload, err := ct.MarshalBinary()
	require.NoError(t, err)

	rt := &router{engines: make(map[party.ID]*orchestrator.Engine)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zap.NewNop()
	engines := make(map[party.ID]*orchestrator.Engine, len(signers))
	for _, id := range signers {
		kcPath := filepath.Join(t.TempDir(), string(id)+".keychain")
		entry := keychain.Entry{
			Scheme:  protocol.SG02,
			Group:   group.BLS12381().Code(),
			KeyID:   pub.KeyID,
			ShareID: id,
			Share:   shares[id],
		}
		require.NoError(t, keychain.Save(kcPath, []keychain.Entry{entry}))
		kc, err := keychain.Load(kcPath)
		require.NoError(t, err)

		eng := orchestrator.NewEngine(ctx, kc, rt, log, orchestrator.Config{})
		engines[id] = eng
		rt.register(id, eng)
	}

	cfg := protocol.Config{PartyIDs: signers, Threshold: threshold}
	var instanceIDs []orchestrator.InstanceID
	for _, id := range signers {
		c := cfg
		c.SelfID = id
		instID, err := engines[id].Submit(ctx, protocol.SG02, group.BLS12381().Code(), "", label, payload, c)
		require.NoError(t, err)
		instanceIDs = append(instanceIDs, instID)
	}

	// Every signer must derive the same instance-id from the same
	// label+payload without ever exchanging one.
	for _, id := range instanceIDs {
		assert.Equal(t, instanceIDs[0], id)
	}

	deadline := time.After(2 * time.Second)
	for _, id := range signers {
		select {
		case <-deadline:
			t.Fatalf("node %s did not finish within the deadline", id)
		default:
		}
		result, err := engines[id].Await(ctx, instanceIDs[0])
		require.NoError(t, err, "node %s", id)
		assert.Equal(t, plaintext, result)
	}
}

// TestEngineSubmitRejectsDuplicateInstance checks that submitting the
// same label+payload twice on one node is rejected rather
// than starting a second run of the same instance-id.
func TestEngineSubmitRejectsDuplicateInstance(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}.Sorted()
	const threshold = 2

	pub, shares, err := sg02.Keygen(group.BLS12381(), ids, threshold)
	require.NoError(t, err)

	label := []byte("Label 1")
	ct, err := sg02.Encrypt(pub, label, []byte("hello"))
	require.NoError(t, err)
	payload, err := ct.MarshalBinary()
	require.NoError(t, err)

	self := ids[0]
	kcPath := filepath.Join(t.TempDir(), "node-1.keychain")
	entry := keychain.Entry{
		Scheme: protocol.SG02, Group: group.BLS12381().Code(),
		KeyID: pub.KeyID, ShareID: self, Share: shares[self],
	}
	require.NoError(t, keychain.Save(kcPath, []keychain.Entry{entry}))
	kc, err := keychain.Load(kcPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt := &router{engines: make(map[party.ID]*orchestrator.Engine)}
	eng := orchestrator.NewEngine(ctx, kc, rt, zap.NewNop(), orchestrator.Config{})
	rt.register(self, eng)

	cfg := protocol.Config{SelfID: self, PartyIDs: ids[:threshold], Threshold: threshold}

	_, err = eng.Submit(ctx, protocol.SG02, group.BLS12381().Code(), "", label, payload, cfg)
	require.NoError(t, err)

	_, err = eng.Submit(ctx, protocol.SG02, group.BLS12381().Code(), "", label, payload, cfg)
	assert.Error(t, err)
}

// TestEngineBacklogsMessagesBeforeSubmit exercises Deliver's Absent path:
// two signers submit and broadcast their partial decryptions before the
// third node has even called Submit for the same instance-id, so those
// messages must sit in the registry's backlog until Submit calls Create,
// which drains them into the fresh instance's inbound channel. If the
// backlog were dropped instead of replayed, the late node would never see
// enough partials to assemble.
func TestEngineBacklogsMessagesBeforeSubmit(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}.Sorted()
	const threshold = 3
	late := ids[2]

	pub, shares, err := sg02.Keygen(group.BLS12381(), ids, threshold)
	require.NoError(t, err)

	label := []byte("Label backlog")
	plaintext := []byte("Test message backlog")
	ct, err := sg02.Encrypt(pub, label, plaintext)
	require.NoError(t, err)
	payload, err := ct.MarshalBinary()
	require.NoError(t, err)

	rt := &router{engines: make(map[party.ID]*orchestrator.Engine)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zap.NewNop()
	engines := make(map[party.ID]*orchestrator.Engine, len(ids))
	for _, id := range ids {
		kcPath := filepath.Join(t.TempDir(), string(id)+".keychain")
		entry := keychain.Entry{
			Scheme:  protocol.SG02,
			Group:   group.BLS12381().Code(),
			KeyID:   pub.KeyID,
			ShareID: id,
			Share:   shares[id],
		}
		require.NoError(t, keychain.Save(kcPath, []keychain.Entry{entry}))
		kc, err := keychain.Load(kcPath)
		require.NoError(t, err)

		eng := orchestrator.NewEngine(ctx, kc, rt, log, orchestrator.Config{})
		engines[id] = eng
		rt.register(id, eng)
	}

	cfg := protocol.Config{PartyIDs: ids, Threshold: threshold}

	var instanceID orchestrator.InstanceID
	for _, id := range ids {
		if id == late {
			continue
		}
		c := cfg
		c.SelfID = id
		instID, err := engines[id].Submit(ctx, protocol.SG02, group.BLS12381().Code(), "", label, payload, c)
		require.NoError(t, err)
		instanceID = instID
	}

	// Give the early submitters' broadcasts time to land in late's backlog
	// before it has ever heard of this instance-id.
	time.Sleep(50 * time.Millisecond)

	c := cfg
	c.SelfID = late
	lateID, err := engines[late].Submit(ctx, protocol.SG02, group.BLS12381().Code(), "", label, payload, c)
	require.NoError(t, err)
	assert.Equal(t, instanceID, lateID)

	for _, id := range ids {
		result, err := engines[id].Await(ctx, instanceID)
		require.NoError(t, err, "node %s", id)
		assert.Equal(t, plaintext, result)
	}
}

// TestEngineFrostPrecomputeSignEndToEnd exercises FROST precompute+sign
// through real Engines: every node seeds one precomputed commitment
// ahead of time via PrecomputeFrost, Submit runs the two-round commit/
// partial-sign exchange over it instead of sampling fresh nonces, and
// the partial signatures collected off Await assemble into a signature
// that verifies — then a second Submit with the stack drained surfaces
// errs.NoMoreCommitments instead of silently falling back to fresh
// nonces.
func TestEngineFrostPrecomputeSignEndToEnd(t *testing.T) {
	ids := party.IDSlice{"1", "2", "3"}.Sorted()
	const threshold = 3

	pub, shares, err := frost.Keygen(group.BLS12381(), ids, threshold)
	require.NoError(t, err)

	rt := &router{engines: make(map[party.ID]*orchestrator.Engine)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := zap.NewNop()
	engines := make(map[party.ID]*orchestrator.Engine, len(ids))
	for _, id := range ids {
		kcPath := filepath.Join(t.TempDir(), string(id)+".keychain")
		entry := keychain.Entry{
			Scheme:  protocol.FROST,
			Group:   group.BLS12381().Code(),
			KeyID:   pub.KeyID,
			ShareID: id,
			Share:   shares[id],
		}
		require.NoError(t, keychain.Save(kcPath, []keychain.Entry{entry}))
		kc, err := keychain.Load(kcPath)
		require.NoError(t, err)

		eng := orchestrator.NewEngine(ctx, kc, rt, log, orchestrator.Config{})
		eng.PrecomputeFrost(pub.KeyID, group.BLS12381(), 1)
		engines[id] = eng
		rt.register(id, eng)
	}

	cfg := protocol.Config{PartyIDs: ids, Threshold: threshold}
	message := []byte("frost orchestrator message")

	var instanceID orchestrator.InstanceID
	for _, id := range ids {
		c := cfg
		c.SelfID = id
		instID, err := engines[id].Submit(ctx, protocol.FROST, group.BLS12381().Code(), "", []byte("Sign"), message, c)
		require.NoError(t, err)
		instanceID = instID
	}

	parts := make(map[party.ID]frost.PartialSignature, len(ids))
	for _, id := range ids {
		result, err := engines[id].Await(ctx, instanceID)
		require.NoError(t, err, "node %s", id)
		ps, ok := result.(frost.PartialSignature)
		require.True(t, ok)
		parts[id] = ps

		assert.Equal(t, 0, engines[id].FrostPrecomputeLen(pub.KeyID), "node %s should have consumed its one precomputed commitment", id)
	}

	ssid := rt.ssid(instanceID)
	require.NotEmpty(t, ssid)

	sig, err := frost.Assemble(pub, ssid, message, parts)
	require.NoError(t, err)
	ok, err := frost.Verify(pub, message, sig)
	require.NoError(t, err)
	assert.True(t, ok)

	// The stack is now empty: a second signing request over the same key
	// must fail with NoMoreCommitments rather than silently sampling
	// fresh nonces.
	secondMessage := []byte("frost orchestrator message 2")
	var secondInstanceID orchestrator.InstanceID
	for _, id := range ids {
		c := cfg
		c.SelfID = id
		instID, err := engines[id].Submit(ctx, protocol.FROST, group.BLS12381().Code(), "", []byte("Sign"), secondMessage, c)
		require.NoError(t, err)
		secondInstanceID = instID
	}

	for _, id := range ids {
		_, err := engines[id].Await(ctx, secondInstanceID)
		require.Error(t, err, "node %s", id)
		protoErr, ok := err.(protocol.Error)
		require.True(t, ok, "node %s: expected protocol.Error, got %T", id, err)
		assert.Equal(t, errs.NoMoreCommitments, errs.KindOf(protoErr.Err))
	}
}
