package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/keychain"
	"github.com/luxfi/thetacrypt/pkg/protocol"
	"github.com/luxfi/thetacrypt/pkg/schemes/frost"
	"github.com/luxfi/thetacrypt/pkg/wire"
)

// DeriveInstanceID computes the instance-id from the request itself:
// label || " " || hex(first 8 bytes of SHA-256(payload)). label is the
// request's own associated-data label (the same bytes SG02/BZ03 embed as
// Ciphertext.Label; for sign/coin requests without a ciphertext envelope,
// callers pass the RPC operation name instead), so two nodes asked to run
// the same request always agree on the id without exchanging one first.
func DeriveInstanceID(label, payload []byte) InstanceID {
	sum := sha256.Sum256(payload)
	return InstanceID(string(label) + " " + hex.EncodeToString(sum[:8]))
}

// DuplicatePolicy selects how Engine.Submit reacts to an instance-id
// that's already present. Only per-node rejection is implemented; the
// field exists so a future cluster-wide duplicate check (consulting peers
// before accepting) can be injected without changing Engine's signature.
type DuplicatePolicy int

const (
	DuplicatePerNode DuplicatePolicy = iota
)

// OutboundSender publishes one instance's protocol messages to the rest
// of the group, e.g. over pkg/gossip.
type OutboundSender interface {
	Publish(ctx context.Context, instanceID InstanceID, msg *protocol.Message) error
}

// Config holds Engine's tunables, all sourced from internal/config at
// node startup. Registry command channel and per-instance backlog
// capacities are expected to sit in the 32-128 range for a typical
// deployment.
type Config struct {
	RegistryCmdCap  int
	BacklogCap      int
	InboundCap      int
	Timeouts        map[protocol.Scheme]time.Duration
	DefaultTimeout  time.Duration
	DuplicatePolicy DuplicatePolicy
}

// Engine is the request-acceptance and message-routing core of the node:
// it turns RPC submissions into running protocol.MultiHandler
// instances backed by the Registry, and routes inbound peer messages to
// the right instance (or its backlog) by instance-id.
type Engine struct {
	registry *Registry
	keychain *keychain.Keychain
	out      OutboundSender
	log      *zap.Logger
	cfg      Config

	frostMu     sync.RWMutex
	frostStacks map[wire.KeyID]*frost.PrecomputeStack
}

// NewEngine starts the registry's owning goroutine and returns an Engine
// ready to accept submissions. ctx bounds the registry's lifetime.
func NewEngine(ctx context.Context, kc *keychain.Keychain, out OutboundSender, log *zap.Logger, cfg Config) *Engine {
	if cfg.RegistryCmdCap == 0 {
		cfg.RegistryCmdCap = 64
	}
	if cfg.BacklogCap == 0 {
		cfg.BacklogCap = 64
	}
	if cfg.InboundCap == 0 {
		cfg.InboundCap = 32
	}
	return &Engine{
		registry:    NewRegistry(ctx, cfg.RegistryCmdCap, cfg.BacklogCap),
		keychain:    kc,
		out:         out,
		log:         log,
		cfg:         cfg,
		frostStacks: make(map[wire.KeyID]*frost.PrecomputeStack),
	}
}

// PrecomputeFrost seeds count fresh round-1 commitments for keyID's local
// FROST share ahead of any signing request, for precompute+sign mode
// (pkg/schemes/frost.PrecomputeStack's "no-more-commitments" regime). It
// returns the public half of each commitment for broadcast to the rest of
// the signer group out of band, the same pattern pkg/schemes/frost uses
// for batched round-1 precomputation.
func (eng *Engine) PrecomputeFrost(keyID wire.KeyID, g group.Group, count int) []frost.Commitment {
	eng.frostMu.Lock()
	defer eng.frostMu.Unlock()
	stack, ok := eng.frostStacks[keyID]
	if !ok {
		stack = frost.NewPrecomputeStack()
		eng.frostStacks[keyID] = stack
	}
	return stack.Push(g, count)
}

// FrostPrecomputeLen reports how many precomputed commitments remain for
// keyID, for the stack-depth diagnostic mentioned alongside
// GetPublicKeysForSignature.
func (eng *Engine) FrostPrecomputeLen(keyID wire.KeyID) int {
	eng.frostMu.RLock()
	stack, ok := eng.frostStacks[keyID]
	eng.frostMu.RUnlock()
	if !ok {
		return 0
	}
	return stack.Len()
}

func (eng *Engine) frostPrecompute(keyID wire.KeyID) *frost.PrecomputeStack {
	eng.frostMu.RLock()
	defer eng.frostMu.RUnlock()
	return eng.frostStacks[keyID]
}

// Submit accepts one client request: it derives the instance-id, rejects
// duplicates, resolves the key (by explicit key-id or the (scheme, group)
// default), builds the scheme's protocol.Protocol adapter, starts the
// round, and spawns the task that drives it to completion. payload is the
// scheme-specific
// operation input (a wire-encoded ciphertext for decrypt, raw message
// bytes for sign/coin).
func (eng *Engine) Submit(ctx context.Context, scheme protocol.Scheme, g group.Code, keyID wire.KeyID, label, payload []byte, config protocol.Config) (InstanceID, error) {
	id := DeriveInstanceID(label, payload)

	created := eng.registry.Create(ctx, id, eng.cfg.InboundCap)
	if !created.Created {
		return id, errs.New(errs.AlreadyExists, "orchestrator: instance already exists")
	}

	entry, ok := eng.lookupKey(scheme, g, keyID)
	if !ok {
		err := errs.New(errs.KeyNotFound, "orchestrator: no matching key for request")
		eng.registry.Finish(ctx, id, nil, err)
		return id, err
	}

	proto, err := entry.Protocol()
	if err != nil {
		eng.registry.Finish(ctx, id, nil, err)
		return id, err
	}
	if fp, ok := proto.(frost.Protocol); ok {
		fp.Precompute = eng.frostPrecompute(entry.KeyID)
		proto = fp
	}

	config.Scheme = scheme
	config.Group = group.ByCode(g)
	config.KeyID = string(entry.KeyID)

	start, err := proto.Start(config, payload)
	if err != nil {
		eng.registry.Finish(ctx, id, nil, err)
		return id, err
	}

	handler, err := protocol.NewMultiHandler(start, []byte(id))
	if err != nil {
		eng.registry.Finish(ctx, id, nil, err)
		return id, err
	}

	timeout := eng.cfg.DefaultTimeout
	if t, ok := eng.cfg.Timeouts[scheme]; ok {
		timeout = t
	}
	go eng.run(ctx, id, handler, created.Inbound, timeout)

	return id, nil
}

// run drives one instance to completion: a pump goroutine feeds queued
// inbound messages to the handler in arrival order, the caller goroutine
// drains the handler's outbound messages to the gossip layer, and once
// the handler reaches a terminal state the result is published to the
// registry and the pump is torn down.
func (eng *Engine) run(ctx context.Context, id InstanceID, handler *protocol.MultiHandler, inbound <-chan *protocol.Message, timeout time.Duration) {
	instCtx, cancel := context.WithCancel(ctx)
	if timeout > 0 {
		instCtx, cancel = context.WithTimeout(instCtx, timeout)
	}
	defer cancel()

	go func() {
		for {
			select {
			case msg, ok := <-inbound:
				if !ok {
					return
				}
				handler.Accept(msg)
			case <-instCtx.Done():
				handler.Stop()
				return
			}
		}
	}()

	for msg := range handler.Listen() {
		if err := eng.out.Publish(ctx, id, msg); err != nil {
			eng.log.Warn("orchestrator: gossip publish failed",
				zap.String("instance", string(id)), zap.Error(err))
		}
	}
	cancel() // instance reached a terminal state; stop the pump if still waiting

	result, err := handler.Result()
	eng.registry.Finish(ctx, id, result, err)
}

// Deliver routes one inbound peer message to its instance: pushed onto
// the instance's inbound channel if RUNNING (blocking the caller, which
// is the forwarder goroutine rather than the registry's owning task, so
// back-pressure on one instance never stalls routing for others),
// queued to the backlog if ABSENT, or dropped if FINISHED.
func (eng *Engine) Deliver(ctx context.Context, id InstanceID, msg *protocol.Message) {
	res := eng.registry.Lookup(ctx, id)
	switch res.Status {
	case Running:
		select {
		case res.Inbound <- msg:
		case <-ctx.Done():
		}
	case Absent:
		eng.registry.Backlog(ctx, id, msg)
	case Finished:
	}
}

// GetResult implements the GetDecryptResult-shaped RPC: reports whether
// an instance exists, whether it has finished, and its outcome if so.
func (eng *Engine) GetResult(ctx context.Context, id InstanceID) (started, finished bool, result interface{}, err error) {
	res := eng.registry.Lookup(ctx, id)
	switch res.Status {
	case Absent:
		return false, false, nil, nil
	case Running:
		return true, false, nil, nil
	case Finished:
		return true, true, res.Result, res.Err
	default:
		return false, false, nil, nil
	}
}

// PublicKeysForEncryption and PublicKeysForSignature pass through to the
// keychain for the two key-enumeration RPCs.
func (eng *Engine) PublicKeysForEncryption() ([]keychain.PublicKeyInfo, error) {
	return eng.keychain.PublicKeysForEncryption()
}

func (eng *Engine) PublicKeysForSignature() ([]keychain.PublicKeyInfo, error) {
	return eng.keychain.PublicKeysForSignature()
}

// Run drives the periodic FINISHED-entry scavenger until ctx is done.
// Intended to be launched alongside the RPC server and gossip subscriber
// under one golang.org/x/sync/errgroup in cmd/thetacrypt-node.
func (eng *Engine) Run(ctx context.Context, interval, maxAge time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			eng.registry.Scavenge(ctx, maxAge)
		}
	}
}

// Await blocks until instance id reaches FINISHED, or ctx is done. Used
// by the DecryptSync RPC, which returns the plaintext inline when the
// round completes within the call's deadline. Polls at a fixed interval
// rather than exposing the instance's internal completion signal, since
// Entry.Inbound's closing is an implementation detail of Finish, not a
// public completion channel.
func (eng *Engine) Await(ctx context.Context, id InstanceID) (interface{}, error) {
	const pollInterval = 10 * time.Millisecond
	for {
		res := eng.registry.Lookup(ctx, id)
		switch res.Status {
		case Finished:
			return res.Result, res.Err
		case Absent:
			return nil, errs.New(errs.IDNotFound, "orchestrator: instance not found")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (eng *Engine) lookupKey(scheme protocol.Scheme, g group.Code, keyID wire.KeyID) (keychain.Entry, bool) {
	if keyID != "" {
		return eng.keychain.ByKeyID(keyID)
	}
	return eng.keychain.Default(scheme, g)
}
