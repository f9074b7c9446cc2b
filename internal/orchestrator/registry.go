// Package orchestrator implements request acceptance, the instance
// registry, and the message forwarder: it converts client RPCs into
// running protocol.MultiHandler instances, routes peer gossip messages to
// them by instance-id, and collects results.
package orchestrator

import (
	"context"
	"time"

	"github.com/luxfi/thetacrypt/pkg/protocol"
)

// Status is one of the instance registry entry's three states.
type Status int

const (
	Absent Status = iota
	Running
	Finished
)

func (s Status) String() string {
	switch s {
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return "absent"
	}
}

// InstanceID is the stable identifier for one logical protocol run,
// derived from the request so all nodes agree on it independently.
type InstanceID string

// Entry is one instance registry record.
type Entry struct {
	Status     Status
	Inbound    chan *protocol.Message
	Result     interface{}
	Err        error
	CreatedAt  time.Time
	FinishedAt time.Time
}

// registryState is the plain, lock-free map pair only the registry's own
// goroutine ever touches: serialize all access through a single owning
// task instead of locks. Backlog lives here too, not in a separate
// lockable type, since instance creation must drain it atomically with
// the duplicate check and entry insertion.
type registryState struct {
	entries    map[InstanceID]*Entry
	backlog    map[InstanceID][]*protocol.Message
	backlogCap int
}

// Registry is the single owning task serializing all registry state: a
// goroutine reading closures off a bounded channel, each mutating
// registryState and replying by simply returning once the closure
// completes — a command/one-shot-reply actor realized as a closure
// instead of a hand-rolled command/reply struct per operation.
type Registry struct {
	cmds chan func(*registryState)
}

// NewRegistry starts the registry's owning goroutine and returns a handle
// to it. The goroutine exits when ctx is done.
func NewRegistry(ctx context.Context, cmdCap, backlogCap int) *Registry {
	r := &Registry{cmds: make(chan func(*registryState), cmdCap)}
	state := &registryState{
		entries:    make(map[InstanceID]*Entry),
		backlog:    make(map[InstanceID][]*protocol.Message),
		backlogCap: backlogCap,
	}
	go r.run(ctx, state)
	return r
}

func (r *Registry) run(ctx context.Context, state *registryState) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmds:
			cmd(state)
		}
	}
}

// exec submits fn to the registry goroutine and blocks until it has run,
// or ctx is cancelled first.
func (r *Registry) exec(ctx context.Context, fn func(*registryState)) {
	done := make(chan struct{})
	select {
	case r.cmds <- func(s *registryState) { fn(s); close(done) }:
	case <-ctx.Done():
		return
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// CreateResult reports how Create resolved.
type CreateResult struct {
	Created bool
	Inbound chan *protocol.Message
}

// Create atomically checks for a duplicate instance-id, and if absent,
// inserts a RUNNING entry, allocates its inbound channel, and drains any
// backlog queued for that id into the channel in FIFO order, all folded
// into one registry command so no peer message can be misrouted between
// entry-creation and backlog-drain. The channel is sized to absorb the
// backlog outright so the drain never blocks the owning goroutine.
func (r *Registry) Create(ctx context.Context, id InstanceID, inboundCap int) CreateResult {
	var out CreateResult
	r.exec(ctx, func(s *registryState) {
		if _, ok := s.entries[id]; ok {
			out = CreateResult{Created: false}
			return
		}
		backlog := s.backlog[id]
		delete(s.backlog, id)

		entry := &Entry{
			Status:    Running,
			Inbound:   make(chan *protocol.Message, inboundCap+len(backlog)),
			CreatedAt: time.Now(),
		}
		for _, msg := range backlog {
			entry.Inbound <- msg
		}
		s.entries[id] = entry
		out = CreateResult{Created: true, Inbound: entry.Inbound}
	})
	return out
}

// LookupResult is a point-in-time snapshot of an entry.
type LookupResult struct {
	Status  Status
	Inbound chan *protocol.Message
	Result  interface{}
	Err     error
}

// Lookup reports an instance's current status, inbound channel (if
// RUNNING), and result (if FINISHED) — used both by the message forwarder
// on the receive side and by the GetResult RPC.
func (r *Registry) Lookup(ctx context.Context, id InstanceID) LookupResult {
	var out LookupResult
	r.exec(ctx, func(s *registryState) {
		e, ok := s.entries[id]
		if !ok {
			out.Status = Absent
			return
		}
		out = LookupResult{Status: e.Status, Inbound: e.Inbound, Result: e.Result, Err: e.Err}
	})
	return out
}

// Backlog appends msg to id's backlog queue, dropping it silently if the
// queue is already at capacity: the backlog for an unknown instance-id
// is bounded, so a burst of messages for an instance that never starts
// can't grow unbounded memory.
func (r *Registry) Backlog(ctx context.Context, id InstanceID, msg *protocol.Message) {
	r.exec(ctx, func(s *registryState) {
		q := s.backlog[id]
		if len(q) >= s.backlogCap {
			return
		}
		s.backlog[id] = append(q, msg)
	})
}

// Finish marks an instance FINISHED, stores its result or error, and
// tears down its inbound channel. Idempotent: a second Finish for an
// already-finished id is a no-op.
func (r *Registry) Finish(ctx context.Context, id InstanceID, result interface{}, err error) {
	r.exec(ctx, func(s *registryState) {
		e, ok := s.entries[id]
		if !ok || e.Status == Finished {
			return
		}
		e.Status = Finished
		e.Result = result
		e.Err = err
		e.FinishedAt = time.Now()
		close(e.Inbound)
		e.Inbound = nil
	})
}

// Scavenge deletes FINISHED entries older than maxAge, bounding the
// registry's memory on a long-running node. Never invoked from any
// request-handling path, so it changes nothing about observable RPC
// behavior; it's driven by a periodic timer in the engine instead.
func (r *Registry) Scavenge(ctx context.Context, maxAge time.Duration) {
	r.exec(ctx, func(s *registryState) {
		cutoff := time.Now().Add(-maxAge)
		for id, e := range s.entries {
			if e.Status == Finished && e.FinishedAt.Before(cutoff) {
				delete(s.entries, id)
			}
		}
	})
}
