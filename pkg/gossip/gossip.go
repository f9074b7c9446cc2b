// Package gossip wraps github.com/libp2p/go-libp2p-pubsub as the node's
// peer transport: outbound protocol.Message values are published on one
// fixed topic as (instance_id, payload, total_order) envelopes, and
// inbound envelopes are routed back into internal/orchestrator.Engine by
// instance-id.
package gossip

import (
	"context"

	"github.com/fxamacker/cbor/v2"
	"github.com/libp2p/go-libp2p/core/host"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"go.uber.org/zap"

	"github.com/luxfi/thetacrypt/internal/orchestrator"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/protocol"
)

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Envelope is the gossip wire shape: instance-id, the CBOR-encoded
// protocol.Message, and whether the sender requires total-order delivery
// (unused by any of the five non-interactive schemes' two-round
// protocol, carried for FROST's ordered round1/round2 pair).
type Envelope struct {
	InstanceID string `cbor:"1,keyasint"`
	Payload    []byte `cbor:"2,keyasint"`
	TotalOrder bool   `cbor:"3,keyasint"`
}

// Inbound is one routed, decoded envelope delivered to the orchestrator.
type Inbound struct {
	InstanceID orchestrator.InstanceID
	Message    *protocol.Message
}

// Gossip is one node's connection to the fixed protocol-message topic.
type Gossip struct {
	host  host.Host
	ps    *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription
	log   *zap.Logger
	self  string
}

// New joins topicName on h's GossipSub router and subscribes to it.
func New(ctx context.Context, h host.Host, topicName string, log *zap.Logger) (*Gossip, error) {
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "gossip: start gossipsub router")
	}
	topic, err := ps.Join(topicName)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "gossip: join topic")
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, err, "gossip: subscribe to topic")
	}
	return &Gossip{host: h, ps: ps, topic: topic, sub: sub, log: log, self: h.ID().String()}, nil
}

// Publish implements internal/orchestrator.OutboundSender: it encodes
// msg into an Envelope tagged with instanceID and publishes it on the
// shared topic. Engine depends only on the OutboundSender interface it
// declares itself, so this package importing internal/orchestrator for
// the InstanceID type does not create a cycle.
func (g *Gossip) Publish(ctx context.Context, instanceID orchestrator.InstanceID, msg *protocol.Message) error {
	payload, err := encMode.Marshal(msg)
	if err != nil {
		return errs.Wrap(errs.SerializationFailed, err, "gossip: marshal outbound message")
	}
	env := Envelope{InstanceID: string(instanceID), Payload: payload, TotalOrder: msg.Broadcast}
	data, err := encMode.Marshal(env)
	if err != nil {
		return errs.Wrap(errs.SerializationFailed, err, "gossip: marshal envelope")
	}
	return g.topic.Publish(ctx, data)
}

// Listen returns a channel of decoded inbound envelopes, skipping this
// node's own publications (pubsub.Subscription.Next delivers them back
// by default). The channel is closed when ctx is done.
func (g *Gossip) Listen(ctx context.Context) <-chan Inbound {
	out := make(chan Inbound)
	go func() {
		defer close(out)
		for {
			pmsg, err := g.sub.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				g.log.Warn("gossip: subscription read failed", zap.Error(err))
				continue
			}
			if pmsg.ReceivedFrom.String() == g.self {
				continue
			}
			var env Envelope
			if err := cbor.Unmarshal(pmsg.Data, &env); err != nil {
				g.log.Warn("gossip: dropping malformed envelope", zap.Error(err))
				continue
			}
			var msg protocol.Message
			if err := cbor.Unmarshal(env.Payload, &msg); err != nil {
				g.log.Warn("gossip: dropping envelope with malformed payload", zap.Error(err))
				continue
			}
			select {
			case out <- Inbound{InstanceID: orchestrator.InstanceID(env.InstanceID), Message: &msg}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close tears down the subscription and topic handle.
func (g *Gossip) Close() error {
	g.sub.Cancel()
	return g.topic.Close()
}
