package frost

import (
	"github.com/luxfi/thetacrypt/internal/round"
	"github.com/luxfi/thetacrypt/pkg/protocol"
)

// Protocol adapts a node's private share to the uniform protocol.Protocol
// contract, optionally drawing its round-1 nonce from a PrecomputeStack
// instead of sampling fresh.
type Protocol struct {
	Share      PrivateShare
	Precompute *PrecomputeStack
}

func (Protocol) Scheme() protocol.Scheme       { return Scheme }
func (Protocol) Operation() protocol.Operation { return protocol.OperationSign }

// Start treats input as the raw message to sign and begins the two-round
// commit/partial-sign exchange.
func (p Protocol) Start(config protocol.Config, input []byte) (protocol.StartFunc, error) {
	message := append([]byte(nil), input...)
	info := round.Info{
		ProtocolID:       "frost/sign",
		FinalRoundNumber: 2,
		SelfID:           config.SelfID,
		PartyIDs:         config.PartyIDs,
		Threshold:        config.Threshold,
		Group:            config.Group,
	}
	return func(sessionID []byte) (round.Session, error) {
		h, err := round.NewSession(info, sessionID)
		if err != nil {
			return nil, err
		}
		return &round1{
			Helper:     h,
			message:    message,
			pub:        p.Share.PublicKey,
			share:      p.Share,
			precompute: p.Precompute,
		}, nil
	}, nil
}
