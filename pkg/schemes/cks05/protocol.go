package cks05

import (
	"github.com/luxfi/thetacrypt/internal/round"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/protocol"
)

// Protocol adapts one node's private share to the uniform protocol.Protocol
// contract internal/orchestrator drives every scheme instance through.
type Protocol struct {
	Share PrivateShare
}

func (Protocol) Scheme() protocol.Scheme       { return Scheme }
func (Protocol) Operation() protocol.Operation { return protocol.OperationSign }

// Start treats input as the coin's name.
func (p Protocol) Start(config protocol.Config, input []byte) (protocol.StartFunc, error) {
	name := append([]byte(nil), input...)
	info := round.Info{
		ProtocolID: "cks05/coin",
		SelfID:     config.SelfID,
		PartyIDs:   config.PartyIDs,
		Threshold:  config.Threshold,
		Group:      config.Group,
	}
	pub := p.Share.PublicKey

	computeOwn := func() ([]byte, error) {
		pc, err := PartialSign(p.Share, name)
		if err != nil {
			return nil, err
		}
		return pc.MarshalBinary()
	}
	verifyOne := func(id party.ID, data []byte) error {
		pc, err := UnmarshalPartialCoin(data)
		if err != nil {
			return err
		}
		if pc.ShareID != id {
			return errs.New(errs.InvalidShare, "cks05: share-id mismatch")
		}
		ok, err := VerifyShare(pub, name, pc)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.InvalidShare, "cks05: partial coin failed verification")
		}
		return nil
	}
	assemble := func(shares map[party.ID][]byte) (interface{}, error) {
		pcs := make([]PartialCoin, 0, len(shares))
		for id, data := range shares {
			pc, err := UnmarshalPartialCoin(data)
			if err != nil {
				return nil, err
			}
			if pc.ShareID != id {
				return nil, errs.New(errs.InvalidShare, "cks05: share-id mismatch")
			}
			pcs = append(pcs, pc)
		}
		return Assemble(pub, name, pcs)
	}

	return protocol.NewThresholdRoundStart(info, computeOwn, verifyOne, assemble), nil
}
