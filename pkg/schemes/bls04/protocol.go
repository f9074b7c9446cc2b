package bls04

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

// Start treats input as the raw message to sign: BLS04 needs no ciphertext
// envelope, just the message bytes, hashed directly to a group element.
func (p Protocol) Start(config protocol.Config, input []byte) (protocol.StartFunc, error) {
	message := append([]byte(nil), input...)
	info := round.Info{
		ProtocolID: "bls04/sign",
		SelfID:     config.SelfID,
		PartyIDs:   config.PartyIDs,
		Threshold:  config.Threshold,
		Group:      config.Group,
	}
	pub := p.Share.PublicKey

	computeOwn := func() ([]byte, error) {
		ps, err := PartialSign(p.Share, message)
		if err != nil {
			return nil, err
		}
		return ps.MarshalBinary()
	}
	verifyOne := func(id party.ID, data []byte) error {
		ps, err := UnmarshalPartialSignature(data)
		if err != nil {
			return err
		}
		if ps.ShareID != id {
			return errs.New(errs.InvalidShare, "bls04: share-id mismatch")
		}
		ok, err := VerifyShare(pub, message, ps)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.InvalidShare, "bls04: partial signature failed verification")
		}
		return nil
	}
	assemble := func(shares map[party.ID][]byte) (interface{}, error) {
		pss := make([]PartialSignature, 0, len(shares))
		for id, data := range shares {
			ps, err := UnmarshalPartialSignature(data)
			if err != nil {
				return nil, err
			}
			if ps.ShareID != id {
				return nil, errs.New(errs.InvalidShare, "bls04: share-id mismatch")
			}
			pss = append(pss, ps)
		}
		return Assemble(pub, message, pss)
	}

	return protocol.NewThresholdRoundStart(info, computeOwn, verifyOne, assemble), nil
}
