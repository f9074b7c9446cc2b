package bz03

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
func (Protocol) Operation() protocol.Operation { return protocol.OperationDecrypt }

// Start decodes and checks the wire-encoded ciphertext up front, then runs
// the broadcast-own-share/collect/assemble round pkg/protocol generalizes
// across every non-interactive scheme.
func (p Protocol) Start(config protocol.Config, input []byte) (protocol.StartFunc, error) {
	ct, err := UnmarshalCiphertext(input)
	if err != nil {
		return nil, err
	}
	ok, err := VerifyCiphertext(p.Share.PublicKey, ct)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.New(errs.InvalidParams, "bz03: malformed ciphertext")
	}

	info := round.Info{
		ProtocolID: "bz03/decrypt",
		SelfID:     config.SelfID,
		PartyIDs:   config.PartyIDs,
		Threshold:  config.Threshold,
		Group:      config.Group,
	}
	pub := p.Share.PublicKey

	computeOwn := func() ([]byte, error) {
		pd, err := PartialDecrypt(p.Share, ct)
		if err != nil {
			return nil, err
		}
		return pd.MarshalBinary()
	}
	verifyOne := func(id party.ID, data []byte) error {
		pd, err := UnmarshalPartialDecryption(data)
		if err != nil {
			return err
		}
		if pd.ShareID != id {
			return errs.New(errs.InvalidShare, "bz03: share-id mismatch")
		}
		ok, err := VerifyShare(pub, ct, pd)
		if err != nil {
			return err
		}
		if !ok {
			return errs.New(errs.InvalidShare, "bz03: partial decryption failed verification")
		}
		return nil
	}
	assemble := func(shares map[party.ID][]byte) (interface{}, error) {
		pds := make([]PartialDecryption, 0, len(shares))
		for id, data := range shares {
			pd, err := UnmarshalPartialDecryption(data)
			if err != nil {
				return nil, err
			}
			if pd.ShareID != id {
				return nil, errs.New(errs.InvalidShare, "bz03: share-id mismatch")
			}
			pds = append(pds, pd)
		}
		return Assemble(pub, ct, pds)
	}

	return protocol.NewThresholdRoundStart(info, computeOwn, verifyOne, assemble), nil
}
