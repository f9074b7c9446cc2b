package frost

import (
	"github.com/luxfi/thetacrypt/internal/round"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
)

// commitMsg is the round-1 commit broadcast, tagged as round 2's expected
// incoming content since round 1 itself receives nothing.
type commitMsg struct {
	D []byte `cbor:"1,keyasint"`
	E []byte `cbor:"2,keyasint"`
}

func (commitMsg) RoundNumber() round.Number { return 2 }

// round1 samples (or pops a precomputed) hiding/binding nonce pair and
// broadcasts the corresponding commitment. It receives nothing itself.
type round1 struct {
	*round.Helper
	message    []byte
	pub        PublicKey
	share      PrivateShare
	precompute *PrecomputeStack
}

func (round1) MessageContent() round.Content    { return nil }
func (*round1) VerifyMessage(round.Message) error { return nil }
func (*round1) StoreMessage(round.Message) error  { return nil }

func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	var d, e group.SizedBigInt
	var D, E group.GroupElement
	if r.precompute != nil {
		pd, pe, pD, pE, ok := r.precompute.Pop()
		if !ok {
			return r, errs.New(errs.NoMoreCommitments, "frost: precomputed commitment stack exhausted")
		}
		d, e, D, E = pd, pe, pD, pE
	} else {
		d = group.RandomSizedBigInt(r.Group())
		e = group.RandomSizedBigInt(r.Group())
		D = d.ActOnBase()
		E = e.ActOnBase()
	}

	Db, err := D.MarshalBinary()
	if err != nil {
		return r, err
	}
	Eb, err := E.MarshalBinary()
	if err != nil {
		return r, err
	}
	if err := r.BroadcastMessage(out, &commitMsg{D: Db, E: Eb}); err != nil {
		return r, err
	}

	return &round2{
		Helper:  r.Helper.AdvanceTo(2),
		message: r.message,
		pub:     r.pub,
		share:   r.share,
		d:       d,
		e:       e,
		D:       map[party.ID]group.GroupElement{r.SelfID(): D},
		E:       map[party.ID]group.GroupElement{r.SelfID(): E},
	}, nil
}
