package frost

import (
	"github.com/luxfi/thetacrypt/internal/round"
	"github.com/luxfi/thetacrypt/pkg/errs"
	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/party"
	"github.com/luxfi/thetacrypt/pkg/polynomial"
)

// round2 collects every signer's commitment, then computes this node's
// own partial signature once all of them are in hand. It terminates the
// instance with an Output carrying the PartialSignature — there is no
// third round: the remaining
// combination step (Assemble) runs outside the round machinery, unlike
// the sibling non-interactive schemes, whose shared round 2 assembles
// the result itself; Assemble is called by whatever collects the k
// partial signatures.
type round2 struct {
	*round.Helper
	message []byte
	pub     PublicKey
	share   PrivateShare
	d, e    group.SizedBigInt
	D, E    map[party.ID]group.GroupElement
}

func (*round2) MessageContent() round.Content   { return nil }
func (*round2) VerifyMessage(round.Message) error { return nil }
func (*round2) StoreMessage(round.Message) error  { return nil }

func (r *round2) BroadcastContent() round.Content { return &commitMsg{} }

func (r *round2) StoreBroadcastMessage(msg round.Message) error {
	m, ok := msg.Content.(*commitMsg)
	if !ok {
		return errs.New(errs.DeserializationFailed, "frost: unexpected round-2 content type")
	}
	D, err := group.UnmarshalGroupElement(r.Group(), group.SubBase, m.D)
	if err != nil {
		return err
	}
	E, err := group.UnmarshalGroupElement(r.Group(), group.SubBase, m.E)
	if err != nil {
		return err
	}
	r.D[msg.From] = D
	r.E[msg.From] = E
	return nil
}

func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	ids := r.PartyIDs()
	commitments := make(map[party.ID]Commitment, len(ids))
	for _, id := range ids {
		D, ok := r.D[id]
		if !ok {
			return nil, errs.Newf(errs.InvalidShare, "missing round-1 commitment from %s", id)
		}
		commitments[id] = Commitment{D: D, E: r.E[id]}
	}

	rhos, R, err := computeRhoAndR(r.Group(), r.SSID(), r.message, ids, commitments)
	if err != nil {
		return nil, err
	}
	c, err := computeChallenge(r.Group(), R, r.pub.Y, r.message)
	if err != nil {
		return nil, err
	}

	lambda := polynomial.Lagrange(r.Group(), ids)[r.SelfID()]
	rho := rhos[r.SelfID()]

	eRho, err := r.e.Mul(rho)
	if err != nil {
		return nil, err
	}
	dPlus, err := r.d.Add(eRho)
	if err != nil {
		return nil, err
	}
	lambdaX, err := lambda.Mul(r.share.Share)
	if err != nil {
		return nil, err
	}
	lambdaXC, err := lambdaX.Mul(c)
	if err != nil {
		return nil, err
	}
	z, err := dPlus.Add(lambdaXC)
	if err != nil {
		return nil, err
	}

	result := PartialSignature{
		ShareID: r.SelfID(),
		Zi:      z,
		Di:      r.D[r.SelfID()],
		Ei:      r.E[r.SelfID()],
	}
	return round.NewOutput(r.Helper, result), nil
}
