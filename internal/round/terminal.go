package round

import (
	"github.com/luxfi/thetacrypt/pkg/party"
)

// terminalNumber is a sentinel round number reserved for Output/Abort, one
// past any real protocol's FinalRoundNumber could plausibly reach.
const terminalNumber Number = 1 << 30

// Output is the terminal round.Session signaling successful completion;
// pkg/protocol.MultiHandler recognizes this type in its round-advance
// switch and copies Result into the handler's own Result() return value.
type Output struct {
	*Helper
	Result interface{}
}

func (o *Output) MessageContent() Content                { return nil }
func (o *Output) VerifyMessage(Message) error             { return nil }
func (o *Output) StoreMessage(Message) error              { return nil }
func (o *Output) Finalize(chan<- *Message) (Session, error) { return o, nil }

// Abort is the terminal round.Session signaling protocol failure, carrying
// the error and the party-ids responsible where known.
type Abort struct {
	*Helper
	Err      error
	Culprits []party.ID
}

func (a *Abort) MessageContent() Content                { return nil }
func (a *Abort) VerifyMessage(Message) error             { return nil }
func (a *Abort) StoreMessage(Message) error              { return nil }
func (a *Abort) Finalize(chan<- *Message) (Session, error) { return a, nil }

// NewOutput and NewAbort build terminal rounds bound to a given prior
// Helper's parameters, stamped with the terminal sentinel round number.
func NewOutput(prev *Helper, result interface{}) *Output {
	return &Output{Helper: prev.AdvanceTo(terminalNumber), Result: result}
}

func NewAbort(prev *Helper, err error, culprits ...party.ID) *Abort {
	return &Abort{Helper: prev.AdvanceTo(terminalNumber), Err: err, Culprits: culprits}
}
