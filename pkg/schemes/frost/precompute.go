package frost

import (
	"sync"

	"github.com/luxfi/thetacrypt/pkg/group"
)

// nonce is a commit-round nonce pair together with its public commitment,
// held between the precompute phase and the signature that consumes it.
type nonce struct {
	d, e group.SizedBigInt
	D, E group.GroupElement
}

// PrecomputeStack implements FROST's "precompute only / precompute+sign /
// no precompute" modes: a per-signer LIFO of round-1 commitments
// generated ahead of time, consumed top-first as signatures are
// requested. Ordering across signers must agree on which index is
// consumed, so every signer simply pops its own top entry per signature
// rather than coordinating an explicit index.
type PrecomputeStack struct {
	mu    sync.Mutex
	items []nonce
}

func NewPrecomputeStack() *PrecomputeStack {
	return &PrecomputeStack{}
}

// push samples a fresh nonce pair and commitment, appending it to the top
// of the stack (precompute-only mode broadcasts a batch of these ahead of
// any signature).
func (s *PrecomputeStack) push(g group.Group) Commitment {
	d := group.RandomSizedBigInt(g)
	e := group.RandomSizedBigInt(g)
	n := nonce{d: d, e: e, D: d.ActOnBase(), E: e.ActOnBase()}
	s.mu.Lock()
	s.items = append(s.items, n)
	s.mu.Unlock()
	return Commitment{D: n.D, E: n.E}
}

// Push precomputes count fresh commitments and returns their public half,
// for precompute-only broadcast.
func (s *PrecomputeStack) Push(g group.Group, count int) []Commitment {
	out := make([]Commitment, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, s.push(g))
	}
	return out
}

// Pop removes and returns the top precomputed nonce, or ok=false if the
// stack is empty. In precompute+sign mode an exhausted stack is an error
// rather than a silent fallback to fresh sampling: a caller that asked
// for precomputed nonces needs to know it ran out, not get the security
// properties of a different mode without being told.
func (s *PrecomputeStack) Pop() (d, e group.SizedBigInt, D, E group.GroupElement, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return group.SizedBigInt{}, group.SizedBigInt{}, group.GroupElement{}, group.GroupElement{}, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top.d, top.e, top.D, top.E, true
}

// Len reports how many precomputed commitments remain.
func (s *PrecomputeStack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
