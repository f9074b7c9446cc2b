// Package hash implements the domain-separated hashing helper the protocol
// layer uses to bind round messages and session identifiers together.
package hash

import "github.com/zeebo/blake3"

// BytesWithDomain pairs a byte string with a short domain label so that
// hashing "label A" and "label B" can never collide with hashing
// "labelA B" — WriteAny writes the domain label as is, then the byte
// string behind an 8-byte little-endian length prefix.
type BytesWithDomain struct {
	TheDomain string
	Bytes     []byte
}

// State is an incremental, domain-separated blake3 hash accumulator.
type State struct {
	h *blake3.Hasher
}

// New starts a fresh hash state.
func New() *State {
	return &State{h: blake3.New()}
}

// WriteAny writes a domain-tagged byte string into the running hash.
func (s *State) WriteAny(v BytesWithDomain) error {
	_, _ = s.h.WriteString(v.TheDomain)
	var lenPrefix [8]byte
	n := len(v.Bytes)
	for i := 0; i < 8; i++ {
		lenPrefix[i] = byte(n >> (8 * i))
	}
	_, _ = s.h.Write(lenPrefix[:])
	_, _ = s.h.Write(v.Bytes)
	return nil
}

// Sum returns the accumulated digest without consuming the state, so
// further WriteAny calls continue from here (used to fork a commit hash
// mid-protocol).
func (s *State) Sum() []byte {
	return s.h.Sum(nil)
}

// Clone returns an independent copy of the current state.
func (s *State) Clone() *State {
	return &State{h: s.h.Clone()}
}
