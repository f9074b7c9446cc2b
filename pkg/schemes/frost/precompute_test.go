package frost_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/group"
	"github.com/luxfi/thetacrypt/pkg/schemes/frost"
)

func TestPrecomputeStackPushPop(t *testing.T) {
	g := group.BLS12381()
	s := frost.NewPrecomputeStack()
	assert.Equal(t, 0, s.Len())

	commitments := s.Push(g, 3)
	assert.Len(t, commitments, 3)
	assert.Equal(t, 3, s.Len())

	for i := 0; i < 3; i++ {
		_, _, _, _, ok := s.Pop()
		require.True(t, ok, "pop %d", i)
	}
	assert.Equal(t, 0, s.Len())
}

func TestPrecomputeStackPopEmptyFails(t *testing.T) {
	s := frost.NewPrecomputeStack()
	_, _, _, _, ok := s.Pop()
	assert.False(t, ok)
}

func TestPrecomputeStackIsLIFO(t *testing.T) {
	g := group.BLS12381()
	s := frost.NewPrecomputeStack()
	first := s.Push(g, 1)[0]
	second := s.Push(g, 1)[0]

	_, _, D, E, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, second.D, D)
	assert.Equal(t, second.E, E)

	_, _, D, E, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, first.D, D)
	assert.Equal(t, first.E, E)
}
