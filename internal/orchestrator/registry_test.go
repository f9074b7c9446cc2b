package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/thetacrypt/pkg/protocol"
)

func newTestRegistry(t *testing.T) (*Registry, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRegistry(ctx, 16, 4), ctx
}

func TestRegistryCreateRejectsDuplicate(t *testing.T) {
	r, ctx := newTestRegistry(t)

	first := r.Create(ctx, "instance-1", 8)
	require.True(t, first.Created)
	require.NotNil(t, first.Inbound)

	second := r.Create(ctx, "instance-1", 8)
	assert.False(t, second.Created)
}

func TestRegistryBacklogDrainsInFIFOOrderOnCreate(t *testing.T) {
	r, ctx := newTestRegistry(t)

	msgs := []*protocol.Message{
		{Data: []byte("one")},
		{Data: []byte("two")},
		{Data: []byte("three")},
	}
	for _, m := range msgs {
		r.Backlog(ctx, "instance-2", m)
	}

	created := r.Create(ctx, "instance-2", 8)
	require.True(t, created.Created)

	for _, want := range msgs {
		select {
		case got := <-created.Inbound:
			assert.Equal(t, want.Data, got.Data)
		case <-time.After(time.Second):
			t.Fatal("expected drained backlog message, got none")
		}
	}
}

func TestRegistryBacklogDropsBeyondCapacity(t *testing.T) {
	r, ctx := newTestRegistry(t)

	for i := 0; i < 10; i++ {
		r.Backlog(ctx, "instance-3", &protocol.Message{Data: []byte{byte(i)}})
	}

	created := r.Create(ctx, "instance-3", 16)
	require.True(t, created.Created)

	count := 0
	for {
		select {
		case <-created.Inbound:
			count++
		default:
			assert.LessOrEqual(t, count, 4)
			return
		}
	}
}

func TestRegistryLookupReportsAbsentRunningFinished(t *testing.T) {
	r, ctx := newTestRegistry(t)

	absent := r.Lookup(ctx, "nope")
	assert.Equal(t, Absent, absent.Status)

	created := r.Create(ctx, "instance-4", 4)
	require.True(t, created.Created)
	running := r.Lookup(ctx, "instance-4")
	assert.Equal(t, Running, running.Status)

	r.Finish(ctx, "instance-4", []byte("plaintext"), nil)
	finished := r.Lookup(ctx, "instance-4")
	assert.Equal(t, Finished, finished.Status)
	assert.Equal(t, []byte("plaintext"), finished.Result)

	_, ok := <-created.Inbound
	assert.False(t, ok, "inbound channel should be closed after Finish")
}

func TestRegistryFinishIsIdempotent(t *testing.T) {
	r, ctx := newTestRegistry(t)

	created := r.Create(ctx, "instance-5", 4)
	require.True(t, created.Created)

	r.Finish(ctx, "instance-5", "first", nil)
	assert.NotPanics(t, func() {
		r.Finish(ctx, "instance-5", "second", nil)
	})

	got := r.Lookup(ctx, "instance-5")
	assert.Equal(t, "first", got.Result)
}

func TestRegistryScavengeDeletesOldFinishedEntries(t *testing.T) {
	r, ctx := newTestRegistry(t)

	created := r.Create(ctx, "instance-6", 4)
	require.True(t, created.Created)
	r.Finish(ctx, "instance-6", nil, nil)

	r.Scavenge(ctx, 0)

	got := r.Lookup(ctx, "instance-6")
	assert.Equal(t, Absent, got.Status)
}
