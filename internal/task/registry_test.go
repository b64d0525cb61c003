package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
)

func newTestRegistry() *Registry {
	return NewRegistry(cache.NewMemoryStore(), time.Minute)
}

func TestCreateAndRead(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	id, err := r.Create(ctx)
	require.NoError(t, err)
	require.Len(t, id, 22) // 16 bytes, base64url without padding

	state, err := r.Read(ctx, id)
	require.NoError(t, err)
	require.Equal(t, State{IsAssigned: false, IsPaused: false}, state)
}

func TestCreateMintsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	seen := map[string]bool{}
	for range 50 {
		id, err := r.Create(ctx)
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestReadUnknown(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	_, err := r.Read(ctx, "no-such-task")
	require.ErrorIs(t, err, cache.ErrNotFound)
}

func TestPauseResumeConflicts(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	id, err := r.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Pause(ctx, id))
	require.ErrorIs(t, r.Pause(ctx, id), ErrConflict)

	require.NoError(t, r.Resume(ctx, id))
	require.ErrorIs(t, r.Resume(ctx, id), ErrConflict)

	// the cycle works again after a resume
	require.NoError(t, r.Pause(ctx, id))
}

func TestAssignOnce(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	id, err := r.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Assign(ctx, id))
	require.ErrorIs(t, r.Assign(ctx, id), ErrConflict)

	state, err := r.Read(ctx, id)
	require.NoError(t, err)
	require.True(t, state.IsAssigned)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	id, err := r.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, r.Remove(ctx, id))

	_, err = r.Read(ctx, id)
	require.ErrorIs(t, err, cache.ErrNotFound)

	require.ErrorIs(t, r.Remove(ctx, id), cache.ErrNotFound)
}

func TestControlOnRemovedTask(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry()

	id, err := r.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, r.Remove(ctx, id))

	require.ErrorIs(t, r.Pause(ctx, id), cache.ErrNotFound)
	require.ErrorIs(t, r.Resume(ctx, id), cache.ErrNotFound)
	require.ErrorIs(t, r.Assign(ctx, id), cache.ErrNotFound)
}

func TestTaskExpires(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(cache.NewMemoryStore(), 20*time.Millisecond)

	id, err := r.Create(ctx)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = r.Read(ctx, id)
	require.ErrorIs(t, err, cache.ErrNotFound)
}
