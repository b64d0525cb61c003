// Package task keeps the shared control state of interruptible transfers.
// A task exists exactly as long as its registry entry does: deleting the
// entry is the terminal signal for both completion and abort, and the
// transfer loop discovers it on its next poll.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
	"github.com/Niraj-Kamdar/datastore/pkg/crypto"
)

// ErrConflict is returned for redundant state transitions: pausing a paused
// task, resuming a running one, or claiming an already-assigned one.
var ErrConflict = errors.New("task: conflicting state transition")

// State is the control record for one task.
type State struct {
	IsAssigned bool `json:"is_assigned"`
	IsPaused   bool `json:"is_paused"`
}

// Registry stores task state in a cache.Store, one key per task.
type Registry struct {
	store cache.Store
	ttl   time.Duration
}

// NewRegistry returns a Registry whose entries expire ttl after their last
// write.
func NewRegistry(store cache.Store, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl}
}

// Create mints a fresh random task id, inserts the initial state and returns
// the id. An id colliding with a live entry is re-minted, so ids are never
// reused while a stale transfer loop might still be polling them.
func (r *Registry) Create(ctx context.Context) (string, error) {
	for {
		id, err := crypto.GenerateTaskID()
		if err != nil {
			return "", fmt.Errorf("generate task id: %w", err)
		}
		if _, err := r.store.Get(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, cache.ErrNotFound) {
			return "", err
		}
		if err := r.write(ctx, id, State{}); err != nil {
			return "", err
		}
		return id, nil
	}
}

// Read returns the current state of id, or cache.ErrNotFound if the task
// was aborted, completed, or expired.
func (r *Registry) Read(ctx context.Context, id string) (State, error) {
	raw, err := r.store.Get(ctx, id)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return State{}, fmt.Errorf("decode task state: %w", err)
	}
	return state, nil
}

// Update applies mutate to the current state and writes the result back.
// Every write re-extends the entry to the full task TTL, so a task stays
// alive as long as something keeps touching it and expires one TTL after
// the last touch.
func (r *Registry) Update(ctx context.Context, id string, mutate func(State) (State, error)) error {
	state, err := r.Read(ctx, id)
	if err != nil {
		return err
	}
	next, err := mutate(state)
	if err != nil {
		return err
	}
	return r.write(ctx, id, next)
}

// Pause marks id paused. Pausing an already-paused task is ErrConflict.
func (r *Registry) Pause(ctx context.Context, id string) error {
	return r.Update(ctx, id, func(s State) (State, error) {
		if s.IsPaused {
			return s, ErrConflict
		}
		s.IsPaused = true
		return s, nil
	})
}

// Resume clears the paused flag. Resuming a running task is ErrConflict.
func (r *Registry) Resume(ctx context.Context, id string) error {
	return r.Update(ctx, id, func(s State) (State, error) {
		if !s.IsPaused {
			return s, ErrConflict
		}
		s.IsPaused = false
		return s, nil
	})
}

// Assign claims id for a transfer loop. A task may be claimed once; a
// second claim while still assigned is ErrConflict.
func (r *Registry) Assign(ctx context.Context, id string) error {
	return r.Update(ctx, id, func(s State) (State, error) {
		if s.IsAssigned {
			return s, ErrConflict
		}
		s.IsAssigned = true
		return s, nil
	})
}

// Remove deletes the task entry. Returns cache.ErrNotFound if it is
// already gone.
func (r *Registry) Remove(ctx context.Context, id string) error {
	return r.store.Delete(ctx, id)
}

func (r *Registry) write(ctx context.Context, id string, state State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode task state: %w", err)
	}
	return r.store.Set(ctx, id, raw, r.ttl)
}
