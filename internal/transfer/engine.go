// Package transfer implements the cooperative chunked-transfer loop. Each
// iteration re-reads the task's registry entry and only then moves one chunk
// (or deletes one path), so pause and abort requests issued through the
// control surface take effect within one poll interval.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
	"github.com/Niraj-Kamdar/datastore/internal/task"
)

// Outcome reports how a transfer loop terminated. The registry cannot tell
// completion from abort (absence means "stop" either way), so the engine
// reports it to the caller, which owns the cleanup.
type Outcome int

const (
	// OutcomeCompleted means the source was drained and the task entry was
	// removed by the engine.
	OutcomeCompleted Outcome = iota + 1

	// OutcomeAborted means the task entry vanished mid-transfer: an explicit
	// abort or a TTL expiry. The two are indistinguishable here.
	OutcomeAborted
)

// Engine drives interruptible transfers against a task registry.
// Chunk size and poll interval are fixed configuration, shared by every
// transfer the engine runs.
type Engine struct {
	registry     *task.Registry
	chunkSize    int
	pollInterval time.Duration
	log          *zap.Logger
}

func NewEngine(registry *task.Registry, chunkSize int, pollInterval time.Duration, log *zap.Logger) *Engine {
	return &Engine{
		registry:     registry,
		chunkSize:    chunkSize,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Copy moves bytes from src to dst one chunk at a time under control of
// taskID. An empty read ends the transfer as completed, which removes the
// task entry. I/O errors are returned unwrapped in meaning: they are
// transfer failures, never retried, and distinct from an abort.
func (e *Engine) Copy(ctx context.Context, taskID string, dst io.Writer, src io.Reader) (Outcome, error) {
	buf := make([]byte, e.chunkSize)
	for {
		state, err := e.poll(ctx, taskID)
		if err != nil {
			return 0, err
		}
		if state == nil {
			return OutcomeAborted, nil
		}
		if state.IsPaused {
			if err := e.wait(ctx); err != nil {
				return 0, err
			}
			continue
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return 0, fmt.Errorf("write chunk: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) || (n == 0 && err == nil) {
			return e.complete(ctx, taskID)
		}
		if err != nil {
			return 0, fmt.Errorf("read chunk: %w", err)
		}
	}
}

// Purge deletes the given paths one per iteration under control of taskID,
// using remove for each. Exhausting the list ends the transfer as completed.
func (e *Engine) Purge(ctx context.Context, taskID string, paths []string, remove func(string) error) (Outcome, error) {
	next := 0
	for {
		state, err := e.poll(ctx, taskID)
		if err != nil {
			return 0, err
		}
		if state == nil {
			return OutcomeAborted, nil
		}
		if state.IsPaused {
			if err := e.wait(ctx); err != nil {
				return 0, err
			}
			continue
		}

		if next >= len(paths) {
			return e.complete(ctx, taskID)
		}
		if err := remove(paths[next]); err != nil {
			return 0, fmt.Errorf("remove %s: %w", paths[next], err)
		}
		next++
	}
}

// poll reads the task state; a nil state with nil error means the entry is
// gone and the transfer must stop.
func (e *Engine) poll(ctx context.Context, taskID string) (*task.State, error) {
	state, err := e.registry.Read(ctx, taskID)
	if errors.Is(err, cache.ErrNotFound) {
		e.log.Info("task vanished, aborting transfer", zap.String("task_id", taskID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// wait sleeps one poll interval, or less if ctx is cancelled first.
func (e *Engine) wait(ctx context.Context) error {
	timer := time.NewTimer(e.pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// complete removes the task entry. A concurrent abort may have removed it
// already; that is fine, the record just needs to be gone.
func (e *Engine) complete(ctx context.Context, taskID string) (Outcome, error) {
	if err := e.registry.Remove(ctx, taskID); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return 0, err
	}
	e.log.Debug("transfer completed", zap.String("task_id", taskID))
	return OutcomeCompleted, nil
}
