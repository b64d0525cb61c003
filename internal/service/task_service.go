package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
	"github.com/Niraj-Kamdar/datastore/internal/task"
)

// TaskService is the control surface for transfer tasks: short read-modify-
// write operations that run concurrently with in-flight transfer loops.
type TaskService interface {
	Create(ctx context.Context) (string, error)
	Pause(ctx context.Context, taskID string) error
	Resume(ctx context.Context, taskID string) error
	Abort(ctx context.Context, taskID string) error
}

type taskService struct {
	registry *task.Registry
}

func NewTaskService(registry *task.Registry) TaskService {
	return &taskService{registry: registry}
}

func (s *taskService) Create(ctx context.Context) (string, error) {
	id, err := s.registry.Create(ctx)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

func (s *taskService) Pause(ctx context.Context, taskID string) error {
	err := s.registry.Pause(ctx, taskID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, task.ErrConflict):
		return ErrTaskAlreadyPaused
	}
	return err
}

func (s *taskService) Resume(ctx context.Context, taskID string) error {
	err := s.registry.Resume(ctx, taskID)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return ErrTaskNotFound
	case errors.Is(err, task.ErrConflict):
		return ErrTaskAlreadyRunning
	}
	return err
}

func (s *taskService) Abort(ctx context.Context, taskID string) error {
	err := s.registry.Remove(ctx, taskID)
	if errors.Is(err, cache.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
