package service

import "errors"

var (
	ErrTaskNotFound       = errors.New("task is aborted or invalid")
	ErrTaskAlreadyPaused  = errors.New("task is already paused")
	ErrTaskAlreadyRunning = errors.New("task is already running")
	ErrTaskAssigned       = errors.New("task is already assigned")
	ErrTaskAborted        = errors.New("task is aborted")

	ErrInvalidEmail           = errors.New("invalid email address")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("incorrect email or password")

	ErrBadPattern = errors.New("invalid filename pattern")
)
