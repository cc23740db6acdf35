package tui

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C).
	ErrAborted = errors.New("tui: aborted")
	// ErrCancelled is returned when the user picked the cancel control.
	ErrCancelled = errors.New("tui: sequence cancelled")
	// ErrNoActions is returned when a rendered step offers nothing to
	// activate.
	ErrNoActions = errors.New("tui: step has no actions")
	// ErrNotStarted is returned when the controller is inert or the origin
	// activation produced no step.
	ErrNotStarted = errors.New("tui: sequence did not start")
)
