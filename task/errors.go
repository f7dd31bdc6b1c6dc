package task

import "errors"

var (
	// ErrLoopClosed is the cancellation cause of tasks still pending when the
	// root task finishes.
	ErrLoopClosed = errors.New("task: loop closed")

	// ErrSelfAwait is returned when a task awaits itself.
	ErrSelfAwait = errors.New("task: task awaits itself")

	// ErrForeignTask is returned when awaiting a task owned by another loop.
	ErrForeignTask = errors.New("task: task belongs to another loop")

	// ErrPanic wraps a panic recovered from a task body.
	ErrPanic = errors.New("task: panic")
)
