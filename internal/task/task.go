package task

import (
	"context"

	"github.com/google/uuid"
)

// TaskTypePendingSession prepares a PENDING session for a delivered reminder.
const TaskTypePendingSession = "pending_session"

// Task is a unit of background work. Execute must be safe to call once.
type Task interface {
	ID() uuid.UUID
	Type() string
	Execute(ctx context.Context) error
}

// TaskQueueReader is the consuming side of a queue, used by workers.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter is the producing side of a queue. Enqueue fails with
// ErrQueueFull instead of blocking, and with ErrQueueClosed after Close.
type TaskQueueWriter interface {
	Enqueue(task Task) error
	Close()
}
