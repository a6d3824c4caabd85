package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-sprint/internal/events"
)

// Submitter accepts tasks for background execution. TaskRunner satisfies it.
type Submitter interface {
	Submit(ctx context.Context, task Task) error
}

// ReminderEventHandler turns reminder.dispatched events into
// PendingSessionTasks.
type ReminderEventHandler struct {
	sessions PendingSessionCreator
	runner   Submitter
	logger   *slog.Logger
}

var _ events.EventHandler = (*ReminderEventHandler)(nil)

// NewReminderEventHandler creates the handler.
func NewReminderEventHandler(
	sessions PendingSessionCreator,
	runner Submitter,
	logger *slog.Logger,
) *ReminderEventHandler {
	if sessions == nil {
		panic("sessions cannot be nil")
	}
	if runner == nil {
		panic("runner cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderEventHandler{
		sessions: sessions,
		runner:   runner,
		logger:   logger.With("component", "reminder_event_handler"),
	}
}

// HandleEvent submits a PendingSessionTask for reminder.dispatched events
// and ignores every other type.
func (h *ReminderEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.TypeReminderDispatched {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.ReminderDispatched
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	task, err := NewPendingSessionTask(h.sessions, payload.UserID, payload.ItemIDs, payload.SessionSize)
	if err != nil {
		h.logger.Error("failed to create task",
			"error", err,
			"user_id", payload.UserID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		h.logger.Error("failed to submit task",
			"error", err,
			"task_id", task.ID(),
			"user_id", payload.UserID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit task: %w", err)
	}

	h.logger.Info("pending session task submitted",
		"task_id", task.ID(),
		"user_id", payload.UserID,
		"items", len(task.ItemIDs()),
		"event_id", event.ID)
	return nil
}
