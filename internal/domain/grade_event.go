package domain

import (
	"time"

	"github.com/google/uuid"
)

// GradeEvent is an append-only review log entry.
type GradeEvent struct {
	ID            uuid.UUID  `json:"id"`
	ItemID        uuid.UUID  `json:"item_id"`
	UserID        uuid.UUID  `json:"user_id"`
	SessionID     *uuid.UUID `json:"session_id,omitempty"`
	Grade         Grade      `json:"grade"`
	StateBefore   ItemState  `json:"state_before"`
	StateAfter    ItemState  `json:"state_after"`
	ScheduledDays int        `json:"scheduled_days"`
	ReviewedAt    time.Time  `json:"reviewed_at"`
}

// NewGradeEvent records the transition an item went through when graded.
func NewGradeEvent(item *Item, before MemoryState, grade Grade, sessionID *uuid.UUID, at time.Time) *GradeEvent {
	return &GradeEvent{
		ID:            uuid.New(),
		ItemID:        item.ID,
		UserID:        item.UserID,
		SessionID:     sessionID,
		Grade:         grade,
		StateBefore:   before.State,
		StateAfter:    item.Memory.State,
		ScheduledDays: item.Memory.ScheduledDays,
		ReviewedAt:    at,
	}
}
