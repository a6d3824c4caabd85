package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemState is the lifecycle state of an item's memory.
type ItemState string

// Possible item states
const (
	StateNew        ItemState = "new"
	StateLearning   ItemState = "learning"
	StateReview     ItemState = "review"
	StateRelearning ItemState = "relearning"
)

// Valid reports whether s is a known item state.
func (s ItemState) Valid() bool {
	switch s {
	case StateNew, StateLearning, StateReview, StateRelearning:
		return true
	default:
		return false
	}
}

// Difficulty bounds of the memory model.
const (
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
)

// Priority bounds shared by items and collections.
const (
	MinPriority     = 0
	MaxPriority     = 100
	DefaultPriority = 50
)

// MemoryState captures what the memory model knows about an item.
type MemoryState struct {
	Stability      float64    `json:"stability"`
	Difficulty     float64    `json:"difficulty"`
	ElapsedDays    int        `json:"elapsed_days"`
	ScheduledDays  int        `json:"scheduled_days"`
	Reps           int        `json:"reps"`
	Lapses         int        `json:"lapses"`
	State          ItemState  `json:"state"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// Item is a learning card owned by a user and filed in exactly one collection.
type Item struct {
	ID           uuid.UUID   `json:"id"`
	UserID       uuid.UUID   `json:"user_id"`
	CollectionID uuid.UUID   `json:"collection_id"`
	Memory       MemoryState `json:"memory"`
	NextDueAt    time.Time   `json:"next_due_at"`
	SnoozedUntil *time.Time  `json:"snoozed_until,omitempty"`
	NotifiedAt   *time.Time  `json:"notified_at,omitempty"`
	Priority     int         `json:"priority"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewItem creates a NEW item that is due immediately.
func NewItem(userID, collectionID uuid.UUID, priority int, now time.Time) (*Item, error) {
	item := &Item{
		ID:           uuid.New(),
		UserID:       userID,
		CollectionID: collectionID,
		Memory: MemoryState{
			State: StateNew,
		},
		NextDueAt: now,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	return item, nil
}

// Validate checks the item's invariants.
func (i *Item) Validate() error {
	if i.UserID == uuid.Nil || i.CollectionID == uuid.Nil {
		return Errorf(CodeInvalidCollection, "item must reference an owner and a collection")
	}
	if err := ValidatePriority(i.Priority); err != nil {
		return err
	}
	if !i.Memory.State.Valid() {
		return fmt.Errorf("unknown item state %q", i.Memory.State)
	}
	return nil
}

// IsSnoozed reports whether the item is suppressed at now.
func (i *Item) IsSnoozed(now time.Time) bool {
	return i.SnoozedUntil != nil && i.SnoozedUntil.After(now)
}

// IsDue reports whether the item is due and not snoozed at now.
func (i *Item) IsDue(now time.Time) bool {
	return !i.NextDueAt.After(now) && !i.IsSnoozed(now)
}

// ApplyReview stores the outcome of a grade on the item. Grading always clears
// the notification marker so the item can be announced again once due.
func (i *Item) ApplyReview(memory MemoryState, nextDueAt, at time.Time) {
	i.Memory = memory
	i.NextDueAt = nextDueAt
	i.NotifiedAt = nil
	i.UpdatedAt = at
}

// Snooze suppresses the item until the given instant without moving its
// scheduled due date.
func (i *Item) Snooze(until, at time.Time) {
	i.SnoozedUntil = &until
	i.UpdatedAt = at
}

// ValidatePriority checks that p is within the shared priority range.
func ValidatePriority(p int) error {
	if p < MinPriority || p > MaxPriority {
		return ErrInvalidPriority
	}
	return nil
}
