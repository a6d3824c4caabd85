package domain

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Candidate is a due item together with the priority of its collection, as
// needed by the selection ordering.
type Candidate struct {
	Item               Item `json:"item"`
	CollectionPriority int  `json:"collection_priority"`
}

// CompareCandidates orders candidates by:
//
//  1. next due time, earliest first
//  2. item priority, highest first
//  3. collection priority, highest first
//  4. creation time, oldest first
//
// Item id breaks any remaining tie so the order is total.
func CompareCandidates(a, b Candidate) int {
	if c := a.Item.NextDueAt.Compare(b.Item.NextDueAt); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Item.Priority, a.Item.Priority); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CollectionPriority, a.CollectionPriority); c != 0 {
		return c
	}
	if c := a.Item.CreatedAt.Compare(b.Item.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.Item.ID.String(), b.Item.ID.String())
}

// SortCandidates sorts in place using CompareCandidates.
func SortCandidates(cs []Candidate) {
	slices.SortStableFunc(cs, CompareCandidates)
}

// DueNotification is one item that may be announced in a reminder.
type DueNotification struct {
	ItemID         uuid.UUID `json:"item_id"`
	UserID         uuid.UUID `json:"user_id"`
	CollectionID   uuid.UUID `json:"collection_id"`
	CollectionName string    `json:"collection_name"`
	DeliveryToken  string    `json:"-"`
	NextDueAt      time.Time `json:"next_due_at"`
}
