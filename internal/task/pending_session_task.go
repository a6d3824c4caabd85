package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
)

// PendingSessionCreator creates PENDING sessions. sprint.Service satisfies it.
type PendingSessionCreator interface {
	CreatePending(
		ctx context.Context,
		userID uuid.UUID,
		itemIDs []uuid.UUID,
		origin domain.SessionOrigin,
	) (*domain.Session, error)
}

// PendingSessionTask prepares a push-origin session over the items a
// reminder announced.
type PendingSessionTask struct {
	id       uuid.UUID
	userID   uuid.UUID
	itemIDs  []uuid.UUID
	sessions PendingSessionCreator
}

var _ Task = (*PendingSessionTask)(nil)

// NewPendingSessionTask builds the task. itemIDs is truncated to size when
// size is positive.
func NewPendingSessionTask(
	sessions PendingSessionCreator,
	userID uuid.UUID,
	itemIDs []uuid.UUID,
	size int,
) (*PendingSessionTask, error) {
	if sessions == nil {
		return nil, fmt.Errorf("pending session creator cannot be nil")
	}
	if len(itemIDs) == 0 {
		return nil, domain.ErrNoEligibleItems
	}
	if size > 0 && len(itemIDs) > size {
		itemIDs = itemIDs[:size]
	}
	ids := make([]uuid.UUID, len(itemIDs))
	copy(ids, itemIDs)

	return &PendingSessionTask{
		id:       uuid.New(),
		userID:   userID,
		itemIDs:  ids,
		sessions: sessions,
	}, nil
}

// ID returns the task's unique identifier
func (t *PendingSessionTask) ID() uuid.UUID { return t.id }

// Type returns TaskTypePendingSession.
func (t *PendingSessionTask) Type() string { return TaskTypePendingSession }

// UserID returns the session owner.
func (t *PendingSessionTask) UserID() uuid.UUID { return t.userID }

// ItemIDs returns the items the session will contain.
func (t *PendingSessionTask) ItemIDs() []uuid.UUID { return t.itemIDs }

// Execute creates the session.
func (t *PendingSessionTask) Execute(ctx context.Context) error {
	if _, err := t.sessions.CreatePending(ctx, t.userID, t.itemIDs, domain.OriginPush); err != nil {
		return fmt.Errorf("failed to create pending session for user %s: %w", t.userID, err)
	}
	return nil
}
