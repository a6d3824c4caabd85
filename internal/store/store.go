package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
)

// ItemStore persists items and answers the due-item queries.
type ItemStore interface {
	// Create inserts a new item.
	Create(ctx context.Context, item *domain.Item) error

	// GetByID returns the item or ErrItemNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// GetByIDForUpdate is GetByID that also locks the row until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Item, error)

	// Update stores the memory state, due date, snooze and notification
	// markers of an existing item.
	Update(ctx context.Context, item *domain.Item) error

	// ListDue returns the user's items that are due and not snoozed at now,
	// joined with their collection priority. With scope set, only items of
	// that collection and its direct children are returned. The result is
	// not in selection order.
	ListDue(ctx context.Context, userID uuid.UUID, now time.Time, scope *uuid.UUID) ([]domain.Candidate, error)

	// Snooze suppresses the given items until the given instant and returns
	// the number of rows changed.
	Snooze(ctx context.Context, ids []uuid.UUID, until time.Time) (int, error)

	// ListReminderCandidates returns items that fall into the reminder
	// window, belong to users with reminders enabled and a delivery token,
	// are not snoozed and were not notified recently.
	ListReminderCandidates(ctx context.Context, q ReminderQuery) ([]domain.DueNotification, error)

	// MarkNotified stamps the given items as notified at the given time.
	MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// ReminderQuery bounds a reminder candidate search.
type ReminderQuery struct {
	Now            time.Time
	DueFrom        time.Time
	DueTo          time.Time
	NotifiedBefore time.Time
}

// CollectionStore persists collections.
type CollectionStore interface {
	Create(ctx context.Context, c *domain.Collection) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error)
}

// SessionStore persists sessions together with their items.
type SessionStore interface {
	// Create inserts the session and all its membership rows.
	Create(ctx context.Context, s *domain.Session) error

	// GetByID returns the session with its items in order, or
	// ErrSessionNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// GetByIDForUpdate is GetByID that also locks the session row, which
	// serializes all mutations of one session.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error)

	// Update stores the status, timestamps and membership results of an
	// existing session. A result that is already set is never overwritten.
	Update(ctx context.Context, s *domain.Session) error

	// ListActiveByUser returns all ACTIVE sessions of the user, including
	// ones whose resumable window has passed.
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)

	// ListPendingByUser returns all PENDING sessions of the user, newest
	// first.
	ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error)

	// LatestPendingByUser returns the newest PENDING session of the user or
	// ErrSessionNotFound.
	LatestPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error)

	// ActiveItemIDs returns the ids of all items that are members of any
	// ACTIVE session of the user.
	ActiveItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// LockUser serializes session creation for one user until the
	// surrounding transaction ends.
	LockUser(ctx context.Context, userID uuid.UUID) error
}

// GradeEventStore appends to the review log.
type GradeEventStore interface {
	Create(ctx context.Context, e *domain.GradeEvent) error
	ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.GradeEvent, error)
}

// ReminderProfileStore persists reminder profiles.
type ReminderProfileStore interface {
	// Get returns the profile or ErrProfileNotFound.
	Get(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error)

	// GetForUpdate is Get that also locks the row.
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error)

	// Upsert inserts or replaces the profile.
	Upsert(ctx context.Context, p *domain.ReminderProfile) error
}

// Stores bundles the repositories that share one connection or transaction.
type Stores struct {
	Items       ItemStore
	Collections CollectionStore
	Sessions    SessionStore
	Grades      GradeEventStore
	Profiles    ReminderProfileStore
}

// StoresFn is a unit of work executed against transaction-bound stores.
type StoresFn func(ctx context.Context, s Stores) error

// Store is the entry point services use to reach persistence.
type Store interface {
	// Stores returns repositories bound to the underlying connection, for
	// reads that need no transaction.
	Stores() Stores

	// RunInTransaction executes fn atomically. The transaction commits when
	// fn returns nil and rolls back otherwise.
	RunInTransaction(ctx context.Context, fn StoresFn) error
}
