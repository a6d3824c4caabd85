package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/store"
	"github.com/stretchr/testify/require"
)

// ItemOption customizes an item built by MustInsertItem.
type ItemOption func(*domain.Item)

// WithDueAt sets the item's next due time.
func WithDueAt(t time.Time) ItemOption {
	return func(i *domain.Item) { i.NextDueAt = t }
}

// WithPriority sets the item priority.
func WithPriority(p int) ItemOption {
	return func(i *domain.Item) { i.Priority = p }
}

// WithCreatedAt sets the creation time.
func WithCreatedAt(t time.Time) ItemOption {
	return func(i *domain.Item) { i.CreatedAt = t }
}

// WithSnoozedUntil snoozes the item.
func WithSnoozedUntil(t time.Time) ItemOption {
	return func(i *domain.Item) { i.SnoozedUntil = &t }
}

// WithNotifiedAt marks the item as already announced.
func WithNotifiedAt(t time.Time) ItemOption {
	return func(i *domain.Item) { i.NotifiedAt = &t }
}

// WithMemory replaces the memory state.
func WithMemory(m domain.MemoryState) ItemOption {
	return func(i *domain.Item) { i.Memory = m }
}

// MustInsertCollection creates a collection for userID. parent may be nil.
func MustInsertCollection(
	t *testing.T,
	st store.Store,
	userID uuid.UUID,
	name string,
	priority int,
	parent *domain.Collection,
	now time.Time,
) *domain.Collection {
	t.Helper()

	c, err := domain.NewCollection(userID, name, priority, parent, now)
	require.NoError(t, err, "failed to build collection")
	require.NoError(t, st.Stores().Collections.Create(context.Background(), c), "failed to insert collection")
	return c
}

// MustInsertItem creates an item in collection c, due at now unless an
// option says otherwise.
func MustInsertItem(t *testing.T, st store.Store, c *domain.Collection, now time.Time, opts ...ItemOption) *domain.Item {
	t.Helper()

	item, err := domain.NewItem(c.UserID, c.ID, domain.DefaultPriority, now)
	require.NoError(t, err, "failed to build item")
	for _, opt := range opts {
		opt(item)
	}
	require.NoError(t, st.Stores().Items.Create(context.Background(), item), "failed to insert item")
	return item
}

// MustInsertItems creates n items in c that are due at now, each created one
// second after the previous so selection order is deterministic.
func MustInsertItems(t *testing.T, st store.Store, c *domain.Collection, now time.Time, n int) []*domain.Item {
	t.Helper()

	items := make([]*domain.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, MustInsertItem(t, st, c, now, WithCreatedAt(now.Add(time.Duration(i)*time.Second))))
	}
	return items
}

// MustInsertProfile stores a reminder profile for userID after applying fn.
func MustInsertProfile(
	t *testing.T,
	st store.Store,
	userID uuid.UUID,
	now time.Time,
	fn func(*domain.ReminderProfile),
) *domain.ReminderProfile {
	t.Helper()

	p := domain.NewReminderProfile(userID, now)
	if fn != nil {
		fn(p)
	}
	require.NoError(t, st.Stores().Profiles.Upsert(context.Background(), p), "failed to insert profile")
	return p
}

// MustGetItem reloads an item.
func MustGetItem(t *testing.T, st store.Store, id uuid.UUID) *domain.Item {
	t.Helper()

	item, err := st.Stores().Items.GetByID(context.Background(), id)
	require.NoError(t, err, "failed to load item")
	return item
}

// MustGetSession reloads a session.
func MustGetSession(t *testing.T, st store.Store, id uuid.UUID) *domain.Session {
	t.Helper()

	s, err := st.Stores().Sessions.GetByID(context.Background(), id)
	require.NoError(t, err, "failed to load session")
	return s
}
