package postgres_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/postgres"
	"github.com/phrazzld/scry-sprint/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T) (*postgres.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.NewStore(db, slog.Default()), mock
}

var itemCols = []string{
	"id", "user_id", "collection_id", "stability", "difficulty", "elapsed_days", "scheduled_days",
	"reps", "lapses", "state", "last_reviewed_at", "next_due_at", "snoozed_until", "notified_at",
	"priority", "created_at", "updated_at",
}

func itemRow(id, userID, collectionID uuid.UUID) []driver.Value {
	return []driver.Value{
		id.String(), userID.String(), collectionID.String(), 3.2, 5.1, 2, 4,
		3, 0, "review", fixedNow.Add(-48 * time.Hour), fixedNow.Add(-time.Hour), nil, nil,
		70, fixedNow.Add(-72 * time.Hour), fixedNow.Add(-48 * time.Hour),
	}
}

func TestNewStore_NilDBPanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { postgres.NewStore(nil, nil) })
	assert.Panics(t, func() { postgres.NewItemStore(nil, nil) })
}

func TestItemStore_GetByIDForUpdate(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	id, userID, collectionID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM items i WHERE i.id = \$1 FOR UPDATE`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(itemRow(id, userID, collectionID)...))

	item, err := s.Stores().Items.GetByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, collectionID, item.CollectionID)
	assert.Equal(t, domain.StateReview, item.Memory.State)
	assert.Equal(t, 4, item.Memory.ScheduledDays)
	require.NotNil(t, item.Memory.LastReviewedAt)
	assert.Nil(t, item.SnoozedUntil)
	assert.Nil(t, item.NotifiedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemStore_GetByID_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT (.+) FROM items i WHERE i.id = \$1`).
		WillReturnRows(sqlmock.NewRows(itemCols))

	_, err := s.Stores().Items.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrItemNotFound)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestItemStore_ListDue_Scoped(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	userID, scope := uuid.New(), uuid.New()
	a, b := uuid.New(), uuid.New()

	cols := append(append([]string{}, itemCols...), "collection_priority")
	rows := sqlmock.NewRows(cols).
		AddRow(append(itemRow(a, userID, scope), 80)...).
		AddRow(append(itemRow(b, userID, uuid.New()), 20)...)

	mock.ExpectQuery(`SELECT (.+) FROM items i JOIN collections c ON c.id = i.collection_id `+
		`WHERE i.user_id = \$1 AND i.next_due_at <= \$2 AND \(i.snoozed_until IS NULL OR i.snoozed_until <= \$3\) `+
		`AND \(c.id = \$4 OR c.parent_id = \$5\)`).
		WithArgs(userID.String(), fixedNow, fixedNow, scope.String(), scope.String()).
		WillReturnRows(rows)

	got, err := s.Stores().Items.ListDue(context.Background(), userID, fixedNow, &scope)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].Item.ID)
	assert.Equal(t, 80, got[0].CollectionPriority)
	assert.Equal(t, 20, got[1].CollectionPriority)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemStore_Update_NotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	item, err := domain.NewItem(uuid.New(), uuid.New(), domain.DefaultPriority, fixedNow)
	require.NoError(t, err)

	mock.ExpectExec(`UPDATE items SET (.+) WHERE id = \$14`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = s.Stores().Items.Update(context.Background(), item)
	assert.ErrorIs(t, err, store.ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemStore_SnoozeAndMarkNotified(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	until := fixedNow.Add(2 * time.Hour)

	mock.ExpectExec(`UPDATE items SET snoozed_until = \$1 WHERE id IN \(\$2,\$3\)`).
		WithArgs(until, ids[0].String(), ids[1].String()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE items SET notified_at = \$1 WHERE id IN \(\$2,\$3\)`).
		WithArgs(fixedNow, ids[0].String(), ids[1].String()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	items := s.Stores().Items
	n, err := items.Snooze(context.Background(), ids, until)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, items.MarkNotified(context.Background(), ids, fixedNow))

	n, err = items.Snooze(context.Background(), nil, until)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestItemStore_ListReminderCandidates(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	itemID, userID, collectionID := uuid.New(), uuid.New(), uuid.New()
	q := store.ReminderQuery{
		Now:            fixedNow,
		DueFrom:        fixedNow.Add(-24 * time.Hour),
		DueTo:          fixedNow.Add(15 * time.Minute),
		NotifiedBefore: fixedNow.Add(-time.Hour),
	}

	mock.ExpectQuery(`SELECT i.id, i.user_id, i.collection_id, c.name, p.delivery_token, i.next_due_at FROM items i ` +
		`JOIN collections c ON c.id = i.collection_id JOIN reminder_profiles p ON p.user_id = i.user_id (.+) ` +
		`ORDER BY i.user_id, i.next_due_at, i.id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "collection_id", "name", "delivery_token", "next_due_at"}).
			AddRow(itemID.String(), userID.String(), collectionID.String(), "Spanish", "ExponentPushToken[abc]", fixedNow))

	got, err := s.Stores().Items.ListReminderCandidates(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Spanish", got[0].CollectionName)
	assert.Equal(t, "ExponentPushToken[abc]", got[0].DeliveryToken)
	assert.Equal(t, userID, got[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

var sessionCols = []string{
	"id", "user_id", "status", "origin", "scope_collection_id", "resumable_until",
	"started_at", "completed_at", "abandoned_at", "created_at", "updated_at",
}

func TestSessionStore_GetByIDLoadsItemsInOrder(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	id, userID := uuid.New(), uuid.New()
	first, second := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow(
			id.String(), userID.String(), "active", "home", nil, fixedNow.Add(30*time.Minute),
			fixedNow, nil, nil, fixedNow, fixedNow))
	mock.ExpectQuery(`SELECT item_id, position, result, grade, graded_at FROM session_items WHERE session_id = \$1 ORDER BY position`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "position", "result", "grade", "graded_at"}).
			AddRow(first.String(), 0, "pass", "good", fixedNow).
			AddRow(second.String(), 1, nil, nil, nil))

	sess, err := s.Stores().Sessions.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Equal(t, domain.OriginHome, sess.Origin)
	assert.Nil(t, sess.ScopeCollectionID)
	require.Len(t, sess.Items, 2)
	assert.Equal(t, first, sess.Items[0].ItemID)
	require.NotNil(t, sess.Items[0].Result)
	assert.Equal(t, domain.ResultPass, *sess.Items[0].Result)
	assert.False(t, sess.Items[1].Reviewed())
	assert.Equal(t, domain.Progress{Total: 2, Reviewed: 1, Remaining: 1}, sess.Progress())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_UpdateGuardsRecordedResults(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	graded, pending := uuid.New(), uuid.New()
	sess := domain.NewSession(uuid.New(), domain.OriginHome, nil, []uuid.UUID{graded, pending}, fixedNow, 30*time.Minute)
	g := domain.GradeGood
	require.NoError(t, sess.RecordResult(graded, g.Result(), &g, fixedNow))

	mock.ExpectExec(`UPDATE sessions SET (.+) WHERE id = \$7`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE session_items SET result = \$1, grade = \$2, graded_at = \$3 `+
		`WHERE item_id = \$4 AND result IS NULL AND session_id = \$5`).
		WithArgs("pass", "good", fixedNow, graded.String(), sess.ID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Stores().Sessions.Update(context.Background(), sess))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_LockUser(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	userID := uuid.New()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock\(hashtextextended\(\$1, 0\)\)`).
		WithArgs(userID.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Stores().Sessions.LockUser(context.Background(), userID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStore_LatestPendingByUser_None(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE (.+) ORDER BY created_at DESC, id LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := s.Stores().Sessions.LatestPendingByUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSessionStore_ListPendingByUser_Empty(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE (.+) ORDER BY created_at DESC, id$`).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	got, err := s.Stores().Sessions.ListPendingByUser(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderProfileStore_Get(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	userID := uuid.New()
	cols := []string{"user_id", "enabled", "delivery_token", "cooldown_minutes", "max_per_day",
		"count_today", "last_sent_at", "session_size", "created_at", "updated_at"}

	mock.ExpectQuery(`SELECT (.+) FROM reminder_profiles WHERE user_id = \$1 FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			userID.String(), true, "tok", 180, 6, 2, fixedNow, 5, fixedNow, fixedNow))
	mock.ExpectQuery(`SELECT (.+) FROM reminder_profiles WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows(cols))

	profiles := s.Stores().Profiles
	p, err := profiles.GetForUpdate(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, p.HasToken())
	assert.Equal(t, 180, p.CooldownMinutes)
	assert.Equal(t, 2, p.CountToday)

	_, err = profiles.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrProfileNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderProfileStore_Upsert(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	p := domain.NewReminderProfile(uuid.New(), fixedNow)

	mock.ExpectExec(`INSERT INTO reminder_profiles (.+) ON CONFLICT \(user_id\) DO UPDATE SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Stores().Profiles.Upsert(context.Background(), p))

	p.CooldownMinutes = 30
	err := s.Stores().Profiles.Upsert(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RunInTransaction(t *testing.T) {
	t.Parallel()

	s, mock := newMock(t)
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`SELECT pg_advisory_xact_lock`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	boom := errors.New("selection failed")
	err := s.RunInTransaction(context.Background(), func(ctx context.Context, tx store.Stores) error {
		if err := tx.Sessions.LockUser(ctx, userID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationFiles(t *testing.T) {
	t.Parallel()

	files, err := postgres.MigrationFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"00001_create_collections_and_items.sql",
		"00002_create_sessions.sql",
		"00003_create_reminder_profiles.sql",
	}, files)
}
