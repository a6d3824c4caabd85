package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/store"
)

var itemColumns = []string{
	"i.id", "i.user_id", "i.collection_id",
	"i.stability", "i.difficulty", "i.elapsed_days", "i.scheduled_days",
	"i.reps", "i.lapses", "i.state", "i.last_reviewed_at",
	"i.next_due_at", "i.snoozed_until", "i.notified_at",
	"i.priority", "i.created_at", "i.updated_at",
}

// PostgresItemStore implements store.ItemStore.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.ItemStore = (*PostgresItemStore)(nil)

// NewItemStore creates a PostgresItemStore on a connection or transaction.
func NewItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

func scanItem(row rowScanner, extra ...any) (*domain.Item, error) {
	var (
		item                            domain.Item
		state                           string
		lastReviewed, snoozed, notified sql.NullTime
	)
	dest := []any{
		&item.ID, &item.UserID, &item.CollectionID,
		&item.Memory.Stability, &item.Memory.Difficulty, &item.Memory.ElapsedDays, &item.Memory.ScheduledDays,
		&item.Memory.Reps, &item.Memory.Lapses, &state, &lastReviewed,
		&item.NextDueAt, &snoozed, &notified,
		&item.Priority, &item.CreatedAt, &item.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	item.Memory.State = domain.ItemState(state)
	item.Memory.LastReviewedAt = nullTime(lastReviewed)
	item.SnoozedUntil = nullTime(snoozed)
	item.NotifiedAt = nullTime(notified)
	return &item, nil
}

// Create implements store.ItemStore.
func (s *PostgresItemStore) Create(ctx context.Context, item *domain.Item) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		return err
	}

	query, args, err := psql.Insert("items").
		Columns(
			"id", "user_id", "collection_id",
			"stability", "difficulty", "elapsed_days", "scheduled_days",
			"reps", "lapses", "state", "last_reviewed_at",
			"next_due_at", "snoozed_until", "notified_at",
			"priority", "created_at", "updated_at",
		).
		Values(
			item.ID, item.UserID, item.CollectionID,
			item.Memory.Stability, item.Memory.Difficulty, item.Memory.ElapsedDays, item.Memory.ScheduledDays,
			item.Memory.Reps, item.Memory.Lapses, string(item.Memory.State), toNullTime(item.Memory.LastReviewedAt),
			item.NextDueAt, toNullTime(item.SnoozedUntil), toNullTime(item.NotifiedAt),
			item.Priority, item.CreatedAt, item.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return MapError(err)
	}
	return nil
}

func (s *PostgresItemStore) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Item, error) {
	b := psql.Select(itemColumns...).From("items i").Where(sq.Eq{"i.id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapNotFound(err, store.ErrItemNotFound)
	}
	return item, nil
}

// GetByID implements store.ItemStore.
func (s *PostgresItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.get(ctx, id, false)
}

// GetByIDForUpdate implements store.ItemStore.
func (s *PostgresItemStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.get(ctx, id, true)
}

// Update implements store.ItemStore.
func (s *PostgresItemStore) Update(ctx context.Context, item *domain.Item) error {
	query, args, err := psql.Update("items").
		SetMap(map[string]any{
			"stability":        item.Memory.Stability,
			"difficulty":       item.Memory.Difficulty,
			"elapsed_days":     item.Memory.ElapsedDays,
			"scheduled_days":   item.Memory.ScheduledDays,
			"reps":             item.Memory.Reps,
			"lapses":           item.Memory.Lapses,
			"state":            string(item.Memory.State),
			"last_reviewed_at": toNullTime(item.Memory.LastReviewedAt),
			"next_due_at":      item.NextDueAt,
			"snoozed_until":    toNullTime(item.SnoozedUntil),
			"notified_at":      toNullTime(item.NotifiedAt),
			"priority":         item.Priority,
			"updated_at":       item.UpdatedAt,
		}).
		Where(sq.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to update item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return MapError(err)
	}
	return CheckRowsAffected(res, store.ErrItemNotFound)
}

// ListDue implements store.ItemStore.
func (s *PostgresItemStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	scope *uuid.UUID,
) ([]domain.Candidate, error) {
	b := psql.Select(append(itemColumns, "c.priority")...).
		From("items i").
		Join("collections c ON c.id = i.collection_id").
		Where(sq.Eq{"i.user_id": userID}).
		Where(sq.LtOrEq{"i.next_due_at": now}).
		Where(sq.Or{sq.Eq{"i.snoozed_until": nil}, sq.LtOrEq{"i.snoozed_until": now}})
	if scope != nil {
		b = b.Where(sq.Or{sq.Eq{"c.id": *scope}, sq.Eq{"c.parent_id": *scope}})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.Candidate
	for rows.Next() {
		var collectionPriority int
		item, err := scanItem(rows, &collectionPriority)
		if err != nil {
			return nil, MapError(err)
		}
		out = append(out, domain.Candidate{Item: *item, CollectionPriority: collectionPriority})
	}
	return out, MapError(rows.Err())
}

// Snooze implements store.ItemStore.
func (s *PostgresItemStore) Snooze(ctx context.Context, ids []uuid.UUID, until time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := psql.Update("items").
		Set("snoozed_until", until).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, MapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ListReminderCandidates implements store.ItemStore.
func (s *PostgresItemStore) ListReminderCandidates(ctx context.Context, q store.ReminderQuery) ([]domain.DueNotification, error) {
	query, args, err := psql.Select(
		"i.id", "i.user_id", "i.collection_id", "c.name", "p.delivery_token", "i.next_due_at",
	).
		From("items i").
		Join("collections c ON c.id = i.collection_id").
		Join("reminder_profiles p ON p.user_id = i.user_id").
		Where(sq.GtOrEq{"i.next_due_at": q.DueFrom}).
		Where(sq.LtOrEq{"i.next_due_at": q.DueTo}).
		Where(sq.Or{sq.Eq{"i.snoozed_until": nil}, sq.LtOrEq{"i.snoozed_until": q.Now}}).
		Where(sq.Or{sq.Eq{"i.notified_at": nil}, sq.Lt{"i.notified_at": q.NotifiedBefore}}).
		Where(sq.Eq{"p.enabled": true}).
		Where(sq.NotEq{"p.delivery_token": nil}).
		Where(sq.NotEq{"p.delivery_token": ""}).
		OrderBy("i.user_id", "i.next_due_at", "i.id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []domain.DueNotification
	for rows.Next() {
		var n domain.DueNotification
		if err := rows.Scan(&n.ItemID, &n.UserID, &n.CollectionID, &n.CollectionName, &n.DeliveryToken, &n.NextDueAt); err != nil {
			return nil, MapError(err)
		}
		out = append(out, n)
	}
	return out, MapError(rows.Err())
}

// MarkNotified implements store.ItemStore.
func (s *PostgresItemStore) MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Update("items").
		Set("notified_at", at).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return MapError(err)
}
