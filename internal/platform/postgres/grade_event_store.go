package postgres

import (
	"context"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/store"
)

// PostgresGradeEventStore implements store.GradeEventStore.
type PostgresGradeEventStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.GradeEventStore = (*PostgresGradeEventStore)(nil)

// NewGradeEventStore creates a PostgresGradeEventStore.
func NewGradeEventStore(db store.DBTX, logger *slog.Logger) *PostgresGradeEventStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGradeEventStore{
		db:     db,
		logger: logger.With(slog.String("component", "grade_event_store")),
	}
}

// Create implements store.GradeEventStore.
func (s *PostgresGradeEventStore) Create(ctx context.Context, e *domain.GradeEvent) error {
	query, args, err := psql.Insert("grade_events").
		Columns("id", "item_id", "user_id", "session_id", "grade",
			"state_before", "state_after", "scheduled_days", "reviewed_at").
		Values(e.ID, e.ItemID, e.UserID, toNullUUID(e.SessionID), string(e.Grade),
			string(e.StateBefore), string(e.StateAfter), e.ScheduledDays, e.ReviewedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to append grade event",
			slog.String("error", err.Error()),
			slog.String("item_id", e.ItemID.String()))
		return MapError(err)
	}
	return nil
}

// ListByItem implements store.GradeEventStore, oldest first.
func (s *PostgresGradeEventStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.GradeEvent, error) {
	query, args, err := psql.Select("id", "item_id", "user_id", "session_id", "grade",
		"state_before", "state_after", "scheduled_days", "reviewed_at").
		From("grade_events").
		Where(sq.Eq{"item_id": itemID}).
		OrderBy("reviewed_at", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.GradeEvent
	for rows.Next() {
		var (
			e                    domain.GradeEvent
			session              uuid.NullUUID
			grade, before, after string
		)
		if err := rows.Scan(&e.ID, &e.ItemID, &e.UserID, &session, &grade,
			&before, &after, &e.ScheduledDays, &e.ReviewedAt); err != nil {
			return nil, MapError(err)
		}
		e.SessionID = nullUUID(session)
		e.Grade = domain.Grade(grade)
		e.StateBefore = domain.ItemState(before)
		e.StateAfter = domain.ItemState(after)
		out = append(out, &e)
	}
	return out, MapError(rows.Err())
}
