package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/store"
)

var profileColumns = []string{
	"user_id", "enabled", "delivery_token", "cooldown_minutes", "max_per_day",
	"count_today", "last_sent_at", "session_size", "created_at", "updated_at",
}

// PostgresReminderProfileStore implements store.ReminderProfileStore.
type PostgresReminderProfileStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.ReminderProfileStore = (*PostgresReminderProfileStore)(nil)

// NewReminderProfileStore creates a PostgresReminderProfileStore.
func NewReminderProfileStore(db store.DBTX, logger *slog.Logger) *PostgresReminderProfileStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresReminderProfileStore{
		db:     db,
		logger: logger.With(slog.String("component", "reminder_profile_store")),
	}
}

func (s *PostgresReminderProfileStore) get(ctx context.Context, userID uuid.UUID, forUpdate bool) (*domain.ReminderProfile, error) {
	b := psql.Select(profileColumns...).From("reminder_profiles").Where(sq.Eq{"user_id": userID})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	var (
		p        domain.ReminderProfile
		token    sql.NullString
		lastSent sql.NullTime
	)
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.UserID, &p.Enabled, &token, &p.CooldownMinutes, &p.MaxPerDay,
		&p.CountToday, &lastSent, &p.SessionSize, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err, store.ErrProfileNotFound)
	}
	if token.Valid {
		t := token.String
		p.DeliveryToken = &t
	}
	p.LastSentAt = nullTime(lastSent)
	return &p, nil
}

// Get implements store.ReminderProfileStore.
func (s *PostgresReminderProfileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error) {
	return s.get(ctx, userID, false)
}

// GetForUpdate implements store.ReminderProfileStore.
func (s *PostgresReminderProfileStore) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error) {
	return s.get(ctx, userID, true)
}

// Upsert implements store.ReminderProfileStore.
func (s *PostgresReminderProfileStore) Upsert(ctx context.Context, p *domain.ReminderProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var token sql.NullString
	if p.DeliveryToken != nil {
		token = sql.NullString{String: *p.DeliveryToken, Valid: true}
	}

	query, args, err := psql.Insert("reminder_profiles").
		Columns(profileColumns...).
		Values(p.UserID, p.Enabled, token, p.CooldownMinutes, p.MaxPerDay,
			p.CountToday, toNullTime(p.LastSentAt), p.SessionSize, p.CreatedAt, p.UpdatedAt).
		Suffix(`ON CONFLICT (user_id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			delivery_token = EXCLUDED.delivery_token,
			cooldown_minutes = EXCLUDED.cooldown_minutes,
			max_per_day = EXCLUDED.max_per_day,
			count_today = EXCLUDED.count_today,
			last_sent_at = EXCLUDED.last_sent_at,
			session_size = EXCLUDED.session_size,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to upsert reminder profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()))
		return MapError(err)
	}
	return nil
}
