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

var sessionColumns = []string{
	"id", "user_id", "status", "origin", "scope_collection_id",
	"resumable_until", "started_at", "completed_at", "abandoned_at",
	"created_at", "updated_at",
}

// PostgresSessionStore implements store.SessionStore.
type PostgresSessionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.SessionStore = (*PostgresSessionStore)(nil)

// NewSessionStore creates a PostgresSessionStore.
func NewSessionStore(db store.DBTX, logger *slog.Logger) *PostgresSessionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSessionStore{
		db:     db,
		logger: logger.With(slog.String("component", "session_store")),
	}
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s                                        domain.Session
		status, origin                           string
		scope                                    uuid.NullUUID
		resumable, started, completed, abandoned sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &status, &origin, &scope,
		&resumable, &started, &completed, &abandoned,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = domain.SessionStatus(status)
	s.Origin = domain.SessionOrigin(origin)
	s.ScopeCollectionID = nullUUID(scope)
	s.ResumableUntil = nullTime(resumable)
	s.StartedAt = nullTime(started)
	s.CompletedAt = nullTime(completed)
	s.AbandonedAt = nullTime(abandoned)
	return &s, nil
}

// Create implements store.SessionStore.
func (s *PostgresSessionStore) Create(ctx context.Context, sess *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Insert("sessions").
		Columns(sessionColumns...).
		Values(sess.ID, sess.UserID, string(sess.Status), string(sess.Origin), toNullUUID(sess.ScopeCollectionID),
			toNullTime(sess.ResumableUntil), toNullTime(sess.StartedAt), toNullTime(sess.CompletedAt), toNullTime(sess.AbandonedAt),
			sess.CreatedAt, sess.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create session",
			slog.String("error", err.Error()),
			slog.String("session_id", sess.ID.String()))
		return MapError(err)
	}

	if len(sess.Items) == 0 {
		return nil
	}

	ins := psql.Insert("session_items").Columns("session_id", "item_id", "position", "result", "grade", "graded_at")
	for _, it := range sess.Items {
		ins = ins.Values(sess.ID, it.ItemID, it.Position, resultValue(it.Result), gradeValue(it.Grade), toNullTime(it.GradedAt))
	}
	query, args, err = ins.ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		log.Error("failed to create session items",
			slog.String("error", err.Error()),
			slog.String("session_id", sess.ID.String()))
		return MapError(err)
	}
	return nil
}

func (s *PostgresSessionStore) get(ctx context.Context, id uuid.UUID, forUpdate bool) (*domain.Session, error) {
	b := psql.Select(sessionColumns...).From("sessions").Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	sess, err := scanSession(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapNotFound(err, store.ErrSessionNotFound)
	}
	if err := s.loadItems(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *PostgresSessionStore) loadItems(ctx context.Context, sess *domain.Session) error {
	query, args, err := psql.Select("item_id", "position", "result", "grade", "graded_at").
		From("session_items").
		Where(sq.Eq{"session_id": sess.ID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()

	sess.Items = sess.Items[:0]
	for rows.Next() {
		var (
			it            domain.SessionItem
			result, grade sql.NullString
			gradedAt      sql.NullTime
		)
		if err := rows.Scan(&it.ItemID, &it.Position, &result, &grade, &gradedAt); err != nil {
			return MapError(err)
		}
		it.SessionID = sess.ID
		if result.Valid {
			r := domain.ItemResult(result.String)
			it.Result = &r
		}
		if grade.Valid {
			g := domain.Grade(grade.String)
			it.Grade = &g
		}
		it.GradedAt = nullTime(gradedAt)
		sess.Items = append(sess.Items, it)
	}
	return MapError(rows.Err())
}

// GetByID implements store.SessionStore.
func (s *PostgresSessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, id, false)
}

// GetByIDForUpdate implements store.SessionStore.
func (s *PostgresSessionStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.get(ctx, id, true)
}

// Update implements store.SessionStore. Membership results are written with
// a "result IS NULL" guard so an outcome, once recorded, stays.
func (s *PostgresSessionStore) Update(ctx context.Context, sess *domain.Session) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args, err := psql.Update("sessions").
		SetMap(map[string]any{
			"status":          string(sess.Status),
			"resumable_until": toNullTime(sess.ResumableUntil),
			"started_at":      toNullTime(sess.StartedAt),
			"completed_at":    toNullTime(sess.CompletedAt),
			"abandoned_at":    toNullTime(sess.AbandonedAt),
			"updated_at":      sess.UpdatedAt,
		}).
		Where(sq.Eq{"id": sess.ID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update session",
			slog.String("error", err.Error()),
			slog.String("session_id", sess.ID.String()))
		return MapError(err)
	}
	if err := CheckRowsAffected(res, store.ErrSessionNotFound); err != nil {
		return err
	}

	for _, it := range sess.Items {
		if it.Result == nil {
			continue
		}
		query, args, err := psql.Update("session_items").
			Set("result", string(*it.Result)).
			Set("grade", gradeValue(it.Grade)).
			Set("graded_at", toNullTime(it.GradedAt)).
			Where(sq.Eq{"session_id": sess.ID, "item_id": it.ItemID, "result": nil}).
			ToSql()
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			log.Error("failed to record session item result",
				slog.String("error", err.Error()),
				slog.String("session_id", sess.ID.String()),
				slog.String("item_id", it.ItemID.String()))
			return MapError(err)
		}
	}
	return nil
}

func (s *PostgresSessionStore) list(ctx context.Context, b sq.SelectBuilder) ([]*domain.Session, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}

	var out []*domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			_ = rows.Close()
			return nil, MapError(err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, MapError(err)
	}
	_ = rows.Close()

	// Items are loaded after the cursor is closed; a transaction carries
	// one active result set at a time.
	for _, sess := range out {
		if err := s.loadItems(ctx, sess); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ListActiveByUser implements store.SessionStore.
func (s *PostgresSessionStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.list(ctx, psql.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"user_id": userID, "status": string(domain.SessionActive)}).
		OrderBy("started_at DESC", "id"))
}

// ListPendingByUser implements store.SessionStore.
func (s *PostgresSessionStore) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	return s.list(ctx, pendingByUser(userID))
}

// LatestPendingByUser implements store.SessionStore.
func (s *PostgresSessionStore) LatestPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	sessions, err := s.list(ctx, pendingByUser(userID).Limit(1))
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, store.ErrSessionNotFound
	}
	return sessions[0], nil
}

func pendingByUser(userID uuid.UUID) sq.SelectBuilder {
	return psql.Select(sessionColumns...).
		From("sessions").
		Where(sq.Eq{"user_id": userID, "status": string(domain.SessionPending)}).
		OrderBy("created_at DESC", "id")
}

// ActiveItemIDs implements store.SessionStore.
func (s *PostgresSessionStore) ActiveItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query, args, err := psql.Select("DISTINCT si.item_id").
		From("session_items si").
		Join("sessions s ON s.id = si.session_id").
		Where(sq.Eq{"s.user_id": userID, "s.status": string(domain.SessionActive)}).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}
	return ids, MapError(rows.Err())
}

// LockUser implements store.SessionStore with a transaction-scoped advisory
// lock keyed by the user id.
func (s *PostgresSessionStore) LockUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", userID.String())
	return MapError(err)
}

func resultValue(r *domain.ItemResult) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*r), Valid: true}
}

func gradeValue(g *domain.Grade) sql.NullString {
	if g == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*g), Valid: true}
}
