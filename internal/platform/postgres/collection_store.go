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

// PostgresCollectionStore implements store.CollectionStore.
type PostgresCollectionStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.CollectionStore = (*PostgresCollectionStore)(nil)

// NewCollectionStore creates a PostgresCollectionStore.
func NewCollectionStore(db store.DBTX, logger *slog.Logger) *PostgresCollectionStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCollectionStore{
		db:     db,
		logger: logger.With(slog.String("component", "collection_store")),
	}
}

// Create implements store.CollectionStore.
func (s *PostgresCollectionStore) Create(ctx context.Context, c *domain.Collection) error {
	query, args, err := psql.Insert("collections").
		Columns("id", "user_id", "parent_id", "name", "priority", "created_at", "updated_at").
		Values(c.ID, c.UserID, toNullUUID(c.ParentID), c.Name, c.Priority, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create collection",
			slog.String("error", err.Error()),
			slog.String("collection_id", c.ID.String()))
		return MapError(err)
	}
	return nil
}

// GetByID implements store.CollectionStore.
func (s *PostgresCollectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	query, args, err := psql.Select("id", "user_id", "parent_id", "name", "priority", "created_at", "updated_at").
		From("collections").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		c      domain.Collection
		parent uuid.NullUUID
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&c.ID, &c.UserID, &parent, &c.Name, &c.Priority, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err, store.ErrCollectionNotFound)
	}
	c.ParentID = nullUUID(parent)
	return &c, nil
}
