// Package selection picks the items that make up a review session.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/store"
)

// Service selects eligible items for a user.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a selection Service.
func NewService(st store.Store, logger *slog.Logger, opts ...Option) *Service {
	if st == nil {
		panic("store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:  st,
		logger: logger.With(slog.String("component", "selection_service")),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectEligible returns up to limit items that are due for userID, in
// selection order. Items already claimed by one of the user's ACTIVE sessions
// are never returned. limit must be a valid session size.
func (s *Service) SelectEligible(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	scope *uuid.UUID,
) ([]domain.Candidate, error) {
	if err := domain.ValidateSessionSize(limit); err != nil {
		return nil, err
	}
	out, err := Select(ctx, s.store.Stores(), userID, s.now(), limit, scope)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to select eligible items",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	return out, nil
}

// Select runs the selection against the given stores, which may be bound to
// a transaction. It does not validate limit; a limit of zero or less yields
// every eligible item.
func Select(
	ctx context.Context,
	stores store.Stores,
	userID uuid.UUID,
	now time.Time,
	limit int,
	scope *uuid.UUID,
) ([]domain.Candidate, error) {
	due, err := stores.Items.ListDue(ctx, userID, now, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list due items: %w", err)
	}
	if len(due) == 0 {
		return []domain.Candidate{}, nil
	}

	claimed, err := stores.Sessions.ActiveItemIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed items: %w", err)
	}
	exclude := make(map[uuid.UUID]struct{}, len(claimed))
	for _, id := range claimed {
		exclude[id] = struct{}{}
	}

	out := make([]domain.Candidate, 0, len(due))
	for _, c := range due {
		if _, ok := exclude[c.Item.ID]; ok {
			continue
		}
		if c.Item.UserID != userID || !c.Item.IsDue(now) {
			continue
		}
		out = append(out, c)
	}

	domain.SortCandidates(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
