package card_review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/domain/srs"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/service/selection"
	"github.com/phrazzld/scry-sprint/internal/store"
)

// Verify interface compliance at compile time
var _ CardReviewService = (*cardReviewServiceImpl)(nil)

type cardReviewServiceImpl struct {
	store      store.Store
	srsService srs.Service
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures the service.
type Option func(*cardReviewServiceImpl)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *cardReviewServiceImpl) { s.now = now }
}

// NewCardReviewService creates a new CardReviewService implementation.
func NewCardReviewService(
	st store.Store,
	srsService srs.Service,
	logger *slog.Logger,
	opts ...Option,
) CardReviewService {
	if st == nil {
		panic("store cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &cardReviewServiceImpl{
		store:      st,
		srsService: srsService,
		logger:     logger.With(slog.String("component", "card_review_service")),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetNextItem implements CardReviewService.GetNextItem.
func (s *cardReviewServiceImpl) GetNextItem(ctx context.Context, userID uuid.UUID) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving next review item", slog.String("user_id", userID.String()))

	candidates, err := selection.Select(ctx, s.store.Stores(), userID, s.now(), 1, nil)
	if err != nil {
		log.Error("failed to get next review item",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, NewGetNextItemError("failed to select item", err)
	}
	if len(candidates) == 0 {
		log.Debug("no items due for review", slog.String("user_id", userID.String()))
		return nil, domain.ErrNoEligibleItems
	}

	item := candidates[0].Item
	return &item, nil
}

// SubmitGrade implements CardReviewService.SubmitGrade.
func (s *cardReviewServiceImpl) SubmitGrade(
	ctx context.Context,
	userID uuid.UUID,
	itemID uuid.UUID,
	answer ReviewAnswer,
) (*domain.Item, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !answer.Grade.Valid() {
		log.Warn("invalid review grade",
			slog.String("user_id", userID.String()),
			slog.String("item_id", itemID.String()),
			slog.String("grade", string(answer.Grade)))
		return nil, domain.ErrInvalidGrade
	}

	now := s.now()
	var updated *domain.Item
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		item, err := tx.Items.GetByIDForUpdate(ctx, itemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.ErrItemNotFound
			}
			return fmt.Errorf("failed to get item: %w", err)
		}

		if item.UserID != userID {
			log.Warn("user does not own item",
				slog.String("user_id", userID.String()),
				slog.String("item_id", itemID.String()),
				slog.String("owner_id", item.UserID.String()))
			return domain.ErrItemNotOwned
		}

		before := item.Memory
		next, err := s.srsService.ComputeNext(item.Memory, answer.Grade, now)
		if err != nil {
			return err
		}
		item.ApplyReview(next.State, next.NextDueAt, now)
		if err := tx.Items.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		if err := tx.Grades.Create(ctx, domain.NewGradeEvent(item, before, answer.Grade, nil, now)); err != nil {
			return fmt.Errorf("failed to append grade event: %w", err)
		}

		updated = item
		return nil
	})
	if err != nil {
		if _, ok := domain.CodeOf(err); ok {
			return nil, err
		}
		log.Error("failed to submit grade",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()),
			slog.String("item_id", itemID.String()))
		return nil, NewSubmitGradeError("failed to record grade", err)
	}

	log.Debug("successfully processed review grade",
		slog.String("user_id", userID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("grade", string(answer.Grade)),
		slog.String("state", string(updated.Memory.State)),
		slog.Int("scheduled_days", updated.Memory.ScheduledDays),
		slog.Time("next_due_at", updated.NextDueAt))
	return updated, nil
}
