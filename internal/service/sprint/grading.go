package sprint

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

// GradeItem records grade for one item of an ACTIVE session. The memory
// model update, the grade event, the item and the session row are written in
// one transaction, and the resumable window is extended.
func (s *Service) GradeItem(
	ctx context.Context,
	sessionID, itemID uuid.UUID,
	grade domain.Grade,
	userID uuid.UUID,
) (*GradeResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !grade.Valid() {
		return nil, domain.ErrInvalidGrade
	}

	var result *GradeResult
	err := s.mutateItem(ctx, sessionID, itemID, userID, func(ctx context.Context, tx store.Stores, sess *domain.Session, now time.Time) error {
		item, err := tx.Items.GetByIDForUpdate(ctx, itemID)
		if err != nil {
			return mapStoreError(err)
		}

		before := item.Memory
		next, err := s.srs.ComputeNext(item.Memory, grade, now)
		if err != nil {
			return err
		}
		item.ApplyReview(next.State, next.NextDueAt, now)
		if err := tx.Items.Update(ctx, item); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		event := domain.NewGradeEvent(item, before, grade, &sess.ID, now)
		if err := tx.Grades.Create(ctx, event); err != nil {
			return fmt.Errorf("failed to append grade event: %w", err)
		}

		if err := sess.RecordResult(itemID, grade.Result(), &grade, now); err != nil {
			return err
		}
		result = &GradeResult{Session: sess, Item: item}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "grade_item", err,
			slog.String("session_id", sessionID.String()),
			slog.String("item_id", itemID.String()))
	}

	log.Debug("item graded",
		slog.String("session_id", sessionID.String()),
		slog.String("item_id", itemID.String()),
		slog.String("grade", string(grade)),
		slog.Int("scheduled_days", result.Item.Memory.ScheduledDays))
	return result, nil
}

// SkipItem records SKIP for one item of an ACTIVE session without touching
// its memory state.
func (s *Service) SkipItem(ctx context.Context, sessionID, itemID, userID uuid.UUID) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var out *domain.Session
	err := s.mutateItem(ctx, sessionID, itemID, userID, func(ctx context.Context, tx store.Stores, sess *domain.Session, now time.Time) error {
		if err := sess.RecordResult(itemID, domain.ResultSkip, nil, now); err != nil {
			return err
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "skip_item", err,
			slog.String("session_id", sessionID.String()),
			slog.String("item_id", itemID.String()))
	}
	return out, nil
}

type itemMutation func(ctx context.Context, tx store.Stores, sess *domain.Session, now time.Time) error

// mutateItem runs the guards shared by grading and skipping, then fn, then
// extends the resumable window and stores the session. An expired session is
// abandoned and that transition is committed before SESSION_EXPIRED is
// returned.
func (s *Service) mutateItem(ctx context.Context, sessionID, itemID, userID uuid.UUID, fn itemMutation) error {
	now := s.now()
	expired := false

	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		sess, err := s.load(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}

		if sess.IsExpired(now) {
			if _, err := s.abandon(ctx, tx, sess, now); err != nil {
				return err
			}
			expired = true
			return nil
		}
		if sess.Status != domain.SessionActive {
			return domain.ErrSessionNotActive
		}

		si, ok := sess.Item(itemID)
		if !ok {
			return domain.ErrItemNotInSession
		}
		if si.Reviewed() {
			return domain.ErrItemAlreadyGraded
		}

		if err := fn(ctx, tx, sess, now); err != nil {
			return err
		}

		sess.Touch(now, s.cfg.ResumeWindow)
		if err := tx.Sessions.Update(ctx, sess); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if expired {
		return domain.ErrSessionExpired
	}
	return nil
}
