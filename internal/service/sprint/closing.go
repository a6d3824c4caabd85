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

// Complete finishes a session whose items all carry a result. Completing a
// COMPLETED session returns its stored stats again.
func (s *Service) Complete(ctx context.Context, sessionID, userID uuid.UUID) (*CompleteResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var (
		result  *CompleteResult
		already bool
	)
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		sess, err := s.load(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}

		switch sess.Status {
		case domain.SessionCompleted:
			already = true
			result = &CompleteResult{Session: sess, Stats: sess.Stats()}
			return nil
		case domain.SessionAbandoned:
			return domain.ErrSessionAbandoned
		case domain.SessionPending:
			return domain.ErrSessionNotActive
		}

		if sess.Progress().Remaining > 0 {
			return domain.ErrSessionIncomplete
		}

		sess.Complete(now)
		if err := tx.Sessions.Update(ctx, sess); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		result = &CompleteResult{Session: sess, Stats: sess.Stats()}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "complete", err, slog.String("session_id", sessionID.String()))
	}

	if !already {
		log.Info("session completed",
			slog.String("session_id", sessionID.String()),
			slog.String("user_id", userID.String()),
			slog.Int("pass", result.Stats.Pass),
			slog.Int("fail", result.Stats.Fail),
			slog.Int("skip", result.Stats.Skip),
			slog.Duration("duration", result.Stats.Duration))
	}
	return result, nil
}

// Abandon ends a session early and snoozes its unreviewed items. Abandoning
// a terminal session changes nothing and reports zero snoozed items.
func (s *Service) Abandon(ctx context.Context, sessionID, userID uuid.UUID) (*AbandonResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var result *AbandonResult
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		sess, err := s.load(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		if sess.Status.Terminal() {
			result = &AbandonResult{Session: sess}
			return nil
		}

		n, err := s.abandon(ctx, tx, sess, now)
		if err != nil {
			return err
		}
		result = &AbandonResult{Session: sess, SnoozedCount: n}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "abandon", err, slog.String("session_id", sessionID.String()))
	}
	return result, nil
}

// abandon snoozes the unreviewed items of sess and marks it ABANDONED. The
// caller holds the session row lock.
func (s *Service) abandon(ctx context.Context, tx store.Stores, sess *domain.Session, now time.Time) (int, error) {
	n, err := tx.Items.Snooze(ctx, sess.UnreviewedItemIDs(), now.Add(s.cfg.AbandonSnooze))
	if err != nil {
		return 0, fmt.Errorf("failed to snooze items: %w", err)
	}

	sess.Abandon(now)
	if err := tx.Sessions.Update(ctx, sess); err != nil {
		return 0, fmt.Errorf("failed to update session: %w", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("session abandoned",
		slog.String("session_id", sess.ID.String()),
		slog.String("user_id", sess.UserID.String()),
		slog.Int("snoozed", n))
	return n, nil
}
