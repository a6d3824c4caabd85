// Package sprint runs the lifecycle of review sessions: starting or resuming
// one, grading and skipping its items, and completing or abandoning it.
//
// Every mutation executes in a single transaction that first locks the
// session row, so concurrent calls for one session are applied one at a time.
package sprint

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

// Default timings.
const (
	ResumeWindow  = 30 * time.Minute
	AbandonSnooze = 120 * time.Minute
)

// Config holds the session timings.
type Config struct {
	// ResumeWindow is how long an ACTIVE session stays resumable after its
	// last activity.
	ResumeWindow time.Duration
	// AbandonSnooze is how long unreviewed items of an abandoned session are
	// kept out of selection and reminders.
	AbandonSnooze time.Duration
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{ResumeWindow: ResumeWindow, AbandonSnooze: AbandonSnooze}
}

// StartResult is returned by Start.
type StartResult struct {
	Session *domain.Session
	// Resumed is true when an existing ACTIVE session was returned.
	Resumed bool
}

// GradeResult is returned by GradeItem.
type GradeResult struct {
	Session *domain.Session
	Item    *domain.Item
}

// CompleteResult is returned by Complete.
type CompleteResult struct {
	Session *domain.Session
	Stats   domain.SessionStats
}

// AbandonResult is returned by Abandon.
type AbandonResult struct {
	Session      *domain.Session
	SnoozedCount int
}

// Service implements the session lifecycle.
type Service struct {
	store  store.Store
	srs    srs.Service
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a sprint Service. Zero durations in cfg fall back to
// the defaults.
func NewService(st store.Store, srsService srs.Service, cfg Config, logger *slog.Logger, opts ...Option) *Service {
	if st == nil {
		panic("store cannot be nil")
	}
	if srsService == nil {
		panic("srsService cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ResumeWindow <= 0 {
		cfg.ResumeWindow = ResumeWindow
	}
	if cfg.AbandonSnooze <= 0 {
		cfg.AbandonSnooze = AbandonSnooze
	}

	s := &Service{
		store:  st,
		srs:    srsService,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sprint_service")),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start resumes the user's resumable ACTIVE session if there is one, and
// otherwise creates a new ACTIVE session from the user's eligible items.
// Expired ACTIVE sessions are abandoned first. Creation is serialized per
// user so two concurrent starts cannot claim the same items.
func (s *Service) Start(
	ctx context.Context,
	userID uuid.UUID,
	scope *uuid.UUID,
	origin domain.SessionOrigin,
) (*StartResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if origin == "" {
		origin = domain.OriginHome
		if scope != nil {
			origin = domain.OriginScoped
		}
	}
	if !origin.Valid() {
		return nil, domain.ErrInvalidOrigin
	}

	now := s.now()
	var (
		result  *StartResult
		noItems bool
	)
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		if err := tx.Sessions.LockUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}

		if scope != nil {
			c, err := tx.Collections.GetByID(ctx, *scope)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return domain.ErrInvalidCollection
				}
				return fmt.Errorf("failed to get collection: %w", err)
			}
			if c.UserID != userID {
				return domain.ErrInvalidCollection
			}
		}

		active, err := tx.Sessions.ListActiveByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list active sessions: %w", err)
		}
		for _, sess := range active {
			if sess.IsResumable(now) {
				result = &StartResult{Session: sess, Resumed: true}
				return nil
			}
		}
		for _, sess := range active {
			if _, err := s.abandon(ctx, tx, sess, now); err != nil {
				return err
			}
		}

		size, err := s.sessionSize(ctx, tx, userID)
		if err != nil {
			return err
		}
		candidates, err := selection.Select(ctx, tx, userID, now, size, scope)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			noItems = true
			return nil
		}

		itemIDs := make([]uuid.UUID, len(candidates))
		for i, c := range candidates {
			itemIDs[i] = c.Item.ID
		}
		sess := domain.NewSession(userID, origin, scope, itemIDs, now, s.cfg.ResumeWindow)
		if err := tx.Sessions.Create(ctx, sess); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		result = &StartResult{Session: sess}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "start", err, slog.String("user_id", userID.String()))
	}
	if noItems {
		log.Debug("no eligible items", slog.String("user_id", userID.String()))
		return nil, domain.ErrNoEligibleItems
	}

	if !result.Resumed {
		log.Info("session started",
			slog.String("session_id", result.Session.ID.String()),
			slog.String("user_id", userID.String()),
			slog.String("origin", string(origin)),
			slog.Int("items", len(result.Session.Items)))
	}
	return result, nil
}

// sessionSize returns the user's configured session size.
func (s *Service) sessionSize(ctx context.Context, tx store.Stores, userID uuid.UUID) (int, error) {
	p, err := tx.Profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.DefaultSessionSize, nil
		}
		return 0, fmt.Errorf("failed to get reminder profile: %w", err)
	}
	return p.SessionSize, nil
}

// Get returns the session. An ACTIVE session past its resumable window is
// abandoned first; a PENDING session is activated.
func (s *Service) Get(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	now := s.now()

	var (
		out      *domain.Session
		conflict bool
	)
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		sess, err := s.load(ctx, tx, sessionID, userID)
		if err != nil {
			return err
		}
		out = sess

		switch {
		case sess.IsExpired(now):
			_, err := s.abandon(ctx, tx, sess, now)
			return err
		case sess.Status == domain.SessionPending:
			conflict, err = s.activate(ctx, tx, sess, now)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "get", err, slog.String("session_id", sessionID.String()))
	}
	if conflict {
		return nil, domain.Errorf(domain.CodeSessionNotActive, "pending session overlaps an active session")
	}
	return out, nil
}

// activate moves a PENDING session to ACTIVE. If one of its items has been
// claimed by another ACTIVE session in the meantime, the pending session is
// abandoned without snoozing anything and conflict is reported.
func (s *Service) activate(ctx context.Context, tx store.Stores, sess *domain.Session, now time.Time) (conflict bool, err error) {
	if err := tx.Sessions.LockUser(ctx, sess.UserID); err != nil {
		return false, fmt.Errorf("failed to lock user: %w", err)
	}
	claimed, err := tx.Sessions.ActiveItemIDs(ctx, sess.UserID)
	if err != nil {
		return false, fmt.Errorf("failed to list claimed items: %w", err)
	}
	taken := make(map[uuid.UUID]struct{}, len(claimed))
	for _, id := range claimed {
		taken[id] = struct{}{}
	}
	for _, id := range sess.ItemIDs() {
		if _, ok := taken[id]; ok {
			sess.Abandon(now)
			if err := tx.Sessions.Update(ctx, sess); err != nil {
				return false, fmt.Errorf("failed to update session: %w", err)
			}
			return true, nil
		}
	}

	sess.Activate(now, s.cfg.ResumeWindow)
	if err := tx.Sessions.Update(ctx, sess); err != nil {
		return false, fmt.Errorf("failed to update session: %w", err)
	}
	logger.FromContextOrDefault(ctx, s.logger).Info("pending session activated",
		slog.String("session_id", sess.ID.String()),
		slog.String("user_id", sess.UserID.String()))
	return false, nil
}

// CreatePending stores a PENDING session over itemIDs for an out-of-band
// producer. The session is activated when the user first opens it. Earlier
// PENDING sessions of the user are abandoned without snoozing their items.
func (s *Service) CreatePending(
	ctx context.Context,
	userID uuid.UUID,
	itemIDs []uuid.UUID,
	origin domain.SessionOrigin,
) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !origin.Valid() {
		return nil, domain.ErrInvalidOrigin
	}
	if len(itemIDs) == 0 {
		return nil, domain.ErrNoEligibleItems
	}

	now := s.now()
	sess := domain.NewPendingSession(userID, origin, itemIDs, now)
	superseded := 0
	err := s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		if err := tx.Sessions.LockUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to lock user: %w", err)
		}
		for _, id := range itemIDs {
			item, err := tx.Items.GetByID(ctx, id)
			if err != nil {
				return mapStoreError(err)
			}
			if item.UserID != userID {
				return domain.ErrItemNotOwned
			}
		}

		older, err := tx.Sessions.ListPendingByUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list pending sessions: %w", err)
		}
		for _, prev := range older {
			prev.Abandon(now)
			if err := tx.Sessions.Update(ctx, prev); err != nil {
				return fmt.Errorf("failed to update session: %w", err)
			}
		}
		superseded = len(older)

		if err := tx.Sessions.Create(ctx, sess); err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(log, "create_pending", err, slog.String("user_id", userID.String()))
	}

	log.Info("pending session created",
		slog.String("session_id", sess.ID.String()),
		slog.String("user_id", userID.String()),
		slog.String("origin", string(origin)),
		slog.Int("items", len(itemIDs)),
		slog.Int("superseded", superseded))
	return sess, nil
}

// ClaimPending opens the user's most recent PENDING session, activating it.
func (s *Service) ClaimPending(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	pending, err := s.store.Stores().Sessions.LatestPendingByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, s.fail(logger.FromContextOrDefault(ctx, s.logger), "claim_pending", err,
			slog.String("user_id", userID.String()))
	}
	return s.Get(ctx, pending.ID, userID)
}

// load reads and locks the session and checks ownership.
func (s *Service) load(ctx context.Context, tx store.Stores, sessionID, userID uuid.UUID) (*domain.Session, error) {
	sess, err := tx.Sessions.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if sess.UserID != userID {
		return nil, domain.ErrSessionNotOwned
	}
	return sess, nil
}

// mapStoreError translates store lookups into domain errors.
func mapStoreError(err error) error {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		return domain.ErrSessionNotFound
	case errors.Is(err, store.ErrItemNotFound):
		return domain.ErrItemNotFound
	default:
		return err
	}
}

// fail logs unexpected errors and passes domain errors through unchanged.
func (s *Service) fail(log *slog.Logger, op string, err error, attrs ...any) error {
	if _, ok := domain.CodeOf(err); ok {
		return err
	}
	log.Error("sprint operation failed",
		append([]any{slog.String("operation", op), slog.String("error", err.Error())}, attrs...)...)
	return fmt.Errorf("%s failed: %w", op, err)
}
