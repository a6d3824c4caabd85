package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/redact"
	"github.com/phrazzld/scry-sprint/internal/store"
)

// ProfileUpdate carries the settings a user may change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Enabled         *bool
	CooldownMinutes *int
	MaxPerDay       *int
	SessionSize     *int
}

// ProfileService manages reminder profiles and answers eligibility queries.
type ProfileService struct {
	store  store.Store
	engine *Engine
	logger *slog.Logger
	now    func() time.Time
}

// ProfileOption configures a ProfileService.
type ProfileOption func(*ProfileService)

// WithProfileClock overrides the time source.
func WithProfileClock(now func() time.Time) ProfileOption {
	return func(s *ProfileService) { s.now = now }
}

// NewProfileService creates a ProfileService.
func NewProfileService(st store.Store, engine *Engine, logger *slog.Logger, opts ...ProfileOption) *ProfileService {
	if st == nil {
		panic("store cannot be nil")
	}
	if engine == nil {
		panic("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &ProfileService{
		store:  st,
		engine: engine,
		logger: logger.With(slog.String("component", "reminder_profile_service")),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the user's profile. Users who never saved one get the
// defaults, which are not persisted.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error) {
	p, err := s.store.Stores().Profiles.Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewReminderProfile(userID, s.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reminder profile: %w", err)
	}
	return p, nil
}

// Update applies u and stores the result. Invalid settings are rejected
// without any write.
func (s *ProfileService) Update(
	ctx context.Context,
	userID uuid.UUID,
	u ProfileUpdate,
) (*domain.ReminderProfile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var out *domain.ReminderProfile
	err := s.mutate(ctx, userID, func(p *domain.ReminderProfile, now time.Time) error {
		if u.Enabled != nil {
			p.Enabled = *u.Enabled
		}
		if u.CooldownMinutes != nil {
			p.CooldownMinutes = *u.CooldownMinutes
		}
		if u.MaxPerDay != nil {
			p.MaxPerDay = *u.MaxPerDay
		}
		if u.SessionSize != nil {
			p.SessionSize = *u.SessionSize
		}
		if err := p.Validate(); err != nil {
			return err
		}
		p.UpdatedAt = now
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("reminder profile updated",
		slog.String("user_id", userID.String()),
		slog.Bool("enabled", out.Enabled),
		slog.Int("cooldown_minutes", out.CooldownMinutes),
		slog.Int("max_per_day", out.MaxPerDay),
		slog.Int("session_size", out.SessionSize))
	return out, nil
}

// RegisterToken stores the user's delivery token. An empty token clears it.
func (s *ProfileService) RegisterToken(
	ctx context.Context,
	userID uuid.UUID,
	token string,
) (*domain.ReminderProfile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	token = strings.TrimSpace(token)

	var out *domain.ReminderProfile
	err := s.mutate(ctx, userID, func(p *domain.ReminderProfile, now time.Time) error {
		if token == "" {
			p.ClearToken(now)
		} else {
			p.SetToken(token, now)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("delivery token registered",
		slog.String("user_id", userID.String()),
		slog.String("token", redact.Token(token)))
	return out, nil
}

// Eligibility evaluates whether the user could be reminded right now.
func (s *ProfileService) Eligibility(ctx context.Context, userID uuid.UUID) (Decision, error) {
	now := s.now()
	p, err := s.Get(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	active, err := s.store.Stores().Sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return s.engine.Evaluate(p, ActiveUntil(active, now), now), nil
}

func (s *ProfileService) mutate(
	ctx context.Context,
	userID uuid.UUID,
	fn func(p *domain.ReminderProfile, now time.Time) error,
) error {
	now := s.now()
	return s.store.RunInTransaction(ctx, func(ctx context.Context, tx store.Stores) error {
		p, err := tx.Profiles.GetForUpdate(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			p = domain.NewReminderProfile(userID, now)
		} else if err != nil {
			return fmt.Errorf("failed to lock reminder profile: %w", err)
		}
		if err := fn(p, now); err != nil {
			return err
		}
		if err := tx.Profiles.Upsert(ctx, p); err != nil {
			return fmt.Errorf("failed to save reminder profile: %w", err)
		}
		return nil
	})
}
