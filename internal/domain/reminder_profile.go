package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reminder profile limits and defaults.
const (
	MinCooldownMinutes     = 120
	DefaultCooldownMinutes = 120
	DefaultMaxPerDay       = 10
	MaxMaxPerDay           = 96
	MinSessionSize         = 3
	MaxSessionSize         = 10
	DefaultSessionSize     = 5
)

// ReminderProfile holds a user's reminder preferences and rate-limit
// counters.
type ReminderProfile struct {
	UserID          uuid.UUID  `json:"user_id"`
	Enabled         bool       `json:"enabled"`
	DeliveryToken   *string    `json:"-"`
	CooldownMinutes int        `json:"cooldown_minutes"`
	MaxPerDay       int        `json:"max_per_day"`
	CountToday      int        `json:"count_today"`
	LastSentAt      *time.Time `json:"last_sent_at,omitempty"`
	SessionSize     int        `json:"session_size"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewReminderProfile returns the default profile for a user. Reminders are
// enabled but nothing is sent until a delivery token is registered.
func NewReminderProfile(userID uuid.UUID, now time.Time) *ReminderProfile {
	return &ReminderProfile{
		UserID:          userID,
		Enabled:         true,
		CooldownMinutes: DefaultCooldownMinutes,
		MaxPerDay:       DefaultMaxPerDay,
		SessionSize:     DefaultSessionSize,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Validate checks the profile's configurable fields.
func (p *ReminderProfile) Validate() error {
	if p.CooldownMinutes < MinCooldownMinutes {
		return Errorf(CodeInvalidProfile, "cooldown must be at least %d minutes", MinCooldownMinutes)
	}
	if p.MaxPerDay < 1 || p.MaxPerDay > MaxMaxPerDay {
		return Errorf(CodeInvalidProfile, "max per day must be between 1 and %d", MaxMaxPerDay)
	}
	return ValidateSessionSize(p.SessionSize)
}

// HasToken reports whether a delivery token is registered.
func (p *ReminderProfile) HasToken() bool {
	return p.DeliveryToken != nil && *p.DeliveryToken != ""
}

// Cooldown returns the cooldown as a duration.
func (p *ReminderProfile) Cooldown() time.Duration {
	return time.Duration(p.CooldownMinutes) * time.Minute
}

// EffectiveCount returns the number of reminders sent on now's reference
// day. The stored counter belongs to the day of LastSentAt and is implicitly
// zero on any other day.
func (p *ReminderProfile) EffectiveCount(now time.Time, loc *time.Location) int {
	if p.LastSentAt == nil || !SameReferenceDay(*p.LastSentAt, now, loc) {
		return 0
	}
	return p.CountToday
}

// RecordSent accounts for one reminder delivered at now.
func (p *ReminderProfile) RecordSent(now time.Time, loc *time.Location) {
	p.CountToday = p.EffectiveCount(now, loc) + 1
	sent := now
	p.LastSentAt = &sent
	p.UpdatedAt = now
}

// SetToken registers a delivery token.
func (p *ReminderProfile) SetToken(token string, now time.Time) {
	t := token
	p.DeliveryToken = &t
	p.UpdatedAt = now
}

// ClearToken drops the delivery token, typically after the transport
// reported it permanently invalid.
func (p *ReminderProfile) ClearToken(now time.Time) {
	p.DeliveryToken = nil
	p.UpdatedAt = now
}

// ValidateSessionSize checks n against the session size bounds.
func ValidateSessionSize(n int) error {
	if n < MinSessionSize || n > MaxSessionSize {
		return ErrInvalidSessionSize
	}
	return nil
}

// SameReferenceDay reports whether a and b fall on the same calendar day in
// loc. A nil loc means UTC.
func SameReferenceDay(a, b time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.UTC
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// StartOfNextReferenceDay returns midnight after t in loc.
func StartOfNextReferenceDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
