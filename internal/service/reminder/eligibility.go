package reminder

import (
	"time"

	"github.com/phrazzld/scry-sprint/internal/domain"
)

// Reason explains why a user may not receive a reminder.
type Reason string

// Ineligibility reasons, in evaluation order.
const (
	ReasonNotEnabled      Reason = "NOT_ENABLED"
	ReasonNoToken         Reason = "NO_TOKEN"
	ReasonSessionConflict Reason = "SESSION_CONFLICT"
	ReasonCooldownActive  Reason = "COOLDOWN_ACTIVE"
	ReasonCapReached      Reason = "CAP_REACHED"
)

// Decision is the outcome of an eligibility evaluation.
type Decision struct {
	Eligible bool `json:"eligible"`
	// NextEligibleAt is nil when no point in time makes the user eligible
	// without a profile change.
	NextEligibleAt *time.Time `json:"next_eligible_at"`
	Reason         Reason     `json:"reason,omitempty"`
}

// Engine evaluates reminder eligibility. Daily caps reset at midnight in
// loc, which is shared by every user.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an Engine using loc as the reference day. A nil loc
// means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the reference-day location.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Evaluate applies the rules in order and stops at the first failure.
// activeUntil is the resumable-until instant of the user's open session, or
// nil when none is resumable at now.
func (e *Engine) Evaluate(p *domain.ReminderProfile, activeUntil *time.Time, now time.Time) Decision {
	if !p.Enabled {
		return Decision{Reason: ReasonNotEnabled}
	}
	if !p.HasToken() {
		return Decision{Reason: ReasonNoToken}
	}
	if activeUntil != nil && activeUntil.After(now) {
		return deny(ReasonSessionConflict, *activeUntil)
	}
	if p.LastSentAt != nil {
		if bound := p.LastSentAt.Add(p.Cooldown()); now.Before(bound) {
			return deny(ReasonCooldownActive, bound)
		}
	}
	if p.EffectiveCount(now, e.loc) >= p.MaxPerDay {
		return deny(ReasonCapReached, domain.StartOfNextReferenceDay(now, e.loc))
	}
	at := now
	return Decision{Eligible: true, NextEligibleAt: &at}
}

func deny(reason Reason, next time.Time) Decision {
	return Decision{Reason: reason, NextEligibleAt: &next}
}

// ActiveUntil returns the latest resumable-until instant among sessions
// that are resumable at now, or nil.
func ActiveUntil(sessions []*domain.Session, now time.Time) *time.Time {
	var until *time.Time
	for _, s := range sessions {
		if !s.IsResumable(now) {
			continue
		}
		if until == nil || s.ResumableUntil.After(*until) {
			t := *s.ResumableUntil
			until = &t
		}
	}
	return until
}
