package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
)

// SessionItemView is one ordered entry of a SessionView.
type SessionItemView struct {
	ItemID   uuid.UUID          `json:"item_id"`
	Position int                `json:"position"`
	Result   *domain.ItemResult `json:"result"`
	Grade    *domain.Grade      `json:"grade,omitempty"`
}

// SessionView is the wire shape of a session.
type SessionView struct {
	ID             uuid.UUID            `json:"id"`
	Status         domain.SessionStatus `json:"status"`
	Origin         domain.SessionOrigin `json:"origin"`
	ScopeID        *uuid.UUID           `json:"scope_collection_id,omitempty"`
	Items          []SessionItemView    `json:"items"`
	Progress       domain.Progress      `json:"progress"`
	ResumableUntil *time.Time           `json:"resumable_until,omitempty"`
	StartedAt      *time.Time           `json:"started_at,omitempty"`
	CompletedAt    *time.Time           `json:"completed_at,omitempty"`
	AbandonedAt    *time.Time           `json:"abandoned_at,omitempty"`
}

// NewSessionView maps a session to its wire shape. It has no side effects
// and accepts any session, including one without items.
func NewSessionView(s *domain.Session) SessionView {
	items := make([]SessionItemView, len(s.Items))
	for i, si := range s.Items {
		items[i] = SessionItemView{
			ItemID:   si.ItemID,
			Position: si.Position,
			Result:   si.Result,
			Grade:    si.Grade,
		}
	}
	return SessionView{
		ID:             s.ID,
		Status:         s.Status,
		Origin:         s.Origin,
		ScopeID:        s.ScopeCollectionID,
		Items:          items,
		Progress:       s.Progress(),
		ResumableUntil: s.ResumableUntil,
		StartedAt:      s.StartedAt,
		CompletedAt:    s.CompletedAt,
		AbandonedAt:    s.AbandonedAt,
	}
}

// StartSessionResponse wraps a started or resumed session.
type StartSessionResponse struct {
	Session SessionView `json:"session"`
	Resumed bool        `json:"resumed"`
}

// GradeItemResponse is returned after grading a session item.
type GradeItemResponse struct {
	Session   SessionView `json:"session"`
	NextDueAt time.Time   `json:"next_due_at"`
}

// CompleteSessionResponse carries the final statistics.
type CompleteSessionResponse struct {
	Session SessionView `json:"session"`
	Stats   StatsView   `json:"stats"`
}

// StatsView is the wire shape of session statistics.
type StatsView struct {
	Total           int   `json:"total"`
	Reviewed        int   `json:"reviewed"`
	Pass            int   `json:"pass"`
	Fail            int   `json:"fail"`
	Skip            int   `json:"skip"`
	DurationSeconds int64 `json:"duration_seconds"`
}

// NewStatsView maps session statistics.
func NewStatsView(s domain.SessionStats) StatsView {
	return StatsView{
		Total:           s.Total,
		Reviewed:        s.Reviewed,
		Pass:            s.Pass,
		Fail:            s.Fail,
		Skip:            s.Skip,
		DurationSeconds: int64(s.Duration / time.Second),
	}
}

// AbandonSessionResponse reports how many items were snoozed.
type AbandonSessionResponse struct {
	Session      SessionView `json:"session"`
	SnoozedCount int         `json:"snoozed_count"`
}

// ItemView is the wire shape of an item.
type ItemView struct {
	ID             uuid.UUID        `json:"id"`
	CollectionID   uuid.UUID        `json:"collection_id"`
	State          domain.ItemState `json:"state"`
	Priority       int              `json:"priority"`
	NextDueAt      time.Time        `json:"next_due_at"`
	ScheduledDays  int              `json:"scheduled_days"`
	Reps           int              `json:"reps"`
	Lapses         int              `json:"lapses"`
	LastReviewedAt *time.Time       `json:"last_reviewed_at,omitempty"`
}

// NewItemView maps an item to its wire shape.
func NewItemView(i *domain.Item) ItemView {
	return ItemView{
		ID:             i.ID,
		CollectionID:   i.CollectionID,
		State:          i.Memory.State,
		Priority:       i.Priority,
		NextDueAt:      i.NextDueAt,
		ScheduledDays:  i.Memory.ScheduledDays,
		Reps:           i.Memory.Reps,
		Lapses:         i.Memory.Lapses,
		LastReviewedAt: i.Memory.LastReviewedAt,
	}
}

// ReminderProfileView is the wire shape of a reminder profile. The delivery
// token itself is never returned.
type ReminderProfileView struct {
	Enabled         bool       `json:"enabled"`
	HasToken        bool       `json:"has_token"`
	CooldownMinutes int        `json:"cooldown_minutes"`
	MaxPerDay       int        `json:"max_per_day"`
	SessionSize     int        `json:"session_size"`
	LastSentAt      *time.Time `json:"last_sent_at,omitempty"`
}

// NewReminderProfileView maps a reminder profile.
func NewReminderProfileView(p *domain.ReminderProfile) ReminderProfileView {
	return ReminderProfileView{
		Enabled:         p.Enabled,
		HasToken:        p.HasToken(),
		CooldownMinutes: p.CooldownMinutes,
		MaxPerDay:       p.MaxPerDay,
		SessionSize:     p.SessionSize,
		LastSentAt:      p.LastSentAt,
	}
}

// EligibilityView is the wire shape of an eligibility decision.
type EligibilityView struct {
	Eligible       bool       `json:"eligible"`
	NextEligibleAt *time.Time `json:"next_eligible_at"`
	Reason         string     `json:"reason,omitempty"`
}

// NewEligibilityView maps a decision.
func NewEligibilityView(d reminder.Decision) EligibilityView {
	return EligibilityView{
		Eligible:       d.Eligible,
		NextEligibleAt: d.NextEligibleAt,
		Reason:         string(d.Reason),
	}
}
