package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle status of a review session.
type SessionStatus string

// Possible session statuses. Completed and abandoned are terminal.
const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionAbandoned
}

// SessionOrigin records what started a session.
type SessionOrigin string

// Possible session origins
const (
	OriginHome   SessionOrigin = "home"
	OriginScoped SessionOrigin = "scoped"
	OriginPush   SessionOrigin = "push"
)

// Valid reports whether o is a known origin.
func (o SessionOrigin) Valid() bool {
	switch o {
	case OriginHome, OriginScoped, OriginPush:
		return true
	default:
		return false
	}
}

// ItemResult is the terminal result of one item within a session.
type ItemResult string

// Possible item results
const (
	ResultPass ItemResult = "pass"
	ResultFail ItemResult = "fail"
	ResultSkip ItemResult = "skip"
)

// SessionItem is an ordered membership row of a session. Its result is set
// at most once.
type SessionItem struct {
	SessionID uuid.UUID   `json:"session_id"`
	ItemID    uuid.UUID   `json:"item_id"`
	Position  int         `json:"position"`
	Result    *ItemResult `json:"result,omitempty"`
	Grade     *Grade      `json:"grade,omitempty"`
	GradedAt  *time.Time  `json:"graded_at,omitempty"`
}

// Reviewed reports whether the row already carries a result.
func (si SessionItem) Reviewed() bool {
	return si.Result != nil
}

// Session is a bounded, ordered review unit ("sprint").
type Session struct {
	ID                uuid.UUID     `json:"id"`
	UserID            uuid.UUID     `json:"user_id"`
	Status            SessionStatus `json:"status"`
	Origin            SessionOrigin `json:"origin"`
	ScopeCollectionID *uuid.UUID    `json:"scope_collection_id,omitempty"`
	ResumableUntil    *time.Time    `json:"resumable_until,omitempty"`
	StartedAt         *time.Time    `json:"started_at,omitempty"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
	AbandonedAt       *time.Time    `json:"abandoned_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	Items             []SessionItem `json:"items"`
}

// Progress summarises how far a session has come.
type Progress struct {
	Total     int `json:"total"`
	Reviewed  int `json:"reviewed"`
	Remaining int `json:"remaining"`
}

// SessionStats is the summary returned when a session completes.
type SessionStats struct {
	Total    int           `json:"total"`
	Reviewed int           `json:"reviewed"`
	Pass     int           `json:"pass"`
	Fail     int           `json:"fail"`
	Skip     int           `json:"skip"`
	Duration time.Duration `json:"duration"`
}

// NewSession creates an ACTIVE session over the given items, in order.
func NewSession(
	userID uuid.UUID,
	origin SessionOrigin,
	scope *uuid.UUID,
	itemIDs []uuid.UUID,
	now time.Time,
	resumeWindow time.Duration,
) *Session {
	s := newSession(userID, origin, scope, itemIDs, now)
	s.Activate(now, resumeWindow)
	return s
}

// NewPendingSession creates a PENDING session that is activated on first
// access. Out-of-band producers such as push reminders use it.
func NewPendingSession(userID uuid.UUID, origin SessionOrigin, itemIDs []uuid.UUID, now time.Time) *Session {
	return newSession(userID, origin, nil, itemIDs, now)
}

func newSession(userID uuid.UUID, origin SessionOrigin, scope *uuid.UUID, itemIDs []uuid.UUID, now time.Time) *Session {
	s := &Session{
		ID:                uuid.New(),
		UserID:            userID,
		Status:            SessionPending,
		Origin:            origin,
		ScopeCollectionID: scope,
		CreatedAt:         now,
		UpdatedAt:         now,
		Items:             make([]SessionItem, 0, len(itemIDs)),
	}
	for i, id := range itemIDs {
		s.Items = append(s.Items, SessionItem{SessionID: s.ID, ItemID: id, Position: i})
	}
	return s
}

// Activate moves a PENDING session to ACTIVE.
func (s *Session) Activate(now time.Time, resumeWindow time.Duration) {
	s.Status = SessionActive
	started := now
	s.StartedAt = &started
	s.Touch(now, resumeWindow)
}

// Touch extends the resumable window from now.
func (s *Session) Touch(now time.Time, resumeWindow time.Duration) {
	until := now.Add(resumeWindow)
	s.ResumableUntil = &until
	s.UpdatedAt = now
}

// IsExpired reports whether an ACTIVE session has outlived its resumable
// window at now.
func (s *Session) IsExpired(now time.Time) bool {
	return s.Status == SessionActive && s.ResumableUntil != nil && !s.ResumableUntil.After(now)
}

// IsResumable reports whether the session is ACTIVE and still within its
// resumable window.
func (s *Session) IsResumable(now time.Time) bool {
	return s.Status == SessionActive && s.ResumableUntil != nil && s.ResumableUntil.After(now)
}

// Item returns the membership row for itemID.
func (s *Session) Item(itemID uuid.UUID) (*SessionItem, bool) {
	for i := range s.Items {
		if s.Items[i].ItemID == itemID {
			return &s.Items[i], true
		}
	}
	return nil, false
}

// RecordResult sets the result of one row. It fails if the item is not a
// member or already carries a result.
func (s *Session) RecordResult(itemID uuid.UUID, result ItemResult, grade *Grade, at time.Time) error {
	si, ok := s.Item(itemID)
	if !ok {
		return ErrItemNotInSession
	}
	if si.Reviewed() {
		return ErrItemAlreadyGraded
	}
	r := result
	gradedAt := at
	si.Result = &r
	si.GradedAt = &gradedAt
	if grade != nil {
		g := *grade
		si.Grade = &g
	}
	return nil
}

// UnreviewedItemIDs returns the items that carry no result yet, in order.
func (s *Session) UnreviewedItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.Items))
	for _, si := range s.Items {
		if !si.Reviewed() {
			ids = append(ids, si.ItemID)
		}
	}
	return ids
}

// ItemIDs returns all member item ids, in order.
func (s *Session) ItemIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Items))
	for i, si := range s.Items {
		ids[i] = si.ItemID
	}
	return ids
}

// Progress computes the progress summary.
func (s *Session) Progress() Progress {
	p := Progress{Total: len(s.Items)}
	for _, si := range s.Items {
		if si.Reviewed() {
			p.Reviewed++
		}
	}
	p.Remaining = p.Total - p.Reviewed
	return p
}

// Stats computes the completion summary from persisted fields only, so
// repeated calls on a completed session return identical values.
func (s *Session) Stats() SessionStats {
	st := SessionStats{Total: len(s.Items)}
	for _, si := range s.Items {
		if si.Result == nil {
			continue
		}
		st.Reviewed++
		switch *si.Result {
		case ResultPass:
			st.Pass++
		case ResultFail:
			st.Fail++
		case ResultSkip:
			st.Skip++
		}
	}
	if s.StartedAt != nil && s.CompletedAt != nil {
		st.Duration = s.CompletedAt.Sub(*s.StartedAt)
	}
	return st
}

// Complete marks the session COMPLETED.
func (s *Session) Complete(now time.Time) {
	s.Status = SessionCompleted
	completed := now
	s.CompletedAt = &completed
	s.UpdatedAt = now
}

// Abandon marks the session ABANDONED.
func (s *Session) Abandon(now time.Time) {
	s.Status = SessionAbandoned
	abandoned := now
	s.AbandonedAt = &abandoned
	s.UpdatedAt = now
}
