package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/store"
)

type sessionStore struct{ v *view }

func (s *sessionStore) Create(ctx context.Context, sess *domain.Session) error {
	return s.v.do(func(d *data) error {
		if _, ok := d.sessions[sess.ID]; ok {
			return fmt.Errorf("%w: session %s", store.ErrDuplicate, sess.ID)
		}
		for _, si := range sess.Items {
			if _, ok := d.items[si.ItemID]; !ok {
				return fmt.Errorf("%w: unknown item %s", store.ErrInvalidEntity, si.ItemID)
			}
		}
		d.sessions[sess.ID] = cloneSession(*sess)
		return nil
	})
}

func (s *sessionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var out *domain.Session
	err := s.v.do(func(d *data) error {
		sess, ok := d.sessions[id]
		if !ok {
			return store.ErrSessionNotFound
		}
		c := cloneSession(sess)
		out = &c
		return nil
	})
	return out, err
}

func (s *sessionStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	return s.GetByID(ctx, id)
}

func (s *sessionStore) Update(ctx context.Context, sess *domain.Session) error {
	return s.v.do(func(d *data) error {
		stored, ok := d.sessions[sess.ID]
		if !ok {
			return store.ErrSessionNotFound
		}
		next := cloneSession(*sess)
		// Results are write-once.
		for i := range next.Items {
			if i < len(stored.Items) && stored.Items[i].Result != nil {
				next.Items[i] = stored.Items[i]
			}
		}
		d.sessions[sess.ID] = next
		return nil
	})
}

func (s *sessionStore) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	out, err := s.listByStatus(userID, domain.SessionActive)
	sortNewestFirst(out, func(sess *domain.Session) time.Time {
		if sess.StartedAt == nil {
			return time.Time{}
		}
		return *sess.StartedAt
	})
	return out, err
}

func (s *sessionStore) ListPendingByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Session, error) {
	out, err := s.listByStatus(userID, domain.SessionPending)
	sortNewestFirst(out, func(sess *domain.Session) time.Time { return sess.CreatedAt })
	return out, err
}

func (s *sessionStore) LatestPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	pending, err := s.ListPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, store.ErrSessionNotFound
	}
	return pending[0], nil
}

func (s *sessionStore) listByStatus(userID uuid.UUID, status domain.SessionStatus) ([]*domain.Session, error) {
	var out []*domain.Session
	err := s.v.do(func(d *data) error {
		for _, sess := range d.sessions {
			if sess.UserID == userID && sess.Status == status {
				c := cloneSession(sess)
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

// sortNewestFirst orders by at descending, then id, matching the SQL stores.
func sortNewestFirst(sessions []*domain.Session, at func(*domain.Session) time.Time) {
	slices.SortFunc(sessions, func(a, b *domain.Session) int {
		if c := at(b).Compare(at(a)); c != 0 {
			return c
		}
		return bytes.Compare(a.ID[:], b.ID[:])
	})
}

func (s *sessionStore) ActiveItemIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	err := s.v.do(func(d *data) error {
		for _, sess := range d.sessions {
			if sess.UserID != userID || sess.Status != domain.SessionActive {
				continue
			}
			out = append(out, sess.ItemIDs()...)
		}
		return nil
	})
	return out, err
}

// LockUser is a no-op: transactions are already serialized.
func (s *sessionStore) LockUser(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type gradeStore struct{ v *view }

func (s *gradeStore) Create(ctx context.Context, e *domain.GradeEvent) error {
	return s.v.do(func(d *data) error {
		if _, ok := d.items[e.ItemID]; !ok {
			return fmt.Errorf("%w: unknown item %s", store.ErrInvalidEntity, e.ItemID)
		}
		d.grades = append(d.grades, *e)
		return nil
	})
}

func (s *gradeStore) ListByItem(ctx context.Context, itemID uuid.UUID) ([]*domain.GradeEvent, error) {
	var out []*domain.GradeEvent
	err := s.v.do(func(d *data) error {
		for _, e := range d.grades {
			if e.ItemID == itemID {
				c := e
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

type profileStore struct{ v *view }

func (s *profileStore) Get(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error) {
	var out *domain.ReminderProfile
	err := s.v.do(func(d *data) error {
		p, ok := d.profiles[userID]
		if !ok {
			return store.ErrProfileNotFound
		}
		c := cloneProfile(p)
		out = &c
		return nil
	})
	return out, err
}

func (s *profileStore) GetForUpdate(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error) {
	return s.Get(ctx, userID)
}

func (s *profileStore) Upsert(ctx context.Context, p *domain.ReminderProfile) error {
	return s.v.do(func(d *data) error {
		d.profiles[p.UserID] = cloneProfile(*p)
		return nil
	})
}
