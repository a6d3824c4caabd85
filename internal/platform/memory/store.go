// Package memory implements the store contracts in process memory.
//
// Transactions are serialized behind one mutex and roll back by restoring a
// snapshot, which gives the same all-or-nothing behaviour services rely on
// from the SQL implementation. It backs service tests and the "memory"
// database driver for local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/store"
)

type data struct {
	items       map[uuid.UUID]domain.Item
	collections map[uuid.UUID]domain.Collection
	sessions    map[uuid.UUID]domain.Session
	grades      []domain.GradeEvent
	profiles    map[uuid.UUID]domain.ReminderProfile
}

func newData() *data {
	return &data{
		items:       make(map[uuid.UUID]domain.Item),
		collections: make(map[uuid.UUID]domain.Collection),
		sessions:    make(map[uuid.UUID]domain.Session),
		profiles:    make(map[uuid.UUID]domain.ReminderProfile),
	}
}

func (d *data) clone() *data {
	c := newData()
	for k, v := range d.items {
		c.items[k] = cloneItem(v)
	}
	for k, v := range d.collections {
		c.collections[k] = v
	}
	for k, v := range d.sessions {
		c.sessions[k] = cloneSession(v)
	}
	c.grades = append(c.grades, d.grades...)
	for k, v := range d.profiles {
		c.profiles[k] = cloneProfile(v)
	}
	return c
}

// Store is an in-memory store.Store.
type Store struct {
	mu sync.Mutex
	d  *data
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{d: newData()}
}

// Stores implements store.Store.
func (s *Store) Stores() store.Stores {
	return s.bind(false)
}

// RunInTransaction implements store.Store.
func (s *Store) RunInTransaction(ctx context.Context, fn store.StoresFn) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if p := recover(); p != nil {
			s.d = snapshot
			panic(p)
		}
		if err != nil {
			s.d = snapshot
		}
	}()

	return fn(ctx, s.bind(true))
}

func (s *Store) bind(held bool) store.Stores {
	v := &view{s: s, held: held}
	return store.Stores{
		Items:       &itemStore{v},
		Collections: &collectionStore{v},
		Sessions:    &sessionStore{v},
		Grades:      &gradeStore{v},
		Profiles:    &profileStore{v},
	}
}

// view gives repositories access to the data, taking the lock unless the
// surrounding transaction already holds it.
type view struct {
	s    *Store
	held bool
}

func (v *view) do(fn func(d *data) error) error {
	if !v.held {
		v.s.mu.Lock()
		defer v.s.mu.Unlock()
	}
	return fn(v.s.d)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneItem(i domain.Item) domain.Item {
	i.Memory.LastReviewedAt = cloneTime(i.Memory.LastReviewedAt)
	i.SnoozedUntil = cloneTime(i.SnoozedUntil)
	i.NotifiedAt = cloneTime(i.NotifiedAt)
	return i
}

func cloneSession(s domain.Session) domain.Session {
	s.ResumableUntil = cloneTime(s.ResumableUntil)
	s.StartedAt = cloneTime(s.StartedAt)
	s.CompletedAt = cloneTime(s.CompletedAt)
	s.AbandonedAt = cloneTime(s.AbandonedAt)
	if s.ScopeCollectionID != nil {
		id := *s.ScopeCollectionID
		s.ScopeCollectionID = &id
	}
	items := make([]domain.SessionItem, len(s.Items))
	for i, si := range s.Items {
		if si.Result != nil {
			r := *si.Result
			si.Result = &r
		}
		if si.Grade != nil {
			g := *si.Grade
			si.Grade = &g
		}
		si.GradedAt = cloneTime(si.GradedAt)
		items[i] = si
	}
	s.Items = items
	return s
}

func cloneProfile(p domain.ReminderProfile) domain.ReminderProfile {
	if p.DeliveryToken != nil {
		t := *p.DeliveryToken
		p.DeliveryToken = &t
	}
	p.LastSentAt = cloneTime(p.LastSentAt)
	return p
}
