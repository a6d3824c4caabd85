package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/store"
)

type itemStore struct{ v *view }

func (s *itemStore) Create(ctx context.Context, item *domain.Item) error {
	return s.v.do(func(d *data) error {
		if _, ok := d.items[item.ID]; ok {
			return fmt.Errorf("%w: item %s", store.ErrDuplicate, item.ID)
		}
		if _, ok := d.collections[item.CollectionID]; !ok {
			return fmt.Errorf("%w: unknown collection %s", store.ErrInvalidEntity, item.CollectionID)
		}
		d.items[item.ID] = cloneItem(*item)
		return nil
	})
}

func (s *itemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var out *domain.Item
	err := s.v.do(func(d *data) error {
		item, ok := d.items[id]
		if !ok {
			return store.ErrItemNotFound
		}
		c := cloneItem(item)
		out = &c
		return nil
	})
	return out, err
}

func (s *itemStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	return s.GetByID(ctx, id)
}

func (s *itemStore) Update(ctx context.Context, item *domain.Item) error {
	return s.v.do(func(d *data) error {
		if _, ok := d.items[item.ID]; !ok {
			return store.ErrItemNotFound
		}
		d.items[item.ID] = cloneItem(*item)
		return nil
	})
}

func inScope(d *data, collectionID uuid.UUID, scope *uuid.UUID) bool {
	if scope == nil || collectionID == *scope {
		return true
	}
	c, ok := d.collections[collectionID]
	return ok && c.ParentID != nil && *c.ParentID == *scope
}

func (s *itemStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	scope *uuid.UUID,
) ([]domain.Candidate, error) {
	var out []domain.Candidate
	err := s.v.do(func(d *data) error {
		for _, item := range d.items {
			if item.UserID != userID || !item.IsDue(now) || !inScope(d, item.CollectionID, scope) {
				continue
			}
			out = append(out, domain.Candidate{
				Item:               cloneItem(item),
				CollectionPriority: d.collections[item.CollectionID].Priority,
			})
		}
		return nil
	})
	return out, err
}

func (s *itemStore) Snooze(ctx context.Context, ids []uuid.UUID, until time.Time) (int, error) {
	n := 0
	err := s.v.do(func(d *data) error {
		for _, id := range ids {
			item, ok := d.items[id]
			if !ok {
				continue
			}
			u := until
			item.SnoozedUntil = &u
			d.items[id] = item
			n++
		}
		return nil
	})
	return n, err
}

func (s *itemStore) ListReminderCandidates(ctx context.Context, q store.ReminderQuery) ([]domain.DueNotification, error) {
	var out []domain.DueNotification
	err := s.v.do(func(d *data) error {
		for _, item := range d.items {
			if item.NextDueAt.Before(q.DueFrom) || item.NextDueAt.After(q.DueTo) {
				continue
			}
			if item.IsSnoozed(q.Now) {
				continue
			}
			if item.NotifiedAt != nil && !item.NotifiedAt.Before(q.NotifiedBefore) {
				continue
			}
			p, ok := d.profiles[item.UserID]
			if !ok || !p.Enabled || !p.HasToken() {
				continue
			}
			out = append(out, domain.DueNotification{
				ItemID:         item.ID,
				UserID:         item.UserID,
				CollectionID:   item.CollectionID,
				CollectionName: d.collections[item.CollectionID].Name,
				DeliveryToken:  *p.DeliveryToken,
				NextDueAt:      item.NextDueAt,
			})
		}
		return nil
	})
	return out, err
}

func (s *itemStore) MarkNotified(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	return s.v.do(func(d *data) error {
		for _, id := range ids {
			item, ok := d.items[id]
			if !ok {
				continue
			}
			notified := at
			item.NotifiedAt = &notified
			d.items[id] = item
		}
		return nil
	})
}

type collectionStore struct{ v *view }

func (s *collectionStore) Create(ctx context.Context, c *domain.Collection) error {
	return s.v.do(func(d *data) error {
		if _, ok := d.collections[c.ID]; ok {
			return fmt.Errorf("%w: collection %s", store.ErrDuplicate, c.ID)
		}
		d.collections[c.ID] = *c
		return nil
	})
}

func (s *collectionStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Collection, error) {
	var out *domain.Collection
	err := s.v.do(func(d *data) error {
		c, ok := d.collections[id]
		if !ok {
			return store.ErrCollectionNotFound
		}
		out = &c
		return nil
	})
	return out, err
}
