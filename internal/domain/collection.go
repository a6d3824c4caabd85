package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection is a deck of items. Collections nest at most one level deep.
type Collection struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	ParentID  *uuid.UUID `json:"parent_id,omitempty"`
	Name      string     `json:"name"`
	Priority  int        `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewCollection creates a collection. When parent is given it must be a
// top-level collection of the same owner.
func NewCollection(userID uuid.UUID, name string, priority int, parent *Collection, now time.Time) (*Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Errorf(CodeInvalidCollection, "collection name cannot be empty")
	}
	if err := ValidatePriority(priority); err != nil {
		return nil, err
	}
	c := &Collection{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Priority:  priority,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parent != nil {
		if parent.UserID != userID {
			return nil, Errorf(CodeInvalidCollection, "parent collection belongs to another user")
		}
		if parent.ParentID != nil {
			return nil, Errorf(CodeInvalidCollection, "collections nest at most one level deep")
		}
		id := parent.ID
		c.ParentID = &id
	}
	return c, nil
}
