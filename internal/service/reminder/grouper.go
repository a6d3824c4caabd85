package reminder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgTitle        = "reminder.title"
	msgBodySingle   = "reminder.body.single"
	msgBodyMulti    = "reminder.body.multi"
	msgBodyFragment = "reminder.body.fragment"
	msgBodySep      = "reminder.body.separator"
)

func init() {
	if err := registerCatalog(language.English); err != nil {
		panic(fmt.Sprintf("reminder: register message catalog: %v", err))
	}
}

func registerCatalog(lang language.Tag) error {
	err := message.Set(lang, msgTitle, plural.Selectf(1, "%d",
		plural.One, "Time to review",
		plural.Other, "%[1]d items ready",
	))
	if err != nil {
		return fmt.Errorf("%s: %w", msgTitle, err)
	}
	for key, msg := range map[string]string{
		msgBodySingle:   "%[1]d due in %[2]s",
		msgBodyMulti:    "%[1]d due: %[2]s",
		msgBodyFragment: "%[1]d in %[2]s",
		msgBodySep:      ", ",
	} {
		if err := message.SetString(lang, key, msg); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// CollectionCount is the number of announced items in one collection.
type CollectionCount struct {
	CollectionID uuid.UUID `json:"collection_id"`
	Name         string    `json:"name"`
	Count        int       `json:"count"`
}

// Group is one user's reminder.
type Group struct {
	UserID      uuid.UUID
	Token       string
	ItemIDs     []uuid.UUID
	Collections []CollectionCount
	Title       string
	Body        string
}

// Data is the structured payload delivered alongside the copy.
func (g Group) Data() map[string]any {
	return map[string]any{
		"type":        "review_reminder",
		"item_count":  len(g.ItemIDs),
		"collections": g.Collections,
	}
}

// Grouper folds due notifications into one Group per user.
type Grouper struct {
	printer *message.Printer
}

// NewGrouper returns a Grouper rendering copy in tag. Tags without a
// catalog entry fall back to English.
func NewGrouper(tag language.Tag) *Grouper {
	return &Grouper{printer: message.NewPrinter(tag)}
}

// Group returns groups ordered by user id. Users without a delivery token
// are dropped. Items keep their input order within a group.
func (g *Grouper) Group(due []domain.DueNotification) []Group {
	byUser := make(map[uuid.UUID]*Group)
	counts := make(map[uuid.UUID]map[uuid.UUID]*CollectionCount)

	for _, n := range due {
		if n.DeliveryToken == "" {
			continue
		}
		grp, ok := byUser[n.UserID]
		if !ok {
			grp = &Group{UserID: n.UserID, Token: n.DeliveryToken}
			byUser[n.UserID] = grp
			counts[n.UserID] = make(map[uuid.UUID]*CollectionCount)
		}
		grp.ItemIDs = append(grp.ItemIDs, n.ItemID)

		cc, ok := counts[n.UserID][n.CollectionID]
		if !ok {
			cc = &CollectionCount{CollectionID: n.CollectionID, Name: n.CollectionName}
			counts[n.UserID][n.CollectionID] = cc
		}
		cc.Count++
	}

	out := make([]Group, 0, len(byUser))
	for userID, grp := range byUser {
		for _, cc := range counts[userID] {
			grp.Collections = append(grp.Collections, *cc)
		}
		sortCollections(grp.Collections)
		grp.Title = g.title(len(grp.ItemIDs))
		grp.Body = g.body(len(grp.ItemIDs), grp.Collections)
		out = append(out, *grp)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].UserID.String() < out[j].UserID.String()
	})
	return out
}

// sortCollections orders by count descending, then name, then id.
func sortCollections(cs []CollectionCount) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Count != cs[j].Count {
			return cs[i].Count > cs[j].Count
		}
		if cs[i].Name != cs[j].Name {
			return cs[i].Name < cs[j].Name
		}
		return cs[i].CollectionID.String() < cs[j].CollectionID.String()
	})
}

func (g *Grouper) title(total int) string {
	return g.printer.Sprintf(msgTitle, total)
}

func (g *Grouper) body(total int, cs []CollectionCount) string {
	if len(cs) == 1 {
		return g.printer.Sprintf(msgBodySingle, total, cs[0].Name)
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = g.printer.Sprintf(msgBodyFragment, c.Count, c.Name)
	}
	return g.printer.Sprintf(msgBodyMulti, total, strings.Join(parts, g.printer.Sprintf(msgBodySep)))
}
