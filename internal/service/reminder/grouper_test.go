package reminder_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func due(userID, collectionID uuid.UUID, name, token string) domain.DueNotification {
	return domain.DueNotification{
		ItemID:         uuid.New(),
		UserID:         userID,
		CollectionID:   collectionID,
		CollectionName: name,
		DeliveryToken:  token,
		NextDueAt:      now,
	}
}

func TestGrouper_SingleItem(t *testing.T) {
	t.Parallel()

	g := reminder.NewGrouper(language.English)
	user, bio := uuid.New(), uuid.New()
	n := due(user, bio, "Biology", "tok")

	groups := g.Group([]domain.DueNotification{n})
	require.Len(t, groups, 1)
	assert.Equal(t, "Time to review", groups[0].Title)
	assert.Equal(t, "1 due in Biology", groups[0].Body)
	assert.Equal(t, []uuid.UUID{n.ItemID}, groups[0].ItemIDs)
	assert.Equal(t, "tok", groups[0].Token)
}

func TestGrouper_SeveralCollections(t *testing.T) {
	t.Parallel()

	g := reminder.NewGrouper(language.English)
	user := uuid.New()
	bio, chem, art := uuid.New(), uuid.New(), uuid.New()

	in := []domain.DueNotification{
		due(user, chem, "Chemistry", "tok"),
		due(user, bio, "Biology", "tok"),
		due(user, art, "Art", "tok"),
		due(user, chem, "Chemistry", "tok"),
		due(user, bio, "Biology", "tok"),
		due(user, chem, "Chemistry", "tok"),
	}

	groups := g.Group(in)
	require.Len(t, groups, 1)
	grp := groups[0]
	assert.Equal(t, "6 items ready", grp.Title)
	assert.Equal(t, "6 due: 3 in Chemistry, 2 in Biology, 1 in Art", grp.Body)
	assert.Len(t, grp.ItemIDs, 6)
	assert.Equal(t, in[0].ItemID, grp.ItemIDs[0])

	require.Len(t, grp.Collections, 3)
	assert.Equal(t, "Chemistry", grp.Collections[0].Name)
	assert.Equal(t, 3, grp.Collections[0].Count)
	assert.Equal(t, 6, grp.Data()["item_count"])
}

func TestGrouper_TiesBreakByName(t *testing.T) {
	t.Parallel()

	g := reminder.NewGrouper(language.English)
	user := uuid.New()
	groups := g.Group([]domain.DueNotification{
		due(user, uuid.New(), "Zoology", "tok"),
		due(user, uuid.New(), "Anatomy", "tok"),
	})
	require.Len(t, groups, 1)
	assert.Equal(t, "2 items ready", groups[0].Title)
	assert.Equal(t, "2 due: 1 in Anatomy, 1 in Zoology", groups[0].Body)
}

func TestGrouper_PerUserAndDropsMissingTokens(t *testing.T) {
	t.Parallel()

	g := reminder.NewGrouper(language.English)
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	coll := uuid.New()

	groups := g.Group([]domain.DueNotification{
		due(a, coll, "Biology", "tok-a"),
		due(b, coll, "Biology", "tok-b"),
		due(c, coll, "Biology", ""),
		due(a, coll, "Biology", "tok-a"),
	})
	require.Len(t, groups, 2)
	assert.Less(t, groups[0].UserID.String(), groups[1].UserID.String())

	byUser := map[uuid.UUID]reminder.Group{}
	for _, grp := range groups {
		byUser[grp.UserID] = grp
	}
	assert.Len(t, byUser[a].ItemIDs, 2)
	assert.Equal(t, "2 due in Biology", byUser[a].Body)
	assert.Len(t, byUser[b].ItemIDs, 1)
	_, ok := byUser[c]
	assert.False(t, ok)

	assert.Empty(t, g.Group(nil))
}
