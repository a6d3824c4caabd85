package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/memory"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
	"github.com/phrazzld/scry-sprint/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileService(t *testing.T) (*reminder.ProfileService, *memory.Store, *testutils.Clock) {
	t.Helper()
	st := memory.New()
	clock := testutils.NewClock(now)
	return reminder.NewProfileService(st, reminder.NewEngine(nil), nil, reminder.WithProfileClock(clock.Now)), st, clock
}

func TestProfileService_GetDefaults(t *testing.T) {
	t.Parallel()

	svc, st, _ := newProfileService(t)
	userID := uuid.New()

	p, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, p.Enabled)
	assert.Equal(t, domain.DefaultCooldownMinutes, p.CooldownMinutes)
	assert.Equal(t, domain.DefaultSessionSize, p.SessionSize)

	_, err = st.Stores().Profiles.Get(context.Background(), userID)
	assert.Error(t, err, "defaults are not persisted")
}

func TestProfileService_Update(t *testing.T) {
	t.Parallel()

	svc, st, _ := newProfileService(t)
	userID := uuid.New()
	ctx := context.Background()

	p, err := svc.Update(ctx, userID, reminder.ProfileUpdate{
		CooldownMinutes: ptr(180),
		SessionSize:     ptr(8),
	})
	require.NoError(t, err)
	assert.Equal(t, 180, p.CooldownMinutes)
	assert.Equal(t, 8, p.SessionSize)
	assert.Equal(t, domain.DefaultMaxPerDay, p.MaxPerDay)

	stored, err := st.Stores().Profiles.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 8, stored.SessionSize)

	_, err = svc.Update(ctx, userID, reminder.ProfileUpdate{CooldownMinutes: ptr(30)})
	assert.ErrorIs(t, err, domain.ErrInvalidProfile)

	_, err = svc.Update(ctx, userID, reminder.ProfileUpdate{SessionSize: ptr(11)})
	assert.ErrorIs(t, err, domain.ErrInvalidSessionSize)

	stored, err = st.Stores().Profiles.Get(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 180, stored.CooldownMinutes, "rejected update leaves the profile unchanged")
	assert.Equal(t, 8, stored.SessionSize)
}

func TestProfileService_RegisterToken(t *testing.T) {
	t.Parallel()

	svc, _, _ := newProfileService(t)
	userID := uuid.New()
	ctx := context.Background()

	p, err := svc.RegisterToken(ctx, userID, "  ExponentPushToken[abc]  ")
	require.NoError(t, err)
	require.True(t, p.HasToken())
	assert.Equal(t, "ExponentPushToken[abc]", *p.DeliveryToken)

	p, err = svc.RegisterToken(ctx, userID, "")
	require.NoError(t, err)
	assert.False(t, p.HasToken())
}

func TestProfileService_Eligibility(t *testing.T) {
	t.Parallel()

	svc, st, clock := newProfileService(t)
	userID := uuid.New()
	ctx := context.Background()

	d, err := svc.Eligibility(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, reminder.ReasonNoToken, d.Reason)

	_, err = svc.RegisterToken(ctx, userID, "tok")
	require.NoError(t, err)
	d, err = svc.Eligibility(ctx, userID)
	require.NoError(t, err)
	assert.True(t, d.Eligible)

	coll := testutils.MustInsertCollection(t, st, userID, "Biology", 50, nil, now)
	item := testutils.MustInsertItem(t, st, coll, now)
	sess := domain.NewSession(userID, domain.OriginHome, nil, []uuid.UUID{item.ID}, now, 30*time.Minute)
	require.NoError(t, st.Stores().Sessions.Create(ctx, sess))

	d, err = svc.Eligibility(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, reminder.ReasonSessionConflict, d.Reason)
	require.NotNil(t, d.NextEligibleAt)
	assert.Equal(t, now.Add(30*time.Minute), *d.NextEligibleAt)

	clock.Advance(31 * time.Minute)
	d, err = svc.Eligibility(ctx, userID)
	require.NoError(t, err)
	assert.True(t, d.Eligible)
}
