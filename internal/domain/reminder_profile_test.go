package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestReminderProfile_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(p *ReminderProfile)
		wantErr ErrorCode
	}{
		{name: "defaults", mutate: func(p *ReminderProfile) {}},
		{name: "cooldown below minimum", mutate: func(p *ReminderProfile) { p.CooldownMinutes = 119 }, wantErr: CodeInvalidProfile},
		{name: "zero max per day", mutate: func(p *ReminderProfile) { p.MaxPerDay = 0 }, wantErr: CodeInvalidProfile},
		{name: "session size too small", mutate: func(p *ReminderProfile) { p.SessionSize = 2 }, wantErr: CodeInvalidSessionSize},
		{name: "session size too large", mutate: func(p *ReminderProfile) { p.SessionSize = 11 }, wantErr: CodeInvalidSessionSize},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := NewReminderProfile(uuid.New(), time.Now().UTC())
			tc.mutate(p)
			err := p.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			code, ok := CodeOf(err)
			assert.True(t, ok)
			assert.Equal(t, tc.wantErr, code)
		})
	}
}

func TestReminderProfile_EffectiveCount(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	p := NewReminderProfile(uuid.New(), now)
	p.CountToday = 4

	assert.Equal(t, 0, p.EffectiveCount(now, time.UTC), "no send yet")

	sameDay := now.Add(-3 * time.Hour)
	p.LastSentAt = &sameDay
	assert.Equal(t, 4, p.EffectiveCount(now, time.UTC))

	yesterday := now.Add(-10 * time.Hour)
	p.LastSentAt = &yesterday
	assert.Equal(t, 0, p.EffectiveCount(now, time.UTC), "counter resets across the day boundary")
}

func TestReminderProfile_RecordSent(t *testing.T) {
	t.Parallel()

	day1 := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	p := NewReminderProfile(uuid.New(), day1)

	p.RecordSent(day1, time.UTC)
	p.RecordSent(day1.Add(time.Hour), time.UTC)
	assert.Equal(t, 2, p.CountToday)

	day2 := day1.Add(4 * time.Hour)
	p.RecordSent(day2, time.UTC)
	assert.Equal(t, 1, p.CountToday)
	assert.Equal(t, day2, *p.LastSentAt)
}

func TestStartOfNextReferenceDay(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), StartOfNextReferenceDay(ts, nil))

	loc := time.FixedZone("UTC+2", 2*60*60)
	got := StartOfNextReferenceDay(time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC), loc)
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, loc), got)
}

func TestReminderProfile_Token(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	p := NewReminderProfile(uuid.New(), now)
	assert.False(t, p.HasToken())

	p.SetToken("ExponentPushToken[abc]", now)
	assert.True(t, p.HasToken())

	p.ClearToken(now)
	assert.False(t, p.HasToken())
}
