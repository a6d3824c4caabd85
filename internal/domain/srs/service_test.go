package srs

import (
	"testing"
	"time"

	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allGrades = []domain.Grade{
	domain.GradeAgain,
	domain.GradeHard,
	domain.GradeGood,
	domain.GradeEasy,
}

func reviewState(stability float64, scheduled int, last time.Time) domain.MemoryState {
	return domain.MemoryState{
		Stability:      stability,
		Difficulty:     5,
		ScheduledDays:  scheduled,
		Reps:           4,
		Lapses:         1,
		State:          domain.StateReview,
		LastReviewedAt: &last,
	}
}

func TestComputeNext_NewItem(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, grade := range allGrades {
		t.Run(string(grade), func(t *testing.T) {
			t.Parallel()

			res, err := svc.ComputeNext(domain.MemoryState{State: domain.StateNew}, grade, at)
			require.NoError(t, err)

			assert.Equal(t, domain.StateLearning, res.State.State)
			assert.Equal(t, 1, res.State.Reps)
			assert.Greater(t, res.State.Stability, 0.0)
			assert.GreaterOrEqual(t, res.State.Difficulty, domain.MinDifficulty)
			assert.LessOrEqual(t, res.State.Difficulty, domain.MaxDifficulty)
			assert.True(t, res.NextDueAt.After(at), "next due must be in the future")
			require.NotNil(t, res.State.LastReviewedAt)
			assert.Equal(t, at, *res.State.LastReviewedAt)
		})
	}
}

func TestComputeNext_NewItemGood(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	res, err := svc.ComputeNext(domain.MemoryState{State: domain.StateNew}, domain.GradeGood, at)
	require.NoError(t, err)

	assert.Equal(t, domain.StateLearning, res.State.State)
	assert.Equal(t, 2, res.State.ScheduledDays)
	assert.Equal(t, at.AddDate(0, 0, 2), res.NextDueAt)
	assert.Equal(t, 0, res.State.Lapses)
}

func TestComputeNext_Transitions(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	at := last.AddDate(0, 0, 3)

	tests := []struct {
		from  domain.ItemState
		grade domain.Grade
		want  domain.ItemState
	}{
		{domain.StateLearning, domain.GradeAgain, domain.StateLearning},
		{domain.StateLearning, domain.GradeHard, domain.StateReview},
		{domain.StateLearning, domain.GradeGood, domain.StateReview},
		{domain.StateReview, domain.GradeAgain, domain.StateRelearning},
		{domain.StateReview, domain.GradeHard, domain.StateReview},
		{domain.StateReview, domain.GradeEasy, domain.StateReview},
		{domain.StateRelearning, domain.GradeAgain, domain.StateRelearning},
		{domain.StateRelearning, domain.GradeGood, domain.StateReview},
	}

	for _, tc := range tests {
		t.Run(string(tc.from)+"/"+string(tc.grade), func(t *testing.T) {
			t.Parallel()

			state := reviewState(3, 3, last)
			state.State = tc.from
			res, err := svc.ComputeNext(state, tc.grade, at)
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.State.State)
		})
	}
}

func TestComputeNext_AgainShrinks(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	last := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for _, from := range []domain.ItemState{domain.StateNew, domain.StateLearning, domain.StateReview, domain.StateRelearning} {
		t.Run(string(from), func(t *testing.T) {
			t.Parallel()

			state := reviewState(20, 20, last)
			state.State = from
			at := last.AddDate(0, 0, 20)

			res, err := svc.ComputeNext(state, domain.GradeAgain, at)
			require.NoError(t, err)

			assert.Equal(t, state.Lapses+1, res.State.Lapses)
			assert.LessOrEqual(t, res.State.ScheduledDays, state.ScheduledDays)
			assert.Equal(t, at.Add(10*time.Minute), res.NextDueAt)
			if from != domain.StateNew {
				assert.LessOrEqual(t, res.State.Stability, state.Stability)
			}
		})
	}
}

func TestComputeNext_SuccessNeverShortensReview(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	last := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	elapsedDays := []int{0, 1, 5, 30, 90}
	for _, grade := range []domain.Grade{domain.GradeGood, domain.GradeEasy} {
		for _, elapsed := range elapsedDays {
			state := reviewState(15, 15, last)
			at := last.AddDate(0, 0, elapsed)

			res, err := svc.ComputeNext(state, grade, at)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, res.State.ScheduledDays, state.ScheduledDays,
				"grade %s after %d days", grade, elapsed)
			assert.GreaterOrEqual(t, res.State.Stability, state.Stability)
			assert.True(t, res.NextDueAt.After(at))
		}
	}
}

func TestComputeNext_MaximumInterval(t *testing.T) {
	t.Parallel()

	svc := NewServiceWithParams(NewParams(ParamsConfig{MaximumIntervalDays: 30}))
	last := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	res, err := svc.ComputeNext(reviewState(200, 25, last), domain.GradeEasy, last.AddDate(0, 0, 25))
	require.NoError(t, err)
	assert.Equal(t, 30, res.State.ScheduledDays)
}

func TestComputeNext_Deterministic(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	last := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	at := last.Add(50 * time.Hour)
	state := reviewState(7.5, 7, last)

	for _, grade := range allGrades {
		a, err := svc.ComputeNext(state, grade, at)
		require.NoError(t, err)
		b, err := svc.ComputeNext(state, grade, at)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestComputeNext_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	last := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	state := reviewState(7.5, 7, last)
	before := state

	_, err := svc.ComputeNext(state, domain.GradeGood, last.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, before, state)
	assert.Equal(t, last, *state.LastReviewedAt)
}

func TestComputeNext_InvalidGrade(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	_, err := svc.ComputeNext(domain.MemoryState{State: domain.StateNew}, domain.Grade("perfect"), time.Now())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidGrade)
	code, _ := domain.CodeOf(err)
	assert.Equal(t, domain.KindValidation, code.Kind())
}

func TestRetrievability(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	last := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	state := reviewState(10, 10, last)

	assert.InDelta(t, 1.0, svc.Retrievability(state, last), 1e-9)
	assert.InDelta(t, 0.9, svc.Retrievability(state, last.AddDate(0, 0, 10)), 1e-9)
	assert.Zero(t, svc.Retrievability(domain.MemoryState{State: domain.StateNew}, last))
}
