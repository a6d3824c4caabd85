package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/api"
	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/domain/srs"
	"github.com/phrazzld/scry-sprint/internal/platform/memory"
	"github.com/phrazzld/scry-sprint/internal/service/card_review"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
	"github.com/phrazzld/scry-sprint/internal/service/sprint"
	"github.com/phrazzld/scry-sprint/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// asUser injects the authenticated user the way the auth middleware does.
func asUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID != uuid.Nil {
				r = r.WithContext(shared.SetUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type apiFixture struct {
	st     *memory.Store
	clock  *testutils.Clock
	userID uuid.UUID
	coll   *domain.Collection
	items  []*domain.Item
	router chi.Router
}

func newAPIFixture(t *testing.T, n int) *apiFixture {
	t.Helper()

	st := memory.New()
	clock := testutils.NewClock(start)
	userID := uuid.New()
	coll := testutils.MustInsertCollection(t, st, userID, "Biology", 50, nil, start)
	f := &apiFixture{
		st:     st,
		clock:  clock,
		userID: userID,
		coll:   coll,
		items:  testutils.MustInsertItems(t, st, coll, start, n),
	}

	sessions := api.NewSessionHandler(
		sprint.NewService(st, srs.NewDefaultService(), sprint.DefaultConfig(), nil, sprint.WithClock(clock.Now)),
		nil,
	)
	reminders := api.NewReminderHandler(
		reminder.NewProfileService(st, reminder.NewEngine(time.UTC), nil, reminder.WithProfileClock(clock.Now)),
		nil,
	)

	r := chi.NewRouter()
	r.Use(asUser(userID))
	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", sessions.Start)
		r.Post("/pending/claim", sessions.ClaimPending)
		r.Get("/{id}", sessions.Get)
		r.Post("/{id}/complete", sessions.Complete)
		r.Post("/{id}/abandon", sessions.Abandon)
		r.Post("/{id}/items/{itemID}/grade", sessions.GradeItem)
		r.Post("/{id}/items/{itemID}/skip", sessions.SkipItem)
	})
	r.Route("/api/reminders", func(r chi.Router) {
		r.Get("/profile", reminders.GetProfile)
		r.Put("/profile", reminders.UpdateProfile)
		r.Put("/token", reminders.RegisterToken)
		r.Get("/eligibility", reminders.Eligibility)
	})
	f.router = r
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), "body: %s", rr.Body.String())
	return v
}

func (f *apiFixture) startSession(t *testing.T) api.SessionView {
	t.Helper()
	rr := f.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[api.StartSessionResponse](t, rr).Session
}

func TestSessionHandler_StartAndResume(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 6)
	sess := f.startSession(t)
	assert.Equal(t, domain.SessionActive, sess.Status)
	assert.Equal(t, domain.OriginHome, sess.Origin)
	assert.Len(t, sess.Items, domain.DefaultSessionSize)

	rr := f.do(t, http.MethodPost, "/api/sessions", map[string]string{"origin": "home"})
	require.Equal(t, http.StatusOK, rr.Code)
	resumed := decode[api.StartSessionResponse](t, rr)
	assert.True(t, resumed.Resumed)
	assert.Equal(t, sess.ID, resumed.Session.ID)
}

func TestSessionHandler_StartErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		items    int
		body     any
		wantCode int
		wantErr  string
	}{
		{"nothing due", 0, nil, http.StatusConflict, string(domain.CodeNoEligibleItems)},
		{"unknown field", 3, `{"unknown":true}`, http.StatusBadRequest, api.CodeBadRequest},
		{"bad origin", 3, map[string]string{"origin": "email"}, http.StatusBadRequest, string(domain.CodeInvalidOrigin)},
		{"malformed json", 3, `{"origin":`, http.StatusBadRequest, api.CodeBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newAPIFixture(t, tc.items)
			rr := f.do(t, http.MethodPost, "/api/sessions", tc.body)
			assert.Equal(t, tc.wantCode, rr.Code, rr.Body.String())
			assert.Equal(t, tc.wantErr, decode[shared.ErrorResponse](t, rr).Code)
		})
	}
}

func TestSessionHandler_GradeSkipComplete(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 3)
	sess := f.startSession(t)
	base := "/api/sessions/" + sess.ID.String()

	rr := f.do(t, http.MethodPost, base+"/items/"+sess.Items[0].ItemID.String()+"/grade",
		map[string]string{"grade": "good"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	graded := decode[api.GradeItemResponse](t, rr)
	assert.True(t, graded.NextDueAt.After(start))
	assert.Equal(t, 1, graded.Session.Progress.Reviewed)

	rr = f.do(t, http.MethodPost, base+"/items/"+sess.Items[1].ItemID.String()+"/grade",
		map[string]string{"grade": "again"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, http.MethodPost, base+"/items/"+sess.Items[2].ItemID.String()+"/skip", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	f.clock.Advance(90 * time.Second)
	rr = f.do(t, http.MethodPost, base+"/complete", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	done := decode[api.CompleteSessionResponse](t, rr)
	assert.Equal(t, domain.SessionCompleted, done.Session.Status)
	assert.Equal(t, 3, done.Stats.Total)
	assert.Equal(t, 1, done.Stats.Pass)
	assert.Equal(t, 1, done.Stats.Fail)
	assert.Equal(t, 1, done.Stats.Skip)
	assert.Equal(t, int64(90), done.Stats.DurationSeconds)

	rr = f.do(t, http.MethodPost, base+"/abandon", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	again := decode[api.AbandonSessionResponse](t, rr)
	assert.Equal(t, domain.SessionCompleted, again.Session.Status)
	assert.Zero(t, again.SnoozedCount)
}

func TestSessionHandler_GradeValidation(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 3)
	sess := f.startSession(t)
	path := "/api/sessions/" + sess.ID.String() + "/items/" + sess.Items[0].ItemID.String() + "/grade"

	rr := f.do(t, http.MethodPost, path, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, api.CodeBadRequest, decode[shared.ErrorResponse](t, rr).Code)

	rr = f.do(t, http.MethodPost, path, map[string]string{"grade": "perfect"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(domain.CodeInvalidGrade), decode[shared.ErrorResponse](t, rr).Code)

	rr = f.do(t, http.MethodPost, "/api/sessions/not-a-uuid/items/"+sess.Items[0].ItemID.String()+"/grade",
		map[string]string{"grade": "good"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSessionHandler_AbandonSnoozes(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 4)
	sess := f.startSession(t)

	rr := f.do(t, http.MethodPost, "/api/sessions/"+sess.ID.String()+"/abandon", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[api.AbandonSessionResponse](t, rr)
	assert.Equal(t, domain.SessionAbandoned, res.Session.Status)
	assert.Equal(t, 4, res.SnoozedCount)
}

func TestSessionHandler_GetNotFoundAndForeign(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 3)
	rr := f.do(t, http.MethodGet, "/api/sessions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, string(domain.CodeSessionNotFound), decode[shared.ErrorResponse](t, rr).Code)

	other := uuid.New()
	otherColl := testutils.MustInsertCollection(t, f.st, other, "Chemistry", 50, nil, start)
	otherItems := testutils.MustInsertItems(t, f.st, otherColl, start, 3)
	foreign := domain.NewPendingSession(other, domain.OriginPush, []uuid.UUID{otherItems[0].ID}, start)
	require.NoError(t, f.st.Stores().Sessions.Create(context.Background(), foreign))

	rr = f.do(t, http.MethodGet, "/api/sessions/"+foreign.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, string(domain.CodeSessionNotOwned), decode[shared.ErrorResponse](t, rr).Code)
}

func TestSessionHandler_ClaimPendingWithoutSession(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 3)
	rr := f.do(t, http.MethodPost, "/api/sessions/pending/claim", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSessionHandler_RequiresUser(t *testing.T) {
	t.Parallel()

	h := api.NewSessionHandler(&sprint.Service{}, nil)
	r := chi.NewRouter()
	r.Post("/api/sessions", h.Start)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/sessions", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, api.CodeUnauthorized, decode[shared.ErrorResponse](t, rr).Code)
}

func TestReminderHandler_ProfileRoundTrip(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 0)

	rr := f.do(t, http.MethodGet, "/api/reminders/profile", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	p := decode[api.ReminderProfileView](t, rr)
	assert.False(t, p.HasToken)
	assert.Equal(t, domain.DefaultCooldownMinutes, p.CooldownMinutes)
	assert.Equal(t, domain.DefaultMaxPerDay, p.MaxPerDay)

	rr = f.do(t, http.MethodPut, "/api/reminders/profile", map[string]any{"enabled": true, "max_per_day": 4})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	p = decode[api.ReminderProfileView](t, rr)
	assert.True(t, p.Enabled)
	assert.Equal(t, 4, p.MaxPerDay)

	rr = f.do(t, http.MethodPut, "/api/reminders/profile", map[string]any{"cooldown_minutes": 5})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, string(domain.CodeInvalidProfile), decode[shared.ErrorResponse](t, rr).Code)

	rr = f.do(t, http.MethodPut, "/api/reminders/profile", map[string]any{"session_size": -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, api.CodeBadRequest, decode[shared.ErrorResponse](t, rr).Code)
}

func TestReminderHandler_TokenAndEligibility(t *testing.T) {
	t.Parallel()

	f := newAPIFixture(t, 0)

	rr := f.do(t, http.MethodGet, "/api/reminders/eligibility", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	d := decode[api.EligibilityView](t, rr)
	assert.False(t, d.Eligible)
	assert.Equal(t, string(reminder.ReasonNoToken), d.Reason)

	rr = f.do(t, http.MethodPut, "/api/reminders/token", map[string]string{"token": "ExponentPushToken[abcdef123456]"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[api.ReminderProfileView](t, rr).HasToken)
	assert.NotContains(t, rr.Body.String(), "abcdef123456")

	rr = f.do(t, http.MethodGet, "/api/reminders/eligibility", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	d = decode[api.EligibilityView](t, rr)
	assert.True(t, d.Eligible)
	assert.Empty(t, d.Reason)

	rr = f.do(t, http.MethodPut, "/api/reminders/token", map[string]string{"token": "  "})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[api.ReminderProfileView](t, rr).HasToken)
}

func TestItemHandler(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	item, err := domain.NewItem(userID, uuid.New(), domain.DefaultPriority, start)
	require.NoError(t, err)

	var gotGrade domain.Grade
	mock := &card_review.MockCardReviewService{
		GetNextItemFunc: func(_ context.Context, id uuid.UUID) (*domain.Item, error) {
			if id == userID {
				return item, nil
			}
			return nil, domain.ErrNoEligibleItems
		},
		SubmitGradeFunc: func(_ context.Context, _, itemID uuid.UUID, a card_review.ReviewAnswer) (*domain.Item, error) {
			gotGrade = a.Grade
			if itemID != item.ID {
				return nil, domain.ErrItemNotFound
			}
			return item, nil
		},
	}
	h := api.NewItemHandler(mock, nil)

	route := func(u uuid.UUID) chi.Router {
		r := chi.NewRouter()
		r.Use(asUser(u))
		r.Get("/api/items/next", h.GetNext)
		r.Post("/api/items/{id}/grade", h.SubmitGrade)
		return r
	}
	serve := func(r chi.Router, method, path, body string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
		return rr
	}

	t.Run("next item", func(t *testing.T) {
		rr := serve(route(userID), http.MethodGet, "/api/items/next", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, item.ID, decode[api.ItemView](t, rr).ID)
	})

	t.Run("nothing due", func(t *testing.T) {
		rr := serve(route(uuid.New()), http.MethodGet, "/api/items/next", "")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("grade", func(t *testing.T) {
		rr := serve(route(userID), http.MethodPost, "/api/items/"+item.ID.String()+"/grade", `{"grade":"easy"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, domain.Grade("easy"), gotGrade)
	})

	t.Run("grade unknown item", func(t *testing.T) {
		rr := serve(route(userID), http.MethodPost, "/api/items/"+uuid.NewString()+"/grade", `{"grade":"easy"}`)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("unexpected error is hidden", func(t *testing.T) {
		failing := api.NewItemHandler(&card_review.MockCardReviewService{
			GetNextItemFunc: func(context.Context, uuid.UUID) (*domain.Item, error) {
				return nil, errors.New("connection refused on 10.0.0.5")
			},
		}, nil)
		r := chi.NewRouter()
		r.Use(asUser(userID))
		r.Get("/api/items/next", failing.GetNext)

		rr := serve(r, http.MethodGet, "/api/items/next", "")
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.NotContains(t, rr.Body.String(), "10.0.0.5")
		assert.Equal(t, api.CodeInternal, decode[shared.ErrorResponse](t, rr).Code)
	})
}
