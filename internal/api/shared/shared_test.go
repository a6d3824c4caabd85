package shared_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceID(t *testing.T) {
	t.Parallel()

	assert.Empty(t, shared.GetTraceID(context.Background()))

	ctx := shared.SetTraceID(context.Background())
	id := shared.GetTraceID(ctx)
	assert.Len(t, id, shared.TraceIDLength*2)
	assert.NotEqual(t, id, shared.GetTraceID(shared.SetTraceID(context.Background())))
}

func TestUserID(t *testing.T) {
	t.Parallel()

	_, ok := shared.GetUserID(context.Background())
	assert.False(t, ok)

	_, ok = shared.GetUserID(shared.SetUserID(context.Background(), uuid.Nil))
	assert.False(t, ok)

	id := uuid.New()
	got, ok := shared.GetUserID(shared.SetUserID(context.Background(), id))
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

type sample struct {
	Grade string `json:"grade" validate:"required,oneof=again hard good easy"`
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "valid", body: `{"grade":"good"}`},
		{name: "empty", body: ``, wantErr: true},
		{name: "unknown field", body: `{"grade":"good","extra":1}`, wantErr: true},
		{name: "trailing value", body: `{"grade":"good"}{}`, wantErr: true},
		{name: "malformed", body: `{"grade":`, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var v sample
			err := shared.DecodeJSON(r, &v)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "good", v.Grade)
		})
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	assert.NoError(t, shared.ValidateRequest(sample{Grade: "easy"}))
	assert.Error(t, shared.ValidateRequest(sample{Grade: "perfect"}))
	assert.Error(t, shared.ValidateRequest(sample{}))
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil)
	r = r.WithContext(shared.SetTraceID(r.Context()))
	w := httptest.NewRecorder()

	shared.RespondWithErrorAndLog(w, r, http.StatusConflict, "SESSION_EXPIRED", "session expired",
		assert.AnError)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	raw := w.Body.String()
	assert.NotContains(t, raw, assert.AnError.Error())

	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, "session expired", body.Error)
	assert.Equal(t, "SESSION_EXPIRED", body.Code)
	assert.Equal(t, shared.GetTraceID(r.Context()), body.TraceID)
}
