package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
)

var errMissingUser = errors.New("user id missing from request context")

// requireUserID extracts the authenticated user or writes a 401.
func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := shared.GetUserID(r.Context())
	if !ok {
		logger.FromContext(r.Context()).Warn("user ID not found or invalid in request context")
		shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, CodeUnauthorized,
			"User ID not found or invalid", errMissingUser)
		return uuid.Nil, false
	}
	return userID, true
}

// pathUUID parses a UUID path parameter or writes a 400.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.FromContext(r.Context()).Warn("invalid path parameter",
			slog.String("param_name", name),
			slog.String("value", raw))
		badRequest(w, r, "Invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// decodeAndValidate decodes the body into v and validates it. An empty
// body is accepted when allowEmpty is set. It writes a 400 and returns
// false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if err := shared.DecodeJSON(r, v); err != nil {
		if !(allowEmpty && errors.Is(err, shared.ErrEmptyBody)) {
			badRequest(w, r, "Invalid request format", err)
			return false
		}
	}
	if err := shared.ValidateRequest(v); err != nil {
		badRequest(w, r, SanitizeValidationError(err), err)
		return false
	}
	return true
}
