package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/service/sprint"
)

// SessionService is the session lifecycle used by SessionHandler.
// *sprint.Service satisfies it.
type SessionService interface {
	Start(ctx context.Context, userID uuid.UUID, scope *uuid.UUID, origin domain.SessionOrigin) (*sprint.StartResult, error)
	Get(ctx context.Context, sessionID, userID uuid.UUID) (*domain.Session, error)
	ClaimPending(ctx context.Context, userID uuid.UUID) (*domain.Session, error)
	GradeItem(ctx context.Context, sessionID, itemID uuid.UUID, grade domain.Grade, userID uuid.UUID) (*sprint.GradeResult, error)
	SkipItem(ctx context.Context, sessionID, itemID, userID uuid.UUID) (*domain.Session, error)
	Complete(ctx context.Context, sessionID, userID uuid.UUID) (*sprint.CompleteResult, error)
	Abandon(ctx context.Context, sessionID, userID uuid.UUID) (*sprint.AbandonResult, error)
}

// StartSessionRequest is the optional body of POST /api/sessions.
type StartSessionRequest struct {
	CollectionID *uuid.UUID `json:"collection_id,omitempty"`
	Origin       string     `json:"origin,omitempty"`
}

// GradeRequest is the body of the grade endpoints.
type GradeRequest struct {
	Grade string `json:"grade" validate:"required"`
}

// SessionHandler serves /api/sessions.
type SessionHandler struct {
	sessions SessionService
	logger   *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions SessionService, logger *slog.Logger) *SessionHandler {
	if sessions == nil {
		panic("sessions cannot be nil for SessionHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		sessions: sessions,
		logger:   logger.With(slog.String("component", "session_handler")),
	}
}

// Start handles POST /api/sessions. It returns 201 for a new session and
// 200 when an open session was resumed.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	res, err := h.sessions.Start(r.Context(), userID, req.CollectionID, domain.SessionOrigin(req.Origin))
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Resumed {
		status = http.StatusOK
	}
	logger.FromContextOrDefault(r.Context(), h.logger).Debug("session started",
		slog.String("session_id", res.Session.ID.String()),
		slog.Bool("resumed", res.Resumed))
	shared.RespondWithJSON(w, r, status, StartSessionResponse{
		Session: NewSessionView(res.Session),
		Resumed: res.Resumed,
	})
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	sess, err := h.sessions.Get(r.Context(), sessionID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewSessionView(sess))
}

// ClaimPending handles POST /api/sessions/pending/claim.
func (h *SessionHandler) ClaimPending(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.ClaimPending(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewSessionView(sess))
}

// GradeItem handles POST /api/sessions/{id}/items/{itemID}/grade.
func (h *SessionHandler) GradeItem(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, itemID, ok := h.sessionItemParams(w, r)
	if !ok {
		return
	}
	var req GradeRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	res, err := h.sessions.GradeItem(r.Context(), sessionID, itemID, domain.Grade(req.Grade), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, GradeItemResponse{
		Session:   NewSessionView(res.Session),
		NextDueAt: res.Item.NextDueAt,
	})
}

// SkipItem handles POST /api/sessions/{id}/items/{itemID}/skip.
func (h *SessionHandler) SkipItem(w http.ResponseWriter, r *http.Request) {
	userID, sessionID, itemID, ok := h.sessionItemParams(w, r)
	if !ok {
		return
	}

	sess, err := h.sessions.SkipItem(r.Context(), sessionID, itemID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewSessionView(sess))
}

// Complete handles POST /api/sessions/{id}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.sessions.Complete(r.Context(), sessionID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, CompleteSessionResponse{
		Session: NewSessionView(res.Session),
		Stats:   NewStatsView(res.Stats),
	})
}

// Abandon handles POST /api/sessions/{id}/abandon.
func (h *SessionHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	res, err := h.sessions.Abandon(r.Context(), sessionID, userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, AbandonSessionResponse{
		Session:      NewSessionView(res.Session),
		SnoozedCount: res.SnoozedCount,
	})
}

func (h *SessionHandler) sessionItemParams(
	w http.ResponseWriter,
	r *http.Request,
) (userID, sessionID, itemID uuid.UUID, ok bool) {
	if userID, ok = requireUserID(w, r); !ok {
		return
	}
	if sessionID, ok = pathUUID(w, r, "id"); !ok {
		return
	}
	itemID, ok = pathUUID(w, r, "itemID")
	return
}
