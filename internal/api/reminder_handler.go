package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/service/reminder"
)

// ReminderService manages reminder settings. *reminder.ProfileService
// satisfies it.
type ReminderService interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.ReminderProfile, error)
	Update(ctx context.Context, userID uuid.UUID, u reminder.ProfileUpdate) (*domain.ReminderProfile, error)
	RegisterToken(ctx context.Context, userID uuid.UUID, token string) (*domain.ReminderProfile, error)
	Eligibility(ctx context.Context, userID uuid.UUID) (reminder.Decision, error)
}

// UpdateProfileRequest is the body of PUT /api/reminders/profile. Omitted
// fields keep their current value; ranges are checked by the profile.
type UpdateProfileRequest struct {
	Enabled         *bool `json:"enabled,omitempty"`
	CooldownMinutes *int  `json:"cooldown_minutes,omitempty" validate:"omitempty,gte=0"`
	MaxPerDay       *int  `json:"max_per_day,omitempty" validate:"omitempty,gte=0"`
	SessionSize     *int  `json:"session_size,omitempty" validate:"omitempty,gte=0"`
}

// RegisterTokenRequest is the body of PUT /api/reminders/token. An empty
// token unregisters the device.
type RegisterTokenRequest struct {
	Token string `json:"token" validate:"max=512"`
}

// ReminderHandler serves /api/reminders.
type ReminderHandler struct {
	reminders ReminderService
	logger    *slog.Logger
}

// NewReminderHandler creates a ReminderHandler.
func NewReminderHandler(reminders ReminderService, logger *slog.Logger) *ReminderHandler {
	if reminders == nil {
		panic("reminders cannot be nil for ReminderHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderHandler{
		reminders: reminders,
		logger:    logger.With(slog.String("component", "reminder_handler")),
	}
}

// GetProfile handles GET /api/reminders/profile.
func (h *ReminderHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	p, err := h.reminders.Get(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewReminderProfileView(p))
}

// UpdateProfile handles PUT /api/reminders/profile.
func (h *ReminderHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	p, err := h.reminders.Update(r.Context(), userID, reminder.ProfileUpdate{
		Enabled:         req.Enabled,
		CooldownMinutes: req.CooldownMinutes,
		MaxPerDay:       req.MaxPerDay,
		SessionSize:     req.SessionSize,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewReminderProfileView(p))
}

// RegisterToken handles PUT /api/reminders/token.
func (h *ReminderHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	var req RegisterTokenRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	p, err := h.reminders.RegisterToken(r.Context(), userID, req.Token)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewReminderProfileView(p))
}

// Eligibility handles GET /api/reminders/eligibility.
func (h *ReminderHandler) Eligibility(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	d, err := h.reminders.Eligibility(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewEligibilityView(d))
}
