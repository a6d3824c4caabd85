package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/phrazzld/scry-sprint/internal/api/shared"
	"github.com/phrazzld/scry-sprint/internal/domain"
	"github.com/phrazzld/scry-sprint/internal/platform/logger"
	"github.com/phrazzld/scry-sprint/internal/service/card_review"
)

// ItemHandler serves single-item review outside of sessions.
type ItemHandler struct {
	reviews card_review.CardReviewService
	logger  *slog.Logger
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(reviews card_review.CardReviewService, logger *slog.Logger) *ItemHandler {
	if reviews == nil {
		panic("reviews cannot be nil for ItemHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ItemHandler{
		reviews: reviews,
		logger:  logger.With(slog.String("component", "item_handler")),
	}
}

// GetNext handles GET /api/items/next. It answers 204 when nothing is due.
func (h *ItemHandler) GetNext(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	item, err := h.reviews.GetNextItem(r.Context(), userID)
	if errors.Is(err, domain.ErrNoEligibleItems) {
		log.Debug("no items due for review", slog.String("user_id", userID.String()))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewItemView(item))
}

// SubmitGrade handles POST /api/items/{id}/grade.
func (h *ItemHandler) SubmitGrade(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	itemID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req GradeRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	item, err := h.reviews.SubmitGrade(r.Context(), userID, itemID, card_review.ReviewAnswer{
		Grade: domain.Grade(req.Grade),
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, NewItemView(item))
}
