package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-sprint/internal/api"
	apiMiddleware "github.com/phrazzld/scry-sprint/internal/api/middleware"
)

// setupRouter registers every route and the middleware chain.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	sessionHandler := api.NewSessionHandler(app.sprintService, app.logger)
	itemHandler := api.NewItemHandler(app.cardReviewService, app.logger)
	reminderHandler := api.NewReminderHandler(app.profileService, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Start)
			r.Post("/pending/claim", sessionHandler.ClaimPending)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Post("/complete", sessionHandler.Complete)
				r.Post("/abandon", sessionHandler.Abandon)
				r.Post("/items/{itemID}/grade", sessionHandler.GradeItem)
				r.Post("/items/{itemID}/skip", sessionHandler.SkipItem)
			})
		})

		r.Get("/items/next", itemHandler.GetNext)
		r.Post("/items/{id}/grade", itemHandler.SubmitGrade)

		r.Route("/reminders", func(r chi.Router) {
			r.Get("/profile", reminderHandler.GetProfile)
			r.Put("/profile", reminderHandler.UpdateProfile)
			r.Put("/token", reminderHandler.RegisterToken)
			r.Get("/eligibility", reminderHandler.Eligibility)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
