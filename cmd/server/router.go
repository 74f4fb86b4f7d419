package main

import (
	"net/http"

	"github.com/DineshDumka/text2learn-backend-sub000/internal/api"
	apiMiddleware "github.com/DineshDumka/text2learn-backend-sub000/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRouter builds the router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	// A nil *sql.DB must not reach the Pinger interface.
	var pinger api.Pinger
	if app.db != nil {
		pinger = app.db
	}
	healthHandler := api.NewHealthHandler(pinger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.stores.sessions)
	courseHandler := api.NewCourseHandler(app.courses, app.logger)
	quotaHandler := api.NewQuotaHandler(app.ledger, app.logger)
	progressHandler := api.NewProgressHandler(app.progress, app.logger)

	r.Get("/health", healthHandler.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/courses", courseHandler.CreateCourse)
		r.Get("/courses", courseHandler.ListCourses)
		r.Get("/courses/{id}", courseHandler.GetCourse)
		r.Get("/courses/{id}/tree", courseHandler.GetCourseTree)
		r.Post("/courses/{id}/generate", courseHandler.RequestGeneration)

		r.Get("/quota", quotaHandler.GetQuota)

		r.Put("/lessons/{id}/progress", progressHandler.RecordProgress)
	})

	return r
}
