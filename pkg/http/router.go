package http

import (
	"net/http"

	"urlstore/pkg/logging"
	"urlstore/pkg/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func newBaseRouter(logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CorrelationID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS)
	r.Use(chimw.GetHead)
	return r
}

// NewRouter serves the full API, admin routes included.
func NewRouter(handler *Handler, logger *logging.Logger) http.Handler {
	r := newBaseRouter(logger)

	r.Get("/", handler.Index)
	r.Get("/health", handler.HealthCheck)
	r.Get("/stats", handler.Stats)
	r.Post("/create", handler.CreateLink)

	r.Group(func(r chi.Router) {
		r.With(middleware.RequireSecret(handler.linkService, "list")).Get("/list/keys", handler.ListKeys)
		r.With(middleware.RequireSecret(handler.linkService, "view")).Get("/view/{key}", handler.ViewDetail)
		r.With(middleware.RequireSecret(handler.linkService, "delete")).Delete("/{key}", handler.DeleteLink)
	})

	r.Get("/{key}", handler.Redirect)
	return r
}

// NewRedirectRouter serves only the public read paths.
func NewRedirectRouter(handler *Handler, logger *logging.Logger) http.Handler {
	r := newBaseRouter(logger)

	r.Get("/", handler.Index)
	r.Get("/health", handler.HealthCheck)
	r.Get("/stats", handler.Stats)
	r.Get("/{key}", handler.Redirect)
	return r
}
