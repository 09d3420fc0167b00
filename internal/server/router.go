package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inlet-labs/inlet/internal/api"
	"github.com/inlet-labs/inlet/internal/api/handlers"
	"github.com/inlet-labs/inlet/internal/api/middleware"
)

type RouterConfig struct {
	ConsoleToken   string
	CaptureHandler *handlers.CaptureHandler
	ItemHandler    *handlers.ItemHandler
	ConsoleHandler *handlers.ConsoleHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/capture", cfg.CaptureHandler.Create)
		r.Get("/items/{id}", cfg.ItemHandler.Get)
	})

	r.Route("/internal/console", func(r chi.Router) {
		r.Use(middleware.ConsoleToken(cfg.ConsoleToken))

		r.Get("/health", cfg.ConsoleHandler.Health)
		r.Get("/metrics", cfg.ConsoleHandler.Metrics)
		r.Get("/items", cfg.ConsoleHandler.ListItems)
		r.Post("/items/{id}/retry", cfg.ConsoleHandler.RetryItem)
		r.Patch("/items/{id}", cfg.ConsoleHandler.PatchItem)
	})

	return r
}
