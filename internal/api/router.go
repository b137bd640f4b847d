package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/chihung1024/sheet-trading-journal-sub000/internal/api/handlers"
	custommiddleware "github.com/chihung1024/sheet-trading-journal-sub000/internal/api/middleware"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/config"
	"github.com/chihung1024/sheet-trading-journal-sub000/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(systemService *service.SystemService, portfolioService *service.PortfolioService, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
			r.Get("/snapshot", portfolioHandler.Snapshot)

			// Mutating endpoints require the shared API key.
			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.APIKey(cfg.APIKey))
				r.Post("/calculate", portfolioHandler.Calculate)
				r.Post("/refresh", portfolioHandler.Refresh)
			})
		})
	})

	return r
}
