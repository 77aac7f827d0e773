package dashboard

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the dashboard feature.
func SetupRoutes(router chi.Router, handlers *Handlers) error {
	router.Get("/", handlers.ResultsPage)
	router.Get("/download/{filename}", handlers.Download)

	router.Route("/api", func(r chi.Router) {
		r.Get("/results", handlers.ResultsSSE)
		r.Post("/batch", handlers.GenerateSSE)
		r.Get("/updates", handlers.Updates)
	})

	return nil
}
