// Package router sets up HTTP routes for the dashboard server.
package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"

	"github.com/oojn4/korika/internal/state"
	dashboardFeature "github.com/oojn4/korika/internal/ui/features/dashboard"
	"github.com/oojn4/korika/internal/ui/notifier"
	"github.com/oojn4/korika/internal/ui/resources"
)

// Deps are the dependencies shared by every feature.
type Deps struct {
	Service      dashboardFeature.BatchService
	Store        state.Store
	SessionStore sessions.Store
	Notifier     *notifier.Notifier
	Defaults     dashboardFeature.ViewState
	Logger       *slog.Logger
}

// SetupRoutes configures all routes for the dashboard server.
func SetupRoutes(router chi.Router, deps Deps) error {
	router.Handle("/static/*", resources.Handler())

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	handlers := dashboardFeature.NewHandlers(
		deps.Service,
		deps.Store,
		deps.SessionStore,
		deps.Notifier,
		deps.Defaults,
		deps.Logger,
	)
	return dashboardFeature.SetupRoutes(router, handlers)
}
