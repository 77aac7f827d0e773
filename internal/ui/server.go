// Package ui provides the local web dashboard for batch prediction results.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/oojn4/korika/internal/state"
	"github.com/oojn4/korika/internal/ui/features/dashboard"
	"github.com/oojn4/korika/internal/ui/notifier"
	"github.com/oojn4/korika/internal/ui/router"
)

// watchDebounce coalesces the burst of writes SQLite makes per commit.
const watchDebounce = 250 * time.Millisecond

// Server is the dashboard server.
type Server struct {
	service      dashboard.BatchService
	store        state.Store
	statePath    string
	sessionStore *sessions.CookieStore
	port         int
	watch        bool
	defaults     dashboard.ViewState
	logger       *slog.Logger
	notifier     *notifier.Notifier
}

// Config holds configuration for the dashboard server.
type Config struct {
	Service       dashboard.BatchService
	Store         state.Store
	StatePath     string
	Port          int
	Watch         bool
	SessionSecret string
	Defaults      dashboard.ViewState
	Logger        *slog.Logger
}

// NewServer creates a new dashboard server.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Server{
		service:      cfg.Service,
		store:        cfg.Store,
		statePath:    cfg.StatePath,
		sessionStore: sessionStore,
		port:         cfg.Port,
		watch:        cfg.Watch,
		defaults:     cfg.Defaults,
		logger:       logger,
		notifier:     notifier.New(),
	}
}

// Handler builds the HTTP handler with middleware and every route.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err := router.SetupRoutes(r, router.Deps{
		Service:      s.service,
		Store:        s.store,
		SessionStore: s.sessionStore,
		Notifier:     s.notifier,
		Defaults:     s.defaults,
		Logger:       s.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the dashboard and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting dashboard", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watch && s.statePath != "" {
		eg.Go(func() error {
			return s.watchState(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down dashboard...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// isStateFile reports whether name is the state database or one of its
// journal files.
func isStateFile(name, statePath string) bool {
	base := filepath.Base(statePath)
	n := filepath.Base(name)
	return n == base || strings.HasPrefix(n, base+"-")
}

// watchState broadcasts a refresh when another process writes the state
// database, such as a 'korika predict-all' run in another terminal.
func (s *Server) watchState(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// The directory is watched rather than the file: SQLite replaces the
	// journal files and fsnotify loses track of removed paths.
	dir := filepath.Dir(s.statePath)
	if err := watcher.Add(dir); err != nil {
		s.logger.Error("failed to watch state directory", "dir", dir, "error", err)
		<-ctx.Done()
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !isStateFile(event.Name, s.statePath) {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				s.logger.Debug("state database changed", "file", event.Name)
				s.notifier.Broadcast(notifier.Event{Source: notifier.SourceStateFile})
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}
