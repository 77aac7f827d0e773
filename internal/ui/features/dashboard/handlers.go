// Package dashboard provides the batch prediction results page of the web
// dashboard.
package dashboard

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/oojn4/korika/internal/api"
	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
	"github.com/oojn4/korika/internal/ui/notifier"
)

const (
	pageTitle   = "Batch Prediction Results"
	sessionName = "korika"
	viewIDKey   = "view"
)

// BatchService is the part of the prediction service the dashboard uses.
type BatchService interface {
	PredictAll(ctx context.Context) (*prediction.BatchSummary, []prediction.Record, error)
	DownloadPrediction(ctx context.Context, filename string, w io.Writer) (int64, error)
}

var _ BatchService = (*api.Client)(nil)

// Handlers provides HTTP handlers for the dashboard.
type Handlers struct {
	service      BatchService
	store        state.Store
	sessionStore sessions.Store
	notifier     *notifier.Notifier
	views        *viewStore
	logger       *slog.Logger
}

// NewHandlers creates a new Handlers instance. defaults seeds the view of
// browsers seen for the first time.
func NewHandlers(service BatchService, store state.Store, sessionStore sessions.Store, notify *notifier.Notifier, defaults ViewState, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		service:      service,
		store:        store,
		sessionStore: sessionStore,
		notifier:     notify,
		views:        newViewStore(defaults),
		logger:       logger,
	}
}

// viewID returns the browser's view id, creating it and setting the
// session cookie on first sight. It must run before an SSE stream starts
// writing.
func (h *Handlers) viewID(w http.ResponseWriter, r *http.Request) string {
	// A cookie that fails to decode yields a fresh session.
	session, _ := h.sessionStore.Get(r, sessionName)
	if id, ok := session.Values[viewIDKey].(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Values[viewIDKey] = id
	if err := session.Save(r, w); err != nil {
		h.logger.Warn("failed to save session", "error", err)
	}
	return id
}

// currentView loads the latest batch and rebuilds the browser's view of it.
func (h *Handlers) currentView(ctx context.Context, id string) (View, error) {
	batch, err := h.store.LatestBatch(ctx)
	if err != nil {
		return View{}, err
	}
	return View{Batch: batch, State: project(batch, h.views.get(id))}, nil
}

// ResultsPage renders the dashboard for the latest stored batch.
func (h *Handlers) ResultsPage(w http.ResponseWriter, r *http.Request) {
	id := h.viewID(w, r)

	v, err := h.currentView(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.views.set(id, capture(v.Batch, v.State))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ResultsPage(pageTitle, v).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ResultsSSE applies changed search, facility, page, page size and group
// signals and patches the results fragment.
func (h *Handlers) ResultsSSE(w http.ResponseWriter, r *http.Request) {
	id := h.viewID(w, r)

	var signals Signals
	readErr := datastar.ReadSignals(r, &signals)

	sse := datastar.NewSSE(w, r)
	if readErr != nil {
		_ = sse.ConsoleError(readErr)
		return
	}

	v, err := h.currentView(r.Context(), id)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	st, err := applySignals(v.State, signals)
	if err != nil {
		_ = sse.ConsoleError(err)
	}
	v.State = st
	h.views.set(id, capture(v.Batch, st))

	h.send(sse, v)
}

// GenerateSSE runs a batch prediction, stores it and patches the results.
// Search, facility filter, page size and column group carry over to the
// new batch; the page starts again from 1.
func (h *Handlers) GenerateSSE(w http.ResponseWriter, r *http.Request) {
	id := h.viewID(w, r)
	sse := datastar.NewSSE(w, r)
	ctx := r.Context()

	v, err := h.currentView(ctx, id)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}

	v.State = results.Reduce(v.State, results.FetchStarted{})
	h.send(sse, v)

	summary, records, err := h.service.PredictAll(ctx)
	if err == nil {
		var stored *state.StoredBatch
		stored, err = h.store.SaveBatch(ctx, *summary, records)
		if err == nil {
			v.Batch = stored
		}
	}
	if err != nil {
		h.logger.Warn("batch prediction failed", "error", err)
		v.State = results.Reduce(v.State, results.FetchFailed{Err: err})
		h.send(sse, v)
		return
	}

	v.State = results.Reduce(v.State, results.FetchSucceeded{Summary: summary, Records: records})
	h.views.set(id, capture(v.Batch, v.State))
	h.send(sse, v)

	h.notifier.Broadcast(notifier.Event{BatchID: v.Batch.ID, Source: notifier.SourceDashboard})
}

// Updates is the long-lived SSE endpoint of the dashboard page. It re-renders
// the results whenever a new batch is announced.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	id := h.viewID(w, r)
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			h.logger.Debug("refreshing dashboard", "batch", ev.BatchID, "source", ev.Source)

			v, err := h.currentView(ctx, id)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			h.views.set(id, capture(v.Batch, v.State))
			h.send(sse, v)
		}
	}
}

func (h *Handlers) send(sse *datastar.ServerSentEventGenerator, v View) {
	if err := sse.PatchElementTempl(ResultsFragment(v)); err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	if err := sse.MarshalAndPatchSignals(signalsFor(v.State)); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// Download streams a prediction artifact from the prediction service.
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	name := path.Base(chi.URLParam(r, "filename"))
	if name == "" || name == "." || name == "/" {
		http.Error(w, "filename is required", http.StatusBadRequest)
		return
	}

	// Headers are committed on the first artifact byte so a failed request
	// can still answer with an error status.
	dw := &deferredWriter{w: w, name: name}
	if _, err := h.service.DownloadPrediction(r.Context(), name, dw); err != nil {
		if dw.started {
			h.logger.Warn("download interrupted", "file", name, "error", err)
			return
		}
		status := http.StatusBadGateway
		if code := api.StatusCode(err); code == http.StatusNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	if !dw.started {
		dw.start()
	}
}

// deferredWriter sets the attachment headers on the first write.
type deferredWriter struct {
	w       http.ResponseWriter
	name    string
	started bool
}

func (d *deferredWriter) start() {
	d.started = true
	d.w.Header().Set("Content-Type", "application/octet-stream")
	d.w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": d.name}))
	d.w.WriteHeader(http.StatusOK)
}

func (d *deferredWriter) Write(p []byte) (int, error) {
	if !d.started {
		d.start()
	}
	return d.w.Write(p)
}
