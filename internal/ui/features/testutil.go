// Package features provides shared test utilities for UI feature tests.
package features

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/api"
	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/state"
	"github.com/oojn4/korika/internal/testutil"
	"github.com/oojn4/korika/internal/ui/notifier"
)

// FakeService is an in-process prediction service. PredictAll returns
// Summary and Records, or Err when set. Artifacts maps downloadable file
// names to their content.
type FakeService struct {
	mu        sync.Mutex
	Summary   *prediction.BatchSummary
	Records   []prediction.Record
	Err       error
	Artifacts map[string]string
	calls     int
}

// PredictAll implements the dashboard's batch service.
func (f *FakeService) PredictAll(_ context.Context) (*prediction.BatchSummary, []prediction.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Err != nil {
		return nil, nil, f.Err
	}
	summary := *f.Summary
	return &summary, f.Records, nil
}

// DownloadPrediction implements the dashboard's batch service.
func (f *FakeService) DownloadPrediction(_ context.Context, filename string, w io.Writer) (int64, error) {
	f.mu.Lock()
	content, ok := f.Artifacts[filename]
	err := f.Err
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &api.Error{Kind: api.KindTransport, Op: "download", Status: http.StatusNotFound, Message: "file not found"}
	}
	n, err := io.Copy(w, strings.NewReader(content))
	return n, err
}

// Calls returns how many batch predictions ran.
func (f *FakeService) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestFixture holds all dependencies needed for UI handler tests.
type TestFixture struct {
	Service      *FakeService
	Store        *state.SQLiteStore
	Notifier     *notifier.Notifier
	SessionStore *sessions.CookieStore
}

// SetupTestFixture creates an in-memory batch history and a fake service
// that predicts the two-facility pair batch.
func SetupTestFixture(t *testing.T) *TestFixture {
	t.Helper()

	logger := testutil.NewTestLogger(t)
	store, err := state.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	records := testutil.PairRecords()
	return &TestFixture{
		Service: &FakeService{
			Summary:   testutil.Summary(records, 3),
			Records:   records,
			Artifacts: map[string]string{"batch_summary.xlsx": "xlsx-bytes"},
		},
		Store:        store,
		Notifier:     notifier.New(),
		SessionStore: NewTestSessionStore(),
	}
}

// SaveBatch stores a batch in the fixture's history.
func (f *TestFixture) SaveBatch(t *testing.T, records []prediction.Record) *state.StoredBatch {
	t.Helper()
	batch, err := f.Store.SaveBatch(context.Background(), *testutil.Summary(records), records)
	require.NoError(t, err)
	return batch
}

// RequestWithPathParam wraps a request with chi URL params.
func RequestWithPathParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// NewTestSessionStore creates a session store for testing.
func NewTestSessionStore() *sessions.CookieStore {
	return sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!"))
}
