package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/api"
	"github.com/oojn4/korika/internal/cli/config"
	"github.com/oojn4/korika/internal/prediction"
)

// Backend is a fake prediction service.
type Backend struct {
	Server *httptest.Server

	mu    sync.Mutex
	calls map[string]int

	Provinces  []string
	Facilities []prediction.Facility
	Summary    prediction.BatchSummary
	Records    []prediction.Record
	Artifacts  map[string][]byte
	Master     map[string][]api.MasterItem
	Articles   []api.Article

	failMessage string
}

// NewBackend starts a fake service seeded with two facilities and the
// records of facility 1 in 3/2024 and facility 2 in 4/2024.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		calls:     make(map[string]int),
		Provinces: []string{"PAPUA", "NUSA TENGGARA TIMUR"},
		Facilities: []prediction.Facility{
			{ID: 1, Name: "PKM WAENA", Province: "PAPUA", Kabupaten: "KOTA JAYAPURA"},
			{ID: 2, Name: "PKM TIMIKA", Province: "PAPUA", Kabupaten: "MIMIKA"},
		},
		Summary: prediction.BatchSummary{
			TotalFacilities:       3,
			SuccessfulPredictions: 2,
			FailedPredictions:     1,
			FailedFacilityIDs:     []int{3},
			SummaryFilename:       "batch_summary.xlsx",
		},
		Records: []prediction.Record{
			{FacilityID: 1, Month: 3, Year: 2024, TotalPositive: 5, Vivax: 2},
			{FacilityID: 2, Month: 4, Year: 2024, TotalPositive: 12, Falciparum: 9.6},
		},
		Artifacts: map[string][]byte{"batch_summary.xlsx": []byte("PK\x03\x04summary")},
		Master: map[string][]api.MasterItem{
			"cities": {{ID: 9471, Name: "KOTA JAYAPURA", ParentID: 94}},
		},
		Articles: []api.Article{
			{ID: 1, Title: "Musim hujan", Slug: "musim-hujan", Content: "<h2>Waspada</h2><p>Gunakan <strong>kelambu</strong>.</p>", Author: "Dinkes"},
		},
	}

	r := chi.NewRouter()
	r.Get("/get-provinces", b.handle("provinces", func() any {
		return map[string]any{"success": true, "data": b.Provinces}
	}))
	r.Get("/get-facilities", func(w http.ResponseWriter, req *http.Request) {
		b.count("facilities")
		province := req.URL.Query().Get("province")
		kabupaten := req.URL.Query().Get("kabupaten")
		var out []prediction.Facility
		for _, f := range b.Facilities {
			if (province == "" || f.Province == province) && (kabupaten == "" || f.Kabupaten == kabupaten) {
				out = append(out, f)
			}
		}
		b.write(w, map[string]any{"success": true, "facilities": out})
	})
	r.Post("/train-model", b.handle("train", func() any {
		return map[string]any{"success": true, "message": "Model trained on 24 months of data"}
	}))
	r.Post("/predict-all", b.handle("predict-all", func() any {
		return map[string]any{
			"success":                true,
			"total_facilities":       b.Summary.TotalFacilities,
			"successful_predictions": b.Summary.SuccessfulPredictions,
			"failed_predictions":     b.Summary.FailedPredictions,
			"failed_facilities":      b.Summary.FailedFacilityIDs,
			"summary_filename":       b.Summary.SummaryFilename,
			"predictions":            b.Records,
		}
	}))
	r.Post("/predict", func(w http.ResponseWriter, req *http.Request) {
		b.count("predict")
		var in struct {
			FacilityID int `json:"facility_id"`
		}
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil || in.FacilityID == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "facility_id is required"})
			return
		}
		var records []prediction.Record
		for _, rec := range b.Records {
			if rec.FacilityID == in.FacilityID {
				records = append(records, rec)
			}
		}
		b.write(w, map[string]any{
			"success":     true,
			"facility_id": in.FacilityID,
			"predictions": records,
			"plot_url":    "/static/plot_" + strconv.Itoa(in.FacilityID) + ".png",
			"filename":    "prediction_" + strconv.Itoa(in.FacilityID) + ".xlsx",
		})
	})
	r.Get("/download-prediction/{filename}", func(w http.ResponseWriter, req *http.Request) {
		b.count("download")
		data, ok := b.Artifacts[chi.URLParam(req, "filename")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": "File not found"})
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(data)
	})
	r.Get("/master/{kind}", func(w http.ResponseWriter, req *http.Request) {
		b.count("master")
		b.write(w, map[string]any{"success": true, "data": b.Master[chi.URLParam(req, "kind")]})
	})
	r.Get("/articles", b.handle("articles", func() any {
		return map[string]any{"success": true, "data": b.Articles}
	}))
	r.Post("/articles", func(w http.ResponseWriter, req *http.Request) {
		b.count("create-article")
		var in api.NewArticle
		_ = json.NewDecoder(req.Body).Decode(&in)
		b.mu.Lock()
		a := api.Article{ID: len(b.Articles) + 1, Title: in.Title, Content: in.Content, Author: in.Author}
		b.Articles = append(b.Articles, a)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		b.write(w, map[string]any{"success": true, "data": a})
	})
	r.Get("/articles/{id}", func(w http.ResponseWriter, req *http.Request) {
		b.count("article")
		id, _ := strconv.Atoi(chi.URLParam(req, "id"))
		for _, a := range b.Articles {
			if a.ID == id {
				b.write(w, map[string]any{"success": true, "data": a})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "Article not found"})
	})
	r.Delete("/articles/{id}", func(w http.ResponseWriter, _ *http.Request) {
		b.count("delete-article")
		w.WriteHeader(http.StatusNoContent)
	})

	b.Server = httptest.NewServer(r)
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the fake service base URL.
func (b *Backend) URL() string {
	return b.Server.URL
}

// Calls returns how often the named endpoint was hit.
func (b *Backend) Calls(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *Backend) count(name string) {
	b.mu.Lock()
	b.calls[name]++
	b.mu.Unlock()
}

func (b *Backend) handle(name string, body func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		b.count(name)
		b.write(w, body())
	}
}

// Fail makes every JSON endpoint answer success=false with msg.
func (b *Backend) Fail(msg string) {
	b.mu.Lock()
	b.failMessage = msg
	b.mu.Unlock()
}

func (b *Backend) write(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	b.mu.Lock()
	fail := b.failMessage
	b.mu.Unlock()
	if fail != "" {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": fail})
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// SetupConfig loads a configuration pointing at baseURL with the state
// database in a temp dir, and returns the state path. The loaded config is
// reset when the test ends.
func SetupConfig(t *testing.T, baseURL string, env ...string) string {
	t.Helper()

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	statePath := filepath.Join(dir, "state.db")
	t.Setenv("KORIKA_API__BASE_URL", baseURL)
	t.Setenv("KORIKA_STATE_PATH", statePath)
	for i := 0; i+1 < len(env); i += 2 {
		t.Setenv(env[i], env[i+1])
	}

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	_, err = config.LoadConfig("", nil)
	require.NoError(t, err)
	return statePath
}
