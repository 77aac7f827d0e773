package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/testutil"
)

const testBaseURL = "http://predict.test/api"

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	c, err := New(testBaseURL,
		WithHTTPClient(&http.Client{Transport: transport}),
		WithLogger(testutil.NewTestLogger(t)),
	)
	require.NoError(t, err)
	return c, transport
}

func TestNew_ValidatesBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"http", "http://localhost:5000", false},
		{"https with path", "https://example.org/api/", false},
		{"empty", "", true},
		{"blank", "   ", true},
		{"no scheme", "localhost:5000", true},
		{"ftp", "ftp://example.org", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, c.BaseURL())
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := New("https://example.org/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/api", c.BaseURL())
}

func TestListProvinces(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/get-provinces",
		httpmock.NewStringResponder(http.StatusOK, `{"success": true, "data": ["ACEH", "PAPUA"]}`))

	provinces, err := c.ListProvinces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ACEH", "PAPUA"}, provinces)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestTrainModel(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/train-model",
		httpmock.NewStringResponder(http.StatusOK, `{"success": true, "message": "Model trained"}`))

	msg, err := c.TrainModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Model trained", msg)
}

func TestPredictAll(t *testing.T) {
	c, transport := newTestClient(t)
	body := `{
		"success": true,
		"total_facilities": 3,
		"successful_predictions": 2,
		"failed_predictions": 1,
		"failed_facilities": [7],
		"summary_filename": "batch_2024.xlsx",
		"predictions": [
			{"id_faskes": 2, "tahun": 2024, "bulan": 4, "tot_pos": 12.4},
			{"id_faskes": 1, "tahun": 2024, "bulan": 3, "tot_pos": "5"}
		]
	}`
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/predict-all",
		httpmock.NewStringResponder(http.StatusOK, body))

	summary, records, err := c.PredictAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalFacilities)
	assert.Equal(t, 2, summary.SuccessfulPredictions)
	assert.Equal(t, 1, summary.FailedPredictions)
	assert.Equal(t, []int{7}, summary.FailedFacilityIDs)
	assert.Equal(t, "batch_2024.xlsx", summary.SummaryFilename)

	require.Len(t, records, 2)
	// server order is preserved
	assert.Equal(t, 2, records[0].FacilityID)
	assert.InDelta(t, 12.4, records[0].TotalPositive, 1e-9)
	assert.Equal(t, 1, records[1].FacilityID)
	assert.InDelta(t, 5.0, records[1].TotalPositive, 1e-9)
}

func TestPredictAll_EmptyFailedFacilities(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/predict-all",
		httpmock.NewStringResponder(http.StatusOK, `{"success": true, "total_facilities": 0, "predictions": []}`))

	summary, records, err := c.PredictAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, summary.FailedFacilityIDs)
	assert.Empty(t, summary.FailedFacilityIDs)
	assert.False(t, summary.HasArtifact())
	assert.Empty(t, records)
}

func TestPredictAll_ApplicationError(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/predict-all",
		httpmock.NewStringResponder(http.StatusOK, `{"success": false, "message": "Model not trained yet"}`))

	_, _, err := c.PredictAll(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Model not trained yet", err.Error())
	assert.True(t, IsApplication(err))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindApplication, apiErr.Kind)
	assert.Equal(t, http.StatusOK, apiErr.Status)
}

func TestNon2xxResponses(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusBadRequest, `{"error": "facility_id is required"}`, "facility_id is required"},
		{"message field", http.StatusInternalServerError, `{"success": false, "message": "boom"}`, "boom"},
		{"error wins over message", http.StatusBadRequest, `{"error": "bad", "message": "other"}`, "bad"},
		{"no json body", http.StatusBadGateway, `<html>bad gateway</html>`, "Bad Gateway (status 502)"},
		{"empty body", http.StatusNotFound, ``, "Not Found (status 404)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport := newTestClient(t)
			transport.RegisterResponder(http.MethodPost, testBaseURL+"/train-model",
				httpmock.NewStringResponder(tt.status, tt.body))

			_, err := c.TrainModel(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantMsg, err.Error())
			assert.False(t, IsApplication(err))
			assert.Equal(t, tt.status, StatusCode(err))
		})
	}
}

func TestTransportError(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/get-provinces",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.ListProvinces(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, StatusCode(err))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.NotNil(t, apiErr.Unwrap())
}

func TestDecodeError(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/get-provinces",
		httpmock.NewStringResponder(http.StatusOK, `not json`))

	_, err := c.ListProvinces(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response failed")
}

func TestGetFacilities_Query(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponderWithQuery(http.MethodGet, testBaseURL+"/get-facilities",
		map[string]string{"province": "PAPUA", "kabupaten": "MIMIKA"},
		httpmock.NewStringResponder(http.StatusOK, `{
			"success": true,
			"facilities": [{"id_faskes": 11, "nama_faskes": "PKM TIMIKA", "provinsi": "PAPUA", "kabupaten": "MIMIKA"}]
		}`))

	facilities, err := c.GetFacilities(context.Background(), "PAPUA", "MIMIKA")
	require.NoError(t, err)
	require.Len(t, facilities, 1)
	assert.Equal(t, 11, facilities[0].ID)
	assert.Equal(t, "PKM TIMIKA", facilities[0].Name)
}

func TestGetFacilities_OmitsEmptyFilters(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/get-facilities",
		func(req *http.Request) (*http.Response, error) {
			assert.Empty(t, req.URL.RawQuery)
			return httpmock.NewStringResponse(http.StatusOK, `{"success": true, "facilities": []}`), nil
		})

	facilities, err := c.GetFacilities(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, facilities)
}

func TestPredictFacility(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/predict",
		func(req *http.Request) (*http.Response, error) {
			var in map[string]int
			if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
				return nil, err
			}
			assert.Equal(t, 42, in["facility_id"])
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, DefaultUserAgent, req.Header.Get("User-Agent"))
			return httpmock.NewStringResponse(http.StatusOK, `{
				"success": true,
				"facility_id": 42,
				"predictions": [{"id_faskes": 42, "tahun": 2025, "bulan": 1, "tot_pos": 3}],
				"plot_url": "/static/plot_42.png",
				"filename": "prediction_42.xlsx"
			}`), nil
		})

	got, err := c.PredictFacility(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got.FacilityID)
	assert.Equal(t, "/static/plot_42.png", got.PlotURL)
	assert.Equal(t, "prediction_42.xlsx", got.Filename)
	require.Len(t, got.Records, 1)
	assert.Equal(t, "1/2025", got.Records[0].Period())
}

func TestDownloadPrediction(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/download-prediction/batch_2024.xlsx",
		httpmock.NewBytesResponder(http.StatusOK, []byte("PK\x03\x04artifact")))

	var buf bytes.Buffer
	n, err := c.DownloadPrediction(context.Background(), "batch_2024.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Equal(t, "PK\x03\x04artifact", buf.String())
}

func TestDownloadPrediction_Errors(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/download-prediction/missing.xlsx",
		httpmock.NewStringResponder(http.StatusNotFound, `{"error": "File not found"}`))

	var buf bytes.Buffer
	_, err := c.DownloadPrediction(context.Background(), "missing.xlsx", &buf)
	require.Error(t, err)
	assert.Equal(t, "File not found", err.Error())
	assert.Zero(t, buf.Len())

	_, err = c.DownloadPrediction(context.Background(), " ", &buf)
	require.Error(t, err)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestListMasterData(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/master/cities",
		httpmock.NewStringResponder(http.StatusOK, `{"success": true, "data": [{"id": 1, "name": "Jayapura", "parent_id": 94}]}`))

	items, err := c.ListMasterData(context.Background(), MasterCities)
	require.NoError(t, err)
	assert.Equal(t, []MasterItem{{ID: 1, Name: "Jayapura", ParentID: 94}}, items)
}

func TestParseMasterKind(t *testing.T) {
	k, err := ParseMasterKind(" Universities ")
	require.NoError(t, err)
	assert.Equal(t, MasterUniversities, k)

	_, err = ParseMasterKind("hospitals")
	assert.Error(t, err)
}

func TestArticles(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/articles",
		httpmock.NewStringResponder(http.StatusOK, `{"success": true, "data": [
			{"id": 1, "title": "Musim hujan", "slug": "musim-hujan", "content": "<p>hi</p>", "published_at": "2024-11-02T08:00:00Z"}
		]}`))
	transport.RegisterResponder(http.MethodGet, testBaseURL+"/articles/1",
		httpmock.NewStringResponder(http.StatusOK, `{"success": true, "data": {"id": 1, "title": "Musim hujan", "content": "<p>hi</p>"}}`))
	transport.RegisterResponder(http.MethodPost, testBaseURL+"/articles",
		httpmock.NewStringResponder(http.StatusCreated, `{"success": true, "data": {"id": 2, "title": "Baru", "slug": "baru"}}`))
	transport.RegisterResponder(http.MethodDelete, testBaseURL+"/articles/2",
		httpmock.NewStringResponder(http.StatusNoContent, ``))

	ctx := context.Background()

	list, err := c.ListArticles(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].PublishedAt)
	assert.Equal(t, 2024, list[0].PublishedAt.Year())

	one, err := c.GetArticle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", one.Content)

	created, err := c.CreateArticle(ctx, NewArticle{Title: "Baru", Content: "<p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, 2, created.ID)

	require.NoError(t, c.DeleteArticle(ctx, 2))

	_, err = c.CreateArticle(ctx, NewArticle{})
	assert.Error(t, err)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "application", KindApplication.String())
	assert.Equal(t, "ErrorKind(9)", ErrorKind(9).String())
}
