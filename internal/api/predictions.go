package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/oojn4/korika/internal/prediction"
)

type provincesResponse struct {
	Data []string `json:"data"`
}

// ListProvinces returns the provinces known to the prediction service.
func (c *Client) ListProvinces(ctx context.Context) ([]string, error) {
	var resp provincesResponse
	if err := c.doJSON(ctx, "list provinces", http.MethodGet, "/get-provinces", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type messageResponse struct {
	Message string `json:"message"`
}

// TrainModel starts model training and returns the service's message.
func (c *Client) TrainModel(ctx context.Context) (string, error) {
	var resp messageResponse
	if err := c.doJSON(ctx, "train model", http.MethodPost, "/train-model", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

type predictAllResponse struct {
	prediction.BatchSummary
	Predictions []map[string]any `json:"predictions"`
}

// PredictAll runs a batch prediction for every facility. Records are
// returned in server order.
func (c *Client) PredictAll(ctx context.Context) (*prediction.BatchSummary, []prediction.Record, error) {
	var resp predictAllResponse
	if err := c.doJSON(ctx, "predict all", http.MethodPost, "/predict-all", nil, nil, &resp); err != nil {
		return nil, nil, err
	}
	records, err := prediction.DecodeRecords(resp.Predictions)
	if err != nil {
		return nil, nil, &Error{Kind: KindTransport, Op: "predict all", Message: err.Error(), Err: err}
	}
	summary := resp.BatchSummary
	if summary.FailedFacilityIDs == nil {
		summary.FailedFacilityIDs = []int{}
	}
	return &summary, records, nil
}

// DownloadPrediction streams the named prediction artifact to w and returns
// the number of bytes written.
func (c *Client) DownloadPrediction(ctx context.Context, filename string, w io.Writer) (int64, error) {
	const op = "download prediction"
	if strings.TrimSpace(filename) == "" {
		return 0, &Error{Kind: KindTransport, Op: op, Message: "filename is required"}
	}

	res, err := c.send(ctx, op, http.MethodGet, "/download-prediction/"+url.PathEscape(filename), nil, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = res.Body.Close() }()

	n, err := io.Copy(w, res.Body)
	if err != nil {
		return n, &Error{Kind: KindTransport, Op: op, Status: res.StatusCode, Message: fmt.Sprintf("write artifact failed: %v", err), Err: err}
	}
	return n, nil
}

type facilitiesResponse struct {
	Facilities []prediction.Facility `json:"facilities"`
}

// GetFacilities lists facilities, optionally narrowed by province and
// kabupaten. Empty arguments are omitted from the query.
func (c *Client) GetFacilities(ctx context.Context, province, kabupaten string) ([]prediction.Facility, error) {
	query := url.Values{}
	if province != "" {
		query.Set("province", province)
	}
	if kabupaten != "" {
		query.Set("kabupaten", kabupaten)
	}

	var resp facilitiesResponse
	if err := c.doJSON(ctx, "get facilities", http.MethodGet, "/get-facilities", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Facilities, nil
}

type predictRequest struct {
	FacilityID int `json:"facility_id"`
}

type predictResponse struct {
	FacilityID  int              `json:"facility_id"`
	Predictions []map[string]any `json:"predictions"`
	PlotURL     string           `json:"plot_url"`
	Filename    string           `json:"filename"`
}

// PredictFacility runs a prediction for a single facility.
func (c *Client) PredictFacility(ctx context.Context, facilityID int) (*prediction.FacilityPrediction, error) {
	var resp predictResponse
	if err := c.doJSON(ctx, "predict facility", http.MethodPost, "/predict", nil, predictRequest{FacilityID: facilityID}, &resp); err != nil {
		return nil, err
	}
	records, err := prediction.DecodeRecords(resp.Predictions)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Op: "predict facility", Message: err.Error(), Err: err}
	}
	id := resp.FacilityID
	if id == 0 {
		id = facilityID
	}
	return &prediction.FacilityPrediction{
		FacilityID: id,
		Records:    records,
		PlotURL:    resp.PlotURL,
		Filename:   resp.Filename,
	}, nil
}
