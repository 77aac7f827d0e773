package dashboard

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/testutil"
)

func renderFragment(t *testing.T, st results.State) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, ResultsFragment(View{State: st}).Render(context.Background(), &buf))
	return buf.String()
}

func TestResultsFragment_DownloadLink(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantHref string
	}{
		{name: "plain name", filename: "batch_summary.xlsx", wantHref: `href="/download/batch_summary.xlsx"`},
		{name: "reserved characters", filename: "maret #1?.xlsx", wantHref: `href="/download/maret%20%231%3F.xlsx"`},
		{name: "slash stays in one segment", filename: "2024/maret.xlsx", wantHref: `href="/download/2024%2Fmaret.xlsx"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := testutil.PairRecords()
			summary := testutil.Summary(records)
			summary.SummaryFilename = tt.filename

			body := renderFragment(t, results.New(results.WithBatch(summary, records)))
			assert.Contains(t, body, tt.wantHref)
			assert.Contains(t, body, "Download "+tt.filename)
		})
	}
}

func TestResultsFragment_Structure(t *testing.T) {
	records := testutil.Records(25, 5)
	st := results.New(results.WithBatch(testutil.Summary(records), records))
	st = results.Reduce(st, results.FacilityChanged{ID: intPtr(2)})

	body := renderFragment(t, st)
	assert.Contains(t, body, `<section id="results">`)
	assert.Contains(t, body, `<option value="2" selected>Facility 2</option>`)
	assert.Contains(t, body, `<option value="10" selected>10</option>`)
	assert.Contains(t, body, `class="tab active" aria-selected="true"`)
	assert.Contains(t, body, "Showing 1-5 of 5 records")
	assert.Contains(t, body, "Page 1 of 1")
	assert.Contains(t, body, `<button id="prev" data-on:click="$page = 0; @get(&#39;/api/results&#39;)" disabled>`)
	assert.Contains(t, body, `<th class="num">`)
}

func TestResultsFragment_Empty(t *testing.T) {
	body := renderFragment(t, results.New())
	assert.Contains(t, body, "No predictions yet. Generate a batch to see results.")
	assert.NotContains(t, body, "<table")
	assert.NotContains(t, body, "Download")

	loading := results.Reduce(results.New(), results.FetchStarted{})
	body = renderFragment(t, loading)
	assert.Contains(t, body, "Generating predictions&hellip;")
	assert.NotContains(t, body, "No predictions yet")

	failed := results.Reduce(loading, results.FetchFailed{Err: errors.New("model & data missing")})
	body = renderFragment(t, failed)
	assert.Contains(t, body, `<div class="error" role="alert">model &amp; data missing</div>`)
}

func intPtr(i int) *int { return &i }
