package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oojn4/korika/internal/cli/config"
	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
)

// resultsView is the JSON shape of a rendered results page.
type resultsView struct {
	BatchID   string                   `json:"batch_id,omitempty"`
	CreatedAt *time.Time               `json:"created_at,omitempty"`
	Summary   *prediction.BatchSummary `json:"summary"`
	Query     string                   `json:"query,omitempty"`
	Facility  *int                     `json:"facility,omitempty"`
	Group     prediction.Group         `json:"group"`
	Page      pageView                 `json:"page"`
	Records   []prediction.Record      `json:"records"`
}

type pageView struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	PageSize   int `json:"page_size"`
	Filtered   int `json:"filtered"`
	Total      int `json:"total"`
}

// initialState builds an empty results state from the configured view
// defaults.
func initialState(cfg *config.Config) results.State {
	opts := []results.Option{results.WithPageSize(cfg.Results.PageSize)}
	if g, err := prediction.ParseGroup(cfg.Results.Group); err == nil {
		opts = append(opts, results.WithGroup(g))
	}
	return results.New(opts...)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatIDs(ids []int) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

// renderBatchSummary prints the totals of a batch run. batch is nil for
// batches that were not stored.
func renderBatchSummary(r *output.Renderer, batch *state.StoredBatch, s *prediction.BatchSummary) {
	title := "Batch prediction"
	if batch != nil {
		title = "Batch " + shortID(batch.ID)
	}
	r.Header(1, title)
	if batch != nil {
		r.KeyValue("Created", batch.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if s == nil {
		r.Println("")
		return
	}
	r.KeyValue("Total facilities", strconv.Itoa(s.TotalFacilities))
	r.KeyValue("Successful predictions", strconv.Itoa(s.SuccessfulPredictions))
	r.KeyValue("Failed predictions", strconv.Itoa(s.FailedPredictions))
	r.KeyValue("Failed facilities", formatIDs(s.FailedFacilityIDs))
	if s.HasArtifact() {
		r.KeyValue("Summary file", fmt.Sprintf("%s (korika download %s)", s.SummaryFilename, s.SummaryFilename))
	}
	r.Println("")
}

// formatPageInfo returns the status line under a results table.
func formatPageInfo(info results.PageInfo) string {
	var line string
	if info.From == 0 {
		line = fmt.Sprintf("Showing 0 of %d records", info.Filtered)
	} else {
		line = fmt.Sprintf("Showing %d-%d of %d records", info.From, info.To, info.Filtered)
	}
	if info.Filtered != info.Total {
		line += fmt.Sprintf(" (filtered from %d)", info.Total)
	}
	return line + fmt.Sprintf(" · page %d of %d · %d per page", info.Page, info.TotalPages, info.PageSize)
}

// renderResults prints one page of a results state: summary, one table per
// requested column group and the pagination line. CSV output carries the
// tables only.
func renderResults(r *output.Renderer, batch *state.StoredBatch, st results.State, allGroups bool) error {
	mode := r.EffectiveMode()

	if mode == output.ModeJSON {
		info := st.PageInfo()
		view := resultsView{
			Summary: st.Summary(),
			Query:   st.Query(),
			Group:   st.Group(),
			Page: pageView{
				Page:       info.Page,
				TotalPages: info.TotalPages,
				PageSize:   info.PageSize,
				Filtered:   info.Filtered,
				Total:      info.Total,
			},
			Records: st.PageRecords(),
		}
		if batch != nil {
			view.BatchID = batch.ID
			created := batch.CreatedAt
			view.CreatedAt = &created
		}
		if id, ok := st.Facility(); ok {
			view.Facility = &id
		}
		return r.JSON(view)
	}

	if mode != output.ModeCSV {
		renderBatchSummary(r, batch, st.Summary())
	}

	tables := []results.Table{st.Table()}
	if allGroups {
		tables = st.Tables()
	}

	for _, t := range tables {
		if mode != output.ModeCSV {
			r.Header(2, t.Group.Title())
		}
		if len(t.Rows) == 0 && mode != output.ModeCSV {
			if len(st.Records()) == 0 {
				r.Muted("No predictions in this batch.")
			} else {
				r.Muted("No records match the current filters.")
			}
			r.Println("")
			continue
		}
		if err := r.Table(t.Headers, t.Rows, output.AlignRightFrom(len(prediction.IdentityHeaders))); err != nil {
			return err
		}
	}

	if mode != output.ModeCSV {
		r.Muted(formatPageInfo(st.PageInfo()))
	}
	return nil
}
