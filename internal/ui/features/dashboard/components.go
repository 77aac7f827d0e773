package dashboard

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
)

//go:generate templ generate -f components.templ

// datastarScript is the datastar client bundle matching datastar-go v1.
const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

// View is what the results fragment renders.
type View struct {
	Batch *state.StoredBatch
	State results.State
}

type summaryItem struct {
	Label string
	Value string
}

func summaryItems(batch *state.StoredBatch, s *prediction.BatchSummary) []summaryItem {
	var items []summaryItem
	if batch != nil {
		items = append(items,
			summaryItem{"Batch", batch.ID[:min(8, len(batch.ID))]},
			summaryItem{"Generated", batch.CreatedAt.Local().Format("2006-01-02 15:04")},
		)
	}
	items = append(items,
		summaryItem{"Total facilities", strconv.Itoa(s.TotalFacilities)},
		summaryItem{"Successful", strconv.Itoa(s.SuccessfulPredictions)},
		summaryItem{"Failed", strconv.Itoa(s.FailedPredictions)},
	)
	if len(s.FailedFacilityIDs) > 0 {
		ids := make([]string, len(s.FailedFacilityIDs))
		for i, id := range s.FailedFacilityIDs {
			ids[i] = strconv.Itoa(id)
		}
		items = append(items, summaryItem{"Failed facilities", strings.Join(ids, ", ")})
	}
	return items
}

// downloadHref is the proxy link for a prediction artifact. The name is a
// single path segment.
func downloadHref(filename string) string {
	return "/download/" + url.PathEscape(filename)
}

// pageSignals is the initial data-signals value for a state.
func pageSignals(st results.State) (string, error) {
	b, err := json.Marshal(signalsFor(st))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func facilitySelected(st results.State, id int) bool {
	current, ok := st.Facility()
	return ok && current == id
}

func groupClick(g prediction.Group) string {
	return fmt.Sprintf("$group = '%s'; @get('/api/results')", g)
}

func pageClick(page int) string {
	return fmt.Sprintf("$page = %d; @get('/api/results')", page)
}

func isMetricColumn(i int) bool {
	return i >= len(prediction.IdentityHeaders)
}

func emptyMessage(st results.State) string {
	if len(st.Records()) == 0 {
		return "No predictions yet. Generate a batch to see results."
	}
	return "No records match the current filters."
}

func showingText(info results.PageInfo) string {
	if info.From == 0 {
		return fmt.Sprintf("Showing 0 of %d records", info.Filtered)
	}
	return fmt.Sprintf("Showing %d-%d of %d records", info.From, info.To, info.Filtered)
}
