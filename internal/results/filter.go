// Package results projects a fetched batch of prediction records into a
// searchable, filterable, paginated view shared by every front end.
//
// All functions are pure: they never mutate their inputs, never return an
// error and accept any input consistent with the data model (empty slices,
// unknown facility ids, empty queries).
package results

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oojn4/korika/internal/prediction"
)

// PageSizes are the page sizes a view may use.
var PageSizes = []int{5, 10, 20, 50, 100}

// DefaultPageSize is used until a page size is chosen.
const DefaultPageSize = 10

// ValidPageSize reports whether size is one of PageSizes.
func ValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Filter returns the records matching the facility filter and search
// query, in their original relative order.
//
// A nil facility keeps every facility. A non-empty query keeps records
// where the lowercased query is a substring of the facility id, the
// "{month}/{year}" period or the total positive count.
func Filter(records []prediction.Record, query string, facility *int) []prediction.Record {
	q := strings.ToLower(query)
	out := make([]prediction.Record, 0, len(records))
	for _, r := range records {
		if facility != nil && r.FacilityID != *facility {
			continue
		}
		if q != "" && !matches(r, q) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matches(r prediction.Record, q string) bool {
	return strings.Contains(strconv.Itoa(r.FacilityID), q) ||
		strings.Contains(r.Period(), q) ||
		strings.Contains(strconv.FormatFloat(r.TotalPositive, 'f', -1, 64), q)
}

// TotalPages returns ceil(n/size), never less than 1. A non-positive size
// yields a single page.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// PageSlice returns the records on the 1-indexed page. Pages past the end,
// or below 1, yield an empty slice.
func PageSlice(records []prediction.Record, page, size int) []prediction.Record {
	if page < 1 || size <= 0 {
		return []prediction.Record{}
	}
	start := (page - 1) * size
	if start >= len(records) {
		return []prediction.Record{}
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// FacilityOption is a selectable facility filter value.
type FacilityOption struct {
	ID    int
	Label string
}

// FacilityOptions returns one option per distinct facility id, in the order
// each id first appears.
func FacilityOptions(records []prediction.Record) []FacilityOption {
	seen := make(map[int]struct{})
	var opts []FacilityOption
	for _, r := range records {
		if _, ok := seen[r.FacilityID]; ok {
			continue
		}
		seen[r.FacilityID] = struct{}{}
		opts = append(opts, FacilityOption{
			ID:    r.FacilityID,
			Label: fmt.Sprintf("Facility %d", r.FacilityID),
		})
	}
	return opts
}

// ParseFacility parses a facility filter value as typed by a user. Empty
// strings and "all" clear the filter.
func ParseFacility(s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}
	id, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(s), "facility "))
	if err != nil {
		return nil, fmt.Errorf("invalid facility id %q", s)
	}
	return &id, nil
}
