package testutil

import (
	"github.com/oojn4/korika/internal/prediction"
)

// Record builds a record with the identity fields and primary count set.
func Record(facilityID, month, year int, totalPositive float64) prediction.Record {
	return prediction.Record{
		FacilityID:    facilityID,
		Month:         month,
		Year:          year,
		TotalPositive: totalPositive,
	}
}

// PairRecords returns the two-facility batch used throughout the view tests:
// facility 1 in 3/2024 with 5 cases and facility 2 in 4/2024 with 12.
func PairRecords() []prediction.Record {
	return []prediction.Record{
		Record(1, 3, 2024, 5),
		Record(2, 4, 2024, 12),
	}
}

// Records returns n records cycling over facilities 1..facilities, one per
// month starting at 1/2024. Counts are 100+i so none collide with ids or
// periods in substring searches.
func Records(n, facilities int) []prediction.Record {
	if facilities < 1 {
		facilities = 1
	}
	out := make([]prediction.Record, n)
	for i := range out {
		out[i] = Record(i%facilities+1, i%12+1, 2024+i/12, float64(100+i))
	}
	return out
}

// Summary returns a batch summary consistent with records.
func Summary(records []prediction.Record, failed ...int) *prediction.BatchSummary {
	seen := make(map[int]bool)
	for _, r := range records {
		seen[r.FacilityID] = true
	}
	if failed == nil {
		failed = []int{}
	}
	return &prediction.BatchSummary{
		TotalFacilities:       len(seen) + len(failed),
		SuccessfulPredictions: len(seen),
		FailedPredictions:     len(failed),
		FailedFacilityIDs:     failed,
		SummaryFilename:       "batch_summary.xlsx",
	}
}
