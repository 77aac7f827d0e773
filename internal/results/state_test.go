package results

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/prediction"
)

func scenarioRecords() []prediction.Record {
	return []prediction.Record{
		{FacilityID: 1, Month: 3, Year: 2024, TotalPositive: 5},
		{FacilityID: 2, Month: 4, Year: 2024, TotalPositive: 12},
	}
}

// makeRecords builds n records cycling over the given facility ids.
func makeRecords(n int, facilities ...int) []prediction.Record {
	if len(facilities) == 0 {
		facilities = []int{1}
	}
	out := make([]prediction.Record, n)
	for i := range out {
		out[i] = prediction.Record{
			FacilityID:    facilities[i%len(facilities)],
			Year:          2020 + i/12,
			Month:         i%12 + 1,
			TotalPositive: float64(i * 3),
		}
	}
	return out
}

func intPtr(i int) *int { return &i }

func loaded(records []prediction.Record) State {
	return Reduce(New(), FetchSucceeded{Summary: &prediction.BatchSummary{}, Records: records})
}

func TestScenario_SearchMatchesPositiveCount(t *testing.T) {
	s := Reduce(loaded(scenarioRecords()), SearchChanged{Query: "12"})

	require.Len(t, s.Filtered(), 1)
	assert.Equal(t, 2, s.Filtered()[0].FacilityID)
}

func TestScenario_Pagination(t *testing.T) {
	s := loaded(makeRecords(12))
	s = Reduce(s, PageSizeChanged{Size: 5})

	assert.Equal(t, 3, s.TotalPages())

	s = Reduce(s, PageChanged{Page: 3})
	assert.Len(t, s.PageRecords(), 2)
}

func TestScenario_FacilityFilterKeepsOptions(t *testing.T) {
	id, err := ParseFacility("2")
	require.NoError(t, err)

	s := Reduce(loaded(scenarioRecords()), FacilityChanged{ID: id})

	require.Len(t, s.Filtered(), 1)
	assert.Equal(t, 2, s.Filtered()[0].FacilityID)

	opts := s.FacilityOptions()
	require.Len(t, opts, 2)
	assert.Equal(t, "Facility 1", opts[0].Label)
	assert.Equal(t, "Facility 2", opts[1].Label)
}

func TestFilter_IdentityWithoutQueryOrFacility(t *testing.T) {
	records := makeRecords(25, 1, 2, 3)
	assert.Equal(t, records, Filter(records, "", nil))
}

func TestFilter_IsOrderedSubsequence(t *testing.T) {
	records := makeRecords(60, 4, 7, 11, 7)

	queries := []string{"", "1", "7", "/2021", "3/", "99", "11"}
	facilities := []*int{nil, intPtr(7), intPtr(11), intPtr(42)}

	for _, q := range queries {
		for _, f := range facilities {
			name := fmt.Sprintf("q=%q facility=%v", q, f)
			got := Filter(records, q, f)
			assert.True(t, isSubsequence(got, records), "%s: not an ordered subsequence", name)
		}
	}
}

func isSubsequence(sub, full []prediction.Record) bool {
	j := 0
	for i := 0; i < len(full) && j < len(sub); i++ {
		if full[i] == sub[j] {
			j++
		}
	}
	return j == len(sub)
}

func TestFilter_SearchFields(t *testing.T) {
	records := []prediction.Record{
		{FacilityID: 101, Month: 1, Year: 2023, TotalPositive: 0},
		{FacilityID: 5, Month: 11, Year: 2024, TotalPositive: 8},
		{FacilityID: 6, Month: 2, Year: 2022, TotalPositive: 2.5},
	}

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"facility id substring", "10", []int{101}},
		{"period", "11/2024", []int{5}},
		{"period prefix", "2/", []int{6}},
		{"year suffix", "2023", []int{101}},
		{"fractional positive count", "2.5", []int{6}},
		{"no match", "xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, r := range Filter(records, tt.query, nil) {
				got = append(got, r.FacilityID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_CombinesFacilityAndQuery(t *testing.T) {
	records := []prediction.Record{
		{FacilityID: 1, Month: 1, Year: 2024, TotalPositive: 3},
		{FacilityID: 2, Month: 1, Year: 2024, TotalPositive: 3},
		{FacilityID: 1, Month: 2, Year: 2024, TotalPositive: 9},
	}

	got := Filter(records, "1/2024", intPtr(1))
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Month)
}

func TestFilter_UnknownFacilityIsEmpty(t *testing.T) {
	assert.Empty(t, Filter(scenarioRecords(), "", intPtr(99)))
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		n, size, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{12, 5, 3},
		{100, 100, 1},
		{101, 100, 2},
		{5, 0, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.size), func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.n, tt.size))
		})
	}
}

func TestTotalPages_MatchesCeilingForEveryPageSize(t *testing.T) {
	for _, size := range PageSizes {
		for n := 0; n <= 230; n++ {
			want := (n + size - 1) / size
			if want < 1 {
				want = 1
			}
			require.Equal(t, want, TotalPages(n, size), "n=%d size=%d", n, size)
		}
	}
}

func TestPageSlice(t *testing.T) {
	records := makeRecords(12)

	tests := []struct {
		name       string
		page, size int
		wantLen    int
		wantFirst  int
	}{
		{"first page", 1, 5, 5, 0},
		{"middle page", 2, 5, 5, 5},
		{"short last page", 3, 5, 2, 10},
		{"past the end", 4, 5, 0, -1},
		{"far past the end", 99, 100, 0, -1},
		{"page zero", 0, 5, 0, -1},
		{"negative page", -1, 5, 0, -1},
		{"whole set", 1, 100, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PageSlice(records, tt.page, tt.size)
			require.Len(t, got, tt.wantLen)
			if tt.wantFirst >= 0 {
				assert.Equal(t, records[tt.wantFirst], got[0])
			}
		})
	}
}

func TestFacilityOptions_FirstSeenOrderAndDistinct(t *testing.T) {
	records := makeRecords(20, 9, 3, 9, 5, 3)

	opts := FacilityOptions(records)
	ids := make([]int, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
		assert.Equal(t, fmt.Sprintf("Facility %d", o.ID), o.Label)
	}
	assert.Equal(t, []int{9, 3, 5}, ids)
}

func TestFacilityOptions_Empty(t *testing.T) {
	assert.Empty(t, FacilityOptions(nil))
}

func TestReduce_QueryAndFilterResetPage(t *testing.T) {
	base := Reduce(loaded(makeRecords(50, 1, 2)), PageChanged{Page: 4})
	require.Equal(t, 4, base.Page())

	tests := []struct {
		name   string
		action Action
	}{
		{"search", SearchChanged{Query: "1"}},
		{"search cleared", SearchChanged{Query: ""}},
		{"facility set", FacilityChanged{ID: intPtr(2)}},
		{"facility cleared", FacilityChanged{ID: nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Reduce(base, tt.action)
			assert.Equal(t, 1, s.Page())
		})
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	before := loaded(makeRecords(30, 1, 2))
	snapshot := before

	_ = Reduce(before, SearchChanged{Query: "2"})
	_ = Reduce(before, FacilityChanged{ID: intPtr(1)})
	_ = Reduce(before, PageChanged{Page: 3})

	assert.Equal(t, snapshot, before)
	assert.Len(t, before.Filtered(), 30)
	assert.Equal(t, 1, before.Page())
}

func TestReduce_FacilityIDIsCopied(t *testing.T) {
	id := 2
	s := Reduce(loaded(scenarioRecords()), FacilityChanged{ID: &id})
	id = 1

	got, ok := s.Facility()
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestReduce_PageSizeChangeKeepsStalePage(t *testing.T) {
	s := loaded(makeRecords(30))
	s = Reduce(s, PageSizeChanged{Size: 5})
	s = Reduce(s, PageChanged{Page: 6})
	require.Len(t, s.PageRecords(), 5)

	s = Reduce(s, PageSizeChanged{Size: 50})

	assert.Equal(t, 6, s.Page(), "page is not clamped after a page size change")
	assert.Equal(t, 1, s.TotalPages())
	assert.Empty(t, s.PageRecords())
}

func TestReduce_InvalidPageSizeIgnored(t *testing.T) {
	s := Reduce(New(), PageSizeChanged{Size: 7})
	assert.Equal(t, DefaultPageSize, s.PageSize())

	s = Reduce(s, PageSizeChanged{Size: 0})
	assert.Equal(t, DefaultPageSize, s.PageSize())
}

func TestReduce_InvalidPageIgnored(t *testing.T) {
	s := Reduce(loaded(makeRecords(30)), PageChanged{Page: 2})
	s = Reduce(s, PageChanged{Page: 0})
	assert.Equal(t, 2, s.Page())
}

func TestReduce_FetchLifecycle(t *testing.T) {
	s := Reduce(New(), SearchChanged{Query: "2024"})
	s = Reduce(s, FacilityChanged{ID: intPtr(2)})

	s = Reduce(s, FetchStarted{})
	assert.True(t, s.Loading())
	assert.Empty(t, s.Records())
	assert.Nil(t, s.Summary())

	summary := &prediction.BatchSummary{TotalFacilities: 2, SuccessfulPredictions: 2}
	s = Reduce(s, FetchSucceeded{Summary: summary, Records: scenarioRecords()})
	assert.False(t, s.Loading())
	assert.Empty(t, s.Err())
	assert.Equal(t, summary, s.Summary())
	assert.Len(t, s.Records(), 2)
	assert.Equal(t, "2024", s.Query(), "query survives a new batch")
	require.Len(t, s.Filtered(), 1, "filter is re-applied to the new batch")
	assert.Equal(t, 2, s.Filtered()[0].FacilityID)

	s = Reduce(s, FetchStarted{})
	assert.Empty(t, s.Records(), "a new request discards the previous batch")

	s = Reduce(s, FetchFailed{Err: errors.New("prediction service unavailable")})
	assert.False(t, s.Loading())
	assert.Equal(t, "prediction service unavailable", s.Err())

	s = Reduce(s, FetchStarted{})
	assert.Empty(t, s.Err(), "a new request clears the previous error")
}

func TestReduce_FetchSucceededReplacesWholesale(t *testing.T) {
	s := loaded(makeRecords(40, 1, 2))
	s = Reduce(s, PageChanged{Page: 3})

	s = Reduce(s, FetchSucceeded{Records: scenarioRecords()})

	assert.Len(t, s.Records(), 2)
	assert.Equal(t, 1, s.Page())
}

func TestReduce_GroupChangeKeepsPage(t *testing.T) {
	s := Reduce(loaded(makeRecords(30)), PageChanged{Page: 2})
	s = Reduce(s, GroupChanged{Group: prediction.GroupSpecies})

	assert.Equal(t, prediction.GroupSpecies, s.Group())
	assert.Equal(t, 2, s.Page())
}

func TestNew_Defaults(t *testing.T) {
	s := New()

	assert.Equal(t, 1, s.Page())
	assert.Equal(t, 10, s.PageSize())
	assert.Equal(t, prediction.GroupMain, s.Group())
	assert.Empty(t, s.Query())
	_, ok := s.Facility()
	assert.False(t, ok)
	assert.Equal(t, 1, s.TotalPages())
	assert.Empty(t, s.PageRecords())
}

func TestNew_WithOptions(t *testing.T) {
	s := New(
		WithBatch(&prediction.BatchSummary{TotalFacilities: 2}, scenarioRecords()),
		WithPageSize(20),
		WithGroup(prediction.GroupOther),
	)

	assert.Len(t, s.Filtered(), 2)
	assert.Equal(t, 20, s.PageSize())
	assert.Equal(t, prediction.GroupOther, s.Group())

	s = New(WithPageSize(3))
	assert.Equal(t, DefaultPageSize, s.PageSize())
}

func TestParseFacility(t *testing.T) {
	tests := []struct {
		input   string
		want    *int
		wantErr bool
	}{
		{"", nil, false},
		{"all", nil, false},
		{"ALL", nil, false},
		{"2", intPtr(2), false},
		{" 17 ", intPtr(17), false},
		{"Facility 3", intPtr(3), false},
		{"two", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFacility(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTables_ShareOnePage(t *testing.T) {
	s := Reduce(loaded(makeRecords(12, 1, 2)), PageSizeChanged{Size: 5})
	s = Reduce(s, PageChanged{Page: 2})

	tables := s.Tables()
	require.Len(t, tables, len(prediction.Groups))
	for _, tbl := range tables {
		require.Len(t, tbl.Rows, 5)
		assert.Equal(t, tables[0].Rows[0][:2], tbl.Rows[0][:2], "identity columns line up across groups")
		assert.Len(t, tbl.Rows[0], len(tbl.Headers))
	}
}

func TestPageInfo(t *testing.T) {
	s := Reduce(loaded(makeRecords(12)), PageSizeChanged{Size: 5})
	s = Reduce(s, PageChanged{Page: 3})

	info := s.PageInfo()
	assert.Equal(t, PageInfo{Page: 3, TotalPages: 3, PageSize: 5, Filtered: 12, Total: 12, From: 11, To: 12}, info)

	s = Reduce(s, PageChanged{Page: 4})
	info = s.PageInfo()
	assert.Zero(t, info.From)
	assert.Zero(t, info.To)
}
