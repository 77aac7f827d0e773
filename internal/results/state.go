package results

import (
	"github.com/oojn4/korika/internal/prediction"
)

// State is the view state of a batch prediction results view.
//
// State is a value: Reduce returns a new State and never modifies the one
// it was given. The filtered records are derived and recomputed whenever
// the records, search query or facility filter change.
type State struct {
	records  []prediction.Record
	filtered []prediction.Record
	summary  *prediction.BatchSummary

	query    string
	facility *int
	page     int
	pageSize int
	group    prediction.Group

	loading bool
	err     string
}

// Option configures the initial state.
type Option func(*State)

// WithBatch seeds the state with an already fetched batch.
func WithBatch(summary *prediction.BatchSummary, records []prediction.Record) Option {
	return func(s *State) {
		s.summary = summary
		s.records = records
	}
}

// WithPageSize sets the initial page size. Sizes outside PageSizes are
// ignored.
func WithPageSize(size int) Option {
	return func(s *State) {
		if ValidPageSize(size) {
			s.pageSize = size
		}
	}
}

// WithGroup sets the initially displayed column group.
func WithGroup(g prediction.Group) Option {
	return func(s *State) {
		s.group = g
	}
}

// New returns the initial state: page 1, default page size, main group,
// no query and no facility filter.
func New(opts ...Option) State {
	s := State{
		page:     1,
		pageSize: DefaultPageSize,
		group:    prediction.GroupMain,
	}
	for _, opt := range opts {
		opt(&s)
	}
	s.filtered = Filter(s.records, s.query, s.facility)
	return s
}

// Records returns every record of the current batch in server order.
func (s State) Records() []prediction.Record { return s.records }

// Filtered returns the records matching the current query and filter.
func (s State) Filtered() []prediction.Record { return s.filtered }

// Summary returns the current batch summary, or nil before a batch loads.
func (s State) Summary() *prediction.BatchSummary { return s.summary }

// Query returns the search query.
func (s State) Query() string { return s.query }

// Facility returns the facility filter and whether one is set.
func (s State) Facility() (int, bool) {
	if s.facility == nil {
		return 0, false
	}
	return *s.facility, true
}

// Page returns the 1-indexed current page.
func (s State) Page() int { return s.page }

// PageSize returns the current page size.
func (s State) PageSize() int { return s.pageSize }

// Group returns the displayed column group.
func (s State) Group() prediction.Group { return s.group }

// Loading reports whether a batch request is in flight.
func (s State) Loading() bool { return s.loading }

// Err returns the message of the last failed request, if any.
func (s State) Err() string { return s.err }

// TotalPages returns the number of pages of filtered records.
func (s State) TotalPages() int { return TotalPages(len(s.filtered), s.pageSize) }

// PageRecords returns the filtered records on the current page.
func (s State) PageRecords() []prediction.Record {
	return PageSlice(s.filtered, s.page, s.pageSize)
}

// FacilityOptions returns the facility filter options of the unfiltered
// records.
func (s State) FacilityOptions() []FacilityOption { return FacilityOptions(s.records) }

// Action is a state transition handled by Reduce.
type Action interface {
	isAction()
}

// FetchStarted marks the start of a new batch request. The previous batch
// is discarded.
type FetchStarted struct{}

// FetchSucceeded replaces the batch wholesale.
type FetchSucceeded struct {
	Summary *prediction.BatchSummary
	Records []prediction.Record
}

// FetchFailed records a failed batch request.
type FetchFailed struct {
	Err error
}

// SearchChanged sets the search query.
type SearchChanged struct {
	Query string
}

// FacilityChanged sets or, with a nil ID, clears the facility filter.
type FacilityChanged struct {
	ID *int
}

// PageChanged moves to a page. Pages below 1 are ignored; pages past the
// end are kept and show no records.
type PageChanged struct {
	Page int
}

// PageSizeChanged switches the page size. The current page is kept even
// if it no longer exists.
type PageSizeChanged struct {
	Size int
}

// GroupChanged switches the displayed column group.
type GroupChanged struct {
	Group prediction.Group
}

func (FetchStarted) isAction()    {}
func (FetchSucceeded) isAction()  {}
func (FetchFailed) isAction()     {}
func (SearchChanged) isAction()   {}
func (FacilityChanged) isAction() {}
func (PageChanged) isAction()     {}
func (PageSizeChanged) isAction() {}
func (GroupChanged) isAction()    {}

// Reduce applies an action and returns the resulting state.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case FetchStarted:
		s.loading = true
		s.err = ""
		s.records = nil
		s.summary = nil
		s.page = 1
		s.filtered = Filter(nil, s.query, s.facility)

	case FetchSucceeded:
		s.loading = false
		s.err = ""
		s.records = a.Records
		s.summary = a.Summary
		s.page = 1
		s.filtered = Filter(s.records, s.query, s.facility)

	case FetchFailed:
		s.loading = false
		if a.Err != nil {
			s.err = a.Err.Error()
		} else {
			s.err = "request failed"
		}

	case SearchChanged:
		s.query = a.Query
		s.page = 1
		s.filtered = Filter(s.records, s.query, s.facility)

	case FacilityChanged:
		if a.ID != nil {
			id := *a.ID
			s.facility = &id
		} else {
			s.facility = nil
		}
		s.page = 1
		s.filtered = Filter(s.records, s.query, s.facility)

	case PageChanged:
		if a.Page >= 1 {
			s.page = a.Page
		}

	case PageSizeChanged:
		if ValidPageSize(a.Size) {
			s.pageSize = a.Size
		}

	case GroupChanged:
		if a.Group != "" {
			s.group = a.Group
		}
	}
	return s
}
