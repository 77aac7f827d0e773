package dashboard

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
)

// ViewState is the per-browser view of the dashboard, kept between
// requests. BatchID is the batch the view was last rendered against; a
// different latest batch starts again from page 1.
type ViewState struct {
	BatchID  string
	Search   string
	Facility *int
	Page     int
	PageSize int
	Group    prediction.Group
}

const (
	// viewTTL is how long an untouched view is kept. An evicted browser
	// starts again from the defaults.
	viewTTL = 24 * time.Hour
	// maxViews caps the number of views held at once.
	maxViews = 10000
)

type storedView struct {
	view ViewState
	seen time.Time
}

// viewStore keeps view states by session view id. Views idle for longer
// than ttl are pruned on write, and the oldest go first past limit.
type viewStore struct {
	mu        sync.RWMutex
	views     map[string]storedView
	defaults  ViewState
	ttl       time.Duration
	limit     int
	now       func() time.Time
	lastSweep time.Time
}

func newViewStore(defaults ViewState) *viewStore {
	if defaults.Page < 1 {
		defaults.Page = 1
	}
	if !results.ValidPageSize(defaults.PageSize) {
		defaults.PageSize = results.DefaultPageSize
	}
	if defaults.Group == "" {
		defaults.Group = prediction.GroupMain
	}
	return &viewStore{
		views:    make(map[string]storedView),
		defaults: defaults,
		ttl:      viewTTL,
		limit:    maxViews,
		now:      time.Now,
	}
}

func (s *viewStore) get(id string) ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.views[id]; ok && s.now().Sub(v.seen) < s.ttl {
		return v.view
	}
	return s.defaults
}

func (s *viewStore) set(id string, v ViewState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.views[id] = storedView{view: v, seen: now}

	if now.Sub(s.lastSweep) >= s.ttl/24 {
		s.lastSweep = now
		for key, sv := range s.views {
			if now.Sub(sv.seen) >= s.ttl {
				delete(s.views, key)
			}
		}
	}
	for len(s.views) > s.limit {
		s.evictOldest()
	}
}

// evictOldest drops the least recently written view. Callers hold mu.
func (s *viewStore) evictOldest() {
	var (
		oldestID string
		oldest   time.Time
	)
	for key, sv := range s.views {
		if oldestID == "" || sv.seen.Before(oldest) {
			oldestID, oldest = key, sv.seen
		}
	}
	delete(s.views, oldestID)
}

func (s *viewStore) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

// project rebuilds the reducer state for a view over batch. The stored page
// only survives when the view was already showing this batch.
func project(batch *state.StoredBatch, v ViewState) results.State {
	st := results.New(results.WithPageSize(v.PageSize), results.WithGroup(v.Group))
	if batch != nil {
		summary := batch.Summary
		st = results.Reduce(st, results.FetchSucceeded{Summary: &summary, Records: batch.Records})
	}
	st = results.Reduce(st, results.SearchChanged{Query: v.Search})
	st = results.Reduce(st, results.FacilityChanged{ID: v.Facility})
	if batch == nil || batch.ID == v.BatchID {
		st = results.Reduce(st, results.PageChanged{Page: v.Page})
	}
	return st
}

// capture extracts the view state to keep from a reducer state.
func capture(batch *state.StoredBatch, st results.State) ViewState {
	v := ViewState{
		Search:   st.Query(),
		Page:     st.Page(),
		PageSize: st.PageSize(),
		Group:    st.Group(),
	}
	if batch != nil {
		v.BatchID = batch.ID
	}
	if id, ok := st.Facility(); ok {
		v.Facility = &id
	}
	return v
}

// flexInt accepts both JSON numbers and numeric strings; select elements
// bound to signals report their value as a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n := json.Number(s)
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return fmt.Errorf("invalid number %s", b)
		}
		i = int64(fl)
	}
	*f = flexInt(i)
	return nil
}

// Signals are the dashboard's client-side signals.
type Signals struct {
	Search   string  `json:"search"`
	Facility string  `json:"facility"`
	Page     flexInt `json:"page"`
	Size     flexInt `json:"size"`
	Group    string  `json:"group"`
}

// signalsFor returns the signals matching a state, sent back after every
// change so the page controls follow resets made by the reducer.
func signalsFor(st results.State) map[string]any {
	facility := ""
	if id, ok := st.Facility(); ok {
		facility = strconv.Itoa(id)
	}
	return map[string]any{
		"search":   st.Query(),
		"facility": facility,
		"page":     st.Page(),
		"size":     st.PageSize(),
		"group":    string(st.Group()),
	}
}

// applySignals turns the differences between st and the submitted signals
// into reducer actions. A changed search or facility resets the page, so
// the submitted page is only honoured when neither changed.
func applySignals(st results.State, sig Signals) (results.State, error) {
	filtersChanged := false

	if sig.Search != st.Query() {
		st = results.Reduce(st, results.SearchChanged{Query: sig.Search})
		filtersChanged = true
	}

	facility, err := results.ParseFacility(sig.Facility)
	if err != nil {
		return st, err
	}
	current, hasCurrent := st.Facility()
	if (facility == nil) != !hasCurrent || (facility != nil && *facility != current) {
		st = results.Reduce(st, results.FacilityChanged{ID: facility})
		filtersChanged = true
	}

	if size := int(sig.Size); size != 0 && size != st.PageSize() {
		if !results.ValidPageSize(size) {
			return st, fmt.Errorf("invalid page size %d", size)
		}
		st = results.Reduce(st, results.PageSizeChanged{Size: size})
	}

	if page := int(sig.Page); !filtersChanged && page >= 1 && page != st.Page() {
		st = results.Reduce(st, results.PageChanged{Page: page})
	}

	if sig.Group != "" && sig.Group != string(st.Group()) {
		g, err := prediction.ParseGroup(sig.Group)
		if err != nil {
			return st, err
		}
		st = results.Reduce(st, results.GroupChanged{Group: g})
	}
	return st, nil
}
