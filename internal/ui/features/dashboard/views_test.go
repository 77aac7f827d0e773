package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oojn4/korika/internal/prediction"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestViewStore_PrunesIdleViews(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newViewStore(ViewState{})
	store.now = clock.now

	store.set("old", ViewState{Search: "puskesmas", Page: 3})
	assert.Equal(t, "puskesmas", store.get("old").Search)

	clock.advance(viewTTL - time.Minute)
	store.set("recent", ViewState{Page: 2})
	assert.Equal(t, 2, store.size())

	clock.advance(time.Hour)
	assert.Equal(t, store.defaults, store.get("old"), "an idle view reads as the defaults")

	store.set("another", ViewState{Page: 1})
	assert.Equal(t, 2, store.size())
	assert.Equal(t, 2, store.get("recent").Page)
	assert.Equal(t, 1, store.defaults.Page)
	assert.Equal(t, prediction.GroupMain, store.get("old").Group)
}

func TestViewStore_EvictsOldestPastLimit(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := newViewStore(ViewState{})
	store.now = clock.now
	store.limit = 3

	for i := range 5 {
		store.set(fmt.Sprintf("view-%d", i), ViewState{Page: i + 1})
		clock.advance(time.Second)
	}

	assert.Equal(t, 3, store.size())
	assert.Equal(t, store.defaults, store.get("view-0"))
	assert.Equal(t, store.defaults, store.get("view-1"))
	assert.Equal(t, 5, store.get("view-4").Page)

	store.set("view-2", ViewState{Page: 9})
	clock.advance(time.Second)
	store.set("view-5", ViewState{Page: 6})
	assert.Equal(t, 9, store.get("view-2").Page, "rewriting a view keeps it")
	assert.Equal(t, store.defaults, store.get("view-3"))
}
