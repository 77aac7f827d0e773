package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/testutil"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m, cmd
}

func loaded(records []prediction.Record) results.State {
	return results.Reduce(results.New(), results.FetchSucceeded{Summary: testutil.Summary(records), Records: records})
}

func TestModel_Paging(t *testing.T) {
	m := New(context.Background(), loaded(testutil.Records(25, 5)))

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.State().Page())

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 3, m.State().Page(), "next is ignored on the last page")

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft}, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 1, m.State().Page(), "prev is ignored on the first page")
}

func TestModel_PageSize(t *testing.T) {
	m := New(context.Background(), loaded(testutil.Records(25, 5)))

	m, _ = send(t, m, runes("]"))
	assert.Equal(t, 20, m.State().PageSize())

	m, _ = send(t, m, runes("["), runes("["), runes("["))
	assert.Equal(t, 5, m.State().PageSize(), "stays at the smallest size")
}

func TestModel_Search(t *testing.T) {
	m := New(context.Background(), loaded(testutil.PairRecords()))
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m, _ = send(t, m, runes("/"))
	require.True(t, m.searching)

	m, _ = send(t, m, runes("4"), runes("/"))
	assert.Equal(t, "4/", m.State().Query())
	assert.Equal(t, 1, m.State().Page())
	require.Len(t, m.State().Filtered(), 1)
	assert.Equal(t, 2, m.State().Filtered()[0].FacilityID)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.searching)

	// Keys are commands again once the search is closed.
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, prediction.GroupAgeMed, m.State().Group())
}

func TestModel_FacilityCycle(t *testing.T) {
	m := New(context.Background(), loaded(testutil.PairRecords()))

	m, _ = send(t, m, runes("f"))
	id, ok := m.State().Facility()
	require.True(t, ok)
	assert.Equal(t, 1, id)

	m, _ = send(t, m, runes("f"))
	id, ok = m.State().Facility()
	require.True(t, ok)
	assert.Equal(t, 2, id)

	m, _ = send(t, m, runes("f"))
	_, ok = m.State().Facility()
	assert.False(t, ok)
}

func TestModel_GroupCycle(t *testing.T) {
	m := New(context.Background(), loaded(testutil.PairRecords()))

	var seen []prediction.Group
	for range prediction.Groups {
		m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
		seen = append(seen, m.State().Group())
	}
	assert.Equal(t, []prediction.Group{
		prediction.GroupAgeMed, prediction.GroupSpecies, prediction.GroupOther, prediction.GroupMain,
	}, seen)
}

func TestModel_Generate(t *testing.T) {
	records := testutil.Records(3, 3)
	summary := testutil.Summary(records)
	calls := 0
	fetch := func(context.Context) (*Batch, error) {
		calls++
		return &Batch{ID: "abcdef0123", Summary: summary, Records: records}, nil
	}

	m := New(context.Background(), results.New(), WithFetcher(fetch))
	m, cmd := send(t, m, runes("g"))
	require.NotNil(t, cmd)
	assert.True(t, m.State().Loading())

	// A second press while loading is ignored.
	m, again := send(t, m, runes("g"))
	assert.Nil(t, again)

	m, _ = send(t, m, cmd())
	assert.Equal(t, 1, calls)
	assert.False(t, m.State().Loading())
	assert.Len(t, m.State().Records(), 3)
	assert.Equal(t, "abcdef0123", m.batchID)
	assert.Contains(t, m.View(), "abcdef01")
}

func TestModel_GenerateFailureKeepsFilters(t *testing.T) {
	fetch := func(context.Context) (*Batch, error) {
		return nil, errors.New("Model not trained")
	}

	m := New(context.Background(), loaded(testutil.PairRecords()), WithFetcher(fetch))
	m, _ = send(t, m, runes("f"))

	m, cmd := send(t, m, runes("g"))
	require.NotNil(t, cmd)
	m, _ = send(t, m, cmd())

	assert.Equal(t, "Model not trained", m.State().Err())
	assert.False(t, m.State().Loading())
	_, ok := m.State().Facility()
	assert.True(t, ok, "filters survive a failed request")
	assert.Contains(t, m.View(), "Error: Model not trained")
}

func TestModel_GenerateWithoutFetcher(t *testing.T) {
	m := New(context.Background(), loaded(testutil.PairRecords()))
	m, cmd := send(t, m, runes("g"))
	assert.Nil(t, cmd)
	assert.False(t, m.State().Loading())
}

func TestModel_InitGeneratesOnStart(t *testing.T) {
	fetch := func(context.Context) (*Batch, error) { return &Batch{}, nil }

	assert.Nil(t, New(context.Background(), results.New(), WithFetcher(fetch)).Init())

	m := New(context.Background(), results.New(), WithFetcher(fetch), WithGenerateOnStart())
	cmd := m.Init()
	require.NotNil(t, cmd)
	m, next := send(t, m, cmd())
	assert.True(t, m.State().Loading())
	assert.NotNil(t, next)
}

func TestModel_Quit(t *testing.T) {
	m := New(context.Background(), results.New())
	_, cmd := send(t, m, runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_View(t *testing.T) {
	m := New(context.Background(), loaded(testutil.PairRecords()))
	view := m.View()

	assert.Contains(t, view, "Batch Prediction Results")
	assert.Contains(t, view, "Main Indicators")
	assert.Contains(t, view, "3/2024")
	assert.Contains(t, view, "Page 1 of 1")

	empty := New(context.Background(), results.New()).View()
	assert.Contains(t, empty, "No predictions yet")
}

func TestStepPageSize(t *testing.T) {
	assert.Equal(t, 20, stepPageSize(10, 1))
	assert.Equal(t, 5, stepPageSize(10, -1))
	assert.Equal(t, 100, stepPageSize(100, 1))
	assert.Equal(t, 5, stepPageSize(5, -1))
	assert.Equal(t, results.DefaultPageSize, stepPageSize(7, 1))
}
