// Package tui is the interactive terminal browser for batch prediction
// results.
//
// The model owns a single results.State. Key presses and finished network
// calls are translated into results actions and passed through
// results.Reduce; the model never edits view state directly. Network calls
// run as tea.Cmd tasks that resolve to batchLoadedMsg or batchFailedMsg.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
)

// Batch is a generated batch as handed back by a FetchFunc.
type Batch struct {
	ID      string
	Summary *prediction.BatchSummary
	Records []prediction.Record
}

// FetchFunc generates a new batch.
type FetchFunc func(ctx context.Context) (*Batch, error)

type batchLoadedMsg struct {
	batch *Batch
}

type batchFailedMsg struct {
	err error
}

// Option configures a Model.
type Option func(*Model)

// WithFetcher enables the generate key.
func WithFetcher(fn FetchFunc) Option {
	return func(m *Model) { m.fetch = fn }
}

// WithBatchID labels the initial batch.
func WithBatchID(id string) Option {
	return func(m *Model) { m.batchID = id }
}

// WithGenerateOnStart starts a generation as soon as the program runs.
func WithGenerateOnStart() Option {
	return func(m *Model) { m.generateOnStart = true }
}

// Model is the bubbletea model of the results browser.
type Model struct {
	ctx             context.Context
	state           results.State
	batchID         string
	fetch           FetchFunc
	generateOnStart bool

	search    textinput.Model
	searching bool
	table     table.Model
	help      help.Model
	keys      keyMap

	width  int
	height int
}

// New creates a browser over st.
func New(ctx context.Context, st results.State, opts ...Option) Model {
	search := textinput.New()
	search.Prompt = "Search: "
	search.Placeholder = "facility id, month/year or total positive"
	search.CharLimit = 64

	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))
	t.SetStyles(styles)

	m := Model{
		ctx:    ctx,
		state:  st,
		search: search,
		table:  t,
		help:   help.New(),
		keys:   defaultKeyMap(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.syncTable()
	return m
}

// State returns the current view state.
func (m Model) State() results.State {
	return m.state
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.generateOnStart && m.fetch != nil {
		return func() tea.Msg { return startGenerateMsg{} }
	}
	return nil
}

type startGenerateMsg struct{}

// generate returns the task that fetches a new batch.
func (m Model) generate() tea.Cmd {
	fetch := m.fetch
	ctx := m.ctx
	return func() tea.Msg {
		batch, err := fetch(ctx)
		if err != nil {
			return batchFailedMsg{err: err}
		}
		return batchLoadedMsg{batch: batch}
	}
}

func (m Model) dispatch(a results.Action) Model {
	m.state = results.Reduce(m.state, a)
	m.syncTable()
	return m
}

// startGenerate begins a generation unless one is already running.
func (m Model) startGenerate() (Model, tea.Cmd) {
	if m.fetch == nil || m.state.Loading() {
		return m, nil
	}
	m = m.dispatch(results.FetchStarted{})
	return m, m.generate()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.syncTable()
		return m, nil

	case startGenerateMsg:
		return m.startGenerate()

	case batchLoadedMsg:
		if msg.batch == nil {
			return m.dispatch(results.FetchFailed{Err: fmt.Errorf("empty batch")}), nil
		}
		m.batchID = msg.batch.ID
		return m.dispatch(results.FetchSucceeded{Summary: msg.batch.Summary, Records: msg.batch.Records}), nil

	case batchFailedMsg:
		return m.dispatch(results.FetchFailed{Err: msg.err}), nil

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.state.Query() {
		m = m.dispatch(results.SearchChanged{Query: v})
	}
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.state

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.search.SetValue(st.Query())
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Facility):
		return m.dispatch(results.FacilityChanged{ID: nextFacility(st)}), nil

	case key.Matches(msg, m.keys.Next):
		if st.Page() < st.TotalPages() {
			return m.dispatch(results.PageChanged{Page: st.Page() + 1}), nil
		}
		return m, nil

	case key.Matches(msg, m.keys.Prev):
		if st.Page() > 1 {
			return m.dispatch(results.PageChanged{Page: st.Page() - 1}), nil
		}
		return m, nil

	case key.Matches(msg, m.keys.Larger):
		return m.dispatch(results.PageSizeChanged{Size: stepPageSize(st.PageSize(), 1)}), nil

	case key.Matches(msg, m.keys.Smaller):
		return m.dispatch(results.PageSizeChanged{Size: stepPageSize(st.PageSize(), -1)}), nil

	case key.Matches(msg, m.keys.Group):
		return m.dispatch(results.GroupChanged{Group: st.Group().Next()}), nil

	case key.Matches(msg, m.keys.Generate):
		return m.startGenerate()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// nextFacility cycles the facility filter: all, then each facility in
// first-appearance order, then all again.
func nextFacility(st results.State) *int {
	opts := st.FacilityOptions()
	if len(opts) == 0 {
		return nil
	}
	cur, ok := st.Facility()
	if !ok {
		id := opts[0].ID
		return &id
	}
	for i, o := range opts {
		if o.ID == cur && i+1 < len(opts) {
			id := opts[i+1].ID
			return &id
		}
	}
	return nil
}

// stepPageSize moves to the neighbouring allowed page size, staying put at
// either end.
func stepPageSize(current, dir int) int {
	for i, s := range results.PageSizes {
		if s != current {
			continue
		}
		j := i + dir
		if j < 0 || j >= len(results.PageSizes) {
			return current
		}
		return results.PageSizes[j]
	}
	return results.DefaultPageSize
}

// syncTable copies the current page into the table widget.
func (m *Model) syncTable() {
	t := m.state.Table()

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	rows := make([]table.Row, len(t.Rows))
	for i, r := range t.Rows {
		for j, cell := range r {
			if j < len(widths) && lipgloss.Width(cell) > widths[j] {
				widths[j] = lipgloss.Width(cell)
			}
		}
		rows[i] = table.Row(r)
	}
	cols := make([]table.Column, len(t.Headers))
	for i, h := range t.Headers {
		cols[i] = table.Column{Title: h, Width: widths[i] + 1}
	}

	// Rows must be cleared first: the widget renders the old rows against the
	// new columns otherwise.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)

	height := len(rows) + 1
	if height < 2 {
		height = 2
	}
	if m.height > 0 && height > m.height-12 {
		height = max(m.height-12, 3)
	}
	m.table.SetHeight(height)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(0)
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	activeTab   = lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1)
	inactiveTab = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Padding(0, 1)
)

// View implements tea.Model.
func (m Model) View() string {
	st := m.state
	var b strings.Builder

	title := "Batch Prediction Results"
	if m.batchID != "" {
		id := m.batchID
		if len(id) > 8 {
			id = id[:8]
		}
		title += " · " + id
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	if s := st.Summary(); s != nil {
		line := fmt.Sprintf("Facilities %d · successful %d · failed %d",
			s.TotalFacilities, s.SuccessfulPredictions, s.FailedPredictions)
		if s.HasArtifact() {
			line += " · " + s.SummaryFilename
		}
		b.WriteString(mutedStyle.Render(line))
		b.WriteString("\n")
	}

	switch {
	case st.Loading():
		b.WriteString("Generating predictions...\n")
	case st.Err() != "":
		b.WriteString(errorStyle.Render("Error: " + st.Err()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	tabs := make([]string, len(prediction.Groups))
	for i, g := range prediction.Groups {
		style := inactiveTab
		if g == st.Group() {
			style = activeTab
		}
		tabs[i] = style.Render(g.Title())
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
	} else {
		filter := "Search: " + st.Query()
		if st.Query() == "" {
			filter = "Search: (none)"
		}
		if id, ok := st.Facility(); ok {
			filter += fmt.Sprintf(" · Facility %d", id)
		} else {
			filter += " · All facilities"
		}
		b.WriteString(mutedStyle.Render(filter))
	}
	b.WriteString("\n\n")

	if len(st.PageRecords()) == 0 {
		if len(st.Records()) == 0 && !st.Loading() {
			b.WriteString(mutedStyle.Render("No predictions yet. Press g to generate."))
		} else if !st.Loading() {
			b.WriteString(mutedStyle.Render("No records match the current filters."))
		}
		b.WriteString("\n")
	} else {
		b.WriteString(m.table.View())
		b.WriteString("\n")
	}

	info := st.PageInfo()
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Page %d of %d · %d-%d of %d · %d per page",
		info.Page, info.TotalPages, info.From, info.To, info.Filtered, info.PageSize)))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
