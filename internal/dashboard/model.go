package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/tripdeck/internal/itinerary"
	"github.com/smileynet/tripdeck/internal/recommend"
)

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// titleHeight is the pane title line plus a blank line.
const titleHeight = 2

// Model is the root Bubble Tea model for the dashboard.
type Model struct {
	ctx    context.Context
	params recommend.Params
	rec    Recommender
	saver  Saver
	now    func() time.Time

	focus    Focus
	width    int
	height   int
	recs     recsState
	saved    savedState
	flash    string
	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
}

// NewModel creates a dashboard for the given request with the
// recommendations pane focused.
func NewModel(ctx context.Context, params recommend.Params, rec Recommender, saver Saver) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		params:   params,
		rec:      rec,
		saver:    saver,
		now:      time.Now,
		focus:    PaneLeft,
		recs:     newRecsState(),
		spinner:  s,
		viewport: viewport.New(0, 0),
		help:     help.New(),
	}
}

// Init starts the spinner, the initial (cache-first) fetch, and loads saved items.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchCmd(false), m.loadSavedCmd())
}

// fetchCmd runs a fetch through the store and reports its state afterwards.
func (m Model) fetchCmd(force bool) tea.Cmd {
	rec, ctx, p := m.rec, m.ctx, m.params
	return func() tea.Msg {
		_, err := rec.Fetch(ctx, p, recommend.FetchOptions{ForceRefresh: force})
		return RecommendationsMsg{Snapshot: rec.Snapshot(), Err: err}
	}
}

func (m Model) loadSavedCmd() tea.Cmd {
	saver := m.saver
	return func() tea.Msg {
		return SavedItemsMsg{Items: saver.Items()}
	}
}

func (m Model) saveCmd(a activityRow) tea.Cmd {
	saver := m.saver
	return func() tea.Msg {
		it, err := saver.Add(itinerary.Item{
			Name:     a.Name,
			Day:      a.Day,
			Category: a.Category,
			Notes:    a.Description,
		})
		return ItemSavedMsg{Item: it, Err: err}
	}
}

func (m Model) removeCmd(id string) tea.Cmd {
	saver := m.saver
	return func() tea.Msg {
		_, err := saver.Remove(id)
		return ItemRemovedMsg{ID: id, Err: err}
	}
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		_, rightWidth := PaneWidths(msg.Width)
		m.viewport.Width = max(rightWidth-borderChrome, 0)
		m.viewport.Height = max(m.contentHeight()-titleHeight, 1)
		m.syncViewport()
		return m, nil

	case RecommendationsMsg:
		m.recs = m.recs.apply(msg, recommend.Key(m.params.Destination))
		return m, nil

	case SavedItemsMsg:
		m.saved = m.saved.apply(msg.Items)
		m.syncViewport()
		return m, nil

	case ItemSavedMsg:
		if msg.Err != nil {
			m.flash = errorText.Render("Save failed: " + msg.Err.Error())
			return m, nil
		}
		m.flash = okText.Render("Saved " + msg.Item.Name)
		return m, m.loadSavedCmd()

	case ItemRemovedMsg:
		if msg.Err != nil {
			m.flash = errorText.Render("Delete failed: " + msg.Err.Error())
			return m, nil
		}
		m.flash = "Removed item"
		return m, m.loadSavedCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := KeyMap()
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Tab):
		if m.focus == PaneLeft {
			m.focus = PaneRight
		} else {
			m.focus = PaneLeft
		}
		return m, nil

	case key.Matches(msg, keys.Up), key.Matches(msg, keys.Down):
		delta := 1
		if key.Matches(msg, keys.Up) {
			delta = -1
		}
		if m.focus == PaneLeft {
			m.recs = m.recs.move(delta)
		} else {
			m.saved = m.saved.move(delta)
			m.syncViewport()
		}
		return m, nil

	case key.Matches(msg, keys.Refresh):
		m.recs.loading = true
		m.recs.err = nil
		m.flash = ""
		return m, m.fetchCmd(true)

	case key.Matches(msg, keys.Save):
		if m.focus != PaneLeft {
			return m, nil
		}
		if a, ok := m.recs.Selected(); ok {
			return m, m.saveCmd(a)
		}

	case key.Matches(msg, keys.Delete):
		if m.focus != PaneRight {
			return m, nil
		}
		if it, ok := m.saved.Selected(); ok {
			return m, m.removeCmd(it.ID)
		}
	}
	return m, nil
}

// syncViewport refreshes the itinerary pane and keeps its cursor visible.
func (m *Model) syncViewport() {
	m.viewport.SetContent(m.saved.View())
	switch {
	case m.saved.cursor < m.viewport.YOffset:
		m.viewport.SetYOffset(m.saved.cursor)
	case m.viewport.Height > 0 && m.saved.cursor >= m.viewport.YOffset+m.viewport.Height:
		m.viewport.SetYOffset(m.saved.cursor - m.viewport.Height + 1)
	}
}

// contentHeight returns the usable height for pane content,
// accounting for border chrome and the help bar.
func (m Model) contentHeight() int {
	return max(m.height-borderChrome-helpBarHeight, 1)
}

// View renders the two-pane layout with help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	leftWidth, rightWidth := PaneWidths(m.width)
	contentHeight := m.contentHeight()

	leftStyle, rightStyle := FocusedBorder(), UnfocusedBorder()
	if m.focus == PaneRight {
		leftStyle, rightStyle = UnfocusedBorder(), FocusedBorder()
	}
	leftStyle = leftStyle.Width(leftWidth - borderChrome).Height(contentHeight)
	rightStyle = rightStyle.Width(rightWidth - borderChrome).Height(contentHeight)

	leftTitle := dayHeader.Render(fmt.Sprintf("%s · %d days", m.params.Destination, m.params.Duration))
	left := leftTitle + "\n\n" + m.recs.View(m.params.Destination, m.spinner.View(), m.now())
	right := dayHeader.Render(fmt.Sprintf("Itinerary (%d)", len(m.saved.items))) + "\n\n" + m.viewport.View()

	panes := lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(left), rightStyle.Render(right))
	footer := m.help.View(paneKeyMap(m.focus))
	if m.flash != "" {
		footer += "  " + m.flash
	}
	return lipgloss.JoinVertical(lipgloss.Left, panes, footer)
}
