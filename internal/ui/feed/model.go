package feed

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tracimfeed/internal/keys"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/theme"
)

// SelectedActivityMsg is sent when the user opens an activity's history.
type SelectedActivityMsg struct {
	Activity model.Activity
}

// Model is the activity feed view.
type Model struct {
	list        list.Model
	spinner     spinner.Model
	keys        *keys.KeyMap
	loading     bool
	hasNextPage bool
	showRefresh bool
	// cached is set while the list comes from the local snapshot.
	cached bool
	width  int
	height int
}

// New creates a new feed view model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ActivityDelegate{}, width, height-2)
	l.Title = "Recent activities"
	l.SetShowStatusBar(true)
	l.SetStatusBarItemName("activity", "activities")
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		list:        l,
		spinner:     sp,
		keys:        k,
		hasNextPage: true,
		width:       width,
		height:      height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Select) {
			a, ok := m.SelectedActivity()
			if !ok {
				return m, nil
			}
			return m, func() tea.Msg { return SelectedActivityMsg{Activity: a} }
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// SetActivities replaces the displayed list, keeping the cursor on the
// same activity when it is still present.
func (m *Model) SetActivities(activities []model.Activity, cached bool) tea.Cmd {
	selected, hadSelection := m.SelectedActivity()

	items := make([]list.Item, len(activities))
	cursor := 0
	for i, a := range activities {
		items[i] = ActivityItem{Activity: a}
		if hadSelection && a.ID == selected.ID {
			cursor = i
		}
	}
	m.cached = cached
	cmd := m.list.SetItems(items)
	m.list.Select(cursor)
	return cmd
}

// SetPagination records whether older activities can be loaded.
func (m *Model) SetPagination(hasNextPage bool) {
	m.hasNextPage = hasNextPage
}

// HasNextPage reports whether older activities can be loaded.
func (m Model) HasNextPage() bool { return m.hasNextPage }

// SetLoading toggles the loading indicator and returns the command that
// animates it.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	wasLoading := m.loading
	m.loading = loading
	if loading && !wasLoading {
		return m.spinner.Tick
	}
	return nil
}

// Cached reports whether the list comes from the saved feed.
func (m Model) Cached() bool { return m.cached }

// Loading reports whether a load is in progress.
func (m Model) Loading() bool { return m.loading }

// SetShowRefresh toggles the "new activity" banner.
func (m *Model) SetShowRefresh(show bool) {
	m.showRefresh = show
}

// ShowRefresh reports whether the banner is shown.
func (m Model) ShowRefresh() bool { return m.showRefresh }

// Len returns the number of displayed activities.
func (m Model) Len() int { return len(m.list.Items()) }

// SelectedActivity returns the activity under the cursor.
func (m Model) SelectedActivity() (model.Activity, bool) {
	item, ok := m.list.SelectedItem().(ActivityItem)
	if !ok {
		return model.Activity{}, false
	}
	return item.Activity, true
}

// View renders the feed.
func (m Model) View() string {
	var top []string
	if m.showRefresh {
		top = append(top, theme.BannerStyle.Render("↑ New activity. Press r to show it at the top."))
	}

	var body string
	if len(m.list.Items()) == 0 {
		body = m.renderEmptyState()
	} else {
		body = m.list.View()
	}

	bottom := m.footer()

	return lipgloss.JoinVertical(lipgloss.Left, append(append(top, body), bottom)...)
}

// footer describes the pagination and loading state below the list.
func (m Model) footer() string {
	switch {
	case m.loading:
		return theme.DimmedStyle.Render(m.spinner.View() + " loading activities... (x to cancel)")
	case m.cached:
		return theme.DimmedStyle.Render("showing saved feed, refreshing...")
	case m.hasNextPage && len(m.list.Items()) > 0:
		return theme.HelpStyle.Render("n to load older activities")
	case len(m.list.Items()) > 0:
		return theme.DimmedStyle.Render("no older activity")
	default:
		return ""
	}
}

// renderEmptyState shows guidance text when no activity is available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return style.Render(m.spinner.View() + " Loading recent activities...")
	}
	return style.Render("No recent activity.\n\nPress R to reload or c to configure.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
}
