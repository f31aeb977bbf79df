package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tracimfeed/internal/keys"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/theme"
	"github.com/nhle/tracimfeed/internal/ui/feed"
)

// BackMsg signals the parent to navigate back to the feed.
type BackMsg struct{}

// Model shows one activity with its event history.
type Model struct {
	activity *model.Activity
	// events is the history fetched from the server; until it arrives the
	// activity's own event list is shown.
	events   []model.Message
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
	err      error
}

// New creates a new history view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the history view.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetActivity shows a, marking its server history as loading.
func (m *Model) SetActivity(a model.Activity) {
	m.activity = &a
	m.events = nil
	m.err = nil
	m.loading = true
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// ActivityID returns the id of the displayed activity, or "".
func (m Model) ActivityID() string {
	if m.activity == nil {
		return ""
	}
	return m.activity.ID
}

// SetEvents replaces the history of the displayed activity. Events of any
// other activity are ignored.
func (m *Model) SetEvents(activityID string, events []model.Message) {
	if activityID != m.ActivityID() {
		return
	}
	m.events = events
	m.loading = false
	m.viewport.SetContent(m.renderContent())
}

// SetError records that the history could not be loaded.
func (m *Model) SetError(err error) {
	m.err = err
	m.loading = false
	m.viewport.SetContent(m.renderContent())
}

// Update handles messages for the history view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg { return BackMsg{} }
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the history view.
func (m Model) View() string {
	if m.activity == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No activity selected")
	}

	return m.viewport.View()
}

// renderContent builds the full content string for the viewport.
func (m Model) renderContent() string {
	if m.activity == nil {
		return ""
	}

	a := m.activity
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(feed.Title(*a)))

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.EntityStyle(a.EntityType).Render(strings.ToUpper(string(a.EntityType))),
		"  ",
		theme.CoreEventStyle(a.CoreEventType).Render(string(a.CoreEventType)),
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	if c := a.Content; c != nil {
		sections = append(sections, fmt.Sprintf(
			"%s      %s",
			metaStyle.Render("Type:"),
			valStyle.Render(c.ContentType),
		))
		if c.Status != "" {
			sections = append(sections, fmt.Sprintf(
				"%s    %s",
				metaStyle.Render("Status:"),
				valStyle.Render(c.Status),
			))
		}
		if !c.Modified.IsZero() {
			sections = append(sections, fmt.Sprintf(
				"%s  %s",
				metaStyle.Render("Modified:"),
				valStyle.Render(c.Modified.Format("2006-01-02 15:04")),
			))
		}
	}
	if ws := a.WorkspaceID(); ws != 0 {
		sections = append(sections, fmt.Sprintf(
			"%s     %s",
			metaStyle.Render("Space:"),
			valStyle.Render(fmt.Sprintf("#%d", ws)),
		))
	}

	sections = append(sections, "", titleStyle.Render("History"))

	events := m.events
	if events == nil {
		events = a.EventList
	}
	for _, ev := range events {
		sections = append(sections, renderEvent(ev))
	}

	switch {
	case m.loading:
		sections = append(sections, "", theme.DimmedStyle.Render("Loading latest events..."))
	case m.err != nil:
		sections = append(sections, "", theme.FlashStyle(model.FlashError).Render(
			"Could not load history: "+m.err.Error(),
		))
	}

	return strings.Join(sections, "\n")
}

// renderEvent draws one history line.
func renderEvent(ev model.Message) string {
	when := ""
	if !ev.Created.IsZero() {
		when = ev.Created.Format("2006-01-02 15:04")
	}
	author := ""
	if u := ev.Fields.Author; u != nil {
		author = u.PublicName
		if author == "" {
			author = u.Username
		}
	}
	return fmt.Sprintf("  %s  %s  %s",
		theme.DimmedStyle.Render(when),
		theme.CoreEventStyle(ev.EventType.Core()).Render(string(ev.EventType)),
		author,
	)
}

// SetSize updates the history view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}
