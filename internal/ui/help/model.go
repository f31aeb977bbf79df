package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tracimfeed/internal/keys"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/theme"
)

// legend lists the entity badges shown in the feed.
var legend = []struct {
	entity model.EntityType
	label  string
}{
	{model.EntityContent, "a content and its comments"},
	{model.EntityMention, "you were mentioned"},
	{model.EntityWorkspaceMember, "someone joined or left a space"},
	{model.EntityWorkspaceSubscription, "a request to join a space"},
	{model.EntityWorkspace, "a space was created or removed"},
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	m.help.Width = m.width - 4
	m.help.ShowAll = true

	sections := []string{
		titleStyle.Render("Keyboard Shortcuts"),
		m.help.View(m.keys),
		"",
		titleStyle.Render("Activity Types"),
	}
	for _, l := range legend {
		sections = append(sections, lipgloss.JoinHorizontal(
			lipgloss.Top,
			theme.EntityStyle(l.entity).Width(24).Render(string(l.entity)),
			theme.DimmedStyle.Render(l.label),
		))
	}

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
