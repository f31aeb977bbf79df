package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tracimfeed/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps the history and help panels.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary information such as timestamps.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// BannerStyle is the "new activity" banner shown above the feed.
var BannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue).
	Padding(0, 1)

// UnreadStyle marks activities whose newest event is unread.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorOrange)

// EntityStyle returns a color-coded badge style for an activity entity.
func EntityStyle(entity model.EntityType) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch entity {
	case model.EntityContent:
		return base.Foreground(ColorBlue)
	case model.EntityMention:
		return base.Foreground(ColorOrange)
	case model.EntityWorkspaceMember, model.EntityWorkspaceSubscription:
		return base.Foreground(ColorMagenta)
	case model.EntityWorkspace:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// CoreEventStyle returns a color-coded style for what happened to an
// entity.
func CoreEventStyle(core model.CoreEventType) lipgloss.Style {
	base := lipgloss.NewStyle()

	switch core {
	case model.CoreCreated:
		return base.Foreground(ColorGreen)
	case model.CoreModified:
		return base.Foreground(ColorYellow)
	case model.CoreDeleted:
		return base.Foreground(ColorRed)
	case model.CoreUndeleted:
		return base.Foreground(ColorBlue)
	default:
		return base.Foreground(ColorGray)
	}
}

// FlashStyle returns the style of a flash message of the given level.
func FlashStyle(level model.FlashLevel) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch level {
	case model.FlashError:
		return base.Foreground(ColorRed)
	case model.FlashWarning:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorBlue)
	}
}
