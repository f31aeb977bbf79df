package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/tracimfeed/internal/model"
	appsync "github.com/nhle/tracimfeed/internal/sync"
	"github.com/nhle/tracimfeed/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
	FlashHeight     int
}

// NewLayout creates a Layout with the given terminal dimensions. The
// header, flash line and status bar take one line each.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
		FlashHeight:     1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the active view.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight - l.FlashHeight
	if h < 1 {
		return 1
	}
	return h
}

// FeedHeader is what the header shows about the current feed.
type FeedHeader struct {
	Username    string
	WorkspaceID int
	Unread      int

	// Configured and Connected describe the services; Sync is only read
	// once connected.
	Configured  bool
	Connected   bool
	Sync        appsync.SyncStatus
	NewActivity bool
}

// Title is the left part of the header.
func (h FeedHeader) Title() string {
	title := "Tracim"
	if h.Username != "" {
		title += " · " + h.Username
	}
	if h.WorkspaceID != 0 {
		title += fmt.Sprintf(" [space #%d]", h.WorkspaceID)
	}
	if h.Unread > 0 {
		title += fmt.Sprintf(" (%d messages)", h.Unread)
	}
	return title
}

// SyncLabel describes the live update state.
func (h FeedHeader) SyncLabel() string {
	if !h.Connected {
		if h.Configured {
			return "connecting"
		}
		return "not configured"
	}
	switch h.Sync.State {
	case appsync.SyncRunning:
		return "syncing"
	case appsync.SyncError:
		return "⚠ offline"
	}
	if h.Sync.LastSync.IsZero() {
		return "live"
	}
	return "updated " + h.Sync.LastSync.Format(time.TimeOnly)
}

// RenderHeader renders the title on the left, and on the right the sync
// state preceded by a marker while newer activity waits for a resort.
func (l Layout) RenderHeader(h FeedHeader) string {
	right := theme.HeaderStyle.Render(h.SyncLabel())
	if h.NewActivity {
		marker := theme.UnreadStyle.
			Background(theme.HeaderStyle.GetBackground()).
			PaddingLeft(1).
			Render("↑ new")
		right = marker + right
	}
	return l.fill(theme.HeaderStyle, theme.HeaderStyle.Render(h.Title()), right)
}

// RenderStatusBar renders the bottom status bar with keyboard hints.
func (l Layout) RenderStatusBar(hints string) string {
	return l.fill(theme.StatusBarStyle, theme.StatusBarStyle.Render(hints), "")
}

// fill pads the space between left and right with the background of style
// so the bar spans the full width.
func (l Layout) fill(style lipgloss.Style, left, right string) string {
	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderFlash renders the newest unread flash message on one line, with a
// count of the others. It returns "" when there is nothing to show.
func (l Layout) RenderFlash(messages []model.FlashMessage) string {
	if len(messages) == 0 {
		return ""
	}
	newest := messages[0]
	text := newest.Message
	if extra := len(messages) - 1; extra > 0 {
		text += theme.DimmedStyle.Render(fmt.Sprintf(" (+%d more, d to dismiss)", extra))
	}
	return theme.FlashStyle(newest.Level).MaxWidth(l.Width).Render(text)
}

// RenderWithFrame stacks the header, the flash line when there is one, the
// content and the status bar.
func (l Layout) RenderWithFrame(header, flash, content, statusBar string) string {
	parts := []string{header}
	if flash != "" {
		parts = append(parts, flash)
	}
	parts = append(parts, content, statusBar)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
