package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/theme"
)

// ActivityItem wraps a model.Activity so it can be used in a bubbles/list.
type ActivityItem struct {
	Activity model.Activity
}

// FilterValue returns the string used for fuzzy filtering.
func (i ActivityItem) FilterValue() string { return Title(i.Activity) }

// Title returns the activity title for the list.
func (i ActivityItem) Title() string { return Title(i.Activity) }

// Description returns a short summary line for the list.
func (i ActivityItem) Description() string {
	parts := []string{
		string(i.Activity.EntityType),
		string(i.Activity.CoreEventType),
		relativeTime(i.Activity.NewestMessage.Created),
	}
	return strings.Join(parts, " | ")
}

// Title describes what an activity is about in one line.
func Title(a model.Activity) string {
	f := a.NewestMessage.Fields

	switch a.EntityType {
	case model.EntityContent, model.EntityMention:
		label := contentLabel(a.Content)
		if a.EntityType == model.EntityMention {
			return fmt.Sprintf("%s mentioned %s in %s",
				userName(f.Author), mentionTarget(f.Mention), label)
		}
		return label

	case model.EntityWorkspaceMember:
		return fmt.Sprintf("%s in %s", userName(f.User), workspaceLabel(f.Workspace))

	case model.EntityWorkspaceSubscription:
		if f.Subscription != nil {
			return fmt.Sprintf("%s asked to join %s",
				userName(&f.Subscription.Author), workspaceLabel(&f.Subscription.Workspace))
		}
		return "Subscription request"

	case model.EntityWorkspace:
		return workspaceLabel(f.Workspace)
	}

	return string(a.NewestMessage.EventType)
}

func contentLabel(c *model.Content) string {
	switch {
	case c == nil:
		return "(no content)"
	case c.Placeholder == model.PlaceholderUnknownContent:
		return "(content unavailable)"
	case c.Placeholder == model.PlaceholderUnknownComment:
		return "(comment unavailable)"
	case c.Label != "":
		return c.Label
	case c.IsComment():
		return "comment"
	default:
		return fmt.Sprintf("content #%d", c.ContentID)
	}
}

func userName(u *model.User) string {
	switch {
	case u == nil:
		return "someone"
	case u.PublicName != "":
		return u.PublicName
	case u.Username != "":
		return u.Username
	default:
		return fmt.Sprintf("user #%d", u.UserID)
	}
}

func workspaceLabel(w *model.Workspace) string {
	if w == nil {
		return "a space"
	}
	if w.Label != "" {
		return w.Label
	}
	return fmt.Sprintf("space #%d", w.WorkspaceID)
}

func mentionTarget(m *model.Mention) string {
	if m == nil || m.Recipient == "" {
		return "you"
	}
	return "@" + m.Recipient
}

// ActivityDelegate implements list.ItemDelegate for rendering activities.
type ActivityDelegate struct{}

// Height returns the number of lines each item takes.
func (d ActivityDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ActivityDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ActivityDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single activity line.
func (d ActivityDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ai, ok := item.(ActivityItem)
	if !ok {
		return
	}
	a := ai.Activity

	marker := " "
	if !a.NewestMessage.Read {
		marker = theme.UnreadStyle.Render("●")
	}

	entity := theme.EntityStyle(a.EntityType).Render(entityBadge(a.EntityType))
	core := theme.CoreEventStyle(a.CoreEventType).Render(string(a.CoreEventType))

	count := ""
	if n := len(a.EventList); n > 1 {
		count = theme.DimmedStyle.Render(fmt.Sprintf(" (%d events)", n))
	}

	author := ""
	if u := a.NewestMessage.Fields.Author; u != nil {
		author = theme.DimmedStyle.Render(" by " + userName(u))
	}

	timeStr := theme.DimmedStyle.Render(relativeTime(a.NewestMessage.Created))

	line := fmt.Sprintf("%s %s %s %s%s%s  %s",
		marker, entity, core, Title(a), author, count, timeStr)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// entityBadge returns a short uppercase badge for an entity type.
func entityBadge(e model.EntityType) string {
	switch e {
	case model.EntityContent:
		return "DOC"
	case model.EntityMention:
		return "MEN"
	case model.EntityWorkspaceMember:
		return "MBR"
	case model.EntityWorkspaceSubscription:
		return "SUB"
	case model.EntityWorkspace:
		return "SPC"
	default:
		return "???"
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
