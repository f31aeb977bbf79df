package ui

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	appsync "github.com/nhle/tracimfeed/internal/sync"
)

func TestFeedHeader_Title(t *testing.T) {
	assert.Equal(t, "Tracim", FeedHeader{}.Title())
	assert.Equal(t, "Tracim · alice [space #3] (2 messages)",
		FeedHeader{Username: "alice", WorkspaceID: 3, Unread: 2}.Title())
}

func TestFeedHeader_SyncLabel(t *testing.T) {
	last := time.Date(2026, 3, 4, 9, 15, 30, 0, time.UTC)

	tests := []struct {
		name   string
		header FeedHeader
		want   string
	}{
		{"unconfigured", FeedHeader{}, "not configured"},
		{"connecting", FeedHeader{Configured: true}, "connecting"},
		{"never synced", FeedHeader{Configured: true, Connected: true}, "live"},
		{"running", FeedHeader{Connected: true, Sync: appsync.SyncStatus{State: appsync.SyncRunning}}, "syncing"},
		{"error", FeedHeader{Connected: true, Sync: appsync.SyncStatus{State: appsync.SyncError}}, "⚠ offline"},
		{"synced", FeedHeader{Connected: true, Sync: appsync.SyncStatus{LastSync: last}}, "updated 09:15:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.header.SyncLabel())
		})
	}
}

func TestRenderHeader_MarksNewActivity(t *testing.T) {
	l := NewLayout(80, 24)

	plain := l.RenderHeader(FeedHeader{Username: "alice", Connected: true})
	assert.NotContains(t, plain, "↑ new")
	assert.Equal(t, 80, lipgloss.Width(plain))

	marked := l.RenderHeader(FeedHeader{Username: "alice", Connected: true, NewActivity: true})
	assert.Contains(t, marked, "↑ new")
	assert.Contains(t, marked, "live")
}

func TestLayout_ContentHeight(t *testing.T) {
	assert.Equal(t, 21, NewLayout(80, 24).ContentHeight())
	assert.Equal(t, 1, NewLayout(80, 2).ContentHeight())
}
