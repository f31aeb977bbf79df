package app

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/store"
	"github.com/nhle/tracimfeed/internal/ui/feed"
	"github.com/nhle/tracimfeed/internal/ui/history"
	"github.com/nhle/tracimfeed/tests/testutil"
)

func newTestModel(t *testing.T, cfg *model.AppConfig) (Model, *store.SQLiteStore) {
	t.Helper()
	st := testutil.NewTestStore(t)
	m := New(Options{
		Config:  cfg,
		Store:   st,
		APIKey:  staticKey,
		SaveKey: func(string, string) error { return nil },
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return next.(Model), st
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInit_UnconfiguredOpensSetup(t *testing.T) {
	m, _ := newTestModel(t, &model.AppConfig{})

	msg := m.Init()()
	m, _ = update(t, m, msg)

	assert.Equal(t, ViewSetup, m.currentView)
	assert.Equal(t, "not configured", m.header().SyncLabel())
}

func TestSnapshotIsShownUntilFirstBatch(t *testing.T) {
	m, st := newTestModel(t, testConfig("https://tracim.example.com"))
	ctx := context.Background()

	require.NoError(t, st.SaveSnapshot(ctx, store.FeedSnapshot{
		FeedKey:     store.FeedKey(1, 0),
		HasNextPage: true,
		Activities: []model.Activity{
			{ID: "content-2", EntityType: model.EntityContent},
			{ID: "content-1", EntityType: model.EntityContent},
		},
	}))

	m, _ = update(t, m, m.restoreSnapshot()())
	require.Equal(t, 2, m.feed.Len())
	assert.True(t, m.feed.Cached())

	m.loadsInFlight = 1
	m, _ = update(t, m, ListPublishedMsg{List: []model.Activity{}})
	assert.Equal(t, 2, m.feed.Len(), "the reset publication keeps the saved feed")

	m, _ = update(t, m, ListPublishedMsg{List: []model.Activity{{ID: "content-3"}}})
	assert.Equal(t, 1, m.feed.Len())
	assert.False(t, m.feed.Cached())
}

func TestFlashMessagesAreShownAndDismissed(t *testing.T) {
	m, st := newTestModel(t, testConfig("https://tracim.example.com"))
	ctx := context.Background()
	require.NoError(t, st.CreateFlashMessage(ctx, model.FlashMessage{
		ID: "a", Level: model.FlashWarning, Message: "Unknown comment",
	}))

	m, _ = update(t, m, m.loadFlashes()())
	require.Len(t, m.flashes, 1)
	assert.Contains(t, m.View(), "Unknown comment")

	m, _ = update(t, m, FlashMsg{Message: model.FlashMessage{ID: "b", Message: "Unknown content"}})
	assert.Equal(t, "b", m.flashes[0].ID)

	m, cmd := update(t, m, keyMsg("d"))
	assert.Empty(t, m.flashes)
	require.NotNil(t, cmd)
	cmd()

	unread, err := st.GetUnreadFlashMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t, testConfig("https://tracim.example.com"))

	m, _ = update(t, m, keyMsg("?"))
	assert.Equal(t, ViewHelp, m.currentView)

	m, _ = update(t, m, keyMsg("?"))
	assert.Equal(t, ViewFeed, m.currentView)
}

func TestQuitFromFeed(t *testing.T) {
	m, _ := newTestModel(t, testConfig("https://tracim.example.com"))

	_, cmd := update(t, m, keyMsg("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestHistoryIgnoresOtherActivities(t *testing.T) {
	m, _ := newTestModel(t, testConfig("https://tracim.example.com"))
	a := model.Activity{
		ID:         "content-5",
		EntityType: model.EntityContent,
		Content:    &model.Content{ContentID: 5, Label: "Plan"},
		EventList:  []model.Message{{EventID: 1, EventType: "content.created.file"}},
	}

	m, _ = update(t, m, feed.SelectedActivityMsg{Activity: a})
	assert.Equal(t, ViewHistory, m.currentView)

	m, _ = update(t, m, EventListMsg{ActivityID: "content-9", Events: []model.Message{{EventID: 99}}})
	m, _ = update(t, m, EventListMsg{ActivityID: "content-5", Events: []model.Message{
		{EventID: 7, EventType: "content.modified.file"},
	}})
	view := m.View()
	assert.Contains(t, view, "content.modified.file")
	assert.NotContains(t, view, "Loading latest events")

	m, _ = update(t, m, history.BackMsg{})
	assert.Equal(t, ViewFeed, m.currentView)
}

func TestServicesReadyFailureShowsStatus(t *testing.T) {
	m, _ := newTestModel(t, testConfig("https://tracim.example.com"))

	m, _ = update(t, m, servicesReadyMsg{err: assert.AnError})
	assert.Contains(t, m.keyHints(), "Could not connect")
	assert.Equal(t, "connecting", m.header().SyncLabel())
}

func TestForgetSnapshotDropsSavedFeed(t *testing.T) {
	m, st := newTestModel(t, testConfig("https://tracim.example.com"))
	ctx := context.Background()
	key := store.FeedKey(1, 0)
	require.NoError(t, st.SaveSnapshot(ctx, store.FeedSnapshot{
		FeedKey:    key,
		Activities: []model.Activity{{ID: "content-1", EntityType: model.EntityContent}},
	}))

	assert.Nil(t, m.forgetSnapshot(key)())

	_, err := st.LoadSnapshot(ctx, key)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCopyLinkFlashesConfirmation(t *testing.T) {
	srv := newFakeTracim(t)
	cfg := testConfig(srv.URL)
	st := testutil.NewTestStore(t)
	var copied []string
	m := New(Options{
		Config:  cfg,
		Store:   st,
		APIKey:  staticKey,
		SaveKey: func(string, string) error { return nil },
		CopyText: func(text string) error {
			copied = append(copied, text)
			return nil
		},
	})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})

	svc, err := NewServices(context.Background(), cfg, st, staticKey, nil)
	require.NoError(t, err)
	defer svc.Close()
	m.svc = svc
	m.feed.SetActivities([]model.Activity{{
		ID:         "content-11",
		EntityType: model.EntityContent,
		Content:    &model.Content{ContentID: 42, ParentID: 11, ContentType: model.ContentTypeComment},
	}}, false)

	_, cmd := update(t, m, keyMsg("y"))
	require.NotNil(t, cmd)
	assert.Nil(t, cmd())
	assert.Equal(t, []string{srv.URL + "/ui/contents/11"}, copied)

	flash, ok := svc.Bridge.Wait()().(FlashMsg)
	require.True(t, ok)
	assert.Equal(t, model.FlashInfo, flash.Message.Level)
	assert.Equal(t, "The link has been copied to clipboard", flash.Message.Message)

	unread, err := st.GetUnreadFlashMessages(context.Background())
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}
