package app

import (
	"context"
	"errors"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tracimfeed/internal/credential"
	"github.com/nhle/tracimfeed/internal/keys"
	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/store"
	appsync "github.com/nhle/tracimfeed/internal/sync"
	"github.com/nhle/tracimfeed/internal/tracim"
	"github.com/nhle/tracimfeed/internal/ui"
	"github.com/nhle/tracimfeed/internal/ui/feed"
	helpview "github.com/nhle/tracimfeed/internal/ui/help"
	"github.com/nhle/tracimfeed/internal/ui/history"
	"github.com/nhle/tracimfeed/internal/ui/setup"
)

// connectTimeout bounds building the services and fetching workspaces.
const connectTimeout = 30 * time.Second

// servicesReadyMsg is sent when the feed services were built.
type servicesReadyMsg struct {
	svc *Services
	err error
}

// loadDoneMsg is sent when a LoadActivities call returns.
type loadDoneMsg struct {
	err error
}

// historyFailedMsg is sent when an activity's history could not be loaded.
type historyFailedMsg struct {
	activityID string
	err        error
}

// snapshotLoadedMsg carries the saved feed of the current scope.
type snapshotLoadedMsg struct {
	snap *store.FeedSnapshot
}

// flashesLoadedMsg carries the unread flash messages.
type flashesLoadedMsg struct {
	messages []model.FlashMessage
}

// configSavedMsg is sent after the setup form was written to disk.
type configSavedMsg struct {
	err error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewFeed ViewState = iota
	ViewHistory
	ViewHelp
	ViewSetup
)

// Options configures the root model.
type Options struct {
	Config     *model.AppConfig
	ConfigPath string
	Store      *store.SQLiteStore
	Logger     *zap.Logger

	// APIKey overrides the keyring lookup.
	APIKey APIKeyFunc
	// Validate and SaveKey override the setup form's credential handling.
	Validate setup.Validator
	SaveKey  setup.KeySaver
	// CopyText writes to the system clipboard.
	CopyText func(text string) error
}

// Model is the root Bubble Tea model. It routes views and forwards user
// intents to the activity controller; the list it shows is whatever the
// controller last published.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	opts         Options
	cfg          *model.AppConfig
	store        *store.SQLiteStore
	log          *zap.Logger
	keys         *keys.KeyMap

	feed     feed.Model
	history  history.Model
	helpView helpview.Model
	setup    setup.Model

	svc           *Services
	loadsInFlight int
	flashes       []model.FlashMessage

	ready            bool
	authErrorMessage string
	statusMessage    string
}

// New creates a new root application model.
func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.SaveKey == nil {
		opts.SaveKey = credential.SetAPIKey
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}
	k := keys.DefaultKeyMap()

	return Model{
		currentView: ViewFeed,
		opts:        opts,
		cfg:         opts.Config,
		store:       opts.Store,
		log:         log.Named("app"),
		keys:        k,
		feed:        feed.New(k, 80, 24),
		history:     history.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		setup:       setup.New(opts.Config, opts.Validate, opts.SaveKey, 80, 24),
	}
}

// Init shows the setup form on first run, and otherwise restores the saved
// feed while connecting to the server.
func (m Model) Init() tea.Cmd {
	if !m.cfg.IsConfigured() {
		return func() tea.Msg { return openSetupMsg{} }
	}
	return tea.Batch(
		m.restoreSnapshot(),
		m.loadFlashes(),
		m.connect(),
	)
}

// openSetupMsg switches to the setup view.
type openSetupMsg struct{}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.feed.SetSize(w, h)
		m.history.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.setup.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case openSetupMsg:
		cmd := m.openSetup()
		return m, cmd

	case servicesReadyMsg:
		if msg.err != nil {
			m.log.Error("connecting feed failed", zap.Error(msg.err))
			if errors.Is(msg.err, credential.ErrNoAPIKey) {
				cmd := m.openSetup()
				return m, cmd
			}
			m.statusMessage = "Could not connect: " + msg.err.Error()
			return m, nil
		}
		m.svc = msg.svc
		m.statusMessage = ""
		load := m.startLoad(m.cfg.Feed.ActivitiesPerPage, true)
		return m, tea.Batch(
			m.svc.Bridge.Wait(),
			m.svc.Poller.Start(),
			load,
		)

	case ListPublishedMsg:
		// A reset first publishes an empty list; keep showing the saved
		// feed until the first batch arrives.
		if !(len(msg.List) == 0 && m.feed.Cached() && m.loadsInFlight > 0) {
			cmd := m.feed.SetActivities(msg.List, false)
			m.syncRefreshBanner()
			return m, tea.Batch(cmd, m.waitBridge())
		}
		return m, m.waitBridge()

	case PaginationMsg:
		m.feed.SetPagination(msg.HasNextPage)
		return m, m.waitBridge()

	case EventListMsg:
		m.history.SetEvents(msg.ActivityID, msg.Events)
		return m, m.waitBridge()

	case FlashMsg:
		m.flashes = append([]model.FlashMessage{msg.Message}, m.flashes...)
		return m, m.waitBridge()

	case loadDoneMsg:
		if m.loadsInFlight > 0 {
			m.loadsInFlight--
		}
		if m.loadsInFlight == 0 {
			m.feed.SetLoading(false)
		}
		if msg.err != nil {
			m.statusMessage = "Loading activities failed. Press R to retry."
			if tracim.IsAuthError(msg.err) {
				m.authErrorMessage = authFailedMessage
			}
		}
		return m, nil

	case appsync.SyncResultMsg:
		if msg.AuthError != nil {
			m.authErrorMessage = msg.AuthError.Message
		} else if msg.Error == nil {
			m.authErrorMessage = ""
		}
		m.syncRefreshBanner()
		if m.svc == nil {
			return m, nil
		}
		return m, m.svc.Poller.WaitForNextResult()

	case snapshotLoadedMsg:
		if msg.snap != nil && m.feed.Len() == 0 {
			cmd := m.feed.SetActivities(msg.snap.Activities, true)
			m.feed.SetPagination(msg.snap.HasNextPage)
			return m, cmd
		}
		return m, nil

	case flashesLoadedMsg:
		m.flashes = msg.messages
		return m, nil

	case feed.SelectedActivityMsg:
		m.previousView = m.currentView
		m.currentView = ViewHistory
		m.history.SetActivity(msg.Activity)
		return m, m.loadHistory(msg.Activity)

	case historyFailedMsg:
		if msg.activityID == m.history.ActivityID() {
			m.history.SetError(msg.err)
		}
		return m, nil

	case history.BackMsg:
		m.currentView = ViewFeed
		return m, nil

	case setup.DoneMsg:
		// Feed keys do not name the server, so the snapshot of the
		// previous server is dropped before anything is restored.
		var stale string
		if m.cfg.IsConfigured() && m.cfg.Server.BaseURL != msg.Server.BaseURL {
			stale = store.FeedKey(m.cfg.Server.UserID, m.cfg.Feed.WorkspaceID)
		}
		m.cfg.Server = msg.Server
		m.cfg.Feed.WorkspaceID = msg.WorkspaceID
		restore := m.restoreSnapshot()
		if stale != "" {
			restore = tea.Sequence(m.forgetSnapshot(stale), restore)
		}
		m.currentView = ViewFeed
		m.authErrorMessage = ""
		m.feed.SetActivities(nil, false)
		m.feed.SetShowRefresh(false)
		m.closeServices()
		return m, tea.Batch(
			m.saveConfig(),
			restore,
			m.loadFlashes(),
			m.connect(),
		)

	case setup.CancelMsg:
		if !m.cfg.IsConfigured() {
			m.closeServices()
			return m, tea.Quit
		}
		m.currentView = ViewFeed
		return m, nil

	case configSavedMsg:
		if msg.err != nil {
			m.statusMessage = "Saving configuration failed: " + msg.err.Error()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeServices()
			return m, tea.Quit
		}
		if m.currentView == ViewSetup {
			break
		}

		switch {
		case key.Matches(msg, m.keys.Help):
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case m.currentView == ViewHelp && key.Matches(msg, m.keys.Back):
			m.currentView = m.previousView
			return m, nil
		}

		if m.currentView == ViewFeed {
			if handled, next, cmd := m.handleFeedKeys(msg); handled {
				return next, cmd
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// authFailedMessage is shown when the server rejects the credentials.
const authFailedMessage = "Tracim: authentication failed. Press 'c' to reconfigure."

// handleFeedKeys maps feed keys onto controller operations.
func (m Model) handleFeedKeys(msg tea.KeyMsg) (bool, Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeServices()
		return true, m, tea.Quit

	case key.Matches(msg, m.keys.Configure):
		cmd := m.openSetup()
		return true, m, cmd

	case key.Matches(msg, m.keys.DismissFlash):
		m.flashes = nil
		return true, m, m.dismissFlashes()
	}

	if m.svc == nil {
		return false, m, nil
	}

	switch {
	case key.Matches(msg, m.keys.LoadMore):
		if !m.feed.HasNextPage() {
			return true, m, nil
		}
		cmd := m.startLoad(m.feed.Len()+m.cfg.Feed.ActivitiesPerPage, false)
		return true, m, cmd

	case key.Matches(msg, m.keys.Resort):
		m.feed.SetShowRefresh(false)
		ctrl := m.svc.Controller
		return true, m, func() tea.Msg {
			ctrl.ResortForRefresh()
			return nil
		}

	case key.Matches(msg, m.keys.Reload):
		m.svc.Controller.ClearShowRefresh()
		m.feed.SetShowRefresh(false)
		m.svc.Poller.Rebase()
		m.statusMessage = ""
		cmd := m.startLoad(m.cfg.Feed.ActivitiesPerPage, true)
		return true, m, tea.Batch(cmd, m.svc.Poller.Refresh())

	case key.Matches(msg, m.keys.CancelLoad):
		m.svc.Controller.CancelCurrentLoad()
		return true, m, nil

	case key.Matches(msg, m.keys.CopyLink):
		a, ok := m.feed.SelectedActivity()
		if !ok || a.LinkContentID() == 0 {
			return true, m, nil
		}
		return true, m, m.copyLink(a)
	}

	return false, m, nil
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewFeed:
		m.feed, cmd = m.feed.Update(msg)
	case ViewHistory:
		m.history, cmd = m.history.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewSetup:
		m.setup, cmd = m.setup.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.header())
	var flash string
	if m.currentView == ViewFeed {
		flash = m.layout.RenderFlash(m.flashes)
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, flash, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewFeed:
		return m.feed.View()
	case ViewHistory:
		return m.history.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewSetup:
		return m.setup.View()
	default:
		return ""
	}
}

// header collects what the header shows about the feed.
func (m Model) header() ui.FeedHeader {
	h := ui.FeedHeader{
		Username:    m.cfg.Server.Username,
		WorkspaceID: m.cfg.Feed.WorkspaceID,
		Unread:      len(m.flashes),
		Configured:  m.cfg.IsConfigured(),
		NewActivity: m.feed.ShowRefresh(),
	}
	if m.svc != nil {
		h.Connected = true
		h.Sync = m.svc.Poller.Status()
	}
	return h
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	// Show auth error prominently when present.
	if m.authErrorMessage != "" && m.currentView == ViewFeed {
		return m.authErrorMessage
	}
	if m.statusMessage != "" && m.currentView == ViewFeed {
		return m.statusMessage
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewHistory:
		return "esc back | j/k scroll"
	case ViewSetup:
		return "enter next | esc cancel"
	default:
		return "q quit | ? help | enter history | n more | r new on top | R reload | x cancel | y copy link"
	}
}

// openSetup switches to the setup form.
func (m *Model) openSetup() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewSetup
	return m.setup.Init()
}

// connect builds the services of the configured feed.
func (m Model) connect() tea.Cmd {
	cfg := *m.cfg
	st := m.store
	apiKey := m.opts.APIKey
	log := m.log

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		svc, err := NewServices(ctx, &cfg, st, apiKey, log)
		if err != nil {
			return servicesReadyMsg{err: err}
		}
		svc.LoadWorkspaces(ctx)
		return servicesReadyMsg{svc: svc}
	}
}

// closeServices tears the current services down.
func (m *Model) closeServices() {
	if m.svc != nil {
		m.svc.Close()
		m.svc = nil
	}
	m.loadsInFlight = 0
	m.feed.SetLoading(false)
}

// waitBridge re-subscribes to the current bridge.
func (m Model) waitBridge() tea.Cmd {
	if m.svc == nil {
		return nil
	}
	return m.svc.Bridge.Wait()
}

// syncRefreshBanner mirrors the controller's refresh flag in the feed.
func (m *Model) syncRefreshBanner() {
	if m.svc == nil {
		return
	}
	m.feed.SetShowRefresh(m.svc.Controller.ShowRefresh())
}

// startLoad asks the controller for at least minCount activities.
func (m *Model) startLoad(minCount int, reset bool) tea.Cmd {
	ctrl := m.svc.Controller
	scope := m.svc.Scope
	m.loadsInFlight++
	spin := m.feed.SetLoading(true)

	load := func() tea.Msg {
		return loadDoneMsg{err: ctrl.LoadActivities(context.Background(), minCount, reset, scope)}
	}
	return tea.Batch(spin, load)
}

// loadHistory fetches the latest events of a.
func (m Model) loadHistory(a model.Activity) tea.Cmd {
	if m.svc == nil {
		return nil
	}
	ctrl := m.svc.Controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		if err := ctrl.LoadEventList(ctx, a); err != nil {
			return historyFailedMsg{activityID: a.ID, err: err}
		}
		return nil
	}
}

// restoreSnapshot loads the saved feed of the configured scope.
func (m Model) restoreSnapshot() tea.Cmd {
	st := m.store
	key := store.FeedKey(m.cfg.Server.UserID, m.cfg.Feed.WorkspaceID)
	log := m.log
	return func() tea.Msg {
		snap, err := st.LoadSnapshot(context.Background(), key)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Warn("loading saved feed failed", zap.String("feed", key), zap.Error(err))
			}
			return snapshotLoadedMsg{}
		}
		return snapshotLoadedMsg{snap: snap}
	}
}

// copyLink copies the web address of the activity's content and reports
// the outcome as a flash message.
func (m Model) copyLink(a model.Activity) tea.Cmd {
	link := tracim.ContentURL(m.cfg.Server.BaseURL, a.LinkContentID())
	copyText := m.opts.CopyText
	notifier := m.svc.Notifier
	log := m.log
	return func() tea.Msg {
		if err := copyText(link); err != nil {
			log.Warn("copying link failed", zap.String("link", link), zap.Error(err))
			notifier.Notify(model.FlashWarning, "The link could not be copied to the clipboard")
			return nil
		}
		notifier.Notify(model.FlashInfo, "The link has been copied to clipboard")
		return nil
	}
}

// forgetSnapshot deletes the saved feed feedKey.
func (m Model) forgetSnapshot(feedKey string) tea.Cmd {
	st := m.store
	log := m.log
	return func() tea.Msg {
		if err := st.DeleteSnapshot(context.Background(), feedKey); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn("dropping saved feed failed", zap.String("feed", feedKey), zap.Error(err))
		}
		return nil
	}
}

// loadFlashes reads the unread flash messages.
func (m Model) loadFlashes() tea.Cmd {
	st := m.store
	log := m.log
	return func() tea.Msg {
		messages, err := st.GetUnreadFlashMessages(context.Background())
		if err != nil {
			log.Warn("loading flash messages failed", zap.Error(err))
		}
		return flashesLoadedMsg{messages: messages}
	}
}

// dismissFlashes marks every flash message read.
func (m Model) dismissFlashes() tea.Cmd {
	st := m.store
	log := m.log
	return func() tea.Msg {
		if err := st.MarkAllFlashRead(context.Background()); err != nil {
			log.Warn("dismissing flash messages failed", zap.Error(err))
		}
		return nil
	}
}

// saveConfig writes the configuration back to disk.
func (m Model) saveConfig() tea.Cmd {
	cfg := *m.cfg
	path := m.opts.ConfigPath
	return func() tea.Msg {
		if path == "" {
			return configSavedMsg{}
		}
		return configSavedMsg{err: model.SaveConfig(path, &cfg)}
	}
}

// Close releases the services; the caller owns the store.
func (m Model) Close() {
	if m.svc != nil {
		m.svc.Close()
	}
}
