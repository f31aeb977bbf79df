package sync

import (
	"context"
	"fmt"
	"sort"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/tracim"
)

// SyncState represents the current state of the live event poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poller state.
type SyncStatus struct {
	State     SyncState
	LastSync  time.Time
	HighWater int
	Error     error
}

// SyncResultMsg is a tea.Msg sent when a poll completes.
type SyncResultMsg struct {
	// Delivered is how many new events were handed to the sink.
	Delivered int
	Error     error
	AuthError *AuthErrorMsg
}

// AuthErrorMsg is a tea.Msg sent when the server rejects the credentials.
type AuthErrorMsg struct {
	Message string
}

// fetchTimeout is the maximum time allowed for a single poll.
const fetchTimeout = 30 * time.Second

// defaultInterval applies when Config.Interval is not set.
const defaultInterval = 15 * time.Second

// EventSource is where live events are read from.
type EventSource interface {
	FetchNotificationPage(ctx context.Context, userID int, req tracim.PageRequest) (*model.MessagePage, error)
}

// EventSink receives live events, oldest first.
type EventSink interface {
	MergeLiveEvent(ctx context.Context, ev model.Message) error
}

// Config tunes a Poller.
type Config struct {
	UserID int
	// WorkspaceID restricts polling to one space when set.
	WorkspaceID int
	Interval    time.Duration
	// PageSize is how many events each page request reads.
	PageSize int
}

// Poller reads the newest events of the user's notification stream on an
// interval and forwards the ones it has not seen yet to the sink. The first
// poll only records the newest event id, since the initial load already
// shows everything older.
type Poller struct {
	src  EventSource
	sink EventSink
	cfg  Config
	log  *zap.Logger

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	// pollMu serializes polls so the high-water mark advances in order.
	pollMu gosync.Mutex

	mu      gosync.Mutex
	status  SyncStatus
	primed  bool
	running bool
}

// New creates a new Poller.
func New(src EventSource, sink EventSink, cfg Config, log *zap.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 15
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		src:       src,
		sink:      sink,
		cfg:       cfg,
		log:       log.Named("poller"),
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start returns a tea.Cmd that starts the polling goroutine and
// subscribes to results.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	close(p.stopCh)
	p.running = false
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// a poll is already pending
	}
	return nil
}

// Rebase forgets the high-water mark; the next poll records a new one
// without delivering anything. Used after the feed was reloaded.
func (p *Poller) Rebase() {
	p.mu.Lock()
	p.primed = false
	p.status.HighWater = 0
	p.mu.Unlock()
}

// Status returns the current poller status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.pollAndSend()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.pollAndSend()
		case <-p.triggerCh:
			p.pollAndSend()
		}
	}
}

func (p *Poller) pollAndSend() {
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	delivered, err := p.Poll(ctx)
	if err != nil {
		if tracim.IsAuthError(err) {
			p.sendResult(SyncResultMsg{
				Error: err,
				AuthError: &AuthErrorMsg{
					Message: "Tracim: authentication failed. Press 'c' to reconfigure.",
				},
			})
			return
		}
		p.sendResult(SyncResultMsg{Error: err})
		return
	}
	p.sendResult(SyncResultMsg{Delivered: delivered})
}

// maxCatchUpPages bounds how far back one poll pages to reach the
// high-water mark.
const maxCatchUpPages = 20

// Poll performs one poll and returns how many events were delivered.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	p.setStatus(SyncRunning, nil)

	p.mu.Lock()
	highWater := p.status.HighWater
	primed := p.primed
	p.mu.Unlock()

	fresh, newest, err := p.fetchSince(ctx, highWater, primed)
	if err != nil {
		p.setStatus(SyncError, err)
		p.log.Warn("live event poll failed", zap.Error(err))
		return 0, fmt.Errorf("polling live events: %w", err)
	}

	if !primed {
		p.mu.Lock()
		p.primed = true
		p.status.HighWater = newest
		p.mu.Unlock()
		p.setStatus(SyncIdle, nil)
		p.log.Debug("live event poller primed", zap.Int("high_water", newest))
		return 0, nil
	}

	sort.Slice(fresh, func(i, j int) bool { return fresh[i].EventID < fresh[j].EventID })

	delivered := 0
	for _, msg := range fresh {
		if err := p.sink.MergeLiveEvent(ctx, msg); err != nil {
			p.setStatus(SyncError, err)
			return delivered, fmt.Errorf("merging event %d: %w", msg.EventID, err)
		}
		delivered++
		p.mu.Lock()
		p.status.HighWater = msg.EventID
		p.mu.Unlock()
	}

	p.setStatus(SyncIdle, nil)
	if delivered > 0 {
		p.log.Debug("live events delivered", zap.Int("count", delivered))
	}
	return delivered, nil
}

// fetchSince pages back through the stream until it reaches highWater or
// the stream ends, and returns the unseen events with the newest event id.
// An unprimed poller only needs the first page.
func (p *Poller) fetchSince(ctx context.Context, highWater int, primed bool) ([]model.Message, int, error) {
	var fresh []model.Message
	seen := make(map[int]struct{})
	newest := highWater
	token := ""

	for pages := 0; ; pages++ {
		if pages == maxCatchUpPages {
			p.log.Warn("live event backlog too long, older events skipped",
				zap.Int("high_water", highWater),
				zap.Int("pages", pages),
			)
			break
		}

		page, err := p.src.FetchNotificationPage(ctx, p.cfg.UserID, tracim.PageRequest{
			PageToken:        token,
			Count:            p.cfg.PageSize,
			WorkspaceID:      p.cfg.WorkspaceID,
			RecentActivities: true,
			IncludeNotSent:   true,
		})
		if err != nil {
			return nil, 0, err
		}

		reached := false
		for _, msg := range page.Items {
			if msg.EventID > newest {
				newest = msg.EventID
			}
			if msg.EventID <= highWater {
				reached = true
				continue
			}
			if _, dup := seen[msg.EventID]; dup {
				continue
			}
			seen[msg.EventID] = struct{}{}
			fresh = append(fresh, msg)
		}

		if !primed || reached || !page.HasNext || len(page.Items) == 0 || page.NextPageToken == token {
			break
		}
		token = page.NextPageToken
	}

	return fresh, newest, nil
}

// setStatus updates the poller status.
func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle && err == nil {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if channel is full to avoid blocking the poller
	}
}

// waitForResult returns a tea.Cmd that waits for the next result.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		result, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return result
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// This should be called after processing a SyncResultMsg to continue
// listening for future results.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
