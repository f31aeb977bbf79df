package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/tracim"
)

// Defaults taken from the web client.
const (
	DefaultActivitiesPerPage = 15
	DefaultBatchCount        = 5
	// Building an activity takes three messages on average.
	DefaultMessagesPerActivity = 3
	DefaultHistoryCount        = 5
)

// FeedAPI is the part of the Tracim API the controller consumes.
type FeedAPI interface {
	FetchNotificationPage(ctx context.Context, userID int, req tracim.PageRequest) (*model.MessagePage, error)
	GetContent(ctx context.Context, contentID int) (*model.Content, error)
	GetComment(ctx context.Context, workspaceID, contentID, commentID int) (*model.Content, error)
}

// invalidator is implemented by content fetchers that cache records.
type invalidator interface {
	Invalidate(ctx context.Context, contentID int) error
}

// Publisher receives every state the controller publishes. A publication
// is a PublishList call followed by PublishPagination.
type Publisher interface {
	PublishList(list []model.Activity)
	PublishPagination(hasNextPage bool, nextPageToken string)
	PublishEventList(activityID string, events []model.Message)
}

// Notifier surfaces non-fatal messages to the user.
type Notifier interface {
	Notify(level model.FlashLevel, message string)
}

// Scope restricts which events count towards the list.
type Scope struct {
	// WorkspaceID limits the feed to one workspace when non-zero.
	WorkspaceID int
}

// Config tunes a Controller.
type Config struct {
	UserID              int
	BatchCount          int
	MessagesPerActivity int
	HistoryCount        int
}

func (c Config) withDefaults() Config {
	if c.BatchCount <= 0 {
		c.BatchCount = DefaultBatchCount
	}
	if c.MessagesPerActivity <= 0 {
		c.MessagesPerActivity = DefaultMessagesPerActivity
	}
	if c.HistoryCount <= 0 {
		c.HistoryCount = DefaultHistoryCount
	}
	return c
}

// State is the published activity list with its pagination cursor.
type State struct {
	List          []model.Activity
	HasNextPage   bool
	NextPageToken string
}

func initialState() State {
	return State{List: []model.Activity{}, HasNextPage: true}
}

func (s State) clone() State {
	s.List = append([]model.Activity(nil), s.List...)
	return s
}

// Controller owns the activity list of one mounted feed. Every mutation
// holds a single-slot semaphore for its whole duration, so mutations never
// interleave even though their network fetches may overlap.
type Controller struct {
	cfg     Config
	api     FeedAPI
	pub     Publisher
	notify  Notifier
	visible VisibilityFunc
	log     *zap.Logger

	sem *semaphore.Weighted

	mu          sync.Mutex
	state       State
	scope       Scope
	workspaces  []model.Workspace
	showRefresh bool
	cancelLoad  context.CancelFunc
	loadSeq     uint64
}

// NewController creates a controller with an empty list. visible defaults
// to DisplayFilter and log to a no-op logger.
func NewController(
	cfg Config,
	api FeedAPI,
	pub Publisher,
	notify Notifier,
	visible VisibilityFunc,
	log *zap.Logger,
) *Controller {
	if visible == nil {
		visible = DisplayFilter
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		cfg:     cfg.withDefaults(),
		api:     api,
		pub:     pub,
		notify:  notify,
		visible: visible,
		log:     log.Named("activity"),
		sem:     semaphore.NewWeighted(1),
		state:   initialState(),
	}
}

// Snapshot returns a copy of the last published state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// ShowRefresh reports whether live events left the list out of order.
func (c *Controller) ShowRefresh() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showRefresh
}

// ClearShowRefresh resets the refresh flag without reordering.
func (c *Controller) ClearShowRefresh() {
	c.mu.Lock()
	c.showRefresh = false
	c.mu.Unlock()
}

// SetWorkspaces records the workspaces the user belongs to; they feed the
// visibility predicate of subsequent loads.
func (c *Controller) SetWorkspaces(workspaces []model.Workspace) {
	c.mu.Lock()
	c.workspaces = append([]model.Workspace(nil), workspaces...)
	c.mu.Unlock()
}

// LoadActivities grows the list until it holds at least minCount
// activities or the stream is exhausted. Each batch is published as soon
// as it is merged. With resetList, any in-flight load is cancelled and the
// list restarts from the newest event.
//
// Cancellation returns nil and leaves the last published state untouched.
// A page fetch failure is logged and returned; state is left as last
// published.
func (c *Controller) LoadActivities(
	ctx context.Context,
	minCount int,
	resetList bool,
	scope Scope,
) error {
	if resetList {
		c.CancelCurrentLoad()
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.log.Debug("load abandoned while waiting", zap.Error(err))
		return nil
	}
	defer c.sem.Release(1)

	loadCtx, done := c.beginLoad(ctx)
	defer done()

	c.mu.Lock()
	state := c.state.clone()
	workspaces := c.workspaces
	c.scope = scope
	c.mu.Unlock()

	if resetList {
		c.mu.Lock()
		c.showRefresh = false
		c.mu.Unlock()
		state = initialState()
		c.publish(state)
	}

	for state.HasNextPage && len(state.List) < minCount {
		next, err := c.loadBatch(loadCtx, state, scope, workspaces)
		if loadCtx.Err() != nil {
			c.log.Debug("load cancelled",
				zap.Int("published", len(state.List)),
			)
			return nil
		}
		if err != nil {
			c.log.Error("loading activities failed",
				zap.Int("user_id", c.cfg.UserID),
				zap.Int("workspace_id", scope.WorkspaceID),
				zap.Error(err),
			)
			return fmt.Errorf("loading activities: %w", err)
		}
		state = next
		c.publish(state)
	}

	return nil
}

// beginLoad registers a cancellable context as the current load. The
// returned func unregisters it if no newer load replaced it.
func (c *Controller) beginLoad(ctx context.Context) (context.Context, func()) {
	loadCtx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	c.loadSeq++
	seq := c.loadSeq
	c.cancelLoad = cancel
	c.mu.Unlock()

	return loadCtx, func() {
		c.mu.Lock()
		if c.loadSeq == seq {
			c.cancelLoad = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

// loadBatch fetches pages until BatchCount new activities were merged or
// the stream is exhausted.
func (c *Controller) loadBatch(
	ctx context.Context,
	state State,
	scope Scope,
	workspaces []model.Workspace,
) (State, error) {
	goal := len(state.List) + c.cfg.BatchCount
	list := state.List

	for state.HasNextPage && len(list) < goal {
		page, err := c.api.FetchNotificationPage(ctx, c.cfg.UserID, tracim.PageRequest{
			PageToken:        state.NextPageToken,
			Count:            c.cfg.BatchCount * c.cfg.MessagesPerActivity,
			WorkspaceID:      scope.WorkspaceID,
			RecentActivities: true,
			IncludeNotSent:   true,
		})
		if err != nil {
			return state, err
		}
		if err := ctx.Err(); err != nil {
			return state, err
		}

		merged, created := appendHistory(page.Items, list)
		if err := c.enrichCreated(ctx, merged, created); err != nil {
			return state, err
		}

		list = make([]model.Activity, 0, len(merged))
		for _, a := range merged {
			if inScope(a, scope.WorkspaceID) && c.visible(a, workspaces, c.cfg.UserID) {
				list = append(list, a)
			}
		}

		exhausted := len(page.Items) == 0 && page.NextPageToken == state.NextPageToken
		state.HasNextPage = page.HasNext && !exhausted
		state.NextPageToken = page.NextPageToken
	}

	state.List = list
	return state, nil
}

// enrichCreated replaces the content of freshly created content activities
// with the current record. A missing record keeps the event's content.
func (c *Controller) enrichCreated(ctx context.Context, list []model.Activity, created []int) error {
	for _, i := range created {
		contentID := contentIDFor(list[i].NewestMessage)
		if contentID == 0 {
			continue
		}
		content, err := c.api.GetContent(ctx, contentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.log.Warn("content lookup failed, keeping event content",
				zap.String("activity_id", list[i].ID),
				zap.Error(err),
			)
			continue
		}
		list[i].Content = content
	}
	return nil
}

// publish stores state as the current one and forwards it to the publisher.
// Callers hold the semaphore.
func (c *Controller) publish(state State) {
	c.mu.Lock()
	c.state = state.clone()
	c.mu.Unlock()

	if c.pub != nil {
		c.pub.PublishList(state.clone().List)
		c.pub.PublishPagination(state.HasNextPage, state.NextPageToken)
	}
}

// publishList replaces only the list. The unchanged cursor is published
// again so every publication ends with PublishPagination.
func (c *Controller) publishList(list []model.Activity) {
	c.mu.Lock()
	c.state.List = append([]model.Activity(nil), list...)
	hasNext, token := c.state.HasNextPage, c.state.NextPageToken
	c.mu.Unlock()

	if c.pub != nil {
		c.pub.PublishList(append([]model.Activity(nil), list...))
		c.pub.PublishPagination(hasNext, token)
	}
}

// MergeLiveEvent folds one pushed event into the list. Comment and content
// events are enriched first; a failed lookup substitutes a placeholder and
// notifies the user. Only a context error while waiting or enriching is
// returned.
func (c *Controller) MergeLiveEvent(ctx context.Context, ev model.Message) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	c.mu.Lock()
	scope := c.scope
	c.mu.Unlock()
	if scope.WorkspaceID != 0 && ev.WorkspaceID() != scope.WorkspaceID {
		return nil
	}

	enriched, err := c.enrichLive(ctx, ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	current := c.state.List
	c.mu.Unlock()

	updated, changed := AddLiveMessage(enriched, current)
	if changed {
		c.publishList(updated)
	}

	if defersResort(ev) {
		show := len(updated) > 0 && updated[0].NewestMessage.EventID != ev.EventID
		c.mu.Lock()
		c.showRefresh = show
		c.mu.Unlock()
	}

	return nil
}

// enrichLive returns ev with its content replaced by the full record, or a
// placeholder when the record cannot be fetched.
func (c *Controller) enrichLive(ctx context.Context, ev model.Message) (model.Message, error) {
	content := ev.Fields.Content
	if content == nil {
		return ev, nil
	}

	entity := ev.EventType.Entity()
	switch {
	case ev.IsAboutComment():
		comment, err := c.api.GetComment(ctx, ev.WorkspaceID(), content.ParentID, content.ContentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ev, ctxErr
			}
			c.enrichmentFailed(ev, err, "Unknown comment")
			placeholder := *content
			placeholder.Placeholder = model.PlaceholderUnknownComment
			return ev.WithContent(placeholder), nil
		}
		return ev.WithContent(content.Overlay(*comment)), nil

	case (entity == model.EntityContent && !ev.EventType.IsTodo()) || entity == model.EntityMention:
		if inv, ok := c.api.(invalidator); ok && entity == model.EntityContent {
			if err := inv.Invalidate(ctx, content.ContentID); err != nil {
				c.log.Debug("content cache invalidation failed", zap.Error(err))
			}
		}
		fetched, err := c.api.GetContent(ctx, content.ContentID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ev, ctxErr
			}
			c.enrichmentFailed(ev, err, "Unknown content")
			placeholder := *content
			placeholder.Placeholder = model.PlaceholderUnknownContent
			return ev.WithContent(placeholder), nil
		}
		return ev.WithContent(content.Overlay(*fetched)), nil
	}

	return ev, nil
}

func (c *Controller) enrichmentFailed(ev model.Message, err error, userMessage string) {
	level := zap.WarnLevel
	if !errors.Is(err, tracim.ErrNotFound) {
		level = zap.ErrorLevel
	}
	c.log.Log(level, "live event enrichment failed",
		zap.Int("event_id", ev.EventID),
		zap.String("event_type", string(ev.EventType)),
		zap.Error(err),
	)
	if c.notify != nil {
		c.notify.Notify(model.FlashWarning, userMessage)
	}
}

// ResortForRefresh orders the list by newest message and clears the
// refresh flag. It waits for any in-progress mutation to finish.
func (c *Controller) ResortForRefresh() {
	_ = c.sem.Acquire(context.Background(), 1)
	defer c.sem.Release(1)

	c.mu.Lock()
	sorted := SortActivityList(c.state.List)
	c.showRefresh = false
	c.mu.Unlock()

	c.publishList(sorted)
}

// CancelCurrentLoad cancels the in-flight LoadActivities call, if any.
func (c *Controller) CancelCurrentLoad() {
	c.mu.Lock()
	cancel := c.cancelLoad
	c.cancelLoad = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Close tears the controller down; an in-flight load is cancelled.
func (c *Controller) Close() {
	c.CancelCurrentLoad()
}

// LoadEventList fetches the most recent events of an activity's content and
// publishes them as that activity's event list.
func (c *Controller) LoadEventList(ctx context.Context, a model.Activity) error {
	if a.Content == nil {
		return nil
	}
	page, err := c.api.FetchNotificationPage(ctx, c.cfg.UserID, tracim.PageRequest{
		Count:            c.cfg.HistoryCount,
		RelatedContentID: a.Content.ContentID,
		WorkspaceID:      a.WorkspaceID(),
		RecentActivities: true,
		IncludeNotSent:   true,
	})
	if err != nil {
		return fmt.Errorf("loading events of %s: %w", a.ID, err)
	}
	if c.pub != nil {
		c.pub.PublishEventList(a.ID, page.Items)
	}
	return nil
}
