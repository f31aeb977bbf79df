package activity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tracimfeed/internal/model"
	"github.com/nhle/tracimfeed/internal/tracim"
)

// --- Fakes ---

type fakeAPI struct {
	mu       sync.Mutex
	pages    map[string]*model.MessagePage
	pageErr  error
	contents map[int]model.Content
	comments map[int]model.Content
	requests []tracim.PageRequest

	// blockToken makes fetches of that page token wait for release.
	blockToken *string
	started    chan struct{}
	release    chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		pages:    make(map[string]*model.MessagePage),
		contents: make(map[int]model.Content),
		comments: make(map[int]model.Content),
		started:  make(chan struct{}, 16),
		release:  make(chan struct{}),
	}
}

func (f *fakeAPI) blockOn(token string) { f.blockToken = &token }

func (f *fakeAPI) FetchNotificationPage(
	ctx context.Context,
	userID int,
	req tracim.PageRequest,
) (*model.MessagePage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.blockToken != nil && *f.blockToken == req.PageToken
	f.mu.Unlock()

	if block {
		f.started <- struct{}{}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.release:
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	page, ok := f.pages[req.PageToken]
	if !ok {
		return nil, fmt.Errorf("page %q: %w", req.PageToken, tracim.ErrNotFound)
	}
	return page, nil
}

func (f *fakeAPI) GetContent(ctx context.Context, contentID int) (*model.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contents[contentID]
	if !ok {
		return nil, fmt.Errorf("content %d: %w", contentID, tracim.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeAPI) GetComment(ctx context.Context, workspaceID, contentID, commentID int) (*model.Content, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %d: %w", commentID, tracim.ErrNotFound)
	}
	return &c, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	lists     [][]model.Activity
	hasNext   []bool
	eventList map[string][]model.Message
}

func (p *recordingPublisher) PublishList(list []model.Activity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lists = append(p.lists, list)
}

func (p *recordingPublisher) PublishPagination(hasNextPage bool, nextPageToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasNext = append(p.hasNext, hasNextPage)
}

func (p *recordingPublisher) PublishEventList(activityID string, events []model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.eventList == nil {
		p.eventList = make(map[string][]model.Message)
	}
	p.eventList[activityID] = events
}

func (p *recordingPublisher) listCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.lists)
}

type countingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *countingNotifier) Notify(level model.FlashLevel, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
}

// --- Helpers ---

func contentMsg(eventID int, eventType string, contentID, workspaceID int) model.Message {
	return model.Message{
		EventID:   eventID,
		EventType: model.EventType(eventType),
		Fields: model.EventFields{
			Workspace: &model.Workspace{WorkspaceID: workspaceID},
			Content: &model.Content{
				ContentID:   contentID,
				WorkspaceID: workspaceID,
				ContentType: model.EventType(eventType).SubType(),
			},
		},
	}
}

func commentMsg(eventID int, eventType string, commentID, parentID, workspaceID int) model.Message {
	msg := contentMsg(eventID, eventType, commentID, workspaceID)
	msg.Fields.Content.ParentID = parentID
	msg.Fields.Content.ContentType = model.ContentTypeComment
	return msg
}

func ids(list []model.Activity) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

// twoPageAPI serves 2 pages of 8 events that merge into 3 activities each.
func twoPageAPI() *fakeAPI {
	api := newFakeAPI()
	api.pages[""] = &model.MessagePage{
		Items: []model.Message{
			contentMsg(116, "content.modified.html-document", 1, 10),
			contentMsg(115, "content.modified.html-document", 1, 10),
			contentMsg(114, "content.created.thread", 2, 10),
			commentMsg(113, "content.created.comment", 50, 1, 10),
			contentMsg(112, "content.created.file", 3, 10),
			commentMsg(111, "content.created.comment", 51, 2, 10),
			contentMsg(110, "content.modified.file", 3, 10),
			contentMsg(109, "content.created.html-document", 1, 10),
		},
		HasNext:       true,
		NextPageToken: "p2",
	}
	api.pages["p2"] = &model.MessagePage{
		Items: []model.Message{
			contentMsg(108, "content.modified.html-document", 4, 10),
			contentMsg(107, "content.modified.html-document", 4, 10),
			contentMsg(106, "content.created.thread", 5, 10),
			commentMsg(105, "content.created.comment", 52, 5, 10),
			contentMsg(104, "content.created.file", 6, 10),
			commentMsg(103, "content.created.comment", 53, 4, 10),
			contentMsg(102, "content.created.html-document", 4, 10),
			contentMsg(101, "content.created.folder", 6, 10),
		},
		HasNext:       false,
		NextPageToken: "p3",
	}
	return api
}

// newTestController merges 3 activities per batch so that each page of
// twoPageAPI is exactly one batch.
func newTestController(api FeedAPI) (*Controller, *recordingPublisher, *countingNotifier) {
	pub := &recordingPublisher{}
	notify := &countingNotifier{}
	c := NewController(Config{UserID: 1, BatchCount: 3}, api, pub, notify, nil, nil)
	return c, pub, notify
}

// --- LoadActivities ---

func TestLoadActivities_MergesPagesUntilExhausted(t *testing.T) {
	api := twoPageAPI()
	api.contents[1] = model.Content{ContentID: 1, WorkspaceID: 10, Label: "Roadmap", ContentType: "html-document"}
	c, pub, _ := newTestController(api)

	err := c.LoadActivities(context.Background(), 5, true, Scope{})
	require.NoError(t, err)

	state := c.Snapshot()
	assert.Len(t, state.List, 6)
	assert.False(t, state.HasNextPage)
	assert.Equal(t, []string{
		"content-1", "content-2", "content-3",
		"content-4", "content-5", "content-6",
	}, ids(state.List))

	first := state.List[0]
	assert.Equal(t, 116, first.NewestMessage.EventID)
	assert.Equal(t, []int{116, 115, 113, 109}, eventIDs(first.EventList))
	require.NotNil(t, first.Content)
	assert.Equal(t, "Roadmap", first.Content.Label)

	// reset publication, then one per batch
	assert.Equal(t, 3, pub.listCount())
	assert.Equal(t, []bool{true, true, false}, pub.hasNext)
}

func TestLoadActivities_StopsOnceMinCountReached(t *testing.T) {
	api := twoPageAPI()
	c, _, _ := newTestController(api)

	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))

	state := c.Snapshot()
	assert.Len(t, state.List, 3)
	assert.True(t, state.HasNextPage)
	assert.Equal(t, "p2", state.NextPageToken)

	// load more continues from the cursor
	require.NoError(t, c.LoadActivities(context.Background(), 6, false, Scope{}))
	state = c.Snapshot()
	assert.Len(t, state.List, 6)
	assert.False(t, state.HasNextPage)
	assert.Equal(t, "p2", api.requests[len(api.requests)-1].PageToken)
}

func TestLoadActivities_RequestsRecentActivityPages(t *testing.T) {
	api := twoPageAPI()
	c, _, _ := newTestController(api)

	require.NoError(t, c.LoadActivities(context.Background(), 1, true, Scope{WorkspaceID: 10}))

	require.NotEmpty(t, api.requests)
	req := api.requests[0]
	assert.Equal(t, 3*DefaultMessagesPerActivity, req.Count)
	assert.Equal(t, 10, req.WorkspaceID)
	assert.True(t, req.RecentActivities)
	assert.True(t, req.IncludeNotSent)
}

func TestLoadActivities_FiltersInvisibleActivities(t *testing.T) {
	api := twoPageAPI()
	pub := &recordingPublisher{}
	hideContent2 := func(a model.Activity, _ []model.Workspace, _ int) bool {
		return a.ID != "content-2"
	}
	c := NewController(Config{UserID: 1}, api, pub, nil, hideContent2, nil)

	require.NoError(t, c.LoadActivities(context.Background(), 10, true, Scope{}))

	assert.NotContains(t, ids(c.Snapshot().List), "content-2")
	assert.Len(t, c.Snapshot().List, 5)
}

func TestLoadActivities_FetchFailureKeepsPublishedState(t *testing.T) {
	api := twoPageAPI()
	c, pub, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))
	before := c.Snapshot()
	published := pub.listCount()

	api.mu.Lock()
	api.pageErr = errors.New("connection reset")
	api.mu.Unlock()

	err := c.LoadActivities(context.Background(), 10, false, Scope{})
	require.Error(t, err)
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, published, pub.listCount())
}

func TestLoadActivities_EmptyPageWithSameTokenEndsLoop(t *testing.T) {
	api := newFakeAPI()
	api.pages[""] = &model.MessagePage{HasNext: true, NextPageToken: ""}
	c, _, _ := newTestController(api)

	require.NoError(t, c.LoadActivities(context.Background(), 5, true, Scope{}))
	assert.False(t, c.Snapshot().HasNextPage)
	assert.Len(t, api.requests, 1)
}

// --- Cancellation ---

func TestCancelCurrentLoad_LeavesLastPublishedState(t *testing.T) {
	api := twoPageAPI()
	c, pub, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))
	before := c.Snapshot()
	published := pub.listCount()

	api.blockOn("p2")
	result := make(chan error, 1)
	go func() {
		result <- c.LoadActivities(context.Background(), 10, false, Scope{})
	}()

	<-api.started
	c.CancelCurrentLoad()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not return after cancellation")
	}
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, published, pub.listCount())
}

func TestCancelCurrentLoad_NoLoadIsNoop(t *testing.T) {
	c, _, _ := newTestController(newFakeAPI())
	c.CancelCurrentLoad()
	c.CancelCurrentLoad()
	assert.Empty(t, c.Snapshot().List)
}

func TestLoadActivities_ResetSupersedesRunningLoad(t *testing.T) {
	api := twoPageAPI()
	api.blockOn("")
	c, _, _ := newTestController(api)

	first := make(chan error, 1)
	go func() {
		first <- c.LoadActivities(context.Background(), 5, true, Scope{})
	}()
	<-api.started

	second := make(chan error, 1)
	go func() {
		second <- c.LoadActivities(context.Background(), 3, true, Scope{})
	}()

	select {
	case err := <-first:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded load did not return")
	}

	<-api.started
	close(api.release)
	require.NoError(t, <-second)
	assert.Len(t, c.Snapshot().List, 3)
}

// --- Mutual exclusion ---

func TestMergeLiveEvent_WaitsForRunningLoad(t *testing.T) {
	api := twoPageAPI()
	api.pages[""].HasNext = false
	api.blockOn("")
	c, pub, _ := newTestController(api)

	loadDone := make(chan error, 1)
	go func() {
		loadDone <- c.LoadActivities(context.Background(), 5, true, Scope{})
	}()
	<-api.started
	// the reset publication is the only one so far
	require.Equal(t, 1, pub.listCount())

	mergeDone := make(chan error, 1)
	go func() {
		mergeDone <- c.MergeLiveEvent(
			context.Background(),
			contentMsg(200, "content.created.thread", 9, 10),
		)
	}()

	assert.Never(t, func() bool { return pub.listCount() > 1 }, 100*time.Millisecond, 10*time.Millisecond)

	close(api.release)
	require.NoError(t, <-loadDone)
	require.NoError(t, <-mergeDone)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.lists, 3)
	assert.Len(t, pub.lists[1], 3, "load publishes its batch first")
	assert.Equal(t, []string{"content-9", "content-1", "content-2", "content-3"}, ids(pub.lists[2]))
}

// --- MergeLiveEvent ---

func TestMergeLiveEvent_IsIdempotent(t *testing.T) {
	api := newFakeAPI()
	api.contents[7] = model.Content{ContentID: 7, WorkspaceID: 10, Label: "Plan"}
	c, pub, _ := newTestController(api)
	ev := contentMsg(300, "content.modified.html-document", 7, 10)

	require.NoError(t, c.MergeLiveEvent(context.Background(), ev))
	once := c.Snapshot()
	require.NoError(t, c.MergeLiveEvent(context.Background(), ev))

	assert.Equal(t, once, c.Snapshot())
	assert.Equal(t, 1, pub.listCount())
	require.Len(t, once.List, 1)
	assert.Equal(t, []int{300}, eventIDs(once.List[0].EventList))
	assert.Equal(t, "Plan", once.List[0].Content.Label)
}

func TestMergeLiveEvent_OlderCommentShowsRefresh(t *testing.T) {
	api := newFakeAPI()
	api.contents[1] = model.Content{ContentID: 1, WorkspaceID: 10}
	api.comments[80] = model.Content{ContentID: 80, ParentID: 2, ContentType: "comment", RawContent: "<p>hi</p>"}
	c, _, _ := newTestController(api)

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		contentMsg(100, "content.modified.html-document", 1, 10)))
	assert.False(t, c.ShowRefresh())

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		commentMsg(95, "content.created.comment", 80, 2, 10)))

	list := c.Snapshot().List
	assert.Equal(t, []string{"content-1", "content-2"}, ids(list))
	assert.True(t, c.ShowRefresh())
	assert.Equal(t, "<p>hi</p>", list[1].Content.RawContent)
}

func TestMergeLiveEvent_CommentOnLowerActivityDefersReorder(t *testing.T) {
	api := twoPageAPI()
	api.comments[90] = model.Content{ContentID: 90, ParentID: 3, ContentType: "comment"}
	c, _, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))
	require.Equal(t, []string{"content-1", "content-2", "content-3"}, ids(c.Snapshot().List))

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		commentMsg(400, "content.created.comment", 90, 3, 10)))

	assert.Equal(t, []string{"content-1", "content-2", "content-3"}, ids(c.Snapshot().List))
	assert.True(t, c.ShowRefresh())

	c.ResortForRefresh()

	list := c.Snapshot().List
	assert.Equal(t, []string{"content-3", "content-1", "content-2"}, ids(list))
	assert.False(t, c.ShowRefresh())
	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i-1].NewestMessage.EventID, list[i].NewestMessage.EventID)
	}
}

func TestMergeLiveEvent_ContentModificationMovesActivity(t *testing.T) {
	api := twoPageAPI()
	api.contents[3] = model.Content{ContentID: 3, WorkspaceID: 10, Label: "renamed"}
	c, _, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		contentMsg(401, "content.modified.file", 3, 10)))

	list := c.Snapshot().List
	assert.Equal(t, []string{"content-3", "content-1", "content-2"}, ids(list))
	assert.Equal(t, "renamed", list[0].Content.Label)
	assert.False(t, c.ShowRefresh())
}

func TestMergeLiveEvent_CommentFetchFailureUsesPlaceholder(t *testing.T) {
	api := newFakeAPI()
	c, _, notify := newTestController(api)

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		commentMsg(500, "content.created.comment", 81, 4, 10)))

	list := c.Snapshot().List
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Content)
	assert.Equal(t, model.PlaceholderUnknownComment, list[0].Content.Placeholder)
	assert.Equal(t, "content-4", list[0].ID)
	assert.Equal(t, []string{"Unknown comment"}, notify.messages)
}

func TestMergeLiveEvent_ContentFetchFailureUsesPlaceholder(t *testing.T) {
	api := newFakeAPI()
	c, _, notify := newTestController(api)

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		contentMsg(501, "content.created.thread", 12, 10)))

	list := c.Snapshot().List
	require.Len(t, list, 1)
	assert.Equal(t, model.PlaceholderUnknownContent, list[0].Content.Placeholder)
	assert.Equal(t, []string{"Unknown content"}, notify.messages)
}

func TestMergeLiveEvent_TodoIsNotEnriched(t *testing.T) {
	api := newFakeAPI()
	c, _, notify := newTestController(api)

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		contentMsg(502, "content.created.todo", 13, 10)))

	assert.Empty(t, notify.messages)
	assert.Empty(t, c.Snapshot().List[0].Content.Placeholder)
}

func TestMergeLiveEvent_IgnoresEventsOutsideScope(t *testing.T) {
	api := twoPageAPI()
	c, pub, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{WorkspaceID: 10}))
	published := pub.listCount()

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		contentMsg(600, "content.created.todo", 70, 11)))

	assert.Equal(t, published, pub.listCount())
	assert.NotContains(t, ids(c.Snapshot().List), "content-70")
}

func TestMergeLiveEvent_InvalidatesCachedContent(t *testing.T) {
	api := &invalidatingAPI{fakeAPI: newFakeAPI()}
	api.contents[5] = model.Content{ContentID: 5}
	c, _, _ := newTestController(api)

	require.NoError(t, c.MergeLiveEvent(context.Background(),
		contentMsg(700, "content.modified.thread", 5, 10)))

	assert.Equal(t, []int{5}, api.invalidated)
}

type invalidatingAPI struct {
	*fakeAPI
	invalidated []int
}

func (a *invalidatingAPI) Invalidate(ctx context.Context, contentID int) error {
	a.invalidated = append(a.invalidated, contentID)
	return nil
}

// --- Reset / teardown / event list ---

func TestLoadActivities_ResetStartsFromEmptyList(t *testing.T) {
	api := twoPageAPI()
	c, pub, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))
	published := pub.listCount()

	c.mu.Lock()
	c.showRefresh = true
	c.mu.Unlock()

	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))

	pub.mu.Lock()
	assert.Empty(t, pub.lists[published], "a reset publishes the empty list first")
	pub.mu.Unlock()
	assert.False(t, c.ShowRefresh())
	assert.NotEmpty(t, c.Snapshot().List)
}

func TestClose_CancelsRunningLoad(t *testing.T) {
	api := twoPageAPI()
	c, pub, _ := newTestController(api)
	require.NoError(t, c.LoadActivities(context.Background(), 3, true, Scope{}))
	before := c.Snapshot()
	published := pub.listCount()

	api.blockOn("p2")
	result := make(chan error, 1)
	go func() {
		result <- c.LoadActivities(context.Background(), 10, false, Scope{})
	}()

	<-api.started
	c.Close()

	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("load did not return after Close")
	}
	assert.Equal(t, before, c.Snapshot())
	assert.Equal(t, published, pub.listCount())
}

func TestLoadEventList_PublishesHistory(t *testing.T) {
	api := newFakeAPI()
	history := []model.Message{
		contentMsg(20, "content.modified.html-document", 1, 10),
		contentMsg(10, "content.created.html-document", 1, 10),
	}
	api.pages[""] = &model.MessagePage{Items: history}
	c, pub, _ := newTestController(api)
	a := newActivity(history[0])

	require.NoError(t, c.LoadEventList(context.Background(), a))

	assert.Equal(t, history, pub.eventList["content-1"])
	req := api.requests[0]
	assert.Equal(t, 1, req.RelatedContentID)
	assert.Equal(t, DefaultHistoryCount, req.Count)
}

func eventIDs(events []model.Message) []int {
	out := make([]int, len(events))
	for i, ev := range events {
		out[i] = ev.EventID
	}
	return out
}
