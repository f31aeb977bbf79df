package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/tracimfeed/internal/activity"
	"github.com/nhle/tracimfeed/internal/model"
)

const writeTimeout = 5 * time.Second

var (
	_ activity.Publisher = (*SnapshotPublisher)(nil)
	_ activity.Notifier  = (*FlashNotifier)(nil)
)

// SnapshotPublisher persists every state published by a controller and
// forwards it to the next publisher, if any.
type SnapshotPublisher struct {
	store Store
	next  activity.Publisher
	log   *zap.Logger

	mu   sync.Mutex
	snap FeedSnapshot
}

// NewSnapshotPublisher creates a publisher writing the feed feedKey.
func NewSnapshotPublisher(s Store, feedKey string, next activity.Publisher, log *zap.Logger) *SnapshotPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotPublisher{
		store: s,
		next:  next,
		log:   log.Named("snapshot"),
		snap:  FeedSnapshot{FeedKey: feedKey, HasNextPage: true},
	}
}

// PublishList records the list; it is written with the pagination that
// completes the publication.
func (p *SnapshotPublisher) PublishList(list []model.Activity) {
	p.mu.Lock()
	p.snap.Activities = list
	p.mu.Unlock()

	if p.next != nil {
		p.next.PublishList(list)
	}
}

// PublishPagination completes a publication and writes the snapshot once.
func (p *SnapshotPublisher) PublishPagination(hasNextPage bool, nextPageToken string) {
	p.mu.Lock()
	p.snap.HasNextPage = hasNextPage
	p.snap.NextPageToken = nextPageToken
	snap := p.snap
	p.mu.Unlock()

	p.save(snap)
	if p.next != nil {
		p.next.PublishPagination(hasNextPage, nextPageToken)
	}
}

// PublishEventList is not persisted.
func (p *SnapshotPublisher) PublishEventList(activityID string, events []model.Message) {
	if p.next != nil {
		p.next.PublishEventList(activityID, events)
	}
}

func (p *SnapshotPublisher) save(snap FeedSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	snap.UpdatedAt = time.Now()
	if err := p.store.SaveSnapshot(ctx, snap); err != nil {
		p.log.Error("saving feed snapshot failed",
			zap.String("feed_key", snap.FeedKey),
			zap.Error(err),
		)
	}
}

// FlashNotifier stores notifications as flash messages and forwards them
// to the next notifier, if any.
type FlashNotifier struct {
	store Store
	next  func(model.FlashMessage)
	log   *zap.Logger
}

// NewFlashNotifier creates a notifier; next receives every stored message.
func NewFlashNotifier(s Store, next func(model.FlashMessage), log *zap.Logger) *FlashNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &FlashNotifier{store: s, next: next, log: log.Named("flash")}
}

func (n *FlashNotifier) Notify(level model.FlashLevel, message string) {
	m := model.FlashMessage{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := n.store.CreateFlashMessage(ctx, m); err != nil {
		n.log.Error("storing flash message failed", zap.Error(err))
	}

	if n.next != nil {
		n.next(m)
	}
}
