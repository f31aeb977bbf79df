package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nhle/tracimfeed/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// FeedSnapshot is the last published state of one feed.
type FeedSnapshot struct {
	FeedKey       string
	HasNextPage   bool
	NextPageToken string
	Activities    []model.Activity
	UpdatedAt     time.Time
}

// FeedKey identifies the feed of a user, optionally scoped to a workspace.
func FeedKey(userID, workspaceID int) string {
	if workspaceID == 0 {
		return fmt.Sprintf("user-%d", userID)
	}
	return fmt.Sprintf("user-%d-workspace-%d", userID, workspaceID)
}

// Store defines the persistence interface for flash messages and feed
// snapshots.
type Store interface {
	// === Flash messages ===

	CreateFlashMessage(ctx context.Context, m model.FlashMessage) error
	GetUnreadFlashMessages(ctx context.Context) ([]model.FlashMessage, error)
	MarkFlashRead(ctx context.Context, id string) error
	MarkAllFlashRead(ctx context.Context) error

	// === Feed snapshots ===

	SaveSnapshot(ctx context.Context, snap FeedSnapshot) error
	LoadSnapshot(ctx context.Context, feedKey string) (*FeedSnapshot, error)
	DeleteSnapshot(ctx context.Context, feedKey string) error
}
