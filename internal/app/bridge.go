package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/tracimfeed/internal/activity"
	"github.com/nhle/tracimfeed/internal/model"
)

var _ activity.Publisher = (*Bridge)(nil)

// ListPublishedMsg carries a list published by the controller.
type ListPublishedMsg struct {
	List []model.Activity
}

// PaginationMsg carries the pagination cursor published by the controller.
type PaginationMsg struct {
	HasNextPage   bool
	NextPageToken string
}

// EventListMsg carries the history of one activity.
type EventListMsg struct {
	ActivityID string
	Events     []model.Message
}

// FlashMsg carries a stored flash message.
type FlashMsg struct {
	Message model.FlashMessage
}

// Bridge turns controller publications into tea messages. Publications
// block until the UI receives them, so none is lost or reordered.
type Bridge struct {
	ch        chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge creates an open bridge.
func NewBridge() *Bridge {
	return &Bridge{
		ch:   make(chan tea.Msg, 64),
		done: make(chan struct{}),
	}
}

func (b *Bridge) PublishList(list []model.Activity) {
	b.send(ListPublishedMsg{List: list})
}

func (b *Bridge) PublishPagination(hasNextPage bool, nextPageToken string) {
	b.send(PaginationMsg{HasNextPage: hasNextPage, NextPageToken: nextPageToken})
}

func (b *Bridge) PublishEventList(activityID string, events []model.Message) {
	b.send(EventListMsg{ActivityID: activityID, Events: events})
}

// Flash forwards a stored flash message to the UI.
func (b *Bridge) Flash(m model.FlashMessage) {
	b.send(FlashMsg{Message: m})
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.ch <- msg:
	case <-b.done:
	}
}

// Wait returns a tea.Cmd that waits for the next publication. It must be
// re-issued after each received message. A closed bridge yields nil.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Close releases blocked publishers and waiters.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
