package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tracimfeed/internal/model"
)

func TestBridge_DeliversInOrder(t *testing.T) {
	b := NewBridge()
	defer b.Close()

	b.PublishList([]model.Activity{{ID: "content-1"}})
	b.PublishPagination(true, "p2")
	b.PublishEventList("content-1", []model.Message{{EventID: 4}})
	b.Flash(model.FlashMessage{ID: "f", Message: "Unknown content"})

	assert.Equal(t, ListPublishedMsg{List: []model.Activity{{ID: "content-1"}}}, b.Wait()())
	assert.Equal(t, PaginationMsg{HasNextPage: true, NextPageToken: "p2"}, b.Wait()())
	assert.Equal(t, EventListMsg{ActivityID: "content-1", Events: []model.Message{{EventID: 4}}}, b.Wait()())
	assert.Equal(t, FlashMsg{Message: model.FlashMessage{ID: "f", Message: "Unknown content"}}, b.Wait()())
}

func TestBridge_CloseReleasesBlockedSenders(t *testing.T) {
	b := NewBridge()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.PublishPagination(true, "")
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	b.Close()
	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "publisher still blocked after Close")
	}
	assert.Nil(t, drainClosed(b))
}

// drainClosed reads a closed bridge until Wait yields nil.
func drainClosed(b *Bridge) any {
	for {
		msg := b.Wait()()
		if msg == nil {
			return nil
		}
	}
}
