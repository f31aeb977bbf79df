package activity

import (
	"sort"

	"github.com/nhle/tracimfeed/internal/model"
)

// newActivity builds a single-event activity from msg.
func newActivity(msg model.Message) model.Activity {
	a := model.Activity{
		ID:            IDFor(msg),
		EntityType:    msg.EventType.Entity(),
		CoreEventType: msg.EventType.Core(),
		NewestMessage: msg,
		EventList:     []model.Message{msg},
	}
	if msg.Fields.Content != nil {
		c := *msg.Fields.Content
		a.Content = &c
	}
	return a
}

// indexOf returns the position of the activity with the given id, or -1.
func indexOf(list []model.Activity, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// insertEvent adds msg to events keeping them unique by EventID and
// ordered newest first.
func insertEvent(events []model.Message, msg model.Message) []model.Message {
	pos := len(events)
	for i, ev := range events {
		if ev.EventID == msg.EventID {
			return events
		}
		if ev.EventID < msg.EventID {
			pos = i
			break
		}
	}
	out := make([]model.Message, 0, len(events)+1)
	out = append(out, events[:pos]...)
	out = append(out, msg)
	return append(out, events[pos:]...)
}

// addEvent merges msg into a copy of a. The newest message, and the content
// for events about the content itself, follow the newest event.
func addEvent(a model.Activity, msg model.Message) model.Activity {
	out := a.Clone()
	out.EventList = insertEvent(out.EventList, msg)
	if msg.EventID > out.NewestMessage.EventID {
		out.NewestMessage = msg
		out.CoreEventType = msg.EventType.Core()
		if msg.Fields.Content != nil && !msg.IsAboutComment() {
			c := *msg.Fields.Content
			out.Content = &c
		}
	}
	return out
}

// insertByRecency inserts a before the first entry whose newest message is
// older. Other entries keep their relative order.
func insertByRecency(list []model.Activity, a model.Activity) []model.Activity {
	pos := len(list)
	for i := range list {
		if list[i].NewestMessage.EventID < a.NewestMessage.EventID {
			pos = i
			break
		}
	}
	out := make([]model.Activity, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, a)
	return append(out, list[pos:]...)
}

// appendHistory merges a page of history messages (newest first) into
// list. Known activities collect the message, unknown ones are appended at
// the end. The returned slice never shares activities with list, and the
// second result holds the indexes of activities created by this page.
func appendHistory(msgs []model.Message, list []model.Activity) ([]model.Activity, []int) {
	out := make([]model.Activity, len(list), len(list)+len(msgs))
	copy(out, list)

	var created []int
	for _, msg := range msgs {
		idx := indexOf(out, IDFor(msg))
		if idx < 0 {
			out = append(out, newActivity(msg))
			created = append(created, len(out)-1)
			continue
		}
		if out[idx].HasEvent(msg.EventID) {
			continue
		}
		out[idx] = addEvent(out[idx], msg)
	}
	return out, created
}

// AddLiveMessage folds a live event into list and reports whether the list
// changed. A duplicate event is a no-op.
//
// Placement follows the insert-stable policy: a new activity is inserted at
// the position its recency implies, and so is an existing activity touched
// by anything but a new comment. A new comment on an existing activity
// updates it in place; the caller flags the list for a manual resort.
func AddLiveMessage(msg model.Message, list []model.Activity) ([]model.Activity, bool) {
	idx := indexOf(list, IDFor(msg))
	if idx < 0 {
		return insertByRecency(list, newActivity(msg)), true
	}
	if list[idx].HasEvent(msg.EventID) {
		return list, false
	}

	updated := addEvent(list[idx], msg)
	if defersResort(msg) {
		out := append([]model.Activity(nil), list...)
		out[idx] = updated
		return out, true
	}

	rest := make([]model.Activity, 0, len(list))
	rest = append(rest, list[:idx]...)
	rest = append(rest, list[idx+1:]...)
	return insertByRecency(rest, updated), true
}

// defersResort reports whether msg is a new comment, the only kind of live
// event that does not move its activity and may raise the refresh flag.
func defersResort(msg model.Message) bool {
	if !msg.EventType.IsComment() {
		return false
	}
	core := msg.EventType.Core()
	return core != model.CoreModified && core != model.CoreDeleted
}

// SortActivityList returns a copy of list ordered by newest message,
// most recent first. Ties keep their relative order.
func SortActivityList(list []model.Activity) []model.Activity {
	out := append([]model.Activity(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NewestMessage.EventID > out[j].NewestMessage.EventID
	})
	return out
}
