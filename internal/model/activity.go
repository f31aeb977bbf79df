package model

// Activity aggregates every event about the same entity into one display
// unit.
type Activity struct {
	// ID is the de-duplication key (see activity.IDFor).
	ID string `json:"id"`

	EntityType EntityType `json:"entity_type"`

	// CoreEventType is the core event of the newest message.
	CoreEventType CoreEventType `json:"core_event_type"`

	// Content is the (possibly enriched) content the activity is about.
	// Nil for activities that are not about content.
	Content *Content `json:"content,omitempty"`

	// NewestMessage is the most recent event contributing to the activity.
	NewestMessage Message `json:"newest_message"`

	// EventList holds the contributing events, newest first, unique by
	// EventID.
	EventList []Message `json:"event_list"`
}

// WorkspaceID returns the workspace the activity belongs to, or 0.
func (a Activity) WorkspaceID() int {
	if a.Content != nil && a.Content.WorkspaceID != 0 {
		return a.Content.WorkspaceID
	}
	return a.NewestMessage.WorkspaceID()
}

// LinkContentID is the content a link to the activity points at: the
// parent for a comment, 0 when the activity is not about content.
func (a Activity) LinkContentID() int {
	if a.Content == nil {
		return 0
	}
	if a.Content.IsComment() && a.Content.ParentID != 0 {
		return a.Content.ParentID
	}
	return a.Content.ContentID
}

// HasEvent reports whether the event list already contains eventID.
func (a Activity) HasEvent(eventID int) bool {
	for _, ev := range a.EventList {
		if ev.EventID == eventID {
			return true
		}
	}
	return false
}

// Clone returns a deep enough copy for the activity to be mutated without
// affecting lists that share the original.
func (a Activity) Clone() Activity {
	out := a
	if a.Content != nil {
		c := *a.Content
		out.Content = &c
	}
	out.EventList = append([]Message(nil), a.EventList...)
	return out
}
