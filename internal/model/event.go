package model

import (
	"strings"
	"time"
)

// EntityType is the first segment of an event type and names the kind of
// entity the event is about.
type EntityType string

const (
	EntityContent               EntityType = "content"
	EntityMention               EntityType = "mention"
	EntityReaction              EntityType = "reaction"
	EntityContentTag            EntityType = "content_tag"
	EntityUser                  EntityType = "user"
	EntityWorkspace             EntityType = "workspace"
	EntityWorkspaceMember       EntityType = "workspace_member"
	EntityWorkspaceSubscription EntityType = "workspace_subscription"
)

// CoreEventType is the second segment of an event type: what happened to
// the entity.
type CoreEventType string

const (
	CoreCreated   CoreEventType = "created"
	CoreModified  CoreEventType = "modified"
	CoreDeleted   CoreEventType = "deleted"
	CoreUndeleted CoreEventType = "undeleted"
)

// Content sub types carried in the third segment of content event types
// and in Content.ContentType.
const (
	ContentTypeComment  = "comment"
	ContentTypeTodo     = "todo"
	ContentTypeThread   = "thread"
	ContentTypeFile     = "file"
	ContentTypeFolder   = "folder"
	ContentTypeDocument = "html-document"
)

// EventType is a dot-delimited event identifier such as
// "content.modified.comment" or "mention.created".
type EventType string

func (t EventType) segment(i int) string {
	parts := strings.SplitN(string(t), ".", 3)
	if i >= len(parts) {
		return ""
	}
	return parts[i]
}

// Entity returns the entity segment of the event type.
func (t EventType) Entity() EntityType { return EntityType(t.segment(0)) }

// Core returns the core event segment of the event type.
func (t EventType) Core() CoreEventType { return CoreEventType(t.segment(1)) }

// SubType returns the optional third segment (usually a content type).
func (t EventType) SubType() string { return t.segment(2) }

// IsComment reports whether the event is about a comment.
func (t EventType) IsComment() bool { return t.SubType() == ContentTypeComment }

// IsTodo reports whether the event is about a to-do.
func (t EventType) IsTodo() bool { return t.SubType() == ContentTypeTodo }

// User is the minimal user representation embedded in events and records.
type User struct {
	UserID     int    `json:"user_id"`
	PublicName string `json:"public_name,omitempty"`
	Username   string `json:"username,omitempty"`
}

// Subscription is a pending or resolved request to join a workspace.
type Subscription struct {
	Author    User      `json:"author"`
	Workspace Workspace `json:"workspace"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_date,omitempty"`
}

// Mention records who was mentioned by a mention event.
type Mention struct {
	Recipient string `json:"recipient"`
	ID        string `json:"id,omitempty"`
}

// EventFields holds the entities an event refers to. Only the entities
// relevant to the event type are set.
type EventFields struct {
	Author       *User         `json:"author,omitempty"`
	User         *User         `json:"user,omitempty"`
	Workspace    *Workspace    `json:"workspace,omitempty"`
	Content      *Content      `json:"content,omitempty"`
	Subscription *Subscription `json:"subscription,omitempty"`
	Mention      *Mention      `json:"mention,omitempty"`
}

// Message is a raw event delivered by the notification stream. Messages
// are immutable once received; enrichment works on copies.
type Message struct {
	// EventID is strictly increasing on the server and orders events.
	EventID int `json:"event_id"`

	// EventType identifies entity and action.
	EventType EventType `json:"event_type"`

	Fields EventFields `json:"fields"`

	// Read is the per-user read flag.
	Read bool `json:"read"`

	Created time.Time `json:"created,omitempty"`
}

// WorkspaceID returns the id of the workspace the event belongs to, or 0.
func (m Message) WorkspaceID() int {
	if m.Fields.Workspace != nil {
		return m.Fields.Workspace.WorkspaceID
	}
	if m.Fields.Content != nil {
		return m.Fields.Content.WorkspaceID
	}
	if m.Fields.Subscription != nil {
		return m.Fields.Subscription.Workspace.WorkspaceID
	}
	return 0
}

// IsAboutComment reports whether the event targets a comment, either
// directly or through a mention made in a comment.
func (m Message) IsAboutComment() bool {
	if m.EventType.IsComment() {
		return true
	}
	return m.EventType.Entity() == EntityMention &&
		m.Fields.Content != nil &&
		m.Fields.Content.ContentType == ContentTypeComment
}

// WithContent returns a copy of the message whose content is replaced.
func (m Message) WithContent(c Content) Message {
	m.Fields.Content = &c
	return m
}

// MessagePage is one page of the paginated notification stream.
type MessagePage struct {
	Items         []Message `json:"items"`
	HasNext       bool      `json:"has_next"`
	NextPageToken string    `json:"next_page_token"`
	HasPrevious   bool      `json:"has_previous"`
	PrevPageToken string    `json:"previous_page_token"`
}
