package activity

import (
	"fmt"

	"github.com/nhle/tracimfeed/internal/model"
)

// IDFor returns the de-duplication key of the activity msg belongs to.
// Every event about a content (including its comments, mentions,
// reactions and tags) shares the key of that content.
func IDFor(msg model.Message) string {
	f := msg.Fields
	switch entity := msg.EventType.Entity(); entity {
	case model.EntityContent, model.EntityMention,
		model.EntityReaction, model.EntityContentTag:
		if f.Content == nil {
			break
		}
		contentID := f.Content.ContentID
		if msg.IsAboutComment() && f.Content.ParentID != 0 {
			contentID = f.Content.ParentID
		}
		return fmt.Sprintf("%s-%d", model.EntityContent, contentID)

	case model.EntityWorkspaceMember:
		if f.Workspace != nil && f.User != nil {
			return fmt.Sprintf("%s-%d-%d", entity, f.Workspace.WorkspaceID, f.User.UserID)
		}

	case model.EntityWorkspaceSubscription:
		if f.Subscription != nil {
			return fmt.Sprintf(
				"%s-%d-%d", entity,
				f.Subscription.Workspace.WorkspaceID, f.Subscription.Author.UserID,
			)
		}
	}
	return fmt.Sprintf("%s-%d", msg.EventType.Entity(), msg.EventID)
}

// contentIDFor returns the id of the content an activity built from msg is
// about, or 0 when the activity is not about content.
func contentIDFor(msg model.Message) int {
	switch msg.EventType.Entity() {
	case model.EntityContent, model.EntityMention,
		model.EntityReaction, model.EntityContentTag:
	default:
		return 0
	}
	if msg.Fields.Content == nil {
		return 0
	}
	if msg.IsAboutComment() && msg.Fields.Content.ParentID != 0 {
		return msg.Fields.Content.ParentID
	}
	return msg.Fields.Content.ContentID
}
