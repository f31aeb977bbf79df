package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/tracimfeed/internal/model"
)

func subscriptionActivity(authorID, workspaceID int) model.Activity {
	return newActivity(model.Message{
		EventID:   1,
		EventType: "workspace_subscription.created",
		Fields: model.EventFields{
			Subscription: &model.Subscription{
				Author:    model.User{UserID: authorID},
				Workspace: model.Workspace{WorkspaceID: workspaceID},
			},
		},
	})
}

func TestDisplayFilter(t *testing.T) {
	workspaces := []model.Workspace{
		{WorkspaceID: 10, Role: model.RoleContributor},
		{WorkspaceID: 20, Role: model.RoleWorkspaceManager},
	}

	deleted := newActivity(contentMsg(1, "content.modified.file", 1, 10))
	deleted.Content.IsDeleted = true

	deletion := newActivity(contentMsg(2, "content.deleted.file", 2, 10))
	deletion.Content.IsDeleted = true

	tests := []struct {
		name       string
		activity   model.Activity
		workspaces []model.Workspace
		want       bool
	}{
		{
			name:       "content in a known workspace",
			activity:   newActivity(contentMsg(3, "content.created.file", 3, 10)),
			workspaces: workspaces,
			want:       true,
		},
		{
			name:       "content in a workspace the user left",
			activity:   newActivity(contentMsg(4, "content.created.file", 4, 30)),
			workspaces: workspaces,
			want:       false,
		},
		{
			name:       "unknown membership keeps everything",
			activity:   newActivity(contentMsg(4, "content.created.file", 4, 30)),
			workspaces: nil,
			want:       true,
		},
		{
			name:       "deleted content",
			activity:   deleted,
			workspaces: workspaces,
			want:       false,
		},
		{
			name:       "deletion event of the content",
			activity:   deletion,
			workspaces: workspaces,
			want:       true,
		},
		{
			name:       "own subscription request",
			activity:   subscriptionActivity(1, 10),
			workspaces: workspaces,
			want:       true,
		},
		{
			name:       "subscription request seen by a contributor",
			activity:   subscriptionActivity(2, 10),
			workspaces: workspaces,
			want:       false,
		},
		{
			name:       "subscription request seen by a workspace manager",
			activity:   subscriptionActivity(2, 20),
			workspaces: workspaces,
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayFilter(tt.activity, tt.workspaces, 1))
		})
	}
}

func TestInScope(t *testing.T) {
	a := newActivity(contentMsg(1, "content.created.file", 1, 10))

	assert.True(t, inScope(a, 0))
	assert.True(t, inScope(a, 10))
	assert.False(t, inScope(a, 11))
}
