package activity

import "github.com/nhle/tracimfeed/internal/model"

// VisibilityFunc decides whether the user may see an activity. workspaces
// is the list of workspaces the user belongs to; nil means not yet known.
type VisibilityFunc func(a model.Activity, workspaces []model.Workspace, userID int) bool

// DisplayFilter is the default VisibilityFunc.
//
// Activities of workspaces the user left are hidden, as are deleted
// contents. Subscription requests are only shown to their author and to
// workspace managers.
func DisplayFilter(a model.Activity, workspaces []model.Workspace, userID int) bool {
	if a.Content != nil && a.Content.IsDeleted && a.CoreEventType != model.CoreDeleted {
		return false
	}

	wsID := a.WorkspaceID()
	var ws *model.Workspace
	if wsID != 0 && workspaces != nil {
		for i := range workspaces {
			if workspaces[i].WorkspaceID == wsID {
				ws = &workspaces[i]
				break
			}
		}
		if ws == nil {
			return false
		}
	}

	if a.EntityType == model.EntityWorkspaceSubscription {
		sub := a.NewestMessage.Fields.Subscription
		if sub != nil && sub.Author.UserID == userID {
			return true
		}
		return ws != nil && ws.Role == model.RoleWorkspaceManager
	}

	return true
}

// inScope reports whether a belongs to the workspace scope (0 = any).
func inScope(a model.Activity, workspaceID int) bool {
	return workspaceID == 0 || a.WorkspaceID() == workspaceID
}
