package tracim

// ErrorResponse is the standard Tracim error body.
type ErrorResponse struct {
	Message string         `json:"message"`
	Code    int            `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// WhoAmI is the response from GET /api/auth/whoami.
type WhoAmI struct {
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	PublicName string `json:"public_name"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
	Profile    string `json:"profile"`
}

// Membership is the response from GET /api/workspaces/{id}/members/{user_id}.
type Membership struct {
	UserID      int    `json:"user_id"`
	WorkspaceID int    `json:"workspace_id"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
}

// PageRequest selects a page of the notification stream.
type PageRequest struct {
	// PageToken is the opaque cursor returned by the previous page.
	PageToken string

	// Count is the number of messages per page.
	Count int

	// WorkspaceID restricts messages to one workspace when non-zero.
	WorkspaceID int

	// RelatedContentID restricts messages to one content and its
	// children when non-zero.
	RelatedContentID int

	// RecentActivities excludes event types that never make an activity.
	RecentActivities bool

	// IncludeNotSent includes messages not yet delivered by push.
	IncludeNotSent bool
}

// recentActivitiesExcludedEvents are event types that never build an
// activity in the feed.
var recentActivitiesExcludedEvents = []string{
	"user.*",
	"workspace.modified",
	"workspace_member.modified",
	"reaction.*",
	"content_tag.*",
	"tag.*",
	"user_call.*",
}
