package tracim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nhle/tracimfeed/internal/model"
)

// defaultPageSize is used when a PageRequest leaves Count unset.
const defaultPageSize = 15

// API exposes the Tracim endpoints the activity feed consumes.
type API struct {
	client *Client
}

// NewAPI creates an API adapter on top of client.
func NewAPI(client *Client) *API {
	return &API{client: client}
}

// WhoAmI verifies credentials and returns the authenticated user.
func (a *API) WhoAmI(ctx context.Context) (*WhoAmI, error) {
	var me WhoAmI
	if err := a.client.Get(ctx, "/api/auth/whoami", &me); err != nil {
		return nil, fmt.Errorf("validating Tracim connection: %w", err)
	}
	return &me, nil
}

// FetchNotificationPage retrieves one page of the user's messages.
func (a *API) FetchNotificationPage(
	ctx context.Context,
	userID int,
	req PageRequest,
) (*model.MessagePage, error) {
	var page model.MessagePage
	path := fmt.Sprintf("/api/users/%d/messages?%s", userID, messagesQuery(req))
	if err := a.client.Get(ctx, path, &page); err != nil {
		return nil, fmt.Errorf("fetching messages of user %d: %w", userID, err)
	}
	return &page, nil
}

// messagesQuery encodes a PageRequest as the messages endpoint expects.
func messagesQuery(req PageRequest) string {
	q := url.Values{}
	count := req.Count
	if count <= 0 {
		count = defaultPageSize
	}
	q.Set("count", strconv.Itoa(count))
	if req.PageToken != "" {
		q.Set("page_token", req.PageToken)
	}
	if req.WorkspaceID != 0 {
		q.Set("workspace_ids", strconv.Itoa(req.WorkspaceID))
	}
	if req.RelatedContentID != 0 {
		q.Set("related_content_ids", strconv.Itoa(req.RelatedContentID))
	}
	if req.IncludeNotSent {
		q.Set("include_not_sent", "1")
	}
	if req.RecentActivities {
		q.Set("exclude_event_types", strings.Join(recentActivitiesExcludedEvents, ","))
	}
	return q.Encode()
}

// GetContent retrieves a content by id. Returns ErrNotFound (wrapped) when
// the content is missing or hidden.
func (a *API) GetContent(ctx context.Context, contentID int) (*model.Content, error) {
	var content model.Content
	path := fmt.Sprintf("/api/contents/%d", contentID)
	if err := a.client.Get(ctx, path, &content); err != nil {
		return nil, fmt.Errorf("fetching content %d: %w", contentID, err)
	}
	return &content, nil
}

// GetComment retrieves a single comment of a content.
func (a *API) GetComment(
	ctx context.Context,
	workspaceID, contentID, commentID int,
) (*model.Content, error) {
	var comment model.Content
	path := fmt.Sprintf(
		"/api/workspaces/%d/contents/%d/comments/%d",
		workspaceID, contentID, commentID,
	)
	if err := a.client.Get(ctx, path, &comment); err != nil {
		return nil, fmt.Errorf(
			"fetching comment %d of content %d: %w", commentID, contentID, err,
		)
	}
	return &comment, nil
}

// GetUserWorkspaces lists the workspaces the user is a member of, with the
// user's role in each one. A membership that cannot be read leaves Role
// empty rather than failing the whole list.
func (a *API) GetUserWorkspaces(ctx context.Context, userID int) ([]model.Workspace, error) {
	var workspaces []model.Workspace
	path := fmt.Sprintf("/api/users/%d/workspaces", userID)
	if err := a.client.Get(ctx, path, &workspaces); err != nil {
		return nil, fmt.Errorf("fetching workspaces of user %d: %w", userID, err)
	}

	for i := range workspaces {
		var member Membership
		memberPath := fmt.Sprintf(
			"/api/workspaces/%d/members/%d", workspaces[i].WorkspaceID, userID,
		)
		if err := a.client.Get(ctx, memberPath, &member); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		workspaces[i].Role = member.Role
	}

	return workspaces, nil
}

// ContentURL is the address of a content's page in the web interface of
// the server at baseURL.
func ContentURL(baseURL string, contentID int) string {
	return strings.TrimRight(baseURL, "/") + "/ui/contents/" + strconv.Itoa(contentID)
}
