package model

import "time"

// Placeholder markers set on content that could not be fetched.
const (
	PlaceholderUnknownContent = "unknown_content"
	PlaceholderUnknownComment = "unknown_comment"
)

// Content is a workspace content item (document, thread, file, comment...)
// as returned by the content endpoints and embedded in content events.
type Content struct {
	ContentID   int    `json:"content_id"`
	ParentID    int    `json:"parent_id,omitempty"`
	WorkspaceID int    `json:"workspace_id,omitempty"`
	ContentType string `json:"content_type"`
	Label       string `json:"label,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Status      string `json:"status,omitempty"`

	// RawContent is the HTML body for documents, threads and comments.
	RawContent string `json:"raw_content,omitempty"`

	Author            *User `json:"author,omitempty"`
	CurrentRevisionID int   `json:"current_revision_id,omitempty"`

	IsDeleted  bool `json:"is_deleted,omitempty"`
	IsArchived bool `json:"is_archived,omitempty"`

	Created  time.Time `json:"created,omitempty"`
	Modified time.Time `json:"modified,omitempty"`

	// Placeholder is set when the record stands in for content that could
	// not be fetched (see Placeholder* constants).
	Placeholder string `json:"placeholder,omitempty"`
}

// IsComment reports whether the content is a comment.
func (c Content) IsComment() bool { return c.ContentType == ContentTypeComment }

// Overlay returns c with every non-zero field of other copied over it.
// Used to enrich event content with a freshly fetched record.
func (c Content) Overlay(other Content) Content {
	if other.ContentID != 0 {
		c.ContentID = other.ContentID
	}
	if other.ParentID != 0 {
		c.ParentID = other.ParentID
	}
	if other.WorkspaceID != 0 {
		c.WorkspaceID = other.WorkspaceID
	}
	if other.ContentType != "" {
		c.ContentType = other.ContentType
	}
	if other.Label != "" {
		c.Label = other.Label
	}
	if other.Slug != "" {
		c.Slug = other.Slug
	}
	if other.Status != "" {
		c.Status = other.Status
	}
	if other.RawContent != "" {
		c.RawContent = other.RawContent
	}
	if other.Author != nil {
		author := *other.Author
		c.Author = &author
	}
	if other.CurrentRevisionID != 0 {
		c.CurrentRevisionID = other.CurrentRevisionID
	}
	c.IsDeleted = c.IsDeleted || other.IsDeleted
	c.IsArchived = c.IsArchived || other.IsArchived
	if !other.Created.IsZero() {
		c.Created = other.Created
	}
	if !other.Modified.IsZero() {
		c.Modified = other.Modified
	}
	return c
}

// Workspace role slugs.
const (
	RoleReader           = "reader"
	RoleContributor      = "contributor"
	RoleContentManager   = "content-manager"
	RoleWorkspaceManager = "workspace-manager"
)

// Workspace is a collaboration space the user may belong to.
type Workspace struct {
	WorkspaceID int    `json:"workspace_id"`
	Label       string `json:"label,omitempty"`
	Slug        string `json:"slug,omitempty"`
	AccessType  string `json:"access_type,omitempty"`
	IsDeleted   bool   `json:"is_deleted,omitempty"`

	// Role is the current user's role in the workspace, when known.
	Role string `json:"role,omitempty"`
}
