package post

import (
	"time"

	"github.com/inkpress/inkpress/internal/core/tag"
)

// # Lifecycle States

// Status is the publication lifecycle state of a post.
type Status string

const (
	// StatusDraft is the initial state for new posts.
	StatusDraft Status = "DRAFT"

	// StatusScheduled marks a post awaiting its publish timestamp.
	StatusScheduled Status = "SCHEDULED"

	// StatusPublished makes a post publicly visible.
	StatusPublished Status = "PUBLISHED"

	// StatusArchived removes a post from public listings without deleting it.
	StatusArchived Status = "ARCHIVED"
)

// IsValid reports whether the status is one of the recognized lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// # Entities

// Post is the central content entity of the engine.
type Post struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Excerpt          *string    `json:"excerpt"`
	Content          string     `json:"content"`
	Status           Status     `json:"status"`
	PublishedAt      *time.Time `json:"published_at"`
	ViewCount        int64      `json:"view_count"`
	IsFeatured       bool       `json:"is_featured"`
	AllowComments    bool       `json:"allow_comments"`
	FeaturedImageURL *string    `json:"featured_image_url"`
	AuthorID         int64      `json:"author_id"`
	AuthorUsername   string     `json:"author_username"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Tags is hydrated by the store via JSON aggregation.
	Tags []tag.Tag `json:"tags"`
}

// AuthorRef is the minimal author projection the lifecycle needs.
type AuthorRef struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
}

// # Inputs

// Input carries the caller-supplied fields for create and update operations.
//
// Updates are full replacements, mirroring the editorial form: every field
// is written, and the tag set is fully replaced.
type Input struct {
	Title            string     `json:"title"`
	Excerpt          *string    `json:"excerpt"`
	Content          string     `json:"content"`
	Status           Status     `json:"status"`
	PublishedAt      *time.Time `json:"published_at"`
	IsFeatured       bool       `json:"is_featured"`
	AllowComments    *bool      `json:"allow_comments"`
	FeaturedImageURL *string    `json:"featured_image_url"`
	Tags             []string   `json:"tags"`
}

// Filter holds the store-level predicates for listing and search.
// Absent fields are no-ops; present fields combine with AND semantics.
type Filter struct {
	// Query matches title, excerpt, and content case-insensitively.
	Query string

	// Tags matches posts carrying at least one of the given tag names.
	Tags []string

	// AuthorUsername restricts to a single author.
	AuthorUsername string

	// Status restricts to a lifecycle state; empty means any.
	Status Status

	// FeaturedOnly keeps only featured posts when true.
	FeaturedOnly bool

	SortBy        string
	SortDirection string
}

// SearchRequest is the full search surface exposed over HTTP.
type SearchRequest struct {
	Query         string   `json:"query"`
	Tags          []string `json:"tags"`
	Author        string   `json:"author"`
	Status        Status   `json:"status"`
	FeaturedOnly  bool     `json:"featured_only"`
	Page          int      `json:"page"`
	Size          int      `json:"size"`
	SortBy        string   `json:"sort_by"`
	SortDirection string   `json:"sort_direction"`
}

// Validation field identifiers.
const (
	FieldTitle   = "title"
	FieldExcerpt = "excerpt"
	FieldContent = "content"
	FieldStatus  = "status"
)

// Attribute limits.
const (
	MaxTitleLen   = 255
	MaxExcerptLen = 500
)
