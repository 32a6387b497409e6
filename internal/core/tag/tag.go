package tag

import "time"

// Tag represents a categorization label applied to posts.
//
// Tags are created either explicitly by an editor or implicitly the first
// time a post references an unknown name. Name matching is exact and
// case-sensitive: "Java" and "java" are two distinct tags.
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	CreatedAt   time.Time `json:"created_at"`

	// PostCount is populated by popularity queries only.
	PostCount int `json:"post_count,omitempty"`
}

// Validation field identifiers.
const (
	FieldName        = "name"
	FieldSlug        = "slug"
	FieldDescription = "description"
	FieldColor       = "color"
)

// Attribute limits.
const (
	MaxNameLen        = 100
	MaxDescriptionLen = 500
)
