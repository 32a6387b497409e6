/*
Package comment implements the comment moderation workflow.

Comments form a tree per post: top-level comments carry no parent, replies
point at their parent. Every new or edited comment enters the PENDING state
and waits for a moderator verdict before it becomes publicly visible.
*/
package comment

import (
	"time"

	"github.com/inkpress/inkpress/internal/platform/sec"
)

// # Moderation States

// Status is the moderation state of a comment.
type Status string

const (
	// StatusPending awaits a moderator verdict. Every new or edited
	// comment starts here.
	StatusPending Status = "PENDING"

	// StatusApproved is publicly visible.
	StatusApproved Status = "APPROVED"

	// StatusRejected was declined by a moderator.
	StatusRejected Status = "REJECTED"

	// StatusSpam was flagged as spam.
	StatusSpam Status = "SPAM"
)

// IsValid reports whether the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSpam:
		return true
	}
	return false
}

// # Entity

// Comment is a single entry in a post's discussion tree.
type Comment struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Status  Status `json:"status"`

	PostID         int64  `json:"post_id"`
	AuthorID       int64  `json:"author_id"`
	AuthorUsername string `json:"author_username"`

	// ParentID is nil for top-level comments.
	ParentID *int64 `json:"parent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Replies holds the approved subtree when the comment is served as
	// part of a post's public discussion.
	Replies []*Comment `json:"replies,omitempty"`
}

// Actor identifies the authenticated user performing a comment mutation.
type Actor struct {
	ID       int64
	Username string
	Role     sec.UserRole
}

// Validation constants.
const (
	FieldContent = "content"

	MaxContentLen = 2000
)
