package comment

import "context"

// Repository is the persistence contract for comments.
type Repository interface {
	FindByID(context context.Context, id int64) (*Comment, error)

	// TopLevel returns the paginated parentless comments of a post in the
	// given status, newest first, plus the total match count.
	TopLevel(context context.Context, postID int64, status Status, limit, offset int) ([]*Comment, int, error)

	// Replies returns a parent's direct children in the given status as a
	// flat list, oldest first.
	Replies(context context.Context, parentID int64, status Status) ([]*Comment, error)

	// ByPost returns every comment of a post in the given status, oldest
	// first, for subtree assembly.
	ByPost(context context.Context, postID int64, status Status) ([]*Comment, error)

	// Pending returns the paginated moderation queue, oldest first.
	Pending(context context.Context, limit, offset int) ([]*Comment, int, error)

	// ByAuthor returns a user's comments across all posts, newest first.
	ByAuthor(context context.Context, username string, limit, offset int) ([]*Comment, int, error)

	Create(context context.Context, comment *Comment) error

	// Update writes content and status together so an edit and its PENDING
	// reset land atomically.
	Update(context context.Context, comment *Comment) error

	UpdateStatus(context context.Context, id int64, status Status) error

	// Delete removes the comment together with its entire reply subtree.
	Delete(context context.Context, id int64) error

	CountByStatus(context context.Context) (map[Status]int, error)
	CountByPost(context context.Context, postID int64) (int, error)
}
