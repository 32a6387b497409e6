package post

import (
	"context"
	"time"
)

// Repository is the persistence contract for posts.
//
// Mutations that touch the tag junction (Create, Update) and the cascade
// delete run inside a single transaction: a failed operation leaves no
// partial state behind.
type Repository interface {
	FindByID(context context.Context, id int64) (*Post, error)
	FindBySlug(context context.Context, slug string) (*Post, error)

	// List applies the filter with AND semantics and returns the matching
	// page plus the total match count.
	List(context context.Context, filter Filter, limit, offset int) ([]*Post, int, error)

	Featured(context context.Context, limit int) ([]*Post, error)
	Recent(context context.Context, limit int) ([]*Post, error)
	Popular(context context.Context, limit int) ([]*Post, error)

	// Related returns published posts sharing the most tags with the given post.
	Related(context context.Context, postID int64, limit int) ([]*Post, error)

	// FindDue returns scheduled posts whose publish timestamp is at or
	// before now, for the external promotion trigger.
	FindDue(context context.Context, now time.Time) ([]*Post, error)

	Create(context context.Context, post *Post, tagIDs []int64) error
	Update(context context.Context, post *Post, tagIDs []int64) error

	// UpdateStatus writes only the lifecycle fields.
	UpdateStatus(context context.Context, id int64, status Status, publishedAt *time.Time) error

	// ToggleFeatured flips the flag and returns the new value.
	ToggleFeatured(context context.Context, id int64) (bool, error)

	// IncrementViewCount performs a single atomic counter update. It must
	// not read-modify-write so concurrent views never lose an increment.
	IncrementViewCount(context context.Context, id int64) error

	// Delete removes the post together with its comments and tag links.
	Delete(context context.Context, id int64) error

	SlugExists(context context.Context, slug string) (bool, error)
	TitleExists(context context.Context, title string, excludeID int64) (bool, error)

	CountByStatus(context context.Context) (map[Status]int, error)
	TotalViews(context context.Context) (int64, error)
}
