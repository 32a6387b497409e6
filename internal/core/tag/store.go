package tag

import "context"

// Repository is the persistence contract for tags.
type Repository interface {
	FindByID(context context.Context, id int64) (*Tag, error)
	FindBySlug(context context.Context, slug string) (*Tag, error)

	// FindByName performs an exact, case-sensitive name lookup.
	FindByName(context context.Context, name string) (*Tag, error)

	List(context context.Context) ([]*Tag, error)
	Popular(context context.Context, limit int) ([]*Tag, error)

	// Search matches name and description case-insensitively.
	Search(context context.Context, query string, limit, offset int) ([]*Tag, int, error)

	Create(context context.Context, tag *Tag) error
	Update(context context.Context, tag *Tag) error

	// Delete removes the tag and detaches it from all posts.
	Delete(context context.Context, id int64) error

	NameExists(context context.Context, name string) (bool, error)
	Count(context context.Context) (int, error)
}
