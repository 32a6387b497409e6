package schema

// BlogTagTable represents the 'blog.tag' table
type BlogTagTable struct {
	Table       string
	ID          string
	Name        string
	Slug        string
	Description string
	Color       string
	CreatedAt   string
}

// BlogTag is the schema definition for blog.tag
var BlogTag = BlogTagTable{
	Table:       "blog.tag",
	ID:          "id",
	Name:        "name",
	Slug:        "slug",
	Description: "description",
	Color:       "color",
	CreatedAt:   "createdat",
}
