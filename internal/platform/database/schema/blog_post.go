package schema

// BlogPostTable represents the 'blog.post' table
type BlogPostTable struct {
	Table            string
	ID               string
	Title            string
	Slug             string
	Excerpt          string
	Content          string
	Status           string
	PublishedAt      string
	ViewCount        string
	IsFeatured       string
	AllowComments    string
	FeaturedImageURL string
	AuthorID         string
	CreatedAt        string
	UpdatedAt        string
}

// BlogPost is the schema definition for blog.post
var BlogPost = BlogPostTable{
	Table:            "blog.post",
	ID:               "id",
	Title:            "title",
	Slug:             "slug",
	Excerpt:          "excerpt",
	Content:          "content",
	Status:           "status",
	PublishedAt:      "publishedat",
	ViewCount:        "viewcount",
	IsFeatured:       "isfeatured",
	AllowComments:    "allowcomments",
	FeaturedImageURL: "featuredimageurl",
	AuthorID:         "authorid",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
}
