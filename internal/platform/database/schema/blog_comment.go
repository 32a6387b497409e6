package schema

// BlogCommentTable represents the 'blog.comment' table
type BlogCommentTable struct {
	Table     string
	ID        string
	Content   string
	Status    string
	PostID    string
	AuthorID  string
	ParentID  string
	CreatedAt string
	UpdatedAt string
}

// BlogComment is the schema definition for blog.comment
var BlogComment = BlogCommentTable{
	Table:     "blog.comment",
	ID:        "id",
	Content:   "content",
	Status:    "status",
	PostID:    "postid",
	AuthorID:  "authorid",
	ParentID:  "parentid",
	CreatedAt: "createdat",
	UpdatedAt: "updatedat",
}
