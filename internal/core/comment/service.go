package comment

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/inkpress/inkpress/internal/core/post"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/internal/platform/validate"
	"github.com/inkpress/inkpress/pkg/pagination"
)

// PostCatalog resolves the posts that comments attach to.
type PostCatalog interface {
	GetPost(context context.Context, id int64) (*post.Post, error)
}

// Service owns the comment moderation workflow: submission, threaded
// replies, the pending/approved/rejected lifecycle, and author/admin
// authorization on mutations.
type Service struct {
	repo   Repository
	posts  PostCatalog
	cache  cache.Store
	logger *slog.Logger
}

// NewService constructs a new comment [Service].
func NewService(repo Repository, posts PostCatalog, cacheStore cache.Store, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		posts:  posts,
		cache:  cacheStore,
		logger: logger,
	}
}

// # Submission

/*
CreateComment submits a new comment on a post.

Description: The target post must exist and allow comments. When a parent
is given it must resolve and belong to the same post. New comments always
enter PENDING, regardless of who submitted them.

Parameters:
  - context: context.Context
  - postID: int64
  - content: string
  - author: Actor (The authenticated submitter)
  - parentID: *int64 (nil for a top-level comment)

Returns:
  - *Comment: The persisted comment in PENDING
  - error: NotFound, CommentsDisabled, or validation errors
*/
func (service *Service) CreateComment(context context.Context, postID int64, content string, author Actor, parentID *int64) (*Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	target, err := service.posts.GetPost(context, postID)
	if err != nil {
		return nil, err
	}
	if !target.AllowComments {
		return nil, apperr.CommentsDisabled()
	}

	if parentID != nil {
		parent, err := service.repo.FindByID(context, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, apperr.ValidationError("Parent comment belongs to a different post")
		}
	}

	created := &Comment{
		Content:        strings.TrimSpace(content),
		Status:         StatusPending,
		PostID:         postID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		ParentID:       parentID,
	}

	if err := service.repo.Create(context, created); err != nil {
		return nil, err
	}

	service.logger.Info("comment_created",
		slog.Int64("comment_id", created.ID),
		slog.Int64("post_id", postID),
		slog.String("author", author.Username),
		slog.Bool("is_reply", parentID != nil),
	)

	service.evict(context)
	return created, nil
}

// Reply submits a comment under an existing one. The post is implied by
// the parent, and the same comments-disabled check applies.
func (service *Service) Reply(context context.Context, parentID int64, content string, author Actor) (*Comment, error) {
	parent, err := service.repo.FindByID(context, parentID)
	if err != nil {
		return nil, err
	}
	return service.CreateComment(context, parent.PostID, content, author, &parentID)
}

// # Author Mutations

/*
UpdateComment edits a comment's content.

Description: Only the original author or an admin may edit. A successful
edit resets the status to PENDING so the comment is re-moderated.
*/
func (service *Service) UpdateComment(context context.Context, id int64, content string, actor Actor) (*Comment, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(actor, existing); err != nil {
		return nil, err
	}

	existing.Content = strings.TrimSpace(content)
	existing.Status = StatusPending

	if err := service.repo.Update(context, existing); err != nil {
		return nil, err
	}

	service.logger.Info("comment_updated",
		slog.Int64("comment_id", id),
		slog.String("actor", actor.Username),
	)

	service.evict(context)
	return existing, nil
}

// DeleteComment removes a comment and its reply subtree. The same
// author-or-admin rule as UpdateComment applies.
func (service *Service) DeleteComment(context context.Context, id int64, actor Actor) error {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return err
	}
	if err := canModify(actor, existing); err != nil {
		return err
	}

	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.logger.Warn("comment_deleted",
		slog.Int64("comment_id", id),
		slog.Int64("post_id", existing.PostID),
		slog.String("actor", actor.Username),
	)

	service.evict(context)
	return nil
}

// # Moderation

// Approve marks a comment publicly visible.
func (service *Service) Approve(context context.Context, id int64) (*Comment, error) {
	return service.moderate(context, id, StatusApproved)
}

// Reject declines a comment.
func (service *Service) Reject(context context.Context, id int64) (*Comment, error) {
	return service.moderate(context, id, StatusRejected)
}

// MarkSpam flags a comment as spam.
func (service *Service) MarkSpam(context context.Context, id int64) (*Comment, error) {
	return service.moderate(context, id, StatusSpam)
}

func (service *Service) moderate(context context.Context, id int64, verdict Status) (*Comment, error) {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	existing.Status = verdict
	if err := service.repo.UpdateStatus(context, id, verdict); err != nil {
		return nil, err
	}

	service.logger.Info("comment_moderated",
		slog.Int64("comment_id", id),
		slog.String("verdict", string(verdict)),
	)

	service.evict(context)
	return existing, nil
}

// # Reads

/*
ApprovedForPost returns a post's public discussion: the paginated top-level
APPROVED comments, each carrying its recursively assembled APPROVED reply
subtree.
*/
func (service *Service) ApprovedForPost(ctx context.Context, postID int64, params pagination.Params) (pagination.Response[*Comment], error) {
	key := cache.Key("comments", "post", strconv.FormatInt(postID, 10),
		strconv.Itoa(params.Page), strconv.Itoa(params.Size))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (pagination.Response[*Comment], error) {
			topLevel, total, err := service.repo.TopLevel(ctx, postID, StatusApproved, params.Size, params.Offset())
			if err != nil {
				return pagination.Response[*Comment]{}, err
			}

			approved, err := service.repo.ByPost(ctx, postID, StatusApproved)
			if err != nil {
				return pagination.Response[*Comment]{}, err
			}
			attachReplies(topLevel, approved)

			return pagination.NewResponse(topLevel, params.Page, params.Size, total), nil
		})
}

// ApprovedReplies returns a parent's direct APPROVED replies as a flat,
// creation-ordered list. The parent must resolve.
func (service *Service) ApprovedReplies(context context.Context, parentID int64) ([]*Comment, error) {
	if _, err := service.repo.FindByID(context, parentID); err != nil {
		return nil, err
	}
	return service.repo.Replies(context, parentID, StatusApproved)
}

// PendingQueue returns the moderation queue, oldest first, so the longest
// waiting comments are triaged first.
func (service *Service) PendingQueue(context context.Context, params pagination.Params) (pagination.Response[*Comment], error) {
	pending, total, err := service.repo.Pending(context, params.Size, params.Offset())
	if err != nil {
		return pagination.Response[*Comment]{}, err
	}
	return pagination.NewResponse(pending, params.Page, params.Size, total), nil
}

// CommentsByAuthor returns a user's comments across all posts.
func (service *Service) CommentsByAuthor(context context.Context, username string, params pagination.Params) (pagination.Response[*Comment], error) {
	comments, total, err := service.repo.ByAuthor(context, username, params.Size, params.Offset())
	if err != nil {
		return pagination.Response[*Comment]{}, err
	}
	return pagination.NewResponse(comments, params.Page, params.Size, total), nil
}

// GetComment fetches a single comment by ID.
func (service *Service) GetComment(context context.Context, id int64) (*Comment, error) {
	return service.repo.FindByID(context, id)
}

// CountByStatus exposes moderation counters for dashboard statistics.
func (service *Service) CountByStatus(context context.Context) (map[Status]int, error) {
	return service.repo.CountByStatus(context)
}

// CountForPost returns the number of comments attached to a post.
func (service *Service) CountForPost(context context.Context, postID int64) (int, error) {
	return service.repo.CountByPost(context, postID)
}

// # Internal Helpers

// canModify enforces the author-or-admin rule for comment mutations.
func canModify(actor Actor, existing *Comment) error {
	if actor.ID == existing.AuthorID || actor.Role.AtLeast(sec.RoleAdmin) {
		return nil
	}
	return apperr.Forbidden("You do not have permission to modify this comment")
}

func validateContent(content string) error {
	validator := &validate.Validator{}
	validator.
		Required(FieldContent, content).
		MaxLen(FieldContent, content, MaxContentLen)
	return validator.Err()
}

// attachReplies assembles each top-level comment's subtree from the flat
// list of a post's approved comments. The flat list is creation-ordered,
// so sibling order is preserved.
func attachReplies(topLevel, all []*Comment) {
	children := make(map[int64][]*Comment, len(all))
	for _, candidate := range all {
		if candidate.ParentID != nil {
			children[*candidate.ParentID] = append(children[*candidate.ParentID], candidate)
		}
	}

	var attach func(node *Comment)
	attach = func(node *Comment) {
		node.Replies = children[node.ID]
		for _, reply := range node.Replies {
			attach(reply)
		}
	}
	for _, root := range topLevel {
		attach(root)
	}
}

// evict flushes the post-related cache groups; comment trees are cached
// alongside their posts.
func (service *Service) evict(context context.Context) {
	cache.Evict(context, service.cache, service.logger, cache.PostGroups...)
}
