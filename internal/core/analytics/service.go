/*
Package analytics aggregates dashboard statistics across the content
engine: post lifecycle counters, view totals, moderation queue depth, and
popular content.

It owns no storage of its own; everything is derived from the other core
services' counters.
*/
package analytics

import (
	"context"
	"log/slog"

	"github.com/inkpress/inkpress/internal/core/comment"
	"github.com/inkpress/inkpress/internal/core/post"
	"github.com/inkpress/inkpress/internal/core/tag"
	"github.com/inkpress/inkpress/internal/platform/cache"
)

// # Collaborators

// PostStats is the post-side counter surface.
type PostStats interface {
	GetPost(context context.Context, id int64) (*post.Post, error)
	CountByStatus(context context.Context) (map[post.Status]int, error)
	TotalViews(context context.Context) (int64, error)
	PopularPosts(context context.Context, limit int) ([]*post.Post, error)
}

// TagStats is the tag-side counter surface.
type TagStats interface {
	CountTags(context context.Context) (int, error)
	PopularTags(context context.Context, limit int) ([]*tag.Tag, error)
}

// CommentStats is the comment-side counter surface.
type CommentStats interface {
	CountByStatus(context context.Context) (map[comment.Status]int, error)
	CountForPost(context context.Context, postID int64) (int, error)
}

// UserStats is the account-side counter surface.
type UserStats interface {
	CountUsers(context context.Context) (int, error)
}

// # Aggregates

// DashboardStats is the admin dashboard summary.
type DashboardStats struct {
	TotalPosts     int `json:"total_posts"`
	PublishedPosts int `json:"published_posts"`
	DraftPosts     int `json:"draft_posts"`
	ScheduledPosts int `json:"scheduled_posts"`
	ArchivedPosts  int `json:"archived_posts"`

	TotalViews int64 `json:"total_views"`
	TotalTags  int   `json:"total_tags"`

	TotalComments    int `json:"total_comments"`
	PendingComments  int `json:"pending_comments"`
	ApprovedComments int `json:"approved_comments"`

	TotalUsers int `json:"total_users"`
}

// PostAnalytics is the per-post engagement summary.
type PostAnalytics struct {
	PostID       int64  `json:"post_id"`
	Title        string `json:"title"`
	ViewCount    int64  `json:"view_count"`
	CommentCount int    `json:"comment_count"`

	// EngagementRate is comments per view, 0 when the post has no views.
	EngagementRate float64 `json:"engagement_rate"`
}

// PopularContent bundles the most viewed posts with the most used tags.
type PopularContent struct {
	Posts []*post.Post `json:"posts"`
	Tags  []*tag.Tag   `json:"tags"`
}

// # Service Layer

// Service aggregates statistics from the core services.
type Service struct {
	posts    PostStats
	tags     TagStats
	comments CommentStats
	users    UserStats
	cache    cache.Store
	logger   *slog.Logger
}

// NewService constructs a new analytics [Service].
func NewService(posts PostStats, tags TagStats, comments CommentStats, users UserStats,
	cacheStore cache.Store, logger *slog.Logger) *Service {
	return &Service{
		posts:    posts,
		tags:     tags,
		comments: comments,
		users:    users,
		cache:    cacheStore,
		logger:   logger,
	}
}

// Dashboard assembles the admin summary. The result is cached alongside
// the content groups so any post or tag mutation refreshes it.
func (service *Service) Dashboard(ctx context.Context) (*DashboardStats, error) {
	key := cache.Key("analytics", "dashboard")
	groups := []string{cache.GroupPosts, cache.GroupTags}
	return cache.Fetch(ctx, service.cache, service.logger, key, groups,
		func(ctx context.Context) (*DashboardStats, error) {
			return service.loadDashboard(ctx)
		})
}

func (service *Service) loadDashboard(context context.Context) (*DashboardStats, error) {
	postCounts, err := service.posts.CountByStatus(context)
	if err != nil {
		return nil, err
	}
	views, err := service.posts.TotalViews(context)
	if err != nil {
		return nil, err
	}
	tagCount, err := service.tags.CountTags(context)
	if err != nil {
		return nil, err
	}
	commentCounts, err := service.comments.CountByStatus(context)
	if err != nil {
		return nil, err
	}
	userCount, err := service.users.CountUsers(context)
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		PublishedPosts:   postCounts[post.StatusPublished],
		DraftPosts:       postCounts[post.StatusDraft],
		ScheduledPosts:   postCounts[post.StatusScheduled],
		ArchivedPosts:    postCounts[post.StatusArchived],
		TotalViews:       views,
		TotalTags:        tagCount,
		PendingComments:  commentCounts[comment.StatusPending],
		ApprovedComments: commentCounts[comment.StatusApproved],
		TotalUsers:       userCount,
	}
	for _, count := range postCounts {
		stats.TotalPosts += count
	}
	for _, count := range commentCounts {
		stats.TotalComments += count
	}
	return stats, nil
}

// ForPost assembles the engagement summary of a single post.
func (service *Service) ForPost(context context.Context, postID int64) (*PostAnalytics, error) {
	target, err := service.posts.GetPost(context, postID)
	if err != nil {
		return nil, err
	}

	commentCount, err := service.comments.CountForPost(context, postID)
	if err != nil {
		return nil, err
	}

	summary := &PostAnalytics{
		PostID:       target.ID,
		Title:        target.Title,
		ViewCount:    target.ViewCount,
		CommentCount: commentCount,
	}
	if target.ViewCount > 0 {
		summary.EngagementRate = float64(commentCount) / float64(target.ViewCount)
	}
	return summary, nil
}

// Popular bundles the most viewed posts and most used tags.
func (service *Service) Popular(context context.Context, limit int) (*PopularContent, error) {
	if limit <= 0 {
		limit = 5
	}

	posts, err := service.posts.PopularPosts(context, limit)
	if err != nil {
		return nil, err
	}
	tags, err := service.tags.PopularTags(context, limit)
	if err != nil {
		return nil, err
	}
	return &PopularContent{Posts: posts, Tags: tags}, nil
}
