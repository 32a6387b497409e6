package analytics_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/core/analytics"
	"github.com/inkpress/inkpress/internal/core/comment"
	"github.com/inkpress/inkpress/internal/core/post"
	"github.com/inkpress/inkpress/internal/core/tag"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
)

type fakePostStats struct {
	posts  map[int64]*post.Post
	counts map[post.Status]int
	views  int64
}

func (f *fakePostStats) GetPost(_ context.Context, id int64) (*post.Post, error) {
	if found, ok := f.posts[id]; ok {
		return found, nil
	}
	return nil, apperr.NotFound("Post", "id", fmt.Sprint(id))
}

func (f *fakePostStats) CountByStatus(_ context.Context) (map[post.Status]int, error) {
	return f.counts, nil
}

func (f *fakePostStats) TotalViews(_ context.Context) (int64, error) {
	return f.views, nil
}

func (f *fakePostStats) PopularPosts(_ context.Context, limit int) ([]*post.Post, error) {
	popular := make([]*post.Post, 0, len(f.posts))
	for _, candidate := range f.posts {
		popular = append(popular, candidate)
	}
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

type fakeTagStats struct {
	count int
	tags  []*tag.Tag
}

func (f *fakeTagStats) CountTags(_ context.Context) (int, error) { return f.count, nil }

func (f *fakeTagStats) PopularTags(_ context.Context, _ int) ([]*tag.Tag, error) {
	return f.tags, nil
}

type fakeCommentStats struct {
	counts  map[comment.Status]int
	perPost map[int64]int
}

func (f *fakeCommentStats) CountByStatus(_ context.Context) (map[comment.Status]int, error) {
	return f.counts, nil
}

func (f *fakeCommentStats) CountForPost(_ context.Context, postID int64) (int, error) {
	return f.perPost[postID], nil
}

type fakeUserStats struct{ count int }

func (f *fakeUserStats) CountUsers(_ context.Context) (int, error) { return f.count, nil }

func newService() *analytics.Service {
	posts := &fakePostStats{
		posts: map[int64]*post.Post{
			1: {ID: 1, Title: "Widely Read", ViewCount: 200},
			2: {ID: 2, Title: "Unread", ViewCount: 0},
		},
		counts: map[post.Status]int{
			post.StatusPublished: 4,
			post.StatusDraft:     2,
			post.StatusScheduled: 1,
		},
		views: 200,
	}
	tags := &fakeTagStats{count: 9, tags: []*tag.Tag{{ID: 1, Name: "go"}}}
	comments := &fakeCommentStats{
		counts:  map[comment.Status]int{comment.StatusApproved: 10, comment.StatusPending: 3},
		perPost: map[int64]int{1: 50},
	}
	users := &fakeUserStats{count: 12}
	return analytics.NewService(posts, tags, comments, users,
		cache.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestDashboard verifies the cross-service aggregation and totals.
*/
func TestDashboard(t *testing.T) {
	service := newService()

	stats, err := service.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 7, stats.TotalPosts)
	assert.Equal(t, 4, stats.PublishedPosts)
	assert.Equal(t, 2, stats.DraftPosts)
	assert.Equal(t, 1, stats.ScheduledPosts)
	assert.Equal(t, 0, stats.ArchivedPosts)
	assert.Equal(t, int64(200), stats.TotalViews)
	assert.Equal(t, 9, stats.TotalTags)
	assert.Equal(t, 13, stats.TotalComments)
	assert.Equal(t, 3, stats.PendingComments)
	assert.Equal(t, 10, stats.ApprovedComments)
	assert.Equal(t, 12, stats.TotalUsers)
}

/*
TestForPost verifies the engagement rate and its zero-view guard.
*/
func TestForPost(t *testing.T) {
	service := newService()

	engaged, err := service.ForPost(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(200), engaged.ViewCount)
	assert.Equal(t, 50, engaged.CommentCount)
	assert.InDelta(t, 0.25, engaged.EngagementRate, 1e-9)

	unread, err := service.ForPost(context.Background(), 2)
	require.NoError(t, err)
	assert.Zero(t, unread.EngagementRate)

	_, err = service.ForPost(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestPopular bundles posts and tags.
*/
func TestPopular(t *testing.T) {
	service := newService()

	content, err := service.Popular(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, content.Posts, 1)
	assert.Len(t, content.Tags, 1)
}
