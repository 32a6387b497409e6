package comment_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/core/comment"
	"github.com/inkpress/inkpress/internal/core/post"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/pkg/pagination"
	"github.com/inkpress/inkpress/pkg/pointer"
)

var (
	alice = comment.Actor{ID: 1, Username: "alice", Role: sec.RoleUser}
	bob   = comment.Actor{ID: 2, Username: "bob", Role: sec.RoleUser}
	root  = comment.Actor{ID: 3, Username: "root", Role: sec.RoleAdmin}
)

// fakeRepository is an in-memory [comment.Repository] for service tests.
type fakeRepository struct {
	comments map[int64]*comment.Comment
	nextID   int64
	now      time.Time
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		comments: make(map[int64]*comment.Comment),
		nextID:   1,
		now:      time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC),
	}
}

// tick advances the fake clock so creation order is observable.
func (r *fakeRepository) tick() time.Time {
	r.now = r.now.Add(time.Minute)
	return r.now
}

func (r *fakeRepository) FindByID(_ context.Context, id int64) (*comment.Comment, error) {
	if found, ok := r.comments[id]; ok {
		snapshot := *found
		return &snapshot, nil
	}
	return nil, apperr.NotFound("Comment", "id", fmt.Sprint(id))
}

func (r *fakeRepository) ordered(filter func(*comment.Comment) bool, ascending bool) []*comment.Comment {
	matched := make([]*comment.Comment, 0)
	for _, candidate := range r.comments {
		if filter(candidate) {
			snapshot := *candidate
			matched = append(matched, &snapshot)
		}
	}
	sort.Slice(matched, func(left, right int) bool {
		if ascending {
			return matched[left].CreatedAt.Before(matched[right].CreatedAt)
		}
		return matched[left].CreatedAt.After(matched[right].CreatedAt)
	})
	return matched
}

func paginate(matched []*comment.Comment, limit, offset int) ([]*comment.Comment, int) {
	total := len(matched)
	if offset >= total {
		return nil, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total
}

func (r *fakeRepository) TopLevel(_ context.Context, postID int64, status comment.Status, limit, offset int) ([]*comment.Comment, int, error) {
	matched := r.ordered(func(c *comment.Comment) bool {
		return c.PostID == postID && c.ParentID == nil && c.Status == status
	}, false)
	page, total := paginate(matched, limit, offset)
	return page, total, nil
}

func (r *fakeRepository) Replies(_ context.Context, parentID int64, status comment.Status) ([]*comment.Comment, error) {
	return r.ordered(func(c *comment.Comment) bool {
		return c.ParentID != nil && *c.ParentID == parentID && c.Status == status
	}, true), nil
}

func (r *fakeRepository) ByPost(_ context.Context, postID int64, status comment.Status) ([]*comment.Comment, error) {
	return r.ordered(func(c *comment.Comment) bool {
		return c.PostID == postID && c.Status == status
	}, true), nil
}

func (r *fakeRepository) Pending(_ context.Context, limit, offset int) ([]*comment.Comment, int, error) {
	matched := r.ordered(func(c *comment.Comment) bool {
		return c.Status == comment.StatusPending
	}, true)
	page, total := paginate(matched, limit, offset)
	return page, total, nil
}

func (r *fakeRepository) ByAuthor(_ context.Context, username string, limit, offset int) ([]*comment.Comment, int, error) {
	matched := r.ordered(func(c *comment.Comment) bool {
		return c.AuthorUsername == username
	}, false)
	page, total := paginate(matched, limit, offset)
	return page, total, nil
}

func (r *fakeRepository) Create(_ context.Context, created *comment.Comment) error {
	created.ID = r.nextID
	r.nextID++
	created.CreatedAt = r.tick()
	created.UpdatedAt = created.CreatedAt
	snapshot := *created
	r.comments[created.ID] = &snapshot
	return nil
}

func (r *fakeRepository) Update(_ context.Context, updated *comment.Comment) error {
	existing, ok := r.comments[updated.ID]
	if !ok {
		return apperr.NotFound("Comment", "id", fmt.Sprint(updated.ID))
	}
	existing.Content = updated.Content
	existing.Status = updated.Status
	existing.UpdatedAt = r.tick()
	updated.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *fakeRepository) UpdateStatus(_ context.Context, id int64, status comment.Status) error {
	existing, ok := r.comments[id]
	if !ok {
		return apperr.NotFound("Comment", "id", fmt.Sprint(id))
	}
	existing.Status = status
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id int64) error {
	if _, ok := r.comments[id]; !ok {
		return apperr.NotFound("Comment", "id", fmt.Sprint(id))
	}
	// Cascade to the reply subtree, like the real store.
	doomed := []int64{id}
	for len(doomed) > 0 {
		next := doomed[0]
		doomed = doomed[1:]
		delete(r.comments, next)
		for _, candidate := range r.comments {
			if candidate.ParentID != nil && *candidate.ParentID == next {
				doomed = append(doomed, candidate.ID)
			}
		}
	}
	return nil
}

func (r *fakeRepository) CountByStatus(_ context.Context) (map[comment.Status]int, error) {
	counts := make(map[comment.Status]int)
	for _, candidate := range r.comments {
		counts[candidate.Status]++
	}
	return counts, nil
}

func (r *fakeRepository) CountByPost(_ context.Context, postID int64) (int, error) {
	count := 0
	for _, candidate := range r.comments {
		if candidate.PostID == postID {
			count++
		}
	}
	return count, nil
}

// fakeCatalog serves the posts that comments attach to.
type fakeCatalog struct {
	posts map[int64]*post.Post
}

func (f *fakeCatalog) GetPost(_ context.Context, id int64) (*post.Post, error) {
	if found, ok := f.posts[id]; ok {
		return found, nil
	}
	return nil, apperr.NotFound("Post", "id", fmt.Sprint(id))
}

func newService(repo comment.Repository) *comment.Service {
	catalog := &fakeCatalog{posts: map[int64]*post.Post{
		10: {ID: 10, Title: "Open Thread", AllowComments: true},
		11: {ID: 11, Title: "Closed Thread", AllowComments: false},
	}}
	return comment.NewService(repo, catalog, cache.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestCreateComment verifies submission lands in PENDING with the author
attached.
*/
func TestCreateComment(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreateComment(context.Background(), 10, "First!", alice, nil)
	require.NoError(t, err)

	assert.Equal(t, comment.StatusPending, created.Status)
	assert.Equal(t, int64(10), created.PostID)
	assert.Equal(t, alice.ID, created.AuthorID)
	assert.Equal(t, "alice", created.AuthorUsername)
	assert.Nil(t, created.ParentID)
}

/*
TestCreateComment_CommentsDisabled verifies the disabled-post guard.
*/
func TestCreateComment_CommentsDisabled(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.CreateComment(context.Background(), 11, "Let me in", alice, nil)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "COMMENTS_DISABLED", ae.Code)
	assert.Empty(t, repo.comments)
}

/*
TestCreateComment_ParentOnDifferentPost verifies a reply cannot cross posts.
*/
func TestCreateComment_ParentOnDifferentPost(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	parent, err := service.CreateComment(context.Background(), 10, "On post ten", alice, nil)
	require.NoError(t, err)

	// Post 12 allows comments but the parent lives on post 10.
	catalog := &fakeCatalog{posts: map[int64]*post.Post{
		12: {ID: 12, Title: "Other Thread", AllowComments: true},
	}}
	crossed := comment.NewService(repo, catalog, cache.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err = crossed.CreateComment(context.Background(), 12, "Wrong thread", bob, pointer.To(parent.ID))
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

/*
TestReply verifies the post and parent link are implied by the parent.
*/
func TestReply(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	parent, err := service.CreateComment(context.Background(), 10, "Parent", alice, nil)
	require.NoError(t, err)

	reply, err := service.Reply(context.Background(), parent.ID, "Child", bob)
	require.NoError(t, err)

	assert.Equal(t, parent.PostID, reply.PostID)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, parent.ID, *reply.ParentID)
	assert.Equal(t, comment.StatusPending, reply.Status)

	_, err = service.Reply(context.Background(), 9999, "Ghost parent", bob)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestUpdateComment_AuthorizationAndReset covers the author-or-admin rule and
the PENDING reset after an edit.
*/
func TestUpdateComment_AuthorizationAndReset(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreateComment(context.Background(), 10, "Original", alice, nil)
	require.NoError(t, err)
	_, err = service.Approve(context.Background(), created.ID)
	require.NoError(t, err)

	// A stranger may not edit.
	_, err = service.UpdateComment(context.Background(), created.ID, "Hijacked", bob)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "FORBIDDEN", ae.Code)

	// The author may, and the edit re-enters moderation.
	edited, err := service.UpdateComment(context.Background(), created.ID, "Revised", alice)
	require.NoError(t, err)
	assert.Equal(t, "Revised", edited.Content)
	assert.Equal(t, comment.StatusPending, edited.Status)

	// So may an admin who is not the author.
	_, err = service.UpdateComment(context.Background(), created.ID, "Admin touch", root)
	require.NoError(t, err)
}

/*
TestDeleteComment_Authorization mirrors the update rule and cascades the
subtree.
*/
func TestDeleteComment_Authorization(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	parent, err := service.CreateComment(context.Background(), 10, "Parent", alice, nil)
	require.NoError(t, err)
	_, err = service.Reply(context.Background(), parent.ID, "Child", bob)
	require.NoError(t, err)

	err = service.DeleteComment(context.Background(), parent.ID, bob)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "FORBIDDEN", ae.Code)

	require.NoError(t, service.DeleteComment(context.Background(), parent.ID, alice))
	assert.Empty(t, repo.comments)
}

/*
TestModerationVerdicts walks approve, reject, and spam transitions.
*/
func TestModerationVerdicts(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreateComment(context.Background(), 10, "Judge me", alice, nil)
	require.NoError(t, err)

	approved, err := service.Approve(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, comment.StatusApproved, approved.Status)

	rejected, err := service.Reject(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, comment.StatusRejected, rejected.Status)

	spammed, err := service.MarkSpam(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, comment.StatusSpam, spammed.Status)

	_, err = service.Approve(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestApprovedForPost_TreeAssembly verifies the public view: only APPROVED
comments appear, replies nest recursively, and pending branches vanish.
*/
func TestApprovedForPost_TreeAssembly(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	top, err := service.CreateComment(context.Background(), 10, "Top", alice, nil)
	require.NoError(t, err)
	reply, err := service.Reply(context.Background(), top.ID, "Reply", bob)
	require.NoError(t, err)
	nested, err := service.Reply(context.Background(), reply.ID, "Nested", alice)
	require.NoError(t, err)
	// This reply stays PENDING and must not appear in the tree.
	_, err = service.Reply(context.Background(), top.ID, "Hidden", bob)
	require.NoError(t, err)

	for _, id := range []int64{top.ID, reply.ID, nested.ID} {
		_, err := service.Approve(context.Background(), id)
		require.NoError(t, err)
	}

	page, err := service.ApprovedForPost(context.Background(), 10, pagination.Params{Page: 0, Size: 10})
	require.NoError(t, err)

	require.Len(t, page.Content, 1)
	tree := page.Content[0]
	assert.Equal(t, "Top", tree.Content)

	require.Len(t, tree.Replies, 1)
	assert.Equal(t, "Reply", tree.Replies[0].Content)
	require.Len(t, tree.Replies[0].Replies, 1)
	assert.Equal(t, "Nested", tree.Replies[0].Replies[0].Content)
}

/*
TestApprovedReplies verifies the flat, creation-ordered reply list.
*/
func TestApprovedReplies(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	parent, err := service.CreateComment(context.Background(), 10, "Parent", alice, nil)
	require.NoError(t, err)

	for _, content := range []string{"first", "second", "third"} {
		reply, err := service.Reply(context.Background(), parent.ID, content, bob)
		require.NoError(t, err)
		if content != "second" {
			_, err = service.Approve(context.Background(), reply.ID)
			require.NoError(t, err)
		}
	}

	replies, err := service.ApprovedReplies(context.Background(), parent.ID)
	require.NoError(t, err)

	require.Len(t, replies, 2)
	assert.Equal(t, "first", replies[0].Content)
	assert.Equal(t, "third", replies[1].Content)

	_, err = service.ApprovedReplies(context.Background(), 9999)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestPendingQueue_OldestFirst verifies moderator triage order.
*/
func TestPendingQueue_OldestFirst(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	for _, content := range []string{"oldest", "middle", "newest"} {
		_, err := service.CreateComment(context.Background(), 10, content, alice, nil)
		require.NoError(t, err)
	}

	page, err := service.PendingQueue(context.Background(), pagination.Params{Page: 0, Size: 2})
	require.NoError(t, err)

	assert.Equal(t, 3, page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "oldest", page.Content[0].Content)
	assert.Equal(t, "middle", page.Content[1].Content)
}

/*
TestCreateComment_Validation rejects blank and oversized content before any
store interaction.
*/
func TestCreateComment_Validation(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.CreateComment(context.Background(), 10, "   ", alice, nil)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Empty(t, repo.comments)
}
