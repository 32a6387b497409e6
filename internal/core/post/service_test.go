package post_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/core/post"
	"github.com/inkpress/inkpress/internal/core/tag"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
	"github.com/inkpress/inkpress/pkg/pagination"
	"github.com/inkpress/inkpress/pkg/pointer"
)

// fixedNow keeps lifecycle timestamps deterministic across the suite.
var fixedNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

// fakeRepository is an in-memory [post.Repository] for service tests.
type fakeRepository struct {
	posts  map[int64]*post.Post
	links  map[int64][]int64
	nextID int64

	findCalls int
	listCalls int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		posts:  make(map[int64]*post.Post),
		links:  make(map[int64][]int64),
		nextID: 1,
	}
}

func (r *fakeRepository) FindByID(_ context.Context, id int64) (*post.Post, error) {
	r.findCalls++
	if found, ok := r.posts[id]; ok {
		snapshot := *found
		return &snapshot, nil
	}
	return nil, apperr.NotFound("Post", "id", fmt.Sprint(id))
}

func (r *fakeRepository) FindBySlug(_ context.Context, slug string) (*post.Post, error) {
	for _, found := range r.posts {
		if found.Slug == slug {
			snapshot := *found
			return &snapshot, nil
		}
	}
	return nil, apperr.NotFound("Post", "slug", slug)
}

func (r *fakeRepository) List(_ context.Context, filter post.Filter, limit, offset int) ([]*post.Post, int, error) {
	r.listCalls++
	matched := make([]*post.Post, 0, len(r.posts))
	for _, candidate := range r.posts {
		if filter.Status != "" && candidate.Status != filter.Status {
			continue
		}
		if filter.AuthorUsername != "" && candidate.AuthorUsername != filter.AuthorUsername {
			continue
		}
		if filter.FeaturedOnly && !candidate.IsFeatured {
			continue
		}
		if filter.Query != "" &&
			!strings.Contains(strings.ToLower(candidate.Title), strings.ToLower(filter.Query)) &&
			!strings.Contains(strings.ToLower(candidate.Content), strings.ToLower(filter.Query)) {
			continue
		}
		if len(filter.Tags) > 0 && !hasAnyTag(candidate, filter.Tags) {
			continue
		}
		snapshot := *candidate
		matched = append(matched, &snapshot)
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func hasAnyTag(candidate *post.Post, names []string) bool {
	for _, attached := range candidate.Tags {
		for _, name := range names {
			if attached.Name == name {
				return true
			}
		}
	}
	return false
}

func (r *fakeRepository) Featured(_ context.Context, limit int) ([]*post.Post, error) {
	matched, _, err := r.List(context.Background(),
		post.Filter{Status: post.StatusPublished, FeaturedOnly: true}, limit, 0)
	return matched, err
}

func (r *fakeRepository) Recent(_ context.Context, limit int) ([]*post.Post, error) {
	matched, _, err := r.List(context.Background(),
		post.Filter{Status: post.StatusPublished}, limit, 0)
	return matched, err
}

func (r *fakeRepository) Popular(_ context.Context, limit int) ([]*post.Post, error) {
	return r.Recent(context.Background(), limit)
}

func (r *fakeRepository) Related(_ context.Context, _ int64, _ int) ([]*post.Post, error) {
	return nil, nil
}

func (r *fakeRepository) FindDue(_ context.Context, now time.Time) ([]*post.Post, error) {
	due := make([]*post.Post, 0)
	for _, candidate := range r.posts {
		if candidate.Status == post.StatusScheduled &&
			candidate.PublishedAt != nil && !candidate.PublishedAt.After(now) {
			snapshot := *candidate
			due = append(due, &snapshot)
		}
	}
	return due, nil
}

func (r *fakeRepository) Create(_ context.Context, created *post.Post, tagIDs []int64) error {
	created.ID = r.nextID
	r.nextID++
	created.CreatedAt = fixedNow
	created.UpdatedAt = fixedNow
	snapshot := *created
	r.posts[created.ID] = &snapshot
	r.links[created.ID] = tagIDs
	return nil
}

func (r *fakeRepository) Update(_ context.Context, updated *post.Post, tagIDs []int64) error {
	if _, ok := r.posts[updated.ID]; !ok {
		return apperr.NotFound("Post", "id", fmt.Sprint(updated.ID))
	}
	snapshot := *updated
	r.posts[updated.ID] = &snapshot
	r.links[updated.ID] = tagIDs
	return nil
}

func (r *fakeRepository) UpdateStatus(_ context.Context, id int64, status post.Status, publishedAt *time.Time) error {
	existing, ok := r.posts[id]
	if !ok {
		return apperr.NotFound("Post", "id", fmt.Sprint(id))
	}
	existing.Status = status
	existing.PublishedAt = publishedAt
	return nil
}

func (r *fakeRepository) ToggleFeatured(_ context.Context, id int64) (bool, error) {
	existing, ok := r.posts[id]
	if !ok {
		return false, apperr.NotFound("Post", "id", fmt.Sprint(id))
	}
	existing.IsFeatured = !existing.IsFeatured
	return existing.IsFeatured, nil
}

func (r *fakeRepository) IncrementViewCount(_ context.Context, id int64) error {
	existing, ok := r.posts[id]
	if !ok {
		return apperr.NotFound("Post", "id", fmt.Sprint(id))
	}
	existing.ViewCount++
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id int64) error {
	if _, ok := r.posts[id]; !ok {
		return apperr.NotFound("Post", "id", fmt.Sprint(id))
	}
	delete(r.posts, id)
	delete(r.links, id)
	return nil
}

func (r *fakeRepository) SlugExists(_ context.Context, slug string) (bool, error) {
	for _, candidate := range r.posts {
		if candidate.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepository) TitleExists(_ context.Context, title string, excludeID int64) (bool, error) {
	for _, candidate := range r.posts {
		if candidate.Title == title && candidate.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepository) CountByStatus(_ context.Context) (map[post.Status]int, error) {
	counts := make(map[post.Status]int)
	for _, candidate := range r.posts {
		counts[candidate.Status]++
	}
	return counts, nil
}

func (r *fakeRepository) TotalViews(_ context.Context) (int64, error) {
	var total int64
	for _, candidate := range r.posts {
		total += candidate.ViewCount
	}
	return total, nil
}

// fakeTagResolver hands back one tag per distinct name, assigning IDs
// in call order.
type fakeTagResolver struct {
	known  map[string]*tag.Tag
	nextID int64
}

func newFakeTagResolver() *fakeTagResolver {
	return &fakeTagResolver{known: make(map[string]*tag.Tag), nextID: 1}
}

func (f *fakeTagResolver) Resolve(_ context.Context, names []string) ([]*tag.Tag, error) {
	resolved := make([]*tag.Tag, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if existing, ok := f.known[name]; ok {
			resolved = append(resolved, existing)
			continue
		}
		created := &tag.Tag{ID: f.nextID, Name: name, Slug: strings.ToLower(name)}
		f.nextID++
		f.known[name] = created
		resolved = append(resolved, created)
	}
	return resolved, nil
}

// fakeDirectory resolves a single known author.
type fakeDirectory struct {
	author post.AuthorRef
}

func (f *fakeDirectory) FindAuthorByUsername(_ context.Context, username string) (*post.AuthorRef, error) {
	if username != f.author.Username {
		return nil, apperr.NotFound("User", "username", username)
	}
	ref := f.author
	return &ref, nil
}

func (f *fakeDirectory) FindAuthorByID(_ context.Context, id int64) (*post.AuthorRef, error) {
	if id != f.author.ID {
		return nil, apperr.NotFound("User", "id", fmt.Sprint(id))
	}
	ref := f.author
	return &ref, nil
}

func newService(repo post.Repository) *post.Service {
	directory := &fakeDirectory{author: post.AuthorRef{ID: 7, Username: "alice"}}
	return post.NewService(repo, newFakeTagResolver(), directory,
		cache.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)),
		func() time.Time { return fixedNow })
}

func draftInput(title string) post.Input {
	return post.Input{
		Title:   title,
		Content: "Body of " + title,
		Tags:    []string{"go", "testing"},
	}
}

/*
TestCreatePost_DefaultsToDraft verifies an absent status lands as DRAFT with
no publish date.
*/
func TestCreatePost_DefaultsToDraft(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("First Light"), "alice")
	require.NoError(t, err)

	assert.Equal(t, post.StatusDraft, created.Status)
	assert.Nil(t, created.PublishedAt)
	assert.Equal(t, "first-light", created.Slug)
	assert.Equal(t, int64(7), created.AuthorID)
	assert.Equal(t, "alice", created.AuthorUsername)
	assert.Len(t, created.Tags, 2)
}

/*
TestCreatePost_PublishedStampsNow verifies direct-to-PUBLISHED creation
stamps the clock's current time when no explicit date is given.
*/
func TestCreatePost_PublishedStampsNow(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	input := draftInput("Launch Day")
	input.Status = post.StatusPublished

	created, err := service.CreatePost(context.Background(), input, "alice")
	require.NoError(t, err)

	require.NotNil(t, created.PublishedAt)
	assert.Equal(t, fixedNow, *created.PublishedAt)
}

/*
TestCreatePost_ExplicitDateKept verifies a caller-supplied publish date is
never overwritten.
*/
func TestCreatePost_ExplicitDateKept(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	explicit := fixedNow.Add(-48 * time.Hour)
	input := draftInput("Backdated")
	input.Status = post.StatusPublished
	input.PublishedAt = &explicit

	created, err := service.CreatePost(context.Background(), input, "alice")
	require.NoError(t, err)

	require.NotNil(t, created.PublishedAt)
	assert.Equal(t, explicit, *created.PublishedAt)
}

/*
TestCreatePost_UnknownAuthor verifies the author must resolve.
*/
func TestCreatePost_UnknownAuthor(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.CreatePost(context.Background(), draftInput("Orphan"), "nobody")
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Empty(t, repo.posts)
}

/*
TestCreatePost_DuplicateTitle verifies the title uniqueness conflict.
*/
func TestCreatePost_DuplicateTitle(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.CreatePost(context.Background(), draftInput("Singular"), "alice")
	require.NoError(t, err)

	_, err = service.CreatePost(context.Background(), draftInput("Singular"), "alice")
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
}

/*
TestCreatePost_SlugCollisionSuffixed verifies a taken slug gets a numeric
suffix rather than failing.
*/
func TestCreatePost_SlugCollisionSuffixed(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	// Same slug text, different titles.
	first, err := service.CreatePost(context.Background(), draftInput("Go, Fast"), "alice")
	require.NoError(t, err)
	second, err := service.CreatePost(context.Background(), draftInput("Go Fast"), "alice")
	require.NoError(t, err)

	assert.Equal(t, "go-fast", first.Slug)
	assert.Equal(t, "go-fast-1", second.Slug)
}

/*
TestCreatePost_Validation rejects missing title and content before any
store interaction.
*/
func TestCreatePost_Validation(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.CreatePost(context.Background(), post.Input{}, "alice")
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Empty(t, repo.posts)
}

/*
TestUpdatePost_TransitionStampsDate verifies the publish date is stamped
only when moving into PUBLISHED, and an already-published post keeps its
original date on later edits.
*/
func TestUpdatePost_TransitionStampsDate(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Evolving"), "alice")
	require.NoError(t, err)
	require.Nil(t, created.PublishedAt)

	input := draftInput("Evolving")
	input.Status = post.StatusPublished
	published, err := service.UpdatePost(context.Background(), created.ID, input)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, fixedNow, *published.PublishedAt)

	// A later edit of the already-published post must not restamp.
	input.Content = "Revised body"
	revised, err := service.UpdatePost(context.Background(), created.ID, input)
	require.NoError(t, err)
	require.NotNil(t, revised.PublishedAt)
	assert.Equal(t, fixedNow, *revised.PublishedAt)
}

/*
TestUpdatePost_TitleChangeRecomputesSlug verifies slug recomputation and
that an unchanged title leaves the slug alone.
*/
func TestUpdatePost_TitleChangeRecomputesSlug(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Old Name"), "alice")
	require.NoError(t, err)
	assert.Equal(t, "old-name", created.Slug)

	renamed := draftInput("New Name")
	updated, err := service.UpdatePost(context.Background(), created.ID, renamed)
	require.NoError(t, err)
	assert.Equal(t, "new-name", updated.Slug)

	// Same title again: slug untouched.
	same, err := service.UpdatePost(context.Background(), created.ID, renamed)
	require.NoError(t, err)
	assert.Equal(t, "new-name", same.Slug)
}

/*
TestUpdatePost_ReplacesTags verifies the tag set is fully replaced, not
merged.
*/
func TestUpdatePost_ReplacesTags(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Tagged"), "alice")
	require.NoError(t, err)
	require.Len(t, created.Tags, 2)

	input := draftInput("Tagged")
	input.Tags = []string{"databases"}
	updated, err := service.UpdatePost(context.Background(), created.ID, input)
	require.NoError(t, err)

	require.Len(t, updated.Tags, 1)
	assert.Equal(t, "databases", updated.Tags[0].Name)
	assert.Len(t, repo.links[created.ID], 1)
}

/*
TestPublishLifecycle walks publish, unpublish, and schedule transitions.
*/
func TestPublishLifecycle(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Cycle"), "alice")
	require.NoError(t, err)

	published, err := service.Publish(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, post.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, fixedNow, *published.PublishedAt)

	// Unpublish keeps the historical publish date.
	drafted, err := service.Unpublish(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, post.StatusDraft, drafted.Status)
	require.NotNil(t, drafted.PublishedAt)
	assert.Equal(t, fixedNow, *drafted.PublishedAt)

	future := fixedNow.Add(24 * time.Hour)
	scheduled, err := service.Schedule(context.Background(), created.ID, future)
	require.NoError(t, err)
	assert.Equal(t, post.StatusScheduled, scheduled.Status)
	require.NotNil(t, scheduled.PublishedAt)
	assert.Equal(t, future, *scheduled.PublishedAt)
}

/*
TestPublish_RestampsExistingDate verifies an explicit publish always moves
the date to now, even for a previously published post.
*/
func TestPublish_RestampsExistingDate(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	old := fixedNow.Add(-72 * time.Hour)
	input := draftInput("Restamped")
	input.Status = post.StatusPublished
	input.PublishedAt = &old

	created, err := service.CreatePost(context.Background(), input, "alice")
	require.NoError(t, err)

	published, err := service.Publish(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, fixedNow, *published.PublishedAt)
}

/*
TestPublishDue promotes overdue scheduled posts and leaves future ones.
*/
func TestPublishDue(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	overdue, err := service.CreatePost(context.Background(), draftInput("Overdue"), "alice")
	require.NoError(t, err)
	_, err = service.Schedule(context.Background(), overdue.ID, fixedNow.Add(-time.Hour))
	require.NoError(t, err)

	future, err := service.CreatePost(context.Background(), draftInput("Future"), "alice")
	require.NoError(t, err)
	_, err = service.Schedule(context.Background(), future.ID, fixedNow.Add(time.Hour))
	require.NoError(t, err)

	promoted, err := service.PublishDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	assert.Equal(t, post.StatusPublished, repo.posts[overdue.ID].Status)
	assert.Equal(t, post.StatusScheduled, repo.posts[future.ID].Status)
}

/*
TestToggleFeatured flips the flag both ways.
*/
func TestToggleFeatured(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Spotlight"), "alice")
	require.NoError(t, err)
	assert.False(t, created.IsFeatured)

	toggled, err := service.ToggleFeatured(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsFeatured)

	toggled, err = service.ToggleFeatured(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsFeatured)
}

/*
TestIncrementViewCount verifies the counter moves through the store, not a
read-modify-write in the service.
*/
func TestIncrementViewCount(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Counted"), "alice")
	require.NoError(t, err)

	require.NoError(t, service.IncrementViewCount(context.Background(), created.ID))
	require.NoError(t, service.IncrementViewCount(context.Background(), created.ID))

	assert.Equal(t, int64(2), repo.posts[created.ID].ViewCount)
}

/*
TestGetPost_ReadThrough verifies the second read is served from cache and a
mutation forces the next read back to the store.
*/
func TestGetPost_ReadThrough(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Cached"), "alice")
	require.NoError(t, err)

	repo.findCalls = 0
	_, err = service.GetPost(context.Background(), created.ID)
	require.NoError(t, err)
	_, err = service.GetPost(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.findCalls)

	// Any mutation evicts the posts group.
	require.NoError(t, service.IncrementViewCount(context.Background(), created.ID))

	_, err = service.GetPost(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.findCalls)
}

/*
TestSearch_FiltersAndEnvelope verifies AND filter semantics and the
pagination envelope fields.
*/
func TestSearch_FiltersAndEnvelope(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	for _, title := range []string{"Go Generics", "Go Routines", "Rust Lifetimes"} {
		input := draftInput(title)
		input.Status = post.StatusPublished
		_, err := service.CreatePost(context.Background(), input, "alice")
		require.NoError(t, err)
	}

	page, err := service.Search(context.Background(), post.SearchRequest{
		Query:  "go",
		Author: "alice",
		Status: post.StatusPublished,
		Page:   0,
		Size:   10,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalElements)
	assert.Equal(t, 1, page.TotalPages)
	assert.True(t, page.First)
	assert.True(t, page.Last)
	assert.False(t, page.Empty)
	assert.Len(t, page.Content, 2)
}

/*
TestPostsByAuthor_UnknownAuthor verifies an unknown username is NotFound
rather than an empty page.
*/
func TestPostsByAuthor_UnknownAuthor(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	_, err := service.PostsByAuthor(context.Background(), "ghost", pagination.Params{Page: 0, Size: 10})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestUpdatePost_AllowCommentsPointer verifies the tri-state allow_comments
field: absent keeps the current value, present overwrites it.
*/
func TestUpdatePost_AllowCommentsPointer(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created, err := service.CreatePost(context.Background(), draftInput("Discussable"), "alice")
	require.NoError(t, err)
	assert.True(t, created.AllowComments)

	input := draftInput("Discussable")
	input.AllowComments = pointer.To(false)
	updated, err := service.UpdatePost(context.Background(), created.ID, input)
	require.NoError(t, err)
	assert.False(t, updated.AllowComments)

	input.AllowComments = nil
	kept, err := service.UpdatePost(context.Background(), created.ID, input)
	require.NoError(t, err)
	assert.False(t, kept.AllowComments)
}
