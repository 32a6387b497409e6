package tag_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/core/tag"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
)

// fakeRepository is an in-memory [tag.Repository] for service tests.
type fakeRepository struct {
	tags   map[int64]*tag.Tag
	nextID int64

	findByNameCalls int
	listCalls       int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{tags: make(map[int64]*tag.Tag), nextID: 1}
}

func (r *fakeRepository) FindByID(_ context.Context, id int64) (*tag.Tag, error) {
	if t, ok := r.tags[id]; ok {
		return t, nil
	}
	return nil, apperr.NotFound("Tag", "id", fmt.Sprint(id))
}

func (r *fakeRepository) FindBySlug(_ context.Context, slug string) (*tag.Tag, error) {
	for _, t := range r.tags {
		if t.Slug == slug {
			return t, nil
		}
	}
	return nil, apperr.NotFound("Tag", "slug", slug)
}

func (r *fakeRepository) FindByName(_ context.Context, name string) (*tag.Tag, error) {
	r.findByNameCalls++
	for _, t := range r.tags {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, apperr.NotFound("Tag", "name", name)
}

func (r *fakeRepository) List(_ context.Context) ([]*tag.Tag, error) {
	r.listCalls++
	all := make([]*tag.Tag, 0, len(r.tags))
	for _, t := range r.tags {
		all = append(all, t)
	}
	return all, nil
}

func (r *fakeRepository) Popular(_ context.Context, limit int) ([]*tag.Tag, error) {
	all, _ := r.List(context.Background())
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *fakeRepository) Search(_ context.Context, _ string, _, _ int) ([]*tag.Tag, int, error) {
	all := make([]*tag.Tag, 0, len(r.tags))
	for _, t := range r.tags {
		all = append(all, t)
	}
	return all, len(all), nil
}

func (r *fakeRepository) Create(_ context.Context, t *tag.Tag) error {
	t.ID = r.nextID
	r.nextID++
	r.tags[t.ID] = t
	return nil
}

func (r *fakeRepository) Update(_ context.Context, t *tag.Tag) error {
	if _, ok := r.tags[t.ID]; !ok {
		return apperr.NotFound("Tag", "id", fmt.Sprint(t.ID))
	}
	r.tags[t.ID] = t
	return nil
}

func (r *fakeRepository) Delete(_ context.Context, id int64) error {
	if _, ok := r.tags[id]; !ok {
		return apperr.NotFound("Tag", "id", fmt.Sprint(id))
	}
	delete(r.tags, id)
	return nil
}

func (r *fakeRepository) NameExists(_ context.Context, name string) (bool, error) {
	for _, t := range r.tags {
		if t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepository) Count(_ context.Context) (int, error) {
	return len(r.tags), nil
}

func newService(repo tag.Repository) *tag.Service {
	return tag.NewService(repo, cache.NewMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

/*
TestResolve_CaseSensitive verifies that resolution treats differently-cased
names as distinct tags.
*/
func TestResolve_CaseSensitive(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	resolved, err := service.Resolve(context.Background(), []string{"Java", "java"})
	require.NoError(t, err)

	require.Len(t, resolved, 2)
	assert.NotEqual(t, resolved[0].ID, resolved[1].ID)
	assert.Equal(t, "Java", resolved[0].Name)
	assert.Equal(t, "java", resolved[1].Name)

	// Both slugs derive from the same lowercase text.
	assert.Equal(t, "java", resolved[0].Slug)
	assert.Equal(t, "java", resolved[1].Slug)
}

/*
TestResolve_DedupAndTrim verifies that blank names are skipped and in-call
duplicates collapse to a single created tag.
*/
func TestResolve_DedupAndTrim(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	resolved, err := service.Resolve(context.Background(), []string{" go ", "go", "", "   "})
	require.NoError(t, err)

	require.Len(t, resolved, 1)
	assert.Equal(t, "go", resolved[0].Name)
	assert.Len(t, repo.tags, 1)
}

/*
TestResolve_ReusesExisting verifies existing tags are returned, not recreated.
*/
func TestResolve_ReusesExisting(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	existing := &tag.Tag{Name: "golang", Slug: "golang"}
	require.NoError(t, repo.Create(context.Background(), existing))

	resolved, err := service.Resolve(context.Background(), []string{"golang", "testing"})
	require.NoError(t, err)

	require.Len(t, resolved, 2)
	assert.Equal(t, existing.ID, resolved[0].ID)
	assert.Len(t, repo.tags, 2)
}

/*
TestCreateTag verifies explicit creation, slug derivation, and the duplicate
name conflict.
*/
func TestCreateTag(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := &tag.Tag{Name: "Spring Boot"}
	require.NoError(t, service.CreateTag(context.Background(), created))
	assert.Equal(t, "spring-boot", created.Slug)
	assert.NotZero(t, created.ID)

	// Same name again conflicts.
	err := service.CreateTag(context.Background(), &tag.Tag{Name: "Spring Boot"})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
}

/*
TestCreateTag_Validation rejects blank names before any store interaction.
*/
func TestCreateTag_Validation(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	err := service.CreateTag(context.Background(), &tag.Tag{Name: "   "})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Empty(t, repo.tags)
}

/*
TestUpdateTag covers the rename path (slug regeneration) and NotFound.
*/
func TestUpdateTag(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := &tag.Tag{Name: "Databases"}
	require.NoError(t, service.CreateTag(context.Background(), created))

	updated, err := service.UpdateTag(context.Background(), created.ID, &tag.Tag{Name: "Data Stores"})
	require.NoError(t, err)
	assert.Equal(t, "Data Stores", updated.Name)
	assert.Equal(t, "data-stores", updated.Slug)

	_, err = service.UpdateTag(context.Background(), 9999, &tag.Tag{Name: "Ghost"})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestGetTag_ReadThrough verifies the second read is served from cache.
*/
func TestGetTag_ReadThrough(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := &tag.Tag{Name: "Caching"}
	require.NoError(t, service.CreateTag(context.Background(), created))

	_, err := service.ListTags(context.Background())
	require.NoError(t, err)
	_, err = service.ListTags(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
}

/*
TestDeleteTag_EvictsCache verifies a mutation forces the next read back to
the store.
*/
func TestDeleteTag_EvictsCache(t *testing.T) {
	repo := newFakeRepository()
	service := newService(repo)

	created := &tag.Tag{Name: "Ephemeral"}
	require.NoError(t, service.CreateTag(context.Background(), created))

	_, err := service.ListTags(context.Background())
	require.NoError(t, err)

	require.NoError(t, service.DeleteTag(context.Background(), created.ID))

	listed, err := service.ListTags(context.Background())
	require.NoError(t, err)
	assert.Empty(t, listed)
	assert.Equal(t, 2, repo.listCalls)
}
