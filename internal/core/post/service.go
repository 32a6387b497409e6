package post

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inkpress/inkpress/internal/core/tag"
	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
	"github.com/inkpress/inkpress/internal/platform/validate"
	"github.com/inkpress/inkpress/pkg/pagination"
	"github.com/inkpress/inkpress/pkg/slice"
	"github.com/inkpress/inkpress/pkg/slug"
)

// # Collaborators

// Clock supplies "now" for publish-date defaulting, injected so lifecycle
// timing is deterministic under test.
type Clock func() time.Time

// TagResolver maps free-text tag names to persisted tags.
type TagResolver interface {
	Resolve(context context.Context, names []string) ([]*tag.Tag, error)
}

// UserDirectory resolves authors referenced by posts.
type UserDirectory interface {
	FindAuthorByUsername(context context.Context, username string) (*AuthorRef, error)
	FindAuthorByID(context context.Context, id int64) (*AuthorRef, error)
}

// # Service Layer

// Service owns the post lifecycle: CRUD, status transitions, slug
// management, and the cache-fronted read paths.
type Service struct {
	repo   Repository
	tags   TagResolver
	users  UserDirectory
	cache  cache.Store
	logger *slog.Logger
	clock  Clock
}

// NewService constructs a new post [Service].
func NewService(repo Repository, tags TagResolver, users UserDirectory,
	cacheStore cache.Store, logger *slog.Logger, clock Clock) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:   repo,
		tags:   tags,
		users:  users,
		cache:  cacheStore,
		logger: logger,
		clock:  clock,
	}
}

// # Post Management

/*
CreatePost creates a new post on behalf of an author.

Description: Resolves the author by username, derives a unique slug from
the title, resolves tags (creating missing ones), and defaults the status
to DRAFT. A post created directly as PUBLISHED with no explicit publish
date is stamped with the current time.

Parameters:
  - context: context.Context
  - input: Input (Caller-supplied fields)
  - authorUsername: string

Returns:
  - *Post: The persisted post with hydrated tags
  - error: NotFound if the author does not resolve, Conflict on a
    duplicate title, validation or persistence errors
*/
func (service *Service) CreatePost(context context.Context, input Input, authorUsername string) (*Post, error) {
	if err := service.validateInput(input, true); err != nil {
		return nil, err
	}

	author, err := service.users.FindAuthorByUsername(context, authorUsername)
	if err != nil {
		return nil, err
	}

	taken, err := service.repo.TitleExists(context, input.Title, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Post already exists with title: '" + input.Title + "'")
	}

	status := input.Status
	if status == "" {
		status = StatusDraft
	}

	publishedAt := input.PublishedAt
	if status == StatusPublished && publishedAt == nil {
		now := service.clock()
		publishedAt = &now
	}

	allowComments := true
	if input.AllowComments != nil {
		allowComments = *input.AllowComments
	}

	resolvedTags, err := service.tags.Resolve(context, input.Tags)
	if err != nil {
		return nil, err
	}

	created := &Post{
		Title:            strings.TrimSpace(input.Title),
		Slug:             service.uniqueSlug(context, input.Title),
		Excerpt:          input.Excerpt,
		Content:          input.Content,
		Status:           status,
		PublishedAt:      publishedAt,
		IsFeatured:       input.IsFeatured,
		AllowComments:    allowComments,
		FeaturedImageURL: input.FeaturedImageURL,
		AuthorID:         author.ID,
		AuthorUsername:   author.Username,
		Tags:             dereference(resolvedTags),
	}

	if err := service.repo.Create(context, created, tagIDs(resolvedTags)); err != nil {
		return nil, err
	}

	service.logger.Info("post_created",
		slog.Int64("post_id", created.ID),
		slog.String("slug", created.Slug),
		slog.String("status", string(created.Status)),
		slog.String("author", author.Username),
	)

	service.evict(context)
	return created, nil
}

/*
UpdatePost replaces an existing post's editorial fields.

Description: A changed title recomputes the slug. The tag set is fully
replaced: old associations are cleared and the new names resolved. When
the status transitions into PUBLISHED from a non-published state and no
explicit publish date is given, the current time is stamped.

Parameters:
  - context: context.Context
  - id: int64
  - input: Input

Returns:
  - *Post: The updated post
  - error: NotFound if the post does not exist
*/
func (service *Service) UpdatePost(context context.Context, id int64, input Input) (*Post, error) {
	if err := service.validateInput(input, true); err != nil {
		return nil, err
	}

	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Title != existing.Title {
		taken, err := service.repo.TitleExists(context, input.Title, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("Post already exists with title: '" + input.Title + "'")
		}
		existing.Slug = service.uniqueSlug(context, input.Title)
	}

	status := input.Status
	if status == "" {
		status = existing.Status
	}

	// Stamp the publish date only on the transition into PUBLISHED.
	if status == StatusPublished && existing.Status != StatusPublished && input.PublishedAt == nil {
		now := service.clock()
		existing.PublishedAt = &now
	} else if input.PublishedAt != nil {
		existing.PublishedAt = input.PublishedAt
	}

	resolvedTags, err := service.tags.Resolve(context, input.Tags)
	if err != nil {
		return nil, err
	}

	existing.Title = input.Title
	existing.Excerpt = input.Excerpt
	existing.Content = input.Content
	existing.Status = status
	existing.IsFeatured = input.IsFeatured
	if input.AllowComments != nil {
		existing.AllowComments = *input.AllowComments
	}
	existing.FeaturedImageURL = input.FeaturedImageURL
	existing.Tags = dereference(resolvedTags)

	if err := service.repo.Update(context, existing, tagIDs(resolvedTags)); err != nil {
		return nil, err
	}

	service.logger.Info("post_updated",
		slog.Int64("post_id", existing.ID),
		slog.String("status", string(existing.Status)),
	)

	service.evict(context)
	return existing, nil
}

// DeletePost removes a post and, transitively, all of its comments.
func (service *Service) DeletePost(context context.Context, id int64) error {
	if _, err := service.repo.FindByID(context, id); err != nil {
		return err
	}

	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.logger.Warn("post_deleted", slog.Int64("post_id", id))

	service.evict(context)
	return nil
}

// # Status Transitions

// Publish forces a post into PUBLISHED and stamps the publish date to now,
// unconditionally.
func (service *Service) Publish(context context.Context, id int64) (*Post, error) {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	now := service.clock()
	existing.Status = StatusPublished
	existing.PublishedAt = &now

	if err := service.repo.UpdateStatus(context, id, existing.Status, existing.PublishedAt); err != nil {
		return nil, err
	}

	service.logger.Info("post_published", slog.Int64("post_id", id))
	service.evict(context)
	return existing, nil
}

// Unpublish forces a post back to DRAFT. The publish date is left as-is.
func (service *Service) Unpublish(context context.Context, id int64) (*Post, error) {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	existing.Status = StatusDraft

	if err := service.repo.UpdateStatus(context, id, existing.Status, existing.PublishedAt); err != nil {
		return nil, err
	}

	service.logger.Info("post_unpublished", slog.Int64("post_id", id))
	service.evict(context)
	return existing, nil
}

// Schedule marks a post SCHEDULED for the given timestamp. The timestamp
// is taken as given; callers own the decision that it lies in the future.
func (service *Service) Schedule(context context.Context, id int64, publishAt time.Time) (*Post, error) {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	existing.Status = StatusScheduled
	existing.PublishedAt = &publishAt

	if err := service.repo.UpdateStatus(context, id, existing.Status, existing.PublishedAt); err != nil {
		return nil, err
	}

	service.logger.Info("post_scheduled",
		slog.Int64("post_id", id),
		slog.Time("publish_at", publishAt),
	)
	service.evict(context)
	return existing, nil
}

// ToggleFeatured flips the featured flag and returns the post.
func (service *Service) ToggleFeatured(context context.Context, id int64) (*Post, error) {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	featured, err := service.repo.ToggleFeatured(context, id)
	if err != nil {
		return nil, err
	}
	existing.IsFeatured = featured

	service.logger.Info("post_featured_toggled",
		slog.Int64("post_id", id),
		slog.Bool("is_featured", featured),
	)
	service.evict(context)
	return existing, nil
}

// IncrementViewCount records a view via a single atomic store update.
func (service *Service) IncrementViewCount(context context.Context, id int64) error {
	if err := service.repo.IncrementViewCount(context, id); err != nil {
		return err
	}

	service.evict(context)
	return nil
}

/*
PublishDue promotes every scheduled post whose publish timestamp has
passed. It is invoked by an external periodic trigger; the service runs
no timer of its own.

Returns:
  - int: Number of posts promoted
  - error: The first promotion failure, after logging
*/
func (service *Service) PublishDue(context context.Context) (int, error) {
	due, err := service.repo.FindDue(context, service.clock())
	if err != nil {
		return 0, err
	}

	for index, scheduled := range due {
		if _, err := service.Publish(context, scheduled.ID); err != nil {
			service.logger.Error("scheduled_publish_failed",
				slog.Int64("post_id", scheduled.ID),
				slog.Any("error", err),
			)
			return index, err
		}
	}

	if len(due) > 0 {
		service.logger.Info("scheduled_posts_published", slog.Int("count", len(due)))
	}
	return len(due), nil
}

// # Cache-Fronted Reads

// GetPost fetches a post by ID.
func (service *Service) GetPost(ctx context.Context, id int64) (*Post, error) {
	key := cache.Key("post", "id", strconv.FormatInt(id, 10))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (*Post, error) {
			return service.repo.FindByID(ctx, id)
		})
}

// GetPostBySlug fetches a post by its URL slug.
func (service *Service) GetPostBySlug(ctx context.Context, postSlug string) (*Post, error) {
	key := cache.Key("post", "slug", postSlug)
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (*Post, error) {
			return service.repo.FindBySlug(ctx, postSlug)
		})
}

// ListPublished returns the public, paginated feed of published posts.
func (service *Service) ListPublished(ctx context.Context, params pagination.Params) (pagination.Response[*Post], error) {
	key := cache.Key("posts", "published", strconv.Itoa(params.Page), strconv.Itoa(params.Size))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (pagination.Response[*Post], error) {
			filter := Filter{Status: StatusPublished}
			posts, total, err := service.repo.List(ctx, filter, params.Size, params.Offset())
			if err != nil {
				return pagination.Response[*Post]{}, err
			}
			return pagination.NewResponse(posts, params.Page, params.Size, total), nil
		})
}

// FeaturedPosts returns published posts flagged as featured.
func (service *Service) FeaturedPosts(ctx context.Context, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 5
	}
	key := cache.Key("posts", "featured", strconv.Itoa(limit))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupFeaturedPosts},
		func(ctx context.Context) ([]*Post, error) {
			return service.repo.Featured(ctx, limit)
		})
}

// RecentPosts returns the latest published posts.
func (service *Service) RecentPosts(ctx context.Context, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 5
	}
	key := cache.Key("posts", "recent", strconv.Itoa(limit))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupRecentPosts},
		func(ctx context.Context) ([]*Post, error) {
			return service.repo.Recent(ctx, limit)
		})
}

// PopularPosts returns the most viewed published posts.
func (service *Service) PopularPosts(ctx context.Context, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 5
	}
	key := cache.Key("posts", "popular", strconv.Itoa(limit))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPopularPosts},
		func(ctx context.Context) ([]*Post, error) {
			return service.repo.Popular(ctx, limit)
		})
}

// RelatedPosts returns published posts sharing tags with the given post.
func (service *Service) RelatedPosts(ctx context.Context, id int64, limit int) ([]*Post, error) {
	if limit <= 0 {
		limit = 5
	}
	if _, err := service.repo.FindByID(ctx, id); err != nil {
		return nil, err
	}

	key := cache.Key("posts", "related", strconv.FormatInt(id, 10), strconv.Itoa(limit))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) ([]*Post, error) {
			return service.repo.Related(ctx, id, limit)
		})
}

// PostsByTag returns published posts carrying the given tag name.
func (service *Service) PostsByTag(ctx context.Context, tagName string, params pagination.Params) (pagination.Response[*Post], error) {
	key := cache.Key("posts", "tag", tagName, strconv.Itoa(params.Page), strconv.Itoa(params.Size))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (pagination.Response[*Post], error) {
			filter := Filter{Status: StatusPublished, Tags: []string{tagName}}
			posts, total, err := service.repo.List(ctx, filter, params.Size, params.Offset())
			if err != nil {
				return pagination.Response[*Post]{}, err
			}
			return pagination.NewResponse(posts, params.Page, params.Size, total), nil
		})
}

// PostsByAuthor returns published posts written by the given author.
// The author must resolve; unknown usernames yield NotFound.
func (service *Service) PostsByAuthor(ctx context.Context, username string, params pagination.Params) (pagination.Response[*Post], error) {
	if _, err := service.users.FindAuthorByUsername(ctx, username); err != nil {
		return pagination.Response[*Post]{}, err
	}

	key := cache.Key("posts", "author", username, strconv.Itoa(params.Page), strconv.Itoa(params.Size))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (pagination.Response[*Post], error) {
			filter := Filter{Status: StatusPublished, AuthorUsername: username}
			posts, total, err := service.repo.List(ctx, filter, params.Size, params.Offset())
			if err != nil {
				return pagination.Response[*Post]{}, err
			}
			return pagination.NewResponse(posts, params.Page, params.Size, total), nil
		})
}

/*
Search applies the full multi-filter surface and returns the standard
pagination envelope.

Description: Filters combine with AND semantics; an absent filter is a
no-op. Results are cached under a signature derived from the whole
request, in the "posts" group, so any post mutation invalidates them.
*/
func (service *Service) Search(ctx context.Context, request SearchRequest) (pagination.Response[*Post], error) {
	params := pagination.Normalize(request.Page, request.Size)

	key := cache.Key("posts", "search", searchSignature(request, params))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPosts},
		func(ctx context.Context) (pagination.Response[*Post], error) {
			filter := Filter{
				Query:          strings.TrimSpace(request.Query),
				Tags:           request.Tags,
				AuthorUsername: strings.TrimSpace(request.Author),
				Status:         request.Status,
				FeaturedOnly:   request.FeaturedOnly,
				SortBy:         request.SortBy,
				SortDirection:  request.SortDirection,
			}
			posts, total, err := service.repo.List(ctx, filter, params.Size, params.Offset())
			if err != nil {
				return pagination.Response[*Post]{}, err
			}
			return pagination.NewResponse(posts, params.Page, params.Size, total), nil
		})
}

// CountByStatus exposes lifecycle counters for dashboard statistics.
func (service *Service) CountByStatus(context context.Context) (map[Status]int, error) {
	return service.repo.CountByStatus(context)
}

// TotalViews exposes the aggregate view counter for dashboard statistics.
func (service *Service) TotalViews(context context.Context) (int64, error) {
	return service.repo.TotalViews(context)
}

// # Internal Helpers

// validateInput enforces field-level constraints before any store work.
func (service *Service) validateInput(input Input, requireContent bool) error {
	validator := &validate.Validator{}
	validator.
		Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, MaxTitleLen)

	if requireContent {
		validator.Required(FieldContent, input.Content)
	}
	if input.Excerpt != nil {
		validator.MaxLen(FieldExcerpt, *input.Excerpt, MaxExcerptLen)
	}
	if input.Status != "" {
		validator.OneOf(FieldStatus, string(input.Status),
			string(StatusDraft),
			string(StatusScheduled),
			string(StatusPublished),
			string(StatusArchived),
		)
	}
	return validator.Err()
}

// uniqueSlug derives a slug from the title, probing the store sequentially
// until a free candidate is found.
func (service *Service) uniqueSlug(ctx context.Context, title string) string {
	return slug.Unique(title, func(candidate string) bool {
		exists, err := service.repo.SlugExists(ctx, candidate)
		if err != nil {
			// Treat a probe failure as free; the unique index has the last word.
			return false
		}
		return exists
	})
}

// evict flushes every post-related group plus the popular-tags group,
// whose counts are derived from published posts.
func (service *Service) evict(context context.Context) {
	groups := append([]string{}, cache.PostGroups...)
	groups = append(groups, cache.GroupPopularTags)
	cache.Evict(context, service.cache, service.logger, groups...)
}

func tagIDs(tags []*tag.Tag) []int64 {
	return slice.Map(tags, func(t *tag.Tag) int64 { return t.ID })
}

func dereference(tags []*tag.Tag) []tag.Tag {
	return slice.Map(tags, func(t *tag.Tag) tag.Tag { return *t })
}

// searchSignature builds a deterministic cache key part from the request.
func searchSignature(request SearchRequest, params pagination.Params) string {
	return fmt.Sprintf("%s|%s|%s|%s|%t|%s|%s|%d|%d",
		strings.ToLower(strings.TrimSpace(request.Query)),
		strings.Join(request.Tags, ","),
		request.Author,
		request.Status,
		request.FeaturedOnly,
		request.SortBy,
		request.SortDirection,
		params.Page,
		params.Size,
	)
}
