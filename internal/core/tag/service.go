package tag

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/inkpress/inkpress/internal/platform/apperr"
	"github.com/inkpress/inkpress/internal/platform/cache"
	"github.com/inkpress/inkpress/internal/platform/validate"
	"github.com/inkpress/inkpress/pkg/pagination"
	"github.com/inkpress/inkpress/pkg/slice"
	"github.com/inkpress/inkpress/pkg/slug"
)

// # Service Layer

// Service orchestrates tag resolution and administration.
//
// Resolution is the write-side entry point used by the post lifecycle:
// free-text names are mapped to persisted tags, creating missing ones.
type Service struct {
	repo   Repository
	cache  cache.Store
	logger *slog.Logger
}

// NewService constructs a new tag [Service].
func NewService(repo Repository, cacheStore cache.Store, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cacheStore,
		logger: logger,
	}
}

// # Tag Resolution

/*
Resolve maps a list of free-text tag names to persisted tags.

Description: Each name is trimmed; blank names are skipped and duplicates
within the call are collapsed before lookup, so resolving the same name
twice never creates two rows. Lookup is exact and case-sensitive. Names
with no existing tag are created with a freshly generated slug.

Parameters:
  - context: context.Context
  - names: []string (Free-text tag names, possibly blank or duplicated)

Returns:
  - []*Tag: The union of found and created tags, in input order
  - error: Persistence errors
*/
func (service *Service) Resolve(context context.Context, names []string) ([]*Tag, error) {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	cleaned = slice.Unique(cleaned)

	resolved := make([]*Tag, 0, len(cleaned))
	created := false

	for _, name := range cleaned {
		existing, err := service.repo.FindByName(context, name)
		if err == nil {
			resolved = append(resolved, existing)
			continue
		}
		if !apperr.IsNotFound(err) {
			return nil, err
		}

		// Tag names are unique, so the derived slug needs no suffix search.
		fresh := &Tag{
			Name: name,
			Slug: slug.From(name),
		}
		if err := service.repo.Create(context, fresh); err != nil {
			return nil, err
		}

		service.logger.Info("tag_auto_created",
			slog.Int64("tag_id", fresh.ID),
			slog.String("name", fresh.Name),
		)
		resolved = append(resolved, fresh)
		created = true
	}

	if created {
		cache.Evict(context, service.cache, service.logger, cache.TagGroups...)
	}

	return resolved, nil
}

// # Tag Lookups

// GetTag fetches a single tag by ID, cache-fronted.
func (service *Service) GetTag(ctx context.Context, id int64) (*Tag, error) {
	key := cache.Key("tag", "id", strconv.FormatInt(id, 10))
	return cache.Fetch(ctx, service.cache, service.logger, key, cache.TagGroups,
		func(ctx context.Context) (*Tag, error) {
			return service.repo.FindByID(ctx, id)
		})
}

// GetTagBySlug fetches a single tag by its URL slug, cache-fronted.
func (service *Service) GetTagBySlug(ctx context.Context, tagSlug string) (*Tag, error) {
	key := cache.Key("tag", "slug", tagSlug)
	return cache.Fetch(ctx, service.cache, service.logger, key, cache.TagGroups,
		func(ctx context.Context) (*Tag, error) {
			return service.repo.FindBySlug(ctx, tagSlug)
		})
}

// ListTags returns all tags ordered alphabetically, cache-fronted.
func (service *Service) ListTags(ctx context.Context) ([]*Tag, error) {
	key := cache.Key("tags", "all")
	return cache.Fetch(ctx, service.cache, service.logger, key, cache.TagGroups,
		func(ctx context.Context) ([]*Tag, error) {
			return service.repo.List(ctx)
		})
}

// PopularTags returns the most used tags with their post counts.
func (service *Service) PopularTags(ctx context.Context, limit int) ([]*Tag, error) {
	if limit <= 0 {
		limit = 10
	}
	key := cache.Key("tags", "popular", strconv.Itoa(limit))
	return cache.Fetch(ctx, service.cache, service.logger, key, []string{cache.GroupPopularTags},
		func(ctx context.Context) ([]*Tag, error) {
			return service.repo.Popular(ctx, limit)
		})
}

/*
SearchTags matches tags by name or description, case-insensitively.

Description: Unlike resolution, search is deliberately case-insensitive:
it serves human discovery, not identity. Results are not cached since the
query space is unbounded.

Parameters:
  - context: context.Context
  - query: string (Substring to match)
  - params: pagination.Params

Returns:
  - pagination.Response[*Tag]: The standard pagination envelope
  - error: Persistence errors
*/
func (service *Service) SearchTags(context context.Context, query string, params pagination.Params) (pagination.Response[*Tag], error) {
	tags, total, err := service.repo.Search(context, strings.TrimSpace(query), params.Size, params.Offset())
	if err != nil {
		return pagination.Response[*Tag]{}, err
	}
	return pagination.NewResponse(tags, params.Page, params.Size, total), nil
}

// CountTags returns the total number of tags, for dashboard statistics.
func (service *Service) CountTags(context context.Context) (int, error) {
	return service.repo.Count(context)
}

// # Tag Administration

// CreateTag explicitly creates a tag from an editorial request.
//
// Fails with Conflict when the name is already taken.
func (service *Service) CreateTag(context context.Context, tag *Tag) error {
	validator := &validate.Validator{}
	tag.Name = strings.TrimSpace(tag.Name)
	validator.
		Required(FieldName, tag.Name).
		MaxLen(FieldName, tag.Name, MaxNameLen).
		HexColor(FieldColor, colorValue(tag))
	if tag.Description != nil {
		validator.MaxLen(FieldDescription, *tag.Description, MaxDescriptionLen)
	}
	if err := validator.Err(); err != nil {
		return err
	}

	taken, err := service.repo.NameExists(context, tag.Name)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict("Tag already exists with name: '" + tag.Name + "'")
	}

	tag.Slug = slug.From(tag.Name)
	if err := service.repo.Create(context, tag); err != nil {
		return err
	}

	service.logger.Info("tag_created",
		slog.Int64("tag_id", tag.ID),
		slog.String("name", tag.Name),
	)

	cache.Evict(context, service.cache, service.logger, cache.TagGroups...)
	return nil
}

// UpdateTag applies editorial changes to an existing tag.
//
// A name change regenerates the slug and is rejected with Conflict if the
// new name is already taken by another tag.
func (service *Service) UpdateTag(context context.Context, id int64, updated *Tag) (*Tag, error) {
	existing, err := service.repo.FindByID(context, id)
	if err != nil {
		return nil, err
	}

	validator := &validate.Validator{}
	updated.Name = strings.TrimSpace(updated.Name)
	validator.
		Required(FieldName, updated.Name).
		MaxLen(FieldName, updated.Name, MaxNameLen).
		HexColor(FieldColor, colorValue(updated))
	if updated.Description != nil {
		validator.MaxLen(FieldDescription, *updated.Description, MaxDescriptionLen)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	if updated.Name != existing.Name {
		taken, err := service.repo.NameExists(context, updated.Name)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperr.Conflict("Tag already exists with name: '" + updated.Name + "'")
		}
		existing.Name = updated.Name
		existing.Slug = slug.From(updated.Name)
	}

	existing.Description = updated.Description
	existing.Color = updated.Color

	if err := service.repo.Update(context, existing); err != nil {
		return nil, err
	}

	service.logger.Info("tag_updated", slog.Int64("tag_id", existing.ID))

	// Tag names surface inside cached post listings, so both sets go.
	cache.Evict(context, service.cache, service.logger,
		append(cache.TagGroups, cache.PostGroups...)...)
	return existing, nil
}

// DeleteTag removes a tag and detaches it from every post.
func (service *Service) DeleteTag(context context.Context, id int64) error {
	if _, err := service.repo.FindByID(context, id); err != nil {
		return err
	}

	if err := service.repo.Delete(context, id); err != nil {
		return err
	}

	service.logger.Warn("tag_deleted", slog.Int64("tag_id", id))

	cache.Evict(context, service.cache, service.logger,
		append(cache.TagGroups, cache.PostGroups...)...)
	return nil
}

// colorValue unwraps the optional color for validation.
func colorValue(tag *Tag) string {
	if tag.Color == nil {
		return ""
	}
	return *tag.Color
}
