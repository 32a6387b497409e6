package post

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/inkpress/internal/platform/middleware"
	requestutil "github.com/inkpress/inkpress/internal/platform/request"
	"github.com/inkpress/inkpress/internal/platform/respond"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/internal/platform/validate"
	"github.com/inkpress/inkpress/pkg/convert"
	"github.com/inkpress/inkpress/pkg/pagination"
)

/*
Handler implements the HTTP layer for the post lifecycle.

# Routing Strategy

  - Public: Discovery endpoints accessible to all visitors.
  - Restricted: Lifecycle mutations requiring the Admin role.

The handler translates between the web/JSON layer and the domain [Service].
*/
type Handler struct {
	service *Service
}

// NewHandler constructs a new post [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the post domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Discovery Endpoints
	router.Get("/", handler.listPublished)
	router.Get("/search", handler.search)
	router.Get("/featured", handler.featuredPosts)
	router.Get("/recent", handler.recentPosts)
	router.Get("/popular", handler.popularPosts)
	router.Get("/by-tag/{name}", handler.postsByTag)
	router.Get("/by-author/{username}", handler.postsByAuthor)
	router.Get("/slug/{slug}", handler.getPostBySlug)
	router.Get("/{id}", handler.getPost)
	router.Get("/{id}/related", handler.relatedPosts)
	router.Post("/{id}/view", handler.recordView)

	// ## Lifecycle Management (Admin Protected)
	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(sec.RoleAdmin))

		admin.Post("/", handler.createPost)
		admin.Put("/{id}", handler.updatePost)
		admin.Delete("/{id}", handler.deletePost)

		admin.Post("/{id}/publish", handler.publishPost)
		admin.Post("/{id}/unpublish", handler.unpublishPost)
		admin.Post("/{id}/schedule", handler.schedulePost)
		admin.Post("/{id}/toggle-featured", handler.toggleFeatured)

		admin.Post("/publish-due", handler.publishDue)
	})

	return router
}

// # Discovery Endpoints

func (handler *Handler) listPublished(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	page, err := handler.service.ListPublished(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

/*
GET /api/v1/posts/search.

Request:
  - query: string (Case-insensitive match on title/excerpt/content)
  - tags: string (Comma-separated tag names)
  - author: string (Author username)
  - status: string (DRAFT, SCHEDULED, PUBLISHED, ARCHIVED)
  - featured: bool
  - sort_by: string (published_at, view_count, title)
  - sort_direction: string (asc, desc)
  - page, size: int (Zero-based page and page size)
*/
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	queryParams := request.URL.Query()
	params := pagination.FromRequest(request)

	searchRequest := SearchRequest{
		Query:         queryParams.Get("query"),
		Tags:          splitCSV(queryParams.Get("tags")),
		Author:        queryParams.Get("author"),
		Status:        Status(queryParams.Get("status")),
		FeaturedOnly:  convert.ToBool(queryParams.Get("featured")),
		Page:          params.Page,
		Size:          params.Size,
		SortBy:        queryParams.Get("sort_by"),
		SortDirection: queryParams.Get("sort_direction"),
	}

	if searchRequest.Status != "" && !searchRequest.Status.IsValid() {
		respond.Error(writer, request,
			validate.RequiredError(FieldStatus, "Unknown status filter"))
		return
	}

	page, err := handler.service.Search(request.Context(), searchRequest)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

func (handler *Handler) featuredPosts(writer http.ResponseWriter, request *http.Request) {
	limit := convert.ToIntD(request.URL.Query().Get("limit"), 5)

	posts, err := handler.service.FeaturedPosts(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, posts)
}

func (handler *Handler) recentPosts(writer http.ResponseWriter, request *http.Request) {
	limit := convert.ToIntD(request.URL.Query().Get("limit"), 5)

	posts, err := handler.service.RecentPosts(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, posts)
}

func (handler *Handler) popularPosts(writer http.ResponseWriter, request *http.Request) {
	limit := convert.ToIntD(request.URL.Query().Get("limit"), 5)

	posts, err := handler.service.PopularPosts(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, posts)
}

func (handler *Handler) postsByTag(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	name := requestutil.Param(request, "name")

	page, err := handler.service.PostsByTag(request.Context(), name, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

func (handler *Handler) postsByAuthor(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)
	username := requestutil.Param(request, "username")

	page, err := handler.service.PostsByAuthor(request.Context(), username, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

func (handler *Handler) getPost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, err := handler.service.GetPost(request.Context(), postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

func (handler *Handler) getPostBySlug(writer http.ResponseWriter, request *http.Request) {
	slug := requestutil.Param(request, "slug")

	found, err := handler.service.GetPostBySlug(request.Context(), slug)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

func (handler *Handler) relatedPosts(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	limit := convert.ToIntD(request.URL.Query().Get("limit"), 5)

	posts, err := handler.service.RelatedPosts(request.Context(), postID, limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, posts)
}

func (handler *Handler) recordView(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.IncrementViewCount(request.Context(), postID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Lifecycle Endpoints

func (handler *Handler) createPost(writer http.ResponseWriter, request *http.Request) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input := Input{}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreatePost(request.Context(), input, claims.Username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, created)
}

func (handler *Handler) updatePost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	input := Input{}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.UpdatePost(request.Context(), postID, input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}

func (handler *Handler) deletePost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeletePost(request.Context(), postID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

func (handler *Handler) publishPost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	published, err := handler.service.Publish(request.Context(), postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, published)
}

func (handler *Handler) unpublishPost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	drafted, err := handler.service.Unpublish(request.Context(), postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, drafted)
}

func (handler *Handler) schedulePost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := struct {
		PublishAt time.Time `json:"publish_at"`
	}{}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	if payload.PublishAt.IsZero() {
		respond.Error(writer, request,
			validate.RequiredError("publish_at", "This field is required"))
		return
	}

	scheduled, err := handler.service.Schedule(request.Context(), postID, payload.PublishAt)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, scheduled)
}

func (handler *Handler) toggleFeatured(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	toggled, err := handler.service.ToggleFeatured(request.Context(), postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, toggled)
}

func (handler *Handler) publishDue(writer http.ResponseWriter, request *http.Request) {
	promoted, err := handler.service.PublishDue(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, map[string]int{"published": promoted})
}

// splitCSV splits a comma-separated query value into trimmed parts.
func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
