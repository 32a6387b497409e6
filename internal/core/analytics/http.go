package analytics

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/inkpress/internal/platform/middleware"
	requestutil "github.com/inkpress/inkpress/internal/platform/request"
	"github.com/inkpress/inkpress/internal/platform/respond"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/pkg/convert"
)

// Handler implements the HTTP layer for analytics.
type Handler struct {
	service *Service
}

// NewHandler constructs a new analytics [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the analytics endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/popular", handler.popular)

	router.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireRole(sec.RoleAdmin))

		admin.Get("/dashboard", handler.dashboard)
		admin.Get("/posts/{id}", handler.forPost)
	})

	return router
}

func (handler *Handler) popular(writer http.ResponseWriter, request *http.Request) {
	limit := convert.ToIntD(request.URL.Query().Get("limit"), 5)

	content, err := handler.service.Popular(request.Context(), limit)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, content)
}

func (handler *Handler) dashboard(writer http.ResponseWriter, request *http.Request) {
	stats, err := handler.service.Dashboard(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (handler *Handler) forPost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	summary, err := handler.service.ForPost(request.Context(), postID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, summary)
}
