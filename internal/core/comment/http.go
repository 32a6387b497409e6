package comment

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkpress/inkpress/internal/platform/middleware"
	requestutil "github.com/inkpress/inkpress/internal/platform/request"
	"github.com/inkpress/inkpress/internal/platform/respond"
	"github.com/inkpress/inkpress/internal/platform/sec"
	"github.com/inkpress/inkpress/pkg/pagination"
)

// Handler implements the HTTP layer for comments. Reads are public,
// submissions require authentication, and the moderation queue is
// restricted to moderators.
type Handler struct {
	service *Service
}

// NewHandler constructs a new comment [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] with the comment domain's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Reads
	router.Get("/post/{postId}", handler.approvedForPost)
	router.Get("/by-author/{username}", handler.commentsByAuthor)
	router.Get("/{id}", handler.getComment)
	router.Get("/{id}/replies", handler.approvedReplies)

	// ## Authenticated Submissions
	router.Group(func(authenticated chi.Router) {
		authenticated.Use(middleware.RequireAuth)

		authenticated.Post("/post/{postId}", handler.createComment)
		authenticated.Post("/{id}/reply", handler.reply)
		authenticated.Put("/{id}", handler.updateComment)
		authenticated.Delete("/{id}", handler.deleteComment)
	})

	// ## Moderation (Moderator Protected)
	router.Group(func(moderation chi.Router) {
		moderation.Use(middleware.RequireRole(sec.RoleModerator))

		moderation.Get("/pending", handler.pendingQueue)
		moderation.Post("/{id}/approve", handler.approve)
		moderation.Post("/{id}/reject", handler.reject)
		moderation.Post("/{id}/spam", handler.markSpam)
	})

	return router
}

// # Read Endpoints

func (handler *Handler) approvedForPost(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "postId")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	params := pagination.FromRequest(request)

	page, err := handler.service.ApprovedForPost(request.Context(), postID, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

func (handler *Handler) commentsByAuthor(writer http.ResponseWriter, request *http.Request) {
	username := requestutil.Param(request, "username")
	params := pagination.FromRequest(request)

	page, err := handler.service.CommentsByAuthor(request.Context(), username, params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

func (handler *Handler) getComment(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	found, err := handler.service.GetComment(request.Context(), commentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, found)
}

func (handler *Handler) approvedReplies(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	replies, err := handler.service.ApprovedReplies(request.Context(), commentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, replies)
}

// # Submission Endpoints

type commentPayload struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (handler *Handler) createComment(writer http.ResponseWriter, request *http.Request) {
	postID, err := requestutil.ID(request, "postId")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := requireActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := commentPayload{}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.CreateComment(request.Context(), postID, payload.Content, actor, payload.ParentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, created)
}

func (handler *Handler) reply(writer http.ResponseWriter, request *http.Request) {
	parentID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := requireActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := commentPayload{}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	created, err := handler.service.Reply(request.Context(), parentID, payload.Content, actor)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, created)
}

func (handler *Handler) updateComment(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := requireActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	payload := commentPayload{}
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	updated, err := handler.service.UpdateComment(request.Context(), commentID, payload.Content, actor)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, updated)
}

func (handler *Handler) deleteComment(writer http.ResponseWriter, request *http.Request) {
	commentID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	actor, err := requireActor(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.DeleteComment(request.Context(), commentID, actor); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}

// # Moderation Endpoints

func (handler *Handler) pendingQueue(writer http.ResponseWriter, request *http.Request) {
	params := pagination.FromRequest(request)

	page, err := handler.service.PendingQueue(request.Context(), params)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Paginated(writer, page)
}

func (handler *Handler) approve(writer http.ResponseWriter, request *http.Request) {
	handler.moderate(writer, request, handler.service.Approve)
}

func (handler *Handler) reject(writer http.ResponseWriter, request *http.Request) {
	handler.moderate(writer, request, handler.service.Reject)
}

func (handler *Handler) markSpam(writer http.ResponseWriter, request *http.Request) {
	handler.moderate(writer, request, handler.service.MarkSpam)
}

func (handler *Handler) moderate(writer http.ResponseWriter, request *http.Request,
	verdict func(ctx context.Context, id int64) (*Comment, error)) {
	commentID, err := requestutil.ID(request, "id")
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	moderated, err := verdict(request.Context(), commentID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, moderated)
}

// requireActor builds the acting user from the request's auth claims.
func requireActor(request *http.Request) (Actor, error) {
	claims, err := requestutil.RequiredClaims(request)
	if err != nil {
		return Actor{}, err
	}
	return Actor{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
