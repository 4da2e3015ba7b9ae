package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/blogdraft/internal/adapters/http/dto"
	"github.com/jsamuelsen/blogdraft/internal/app"
	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// BlogService is the part of app.PostService the handlers use.
type BlogService interface {
	List(ctx context.Context, filter ports.PostFilter) (*app.PostPage, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	SaveDraft(ctx context.Context, in domain.PostInput, id string) (*app.SaveResult, error)
	Publish(ctx context.Context, in domain.PostInput, id string) (*app.SaveResult, error)
	Delete(ctx context.Context, id string) error
}

// WriteRecorder counts successful writes. *telemetry.Metrics implements it.
type WriteRecorder interface {
	PostSaved(status string, created bool)
	PostDeleted()
}

type noopRecorder struct{}

func (noopRecorder) PostSaved(string, bool) {}
func (noopRecorder) PostDeleted()           {}

// BlogHandler serves /api/v1/blogs.
type BlogHandler struct {
	service BlogService
	metrics WriteRecorder
}

// NewBlogHandler creates a BlogHandler. metrics may be nil.
func NewBlogHandler(service BlogService, metrics WriteRecorder) *BlogHandler {
	if metrics == nil {
		metrics = noopRecorder{}
	}

	return &BlogHandler{service: service, metrics: metrics}
}

// Register mounts the blog routes on rg.
func (h *BlogHandler) Register(rg *gin.RouterGroup) {
	blogs := rg.Group("/blogs")
	blogs.GET("", h.List)
	blogs.GET("/:id", h.Get)
	blogs.POST("/save-draft", h.SaveDraft)
	blogs.PUT("/save-draft/:id", h.SaveDraft)
	blogs.POST("/publish", h.Publish)
	blogs.PUT("/publish/:id", h.Publish)
	blogs.DELETE("/:id", h.Delete)
}

// List handles GET /blogs?status=&tags=a,b&page=&limit=.
func (h *BlogHandler) List(c *gin.Context) {
	var q dto.ListQuery
	if err := dto.BindQuery(c, &q); err != nil {
		dto.HandleError(c, err)
		return
	}

	page, err := h.service.List(c.Request.Context(), q.Filter())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewBlogListResponse(page.Posts, dto.NewPageMeta(page.Total, page.Page, page.Limit)))
}

// Get handles GET /blogs/:id.
func (h *BlogHandler) Get(c *gin.Context) {
	post, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBlogResponse(post))
}

// SaveDraft handles POST /blogs/save-draft and PUT /blogs/save-draft/:id.
func (h *BlogHandler) SaveDraft(c *gin.Context) {
	h.save(c, h.service.SaveDraft, dto.MsgDraftSaved)
}

// Publish handles POST /blogs/publish and PUT /blogs/publish/:id.
func (h *BlogHandler) Publish(c *gin.Context) {
	h.save(c, h.service.Publish, dto.MsgBlogPublished)
}

type saveFunc func(ctx context.Context, in domain.PostInput, id string) (*app.SaveResult, error)

func (h *BlogHandler) save(c *gin.Context, save saveFunc, message string) {
	var req dto.BlogRequest
	if err := dto.BindJSON(c, &req); err != nil {
		dto.HandleError(c, err)
		return
	}

	res, err := save(c.Request.Context(), req.Input(), c.Param("id"))
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	h.metrics.PostSaved(string(res.Post.Status), res.Created)

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}

	c.JSON(status, dto.MessageResponse{Message: message, Blog: dto.ToBlogResponse(res.Post)})
}

// Delete handles DELETE /blogs/:id.
func (h *BlogHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		dto.HandleError(c, err)
		return
	}

	h.metrics.PostDeleted()

	c.JSON(http.StatusOK, dto.MessageResponse{Message: dto.MsgBlogDeleted})
}
