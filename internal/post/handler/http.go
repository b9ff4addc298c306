package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/post/domain"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

// HeaderUserID carries the authenticated user, set by the gateway after it
// has validated the token.
const HeaderUserID = "X-User-ID"

type PostService interface {
	CreatePost(ctx context.Context, req *domain.CreatePostRequest) (*domain.Post, error)
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	ListPosts(ctx context.Context, page, limit int) (*domain.PostPage, error)
	DeletePost(ctx context.Context, id, userID string) error
}

type HTTPHandler struct {
	service PostService
	logger  *zap.Logger
}

func NewHTTPHandler(service PostService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/posts")
	{
		api.POST("", h.requireUser, h.CreatePost)
		api.GET("", h.ListPosts)
		api.GET("/:id", h.GetPost)
		api.DELETE("/:id", h.requireUser, h.DeletePost)
	}
}

func (h *HTTPHandler) requireUser(c *gin.Context) {
	if c.GetHeader(HeaderUserID) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Next()
}

func (h *HTTPHandler) CreatePost(c *gin.Context) {
	var req domain.CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.UserID = c.GetHeader(HeaderUserID)

	post, err := h.service.CreatePost(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Failed to create post", zap.String("user_id", req.UserID))
		return
	}

	c.JSON(http.StatusCreated, post)
}

func (h *HTTPHandler) GetPost(c *gin.Context) {
	id := c.Param("id")

	post, err := h.service.GetPost(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "Failed to get post", zap.String("post_id", id))
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *HTTPHandler) ListPosts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	result, err := h.service.ListPosts(c.Request.Context(), page, limit)
	if err != nil {
		h.respondError(c, err, "Failed to list posts",
			zap.Int("page", page), zap.Int("limit", limit))
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *HTTPHandler) DeletePost(c *gin.Context) {
	id := c.Param("id")
	userID := c.GetHeader(HeaderUserID)

	if err := h.service.DeletePost(c.Request.Context(), id, userID); err != nil {
		h.respondError(c, err, "Failed to delete post",
			zap.String("post_id", id), zap.String("user_id", userID))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

func (h *HTTPHandler) respondError(c *gin.Context, err error, msg string, fields ...zap.Field) {
	switch {
	case errors.Is(err, validator.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
	default:
		h.logger.Error(msg, append(fields, zap.Error(err))...)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
