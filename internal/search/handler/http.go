package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/search/domain"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

type SearchService interface {
	Search(ctx context.Context, query string) ([]domain.SearchPost, error)
}

type HTTPHandler struct {
	service SearchService
	logger  *zap.Logger
}

func NewHTTPHandler(service SearchService, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		logger:  logger,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/search", h.Search)
}

func (h *HTTPHandler) Search(c *gin.Context) {
	query := c.Query("query")

	results, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, validator.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to search posts",
			zap.Error(err), zap.String("query", query))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, results)
}
