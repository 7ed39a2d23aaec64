package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/openqb/qbank-backend/internal/qbank"
	"github.com/openqb/qbank-backend/internal/response"
	"github.com/openqb/qbank-backend/internal/service"
)

// TagHandler handles tag vocabulary endpoints.
type TagHandler struct {
	questionService *service.QuestionService
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(questionService *service.QuestionService) *TagHandler {
	return &TagHandler{questionService: questionService}
}

// List godoc
// GET /api/v1/tags
// Returns the sorted distinct normalized tags across the bank.
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.questionService.TagOptions(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if tags == nil {
		tags = []string{}
	}

	response.Success(c, http.StatusOK, gin.H{"tags": tags})
}

// Categories godoc
// GET /api/v1/tags/categories
// Returns the bank's tags bucketed by keyword category.
func (h *TagHandler) Categories(c *gin.Context) {
	groups, err := h.questionService.TagCategoryGroups(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"categories": groups})
}

// Usage godoc
// GET /api/v1/tags/usage
// Returns per-tag usage counts and percentages, most used first.
func (h *TagHandler) Usage(c *gin.Context) {
	usage, err := h.questionService.TagUsage(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if usage == nil {
		usage = []qbank.TagUsage{}
	}

	response.Success(c, http.StatusOK, gin.H{"usage": usage})
}
