package handler

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/openqb/qbank-backend/internal/middleware"
	"github.com/openqb/qbank-backend/internal/model"
	"github.com/openqb/qbank-backend/internal/moodle"
	"github.com/openqb/qbank-backend/internal/qbank"
	"github.com/openqb/qbank-backend/internal/repository"
	"github.com/openqb/qbank-backend/internal/response"
	"github.com/openqb/qbank-backend/internal/service"
	"github.com/openqb/qbank-backend/internal/validator"
)

// QuestionHandler handles question management endpoints.
type QuestionHandler struct {
	questionService *service.QuestionService
	maxImportBytes  int64
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService, maxImportBytes int64) *QuestionHandler {
	return &QuestionHandler{questionService: questionService, maxImportBytes: maxImportBytes}
}

// BulkEditRequest is the payload for a bulk edit: the selected question IDs,
// one change set applied to every selection, and optional per-question
// overrides keyed by ID.
type BulkEditRequest struct {
	IDs       []int64                       `json:"ids" binding:"required,min=1"`
	Changes   qbank.ChangeSet               `json:"changes"`
	Overrides map[int64]qbank.QuestionPatch `json:"overrides"`
}

// List godoc
// GET /api/v1/questions
// Lists questions with filters (search, category, status, type, tag) and
// pagination (page, per_page).
func (h *QuestionHandler) List(c *gin.Context) {
	state := qbank.DefaultFilterState()
	state.SearchQuery = c.Query("search")
	if v := c.Query("category"); v != "" {
		state.Category = v
	}
	if v := c.Query("status"); v != "" {
		state.Status = v
	}
	if v := c.Query("type"); v != "" {
		state.Type = v
	}
	if v := c.Query("tag"); v != "" {
		state.TagFilter = v
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "0"))

	questions, pagination, err := h.questionService.List(c.Request.Context(), state, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	if questions == nil {
		questions = []model.Question{}
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"questions": questions}, pagination)
}

// Get godoc
// GET /api/v1/questions/:id
func (h *QuestionHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	question, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		failQuestionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// History godoc
// GET /api/v1/questions/:id/history
// Returns the question's append-only edit history.
func (h *QuestionHandler) History(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	question, err := h.questionService.Get(c.Request.Context(), id)
	if err != nil {
		failQuestionErr(c, err)
		return
	}

	history := question.History
	if history == nil {
		history = []model.HistoryEntry{}
	}

	response.Success(c, http.StatusOK, gin.H{"history": history})
}

// Create godoc
// POST /api/v1/questions
func (h *QuestionHandler) Create(c *gin.Context) {
	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	author := model.Attribution{Name: authorName(c)}
	if claims := middleware.GetClaims(c); claims != nil {
		author.Role = claims.Role
	}

	question, err := h.questionService.Create(c.Request.Context(), &req, author)
	if err != nil {
		if errors.Is(err, model.ErrNoPositiveChoice) {
			response.Fail(c, http.StatusBadRequest, response.ErrNoPositiveChoice)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": question})
}

// Update godoc
// PUT /api/v1/questions/:id
func (h *QuestionHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.Update(c.Request.Context(), id, &req, authorName(c))
	if err != nil {
		if errors.Is(err, model.ErrNoPositiveChoice) {
			response.Fail(c, http.StatusBadRequest, response.ErrNoPositiveChoice)
			return
		}
		failQuestionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// Delete godoc
// DELETE /api/v1/questions/:id
func (h *QuestionHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.questionService.Delete(c.Request.Context(), id); err != nil {
		failQuestionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ChangeStatus godoc
// PATCH /api/v1/questions/:id/status
func (h *QuestionHandler) ChangeStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.ChangeStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	question, err := h.questionService.ChangeStatus(c.Request.Context(), id,
		model.QuestionStatus(req.Status), authorName(c))
	if err != nil {
		failQuestionErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": question})
}

// BulkEdit godoc
// POST /api/v1/questions/bulk-edit
// Applies one change set across a selection, plus optional per-question
// overrides, atomically.
func (h *QuestionHandler) BulkEdit(c *gin.Context) {
	var req BulkEditRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Publishing via bulk edit is reserved for admins.
	if wantsPublish(req) {
		claims := middleware.GetClaims(c)
		if claims == nil || claims.Role != model.RoleAdmin {
			response.Fail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
	}

	result, err := h.questionService.BulkEdit(c.Request.Context(),
		req.IDs, req.Changes, req.Overrides, authorName(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySelection):
			response.Fail(c, http.StatusBadRequest, response.ErrEmptySelection)
		case errors.Is(err, service.ErrNothingToApply):
			response.Fail(c, http.StatusBadRequest, response.ErrNothingToApply)
		case errors.Is(err, repository.ErrQuestionNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Import godoc
// POST /api/v1/questions/import
// Accepts a Moodle XML quiz export as a multipart file upload, imports its
// questions, and reports how many duplicates were skipped.
func (h *QuestionHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}
	defer file.Close()

	if header.Size > h.maxImportBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		return
	}
	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".xml" {
		response.Fail(c, http.StatusBadRequest, response.ErrUnsupportedFile)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxImportBytes+1))
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if int64(len(data)) > h.maxImportBytes {
		response.Fail(c, http.StatusBadRequest, response.ErrFileTooLarge)
		return
	}

	result, err := h.questionService.ImportXML(c.Request.Context(), data)
	if err != nil {
		var importErr *moodle.ImportError
		if errors.As(err, &importErr) {
			response.Fail(c, http.StatusBadRequest, response.ErrImportMalformed)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"imported":  len(result.NewQuestions),
		"skipped":   result.Skipped,
		"questions": result.NewQuestions,
	})
}

// wantsPublish reports whether a bulk edit would move any question to the
// published status, globally or via an override.
func wantsPublish(req BulkEditRequest) bool {
	if model.QuestionStatus(req.Changes.Status) == model.StatusPublished {
		return true
	}
	for _, patch := range req.Overrides {
		if patch.Status != nil && *patch.Status == model.StatusPublished {
			return true
		}
	}
	return false
}

// parseID reads the :id path param, failing the request on bad input.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// authorName resolves the display name used for attribution. Falls back to
// the token subject if the name claim is empty.
func authorName(c *gin.Context) string {
	claims := middleware.GetClaims(c)
	if claims == nil {
		return ""
	}
	if claims.Name != "" {
		return claims.Name
	}
	return claims.Subject
}

func failQuestionErr(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrQuestionNotFound) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
}
