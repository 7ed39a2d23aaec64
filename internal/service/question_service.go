package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openqb/qbank-backend/internal/config"
	"github.com/openqb/qbank-backend/internal/model"
	"github.com/openqb/qbank-backend/internal/moodle"
	"github.com/openqb/qbank-backend/internal/qbank"
	"github.com/openqb/qbank-backend/internal/response"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Bulk-edit request errors.
var (
	ErrEmptySelection = errors.New("no questions selected")
	ErrNothingToApply = errors.New("change set contains no changes")
)

// QuestionStore is the persistence surface the question service depends on.
type QuestionStore interface {
	List(ctx context.Context) ([]model.Question, error)
	Get(ctx context.Context, id int64) (*model.Question, error)
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, q *model.Question) error
	Update(ctx context.Context, q *model.Question) error
	Delete(ctx context.Context, id int64) error
	UpdateBatch(ctx context.Context, questions []model.Question) error
	InsertBatch(ctx context.Context, questions []model.Question) error
}

// QuestionService handles question business logic: list filtering and
// pagination, version/history bookkeeping, bulk edits, and XML import.
type QuestionService struct {
	cfg   *config.Config
	store QuestionStore
	rdb   *redis.Client
	now   func() time.Time
}

// NewQuestionService creates a new QuestionService. rdb may be nil, which
// disables the read caches.
func NewQuestionService(cfg *config.Config, store QuestionStore, rdb *redis.Client) *QuestionService {
	return &QuestionService{cfg: cfg, store: store, rdb: rdb, now: time.Now}
}

// List retrieves questions matching the filter state, paginated.
func (s *QuestionService) List(ctx context.Context, state qbank.FilterState, page, perPage int) ([]model.Question, *response.Pagination, error) {
	if perPage < 1 {
		perPage = s.cfg.DefaultPageSize
	}
	if perPage > s.cfg.MaxPageSize {
		perPage = s.cfg.MaxPageSize
	}

	questions, err := s.loadQuestions(ctx)
	if err != nil {
		return nil, nil, err
	}

	filtered := qbank.Filter(questions, state)
	page, perPage = qbank.ClampPage(page, perPage, len(filtered))
	window := qbank.Paginate(filtered, page, perPage)

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: len(filtered),
		TotalPages: qbank.TotalPages(len(filtered), perPage),
	}
	return window.Items, pagination, nil
}

// Get retrieves a single question by ID.
func (s *QuestionService) Get(ctx context.Context, id int64) (*model.Question, error) {
	return s.store.Get(ctx, id)
}

// Create builds a question from the request payload and persists it. New
// questions start at the initial version, in draft status, with one history
// entry attributing the creation.
func (s *QuestionService) Create(ctx context.Context, req *model.CreateQuestionRequest, author model.Attribution) (*model.Question, error) {
	if err := req.ValidateChoices(); err != nil {
		return nil, err
	}

	id, err := s.store.NextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("allocate id: %w", err)
	}

	now := s.now()
	author.Date = now
	q := &model.Question{
		ID:               id,
		Title:            req.Title,
		QuestionText:     req.QuestionText,
		Type:             model.QuestionType(req.Type),
		Status:           model.StatusDraft,
		Category:         req.Category,
		Version:          model.InitialVersion,
		DefaultMark:      req.DefaultMark,
		PenaltyFactor:    req.PenaltyFactor,
		GeneralFeedback:  req.GeneralFeedback,
		Tags:             qbank.NormalizeTagStrings(req.Tags),
		Choices:          req.ChoiceList(),
		CorrectAnswer:    req.CorrectAnswer,
		FeedbackTrue:     req.FeedbackTrue,
		FeedbackFalse:    req.FeedbackFalse,
		ShowInstructions: req.ShowInstructions,
		CreatedBy:        author,
		ModifiedBy:       author,
		History: []model.HistoryEntry{{
			Version: model.InitialVersion,
			Date:    now,
			Author:  author.Name,
			Changes: "Created",
		}},
	}

	if err := s.store.Create(ctx, q); err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx)
	return q, nil
}

// Update overwrites a question's editable fields, bumps the version, and
// appends a history entry.
func (s *QuestionService) Update(ctx context.Context, id int64, req *model.UpdateQuestionRequest, author string) (*model.Question, error) {
	if err := req.ValidateChoices(); err != nil {
		return nil, err
	}

	q, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q.Title = req.Title
	q.QuestionText = req.QuestionText
	q.Type = model.QuestionType(req.Type)
	q.Category = req.Category
	q.DefaultMark = req.DefaultMark
	q.PenaltyFactor = req.PenaltyFactor
	q.GeneralFeedback = req.GeneralFeedback
	q.Tags = qbank.NormalizeTagStrings(req.Tags)
	q.Choices = req.ChoiceList()
	q.CorrectAnswer = req.CorrectAnswer
	q.FeedbackTrue = req.FeedbackTrue
	q.FeedbackFalse = req.FeedbackFalse
	q.ShowInstructions = req.ShowInstructions
	q.Touch(author, "Edited", s.now())

	if err := s.store.Update(ctx, q); err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx)
	return q, nil
}

// Delete removes a question permanently.
func (s *QuestionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateCaches(ctx)
	return nil
}

// ChangeStatus moves a question to a new workflow status. Any status is
// settable from any other; the transition is recorded in history.
func (s *QuestionService) ChangeStatus(ctx context.Context, id int64, status model.QuestionStatus, author string) (*model.Question, error) {
	q, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	q.Status = status
	q.Touch(author, "Status changed to "+string(status), s.now())

	if err := s.store.Update(ctx, q); err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx)
	return q, nil
}

// BulkEditResult is the outcome of one bulk edit.
type BulkEditResult struct {
	Updated []model.Question `json:"updated"`
	Summary []string         `json:"summary"`
}

// BulkEdit applies a uniform change set, then per-question overrides, to the
// selected questions and persists the merged copies in one transaction. A
// change set with every field at its sentinel and no overrides is rejected
// rather than silently bumping versions.
func (s *QuestionService) BulkEdit(ctx context.Context, ids []int64, cs qbank.ChangeSet, patches map[int64]qbank.QuestionPatch, currentUser string) (*BulkEditResult, error) {
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}
	if cs.IsNoOp() && len(patches) == 0 {
		return nil, ErrNothingToApply
	}

	selected := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		q, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("question %d: %w", id, err)
		}
		selected = append(selected, *q)
	}

	merged := qbank.ApplyGlobalChanges(selected, cs, currentUser, s.now())
	merged = qbank.ApplyIndividualChanges(merged, patches)

	if err := s.store.UpdateBatch(ctx, merged); err != nil {
		return nil, err
	}
	s.invalidateCaches(ctx)

	return &BulkEditResult{Updated: merged, Summary: qbank.Summarize(cs)}, nil
}

// ImportXML parses a Moodle XML quiz export, deduplicates against the current
// bank, and inserts the new questions in one transaction.
func (s *QuestionService) ImportXML(ctx context.Context, data []byte) (*moodle.Result, error) {
	existing, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	result, err := moodle.Import(data, existing, s.now())
	if err != nil {
		return nil, err
	}

	if len(result.NewQuestions) > 0 {
		if err := s.store.InsertBatch(ctx, result.NewQuestions); err != nil {
			return nil, err
		}
		s.invalidateCaches(ctx)
	}
	return &result, nil
}

// TagOptions returns the sorted distinct normalized tags across the bank.
func (s *QuestionService) TagOptions(ctx context.Context) ([]string, error) {
	if s.rdb != nil {
		var cached []string
		if ok := s.cacheGet(ctx, config.CacheKey.TagOptionsKey(), &cached); ok {
			return cached, nil
		}
	}

	questions, err := s.loadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	options := qbank.TagOptions(questions)
	s.cacheSet(ctx, config.CacheKey.TagOptionsKey(), options)
	return options, nil
}

// TagCategoryGroups returns the bank's tags bucketed by keyword category.
func (s *QuestionService) TagCategoryGroups(ctx context.Context) (*qbank.TagCategories, error) {
	options, err := s.TagOptions(ctx)
	if err != nil {
		return nil, err
	}
	groups := qbank.CategorizeTags(options)
	return &groups, nil
}

// TagUsage returns per-tag usage counts, served from the cache the background
// worker refreshes, computed on demand on a miss.
func (s *QuestionService) TagUsage(ctx context.Context) ([]qbank.TagUsage, error) {
	if s.rdb != nil {
		var cached []qbank.TagUsage
		if ok := s.cacheGet(ctx, config.CacheKey.TagUsageKey(), &cached); ok {
			return cached, nil
		}
	}
	return s.RefreshTagUsage(ctx)
}

// RefreshTagUsage recomputes tag usage from the bank and stores the snapshot.
func (s *QuestionService) RefreshTagUsage(ctx context.Context) ([]qbank.TagUsage, error) {
	questions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	usage := qbank.CountTagUsage(questions)
	s.cacheSet(ctx, config.CacheKey.TagUsageKey(), usage)
	return usage, nil
}

// loadQuestions reads the full bank, through the list cache when available.
// Cache failures fall through to the store; the cache is never authoritative.
func (s *QuestionService) loadQuestions(ctx context.Context) ([]model.Question, error) {
	if s.rdb != nil {
		var cached []model.Question
		if ok := s.cacheGet(ctx, config.CacheKey.QuestionListKey(), &cached); ok {
			return cached, nil
		}
	}

	questions, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, config.CacheKey.QuestionListKey(), questions)
	return questions, nil
}

func (s *QuestionService) cacheGet(ctx context.Context, key string, dst interface{}) bool {
	if s.rdb == nil {
		return false
	}
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *QuestionService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.cfg.ListCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *QuestionService) invalidateCaches(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	err := s.rdb.Del(ctx,
		config.CacheKey.QuestionListKey(),
		config.CacheKey.TagOptionsKey(),
		config.CacheKey.TagUsageKey(),
	).Err()
	if err != nil {
		log.Warn().Err(err).Msg("cache invalidation failed")
	}
}
