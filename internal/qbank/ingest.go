package qbank

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/openqb/qbank-backend/internal/model"
)

// The legacy console's backend never settled on one field naming: qtype vs
// questionType, defaultmark vs default_mark, created_at vs timecreated, tags
// as plain strings or {name|text|value|label} objects, dates as display
// strings. This file is the single translation step at the ingress boundary;
// past it, only the canonical model.Question shape exists.

// LegacyQuestion mirrors the union of field spellings seen in legacy JSON
// exports. Exactly one spelling per logical field is expected to be set.
type LegacyQuestion struct {
	ID json.Number `json:"id"`

	Title string `json:"title"`
	Name  string `json:"name"`

	QuestionText       string `json:"questionText"`
	QuestionTextSnake  string `json:"question_text"`
	QuestionTextMoodle string `json:"questiontext"`

	QType        string `json:"qtype"`
	QuestionType string `json:"questionType"`
	Type         string `json:"type"`

	Status   string `json:"status"`
	Category string `json:"category"`
	Version  string `json:"version"`

	DefaultMark      *float64 `json:"defaultMark"`
	DefaultMarkLower *float64 `json:"defaultmark"`
	DefaultMarkSnake *float64 `json:"default_mark"`

	Penalty            *float64 `json:"penalty"`
	PenaltyFactor      *float64 `json:"penaltyFactor"`
	PenaltyFactorSnake *float64 `json:"penalty_factor"`

	GeneralFeedback      string `json:"generalFeedback"`
	GeneralFeedbackSnake string `json:"general_feedback"`

	Tags    []any          `json:"tags"`
	Choices []legacyChoice `json:"choices"`

	CorrectAnswer *bool  `json:"correctAnswer"`
	FeedbackTrue  string `json:"feedbackTrue"`
	FeedbackFalse string `json:"feedbackFalse"`

	ShowInstructions bool `json:"showInstructions"`

	CreatedAt   string `json:"created_at"`
	TimeCreated *int64 `json:"timecreated"`

	CreatedBy  legacyAttribution `json:"createdBy"`
	ModifiedBy legacyAttribution `json:"modifiedBy"`

	History []legacyHistory `json:"history"`
}

type legacyChoice struct {
	Text      string `json:"text"`
	Grade     int    `json:"grade"`
	Feedback  string `json:"feedback"`
	IsCorrect bool   `json:"isCorrect"`
}

// legacyAttribution accepts either a bare author-name string or a
// {name, role, date} object; the date is a display string, not a timestamp.
type legacyAttribution struct {
	Name string
	Role string
	Date string
}

func (a *legacyAttribution) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		a.Name = name
		return nil
	}
	var obj struct {
		Name string `json:"name"`
		Role string `json:"role"`
		Date string `json:"date"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("attribution: %w", err)
	}
	a.Name, a.Role, a.Date = obj.Name, obj.Role, obj.Date
	return nil
}

type legacyHistory struct {
	Version string `json:"version"`
	Date    string `json:"date"`
	Author  string `json:"author"`
	Changes string `json:"changes"`
}

// Display-string layouts the legacy console produced, most specific first.
var legacyDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
	"02/01/2006",
}

func parseLegacyDate(s string, fallbackUnix *int64) time.Time {
	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	if fallbackUnix != nil {
		return time.Unix(*fallbackUnix, 0).UTC()
	}
	return time.Time{}
}

// Canonical translates the legacy record into the canonical shape. Missing
// or malformed fields degrade to safe defaults rather than erroring: absent
// tags become an empty set, an unparseable version becomes v1, an unknown
// type becomes multichoice.
func (lq LegacyQuestion) Canonical() model.Question {
	q := model.Question{
		Title:            coalesce(lq.Title, lq.Name),
		QuestionText:     coalesce(lq.QuestionText, lq.QuestionTextSnake, lq.QuestionTextMoodle),
		Category:         lq.Category,
		GeneralFeedback:  coalesce(lq.GeneralFeedback, lq.GeneralFeedbackSnake),
		Tags:             NormalizeTags(lq.Tags),
		CorrectAnswer:    lq.CorrectAnswer,
		FeedbackTrue:     lq.FeedbackTrue,
		FeedbackFalse:    lq.FeedbackFalse,
		ShowInstructions: lq.ShowInstructions,
	}

	if id, err := lq.ID.Int64(); err == nil {
		q.ID = id
	}

	q.Type = model.QuestionType(coalesce(lq.QType, lq.QuestionType, lq.Type))
	if !model.ValidQuestionType(q.Type) {
		q.Type = model.QuestionTypeMultichoice
	}

	q.Status = model.QuestionStatus(lq.Status)
	if q.Status == "" {
		q.Status = model.StatusDraft
	}

	q.Version = lq.Version
	if _, err := model.ParseVersion(q.Version); err != nil {
		q.Version = model.InitialVersion
	}

	if v := firstFloat(lq.DefaultMark, lq.DefaultMarkLower, lq.DefaultMarkSnake); v != nil {
		q.DefaultMark = *v
	}
	if v := firstFloat(lq.PenaltyFactor, lq.PenaltyFactorSnake, lq.Penalty); v != nil {
		q.PenaltyFactor = *v
	}

	for _, c := range lq.Choices {
		q.Choices = append(q.Choices, model.Choice{
			Text:      c.Text,
			Grade:     c.Grade,
			Feedback:  c.Feedback,
			IsCorrect: c.IsCorrect,
		})
	}

	created := parseLegacyDate(coalesce(lq.CreatedBy.Date, lq.CreatedAt), lq.TimeCreated)
	q.CreatedBy = model.Attribution{Name: lq.CreatedBy.Name, Role: lq.CreatedBy.Role, Date: created}
	q.ModifiedBy = model.Attribution{
		Name: coalesce(lq.ModifiedBy.Name, lq.CreatedBy.Name),
		Role: lq.ModifiedBy.Role,
		Date: parseLegacyDate(lq.ModifiedBy.Date, lq.TimeCreated),
	}

	for _, h := range lq.History {
		q.History = append(q.History, model.HistoryEntry{
			Version: h.Version,
			Date:    parseLegacyDate(h.Date, nil),
			Author:  h.Author,
			Changes: h.Changes,
		})
	}

	return q
}

// ParseLegacyQuestions decodes a legacy JSON export — either a bare array or
// a single object — into canonical questions.
func ParseLegacyQuestions(data []byte) ([]model.Question, error) {
	var list []LegacyQuestion
	if err := json.Unmarshal(data, &list); err != nil {
		var one LegacyQuestion
		if err2 := json.Unmarshal(data, &one); err2 != nil {
			return nil, fmt.Errorf("decode legacy export: %w", err)
		}
		list = []LegacyQuestion{one}
	}
	out := make([]model.Question, len(list))
	for i, lq := range list {
		out[i] = lq.Canonical()
	}
	return out, nil
}

func coalesce(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
