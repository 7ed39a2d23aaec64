package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Question is the canonical question record. All ingress paths (API payloads,
// legacy JSON exports, Moodle XML) are translated into this shape exactly once;
// nothing downstream deals with alternate field names.
type Question struct {
	ID               int64          `json:"id"`
	Title            string         `json:"title"`
	QuestionText     string         `json:"question_text"`
	Type             QuestionType   `json:"type"`
	Status           QuestionStatus `json:"status"`
	Category         string         `json:"category,omitempty"`
	Version          string         `json:"version"`
	DefaultMark      float64        `json:"default_mark"`
	PenaltyFactor    float64        `json:"penalty_factor"`
	GeneralFeedback  string         `json:"general_feedback,omitempty"`
	Tags             []string       `json:"tags"`
	Choices          []Choice       `json:"choices,omitempty"`
	CorrectAnswer    *bool          `json:"correct_answer,omitempty"`
	FeedbackTrue     string         `json:"feedback_true,omitempty"`
	FeedbackFalse    string         `json:"feedback_false,omitempty"`
	ShowInstructions bool           `json:"show_instructions"`
	CreatedBy        Attribution    `json:"created_by"`
	ModifiedBy       Attribution    `json:"modified_by"`
	History          []HistoryEntry `json:"history"`
}

// Choice is a single multichoice option. Grade is a percentage in -100..100;
// a choice with grade 100 is the (or a) fully correct answer.
type Choice struct {
	Text      string `json:"text"`
	Grade     int    `json:"grade"`
	Feedback  string `json:"feedback,omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// Attribution records who created or last modified a question. Date is a real
// timestamp; any display formatting happens at the edge.
type Attribution struct {
	Name string    `json:"name"`
	Role string    `json:"role,omitempty"`
	Date time.Time `json:"date"`
}

// HistoryEntry is one immutable audit record. History is append-only: entries
// are never removed or reordered.
type HistoryEntry struct {
	Version string    `json:"version"`
	Date    time.Time `json:"date"`
	Author  string    `json:"author"`
	Changes string    `json:"changes"`
}

type QuestionType string

const (
	QuestionTypeMultichoice   QuestionType = "multichoice"
	QuestionTypeTrueFalse     QuestionType = "truefalse"
	QuestionTypeEssay         QuestionType = "essay"
	QuestionTypeMatching      QuestionType = "matching"
	QuestionTypeShortAnswer   QuestionType = "shortanswer"
	QuestionTypeDDImageOrText QuestionType = "ddimageortext"
	QuestionTypeGapSelect     QuestionType = "gapselect"
	QuestionTypeDDMarker      QuestionType = "ddmarker"
)

// QuestionTypes lists every recognized type, in display order.
var QuestionTypes = []QuestionType{
	QuestionTypeMultichoice,
	QuestionTypeTrueFalse,
	QuestionTypeEssay,
	QuestionTypeMatching,
	QuestionTypeShortAnswer,
	QuestionTypeDDImageOrText,
	QuestionTypeGapSelect,
	QuestionTypeDDMarker,
}

// ValidQuestionType reports whether t is one of the recognized types.
func ValidQuestionType(t QuestionType) bool {
	for _, known := range QuestionTypes {
		if t == known {
			return true
		}
	}
	return false
}

type QuestionStatus string

const (
	StatusDraft     QuestionStatus = "draft"
	StatusReady     QuestionStatus = "ready"
	StatusHidden    QuestionStatus = "hidden"
	StatusArchived  QuestionStatus = "archived"
	StatusPublished QuestionStatus = "published"
)

// InitialVersion is the version assigned to every newly created question.
const InitialVersion = "v1"

// ParseVersion converts a "v<N>" version string to its numeric part.
// Returns an error if the string is not of that form or N is negative.
func ParseVersion(v string) (int, error) {
	rest, ok := strings.CutPrefix(v, "v")
	if !ok {
		return 0, fmt.Errorf("version %q: missing v prefix", v)
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("version %q: %w", v, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("version %q: negative", v)
	}
	return n, nil
}

// BumpVersion returns the next version string. A malformed input counts as v0,
// so the result always parses.
func BumpVersion(v string) string {
	n, err := ParseVersion(v)
	if err != nil {
		n = 0
	}
	return "v" + strconv.Itoa(n+1)
}

// Touch bumps the question's version, stamps the modifier, and appends one
// history entry describing the change.
func (q *Question) Touch(author, changes string, now time.Time) {
	q.Version = BumpVersion(q.Version)
	q.ModifiedBy = Attribution{Name: author, Date: now}
	q.History = append(q.History, HistoryEntry{
		Version: q.Version,
		Date:    now,
		Author:  author,
		Changes: changes,
	})
}

// Clone returns a deep copy. Mutating the copy never aliases the original's
// tags, choices, or history backing arrays.
func (q Question) Clone() Question {
	out := q
	if q.Tags != nil {
		out.Tags = append([]string(nil), q.Tags...)
	}
	if q.Choices != nil {
		out.Choices = append([]Choice(nil), q.Choices...)
	}
	if q.History != nil {
		out.History = append([]HistoryEntry(nil), q.History...)
	}
	if q.CorrectAnswer != nil {
		v := *q.CorrectAnswer
		out.CorrectAnswer = &v
	}
	return out
}
