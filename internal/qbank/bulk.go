package qbank

import (
	"fmt"
	"strconv"
	"time"

	"github.com/openqb/qbank-backend/internal/model"
)

// BulkEditNote is the history entry text recorded for every bulk-edited
// question.
const BulkEditNote = "Bulk edited"

// TagChanges lists tags to add to and remove from every targeted question.
// Add is applied before Remove, so a tag present in both ends up absent.
type TagChanges struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

func (tc TagChanges) empty() bool {
	return len(tc.Add) == 0 && len(tc.Remove) == 0
}

// ChangeSet is one bulk edit applied uniformly across a selection. Every
// field is optional: the empty string (or nil for non-string fields) is the
// no-op sentinel meaning "leave the question's existing value". That
// convention is load-bearing — a blank input in the bulk-edit form must never
// blank out a field.
type ChangeSet struct {
	Status            string     `json:"status"`
	DefaultMark       *float64   `json:"default_mark"`
	PenaltyFactor     *float64   `json:"penalty_factor"`
	GeneralFeedback   string     `json:"general_feedback"`
	FeedbackCorrect   string     `json:"feedback_correct"`
	FeedbackIncorrect string     `json:"feedback_incorrect"`
	Category          string     `json:"category"`
	Tags              TagChanges `json:"tags"`
	ShowInstructions  *bool      `json:"show_instructions"`
	Version           string     `json:"version"`
	ModifiedBy        string     `json:"modified_by"`
}

// IsNoOp reports whether every field is at its sentinel. Applying a no-op
// change set leaves questions completely untouched: no field writes, no
// version bump, no history entry.
func (cs ChangeSet) IsNoOp() bool {
	return cs.Status == "" &&
		cs.DefaultMark == nil &&
		cs.PenaltyFactor == nil &&
		cs.GeneralFeedback == "" &&
		cs.FeedbackCorrect == "" &&
		cs.FeedbackIncorrect == "" &&
		cs.Category == "" &&
		cs.Tags.empty() &&
		cs.ShowInstructions == nil &&
		cs.Version == "" &&
		cs.ModifiedBy == ""
}

// ApplyGlobalChanges merges cs over every question and returns the merged
// copies; the input is never mutated. Each touched question gets its version
// bumped (unless cs.Version overrides it) and one history entry authored by
// cs.ModifiedBy, falling back to currentUser.
func ApplyGlobalChanges(questions []model.Question, cs ChangeSet, currentUser string, now time.Time) []model.Question {
	out := make([]model.Question, len(questions))
	if cs.IsNoOp() {
		for i, q := range questions {
			out[i] = q.Clone()
		}
		return out
	}

	author := cs.ModifiedBy
	if author == "" {
		author = currentUser
	}
	adds := NormalizeTagStrings(cs.Tags.Add)
	removes := NormalizeTagStrings(cs.Tags.Remove)

	for i, q := range questions {
		merged := q.Clone()

		if cs.Status != "" {
			merged.Status = model.QuestionStatus(cs.Status)
		}
		if cs.DefaultMark != nil {
			merged.DefaultMark = *cs.DefaultMark
		}
		if cs.PenaltyFactor != nil {
			merged.PenaltyFactor = *cs.PenaltyFactor
		}
		if cs.GeneralFeedback != "" {
			merged.GeneralFeedback = cs.GeneralFeedback
		}
		if cs.FeedbackCorrect != "" {
			applyAnswerFeedback(&merged, cs.FeedbackCorrect, true)
		}
		if cs.FeedbackIncorrect != "" {
			applyAnswerFeedback(&merged, cs.FeedbackIncorrect, false)
		}
		if cs.Category != "" {
			merged.Category = cs.Category
		}
		if cs.ShowInstructions != nil {
			merged.ShowInstructions = *cs.ShowInstructions
		}

		// Tags: add first, then remove — remove wins on conflict.
		if len(adds) > 0 || len(removes) > 0 {
			merged.Tags = mergeTags(merged.Tags, adds, removes)
		}

		prevVersion := merged.Version
		if cs.Version != "" {
			merged.Version = cs.Version
		} else {
			merged.Version = model.BumpVersion(prevVersion)
		}
		merged.ModifiedBy = model.Attribution{Name: author, Date: now}
		merged.History = append(merged.History, model.HistoryEntry{
			Version: merged.Version,
			Date:    now,
			Author:  author,
			Changes: BulkEditNote,
		})

		out[i] = merged
	}
	return out
}

// applyAnswerFeedback routes the correct/incorrect feedback change to the
// question's answer-feedback fields: the true/false feedback pair for
// truefalse questions, per-choice feedback for multichoice.
func applyAnswerFeedback(q *model.Question, feedback string, correct bool) {
	if q.Type == model.QuestionTypeTrueFalse {
		if correct {
			q.FeedbackTrue = feedback
		} else {
			q.FeedbackFalse = feedback
		}
		return
	}
	for i := range q.Choices {
		isCorrect := q.Choices[i].IsCorrect || q.Choices[i].Grade > 0
		if isCorrect == correct {
			q.Choices[i].Feedback = feedback
		}
	}
}

// mergeTags returns existing ∪ adds \ removes, preserving existing order and
// appending new tags in add order.
func mergeTags(existing, adds, removes []string) []string {
	merged := NormalizeTagStrings(existing)
	present := make(map[string]struct{}, len(merged))
	for _, t := range merged {
		present[t] = struct{}{}
	}
	for _, t := range adds {
		if _, ok := present[t]; !ok {
			merged = append(merged, t)
			present[t] = struct{}{}
		}
	}
	if len(removes) == 0 {
		return merged
	}
	drop := make(map[string]struct{}, len(removes))
	for _, t := range removes {
		drop[t] = struct{}{}
	}
	kept := merged[:0]
	for _, t := range merged {
		if _, gone := drop[t]; !gone {
			kept = append(kept, t)
		}
	}
	return kept
}

// QuestionPatch is a per-question override, applied after global changes.
// Nil fields leave the question's value alone; a non-nil field wins over
// anything a global change already wrote.
type QuestionPatch struct {
	Title            *string               `json:"title"`
	QuestionText     *string               `json:"question_text"`
	Status           *model.QuestionStatus `json:"status"`
	Category         *string               `json:"category"`
	DefaultMark      *float64              `json:"default_mark"`
	PenaltyFactor    *float64              `json:"penalty_factor"`
	GeneralFeedback  *string               `json:"general_feedback"`
	Tags             []string              `json:"tags"`
	ShowInstructions *bool                 `json:"show_instructions"`
	Version          *string               `json:"version"`
	ModifiedBy       *string               `json:"modified_by"`
}

// ApplyIndividualChanges shallow-merges each patch over the question with the
// matching ID. Questions without a patch pass through untouched. There are no
// cross-question effects.
func ApplyIndividualChanges(questions []model.Question, patches map[int64]QuestionPatch) []model.Question {
	out := make([]model.Question, len(questions))
	for i, q := range questions {
		patch, ok := patches[q.ID]
		if !ok {
			out[i] = q
			continue
		}
		merged := q.Clone()
		if patch.Title != nil {
			merged.Title = *patch.Title
		}
		if patch.QuestionText != nil {
			merged.QuestionText = *patch.QuestionText
		}
		if patch.Status != nil {
			merged.Status = *patch.Status
		}
		if patch.Category != nil {
			merged.Category = *patch.Category
		}
		if patch.DefaultMark != nil {
			merged.DefaultMark = *patch.DefaultMark
		}
		if patch.PenaltyFactor != nil {
			merged.PenaltyFactor = *patch.PenaltyFactor
		}
		if patch.GeneralFeedback != nil {
			merged.GeneralFeedback = *patch.GeneralFeedback
		}
		if patch.Tags != nil {
			merged.Tags = NormalizeTagStrings(patch.Tags)
		}
		if patch.ShowInstructions != nil {
			merged.ShowInstructions = *patch.ShowInstructions
		}
		if patch.Version != nil {
			merged.Version = *patch.Version
		}
		if patch.ModifiedBy != nil {
			merged.ModifiedBy.Name = *patch.ModifiedBy
		}
		out[i] = merged
	}
	return out
}

// Summarize renders one confirmation line per non-sentinel field, in field
// order, for the bulk-edit confirmation dialog.
func Summarize(cs ChangeSet) []string {
	var lines []string
	if cs.Status != "" {
		lines = append(lines, "Status → "+cs.Status)
	}
	if cs.DefaultMark != nil {
		lines = append(lines, "Default mark → "+strconv.FormatFloat(*cs.DefaultMark, 'f', -1, 64))
	}
	if cs.PenaltyFactor != nil {
		lines = append(lines, "Penalty factor → "+strconv.FormatFloat(*cs.PenaltyFactor, 'f', -1, 64))
	}
	if cs.GeneralFeedback != "" {
		lines = append(lines, "General feedback updated")
	}
	if cs.FeedbackCorrect != "" {
		lines = append(lines, "Correct-answer feedback updated")
	}
	if cs.FeedbackIncorrect != "" {
		lines = append(lines, "Incorrect-answer feedback updated")
	}
	if cs.Category != "" {
		lines = append(lines, "Category → "+cs.Category)
	}
	if !cs.Tags.empty() {
		lines = append(lines, summarizeTags(cs.Tags))
	}
	if cs.ShowInstructions != nil {
		if *cs.ShowInstructions {
			lines = append(lines, "Show instructions → on")
		} else {
			lines = append(lines, "Show instructions → off")
		}
	}
	if cs.Version != "" {
		lines = append(lines, "Version → "+cs.Version)
	}
	if cs.ModifiedBy != "" {
		lines = append(lines, "Modified by → "+cs.ModifiedBy)
	}
	return lines
}

func summarizeTags(tc TagChanges) string {
	adds := len(NormalizeTagStrings(tc.Add))
	removes := len(NormalizeTagStrings(tc.Remove))
	switch {
	case adds > 0 && removes > 0:
		return fmt.Sprintf("+%d %s added, -%d %s removed",
			adds, pluralTag(adds), removes, pluralTag(removes))
	case adds > 0:
		return fmt.Sprintf("+%d %s added", adds, pluralTag(adds))
	default:
		return fmt.Sprintf("-%d %s removed", removes, pluralTag(removes))
	}
}

func pluralTag(n int) string {
	if n == 1 {
		return "tag"
	}
	return "tags"
}
