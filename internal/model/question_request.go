package model

import "errors"

// ErrNoPositiveChoice is returned when a multichoice question has no choice
// worth any credit.
var ErrNoPositiveChoice = errors.New("at least one choice must have a positive grade")

// ChoicePayload is the wire form of a multichoice option.
type ChoicePayload struct {
	Text      string `json:"text" binding:"required,min=1"`
	Grade     int    `json:"grade" binding:"gte=-100,lte=100"`
	Feedback  string `json:"feedback" binding:"omitempty"`
	IsCorrect bool   `json:"is_correct"`
}

// CreateQuestionRequest is the payload for creating a question.
type CreateQuestionRequest struct {
	Title            string          `json:"title" binding:"required,min=1,max=255"`
	QuestionText     string          `json:"question_text" binding:"required,min=1"`
	Type             string          `json:"type" binding:"required,oneof=multichoice truefalse essay matching shortanswer ddimageortext gapselect ddmarker"`
	Category         string          `json:"category" binding:"omitempty,max=120"`
	Tags             []string        `json:"tags" binding:"required,min=1,dive,min=1"`
	Choices          []ChoicePayload `json:"choices" binding:"omitempty,dive"`
	CorrectAnswer    *bool           `json:"correct_answer" binding:"omitempty"`
	FeedbackTrue     string          `json:"feedback_true" binding:"omitempty"`
	FeedbackFalse    string          `json:"feedback_false" binding:"omitempty"`
	GeneralFeedback  string          `json:"general_feedback" binding:"omitempty"`
	DefaultMark      float64         `json:"default_mark" binding:"omitempty,gte=0"`
	PenaltyFactor    float64         `json:"penalty_factor" binding:"omitempty,gte=0"`
	ShowInstructions bool            `json:"show_instructions"`
}

// UpdateQuestionRequest is the payload for editing a question. Same field
// rules as create; the version/history bookkeeping happens server-side.
type UpdateQuestionRequest = CreateQuestionRequest

// ChangeStatusRequest moves a question to a new workflow status. Any status
// is settable; there are no enforced transition rules.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=draft ready hidden archived published"`
}

// Choices converts the wire choices to the canonical type.
func (r *CreateQuestionRequest) ChoiceList() []Choice {
	if len(r.Choices) == 0 {
		return nil
	}
	out := make([]Choice, len(r.Choices))
	for i, c := range r.Choices {
		out[i] = Choice{Text: c.Text, Grade: c.Grade, Feedback: c.Feedback, IsCorrect: c.IsCorrect}
	}
	return out
}

// ValidateChoices applies the multichoice grading rule: at least one choice
// must carry a positive grade. Other grading conventions (exactly one 100%
// choice for single-answer questions) are advisory and not enforced.
func (r *CreateQuestionRequest) ValidateChoices() error {
	if QuestionType(r.Type) != QuestionTypeMultichoice {
		return nil
	}
	for _, c := range r.Choices {
		if c.Grade > 0 {
			return nil
		}
	}
	return ErrNoPositiveChoice
}
