// Package moodle parses Moodle quiz-export XML into canonical questions.
//
// Deduplication is checked against the pre-import question set only;
// duplicate (title, question text) pairs within one document are all
// imported. That mirrors the console's historical behavior and is pinned by
// tests until product decides otherwise.
package moodle

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/openqb/qbank-backend/internal/model"
	"github.com/openqb/qbank-backend/internal/qbank"
)

// ImportAuthor is the attribution recorded on every imported question.
const ImportAuthor = "Imported"

// importNote is the history entry text for imported questions.
const importNote = "Imported from XML"

// ImportError describes structurally malformed import input. An ImportError
// aborts the whole import; no questions from the document are kept.
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return "import: " + e.Reason
}

// Result is the outcome of one import run.
type Result struct {
	NewQuestions []model.Question `json:"new_questions"`
	Skipped      int              `json:"skipped"`
}

// ─── Moodle XML document shapes ─────────────────────────────────────────────

type quizXML struct {
	XMLName   xml.Name      `xml:"quiz"`
	Questions []questionXML `xml:"question"`
}

type questionXML struct {
	Type            string      `xml:"type,attr"`
	Name            richText    `xml:"name"`
	QuestionText    richText    `xml:"questiontext"`
	GeneralFeedback richText    `xml:"generalfeedback"`
	DefaultGrade    float64     `xml:"defaultgrade"`
	Penalty         float64     `xml:"penalty"`
	Answers         []answerXML `xml:"answer"`
	Tags            []richText  `xml:"tags>tag"`
}

// richText is Moodle's nested <x><text>…</text></x> wrapper.
type richText struct {
	Text string `xml:"text"`
}

type answerXML struct {
	Fraction string   `xml:"fraction,attr"`
	Text     string   `xml:"text"`
	Feedback richText `xml:"feedback"`
}

// Moodle type attribute → canonical type. Unlisted types fall back to
// multichoice.
var typeMap = map[string]model.QuestionType{
	"multichoice":   model.QuestionTypeMultichoice,
	"truefalse":     model.QuestionTypeTrueFalse,
	"essay":         model.QuestionTypeEssay,
	"matching":      model.QuestionTypeMatching,
	"shortanswer":   model.QuestionTypeShortAnswer,
	"ddimageortext": model.QuestionTypeDDImageOrText,
	"gapselect":     model.QuestionTypeGapSelect,
	"ddmarker":      model.QuestionTypeDDMarker,
}

// Import parses a Moodle quiz XML document and returns the questions it adds
// on top of existing. Parsing rules:
//
//   - the root element must be <quiz> with at least one <question> child;
//   - a missing question name falls back to "Imported Question <n>" (1-based
//     position in the document), missing text to "No question text provided";
//   - an answer is correct iff its fraction attribute is exactly "100";
//   - a question whose (title, question text) pair already exists in the
//     pre-import set is skipped and counted, not imported;
//   - imported questions get IDs max(existing)+1, +2, … in document order
//     (skipped questions do not consume IDs), status draft, version v1, and a
//     single "Imported from XML" history entry.
//
// On any structural error the returned error is an *ImportError and no
// questions are returned — callers must not partially apply a bad document.
func Import(data []byte, existing []model.Question, now time.Time) (Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Result{}, &ImportError{Reason: "empty document"}
	}

	var doc quizXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Result{}, &ImportError{Reason: fmt.Sprintf("missing <quiz> root element (%v)", err)}
	}
	if len(doc.Questions) == 0 {
		return Result{}, &ImportError{Reason: "no <question> elements under <quiz>"}
	}

	seen := make(map[string]struct{}, len(existing))
	nextID := int64(0)
	for _, q := range existing {
		seen[dedupKey(q.Title, q.QuestionText)] = struct{}{}
		if q.ID > nextID {
			nextID = q.ID
		}
	}
	nextID++

	var res Result
	for i, qx := range doc.Questions {
		title := strings.TrimSpace(qx.Name.Text)
		if title == "" {
			title = fmt.Sprintf("Imported Question %d", i+1)
		}
		text := strings.TrimSpace(qx.QuestionText.Text)
		if text == "" {
			text = "No question text provided"
		}

		// Dedup against the pre-import set only.
		if _, dup := seen[dedupKey(title, text)]; dup {
			res.Skipped++
			continue
		}

		qtype, ok := typeMap[qx.Type]
		if !ok {
			qtype = model.QuestionTypeMultichoice
		}

		q := model.Question{
			ID:              nextID,
			Title:           title,
			QuestionText:    text,
			Type:            qtype,
			Status:          model.StatusDraft,
			Version:         model.InitialVersion,
			DefaultMark:     qx.DefaultGrade,
			PenaltyFactor:   qx.Penalty,
			GeneralFeedback: strings.TrimSpace(qx.GeneralFeedback.Text),
			Tags:            importTags(qx.Tags),
			CreatedBy:       model.Attribution{Name: ImportAuthor, Date: now},
			ModifiedBy:      model.Attribution{Name: ImportAuthor, Date: now},
			History: []model.HistoryEntry{{
				Version: model.InitialVersion,
				Date:    now,
				Author:  ImportAuthor,
				Changes: importNote,
			}},
		}
		applyAnswers(&q, qx.Answers)

		res.NewQuestions = append(res.NewQuestions, q)
		nextID++
	}

	return res, nil
}

func dedupKey(title, text string) string {
	return title + "\x00" + text
}

func importTags(tags []richText) []string {
	if len(tags) == 0 {
		return []string{}
	}
	raw := make([]string, 0, len(tags))
	for _, t := range tags {
		raw = append(raw, t.Text)
	}
	return qbank.NormalizeTagStrings(raw)
}

// applyAnswers maps <answer> elements onto the question: choices for
// multichoice and friends, the boolean answer key for truefalse.
func applyAnswers(q *model.Question, answers []answerXML) {
	for _, a := range answers {
		text := strings.TrimSpace(a.Text)
		if text == "" {
			continue
		}
		correct := a.Fraction == "100"

		if q.Type == model.QuestionTypeTrueFalse {
			if correct {
				v := strings.EqualFold(text, "true")
				q.CorrectAnswer = &v
			}
			if strings.EqualFold(text, "true") {
				q.FeedbackTrue = strings.TrimSpace(a.Feedback.Text)
			} else {
				q.FeedbackFalse = strings.TrimSpace(a.Feedback.Text)
			}
			continue
		}

		grade := 0
		if f, err := strconv.ParseFloat(a.Fraction, 64); err == nil {
			grade = int(f)
		}
		q.Choices = append(q.Choices, model.Choice{
			Text:      text,
			Grade:     grade,
			Feedback:  strings.TrimSpace(a.Feedback.Text),
			IsCorrect: correct,
		})
	}
}
