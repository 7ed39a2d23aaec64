package qbank

import (
	"reflect"
	"testing"
	"time"

	"github.com/openqb/qbank-backend/internal/model"
)

var bulkNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func baseQuestion() model.Question {
	return model.Question{
		ID:           1,
		Title:        "Stacks",
		QuestionText: "What is LIFO?",
		Type:         model.QuestionTypeMultichoice,
		Status:       model.StatusDraft,
		Version:      "v2",
		DefaultMark:  1,
		Tags:         []string{"old"},
		Choices: []model.Choice{
			{Text: "Last in, first out", Grade: 100, IsCorrect: true},
			{Text: "First in, first out", Grade: 0},
		},
		History: []model.HistoryEntry{{Version: "v2", Author: "alice", Changes: "Edited"}},
	}
}

// An all-sentinel change set must leave everything alone — including version
// and history.
func TestApplyGlobalChangesNoOp(t *testing.T) {
	in := []model.Question{baseQuestion()}
	out := ApplyGlobalChanges(in, ChangeSet{}, "bob", bulkNow)
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("no-op change set mutated questions:\n got %+v\nwant %+v", out[0], in[0])
	}
}

func TestApplyGlobalChangesScalars(t *testing.T) {
	mark := 2.5
	cs := ChangeSet{Status: "ready", DefaultMark: &mark, Category: "CS"}

	out := ApplyGlobalChanges([]model.Question{baseQuestion()}, cs, "bob", bulkNow)
	got := out[0]

	if got.Status != model.StatusReady {
		t.Errorf("status = %s", got.Status)
	}
	if got.DefaultMark != 2.5 {
		t.Errorf("default mark = %v", got.DefaultMark)
	}
	if got.Category != "CS" {
		t.Errorf("category = %s", got.Category)
	}
	// Untouched fields keep their values.
	if got.Title != "Stacks" || got.QuestionText != "What is LIFO?" {
		t.Errorf("unrelated fields changed: %+v", got)
	}
}

func TestApplyGlobalChangesVersionAndHistory(t *testing.T) {
	cs := ChangeSet{Status: "ready"}
	out := ApplyGlobalChanges([]model.Question{baseQuestion()}, cs, "bob", bulkNow)
	got := out[0]

	if got.Version != "v3" {
		t.Errorf("version = %s, want v3", got.Version)
	}
	if len(got.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(got.History))
	}
	last := got.History[1]
	if last.Version != "v3" || last.Author != "bob" || last.Changes != BulkEditNote || !last.Date.Equal(bulkNow) {
		t.Errorf("history entry = %+v", last)
	}
	if got.ModifiedBy.Name != "bob" {
		t.Errorf("modified by = %s", got.ModifiedBy.Name)
	}
}

func TestApplyGlobalChangesModifiedByOverridesAuthor(t *testing.T) {
	cs := ChangeSet{Status: "ready", ModifiedBy: "carol"}
	out := ApplyGlobalChanges([]model.Question{baseQuestion()}, cs, "bob", bulkNow)
	if out[0].History[1].Author != "carol" {
		t.Fatalf("author = %s, want carol", out[0].History[1].Author)
	}
}

func TestApplyGlobalChangesExplicitVersion(t *testing.T) {
	cs := ChangeSet{Status: "ready", Version: "v9"}
	out := ApplyGlobalChanges([]model.Question{baseQuestion()}, cs, "bob", bulkNow)
	if out[0].Version != "v9" {
		t.Fatalf("version = %s, want explicit v9", out[0].Version)
	}
}

func TestApplyGlobalChangesTagAdd(t *testing.T) {
	cs := ChangeSet{Tags: TagChanges{Add: []string{"new"}}}
	out := ApplyGlobalChanges([]model.Question{baseQuestion()}, cs, "bob", bulkNow)
	want := []string{"old", "new"} // existing first, then added
	if !reflect.DeepEqual(out[0].Tags, want) {
		t.Fatalf("tags = %v, want %v", out[0].Tags, want)
	}
}

// A tag in both add and remove ends up absent, whether or not the question
// already had it.
func TestApplyGlobalChangesTagAddRemoveConflict(t *testing.T) {
	cs := ChangeSet{Tags: TagChanges{Add: []string{"x"}, Remove: []string{"x"}}}

	withX := baseQuestion()
	withX.Tags = []string{"x", "old"}
	withoutX := baseQuestion()
	withoutX.ID = 2

	out := ApplyGlobalChanges([]model.Question{withX, withoutX}, cs, "bob", bulkNow)
	for _, q := range out {
		for _, tag := range q.Tags {
			if tag == "x" {
				t.Fatalf("question %d still tagged x: %v", q.ID, q.Tags)
			}
		}
	}
}

func TestApplyGlobalChangesAnswerFeedback(t *testing.T) {
	cs := ChangeSet{FeedbackCorrect: "well done", FeedbackIncorrect: "try again"}

	tf := baseQuestion()
	tf.ID = 2
	tf.Type = model.QuestionTypeTrueFalse
	tf.Choices = nil

	out := ApplyGlobalChanges([]model.Question{baseQuestion(), tf}, cs, "bob", bulkNow)

	mc := out[0]
	if mc.Choices[0].Feedback != "well done" || mc.Choices[1].Feedback != "try again" {
		t.Errorf("multichoice feedback = %+v", mc.Choices)
	}
	if out[1].FeedbackTrue != "well done" || out[1].FeedbackFalse != "try again" {
		t.Errorf("truefalse feedback = %q / %q", out[1].FeedbackTrue, out[1].FeedbackFalse)
	}
}

func TestApplyGlobalChangesDoesNotMutateInput(t *testing.T) {
	in := []model.Question{baseQuestion()}
	snapshot := in[0].Clone()

	cs := ChangeSet{Status: "ready", Tags: TagChanges{Add: []string{"new"}}}
	ApplyGlobalChanges(in, cs, "bob", bulkNow)

	if !reflect.DeepEqual(in[0], snapshot) {
		t.Fatalf("input mutated:\n got %+v\nwant %+v", in[0], snapshot)
	}
}

func TestApplyIndividualChanges(t *testing.T) {
	status := model.StatusHidden
	title := "Renamed"
	patches := map[int64]QuestionPatch{
		1: {Status: &status, Title: &title, Tags: []string{"Solo", "solo"}},
	}

	other := baseQuestion()
	other.ID = 2

	out := ApplyIndividualChanges([]model.Question{baseQuestion(), other}, patches)

	if out[0].Status != model.StatusHidden || out[0].Title != "Renamed" {
		t.Errorf("patched question = %+v", out[0])
	}
	if !reflect.DeepEqual(out[0].Tags, []string{"solo"}) {
		t.Errorf("patched tags = %v", out[0].Tags)
	}
	if !reflect.DeepEqual(out[1], other) {
		t.Errorf("unpatched question changed: %+v", out[1])
	}
}

// Individual overrides are a later pass: they win over global changes.
func TestIndividualWinsOverGlobal(t *testing.T) {
	cs := ChangeSet{Status: "ready"}
	status := model.StatusArchived
	patches := map[int64]QuestionPatch{1: {Status: &status}}

	merged := ApplyGlobalChanges([]model.Question{baseQuestion()}, cs, "bob", bulkNow)
	final := ApplyIndividualChanges(merged, patches)

	if final[0].Status != model.StatusArchived {
		t.Fatalf("status = %s, want archived", final[0].Status)
	}
}

func TestSummarize(t *testing.T) {
	mark := 2.0
	cs := ChangeSet{
		Status:      "ready",
		DefaultMark: &mark,
		Tags:        TagChanges{Add: []string{"a", "b"}, Remove: []string{"c"}},
	}
	got := Summarize(cs)
	want := []string{
		"Status → ready",
		"Default mark → 2",
		"+2 tags added, -1 tag removed",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Summarize = %v, want %v", got, want)
	}
}

func TestSummarizeNoOp(t *testing.T) {
	if got := Summarize(ChangeSet{}); len(got) != 0 {
		t.Fatalf("no-op summary = %v", got)
	}
}
