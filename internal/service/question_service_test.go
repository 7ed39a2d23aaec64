package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/openqb/qbank-backend/internal/config"
	"github.com/openqb/qbank-backend/internal/model"
	"github.com/openqb/qbank-backend/internal/qbank"
	"github.com/openqb/qbank-backend/internal/repository"
)

// fakeStore is an in-memory QuestionStore for service tests.
type fakeStore struct {
	questions map[int64]model.Question
}

func newFakeStore(questions ...model.Question) *fakeStore {
	s := &fakeStore{questions: make(map[int64]model.Question)}
	for _, q := range questions {
		s.questions[q.ID] = q
	}
	return s
}

func (s *fakeStore) List(ctx context.Context) ([]model.Question, error) {
	out := make([]model.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, id int64) (*model.Question, error) {
	q, ok := s.questions[id]
	if !ok {
		return nil, repository.ErrQuestionNotFound
	}
	clone := q.Clone()
	return &clone, nil
}

func (s *fakeStore) NextID(ctx context.Context) (int64, error) {
	var max int64
	for id := range s.questions {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (s *fakeStore) Create(ctx context.Context, q *model.Question) error {
	s.questions[q.ID] = q.Clone()
	return nil
}

func (s *fakeStore) Update(ctx context.Context, q *model.Question) error {
	if _, ok := s.questions[q.ID]; !ok {
		return repository.ErrQuestionNotFound
	}
	s.questions[q.ID] = q.Clone()
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, id int64) error {
	if _, ok := s.questions[id]; !ok {
		return repository.ErrQuestionNotFound
	}
	delete(s.questions, id)
	return nil
}

func (s *fakeStore) UpdateBatch(ctx context.Context, questions []model.Question) error {
	for _, q := range questions {
		if _, ok := s.questions[q.ID]; !ok {
			return repository.ErrQuestionNotFound
		}
	}
	for _, q := range questions {
		s.questions[q.ID] = q.Clone()
	}
	return nil
}

func (s *fakeStore) InsertBatch(ctx context.Context, questions []model.Question) error {
	for _, q := range questions {
		s.questions[q.ID] = q.Clone()
	}
	return nil
}

var testTime = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestService(store *fakeStore) *QuestionService {
	cfg := &config.Config{DefaultPageSize: 10, MaxPageSize: 100}
	svc := NewQuestionService(cfg, store, nil)
	svc.now = func() time.Time { return testTime }
	return svc
}

func seedQuestion(id int64, title string, status model.QuestionStatus, tags ...string) model.Question {
	return model.Question{
		ID:      id,
		Title:   title,
		Type:    model.QuestionTypeEssay,
		Status:  status,
		Version: "v1",
		Tags:    tags,
	}
}

func TestCreateAssignsDefaults(t *testing.T) {
	store := newFakeStore(seedQuestion(1, "existing", model.StatusReady))
	svc := newTestService(store)

	req := &model.CreateQuestionRequest{
		Title:        "New question",
		QuestionText: "Body",
		Type:         "multichoice",
		Tags:         []string{"Algebra", " algebra ", "HARD"},
		Choices: []model.ChoicePayload{
			{Text: "Right", Grade: 100, IsCorrect: true},
			{Text: "Wrong", Grade: 0},
		},
	}

	q, err := svc.Create(context.Background(), req, model.Attribution{Name: "Alice", Role: "editor"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if q.ID != 2 {
		t.Errorf("ID = %d, want 2", q.ID)
	}
	if q.Version != model.InitialVersion {
		t.Errorf("Version = %s, want %s", q.Version, model.InitialVersion)
	}
	if q.Status != model.StatusDraft {
		t.Errorf("Status = %s, want draft", q.Status)
	}
	wantTags := []string{"algebra", "hard"}
	if len(q.Tags) != len(wantTags) || q.Tags[0] != "algebra" || q.Tags[1] != "hard" {
		t.Errorf("Tags = %v, want %v", q.Tags, wantTags)
	}
	if len(q.History) != 1 || q.History[0].Changes != "Created" || q.History[0].Author != "Alice" {
		t.Errorf("History = %+v", q.History)
	}
	if _, ok := store.questions[2]; !ok {
		t.Error("question not persisted")
	}
}

func TestCreateRejectsAllZeroMultichoice(t *testing.T) {
	svc := newTestService(newFakeStore())

	req := &model.CreateQuestionRequest{
		Title:        "Bad",
		QuestionText: "Body",
		Type:         "multichoice",
		Tags:         []string{"x"},
		Choices: []model.ChoicePayload{
			{Text: "A", Grade: 0},
			{Text: "B", Grade: 0},
		},
	}

	if _, err := svc.Create(context.Background(), req, model.Attribution{Name: "Alice"}); !errors.Is(err, model.ErrNoPositiveChoice) {
		t.Fatalf("err = %v, want ErrNoPositiveChoice", err)
	}
}

func TestUpdateBumpsVersionAndHistory(t *testing.T) {
	store := newFakeStore(seedQuestion(1, "old title", model.StatusDraft, "math"))
	svc := newTestService(store)

	req := &model.UpdateQuestionRequest{
		Title:        "new title",
		QuestionText: "Body",
		Type:         "essay",
		Tags:         []string{"math"},
	}

	q, err := svc.Update(context.Background(), 1, req, "Bob")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if q.Title != "new title" {
		t.Errorf("Title = %s", q.Title)
	}
	if q.Version != "v2" {
		t.Errorf("Version = %s, want v2", q.Version)
	}
	if len(q.History) != 1 || q.History[0].Changes != "Edited" {
		t.Errorf("History = %+v", q.History)
	}
	if store.questions[1].Title != "new title" {
		t.Error("update not persisted")
	}
}

func TestUpdateMissingQuestion(t *testing.T) {
	svc := newTestService(newFakeStore())
	req := &model.UpdateQuestionRequest{Title: "t", QuestionText: "b", Type: "essay", Tags: []string{"x"}}

	if _, err := svc.Update(context.Background(), 9, req, "Bob"); !errors.Is(err, repository.ErrQuestionNotFound) {
		t.Fatalf("err = %v, want ErrQuestionNotFound", err)
	}
}

func TestChangeStatusRecordsTransition(t *testing.T) {
	store := newFakeStore(seedQuestion(1, "q", model.StatusDraft))
	svc := newTestService(store)

	q, err := svc.ChangeStatus(context.Background(), 1, model.StatusReady, "Bob")
	if err != nil {
		t.Fatalf("ChangeStatus: %v", err)
	}
	if q.Status != model.StatusReady {
		t.Errorf("Status = %s, want ready", q.Status)
	}
	if len(q.History) != 1 || q.History[0].Changes != "Status changed to ready" {
		t.Errorf("History = %+v", q.History)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	store := newFakeStore(
		seedQuestion(1, "alpha", model.StatusDraft),
		seedQuestion(2, "beta", model.StatusReady),
		seedQuestion(3, "alpha two", model.StatusDraft),
	)
	svc := newTestService(store)

	state := qbank.DefaultFilterState()
	state.Status = "draft"

	items, pagination, err := svc.List(context.Background(), state, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].ID != 1 || items[1].ID != 3 {
		t.Errorf("item ids = %d, %d", items[0].ID, items[1].ID)
	}
	if pagination.TotalItems != 2 || pagination.TotalPages != 1 {
		t.Errorf("pagination = %+v", pagination)
	}
}

func TestListClampsOutOfRangePage(t *testing.T) {
	store := newFakeStore(
		seedQuestion(1, "a", model.StatusDraft),
		seedQuestion(2, "b", model.StatusDraft),
		seedQuestion(3, "c", model.StatusDraft),
	)
	svc := newTestService(store)

	items, pagination, err := svc.List(context.Background(), qbank.DefaultFilterState(), 99, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if pagination.Page != 2 {
		t.Errorf("page = %d, want 2 (last)", pagination.Page)
	}
	if len(items) != 1 || items[0].ID != 3 {
		t.Errorf("items = %+v", items)
	}
}

func TestBulkEditValidation(t *testing.T) {
	svc := newTestService(newFakeStore(seedQuestion(1, "q", model.StatusDraft)))

	if _, err := svc.BulkEdit(context.Background(), nil, qbank.ChangeSet{Status: "ready"}, nil, "Bob"); !errors.Is(err, ErrEmptySelection) {
		t.Errorf("empty ids err = %v, want ErrEmptySelection", err)
	}
	if _, err := svc.BulkEdit(context.Background(), []int64{1}, qbank.ChangeSet{}, nil, "Bob"); !errors.Is(err, ErrNothingToApply) {
		t.Errorf("no-op err = %v, want ErrNothingToApply", err)
	}
	if _, err := svc.BulkEdit(context.Background(), []int64{7}, qbank.ChangeSet{Status: "ready"}, nil, "Bob"); !errors.Is(err, repository.ErrQuestionNotFound) {
		t.Errorf("missing id err = %v, want ErrQuestionNotFound", err)
	}
}

func TestBulkEditAppliesAndPersists(t *testing.T) {
	store := newFakeStore(
		seedQuestion(1, "a", model.StatusDraft, "old"),
		seedQuestion(2, "b", model.StatusDraft, "old"),
		seedQuestion(3, "c", model.StatusDraft, "old"),
	)
	svc := newTestService(store)

	cs := qbank.ChangeSet{
		Status: "ready",
		Tags:   qbank.TagChanges{Add: []string{"new"}},
	}
	newTitle := "b renamed"
	patches := map[int64]qbank.QuestionPatch{
		2: {Title: &newTitle},
	}

	result, err := svc.BulkEdit(context.Background(), []int64{1, 2}, cs, patches, "Bob")
	if err != nil {
		t.Fatalf("BulkEdit: %v", err)
	}
	if len(result.Updated) != 2 {
		t.Fatalf("updated = %d, want 2", len(result.Updated))
	}
	if len(result.Summary) == 0 {
		t.Error("summary empty")
	}

	for _, id := range []int64{1, 2} {
		got := store.questions[id]
		if got.Status != model.StatusReady {
			t.Errorf("question %d status = %s, want ready", id, got.Status)
		}
		if got.Version != "v2" {
			t.Errorf("question %d version = %s, want v2", id, got.Version)
		}
		if len(got.Tags) != 2 || got.Tags[1] != "new" {
			t.Errorf("question %d tags = %v", id, got.Tags)
		}
	}
	if store.questions[2].Title != "b renamed" {
		t.Errorf("override not applied: %s", store.questions[2].Title)
	}
	// Unselected question untouched.
	if store.questions[3].Status != model.StatusDraft || store.questions[3].Version != "v1" {
		t.Errorf("question 3 modified: %+v", store.questions[3])
	}
}

const serviceQuizXML = `<?xml version="1.0"?>
<quiz>
  <question type="multichoice">
    <name><text>Imported one</text></name>
    <questiontext><text>Body one</text></questiontext>
    <answer fraction="100"><text>Yes</text></answer>
    <answer fraction="0"><text>No</text></answer>
  </question>
  <question type="truefalse">
    <name><text>Imported two</text></name>
    <questiontext><text>Body two</text></questiontext>
    <answer fraction="100"><text>true</text></answer>
    <answer fraction="0"><text>false</text></answer>
  </question>
</quiz>`

func TestImportXMLInsertsAndDedups(t *testing.T) {
	store := newFakeStore(seedQuestion(1, "existing", model.StatusReady))
	svc := newTestService(store)

	result, err := svc.ImportXML(context.Background(), []byte(serviceQuizXML))
	if err != nil {
		t.Fatalf("ImportXML: %v", err)
	}
	if len(result.NewQuestions) != 2 || result.Skipped != 0 {
		t.Fatalf("imported %d skipped %d, want 2/0", len(result.NewQuestions), result.Skipped)
	}
	if result.NewQuestions[0].ID != 2 || result.NewQuestions[1].ID != 3 {
		t.Errorf("ids = %d, %d, want 2, 3", result.NewQuestions[0].ID, result.NewQuestions[1].ID)
	}
	if len(store.questions) != 3 {
		t.Errorf("store has %d questions, want 3", len(store.questions))
	}

	// Re-importing the same document skips everything.
	again, err := svc.ImportXML(context.Background(), []byte(serviceQuizXML))
	if err != nil {
		t.Fatalf("ImportXML again: %v", err)
	}
	if len(again.NewQuestions) != 0 || again.Skipped != 2 {
		t.Errorf("imported %d skipped %d, want 0/2", len(again.NewQuestions), again.Skipped)
	}
}

func TestTagOptionsAndUsage(t *testing.T) {
	store := newFakeStore(
		seedQuestion(1, "a", model.StatusDraft, "math", "Easy"),
		seedQuestion(2, "b", model.StatusDraft, "math"),
	)
	svc := newTestService(store)

	options, err := svc.TagOptions(context.Background())
	if err != nil {
		t.Fatalf("TagOptions: %v", err)
	}
	want := []string{"easy", "math"}
	if len(options) != 2 || options[0] != want[0] || options[1] != want[1] {
		t.Errorf("options = %v, want %v", options, want)
	}

	usage, err := svc.TagUsage(context.Background())
	if err != nil {
		t.Fatalf("TagUsage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage = %+v", usage)
	}
	if usage[0].Tag != "math" || usage[0].Count != 2 || usage[0].Percentage != 100 {
		t.Errorf("usage[0] = %+v", usage[0])
	}
}
