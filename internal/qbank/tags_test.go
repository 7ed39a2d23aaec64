package qbank

import (
	"reflect"
	"testing"

	"github.com/openqb/qbank-backend/internal/model"
)

func TestNormalizeTag(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"plain string", "Easy", "easy"},
		{"padded string", "  Data Structures  ", "data structures"},
		{"object name", map[string]any{"name": "Hard"}, "hard"},
		{"object text", map[string]any{"text": "SQL"}, "sql"},
		{"object value", map[string]any{"value": "Python"}, "python"},
		{"object label", map[string]any{"label": "Quiz"}, "quiz"},
		{"name wins over label", map[string]any{"label": "b", "name": "a"}, "a"},
		{"numeric value coerced", map[string]any{"value": 42}, "42"},
		{"nil", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTag(tc.in); got != tc.want {
				t.Errorf("NormalizeTag(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeTagsDedup(t *testing.T) {
	in := []any{"Easy", map[string]any{"name": "easy"}, "EASY ", "hard", ""}
	got := NormalizeTags(in)
	want := []string{"easy", "hard"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTags = %v, want %v", got, want)
	}
}

// Normalizing an already-normalized list must return the same set.
func TestNormalizeTagsIdempotent(t *testing.T) {
	in := []any{"Algebra", map[string]any{"text": "Geometry"}, "algebra"}
	first := NormalizeTags(in)
	second := NormalizeTagStrings(first)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalize not idempotent: %v then %v", first, second)
	}
}

func TestCategorizeTags(t *testing.T) {
	cats := CategorizeTags([]string{"Easy", "algebra", "golang", "final", "draft", "misc-topic"})

	if !reflect.DeepEqual(cats.Difficulty, []string{"easy"}) {
		t.Errorf("Difficulty = %v", cats.Difficulty)
	}
	if !reflect.DeepEqual(cats.Subjects, []string{"algebra"}) {
		t.Errorf("Subjects = %v", cats.Subjects)
	}
	if !reflect.DeepEqual(cats.Technologies, []string{"golang"}) {
		t.Errorf("Technologies = %v", cats.Technologies)
	}
	if !reflect.DeepEqual(cats.AssessmentTypes, []string{"final"}) {
		t.Errorf("AssessmentTypes = %v", cats.AssessmentTypes)
	}
	if !reflect.DeepEqual(cats.Status, []string{"draft"}) {
		t.Errorf("Status = %v", cats.Status)
	}
	if !reflect.DeepEqual(cats.Other, []string{"misc-topic"}) {
		t.Errorf("Other = %v", cats.Other)
	}
}

func TestTagOptionsSorted(t *testing.T) {
	questions := []model.Question{
		{Tags: []string{"zeta", "Easy"}},
		{Tags: []string{"alpha", "easy"}},
		{Tags: nil},
	}
	got := TagOptions(questions)
	want := []string{"alpha", "easy", "zeta"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TagOptions = %v, want %v", got, want)
	}
}

func TestCountTagUsage(t *testing.T) {
	questions := []model.Question{
		{Tags: []string{"x"}},
		{Tags: []string{"x", "y"}},
	}
	got := CountTagUsage(questions)
	want := []TagUsage{
		{Tag: "x", Count: 2, Percentage: 100},
		{Tag: "y", Count: 1, Percentage: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CountTagUsage = %v, want %v", got, want)
	}
}

func TestCountTagUsageTieBreakAndPerQuestionDedup(t *testing.T) {
	questions := []model.Question{
		{Tags: []string{"beta", "beta", "alpha"}}, // raw data may repeat a tag
		{Tags: []string{"alpha", "beta"}},
		{Tags: []string{"gamma"}},
	}
	got := CountTagUsage(questions)
	want := []TagUsage{
		{Tag: "alpha", Count: 2, Percentage: 67},
		{Tag: "beta", Count: 2, Percentage: 67},
		{Tag: "gamma", Count: 1, Percentage: 33},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CountTagUsage = %v, want %v", got, want)
	}
}
