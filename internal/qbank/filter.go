package qbank

import (
	"strings"

	"github.com/openqb/qbank-backend/internal/model"
)

// FilterAll is the sentinel meaning "no restriction" on a filter dimension.
const FilterAll = "All"

// FilterState is the full set of list-view filters. Each select dimension
// defaults to FilterAll; an empty search query means no text restriction.
type FilterState struct {
	SearchQuery string
	Category    string
	Status      string
	Type        string
	TagFilter   string
}

// DefaultFilterState returns the unrestricted state.
func DefaultFilterState() FilterState {
	return FilterState{
		Category:  FilterAll,
		Status:    FilterAll,
		Type:      FilterAll,
		TagFilter: FilterAll,
	}
}

// Filter returns the questions passing every active dimension of state.
// The filter is stable: output preserves the relative input order, and with
// the default state the output equals the input.
func Filter(questions []model.Question, state FilterState) []model.Question {
	search := strings.ToLower(strings.TrimSpace(state.SearchQuery))
	tagFilter := ""
	if state.TagFilter != "" && state.TagFilter != FilterAll {
		tagFilter = NormalizeTag(state.TagFilter)
	}

	out := make([]model.Question, 0, len(questions))
	for _, q := range questions {
		if search != "" &&
			!strings.Contains(strings.ToLower(q.Title), search) &&
			!strings.Contains(strings.ToLower(q.QuestionText), search) {
			continue
		}
		if state.Category != "" && state.Category != FilterAll && q.Category != state.Category {
			continue
		}
		if state.Status != "" && state.Status != FilterAll && string(q.Status) != state.Status {
			continue
		}
		if state.Type != "" && state.Type != FilterAll && string(q.Type) != state.Type {
			continue
		}
		if tagFilter != "" && !hasTag(q.Tags, tagFilter) {
			continue
		}
		out = append(out, q)
	}
	return out
}

// hasTag reports whether the normalized form of any tag equals want.
// A nil tag slice is simply a question with no tags.
func hasTag(tags []string, want string) bool {
	for _, raw := range tags {
		if NormalizeTag(raw) == want {
			return true
		}
	}
	return false
}
