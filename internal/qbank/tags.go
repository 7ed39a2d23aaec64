// Package qbank holds the pure question-bank transformations: tag
// normalization, list filtering, pagination, and bulk-edit merging. Every
// function here is a synchronous function of its inputs with no I/O, so the
// service layer can compose them freely and the rules stay testable in
// isolation.
package qbank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/openqb/qbank-backend/internal/model"
)

// Fixed keyword lists for bucketing tags in the filter menus. Membership here
// only affects grouping; it carries no other semantics.
var (
	difficultyKeywords = []string{
		"easy", "medium", "hard", "beginner", "intermediate", "advanced", "basic", "expert",
	}
	subjectKeywords = []string{
		"math", "mathematics", "algebra", "geometry", "calculus",
		"science", "physics", "chemistry", "biology",
		"history", "geography", "english", "literature", "economics",
	}
	technologyKeywords = []string{
		"javascript", "typescript", "python", "java", "golang", "sql",
		"react", "html", "css", "docker", "linux", "networking",
	}
	assessmentKeywords = []string{
		"quiz", "exam", "midterm", "final", "practice", "homework", "assignment", "mock",
	}
	statusKeywords = []string{
		"draft", "ready", "review", "approved", "published", "archived",
	}
)

// NormalizeTag converts one raw tag into its canonical form: trimmed and
// lower-cased. Object inputs (decoded JSON maps) are resolved through the
// name, text, value, label keys in that order; anything else is
// string-coerced wholesale.
func NormalizeTag(raw any) string {
	switch v := raw.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case map[string]any:
		for _, key := range []string{"name", "text", "value", "label"} {
			if val, ok := v[key]; ok && val != nil {
				if s := strings.ToLower(strings.TrimSpace(fmt.Sprint(val))); s != "" {
					return s
				}
			}
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	case nil:
		return ""
	default:
		return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	}
}

// NormalizeTags normalizes a heterogeneous tag list and drops duplicates
// (case-insensitively) and empties. Output order is first-seen order.
func NormalizeTags(raws []any) []string {
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, raw := range raws {
		tag := NormalizeTag(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NormalizeTagStrings is NormalizeTags for inputs already typed as strings.
func NormalizeTagStrings(raws []string) []string {
	anys := make([]any, len(raws))
	for i, r := range raws {
		anys[i] = r
	}
	return NormalizeTags(anys)
}

// TagOptions collects every distinct tag across the given questions,
// normalized and sorted alphabetically, for building filter option lists.
func TagOptions(questions []model.Question) []string {
	seen := make(map[string]struct{})
	for _, q := range questions {
		for _, raw := range q.Tags {
			if tag := NormalizeTag(raw); tag != "" {
				seen[tag] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// TagCategories groups tags into the fixed filter-menu buckets.
type TagCategories struct {
	Difficulty      []string `json:"difficulty"`
	Subjects        []string `json:"subjects"`
	Technologies    []string `json:"technologies"`
	AssessmentTypes []string `json:"assessment_types"`
	Status          []string `json:"status"`
	Other           []string `json:"other"`
}

// CategorizeTags buckets each tag by keyword-list membership. A tag matching
// none of the lists lands in Other. Input order is preserved within buckets.
func CategorizeTags(tags []string) TagCategories {
	var cats TagCategories
	for _, raw := range tags {
		tag := NormalizeTag(raw)
		if tag == "" {
			continue
		}
		switch {
		case containsKeyword(difficultyKeywords, tag):
			cats.Difficulty = append(cats.Difficulty, tag)
		case containsKeyword(subjectKeywords, tag):
			cats.Subjects = append(cats.Subjects, tag)
		case containsKeyword(technologyKeywords, tag):
			cats.Technologies = append(cats.Technologies, tag)
		case containsKeyword(assessmentKeywords, tag):
			cats.AssessmentTypes = append(cats.AssessmentTypes, tag)
		case containsKeyword(statusKeywords, tag):
			cats.Status = append(cats.Status, tag)
		default:
			cats.Other = append(cats.Other, tag)
		}
	}
	return cats
}

func containsKeyword(list []string, tag string) bool {
	for _, k := range list {
		if k == tag {
			return true
		}
	}
	return false
}

// TagUsage reports how many of the counted questions carry a tag.
type TagUsage struct {
	Tag        string `json:"tag"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// CountTagUsage tallies tag occurrences across the given questions. A tag is
// counted at most once per question, even if the raw data repeats it.
// Percentage is count/total rounded to the nearest integer. Results are
// sorted by count descending, ties broken alphabetically ascending.
//
// The bulk-edit UI uses this to offer removal only of tags somebody actually
// has.
func CountTagUsage(questions []model.Question) []TagUsage {
	total := len(questions)
	counts := make(map[string]int)
	for _, q := range questions {
		perQuestion := make(map[string]struct{}, len(q.Tags))
		for _, raw := range q.Tags {
			tag := NormalizeTag(raw)
			if tag == "" {
				continue
			}
			if _, dup := perQuestion[tag]; dup {
				continue
			}
			perQuestion[tag] = struct{}{}
			counts[tag]++
		}
	}

	out := make([]TagUsage, 0, len(counts))
	for tag, count := range counts {
		out = append(out, TagUsage{
			Tag:        tag,
			Count:      count,
			Percentage: int(math.Round(float64(count) / float64(total) * 100)),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}
