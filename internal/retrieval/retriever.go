// Package retrieval adapts an external curriculum search capability into
// the ranked excerpt list the prompt assembler grounds replies in.
package retrieval

import (
	"context"
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxTerms caps how many query terms a message contributes.
	MaxTerms = 10

	// MinTermLength drops short stop-word-ish terms.
	MinTermLength = 4
)

// Item is one retrieved curriculum excerpt. Only published content is ever
// returned by a conforming Searcher.
type Item struct {
	LessonID    string   `json:"lesson_id"`
	Title       string   `json:"title"`
	CourseTitle string   `json:"course_title"`
	Excerpt     string   `json:"excerpt"`
	Objectives  []string `json:"objectives,omitempty"`
}

// Searcher is the external search capability. Terms combine as an OR match
// over published content; implementations return candidates without ranking.
type Searcher interface {
	Search(ctx context.Context, terms []string, limit int) ([]Item, error)
}

// Retriever wraps a Searcher with query construction and ranking.
type Retriever struct {
	searcher Searcher
}

// New creates a retriever over the given search capability.
func New(searcher Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// Search extracts terms from the message, queries the backend, and returns
// up to limit items ranked by match quality. Zero results yield an empty
// slice, never an error.
func (r *Retriever) Search(ctx context.Context, message string, limit int) ([]Item, error) {
	terms := ExtractTerms(message)
	if len(terms) == 0 {
		return nil, nil
	}

	// Over-fetch so ranking has candidates to reorder.
	candidates, err := r.searcher.Search(ctx, terms, limit*3)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ranked := rank(candidates, terms)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// ExtractTerms pulls case-folded, punctuation-stripped terms longer than
// three characters from a message, capped at MaxTerms, preserving order of
// first appearance.
func ExtractTerms(message string) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(fields))
	var terms []string
	for _, f := range fields {
		if len(f) < MinTermLength {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
		if len(terms) == MaxTerms {
			break
		}
	}
	return terms
}

// rank orders candidates by where terms hit: title matches outrank
// learning-objective matches, which outrank body matches. Stable, so the
// backend's order breaks remaining ties.
func rank(items []Item, terms []string) []Item {
	scores := make([]int, len(items))
	for i, item := range items {
		scores[i] = matchScore(item, terms)
	}

	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})

	out := make([]Item, len(items))
	for i, j := range idx {
		out[i] = items[j]
	}
	return out
}

func matchScore(item Item, terms []string) int {
	title := strings.ToLower(item.Title)
	body := strings.ToLower(item.Excerpt)

	score := 0
	for _, term := range terms {
		switch {
		case strings.Contains(title, term):
			score += 4
		case objectivesContain(item.Objectives, term):
			score += 2
		case strings.Contains(body, term):
			score++
		}
	}
	return score
}

func objectivesContain(objectives []string, term string) bool {
	for _, o := range objectives {
		if strings.Contains(strings.ToLower(o), term) {
			return true
		}
	}
	return false
}
