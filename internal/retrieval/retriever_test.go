package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	items []Item
	err   error

	gotTerms []string
	gotLimit int
}

func (f *fakeSearcher) Search(ctx context.Context, terms []string, limit int) ([]Item, error) {
	f.gotTerms = terms
	f.gotLimit = limit
	return f.items, f.err
}

func TestExtractTerms(t *testing.T) {
	terms := ExtractTerms("I'm feeling Overwhelmed, really overwhelmed by DEADLINES at work!")

	// Short terms drop, case folds, punctuation strips, duplicates collapse.
	assert.Equal(t, []string{"feeling", "overwhelmed", "really", "deadlines", "work"}, terms)
}

func TestExtractTermsCapped(t *testing.T) {
	msg := "alpha bravo charlie delta echoes foxtrot golfing hotels indigo juliet kilos limas"
	terms := ExtractTerms(msg)
	assert.Len(t, terms, MaxTerms)
}

func TestSearchRanksTitleOverObjectiveOverBody(t *testing.T) {
	searcher := &fakeSearcher{items: []Item{
		{LessonID: "3", Title: "Sleep Hygiene", Excerpt: "managing stress through rest"},
		{LessonID: "2", Title: "Daily Routines", Objectives: []string{"reduce stress at work"}},
		{LessonID: "1", Title: "Managing Stress", Excerpt: "breathing techniques"},
	}}

	items, err := New(searcher).Search(context.Background(), "help with stress", 5)
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "1", items[0].LessonID) // title match
	assert.Equal(t, "2", items[1].LessonID) // objective match
	assert.Equal(t, "3", items[2].LessonID) // body match
}

func TestSearchEmptyOnNoResults(t *testing.T) {
	searcher := &fakeSearcher{}

	items, err := New(searcher).Search(context.Background(), "overwhelmed", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSearchSkipsBackendWhenNoUsableTerms(t *testing.T) {
	searcher := &fakeSearcher{items: []Item{{LessonID: "1"}}}

	items, err := New(searcher).Search(context.Background(), "ok so a it", 5)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Nil(t, searcher.gotTerms)
}

func TestSearchTruncatesToLimit(t *testing.T) {
	searcher := &fakeSearcher{items: []Item{
		{LessonID: "1", Title: "stress"},
		{LessonID: "2", Title: "stress"},
		{LessonID: "3", Title: "stress"},
	}}

	items, err := New(searcher).Search(context.Background(), "stress", 2)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 6, searcher.gotLimit)
}

func TestSearchPropagatesBackendError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index offline")}

	_, err := New(searcher).Search(context.Background(), "overwhelmed", 5)
	assert.Error(t, err)
}
