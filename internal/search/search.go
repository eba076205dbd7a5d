// Package search provides fuzzy quick-search over bookmark names, for
// the "type a few letters and open" flow. The catalog's own substring
// query engine is separate and exact; this is a ranking convenience for
// the CLI.
package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/sobjornstad/rabbitmark/internal/model"
)

// Result represents a fuzzy search match.
type Result struct {
	Bookmark       *model.Bookmark
	MatchedIndexes []int
	Score          int
}

// bookmarkNames implements fuzzy.Source over a bookmark slice.
type bookmarkNames []*model.Bookmark

func (bn bookmarkNames) String(i int) string {
	return bn[i].Name
}

func (bn bookmarkNames) Len() int {
	return len(bn)
}

// FuzzySearchBookmarks searches the bookmarks by name using fuzzy
// matching. Returns results sorted by match score (best first).
func FuzzySearchBookmarks(marks []model.Bookmark, query string) []Result {
	if query == "" {
		return nil
	}

	names := make(bookmarkNames, len(marks))
	for i := range marks {
		names[i] = &marks[i]
	}

	matches := fuzzy.FindFrom(query, names)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Bookmark:       names[m.Index],
			MatchedIndexes: m.MatchedIndexes,
			Score:          m.Score,
		}
	}

	return results
}
