package search_test

import (
	"testing"

	"github.com/sobjornstad/rabbitmark/internal/model"
	"github.com/sobjornstad/rabbitmark/internal/search"
)

func fixtures() []model.Bookmark {
	return []model.Bookmark{
		{ID: "1", Name: "Go Blog", URL: "https://go.dev/blog"},
		{ID: "2", Name: "Google", URL: "https://google.com"},
		{ID: "3", Name: "Hacker News", URL: "https://news.ycombinator.com"},
	}
}

func TestFuzzySearchBookmarks(t *testing.T) {
	results := search.FuzzySearchBookmarks(fixtures(), "gb")
	if len(results) == 0 {
		t.Fatal("expected at least one match for 'gb'")
	}
	if results[0].Bookmark.Name != "Go Blog" {
		t.Errorf("best match should be Go Blog, got %q", results[0].Bookmark.Name)
	}
	if len(results[0].MatchedIndexes) == 0 {
		t.Error("matched indexes should be populated for highlighting")
	}
}

func TestFuzzySearchRanksExactishHigher(t *testing.T) {
	results := search.FuzzySearchBookmarks(fixtures(), "goog")
	if len(results) == 0 {
		t.Fatal("expected a match for 'goog'")
	}
	if results[0].Bookmark.Name != "Google" {
		t.Errorf("best match should be Google, got %q", results[0].Bookmark.Name)
	}
}

func TestFuzzySearchNoMatch(t *testing.T) {
	if results := search.FuzzySearchBookmarks(fixtures(), "zzzz"); len(results) != 0 {
		t.Errorf("expected no matches, got %d", len(results))
	}
}

func TestFuzzySearchEmptyQuery(t *testing.T) {
	if results := search.FuzzySearchBookmarks(fixtures(), ""); results != nil {
		t.Errorf("empty query should return nil, got %v", results)
	}
}
