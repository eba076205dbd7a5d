package catalog_test

import (
	"strings"
	"testing"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
)

func TestAddBookmarkCreatesTags(t *testing.T) {
	cat := testCatalog(t)
	mark := mustAdd(t, cat, "Go Blog", "https://go.dev/blog", "go", "reading")

	loaded, err := cat.BookmarkByID(mark.ID)
	if err != nil {
		t.Fatalf("failed to load bookmark: %v", err)
	}
	if loaded == nil {
		t.Fatal("bookmark not found after add")
	}
	if len(loaded.Tags) != 2 {
		t.Errorf("expected 2 tags, got %v", loaded.Tags)
	}
	if !tagExists(t, cat, "go") || !tagExists(t, cat, "reading") {
		t.Error("tags should be created lazily on first use")
	}
}

func TestAddBookmarkDefaultName(t *testing.T) {
	cat := testCatalog(t)
	mark := mustAdd(t, cat, "", "https://example.com")
	if mark.Name != "New Bookmark" {
		t.Errorf("expected default name, got %q", mark.Name)
	}
}

func TestAddBookmarkUniquifiesName(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, "Duplicate", "https://one.example.com")
	second := mustAdd(t, cat, "Duplicate", "https://two.example.com")
	third := mustAdd(t, cat, "Duplicate", "https://three.example.com")

	if second.Name != "Duplicate 2" {
		t.Errorf("expected \"Duplicate 2\", got %q", second.Name)
	}
	if third.Name != "Duplicate 3" {
		t.Errorf("expected \"Duplicate 3\", got %q", third.Name)
	}
}

func TestSaveIfEditedNoChanges(t *testing.T) {
	cat := testCatalog(t)
	mark := mustAdd(t, cat, "Example", "https://example.com", "a")

	updated, err := cat.SaveIfEdited(mark.ID, catalog.BookmarkContent{
		Name: "Example",
		URL:  "https://example.com",
		Tags: []string{"a"},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if updated {
		t.Error("unchanged content should not report an update")
	}
}

func TestSaveIfEditedUpdatesAndReconcilesTags(t *testing.T) {
	cat := testCatalog(t)
	mark := mustAdd(t, cat, "Example", "https://example.com", "old")

	updated, err := cat.SaveIfEdited(mark.ID, catalog.BookmarkContent{
		Name:          "Example",
		URL:           "https://example.com/new",
		Description:   "now with a description",
		SkipLinkcheck: true,
		Tags:          []string{"new"},
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !updated {
		t.Fatal("edit should report an update")
	}

	loaded, _ := cat.BookmarkByID(mark.ID)
	if loaded.URL != "https://example.com/new" {
		t.Errorf("URL not updated: %q", loaded.URL)
	}
	if !loaded.SkipLinkcheck {
		t.Error("skip_linkcheck not updated")
	}
	if len(loaded.Tags) != 1 || loaded.Tags[0] != "new" {
		t.Errorf("tags not reconciled: %v", loaded.Tags)
	}
	if tagExists(t, cat, "old") {
		t.Error("detached tag should be expunged")
	}
}

func TestSaveIfEditedUniquifiesRename(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, "Taken", "https://one.example.com")
	mark := mustAdd(t, cat, "Original", "https://two.example.com")

	if _, err := cat.SaveIfEdited(mark.ID, catalog.BookmarkContent{
		Name: "Taken",
		URL:  "https://two.example.com",
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, _ := cat.BookmarkByID(mark.ID)
	if loaded.Name != "Taken 2" {
		t.Errorf("expected auto-suffixed name \"Taken 2\", got %q", loaded.Name)
	}
}

func TestDeleteBookmarkMissing(t *testing.T) {
	cat := testCatalog(t)
	if err := cat.DeleteBookmark("nonesuch"); err == nil {
		t.Error("deleting a nonexistent bookmark should error")
	}
}

func TestURLExists(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, "Example", "https://example.com/page")

	exists, err := cat.URLExists("https://example.com/page")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !exists {
		t.Error("expected URL to exist")
	}

	// Exact string match only.
	exists, err = cat.URLExists("https://example.com/page/")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if exists {
		t.Error("trailing-slash variant should not match")
	}
}

func TestResolveIDPrefix(t *testing.T) {
	cat := testCatalog(t)
	mark := mustAdd(t, cat, "Example", "https://example.com")

	found, err := cat.ResolveIDPrefix(mark.ID[:8])
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if found.ID != mark.ID {
		t.Errorf("resolved wrong bookmark: %q", found.ID)
	}

	if _, err := cat.ResolveIDPrefix("zzzzzzzz"); err == nil ||
		!strings.Contains(err.Error(), "no bookmark") {
		t.Errorf("expected a not-found error, got %v", err)
	}
}

func TestLinkCandidatesExcludesSkipped(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, "Checked", "https://checked.example.com")
	skipped := mustAdd(t, cat, "Skipped", "https://skipped.example.com")

	if _, err := cat.SaveIfEdited(skipped.ID, catalog.BookmarkContent{
		Name:          "Skipped",
		URL:           "https://skipped.example.com",
		SkipLinkcheck: true,
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	candidates, err := cat.LinkCandidates()
	if err != nil {
		t.Fatalf("failed to list candidates: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Name != "Checked" {
		t.Errorf("expected only the checked bookmark, got %v", candidates)
	}
}
