package catalog_test

import (
	"path/filepath"
	"testing"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/model"
	"github.com/sobjornstad/rabbitmark/internal/storage"
)

// testCatalog opens a fresh catalog in a temporary database.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return catalog.New(db)
}

// mustAdd adds a bookmark or fails the test.
func mustAdd(t *testing.T, cat *catalog.Catalog, name, url string, tags ...string) model.Bookmark {
	t.Helper()
	mark, err := cat.AddBookmark(model.NewBookmarkParams{
		Name: name,
		URL:  url,
		Tags: tags,
	})
	if err != nil {
		t.Fatalf("failed to add bookmark %q: %v", name, err)
	}
	return mark
}

// markPrivate flips a bookmark's private flag on.
func markPrivate(t *testing.T, cat *catalog.Catalog, id string) {
	t.Helper()
	mark, err := cat.BookmarkByID(id)
	if err != nil || mark == nil {
		t.Fatalf("failed to load bookmark %q: %v", id, err)
	}
	if _, err := cat.SaveIfEdited(id, catalog.BookmarkContent{
		Name:          mark.Name,
		URL:           mark.URL,
		Description:   mark.Description,
		Private:       true,
		SkipLinkcheck: mark.SkipLinkcheck,
		Tags:          mark.Tags,
	}); err != nil {
		t.Fatalf("failed to mark %q private: %v", id, err)
	}
}

// tagExists reports whether a tag with the given text currently exists,
// going through ScanTagsWithCounts to stay on the public surface.
func tagExists(t *testing.T, cat *catalog.Catalog, text string) bool {
	t.Helper()
	counts, err := cat.ScanTagsWithCounts(true)
	if err != nil {
		t.Fatalf("failed to scan tags: %v", err)
	}
	_, ok := counts[text]
	return ok
}
