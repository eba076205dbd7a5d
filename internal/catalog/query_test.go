package catalog_test

import (
	"sort"
	"testing"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/model"
)

// fixtureABC builds the canonical three bookmarks:
// A with no tags, B with [x], C with [x, y].
func fixtureABC(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := testCatalog(t)
	mustAdd(t, cat, "A", "https://a.example.com")
	mustAdd(t, cat, "B", "https://b.example.com", "x")
	mustAdd(t, cat, "C", "https://c.example.com", "x", "y")
	return cat
}

func names(marks []model.Bookmark) []string {
	out := make([]string, len(marks))
	for i, m := range marks {
		out[i] = m.Name
	}
	sort.Strings(out)
	return out
}

func sameNames(a []string, b ...string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindByTagMatrix(t *testing.T) {
	cat := fixtureABC(t)

	tests := []struct {
		name string
		tags []string
		mode model.SearchMode
		want []string
	}{
		{"or one tag", []string{"x"}, model.SearchOr, []string{"B", "C"}},
		{"or two tags", []string{"x", "y"}, model.SearchOr, []string{"B", "C"}},
		{"and two tags", []string{"x", "y"}, model.SearchAnd, []string{"C"}},
		{"and one tag", []string{"y"}, model.SearchAnd, []string{"C"}},
		{"or untagged only", []string{model.NoTags}, model.SearchOr, []string{"A"}},
		{"or untagged plus tag", []string{model.NoTags, "y"}, model.SearchOr, []string{"A", "C"}},
		{"and untagged only", []string{model.NoTags}, model.SearchAnd, []string{"A"}},
		// Zero tags AND a concrete tag cannot both hold.
		{"and untagged plus tag is contradictory",
			[]string{model.NoTags, "x"}, model.SearchAnd, nil},
		{"unknown tag", []string{"zebra"}, model.SearchOr, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marks, err := cat.FindBookmarks("", tt.tags, true, tt.mode)
			if err != nil {
				t.Fatalf("find failed: %v", err)
			}
			if got := names(marks); !sameNames(got, tt.want...) {
				t.Errorf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFindEmptyTagsModeIrrelevant(t *testing.T) {
	cat := fixtureABC(t)

	orMarks, err := cat.FindBookmarks("", nil, true, model.SearchOr)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	andMarks, err := cat.FindBookmarks("", nil, true, model.SearchAnd)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}

	if !sameNames(names(orMarks), names(andMarks)...) {
		t.Errorf("empty tag set must be mode-independent: %v vs %v",
			names(orMarks), names(andMarks))
	}
	if len(orMarks) != 3 {
		t.Errorf("no tag filter should return everything, got %v", names(orMarks))
	}
}

func TestFindSubstring(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, "Go Blog", "https://go.dev/blog")
	mark := mustAdd(t, cat, "Rust Book", "https://doc.rust-lang.org/book")
	if _, err := cat.SaveIfEdited(mark.ID, catalog.BookmarkContent{
		Name:        "Rust Book",
		URL:         "https://doc.rust-lang.org/book",
		Description: "The Go of systems programming, some say",
	}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	tests := []struct {
		name   string
		filter string
		want   []string
	}{
		{"empty matches all", "", []string{"Go Blog", "Rust Book"}},
		{"name match", "blog", []string{"Go Blog"}},
		{"url match", "rust-lang", []string{"Rust Book"}},
		{"description match", "systems programming", []string{"Rust Book"}},
		{"case insensitive", "GO", []string{"Go Blog", "Rust Book"}},
		{"no match", "haskell", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marks, err := cat.FindBookmarks(tt.filter, nil, true, model.SearchOr)
			if err != nil {
				t.Fatalf("find failed: %v", err)
			}
			if got := names(marks); !sameNames(got, tt.want...) {
				t.Errorf("want %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFindExcludesPrivate(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, "Public", "https://public.example.com", "x")
	private := mustAdd(t, cat, "Private", "https://private.example.com", "x")
	markPrivate(t, cat, private.ID)

	marks, err := cat.FindBookmarks("", []string{"x"}, false, model.SearchOr)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got := names(marks); !sameNames(got, "Public") {
		t.Errorf("private bookmark leaked: %v", got)
	}

	marks, err = cat.FindBookmarks("", []string{"x"}, true, model.SearchOr)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(marks) != 2 {
		t.Errorf("includePrivate should return both, got %v", names(marks))
	}
}

func TestFindUnknownModePanics(t *testing.T) {
	cat := fixtureABC(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unknown search mode")
		}
	}()
	_, _ = cat.FindBookmarks("", []string{"x"}, true, model.SearchMode(42))
}
