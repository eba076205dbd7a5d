package interchange_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/interchange"
	"github.com/sobjornstad/rabbitmark/internal/model"
	"github.com/sobjornstad/rabbitmark/internal/storage"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return catalog.New(db)
}

func mustAdd(t *testing.T, cat *catalog.Catalog, params model.NewBookmarkParams) {
	t.Helper()
	if _, err := cat.AddBookmark(params); err != nil {
		t.Fatalf("failed to add bookmark %q: %v", params.Name, err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := testCatalog(t)
	mustAdd(t, src, model.NewBookmarkParams{
		Name:        "Go Blog",
		URL:         "https://go.dev/blog",
		Description: "first line\nsecond line",
		Tags:        []string{"go", "reading"},
	})
	mustAdd(t, src, model.NewBookmarkParams{
		Name: "Example",
		URL:  "https://example.com",
	})

	var out strings.Builder
	n, err := interchange.ExportCSV(src, &out)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 exported, got %d", n)
	}
	if strings.Count(out.String(), "\n") != 3 { // header + 2 records
		t.Errorf("newlines in descriptions must be escaped:\n%s", out.String())
	}

	dst := testCatalog(t)
	mapping := []string{
		interchange.RoleName, interchange.RoleURL,
		interchange.RoleDescription, interchange.RoleTags,
	}
	imported, dupes, err := interchange.ImportCSV(dst, strings.NewReader(out.String()), mapping)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if imported != 2 || dupes != 0 {
		t.Errorf("expected 2 imported and 0 dupes, got %d and %d", imported, dupes)
	}

	marks, err := dst.FindBookmarks("", nil, true, model.SearchOr)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	byName := map[string]model.Bookmark{}
	for _, m := range marks {
		byName[m.Name] = m
	}
	blog, ok := byName["Go Blog"]
	if !ok {
		t.Fatal("round-tripped bookmark missing")
	}
	if blog.Description != "first line\nsecond line" {
		t.Errorf("description not restored: %q", blog.Description)
	}
	if len(blog.Tags) != 2 {
		t.Errorf("tags not restored: %v", blog.Tags)
	}
}

func TestExportImportDescriptionEscaping(t *testing.T) {
	// A description that already contains a literal backslash-n must not
	// come back as a real newline, and real newlines must survive too.
	tricky := `uses \n as a literal` + "\nand a real break" + `\\double`

	src := testCatalog(t)
	mustAdd(t, src, model.NewBookmarkParams{
		Name:        "Tricky",
		URL:         "https://tricky.example.com",
		Description: tricky,
	})

	var out strings.Builder
	if _, err := interchange.ExportCSV(src, &out); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if strings.Count(out.String(), "\n") != 2 { // header + 1 record
		t.Errorf("record should stay on one line:\n%s", out.String())
	}

	dst := testCatalog(t)
	mapping := []string{
		interchange.RoleName, interchange.RoleURL,
		interchange.RoleDescription, interchange.RoleTags,
	}
	if _, _, err := interchange.ImportCSV(dst, strings.NewReader(out.String()), mapping); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	marks, err := dst.FindBookmarks("", nil, true, model.SearchOr)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(marks) != 1 || marks[0].Description != tricky {
		t.Errorf("description mangled in round trip:\nwant %q\ngot  %q",
			tricky, marks[0].Description)
	}
}

func TestImportCSVSkipsDuplicateURLs(t *testing.T) {
	cat := testCatalog(t)
	mustAdd(t, cat, model.NewBookmarkParams{
		Name: "Existing", URL: "https://example.com",
	})

	input := "name,url\n" +
		"Existing Again,https://example.com\n" +
		"Fresh,https://fresh.example.com\n"
	imported, dupes, err := interchange.ImportCSV(cat, strings.NewReader(input),
		[]string{interchange.RoleName, interchange.RoleURL})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if imported != 1 {
		t.Errorf("expected 1 imported, got %d", imported)
	}
	if dupes != 1 {
		t.Errorf("expected 1 duplicate skipped, got %d", dupes)
	}
}

func TestImportCSVIgnoresUnmappedColumns(t *testing.T) {
	cat := testCatalog(t)
	input := "junk,name,url\n" +
		"noise,Example,https://example.com\n"
	imported, _, err := interchange.ImportCSV(cat, strings.NewReader(input),
		[]string{"", interchange.RoleName, interchange.RoleURL})
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if imported != 1 {
		t.Fatalf("expected 1 imported, got %d", imported)
	}

	marks, _ := cat.FindBookmarks("", nil, true, model.SearchOr)
	if len(marks) != 1 || marks[0].Name != "Example" {
		t.Errorf("unexpected imported bookmark: %+v", marks)
	}
}

func TestImportCSVRequiresNameAndURL(t *testing.T) {
	cat := testCatalog(t)
	_, _, err := interchange.ImportCSV(cat, strings.NewReader("url\nhttps://x\n"),
		[]string{interchange.RoleURL})
	if err == nil {
		t.Error("mapping without a name column should be rejected")
	}
}

func TestReadCSVSchema(t *testing.T) {
	schema, err := interchange.ReadCSVSchema(
		strings.NewReader("title,link\nExample,https://example.com\n"))
	if err != nil {
		t.Fatalf("schema read failed: %v", err)
	}
	if len(schema.Columns) != 2 || schema.Columns[0] != "title" {
		t.Errorf("wrong columns: %v", schema.Columns)
	}
	if len(schema.FirstDataRow) != 2 || schema.FirstDataRow[1] != "https://example.com" {
		t.Errorf("wrong preview row: %v", schema.FirstDataRow)
	}
}

func TestReadCSVSchemaHeaderOnly(t *testing.T) {
	schema, err := interchange.ReadCSVSchema(strings.NewReader("title,link\n"))
	if err != nil {
		t.Fatalf("schema read failed: %v", err)
	}
	if len(schema.Columns) != 2 || schema.FirstDataRow != nil {
		t.Errorf("expected columns only, got %+v", schema)
	}
}
