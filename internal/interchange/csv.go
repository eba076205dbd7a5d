// Package interchange imports and exports bookmarks in data-interchange
// formats: CSV and Netscape bookmark HTML.
package interchange

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/model"
)

// Field roles a CSV column can be mapped to on import. A column mapped
// to the empty string is ignored.
const (
	RoleName        = "name"
	RoleURL         = "url"
	RoleDescription = "description"
	RoleTags        = "tags"
)

// escapeNewlines rewrites a description so the record stays on one
// line: backslashes double and newlines become \n. unescapeNewlines
// reverses it exactly, so descriptions that contain a literal backslash
// followed by an n survive a round trip.
func escapeNewlines(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, "\n", `\n`)
}

func unescapeNewlines(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case '\\':
				b.WriteByte('\\')
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// ExportCSV writes every bookmark in the catalog to w as CSV with a
// header row. Newlines inside descriptions are escaped so each record
// stays on one line. Returns the number of bookmarks exported.
func ExportCSV(cat *catalog.Catalog, w io.Writer) (int, error) {
	marks, err := cat.FindBookmarks("", nil, true, model.SearchAnd)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"name", "url", "description", "tags"}); err != nil {
		return 0, err
	}
	for _, mark := range marks {
		record := []string{
			mark.Name,
			mark.URL,
			escapeNewlines(mark.Description),
			strings.Join(mark.Tags, ","),
		}
		if err := writer.Write(record); err != nil {
			return 0, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	return len(marks), nil
}

// CSVSchema describes a CSV file about to be imported: its column names
// and the first data row as a preview.
type CSVSchema struct {
	Columns      []string
	FirstDataRow []string
}

// ReadCSVSchema inspects a CSV stream and returns its schema.
func ReadCSVSchema(r io.Reader) (CSVSchema, error) {
	reader := csv.NewReader(r)
	columns, err := reader.Read()
	if err != nil {
		return CSVSchema{}, fmt.Errorf("read CSV header: %w", err)
	}
	firstRow, err := reader.Read()
	if err == io.EOF {
		return CSVSchema{Columns: columns}, nil
	}
	if err != nil {
		return CSVSchema{}, fmt.Errorf("read first CSV row: %w", err)
	}
	return CSVSchema{Columns: columns, FirstDataRow: firstRow}, nil
}

// ImportCSV imports bookmarks from r. mapping assigns a field role to
// each CSV column in order; unmapped columns (empty string) are skipped.
// The URL and name roles must be mapped. Rows whose URL duplicates an
// existing bookmark's are not imported.
//
// Returns (number imported, number of duplicates skipped).
func ImportCSV(cat *catalog.Catalog, r io.Reader, mapping []string) (int, int, error) {
	urlMapped, nameMapped := false, false
	for _, role := range mapping {
		switch role {
		case RoleURL:
			urlMapped = true
		case RoleName:
			nameMapped = true
		}
	}
	if !urlMapped || !nameMapped {
		return 0, 0, fmt.Errorf("import mapping must assign the %s and %s roles",
			RoleName, RoleURL)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	if _, err := reader.Read(); err != nil { // skip past header row
		return 0, 0, fmt.Errorf("read CSV header: %w", err)
	}

	imported, dupes := 0, 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, dupes, err
		}

		fields := map[string]string{}
		for i, value := range row {
			if i < len(mapping) && mapping[i] != "" {
				fields[mapping[i]] = value
			}
		}

		exists, err := cat.URLExists(fields[RoleURL])
		if err != nil {
			return imported, dupes, err
		}
		if exists {
			dupes++
			continue
		}

		var tags []string
		if raw, ok := fields[RoleTags]; ok && raw != "" {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					tags = append(tags, t)
				}
			}
		}

		if _, err := cat.AddBookmark(model.NewBookmarkParams{
			Name:        fields[RoleName],
			URL:         fields[RoleURL],
			Description: unescapeNewlines(fields[RoleDescription]),
			Tags:        tags,
		}); err != nil {
			return imported, dupes, err
		}
		imported++
	}

	return imported, dupes, nil
}
