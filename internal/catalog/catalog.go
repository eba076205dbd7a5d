// Package catalog implements the bookmark catalog operations: bookmark
// CRUD, the tag lifecycle (including orphan expungement), the search
// query engine, and the config key-value store.
//
// Every exported operation runs in its own transaction, so each is
// atomic from a reader's perspective and never returns with an orphaned
// tag left in the tags table.
package catalog

import (
	"database/sql"
	"sort"

	"github.com/sobjornstad/rabbitmark/internal/model"
	"github.com/sobjornstad/rabbitmark/internal/storage"
)

// Catalog is the transactional handle all catalog operations run against.
type Catalog struct {
	db *sql.DB
}

// New creates a Catalog over an open database.
func New(db *storage.DB) *Catalog {
	return &Catalog{db: db.Handle()}
}

// withTx runs fn inside a transaction, committing if it returns nil.
func (c *Catalog) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanBookmark reads one bookmark row (without tags).
func scanBookmark(row interface{ Scan(...any) error }) (model.Bookmark, error) {
	var b model.Bookmark
	var private, skip int
	err := row.Scan(&b.ID, &b.Name, &b.URL, &b.Description, &private, &skip)
	if err != nil {
		return model.Bookmark{}, err
	}
	b.Private = private == 1
	b.SkipLinkcheck = skip == 1
	return b, nil
}

const bookmarkColumns = "id, name, url, description, private, skip_linkcheck"

// bookmarkTags returns the texts of a bookmark's tags, sorted.
func bookmarkTags(tx *sql.Tx, bookmarkID string) ([]string, error) {
	rows, err := tx.Query(`
		SELECT t.text
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ?
	`, bookmarkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(texts)
	return texts, nil
}
