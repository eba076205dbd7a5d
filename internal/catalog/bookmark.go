package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sobjornstad/rabbitmark/internal/model"
)

// BookmarkContent is the full editable state of a bookmark, as captured
// from an edit form or import row.
type BookmarkContent struct {
	Name          string
	URL           string
	Description   string
	Private       bool
	SkipLinkcheck bool
	Tags          []string
}

// nameExists reports whether a bookmark with exactly this name exists.
func nameExists(tx *sql.Tx, name string) (bool, error) {
	var one int
	err := tx.QueryRow("SELECT 1 FROM bookmarks WHERE name = ?", name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// uniquifyName appends numbers to the end of a bookmark name until it's
// unique among existing bookmarks.
func uniquifyName(tx *sql.Tx, origName string) (string, error) {
	name := origName
	nextNumber := 2
	for {
		exists, err := nameExists(tx, name)
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s %d", origName, nextNumber)
		nextNumber++
	}
}

// AddBookmark adds a new bookmark with the provided starting fields,
// resolving each tag text to an existing tag or creating it. The name is
// suffixed with a number if it collides with an existing bookmark's.
func (c *Catalog) AddBookmark(params model.NewBookmarkParams) (model.Bookmark, error) {
	b := model.Bookmark{
		ID:          model.NewID(),
		Name:        params.Name,
		URL:         params.URL,
		Description: params.Description,
	}
	if b.Name == "" {
		b.Name = "New Bookmark"
	}

	err := c.withTx(func(tx *sql.Tx) error {
		name, err := uniquifyName(tx, b.Name)
		if err != nil {
			return err
		}
		b.Name = name

		if _, err := tx.Exec(`
			INSERT INTO bookmarks (id, name, url, description, private, skip_linkcheck)
			VALUES (?, ?, ?, ?, 0, 0)
		`, b.ID, b.Name, b.URL, b.Description); err != nil {
			return err
		}

		for _, text := range params.Tags {
			if _, err := addTagToBookmark(tx, b.ID, text); err != nil {
				return err
			}
		}

		b.Tags, err = bookmarkTags(tx, b.ID)
		return err
	})
	if err != nil {
		return model.Bookmark{}, err
	}
	return b, nil
}

// SaveIfEdited updates the bookmark to match content if anything differs,
// reconciling its tag set as well. A changed name is uniquified before
// saving. Reports whether an update was made.
func (c *Catalog) SaveIfEdited(id string, content BookmarkContent) (bool, error) {
	updated := false
	err := c.withTx(func(tx *sql.Tx) error {
		existing, err := bookmarkByID(tx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("no bookmark with id %q", id)
		}

		dirty := existing.Name != content.Name ||
			existing.URL != content.URL ||
			existing.Description != content.Description ||
			existing.Private != content.Private ||
			existing.SkipLinkcheck != content.SkipLinkcheck ||
			!sameTags(existing.Tags, content.Tags)
		if !dirty {
			return nil
		}

		name := existing.Name
		if existing.Name != content.Name {
			name, err = uniquifyName(tx, content.Name)
			if err != nil {
				return err
			}
		}

		if _, err := tx.Exec(`
			UPDATE bookmarks
			SET name = ?, url = ?, description = ?, private = ?, skip_linkcheck = ?
			WHERE id = ?
		`, name, content.URL, content.Description,
			boolToInt(content.Private), boolToInt(content.SkipLinkcheck), id); err != nil {
			return err
		}

		if err := changeTags(tx, id, content.Tags); err != nil {
			return err
		}
		updated = true
		return nil
	})
	return updated, err
}

// DeleteBookmark deletes the bookmark. Any of its tags left without
// references are expunged.
func (c *Catalog) DeleteBookmark(id string) error {
	return c.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			"SELECT tag_id FROM bookmark_tags WHERE bookmark_id = ?", id)
		if err != nil {
			return err
		}
		var tagIDs []string
		for rows.Next() {
			var tagID string
			if err := rows.Scan(&tagID); err != nil {
				rows.Close()
				return err
			}
			tagIDs = append(tagIDs, tagID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.Exec("DELETE FROM bookmarks WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("no bookmark with id %q", id)
		}

		// Association rows are gone via cascade; expunge newly orphaned tags.
		for _, tagID := range tagIDs {
			if _, err := maybeExpungeTag(tx, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// bookmarkByID loads one bookmark with its tags. Returns nil if absent.
func bookmarkByID(tx *sql.Tx, id string) (*model.Bookmark, error) {
	row := tx.QueryRow(
		"SELECT "+bookmarkColumns+" FROM bookmarks WHERE id = ?", id)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Tags, err = bookmarkTags(tx, b.ID)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// BookmarkByID retrieves a bookmark by its ID, or nil if none exists.
func (c *Catalog) BookmarkByID(id string) (*model.Bookmark, error) {
	var b *model.Bookmark
	err := c.withTx(func(tx *sql.Tx) error {
		var err error
		b, err = bookmarkByID(tx, id)
		return err
	})
	return b, err
}

// ResolveIDPrefix finds the single bookmark whose ID starts with prefix.
// Errors if the prefix matches no bookmark or more than one.
func (c *Catalog) ResolveIDPrefix(prefix string) (*model.Bookmark, error) {
	var b *model.Bookmark
	err := c.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			"SELECT id FROM bookmarks WHERE id LIKE ? LIMIT 2", prefix+"%")
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		switch len(ids) {
		case 0:
			return fmt.Errorf("no bookmark with ID %q", prefix)
		case 1:
			b, err = bookmarkByID(tx, ids[0])
			return err
		default:
			return fmt.Errorf("bookmark ID %q is ambiguous", prefix)
		}
	})
	return b, err
}

// NameExists reports whether a bookmark by the exact given name exists.
func (c *Catalog) NameExists(name string) (bool, error) {
	exists := false
	err := c.withTx(func(tx *sql.Tx) error {
		var err error
		exists, err = nameExists(tx, name)
		return err
	})
	return exists, err
}

// URLExists reports whether a bookmark with the exact given URL exists.
// This is a fast, exact string match only; it does not follow redirects
// or normalize URL encodings.
func (c *Catalog) URLExists(url string) (bool, error) {
	exists := false
	err := c.withTx(func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRow("SELECT 1 FROM bookmarks WHERE url = ? LIMIT 1", url).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		exists = err == nil
		return err
	})
	return exists, err
}

// LinkCandidates returns the bookmarks eligible for link checking, i.e.
// all not flagged skip_linkcheck.
func (c *Catalog) LinkCandidates() ([]model.Bookmark, error) {
	var marks []model.Bookmark
	err := c.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(
			"SELECT " + bookmarkColumns + " FROM bookmarks WHERE skip_linkcheck = 0 ORDER BY name")
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBookmark(rows)
			if err != nil {
				return err
			}
			marks = append(marks, b)
		}
		return rows.Err()
	})
	return marks, err
}

// sameTags compares two tag lists ignoring order.
func sameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, t := range a {
		seen[t]++
	}
	for _, t := range b {
		if seen[t] == 0 {
			return false
		}
		seen[t]--
	}
	return true
}
