package catalog

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sobjornstad/rabbitmark/internal/model"
)

// tagByText looks up a tag by its text. Returns nil if no such tag exists.
func tagByText(tx *sql.Tx, text string) (*model.Tag, error) {
	var t model.Tag
	err := tx.QueryRow("SELECT id, text FROM tags WHERE text = ?", text).
		Scan(&t.ID, &t.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// tagRefCount returns the number of bookmarks referencing the tag.
func tagRefCount(tx *sql.Tx, tagID string) (int, error) {
	var n int
	err := tx.QueryRow(
		"SELECT COUNT(*) FROM bookmark_tags WHERE tag_id = ?", tagID).Scan(&n)
	return n, err
}

// addTagToBookmark links the tag with the given text to the bookmark,
// creating the tag if it doesn't exist yet. Linking the same text twice
// is a no-op. Returns the tag used.
func addTagToBookmark(tx *sql.Tx, bookmarkID, text string) (model.Tag, error) {
	tag, err := tagByText(tx, text)
	if err != nil {
		return model.Tag{}, err
	}
	if tag == nil {
		tag = &model.Tag{ID: model.NewID(), Text: text}
		if _, err := tx.Exec(
			"INSERT INTO tags (id, text) VALUES (?, ?)", tag.ID, tag.Text); err != nil {
			return model.Tag{}, err
		}
	}

	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO bookmark_tags (bookmark_id, tag_id) VALUES (?, ?)
	`, bookmarkID, tag.ID); err != nil {
		return model.Tag{}, err
	}
	return *tag, nil
}

// maybeExpungeTag deletes the tag if no bookmark references it anymore.
// Must be called after every detachment that could orphan a tag.
// Returns whether the tag was deleted.
func maybeExpungeTag(tx *sql.Tx, tagID string) (bool, error) {
	n, err := tagRefCount(tx, tagID)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err = tx.Exec("DELETE FROM tags WHERE id = ?", tagID)
	return err == nil, err
}

// changeTags reconciles the bookmark's tag links to exactly newTexts:
// tags no longer present are detached (and expunged if orphaned),
// missing ones are attached, creating new tags as needed.
func changeTags(tx *sql.Tx, bookmarkID string, newTexts []string) error {
	wanted := make(map[string]bool, len(newTexts))
	for _, text := range newTexts {
		wanted[text] = true
	}

	rows, err := tx.Query(`
		SELECT t.id, t.text
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
		WHERE bt.bookmark_id = ?
	`, bookmarkID)
	if err != nil {
		return err
	}

	current := map[string]string{} // text -> tag id
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			rows.Close()
			return err
		}
		current[text] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// Detach tags that are no longer wanted
	for text, tagID := range current {
		if wanted[text] {
			continue
		}
		if _, err := tx.Exec(
			"DELETE FROM bookmark_tags WHERE bookmark_id = ? AND tag_id = ?",
			bookmarkID, tagID); err != nil {
			return err
		}
		if _, err := maybeExpungeTag(tx, tagID); err != nil {
			return err
		}
	}

	// Attach tags that are missing
	for _, text := range newTexts {
		if _, ok := current[text]; ok {
			continue
		}
		if _, err := addTagToBookmark(tx, bookmarkID, text); err != nil {
			return err
		}
	}

	return nil
}

// AddTagToBookmark links the tag described by text to the bookmark,
// creating the tag on first use. Returns the tag used.
func (c *Catalog) AddTagToBookmark(bookmarkID, text string) (model.Tag, error) {
	var tag model.Tag
	err := c.withTx(func(tx *sql.Tx) error {
		var err error
		tag, err = addTagToBookmark(tx, bookmarkID, text)
		return err
	})
	return tag, err
}

// MaybeExpungeTag deletes the named tag if it is no longer referenced by
// any bookmarks. Returns whether the tag was deleted.
func (c *Catalog) MaybeExpungeTag(text string) (bool, error) {
	var deleted bool
	err := c.withTx(func(tx *sql.Tx) error {
		tag, err := tagByText(tx, text)
		if err != nil {
			return err
		}
		if tag == nil {
			return fmt.Errorf("no tag named %q", text)
		}
		deleted, err = maybeExpungeTag(tx, tag.ID)
		return err
	})
	return deleted, err
}

// ChangeTags reconciles the bookmark's tag set to exactly newTexts.
func (c *Catalog) ChangeTags(bookmarkID string, newTexts []string) error {
	return c.withTx(func(tx *sql.Tx) error {
		return changeTags(tx, bookmarkID, newTexts)
	})
}

// RenameTag changes a tag's text in place, preserving its associations.
// Returns false without mutating anything if a tag named newName already
// exists; the caller is expected to re-prompt.
func (c *Catalog) RenameTag(currentName, newName string) (bool, error) {
	renamed := false
	err := c.withTx(func(tx *sql.Tx) error {
		existing, err := tagByText(tx, newName)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		tag, err := tagByText(tx, currentName)
		if err != nil {
			return err
		}
		if tag == nil {
			return fmt.Errorf("no tag named %q", currentName)
		}

		if _, err := tx.Exec(
			"UPDATE tags SET text = ? WHERE id = ?", newName, tag.ID); err != nil {
			return err
		}
		renamed = true
		return nil
	})
	return renamed, err
}

// MergeTags moves every bookmark referencing the tag named from onto the
// tag named into, then deletes from (orphaned by construction at that
// point). If no tag named into exists, this degrades to a rename.
// Returns false if the merge was refused (from and into are the same tag).
func (c *Catalog) MergeTags(from, into string) (bool, error) {
	if from == into {
		return false, nil
	}

	merged := false
	err := c.withTx(func(tx *sql.Tx) error {
		target, err := tagByText(tx, into)
		if err != nil {
			return err
		}

		source, err := tagByText(tx, from)
		if err != nil {
			return err
		}
		if source == nil {
			return fmt.Errorf("no tag named %q", from)
		}

		if target == nil {
			// Documented fallback: merging into a nonexistent tag is a rename.
			if _, err := tx.Exec(
				"UPDATE tags SET text = ? WHERE id = ?", into, source.ID); err != nil {
				return err
			}
			merged = true
			return nil
		}

		// Relink first; bookmarks already carrying both tags just drop
		// the source link.
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO bookmark_tags (bookmark_id, tag_id)
			SELECT bookmark_id, ? FROM bookmark_tags WHERE tag_id = ?
		`, target.ID, source.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"DELETE FROM bookmark_tags WHERE tag_id = ?", source.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(
			"DELETE FROM tags WHERE id = ?", source.ID); err != nil {
			return err
		}
		merged = true
		return nil
	})
	return merged, err
}

// DeleteTag unconditionally removes the named tag and all its
// associations. Unlike MaybeExpungeTag this is an explicit destructive
// action, not gated by reference count.
func (c *Catalog) DeleteTag(name string) error {
	return c.withTx(func(tx *sql.Tx) error {
		tag, err := tagByText(tx, name)
		if err != nil {
			return err
		}
		if tag == nil {
			return fmt.Errorf("no tag named %q", name)
		}
		// Association rows go with it via ON DELETE CASCADE.
		_, err = tx.Exec("DELETE FROM tags WHERE id = ?", tag.ID)
		return err
	})
}

// ScanTagsWithCounts returns each tag's text mapped to the number of
// bookmarks carrying it, plus a synthetic NoTags entry counting bookmarks
// with zero tags. When includePrivate is false, only non-private
// bookmarks are counted and tags whose visible count is zero are omitted.
func (c *Catalog) ScanTagsWithCounts(includePrivate bool) (map[string]int, error) {
	counts := map[string]int{}
	err := c.withTx(func(tx *sql.Tx) error {
		rows, err := tx.Query(`
			SELECT t.text, COUNT(b.id)
			FROM tags t
			LEFT JOIN bookmark_tags bt ON bt.tag_id = t.id
			LEFT JOIN bookmarks b ON b.id = bt.bookmark_id AND (? = 1 OR b.private = 0)
			GROUP BY t.id
		`, boolToInt(includePrivate))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var text string
			var n int
			if err := rows.Scan(&text, &n); err != nil {
				return err
			}
			if n == 0 && !includePrivate {
				continue
			}
			counts[text] = n
		}
		if err := rows.Err(); err != nil {
			return err
		}

		var untagged int
		err = tx.QueryRow(`
			SELECT COUNT(*) FROM bookmarks b
			WHERE (? = 1 OR b.private = 0)
			  AND NOT EXISTS (
				SELECT 1 FROM bookmark_tags bt WHERE bt.bookmark_id = b.id
			  )
		`, boolToInt(includePrivate)).Scan(&untagged)
		if err != nil {
			return err
		}
		counts[model.NoTags] = untagged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return counts, nil
}
