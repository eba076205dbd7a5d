package catalog

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/sobjornstad/rabbitmark/internal/model"
)

// The query engine evaluates an explicit predicate tree over a snapshot
// of the catalog rather than composing SQL on the fly: AND/OR nodes over
// substring-match and tag-membership leaves, built once per call.

type predicate interface {
	matches(b *model.Bookmark) bool
}

// allOf matches when every child matches. An empty allOf matches everything.
type allOf []predicate

func (p allOf) matches(b *model.Bookmark) bool {
	for _, child := range p {
		if !child.matches(b) {
			return false
		}
	}
	return true
}

// anyOf matches when at least one child matches.
type anyOf []predicate

func (p anyOf) matches(b *model.Bookmark) bool {
	for _, child := range p {
		if child.matches(b) {
			return true
		}
	}
	return false
}

// substring matches bookmarks whose name, URL, or description contains
// the (already lowercased) text. Matching is case-insensitive; the empty
// string matches every bookmark.
type substring string

func (p substring) matches(b *model.Bookmark) bool {
	needle := string(p)
	return strings.Contains(strings.ToLower(b.Name), needle) ||
		strings.Contains(strings.ToLower(b.URL), needle) ||
		strings.Contains(strings.ToLower(b.Description), needle)
}

// hasTag matches bookmarks carrying the named tag.
type hasTag string

func (p hasTag) matches(b *model.Bookmark) bool {
	return b.HasTag(string(p))
}

// untagged matches bookmarks with zero tags.
type untagged struct{}

func (untagged) matches(b *model.Bookmark) bool {
	return len(b.Tags) == 0
}

// notPrivate matches bookmarks not flagged private.
type notPrivate struct{}

func (notPrivate) matches(b *model.Bookmark) bool {
	return !b.Private
}

// buildQuery assembles the predicate tree for one FindBookmarks call.
// An unrecognized mode is a programmer error and panics.
func buildQuery(filterText string, tags []string,
	includePrivate bool, mode model.SearchMode) predicate {

	root := allOf{substring(strings.ToLower(filterText))}

	if len(tags) > 0 {
		noTags := false
		var concrete []string
		for _, t := range tags {
			if t == model.NoTags {
				noTags = true
			} else {
				concrete = append(concrete, t)
			}
		}

		switch mode {
		case model.SearchOr:
			clause := anyOf{}
			if noTags {
				clause = append(clause, untagged{})
			}
			for _, t := range concrete {
				clause = append(clause, hasTag(t))
			}
			root = append(root, clause)
		case model.SearchAnd:
			// NoTags alongside concrete tags is contradictory and
			// correctly yields nothing.
			if noTags {
				root = append(root, untagged{})
			}
			for _, t := range concrete {
				root = append(root, hasTag(t))
			}
		default:
			panic(fmt.Sprintf("FindBookmarks: search mode %v unimplemented", mode))
		}
	}

	if !includePrivate {
		root = append(root, notPrivate{})
	}

	return root
}

// FindBookmarks returns the bookmarks matching the given criteria.
//
// filterText is matched case-insensitively as a substring of the name,
// URL, or description; the empty string matches everything. tags is a
// set of tag texts, possibly including the NoTags sentinel, combined
// according to mode; an empty set applies no tag filtering. When
// includePrivate is false, private bookmarks are excluded regardless of
// the other criteria. Result ordering is by name, but callers should not
// rely on it; the presentation layer sorts for itself.
func (c *Catalog) FindBookmarks(filterText string, tags []string,
	includePrivate bool, mode model.SearchMode) ([]model.Bookmark, error) {

	query := buildQuery(filterText, tags, includePrivate, mode)

	var marks []model.Bookmark
	err := c.withTx(func(tx *sql.Tx) error {
		all, err := allBookmarks(tx)
		if err != nil {
			return err
		}
		for i := range all {
			if query.matches(&all[i]) {
				marks = append(marks, all[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return marks, nil
}

// allBookmarks loads every bookmark with its tags in two queries.
func allBookmarks(tx *sql.Tx) ([]model.Bookmark, error) {
	rows, err := tx.Query(
		"SELECT " + bookmarkColumns + " FROM bookmarks ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var marks []model.Bookmark
	index := map[string]int{} // bookmark id -> position in marks
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, err
		}
		b.Tags = []string{}
		index[b.ID] = len(marks)
		marks = append(marks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tagRows, err := tx.Query(`
		SELECT bt.bookmark_id, t.text
		FROM bookmark_tags bt
		JOIN tags t ON t.id = bt.tag_id
	`)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var bookmarkID, text string
		if err := tagRows.Scan(&bookmarkID, &text); err != nil {
			return nil, err
		}
		if i, ok := index[bookmarkID]; ok {
			marks[i].Tags = append(marks[i].Tags, text)
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	for i := range marks {
		sort.Strings(marks[i].Tags)
	}
	return marks, nil
}
