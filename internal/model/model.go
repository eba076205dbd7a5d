package model

// NoTags is the sentinel tag-filter entry meaning "bookmark has no tags".
// It is never stored in the tags table.
const NoTags = "(no tags)"

// SearchMode describes how multiple selected tags are combined in a search.
type SearchMode int

const (
	// SearchOr matches bookmarks carrying any of the selected tags.
	SearchOr SearchMode = iota
	// SearchAnd matches bookmarks carrying all of the selected tags.
	SearchAnd
)

// String returns the mode name for error messages.
func (m SearchMode) String() string {
	switch m {
	case SearchOr:
		return "Or"
	case SearchAnd:
		return "And"
	default:
		return "SearchMode(?)"
	}
}

// Bookmark is an entry for a site we want to keep track of.
type Bookmark struct {
	ID            string
	Name          string
	URL           string
	Description   string
	Private       bool
	SkipLinkcheck bool
	Tags          []string // tag texts, sorted
}

// Tag organizes bookmarks. Tags and bookmarks are independent entities
// joined by an association table; neither owns the other.
type Tag struct {
	ID   string
	Text string
}

// HasTag reports whether the bookmark carries the given tag text.
func (b *Bookmark) HasTag(text string) bool {
	for _, t := range b.Tags {
		if t == text {
			return true
		}
	}
	return false
}

// NewBookmarkParams holds the starting fields for a new Bookmark.
type NewBookmarkParams struct {
	Name        string
	URL         string
	Description string
	Tags        []string
}
