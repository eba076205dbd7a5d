package interchange

import (
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/sobjornstad/rabbitmark/internal/catalog"
	"github.com/sobjornstad/rabbitmark/internal/model"
)

// ParseHTMLBookmarks parses Netscape bookmark HTML (the format browsers
// export) into bookmark parameters. This catalog has no folder
// hierarchy, so the names of the folders enclosing a link become its
// tags, merged with any TAGS attribute on the link itself.
func ParseHTMLBookmarks(r io.Reader) ([]model.NewBookmarkParams, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var marks []model.NewBookmarkParams

	// Track the enclosing folder names for hierarchy-to-tag mapping
	var folderStack []string
	var pendingFolder string

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "h3":
				// Folder definition - becomes a tag on everything below it.
				// It is pushed when we see the folder's DL.
				pendingFolder = getTextContent(n)
				return // Don't recurse into H3

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					// Skip bookmarks without URL
					return
				}

				name := getTextContent(n)
				if name == "" {
					name = href // fallback to URL as name
				}

				tags := map[string]bool{}
				for _, f := range folderStack {
					tags[f] = true
				}
				if raw := getAttr(n, "tags"); raw != "" {
					for _, t := range strings.Split(raw, ",") {
						if t = strings.TrimSpace(t); t != "" {
							tags[t] = true
						}
					}
				}

				marks = append(marks, model.NewBookmarkParams{
					Name: name,
					URL:  href,
					Tags: sortedKeys(tags),
				})
				return // Don't recurse into A

			case "dl":
				// Definition list - marks folder contents
				pushed := false
				if pendingFolder != "" {
					folderStack = append(folderStack, pendingFolder)
					pendingFolder = ""
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					folderStack = folderStack[:len(folderStack)-1]
				}
				return // Children handled above
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)
	return marks, nil
}

// ImportHTML imports all bookmarks from a Netscape bookmark file,
// skipping entries whose URL already exists in the catalog.
// Returns (number imported, number of duplicates skipped).
func ImportHTML(cat *catalog.Catalog, r io.Reader) (int, int, error) {
	marks, err := ParseHTMLBookmarks(r)
	if err != nil {
		return 0, 0, err
	}

	imported, dupes := 0, 0
	for _, params := range marks {
		exists, err := cat.URLExists(params.URL)
		if err != nil {
			return imported, dupes, err
		}
		if exists {
			dupes++
			continue
		}
		if _, err := cat.AddBookmark(params); err != nil {
			return imported, dupes, err
		}
		imported++
	}
	return imported, dupes, nil
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
