package ingest

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/obinexus/trie-search-mcp-server/internal/trie"
)

// FromHTML parses an HTML page into a document. The title is taken from the
// <title> element, falling back to the first <h1>; heading texts become tags
// and the visible text becomes the content field. Script and style subtrees
// are skipped.
func FromHTML(id string, r io.Reader) (*trie.Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var body strings.Builder
	var headings []string
	title := ""
	firstH1 := ""

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "title":
				if title == "" {
					title = strings.TrimSpace(textContent(n))
				}
				return
			case "h1", "h2", "h3", "h4", "h5", "h6":
				text := strings.TrimSpace(textContent(n))
				if text != "" {
					headings = append(headings, text)
					if n.Data == "h1" && firstH1 == "" {
						firstH1 = text
					}
				}
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				body.WriteString(text)
				body.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if title == "" {
		title = firstH1
	}
	if title == "" {
		title = titleFromID(id)
	}

	return &trie.Document{
		ID: id,
		Fields: map[string]trie.FieldValue{
			"title":   trie.String(title),
			"content": trie.Content(strings.TrimSpace(body.String())),
			"tags":    trie.List(headings...),
		},
	}, nil
}

// textContent concatenates the text nodes under n.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}
