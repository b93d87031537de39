// Package ingest converts external content — markdown, HTML, fetched pages —
// into indexable documents.
package ingest

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/obinexus/trie-search-mcp-server/internal/trie"
)

// FromMarkdown parses markdown source into a document. The title is taken
// from the first H1 heading, then YAML frontmatter, then the id; headings
// become tags and the full text becomes the content field.
func FromMarkdown(id string, source []byte) (*trie.Document, error) {
	md := goldmark.New()
	root := md.Parser().Parse(gtext.NewReader(source))

	var body strings.Builder
	var headings []string
	title := ""

	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			text := nodeText(node, source)
			if text != "" {
				if node.Level == 1 && title == "" {
					title = text
				}
				headings = append(headings, text)
			}
		case *ast.Text:
			body.Write(node.Segment.Value(source))
			body.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})

	if title == "" {
		title = frontmatterTitle(source)
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

// nodeText extracts the plain text directly under an AST node.
func nodeText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
		}
	}
	return strings.TrimSpace(buf.String())
}

// frontmatterTitle scans a YAML frontmatter block for a title entry.
func frontmatterTitle(source []byte) string {
	content := string(source)
	if !strings.HasPrefix(content, "---") {
		return ""
	}
	lines := strings.Split(content, "\n")
	for i := 1; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "---" {
			return ""
		}
		if strings.HasPrefix(line, "title:") {
			title := strings.TrimSpace(strings.TrimPrefix(line, "title:"))
			return strings.Trim(title, `"'`)
		}
	}
	return ""
}

// titleFromID derives a readable fallback title from a document id such as a
// file path.
func titleFromID(id string) string {
	parts := strings.Split(id, "/")
	name := parts[len(parts)-1]
	name = strings.TrimSuffix(name, ".md")
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	if name == "" {
		return "Untitled"
	}
	return name
}
