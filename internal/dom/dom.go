// Package dom defines the read-only node capabilities the extraction engine
// needs from a parsed page, and an adapter over goquery/x/net/html that
// provides them.
package dom

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Node is the capability set the extractors rely on. Implementations must
// not expose mutation; callers only traverse.
type Node interface {
	// Find returns all descendants matching a CSS selector in document order.
	Find(selector string) []Node
	// Text returns the rendered text content. <br> becomes "\n", block
	// elements start new lines and whitespace runs inside text collapse.
	Text() string
	// Attr returns an attribute value and whether it is present.
	Attr(name string) (string, bool)
	// Next returns the next sibling element, or nil.
	Next() Node
	// Name returns the lower-case tag name, or "" for non-element nodes.
	Name() string
}

// element wraps a single *html.Node. It is comparable, so two Nodes wrapping
// the same underlying node are ==.
type element struct {
	n *html.Node
}

// Parse reads UTF-8 HTML and returns the document root.
func Parse(r io.Reader) (Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	if len(doc.Nodes) == 0 {
		return element{n: &html.Node{Type: html.DocumentNode}}, nil
	}
	return element{n: doc.Nodes[0]}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (Node, error) {
	return Parse(strings.NewReader(s))
}

// Wrap adapts an existing x/net/html node.
func Wrap(n *html.Node) Node {
	if n == nil {
		return nil
	}
	return element{n: n}
}

func (e element) Find(selector string) []Node {
	if e.n == nil || strings.TrimSpace(selector) == "" {
		return nil
	}
	sel := goquery.NewDocumentFromNode(e.n).Find(selector)
	out := make([]Node, 0, sel.Length())
	for _, n := range sel.Nodes {
		out = append(out, element{n: n})
	}
	return out
}

func (e element) Attr(name string) (string, bool) {
	if e.n == nil || e.n.Type != html.ElementNode {
		return "", false
	}
	for _, a := range e.n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val, true
		}
	}
	return "", false
}

func (e element) Next() Node {
	if e.n == nil {
		return nil
	}
	for s := e.n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return element{n: s}
		}
	}
	return nil
}

func (e element) Name() string {
	if e.n == nil || e.n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(e.n.Data)
}

func (e element) Text() string {
	if e.n == nil {
		return ""
	}
	var b strings.Builder
	renderText(&b, e.n, false)
	return b.String()
}

// blockTags start and end on their own line when rendered.
var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "table": true, "tr": true,
	"ul": true, "ol": true, "dl": true, "dd": true, "dt": true, "center": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func renderText(b *strings.Builder, n *html.Node, inPre bool) {
	switch n.Type {
	case html.TextNode:
		if inPre {
			b.WriteString(n.Data)
			return
		}
		writeCollapsed(b, n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		name := strings.ToLower(n.Data)
		switch name {
		case "script", "style", "noscript", "head":
			return
		case "br":
			b.WriteString("\n")
			return
		case "hr":
			b.WriteString("\n\n")
			return
		case "pre":
			inPre = true
		}
		if blockTags[name] {
			b.WriteString("\n")
		}
		if name == "li" || name == "td" || name == "th" {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			renderText(b, c, inPre)
		}
		switch {
		case name == "p" || name == "pre" || isHeading(name):
			b.WriteString("\n\n")
		case blockTags[name]:
			b.WriteString("\n")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderText(b, c, inPre)
	}
}

func isHeading(name string) bool {
	return len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6'
}

// writeCollapsed writes s with every whitespace run (including source
// newlines) replaced by one space, as a browser would render it.
func writeCollapsed(b *strings.Builder, s string) {
	space := false
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r', '\f':
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		b.WriteRune(r)
		space = false
	}
}
