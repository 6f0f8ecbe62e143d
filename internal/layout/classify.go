// Package layout decides which of the archive's page layouts a collection
// uses, from the table-of-contents links and the page itself.
package layout

import (
	"strings"

	"github.com/hyperifyio/litarchive/internal/dom"
)

// Strategy identifies an extraction strategy.
type Strategy int

const (
	// Single treats the whole page as one text.
	Single Strategy = iota
	// Anchor reads one content page addressed by named in-page anchors.
	Anchor
	// Sequential follows "continued" links across pages into one text.
	Sequential
	// Chapter fetches one page per table-of-contents link.
	Chapter
)

func (s Strategy) String() string {
	switch s {
	case Anchor:
		return "anchor"
	case Sequential:
		return "sequential"
	case Chapter:
		return "chapter"
	default:
		return "single"
	}
}

// Classify picks the strategy for a collection page. The checks run in a
// fixed order and the first match wins: anchors, then a continuation chain,
// then chapter links, else a single page. links are filtered of co-authors
// before any check.
func Classify(doc dom.Node, links []Link, rules Rules) Strategy {
	links = rules.Filter(links)

	for _, l := range links {
		if HasFragment(l.Href) {
			return Anchor
		}
	}

	if doc != nil {
		for _, a := range doc.Find("a") {
			href, _ := a.Attr("href")
			if rules.IsNext(Link{Text: strings.TrimSpace(a.Text()), Href: href}) {
				return Sequential
			}
		}
	}

	if len(links) > 0 {
		for _, l := range links {
			if rules.IsWork(l.Href) {
				return Chapter
			}
		}
	}

	return Single
}
