package collect

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/archive"
	"github.com/hyperifyio/litarchive/internal/dom"
	"github.com/hyperifyio/litarchive/internal/layout"
	"github.com/hyperifyio/litarchive/internal/normalize"
)

// Anchors extracts the texts of a collection whose contents all live on
// one page, addressed by named anchors. The page is the one most links
// point to.
func (c *Collector) Anchors(ctx context.Context, tocURL string, links []layout.Link) []archive.ContentItem {
	items := []archive.ContentItem{}
	links = c.rules().Filter(links)
	if len(links) == 0 {
		return items
	}

	pageURL, err := Resolve(tocURL, majorityPage(links))
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("toc", tocURL).Msg("anchor page unresolvable")
		return items
	}
	doc, err := c.Source.Fetch(ctx, pageURL)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("url", pageURL).Msg("anchor page unavailable")
		return items
	}

	toc := make(map[string]string, len(links))
	for _, l := range links {
		if id := layout.Fragment(l.Href); id != "" {
			toc[id] = strings.TrimSpace(l.Text)
		}
	}

	for _, a := range doc.Find("a[name]") {
		name, _ := a.Attr("name")
		title, ok := toc[name]
		if !ok {
			continue
		}
		section := sectionAfter(a)
		text := normalize.Nodes(section)
		if text == "" {
			text = normalize.Raw(section)
		}
		items = append(items, archive.ContentItem{ItemTitle: title, Text: text})
	}
	return items
}

// sectionAfter returns the siblings following anchor up to the next named
// anchor.
func sectionAfter(anchor dom.Node) []dom.Node {
	var out []dom.Node
	for n := anchor.Next(); n != nil; n = n.Next() {
		if n.Name() == "a" {
			if _, named := n.Attr("name"); named {
				break
			}
		}
		out = append(out, n)
	}
	return out
}

// majorityPage returns the fragment-stripped href most links share. Ties go
// to the one seen first.
func majorityPage(links []layout.Link) string {
	counts := make(map[string]int, len(links))
	var order []string
	for _, l := range links {
		page := layout.StripFragment(l.Href)
		if _, seen := counts[page]; !seen {
			order = append(order, page)
		}
		counts[page]++
	}
	best := ""
	bestCount := 0
	for _, page := range order {
		if counts[page] > bestCount {
			best, bestCount = page, counts[page]
		}
	}
	return best
}
