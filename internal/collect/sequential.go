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

// Sequential follows continuation links from startURL and returns the
// concatenated text as a single item. A URL is never fetched twice.
func (c *Collector) Sequential(ctx context.Context, startURL string) []archive.ContentItem {
	return c.sequential(ctx, startURL, nil)
}

// sequential reuses first as the start page when the caller already has it.
func (c *Collector) sequential(ctx context.Context, startURL string, first dom.Node) []archive.ContentItem {
	visited := make(map[string]struct{})
	var parts []string

	current, doc := startURL, first
	for current != "" {
		key := layout.StripFragment(current)
		if _, seen := visited[key]; seen {
			break
		}
		visited[key] = struct{}{}

		if doc == nil {
			var err error
			doc, err = c.Source.Fetch(ctx, current)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("url", current).Msg("continuation unavailable")
				break
			}
		}
		if text := normalize.Nodes(c.contentNodes(doc)); text != "" {
			parts = append(parts, text)
		}
		current = c.nextPart(ctx, doc, current)
		doc = nil
	}

	return []archive.ContentItem{{
		ItemTitle: c.fullTextTitle(),
		Text:      strings.Join(parts, normalize.Separator),
	}}
}

// nextPart returns the absolute URL of the first continuation link on doc,
// or "" when there is none.
func (c *Collector) nextPart(ctx context.Context, doc dom.Node, base string) string {
	rules := c.rules()
	for _, a := range doc.Find("a") {
		href, _ := a.Attr("href")
		if !rules.IsNext(layout.Link{Text: strings.TrimSpace(a.Text()), Href: href}) {
			continue
		}
		next, err := Resolve(base, href)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("url", base).Msg("continuation link unresolvable")
			return ""
		}
		return next
	}
	return ""
}
