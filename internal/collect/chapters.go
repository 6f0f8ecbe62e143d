package collect

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/archive"
	"github.com/hyperifyio/litarchive/internal/layout"
	"github.com/hyperifyio/litarchive/internal/normalize"
)

// Chapters fetches one page per table-of-contents link, in order. Links
// that cannot be resolved or fetched are skipped.
func (c *Collector) Chapters(ctx context.Context, tocURL string, links []layout.Link) []archive.ContentItem {
	items := []archive.ContentItem{}
	for _, l := range c.rules().Filter(links) {
		pageURL, err := Resolve(tocURL, l.Href)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("title", l.Text).Msg("chapter skipped")
			continue
		}
		doc, err := c.Source.Fetch(ctx, pageURL)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("url", pageURL).Msg("chapter skipped")
			continue
		}
		items = append(items, archive.ContentItem{
			ItemTitle: strings.TrimSpace(l.Text),
			Text:      normalize.Nodes(c.contentNodes(doc)),
		})
	}
	return items
}
