package app

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/collect"
	"github.com/hyperifyio/litarchive/internal/dom"
)

// IndexEntry is one collection listed on the author index.
type IndexEntry struct {
	Title string
	URL   string
}

// IndexCollections lists the collections linked from the author index in
// page order. Titles lose a trailing colon; hrefs are resolved against base.
func IndexCollections(ctx context.Context, doc dom.Node, base, selector string) []IndexEntry {
	if doc == nil {
		return nil
	}
	if strings.TrimSpace(selector) == "" {
		selector = DefaultIndexSelector
	}
	var out []IndexEntry
	for _, a := range doc.Find(selector) {
		title := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(a.Text()), ":"))
		href, _ := a.Attr("href")
		if strings.TrimSpace(href) == "" {
			log.Ctx(ctx).Warn().Err(collect.ErrMalformedLink).Str("collection", title).Msg("index entry without href")
			continue
		}
		u, err := collect.Resolve(base, href)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("collection", title).Msg("index entry skipped")
			continue
		}
		out = append(out, IndexEntry{Title: title, URL: u})
	}
	return out
}
