// Package collect turns one collection page of the archive into content
// items, choosing an extraction strategy per page layout.
package collect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/archive"
	"github.com/hyperifyio/litarchive/internal/dom"
	"github.com/hyperifyio/litarchive/internal/layout"
	"github.com/hyperifyio/litarchive/internal/normalize"
)

// Source retrieves and parses a page.
type Source interface {
	Fetch(ctx context.Context, url string) (dom.Node, error)
}

// ErrMalformedLink marks an href that is missing or cannot be resolved.
var ErrMalformedLink = errors.New("malformed link")

const (
	DefaultLinkSelector    = "td ul p a, td p a"
	DefaultContentSelector = "p, ul, table, font"
	DefaultMinLinkText     = 3
	DefaultFullTextTitle   = "Full text"
	DefaultSingleTitle     = "Text"
)

// Collector extracts the items of a collection. Zero-valued fields fall
// back to the package defaults.
type Collector struct {
	Source          Source
	Rules           layout.Rules
	LinkSelector    string
	ContentSelector string
	// MinLinkText drops table-of-contents links whose trimmed text is
	// shorter than this many characters.
	MinLinkText   int
	FullTextTitle string
	SingleTitle   string
}

// New returns a Collector over src with the default site rules.
func New(src Source) *Collector {
	return &Collector{
		Source:          src,
		Rules:           layout.DefaultRules(),
		LinkSelector:    DefaultLinkSelector,
		ContentSelector: DefaultContentSelector,
		MinLinkText:     DefaultMinLinkText,
		FullTextTitle:   DefaultFullTextTitle,
		SingleTitle:     DefaultSingleTitle,
	}
}

// Collection fetches a collection page, classifies it and runs the matching
// extractor. Failures are logged and yield an empty list.
func (c *Collector) Collection(ctx context.Context, rawURL string) []archive.ContentItem {
	doc, err := c.Source.Fetch(ctx, rawURL)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("url", rawURL).Msg("collection unavailable")
		return []archive.ContentItem{}
	}
	links := c.links(ctx, doc)
	strategy := layout.Classify(doc, links, c.rules())
	log.Ctx(ctx).Debug().Str("url", rawURL).Str("strategy", strategy.String()).Int("links", len(links)).Msg("classified")

	switch strategy {
	case layout.Anchor:
		return c.Anchors(ctx, rawURL, links)
	case layout.Sequential:
		return c.sequential(ctx, rawURL, doc)
	case layout.Chapter:
		return c.Chapters(ctx, rawURL, links)
	default:
		return []archive.ContentItem{{
			ItemTitle: c.singleTitle(),
			Text:      normalize.Nodes(c.contentNodes(doc)),
		}}
	}
}

// Detect fetches a page and reports its strategy with the candidate links.
func (c *Collector) Detect(ctx context.Context, rawURL string) (layout.Strategy, []layout.Link, error) {
	doc, err := c.Source.Fetch(ctx, rawURL)
	if err != nil {
		return layout.Single, nil, err
	}
	links := c.links(ctx, doc)
	return layout.Classify(doc, links, c.rules()), links, nil
}

func (c *Collector) links(ctx context.Context, doc dom.Node) []layout.Link {
	minText := c.MinLinkText
	if minText <= 0 {
		minText = DefaultMinLinkText
	}
	var out []layout.Link
	for _, a := range doc.Find(c.linkSelector()) {
		text := strings.TrimSpace(a.Text())
		href, ok := a.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			log.Ctx(ctx).Debug().Err(ErrMalformedLink).Str("text", text).Msg("link skipped")
			continue
		}
		if utf8.RuneCountInString(text) < minText {
			continue
		}
		out = append(out, layout.Link{Text: text, Href: href})
	}
	return out
}

// contentNodes selects the text-bearing nodes of a page in document order.
// Nodes nested in an already selected node are skipped, and a table that
// holds other content nodes is treated as layout and not selected itself.
func (c *Collector) contentNodes(doc dom.Node) []dom.Node {
	if doc == nil {
		return nil
	}
	sel := c.contentSelector()
	covered := make(map[dom.Node]struct{})
	var out []dom.Node
	for _, n := range doc.Find(sel) {
		if _, ok := covered[n]; ok {
			continue
		}
		inner := n.Find(sel)
		if n.Name() == "table" && len(inner) > 0 {
			continue
		}
		out = append(out, n)
		for _, d := range inner {
			covered[d] = struct{}{}
		}
	}
	return out
}

// Resolve makes href absolute against base. Failures wrap ErrMalformedLink.
func Resolve(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: base %q: %v", ErrMalformedLink, base, err)
	}
	r, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMalformedLink, href, err)
	}
	return b.ResolveReference(r).String(), nil
}

func (c *Collector) rules() layout.Rules {
	if c.Rules.IsZero() {
		return layout.DefaultRules()
	}
	return c.Rules
}

func (c *Collector) linkSelector() string {
	return orDefault(c.LinkSelector, DefaultLinkSelector)
}

func (c *Collector) contentSelector() string {
	return orDefault(c.ContentSelector, DefaultContentSelector)
}

func (c *Collector) fullTextTitle() string {
	return orDefault(c.FullTextTitle, DefaultFullTextTitle)
}

func (c *Collector) singleTitle() string {
	return orDefault(c.SingleTitle, DefaultSingleTitle)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
