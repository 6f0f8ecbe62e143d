package layout

import (
	"fmt"
	"regexp"
	"strings"
)

// Link is an anchor found on a page.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Default site patterns for the vavilon.ru pages of Arkadii Dragomoshchenko.
const (
	DefaultWorkPattern         = `dragom`
	DefaultContinuationPattern = `Продолжение|Окончание|continued|concluded`
)

// DefaultCoauthors lists href fragments of co-author and contributor pages
// that appear inside the author's tables of contents.
var DefaultCoauthors = []string{"glazova", "barzakh", "yampolsky"}

// Rules holds the site-specific predicates that drive classification and
// link filtering.
type Rules struct {
	work         *regexp.Regexp
	continuation *regexp.Regexp
	coauthors    []string
}

// NewRules compiles the patterns. Both patterns match case-insensitively.
func NewRules(workPattern, continuationPattern string, coauthors []string) (Rules, error) {
	if strings.TrimSpace(workPattern) == "" {
		return Rules{}, fmt.Errorf("work pattern is required")
	}
	if strings.TrimSpace(continuationPattern) == "" {
		return Rules{}, fmt.Errorf("continuation pattern is required")
	}
	work, err := regexp.Compile("(?i)" + workPattern)
	if err != nil {
		return Rules{}, fmt.Errorf("work pattern: %w", err)
	}
	cont, err := regexp.Compile("(?i)" + continuationPattern)
	if err != nil {
		return Rules{}, fmt.Errorf("continuation pattern: %w", err)
	}
	list := make([]string, 0, len(coauthors))
	for _, c := range coauthors {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			list = append(list, c)
		}
	}
	return Rules{work: work, continuation: cont, coauthors: list}, nil
}

// DefaultRules returns the rules for the default target site.
func DefaultRules() Rules {
	r, err := NewRules(DefaultWorkPattern, DefaultContinuationPattern, DefaultCoauthors)
	if err != nil {
		panic(err)
	}
	return r
}

// IsZero reports whether r was never compiled.
func (r Rules) IsZero() bool {
	return r.work == nil && r.continuation == nil
}

// IsWork reports whether href points at one of the author's own works.
func (r Rules) IsWork(href string) bool {
	return r.work != nil && r.work.MatchString(href)
}

// IsContinuation reports whether link text announces the next installment.
func (r Rules) IsContinuation(text string) bool {
	return r.continuation != nil && r.continuation.MatchString(text)
}

// IsCoauthor reports whether href belongs to a co-author or contributor.
func (r Rules) IsCoauthor(href string) bool {
	h := strings.ToLower(href)
	for _, c := range r.coauthors {
		if strings.Contains(h, c) {
			return true
		}
	}
	return false
}

// IsNext reports whether l links to the next part of a serialized work.
func (r Rules) IsNext(l Link) bool {
	return r.IsContinuation(l.Text) && r.IsWork(l.Href)
}

// Filter drops co-author links, keeping order.
func (r Rules) Filter(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if r.IsCoauthor(l.Href) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// HasFragment reports whether href addresses an in-page anchor.
func HasFragment(href string) bool {
	return strings.Contains(href, "#")
}

// StripFragment returns href without its "#name" suffix.
func StripFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

// Fragment returns the anchor name after the last "#", or "".
func Fragment(href string) string {
	if i := strings.LastIndexByte(href, '#'); i >= 0 {
		return href[i+1:]
	}
	return ""
}
