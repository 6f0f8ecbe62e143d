// Package robots fetches and evaluates robots.txt for the hosts the
// collector visits.
package robots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUnavailable marks a robots.txt that could not be read because of a
// server error. It is never memoized.
var ErrUnavailable = errors.New("robots.txt unavailable")

// ErrDisallowed is returned by Manager.Allow for a path the rules forbid.
var ErrDisallowed = errors.New("disallowed by robots.txt")

type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
)

type Rules struct {
	Groups []Group
}

type Group struct {
	Agents     []string
	Allow      []string
	Disallow   []string
	CrawlDelay *time.Duration
}

const maxRobotsBytes = 512 << 10

// Manager memoizes robots.txt per URL for EntryExpiry.
type Manager struct {
	HTTPClient  *http.Client
	UserAgent   string
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	rules  Rules
	expiry time.Time
}

// Get returns the rules at robotsURL. A 4xx answer yields empty rules
// (allow all) and is memoized. A 5xx answer returns ErrUnavailable and is
// asked again on the next call.
func (m *Manager) Get(ctx context.Context, robotsURL string) (Rules, Source, error) {
	if rules, ok := m.cached(robotsURL); ok {
		return rules, SourceMemory, nil
	}
	rules, err := m.download(ctx, robotsURL)
	if err != nil {
		return Rules{}, SourceNetwork, err
	}
	m.storeMem(robotsURL, rules)
	return rules, SourceNetwork, nil
}

func (m *Manager) cached(key string) (Rules, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.now == nil {
		m.now = time.Now
	}
	ent, ok := m.mem[key]
	if !ok || !m.now().Before(ent.expiry) {
		return Rules{}, false
	}
	return ent.rules, true
}

func (m *Manager) download(ctx context.Context, robotsURL string) (Rules, error) {
	if u, err := url.Parse(robotsURL); err != nil || !isHTTPScheme(u) {
		return Rules{}, fmt.Errorf("robots url %q: not an http(s) url", robotsURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return Rules{}, err
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	hc := m.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return Rules{}, err
	}
	defer resp.Body.Close()

	code := resp.StatusCode
	switch {
	case code >= http.StatusInternalServerError:
		return Rules{}, fmt.Errorf("%w: status %d", ErrUnavailable, code)
	case code >= http.StatusBadRequest:
		return Rules{}, nil
	case code/100 != 2:
		return Rules{}, fmt.Errorf("robots.txt status %d", code)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return Rules{}, fmt.Errorf("read robots.txt: %w", err)
	}
	return parseRobots(string(body)), nil
}

// Allow checks u against its host's robots.txt for the manager's user
// agent. An unreachable or failing robots.txt does not block fetching.
func (m *Manager) Allow(ctx context.Context, u *url.URL) error {
	rules, err := m.rulesFor(ctx, u)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("host", u.Host).Msg("robots.txt unavailable; allowing")
		return nil
	}
	if !rules.IsAllowed(m.UserAgent, u.RequestURI()) {
		return fmt.Errorf("%w: %s", ErrDisallowed, u.String())
	}
	return nil
}

// CrawlDelay returns the Crawl-delay that applies to rawURL's host, or 0.
func (m *Manager) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0
	}
	rules, err := m.rulesFor(ctx, u)
	if err != nil {
		return 0
	}
	if d := rules.CrawlDelayFor(m.UserAgent); d != nil {
		return *d
	}
	return 0
}

func (m *Manager) rulesFor(ctx context.Context, u *url.URL) (Rules, error) {
	if u == nil || !isHTTPScheme(u) {
		return Rules{}, fmt.Errorf("unsupported url: %v", u)
	}
	rules, _, err := m.Get(ctx, URLFor(u))
	return rules, err
}

// URLFor returns the robots.txt location for u's origin.
func URLFor(u *url.URL) string {
	return (&url.URL{Scheme: strings.ToLower(u.Scheme), Host: u.Host, Path: "/robots.txt"}).String()
}

func (m *Manager) storeMem(key string, rules Rules) {
	exp := m.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	m.mu.Lock()
	if m.mem == nil {
		m.mem = make(map[string]memEntry)
	}
	m.mem[key] = memEntry{rules: rules, expiry: m.now().Add(exp)}
	m.mu.Unlock()
}

// parseRobots reads robots.txt records. Consecutive User-agent lines share
// one group; a User-agent line after any rule opens a new group.
func parseRobots(text string) Rules {
	var (
		rules    Rules
		cur      *Group
		inAgents bool
	)
	for _, raw := range strings.Split(text, "\n") {
		key, val, ok := directive(raw)
		if !ok {
			continue
		}
		if key == "user-agent" {
			if cur == nil || !inAgents {
				rules.Groups = append(rules.Groups, Group{})
				cur = &rules.Groups[len(rules.Groups)-1]
			}
			cur.Agents = append(cur.Agents, strings.ToLower(val))
			inAgents = true
			continue
		}
		inAgents = false
		if cur == nil {
			// Rules before any User-agent line belong to nobody.
			continue
		}
		switch key {
		case "allow":
			cur.Allow = append(cur.Allow, val)
		case "disallow":
			cur.Disallow = append(cur.Disallow, val)
		case "crawl-delay":
			if secs, err := strconv.ParseFloat(val, 64); err == nil && secs >= 0 {
				d := time.Duration(secs * float64(time.Second))
				cur.CrawlDelay = &d
			}
		}
	}
	return rules
}

// directive splits a robots.txt line into a lower-cased key and its value,
// dropping comments. Legacy spellings without the hyphen are folded.
func directive(line string) (key, val string, ok bool) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	k, v, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(k))
	switch key {
	case "":
		return "", "", false
	case "useragent":
		key = "user-agent"
	case "crawldelay":
		key = "crawl-delay"
	}
	return key, strings.TrimSpace(v), true
}

// IsAllowed reports whether path (query included) may be fetched by
// userAgent. The most specific agent group applies, "*" losing to any
// named match. Within it the longest matching pattern wins and Allow beats
// Disallow on a tie. No match means allowed.
func (r Rules) IsAllowed(userAgent string, path string) bool {
	g := r.group(userAgent)
	if g == nil {
		return true
	}
	allowed, best := true, -1
	consider := func(patterns []string, allow bool) {
		for _, p := range patterns {
			if p == "" || !patternMatches(p, path) {
				continue
			}
			n := patternSpecificity(p)
			if n > best || (n == best && allow) {
				allowed, best = allow, n
			}
		}
	}
	consider(g.Disallow, false)
	consider(g.Allow, true)
	return allowed
}

// CrawlDelayFor returns the crawl delay of the group matching userAgent,
// or nil.
func (r Rules) CrawlDelayFor(userAgent string) *time.Duration {
	if g := r.group(userAgent); g != nil {
		return g.CrawlDelay
	}
	return nil
}

func (r Rules) group(userAgent string) *Group {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	var (
		found *Group
		score = -1
	)
	for i := range r.Groups {
		for _, agent := range r.Groups[i].Agents {
			n := agentScore(strings.TrimSpace(agent), ua)
			if n > score {
				found, score = &r.Groups[i], n
			}
		}
	}
	return found
}

// agentScore is -1 for no match, 0 for "*" and the token length otherwise.
func agentScore(token, ua string) int {
	switch {
	case token == "":
		return -1
	case token == "*":
		return 0
	case strings.Contains(ua, token):
		return len(token)
	default:
		return -1
	}
}

// patternMatches anchors pattern at the start of path. '*' matches any
// run and a trailing '$' anchors the end.
func patternMatches(pattern, path string) bool {
	anchored := strings.HasSuffix(pattern, "$")
	parts := strings.Split(strings.TrimSuffix(pattern, "$"), "*")

	if !strings.HasPrefix(path, parts[0]) {
		return false
	}
	rest := path[len(parts[0]):]
	if len(parts) == 1 {
		return !anchored || rest == ""
	}
	middle, last := parts[1:len(parts)-1], parts[len(parts)-1]
	for _, part := range middle {
		i := strings.Index(rest, part)
		if i < 0 {
			return false
		}
		rest = rest[i+len(part):]
	}
	if anchored {
		return strings.HasSuffix(rest, last)
	}
	return strings.Contains(rest, last)
}

func patternSpecificity(pattern string) int {
	return len(strings.ReplaceAll(strings.TrimSuffix(pattern, "$"), "*", ""))
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
