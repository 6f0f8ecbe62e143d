package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/dom"
)

// Defaults match what the archive server tolerates.
const (
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"
	DefaultTimeout    = 15 * time.Second
	DefaultRetries    = 3
	DefaultRetryDelay = 2 * time.Second
	DefaultEncoding   = "koi8-r"
	DefaultMaxBytes   = 5 << 20
)

// ErrFetch matches every failure returned by Client.
var ErrFetch = errors.New("fetch failed")

// Error describes a failed fetch after all attempts.
type Error struct {
	URL      string
	Attempts int
	// Status is the last HTTP status seen, 0 if no response arrived.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("fetch %s: %v (after %d attempts)", e.URL, e.Err, e.Attempts)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetch) true for every *Error.
func (e *Error) Is(target error) bool { return target == ErrFetch }

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.code)
}

// Client fetches and parses pages with a fixed-delay bounded retry.
type Client struct {
	// HTTPClient is used as-is when set; otherwise one is built from
	// Timeout and InsecureTLS on first use.
	HTTPClient *http.Client
	UserAgent  string
	// Retries is the number of extra attempts after the first one.
	Retries    int
	RetryDelay time.Duration
	// Timeout bounds each single request.
	Timeout time.Duration
	// InsecureTLS disables certificate verification for legacy servers.
	InsecureTLS bool
	// ForceHTTP rewrites https:// URLs to http:// before fetching.
	ForceHTTP bool
	// Encoding is the WHATWG label used to decode bodies. "" or "auto"
	// sniffs from headers and meta tags.
	Encoding string
	// MaxBytes caps the body size read per response.
	MaxBytes int64
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// Allow, when set, is consulted before every request. A non-nil
	// result refuses the URL without contacting the server.
	Allow func(ctx context.Context, u *url.URL) error
	// Sleep waits between attempts. Defaults to Sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	once   sync.Once
	client *http.Client
}

// New returns a Client with the package defaults.
func New() *Client {
	return &Client{
		UserAgent:  DefaultUserAgent,
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		Timeout:    DefaultTimeout,
		Encoding:   DefaultEncoding,
		MaxBytes:   DefaultMaxBytes,
	}
}

// Fetch downloads rawURL, decodes it and parses it into a node tree.
func (c *Client) Fetch(ctx context.Context, rawURL string) (dom.Node, error) {
	body, contentType, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	r, err := decode(body, c.Encoding, contentType)
	if err != nil {
		return nil, &Error{URL: rawURL, Attempts: 1, Err: err}
	}
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, &Error{URL: rawURL, Attempts: 1, Err: fmt.Errorf("parse html: %w", err)}
	}
	return doc, nil
}

// Get issues a GET with user agent and bounded retry on transient errors,
// returning the raw body and its content type.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	target := rawURL
	if c.ForceHTTP {
		target = ForceHTTP(target)
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, "", &Error{URL: rawURL, Attempts: 0, Err: fmt.Errorf("parse url: %w", err)}
	}
	if !isHTTPScheme(u) {
		return nil, "", &Error{URL: rawURL, Attempts: 0, Err: fmt.Errorf("unsupported URL scheme: %q", u.Scheme)}
	}
	if c.Allow != nil {
		if err := c.Allow(ctx, u); err != nil {
			return nil, "", &Error{URL: target, Attempts: 0, Err: err}
		}
	}

	attempts := c.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		body, ct, err := c.tryOnce(ctx, u)
		if err == nil {
			return body, ct, nil
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 || ctx.Err() != nil {
			return nil, "", &Error{URL: target, Attempts: i + 1, Status: statusOf(err), Err: err}
		}
		log.Ctx(ctx).Warn().Err(err).Str("url", target).Int("left", attempts-i-1).Msg("fetch failed; retrying")
		if err := sleep(ctx, c.RetryDelay); err != nil {
			return nil, "", &Error{URL: target, Attempts: i + 1, Status: statusOf(lastErr), Err: err}
		}
	}
	return nil, "", &Error{URL: target, Attempts: attempts, Err: lastErr}
}

func (c *Client) tryOnce(ctx context.Context, u *url.URL) ([]byte, string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("new request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &statusError{code: resp.StatusCode}
	}
	contentType := resp.Header.Get("Content-Type")
	if !isAllowedContentType(contentType) {
		return nil, "", fmt.Errorf("unsupported content type: %s", contentType)
	}
	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return b, contentType, nil
}

func (c *Client) httpClient() *http.Client {
	c.once.Do(func() {
		base := c.HTTPClient
		if base == nil {
			base = NewHTTPClient(c.Timeout, c.InsecureTLS)
		}
		// Copy so the redirect policy does not leak into the caller's client.
		clone := *base
		clone.CheckRedirect = checkRedirect(c.RedirectMaxHops)
		c.client = &clone
	})
	return c.client
}

func checkRedirect(max int) func(req *http.Request, via []*http.Request) error {
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

// isTransient treats network errors, timeouts and 5xx/408/429 as worth
// another attempt.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusRequestTimeout || se.code == http.StatusTooManyRequests
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func statusOf(err error) int {
	var se *statusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// ForceHTTP rewrites an https:// URL to plain http://.
func ForceHTTP(raw string) string {
	const secure = "https://"
	if len(raw) >= len(secure) && strings.EqualFold(raw[:len(secure)], secure) {
		return "http://" + raw[len(secure):]
	}
	return raw
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml") || strings.HasPrefix(ct, "text/plain")
}
