package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/litarchive/internal/collect"
	"github.com/hyperifyio/litarchive/internal/fetch"
	"github.com/hyperifyio/litarchive/internal/layout"
)

// ErrInvalidConfig marks configuration rejected at startup.
var ErrInvalidConfig = errors.New("invalid config")

const (
	DefaultAuthor        = "Аркадий Драгомощенко"
	DefaultAuthorURL     = "http://www.vavilon.ru/texts/dragomot0.html"
	DefaultOutputPath    = "dragomoshchenko_vavilon_full.json"
	DefaultIndexSelector = "a.alink"
	DefaultDelay         = time.Second
)

// Config holds runtime configuration for the application.
type Config struct {
	Author     string
	AuthorURL  string
	OutputPath string
	PDFPath    string
	// PDFFont is a TTF file used for the PDF; without it only Latin text
	// renders.
	PDFFont    string
	SQLitePath string

	// Fetching
	Delay        time.Duration
	Timeout      time.Duration
	Retries      int
	RetryDelay   time.Duration
	InsecureTLS  bool
	ForceHTTP    bool
	Encoding     string
	UserAgent    string
	IgnoreRobots bool

	Verbose bool

	Site SiteConfig
}

// SiteConfig carries the selectors and patterns that describe the target
// site's markup.
type SiteConfig struct {
	IndexSelector       string
	LinkSelector        string
	ContentSelector     string
	WorkPattern         string
	ContinuationPattern string
	Coauthors           []string
	MinLinkText         int
	FullTextTitle       string
	SingleTitle         string
}

// DefaultConfig reproduces a plain run against the archive.
func DefaultConfig() Config {
	return Config{
		Author:      DefaultAuthor,
		AuthorURL:   DefaultAuthorURL,
		OutputPath:  DefaultOutputPath,
		Delay:       DefaultDelay,
		Timeout:     fetch.DefaultTimeout,
		Retries:     fetch.DefaultRetries,
		RetryDelay:  fetch.DefaultRetryDelay,
		InsecureTLS: true,
		ForceHTTP:   true,
		Encoding:    fetch.DefaultEncoding,
		UserAgent:   fetch.DefaultUserAgent,
		Site: SiteConfig{
			IndexSelector:       DefaultIndexSelector,
			LinkSelector:        collect.DefaultLinkSelector,
			ContentSelector:     collect.DefaultContentSelector,
			WorkPattern:         layout.DefaultWorkPattern,
			ContinuationPattern: layout.DefaultContinuationPattern,
			Coauthors:           append([]string(nil), layout.DefaultCoauthors...),
			MinLinkText:         collect.DefaultMinLinkText,
			FullTextTitle:       collect.DefaultFullTextTitle,
			SingleTitle:         collect.DefaultSingleTitle,
		},
	}
}

// Rules compiles the site patterns.
func (s SiteConfig) Rules() (layout.Rules, error) {
	return layout.NewRules(s.WorkPattern, s.ContinuationPattern, s.Coauthors)
}

// ValidateConfig checks required settings and compiles the site rules.
func ValidateConfig(cfg Config) error {
	if trim(cfg.AuthorURL) == "" {
		return fmt.Errorf("%w: author url is required", ErrInvalidConfig)
	}
	u, err := url.Parse(cfg.AuthorURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: author url must be an absolute http(s) URL: %q", ErrInvalidConfig, cfg.AuthorURL)
	}
	if trim(cfg.OutputPath) == "" {
		return fmt.Errorf("%w: output path is required", ErrInvalidConfig)
	}
	if cfg.Delay < 0 || cfg.Timeout < 0 || cfg.RetryDelay < 0 {
		return fmt.Errorf("%w: negative durations are not allowed", ErrInvalidConfig)
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrInvalidConfig)
	}
	if err := fetch.ValidateEncoding(cfg.Encoding); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if trim(cfg.Site.IndexSelector) == "" {
		return fmt.Errorf("%w: site index selector is required", ErrInvalidConfig)
	}
	if _, err := cfg.Site.Rules(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
