package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/litarchive/internal/archive"
	"github.com/hyperifyio/litarchive/internal/collect"
	"github.com/hyperifyio/litarchive/internal/fetch"
	"github.com/hyperifyio/litarchive/internal/robots"
	"github.com/hyperifyio/litarchive/internal/store"
)

// ErrIndexUnreachable is returned when the author index page cannot be
// fetched. It is the only failure that aborts a run before output.
var ErrIndexUnreachable = errors.New("author index unreachable")

// App collects one author archive from the index page to the sinks.
type App struct {
	cfg        Config
	httpClient *http.Client
	fetcher    *fetch.Client
	collector  *collect.Collector
	robots     *robots.Manager

	// sleep and now are replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New validates cfg and wires the fetcher, robots gate and collector.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	rules, err := cfg.Site.Rules()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	httpClient := fetch.NewHTTPClient(cfg.Timeout, cfg.InsecureTLS)
	fetcher := &fetch.Client{
		HTTPClient: httpClient,
		UserAgent:  cfg.UserAgent,
		Retries:    cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    cfg.Timeout,
		ForceHTTP:  cfg.ForceHTTP,
		Encoding:   cfg.Encoding,
		MaxBytes:   fetch.DefaultMaxBytes,
	}

	a := &App{
		cfg:        cfg,
		httpClient: httpClient,
		fetcher:    fetcher,
		collector: &collect.Collector{
			Source:          fetcher,
			Rules:           rules,
			LinkSelector:    cfg.Site.LinkSelector,
			ContentSelector: cfg.Site.ContentSelector,
			MinLinkText:     cfg.Site.MinLinkText,
			FullTextTitle:   cfg.Site.FullTextTitle,
			SingleTitle:     cfg.Site.SingleTitle,
		},
		sleep: fetch.Sleep,
		now:   time.Now,
	}
	if !cfg.IgnoreRobots {
		a.robots = &robots.Manager{HTTPClient: httpClient, UserAgent: cfg.UserAgent, EntryExpiry: time.Hour}
		fetcher.Allow = a.robots.Allow
	} else {
		log.Ctx(ctx).Warn().Msg("robots.txt checks disabled")
	}
	return a, nil
}

// Close releases idle keep-alive connections held by the HTTP client.
func (a *App) Close() {
	if a.httpClient != nil {
		a.httpClient.CloseIdleConnections()
	}
}

// Run collects every collection listed on the author index and writes the
// archive to the configured sinks.
func (a *App) Run(ctx context.Context) error {
	logger := log.With().Str("run_id", uuid.NewString()).Logger()
	ctx = logger.WithContext(ctx)

	arch, err := a.Collect(ctx)
	if arch == nil {
		return err
	}
	if err != nil {
		logger.Warn().Err(err).Int("books", len(arch.Books)).Msg("run interrupted; writing partial archive")
	}
	if werr := a.write(context.WithoutCancel(ctx), arch); werr != nil {
		return werr
	}
	return err
}

// Collect walks the author index. A non-nil archive is returned with a
// context error when the run is interrupted between collections.
func (a *App) Collect(ctx context.Context) (*archive.AuthorArchive, error) {
	started := a.now()
	doc, err := a.fetcher.Fetch(ctx, a.cfg.AuthorURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnreachable, err)
	}
	entries := IndexCollections(ctx, doc, a.cfg.AuthorURL, a.cfg.Site.IndexSelector)
	log.Ctx(ctx).Info().Int("collections", len(entries)).Str("author", a.cfg.Author).Msg("index loaded")

	arch := archive.New(a.cfg.Author, started)
	delay := a.politeness(ctx)
	for i, e := range entries {
		log.Ctx(ctx).Info().Msgf("[%d/%d] %s", i+1, len(entries), e.Title)
		items := a.collector.Collection(ctx, e.URL)
		if len(items) == 0 {
			log.Ctx(ctx).Info().Str("collection", e.Title).Str("url", e.URL).Msg("no extractable content")
		}
		arch.Add(archive.Collection{Title: e.Title, URL: e.URL, Items: items})

		if i == len(entries)-1 {
			break
		}
		if err := a.sleep(ctx, delay); err != nil {
			return arch, err
		}
	}
	log.Ctx(ctx).Info().Int("books", len(arch.Books)).Int("items", arch.ItemCount()).Dur("elapsed", a.now().Sub(started)).Msg("collection finished")
	return arch, nil
}

// politeness is the pause between collections: the configured delay,
// raised to the host's Crawl-delay when robots.txt asks for more.
func (a *App) politeness(ctx context.Context) time.Duration {
	delay := a.cfg.Delay
	if a.robots == nil {
		return delay
	}
	target := a.cfg.AuthorURL
	if a.cfg.ForceHTTP {
		target = fetch.ForceHTTP(target)
	}
	if d := a.robots.CrawlDelay(ctx, target); d > delay {
		log.Ctx(ctx).Info().Dur("crawl_delay", d).Msg("using robots.txt crawl delay")
		delay = d
	}
	return delay
}

// write saves the JSON archive, then the optional sinks. Only the JSON
// failure is returned.
func (a *App) write(ctx context.Context, arch *archive.AuthorArchive) error {
	if err := arch.Save(a.cfg.OutputPath); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	log.Ctx(ctx).Info().Str("path", a.cfg.OutputPath).Int("books", len(arch.Books)).Msg("archive written")

	if a.cfg.PDFPath != "" {
		if err := WritePDF(arch, a.cfg.PDFPath, a.cfg.PDFFont); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", a.cfg.PDFPath).Msg("pdf export failed")
		} else {
			log.Ctx(ctx).Info().Str("path", a.cfg.PDFPath).Msg("pdf written")
		}
	}
	if a.cfg.SQLitePath != "" {
		if err := a.saveSQLite(ctx, arch); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("path", a.cfg.SQLitePath).Msg("sqlite export failed")
		}
	}
	return nil
}

func (a *App) saveSQLite(ctx context.Context, arch *archive.AuthorArchive) error {
	s, err := store.Open(a.cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer s.Close()
	id, err := s.SaveArchive(ctx, arch, a.cfg.AuthorURL)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Info().Str("path", a.cfg.SQLitePath).Str("archive_id", id.String()).Msg("sqlite archive stored")
	return nil
}
