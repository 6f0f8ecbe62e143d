package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hyperifyio/litarchive/internal/app"
)

// parseConfig builds the run configuration. Precedence, lowest first:
// defaults, config file, environment, explicitly set flags.
func parseConfig(args []string) (app.Config, bool, error) {
	def := app.DefaultConfig()
	fromFlags := def

	var (
		configPath  string
		showVersion bool
	)
	fs := flag.NewFlagSet("litarchive", flag.ContinueOnError)
	fs.StringVar(&configPath, "config", os.Getenv("LITARCHIVE_CONFIG"), "Path to a YAML or JSON config file")
	fs.StringVar(&fromFlags.Author, "author", def.Author, "Author name written to the archive")
	fs.StringVar(&fromFlags.AuthorURL, "author.url", def.AuthorURL, "URL of the author index page")
	fs.StringVar(&fromFlags.OutputPath, "output", def.OutputPath, "Path of the JSON archive to write")
	fs.StringVar(&fromFlags.PDFPath, "pdf", "", "Also write a PDF reading copy to this path")
	fs.StringVar(&fromFlags.PDFFont, "pdf.font", "", "UTF-8 TTF font for the PDF (needed for Cyrillic)")
	fs.StringVar(&fromFlags.SQLitePath, "sqlite", "", "Also store the archive in this SQLite database")
	fs.DurationVar(&fromFlags.Delay, "delay", def.Delay, "Pause between collections")
	fs.DurationVar(&fromFlags.Timeout, "timeout", def.Timeout, "Per-request timeout")
	fs.IntVar(&fromFlags.Retries, "retries", def.Retries, "Extra attempts after a transient fetch failure")
	fs.DurationVar(&fromFlags.RetryDelay, "retry.delay", def.RetryDelay, "Pause between fetch attempts")
	fs.BoolVar(&fromFlags.InsecureTLS, "insecure", def.InsecureTLS, "Skip TLS certificate verification")
	fs.BoolVar(&fromFlags.ForceHTTP, "force-http", def.ForceHTTP, "Rewrite https:// URLs to http://")
	fs.StringVar(&fromFlags.Encoding, "encoding", def.Encoding, "Page encoding label, or 'auto' to sniff")
	fs.StringVar(&fromFlags.UserAgent, "ua", def.UserAgent, "User-Agent header")
	fs.BoolVar(&fromFlags.IgnoreRobots, "robots.ignore", false, "Do not consult robots.txt")
	fs.BoolVar(&fromFlags.Verbose, "v", false, "Verbose logging")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return def, false, err
		}
		return def, false, fmt.Errorf("%w: %v", app.ErrInvalidConfig, err)
	}
	if fs.NArg() > 0 {
		return def, false, fmt.Errorf("%w: unexpected arguments: %v", app.ErrInvalidConfig, fs.Args())
	}
	if showVersion {
		return def, true, nil
	}

	cfg := app.DefaultConfig()
	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			return def, false, fmt.Errorf("%w: %v", app.ErrInvalidConfig, err)
		}
		if err := app.ApplyFileConfig(&cfg, fc); err != nil {
			return def, false, err
		}
	}
	if err := app.ApplyEnvOverrides(&cfg); err != nil {
		return def, false, err
	}
	fs.Visit(func(f *flag.Flag) { applyFlag(&cfg, fromFlags, f.Name) })

	if err := app.ValidateConfig(cfg); err != nil {
		return def, false, err
	}
	return cfg, false, nil
}

func applyFlag(cfg *app.Config, src app.Config, name string) {
	switch name {
	case "author":
		cfg.Author = src.Author
	case "author.url":
		cfg.AuthorURL = src.AuthorURL
	case "output":
		cfg.OutputPath = src.OutputPath
	case "pdf":
		cfg.PDFPath = src.PDFPath
	case "pdf.font":
		cfg.PDFFont = src.PDFFont
	case "sqlite":
		cfg.SQLitePath = src.SQLitePath
	case "delay":
		cfg.Delay = src.Delay
	case "timeout":
		cfg.Timeout = src.Timeout
	case "retries":
		cfg.Retries = src.Retries
	case "retry.delay":
		cfg.RetryDelay = src.RetryDelay
	case "insecure":
		cfg.InsecureTLS = src.InsecureTLS
	case "force-http":
		cfg.ForceHTTP = src.ForceHTTP
	case "encoding":
		cfg.Encoding = src.Encoding
	case "ua":
		cfg.UserAgent = src.UserAgent
	case "robots.ignore":
		cfg.IgnoreRobots = src.IgnoreRobots
	case "v":
		cfg.Verbose = src.Verbose
	}
}
