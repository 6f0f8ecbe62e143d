package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the single-file configuration schema. Durations are Go
// duration strings ("1s", "1500ms") so YAML and JSON read the same.
type FileConfig struct {
	Author    string `yaml:"author" json:"author"`
	AuthorURL string `yaml:"authorURL" json:"authorURL"`
	Output    string `yaml:"output" json:"output"`

	PDF struct {
		Path string `yaml:"path" json:"path"`
		Font string `yaml:"font" json:"font"`
	} `yaml:"pdf" json:"pdf"`

	SQLite string `yaml:"sqlite" json:"sqlite"`

	HTTP struct {
		Delay      string `yaml:"delay" json:"delay"`
		Timeout    string `yaml:"timeout" json:"timeout"`
		Retries    *int   `yaml:"retries" json:"retries"`
		RetryDelay string `yaml:"retryDelay" json:"retryDelay"`
		Insecure   *bool  `yaml:"insecure" json:"insecure"`
		ForceHTTP  *bool  `yaml:"forceHTTP" json:"forceHTTP"`
		Encoding   string `yaml:"encoding" json:"encoding"`
		UA         string `yaml:"ua" json:"ua"`
	} `yaml:"http" json:"http"`

	Robots struct {
		Ignore bool `yaml:"ignore" json:"ignore"`
	} `yaml:"robots" json:"robots"`

	Verbose bool `yaml:"verbose" json:"verbose"`

	Site struct {
		IndexSelector       string   `yaml:"indexSelector" json:"indexSelector"`
		LinkSelector        string   `yaml:"linkSelector" json:"linkSelector"`
		ContentSelector     string   `yaml:"contentSelector" json:"contentSelector"`
		WorkPattern         string   `yaml:"workPattern" json:"workPattern"`
		ContinuationPattern string   `yaml:"continuationPattern" json:"continuationPattern"`
		Coauthors           []string `yaml:"coauthors" json:"coauthors"`
		MinLinkText         int      `yaml:"minLinkText" json:"minLinkText"`
		FullTextTitle       string   `yaml:"fullTextTitle" json:"fullTextTitle"`
		SingleTitle         string   `yaml:"singleTitle" json:"singleTitle"`
	} `yaml:"site" json:"site"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays every value the file sets onto cfg. It runs
// before env and flags, which override it.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if cfg == nil {
		return nil
	}
	setStr := func(dst *string, v string) {
		if trim(v) != "" {
			*dst = v
		}
	}
	setDur := func(dst *time.Duration, v, name string) error {
		if trim(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(trim(v))
		if err != nil {
			return fmt.Errorf("%w: http.%s: %v", ErrInvalidConfig, name, err)
		}
		*dst = d
		return nil
	}

	setStr(&cfg.Author, fc.Author)
	setStr(&cfg.AuthorURL, fc.AuthorURL)
	setStr(&cfg.OutputPath, fc.Output)
	setStr(&cfg.PDFPath, fc.PDF.Path)
	setStr(&cfg.PDFFont, fc.PDF.Font)
	setStr(&cfg.SQLitePath, fc.SQLite)

	if err := setDur(&cfg.Delay, fc.HTTP.Delay, "delay"); err != nil {
		return err
	}
	if err := setDur(&cfg.Timeout, fc.HTTP.Timeout, "timeout"); err != nil {
		return err
	}
	if err := setDur(&cfg.RetryDelay, fc.HTTP.RetryDelay, "retryDelay"); err != nil {
		return err
	}
	if fc.HTTP.Retries != nil {
		cfg.Retries = *fc.HTTP.Retries
	}
	if fc.HTTP.Insecure != nil {
		cfg.InsecureTLS = *fc.HTTP.Insecure
	}
	if fc.HTTP.ForceHTTP != nil {
		cfg.ForceHTTP = *fc.HTTP.ForceHTTP
	}
	setStr(&cfg.Encoding, fc.HTTP.Encoding)
	setStr(&cfg.UserAgent, fc.HTTP.UA)
	if fc.Robots.Ignore {
		cfg.IgnoreRobots = true
	}
	if fc.Verbose {
		cfg.Verbose = true
	}

	s := &cfg.Site
	setStr(&s.IndexSelector, fc.Site.IndexSelector)
	setStr(&s.LinkSelector, fc.Site.LinkSelector)
	setStr(&s.ContentSelector, fc.Site.ContentSelector)
	setStr(&s.WorkPattern, fc.Site.WorkPattern)
	setStr(&s.ContinuationPattern, fc.Site.ContinuationPattern)
	setStr(&s.FullTextTitle, fc.Site.FullTextTitle)
	setStr(&s.SingleTitle, fc.Site.SingleTitle)
	if fc.Site.Coauthors != nil {
		s.Coauthors = append([]string(nil), fc.Site.Coauthors...)
	}
	if fc.Site.MinLinkText > 0 {
		s.MinLinkText = fc.Site.MinLinkText
	}
	return nil
}
