package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides overrides cfg fields with environment variables that
// are set. Env sits between the config file and flags.
func ApplyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if v := os.Getenv("AUTHOR_NAME"); v != "" {
		cfg.Author = v
	}
	if v := os.Getenv("AUTHOR_URL"); v != "" {
		cfg.AuthorURL = v
	}
	if v := os.Getenv("OUTPUT_PATH"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("PDF_OUTPUT"); v != "" {
		cfg.PDFPath = v
	}
	if v := os.Getenv("PDF_FONT"); v != "" {
		cfg.PDFFont = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("FETCH_ENCODING"); v != "" {
		cfg.Encoding = v
	}
	if v := os.Getenv("USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"FETCH_DELAY", &cfg.Delay},
		{"FETCH_TIMEOUT", &cfg.Timeout},
		{"FETCH_RETRY_DELAY", &cfg.RetryDelay},
	}
	for _, d := range durations {
		if s := strings.TrimSpace(os.Getenv(d.key)); s != "" {
			v, err := time.ParseDuration(s)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, d.key, err)
			}
			*d.dst = v
		}
	}
	if s := strings.TrimSpace(os.Getenv("FETCH_RETRIES")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: FETCH_RETRIES: %v", ErrInvalidConfig, err)
		}
		cfg.Retries = n
	}

	// Booleans override when env present and truthy/falsey
	setBool := func(dst *bool, envKey string) {
		switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
		case "1", "true", "yes", "on":
			*dst = true
		case "0", "false", "no", "off":
			*dst = false
		}
	}
	setBool(&cfg.InsecureTLS, "FETCH_INSECURE")
	setBool(&cfg.ForceHTTP, "FORCE_HTTP")
	setBool(&cfg.IgnoreRobots, "ROBOTS_IGNORE")
	setBool(&cfg.Verbose, "VERBOSE")
	return nil
}
