package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("FOO", "")
	t.Setenv("BAR", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nFOO=alpha\nexport BAR='beta'\nnot a pair\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("FOO"); got != "alpha" {
		t.Fatalf("FOO=%q, want alpha", got)
	}
	if got := os.Getenv("BAR"); got != "beta" {
		t.Fatalf("BAR=%q, want beta", got)
	}
}

// Later files override earlier ones; values from the shell are kept.
func TestLoadEnvFiles_OverrideOrder(t *testing.T) {
	t.Setenv("K", "")
	t.Setenv("SHELL_SET", "shell")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\nSHELL_SET=file\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}

	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
	if got := os.Getenv("SHELL_SET"); got != "shell" {
		t.Fatalf("shell value replaced: got %q", got)
	}
}

func TestApplyEnvOverrides_FromEnv(t *testing.T) {
	t.Setenv("AUTHOR_URL", "http://example.org/index.html")
	t.Setenv("OUTPUT_PATH", "env.json")
	t.Setenv("FETCH_DELAY", "250ms")
	t.Setenv("FETCH_RETRIES", "7")
	t.Setenv("FETCH_INSECURE", "false")
	t.Setenv("ROBOTS_IGNORE", "yes")

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(&cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides: %v", err)
	}
	if cfg.AuthorURL != "http://example.org/index.html" || cfg.OutputPath != "env.json" {
		t.Fatalf("string overrides not applied: %+v", cfg)
	}
	if cfg.Delay != 250*time.Millisecond || cfg.Retries != 7 {
		t.Fatalf("numeric overrides not applied: delay=%v retries=%d", cfg.Delay, cfg.Retries)
	}
	if cfg.InsecureTLS {
		t.Fatalf("FETCH_INSECURE=false should disable insecure TLS")
	}
	if !cfg.IgnoreRobots {
		t.Fatalf("ROBOTS_IGNORE=yes should disable robots")
	}
	if !cfg.ForceHTTP {
		t.Fatalf("unset FORCE_HTTP must keep the default")
	}
}

func TestApplyEnvOverrides_BadValues(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "forever")
	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(&cfg); err == nil {
		t.Fatalf("expected error for bad duration")
	}

	t.Setenv("FETCH_TIMEOUT", "")
	t.Setenv("FETCH_RETRIES", "many")
	if err := ApplyEnvOverrides(&cfg); err == nil {
		t.Fatalf("expected error for bad retries")
	}
}
