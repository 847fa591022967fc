package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/modtl"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "modtl.yaml", `
target_lang: ko_KR
context: Stardew Valley expansion
style: immersive
glossary:
  Junimo: 주니모
exclude: [Pelican Town]
translator:
  batch_size: 10
  workers: 4
provider:
  name: gemini
  model: gemini-2.5-flash
  api_key: abc
  timeout: 30s
retry:
  max_retries: 3
  base_delay: 500ms
  max_delay: 20s
rate_limit:
  requests_per_minute: 30
validation:
  autofix: false
cache:
  backend: memory
  ttl: 2h
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TargetLang != "ko_KR" || cfg.SourceLang != "en" {
		t.Errorf("Unexpected languages: %q -> %q", cfg.SourceLang, cfg.TargetLang)
	}
	if cfg.Glossary["Junimo"] != "주니모" || len(cfg.Exclude) != 1 {
		t.Errorf("Unexpected glossary or exclusions: %+v %+v", cfg.Glossary, cfg.Exclude)
	}
	if cfg.TranslationStyle() != modtl.StyleImmersive {
		t.Errorf("Expected immersive style, got %q", cfg.Style)
	}
	if cfg.Translator.BatchSize != 10 || cfg.Translator.Workers != 4 || cfg.Translator.MaxAttempts != 2 {
		t.Errorf("Unexpected translator settings: %+v", cfg.Translator)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.Provider.Timeout)
	}

	policy := cfg.RetryPolicy()
	if policy.MaxRetries != 3 || policy.BaseDelay != 500*time.Millisecond || policy.MaxDelay != 20*time.Second {
		t.Errorf("Unexpected retry policy: %+v", policy)
	}

	opts := cfg.ValidationOptions()
	if opts.AutoFix || !opts.StrictPairing || !opts.PercentBinding {
		t.Errorf("Unexpected validation options: %+v", opts)
	}
	if cfg.RateLimiter() == nil {
		t.Error("Expected a rate limiter")
	}
	if cfg.Cache.TTL != 2*time.Hour {
		t.Errorf("Expected 2h TTL, got %v", cfg.Cache.TTL)
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel())
	}
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "modtl.toml", `
target_lang = "de_DE"

[provider]
name = "openai"
api_key = "sk-test"

[retry]
base_delay = "2s"
max_delay = "1m"

[cache]
backend = "none"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TargetLang != "de_DE" {
		t.Errorf("Expected de_DE, got %q", cfg.TargetLang)
	}
	if cfg.Retry.BaseDelay != 2*time.Second || cfg.Retry.MaxDelay != time.Minute {
		t.Errorf("Unexpected retry delays: %+v", cfg.Retry)
	}
	if cfg.Retry.MaxRetries != modtl.DefaultRetryPolicy().MaxRetries {
		t.Errorf("Expected default max retries, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("Expected cache disabled, got %q", cfg.Cache.Backend)
	}
}

func TestLoad_EnvSubstitution(t *testing.T) {
	t.Setenv("MODTL_TEST_REDIS", "redis://localhost:6379/2")

	path := writeConfig(t, "modtl.yaml", `
provider:
  api_key: x
cache:
  backend: redis
  redis_url: ${MODTL_TEST_REDIS}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Cache.RedisURL != "redis://localhost:6379/2" {
		t.Errorf("Expected expanded URL, got %s", cfg.Cache.RedisURL)
	}
}

func TestLoad_APIKeyFromEnv(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "google-key")

	path := writeConfig(t, "modtl.yaml", "provider:\n  name: Gemini\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Provider.Name != "gemini" || cfg.Provider.APIKey != "google-key" {
		t.Errorf("Expected gemini with env key, got %+v", cfg.Provider)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown provider", "provider:\n  name: llama\n", "unknown provider"},
		{"redis without url", "cache:\n  backend: redis\n", "redis_url"},
		{"unknown cache", "cache:\n  backend: disk\n", "unknown cache backend"},
		{"bad delays", "retry:\n  base_delay: 10s\n  max_delay: 1s\n", "retry delays"},
		{"bad yaml", "target_lang: [", "parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "modtl.yaml", tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Provider.Name != "openai" || cfg.Cache.Backend != "memory" {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.RetryPolicy() != modtl.DefaultRetryPolicy() {
		t.Errorf("Expected default retry policy, got %+v", cfg.RetryPolicy())
	}
	if cfg.RateLimiter() != nil {
		t.Error("Rate limiting should be off by default")
	}
	if cfg.LogLevel() != slog.LevelInfo {
		t.Errorf("Expected info level, got %v", cfg.LogLevel())
	}
}
