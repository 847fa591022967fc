// Package config loads modtl settings from a YAML or TOML file.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/placeholder"
)

// Config represents the top-level configuration.
type Config struct {
	SourceLang string            `yaml:"source_lang" toml:"source_lang"`
	TargetLang string            `yaml:"target_lang" toml:"target_lang"`
	Context    string            `yaml:"context"     toml:"context"`
	Style      string            `yaml:"style"       toml:"style"`
	Glossary   map[string]string `yaml:"glossary"    toml:"glossary"`
	Exclude    []string          `yaml:"exclude"     toml:"exclude"`

	Translator TranslatorConfig `yaml:"translator" toml:"translator"`
	Provider   ProviderConfig   `yaml:"provider"   toml:"provider"`
	Retry      RetryConfig      `yaml:"retry"      toml:"retry"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" toml:"rate_limit"`
	Validation ValidationConfig `yaml:"validation" toml:"validation"`
	Cache      CacheConfig      `yaml:"cache"      toml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"    toml:"logging"`
}

// TranslatorConfig holds batching settings.
type TranslatorConfig struct {
	BatchSize   int `yaml:"batch_size"   toml:"batch_size"`
	Workers     int `yaml:"workers"      toml:"workers"`
	MaxAttempts int `yaml:"max_attempts" toml:"max_attempts"` // validation attempts per segment
}

// ProviderConfig selects and configures the AI backend.
type ProviderConfig struct {
	Name        string        `yaml:"name"        toml:"name"` // openai, gemini
	Model       string        `yaml:"model"       toml:"model"`
	APIKey      string        `yaml:"api_key"     toml:"api_key"`
	BaseURL     string        `yaml:"base_url"    toml:"base_url"`
	Temperature float32       `yaml:"temperature" toml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"     toml:"timeout"`
}

// RetryConfig mirrors modtl.RetryPolicy. Zero values use the defaults.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" toml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"  toml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"   toml:"max_delay"`
}

// RateLimitConfig mirrors modtl.RateLimitConfig. Zero disables the limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute"`
	Burst             int `yaml:"burst"               toml:"burst"`
}

// ValidationConfig mirrors placeholder.Options. Unset fields keep the
// validator defaults.
type ValidationConfig struct {
	AutoFix        *bool `yaml:"autofix"         toml:"autofix"`
	StrictPairing  *bool `yaml:"strict_pairing"  toml:"strict_pairing"`
	PercentBinding *bool `yaml:"percent_binding" toml:"percent_binding"`
}

// CacheConfig selects the translation cache.
type CacheConfig struct {
	Backend    string        `yaml:"backend"     toml:"backend"` // memory, redis, none
	TTL        time.Duration `yaml:"ttl"         toml:"ttl"`
	MaxEntries int           `yaml:"max_entries" toml:"max_entries"`
	RedisURL   string        `yaml:"redis_url"   toml:"redis_url"`
	KeyPrefix  string        `yaml:"key_prefix"  toml:"key_prefix"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"` // debug, info, warn, error
}

// RetryPolicy returns the configured retry policy.
func (c *Config) RetryPolicy() modtl.RetryPolicy {
	return modtl.RetryPolicy{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  c.Retry.BaseDelay,
		MaxDelay:   c.Retry.MaxDelay,
	}
}

// RateLimiter returns a limiter, or nil when rate limiting is disabled.
func (c *Config) RateLimiter() *modtl.RateLimiter {
	if c.RateLimit.RequestsPerMinute <= 0 {
		return nil
	}
	return modtl.NewRateLimiter(modtl.RateLimitConfig{
		RequestsPerMinute: c.RateLimit.RequestsPerMinute,
		BurstSize:         c.RateLimit.Burst,
	})
}

// ValidationOptions returns the validator options.
func (c *Config) ValidationOptions() placeholder.Options {
	opts := placeholder.DefaultOptions()
	if c.Validation.AutoFix != nil {
		opts.AutoFix = *c.Validation.AutoFix
	}
	if c.Validation.StrictPairing != nil {
		opts.StrictPairing = *c.Validation.StrictPairing
	}
	if c.Validation.PercentBinding != nil {
		opts.PercentBinding = *c.Validation.PercentBinding
	}
	return opts
}

// TranslationStyle returns the configured style.
func (c *Config) TranslationStyle() modtl.TranslationStyle {
	return modtl.TranslationStyle(c.Style)
}

// LogLevel parses Logging.Level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
