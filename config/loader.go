package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ZaguanLabs/modtl"
	"gopkg.in/yaml.v3"
)

// apiKeyEnv names the variables consulted when provider.api_key is empty.
var apiKeyEnv = map[string][]string{
	"openai": {"OPENAI_API_KEY"},
	"gemini": {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
}

// EnvAPIKey returns the API key for a provider from its usual environment
// variables, or "".
func EnvAPIKey(provider string) string {
	for _, name := range apiKeyEnv[strings.ToLower(provider)] {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads configuration from a YAML or TOML file, chosen by extension.
// ${VAR} references are expanded from the environment before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	expanded := os.ExpandEnv(string(data))
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SourceLang == "" {
		c.SourceLang = "en"
	}
	if c.Translator.BatchSize <= 0 {
		c.Translator.BatchSize = 20
	}
	if c.Translator.Workers <= 0 {
		c.Translator.Workers = 1
	}
	if c.Translator.MaxAttempts <= 0 {
		c.Translator.MaxAttempts = 2
	}

	if c.Provider.Name == "" {
		c.Provider.Name = "openai"
	}
	c.Provider.Name = strings.ToLower(c.Provider.Name)
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 60 * time.Second
	}
	if c.Provider.APIKey == "" {
		c.Provider.APIKey = EnvAPIKey(c.Provider.Name)
	}

	def := modtl.DefaultRetryPolicy()
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = def.MaxRetries
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = def.BaseDelay
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = def.MaxDelay
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.TTL == 0 {
		c.Cache.TTL = time.Hour
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "openai", "gemini":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider.Name)
	}
	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache backend redis requires redis_url")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry delays must satisfy 0 <= base_delay <= max_delay")
	}
	return nil
}
