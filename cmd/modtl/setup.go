package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/cache"
	"github.com/ZaguanLabs/modtl/config"
	"github.com/ZaguanLabs/modtl/processor"
	"github.com/ZaguanLabs/modtl/provider"
)

// newProcessor picks a content processor from an explicit format or the
// input file extension. Stdin without --format is treated as HTML.
func newProcessor(format, inputPath string) (modtl.ContentProcessor, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(inputPath)), ".")
	}
	switch format {
	case "", "html", "htm":
		return processor.NewHTMLProcessor(), nil
	case "json":
		return processor.NewJSONProcessor(), nil
	case "yaml", "yml":
		return processor.NewYAMLProcessor(), nil
	}
	return nil, fmt.Errorf("unsupported format %q (want html, json or yaml)", format)
}

// readInput reads the named file, or stdin when args is empty.
func readInput(args []string, stdin io.Reader) (content, name, path string, err error) {
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", "", nil
	}
	data, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", "", "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), filepath.Base(args[0]), args[0], nil
}

// newProvider builds the configured backend wrapped with rate limiting and
// retries. Hinted delays pause the shared limiter.
func newProvider(cfg *config.Config) (modtl.AIProvider, error) {
	pc := cfg.Provider
	if pc.APIKey == "" {
		return nil, fmt.Errorf("API key required for provider %s (provider.api_key or --api-key)", pc.Name)
	}

	var p modtl.AIProvider
	switch pc.Name {
	case "gemini":
		p = provider.NewGeminiProvider(provider.GeminiConfig{
			APIKey:      pc.APIKey,
			Model:       pc.Model,
			Temperature: pc.Temperature,
			BaseURL:     pc.BaseURL,
			Timeout:     pc.Timeout,
		})
	default:
		p = provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey:      pc.APIKey,
			Model:       pc.Model,
			Temperature: pc.Temperature,
			BaseURL:     pc.BaseURL,
			Timeout:     pc.Timeout,
		})
	}

	retryOpts := []modtl.RetryOption{modtl.WithRetryLogger(slog.Default())}
	if limiter := cfg.RateLimiter(); limiter != nil {
		p = modtl.NewRateLimitedProvider(p, limiter)
		retryOpts = append(retryOpts, modtl.WithRetryLimiter(limiter))
	}
	return modtl.NewRetryableProvider(p, cfg.RetryPolicy(), retryOpts...), nil
}

// translationCache is a cache that may hold a connection.
type translationCache interface {
	modtl.TranslationCache
	io.Closer
}

type nopCloser struct{ modtl.TranslationCache }

func (nopCloser) Close() error { return nil }

// newCache builds the configured cache. It returns nil for backend "none".
func newCache(ctx context.Context, cc config.CacheConfig) (translationCache, error) {
	switch cc.Backend {
	case "none":
		return nil, nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			URL:       cc.RedisURL,
			TTL:       cc.TTL,
			KeyPrefix: cc.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		var opts []cache.MemoryOption
		if cc.MaxEntries > 0 {
			opts = append(opts, cache.WithMaxEntries(cc.MaxEntries))
		}
		return nopCloser{cache.NewInMemoryCache(cc.TTL, opts...)}, nil
	}
}
