package modtl

import (
	"strings"

	"github.com/ZaguanLabs/modtl/protect"
)

// HashText computes the SHA-256 hash of the trimmed text. Entries with the
// same hash are translated once.
func HashText(text string) string {
	return protect.ContentHash(strings.TrimSpace(text))
}

// CacheKey builds the cache key for a masked string. Keying on the masked
// text lets strings that differ only in their placeholders share a
// translation.
func CacheKey(masked, sourceLang, targetLang string) string {
	return protect.ContentHash(masked) + ":" + normalizeBaseLang(sourceLang) + ":" + targetLang
}

// CacheKeyExtended adds the model name to CacheKey, for callers that keep
// translations from different models apart.
func CacheKeyExtended(masked, sourceLang, targetLang, model string) string {
	return CacheKey(masked, sourceLang, targetLang) + ":" + model
}
