// Package cache stores accepted translations of masked strings.
//
// Values are the validated masked candidates, still carrying ⟦MT:CLASS:n⟧
// markers. Restoring a cached value with a different fragment's token map
// lets strings that differ only in their placeholder values share an entry.
package cache

import "github.com/ZaguanLabs/modtl/protect"

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	// Get retrieves a cached translation. Returns empty string and false if not found or expired.
	Get(key string) (string, bool)

	// Set stores a translation in the cache.
	Set(key string, value string) error
}

// Enumerable caches can list their live entries for export.
type Enumerable interface {
	TranslationCache
	Entries() (map[string]string, error)
}

// markerShape matches anything that looks like a marker, known class or not.
var markerShape = protect.MarkerPattern()

// ValidValue reports whether every marker-shaped span in v parses as a
// marker of a known class.
func ValidValue(v string) bool {
	for _, m := range markerShape.FindAllString(v, -1) {
		c, _, ok := protect.ParseMarker(m)
		if !ok || !c.Valid() {
			return false
		}
	}
	return true
}
