// Package processor extracts translatable entries from localization files
// and writes translations back in place.
package processor

import "github.com/ZaguanLabs/modtl"

// ContentProcessor is an alias to the main package interface.
type ContentProcessor = modtl.ContentProcessor

// Entry is an alias to the main package type.
type Entry = modtl.Entry
