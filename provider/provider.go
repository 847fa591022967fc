// Package provider implements AI translation backends.
package provider

import "github.com/ZaguanLabs/modtl"

// AIProvider is the interface for AI translation backends.
// This is an alias to the main package interface for convenience.
type AIProvider = modtl.AIProvider

// TranslateRequest is an alias to the main package type.
type TranslateRequest = modtl.TranslateRequest
