package modtl

import "github.com/ZaguanLabs/modtl/placeholder"

// TranslationStyle controls the register of translations.
type TranslationStyle string

const (
	// StyleNeutral keeps the tone of the source.
	StyleNeutral TranslationStyle = "neutral"
	// StyleFormal uses formal address, suited to menus and system text.
	StyleFormal TranslationStyle = "formal"
	// StyleCasual uses conversational language, suited to NPC banter.
	StyleCasual TranslationStyle = "casual"
	// StyleImmersive favours in-world, lore-friendly wording.
	StyleImmersive TranslationStyle = "immersive"
	// StyleTechnical keeps terminology precise, suited to settings and tooltips.
	StyleTechnical TranslationStyle = "technical"
)

// Entry is one translatable string extracted from a localization file.
type Entry struct {
	ID       string             // Unique identifier within the document
	Key      string             // Localization key or element path
	Line     int                // 1-based line in the source file, 0 if unknown
	Text     string             // Source text (trimmed)
	Hash     string             // HashText(Text)
	NodeType string             // "html_text", "json_value", ...
	Context  string             // Disambiguation context for the provider
	Syntax   placeholder.Syntax // Embedded syntax checked after restore
	Metadata map[string]string
}

// TranslationConfig holds the translation settings shared by providers.
type TranslationConfig struct {
	TargetLang    string            // e.g. "ko_KR"
	SourceLang    string            // default "en"
	ExcludedTerms []string          // Terms to keep untranslated
	Context       string            // Global context, e.g. the mod's setting
	Glossary      map[string]string // Preferred translations
	Style         TranslationStyle
}

// ProcessedContent is the result of a translation run.
//
// A segment whose candidate could not be validated keeps its source text in
// Content and is listed in Failures. The run itself still succeeds.
type ProcessedContent struct {
	Content         string
	TranslatedCount int // Entries translated by the provider
	CachedCount     int // Entries served from cache
	RepairedCount   int // Candidates accepted after autofix
	TotalEntries    int
	Failures        []*placeholder.FailureReport
}

// RTLLanguages contains language codes that use right-to-left text direction.
var RTLLanguages = map[string]bool{
	"ar": true,
	"he": true,
	"fa": true,
	"ur": true,
	"ps": true,
	"sd": true,
	"ug": true,
}

// IgnoredTags contains HTML tags whose content is never translated.
var IgnoredTags = map[string]bool{
	"script":   true,
	"style":    true,
	"code":     true,
	"pre":      true,
	"textarea": true,
	"noscript": true,
}
