package modtl

import "strings"

type locale struct {
	name string
	// clarification disambiguates regional variants for the provider.
	clarification string
}

var locales = map[string]locale{
	"en_US": {"English (United States)", "Use American spelling and vocabulary."},
	"en_GB": {"English (United Kingdom)", "Use British spelling and vocabulary."},
	"de_DE": {"German (Germany)", ""},
	"es_ES": {"Spanish (Spain)", "Use Castilian Spanish as spoken in Spain (vosotros forms)."},
	"es_MX": {"Spanish (Mexico)", "Use Latin American Spanish as spoken in Mexico (ustedes, no vosotros)."},
	"fr_FR": {"French (France)", ""},
	"fr_CA": {"French (Canada)", "Use Canadian French vocabulary."},
	"it_IT": {"Italian (Italy)", ""},
	"ja_JP": {"Japanese (Japan)", ""},
	"ko_KR": {"Korean (South Korea)", "Use standard South Korean. Keep game UI labels short."},
	"pt_BR": {"Portuguese (Brazil)", "Use Brazilian Portuguese, not European Portuguese."},
	"pt_PT": {"Portuguese (Portugal)", "Use European Portuguese, not Brazilian Portuguese."},
	"zh_CN": {"Chinese (Simplified)", "Use Simplified Chinese characters as used in mainland China."},
	"zh_TW": {"Chinese (Traditional)", "Use Traditional Chinese characters and Taiwanese vocabulary."},
	"ru_RU": {"Russian (Russia)", ""},
	"pl_PL": {"Polish (Poland)", ""},
	"tr_TR": {"Turkish (Turkey)", ""},
	"uk_UA": {"Ukrainian (Ukraine)", ""},
	"cs_CZ": {"Czech (Czech Republic)", ""},
	"hu_HU": {"Hungarian (Hungary)", ""},
	"nl_NL": {"Dutch (Netherlands)", ""},
	"sv_SE": {"Swedish (Sweden)", ""},
	"nb_NO": {"Norwegian Bokmål (Norway)", "Use Bokmål, not Nynorsk."},
	"da_DK": {"Danish (Denmark)", ""},
	"fi_FI": {"Finnish (Finland)", ""},
	"th_TH": {"Thai (Thailand)", ""},
	"vi_VN": {"Vietnamese (Vietnam)", ""},
	"id_ID": {"Indonesian (Indonesia)", ""},
	"ar_SA": {"Arabic (Saudi Arabia)", "Use Modern Standard Arabic."},
	"he_IL": {"Hebrew (Israel)", ""},
	"fa_IR": {"Persian (Iran)", ""},
}

// ShortCodeToLocale maps short language codes to full locale codes.
var ShortCodeToLocale = map[string]string{
	"en": "en_US",
	"de": "de_DE",
	"es": "es_ES",
	"fr": "fr_FR",
	"it": "it_IT",
	"ja": "ja_JP",
	"ko": "ko_KR",
	"pt": "pt_BR",
	"zh": "zh_CN",
	"ru": "ru_RU",
	"pl": "pl_PL",
	"tr": "tr_TR",
	"ar": "ar_SA",
	"he": "he_IL",
}

func lookupLocale(code string) (locale, bool) {
	code = NormalizeLocale(code)
	if l, ok := locales[code]; ok {
		return l, true
	}
	if full, ok := ShortCodeToLocale[strings.ToLower(code)]; ok {
		l, ok := locales[full]
		return l, ok
	}
	return locale{}, false
}

// GetLanguageName returns the human-readable name for a language code, or the
// code itself if unknown.
func GetLanguageName(code string) string {
	if l, ok := lookupLocale(code); ok {
		return l.name
	}
	return code
}

// GetLocaleClarification returns a regional-variant instruction for the
// provider, or "" when none is needed.
func GetLocaleClarification(code string) string {
	l, _ := lookupLocale(code)
	return l.clarification
}

var styleDescriptions = map[TranslationStyle]string{
	StyleNeutral:   "Use a neutral tone that follows the source text.",
	StyleFormal:    "Use formal address and polished wording suitable for menus and system messages.",
	StyleCasual:    "Use relaxed, conversational language suitable for character dialogue.",
	StyleImmersive: "Use in-world, lore-friendly wording that fits the game's setting. Avoid modern slang.",
	StyleTechnical: "Use precise, consistent terminology suitable for settings, tooltips and mod configuration.",
}

// GetStyleDescription returns the prompt text for a style. Unknown and empty
// styles fall back to neutral.
func GetStyleDescription(style TranslationStyle) string {
	if d, ok := styleDescriptions[style]; ok {
		return d
	}
	return styleDescriptions[StyleNeutral]
}

// GetDirection returns "rtl" for right-to-left languages, "ltr" otherwise.
func GetDirection(code string) string {
	if RTLLanguages[normalizeBaseLang(code)] {
		return "rtl"
	}
	return "ltr"
}

// IsRTL returns true if the language uses right-to-left text direction.
func IsRTL(code string) bool {
	return GetDirection(code) == "rtl"
}

// NormalizeLocale converts "es-ES" to "es_ES".
func NormalizeLocale(code string) string {
	return strings.ReplaceAll(code, "-", "_")
}

// ToHTMLLang converts "es_ES" to "es-ES".
func ToHTMLLang(code string) string {
	return strings.ReplaceAll(code, "_", "-")
}

// normalizeBaseLang extracts the lower-case base language ("en" from "en_US").
func normalizeBaseLang(code string) string {
	base, _, _ := strings.Cut(NormalizeLocale(code), "_")
	return strings.ToLower(base)
}
