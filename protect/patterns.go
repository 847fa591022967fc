package protect

import (
	"regexp"
)

// FindFunc returns the [start, end) byte spans of all candidate matches in s.
type FindFunc func(s string) [][]int

// Rule binds a class to the function that finds its spans.
type Rule struct {
	Class Class
	Find  FindFunc
}

// RegexpRule builds a Rule from a regular expression.
func RegexpRule(c Class, expr string) Rule {
	re := regexp.MustCompile(expr)
	return Rule{Class: c, Find: func(s string) [][]int {
		return re.FindAllStringIndex(s, -1)
	}}
}

// Patterns is an immutable, ordered table of protection rules. Build it once
// with DefaultPatterns or NewPatterns and share it between goroutines.
type Patterns struct {
	rules []Rule
	scan  *regexp.Regexp
}

// NewPatterns builds a table from rules in priority order: earlier rules claim
// their spans before later ones are considered.
func NewPatterns(rules ...Rule) *Patterns {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Patterns{rules: r, scan: MarkerPattern()}
}

// Rules returns a copy of the rule list.
func (p *Patterns) Rules() []Rule {
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}

// DefaultPatterns returns the standard rule table used for game-mod
// localization strings.
func DefaultPatterns() *Patterns {
	return NewPatterns(DefaultRules()...)
}

// DefaultRules returns the standard rules, most structurally specific first.
func DefaultRules() []Rule {
	return []Rule{
		RegexpRule(ClassLiteral, `[⟦⟧]+`),
		{Class: ClassICU, Find: icuFinder()},
		RegexpRule(ClassTemplate, `\{\{[^{}]+\}\}`),
		RegexpRule(ClassRichText, `(?i)</?(?:b|i|u|s|color|size|material|quad|sprite|link|align|mark|sub|sup|font|voffset|nobr|lowercase|uppercase|smallcaps|indent|line-height|cspace|mspace|pos|margin|style|alpha|gradient|rotate|width)(?:=[^<>]*)?\s*/?>`),
		RegexpRule(ClassColor, `§[0-9A-Za-z!]`),
		RegexpRule(ClassTag, `</?[A-Za-z][\w:.-]*(?:\s+[^<>]*)?/?>`),
		RegexpRule(ClassDoubleBracket, `\[\[[^\[\]]+\]\]`),
		RegexpRule(ClassEngine, `\[[A-Za-z_]\w*(?:\.[\w|']+)+\]`),
		RegexpRule(ClassBBCode, `(?i)\[/?(?:b|i|u|s|h1|h2|h3|url|img|quote|code|list|olist|table|tr|th|td|hr|spoiler|noparse|strike|color|size|center|\*)(?:=[^\]]*)?\]`),
		RegexpRule(ClassEscBrace, `\{\{|\}\}`),
		RegexpRule(ClassEscPercent, `%%`),
		RegexpRule(ClassPrintf, `%(?:\d+\$)?[-+0#]*\d*(?:\.\d+)?(?:hh|h|ll|l|L|q|j|z|t)?[sdifuxXoeEgGcpb@]`),
		RegexpRule(ClassKey, `\$[A-Za-z_][\w.]*\$`),
		RegexpRule(ClassMath, `\$[^$\n]*[\^_=+\\][^$\n]*\$`),
		RegexpRule(ClassShell, `\$\{[A-Za-z_]\w*\}|\$[A-Za-z_]\w*`),
		RegexpRule(ClassDotNet, `\{\d+(?:,-?\d+)?(?::[^{}]+)?\}`),
		RegexpRule(ClassNamed, `\{[A-Za-z_][\w.\-]*\}`),
		RegexpRule(ClassScientific, `\b\d+(?:\.\d+)?[eE][+-]?\d+\b`),
		RegexpRule(ClassRange, `\b\d+(?:\.\d+)?\s?[-–~]\s?\d+(?:\.\d+)?\b`),
		RegexpRule(ClassPercent, `\b\d+(?:\.\d+)?%`),
		// Single-letter units must touch the number; "Chapter 3 A" is prose.
		RegexpRule(ClassUnit, `\b\d+(?:\.\d+)?(?:\s?(?:kg|mg|km|cm|mm|ms|min|px|pt|em|°C|°F|Hz|kHz|MHz|GHz|KB|MB|GB|TB|kW|kJ|ml)|[gmshWVAJL])\b`),
		RegexpRule(ClassAttr, `\b[A-Za-z_][\w-]*=(?:"[^"]*"|'[^']*')`),
		RegexpRule(ClassEntity, `&(?:[A-Za-z][A-Za-z0-9]*|#\d+|#[xX][0-9A-Fa-f]+);`),
		RegexpRule(ClassEscape, `\\[ntr]`),
		RegexpRule(ClassPipe, `\|`),
		RegexpRule(ClassPath, `(?:[\w.-]+/)+[\w-]+\.\w+|\b[A-Za-z_]\w+(?:\.[A-Za-z_]\w*)+\b|\b[a-z][a-z0-9]*_[a-z0-9_]+\b`),
	}
}

// icuFinder locates {arg, plural|select|selectordinal, ...} blocks with
// balanced nested braces. Unterminated blocks are left for later rules.
func icuFinder() FindFunc {
	head := regexp.MustCompile(`^\{\s*[A-Za-z_][\w]*\s*,\s*(?:plural|selectordinal|select)\s*,`)
	return func(s string) [][]int {
		var spans [][]int
		for i := 0; i < len(s); i++ {
			if s[i] != '{' || !head.MatchString(s[i:]) {
				continue
			}
			end := matchBrace(s, i)
			if end < 0 {
				continue
			}
			spans = append(spans, []int{i, end})
			i = end - 1
		}
		return spans
	}
}

// matchBrace returns the offset just past the brace closing the one at open,
// or -1. Text quoted with ICU apostrophes does not count.
func matchBrace(s string, open int) int {
	depth := 0
	quoted := false
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				i++
				continue
			}
			if i+1 < len(s) && (s[i+1] == '{' || s[i+1] == '}') || quoted {
				quoted = !quoted
			}
		case '{':
			if !quoted {
				depth++
			}
		case '}':
			if !quoted {
				depth--
				if depth == 0 {
					return i + 1
				}
			}
		}
	}
	return -1
}
