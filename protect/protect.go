package protect

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Token is one protected span of the original string.
type Token struct {
	Class  Class
	Start  int // byte offset in the original, inclusive
	End    int // byte offset in the original, exclusive
	Value  string
	Marker string
}

// TokenMap is the ordered token inventory of one fragment.
type TokenMap struct {
	Hash   string // SHA-256 of the original string
	Tokens []Token
}

// Fragment is the result of protecting one string.
type Fragment struct {
	original string
	masked   string
	tokens   TokenMap
	index    map[string]int
	scan     *regexp.Regexp
}

// Original returns the unmodified input.
func (f *Fragment) Original() string { return f.original }

// Masked returns the input with every protected span replaced by its marker.
func (f *Fragment) Masked() string { return f.masked }

// Hash returns the content hash of the original string.
func (f *Fragment) Hash() string { return f.tokens.Hash }

// Len returns the number of protected tokens.
func (f *Fragment) Len() int { return len(f.tokens.Tokens) }

// TokenMap returns a copy of the fragment's token map.
func (f *Fragment) TokenMap() TokenMap {
	toks := make([]Token, len(f.tokens.Tokens))
	copy(toks, f.tokens.Tokens)
	return TokenMap{Hash: f.tokens.Hash, Tokens: toks}
}

// Lookup returns the token a marker stands for.
func (f *Fragment) Lookup(marker string) (Token, bool) {
	i, ok := f.index[marker]
	if !ok {
		return Token{}, false
	}
	return f.tokens.Tokens[i], true
}

// Markers returns the fragment's markers in source order.
func (f *Fragment) Markers() []string {
	out := make([]string, len(f.tokens.Tokens))
	for i, t := range f.tokens.Tokens {
		out[i] = t.Marker
	}
	return out
}

// Protector masks protectable spans according to a pattern table.
// It holds no mutable state and is safe for concurrent use.
type Protector struct {
	patterns *Patterns
}

// NewProtector creates a protector. A nil table selects DefaultPatterns.
func NewProtector(p *Patterns) *Protector {
	if p == nil {
		p = DefaultPatterns()
	}
	return &Protector{patterns: p}
}

// Protect scans input and replaces every accepted span with a marker.
//
// Rules are applied in priority order against the original text. A match is
// accepted only if none of its bytes were claimed by an earlier match, so a
// block such as an ICU message keeps its inner braces away from the generic
// placeholder rules.
func (p *Protector) Protect(input string) *Fragment {
	f := &Fragment{
		original: input,
		tokens:   TokenMap{Hash: ContentHash(input)},
		index:    make(map[string]int),
		scan:     p.patterns.scan,
	}
	if input == "" {
		return f
	}

	occupied := make([]bool, len(input))
	var toks []Token
	for _, rule := range p.patterns.rules {
		for _, span := range rule.Find(input) {
			start, end := span[0], span[1]
			if start >= end || start < 0 || end > len(input) {
				continue
			}
			if anyOccupied(occupied, start, end) {
				continue
			}
			for i := start; i < end; i++ {
				occupied[i] = true
			}
			toks = append(toks, Token{Class: rule.Class, Start: start, End: end, Value: input[start:end]})
		}
	}

	if len(toks) == 0 {
		f.masked = input
		return f
	}

	sort.Slice(toks, func(i, j int) bool { return toks[i].Start < toks[j].Start })

	var b strings.Builder
	b.Grow(len(input) + len(toks)*16)
	last := 0
	for i := range toks {
		toks[i].Marker = Marker(toks[i].Class, i)
		f.index[toks[i].Marker] = i
		b.WriteString(input[last:toks[i].Start])
		b.WriteString(toks[i].Marker)
		last = toks[i].End
	}
	b.WriteString(input[last:])

	f.masked = b.String()
	f.tokens.Tokens = toks
	return f
}

func anyOccupied(occupied []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if occupied[i] {
			return true
		}
	}
	return false
}

// ContentHash computes the SHA-256 hex digest of s, without trimming.
func ContentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
