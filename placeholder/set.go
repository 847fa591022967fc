// Package placeholder checks translated candidates against the placeholder
// inventory of their source and repairs common provider mistakes.
package placeholder

import (
	"regexp"

	"github.com/ZaguanLabs/modtl/protect"
)

// Set is the placeholder inventory of one string: protected markers and
// simple {n} format tokens, each as an ordered list plus multiset counts.
type Set struct {
	Markers      []string
	MarkerCounts map[string]int
	Formats      []string
	FormatCounts map[string]int
}

// Equal reports multiset equality of both families. Order is ignored.
func (s Set) Equal(o Set) bool {
	return countsEqual(s.MarkerCounts, o.MarkerCounts) && countsEqual(s.FormatCounts, o.FormatCounts)
}

// SameOrder reports whether both families appear in the same sequence.
func (s Set) SameOrder(o Set) bool {
	return sliceEqual(s.Markers, o.Markers) && sliceEqual(s.Formats, o.Formats)
}

// Empty reports whether the set holds no tokens at all.
func (s Set) Empty() bool {
	return len(s.Markers) == 0 && len(s.Formats) == 0
}

func countsEqual(a, b map[string]int) bool {
	for k, v := range a {
		if v != 0 && b[k] != v {
			return false
		}
	}
	for k, v := range b {
		if v != 0 && a[k] != v {
			return false
		}
	}
	return true
}

func sliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Extractor derives Sets from strings. It is immutable after construction.
type Extractor struct {
	markers *regexp.Regexp
	formats *regexp.Regexp
	spans   *regexp.Regexp
}

// NewExtractor builds an extractor for markers of the given classes. With no
// classes every known class is accepted.
func NewExtractor(classes ...protect.Class) *Extractor {
	if len(classes) == 0 {
		classes = protect.AllClasses()
	}
	markers := protect.MarkerPattern(classes...)
	formats := regexp.MustCompile(`\{\d+\}`)
	return &Extractor{
		markers: markers,
		formats: formats,
		spans:   regexp.MustCompile(markers.String() + `|` + formats.String()),
	}
}

// Extract returns the placeholder inventory of s.
func (x *Extractor) Extract(s string) Set {
	set := Set{
		MarkerCounts: make(map[string]int),
		FormatCounts: make(map[string]int),
	}
	for _, m := range x.markers.FindAllString(s, -1) {
		set.Markers = append(set.Markers, m)
		set.MarkerCounts[m]++
	}
	for _, f := range x.formats.FindAllString(s, -1) {
		set.Formats = append(set.Formats, f)
		set.FormatCounts[f]++
	}
	return set
}

// tokenSpans returns the byte spans of every marker and format token in s.
func (x *Extractor) tokenSpans(s string) [][]int {
	return x.spans.FindAllStringIndex(s, -1)
}

// Locator identifies where a segment came from.
type Locator struct {
	FileID string `json:"file_id,omitempty"`
	Line   int    `json:"line,omitempty"`
	Key    string `json:"key,omitempty"`
}

// Segment is one translatable unit prepared for validation. It is read-only
// once created.
type Segment struct {
	Locator
	Source       string // raw source text
	Preprocessed string // masked source text sent to the provider
	Expected     Set
	Syntax       Syntax // optional declared format of the unit
}

// NewSegment prepares a segment. The expected set is derived from the
// preprocessed text.
func (x *Extractor) NewSegment(loc Locator, source, preprocessed string, syntax Syntax) *Segment {
	return &Segment{
		Locator:      loc,
		Source:       source,
		Preprocessed: preprocessed,
		Expected:     x.Extract(preprocessed),
		Syntax:       syntax,
	}
}
