package protect

import (
	"regexp"
	"strconv"
	"strings"
)

// Reserved delimiters of the marker syntax. Any occurrence in source text is
// itself protected as ClassLiteral, so they never reach a provider unmasked.
const (
	MarkerOpen  = "⟦"
	MarkerClose = "⟧"

	markerPrefix = MarkerOpen + "MT:"
)

// Marker builds the sentinel for the index-th token of class c.
func Marker(c Class, index int) string {
	var b strings.Builder
	b.Grow(len(markerPrefix) + len(c) + len(MarkerClose) + 4)
	b.WriteString(markerPrefix)
	b.WriteString(string(c))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(index))
	b.WriteString(MarkerClose)
	return b.String()
}

// ParseMarker splits a sentinel into its class and index. It accepts any
// upper-case class tag so that unknown classes can still be reported.
func ParseMarker(s string) (Class, int, bool) {
	if !strings.HasPrefix(s, markerPrefix) || !strings.HasSuffix(s, MarkerClose) {
		return "", 0, false
	}
	body := s[len(markerPrefix) : len(s)-len(MarkerClose)]
	sep := strings.LastIndexByte(body, ':')
	if sep <= 0 {
		return "", 0, false
	}
	tag, num := body[:sep], body[sep+1:]
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if (c < 'A' || c > 'Z') && c != '_' {
			return "", 0, false
		}
	}
	if num == "" {
		return "", 0, false
	}
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 0 {
		return "", 0, false
	}
	return Class(tag), idx, true
}

// MarkerPattern compiles a pattern matching markers of the given classes.
// With no classes it matches the structural shape of any marker.
func MarkerPattern(classes ...Class) *regexp.Regexp {
	if len(classes) == 0 {
		return regexp.MustCompile(regexp.QuoteMeta(markerPrefix) + `[A-Z_]+:\d+` + regexp.QuoteMeta(MarkerClose))
	}
	alts := make([]string, len(classes))
	for i, c := range classes {
		alts[i] = regexp.QuoteMeta(string(c))
	}
	return regexp.MustCompile(regexp.QuoteMeta(markerPrefix) + `(?:` + strings.Join(alts, "|") + `):\d+` + regexp.QuoteMeta(MarkerClose))
}
