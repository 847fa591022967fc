package placeholder

import (
	"strings"
	"unicode/utf8"
)

// bindPercent makes every token that is immediately followed by '%' in source
// also be immediately followed by '%' in candidate. A '%' detached by spaces
// after the token, or moved in front of it, is pulled back into place; if none
// is found one is inserted. It returns the rewritten text and the tokens it
// touched.
func bindPercent(source, candidate string, ext *Extractor) (string, []string) {
	var bound []string
	counts := make(map[string]int)
	for _, span := range ext.tokenSpans(source) {
		if span[1] < len(source) && source[span[1]] == '%' {
			tok := source[span[0]:span[1]]
			if counts[tok] == 0 {
				bound = append(bound, tok)
			}
			counts[tok]++
		}
	}
	if len(bound) == 0 {
		return candidate, nil
	}

	var touched []string
	text := candidate
	for _, tok := range bound {
		changed := false
		off := 0
		for n := 0; n < counts[tok]; n++ {
			i := strings.Index(text[off:], tok)
			if i < 0 {
				break
			}
			pos := off + i
			end := pos + len(tok)

			switch {
			case end < len(text) && text[end] == '%':
				off = end + 1
				continue

			case detachedAfter(text, end) > 0:
				j := detachedAfter(text, end)
				text = text[:end] + "%" + text[j+1:]

			case detachedBefore(text, pos) >= 0:
				j := detachedBefore(text, pos)
				text = text[:j] + tok + "%" + text[end:]
				end = j + len(tok)

			default:
				text = text[:end] + "%" + text[end:]
			}
			changed = true
			off = end + 1
		}
		if changed {
			touched = append(touched, tok)
		}
	}
	return text, touched
}

// detachedAfter returns the offset of a '%' separated from end only by
// spaces, or 0.
func detachedAfter(text string, end int) int {
	j := skipSpaces(text, end)
	if j > end && j < len(text) && text[j] == '%' {
		return j
	}
	return 0
}

// detachedBefore returns the offset of a '%' directly in front of pos,
// optionally separated by spaces, or -1. A '%' that closes an earlier
// "%%" escape does not count.
func detachedBefore(text string, pos int) int {
	j := pos
	for j > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:j])
		if !isSpace(r) {
			break
		}
		j -= size
	}
	if j == 0 || text[j-1] != '%' {
		return -1
	}
	if j >= 2 && text[j-2] == '%' {
		return -1
	}
	return j - 1
}

func skipSpaces(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !isSpace(r) {
			break
		}
		i += size
	}
	return i
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\u00a0' || r == '\u202f'
}
