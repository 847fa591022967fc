package protect

import (
	"errors"
	"strings"
)

// MissingTokensError reports markers of the fragment that the candidate lost.
type MissingTokensError struct {
	Markers []string
	Output  string // candidate with every recognised marker substituted
}

func (e *MissingTokensError) Error() string {
	return "missing tokens: " + strings.Join(e.Markers, ", ")
}

// UnexpectedTokensError reports markers in the candidate that the fragment
// never emitted. They are left verbatim in Output.
type UnexpectedTokensError struct {
	Markers []string
	Output  string
}

func (e *UnexpectedTokensError) Error() string {
	return "unexpected tokens: " + strings.Join(e.Markers, ", ")
}

// Restore substitutes original values back into a candidate produced from
// f.Masked(). Restore(f, f.Masked()) always returns f.Original().
//
// When both missing and unexpected markers are found, the returned error
// joins a *MissingTokensError and an *UnexpectedTokensError.
func Restore(f *Fragment, candidate string) (string, error) {
	scan := f.scan
	if scan == nil {
		scan = MarkerPattern()
	}

	seen := make([]bool, len(f.tokens.Tokens))
	var unexpected []string
	var b strings.Builder
	b.Grow(len(candidate) + len(f.original))

	last := 0
	for _, loc := range scan.FindAllStringIndex(candidate, -1) {
		b.WriteString(candidate[last:loc[0]])
		marker := candidate[loc[0]:loc[1]]
		if i, ok := f.index[marker]; ok {
			b.WriteString(f.tokens.Tokens[i].Value)
			seen[i] = true
		} else {
			b.WriteString(marker)
			unexpected = appendUnique(unexpected, marker)
		}
		last = loc[1]
	}
	b.WriteString(candidate[last:])
	out := b.String()

	var missing []string
	for i, ok := range seen {
		if !ok {
			missing = append(missing, f.tokens.Tokens[i].Marker)
		}
	}

	switch {
	case len(missing) > 0 && len(unexpected) > 0:
		return out, errors.Join(
			&MissingTokensError{Markers: missing, Output: out},
			&UnexpectedTokensError{Markers: unexpected, Output: out},
		)
	case len(missing) > 0:
		return out, &MissingTokensError{Markers: missing, Output: out}
	case len(unexpected) > 0:
		return out, &UnexpectedTokensError{Markers: unexpected, Output: out}
	}
	return out, nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
