package placeholder

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindPlaceholderMismatch     Kind = "placeholder_mismatch"
	KindPairUnbalanced          Kind = "pair_unbalanced"
	KindFormatTokenMissing      Kind = "format_token_missing"
	KindICUUnbalanced           Kind = "icu_unbalanced"
	KindMalformedAfterRestore   Kind = "malformed_after_restore"
	KindMarkdownFenceUnbalanced Kind = "markdown_fence_unbalanced"
	KindPropertiesEscapeInvalid Kind = "properties_escape_invalid"
	KindLuaStringUnbalanced     Kind = "lua_string_unbalanced"
	KindParserError             Kind = "parser_error"
)

// Structural reports whether the kind comes from a post-restore syntax check
// rather than a placeholder comparison.
func (k Kind) Structural() bool {
	switch k {
	case KindMalformedAfterRestore, KindMarkdownFenceUnbalanced, KindPropertiesEscapeInvalid,
		KindLuaStringUnbalanced, KindParserError:
		return true
	}
	return false
}

// StepName identifies an autofix step.
type StepName string

const (
	StepReinjectMarkers StepName = "reinject_markers"
	StepBalancePairs    StepName = "balance_pairs"
	StepRemoveExcess    StepName = "remove_excess"
	StepReinjectFormats StepName = "reinject_formats"
	StepPercentBinding  StepName = "percent_binding"
)

// FixStep records one autofix step that changed the candidate.
type FixStep struct {
	Name   StepName `json:"name"`
	Tokens []string `json:"tokens,omitempty"`
}

// FailureReport describes a candidate that could not be accepted. It carries
// enough context to render a review UI and is returned as an error.
type FailureReport struct {
	Kind Kind `json:"kind"`
	Locator

	Source       string `json:"source"`
	Preprocessed string `json:"preprocessed"`
	Candidate    string `json:"candidate"`
	Repaired     string `json:"repaired,omitempty"` // candidate after the autofix pass
	Detail       string `json:"detail,omitempty"`

	ExpectedMarkers []string `json:"expected_markers,omitempty"`
	FoundMarkers    []string `json:"found_markers,omitempty"`
	ExpectedFormats []string `json:"expected_formats,omitempty"`
	FoundFormats    []string `json:"found_formats,omitempty"`

	Autofix     []FixStep `json:"autofix,omitempty"`
	Attempt     int       `json:"attempt,omitempty"`
	MaxAttempts int       `json:"max_attempts,omitempty"`

	// UI hints
	ShowDiff  bool     `json:"show_diff"`
	Highlight []string `json:"highlight,omitempty"`
}

func (r *FailureReport) Error() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	if loc := r.Locator.String(); loc != "" {
		b.WriteString(" at ")
		b.WriteString(loc)
	}
	if r.Detail != "" {
		b.WriteString(": ")
		b.WriteString(r.Detail)
	}
	return b.String()
}

// WithAttempt returns a copy of the report tagged with retry progress.
func (r *FailureReport) WithAttempt(attempt, max int) *FailureReport {
	c := *r
	c.Attempt = attempt
	c.MaxAttempts = max
	return &c
}

func (l Locator) String() string {
	var parts []string
	if l.FileID != "" {
		if l.Line > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", l.FileID, l.Line))
		} else {
			parts = append(parts, l.FileID)
		}
	}
	if l.Key != "" {
		parts = append(parts, "key="+l.Key)
	}
	return strings.Join(parts, " ")
}

// diffTokens lists tokens whose counts differ between the two count maps,
// sorted for stable output.
func diffTokens(want, got map[string]int) []string {
	seen := make(map[string]bool)
	var out []string
	for k, v := range want {
		if got[k] != v && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	for k, v := range got {
		if want[k] != v && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// missingTokens lists tokens that have fewer occurrences in got than in want.
func missingTokens(want, got map[string]int) []string {
	var out []string
	for k, v := range want {
		if got[k] < v {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func excessTokens(want, got map[string]int) []string {
	var out []string
	for k, v := range got {
		if v > want[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
