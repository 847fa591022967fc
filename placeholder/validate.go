package placeholder

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ZaguanLabs/modtl/protect"
)

// Options controls validator behavior.
type Options struct {
	// AutoFix enables the repair pass on mismatching candidates.
	AutoFix bool
	// StrictPairing appends the missing counterpart when a pairable class
	// still has an odd number of markers after reinjection.
	StrictPairing bool
	// PercentBinding keeps a '%' that follows a token in the source glued to
	// the same token in the candidate.
	PercentBinding bool
	// Logger receives order warnings and autofix notices. Nil uses slog.Default.
	Logger *slog.Logger
}

// DefaultOptions returns the standard validator configuration.
func DefaultOptions() Options {
	return Options{
		AutoFix:        true,
		StrictPairing:  true,
		PercentBinding: true,
	}
}

// Result is an accepted candidate.
type Result struct {
	Text         string
	Found        Set
	Repaired     bool
	OrderChanged bool
	Steps        []FixStep
}

// Validator compares candidates with their segment's expected placeholder set.
// It is safe for concurrent use.
type Validator struct {
	opts Options
	ext  *Extractor
	log  *slog.Logger
}

// NewValidator creates a validator. A nil extractor accepts every marker class.
func NewValidator(opts Options, ext *Extractor) *Validator {
	if ext == nil {
		ext = NewExtractor()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Validator{opts: opts, ext: ext, log: log}
}

// Extractor returns the extractor used to build segments.
func (v *Validator) Extractor() *Extractor {
	return v.ext
}

// Options returns the validator's configuration.
func (v *Validator) Options() Options {
	return v.opts
}

// Validate checks candidate against seg. On success it returns the accepted,
// possibly repaired, text. On failure the error is a *FailureReport.
//
// Acceptance compares multisets: markers may be reordered freely, which is
// only logged.
func (v *Validator) Validate(seg *Segment, candidate string) (*Result, error) {
	found := v.ext.Extract(candidate)

	if found.Equal(seg.Expected) {
		res := &Result{Text: candidate, Found: found}
		v.checkOrder(seg, found, res)
		if v.opts.PercentBinding {
			if text, moved := bindPercent(seg.Preprocessed, candidate, v.ext); len(moved) > 0 {
				res.Text = text
				res.Repaired = true
				res.Steps = append(res.Steps, FixStep{Name: StepPercentBinding, Tokens: moved})
			}
		}
		return res, nil
	}

	if !v.opts.AutoFix {
		return nil, v.report(seg, candidate, "", found, nil)
	}

	text, steps := v.autofix(seg, candidate)
	fixed := v.ext.Extract(text)
	if !fixed.Equal(seg.Expected) {
		return nil, v.report(seg, candidate, text, fixed, steps)
	}

	v.log.Debug("placeholder autofix applied",
		"locator", seg.Locator.String(),
		"steps", len(steps),
	)
	res := &Result{Text: text, Found: fixed, Repaired: true, Steps: steps}
	v.checkOrder(seg, fixed, res)
	return res, nil
}

func (v *Validator) checkOrder(seg *Segment, found Set, res *Result) {
	if found.SameOrder(seg.Expected) {
		return
	}
	res.OrderChanged = true
	v.log.Warn("placeholder order changed",
		"locator", seg.Locator.String(),
		"expected", seg.Expected.Markers,
		"found", found.Markers,
	)
}

// autofix runs the repair steps in their fixed order.
func (v *Validator) autofix(seg *Segment, candidate string) (string, []FixStep) {
	var steps []FixStep
	text := candidate

	record := func(name StepName, tokens []string) {
		if len(tokens) > 0 {
			steps = append(steps, FixStep{Name: name, Tokens: tokens})
		}
	}

	var tokens []string
	text, tokens = v.reinjectMarkers(seg, text)
	record(StepReinjectMarkers, tokens)

	if v.opts.StrictPairing {
		text, tokens = v.balancePairs(seg, text)
		record(StepBalancePairs, tokens)
	}

	text, tokens = v.removeExcess(seg, text)
	record(StepRemoveExcess, tokens)

	text, tokens = v.reinjectFormats(seg, text)
	record(StepReinjectFormats, tokens)

	if v.opts.PercentBinding {
		text, tokens = bindPercent(seg.Preprocessed, text, v.ext)
		record(StepPercentBinding, tokens)
	}
	return text, steps
}

// reinjectMarkers inserts every missing marker at the position proportional
// to where it sits in the preprocessed source.
func (v *Validator) reinjectMarkers(seg *Segment, text string) (string, []string) {
	found := v.ext.Extract(text)
	var added []string
	for _, m := range uniqueInOrder(seg.Expected.Markers) {
		need := seg.Expected.MarkerCounts[m] - found.MarkerCounts[m]
		if need <= 0 {
			continue
		}
		text = v.reinject(seg.Preprocessed, text, m, found.MarkerCounts[m], need)
		added = append(added, m)
	}
	return text, added
}

// balancePairs appends the missing counterpart when a pairable class ends up
// with an odd number of markers while the source has an even number.
func (v *Validator) balancePairs(seg *Segment, text string) (string, []string) {
	var added []string
	for _, c := range []protect.Class{protect.ClassTag, protect.ClassRichText, protect.ClassBBCode} {
		want := classCount(seg.Expected.Markers, c)
		if want == 0 || want%2 != 0 {
			continue
		}
		found := v.ext.Extract(text)
		if classCount(found.Markers, c)%2 == 0 {
			continue
		}
		// The counterpart is the last missing marker of the class in source
		// order, which is the closing side for a dropped close tag.
		var candidate string
		for _, m := range seg.Expected.Markers {
			if mc, _, _ := protect.ParseMarker(m); mc != c {
				continue
			}
			if found.MarkerCounts[m] < seg.Expected.MarkerCounts[m] {
				candidate = m
			}
		}
		if candidate == "" {
			continue
		}
		text += candidate
		added = append(added, candidate)
	}
	return text, added
}

// removeExcess deletes the first occurrences of markers found more often than
// expected.
func (v *Validator) removeExcess(seg *Segment, text string) (string, []string) {
	found := v.ext.Extract(text)
	var removed []string
	for _, m := range uniqueInOrder(found.Markers) {
		extra := found.MarkerCounts[m] - seg.Expected.MarkerCounts[m]
		if extra <= 0 {
			continue
		}
		text = strings.Replace(text, m, "", extra)
		removed = append(removed, m)
	}
	return text, removed
}

// reinjectFormats restores missing {n} tokens the same way markers are.
func (v *Validator) reinjectFormats(seg *Segment, text string) (string, []string) {
	found := v.ext.Extract(text)
	var added []string
	for _, f := range uniqueInOrder(seg.Expected.Formats) {
		need := seg.Expected.FormatCounts[f] - found.FormatCounts[f]
		if need <= 0 {
			continue
		}
		text = v.reinject(seg.Preprocessed, text, f, found.FormatCounts[f], need)
		added = append(added, f)
	}
	return text, added
}

// reinject inserts need copies of tok into text. Each copy goes to the offset
// proportional to its occurrence in source, skipping the have occurrences
// already present.
func (v *Validator) reinject(source, text, tok string, have, need int) string {
	offsets := occurrences(source, tok)
	if len(offsets) == 0 {
		return text + strings.Repeat(tok, need)
	}
	for k := 0; k < need; k++ {
		i := have + k
		if i >= len(offsets) {
			i = len(offsets) - 1
		}
		at := 0
		if len(source) > 0 {
			at = int(float64(offsets[i]) / float64(len(source)) * float64(len(text)))
		}
		at = v.snap(text, at)
		text = text[:at] + tok + text[at:]
	}
	return text
}

// snap moves at to a rune boundary outside any existing token.
func (v *Validator) snap(text string, at int) int {
	if at <= 0 {
		return 0
	}
	if at >= len(text) {
		return len(text)
	}
	for at > 0 && !utf8.RuneStart(text[at]) {
		at--
	}
	for _, span := range v.ext.tokenSpans(text) {
		if at > span[0] && at < span[1] {
			if at-span[0] <= span[1]-at {
				return span[0]
			}
			return span[1]
		}
	}
	return at
}

func (v *Validator) report(seg *Segment, candidate, repaired string, found Set, steps []FixStep) *FailureReport {
	kind := v.failureKind(seg, found, steps)
	highlight := append(
		diffTokens(seg.Expected.MarkerCounts, found.MarkerCounts),
		diffTokens(seg.Expected.FormatCounts, found.FormatCounts)...,
	)

	detail := ""
	if missing := append(missingTokens(seg.Expected.MarkerCounts, found.MarkerCounts),
		missingTokens(seg.Expected.FormatCounts, found.FormatCounts)...); len(missing) > 0 {
		detail = fmt.Sprintf("missing %s", strings.Join(missing, " "))
	}
	if excess := append(excessTokens(seg.Expected.MarkerCounts, found.MarkerCounts),
		excessTokens(seg.Expected.FormatCounts, found.FormatCounts)...); len(excess) > 0 {
		if detail != "" {
			detail += "; "
		}
		detail += fmt.Sprintf("unexpected %s", strings.Join(excess, " "))
	}

	return &FailureReport{
		Kind:            kind,
		Locator:         seg.Locator,
		Source:          seg.Source,
		Preprocessed:    seg.Preprocessed,
		Candidate:       candidate,
		Repaired:        repaired,
		Detail:          detail,
		ExpectedMarkers: seg.Expected.Markers,
		FoundMarkers:    found.Markers,
		ExpectedFormats: seg.Expected.Formats,
		FoundFormats:    found.Formats,
		Autofix:         steps,
		ShowDiff:        true,
		Highlight:       highlight,
	}
}

// failureKind picks the most specific kind for a remaining mismatch.
func (v *Validator) failureKind(seg *Segment, found Set, steps []FixStep) Kind {
	missing := missingTokens(seg.Expected.MarkerCounts, found.MarkerCounts)
	pairMissing := false
	for _, m := range missing {
		c, _, _ := protect.ParseMarker(m)
		if c == protect.ClassICU {
			return KindICUUnbalanced
		}
		if c.Pairable() {
			pairMissing = true
		}
	}
	if pairMissing && !applied(steps, StepBalancePairs) {
		return KindPairUnbalanced
	}
	if len(missingTokens(seg.Expected.FormatCounts, found.FormatCounts)) > 0 && !applied(steps, StepReinjectFormats) {
		return KindFormatTokenMissing
	}
	return KindPlaceholderMismatch
}

func applied(steps []FixStep, name StepName) bool {
	for _, s := range steps {
		if s.Name == name {
			return true
		}
	}
	return false
}

func classCount(markers []string, c protect.Class) int {
	n := 0
	for _, m := range markers {
		if mc, _, ok := protect.ParseMarker(m); ok && mc == c {
			n++
		}
	}
	return n
}

func uniqueInOrder(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func occurrences(s, sub string) []int {
	var out []int
	for off := 0; ; {
		i := strings.Index(s[off:], sub)
		if i < 0 {
			return out
		}
		out = append(out, off+i)
		off += i + len(sub)
	}
}
