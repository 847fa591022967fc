package modtl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ZaguanLabs/modtl/placeholder"
	"github.com/ZaguanLabs/modtl/protect"
)

// Translator is the main translation engine.
//
// Every entry goes through the same pipeline: protect tokens, look up the
// masked text in the cache, send misses to the provider in batches, validate
// and repair candidates, restore tokens and check the embedded syntax.
type Translator struct {
	targetLang    string
	sourceLang    string
	provider      AIProvider
	cache         TranslationCache
	excludedTerms []string
	context       string
	glossary      map[string]string
	style         TranslationStyle
	processors    map[string]ContentProcessor

	protector   *protect.Protector
	validator   *placeholder.Validator
	validation  placeholder.Options
	batchSize   int
	workers     int
	maxAttempts int
	cacheModel  string
	metrics     *Metrics
	logger      *slog.Logger
}

// AIProvider is the interface for AI translation backends.
type AIProvider interface {
	Translate(ctx context.Context, req TranslateRequest) ([]string, error)
}

// TranslateRequest contains the parameters for a translation request.
// Texts are masked: protected tokens appear as ⟦MT:CLASS:n⟧ markers that the
// provider must copy unchanged.
type TranslateRequest struct {
	Texts         []string
	TargetLang    string
	SourceLang    string
	ExcludedTerms []string
	Context       string
	TextContexts  []string
	Glossary      map[string]string
	Style         TranslationStyle
}

// TranslationCache is the interface for translation caching.
type TranslationCache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
}

// ContentProcessor is the interface for content processing.
type ContentProcessor interface {
	Extract(content string) (any, []Entry, error)
	Apply(parsed any, entries []Entry, translations map[string]string) (string, error)
	ContentType() string
}

// TranslatorOption is a functional option for configuring the Translator.
type TranslatorOption func(*Translator)

// WithSourceLang sets the source language.
func WithSourceLang(lang string) TranslatorOption {
	return func(t *Translator) {
		t.sourceLang = lang
	}
}

// WithCache sets the translation cache.
func WithCache(cache TranslationCache) TranslatorOption {
	return func(t *Translator) {
		t.cache = cache
	}
}

// WithExcludedTerms sets terms that should not be translated.
func WithExcludedTerms(terms []string) TranslatorOption {
	return func(t *Translator) {
		t.excludedTerms = terms
	}
}

// WithContext sets the global translation context.
func WithContext(ctx string) TranslatorOption {
	return func(t *Translator) {
		t.context = ctx
	}
}

// WithGlossary sets preferred translations for specific phrases.
func WithGlossary(glossary map[string]string) TranslatorOption {
	return func(t *Translator) {
		t.glossary = glossary
	}
}

// WithStyle sets the translation style/register.
func WithStyle(style TranslationStyle) TranslatorOption {
	return func(t *Translator) {
		t.style = style
	}
}

// WithProcessor registers a content processor.
func WithProcessor(processor ContentProcessor) TranslatorOption {
	return func(t *Translator) {
		t.processors[processor.ContentType()] = processor
	}
}

// WithPatterns replaces the token patterns used for protection.
func WithPatterns(p *protect.Patterns) TranslatorOption {
	return func(t *Translator) {
		t.protector = protect.NewProtector(p)
	}
}

// WithValidation sets the placeholder validator options.
func WithValidation(opts placeholder.Options) TranslatorOption {
	return func(t *Translator) {
		t.validation = opts
	}
}

// WithBatchSize sets how many texts go into one provider request.
func WithBatchSize(n int) TranslatorOption {
	return func(t *Translator) {
		if n > 0 {
			t.batchSize = n
		}
	}
}

// WithWorkers sets how many provider batches run concurrently.
func WithWorkers(n int) TranslatorOption {
	return func(t *Translator) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithMaxAttempts sets how many times a segment is sent to the provider
// before its validation failure is reported.
func WithMaxAttempts(n int) TranslatorOption {
	return func(t *Translator) {
		if n > 0 {
			t.maxAttempts = n
		}
	}
}

// WithCacheModel keys cached translations by model as well, so switching
// models does not reuse another model's output.
func WithCacheModel(model string) TranslatorOption {
	return func(t *Translator) {
		t.cacheModel = model
	}
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *Metrics) TranslatorOption {
	return func(t *Translator) {
		t.metrics = m
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) TranslatorOption {
	return func(t *Translator) {
		t.logger = l
	}
}

// NewTranslator creates a new Translator with the given target language and provider.
func NewTranslator(targetLang string, provider AIProvider, opts ...TranslatorOption) *Translator {
	t := &Translator{
		targetLang:  targetLang,
		sourceLang:  "en",
		provider:    provider,
		style:       StyleNeutral,
		processors:  make(map[string]ContentProcessor),
		protector:   protect.NewProtector(nil),
		validation:  placeholder.DefaultOptions(),
		batchSize:   20,
		workers:     1,
		maxAttempts: 2,
		logger:      discardLogger(),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.validation.Logger == nil {
		t.validation.Logger = t.logger
	}
	t.validator = placeholder.NewValidator(t.validation, placeholder.NewExtractor())

	return t
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Process translates content of the specified type.
func (t *Translator) Process(ctx context.Context, content string, contentType string) (*ProcessedContent, error) {
	job := NewJob(ctx, "")
	defer job.Cancel()
	return t.Run(job, content, contentType)
}

// ProcessHTML is a convenience method for processing HTML content.
func (t *Translator) ProcessHTML(ctx context.Context, html string) (*ProcessedContent, error) {
	return t.Process(ctx, html, "html")
}

// unit is one distinct source text moving through the pipeline.
type unit struct {
	entry    Entry
	fragment *protect.Fragment
	segment  *placeholder.Segment
	key      string
}

// outcome is the pipeline result for one unit.
type outcome struct {
	text     string
	masked   string
	repaired bool
	report   *placeholder.FailureReport
}

// Run translates content within job. Segment failures do not fail the run:
// the entry keeps its source text and the report is returned in Failures.
func (t *Translator) Run(job *Job, content string, contentType string) (*ProcessedContent, error) {
	if t.isSourceLang() {
		return &ProcessedContent{Content: content}, nil
	}

	processor, ok := t.processors[contentType]
	if !ok {
		return nil, &ProcessorError{
			Message:     "no processor registered for content type",
			ContentType: contentType,
		}
	}

	parsed, entries, err := processor.Extract(content)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &ProcessedContent{Content: content}, nil
	}

	units := t.prepare(job, entries)
	translations := make(map[string]string, len(units))
	out := &ProcessedContent{TotalEntries: len(entries)}

	hits, misses := t.lookup(units)
	for _, u := range hits {
		res := t.finalize(u.unit, u.cached)
		if res.report != nil {
			// A stale entry, e.g. written by an older pattern set.
			t.logger.Warn("discarding cached translation",
				"locator", res.report.Locator.String(),
				"kind", res.report.Kind,
			)
			misses = append(misses, u.unit)
			continue
		}
		translations[u.unit.entry.Hash] = res.text
		out.CachedCount++
		job.cached.Add(1)
	}
	t.metrics.segment("cached", out.CachedCount)

	pending := misses
	for attempt := 1; attempt <= t.maxAttempts && len(pending) > 0; attempt++ {
		candidates, err := t.translateUnits(job, pending)
		if err != nil {
			return nil, err
		}

		var retry []*unit
		for i, u := range pending {
			res := t.finalize(u, candidates[i])
			if res.report == nil {
				translations[u.entry.Hash] = res.text
				t.store(u.key, res.masked)
				out.TranslatedCount++
				job.translated.Add(1)
				if res.repaired {
					out.RepairedCount++
					job.repaired.Add(1)
				}
				continue
			}
			t.metrics.failure(res.report)
			if attempt < t.maxAttempts {
				t.logger.Info("retranslating segment after validation failure",
					"job", job.ID,
					"locator", res.report.Locator.String(),
					"kind", res.report.Kind,
					"attempt", attempt,
				)
				retry = append(retry, u)
				continue
			}
			report := res.report.WithAttempt(attempt, t.maxAttempts)
			t.logger.Warn("segment kept in source language",
				"job", job.ID,
				"locator", report.Locator.String(),
				"kind", report.Kind,
				"detail", report.Detail,
			)
			out.Failures = append(out.Failures, report)
			job.failed.Add(1)
		}
		pending = retry
	}

	t.metrics.segment("translated", out.TranslatedCount-out.RepairedCount)
	t.metrics.segment("repaired", out.RepairedCount)
	t.metrics.segment("failed", len(out.Failures))

	result, err := processor.Apply(parsed, entries, translations)
	if err != nil {
		return nil, err
	}

	if contentType == "html" {
		result = t.setHTMLAttributes(result)
	}

	out.Content = result
	return out, nil
}

// prepare protects every distinct entry text and builds its segment.
func (t *Translator) prepare(job *Job, entries []Entry) []*unit {
	seen := make(map[string]bool, len(entries))
	var units []*unit
	for _, e := range entries {
		if seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true

		f := t.protector.Protect(e.Text)
		syntax := e.Syntax
		if syntax == "" {
			syntax = placeholder.DetectSyntax(e.Text)
		}
		loc := placeholder.Locator{FileID: job.FileID, Line: e.Line, Key: e.Key}
		units = append(units, &unit{
			entry:    e,
			fragment: f,
			segment:  t.validator.Extractor().NewSegment(loc, e.Text, f.Masked(), syntax),
			key:      t.cacheKey(f.Masked()),
		})
	}
	return units
}

func (t *Translator) cacheKey(masked string) string {
	if t.cacheModel != "" {
		return CacheKeyExtended(masked, t.sourceLang, t.targetLang, t.cacheModel)
	}
	return CacheKey(masked, t.sourceLang, t.targetLang)
}

// finalize validates a masked candidate, restores its tokens and checks the
// embedded syntax.
func (t *Translator) finalize(u *unit, candidate string) outcome {
	res, err := t.validator.Validate(u.segment, candidate)
	if err != nil {
		var report *placeholder.FailureReport
		if !errors.As(err, &report) {
			report = &placeholder.FailureReport{
				Kind:    placeholder.KindParserError,
				Locator: u.segment.Locator,
				Source:  u.segment.Source,
				Detail:  err.Error(),
			}
		}
		return outcome{report: report}
	}
	t.metrics.autofix(res.Steps)

	restored, err := protect.Restore(u.fragment, res.Text)
	if err != nil {
		return outcome{report: &placeholder.FailureReport{
			Kind:         placeholder.KindPlaceholderMismatch,
			Locator:      u.segment.Locator,
			Source:       u.segment.Source,
			Preprocessed: u.segment.Preprocessed,
			Candidate:    candidate,
			Repaired:     res.Text,
			Detail:       err.Error(),
		}}
	}

	if err := placeholder.CheckAgainstSource(u.segment.Syntax, u.segment.Source, restored); err != nil {
		return outcome{report: placeholder.ReportStructure(u.segment, restored, err)}
	}
	return outcome{text: restored, masked: res.Text, repaired: res.Repaired}
}

// translateUnits sends the masked texts of units to the provider and returns
// one candidate per unit. Units sharing a cache key share one request slot.
func (t *Translator) translateUnits(job *Job, units []*unit) ([]string, error) {
	if t.provider == nil {
		return nil, &ProviderError{Message: "no provider configured"}
	}

	slot := make(map[string]int, len(units))
	var distinct []*unit
	for _, u := range units {
		if _, ok := slot[u.key]; ok {
			continue
		}
		slot[u.key] = len(distinct)
		distinct = append(distinct, u)
	}

	results := make([]string, len(distinct))
	batches := (len(distinct) + t.batchSize - 1) / t.batchSize
	err := forEachBatch(job.Context(), t.workers, batches, func(ctx context.Context, b int) error {
		lo := b * t.batchSize
		hi := min(lo+t.batchSize, len(distinct))
		batch := distinct[lo:hi]

		texts := make([]string, len(batch))
		textContexts := make([]string, len(batch))
		for i, u := range batch {
			texts[i] = u.fragment.Masked()
			textContexts[i] = u.entry.Context
		}

		got, err := t.callProvider(ctx, texts, textContexts)
		if err != nil {
			return err
		}
		copy(results[lo:hi], got)
		return nil
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]string, len(units))
	for i, u := range units {
		candidates[i] = results[slot[u.key]]
	}
	return candidates, nil
}

func (t *Translator) callProvider(ctx context.Context, texts, textContexts []string) ([]string, error) {
	t.logger.Debug("provider request", "texts", len(texts), "target", t.targetLang)

	start := time.Now()
	got, err := t.provider.Translate(ctx, TranslateRequest{
		Texts:         texts,
		TargetLang:    t.targetLang,
		SourceLang:    t.sourceLang,
		ExcludedTerms: t.excludedTerms,
		Context:       t.context,
		TextContexts:  textContexts,
		Glossary:      t.glossary,
		Style:         t.style,
	})
	t.metrics.providerCall(start)
	if err != nil {
		return nil, err
	}
	if len(got) != len(texts) {
		return nil, &CountMismatchError{Expected: len(texts), Got: len(got)}
	}
	return got, nil
}

// store caches accepted masked candidates.
func (t *Translator) store(key, masked string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Set(key, masked); err != nil {
		t.logger.Warn("cache write failed", "error", err)
	}
}

// isSourceLang checks if target matches source (no translation needed).
func (t *Translator) isSourceLang() bool {
	return normalizeBaseLang(t.targetLang) == normalizeBaseLang(t.sourceLang)
}

// setHTMLAttributes sets lang and dir attributes on the <html> tag.
func (t *Translator) setHTMLAttributes(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}

	htmlTag := doc.Find("html")
	if htmlTag.Length() > 0 {
		htmlTag.SetAttr("lang", ToHTMLLang(t.targetLang))
		htmlTag.SetAttr("dir", GetDirection(t.targetLang))
	}

	result, err := doc.Html()
	if err != nil {
		return html
	}

	return result
}

// TargetLang returns the target language.
func (t *Translator) TargetLang() string {
	return t.targetLang
}

// SourceLang returns the source language.
func (t *Translator) SourceLang() string {
	return t.sourceLang
}

// IsSourceLang checks if the target language matches the source language.
// When true, translation can be bypassed.
func (t *Translator) IsSourceLang(targetLangOverride ...string) bool {
	targetLang := t.targetLang
	if len(targetLangOverride) > 0 && targetLangOverride[0] != "" {
		targetLang = targetLangOverride[0]
	}
	return normalizeBaseLang(targetLang) == normalizeBaseLang(t.sourceLang)
}

// IsRTL returns true if the target language uses right-to-left text direction.
func (t *Translator) IsRTL() bool {
	return IsRTL(t.targetLang)
}

// Glossary returns the glossary of preferred translations.
func (t *Translator) Glossary() map[string]string {
	return t.glossary
}

// Style returns the translation style.
func (t *Translator) Style() TranslationStyle {
	return t.style
}

// Context returns the global translation context.
func (t *Translator) Context() string {
	return t.context
}

// ExcludedTerms returns the list of excluded terms.
func (t *Translator) ExcludedTerms() []string {
	return t.excludedTerms
}

// Validator returns the placeholder validator used by the pipeline.
func (t *Translator) Validator() *placeholder.Validator {
	return t.validator
}

// Protector returns the token protector used by the pipeline.
func (t *Translator) Protector() *protect.Protector {
	return t.protector
}
