package modtl_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/cache"
	"github.com/ZaguanLabs/modtl/placeholder"
	"github.com/ZaguanLabs/modtl/processor"
	"github.com/ZaguanLabs/modtl/protect"
	"github.com/ZaguanLabs/modtl/provider"
)

// Integration tests using all real components

var markerRE = protect.MarkerPattern()

func stripMarkers(s string) string {
	return strings.TrimSpace(markerRE.ReplaceAllString(s, ""))
}

func TestIntegration_BasicTranslation(t *testing.T) {
	p := provider.NewMockProvider()

	translator := modtl.NewTranslator("es_ES", p,
		modtl.WithCache(cache.NewInMemoryCache(time.Hour)),
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<div><p>Hello</p></div>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if !strings.Contains(result.Content, "Hola") {
		t.Errorf("Expected 'Hola' in result, got: %s", result.Content)
	}
	if result.TranslatedCount != 1 {
		t.Errorf("Expected TranslatedCount 1, got %d", result.TranslatedCount)
	}
}

func TestIntegration_CacheHit(t *testing.T) {
	p := provider.NewMockProvider()

	translator := modtl.NewTranslator("es_ES", p,
		modtl.WithCache(cache.NewInMemoryCache(time.Hour)),
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	html := `<p>Hello</p>`

	result1, _ := translator.ProcessHTML(context.Background(), html)
	if result1.TranslatedCount != 1 || result1.CachedCount != 0 {
		t.Errorf("First call: expected 1 translated, 0 cached; got %d, %d",
			result1.TranslatedCount, result1.CachedCount)
	}

	result2, _ := translator.ProcessHTML(context.Background(), html)
	if result2.TranslatedCount != 0 || result2.CachedCount != 1 {
		t.Errorf("Second call: expected 0 translated, 1 cached; got %d, %d",
			result2.TranslatedCount, result2.CachedCount)
	}

	if p.CallCount() != 1 {
		t.Errorf("Provider should be called once, was called %d times", p.CallCount())
	}
}

func TestIntegration_IgnoredTags(t *testing.T) {
	translator := modtl.NewTranslator("es_ES", provider.NewMockProvider(),
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	html := `<div>
		<p>Hello</p>
		<script>console.log("Hello");</script>
		<style>.hello { color: red; }</style>
		<code>Hello</code>
	</div>`

	result, err := translator.ProcessHTML(context.Background(), html)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if result.TotalEntries != 1 {
		t.Errorf("Expected 1 translatable entry, got %d", result.TotalEntries)
	}
	if !strings.Contains(result.Content, `console.log("Hello")`) {
		t.Error("Script content should not be translated")
	}
}

func TestIntegration_DataNoTranslate(t *testing.T) {
	translator := modtl.NewTranslator("es_ES", provider.NewMockProvider(),
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<div><p data-no-translate>Hello</p><p>World</p></div>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if result.TotalEntries != 1 {
		t.Errorf("Expected 1 translatable entry, got %d", result.TotalEntries)
	}
	if !strings.Contains(result.Content, ">Hello<") {
		t.Error("data-no-translate content should not be translated")
	}
	if !strings.Contains(result.Content, "Mundo") {
		t.Error("World should be translated to Mundo")
	}
}

func TestIntegration_RTLLanguage(t *testing.T) {
	p := provider.NewMockProvider()
	p.Translations["Hello"] = "مرحبا"

	translator := modtl.NewTranslator("ar_SA", p,
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<html><body><p>Hello</p></body></html>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if !strings.Contains(result.Content, `dir="rtl"`) {
		t.Errorf("Expected dir='rtl' for Arabic, got: %s", result.Content)
	}
	if !strings.Contains(result.Content, `lang="ar-SA"`) {
		t.Errorf("Expected lang='ar-SA', got: %s", result.Content)
	}
}

func TestIntegration_Deduplication(t *testing.T) {
	p := provider.NewMockProvider()
	translator := modtl.NewTranslator("es_ES", p,
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<div><p>Hello</p><p>Hello</p><p>Hello</p></div>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if len(p.LastRequest().Texts) != 1 {
		t.Errorf("Expected 1 unique text sent to provider, got %d", len(p.LastRequest().Texts))
	}
	if count := strings.Count(result.Content, "Hola"); count != 3 {
		t.Errorf("Expected 3 instances of 'Hola', got %d", count)
	}
}

func TestIntegration_SourceEqualsTarget(t *testing.T) {
	p := provider.NewMockProvider()
	translator := modtl.NewTranslator("en_US", p,
		modtl.WithSourceLang("en"),
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<p>Hello</p>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if result.TranslatedCount != 0 || p.CallCount() != 0 {
		t.Errorf("Provider should not be called when source==target")
	}
}

func TestIntegration_WhitespacePreserved(t *testing.T) {
	translator := modtl.NewTranslator("es_ES", provider.NewMockProvider(),
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<p>  Hello  </p>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed: %v", err)
	}

	if !strings.Contains(result.Content, "  Hola  ") {
		t.Errorf("Whitespace not preserved, got: %s", result.Content)
	}
}

func TestIntegration_PlaceholdersSurviveJSON(t *testing.T) {
	p := &provider.MockProvider{
		Transform: func(text string) string {
			return strings.NewReplacer("Hello", "Hola", "Bring", "Trae", "parsnips", "chirivías").Replace(text)
		},
	}
	translator := modtl.NewTranslator("es_ES", p,
		modtl.WithProcessor(processor.NewJSONProcessor()),
	)

	content := `{"quest": "Hello {name}! Bring <b>%d</b> parsnips."}`
	result, err := translator.Process(context.Background(), content, "json")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Content != `{"quest": "Hola {name}! Trae <b>%d</b> chirivías."}` {
		t.Errorf("Unexpected content: %s", result.Content)
	}
	for _, text := range p.LastRequest().Texts {
		if strings.Contains(text, "{name}") || strings.Contains(text, "%d") {
			t.Errorf("Provider should only see masked text, got %q", text)
		}
	}
}

func TestIntegration_DroppedMarkerRepaired(t *testing.T) {
	p := &provider.MockProvider{Transform: func(text string) string {
		return "Hola " + stripMarkers(strings.Replace(text, "Hello", "", 1))
	}}
	translator := modtl.NewTranslator("es_ES", p,
		modtl.WithProcessor(processor.NewYAMLProcessor()),
	)

	result, err := translator.Process(context.Background(), "greet: Hello {name}\n", "yaml")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.RepairedCount != 1 || len(result.Failures) != 0 {
		t.Errorf("Expected one repaired segment, got %+v", result)
	}
	if !strings.Contains(result.Content, "{name}") || !strings.Contains(result.Content, "Hola") {
		t.Errorf("Expected repaired translation, got: %s", result.Content)
	}
}

func TestIntegration_UnrepairableKeepsSource(t *testing.T) {
	p := &provider.MockProvider{Transform: func(text string) string {
		return "Hola"
	}}
	opts := placeholder.DefaultOptions()
	opts.AutoFix = false
	translator := modtl.NewTranslator("es_ES", p,
		modtl.WithProcessor(processor.NewJSONProcessor()),
		modtl.WithValidation(opts),
	)

	content := `{"greet": "Hello {name}", "bye": "Goodbye"}`
	result, err := translator.Process(context.Background(), content, "json")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if result.Content != `{"greet": "Hello {name}", "bye": "Hola"}` {
		t.Errorf("Unexpected content: %s", result.Content)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(result.Failures))
	}
	f := result.Failures[0]
	if f.Kind != placeholder.KindPlaceholderMismatch || f.Locator.Key != "greet" || f.Attempt != 2 {
		t.Errorf("Unexpected report: %+v", f)
	}
	if p.CallCount() != 2 {
		t.Errorf("Expected the failing segment to be retranslated once, got %d calls", p.CallCount())
	}
}

func TestIntegration_RetryableProvider(t *testing.T) {
	p := &provider.MockProvider{
		Transform: func(string) string { return "translated" },
		Errors: []error{
			modtl.NewHTTPError(503, "unavailable", nil),
			modtl.NewNetworkError("connection reset", nil),
		},
	}
	retryable := modtl.NewRetryableProvider(p, modtl.RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
	})

	translator := modtl.NewTranslator("es_ES", retryable,
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	result, err := translator.ProcessHTML(context.Background(), `<p>Hello there</p>`)
	if err != nil {
		t.Fatalf("ProcessHTML failed after retries: %v", err)
	}

	if !strings.Contains(result.Content, "translated") {
		t.Errorf("Expected translated content, got: %s", result.Content)
	}
	if p.CallCount() != 3 {
		t.Errorf("Expected 3 calls (2 failures + 1 success), got %d", p.CallCount())
	}
}

func TestIntegration_FatalProviderErrorAborts(t *testing.T) {
	p := &provider.MockProvider{Errors: []error{modtl.NewHTTPError(401, "bad key", nil)}}
	retryable := modtl.NewRetryableProvider(p, modtl.DefaultRetryPolicy())

	translator := modtl.NewTranslator("es_ES", retryable,
		modtl.WithProcessor(processor.NewHTMLProcessor()),
	)

	if _, err := translator.ProcessHTML(context.Background(), `<p>Hello</p>`); err == nil {
		t.Fatal("Expected an error for a 401")
	}
	if p.CallCount() != 1 {
		t.Errorf("401 should not be retried, got %d calls", p.CallCount())
	}
}
