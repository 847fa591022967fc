package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/ZaguanLabs/modtl"
)

func TestBuildSystemPrompt(t *testing.T) {
	req := TranslateRequest{
		TargetLang:    "es_ES",
		SourceLang:    "en",
		Context:       "Skyrim overhaul mod",
		ExcludedTerms: []string{"Dovahkiin", "Thu'um"},
	}

	prompt := buildSystemPrompt(req)

	if !strings.Contains(prompt, "Spanish (Spain)") {
		t.Error("Prompt should contain target language name")
	}
	if !strings.Contains(prompt, "Skyrim overhaul mod") {
		t.Error("Prompt should contain context")
	}
	if !strings.Contains(prompt, "Dovahkiin") || !strings.Contains(prompt, "Thu'um") {
		t.Error("Prompt should contain excluded terms")
	}
	if !strings.Contains(prompt, "Castilian Spanish") {
		t.Error("Prompt should contain locale clarification for es_ES")
	}
	if !strings.Contains(prompt, "⟦MT:ICU:0⟧") {
		t.Error("Prompt should show the protected token shape")
	}
}

func TestBuildSystemPrompt_WithGlossaryAndStyle(t *testing.T) {
	req := TranslateRequest{
		TargetLang: "nb_NO",
		SourceLang: "en",
		Glossary: map[string]string{
			"Health Potion": "Helsedrikk",
			"Stamina":       "Utholdenhet",
		},
		Style: modtl.StyleImmersive,
	}

	prompt := buildSystemPrompt(req)

	if !strings.Contains(prompt, "Health Potion") || !strings.Contains(prompt, "Helsedrikk") {
		t.Error("Prompt should contain glossary terms")
	}
	if strings.Index(prompt, "Health Potion") > strings.Index(prompt, "Stamina") {
		t.Error("Glossary should be sorted")
	}
	if !strings.Contains(prompt, "lore-friendly") {
		t.Error("Prompt should contain immersive style description")
	}
	if !strings.Contains(prompt, "Bokmål") {
		t.Error("Prompt should contain Norwegian locale clarification")
	}
}

func TestBuildUserMessage_SimpleArray(t *testing.T) {
	msg := buildUserMessage(TranslateRequest{Texts: []string{"Hello", "World"}})

	if msg != `["Hello","World"]` {
		t.Errorf("Expected JSON array, got: %s", msg)
	}
}

func TestBuildUserMessage_WithContexts(t *testing.T) {
	msg := buildUserMessage(TranslateRequest{
		Texts:        []string{"Run", "Save"},
		TextContexts: []string{"key: menu.run", ""},
	})

	if !strings.Contains(msg, `"text":"Run"`) {
		t.Errorf("Message should contain text field, got: %s", msg)
	}
	if !strings.Contains(msg, `"context":"key: menu.run"`) {
		t.Errorf("Message should contain context field, got: %s", msg)
	}
	if strings.Count(msg, `"context"`) != 1 {
		t.Errorf("Empty contexts should be omitted, got: %s", msg)
	}
}

func TestParseTranslations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"translations key", `{"translations": ["Hola", "Mundo"]}`, []string{"Hola", "Mundo"}},
		{"direct array", `["Hola", "Mundo"]`, []string{"Hola", "Mundo"}},
		{"fallback key", `{"results": ["Hola", "Mundo"]}`, []string{"Hola", "Mundo"}},
		{"fenced", "```json\n{\"translations\": [\"Hola\", \"Mundo\"]}\n```", []string{"Hola", "Mundo"}},
		{"markers kept", `{"translations": ["Hola ⟦MT:ICU:0⟧", "5"]}`, []string{"Hola ⟦MT:ICU:0⟧", "5"}},
		{"non-string values", `{"translations": ["Hola", 5]}`, []string{"Hola", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTranslations(tt.content, 2)
			if err != nil {
				t.Fatalf("parseTranslations failed: %v", err)
			}
			if len(got) != 2 || got[0] != tt.want[0] || got[1] != tt.want[1] {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseTranslations_CountMismatch(t *testing.T) {
	_, err := parseTranslations(`{"translations": ["Hola"]}`, 2)

	var mismatch *modtl.CountMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected CountMismatchError, got %v", err)
	}
	if mismatch.Expected != 2 || mismatch.Got != 1 {
		t.Errorf("Unexpected mismatch: %+v", mismatch)
	}
}

func TestParseTranslations_InvalidIsFatal(t *testing.T) {
	_, err := parseTranslations("Sorry, I cannot help with that.", 1)

	if err == nil {
		t.Fatal("Expected error for invalid format")
	}
	if modtl.IsRetryable(err) {
		t.Error("Invalid response format should not be retryable")
	}
}
