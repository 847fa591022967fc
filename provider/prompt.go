package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ZaguanLabs/modtl"
	"github.com/ZaguanLabs/modtl/protect"
)

// buildSystemPrompt renders the instructions shared by every backend.
func buildSystemPrompt(req TranslateRequest) string {
	targetName := modtl.GetLanguageName(req.TargetLang)
	localeHint := modtl.GetLocaleClarification(req.TargetLang)
	styleDesc := modtl.GetStyleDescription(req.Style)

	contextText := "The strings come from a game mod's localization files."
	if req.Context != "" {
		contextText = fmt.Sprintf("The strings come from a game mod: %s. Keep names and terminology consistent with that setting.", req.Context)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `# Role
You are an experienced game localizer. You translate user interface text, item descriptions and dialogue into %s.

# Context
%s

# Register
%s

# Task
Translate the provided strings into natural %s.

# Rules
- **Protected tokens**: Tokens such as %s stand for placeholders, markup and escapes. Copy every token exactly once, unchanged. You may move a token to where the grammar of %s needs it.
- **No new syntax**: Do not add braces, percent signs, tags or brackets that are not in the source.
- **Length**: Keep UI labels short. Do not add explanations.
- **Formatting**: Preserve leading and trailing whitespace and line breaks.`,
		targetName, contextText, styleDesc, targetName,
		protect.Marker(protect.ClassICU, 0), targetName)

	if localeHint != "" {
		fmt.Fprintf(&b, "\n- **Locale**: %s", localeHint)
	}

	if len(req.Glossary) > 0 {
		b.WriteString("\n\n# Glossary\nUse these translations for recurring terms:")
		terms := make([]string, 0, len(req.Glossary))
		for source := range req.Glossary {
			terms = append(terms, source)
		}
		sort.Strings(terms)
		for _, source := range terms {
			fmt.Fprintf(&b, "\n- \"%s\" → %s", source, req.Glossary[source])
		}
	}

	if len(req.ExcludedTerms) > 0 {
		fmt.Fprintf(&b, "\n\n# Exclusions\nKeep these terms exactly as they appear in the source:\n- %s", strings.Join(req.ExcludedTerms, "\n- "))
	}

	b.WriteString(`

# Format
Return a JSON object with a single key "translations" holding an array of strings in the same order as the input.
Example: { "translations": ["translated string 1", "translated string 2"] }
Do NOT wrap the JSON in Markdown code blocks.`)

	return b.String()
}

// buildUserMessage encodes the batch. Per-string contexts switch the payload
// from a plain array to an {"items": [...]} object.
func buildUserMessage(req TranslateRequest) string {
	hasContexts := false
	for _, c := range req.TextContexts {
		if c != "" {
			hasContexts = true
			break
		}
	}

	if !hasContexts {
		data, _ := json.Marshal(req.Texts)
		return string(data)
	}

	type item struct {
		Text    string `json:"text"`
		Context string `json:"context,omitempty"`
	}

	items := make([]item, len(req.Texts))
	for i, text := range req.Texts {
		items[i].Text = text
		if i < len(req.TextContexts) {
			items[i].Context = req.TextContexts[i]
		}
	}

	data, _ := json.Marshal(map[string][]item{"items": items})
	return string(data)
}

// parseTranslations decodes a model reply. It accepts the requested
// {"translations": [...]} object, any object with a single array value, or a
// bare array, optionally wrapped in a Markdown fence.
func parseTranslations(content string, expectedCount int) ([]string, error) {
	content = stripFence(content)

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err == nil {
		if raw, ok := obj["translations"]; ok {
			return decodeArray(raw, expectedCount)
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var firstErr error
		for _, k := range keys {
			out, err := decodeArray(obj[k], expectedCount)
			if err == nil {
				return out, nil
			}
			var mismatch *modtl.CountMismatchError
			if firstErr == nil && errors.As(err, &mismatch) {
				firstErr = err
			}
		}
		if firstErr != nil {
			return nil, firstErr
		}
	}

	var arr json.RawMessage
	if err := json.Unmarshal([]byte(content), &arr); err == nil && strings.HasPrefix(strings.TrimSpace(content), "[") {
		return decodeArray(arr, expectedCount)
	}

	return nil, modtl.NewFatalError("invalid response format", nil)
}

func decodeArray(raw json.RawMessage, expectedCount int) ([]string, error) {
	var values []any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, modtl.NewFatalError("invalid response format", err)
	}

	result := make([]string, len(values))
	for i, v := range values {
		if s, ok := v.(string); ok {
			result[i] = s
		} else {
			result[i] = fmt.Sprintf("%v", v)
		}
	}

	if len(result) != expectedCount {
		return nil, &modtl.CountMismatchError{Expected: expectedCount, Got: len(result)}
	}
	return result, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
