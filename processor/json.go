package processor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ZaguanLabs/modtl"
)

// JSONProcessor handles JSON language files such as i18next bundles or
// Minecraft lang/*.json. Every non-empty string value is an entry keyed by
// its dotted path. Apply rewrites only the string literals it translated, so
// key order, spacing and untranslated values stay byte-identical.
type JSONProcessor struct{}

// NewJSONProcessor creates a JSON processor.
func NewJSONProcessor() *JSONProcessor {
	return &JSONProcessor{}
}

type jsonSpan struct {
	start, end int // byte range of the string literal, quotes included
	hash       string
}

type parsedJSON struct {
	src   string
	spans []jsonSpan
}

type jsonFrame struct {
	path      string
	object    bool
	expectKey bool
	key       string
	index     int
}

// Extract scans content and returns its string values in document order.
func (p *JSONProcessor) Extract(content string) (any, []Entry, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	parsed := &parsedJSON{src: content}
	var entries []Entry
	var stack []*jsonFrame

	valuePath := func() string {
		if len(stack) == 0 {
			return ""
		}
		top := stack[len(stack)-1]
		if top.object {
			if top.path == "" {
				return top.key
			}
			return top.path + "." + top.key
		}
		return top.path + "[" + strconv.Itoa(top.index) + "]"
	}
	afterValue := func() {
		if len(stack) == 0 {
			return
		}
		top := stack[len(stack)-1]
		if top.object {
			top.expectKey = true
		} else {
			top.index++
		}
	}

	for {
		before := int(dec.InputOffset())
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, &modtl.ProcessorError{
				Message:     "failed to parse JSON",
				Cause:       err,
				ContentType: "json",
			}
		}
		after := int(dec.InputOffset())

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				stack = append(stack, &jsonFrame{path: valuePath(), object: v == '{', expectKey: true})
			default:
				stack = stack[:len(stack)-1]
				afterValue()
			}
		case string:
			if top := len(stack) - 1; top >= 0 && stack[top].object && stack[top].expectKey {
				stack[top].key = v
				stack[top].expectKey = false
				continue
			}
			if strings.TrimSpace(v) != "" {
				start := before + strings.IndexByte(content[before:after], '"')
				hash := modtl.HashText(v)
				key := valuePath()
				parsed.spans = append(parsed.spans, jsonSpan{start: start, end: after, hash: hash})
				entries = append(entries, Entry{
					ID:       fmt.Sprintf("json-%d", len(entries)),
					Key:      key,
					Line:     1 + strings.Count(content[:start], "\n"),
					Text:     v,
					Hash:     hash,
					NodeType: "json_value",
					Context:  "key: " + key,
				})
			}
			afterValue()
		default:
			afterValue()
		}
	}

	return parsed, entries, nil
}

// Apply replaces translated string literals in the original source.
func (p *JSONProcessor) Apply(parsed any, entries []Entry, translations map[string]string) (string, error) {
	pj, ok := parsed.(*parsedJSON)
	if !ok {
		return "", &modtl.ProcessorError{
			Message:     "invalid parsed content type",
			ContentType: "json",
		}
	}

	var b strings.Builder
	b.Grow(len(pj.src))
	last := 0
	for _, s := range pj.spans {
		translated, ok := translations[s.hash]
		if !ok {
			continue
		}
		lit, err := quoteJSON(translated)
		if err != nil {
			return "", &modtl.ProcessorError{Message: "failed to encode value", Cause: err, ContentType: "json"}
		}
		b.WriteString(pj.src[last:s.start])
		b.WriteString(lit)
		last = s.end
	}
	b.WriteString(pj.src[last:])
	return b.String(), nil
}

// ContentType returns "json".
func (p *JSONProcessor) ContentType() string {
	return "json"
}

// quoteJSON encodes s as a JSON string literal without HTML escaping, so
// rich-text tags stay readable in the output file.
func quoteJSON(s string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

var _ ContentProcessor = (*JSONProcessor)(nil)
